package cart

import (
	"github.com/noah-isme/lanches-api/internal/coupon"
	"github.com/noah-isme/lanches-api/internal/pricing"
)

// ItemView is the rendered line item.
type ItemView struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	UnitPrice        string `json:"unitPrice"`
	UnitPriceDisplay string `json:"unitPriceDisplay"`
	Quantity         int    `json:"quantity"`
	LineTotal        string `json:"lineTotal"`
	LineTotalDisplay string `json:"lineTotalDisplay"`
	Image            string `json:"image,omitempty"`
}

// CouponView is the rendered coupon.
type CouponView struct {
	Code        string      `json:"code"`
	Type        coupon.Kind `json:"type"`
	Description string      `json:"description"`
}

// View is the cart as returned by the API. Amounts use a period separator;
// the *Display variants use the storefront's comma format.
type View struct {
	Items           []ItemView  `json:"items"`
	Coupon          *CouponView `json:"coupon"`
	ItemCount       int         `json:"itemCount"`
	Subtotal        string      `json:"subtotal"`
	Discount        string      `json:"discount"`
	Shipping        string      `json:"shipping"`
	Total           string      `json:"total"`
	TotalDisplay    string      `json:"totalDisplay"`
	FreeShipping    string      `json:"freeShipping,omitempty"`
	FreeShippingMin string      `json:"freeShippingThreshold"`
}

// NewView renders c.
func NewView(c *pricing.Cart) View {
	sum := c.Summary()
	v := View{
		Items:           make([]ItemView, 0, len(c.Items)),
		ItemCount:       sum.ItemCount,
		Subtotal:        sum.Subtotal.StringFixed(2),
		Discount:        sum.Discount.StringFixed(2),
		Shipping:        sum.Shipping.StringFixed(2),
		Total:           sum.Total.StringFixed(2),
		TotalDisplay:    pricing.FormatCurrency(sum.Total),
		FreeShipping:    string(sum.FreeShipping),
		FreeShippingMin: pricing.FreeShippingThreshold.StringFixed(2),
	}
	for _, it := range c.Items {
		v.Items = append(v.Items, ItemView{
			ID:               it.ID,
			Name:             it.Name,
			UnitPrice:        it.UnitPrice.StringFixed(2),
			UnitPriceDisplay: pricing.FormatCurrency(it.UnitPrice),
			Quantity:         it.Quantity,
			LineTotal:        it.LineTotal().StringFixed(2),
			LineTotalDisplay: pricing.FormatCurrency(it.LineTotal()),
			Image:            it.Image,
		})
	}
	if c.Coupon != nil && c.Coupon.Rule != nil {
		v.Coupon = &CouponView{Code: c.Coupon.Code, Type: c.Coupon.Rule.Kind(), Description: c.Coupon.Description}
	}
	return v
}
