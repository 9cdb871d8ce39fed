package pricing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/lanches-api/internal/coupon"
)

var (
	// FreeShippingThreshold is the subtotal from which delivery is free.
	FreeShippingThreshold = decimal.NewFromInt(50)
	// FlatShippingFee is charged below the threshold.
	FlatShippingFee = decimal.NewFromInt(5)
)

// FreeShippingReason explains why shipping is zero.
type FreeShippingReason string

const (
	ReasonNone      FreeShippingReason = ""
	ReasonCoupon    FreeShippingReason = "coupon"
	ReasonThreshold FreeShippingReason = "threshold"
)

// LineItem is a product in the cart. Name is unique within a cart.
type LineItem struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Image     string          `json:"image,omitempty"`
}

// LineTotal returns unit price times quantity.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Summary aggregates computed pricing components.
type Summary struct {
	Subtotal     decimal.Decimal
	Discount     decimal.Decimal
	Shipping     decimal.Decimal
	Total        decimal.Decimal
	ItemCount    int
	FreeShipping FreeShippingReason
}

// Cart holds line items and at most one applied coupon. It is not safe for
// concurrent use; callers serialize access per client.
type Cart struct {
	Items  []LineItem
	Coupon *coupon.Coupon
	Now    func() time.Time
}

func (c *Cart) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// IsEmpty reports whether the cart has no items.
func (c *Cart) IsEmpty() bool { return len(c.Items) == 0 }

// AddItem increments the quantity of the item with the same name or appends
// a new item with quantity 1.
func (c *Cart) AddItem(name string, unitPrice decimal.Decimal, image string) LineItem {
	for i := range c.Items {
		if c.Items[i].Name == name {
			c.Items[i].Quantity++
			return c.Items[i]
		}
	}
	item := LineItem{
		ID:        c.nextID(),
		Name:      name,
		UnitPrice: unitPrice,
		Quantity:  1,
		Image:     image,
	}
	c.Items = append(c.Items, item)
	return item
}

// nextID derives ids from the millisecond clock, bumped past any existing id
// so rapid adds never collide.
func (c *Cart) nextID() int64 {
	id := c.now().UnixMilli()
	for _, it := range c.Items {
		if it.ID >= id {
			id = it.ID + 1
		}
	}
	return id
}

func (c *Cart) indexOf(id int64) int {
	for i := range c.Items {
		if c.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// RemoveItem deletes the item. Unknown ids are a no-op.
func (c *Cart) RemoveItem(id int64) (LineItem, bool) {
	idx := c.indexOf(id)
	if idx < 0 {
		return LineItem{}, false
	}
	removed := c.Items[idx]
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	return removed, true
}

// AdjustQuantity adds delta to the item's quantity. When the result is zero
// or less the item is removed and the returned item carries the non-positive
// quantity. Unknown ids are a no-op.
func (c *Cart) AdjustQuantity(id int64, delta int) (LineItem, bool) {
	idx := c.indexOf(id)
	if idx < 0 {
		return LineItem{}, false
	}
	c.Items[idx].Quantity += delta
	item := c.Items[idx]
	if item.Quantity <= 0 {
		c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	}
	return item, true
}

// ApplyCoupon replaces the applied coupon. On failure the previous coupon is
// kept.
func (c *Cart) ApplyCoupon(table coupon.Table, code string) (coupon.Coupon, error) {
	found, err := table.Lookup(code)
	if err != nil {
		return coupon.Coupon{}, err
	}
	c.Coupon = &found
	return found, nil
}

// RemoveCoupon clears the applied coupon.
func (c *Cart) RemoveCoupon() { c.Coupon = nil }

// Clear empties items and coupon.
func (c *Cart) Clear() {
	c.Items = nil
	c.Coupon = nil
}

// ItemCount sums quantities.
func (c *Cart) ItemCount() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// Subtotal sums unit price times quantity.
func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range c.Items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}

// ShippingFee is zero with a free-shipping coupon or when the subtotal
// reaches the threshold.
func (c *Cart) ShippingFee() decimal.Decimal {
	if c.Coupon != nil && c.Coupon.WaivesShipping() {
		return decimal.Zero
	}
	if c.Subtotal().GreaterThanOrEqual(FreeShippingThreshold) {
		return decimal.Zero
	}
	return FlatShippingFee
}

// Discount is the nominal coupon discount. For free-shipping coupons it is
// the waived fee.
func (c *Cart) Discount() decimal.Decimal {
	if c.Coupon == nil || c.Coupon.Rule == nil {
		return decimal.Zero
	}
	return c.Coupon.Rule.Discount(c.Subtotal())
}

// EffectiveDiscount is the amount subtracted from the total.
func (c *Cart) EffectiveDiscount() decimal.Decimal {
	if c.Coupon == nil || c.Coupon.WaivesShipping() {
		return decimal.Zero
	}
	return c.Discount()
}

// Total never goes below zero.
func (c *Cart) Total() decimal.Decimal {
	total := c.Subtotal().Sub(c.EffectiveDiscount()).Add(c.ShippingFee())
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// Summary computes every derived value at once.
func (c *Cart) Summary() Summary {
	s := Summary{
		Subtotal:  c.Subtotal(),
		Discount:  c.EffectiveDiscount(),
		Shipping:  c.ShippingFee(),
		Total:     c.Total(),
		ItemCount: c.ItemCount(),
	}
	switch {
	case c.Coupon != nil && c.Coupon.WaivesShipping():
		s.FreeShipping = ReasonCoupon
	case s.Subtotal.GreaterThanOrEqual(FreeShippingThreshold):
		s.FreeShipping = ReasonThreshold
	}
	return s
}

// FormatBRL renders two decimals with a comma separator, e.g. "23,50".
func FormatBRL(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(2), ".", ",", 1)
}

// FormatCurrency prefixes FormatBRL with the currency symbol.
func FormatCurrency(d decimal.Decimal) string {
	return "R$ " + FormatBRL(d)
}
