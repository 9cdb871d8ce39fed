package coupon

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidCoupon is returned when a code is unknown or a stored record cannot be decoded.
var ErrInvalidCoupon = errors.New("coupon invalid or expired")

// Kind identifies the coupon variant.
type Kind string

const (
	KindPercentage   Kind = "percentage"
	KindFreeShipping Kind = "free_shipping"
	KindFixedAmount  Kind = "fixed_amount"
)

var hundred = decimal.NewFromInt(100)

// Rule is the variant-specific part of a coupon. Each variant carries only
// the magnitude it needs.
type Rule interface {
	Kind() Kind
	// Discount returns the nominal discount for the given subtotal.
	Discount(subtotal decimal.Decimal) decimal.Decimal
	magnitude() decimal.Decimal
}

// Percentage discounts a share of the subtotal.
type Percentage struct {
	Percent decimal.Decimal
}

func (Percentage) Kind() Kind { return KindPercentage }

func (p Percentage) Discount(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(p.Percent).Div(hundred)
}

func (p Percentage) magnitude() decimal.Decimal { return p.Percent }

// FreeShipping waives the delivery fee. Its nominal discount equals the fee
// but it is never subtracted from the total.
type FreeShipping struct {
	Fee decimal.Decimal
}

func (FreeShipping) Kind() Kind { return KindFreeShipping }

func (f FreeShipping) Discount(decimal.Decimal) decimal.Decimal { return f.Fee }

func (f FreeShipping) magnitude() decimal.Decimal { return f.Fee }

// FixedAmount discounts a flat value.
type FixedAmount struct {
	Amount decimal.Decimal
}

func (FixedAmount) Kind() Kind { return KindFixedAmount }

func (f FixedAmount) Discount(decimal.Decimal) decimal.Decimal { return f.Amount }

func (f FixedAmount) magnitude() decimal.Decimal { return f.Amount }

// Coupon is an applied or applicable discount code.
type Coupon struct {
	Code        string
	Description string
	Rule        Rule
}

// WaivesShipping reports whether the coupon is a free-shipping coupon.
func (c Coupon) WaivesShipping() bool {
	return c.Rule != nil && c.Rule.Kind() == KindFreeShipping
}

// Record is the persisted shape of an applied coupon.
type Record struct {
	Code        string          `json:"code"`
	Type        Kind            `json:"type"`
	Value       decimal.Decimal `json:"value"`
	Description string          `json:"description"`
}

// Record converts the coupon to its persisted form.
func (c Coupon) Record() Record {
	rec := Record{Code: c.Code, Description: c.Description}
	if c.Rule != nil {
		rec.Type = c.Rule.Kind()
		rec.Value = c.Rule.magnitude()
	}
	return rec
}

// FromRecord rebuilds a coupon from its persisted form.
func FromRecord(rec Record) (Coupon, error) {
	var rule Rule
	switch rec.Type {
	case KindPercentage:
		rule = Percentage{Percent: rec.Value}
	case KindFreeShipping:
		rule = FreeShipping{Fee: rec.Value}
	case KindFixedAmount:
		rule = FixedAmount{Amount: rec.Value}
	default:
		return Coupon{}, fmt.Errorf("%w: unknown type %q", ErrInvalidCoupon, rec.Type)
	}
	return Coupon{Code: Normalize(rec.Code), Description: rec.Description, Rule: rule}, nil
}

// Normalize trims and upper-cases a user supplied code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
