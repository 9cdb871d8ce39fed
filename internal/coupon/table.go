package coupon

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Table is a fixed lookup of coupons keyed by normalized code.
type Table map[string]Coupon

// DefaultTable returns the coupons offered by the store.
func DefaultTable() Table {
	return NewTable(
		Coupon{Code: "BEMVINDO10", Description: "10% de desconto", Rule: Percentage{Percent: decimal.NewFromInt(10)}},
		Coupon{Code: "FRETEGRATIS", Description: "Frete grátis", Rule: FreeShipping{Fee: decimal.NewFromInt(5)}},
		Coupon{Code: "COMBO5", Description: "R$ 5,00 de desconto", Rule: FixedAmount{Amount: decimal.NewFromInt(5)}},
	)
}

// NewTable indexes the provided coupons by their normalized code.
func NewTable(coupons ...Coupon) Table {
	t := make(Table, len(coupons))
	for _, c := range coupons {
		c.Code = Normalize(c.Code)
		t[c.Code] = c
	}
	return t
}

// Lookup finds a coupon case-insensitively.
func (t Table) Lookup(code string) (Coupon, error) {
	normalized := Normalize(code)
	if normalized == "" {
		return Coupon{}, ErrInvalidCoupon
	}
	c, ok := t[normalized]
	if !ok {
		return Coupon{}, fmt.Errorf("%w: %s", ErrInvalidCoupon, normalized)
	}
	return c, nil
}

// Codes lists the known codes in alphabetical order.
func (t Table) Codes() []string {
	out := make([]string, 0, len(t))
	for code := range t {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
