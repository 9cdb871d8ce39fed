package coupon

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestLookupIsCaseInsensitive(t *testing.T) {
	table := DefaultTable()
	for _, code := range []string{"bemvindo10", " BemVindo10 ", "BEMVINDO10"} {
		c, err := table.Lookup(code)
		require.NoError(t, err, code)
		require.Equal(t, "BEMVINDO10", c.Code)
	}
}

func TestLookupUnknown(t *testing.T) {
	_, err := DefaultTable().Lookup("NOPE")
	require.ErrorIs(t, err, ErrInvalidCoupon)
	require.Contains(t, err.Error(), "NOPE")

	_, err = DefaultTable().Lookup("   ")
	require.ErrorIs(t, err, ErrInvalidCoupon)
}

func TestDiscountPerVariant(t *testing.T) {
	subtotal := decimal.RequireFromString("42.00")
	cases := []struct {
		code     string
		kind     Kind
		discount string
		waives   bool
	}{
		{"BEMVINDO10", KindPercentage, "4.2", false},
		{"FRETEGRATIS", KindFreeShipping, "5", true},
		{"COMBO5", KindFixedAmount, "5", false},
	}
	table := DefaultTable()
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			c, err := table.Lookup(tc.code)
			require.NoError(t, err)
			require.Equal(t, tc.kind, c.Rule.Kind())
			require.Equal(t, tc.waives, c.WaivesShipping())
			got := c.Rule.Discount(subtotal)
			require.True(t, got.Equal(decimal.RequireFromString(tc.discount)), "discount = %s", got)
		})
	}
}

func TestFromRecordKeepsVariant(t *testing.T) {
	for _, code := range DefaultTable().Codes() {
		c, err := DefaultTable().Lookup(code)
		require.NoError(t, err)
		back, err := FromRecord(c.Record())
		require.NoError(t, err, code)
		require.Equal(t, c.Code, back.Code)
		require.Equal(t, c.Rule.Kind(), back.Rule.Kind())
	}

	_, err := FromRecord(Record{Code: "X", Type: "bogus"})
	require.ErrorIs(t, err, ErrInvalidCoupon)
}
