package checkout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lanches-api/internal/coupon"
	"github.com/noah-isme/lanches-api/internal/pricing"
)

func TestStepNavigationSaturates(t *testing.T) {
	require.Equal(t, StepAddress, StepCart.Next())
	require.Equal(t, StepConfirmation, StepConfirmation.Next())
	require.Equal(t, StepCart, StepCart.Prev())
	require.Equal(t, "Confirmação", StepConfirmation.Label())
	require.Equal(t, "", Step(9).Label())

	ind := Indicator(StepPayment)
	require.Len(t, ind, 4)
	require.True(t, ind[1].Done)
	require.True(t, ind[2].Active)
	require.False(t, ind[2].Done)
	require.False(t, ind[3].Active)
}

func TestAddressNormalizeAndLines(t *testing.T) {
	a := Address{CEP: " 96200-000 ", Street: " Rua A ", Number: "10", Complement: "ap 2", District: "Centro", City: "Rio Grande", State: " rs ", Reference: "perto da praça"}.Normalize()
	require.Equal(t, "RS", a.State)
	require.Equal(t, "96200-000", a.CEP)
	require.Equal(t, []string{
		"Rua A, 10 - ap 2",
		"Centro - Rio Grande/RS",
		"CEP: 96200-000",
		"perto da praça",
	}, a.Lines())
}

func scenarioCart(t *testing.T, code string) *pricing.Cart {
	t.Helper()
	c := &pricing.Cart{}
	c.AddItem("X-Burger", dec("18.00"), "")
	c.AddItem("X-Burger", dec("18.00"), "")
	c.AddItem("Suco", dec("6.00"), "")
	if code != "" {
		_, err := c.ApplyCoupon(coupon.DefaultTable(), code)
		require.NoError(t, err)
	}
	return c
}

func TestBuildReceiptWithPercentageCoupon(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := BuildReceipt(12345, scenarioCart(t, "BEMVINDO10"), Draft{Payment: Payment{Method: MethodPix}}, now)

	require.Equal(t, 12345, r.OrderNumber)
	require.Len(t, r.Items, 2)
	require.Equal(t, "X-Burger × 2", r.Items[0].Label)
	require.Equal(t, "R$ 36,00", r.Items[0].Display)
	require.NotNil(t, r.Discount)
	require.Equal(t, "Desconto (BEMVINDO10)", r.Discount.Label)
	require.Equal(t, "4.20", r.Discount.Amount)
	require.Equal(t, "R$ 5,00", r.ShippingDisplay)
	require.Equal(t, "42.80", r.Total)
	require.Equal(t, []string{"Endereço não informado"}, r.Address)
	require.False(t, r.AddressProvided)
	require.Equal(t, "PIX", r.Payment)
}

func TestBuildReceiptHidesFreeShippingDiscount(t *testing.T) {
	r := BuildReceipt(10000, scenarioCart(t, "FRETEGRATIS"), Draft{}, time.Now())
	require.Nil(t, r.Discount)
	require.Equal(t, "Grátis", r.ShippingDisplay)
	require.Equal(t, "42.00", r.Total)
	require.Equal(t, "Não informado", r.Payment)
}

func TestReceiptPDF(t *testing.T) {
	addr := Address{CEP: "96200-000", Street: "Rua São João", Number: "5", District: "Centro", City: "Rio Grande", State: "RS"}
	r := BuildReceipt(54321, scenarioCart(t, "COMBO5"), Draft{Address: &addr, Payment: Payment{Method: MethodCard}}, time.Now())
	data, err := ReceiptPDF(r)
	require.NoError(t, err)
	require.True(t, len(data) > 100)
	require.Equal(t, "%PDF", string(data[:4]))
}
