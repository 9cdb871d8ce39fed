package checkout

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestMasks(t *testing.T) {
	require.Equal(t, "4111 1111 1111 1111", MaskCardNumber("4111-1111-1111-1111-999"))
	require.Equal(t, "4111 11", MaskCardNumber("411111"))
	require.Equal(t, "", MaskCardNumber("abc"))
	require.Equal(t, "12/34", MaskExpiry("1234"))
	require.Equal(t, "12/3", MaskExpiry("12/3"))
	require.Equal(t, "1", MaskExpiry("1"))
	require.Equal(t, "1234", MaskCVV("12a345"))
}

func TestValidateCard(t *testing.T) {
	valid := CardInput{Number: "4111 1111 1111 1111", Name: "Ana Souza", Expiry: "1228", CVV: "123"}
	require.NoError(t, ValidateCard(valid))

	cases := []struct {
		name    string
		mutate  func(*CardInput)
		field   string
		message string
	}{
		{"short number", func(c *CardInput) { c.Number = "4111 1111 111" }, "number", "Número do cartão inválido"},
		{"short name", func(c *CardInput) { c.Name = " Al " }, "name", "Nome inválido"},
		{"short expiry", func(c *CardInput) { c.Expiry = "12" }, "expiry", "Validade inválida"},
		{"short cvv", func(c *CardInput) { c.CVV = "12" }, "cvv", "CVV inválido"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.mutate(&in)
			err := ValidateCard(in)
			require.ErrorIs(t, err, ErrInvalidCard)
			var ce *CardError
			require.True(t, errors.As(err, &ce))
			require.Equal(t, tc.field, ce.Field)
			require.Equal(t, tc.message, ce.Message)
		})
	}
}

func TestValidateCardReportsFirstFailure(t *testing.T) {
	err := ValidateCard(CardInput{})
	var ce *CardError
	require.True(t, errors.As(err, &ce))
	require.Equal(t, "number", ce.Field)
}

func TestChangeSuggestions(t *testing.T) {
	toStrings := func(vs []decimal.Decimal) []string {
		out := make([]string, 0, len(vs))
		for _, v := range vs {
			out = append(out, v.StringFixed(2))
		}
		return out
	}
	require.Equal(t, []string{"30.00", "40.00", "50.00"}, toStrings(ChangeSuggestions(dec("23.50"))))
	require.Equal(t, []string{"50.00", "100.00"}, toStrings(ChangeSuggestions(dec("40"))))
	require.Equal(t, []string{"100.00"}, toStrings(ChangeSuggestions(dec("100"))))
	require.Empty(t, ChangeSuggestions(decimal.Zero))
}

func TestValidateChange(t *testing.T) {
	total := dec("47.00")
	require.NoError(t, ValidateChange(nil, total))
	fifty := dec("50")
	require.NoError(t, ValidateChange(&fifty, total))
	exact := dec("47")
	require.NoError(t, ValidateChange(&exact, total))
	low := dec("20")
	require.ErrorIs(t, ValidateChange(&low, total), ErrChangeTooLow)
}

func TestPaymentLabel(t *testing.T) {
	fifty := dec("50")
	require.Equal(t, "PIX", Payment{Method: MethodPix}.Label())
	require.Equal(t, "Cartão de crédito", Payment{Method: MethodCard}.Label())
	require.Equal(t, "Cartão de débito", Payment{Method: MethodCard, CardType: CardDebit}.Label())
	require.Equal(t, "Dinheiro na entrega", Payment{Method: MethodCash}.Label())
	require.Equal(t, "Dinheiro na entrega - troco para R$ 50,00", Payment{Method: MethodCash, ChangeFor: &fifty}.Label())
	require.Equal(t, "Não informado", Payment{}.Label())
}

func TestParseMethodAndCardType(t *testing.T) {
	m, ok := ParseMethod(" Dinheiro ")
	require.True(t, ok)
	require.Equal(t, MethodCash, m)
	m, ok = ParseMethod("cartao")
	require.True(t, ok)
	require.Equal(t, MethodCard, m)
	_, ok = ParseMethod("boleto")
	require.False(t, ok)

	require.Equal(t, CardDebit, ParseCardType("débito"))
	require.Equal(t, CardCredit, ParseCardType(""))
}
