package checkout

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidCard is wrapped by card validation failures.
	ErrInvalidCard = errors.New("checkout: invalid card")
	// ErrChangeTooLow is returned when the cash change-for is below the total.
	ErrChangeTooLow = errors.New("checkout: change below total")
)

// CardError names the rejected card field.
type CardError struct {
	Field   string
	Message string
}

func (e *CardError) Error() string { return "card " + e.Field + ": " + e.Message }

// Unwrap lets errors.Is match ErrInvalidCard.
func (e *CardError) Unwrap() error { return ErrInvalidCard }

// CardInput is the raw card form.
type CardInput struct {
	Number string `json:"number"`
	Name   string `json:"name"`
	Expiry string `json:"expiry"`
	CVV    string `json:"cvv"`
	Type   string `json:"type"`
}

func digits(s string, max int) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			if max > 0 && b.Len() >= max {
				break
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MaskCardNumber keeps up to 16 digits in groups of four.
func MaskCardNumber(s string) string {
	d := digits(s, 16)
	var b strings.Builder
	for i, r := range d {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// MaskExpiry formats up to four digits as MM/AA.
func MaskExpiry(s string) string {
	d := digits(s, 4)
	if len(d) >= 2 {
		return d[:2] + "/" + d[2:]
	}
	return d
}

// MaskCVV keeps up to four digits.
func MaskCVV(s string) string {
	return digits(s, 4)
}

// Masked applies the input masks to the form.
func (c CardInput) Masked() CardInput {
	return CardInput{
		Number: MaskCardNumber(c.Number),
		Name:   strings.TrimSpace(c.Name),
		Expiry: MaskExpiry(c.Expiry),
		CVV:    MaskCVV(c.CVV),
		Type:   c.Type,
	}
}

// ValidateCard checks the masked form field by field and reports the first
// failure.
func ValidateCard(in CardInput) error {
	c := in.Masked()
	number := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, c.Number)
	switch {
	case len(number) < 13:
		return &CardError{Field: "number", Message: "Número do cartão inválido"}
	case utf8.RuneCountInString(c.Name) < 3:
		return &CardError{Field: "name", Message: "Nome inválido"}
	case len(c.Expiry) < 5:
		return &CardError{Field: "expiry", Message: "Validade inválida"}
	case len(c.CVV) < 3:
		return &CardError{Field: "cvv", Message: "CVV inválido"}
	}
	return nil
}

var changeBases = []int64{10, 20, 50, 100}

// ChangeSuggestions returns up to three round bills above total.
func ChangeSuggestions(total decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, 3)
	for _, b := range changeBases {
		base := decimal.NewFromInt(b)
		v := total.Div(base).Ceil().Mul(base)
		if !v.GreaterThan(total) {
			continue
		}
		dup := false
		for _, seen := range out {
			if seen.Equal(v) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		out = append(out, v)
		if len(out) == 3 {
			break
		}
	}
	return out
}

// ValidateChange checks an optional change-for amount against the total.
func ValidateChange(changeFor *decimal.Decimal, total decimal.Decimal) error {
	if changeFor == nil {
		return nil
	}
	if changeFor.LessThan(total) {
		return ErrChangeTooLow
	}
	return nil
}
