// Package checkout drives the four-step checkout wizard: cart review,
// delivery address, payment and confirmation.
package checkout

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/lanches-api/internal/pricing"
)

// Step is a wizard position.
type Step int

const (
	StepCart Step = iota + 1
	StepAddress
	StepPayment
	StepConfirmation
)

var stepLabels = [...]string{"Carrinho", "Entrega", "Pagamento", "Confirmação"}

// Valid reports whether s is within 1..4.
func (s Step) Valid() bool { return s >= StepCart && s <= StepConfirmation }

// Label is the title shown in the step indicator.
func (s Step) Label() string {
	if !s.Valid() {
		return ""
	}
	return stepLabels[s-1]
}

// Next returns the following step, saturating at confirmation.
func (s Step) Next() Step {
	if s < StepConfirmation {
		return s + 1
	}
	return s
}

// Prev returns the previous step, saturating at the cart.
func (s Step) Prev() Step {
	if s > StepCart {
		return s - 1
	}
	return s
}

// StepView renders one entry of the step indicator.
type StepView struct {
	Number int    `json:"number"`
	Label  string `json:"label"`
	Active bool   `json:"active"`
	Done   bool   `json:"done"`
}

// Indicator renders all four steps relative to current.
func Indicator(current Step) []StepView {
	out := make([]StepView, 0, len(stepLabels))
	for s := StepCart; s <= StepConfirmation; s++ {
		out = append(out, StepView{Number: int(s), Label: s.Label(), Active: current >= s, Done: current > s})
	}
	return out
}

// Address is the delivery address.
type Address struct {
	CEP        string `json:"cep" validate:"required"`
	Street     string `json:"street" validate:"required"`
	Number     string `json:"number" validate:"required"`
	Complement string `json:"complement,omitempty"`
	District   string `json:"district" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	Reference  string `json:"reference,omitempty"`
}

// Normalize trims every field and upper-cases the state.
func (a Address) Normalize() Address {
	return Address{
		CEP:        strings.TrimSpace(a.CEP),
		Street:     strings.TrimSpace(a.Street),
		Number:     strings.TrimSpace(a.Number),
		Complement: strings.TrimSpace(a.Complement),
		District:   strings.TrimSpace(a.District),
		City:       strings.TrimSpace(a.City),
		State:      strings.ToUpper(strings.TrimSpace(a.State)),
		Reference:  strings.TrimSpace(a.Reference),
	}
}

// Lines formats the address for receipts.
func (a Address) Lines() []string {
	first := a.Street + ", " + a.Number
	if a.Complement != "" {
		first += " - " + a.Complement
	}
	lines := []string{first, a.District + " - " + a.City + "/" + a.State}
	if a.CEP != "" {
		lines = append(lines, "CEP: "+a.CEP)
	}
	if a.Reference != "" {
		lines = append(lines, a.Reference)
	}
	return lines
}

// Method is a payment method.
type Method string

const (
	MethodPix  Method = "pix"
	MethodCard Method = "card"
	MethodCash Method = "cash"
)

// ParseMethod accepts the API names plus the storefront's Portuguese ones.
func ParseMethod(s string) (Method, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pix":
		return MethodPix, true
	case "card", "cartao", "cartão":
		return MethodCard, true
	case "cash", "dinheiro":
		return MethodCash, true
	}
	return "", false
}

// CardType distinguishes credit from debit.
type CardType string

const (
	CardCredit CardType = "credit"
	CardDebit  CardType = "debit"
)

// ParseCardType defaults to credit.
func ParseCardType(s string) CardType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debit", "debito", "débito":
		return CardDebit
	}
	return CardCredit
}

// Payment is the recorded payment choice. Card data is never stored.
type Payment struct {
	Method    Method           `json:"method,omitempty"`
	CardType  CardType         `json:"cardType,omitempty"`
	ChangeFor *decimal.Decimal `json:"changeFor,omitempty"`
}

// Label renders the payment line of the receipt.
func (p Payment) Label() string {
	switch p.Method {
	case MethodPix:
		return "PIX"
	case MethodCard:
		if p.CardType == CardDebit {
			return "Cartão de débito"
		}
		return "Cartão de crédito"
	case MethodCash:
		label := "Dinheiro na entrega"
		if p.ChangeFor != nil && p.ChangeFor.IsPositive() {
			label += " - troco para " + pricing.FormatCurrency(*p.ChangeFor)
		}
		return label
	case "":
		return "Não informado"
	}
	return string(p.Method)
}

// Draft is the persisted checkout data.
type Draft struct {
	Address     *Address `json:"address,omitempty"`
	Payment     Payment  `json:"payment"`
	OrderNumber int      `json:"orderNumber,omitempty"`
}
