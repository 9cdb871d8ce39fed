package checkout

import (
	"bytes"
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"

	"github.com/noah-isme/lanches-api/internal/pricing"
)

const (
	deliveryEstimate = "~30 min"
	noAddress        = "Endereço não informado"
)

// ReceiptLine is one priced row.
type ReceiptLine struct {
	Label    string `json:"label"`
	Quantity int    `json:"quantity,omitempty"`
	Amount   string `json:"amount"`
	Display  string `json:"display"`
}

// Receipt is the confirmation summary.
type Receipt struct {
	OrderNumber      int           `json:"orderNumber"`
	Items            []ReceiptLine `json:"items"`
	Discount         *ReceiptLine  `json:"discount,omitempty"`
	Shipping         string        `json:"shipping"`
	ShippingDisplay  string        `json:"shippingDisplay"`
	Subtotal         string        `json:"subtotal"`
	Total            string        `json:"total"`
	TotalDisplay     string        `json:"totalDisplay"`
	Address          []string      `json:"address"`
	AddressProvided  bool          `json:"addressProvided"`
	Payment          string        `json:"payment"`
	PaymentMethod    Method        `json:"paymentMethod,omitempty"`
	DeliveryEstimate string        `json:"deliveryEstimate"`
	IssuedAt         time.Time     `json:"issuedAt"`
}

// BuildReceipt summarizes cart and draft. The discount row appears only for
// a positive discount from a coupon that does not waive shipping.
func BuildReceipt(orderNumber int, c *pricing.Cart, d Draft, now time.Time) Receipt {
	sum := c.Summary()
	r := Receipt{
		OrderNumber:      orderNumber,
		Items:            make([]ReceiptLine, 0, len(c.Items)),
		Shipping:         sum.Shipping.StringFixed(2),
		ShippingDisplay:  "Grátis",
		Subtotal:         sum.Subtotal.StringFixed(2),
		Total:            sum.Total.StringFixed(2),
		TotalDisplay:     pricing.FormatCurrency(sum.Total),
		Payment:          d.Payment.Label(),
		PaymentMethod:    d.Payment.Method,
		DeliveryEstimate: deliveryEstimate,
		IssuedAt:         now.UTC(),
	}
	for _, it := range c.Items {
		r.Items = append(r.Items, ReceiptLine{
			Label:    fmt.Sprintf("%s × %d", it.Name, it.Quantity),
			Quantity: it.Quantity,
			Amount:   it.LineTotal().StringFixed(2),
			Display:  pricing.FormatCurrency(it.LineTotal()),
		})
	}
	if c.Coupon != nil && !c.Coupon.WaivesShipping() {
		if disc := c.Discount(); disc.IsPositive() {
			r.Discount = &ReceiptLine{
				Label:   "Desconto (" + c.Coupon.Code + ")",
				Amount:  disc.StringFixed(2),
				Display: "- " + pricing.FormatCurrency(disc),
			}
		}
	}
	if !sum.Shipping.IsZero() {
		r.ShippingDisplay = pricing.FormatCurrency(sum.Shipping)
	}
	if d.Address != nil && d.Address.Street != "" {
		r.Address = d.Address.Lines()
		r.AddressProvided = true
	} else {
		r.Address = []string{noAddress}
	}
	return r
}

// ReceiptPDF renders the receipt as an A4 PDF.
func ReceiptPDF(r Receipt) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(fmt.Sprintf("Pedido #%d", r.OrderNumber), true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 10, tr("LANCHES E BEBIDAS"))
	pdf.Ln(10)
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 10, tr(fmt.Sprintf("Pedido #%d confirmado", r.OrderNumber)))
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 8, r.IssuedAt.Format("02/01/2006 15:04"))
	pdf.Ln(12)

	section := func(title string) {
		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(0, 8, tr(title))
		pdf.Ln(8)
		pdf.SetFont("Arial", "", 11)
	}
	row := func(label, value string) {
		pdf.CellFormat(140, 7, tr(label), "", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, tr(value), "", 1, "R", false, 0, "")
	}

	section("Itens")
	for _, it := range r.Items {
		row(it.Label, it.Display)
	}
	if r.Discount != nil {
		row(r.Discount.Label, r.Discount.Display)
	}
	row("Entrega", r.ShippingDisplay)
	pdf.SetFont("Arial", "B", 12)
	row("Total", r.TotalDisplay)
	pdf.Ln(6)

	section("Entrega em " + r.DeliveryEstimate)
	for _, line := range r.Address {
		pdf.Cell(0, 7, tr(line))
		pdf.Ln(7)
	}
	pdf.Ln(6)

	section("Pagamento")
	pdf.Cell(0, 7, tr(r.Payment))
	pdf.Ln(7)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}
