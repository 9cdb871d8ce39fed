package queue

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lanches-api/internal/checkout"
	"github.com/noah-isme/lanches-api/internal/common"
)

// ReceiptHandler renders and mails receipts.
type ReceiptHandler struct {
	Mailer common.Mailer
	Logger zerolog.Logger
}

// ProcessTask implements asynq.Handler. Malformed payloads are not retried.
func (h ReceiptHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	p, err := DecodeReceipt(t)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	pdf, err := checkout.ReceiptPDF(p.Receipt)
	if err != nil {
		return err
	}
	num := strconv.Itoa(p.Receipt.OrderNumber)
	msg := common.Message{
		To:      p.Email,
		Subject: "Pedido #" + num + " confirmado",
		Body:    receiptBody(p.Receipt),
		Attachments: []common.Attachment{{
			Name:        "pedido-" + num + ".pdf",
			ContentType: "application/pdf",
			Data:        pdf,
		}},
	}
	if err := h.Mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send receipt %s: %w", num, err)
	}
	h.Logger.Info().Str("client_id", p.ClientID).Int("order_number", p.Receipt.OrderNumber).Msg("receipt_sent")
	return nil
}

func receiptBody(r checkout.Receipt) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pedido #%d realizado com sucesso!\n\n", r.OrderNumber)
	for _, it := range r.Items {
		fmt.Fprintf(&b, "%s  %s\n", it.Label, it.Display)
	}
	if r.Discount != nil {
		fmt.Fprintf(&b, "%s  %s\n", r.Discount.Label, r.Discount.Display)
	}
	fmt.Fprintf(&b, "Entrega  %s\nTotal  %s\n\n", r.ShippingDisplay, r.TotalDisplay)
	fmt.Fprintf(&b, "Entrega em %s\n%s\n\n", r.DeliveryEstimate, strings.Join(r.Address, "\n"))
	fmt.Fprintf(&b, "Pagamento: %s\n", r.Payment)
	return b.String()
}
