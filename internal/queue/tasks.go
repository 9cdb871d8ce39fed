// Package queue moves slow side effects of a finished checkout, such as
// e-mailing the receipt, onto asynq workers.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/lanches-api/internal/checkout"
)

// TypeReceiptEmail renders a receipt PDF and mails it to the customer.
const TypeReceiptEmail = "receipt:email"

// DefaultQueue is the asynq queue receipts are sent to.
const DefaultQueue = "default"

// ErrInvalidPayload is returned for tasks that can never succeed.
var ErrInvalidPayload = errors.New("queue: invalid task payload")

// ReceiptPayload is the body of a TypeReceiptEmail task.
type ReceiptPayload struct {
	ClientID string           `json:"clientId"`
	Email    string           `json:"email"`
	Receipt  checkout.Receipt `json:"receipt"`
}

// Validate checks the fields a worker needs.
func (p ReceiptPayload) Validate() error {
	if strings.TrimSpace(p.Email) == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidPayload)
	}
	if p.Receipt.OrderNumber == 0 {
		return fmt.Errorf("%w: order number is required", ErrInvalidPayload)
	}
	return nil
}

// TaskID identifies the receipt task so re-emitted events do not mail twice.
func (p ReceiptPayload) TaskID() string {
	return fmt.Sprintf("receipt:%s:%d", p.ClientID, p.Receipt.OrderNumber)
}

// TaskOptions configures a receipt task.
type TaskOptions struct {
	Queue    string
	MaxRetry int
	Timeout  time.Duration
}

func (o TaskOptions) asynq(id string) []asynq.Option {
	queue := o.Queue
	if queue == "" {
		queue = DefaultQueue
	}
	retry := o.MaxRetry
	if retry <= 0 {
		retry = 5
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	return []asynq.Option{asynq.Queue(queue), asynq.MaxRetry(retry), asynq.Timeout(timeout), asynq.TaskID(id)}
}

// NewReceiptTask encodes p as an asynq task.
func NewReceiptTask(p ReceiptPayload, opts TaskOptions) (*asynq.Task, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode receipt payload: %w", err)
	}
	return asynq.NewTask(TypeReceiptEmail, data, opts.asynq(p.TaskID())...), nil
}

// DecodeReceipt parses a receipt task body.
func DecodeReceipt(t *asynq.Task) (ReceiptPayload, error) {
	var p ReceiptPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return ReceiptPayload{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := p.Validate(); err != nil {
		return ReceiptPayload{}, err
	}
	return p, nil
}
