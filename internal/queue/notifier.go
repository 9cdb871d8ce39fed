package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lanches-api/internal/checkout"
	"github.com/noah-isme/lanches-api/internal/events"
)

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ReceiptNotifier turns checkout.completed events into receipt tasks.
// Anonymous checkouts have no address to mail and are skipped.
type ReceiptNotifier struct {
	Client  Enqueuer
	Options TaskOptions
	Logger  zerolog.Logger
}

// Notify implements events.Notifier.
func (n ReceiptNotifier) Notify(ctx context.Context, ev events.Event) error {
	if ev.Topic != events.TopicCheckoutCompleted || n.Client == nil {
		return nil
	}
	var done checkout.Completed
	if err := ev.Decode(&done); err != nil {
		return fmt.Errorf("decode checkout event: %w", err)
	}
	if done.Email == "" {
		return nil
	}
	task, err := NewReceiptTask(ReceiptPayload{ClientID: ev.ClientID, Email: done.Email, Receipt: done.Receipt}, n.Options)
	if err != nil {
		return err
	}
	info, err := n.Client.EnqueueContext(ctx, task)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		ProcessedTotal.WithLabelValues(TypeReceiptEmail, "enqueue_failed").Inc()
		return fmt.Errorf("enqueue receipt: %w", err)
	}
	ProcessedTotal.WithLabelValues(TypeReceiptEmail, "enqueued").Inc()
	n.Logger.Debug().Str("task_id", info.ID).Str("queue", info.Queue).Int("order_number", done.Receipt.OrderNumber).Msg("receipt_enqueued")
	return nil
}
