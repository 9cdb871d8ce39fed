package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lanches-api/internal/checkout"
	"github.com/noah-isme/lanches-api/internal/common"
	"github.com/noah-isme/lanches-api/internal/events"
)

type fakeClient struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeClient) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "t1", Queue: DefaultQueue, Type: task.Type()}, nil
}

func sampleReceipt() checkout.Receipt {
	return checkout.Receipt{
		OrderNumber:      12345,
		Items:            []checkout.ReceiptLine{{Label: "X-Burger × 2", Quantity: 2, Amount: "36.00", Display: "R$ 36,00"}},
		ShippingDisplay:  "R$ 5,00",
		Total:            "41.00",
		TotalDisplay:     "R$ 41,00",
		Address:          []string{"Rua A, 10", "Centro - Rio Grande/RS"},
		Payment:          "PIX",
		DeliveryEstimate: "~30 min",
		IssuedAt:         time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func emit(t *testing.T, n events.Notifier, topic string, payload any) error {
	t.Helper()
	bus := events.Bus{Notifiers: []events.Notifier{n}}
	_, err := bus.Emit(context.Background(), topic, "client-1", payload)
	return err
}

func TestReceiptNotifierEnqueuesCompletedCheckout(t *testing.T) {
	client := &fakeClient{}
	n := ReceiptNotifier{Client: client, Logger: zerolog.Nop()}

	require.NoError(t, emit(t, n, events.TopicCheckoutCompleted, checkout.Completed{Receipt: sampleReceipt(), Email: "ana@example.com"}))
	require.Len(t, client.tasks, 1)
	require.Equal(t, TypeReceiptEmail, client.tasks[0].Type())

	p, err := DecodeReceipt(client.tasks[0])
	require.NoError(t, err)
	require.Equal(t, "ana@example.com", p.Email)
	require.Equal(t, "client-1", p.ClientID)
	require.Equal(t, "receipt:client-1:12345", p.TaskID())
}

func TestReceiptNotifierSkipsAnonymousAndOtherTopics(t *testing.T) {
	client := &fakeClient{}
	n := ReceiptNotifier{Client: client, Logger: zerolog.Nop()}

	require.NoError(t, emit(t, n, events.TopicCheckoutCompleted, checkout.Completed{Receipt: sampleReceipt()}))
	require.NoError(t, emit(t, n, events.TopicPixExpired, map[string]string{"txid": "LB1"}))
	require.Empty(t, client.tasks)
}

func TestReceiptNotifierToleratesDuplicateTask(t *testing.T) {
	n := ReceiptNotifier{Client: &fakeClient{err: asynq.ErrTaskIDConflict}, Logger: zerolog.Nop()}
	require.NoError(t, emit(t, n, events.TopicCheckoutCompleted, checkout.Completed{Receipt: sampleReceipt(), Email: "a@b.c"}))

	boom := errors.New("redis down")
	n = ReceiptNotifier{Client: &fakeClient{err: boom}, Logger: zerolog.Nop()}
	require.ErrorIs(t, emit(t, n, events.TopicCheckoutCompleted, checkout.Completed{Receipt: sampleReceipt(), Email: "a@b.c"}), boom)
}

func TestReceiptHandlerSendsPDF(t *testing.T) {
	mailer := &common.InMemoryMailer{}
	task, err := NewReceiptTask(ReceiptPayload{ClientID: "c", Email: "ana@example.com", Receipt: sampleReceipt()}, TaskOptions{})
	require.NoError(t, err)

	before := testutil.ToFloat64(ProcessedTotal.WithLabelValues(TypeReceiptEmail, "ok"))
	h := MetricsMiddleware(ReceiptHandler{Mailer: mailer, Logger: zerolog.Nop()})
	require.NoError(t, h.ProcessTask(context.Background(), task))
	require.Equal(t, before+1, testutil.ToFloat64(ProcessedTotal.WithLabelValues(TypeReceiptEmail, "ok")))

	sent := mailer.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, "ana@example.com", sent[0].To)
	require.Equal(t, "Pedido #12345 confirmado", sent[0].Subject)
	require.Contains(t, sent[0].Body, "Pagamento: PIX")
	require.Len(t, sent[0].Attachments, 1)
	require.Equal(t, "pedido-12345.pdf", sent[0].Attachments[0].Name)
	require.Equal(t, "%PDF", string(sent[0].Attachments[0].Data[:4]))
}

func TestReceiptHandlerSkipsRetryOnBadPayload(t *testing.T) {
	h := ReceiptHandler{Mailer: &common.InMemoryMailer{}, Logger: zerolog.Nop()}
	err := h.ProcessTask(context.Background(), asynq.NewTask(TypeReceiptEmail, []byte(`{"email":""}`)))
	require.ErrorIs(t, err, asynq.SkipRetry)

	_, err = NewReceiptTask(ReceiptPayload{Email: "a@b.c"}, TaskOptions{})
	require.ErrorIs(t, err, ErrInvalidPayload)
}
