package checkout

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/lanches-api/internal/cart"
	"github.com/noah-isme/lanches-api/internal/common"
	"github.com/noah-isme/lanches-api/internal/events"
	"github.com/noah-isme/lanches-api/internal/lock"
	"github.com/noah-isme/lanches-api/internal/obs"
	"github.com/noah-isme/lanches-api/internal/pix"
	"github.com/noah-isme/lanches-api/internal/pricing"
	"github.com/noah-isme/lanches-api/internal/store"
)

var (
	ErrEmptyCart     = errors.New("checkout: empty cart")
	ErrWrongStep     = errors.New("checkout: action not allowed at this step")
	ErrUnknownMethod = errors.New("checkout: unknown payment method")
	ErrNoPixSession  = errors.New("checkout: no pix session")
	ErrPixExpired    = errors.New("checkout: pix session expired")
)

const (
	msgEmptyCart     = "Seu carrinho está vazio!"
	msgRequiredField = "Preencha o campo obrigatório"
	msgThanks        = "Obrigado pela compra! Logo chegará até você."
)

// Service runs the checkout wizard for each client on top of the cart.
type Service struct {
	Cart      *cart.Service
	Store     store.Store
	Generator pix.Generator
	Sessions  *PixSessions
	Bus       *events.Bus
	Logger    zerolog.Logger
	Now       func() time.Time
	OrderNum  func() int
	Recipient func(ctx context.Context, clientID string) string
}

// NewService wires the wizard.
func NewService(carts *cart.Service, st store.Store, gen pix.Generator, sessions *PixSessions, bus *events.Bus, logger zerolog.Logger) *Service {
	if sessions == nil {
		sessions = NewPixSessions(DefaultPixCountdown)
	}
	return &Service{
		Cart:      carts,
		Store:     st,
		Generator: gen,
		Sessions:  sessions,
		Bus:       bus,
		Logger:    logger,
		Now:       time.Now,
		OrderNum:  func() int { return 10000 + rand.IntN(90000) },
	}
}

// PixView is the live payment code as shown to the client.
type PixView struct {
	pix.Payload
	Key         string    `json:"key"`
	Merchant    string    `json:"merchant"`
	ExpiresAt   time.Time `json:"expiresAt"`
	SecondsLeft int       `json:"secondsLeft"`
	Expired     bool      `json:"expired"`
}

// State is the wizard as returned by the API.
type State struct {
	Step  Step       `json:"step"`
	Label string     `json:"label"`
	Steps []StepView `json:"steps"`
	Cart  cart.View  `json:"cart"`
	Draft Draft      `json:"draft"`
	Pix   *PixView   `json:"pix,omitempty"`
}

// Outcome is the wizard after an action plus the message shown to the user.
type Outcome struct {
	State  State
	Notice *common.Notice
}

// Selection carries what a payment method needs to render its form.
type Selection struct {
	Method            Method   `json:"method"`
	Total             string   `json:"total"`
	TotalDisplay      string   `json:"totalDisplay"`
	Pix               *PixView `json:"pix,omitempty"`
	ChangeSuggestions []string `json:"changeSuggestions,omitempty"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) withClient(ctx context.Context, clientID string, fn func(context.Context) error) error {
	if strings.TrimSpace(clientID) == "" {
		return fmt.Errorf("%w: missing client id", cart.ErrInvalidInput)
	}
	return s.Cart.Locker.WithLock(ctx, lock.ClientKey(clientID), s.Cart.LockDuration(), fn)
}

func (s *Service) loadStep(ctx context.Context, clientID string) (Step, error) {
	var step Step
	ok, err := s.Store.GetJSON(ctx, store.Session, store.ClientKey(clientID, store.KeyCheckoutStep), &step)
	if err != nil {
		return 0, fmt.Errorf("load checkout step: %w", err)
	}
	if !ok || !step.Valid() {
		return StepCart, nil
	}
	return step, nil
}

func (s *Service) saveStep(ctx context.Context, clientID string, step Step) error {
	if err := s.Store.SetJSON(ctx, store.Session, store.ClientKey(clientID, store.KeyCheckoutStep), step); err != nil {
		return fmt.Errorf("save checkout step: %w", err)
	}
	obs.IncCheckoutStep(step.Label())
	return nil
}

func (s *Service) loadDraft(ctx context.Context, clientID string) (Draft, error) {
	var d Draft
	if _, err := s.Store.GetJSON(ctx, store.Durable, store.ClientKey(clientID, store.KeyCartCheckout), &d); err != nil {
		return Draft{}, fmt.Errorf("load checkout draft: %w", err)
	}
	return d, nil
}

func (s *Service) saveDraft(ctx context.Context, clientID string, d Draft) error {
	if err := s.Store.SetJSON(ctx, store.Durable, store.ClientKey(clientID, store.KeyCartCheckout), d); err != nil {
		return fmt.Errorf("save checkout draft: %w", err)
	}
	return nil
}

func (s *Service) pixView(sess PixSession) *PixView {
	secs := int(sess.Remaining(s.now()).Round(time.Second) / time.Second)
	return &PixView{
		Payload:     sess.Payload,
		Key:         s.Generator.Merchant.Key,
		Merchant:    s.Generator.Merchant.Name,
		ExpiresAt:   sess.ExpiresAt,
		SecondsLeft: secs,
		Expired:     sess.Expired,
	}
}

func (s *Service) state(ctx context.Context, clientID string) (State, *pricing.Cart, error) {
	c, err := s.Cart.Load(ctx, clientID)
	if err != nil {
		return State{}, nil, err
	}
	step, err := s.loadStep(ctx, clientID)
	if err != nil {
		return State{}, nil, err
	}
	d, err := s.loadDraft(ctx, clientID)
	if err != nil {
		return State{}, nil, err
	}
	st := State{Step: step, Label: step.Label(), Steps: Indicator(step), Cart: cart.NewView(c), Draft: d}
	if sess, ok := s.Sessions.Get(clientID); ok {
		st.Pix = s.pixView(sess)
	}
	return st, c, nil
}

// State returns the client's wizard.
func (s *Service) State(ctx context.Context, clientID string) (State, error) {
	st, _, err := s.state(ctx, clientID)
	return st, err
}

func (s *Service) outcome(ctx context.Context, clientID string, notice *common.Notice) (Outcome, error) {
	st, err := s.State(ctx, clientID)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{State: st, Notice: notice}, nil
}

func wrongStep(step Step) error {
	return common.NewAppError("WRONG_STEP", "Ação indisponível na etapa "+step.Label(), http.StatusConflict, ErrWrongStep)
}

func (s *Service) requireStep(ctx context.Context, clientID string, want Step) error {
	step, err := s.loadStep(ctx, clientID)
	if err != nil {
		return err
	}
	if step != want {
		return wrongStep(step)
	}
	return nil
}

func (s *Service) advance(ctx context.Context, clientID string) error {
	step, err := s.loadStep(ctx, clientID)
	if err != nil {
		return err
	}
	return s.saveStep(ctx, clientID, step.Next())
}

func emptyCart() error {
	return common.ValidationError("EMPTY_CART", msgEmptyCart, ErrEmptyCart)
}

// Open starts the wizard at the cart step. An empty cart is refused.
func (s *Service) Open(ctx context.Context, clientID string) (Outcome, error) {
	err := s.withClient(ctx, clientID, func(ctx context.Context) error {
		c, err := s.Cart.Load(ctx, clientID)
		if err != nil {
			return err
		}
		if c.IsEmpty() {
			return emptyCart()
		}
		s.Sessions.Discard(clientID)
		d, err := s.loadDraft(ctx, clientID)
		if err != nil {
			return err
		}
		if d.OrderNumber != 0 {
			d.OrderNumber = 0
			if err := s.saveDraft(ctx, clientID, d); err != nil {
				return err
			}
		}
		return s.saveStep(ctx, clientID, StepCart)
	})
	if err != nil {
		return Outcome{}, err
	}
	return s.outcome(ctx, clientID, nil)
}

// Next leaves the cart step. Address and payment advance only through
// SaveAddress and a payment confirmation.
func (s *Service) Next(ctx context.Context, clientID string) (Outcome, error) {
	if err := s.withClient(ctx, clientID, func(ctx context.Context) error {
		if err := s.requireStep(ctx, clientID, StepCart); err != nil {
			return err
		}
		c, err := s.Cart.Load(ctx, clientID)
		if err != nil {
			return err
		}
		if c.IsEmpty() {
			return emptyCart()
		}
		return s.advance(ctx, clientID)
	}); err != nil {
		return Outcome{}, err
	}
	return s.outcome(ctx, clientID, nil)
}

// Back moves back one step and discards any payment code.
func (s *Service) Back(ctx context.Context, clientID string) (Outcome, error) {
	err := s.withClient(ctx, clientID, func(ctx context.Context) error {
		s.Sessions.Discard(clientID)
		step, err := s.loadStep(ctx, clientID)
		if err != nil {
			return err
		}
		return s.saveStep(ctx, clientID, step.Prev())
	})
	if err != nil {
		return Outcome{}, err
	}
	return s.outcome(ctx, clientID, nil)
}

// Close leaves the wizard. The step is kept; the payment code is discarded.
func (s *Service) Close(ctx context.Context, clientID string) (Outcome, error) {
	s.Sessions.Discard(clientID)
	return s.outcome(ctx, clientID, nil)
}

// SaveAddress validates and stores the delivery address, then advances.
func (s *Service) SaveAddress(ctx context.Context, clientID string, addr Address) (Outcome, error) {
	addr = addr.Normalize()
	if err := common.Validate(addr); err != nil {
		if appErr, ok := common.AsAppError(err); ok {
			appErr.Message = msgRequiredField
		}
		return Outcome{}, err
	}
	err := s.withClient(ctx, clientID, func(ctx context.Context) error {
		if err := s.requireStep(ctx, clientID, StepAddress); err != nil {
			return err
		}
		d, err := s.loadDraft(ctx, clientID)
		if err != nil {
			return err
		}
		d.Address = &addr
		if err := s.saveDraft(ctx, clientID, d); err != nil {
			return err
		}
		return s.advance(ctx, clientID)
	})
	if err != nil {
		return Outcome{}, err
	}
	return s.outcome(ctx, clientID, nil)
}

// SelectMethod prepares a payment form. Any previous payment code is
// discarded first; only pix generates a new one.
func (s *Service) SelectMethod(ctx context.Context, clientID, name string) (Outcome, Selection, error) {
	method, ok := ParseMethod(name)
	if !ok {
		return Outcome{}, Selection{}, common.ValidationError("INVALID_PAYMENT_METHOD", "Forma de pagamento inválida", ErrUnknownMethod)
	}
	var sel Selection
	err := s.withClient(ctx, clientID, func(ctx context.Context) error {
		s.Sessions.Discard(clientID)
		if err := s.requireStep(ctx, clientID, StepPayment); err != nil {
			return err
		}
		c, err := s.Cart.Load(ctx, clientID)
		if err != nil {
			return err
		}
		if c.IsEmpty() {
			return emptyCart()
		}
		total := c.Total()
		sel = Selection{Method: method, Total: total.StringFixed(2), TotalDisplay: pricing.FormatCurrency(total)}
		switch method {
		case MethodPix:
			payload, err := s.Generator.Generate(total)
			if err != nil {
				obs.IncPixPayload("error")
				return fmt.Errorf("generate pix payload: %w", err)
			}
			obs.IncPixPayload("ok")
			sess := s.Sessions.Start(clientID, payload, s.onPixExpired)
			sel.Pix = s.pixView(sess)
		case MethodCash:
			for _, v := range ChangeSuggestions(total) {
				sel.ChangeSuggestions = append(sel.ChangeSuggestions, v.StringFixed(2))
			}
		}
		return nil
	})
	if err != nil {
		return Outcome{}, Selection{}, err
	}
	out, err := s.outcome(ctx, clientID, nil)
	return out, sel, err
}

func (s *Service) onPixExpired(clientID string, sess PixSession) {
	obs.IncPixExpired()
	s.Logger.Info().Str("client_id", clientID).Str("txid", sess.Payload.TxID).Msg("pix_session_expired")
	if s.Bus == nil {
		return
	}
	payload := map[string]string{"txid": sess.Payload.TxID, "amount": sess.Payload.Amount}
	if _, err := s.Bus.Emit(context.Background(), events.TopicPixExpired, clientID, payload); err != nil {
		s.Logger.Warn().Err(err).Str("client_id", clientID).Msg("emit pix expired")
	}
}

// Pix returns the live payment code.
func (s *Service) Pix(clientID string) (*PixView, error) {
	sess, ok := s.Sessions.Get(clientID)
	if !ok {
		return nil, common.NotFoundError("PIX_NOT_STARTED", "Selecione o PIX para gerar o código", ErrNoPixSession)
	}
	return s.pixView(sess), nil
}

// PixQRCode renders the live payment code as a PNG.
func (s *Service) PixQRCode(clientID string, size int) ([]byte, error) {
	view, err := s.Pix(clientID)
	if err != nil {
		return nil, err
	}
	if view.Expired {
		return nil, common.ValidationError("PIX_EXPIRED", "Código PIX expirado. Selecione o PIX novamente.", ErrPixExpired)
	}
	return pix.QRCode(view.Text, size)
}

func (s *Service) recordPayment(ctx context.Context, clientID string, p Payment) error {
	d, err := s.loadDraft(ctx, clientID)
	if err != nil {
		return err
	}
	d.Payment = p
	if err := s.saveDraft(ctx, clientID, d); err != nil {
		return err
	}
	return s.advance(ctx, clientID)
}

// ConfirmPix records a pix payment once the client says it paid.
func (s *Service) ConfirmPix(ctx context.Context, clientID string) (Outcome, error) {
	err := s.withClient(ctx, clientID, func(ctx context.Context) error {
		if err := s.requireStep(ctx, clientID, StepPayment); err != nil {
			return err
		}
		sess, ok := s.Sessions.Get(clientID)
		if !ok {
			return common.ValidationError("PIX_NOT_STARTED", "Selecione o PIX para gerar o código", ErrNoPixSession)
		}
		if sess.Expired {
			return common.ValidationError("PIX_EXPIRED", "Código PIX expirado. Selecione o PIX novamente.", ErrPixExpired)
		}
		s.Sessions.Discard(clientID)
		return s.recordPayment(ctx, clientID, Payment{Method: MethodPix})
	})
	if err != nil {
		return Outcome{}, err
	}
	return s.outcome(ctx, clientID, nil)
}

// ProcessCard validates the card form and records the card type only.
func (s *Service) ProcessCard(ctx context.Context, clientID string, in CardInput) (Outcome, error) {
	if err := ValidateCard(in); err != nil {
		var ce *CardError
		if errors.As(err, &ce) {
			return Outcome{}, common.ValidationError("INVALID_CARD", ce.Message, err).WithDetails(map[string]string{"field": ce.Field})
		}
		return Outcome{}, err
	}
	err := s.withClient(ctx, clientID, func(ctx context.Context) error {
		if err := s.requireStep(ctx, clientID, StepPayment); err != nil {
			return err
		}
		s.Sessions.Discard(clientID)
		return s.recordPayment(ctx, clientID, Payment{Method: MethodCard, CardType: ParseCardType(in.Type)})
	})
	if err != nil {
		return Outcome{}, err
	}
	return s.outcome(ctx, clientID, nil)
}

// ConfirmCash records cash on delivery with an optional change-for amount.
func (s *Service) ConfirmCash(ctx context.Context, clientID string, changeFor *decimal.Decimal) (Outcome, error) {
	err := s.withClient(ctx, clientID, func(ctx context.Context) error {
		if err := s.requireStep(ctx, clientID, StepPayment); err != nil {
			return err
		}
		c, err := s.Cart.Load(ctx, clientID)
		if err != nil {
			return err
		}
		if err := ValidateChange(changeFor, c.Total()); err != nil {
			return common.ValidationError("CHANGE_TOO_LOW", "Valor menor que o total", err)
		}
		s.Sessions.Discard(clientID)
		return s.recordPayment(ctx, clientID, Payment{Method: MethodCash, ChangeFor: changeFor})
	})
	if err != nil {
		return Outcome{}, err
	}
	return s.outcome(ctx, clientID, nil)
}

// CashSuggestions lists round bills for the current total.
func (s *Service) CashSuggestions(ctx context.Context, clientID string) ([]decimal.Decimal, error) {
	c, err := s.Cart.Load(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return ChangeSuggestions(c.Total()), nil
}

// Confirmation returns the receipt. The order number is drawn once and kept
// until the wizard is reopened or finished.
func (s *Service) Confirmation(ctx context.Context, clientID string) (Receipt, error) {
	var r Receipt
	err := s.withClient(ctx, clientID, func(ctx context.Context) error {
		if err := s.requireStep(ctx, clientID, StepConfirmation); err != nil {
			return err
		}
		c, err := s.Cart.Load(ctx, clientID)
		if err != nil {
			return err
		}
		d, err := s.loadDraft(ctx, clientID)
		if err != nil {
			return err
		}
		if d.OrderNumber == 0 {
			d.OrderNumber = s.OrderNum()
			if err := s.saveDraft(ctx, clientID, d); err != nil {
				return err
			}
		}
		r = BuildReceipt(d.OrderNumber, c, d, s.now())
		return nil
	})
	return r, err
}

// ReceiptPDF renders the confirmation receipt.
func (s *Service) ReceiptPDF(ctx context.Context, clientID string) (Receipt, []byte, error) {
	r, err := s.Confirmation(ctx, clientID)
	if err != nil {
		return Receipt{}, nil, err
	}
	data, err := ReceiptPDF(r)
	if err != nil {
		return Receipt{}, nil, err
	}
	return r, data, nil
}

// Completed is the checkout.completed event payload.
type Completed struct {
	Receipt Receipt `json:"receipt"`
	Email   string  `json:"email,omitempty"`
}

// Finish clears cart, coupon, draft and step, then announces the order.
// It is only available on the confirmation step.
func (s *Service) Finish(ctx context.Context, clientID string) (Outcome, error) {
	var (
		receipt Receipt
		placed  bool
	)
	err := s.withClient(ctx, clientID, func(ctx context.Context) error {
		if err := s.requireStep(ctx, clientID, StepConfirmation); err != nil {
			return err
		}
		s.Sessions.Discard(clientID)
		c, err := s.Cart.Load(ctx, clientID)
		if err != nil {
			return err
		}
		d, err := s.loadDraft(ctx, clientID)
		if err != nil {
			return err
		}
		if !c.IsEmpty() {
			num := d.OrderNumber
			if num == 0 {
				num = s.OrderNum()
			}
			receipt = BuildReceipt(num, c, d, s.now())
			placed = true
		}
		if err := s.Cart.Clear(ctx, clientID); err != nil {
			return err
		}
		if err := s.Store.Delete(ctx, store.Durable, store.ClientKey(clientID, store.KeyCartCheckout)); err != nil {
			return fmt.Errorf("clear checkout draft: %w", err)
		}
		if err := s.Store.Delete(ctx, store.Session, store.ClientKey(clientID, store.KeyCheckoutStep)); err != nil {
			return fmt.Errorf("clear checkout step: %w", err)
		}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	if placed {
		obs.IncCheckoutCompleted(string(receipt.PaymentMethod))
		s.announce(ctx, clientID, receipt)
	}
	return s.outcome(ctx, clientID, common.NewNotice(common.NoticeSuccess, msgThanks))
}

func (s *Service) announce(ctx context.Context, clientID string, r Receipt) {
	if s.Bus == nil {
		return
	}
	payload := Completed{Receipt: r}
	if s.Recipient != nil {
		payload.Email = s.Recipient(ctx, clientID)
	}
	if _, err := s.Bus.Emit(ctx, events.TopicCheckoutCompleted, clientID, payload); err != nil {
		s.Logger.Warn().Err(err).Str("client_id", clientID).Int("order_number", r.OrderNumber).Msg("emit checkout completed")
	}
}
