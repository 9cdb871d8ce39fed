package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/lanches-api/internal/common"
	"github.com/noah-isme/lanches-api/internal/coupon"
	"github.com/noah-isme/lanches-api/internal/lock"
	"github.com/noah-isme/lanches-api/internal/obs"
	"github.com/noah-isme/lanches-api/internal/pricing"
	"github.com/noah-isme/lanches-api/internal/store"
)

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// Service loads a client's cart, applies one mutation through the pricing
// engine and persists the result. Mutations for the same client are
// serialized by Locker.
type Service struct {
	Store   store.Store
	Locker  lock.Locker
	Coupons coupon.Table
	LockTTL time.Duration
	Now     func() time.Time
	Logger  zerolog.Logger
}

// NewService wires a cart service. A nil locker falls back to an in-process lock.
func NewService(st store.Store, locker lock.Locker, coupons coupon.Table, logger zerolog.Logger) *Service {
	if locker == nil {
		locker = &lock.Local{}
	}
	if coupons == nil {
		coupons = coupon.DefaultTable()
	}
	return &Service{Store: st, Locker: locker, Coupons: coupons, Logger: logger, Now: time.Now}
}

// LockDuration is the TTL of the per-client lock.
func (s *Service) LockDuration() time.Duration {
	if s.LockTTL <= 0 {
		return 10 * time.Second
	}
	return s.LockTTL
}

// Outcome is a cart after a mutation plus the message shown to the user.
type Outcome struct {
	Cart   *pricing.Cart
	Notice *common.Notice
}

// Load reads the persisted cart. Missing documents yield an empty cart.
func (s *Service) Load(ctx context.Context, clientID string) (*pricing.Cart, error) {
	c := &pricing.Cart{Now: s.Now}
	if _, err := s.Store.GetJSON(ctx, store.Durable, store.ClientKey(clientID, store.KeyCartItems), &c.Items); err != nil {
		return nil, fmt.Errorf("load cart items: %w", err)
	}
	var rec *coupon.Record
	if _, err := s.Store.GetJSON(ctx, store.Durable, store.ClientKey(clientID, store.KeyCartCoupon), &rec); err != nil {
		return nil, fmt.Errorf("load cart coupon: %w", err)
	}
	if rec != nil {
		applied, err := coupon.FromRecord(*rec)
		if err != nil {
			s.Logger.Warn().Err(err).Str("client_id", clientID).Msg("discarding unreadable coupon")
		} else {
			c.Coupon = &applied
		}
	}
	return c, nil
}

func (s *Service) save(ctx context.Context, clientID string, c *pricing.Cart) error {
	items := c.Items
	if items == nil {
		items = []pricing.LineItem{}
	}
	if err := s.Store.SetJSON(ctx, store.Durable, store.ClientKey(clientID, store.KeyCartItems), items); err != nil {
		return fmt.Errorf("save cart items: %w", err)
	}
	var rec *coupon.Record
	if c.Coupon != nil {
		r := c.Coupon.Record()
		rec = &r
	}
	if err := s.Store.SetJSON(ctx, store.Durable, store.ClientKey(clientID, store.KeyCartCoupon), rec); err != nil {
		return fmt.Errorf("save cart coupon: %w", err)
	}
	return nil
}

// Mutate runs fn against the client's cart under the client lock and saves
// the result. When fn fails nothing is written.
func (s *Service) Mutate(ctx context.Context, clientID string, fn func(*pricing.Cart) error) (*pricing.Cart, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, fmt.Errorf("%w: missing client id", ErrInvalidInput)
	}
	var out *pricing.Cart
	err := s.Locker.WithLock(ctx, lock.ClientKey(clientID), s.LockDuration(), func(ctx context.Context) error {
		c, err := s.Load(ctx, clientID)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
		if err := s.save(ctx, clientID, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

// AddItem adds one unit of the named product.
func (s *Service) AddItem(ctx context.Context, clientID, name string, price decimal.Decimal, image string) (Outcome, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Outcome{}, common.ValidationError("VALIDATION_ERROR", "Produto inválido", ErrInvalidInput)
	}
	c, err := s.Mutate(ctx, clientID, func(c *pricing.Cart) error {
		c.AddItem(name, price, image)
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	obs.IncCartMutation("add")
	return Outcome{Cart: c, Notice: common.NewNotice(common.NoticeSuccess, name+" adicionado!")}, nil
}

// RemoveItem deletes an item. Unknown ids leave the cart unchanged.
func (s *Service) RemoveItem(ctx context.Context, clientID string, itemID int64) (Outcome, error) {
	var removed pricing.LineItem
	var found bool
	c, err := s.Mutate(ctx, clientID, func(c *pricing.Cart) error {
		removed, found = c.RemoveItem(itemID)
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	if !found {
		return Outcome{Cart: c}, nil
	}
	obs.IncCartMutation("remove")
	return Outcome{Cart: c, Notice: common.NewNotice(common.NoticeInfo, removed.Name+" removido")}, nil
}

// AdjustQuantity changes an item's quantity by delta, removing it at zero.
func (s *Service) AdjustQuantity(ctx context.Context, clientID string, itemID int64, delta int) (Outcome, error) {
	var item pricing.LineItem
	var found bool
	c, err := s.Mutate(ctx, clientID, func(c *pricing.Cart) error {
		item, found = c.AdjustQuantity(itemID, delta)
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	if !found {
		return Outcome{Cart: c}, nil
	}
	obs.IncCartMutation("adjust")
	if item.Quantity <= 0 {
		return Outcome{Cart: c, Notice: common.NewNotice(common.NoticeInfo, item.Name+" removido")}, nil
	}
	return Outcome{Cart: c}, nil
}

// ApplyCoupon applies a code. An invalid code keeps the previous coupon.
func (s *Service) ApplyCoupon(ctx context.Context, clientID, code string) (Outcome, error) {
	if strings.TrimSpace(code) == "" {
		return Outcome{}, common.ValidationError("VALIDATION_ERROR", "Digite um cupom", ErrInvalidInput)
	}
	var applied coupon.Coupon
	c, err := s.Mutate(ctx, clientID, func(c *pricing.Cart) error {
		var err error
		applied, err = c.ApplyCoupon(s.Coupons, code)
		return err
	})
	if err != nil {
		if errors.Is(err, coupon.ErrInvalidCoupon) {
			obs.IncCouponApply(obs.CouponUnknown, "invalid")
			return Outcome{}, common.ValidationError("INVALID_COUPON", "Cupom inválido ou expirado.", err)
		}
		return Outcome{}, err
	}
	obs.IncCouponApply(applied.Code, "applied")
	return Outcome{Cart: c, Notice: common.NewNotice(common.NoticeSuccess, "Cupom aplicado: "+applied.Description+"!")}, nil
}

// RemoveCoupon clears the applied coupon.
func (s *Service) RemoveCoupon(ctx context.Context, clientID string) (Outcome, error) {
	c, err := s.Mutate(ctx, clientID, func(c *pricing.Cart) error {
		c.RemoveCoupon()
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Cart: c}, nil
}

// Clear removes items and coupon from storage.
func (s *Service) Clear(ctx context.Context, clientID string) error {
	return s.Store.Delete(ctx, store.Durable,
		store.ClientKey(clientID, store.KeyCartItems),
		store.ClientKey(clientID, store.KeyCartCoupon),
	)
}
