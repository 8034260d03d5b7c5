package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/cartstore"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/fjod/go_cart/storefront/internal/publisher"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/fjod/go_cart/storefront/pkg/logger"
)

const (
	MsgFillRequired = "Please fill in all required fields"
	MsgOrderFailed  = "Failed to place order. Please try again."
)

type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event publisher.OrderPlacedEvent) error
}

// CheckoutForm is what the customer typed into the checkout page.
type CheckoutForm struct {
	Customer domain.Customer
	Notes    string
}

// Checkout is one pass through the checkout page for one profile.
type Checkout struct {
	ProfileID string
	Status    domain.CheckoutStatus
	OrderID   string
	// Message is the user-facing alert of the last failed submission.
	Message string

	store cartstore.Store
	lines []domain.CartLine
}

func (c *Checkout) transition(to domain.CheckoutStatus) error {
	if !domain.CanTransitionTo(c.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, c.Status, to)
	}
	c.Status = to
	return nil
}

// Lines returns the cart contents the checkout was loaded with.
func (c *Checkout) Lines() []domain.CartLine {
	out := make([]domain.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Checkout) Total() float64 { return domain.CartTotal(c.lines) }

type CheckoutService struct {
	orders  repository.OrderRepository
	idem    cache.IdempotencyStore
	events  EventPublisher
	metrics *metrics.Registry
	now     func() time.Time
}

// NewCheckoutService wires the order workflow. idem may be nil, which disables Idempotency-Key replay.
func NewCheckoutService(orders repository.OrderRepository, idem cache.IdempotencyStore, events EventPublisher, m *metrics.Registry) *CheckoutService {
	if events == nil {
		events = publisher.NopPublisher{}
	}
	return &CheckoutService{
		orders:  orders,
		idem:    idem,
		events:  events,
		metrics: m,
		now:     time.Now,
	}
}

// Begin loads the cart. An empty cart ends in REDIRECT_CART and the form is never shown.
func (s *CheckoutService) Begin(ctx context.Context, profileID string, store cartstore.Store) (*Checkout, error) {
	c := &Checkout{
		ProfileID: profileID,
		Status:    domain.CheckoutStatusLoading,
		store:     store,
	}

	lines, err := store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	c.lines = lines

	if len(lines) == 0 {
		return c, c.transition(domain.CheckoutStatusRedirectCart)
	}
	return c, c.transition(domain.CheckoutStatusReady)
}

// Submit places the order. The order is created before the cart is cleared;
// a failed clear is logged and does not undo the order.
func (s *CheckoutService) Submit(ctx context.Context, c *Checkout, form CheckoutForm, idempotencyKey string) error {
	log := logger.FromCtx(ctx).With("profile_id", c.ProfileID)

	if c.Status != domain.CheckoutStatusReady {
		return fmt.Errorf("%w: submit from %s", ErrIllegalTransition, c.Status)
	}

	draft, err := domain.NewOrderDraft(c.lines, form.Customer, form.Notes)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			c.Message = MsgFillRequired
			s.metrics.OrdersFailed.WithLabelValues("validation").Inc()
		}
		return err
	}

	if err := c.transition(domain.CheckoutStatusSubmitting); err != nil {
		return err
	}

	replayed, err := s.claim(ctx, c.ProfileID, idempotencyKey)
	if err != nil {
		_ = c.transition(domain.CheckoutStatusReady)
		return err
	}
	if replayed != "" {
		log.Info("duplicate checkout request", "idempotency_key", idempotencyKey, "order_id", replayed)
		c.OrderID = replayed
		return c.transition(domain.CheckoutStatusConfirmed)
	}

	orderID, err := s.orders.CreateOrder(ctx, draft)
	if err != nil {
		s.release(ctx, c.ProfileID, idempotencyKey)
		log.Error("failed to place order", "error", err)
		s.metrics.OrdersFailed.WithLabelValues("create").Inc()
		c.Message = MsgOrderFailed
		if terr := c.transition(domain.CheckoutStatusReady); terr != nil {
			return terr
		}
		return fmt.Errorf("create order: %w", err)
	}
	log = log.With("order_id", orderID)
	s.metrics.OrdersPlaced.Inc()
	s.metrics.OrderValue.Observe(draft.TotalAmount())

	if idempotencyKey != "" && s.idem != nil {
		if err := s.idem.Remember(ctx, idempotencyScope(c.ProfileID), idempotencyKey, orderID); err != nil {
			log.Warn("failed to remember idempotency key", "error", err)
		}
	}

	// The order exists now. A failed clear leaves a stale cart behind.
	err = c.store.Clear(ctx)
	s.metrics.CartMutation("clear", err)
	if err != nil {
		log.Warn("cart not cleared after order was placed", "error", err)
	}

	event := publisher.NewOrderPlacedEvent(orderID, c.ProfileID, draft, s.now())
	if err := s.events.PublishOrderPlaced(ctx, event); err != nil {
		s.metrics.EventsFailed.Inc()
		log.Warn("failed to publish order placed event", "error", err)
	}

	log.Info("order placed", "total", draft.TotalAmount(), "items", draft.ItemCount())
	c.OrderID = orderID
	c.Message = ""
	return c.transition(domain.CheckoutStatusConfirmed)
}

// Replay returns the order placed earlier by this profile under key, if any.
// A successful submit empties the cart, so retries are answered before the cart is read.
func (s *CheckoutService) Replay(ctx context.Context, profileID, key string) (string, bool) {
	if key == "" || s.idem == nil {
		return "", false
	}
	orderID, found, err := s.idem.Recall(ctx, idempotencyScope(profileID), key)
	if err != nil {
		logger.FromCtx(ctx).Warn("idempotency recall failed", "profile_id", profileID, "error", err)
		return "", false
	}
	return orderID, found
}

// claim returns the order id of an earlier submission with the same key, or locks the key.
// Idempotency store outages are logged and do not block checkout.
func (s *CheckoutService) claim(ctx context.Context, profileID, key string) (string, error) {
	if key == "" || s.idem == nil {
		return "", nil
	}
	log := logger.FromCtx(ctx)

	orderID, found, err := s.idem.Recall(ctx, idempotencyScope(profileID), key)
	if err != nil {
		log.Warn("idempotency recall failed", "error", err)
		return "", nil
	}
	if found {
		return orderID, nil
	}

	locked, err := s.idem.TryLock(ctx, idempotencyScope(profileID), key)
	if err != nil {
		log.Warn("idempotency lock failed", "error", err)
		return "", nil
	}
	if !locked {
		return "", ErrCheckoutInProgress
	}
	return "", nil
}

func (s *CheckoutService) release(ctx context.Context, profileID, key string) {
	if key == "" || s.idem == nil {
		return
	}
	if err := s.idem.Unlock(ctx, idempotencyScope(profileID), key); err != nil {
		logger.FromCtx(ctx).Warn("idempotency unlock failed", "error", err)
	}
}

// idempotencyScope keeps keys from different profiles apart.
func idempotencyScope(profileID string) string {
	return "checkout:" + profileID
}
