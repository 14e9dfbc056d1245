// Package confirmation settles the outcome of a hosted payment session after
// the shopper returns to the storefront.
package confirmation

import (
	"context"
	"log/slog"
	"time"

	"github.com/beautivra/storefront/internal/domain"
	"github.com/beautivra/storefront/internal/events"
)

type StatusClient interface {
	CheckoutStatus(ctx context.Context, sessionID string) (*domain.CheckoutSessionStatus, error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
}

type Cart interface {
	Clear(ctx context.Context)
}

type PendingOrders interface {
	Load(ctx context.Context) *domain.PendingOrderReference
	Delete(ctx context.Context) error
}

type Options struct {
	Interval   time.Duration // delay between polls
	MaxPending int           // retries while the session is still open
	MaxErrors  int           // retries after a failed status request
	Sleep      func(ctx context.Context, d time.Duration) error
	Now        func() time.Time
}

func DefaultOptions() Options {
	return Options{
		Interval:   2 * time.Second,
		MaxPending: 5,
		MaxErrors:  3,
		Sleep:      SleepOrDone,
		Now:        time.Now,
	}
}

// Result is the settled state. Order is only set on success and only when
// the backend returned it. Err holds the last failure for error and the
// context error when the run was cancelled while still checking.
type Result struct {
	State domain.ConfirmationState
	Order *domain.Order
	Polls int
	Err   error
}

type Flow struct {
	client    StatusClient
	cart      Cart
	pending   PendingOrders
	publisher events.Publisher
	opts      Options
}

func NewFlow(client StatusClient, cart Cart, pending PendingOrders, publisher events.Publisher, opts Options) *Flow {
	def := DefaultOptions()
	if opts.Interval < 0 {
		opts.Interval = 0
	}
	if opts.Sleep == nil {
		opts.Sleep = def.Sleep
	}
	if opts.Now == nil {
		opts.Now = def.Now
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Flow{client: client, cart: cart, pending: pending, publisher: publisher, opts: opts}
}

// Run polls until the session settles or ctx is done. Pending sessions and
// failed requests share one retry counter; each kind has its own ceiling.
func (f *Flow) Run(ctx context.Context, sessionID string) Result {
	if sessionID == "" {
		return Result{State: domain.ConfirmationError}
	}

	var (
		state    = domain.ConfirmationChecking
		attempts int
		polls    int
		lastErr  error
	)
	for !state.IsTerminal() {
		if err := ctx.Err(); err != nil {
			return Result{State: domain.ConfirmationChecking, Polls: polls, Err: err}
		}

		status, err := f.client.CheckoutStatus(ctx, sessionID)
		polls++
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{State: domain.ConfirmationChecking, Polls: polls, Err: ctxErr}
		}

		switch {
		case err != nil:
			slog.WarnContext(ctx, "checkout status request failed", "session_id", sessionID, "attempt", attempts, "error", err)
			lastErr = err
			if attempts >= f.opts.MaxErrors {
				state = domain.ConfirmationError
			}
		case status.IsPaid():
			return f.succeed(ctx, sessionID, status, polls)
		case status.IsExpired():
			state = domain.ConfirmationExpired
		default:
			if attempts >= f.opts.MaxPending {
				state = domain.ConfirmationPending
			}
		}
		if state.IsTerminal() {
			break
		}

		attempts++
		if err := f.opts.Sleep(ctx, f.opts.Interval); err != nil {
			return Result{State: domain.ConfirmationChecking, Polls: polls, Err: err}
		}
	}

	slog.InfoContext(ctx, "checkout session settled", "session_id", sessionID, "state", state.String(), "polls", polls)
	res := Result{State: state, Polls: polls}
	if state == domain.ConfirmationError {
		res.Err = lastErr
	}
	return res
}

// succeed applies the paid-session side effects once. The pending reference
// is read before anything is cleared so the locally stored order id wins
// over the one in the session metadata.
func (f *Flow) succeed(ctx context.Context, sessionID string, status *domain.CheckoutSessionStatus, polls int) Result {
	ref := f.pending.Load(ctx)

	f.cart.Clear(ctx)
	if err := f.pending.Delete(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to delete pending order", "error", err)
	}

	orderID := status.OrderID()
	if ref != nil && ref.OrderID != "" {
		orderID = ref.OrderID
	}

	res := Result{State: domain.ConfirmationSuccess, Polls: polls}
	if orderID != "" {
		order, err := f.client.GetOrder(ctx, orderID)
		if err != nil {
			slog.WarnContext(ctx, "order lookup failed after payment", "order_id", orderID, "error", err)
		} else {
			res.Order = order
		}
	}

	// without a pending reference this session was settled before
	if ref != nil {
		ev := events.NewOrderConfirmed(sessionID, orderID, res.Order, f.opts.Now())
		if err := f.publisher.PublishOrderConfirmed(ctx, ev); err != nil {
			slog.WarnContext(ctx, "failed to publish order confirmation", "order_id", orderID, "error", err)
		}
	}

	slog.InfoContext(ctx, "payment confirmed", "session_id", sessionID, "order_id", orderID, "polls", polls)
	return res
}
