package sales

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Event is an immutable notification that something happened to a sale.
// Events are produced by the command handlers after a successful write,
// never by the aggregate itself.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// SaleCreated is raised after a new sale has been persisted. The event
// carries its own snapshot of the sale, so later mutations of the aggregate
// are invisible to listeners.
type SaleCreated struct {
	Sale Sale
	At   time.Time
}

func NewSaleCreated(sale *Sale) SaleCreated {
	return SaleCreated{Sale: *sale.Clone(), At: time.Now().UTC()}
}

func (e SaleCreated) EventName() string     { return "sale.created" }
func (e SaleCreated) OccurredAt() time.Time { return e.At }

// SaleModified is raised after an existing sale has been updated. Like
// SaleCreated it carries a snapshot, not the live aggregate.
type SaleModified struct {
	Sale Sale
	At   time.Time
}

func NewSaleModified(sale *Sale) SaleModified {
	return SaleModified{Sale: *sale.Clone(), At: time.Now().UTC()}
}

func (e SaleModified) EventName() string     { return "sale.modified" }
func (e SaleModified) OccurredAt() time.Time { return e.At }

// SaleCancelled is raised after a sale has been cancelled. Only the sale ID
// is carried; the aggregate may already be gone from the caller's view.
type SaleCancelled struct {
	SaleID string
	At     time.Time
}

func NewSaleCancelled(saleID string) SaleCancelled {
	return SaleCancelled{SaleID: saleID, At: time.Now().UTC()}
}

func (e SaleCancelled) EventName() string     { return "sale.cancelled" }
func (e SaleCancelled) OccurredAt() time.Time { return e.At }

// Dispatcher delivers a domain event to zero or more observers. Delivery is
// best-effort: observer failures must not fail the command that raised the
// event.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event) error
}

// Listener handles a single dispatched event.
type Listener interface {
	Handle(ctx context.Context, event Event) error
}

// ListenerDispatcher fans an event out to its listeners concurrently.
// Listener errors are logged and swallowed. Cancelling ctx stops the
// fan-out cooperatively.
type ListenerDispatcher struct {
	listeners []Listener
	logger    *zap.Logger
}

// NewListenerDispatcher creates a dispatcher over the given listeners.
func NewListenerDispatcher(logger *zap.Logger, listeners ...Listener) *ListenerDispatcher {
	return &ListenerDispatcher{
		listeners: listeners,
		logger:    logger,
	}
}

func (d *ListenerDispatcher) Dispatch(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, l := range d.listeners {
		listener := l
		g.Go(func() error {
			if err := listener.Handle(gctx, event); err != nil {
				d.logger.Warn("event listener failed",
					zap.String("event", event.EventName()),
					zap.Time("occurred_at", event.OccurredAt()),
					zap.Error(err),
				)
			}
			// Los errores de los listeners nunca tumban el comando.
			return nil
		})
	}
	// Wait never returns an error here; listener failures stay logged only.
	_ = g.Wait()

	d.logger.Info("domain event dispatched",
		zap.String("event", event.EventName()),
		zap.Time("occurred_at", event.OccurredAt()),
	)
	return nil
}
