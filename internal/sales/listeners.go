package sales

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"sales_service/internal/audit"
)

// CustomerDirectory resolves a display name for a customer ID. The customers
// package provides the HTTP implementation.
type CustomerDirectory interface {
	GetName(ctx context.Context, customerID string) (string, error)
}

// AuditListener writes an append-only audit document whenever a sale is
// created. Audit failures are reported to the dispatcher (which logs them)
// and never reach the sale command.
type AuditListener struct {
	store     audit.Store
	customers CustomerDirectory
	logger    *zap.Logger
}

func NewAuditListener(store audit.Store, customers CustomerDirectory, logger *zap.Logger) *AuditListener {
	return &AuditListener{
		store:     store,
		customers: customers,
		logger:    logger,
	}
}

func (a *AuditListener) Handle(ctx context.Context, event Event) error {
	created, ok := event.(SaleCreated)
	if !ok {
		return nil
	}
	sale := created.Sale

	customer := sale.CustomerID
	if a.customers != nil {
		name, err := a.customers.GetName(ctx, sale.CustomerID)
		if err != nil {
			// El label queda con el ID crudo si el lookup falla.
			a.logger.Warn("customer lookup failed, keeping raw ID",
				zap.String("customer_id", sale.CustomerID),
				zap.Error(err),
			)
		} else {
			customer = name
		}
	}

	items := make([]audit.ItemDocument, 0, len(sale.Items))
	for _, item := range sale.Items {
		items = append(items, audit.ItemDocument{
			Product:   item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	return a.store.Append(ctx, &audit.SaleDocument{
		ID:        sale.ID,
		CreatedAt: created.OccurredAt(),
		Customer:  customer,
		Total:     sale.TotalAmount(),
		Items:     items,
	})
}

// MetricsListener counts dispatched sale events.
type MetricsListener struct {
	events *prometheus.CounterVec
}

// NewMetricsListener registers the sale event counter on reg.
func NewMetricsListener(reg prometheus.Registerer) *MetricsListener {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_events_total",
		Help: "Number of sale domain events dispatched, by event name.",
	}, []string{"event"})
	reg.MustRegister(events)

	return &MetricsListener{events: events}
}

func (m *MetricsListener) Handle(ctx context.Context, event Event) error {
	m.events.WithLabelValues(event.EventName()).Inc()
	return nil
}
