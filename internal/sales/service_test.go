package sales

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"
)

// recordingDispatcher captures dispatched events for assertions.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingDispatcher) Dispatch(ctx context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingDispatcher) named(name string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

func newTestService(t *testing.T) (*Service, *LocalStorage, *recordingDispatcher) {
	t.Helper()
	storage := NewLocalStorage()
	dispatcher := &recordingDispatcher{}
	svc := NewService(storage, dispatcher, zaptest.NewLogger(t))
	return svc, storage, dispatcher
}

func validCreateCommand() CreateSaleCommand {
	return CreateSaleCommand{
		SaleNumber: "S-100",
		Date:       time.Now().Add(-time.Hour),
		CustomerID: "cust-1",
		Branch:     "downtown",
		Items: []SaleItemInput{
			{ProductID: "prod-1", Quantity: 5, UnitPrice: decimal.RequireFromString("20.00")},
		},
	}
}

func TestCreateSale(t *testing.T) {
	t.Run("applies the tiered discount and dispatches sale.created", func(t *testing.T) {
		svc, storage, dispatcher := newTestService(t)

		result, err := svc.CreateSale(context.Background(), validCreateCommand())
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.NotEmpty(t, result.ID)
		// 5 × 20.00 − 10% = 90.00
		assert.True(t, result.TotalAmount.Equal(decimal.RequireFromString("90.00")),
			"expected 90.00, got %s", result.TotalAmount)

		stored, err := storage.GetByID(context.Background(), result.ID)
		require.NoError(t, err)
		assert.True(t, stored.Items[0].Discount.Equal(decimal.RequireFromString("10.00")))

		require.Len(t, dispatcher.named("sale.created"), 1)
	})

	t.Run("rejects quantity above 20 without persisting", func(t *testing.T) {
		svc, storage, dispatcher := newTestService(t)

		cmd := validCreateCommand()
		cmd.Items[0].Quantity = 21

		result, err := svc.CreateSale(context.Background(), cmd)
		assert.Nil(t, result)

		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		require.Len(t, validationErr.Violations, 1)
		assert.Equal(t, "Items[0].Quantity", validationErr.Violations[0].Field)

		all, err := storage.GetAll(context.Background())
		require.NoError(t, err)
		assert.Empty(t, all)
		assert.Empty(t, dispatcher.events)
	})

	t.Run("collects every violation at once", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		cmd := CreateSaleCommand{
			Date: time.Now().Add(time.Hour), // in the future
			Items: []SaleItemInput{
				{ProductID: "", Quantity: 0, UnitPrice: decimal.Zero},
			},
		}

		_, err := svc.CreateSale(context.Background(), cmd)
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)

		fields := map[string]bool{}
		for _, v := range validationErr.Violations {
			fields[v.Field] = true
		}
		for _, want := range []string{
			"SaleNumber", "Date", "CustomerID", "Branch",
			"Items[0].ProductID", "Items[0].Quantity", "Items[0].UnitPrice",
		} {
			assert.True(t, fields[want], "expected a violation for %s, got %v", want, fields)
		}
	})

	t.Run("rejects a duplicate sale number", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		_, err := svc.CreateSale(context.Background(), validCreateCommand())
		require.NoError(t, err)

		second := validCreateCommand()
		second.CustomerID = "cust-2"
		_, err = svc.CreateSale(context.Background(), second)
		assert.ErrorIs(t, err, ErrDuplicateSaleNumber)
	})
}

func TestUpdateSale(t *testing.T) {
	t.Run("replaces branch and items wholesale", func(t *testing.T) {
		svc, storage, dispatcher := newTestService(t)

		created, err := svc.CreateSale(context.Background(), validCreateCommand())
		require.NoError(t, err)

		result, err := svc.UpdateSale(context.Background(), UpdateSaleCommand{
			ID:     created.ID,
			Branch: "uptown",
			Items: []SaleItemInput{
				{ProductID: "prod-9", Quantity: 2, UnitPrice: decimal.RequireFromString("3.00")},
			},
		})
		require.NoError(t, err)
		assert.True(t, result.TotalAmount.Equal(decimal.RequireFromString("6.00")),
			"expected 6.00, got %s", result.TotalAmount)

		stored, err := storage.GetByID(context.Background(), created.ID)
		require.NoError(t, err)
		assert.Equal(t, "uptown", stored.Branch)
		require.Len(t, stored.Items, 1)
		assert.Equal(t, "prod-9", stored.Items[0].ProductID)
		assert.NotNil(t, stored.UpdatedAt)

		require.Len(t, dispatcher.named("sale.modified"), 1)
	})

	t.Run("unknown ID returns not found", func(t *testing.T) {
		svc, _, dispatcher := newTestService(t)

		_, err := svc.UpdateSale(context.Background(), UpdateSaleCommand{
			ID:     "missing",
			Branch: "uptown",
			Items: []SaleItemInput{
				{ProductID: "prod-1", Quantity: 1, UnitPrice: decimal.RequireFromString("1.00")},
			},
		})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Empty(t, dispatcher.events)
	})
}

func TestCancelSale(t *testing.T) {
	t.Run("cancels and dispatches sale.cancelled exactly once", func(t *testing.T) {
		svc, _, dispatcher := newTestService(t)

		created, err := svc.CreateSale(context.Background(), validCreateCommand())
		require.NoError(t, err)

		result, err := svc.CancelSale(context.Background(), CancelSaleCommand{ID: created.ID})
		require.NoError(t, err)
		assert.True(t, result.Success)

		got, err := svc.GetSale(context.Background(), GetSaleQuery{ID: created.ID})
		require.NoError(t, err)
		assert.True(t, got.Cancelled)

		require.Len(t, dispatcher.named("sale.cancelled"), 1)
	})

	t.Run("unknown ID returns not found", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		result, err := svc.CancelSale(context.Background(), CancelSaleCommand{ID: "missing"})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, result)
	})

	t.Run("empty ID fails validation", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		_, err := svc.CancelSale(context.Background(), CancelSaleCommand{})
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "sale ID is required", validationErr.Violations[0].Message)
	})
}

func TestGetSale(t *testing.T) {
	t.Run("maps every item with discount and total", func(t *testing.T) {
		svc, _, dispatcher := newTestService(t)

		cmd := validCreateCommand()
		cmd.Items = append(cmd.Items, SaleItemInput{
			ProductID: "prod-2", Quantity: 10, UnitPrice: decimal.RequireFromString("1.00"),
		})
		created, err := svc.CreateSale(context.Background(), cmd)
		require.NoError(t, err)
		dispatched := len(dispatcher.events)

		got, err := svc.GetSale(context.Background(), GetSaleQuery{ID: created.ID})
		require.NoError(t, err)
		assert.Equal(t, "S-100", got.SaleNumber)
		require.Len(t, got.Items, 2)
		// 10 × 1.00 at the 20% tier
		assert.True(t, got.Items[1].Discount.Equal(decimal.RequireFromString("2.00")))
		assert.True(t, got.Items[1].Total.Equal(decimal.RequireFromString("8.00")))
		assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("98.00")))

		// Reads never dispatch events.
		assert.Len(t, dispatcher.events, dispatched)
	})

	t.Run("unknown ID returns not found", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		_, err := svc.GetSale(context.Background(), GetSaleQuery{ID: "missing"})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCreateSale_ContextCancelled(t *testing.T) {
	svc, storage, dispatcher := newTestService(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.CreateSale(ctx, validCreateCommand())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	all, err := storage.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Empty(t, dispatcher.events)
}

// Ejercita lecturas y escrituras simultáneas sobre el mismo ID; corre con
// -race para detectar aggregates compartidos entre requests.
func TestSaleCommands_ConcurrentReadersAndWriters(t *testing.T) {
	svc, _, _ := newTestService(t)

	created, err := svc.CreateSale(context.Background(), validCreateCommand())
	require.NoError(t, err)

	update := UpdateSaleCommand{
		ID:     created.ID,
		Branch: "uptown",
		Items: []SaleItemInput{
			{ProductID: "prod-2", Quantity: 10, UnitPrice: decimal.RequireFromString("5.00")},
		},
	}

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 20; i++ {
		g.Go(func() error {
			_, err := svc.UpdateSale(ctx, update)
			return err
		})
		g.Go(func() error {
			_, err := svc.GetSale(ctx, GetSaleQuery{ID: created.ID})
			return err
		})
		g.Go(func() error {
			_, err := svc.ListSales(ctx, ListSalesQuery{Page: 1, Size: 10})
			return err
		})
	}
	require.NoError(t, g.Wait())

	// Todas las escrituras son idénticas, así que el último commit gana y
	// el resultado es determinista: 10 × 5.00 − 20% = 40.00.
	final, err := svc.GetSale(context.Background(), GetSaleQuery{ID: created.ID})
	require.NoError(t, err)
	assert.Equal(t, "uptown", final.Branch)
	assert.True(t, final.TotalAmount.Equal(decimal.RequireFromString("40.00")),
		"expected 40.00, got %s", final.TotalAmount)
}
