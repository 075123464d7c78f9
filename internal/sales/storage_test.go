package sales

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storedSale(t *testing.T, storage *LocalStorage) *Sale {
	t.Helper()
	sale, err := NewSale("S-900", time.Now(), "cust-9", "downtown", []*SaleItem{
		mustItem(t, "prod-1", 5, "20.00"),
	})
	require.NoError(t, err)
	require.NoError(t, storage.Create(context.Background(), sale))
	return sale
}

func TestLocalStorage_HandsOutCopies(t *testing.T) {
	t.Run("mutating the caller's instance after Create does not reach the store", func(t *testing.T) {
		storage := NewLocalStorage()
		sale := storedSale(t, storage)

		sale.Cancel()

		stored, err := storage.GetByID(context.Background(), sale.ID)
		require.NoError(t, err)
		assert.False(t, stored.Cancelled)
	})

	t.Run("mutating a loaded sale is invisible until Update commits it", func(t *testing.T) {
		storage := NewLocalStorage()
		sale := storedSale(t, storage)

		loaded, err := storage.GetByID(context.Background(), sale.ID)
		require.NoError(t, err)
		require.NoError(t, loaded.UpdateBranch("uptown"))
		require.NoError(t, loaded.ReplaceItems([]*SaleItem{mustItem(t, "prod-2", 2, "1.00")}))

		// Sin Update todavía: la lectura tiene que devolver el original.
		before, err := storage.GetByID(context.Background(), sale.ID)
		require.NoError(t, err)
		assert.Equal(t, "downtown", before.Branch)
		assert.Equal(t, "prod-1", before.Items[0].ProductID)

		require.NoError(t, storage.Update(context.Background(), loaded))

		after, err := storage.GetByID(context.Background(), sale.ID)
		require.NoError(t, err)
		assert.Equal(t, "uptown", after.Branch)
		assert.Equal(t, "prod-2", after.Items[0].ProductID)
	})

	t.Run("two loads of the same sale are independent instances", func(t *testing.T) {
		storage := NewLocalStorage()
		sale := storedSale(t, storage)

		first, err := storage.GetByID(context.Background(), sale.ID)
		require.NoError(t, err)
		second, err := storage.GetByID(context.Background(), sale.ID)
		require.NoError(t, err)

		first.Cancel()
		assert.False(t, second.Cancelled)
	})

	t.Run("GetAll results are detached from the store", func(t *testing.T) {
		storage := NewLocalStorage()
		sale := storedSale(t, storage)

		all, err := storage.GetAll(context.Background())
		require.NoError(t, err)
		require.Len(t, all, 1)
		require.NoError(t, all[0].UpdateBranch("uptown"))

		stored, err := storage.GetByID(context.Background(), sale.ID)
		require.NoError(t, err)
		assert.Equal(t, "downtown", stored.Branch)
	})
}
