package sales

import (
	"context"
	"sync"
)

// Storage is the persistence boundary for sale aggregates. Delete performs
// the domain's cancellation (the sale stays readable with Cancelled set) and
// reports false when no sale matched.
type Storage interface {
	Create(ctx context.Context, sale *Sale) error
	GetByID(ctx context.Context, id string) (*Sale, error)
	GetAll(ctx context.Context) ([]*Sale, error)
	Update(ctx context.Context, sale *Sale) error
	Delete(ctx context.Context, id string) (bool, error)
	ExistsBySaleNumber(ctx context.Context, saleNumber string) (bool, error)
}

// LocalStorage provides an in-memory implementation for storing sales. It is
// the zero-config mode and the test double. Sales cross the boundary as
// clones in both directions, so callers never share an instance with the
// store or with each other.
type LocalStorage struct {
	mu sync.RWMutex
	m  map[string]*Sale
}

// NewLocalStorage instantiates a new LocalStorage with an empty map.
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{
		m: map[string]*Sale{},
	}
}

// Create stores a new sale. Returns ErrEmptyID if the sale has an empty ID.
func (l *LocalStorage) Create(ctx context.Context, sale *Sale) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if sale.ID == "" {
		return ErrEmptyID
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.m[sale.ID] = sale.Clone()
	return nil
}

// GetByID retrieves a sale by ID. Returns ErrNotFound if the sale is not found.
func (l *LocalStorage) GetByID(ctx context.Context, id string) (*Sale, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.m[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

// GetAll retrieves all stored sales.
func (l *LocalStorage) GetAll(ctx context.Context) ([]*Sale, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	sales := make([]*Sale, 0, len(l.m))
	for _, s := range l.m {
		sales = append(sales, s.Clone())
	}
	return sales, nil
}

// Update persists a mutated sale. Returns ErrNotFound if it was never created.
func (l *LocalStorage) Update(ctx context.Context, sale *Sale) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.m[sale.ID]; !ok {
		return ErrNotFound
	}
	l.m[sale.ID] = sale.Clone()
	return nil
}

// Delete cancels the sale with the given ID, reporting whether it existed.
func (l *LocalStorage) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.m[id]
	if !ok {
		return false, nil
	}
	s.Cancel()
	return true, nil
}

// ExistsBySaleNumber reports whether any sale carries the given number.
func (l *LocalStorage) ExistsBySaleNumber(ctx context.Context, saleNumber string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, s := range l.m {
		if s.SaleNumber == saleNumber {
			return true, nil
		}
	}
	return false, nil
}
