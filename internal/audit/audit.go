// Package audit persists denormalized, write-once sale summaries to an
// append-only store, independent of the primary sale transaction.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// ItemDocument is one denormalized line of an audit record.
type ItemDocument struct {
	Product   string          `json:"product"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// SaleDocument is the audit record written when a sale is created. It keeps
// a human-readable customer label rather than the customer ID.
type SaleDocument struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Customer  string          `json:"customer"`
	Total     decimal.Decimal `json:"total"`
	Items     []ItemDocument  `json:"items"`
}

// Store appends audit documents. Records are never read back or updated by
// this service.
type Store interface {
	Append(ctx context.Context, doc *SaleDocument) error
}

// MemoryStore keeps documents in memory for tests and zero-config runs.
type MemoryStore struct {
	mu   sync.Mutex
	docs []*SaleDocument
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Append(ctx context.Context, doc *SaleDocument) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, doc)
	return nil
}

// Documents returns a snapshot of everything appended so far.
func (m *MemoryStore) Documents() []*SaleDocument {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*SaleDocument, len(m.docs))
	copy(out, m.docs)
	return out
}

// Schema holds the DDL for the relational audit store. The document itself
// is stored as a JSONB blob keyed by record ID.
const Schema = `
CREATE TABLE IF NOT EXISTS sales_audit (
	id         UUID PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	document   JSONB NOT NULL
);
`

// PostgresStore writes each audit document as a single JSONB row.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the audit table if it does not exist yet.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("error creating audit schema: %w", err)
	}
	return nil
}

func (p *PostgresStore) Append(ctx context.Context, doc *SaleDocument) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("error encoding audit document: %w", err)
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO sales_audit (id, created_at, document) VALUES ($1, $2, $3)`,
		doc.ID, doc.CreatedAt, payload,
	)
	if err != nil {
		return fmt.Errorf("error appending audit document: %w", err)
	}
	return nil
}
