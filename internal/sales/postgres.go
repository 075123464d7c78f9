package sales

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Schema holds the DDL for the relational sale store. Items live in their
// own table but are written and read only through their sale.
const Schema = `
CREATE TABLE IF NOT EXISTS sales (
	id          UUID PRIMARY KEY,
	sale_number TEXT NOT NULL UNIQUE,
	date        TIMESTAMPTZ NOT NULL,
	customer_id TEXT NOT NULL,
	branch      TEXT NOT NULL,
	cancelled   BOOLEAN NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS sale_items (
	sale_id    UUID NOT NULL REFERENCES sales (id) ON DELETE CASCADE,
	position   INT NOT NULL,
	product_id TEXT NOT NULL,
	quantity   INT NOT NULL,
	unit_price NUMERIC(18,4) NOT NULL,
	discount   NUMERIC(18,4) NOT NULL,
	PRIMARY KEY (sale_id, position)
);
`

// PostgresStorage implements Storage on top of database/sql with the pq
// driver. Every write runs in a single transaction so a sale and its items
// never end up half persisted.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresStorage wraps an open connection pool.
func NewPostgresStorage(db *sql.DB, logger *zap.Logger) *PostgresStorage {
	return &PostgresStorage{db: db, logger: logger}
}

// EnsureSchema creates the sale tables if they do not exist yet.
func (p *PostgresStorage) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("error creating sales schema: %w", err)
	}
	p.logger.Info("sales schema ensured")
	return nil
}

func (p *PostgresStorage) Create(ctx context.Context, sale *Sale) error {
	if sale.ID == "" {
		return ErrEmptyID
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, sale_number, date, customer_id, branch, cancelled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sale.ID, sale.SaleNumber, sale.Date, sale.CustomerID, sale.Branch,
		sale.Cancelled, sale.CreatedAt, sale.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("error inserting sale: %w", err)
	}

	if err := insertItems(ctx, tx, sale); err != nil {
		return err
	}

	return tx.Commit()
}

func (p *PostgresStorage) GetByID(ctx context.Context, id string) (*Sale, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, sale_number, date, customer_id, branch, cancelled, created_at, updated_at
		FROM sales WHERE id = $1`, id)

	sale, err := scanSale(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error reading sale: %w", err)
	}

	items, err := p.itemsFor(ctx, sale.ID)
	if err != nil {
		return nil, err
	}
	sale.Items = items
	return sale, nil
}

func (p *PostgresStorage) GetAll(ctx context.Context) ([]*Sale, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, sale_number, date, customer_id, branch, cancelled, created_at, updated_at
		FROM sales ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("error listing sales: %w", err)
	}
	defer rows.Close()

	byID := map[string]*Sale{}
	var sales []*Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning sale: %w", err)
		}
		byID[sale.ID] = sale
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	itemRows, err := p.db.QueryContext(ctx, `
		SELECT sale_id, product_id, quantity, unit_price, discount
		FROM sale_items ORDER BY sale_id, position`)
	if err != nil {
		return nil, fmt.Errorf("error listing sale items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var saleID string
		item, err := scanItem(itemRows, &saleID)
		if err != nil {
			return nil, fmt.Errorf("error scanning sale item: %w", err)
		}
		if sale, ok := byID[saleID]; ok {
			sale.Items = append(sale.Items, item)
		}
	}
	return sales, itemRows.Err()
}

// Update rewrites the sale row and replaces its items wholesale, mirroring
// Sale.ReplaceItems semantics.
func (p *PostgresStorage) Update(ctx context.Context, sale *Sale) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE sales SET branch = $2, cancelled = $3, updated_at = $4 WHERE id = $1`,
		sale.ID, sale.Branch, sale.Cancelled, sale.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("error updating sale: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sale_items WHERE sale_id = $1`, sale.ID); err != nil {
		return fmt.Errorf("error clearing sale items: %w", err)
	}
	if err := insertItems(ctx, tx, sale); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete cancels the sale row in place, reporting whether a row matched.
func (p *PostgresStorage) Delete(ctx context.Context, id string) (bool, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE sales SET cancelled = TRUE, updated_at = $2 WHERE id = $1`,
		id, time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("error cancelling sale: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (p *PostgresStorage) ExistsBySaleNumber(ctx context.Context, saleNumber string) (bool, error) {
	var count int
	err := p.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM sales WHERE sale_number = $1`, saleNumber,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("error checking sale number: %w", err)
	}
	return count > 0, nil
}

func insertItems(ctx context.Context, tx *sql.Tx, sale *Sale) error {
	for i, item := range sale.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, position, product_id, quantity, unit_price, discount)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			sale.ID, i, item.ProductID, item.Quantity,
			item.UnitPrice.String(), item.Discount.String(),
		)
		if err != nil {
			return fmt.Errorf("error inserting sale item: %w", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSale(row rowScanner) (*Sale, error) {
	var (
		sale      Sale
		updatedAt sql.NullTime
	)
	err := row.Scan(&sale.ID, &sale.SaleNumber, &sale.Date, &sale.CustomerID,
		&sale.Branch, &sale.Cancelled, &sale.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		sale.UpdatedAt = &t
	}
	return &sale, nil
}

func scanItem(row rowScanner, saleID *string) (*SaleItem, error) {
	var (
		item      SaleItem
		unitPrice string
		discount  string
	)
	if err := row.Scan(saleID, &item.ProductID, &item.Quantity, &unitPrice, &discount); err != nil {
		return nil, err
	}
	var err error
	if item.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
		return nil, fmt.Errorf("error parsing unit price: %w", err)
	}
	if item.Discount, err = decimal.NewFromString(discount); err != nil {
		return nil, fmt.Errorf("error parsing discount: %w", err)
	}
	return &item, nil
}

func (p *PostgresStorage) itemsFor(ctx context.Context, saleID string) ([]*SaleItem, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT sale_id, product_id, quantity, unit_price, discount
		FROM sale_items WHERE sale_id = $1 ORDER BY position`, saleID)
	if err != nil {
		return nil, fmt.Errorf("error reading sale items: %w", err)
	}
	defer rows.Close()

	var items []*SaleItem
	for rows.Next() {
		var id string
		item, err := scanItem(rows, &id)
		if err != nil {
			return nil, fmt.Errorf("error scanning sale item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
