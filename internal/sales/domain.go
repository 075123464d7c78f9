package sales

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	tierTenPercent    = decimal.NewFromFloat(0.10)
	tierTwentyPercent = decimal.NewFromFloat(0.20)
)

// SaleItem is one priced line of a sale. Its discount is fixed at
// construction time from the quantity and unit price; items are never
// mutated afterwards. Changing a sale's lines means replacing the whole
// collection through Sale.ReplaceItems.
type SaleItem struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
	Discount  decimal.Decimal
}

// NewSaleItem validates and prices a sale line.
func NewSaleItem(productID string, quantity int, unitPrice decimal.Decimal) (*SaleItem, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, ErrProductIDRequired
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if quantity > 20 {
		return nil, ErrQuantityLimitExceeded
	}
	if !unitPrice.IsPositive() {
		return nil, ErrInvalidUnitPrice
	}

	return &SaleItem{
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Discount:  calculateDiscount(quantity, unitPrice),
	}, nil
}

// Total is the line total: unit price × quantity − discount.
func (i *SaleItem) Total() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity))).Sub(i.Discount)
}

// calculateDiscount applies the quantity-tiered discount rule:
// fewer than 4 units get no discount, 4-9 units get 10% and
// 10-20 units get 20% of the gross line amount.
func calculateDiscount(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	gross := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	switch {
	case quantity < 4:
		return decimal.Zero
	case quantity < 10:
		return gross.Mul(tierTenPercent)
	default:
		return gross.Mul(tierTwentyPercent)
	}
}

// Sale is the aggregate root for a sales transaction. It owns its item
// collection: items have no identity or lifecycle outside their sale.
type Sale struct {
	ID         string
	SaleNumber string
	Date       time.Time
	CustomerID string
	Branch     string
	Items      []*SaleItem
	Cancelled  bool
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}

// NewSale validates the root invariants, assigns a fresh identifier and
// stamps the creation time. The sale date is deliberately not checked
// against the clock here; that rule belongs to the command validator.
func NewSale(saleNumber string, date time.Time, customerID, branch string, items []*SaleItem) (*Sale, error) {
	if strings.TrimSpace(saleNumber) == "" {
		return nil, ErrSaleNumberRequired
	}
	if strings.TrimSpace(branch) == "" {
		return nil, ErrBranchRequired
	}
	if strings.TrimSpace(customerID) == "" {
		return nil, ErrCustomerIDRequired
	}
	if len(items) == 0 {
		return nil, ErrSaleMustHaveItems
	}

	return &Sale{
		ID:         uuid.NewString(),
		SaleNumber: saleNumber,
		Date:       date,
		CustomerID: customerID,
		Branch:     branch,
		Items:      items,
		Cancelled:  false,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// TotalAmount is recomputed from the current items on every read so it can
// never drift from them.
func (s *Sale) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.Items {
		total = total.Add(item.Total())
	}
	return total
}

// UpdateBranch replaces the branch where the sale was made.
func (s *Sale) UpdateBranch(branch string) error {
	if strings.TrimSpace(branch) == "" {
		return ErrBranchRequired
	}
	s.Branch = branch
	s.touch()
	return nil
}

// ReplaceItems swaps the entire item collection. Partial replacement is not
// supported.
func (s *Sale) ReplaceItems(items []*SaleItem) error {
	if len(items) == 0 {
		return ErrSaleMustHaveItems
	}
	s.Items = items
	s.touch()
	return nil
}

// Cancel marks the sale as cancelled. Cancelled is a terminal state and
// calling Cancel again is harmless.
func (s *Sale) Cancel() {
	s.Cancelled = true
	s.touch()
}

func (s *Sale) touch() {
	now := time.Now().UTC()
	s.UpdatedAt = &now
}

// Clone returns a deep copy of the sale. Storage implementations hand out
// clones so an aggregate loaded by one request is never shared with another.
func (s *Sale) Clone() *Sale {
	clone := *s
	clone.Items = make([]*SaleItem, len(s.Items))
	for i, item := range s.Items {
		copied := *item
		clone.Items[i] = &copied
	}
	if s.UpdatedAt != nil {
		at := *s.UpdatedAt
		clone.UpdatedAt = &at
	}
	return &clone
}
