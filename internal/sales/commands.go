package sales

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// SaleItemInput is one inbound sale line, shared by the create and update
// commands.
type SaleItemInput struct {
	ProductID string          `json:"product_id" validate:"required"`
	Quantity  int             `json:"quantity" validate:"gt=0,lte=20"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"gt=0"`
}

// CreateSaleCommand requests the creation of a new sale.
type CreateSaleCommand struct {
	SaleNumber string          `json:"sale_number" validate:"required"`
	Date       time.Time       `json:"date" validate:"notfuture"`
	CustomerID string          `json:"customer_id" validate:"required"`
	Branch     string          `json:"branch" validate:"required"`
	Items      []SaleItemInput `json:"items" validate:"required,min=1,dive"`
}

// CreateSaleResult is returned after a successful creation.
type CreateSaleResult struct {
	ID          string          `json:"id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// UpdateSaleCommand requests a branch change plus a full replacement of the
// sale's items. Items are swapped as a whole, never merged.
type UpdateSaleCommand struct {
	ID     string          `json:"id" validate:"required"`
	Branch string          `json:"branch" validate:"required"`
	Items  []SaleItemInput `json:"items" validate:"required,min=1,dive"`
}

// UpdateSaleResult is returned after a successful update.
type UpdateSaleResult struct {
	ID          string          `json:"id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// CancelSaleCommand requests the cancellation of a sale by ID.
type CancelSaleCommand struct {
	ID string `json:"id" validate:"required"`
}

// CancelSaleResult reports whether the cancellation succeeded.
type CancelSaleResult struct {
	Success bool `json:"success"`
}

// GetSaleQuery requests a single sale by ID.
type GetSaleQuery struct {
	ID string `json:"id" validate:"required"`
}

// GetSaleItemResult is one fully priced line in a GetSaleResult.
type GetSaleItemResult struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
	Total     decimal.Decimal `json:"total"`
}

// GetSaleResult is the full aggregate view returned for a single sale.
type GetSaleResult struct {
	ID          string              `json:"id"`
	SaleNumber  string              `json:"sale_number"`
	Date        time.Time           `json:"date"`
	CustomerID  string              `json:"customer_id"`
	Branch      string              `json:"branch"`
	Cancelled   bool                `json:"cancelled"`
	TotalAmount decimal.Decimal     `json:"total_amount"`
	Items       []GetSaleItemResult `json:"items"`
}

// ListSalesQuery requests a filtered, sorted, paged list of sales.
type ListSalesQuery struct {
	Page     int              `json:"page" validate:"gt=0"`
	Size     int              `json:"size" validate:"gt=0,lte=100"`
	Order    string           `json:"order"`
	Branch   string           `json:"branch"`
	MinTotal *decimal.Decimal `json:"min_total"`
	MaxTotal *decimal.Decimal `json:"max_total"`
}

// SaleSummary is one row of a listing result.
type SaleSummary struct {
	ID          string          `json:"id"`
	SaleNumber  string          `json:"sale_number"`
	Date        time.Time       `json:"date"`
	Branch      string          `json:"branch"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// ListSalesResult is the page of summaries plus the pre-paging total count.
type ListSalesResult struct {
	Page       int           `json:"page"`
	Size       int           `json:"size"`
	TotalCount int           `json:"total_count"`
	Sales      []SaleSummary `json:"sales"`
}

// newCommandValidator builds the validator shared by all command types. It
// is stateless and safe for concurrent use, so the service constructs it
// once. Decimal fields are compared through their float value so the
// numeric tags (gt, lte) apply to them too.
func newCommandValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	// notfuture: the sale date may be anything up to now.
	_ = v.RegisterValidation("notfuture", func(fl validator.FieldLevel) bool {
		t, ok := fl.Field().Interface().(time.Time)
		if !ok {
			return false
		}
		return !t.After(time.Now())
	})

	return v
}

// checkCommand runs the declarative field rules for cmd and converts the
// outcome into a *ValidationError listing every violation.
func checkCommand(v *validator.Validate, cmd interface{}) error {
	err := v.Struct(cmd)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	violations := make([]FieldViolation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		violations = append(violations, FieldViolation{
			Field:   fieldPath(fe),
			Message: violationMessage(fe),
		})
	}
	return &ValidationError{Violations: violations}
}

// fieldPath strips the command type name from the namespace, leaving paths
// like "Items[0].Quantity".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return ns
}

func violationMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "SaleNumber":
		return "sale number is required"
	case "Branch":
		return "branch is required"
	case "CustomerID":
		return "customer ID is required"
	case "Date":
		return "sale date cannot be in the future"
	case "Items":
		return "at least one item is required"
	case "ProductID":
		return "product ID is required"
	case "Quantity":
		if fe.Tag() == "lte" {
			return "cannot sell more than 20 units per product"
		}
		return "quantity must be greater than 0"
	case "UnitPrice":
		return "unit price must be greater than 0"
	case "ID":
		return "sale ID is required"
	case "Page":
		return "page must be greater than 0"
	case "Size":
		return "size must be between 1 and 100"
	}
	return fe.Field() + " is invalid"
}
