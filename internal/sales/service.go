package sales

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Service provides the sale command handlers on a Storage backend. Every
// write follows the same pipeline: validate the command, run the required
// existence check, construct or mutate the aggregate, persist it and notify
// the dispatcher. Reads skip the event step.
type Service struct {
	storage    Storage
	dispatcher Dispatcher
	logger     *zap.Logger
	validate   *validator.Validate
}

// NewService creates a new Service.
func NewService(storage Storage, dispatcher Dispatcher, logger *zap.Logger) *Service {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}

	return &Service{
		storage:    storage,
		dispatcher: dispatcher,
		logger:     logger,
		validate:   newCommandValidator(),
	}
}

// CreateSale handles the creation of a new sale.
func (s *Service) CreateSale(ctx context.Context, cmd CreateSaleCommand) (*CreateSaleResult, error) {
	if err := checkCommand(s.validate, cmd); err != nil {
		return nil, err
	}

	exists, err := s.storage.ExistsBySaleNumber(ctx, cmd.SaleNumber)
	if err != nil {
		s.logger.Error("failed to check sale number", zap.String("sale_number", cmd.SaleNumber), zap.Error(err))
		return nil, fmt.Errorf("failed to check sale number: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("sale with number %s: %w", cmd.SaleNumber, ErrDuplicateSaleNumber)
	}

	items, err := buildItems(cmd.Items)
	if err != nil {
		return nil, err
	}
	sale, err := NewSale(cmd.SaleNumber, cmd.Date, cmd.CustomerID, cmd.Branch, items)
	if err != nil {
		return nil, err
	}

	if err := s.storage.Create(ctx, sale); err != nil {
		s.logger.Error("failed to save sale", zap.String("sale_id", sale.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to save sale: %w", err)
	}

	if err := s.dispatcher.Dispatch(ctx, NewSaleCreated(sale)); err != nil {
		s.logger.Warn("failed to dispatch sale.created", zap.String("sale_id", sale.ID), zap.Error(err))
	}

	s.logger.Info("sale created",
		zap.String("sale_id", sale.ID),
		zap.String("sale_number", sale.SaleNumber),
		zap.String("total_amount", sale.TotalAmount().String()),
	)
	return &CreateSaleResult{ID: sale.ID, TotalAmount: sale.TotalAmount()}, nil
}

// UpdateSale handles a branch change plus whole-collection item replacement
// on an existing sale.
func (s *Service) UpdateSale(ctx context.Context, cmd UpdateSaleCommand) (*UpdateSaleResult, error) {
	if err := checkCommand(s.validate, cmd); err != nil {
		return nil, err
	}

	sale, err := s.storage.GetByID(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}

	items, err := buildItems(cmd.Items)
	if err != nil {
		return nil, err
	}

	// La entrada ya pasó el validador; un fallo acá es un bug, no un error
	// de negocio.
	if err := sale.UpdateBranch(cmd.Branch); err != nil {
		return nil, err
	}
	if err := sale.ReplaceItems(items); err != nil {
		return nil, err
	}

	if err := s.storage.Update(ctx, sale); err != nil {
		s.logger.Error("failed to update sale", zap.String("sale_id", sale.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to update sale: %w", err)
	}

	if err := s.dispatcher.Dispatch(ctx, NewSaleModified(sale)); err != nil {
		s.logger.Warn("failed to dispatch sale.modified", zap.String("sale_id", sale.ID), zap.Error(err))
	}

	s.logger.Info("sale updated", zap.String("sale_id", sale.ID))
	return &UpdateSaleResult{ID: sale.ID, TotalAmount: sale.TotalAmount()}, nil
}

// CancelSale cancels a sale by ID.
func (s *Service) CancelSale(ctx context.Context, cmd CancelSaleCommand) (*CancelSaleResult, error) {
	if err := checkCommand(s.validate, cmd); err != nil {
		return nil, err
	}

	cancelled, err := s.storage.Delete(ctx, cmd.ID)
	if err != nil {
		s.logger.Error("failed to cancel sale", zap.String("sale_id", cmd.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to cancel sale: %w", err)
	}
	if !cancelled {
		return nil, fmt.Errorf("sale with ID %s: %w", cmd.ID, ErrNotFound)
	}

	if err := s.dispatcher.Dispatch(ctx, NewSaleCancelled(cmd.ID)); err != nil {
		s.logger.Warn("failed to dispatch sale.cancelled", zap.String("sale_id", cmd.ID), zap.Error(err))
	}

	s.logger.Info("sale cancelled", zap.String("sale_id", cmd.ID))
	return &CancelSaleResult{Success: true}, nil
}

// GetSale returns the full aggregate view for one sale. No event is
// dispatched for reads.
func (s *Service) GetSale(ctx context.Context, query GetSaleQuery) (*GetSaleResult, error) {
	if err := checkCommand(s.validate, query); err != nil {
		return nil, err
	}

	sale, err := s.storage.GetByID(ctx, query.ID)
	if err != nil {
		return nil, err
	}

	items := make([]GetSaleItemResult, 0, len(sale.Items))
	for _, item := range sale.Items {
		items = append(items, GetSaleItemResult{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Discount:  item.Discount,
			Total:     item.Total(),
		})
	}

	return &GetSaleResult{
		ID:          sale.ID,
		SaleNumber:  sale.SaleNumber,
		Date:        sale.Date,
		CustomerID:  sale.CustomerID,
		Branch:      sale.Branch,
		Cancelled:   sale.Cancelled,
		TotalAmount: sale.TotalAmount(),
		Items:       items,
	}, nil
}

// ListSales returns a filtered, sorted, paged list of sale summaries. The
// full set is fetched and narrowed in memory: branch filter, then total
// range filter, then the sort expression, with the count taken before
// paging.
func (s *Service) ListSales(ctx context.Context, query ListSalesQuery) (*ListSalesResult, error) {
	if err := checkCommand(s.validate, query); err != nil {
		return nil, err
	}

	all, err := s.storage.GetAll(ctx)
	if err != nil {
		s.logger.Error("failed to list sales", zap.Error(err))
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}

	filtered := filterSales(all, query)
	applyOrder(filtered, parseOrder(query.Order))
	totalCount := len(filtered)

	page := pageSales(filtered, query.Page, query.Size)
	summaries := make([]SaleSummary, 0, len(page))
	for _, sale := range page {
		summaries = append(summaries, SaleSummary{
			ID:          sale.ID,
			SaleNumber:  sale.SaleNumber,
			Date:        sale.Date,
			Branch:      sale.Branch,
			TotalAmount: sale.TotalAmount(),
		})
	}

	return &ListSalesResult{
		Page:       query.Page,
		Size:       query.Size,
		TotalCount: totalCount,
		Sales:      summaries,
	}, nil
}

// buildItems constructs aggregate items from command input. The command
// validator already enforced the per-item rules, so construction failures
// here surface unmodified.
func buildItems(inputs []SaleItemInput) ([]*SaleItem, error) {
	items := make([]*SaleItem, 0, len(inputs))
	for _, in := range inputs {
		item, err := NewSaleItem(in.ProductID, in.Quantity, in.UnitPrice)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
