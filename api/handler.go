package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"sales_service/internal/sales"
)

// salesHandler holds the sales service and implements HTTP handlers for
// sales operations.
type salesHandler struct {
	salesService *sales.Service
	logger       *zap.Logger
}

// NewSalesHandler creates a new sales handler.
func NewSalesHandler(salesService *sales.Service, logger *zap.Logger) *salesHandler {
	return &salesHandler{
		salesService: salesService,
		logger:       logger,
	}
}

// handleCreateSale handles the POST /sales endpoint.
func (h *salesHandler) handleCreateSale(ctx *gin.Context) {
	var cmd sales.CreateSaleCommand
	if err := ctx.ShouldBindJSON(&cmd); err != nil {
		h.logger.Warn("failed to bind JSON request", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	result, err := h.salesService.CreateSale(ctx.Request.Context(), cmd)
	if err != nil {
		h.writeError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, result)
}

// handleUpdateSale handles the PUT /sales/:id endpoint. The item list in the
// body fully replaces the sale's items.
func (h *salesHandler) handleUpdateSale(ctx *gin.Context) {
	var cmd sales.UpdateSaleCommand
	if err := ctx.ShouldBindJSON(&cmd); err != nil {
		h.logger.Warn("failed to bind JSON request", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	cmd.ID = ctx.Param("id")

	result, err := h.salesService.UpdateSale(ctx.Request.Context(), cmd)
	if err != nil {
		h.writeError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, result)
}

// handleDeleteSale handles the DELETE /sales/:id endpoint, cancelling the
// sale.
func (h *salesHandler) handleDeleteSale(ctx *gin.Context) {
	cmd := sales.CancelSaleCommand{ID: ctx.Param("id")}

	result, err := h.salesService.CancelSale(ctx.Request.Context(), cmd)
	if err != nil {
		h.writeError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, result)
}

// handleGetSale handles the GET /sales/:id endpoint.
func (h *salesHandler) handleGetSale(ctx *gin.Context) {
	query := sales.GetSaleQuery{ID: ctx.Param("id")}

	result, err := h.salesService.GetSale(ctx.Request.Context(), query)
	if err != nil {
		h.writeError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, result)
}

// handleListSales handles the GET /sales endpoint with paging, ordering and
// filtering query parameters.
func (h *salesHandler) handleListSales(ctx *gin.Context) {
	query := sales.ListSalesQuery{
		Page:   1,
		Size:   10,
		Order:  ctx.Query("order"),
		Branch: ctx.Query("branch"),
	}

	var err error
	if raw := ctx.Query("page"); raw != "" {
		if query.Page, err = strconv.Atoi(raw); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid page value"})
			return
		}
	}
	if raw := ctx.Query("size"); raw != "" {
		if query.Size, err = strconv.Atoi(raw); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid size value"})
			return
		}
	}
	if raw := ctx.Query("minTotal"); raw != "" {
		min, err := decimal.NewFromString(raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid minTotal value"})
			return
		}
		query.MinTotal = &min
	}
	if raw := ctx.Query("maxTotal"); raw != "" {
		max, err := decimal.NewFromString(raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid maxTotal value"})
			return
		}
		query.MaxTotal = &max
	}

	result, err := h.salesService.ListSales(ctx.Request.Context(), query)
	if err != nil {
		h.writeError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, result)
}

// writeError maps service errors onto HTTP responses. Validation failures
// include every violated field rule.
func (h *salesHandler) writeError(ctx *gin.Context, err error) {
	var validationErr *sales.ValidationError
	switch {
	case errors.As(err, &validationErr):
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":      "validation failed",
			"violations": validationErr.Violations,
		})
	case errors.Is(err, sales.ErrNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "sale not found"})
	case errors.Is(err, sales.ErrDuplicateSaleNumber):
		ctx.JSON(http.StatusConflict, gin.H{"error": "sale number already exists"})
	default:
		h.logger.Error("internal error handling sale request", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
