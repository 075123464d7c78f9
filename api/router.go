package api

import (
	"context"
	"database/sql"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"sales_service/internal/audit"
	"sales_service/internal/customers"
	"sales_service/internal/sales"
)

// Config carries the external collaborator endpoints. Empty values fall back
// to in-memory implementations, which keeps local runs and tests
// zero-config.
type Config struct {
	DatabaseURL        string
	CustomerServiceURL string
}

// ConfigFromEnv reads the collaborator endpoints from the environment.
func ConfigFromEnv() Config {
	return Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		CustomerServiceURL: os.Getenv("CUSTOMER_SERVICE_URL"),
	}
}

// InitRoutes registers all sale endpoints on the given Gin engine using the
// environment configuration.
func InitRoutes(e *gin.Engine) {
	InitRoutesWithConfig(e, ConfigFromEnv())
}

// InitRoutesWithConfig wires storage, audit store, customer client,
// dispatcher, service and handlers, then binds each HTTP method and path to
// the appropriate handler function.
func InitRoutesWithConfig(e *gin.Engine, cfg Config) {
	logger, _ := zap.NewProduction()

	// Inicialización de la lógica de ventas
	var (
		salesStorage sales.Storage
		auditStore   audit.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to open postgres connection", zap.Error(err))
		}
		pg := sales.NewPostgresStorage(db, logger)
		if err := pg.EnsureSchema(context.Background()); err != nil {
			logger.Fatal("failed to ensure sales schema", zap.Error(err))
		}
		pgAudit := audit.NewPostgresStore(db)
		if err := pgAudit.EnsureSchema(context.Background()); err != nil {
			logger.Fatal("failed to ensure audit schema", zap.Error(err))
		}
		salesStorage = pg
		auditStore = pgAudit
	} else {
		salesStorage = sales.NewLocalStorage()
		auditStore = audit.NewMemoryStore()
	}

	var directory sales.CustomerDirectory
	if cfg.CustomerServiceURL != "" {
		directory = customers.NewClient(cfg.CustomerServiceURL, logger)
	}

	registry := prometheus.NewRegistry()
	dispatcher := sales.NewListenerDispatcher(logger,
		sales.NewAuditListener(auditStore, directory, logger),
		sales.NewMetricsListener(registry),
	)

	salesService := sales.NewService(salesStorage, dispatcher, logger)
	salesHandler := NewSalesHandler(salesService, logger)

	e.POST("/sales", salesHandler.handleCreateSale)
	e.GET("/sales", salesHandler.handleListSales)
	e.GET("/sales/:id", salesHandler.handleGetSale)
	e.PUT("/sales/:id", salesHandler.handleUpdateSale)
	e.DELETE("/sales/:id", salesHandler.handleDeleteSale)

	e.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	e.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
}
