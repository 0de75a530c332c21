package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"scale_tracker/internal/sales"
)

// Options tunes the HTTP layer.
type Options struct {
	// MaxUploadSize bounds import uploads in bytes; zero means unbounded.
	MaxUploadSize int64
	// Now is the clock used to name backups.
	Now func() time.Time
}

// InitRoutes registers every record endpoint on the given Gin engine.
func InitRoutes(e *gin.Engine, salesService *sales.Service, logger *zap.Logger, opts Options) {
	h := NewSalesHandler(salesService, logger, opts)

	e.GET("/sales", h.handleListSales)
	e.POST("/sales", h.handleCreateSale)
	e.POST("/sales/range", h.handleCreateSaleRange)
	e.POST("/sales/import", h.handleImportSales)
	e.POST("/sales/delete", h.handleDeleteSales)
	e.GET("/sales/:id", h.handleGetSale)
	e.PUT("/sales/:id", h.handleUpdateSale)
	e.DELETE("/sales/:id", h.handleDeleteSale)
	e.GET("/sales/:id/repairs", h.handleSaleRepairs)

	e.GET("/repairs", h.handleListRepairs)
	e.POST("/repairs", h.handleCreateRepair)
	e.PUT("/repairs/:id", h.handleUpdateRepair)
	e.DELETE("/repairs/:id", h.handleDeleteRepair)

	e.GET("/companies", h.handleCompanies)
	e.GET("/export", h.handleExport)
	e.GET("/backup", h.handleBackup)
	e.POST("/backup/restore", h.handleRestore)
	e.GET("/status", h.handleStatus)

	e.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
}

// requestLogger logs each request through zap.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// NewEngine returns a gin engine with recovery, request logging and all
// routes installed.
func NewEngine(salesService *sales.Service, logger *zap.Logger, opts Options) *gin.Engine {
	e := gin.New()
	e.Use(gin.Recovery(), requestLogger(logger))
	InitRoutes(e, salesService, logger, opts)
	return e
}
