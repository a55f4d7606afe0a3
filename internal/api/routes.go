// routes.go - Route registration helpers
package api

import (
	"github.com/labstack/echo/v4"

	"github.com/customs-pairing/backend/internal/export"
	"github.com/customs-pairing/backend/internal/fields"
	"github.com/customs-pairing/backend/internal/history"
	"github.com/customs-pairing/backend/internal/ingest"
	"github.com/customs-pairing/backend/internal/review"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	History    *history.Manager
	Review     *review.Session
	Ingestor   *ingest.Ingestor
	Exporter   *export.Exporter
	Catalogue  *fields.Catalogue
	AllowClear bool
	Version    string
}

// Handlers holds all handler instances
type Handlers struct {
	Health  *HealthHandler
	Records *Handler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health: NewHealthHandler(deps.Version),
		Records: NewHandler(deps.History, deps.Review, deps.Ingestor,
			deps.Exporter, deps.Catalogue, deps.AllowClear),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	h := handlers.Records

	// Health check
	e.GET("/health", handlers.Health.HandleHealth)

	// Document upload routes
	uploadGroup := e.Group("/api/documents")
	uploadGroup.POST("/upload", h.HandleUploadDocuments)
	uploadGroup.POST("/upload/base64", h.HandleUploadDocumentsBase64)

	// Record routes
	recordGroup := e.Group("/api/records")
	recordGroup.GET("", h.HandleListRecords)
	recordGroup.GET("/msgpack", h.HandleListRecordsMsgpack)
	recordGroup.GET("/queue", h.HandleGetQueue)
	recordGroup.POST("/pair", h.HandleManualPair)
	recordGroup.POST("/autopair", h.HandleAutoPair)
	recordGroup.POST("/bulk-delete", h.HandleBulkDelete)
	recordGroup.DELETE("", h.HandleClearHistory)
	recordGroup.GET("/:id", h.HandleGetRecord)
	recordGroup.PUT("/:id", h.HandleUpdateRecord)
	recordGroup.DELETE("/:id", h.HandleDeleteRecord)
	recordGroup.POST("/:id/verified", h.HandleSetVerified)
	recordGroup.POST("/:id/confirm", h.HandleConfirmPairing)
	recordGroup.POST("/:id/reject", h.HandleRejectPairing)
	recordGroup.POST("/:id/documents/:slot/remove", h.HandleRemoveDocument)
	recordGroup.POST("/:id/documents/:slot/rotate", h.HandleRotateDocument)
	recordGroup.PUT("/:id/documents/:slot/name", h.HandleRenameDocument)

	// Fullscreen review routes
	reviewGroup := e.Group("/api/review")
	reviewGroup.POST("/open", h.HandleReviewOpen)
	reviewGroup.POST("/close", h.HandleReviewClose)
	reviewGroup.GET("/state", h.HandleReviewState)
	reviewGroup.POST("/navigate", h.HandleReviewNavigate)
	reviewGroup.POST("/confirm", h.HandleReviewConfirm)
	reviewGroup.POST("/reject", h.HandleReviewReject)
	reviewGroup.POST("/documents/:slot/remove", h.HandleReviewDeleteSide)

	// Export routes
	e.GET("/api/export/xlsx", h.HandleExportXLSX)
	e.POST("/api/export/xlsx", h.HandleExportXLSX)

	// Field catalogue
	e.GET("/api/fields", h.HandleGetFields)
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo) {
	// Use custom error handler
	e.HTTPErrorHandler = ErrorHandler
}
