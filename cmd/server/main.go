package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/customs-pairing/backend/internal/api"
	"github.com/customs-pairing/backend/internal/config"
	"github.com/customs-pairing/backend/internal/export"
	"github.com/customs-pairing/backend/internal/fields"
	"github.com/customs-pairing/backend/internal/history"
	"github.com/customs-pairing/backend/internal/ingest"
	"github.com/customs-pairing/backend/internal/pairing"
	"github.com/customs-pairing/backend/internal/review"
	"github.com/customs-pairing/backend/internal/store"
	"github.com/customs-pairing/backend/internal/web"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	exeDir := filepath.Dir(exePath)

	// Load XML configuration
	configPath := filepath.Join(exeDir, "CustomsPairing.exe.config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Ensure all data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Failed to create directories: %v\n", err)
		os.Exit(1)
	}

	// Check if running in embedded mode (frontend built into binary)
	embeddedMode := web.HasEmbeddedFiles()

	// Field catalogue: built-in labels unless the config points at a
	// YAML override
	catalogue := fields.Default()
	if cfg.Storage.FieldCatalogue != "" {
		catalogue, err = fields.Load(cfg.Storage.FieldCatalogue)
		if err != nil {
			fmt.Printf("Failed to load field catalogue: %v\n", err)
			os.Exit(1)
		}
	}

	// Initialize the record store
	recordStore, err := openStore(cfg, catalogue)
	if err != nil {
		fmt.Printf("Failed to initialize record store: %v\n", err)
		os.Exit(1)
	}
	defer recordStore.Close()

	pairingOpts := pairing.Options{
		Locale:             cfg.Pairing.Locale,
		KeywordHint:        cfg.Pairing.KeywordHint,
		DeclarationKeyword: cfg.Pairing.DeclarationKeyword,
		FreightKeyword:     cfg.Pairing.FreightKeyword,
	}

	// Initialize the history manager and load persisted records
	historyMgr := history.NewManager(recordStore, catalogue, pairingOpts)
	if err := historyMgr.Load(context.Background()); err != nil {
		fmt.Printf("Failed to load history: %v\n", err)
		os.Exit(1)
	}

	// Build the handler set
	handlers := api.NewHandlers(&api.Dependencies{
		History:    historyMgr,
		Review:     review.NewSession(historyMgr),
		Ingestor:   ingest.New(),
		Exporter:   export.New(catalogue, cfg.Pairing.Locale),
		Catalogue:  catalogue,
		AllowClear: cfg.Security.AllowHistoryClear,
		Version:    Version,
	})

	e := echo.New()
	e.HideBanner = true
	api.SetupMiddleware(e)

	// Configure middleware
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			return c.Request().URL.Path == "/health"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		Skipper: func(c echo.Context) bool {
			// Uploads and exports carry whole document batches
			path := c.Request().URL.Path
			return strings.Contains(path, "/upload") ||
				strings.Contains(path, "/export")
		},
		ErrorMessage: "Request timeout",
	}))

	// Body limit middleware (scans arrive as whole batches)
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: func(c echo.Context) bool {
			// xlsx payloads are already deflate-compressed
			return strings.Contains(c.Request().URL.Path, "/export")
		},
	}))

	// CORS configuration
	if cfg.Server.EnableCORS {
		if embeddedMode {
			origins := strings.Split(cfg.Server.AllowOrigins, ",")
			for i := range origins {
				origins[i] = strings.TrimSpace(origins[i])
			}
			if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
				origins = []string{"*"}
			}
			e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
				AllowOrigins: origins,
				AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
				AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
			}))
		} else {
			// Development mode - only allow localhost
			e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
				AllowOrigins: []string{
					"http://localhost:5173", "http://127.0.0.1:5173",
					"http://localhost:3000", "http://127.0.0.1:3000",
				},
				AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
				AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
			}))
		}
	}

	api.RegisterRoutes(e, handlers)

	// Register embedded frontend if available
	if embeddedMode {
		if err := web.RegisterStaticRoutes(e); err != nil {
			fmt.Printf("Warning: failed to register static routes: %v\n", err)
		} else {
			fmt.Println("Serving embedded frontend from binary")
		}
	}

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Print startup banner
	mode := "Development"
	if embeddedMode {
		mode = "Air-Gapped (Embedded)"
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Customs Document Pairing Server                 ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Mode:       %-45s║\n", mode)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Data Dir:  %-46s║\n", cfg.GetDataDir())
	fmt.Printf("║  Store:     %-46s║\n", cfg.Storage.Backend)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	if embeddedMode {
		fmt.Printf("Open http://localhost:%d in your browser\n\n", cfg.Server.Port)
	}

	e.Logger.Fatal(e.StartServer(s))
}

// openStore picks the record store backend from configuration.
func openStore(cfg *config.AppConfig, catalogue *fields.Catalogue) (store.Store, error) {
	switch cfg.Storage.Backend {
	case "", "file":
		return store.NewFileStore(filepath.Join(cfg.GetDataDir(), "records.msgpack"), catalogue)
	case "duckdb":
		return store.NewDuckStore(filepath.Join(cfg.GetDataDir(), "records.duckdb"), catalogue, store.DuckOptions{
			Threads:     cfg.Advanced.DuckDBThreads,
			MemoryLimit: cfg.Advanced.DuckDBMemoryLimit,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
