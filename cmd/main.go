package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opendatahub-io/key-ledger/internal/api_keys"
	"github.com/opendatahub-io/key-ledger/internal/cert"
	"github.com/opendatahub-io/key-ledger/internal/config"
	"github.com/opendatahub-io/key-ledger/internal/handlers"
	"github.com/opendatahub-io/key-ledger/internal/logger"
	"github.com/opendatahub-io/key-ledger/web"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	flag.Parse()

	appLogger := logger.Production()
	if cfg.DebugMode {
		appLogger = logger.Development()
	}
	defer func() {
		_ = appLogger.Sync() // Ignore sync errors on close, as per zap documentation
	}()

	if err := cfg.Validate(); err != nil {
		appLogger.Fatal("Invalid configuration",
			"error", err,
		)
	}

	gin.SetMode(gin.ReleaseMode)
	if cfg.DebugMode {
		gin.SetMode(gin.DebugMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := initStore(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize key store",
			"error", err,
		)
	}
	defer func() {
		if err := store.Close(); err != nil {
			appLogger.Error("Failed to close key store",
				"error", err,
			)
		}
	}()

	router := newRouter(appLogger)
	registerHandlers(router, store, appLogger)

	srv, err := newServer(cfg, router)
	if err != nil {
		appLogger.Fatal("Failed to configure server",
			"error", err,
		)
	}

	appLogger.Info("Server starting",
		"address", srv.Addr,
		"tls", srv.TLSConfig != nil,
		"storage", cfg.StorageMode.String(),
		"debug_mode", cfg.DebugMode,
	)
	if err := serve(ctx, srv, appLogger); err != nil {
		appLogger.Error("Server stopped with error",
			"error", err,
		)
		return
	}

	appLogger.Info("Server exited gracefully")
}

// newRouter builds the engine with recovery, access logging and open CORS.
// Routing runs on the escaped path so keys containing "/" reach their
// :api_key parameter, which gin then unescapes.
func newRouter(appLogger *logger.Logger) *gin.Engine {
	router := gin.New()
	router.UseRawPath = true
	router.UnescapePathValues = true

	router.Use(gin.Recovery(), handlers.RequestLogger(appLogger))
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:   []string{"Content-Type"},
		MaxAge:          12 * time.Hour,
	}))
	router.OPTIONS("/*path", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	return router
}

// initStore creates the store based on the configured storage mode.
//
// Storage modes:
//   - file (default): two pretty-printed JSON files, one for keys, one for the action log
//   - sqlite: local SQLite database, ":memory:" for an ephemeral store
//   - postgres: external PostgreSQL database
//
//nolint:ireturn // Returns Store interface by design for pluggable storage backends.
func initStore(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) (api_keys.Store, error) {
	storeLogger := appLogger.Named("store")

	switch cfg.StorageMode {
	case config.StorageModeFile, "":
		return api_keys.NewFileStore(storeLogger, cfg.DataFile, cfg.LogFile, cfg.LogMaxEntries)

	case config.StorageModeSQLite:
		return api_keys.NewSQLiteStore(ctx, storeLogger, cfg.DBPath, cfg.LogMaxEntries)

	case config.StorageModePostgres:
		return api_keys.NewExternalStore(ctx, storeLogger, cfg.DBConnectionURL, cfg.LogMaxEntries)

	default:
		return nil, fmt.Errorf("unknown storage mode: %q (valid modes: file, sqlite, postgres)", string(cfg.StorageMode))
	}
}

func registerHandlers(router *gin.Engine, store api_keys.Store, appLogger *logger.Logger) {
	health := handlers.NewHealthHandler(func(ctx context.Context) error {
		_, err := store.List(ctx)
		return err
	})
	router.GET("/health", health.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	pages := handlers.NewPagesHandler(web.Pages)
	router.GET("/", pages.Page(web.IndexPage))
	router.GET("/"+web.IndexPage, pages.Page(web.IndexPage))
	router.GET("/log", pages.Page(web.LogPage))
	router.GET("/"+web.LogPage, pages.Page(web.LogPage))

	apiKeyService := api_keys.NewService(appLogger.Named("api_keys"), store)
	apiKeyHandler := api_keys.NewHandler(appLogger, apiKeyService)

	apiRoutes := router.Group("/api")
	apiRoutes.GET("/keys", apiKeyHandler.ListKeys)
	apiRoutes.POST("/add", apiKeyHandler.AddKey)
	apiRoutes.GET("/get/:api_key", apiKeyHandler.GetKey)
	apiRoutes.POST("/deleted/:api_key", apiKeyHandler.SoftDeleteKey)
	apiRoutes.DELETE("/delete/:api_key", apiKeyHandler.HardDeleteKey)
	apiRoutes.GET("/logs", apiKeyHandler.ListLogs)
}

// newServer configures the HTTP server on the configured listen address. TLS
// is attached when a certificate pair is configured or self-signing is on.
func newServer(cfg *config.Config, handler http.Handler) (*http.Server, error) {
	srv := &http.Server{
		Addr:              cfg.ListenAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	if !cfg.TLS.Enabled() {
		return srv, nil
	}

	certificate, err := serverCertificate(cfg, srv.Addr)
	if err != nil {
		return nil, err
	}

	//nolint:gosec // G402: MinVersion is configurable via --tls-min-version flag (default: TLS 1.2)
	srv.TLSConfig = &tls.Config{
		Certificates: []tls.Certificate{certificate},
		MinVersion:   cfg.TLS.MinVersion.Value(),
	}
	return srv, nil
}

// serverCertificate loads the configured pair, or generates a self-signed
// certificate that also covers the host the server listens on.
func serverCertificate(cfg *config.Config, addr string) (tls.Certificate, error) {
	if cfg.TLS.HasCerts() {
		certificate, err := tls.LoadX509KeyPair(cfg.TLS.Cert, cfg.TLS.Key)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("loading TLS certificate: %w", err)
		}
		return certificate, nil
	}

	certificate, err := cert.Generate(cfg.Name, listenHosts(addr)...)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generating self-signed certificate: %w", err)
	}
	return certificate, nil
}

// listenHosts returns the host of addr when it names one. Wildcard and
// port-only addresses yield nothing.
func listenHosts(addr string) []string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil || host == "" {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsUnspecified() {
		return nil
	}
	return []string{host}
}

// serve runs srv until it fails or ctx is cancelled, then drains in-flight
// requests for up to shutdownTimeout.
func serve(ctx context.Context, srv *http.Server, appLogger *logger.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		if srv.TLSConfig != nil {
			errCh <- srv.ListenAndServeTLS("", "")
			return
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	appLogger.Info("Shutdown signal received, shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
