package fixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/opendatahub-io/key-ledger/internal/api_keys"
	"github.com/opendatahub-io/key-ledger/internal/logger"
)

const (
	// FutureExpiry is far enough ahead to stay valid for the life of the tests.
	FutureExpiry = "2999-01-01T00:00:00Z"
	// PastExpiry is always expired.
	PastExpiry = "2000-01-01T00:00:00Z"
)

// TestServerConfig holds configuration for test server setup
type TestServerConfig struct {
	// Store defaults to a file store in a temp directory.
	Store api_keys.Store
	// Seed is inserted into the store before the router is returned.
	Seed map[string]api_keys.KeyRecord
}

// FileStorePaths returns the key and log file paths inside a fresh temp directory.
func FileStorePaths(t *testing.T) (dataPath, logPath string) {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "data.json"), filepath.Join(dir, "log.json")
}

// NewFileStore creates a file store in a fresh temp directory.
func NewFileStore(t *testing.T, maxLogEntries int) *api_keys.FileStore {
	t.Helper()
	dataPath, logPath := FileStorePaths(t)
	store, err := api_keys.NewFileStore(logger.Nop(), dataPath, logPath, maxLogEntries)
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}
	return store
}

// NewSQLiteStore creates an in-memory SQLite store closed at test cleanup.
func NewSQLiteStore(t *testing.T, maxLogEntries int) *api_keys.SQLStore {
	t.Helper()
	store, err := api_keys.NewSQLiteStore(context.Background(), logger.Nop(), ":memory:", maxLogEntries)
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// SeedKeys inserts records directly into the store, bypassing the action log.
func SeedKeys(t *testing.T, store api_keys.Store, records map[string]api_keys.KeyRecord) {
	t.Helper()
	for key, rec := range records {
		if err := store.Create(context.Background(), key, rec); err != nil {
			t.Fatalf("failed to seed key %q: %v", key, err)
		}
	}
}

// SetupTestServer creates a gin engine in test mode with the /api routes
// registered against a service over the configured store.
func SetupTestServer(t *testing.T, config TestServerConfig) (*gin.Engine, api_keys.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := config.Store
	if store == nil {
		store = NewFileStore(t, 0)
	}
	if len(config.Seed) > 0 {
		SeedKeys(t, store, config.Seed)
	}

	service := api_keys.NewService(logger.Nop(), store)
	handler := api_keys.NewHandler(logger.Nop(), service)

	router := gin.New()
	router.UseRawPath = true
	router.UnescapePathValues = true
	api := router.Group("/api")
	api.GET("/keys", handler.ListKeys)
	api.POST("/add", handler.AddKey)
	api.GET("/get/:api_key", handler.GetKey)
	api.POST("/deleted/:api_key", handler.SoftDeleteKey)
	api.DELETE("/delete/:api_key", handler.HardDeleteKey)
	api.GET("/logs", handler.ListLogs)

	return router, store
}
