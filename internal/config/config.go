package config

import (
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"strings"

	"k8s.io/utils/env"

	"github.com/opendatahub-io/key-ledger/internal/constant"
)

// Config holds application configuration.
type Config struct {
	// Name of this instance, used as the organization of self-signed certificates.
	Name string

	// Server configuration
	Port      string
	Address   string
	DebugMode bool

	// Storage configuration
	StorageMode     StorageMode
	DataFile        string
	LogFile         string
	DBPath          string
	DBConnectionURL string

	// LogMaxEntries caps the action log. Zero keeps every entry.
	LogMaxEntries int

	TLS TLSConfig
}

// Load builds the configuration from defaults, the optional YAML file named by
// CONFIG_FILE, and environment variables, in that order of precedence (last
// wins). It also binds command line flags on flag.CommandLine; callers must
// invoke flag.Parse and then Validate.
func Load() (*Config, error) {
	return load(flag.CommandLine)
}

func load(fs *flag.FlagSet) (*Config, error) {
	c := defaults()

	if path := env.GetString(constant.EnvConfigFile, ""); path != "" {
		if err := c.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}

	c.bindFlags(fs)

	return c, nil
}

func defaults() *Config {
	return &Config{
		Name:        constant.DefaultInstanceName,
		Port:        constant.DefaultPort,
		StorageMode: StorageModeFile,
		DataFile:    constant.DefaultDataFile,
		LogFile:     constant.DefaultLogFile,
		DBPath:      constant.DefaultDBPath,
		TLS: TLSConfig{
			MinVersion: TLSVersion(tls.VersionTLS12),
		},
	}
}

func (c *Config) applyEnv() error {
	c.Name = env.GetString("INSTANCE_NAME", c.Name)
	c.Port = env.GetString("PORT", c.Port)
	c.Address = env.GetString("ADDRESS", c.Address)
	c.DataFile = env.GetString("DATA_FILE", c.DataFile)
	c.LogFile = env.GetString("LOG_FILE", c.LogFile)
	c.DBPath = env.GetString("DB_PATH", c.DBPath)
	c.DBConnectionURL = env.GetString("DB_CONNECTION_URL", c.DBConnectionURL)

	debugMode, err := env.GetBool("DEBUG_MODE", c.DebugMode)
	if err != nil {
		return fmt.Errorf("invalid DEBUG_MODE: %w", err)
	}
	c.DebugMode = debugMode

	if mode := env.GetString("STORAGE_MODE", ""); mode != "" {
		if err := c.StorageMode.Set(mode); err != nil {
			return err
		}
	}

	maxEntries, err := env.GetInt("LOG_MAX_ENTRIES", c.LogMaxEntries)
	if err != nil {
		return fmt.Errorf("invalid LOG_MAX_ENTRIES: %w", err)
	}
	c.LogMaxEntries = maxEntries

	return c.TLS.applyEnv()
}

// bindFlags binds the flagset to selected config options.
func (c *Config) bindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Name, "name", c.Name, "Name of this key-ledger instance")
	fs.StringVar(&c.Port, "port", c.Port, "Port to listen on")
	fs.StringVar(&c.Address, "address", c.Address, "Listen address (overrides --port when set)")
	fs.BoolVar(&c.DebugMode, "debug", c.DebugMode, "Enable debug logging and gin debug mode")
	fs.Var(&c.StorageMode, "storage", "Storage backend: file, sqlite or postgres (default: file)")
	fs.StringVar(&c.DataFile, "data-file", c.DataFile, "Path of the JSON key file (file storage)")
	fs.StringVar(&c.LogFile, "log-file", c.LogFile, "Path of the JSON action log file (file storage)")
	fs.StringVar(&c.DBPath, "db-path", c.DBPath, "SQLite database path, or :memory:")
	fs.StringVar(&c.DBConnectionURL, "db-connection-url", c.DBConnectionURL, "PostgreSQL connection URL")
	fs.IntVar(&c.LogMaxEntries, "log-max-entries", c.LogMaxEntries, "Keep only the newest N action log entries (0 = unbounded)")

	c.TLS.bindFlags(fs)
}

// Validate checks the final configuration after flags have been parsed.
func (c *Config) Validate() error {
	switch c.StorageMode {
	case StorageModeFile:
		if strings.TrimSpace(c.DataFile) == "" || strings.TrimSpace(c.LogFile) == "" {
			return errors.New("--data-file and --log-file are required when using --storage=file")
		}
	case StorageModeSQLite:
	case StorageModePostgres:
		if strings.TrimSpace(c.DBConnectionURL) == "" {
			return errors.New("--db-connection-url is required when using --storage=postgres")
		}
	default:
		return fmt.Errorf("unknown storage mode: %q", string(c.StorageMode))
	}

	if c.LogMaxEntries < 0 {
		return fmt.Errorf("--log-max-entries must not be negative, got %d", c.LogMaxEntries)
	}

	return c.TLS.validate()
}

// ListenAddress returns the address the HTTP server binds to.
func (c *Config) ListenAddress() string {
	if c.Address != "" {
		return c.Address
	}
	return ":" + c.Port
}
