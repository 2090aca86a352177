package weeredis

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dracory/env"
	"github.com/dracory/weeredis/backend"
	"github.com/dracory/weeredis/shared/driver"
	"github.com/dracory/weeredis/shared/types"
	"github.com/samber/lo"
)

// Defaults applied by LoadConfig.
const (
	DefaultHTTPPort      = 8080
	DefaultBasePath      = "/api"
	DefaultActionParam   = "action"
	DefaultStorageDriver = driver.SQLite
	insecureSecret       = "dev-insecure-change-me"
)

// LoadConfig reads flags/env with sensible defaults.
// Flags take precedence over env.
func LoadConfig() (types.Config, error) {
	// Optionally load from .env files (missing files are ignored inside the lib)
	env.Load(".env")
	return loadConfig(flag.CommandLine, os.Args[1:])
}

func loadConfig(fs *flag.FlagSet, args []string) (types.Config, error) {
	var cfg types.Config

	cfg.HTTPPort = env.GetIntOrDefault("HTTP_PORT", DefaultHTTPPort)
	cfg.BasePath = env.GetStringOrDefault("BASE_URL", DefaultBasePath)
	cfg.ActionParam = env.GetStringOrDefault("ACTION_PARAM", DefaultActionParam)
	cfg.SessionSecret = env.GetStringOrDefault("SESSION_SECRET", insecureSecret)
	cfg.SecureCookies = env.GetBoolOrDefault("SECURE_COOKIES", false)
	cfg.StorageDriver = env.GetStringOrDefault("STORAGE_DRIVER", DefaultStorageDriver)
	cfg.StorageDSN = env.GetStringOrDefault("STORAGE_DSN", "")
	cfg.EnabledStorageDrivers = splitList(env.GetStringOrDefault("ENABLED_STORAGE_DRIVERS", ""))
	cfg.ScanBatchSize = env.GetIntOrDefault("SCAN_BATCH_SIZE", backend.DefaultScanBatchSize)
	dialTimeout := env.GetStringOrDefault("DIAL_TIMEOUT", backend.DefaultDialTimeout.String())

	port := fs.Int("port", cfg.HTTPPort, "HTTP port to listen on")
	base := fs.String("base", cfg.BasePath, "Path the JSON API is mounted under (e.g. /api)")
	storageDriver := fs.String("storage-driver", cfg.StorageDriver, "Local persistence driver (sqlite, postgres, mysql, sqlserver)")
	storageDSN := fs.String("storage-dsn", cfg.StorageDSN, "Local persistence DSN (default: a sqlite file in the user config dir)")
	scanBatch := fs.Int("scan-batch", cfg.ScanBatchSize, "COUNT hint used when scanning keys")
	dial := fs.String("dial-timeout", dialTimeout, "Timeout for establishing a Redis connection")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	cfg.HTTPPort = *port
	cfg.BasePath = normalizeBasePath(*base)
	cfg.StorageDriver = driver.Normalize(*storageDriver)
	cfg.StorageDSN = *storageDSN
	cfg.ScanBatchSize = *scanBatch

	d, err := time.ParseDuration(*dial)
	if err != nil {
		return cfg, errors.New("DIAL_TIMEOUT must be a duration such as 5s")
	}
	cfg.DialTimeout = d

	if cfg.StorageDSN == "" && cfg.StorageDriver == driver.SQLite {
		cfg.StorageDSN = DefaultStorageDSN()
	}

	return cfg, ValidateConfig(cfg)
}

// ValidateConfig checks a configuration before the App is built.
func ValidateConfig(cfg types.Config) error {
	if cfg.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required")
	}
	if cfg.HTTPPort < 0 || cfg.HTTPPort > 65535 {
		return errors.New("HTTP_PORT must be between 0 and 65535")
	}
	if err := driver.NewValidator(driver.NewRegistry(cfg.EnabledStorageDrivers)).Validate(cfg.StorageDriver); err != nil {
		return err
	}
	if cfg.StorageDSN == "" {
		return errors.New("STORAGE_DSN is required for " + cfg.StorageDriver)
	}
	if cfg.ScanBatchSize <= 0 {
		return errors.New("SCAN_BATCH_SIZE must be positive")
	}
	if cfg.DialTimeout <= 0 {
		return errors.New("DIAL_TIMEOUT must be positive")
	}
	return nil
}

// IsInsecureSecret reports whether cfg still uses the development secret.
func IsInsecureSecret(cfg types.Config) bool {
	return cfg.SessionSecret == insecureSecret
}

// DefaultStorageDSN is the sqlite file used when no DSN is configured.
func DefaultStorageDSN() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "weeredis", "weeredis.db")
}

func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || p == "/" {
		return DefaultBasePath
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.TrimRight(p, "/")
}

func splitList(s string) []string {
	parts := lo.Map(strings.Split(s, ","), func(p string, _ int) string { return driver.Normalize(strings.TrimSpace(p)) })
	return lo.Compact(parts)
}
