// Package driver opens the SQL database that backs local persistence.
package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Canonical driver names.
const (
	SQLite    = "sqlite"
	Postgres  = "postgres"
	MySQL     = "mysql"
	SQLServer = "sqlserver"
)

// Validator checks that a storage driver is known and enabled.
type Validator struct {
	drivers Registry
}

// NewValidator creates a new driver validator
func NewValidator(drivers Registry) *Validator {
	return &Validator{
		drivers: drivers,
	}
}

// Validate checks if a driver is valid and enabled
func (v *Validator) Validate(name string) error {
	if name == "" {
		return errors.New("driver is required")
	}
	if !v.drivers.IsEnabled(Normalize(name)) {
		return fmt.Errorf("driver not enabled: %s", name)
	}
	return nil
}

// Normalize maps common aliases to canonical driver names.
func Normalize(d string) string {
	switch strings.ToLower(d) {
	case "pg", "postgresql":
		return Postgres
	case "mariadb":
		return MySQL
	case "sqlite3":
		return SQLite
	case "mssql":
		return SQLServer
	default:
		return strings.ToLower(d)
	}
}

// OpenDBWithDSN opens a database connection using the specified driver and DSN.
// For sqlite, the parent directory of a file DSN is created, and an in-memory
// DSN is pinned to a single connection so every query sees the same database.
func OpenDBWithDSN(name, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	switch Normalize(name) {
	case Postgres:
		return gorm.Open(postgres.Open(dsn), cfg)
	case MySQL:
		return gorm.Open(mysql.Open(dsn), cfg)
	case SQLServer:
		return gorm.Open(sqlserver.Open(dsn), cfg)
	case SQLite:
		if dsn != ":memory:" {
			if dir := filepath.Dir(dsn); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, fmt.Errorf("failed to create directory for SQLite file: %w", err)
				}
			}
		}
		db, err := gorm.Open(sqlite.Open(dsn), cfg)
		if err != nil {
			return nil, err
		}
		if dsn == ":memory:" {
			sqlDB, err := db.DB()
			if err != nil {
				return nil, err
			}
			sqlDB.SetMaxOpenConns(1)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", name)
	}
}
