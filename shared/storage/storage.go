// Package storage is the local persistence adapter: a flat key/value string
// store kept in a SQL table through gorm.
//
// Store is the untyped adapter. Get parses stored JSON and falls back to the
// raw string; Set JSON-encodes non-string values. Failures never escape as
// errors: they are logged and reported as a boolean. Document layers a typed,
// versioned contract on top of one key.
package storage

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/dracory/weeredis/shared/driver"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// entry is one stored key.
type entry struct {
	Name      string `gorm:"primaryKey;size:191"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}

func (entry) TableName() string { return "kv_entries" }

// Store is a process-wide persistent string store.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open opens the backing database with the given driver and DSN and prepares the table.
func Open(driverName, dsn string, logger *slog.Logger) (*Store, error) {
	db, err := driver.OpenDBWithDSN(driverName, dsn)
	if err != nil {
		return nil, err
	}
	return New(db, logger)
}

// New wraps an open gorm database.
func New(db *gorm.DB, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := db.AutoMigrate(&entry{}); err != nil {
		return nil, err
	}
	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetString returns the raw stored string.
func (s *Store) GetString(key string) (string, bool, error) {
	var e entry
	err := s.db.Where("name = ?", key).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return e.Value, true, nil
}

// SetString stores value verbatim under key, replacing any previous value.
func (s *Store) SetString(key, value string) error {
	e := entry{Name: key, Value: value, UpdatedAt: time.Now()}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
}

// Get returns the structured value stored under key. A value that is not
// valid JSON is returned as the raw string.
func (s *Store) Get(key string) (any, bool) {
	raw, ok, err := s.GetString(key)
	if err != nil {
		s.logger.Error("storage: read failed", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		s.logger.Warn("storage: value is not JSON, returning raw string", "key", key, "error", err)
		return raw, true
	}
	return v, true
}

// Set stores value under key. Strings are stored as-is, anything else as JSON.
func (s *Store) Set(key string, value any) bool {
	serialized, ok := value.(string)
	if !ok {
		b, err := json.Marshal(value)
		if err != nil {
			s.logger.Error("storage: serialize failed", "key", key, "error", err)
			return false
		}
		serialized = string(b)
	}
	if err := s.SetString(key, serialized); err != nil {
		s.logger.Error("storage: write failed", "key", key, "error", err)
		return false
	}
	return true
}

// Delete removes key and reports whether it existed.
func (s *Store) Delete(key string) bool {
	res := s.db.Where("name = ?", key).Delete(&entry{})
	if res.Error != nil {
		s.logger.Error("storage: delete failed", "key", key, "error", res.Error)
		return false
	}
	return res.RowsAffected > 0
}

// Clear removes every key.
func (s *Store) Clear() bool {
	if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&entry{}).Error; err != nil {
		s.logger.Error("storage: clear failed", "error", err)
		return false
	}
	return true
}

// Keys returns all stored keys in ascending order.
func (s *Store) Keys() []string {
	var keys []string
	if err := s.db.Model(&entry{}).Order("name").Pluck("name", &keys).Error; err != nil {
		s.logger.Error("storage: list keys failed", "error", err)
		return nil
	}
	return keys
}

// Values returns the structured value of every key, in key order.
func (s *Store) Values() []any {
	keys := s.Keys()
	out := make([]any, 0, len(keys))
	for _, k := range keys {
		v, _ := s.Get(k)
		out = append(out, v)
	}
	return out
}
