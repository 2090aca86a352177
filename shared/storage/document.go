package storage

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the document key holds no value.
	ErrNotFound = errors.New("storage: key not found")
	// ErrSchemaVersion is returned when the stored version cannot be read by this build.
	ErrSchemaVersion = errors.New("storage: unsupported schema version")
)

// Migration upgrades the data of version N to version N+1.
type Migration func(data json.RawMessage) (json.RawMessage, error)

// record is the on-disk shape of a Document.
type record struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// Document is a typed, versioned value stored under one key.
//
// Values written by earlier builds without a version wrapper are read as
// version 0 and must be upgraded by a registered migration.
type Document[T any] struct {
	store      *Store
	key        string
	version    int
	migrations map[int]Migration
}

// NewDocument binds a document of type T to key at the given schema version.
func NewDocument[T any](store *Store, key string, version int) *Document[T] {
	return &Document[T]{
		store:      store,
		key:        key,
		version:    version,
		migrations: map[int]Migration{},
	}
}

// WithMigration registers the upgrade from version `from` to `from+1`.
func (d *Document[T]) WithMigration(from int, m Migration) *Document[T] {
	d.migrations[from] = m
	return d
}

// Key returns the storage key of the document.
func (d *Document[T]) Key() string { return d.key }

// Load reads and decodes the document, applying migrations as needed.
func (d *Document[T]) Load() (T, error) {
	var zero T

	raw, ok, err := d.store.GetString(d.key)
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, ErrNotFound
	}

	rec, err := decodeRecord(raw)
	if err != nil {
		return zero, fmt.Errorf("storage: decode %q: %w", d.key, err)
	}
	if rec.Version > d.version {
		return zero, fmt.Errorf("%w: %q has version %d, newest known is %d", ErrSchemaVersion, d.key, rec.Version, d.version)
	}

	data := rec.Data
	for v := rec.Version; v < d.version; v++ {
		m, ok := d.migrations[v]
		if !ok {
			return zero, fmt.Errorf("%w: no migration for %q from version %d", ErrSchemaVersion, d.key, v)
		}
		if data, err = m(data); err != nil {
			return zero, fmt.Errorf("storage: migrate %q from version %d: %w", d.key, v, err)
		}
	}

	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, fmt.Errorf("storage: decode %q: %w", d.key, err)
	}
	return out, nil
}

// Save encodes v at the current schema version. Failures are logged and reported as false.
func (d *Document[T]) Save(v T) bool {
	data, err := json.Marshal(v)
	if err != nil {
		d.store.logger.Error("storage: serialize failed", "key", d.key, "error", err)
		return false
	}
	b, err := json.Marshal(record{Version: d.version, Data: data})
	if err != nil {
		d.store.logger.Error("storage: serialize failed", "key", d.key, "error", err)
		return false
	}
	if err := d.store.SetString(d.key, string(b)); err != nil {
		d.store.logger.Error("storage: write failed", "key", d.key, "error", err)
		return false
	}
	return true
}

// decodeRecord reads a versioned record, treating an unwrapped JSON object as version 0.
func decodeRecord(raw string) (record, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return record{}, err
	}
	_, hasVersion := fields["version"]
	_, hasData := fields["data"]
	if !hasVersion || !hasData {
		return record{Version: 0, Data: json.RawMessage(raw)}, nil
	}
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return record{}, err
	}
	return rec, nil
}
