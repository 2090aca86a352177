// Package dump reads and writes key export files.
//
// An export file holds a header and a list of key records. JSON and YAML are
// supported. A bare JSON array of key records is read as a headerless file.
package dump

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/dracory/weeredis/shared/types"
	"gopkg.in/yaml.v3"
)

// FormatVersion is the file version written by this package.
const FormatVersion = 1

// Format is an on-disk encoding.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

var (
	// ErrUnknownFormat is returned for unsupported encodings or file extensions.
	ErrUnknownFormat = errors.New("dump: unknown format")
	// ErrUnsupportedVersion is returned for files written by a newer version.
	ErrUnsupportedVersion = errors.New("dump: unsupported file version")
)

// File is one export.
type File struct {
	Version    int               `json:"version" yaml:"version"`
	ExportedAt time.Time         `json:"exported_at" yaml:"exported_at"`
	Source     string            `json:"source,omitempty" yaml:"source,omitempty"`
	Database   int               `json:"database" yaml:"database"`
	Keys       []types.KeyDetail `json:"keys" yaml:"keys"`
}

// New returns a File stamped with the current version and time.
func New(source string, database int, keys []types.KeyDetail) File {
	return File{
		Version:    FormatVersion,
		ExportedAt: time.Now().UTC().Truncate(time.Second),
		Source:     source,
		Database:   database,
		Keys:       keys,
	}
}

// ParseFormat maps a name such as "yml" to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// FormatFromPath picks the Format from a file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Encode writes f to w.
func Encode(w io.Writer, f File, format Format) error {
	switch format {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(f)
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(f); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Decode reads a File from r.
func Decode(r io.Reader, format Format) (File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return File{}, err
	}

	var f File
	switch format {
	case JSON:
		if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
			if err := json.Unmarshal(trimmed, &f.Keys); err != nil {
				return File{}, fmt.Errorf("dump: decode key list: %w", err)
			}
			return f, nil
		}
		if err := json.Unmarshal(data, &f); err != nil {
			return File{}, fmt.Errorf("dump: decode json: %w", err)
		}
	case YAML:
		if err := yaml.Unmarshal(data, &f); err != nil {
			return File{}, fmt.Errorf("dump: decode yaml: %w", err)
		}
	default:
		return File{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	if f.Version > FormatVersion {
		return File{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, f.Version)
	}
	return f, nil
}
