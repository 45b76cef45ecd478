// Package loader reads configuration files and environment overrides.
//
// Files are decoded by extension (TOML, YAML or JSON) with unknown keys
// rejected. Environment overrides are applied to the JSON form of a
// configuration so that each variable is typed by the setting it replaces.
package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrFileNotFound is returned when the configuration file does not exist.
var ErrFileNotFound = errors.New("config file not found")

// ErrUnsupportedFormat is returned for unknown file extensions.
var ErrUnsupportedFormat = errors.New("unsupported config format")

// Format identifies a configuration file format.
type Format string

// Supported formats.
const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatOf returns the format implied by the extension of path.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// FileSystem is an abstraction for file system operations.
// This allows for easy testing with in-memory file systems.
type FileSystem interface {
	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// DefaultFS returns the default file system (OS).
func DefaultFS() FileSystem {
	return OSFS{}
}

// MapFS is an in-memory FileSystem keyed by path.
type MapFS map[string][]byte

// ReadFile returns the contents stored at path.
func (m MapFS) ReadFile(path string) ([]byte, error) {
	data, ok := m[path]
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: path, Err: fs.ErrNotExist}
	}
	return data, nil
}

// ParseError describes a file that could not be decoded.
type ParseError struct {
	Path   string
	Format Format
	Line   int // 0 if unknown
	Err    error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: parsing %s: %v", e.Path, e.Line, e.Format, e.Err)
	}
	return fmt.Sprintf("%s: parsing %s: %v", e.Path, e.Format, e.Err)
}

// Unwrap returns the decoder error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Loader decodes configuration files into structs.
type Loader struct {
	fs FileSystem
}

// New creates a loader reading from fsys. A nil fsys uses the OS.
func New(fsys FileSystem) *Loader {
	if fsys == nil {
		fsys = DefaultFS()
	}
	return &Loader{fs: fsys}
}

// LoadInto decodes the file at path into v. Fields already set in v and
// absent from the file keep their values.
func (l *Loader) LoadInto(path string, v any) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}

	data, err := l.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}

	if err := Decode(format, data, v); err != nil {
		perr := &ParseError{Path: path, Format: format, Err: err}
		var terr *toml.DecodeError
		if errors.As(err, &terr) {
			perr.Line, _ = terr.Position()
		}
		return perr
	}
	return nil
}

// Decode strictly decodes data in the given format into v.
func Decode(format Format, data []byte, v any) error {
	switch format {
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(v)
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err := dec.Decode(v)
		if errors.Is(err, io.EOF) {
			// Empty document.
			return nil
		}
		return err
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(v)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
