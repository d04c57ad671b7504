// Package format defines the storage format abstraction plugins register
// their on-disk representations against. A format pairs a filesystem path
// with an open mode and a validation hook; descriptors make formats
// constructible by name for the registry and the test harness.
package format

import (
	"errors"
	"fmt"
	"os"
	"reflect"
)

// Mode selects how a format instance is opened.
type Mode string

const (
	// ModeRead opens a format over existing data.
	ModeRead Mode = "r"
	// ModeWrite opens a format for producing new data.
	ModeWrite Mode = "w"
)

// Level selects how strict Validate should be.
type Level string

const (
	// LevelMin performs cheap structural checks only.
	LevelMin Level = "min"
	// LevelMax performs full-content validation.
	LevelMax Level = "max"
)

// ErrInvalidMode is returned when a format is constructed with an
// unrecognized open mode.
var ErrInvalidMode = errors.New("format: mode must be read or write")

// Format is the contract every on-disk representation satisfies.
type Format interface {
	Path() string
	Mode() Mode
	Validate(level Level) error
}

// Base stores the path and mode shared by all concrete formats. Concrete
// formats embed it (directly or through TextFileFormat / DirectoryFormat).
type Base struct {
	path string
	mode Mode
}

// NewBase validates the mode and returns the shared state.
func NewBase(path string, mode Mode) (Base, error) {
	switch mode {
	case ModeRead, ModeWrite:
		return Base{path: path, mode: mode}, nil
	default:
		return Base{}, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
}

// Path returns the filesystem path backing the format.
func (b Base) Path() string { return b.path }

// Mode returns the open mode.
func (b Base) Mode() Mode { return b.mode }

// TextFileFormat is the base for single-file formats.
type TextFileFormat struct {
	Base
}

// NewTextFileFormat opens a single-file format at path.
func NewTextFileFormat(path string, mode Mode) (TextFileFormat, error) {
	base, err := NewBase(path, mode)
	if err != nil {
		return TextFileFormat{}, err
	}
	return TextFileFormat{Base: base}, nil
}

// Validate checks that a readable format points at a regular file.
func (f TextFileFormat) Validate(Level) error {
	if f.Mode() != ModeRead {
		return nil
	}
	info, err := os.Stat(f.Path())
	if err != nil {
		return fmt.Errorf("validate %s: %w", f.Path(), err)
	}
	if info.IsDir() {
		return fmt.Errorf("validate %s: expected a file, found a directory", f.Path())
	}
	return nil
}

// DirectoryFormat is the base for multi-file formats rooted at a directory.
type DirectoryFormat struct {
	Base
}

// NewDirectoryFormat opens a directory format at path.
func NewDirectoryFormat(path string, mode Mode) (DirectoryFormat, error) {
	base, err := NewBase(path, mode)
	if err != nil {
		return DirectoryFormat{}, err
	}
	return DirectoryFormat{Base: base}, nil
}

// Validate checks that a readable format points at a directory.
func (f DirectoryFormat) Validate(Level) error {
	if f.Mode() != ModeRead {
		return nil
	}
	info, err := os.Stat(f.Path())
	if err != nil {
		return fmt.Errorf("validate %s: %w", f.Path(), err)
	}
	if !info.IsDir() {
		return fmt.Errorf("validate %s: expected a directory, found a file", f.Path())
	}
	return nil
}

// Descriptor is the constructible handle for a registered format: its
// registry name, the Go type of instances produced by Open, and the
// constructor itself.
type Descriptor struct {
	Name string
	Type reflect.Type
	Open func(path string, mode Mode) (Format, error)
}

var formatInterface = reflect.TypeOf((*Format)(nil)).Elem()

// IsFormat reports whether the descriptor's Go type satisfies Format.
func (d Descriptor) IsFormat() bool {
	return d.Type != nil && d.Type.Implements(formatInterface)
}

// IsZero reports whether the descriptor is the empty value.
func (d Descriptor) IsZero() bool {
	return d.Name == "" && d.Type == nil && d.Open == nil
}

// IsFormatType reports whether an arbitrary Go type satisfies Format.
// Transformer targets use this to decide whether a transformation is
// expected to yield a format instance or a plain value.
func IsFormatType(t reflect.Type) bool {
	return t != nil && t.Implements(formatInterface)
}
