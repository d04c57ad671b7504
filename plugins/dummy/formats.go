package dummy

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/xpingli/qiime2/pkg/format"
)

// IntSequenceFormat is a single text file holding one integer per line.
type IntSequenceFormat struct {
	format.TextFileFormat
}

// Validate parses every line as an integer.
func (f *IntSequenceFormat) Validate(level format.Level) error {
	if err := f.TextFileFormat.Validate(level); err != nil {
		return err
	}
	if f.Mode() != format.ModeRead {
		return nil
	}
	_, err := f.ReadInts()
	return err
}

// ReadInts parses the backing file into a slice of integers.
func (f *IntSequenceFormat) ReadInts() ([]int, error) {
	file, err := os.Open(f.Path())
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Path(), err)
	}
	defer func() { _ = file.Close() }()

	var out []int
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		n, err := strconv.Atoi(text)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %q is not an integer", f.Path(), line, text)
		}
		out = append(out, n)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Path(), err)
	}
	return out, nil
}

// WriteInts writes the sequence to the backing path, one integer per line.
func (f *IntSequenceFormat) WriteInts(values []int) error {
	var sb strings.Builder
	for _, v := range values {
		fmt.Fprintf(&sb, "%d\n", v)
	}
	return os.WriteFile(f.Path(), []byte(sb.String()), 0o644)
}

// IntSequenceFormatDescriptor returns the registry descriptor.
func IntSequenceFormatDescriptor() format.Descriptor {
	return format.Descriptor{
		Name: "IntSequenceFormat",
		Type: reflect.TypeOf(&IntSequenceFormat{}),
		Open: func(path string, mode format.Mode) (format.Format, error) {
			inner, err := format.NewTextFileFormat(path, mode)
			if err != nil {
				return nil, err
			}
			return &IntSequenceFormat{TextFileFormat: inner}, nil
		},
	}
}

// IntSequenceDirectoryFormat is a directory holding an ints.txt sequence.
type IntSequenceDirectoryFormat struct {
	format.DirectoryFormat
}

// SequenceFile returns the path of the contained sequence file.
func (f *IntSequenceDirectoryFormat) SequenceFile() string {
	return filepath.Join(f.Path(), "ints.txt")
}

// Validate requires the directory to contain a parseable ints.txt.
func (f *IntSequenceDirectoryFormat) Validate(level format.Level) error {
	if err := f.DirectoryFormat.Validate(level); err != nil {
		return err
	}
	if f.Mode() != format.ModeRead {
		return nil
	}
	inner, err := format.NewTextFileFormat(f.SequenceFile(), format.ModeRead)
	if err != nil {
		return err
	}
	seq := &IntSequenceFormat{TextFileFormat: inner}
	return seq.Validate(level)
}

// IntSequenceDirectoryFormatDescriptor returns the registry descriptor.
func IntSequenceDirectoryFormatDescriptor() format.Descriptor {
	return format.Descriptor{
		Name: "IntSequenceDirectoryFormat",
		Type: reflect.TypeOf(&IntSequenceDirectoryFormat{}),
		Open: func(path string, mode format.Mode) (format.Format, error) {
			inner, err := format.NewDirectoryFormat(path, mode)
			if err != nil {
				return nil, err
			}
			return &IntSequenceDirectoryFormat{DirectoryFormat: inner}, nil
		},
	}
}

// MappingFormat is a two-column tab-separated key/value file.
type MappingFormat struct {
	format.TextFileFormat
}

// ReadMapping parses the backing file into a key/value map.
func (f *MappingFormat) ReadMapping() (map[string]string, error) {
	file, err := os.Open(f.Path())
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Path(), err)
	}
	defer func() { _ = file.Close() }()

	out := make(map[string]string)
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.TrimSpace(text) == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) != 2 {
			return nil, fmt.Errorf("%s line %d: expected two tab-separated fields", f.Path(), line)
		}
		out[fields[0]] = fields[1]
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Path(), err)
	}
	return out, nil
}

// Validate parses the full mapping.
func (f *MappingFormat) Validate(level format.Level) error {
	if err := f.TextFileFormat.Validate(level); err != nil {
		return err
	}
	if f.Mode() != format.ModeRead {
		return nil
	}
	_, err := f.ReadMapping()
	return err
}

// MappingFormatDescriptor returns the registry descriptor.
func MappingFormatDescriptor() format.Descriptor {
	return format.Descriptor{
		Name: "MappingFormat",
		Type: reflect.TypeOf(&MappingFormat{}),
		Open: func(path string, mode format.Mode) (format.Format, error) {
			inner, err := format.NewTextFileFormat(path, mode)
			if err != nil {
				return nil, err
			}
			return &MappingFormat{TextFileFormat: inner}, nil
		},
	}
}
