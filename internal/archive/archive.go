// Package archive reads and writes artifact archives: zip files carrying
// a metadata.yaml document (identity, semantic type, format) beside a
// data/ payload tree, all nested under the artifact UUID.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ContentType is the MIME type archives are stored under.
const ContentType = "application/zip"

// metadataName is the name of the metadata document inside the archive.
const metadataName = "metadata.yaml"

// Metadata identifies an archived artifact.
type Metadata struct {
	UUID   string `yaml:"uuid"`
	Type   string `yaml:"type"`
	Format string `yaml:"format,omitempty"`
}

func (m Metadata) validate() error {
	if _, err := uuid.Parse(m.UUID); err != nil {
		return fmt.Errorf("archive metadata: invalid uuid %q: %w", m.UUID, err)
	}
	if m.Type == "" {
		return fmt.Errorf("archive metadata: semantic type required")
	}
	return nil
}

// Builder accumulates payload files and writes the final archive.
type Builder struct {
	meta  Metadata
	files map[string][]byte
}

// NewBuilder starts an archive for the given metadata. A missing UUID is
// assigned; Type must be set before WriteTo.
func NewBuilder(meta Metadata) *Builder {
	if meta.UUID == "" {
		meta.UUID = uuid.NewString()
	}
	return &Builder{meta: meta, files: make(map[string][]byte)}
}

// Metadata returns the archive metadata, including any assigned UUID.
func (b *Builder) Metadata() Metadata { return b.meta }

// AddFile stages payload bytes under a data/-relative name.
func (b *Builder) AddFile(rel string, contents []byte) error {
	clean, err := sanitizeRel(rel)
	if err != nil {
		return err
	}
	if _, dup := b.files[clean]; dup {
		return fmt.Errorf("archive: file %s already staged", clean)
	}
	b.files[clean] = append([]byte(nil), contents...)
	return nil
}

// AddPath stages a file from disk under its base name.
func (b *Builder) AddPath(file string) error {
	contents, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("archive: read %s: %w", file, err)
	}
	return b.AddFile(filepath.Base(file), contents)
}

// WriteTo writes the zip archive. Entry order is deterministic.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	if err := b.meta.validate(); err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	metaBytes, err := yaml.Marshal(b.meta)
	if err != nil {
		return 0, fmt.Errorf("archive: encode metadata: %w", err)
	}
	root := b.meta.UUID
	entry, err := zw.Create(path.Join(root, metadataName))
	if err != nil {
		return 0, err
	}
	if _, err := entry.Write(metaBytes); err != nil {
		return 0, err
	}

	names := make([]string, 0, len(b.files))
	for name := range b.files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		entry, err := zw.Create(path.Join(root, "data", name))
		if err != nil {
			return 0, err
		}
		if _, err := entry.Write(b.files[name]); err != nil {
			return 0, err
		}
	}
	if err := zw.Close(); err != nil {
		return 0, err
	}
	return io.Copy(w, &buf)
}

// Archive is a parsed artifact archive.
type Archive struct {
	meta  Metadata
	files map[string]*zip.File
}

// Read parses an archive, verifying the metadata document and the
// payload layout.
func Read(r io.ReaderAt, size int64) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("archive: open zip: %w", err)
	}

	var meta Metadata
	var metaFound bool
	var root string
	files := make(map[string]*zip.File)

	for _, f := range zr.File {
		parts := strings.SplitN(f.Name, "/", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("archive: unexpected top-level entry %s", f.Name)
		}
		if root == "" {
			root = parts[0]
		} else if parts[0] != root {
			return nil, fmt.Errorf("archive: multiple roots %s and %s", root, parts[0])
		}
		switch {
		case parts[1] == metadataName:
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			data, err := io.ReadAll(rc)
			_ = rc.Close()
			if err != nil {
				return nil, err
			}
			if err := yaml.Unmarshal(data, &meta); err != nil {
				return nil, fmt.Errorf("archive: decode metadata: %w", err)
			}
			metaFound = true
		case strings.HasPrefix(parts[1], "data/"):
			rel := strings.TrimPrefix(parts[1], "data/")
			if rel == "" {
				continue // bare directory entry
			}
			files[rel] = f
		default:
			return nil, fmt.Errorf("archive: unexpected entry %s", f.Name)
		}
	}

	if !metaFound {
		return nil, fmt.Errorf("archive: missing %s", metadataName)
	}
	if err := meta.validate(); err != nil {
		return nil, err
	}
	if meta.UUID != root {
		return nil, fmt.Errorf("archive: root %s does not match metadata uuid %s", root, meta.UUID)
	}
	return &Archive{meta: meta, files: files}, nil
}

// ReadFile parses an archive from a file on disk.
func ReadFile(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return Read(f, info.Size())
}

// Metadata returns the archive's parsed metadata.
func (a *Archive) Metadata() Metadata { return a.meta }

// Files returns the sorted data/-relative payload names.
func (a *Archive) Files() []string {
	out := make([]string, 0, len(a.files))
	for name := range a.files {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Open returns a reader over one payload file.
func (a *Archive) Open(rel string) (io.ReadCloser, error) {
	f, ok := a.files[rel]
	if !ok {
		return nil, fmt.Errorf("archive: no payload file %s", rel)
	}
	return f.Open()
}

// Extract materializes the payload tree beneath dir.
func (a *Archive) Extract(dir string) error {
	for rel, f := range a.files {
		clean, err := sanitizeRel(rel)
		if err != nil {
			return err
		}
		dst := filepath.Join(dir, filepath.FromSlash(clean))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		out, err := os.Create(dst)
		if err != nil {
			_ = rc.Close()
			return err
		}
		_, copyErr := io.Copy(out, rc)
		_ = rc.Close()
		closeErr := out.Close()
		if copyErr != nil {
			return copyErr
		}
		if closeErr != nil {
			return closeErr
		}
	}
	return nil
}

// sanitizeRel rejects payload names that would escape the data root.
func sanitizeRel(rel string) (string, error) {
	if strings.TrimSpace(rel) == "" {
		return "", fmt.Errorf("archive: empty payload name")
	}
	if strings.HasPrefix(rel, "/") {
		return "", fmt.Errorf("archive: absolute payload name %q", rel)
	}
	clean := path.Clean(filepath.ToSlash(rel))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("archive: payload name %q escapes the data root", rel)
	}
	return clean, nil
}
