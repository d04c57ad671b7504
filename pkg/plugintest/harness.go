// Package plugintest provides the per-test harness plugin suites build
// on. A harness binds the test to its owning registered plugin, stages
// bundled data files into a scoped temp directory, and offers assertion
// helpers for semantic type, format and transformer registrations.
package plugintest

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/xpingli/qiime2/internal/resource"
	"github.com/xpingli/qiime2/pkg/format"
	"github.com/xpingli/qiime2/pkg/plugin"
	"github.com/xpingli/qiime2/pkg/types"
	"github.com/xpingli/qiime2/sdk"
)

// DefaultTempPrefix names the harness temp directories.
const DefaultTempPrefix = "qiime2-plugin"

// Harness carries per-test state: the resolved plugin and an exclusively
// owned temp directory removed on every exit path.
type Harness struct {
	T       *testing.T
	Package string
	Plugin  *plugin.Plugin
	TempDir string
}

// Option adjusts harness construction.
type Option func(*config)

type config struct {
	prefix string
}

// WithTempPrefix overrides the temp directory prefix.
func WithTempPrefix(prefix string) Option {
	return func(c *config) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// topSegment extracts the leading package segment; both slash and dot
// separated identifiers are accepted.
func topSegment(pkg string) string {
	fields := strings.FieldsFunc(pkg, func(r rune) bool {
		return r == '/' || r == '.'
	})
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// resolvePlugin matches the top-level segment of pkg against the
// packages claimed by registered plugins.
func resolvePlugin(pkg string) (*plugin.Plugin, error) {
	if strings.TrimSpace(pkg) == "" {
		return nil, fmt.Errorf("plugin test harness must declare a package")
	}
	top := topSegment(pkg)
	if top == "" {
		return nil, fmt.Errorf("plugin test harness must declare a package")
	}

	// Plugins are keyed by their names, so a scan over the manager view is
	// required to match the owning plugin by package.
	var bound *plugin.Plugin
	for _, p := range sdk.Manager().Plugins() {
		if topSegment(p.Package()) == top {
			bound = p
		}
	}
	if bound == nil {
		return nil, fmt.Errorf("%s is not a registered plugin package", top)
	}
	return bound, nil
}

// Setup resolves the owning plugin for pkg and creates the temp
// directory. Missing package and unresolvable plugins fail the test
// immediately. Teardown is registered via t.Cleanup so the directory is
// removed even when the test body fails.
func Setup(t *testing.T, pkg string, opts ...Option) *Harness {
	t.Helper()

	cfg := config{prefix: DefaultTempPrefix}
	for _, opt := range opts {
		opt(&cfg)
	}

	bound, err := resolvePlugin(pkg)
	if err != nil {
		t.Fatalf("%v", err)
	}

	dir, err := os.MkdirTemp("", cfg.prefix+"-test-temp-")
	if err != nil {
		t.Fatalf("create harness temp dir: %v", err)
	}

	h := &Harness{T: t, Package: pkg, Plugin: bound, TempDir: dir}
	t.Cleanup(h.Teardown)
	return h
}

// Teardown removes the temp directory and all contents. Safe to call more
// than once; Setup also registers it with t.Cleanup.
func (h *Harness) Teardown() {
	if h.TempDir == "" {
		return
	}
	_ = os.RemoveAll(h.TempDir)
	h.TempDir = ""
}

// DataPath resolves a bundled data file of the bound plugin to an
// absolute path.
func (h *Harness) DataPath(filename string) string {
	h.T.Helper()
	p, err := resource.Filename(h.Plugin.DataDir(), path.Join("data", filename))
	if err != nil {
		h.T.Fatalf("resolve data file %s: %v", filename, err)
	}
	return p
}

// Transformer returns the transformer registered for the (from, to) pair,
// failing the test with both type names when none exists.
func (h *Harness) Transformer(from, to reflect.Type) plugin.Transformer {
	h.T.Helper()
	rec, ok := h.Plugin.Transformer(from, to)
	if !ok {
		h.T.Fatalf("could not find registered transformer from %s to %s", typeName(from), typeName(to))
	}
	return rec.Transformer
}

// AssertRegisteredSemanticType verifies st is registered under its own
// name and that the registered expression matches exactly.
func (h *Harness) AssertRegisteredSemanticType(st types.SemanticType) {
	h.T.Helper()
	rec, ok := h.Plugin.Type(st.Name())
	if !ok {
		h.T.Fatalf("semantic type %s is not registered on plugin %s", st, h.Plugin.Name())
	}
	if !rec.SemanticType.Equal(st) {
		h.T.Fatalf("registered semantic type %s does not match %s", rec.SemanticType, st)
	}
}

// AssertSemanticTypeRegisteredToFormat verifies the plugin binds st to
// expFormat.
func (h *Harness) AssertSemanticTypeRegisteredToFormat(st types.SemanticType, expFormat format.Descriptor) {
	h.T.Helper()
	var obs format.Descriptor
	found := false
	for _, rec := range h.Plugin.TypeFormats() {
		if rec.TypeExpression.Equal(st) {
			obs = rec.Format
			found = true
			break
		}
	}
	if !found {
		h.T.Fatalf("semantic type %s is not registered to a format", st)
	}
	if obs.Name != expFormat.Name || obs.Type != expFormat.Type {
		h.T.Fatalf("expected semantic type %s to be registered to format %s, not %s",
			st, expFormat.Name, obs.Name)
	}
}

// TransformOption configures TransformFormat input staging.
type TransformOption func(*transformConfig)

type transformConfig struct {
	filename  string
	filenames []string
}

// WithDataFile stages a single bundled data file as the source path.
func WithDataFile(name string) TransformOption {
	return func(c *transformConfig) { c.filename = name }
}

// WithDataFiles copies the named bundled data files into the harness temp
// directory, which becomes the source path.
func WithDataFiles(names ...string) TransformOption {
	return func(c *transformConfig) { c.filenames = append(c.filenames, names...) }
}

// TransformFormat opens a read-mode instance of the source format, runs
// the registered transformer to target, and asserts the result shape: a
// path string or target instance when target is itself a format type, an
// assignable value otherwise. Returns the input instance and the result.
//
// Two misuses panic rather than failing the test, since they are errors
// in the test itself: a source descriptor that does not describe a
// format, and supplying both WithDataFile and WithDataFiles.
func (h *Harness) TransformFormat(source format.Descriptor, target reflect.Type, opts ...TransformOption) (format.Format, any) {
	h.T.Helper()

	if !source.IsFormat() {
		panic(fmt.Sprintf("plugintest: source descriptor %s must describe a format.Format implementation", source.Name))
	}

	var cfg transformConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.filename != "" && len(cfg.filenames) > 0 {
		panic("plugintest: WithDataFile and WithDataFiles cannot be combined")
	}

	var sourcePath string
	switch {
	case cfg.filename != "":
		sourcePath = h.DataPath(cfg.filename)
	case len(cfg.filenames) > 0:
		sourcePath = h.TempDir
		for _, name := range cfg.filenames {
			h.stageDataFile(name)
		}
	}

	input, err := source.Open(sourcePath, format.ModeRead)
	if err != nil {
		h.T.Fatalf("open %s at %q for read: %v", source.Name, sourcePath, err)
	}

	transformer := h.Transformer(source.Type, target)
	obs, err := transformer(input)
	if err != nil {
		h.T.Fatalf("transform %s to %s: %v", source.Name, typeName(target), err)
	}

	if format.IsFormatType(target) {
		switch v := obs.(type) {
		case string:
			// Path-like results are acceptable for format targets.
		default:
			if obs == nil || !reflect.TypeOf(v).AssignableTo(target) {
				h.T.Fatalf("expected transformation result to be a path or %s instance, got %T", typeName(target), obs)
			}
		}
	} else {
		if obs == nil || !reflect.TypeOf(obs).AssignableTo(target) {
			h.T.Fatalf("expected transformation result of type %s, got %T", typeName(target), obs)
		}
	}

	return input, obs
}

// stageDataFile copies one bundled data file into the temp directory.
func (h *Harness) stageDataFile(name string) {
	h.T.Helper()
	src := h.DataPath(name)
	dst := filepath.Join(h.TempDir, filepath.Base(name))

	in, err := os.Open(src)
	if err != nil {
		h.T.Fatalf("stage data file %s: %v", name, err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		h.T.Fatalf("stage data file %s: %v", name, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		h.T.Fatalf("stage data file %s: %v", name, err)
	}
	if err := out.Close(); err != nil {
		h.T.Fatalf("stage data file %s: %v", name, err)
	}
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
