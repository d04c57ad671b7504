package dummy

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/xpingli/qiime2/pkg/format"
)

func TestPluginRegistrations(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("build plugin: %v", err)
	}

	if p.Name() != "dummy-plugin" || p.Package() != "dummy" {
		t.Fatalf("unexpected identity: %s %s", p.Name(), p.Package())
	}
	if p.DataDir() == "" {
		t.Fatalf("expected bundled data dir")
	}
	if _, err := os.Stat(filepath.Join(p.DataDir(), "data", "ints.txt")); err != nil {
		t.Fatalf("bundled data should exist: %v", err)
	}

	for _, name := range []string{"IntSequence1", "IntSequence2", "Mapping"} {
		if _, ok := p.Type(name); !ok {
			t.Fatalf("expected semantic type %s", name)
		}
	}
	for _, name := range []string{"IntSequenceFormat", "IntSequenceDirectoryFormat", "MappingFormat"} {
		if _, ok := p.Format(name); !ok {
			t.Fatalf("expected format %s", name)
		}
	}
	if got := len(p.TypeFormats()); got != 3 {
		t.Fatalf("expected three type-format bindings, got %d", got)
	}
	if got := len(p.Transformers()); got != 5 {
		t.Fatalf("expected five transformers, got %d", got)
	}
}

func TestIntSequenceFormatReadAndValidate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ints.txt")
	if err := os.WriteFile(path, []byte("1\n2\n\n3\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	desc := IntSequenceFormatDescriptor()
	f, err := desc.Open(path, format.ModeRead)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	seq := f.(*IntSequenceFormat)
	if err := seq.Validate(format.LevelMax); err != nil {
		t.Fatalf("validate: %v", err)
	}
	values, err := seq.ReadInts()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(values, []int{1, 2, 3}) {
		t.Fatalf("unexpected values: %v", values)
	}
}

func TestIntSequenceFormatRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.txt")
	if err := os.WriteFile(path, []byte("1\nnope\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	f, err := IntSequenceFormatDescriptor().Open(path, format.ModeRead)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := f.Validate(format.LevelMax); err == nil {
		t.Fatalf("expected validation failure for non-integer line")
	}
}

func TestIntSequenceDirectoryFormatValidate(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ints.txt"), []byte("7\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	f, err := IntSequenceDirectoryFormatDescriptor().Open(dir, format.ModeRead)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := f.Validate(format.LevelMax); err != nil {
		t.Fatalf("validate: %v", err)
	}

	empty := t.TempDir()
	g, err := IntSequenceDirectoryFormatDescriptor().Open(empty, format.ModeRead)
	if err != nil {
		t.Fatalf("open empty: %v", err)
	}
	if err := g.Validate(format.LevelMax); err == nil {
		t.Fatalf("expected validation failure for missing ints.txt")
	}
}

func TestMappingFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mapping.tsv")
	if err := os.WriteFile(path, []byte("a\t1\nb\t2\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	f, err := MappingFormatDescriptor().Open(path, format.ModeRead)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	m := f.(*MappingFormat)
	got, err := m.ReadMapping()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got["a"] != "1" || got["b"] != "2" {
		t.Fatalf("unexpected mapping: %v", got)
	}

	if err := os.WriteFile(path, []byte("a\t1\textra\n"), 0o644); err != nil {
		t.Fatalf("rewrite fixture: %v", err)
	}
	if _, err := m.ReadMapping(); err == nil {
		t.Fatalf("expected error for three-column line")
	}
}

func TestTransformRoundTrip(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("build plugin: %v", err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "ints.txt")
	if err := os.WriteFile(path, []byte("5\n6\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	src, err := IntSequenceFormatDescriptor().Open(path, format.ModeRead)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	rec, ok := p.Transformer(reflect.TypeOf(&IntSequenceFormat{}), reflect.TypeOf([]int(nil)))
	if !ok {
		t.Fatalf("expected sequence-to-ints transformer")
	}
	out, err := rec.Transformer(src)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	values := out.([]int)
	if !reflect.DeepEqual(values, []int{5, 6}) {
		t.Fatalf("unexpected values: %v", values)
	}

	back, ok := p.Transformer(reflect.TypeOf([]int(nil)), reflect.TypeOf(&IntSequenceFormat{}))
	if !ok {
		t.Fatalf("expected ints-to-sequence transformer")
	}
	obs, err := back.Transformer(values)
	if err != nil {
		t.Fatalf("transform back: %v", err)
	}
	seq := obs.(*IntSequenceFormat)
	t.Cleanup(func() { _ = os.RemoveAll(filepath.Dir(seq.Path())) })
	data, err := os.ReadFile(seq.Path())
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "5\n6\n" {
		t.Fatalf("unexpected output: %q", data)
	}
}

func TestTransformersRejectWrongInput(t *testing.T) {
	if _, err := transformIntSequenceToInts(42); err == nil {
		t.Fatalf("expected input type error")
	}
	if _, err := transformDirectoryToIntSequencePath("nope"); err == nil {
		t.Fatalf("expected input type error")
	}
	if _, err := transformMappingToMap(nil); err == nil {
		t.Fatalf("expected input type error")
	}
	if _, err := transformIntsToIntSequence("nope"); err == nil {
		t.Fatalf("expected input type error")
	}
}
