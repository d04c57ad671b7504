// Package dummy implements the reference plugin used to exercise the
// plugin SDK and the plugintest harness end to end. It registers a pair
// of integer-sequence formats, a tab-separated mapping format, semantic
// types bound to them, and transformers between the representations.
package dummy

import (
	"fmt"
	"path/filepath"
	"reflect"
	"runtime"
	"sync"

	"github.com/xpingli/qiime2/pkg/format"
	"github.com/xpingli/qiime2/pkg/plugin"
	"github.com/xpingli/qiime2/pkg/types"
	"github.com/xpingli/qiime2/sdk"
)

// Semantic types contributed by the plugin.
var (
	IntSequence1 = types.Semantic("IntSequence1")
	IntSequence2 = types.Semantic("IntSequence2")
	Mapping      = types.Semantic("Mapping")
)

// dataDir resolves the plugin's bundled testdata directory relative to
// this source file.
func dataDir() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		panic("dummy: cannot resolve plugin source location")
	}
	return filepath.Join(filepath.Dir(file), "testdata")
}

// New builds the dummy plugin with every registration applied.
func New() (*plugin.Plugin, error) {
	p := plugin.New(plugin.Config{
		Name:    "dummy-plugin",
		Version: "0.0.1",
		Website: "https://github.com/xpingli/qiime2",
		Package: "dummy",
		DataDir: dataDir(),
	})

	for _, st := range []types.SemanticType{IntSequence1, IntSequence2, Mapping} {
		if err := p.RegisterSemanticType(st); err != nil {
			return nil, err
		}
	}

	for _, desc := range []format.Descriptor{
		IntSequenceFormatDescriptor(),
		IntSequenceDirectoryFormatDescriptor(),
		MappingFormatDescriptor(),
	} {
		if err := p.RegisterFormat(desc); err != nil {
			return nil, err
		}
	}

	bindings := []struct {
		st         types.SemanticType
		formatName string
	}{
		{IntSequence1, "IntSequenceFormat"},
		{IntSequence2, "IntSequenceDirectoryFormat"},
		{Mapping, "MappingFormat"},
	}
	for _, b := range bindings {
		if err := p.RegisterSemanticTypeToFormat(b.st, b.formatName); err != nil {
			return nil, err
		}
	}

	if err := registerTransformers(p); err != nil {
		return nil, err
	}
	return p, nil
}

func registerTransformers(p *plugin.Plugin) error {
	seqFormat := reflect.TypeOf(&IntSequenceFormat{})
	seqDirFormat := reflect.TypeOf(&IntSequenceDirectoryFormat{})
	mappingFormat := reflect.TypeOf(&MappingFormat{})
	intSlice := reflect.TypeOf([]int(nil))
	stringMap := reflect.TypeOf(map[string]string(nil))

	steps := []struct {
		from, to reflect.Type
		fn       plugin.Transformer
	}{
		{seqFormat, intSlice, transformIntSequenceToInts},
		{seqFormat, seqDirFormat, transformIntSequenceToDirectory},
		{seqDirFormat, seqFormat, transformDirectoryToIntSequencePath},
		{intSlice, seqFormat, transformIntsToIntSequence},
		{mappingFormat, stringMap, transformMappingToMap},
	}
	for _, s := range steps {
		if err := p.RegisterTransformer(s.from, s.to, s.fn); err != nil {
			return err
		}
	}
	return nil
}

var registerOnce sync.Once

// Register wires the plugin into the process-wide manager exactly once.
// Test suites call it from TestMain or test setup.
func Register() {
	registerOnce.Do(func() {
		p, err := New()
		if err != nil {
			panic(fmt.Sprintf("dummy: build plugin: %v", err))
		}
		sdk.Register(p)
	})
}
