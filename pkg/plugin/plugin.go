// Package plugin defines the plugin object and its registration surface.
// A plugin accumulates semantic types, formats, type-to-format bindings
// and transformers; the process-wide manager in the sdk package exposes
// registered plugins to consumers such as the test harness.
package plugin

import (
	"fmt"
	"reflect"

	"github.com/xpingli/qiime2/pkg/format"
	"github.com/xpingli/qiime2/pkg/types"
)

// Transformer converts a value between two registered representations.
type Transformer func(in any) (any, error)

// TransformKey identifies a transformer by its endpoint Go types.
type TransformKey struct {
	From reflect.Type
	To   reflect.Type
}

// TransformerRecord associates a transformer with its endpoints and owner.
type TransformerRecord struct {
	From        reflect.Type
	To          reflect.Type
	Transformer Transformer
	Plugin      *Plugin
}

// TypeRecord associates a registered semantic type with its owner.
type TypeRecord struct {
	SemanticType types.SemanticType
	Plugin       *Plugin
}

// TypeFormatRecord binds a semantic type expression to a storage format.
type TypeFormatRecord struct {
	TypeExpression types.SemanticType
	Format         format.Descriptor
	Plugin         *Plugin
}

// Config carries the static identity of a plugin.
type Config struct {
	Name    string
	Version string
	Website string
	// Package is the import-path-style identifier whose top-level segment
	// the test harness matches against.
	Package string
	// DataDir points at the plugin's bundled data resources; relative
	// lookups such as "data/ints.txt" resolve beneath it.
	DataDir string
}

// Plugin is a registered extension unit contributing types, formats and
// transformers.
type Plugin struct {
	cfg Config

	transformers  map[TransformKey]TransformerRecord
	semanticTypes map[string]TypeRecord
	formats       map[string]format.Descriptor
	formatsByType map[reflect.Type]format.Descriptor
	typeFormats   []TypeFormatRecord
}

// New constructs an empty plugin from its static identity.
func New(cfg Config) *Plugin {
	return &Plugin{
		cfg:           cfg,
		transformers:  make(map[TransformKey]TransformerRecord),
		semanticTypes: make(map[string]TypeRecord),
		formats:       make(map[string]format.Descriptor),
		formatsByType: make(map[reflect.Type]format.Descriptor),
	}
}

// Name returns the plugin name used as the manager registry key.
func (p *Plugin) Name() string { return p.cfg.Name }

// Version returns the plugin semantic version.
func (p *Plugin) Version() string { return p.cfg.Version }

// Website returns the plugin project URL.
func (p *Plugin) Website() string { return p.cfg.Website }

// Package returns the package identifier the plugin claims.
func (p *Plugin) Package() string { return p.cfg.Package }

// DataDir returns the root of the plugin's bundled data resources.
func (p *Plugin) DataDir() string { return p.cfg.DataDir }

// RegisterSemanticType records a semantic type under its own name.
func (p *Plugin) RegisterSemanticType(st types.SemanticType) error {
	if st.Name() == "" {
		return fmt.Errorf("semantic type requires a name")
	}
	if _, exists := p.semanticTypes[st.Name()]; exists {
		return fmt.Errorf("semantic type %s already registered", st.Name())
	}
	p.semanticTypes[st.Name()] = TypeRecord{SemanticType: st, Plugin: p}
	return nil
}

// RegisterFormat records a constructible format descriptor.
func (p *Plugin) RegisterFormat(desc format.Descriptor) error {
	if desc.Name == "" {
		return fmt.Errorf("format descriptor requires a name")
	}
	if desc.Open == nil {
		return fmt.Errorf("format %s requires an Open constructor", desc.Name)
	}
	if !desc.IsFormat() {
		return fmt.Errorf("format %s type %v does not implement format.Format", desc.Name, desc.Type)
	}
	if _, exists := p.formats[desc.Name]; exists {
		return fmt.Errorf("format %s already registered", desc.Name)
	}
	p.formats[desc.Name] = desc
	p.formatsByType[desc.Type] = desc
	return nil
}

// RegisterSemanticTypeToFormat binds a semantic type expression to a
// previously registered format.
func (p *Plugin) RegisterSemanticTypeToFormat(st types.SemanticType, formatName string) error {
	if st.IsZero() {
		return fmt.Errorf("type-to-format binding requires a semantic type")
	}
	desc, ok := p.formats[formatName]
	if !ok {
		return fmt.Errorf("format %s is not registered on plugin %s", formatName, p.cfg.Name)
	}
	p.typeFormats = append(p.typeFormats, TypeFormatRecord{
		TypeExpression: st,
		Format:         desc,
		Plugin:         p,
	})
	return nil
}

// RegisterTransformer records a transformer for the (from, to) type pair.
func (p *Plugin) RegisterTransformer(from, to reflect.Type, fn Transformer) error {
	if from == nil || to == nil {
		return fmt.Errorf("transformer endpoints must be non-nil types")
	}
	if fn == nil {
		return fmt.Errorf("transformer from %s to %s requires a function", from, to)
	}
	key := TransformKey{From: from, To: to}
	if _, exists := p.transformers[key]; exists {
		return fmt.Errorf("transformer from %s to %s already registered", from, to)
	}
	p.transformers[key] = TransformerRecord{From: from, To: to, Transformer: fn, Plugin: p}
	return nil
}

// Transformer returns the record for the (from, to) pair when registered.
func (p *Plugin) Transformer(from, to reflect.Type) (TransformerRecord, bool) {
	rec, ok := p.transformers[TransformKey{From: from, To: to}]
	return rec, ok
}

// Transformers returns a copy of the transformer registry.
func (p *Plugin) Transformers() map[TransformKey]TransformerRecord {
	out := make(map[TransformKey]TransformerRecord, len(p.transformers))
	for k, v := range p.transformers {
		out[k] = v
	}
	return out
}

// Type returns the record registered under name.
func (p *Plugin) Type(name string) (TypeRecord, bool) {
	rec, ok := p.semanticTypes[name]
	return rec, ok
}

// Types returns a copy of the semantic type registry keyed by name.
func (p *Plugin) Types() map[string]TypeRecord {
	out := make(map[string]TypeRecord, len(p.semanticTypes))
	for k, v := range p.semanticTypes {
		out[k] = v
	}
	return out
}

// Format returns the descriptor registered under name.
func (p *Plugin) Format(name string) (format.Descriptor, bool) {
	desc, ok := p.formats[name]
	return desc, ok
}

// FormatForType returns the descriptor registered for the Go type.
func (p *Plugin) FormatForType(t reflect.Type) (format.Descriptor, bool) {
	desc, ok := p.formatsByType[t]
	return desc, ok
}

// Formats returns a copy of the format registry keyed by name.
func (p *Plugin) Formats() map[string]format.Descriptor {
	out := make(map[string]format.Descriptor, len(p.formats))
	for k, v := range p.formats {
		out[k] = v
	}
	return out
}

// TypeFormats returns a copy of the ordered type-to-format bindings.
func (p *Plugin) TypeFormats() []TypeFormatRecord {
	return append([]TypeFormatRecord(nil), p.typeFormats...)
}
