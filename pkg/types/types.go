// Package types models the semantic type tags the framework uses to
// classify data artifacts. A semantic type is a name plus optional field
// types; plugins register them and bind them to on-disk formats.
package types

import "strings"

// SemanticType is an immutable semantic type expression.
type SemanticType struct {
	name   string
	fields []SemanticType
}

// Semantic constructs a semantic type with the given name.
func Semantic(name string) SemanticType {
	return SemanticType{name: name}
}

// Field returns a copy of the type with the given field types applied.
// The receiver is not modified.
func (t SemanticType) Field(fields ...SemanticType) SemanticType {
	cp := SemanticType{name: t.name}
	cp.fields = append(append([]SemanticType(nil), t.fields...), fields...)
	return cp
}

// Name returns the bare type name without field decorations.
func (t SemanticType) Name() string { return t.name }

// Fields returns a copy of the applied field types.
func (t SemanticType) Fields() []SemanticType {
	return append([]SemanticType(nil), t.fields...)
}

// IsZero reports whether the expression is the empty value.
func (t SemanticType) IsZero() bool { return t.name == "" && len(t.fields) == 0 }

// Equal reports structural equality of two type expressions.
func (t SemanticType) Equal(other SemanticType) bool {
	if t.name != other.name || len(t.fields) != len(other.fields) {
		return false
	}
	for i := range t.fields {
		if !t.fields[i].Equal(other.fields[i]) {
			return false
		}
	}
	return true
}

// String renders the expression as Name[Field1, Field2].
func (t SemanticType) String() string {
	if len(t.fields) == 0 {
		return t.name
	}
	parts := make([]string, len(t.fields))
	for i, f := range t.fields {
		parts[i] = f.String()
	}
	return t.name + "[" + strings.Join(parts, ", ") + "]"
}
