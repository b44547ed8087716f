package typecodec

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// FieldType is the closed set of field kinds a schema can declare.
type FieldType uint8

const (
	FieldObject FieldType = iota // reference to a value owned by another serializer
	FieldBool
	FieldInt    // int32
	FieldLong   // int64
	FieldFloat  // float32
	FieldDouble // float64
	FieldString
	FieldBytes

	numFieldTypes
)

var fieldTypeNames = [numFieldTypes]string{
	FieldObject: "object",
	FieldBool:   "bool",
	FieldInt:    "int",
	FieldLong:   "long",
	FieldFloat:  "float",
	FieldDouble: "double",
	FieldString: "string",
	FieldBytes:  "bytes",
}

// Valid reports whether t is one of the declared field kinds.
func (t FieldType) Valid() bool { return t < numFieldTypes }

func (t FieldType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("FieldType(%d)", uint8(t))
	}
	return fieldTypeNames[t]
}

// Field describes one named, typed slot of a schema.
type Field struct {
	Name string
	Type FieldType
	// TypeName is the serializer name an object field refers to.
	// Empty means the referenced type is chosen per value.
	TypeName string
}

// NewField creates a field descriptor. Validation happens in NewSchema.
func NewField(name string, t FieldType) Field {
	return Field{Name: name, Type: t}
}

// ObjectField creates an object-reference field pointing at the serializer named typeName.
func ObjectField(name, typeName string) Field {
	return Field{Name: name, Type: FieldObject, TypeName: typeName}
}

func (f Field) String() string {
	if f.Type == FieldObject && f.TypeName != "" {
		return f.Name + ":" + f.TypeName
	}
	return f.Name + ":" + f.Type.String()
}

// Schema is the ordered, immutable field list describing a type's record shape.
// Field order is the canonical order used by record formats.
type Schema struct {
	name   string
	fields []Field
	index  map[string]int
}

// NewSchema builds a schema from fields, preserving their order.
// It rejects empty names, duplicate field names and unknown field kinds.
func NewSchema(typeName string, fields ...Field) (*Schema, error) {
	if typeName == "" {
		return nil, ErrEmptySchemaName
	}
	s := &Schema{
		name:   typeName,
		fields: make([]Field, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		if f.Name == "" {
			return nil, errors.Wrapf(ErrEmptyFieldName, "schema %s, field #%d", typeName, i)
		}
		if !f.Type.Valid() {
			return nil, errors.Wrapf(ErrInvalidFieldType, "schema %s, field %s: %s", typeName, f.Name, f.Type)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, errors.Wrapf(ErrDuplicateField, "schema %s, field %s", typeName, f.Name)
		}
		if f.Type != FieldObject {
			f.TypeName = ""
		}
		s.fields[i] = f
		s.index[f.Name] = i
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on error.
func MustSchema(typeName string, fields ...Field) *Schema {
	s, err := NewSchema(typeName, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Name() string      { return s.name }
func (s *Schema) NumFields() int    { return len(s.fields) }
func (s *Schema) Field(i int) Field { return s.fields[i] }

// Fields returns a copy of the field list.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Position returns the index of the named field, or -1.
func (s *Schema) Position(name string) int {
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

// Lookup returns the named field.
func (s *Schema) Lookup(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// ReferencedTypes returns the distinct type names referenced by object
// fields, in field order. Dynamically typed object fields are skipped.
func (s *Schema) ReferencedTypes() []string {
	var names []string
	seen := make(map[string]struct{})
	for _, f := range s.fields {
		if f.Type != FieldObject || f.TypeName == "" {
			continue
		}
		if _, ok := seen[f.TypeName]; ok {
			continue
		}
		seen[f.TypeName] = struct{}{}
		names = append(names, f.TypeName)
	}
	return names
}

// Equal reports whether both schemas have the same name and field sequence.
func (s *Schema) Equal(o *Schema) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil || s.name != o.name || len(s.fields) != len(o.fields) {
		return false
	}
	for i := range s.fields {
		if s.fields[i] != o.fields[i] {
			return false
		}
	}
	return true
}

func (s *Schema) String() string {
	var b strings.Builder
	b.WriteString(s.name)
	b.WriteByte('{')
	for i, f := range s.fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.String())
	}
	b.WriteByte('}')
	return b.String()
}

// checkTypeName reports ErrFieldTypeMismatch when the object field declares
// a type name other than typeName. Dynamic fields accept any name.
func checkTypeName(s *Schema, field, typeName string) error {
	f, _ := s.Lookup(field)
	if f.TypeName == "" || f.TypeName == typeName {
		return nil
	}
	return errors.Wrapf(ErrFieldTypeMismatch, "%s.%s: declared %s, used as %s", s.Name(), field, f.TypeName, typeName)
}
