package typecodec

import "github.com/cockroachdb/errors"

// Encoder is the write side handed to Definition.Encode. It is the only way
// a definition touches a record. Like the stream writers it tracks the first
// error; after an error every helper becomes a no-op.
type Encoder struct {
	fw      FrameworkSerializer
	rec     Record
	schema  *Schema
	written []bool
	err     error
}

func newEncoder(fw FrameworkSerializer, rec Record, schema *Schema) *Encoder {
	return &Encoder{
		fw:      fw,
		rec:     rec,
		schema:  schema,
		written: make([]bool, schema.NumFields()),
	}
}

// Err returns the first error encountered by a helper.
func (e *Encoder) Err() error { return e.err }

func (e *Encoder) setError(err error) {
	if e.err == nil && err != nil {
		e.err = err
	}
}

// claim checks that field is declared with kind t and not yet written.
func (e *Encoder) claim(field string, t FieldType) bool {
	if e.err != nil {
		return false
	}
	pos := e.schema.Position(field)
	if pos < 0 {
		e.setError(errors.Wrapf(ErrUnknownField, "%s.%s", e.schema.Name(), field))
		return false
	}
	if declared := e.schema.Field(pos).Type; declared != t {
		e.setError(errors.Wrapf(ErrFieldTypeMismatch, "%s.%s: declared %s, written as %s", e.schema.Name(), field, declared, t))
		return false
	}
	if e.written[pos] {
		e.setError(errors.Wrapf(ErrFieldWrittenTwice, "%s.%s", e.schema.Name(), field))
		return false
	}
	e.written[pos] = true
	return true
}

func (e *Encoder) WriteBool(field string, v bool) {
	if e.claim(field, FieldBool) {
		e.fw.WriteBool(e.rec, field, v)
	}
}

func (e *Encoder) WriteInt(field string, v int32) {
	if e.claim(field, FieldInt) {
		e.fw.WriteInt(e.rec, field, v)
	}
}

func (e *Encoder) WriteLong(field string, v int64) {
	if e.claim(field, FieldLong) {
		e.fw.WriteLong(e.rec, field, v)
	}
}

func (e *Encoder) WriteFloat(field string, v float32) {
	if e.claim(field, FieldFloat) {
		e.fw.WriteFloat(e.rec, field, v)
	}
}

func (e *Encoder) WriteDouble(field string, v float64) {
	if e.claim(field, FieldDouble) {
		e.fw.WriteDouble(e.rec, field, v)
	}
}

func (e *Encoder) WriteString(field string, v string) {
	if e.claim(field, FieldString) {
		e.fw.WriteString(e.rec, field, v)
	}
}

// WriteBytes writes a byte array. A nil slice is written as absent,
// an empty non-nil slice as present and empty.
func (e *Encoder) WriteBytes(field string, v []byte) {
	if !e.claim(field, FieldBytes) {
		return
	}
	if v == nil {
		e.fw.WriteAbsent(e.rec, field)
		return
	}
	e.fw.WriteBytes(e.rec, field, v)
}

// WriteObject writes a nested value through the serializer registered under
// typeName. A nil v is written as absent. Fields declared with a type name
// only accept that name.
func (e *Encoder) WriteObject(field, typeName string, v any) {
	if !e.claim(field, FieldObject) {
		return
	}
	if err := checkTypeName(e.schema, field, typeName); err != nil {
		e.setError(err)
		return
	}
	if v == nil {
		e.fw.WriteAbsent(e.rec, field)
		return
	}
	e.fw.WriteObject(e.rec, field, typeName, v)
}

// WriteAbsent explicitly marks a field of any kind as absent.
func (e *Encoder) WriteAbsent(field string) {
	if e.err != nil {
		return
	}
	pos := e.schema.Position(field)
	if pos < 0 {
		e.claim(field, 0)
		return
	}
	if e.claim(field, e.schema.Field(pos).Type) {
		e.fw.WriteAbsent(e.rec, field)
	}
}

// finish writes absent markers for every field the definition skipped, in
// schema order, so each declared field is written exactly once.
func (e *Encoder) finish() error {
	if e.err != nil {
		return e.err
	}
	for i, done := range e.written {
		if !done {
			e.written[i] = true
			e.fw.WriteAbsent(e.rec, e.schema.Field(i).Name)
		}
	}
	return e.rec.Err()
}
