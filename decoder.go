package typecodec

import (
	"reflect"

	"github.com/cockroachdb/errors"
)

// Decoder is the read side handed to Definition.Decode. Every ReadX helper
// returns an Optional whose absence means the field was not physically
// present; the ReadXOr variants substitute a default for absence.
type Decoder struct {
	fw     FrameworkDeserializer
	rec    Record
	schema *Schema
	err    error
}

func newDecoder(fw FrameworkDeserializer, rec Record, schema *Schema) *Decoder {
	return &Decoder{fw: fw, rec: rec, schema: schema}
}

// Err returns the first error encountered by a helper.
func (d *Decoder) Err() error { return d.err }

func (d *Decoder) setError(err error) {
	if d.err == nil && err != nil {
		d.err = err
	}
}

func (d *Decoder) check(field string, t FieldType) bool {
	if d.err != nil {
		return false
	}
	f, ok := d.schema.Lookup(field)
	if !ok {
		d.setError(errors.Wrapf(ErrUnknownField, "%s.%s", d.schema.Name(), field))
		return false
	}
	if f.Type != t {
		d.setError(errors.Wrapf(ErrFieldTypeMismatch, "%s.%s: declared %s, read as %s", d.schema.Name(), field, f.Type, t))
		return false
	}
	return true
}

func (d *Decoder) ReadBool(field string) Optional[bool] {
	if !d.check(field, FieldBool) {
		return None[bool]()
	}
	return optionalOf(d.fw.ReadBool(d.rec, field))
}

func (d *Decoder) ReadInt(field string) Optional[int32] {
	if !d.check(field, FieldInt) {
		return None[int32]()
	}
	return optionalOf(d.fw.ReadInt(d.rec, field))
}

func (d *Decoder) ReadLong(field string) Optional[int64] {
	if !d.check(field, FieldLong) {
		return None[int64]()
	}
	return optionalOf(d.fw.ReadLong(d.rec, field))
}

func (d *Decoder) ReadFloat(field string) Optional[float32] {
	if !d.check(field, FieldFloat) {
		return None[float32]()
	}
	return optionalOf(d.fw.ReadFloat(d.rec, field))
}

func (d *Decoder) ReadDouble(field string) Optional[float64] {
	if !d.check(field, FieldDouble) {
		return None[float64]()
	}
	return optionalOf(d.fw.ReadDouble(d.rec, field))
}

func (d *Decoder) ReadString(field string) Optional[string] {
	if !d.check(field, FieldString) {
		return None[string]()
	}
	return optionalOf(d.fw.ReadString(d.rec, field))
}

func (d *Decoder) ReadBytes(field string) Optional[[]byte] {
	if !d.check(field, FieldBytes) {
		return None[[]byte]()
	}
	return optionalOf(d.fw.ReadBytes(d.rec, field))
}

func (d *Decoder) ReadBoolOr(field string, def bool) bool        { return d.ReadBool(field).Or(def) }
func (d *Decoder) ReadIntOr(field string, def int32) int32       { return d.ReadInt(field).Or(def) }
func (d *Decoder) ReadLongOr(field string, def int64) int64      { return d.ReadLong(field).Or(def) }
func (d *Decoder) ReadFloatOr(field string, def float32) float32 { return d.ReadFloat(field).Or(def) }
func (d *Decoder) ReadDoubleOr(field string, def float64) float64 {
	return d.ReadDouble(field).Or(def)
}
func (d *Decoder) ReadStringOr(field string, def string) string { return d.ReadString(field).Or(def) }
func (d *Decoder) ReadBytesOr(field string, def []byte) []byte  { return d.ReadBytes(field).Or(def) }

// ReadObjectValue reads a nested value without asserting its Go type.
func (d *Decoder) ReadObjectValue(field, typeName string) Optional[any] {
	if !d.check(field, FieldObject) {
		return None[any]()
	}
	if err := checkTypeName(d.schema, field, typeName); err != nil {
		d.setError(err)
		return None[any]()
	}
	return optionalOf(d.fw.ReadObject(d.rec, field, typeName))
}

// ReadObject reads a nested value decoded by the serializer registered under
// typeName and asserts it to X. A value of another type latches ErrTypeMismatch.
func ReadObject[X any](d *Decoder, field, typeName string) Optional[X] {
	v, ok := d.ReadObjectValue(field, typeName).Get()
	if !ok {
		return None[X]()
	}
	x, ok := v.(X)
	if !ok {
		d.setError(errors.Wrapf(ErrTypeMismatch, "%s.%s: got %T, want %s", d.schema.Name(), field, v, reflect.TypeFor[X]()))
		return None[X]()
	}
	return Some(x)
}
