package blob

import (
	"encoding/binary"
	"io"

	"github.com/cockroachdb/errors"

	"github.com/oy3o/typecodec"
)

// Record is the positional binary form of one value: one slot per schema
// field, in schema order. On the wire every field is a presence byte
// followed, when present, by its payload. Fixed-width kinds are stored
// big-endian; string, bytes and object payloads carry a uvarint length.
//
// A Record is not safe for concurrent use.
type Record struct {
	schema  *typecodec.Schema
	slots   [][]byte
	present []bool
	depth   int
	err     error
}

var (
	_ typecodec.Record = (*Record)(nil)
	_ Codec            = (*Record)(nil)
)

// NewRecord creates an empty record for schema. Every field starts absent.
func NewRecord(schema *typecodec.Schema) *Record {
	return &Record{
		schema:  schema,
		slots:   make([][]byte, schema.NumFields()),
		present: make([]bool, schema.NumFields()),
	}
}

func (r *Record) Schema() *typecodec.Schema { return r.schema }
func (r *Record) Err() error                { return r.err }

func (r *Record) setError(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}

// Reset clears every slot and the latched error so the record can be reused.
// The nesting depth is kept.
func (r *Record) Reset() {
	clear(r.slots)
	clear(r.present)
	r.err = nil
}

// Present reports whether the named field holds a value.
func (r *Record) Present(field string) bool {
	pos := r.schema.Position(field)
	return pos >= 0 && r.present[pos]
}

// position resolves field, latching ErrUnknownField when the schema lacks it.
func (r *Record) position(field string) int {
	pos := r.schema.Position(field)
	if pos < 0 {
		r.setError(errors.Wrapf(typecodec.ErrUnknownField, "%s.%s", r.schema.Name(), field))
	}
	return pos
}

func (r *Record) set(pos int, payload []byte) {
	r.slots[pos] = payload
	r.present[pos] = true
}

func (r *Record) clearSlot(pos int) {
	r.slots[pos] = nil
	r.present[pos] = false
}

func (r *Record) get(pos int) ([]byte, bool) {
	return r.slots[pos], r.present[pos]
}

// Size returns the encoded size of the record in bytes.
func (r *Record) Size() int {
	size := 0
	for i := range r.slots {
		size++
		if !r.present[i] {
			continue
		}
		n := len(r.slots[i])
		if fixedWidth(r.schema.Field(i).Type) < 0 {
			size += uvarintSize(n)
		}
		size += n
	}
	return size
}

// WriteTo implements io.WriterTo.
func (r *Record) WriteTo(writer io.Writer) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	w, err := NewWriter(writer)
	if err != nil {
		return 0, err
	}
	for i, payload := range r.slots {
		w.WriteBool(r.present[i])
		if !r.present[i] {
			continue
		}
		if fixedWidth(r.schema.Field(i).Type) < 0 {
			w.WriteUvarint(uint64(len(payload)))
		}
		w.WriteBytes(payload)
	}
	return w.Result()
}

// Presence markers.
const (
	flagAbsent  byte = 0
	flagPresent byte = 1
)

// ReadFrom implements io.ReaderFrom. The record is reset first. A *BytesReader
// source is decoded in place: slots alias its buffer until the next Reset.
// Any other reader that is not an in-memory source is buffered and may be
// read past the record.
func (r *Record) ReadFrom(reader io.Reader) (int64, error) {
	if br, ok := reader.(*BytesReader); ok {
		n, err := r.decode(br.B[br.N:])
		br.N += n
		return int64(n), err
	}

	r.Reset()
	rd, err := NewReader(reader)
	if err != nil {
		return 0, err
	}
	for i := range r.slots {
		f := r.schema.Field(i)
		var flag uint8
		rd.ReadUint8(&flag)
		if rd.Err() != nil || flag == flagAbsent {
			continue
		}
		if flag != flagPresent {
			return rd.Count(), r.fail(errors.Wrapf(ErrMalformedField, "%s.%s: presence byte 0x%02x", r.schema.Name(), f.Name, flag))
		}
		n := fixedWidth(f.Type)
		if n < 0 {
			var length uint64
			rd.ReadUvarint(&length)
			if rd.Err() != nil {
				continue
			}
			if length > MaxFieldSize {
				return rd.Count(), r.fail(errors.Wrapf(ErrFieldTooLarge, "%s.%s: %d bytes", r.schema.Name(), f.Name, length))
			}
			n = int(length)
		}
		payload := rd.ReadBytes(n)
		if rd.Err() == nil {
			r.set(i, payload)
		}
	}
	n, err := rd.Result()
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	if err != nil {
		return n, r.fail(err)
	}
	return n, nil
}

// decode parses one record from the front of data and returns the number of
// bytes consumed. Payloads are sub-slices of data.
func (r *Record) decode(data []byte) (int, error) {
	r.Reset()
	off := 0
	for i := range r.slots {
		f := r.schema.Field(i)
		if off >= len(data) {
			return off, r.fail(io.ErrUnexpectedEOF)
		}
		flag := data[off]
		off++
		if flag == flagAbsent {
			continue
		}
		if flag != flagPresent {
			return off, r.fail(errors.Wrapf(ErrMalformedField, "%s.%s: presence byte 0x%02x", r.schema.Name(), f.Name, flag))
		}
		n := fixedWidth(f.Type)
		if n < 0 {
			length, k := binary.Uvarint(data[off:])
			switch {
			case k == 0:
				return len(data), r.fail(io.ErrUnexpectedEOF)
			case k < 0:
				return off, r.fail(errors.Wrapf(ErrMalformedField, "%s.%s: length overflows uint64", r.schema.Name(), f.Name))
			}
			off += k
			if length > MaxFieldSize {
				return off, r.fail(errors.Wrapf(ErrFieldTooLarge, "%s.%s: %d bytes", r.schema.Name(), f.Name, length))
			}
			n = int(length)
		}
		if len(data)-off < n {
			return len(data), r.fail(io.ErrUnexpectedEOF)
		}
		r.set(i, data[off:off+n:off+n])
		off += n
	}
	return off, nil
}

// decodeExact is decode for a nested payload, which must hold exactly one record.
func (r *Record) decodeExact(data []byte) error {
	n, err := r.decode(data)
	if err != nil {
		return err
	}
	if n != len(data) {
		return r.fail(errors.Wrapf(ErrMalformedField, "%d bytes after nested record %s", len(data)-n, r.schema.Name()))
	}
	return nil
}

// fail latches err with the record's type name and returns it.
func (r *Record) fail(err error) error {
	err = errors.Wrapf(err, "blob: read record %s", r.schema.Name())
	r.setError(err)
	return err
}

func (r *Record) MarshalBinary() ([]byte, error) {
	return MarshalBinaryGeneric(r)
}

func (r *Record) UnmarshalBinary(data []byte) error {
	return UnmarshalBinaryGeneric(r, data)
}

func (r *Record) MarshalTo(buf []byte) (int, error) {
	return MarshalToGeneric(r, buf)
}
