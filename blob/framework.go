package blob

import (
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/oy3o/typecodec"
)

// Framework is the blob implementation of typecodec.Framework. It owns the
// registry used to resolve nested object type names, so every serializer
// registered through it is bound to it.
type Framework struct {
	registry *typecodec.Registry
	log      *zap.Logger
	maxDepth int
}

var _ typecodec.Framework = (*Framework)(nil)

// Option configures a Framework.
type Option func(*Framework)

// WithLogger sets the logger handed to the framework's registry.
func WithLogger(l *zap.Logger) Option {
	return func(f *Framework) {
		if l != nil {
			f.log = l
		}
	}
}

// WithMaxDepth sets how deeply object fields may nest. It defaults to MaxDepth.
func WithMaxDepth(depth int) Option {
	return func(f *Framework) {
		if depth > 0 {
			f.maxDepth = depth
		}
	}
}

// New creates a framework with an empty registry.
func New(opts ...Option) *Framework {
	f := &Framework{log: zap.NewNop(), maxDepth: MaxDepth}
	for _, opt := range opts {
		opt(f)
	}
	f.registry = typecodec.NewRegistry(f, typecodec.WithLogger(f.log.Named("blob")))
	return f
}

// Register adds roots and their transitive dependencies to the registry and
// binds them to f.
func (f *Framework) Register(roots ...typecodec.Serializer) error {
	return f.registry.Register(roots...)
}

func (f *Framework) Registry() *typecodec.Registry { return f.registry }

// NewRecord creates an empty record for the registered type typeName.
func (f *Framework) NewRecord(typeName string) (*Record, error) {
	s, err := f.registry.Resolve(typeName)
	if err != nil {
		return nil, err
	}
	return NewRecord(s.Schema()), nil
}

// Marshal encodes v with the serializer registered under typeName.
func (f *Framework) Marshal(typeName string, v any) ([]byte, error) {
	s, err := f.registry.Resolve(typeName)
	if err != nil {
		return nil, err
	}
	rec := NewRecord(s.Schema())
	if err := s.SerializeValue(v, rec); err != nil {
		return nil, err
	}
	return rec.MarshalBinary()
}

// Unmarshal decodes data with the serializer registered under typeName.
func (f *Framework) Unmarshal(typeName string, data []byte) (any, error) {
	s, err := f.registry.Resolve(typeName)
	if err != nil {
		return nil, err
	}
	rec := NewRecord(s.Schema())
	if err := rec.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return s.DeserializeValue(rec)
}

// Marshal encodes v with s into a new byte slice.
func Marshal[T any](s *typecodec.TypeSerializer[T], v T) ([]byte, error) {
	rec := NewRecord(s.Schema())
	if err := s.Serialize(v, rec); err != nil {
		return nil, err
	}
	return rec.MarshalBinary()
}

// Unmarshal decodes data with s.
func Unmarshal[T any](s *typecodec.TypeSerializer[T], data []byte) (T, error) {
	rec := NewRecord(s.Schema())
	if err := rec.UnmarshalBinary(data); err != nil {
		var zero T
		return zero, err
	}
	return s.Deserialize(rec)
}

// record unwraps rec. Handing a foreign record to this framework is a wiring bug.
func record(rec typecodec.Record) *Record {
	r, ok := rec.(*Record)
	if !ok {
		panic(fmt.Sprintf("blob: framework used with foreign record type %T", rec))
	}
	return r
}

// slot returns the record and field position, or -1 after latching an error.
func slot(rec typecodec.Record, field string) (*Record, int) {
	r := record(rec)
	if r.err != nil {
		return r, -1
	}
	return r, r.position(field)
}

// writePayload stores the bytes put produces through a Writer sized to width.
func (f *Framework) writePayload(rec typecodec.Record, field string, width int, put func(w *Writer)) {
	r, pos := slot(rec, field)
	if pos < 0 {
		return
	}
	buf := NewBytesWriter(make([]byte, width))
	w, err := NewWriter(buf)
	if err != nil {
		r.setError(err)
		return
	}
	put(w)
	if _, err := w.Result(); err != nil {
		r.setError(errors.Wrapf(err, "%s.%s", r.schema.Name(), field))
		return
	}
	r.set(pos, buf.Bytes())
}

func (f *Framework) WriteBool(rec typecodec.Record, field string, v bool) {
	f.writePayload(rec, field, 1, func(w *Writer) { w.WriteBool(v) })
}

func (f *Framework) WriteInt(rec typecodec.Record, field string, v int32) {
	f.writePayload(rec, field, 4, func(w *Writer) { w.WriteUint32(uint32(v)) })
}

func (f *Framework) WriteLong(rec typecodec.Record, field string, v int64) {
	f.writePayload(rec, field, 8, func(w *Writer) { w.WriteUint64(uint64(v)) })
}

func (f *Framework) WriteFloat(rec typecodec.Record, field string, v float32) {
	f.writePayload(rec, field, 4, func(w *Writer) { w.WriteUint32(math.Float32bits(v)) })
}

func (f *Framework) WriteDouble(rec typecodec.Record, field string, v float64) {
	f.writePayload(rec, field, 8, func(w *Writer) { w.WriteUint64(math.Float64bits(v)) })
}

func (f *Framework) WriteString(rec typecodec.Record, field string, v string) {
	f.writePayload(rec, field, len(v), func(w *Writer) { _, _ = w.WriteString(v) })
}

func (f *Framework) WriteBytes(rec typecodec.Record, field string, v []byte) {
	f.writePayload(rec, field, len(v), func(w *Writer) { w.WriteBytes(v) })
}

// nested creates the record for an object field one level below r,
// latching ErrTooDeep past the framework's limit.
func (f *Framework) nested(r *Record, field string, s typecodec.Serializer) (*Record, bool) {
	if r.depth >= f.maxDepth {
		r.setError(errors.Wrapf(ErrTooDeep, "%s.%s: limit %d", r.schema.Name(), field, f.maxDepth))
		return nil, false
	}
	sub := NewRecord(s.Schema())
	sub.depth = r.depth + 1
	return sub, true
}

// WriteObject encodes v as a nested record of the type registered under typeName.
func (f *Framework) WriteObject(rec typecodec.Record, field, typeName string, v any) {
	r, pos := slot(rec, field)
	if pos < 0 {
		return
	}
	s, err := f.registry.Resolve(typeName)
	if err != nil {
		r.setError(errors.Wrapf(err, "%s.%s", r.schema.Name(), field))
		return
	}
	sub, ok := f.nested(r, field, s)
	if !ok {
		return
	}
	if err := s.SerializeValue(v, sub); err != nil {
		r.setError(errors.Wrapf(err, "%s.%s", r.schema.Name(), field))
		return
	}
	payload, err := sub.MarshalBinary()
	if err != nil {
		r.setError(errors.Wrapf(err, "%s.%s", r.schema.Name(), field))
		return
	}
	r.set(pos, payload)
}

func (f *Framework) WriteAbsent(rec typecodec.Record, field string) {
	r, pos := slot(rec, field)
	if pos < 0 {
		return
	}
	r.clearSlot(pos)
}

// readFixed returns a Reader over the payload of a fixed-width field,
// latching ErrMalformedField when its length is wrong.
func (f *Framework) readFixed(rec typecodec.Record, field string, width int) (*Reader, bool) {
	r, pos := slot(rec, field)
	if pos < 0 {
		return nil, false
	}
	payload, ok := r.get(pos)
	if !ok {
		return nil, false
	}
	if len(payload) != width {
		r.setError(errors.Wrapf(ErrMalformedField, "%s.%s: %d bytes, want %d", r.schema.Name(), field, len(payload), width))
		return nil, false
	}
	rd, err := NewReader(NewBytesReader(payload))
	if err != nil {
		r.setError(err)
		return nil, false
	}
	return rd, true
}

func (f *Framework) ReadBool(rec typecodec.Record, field string) (bool, bool) {
	rd, ok := f.readFixed(rec, field, 1)
	if !ok {
		return false, false
	}
	var v bool
	rd.ReadBool(&v)
	return v, true
}

func (f *Framework) ReadInt(rec typecodec.Record, field string) (int32, bool) {
	rd, ok := f.readFixed(rec, field, 4)
	if !ok {
		return 0, false
	}
	var v uint32
	rd.ReadUint32(&v)
	return int32(v), true
}

func (f *Framework) ReadLong(rec typecodec.Record, field string) (int64, bool) {
	rd, ok := f.readFixed(rec, field, 8)
	if !ok {
		return 0, false
	}
	var v uint64
	rd.ReadUint64(&v)
	return int64(v), true
}

func (f *Framework) ReadFloat(rec typecodec.Record, field string) (float32, bool) {
	rd, ok := f.readFixed(rec, field, 4)
	if !ok {
		return 0, false
	}
	var v uint32
	rd.ReadUint32(&v)
	return math.Float32frombits(v), true
}

func (f *Framework) ReadDouble(rec typecodec.Record, field string) (float64, bool) {
	rd, ok := f.readFixed(rec, field, 8)
	if !ok {
		return 0, false
	}
	var v uint64
	rd.ReadUint64(&v)
	return math.Float64frombits(v), true
}

func (f *Framework) ReadString(rec typecodec.Record, field string) (string, bool) {
	r, pos := slot(rec, field)
	if pos < 0 {
		return "", false
	}
	payload, ok := r.get(pos)
	if !ok {
		return "", false
	}
	return string(payload), true
}

// ReadBytes returns a copy of the stored byte array; a present empty array
// is returned as a non-nil empty slice.
func (f *Framework) ReadBytes(rec typecodec.Record, field string) ([]byte, bool) {
	r, pos := slot(rec, field)
	if pos < 0 {
		return nil, false
	}
	payload, ok := r.get(pos)
	if !ok {
		return nil, false
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, true
}

// ReadObject decodes the nested record with the serializer registered under
// typeName. The nested record aliases the parent's payload.
func (f *Framework) ReadObject(rec typecodec.Record, field, typeName string) (any, bool) {
	r, pos := slot(rec, field)
	if pos < 0 {
		return nil, false
	}
	payload, ok := r.get(pos)
	if !ok {
		return nil, false
	}
	s, err := f.registry.Resolve(typeName)
	if err != nil {
		r.setError(errors.Wrapf(err, "%s.%s", r.schema.Name(), field))
		return nil, false
	}
	sub, ok := f.nested(r, field, s)
	if !ok {
		return nil, false
	}
	if err := sub.decodeExact(payload); err != nil {
		r.setError(errors.Wrapf(err, "%s.%s", r.schema.Name(), field))
		return nil, false
	}
	v, err := s.DeserializeValue(sub)
	if err != nil {
		r.setError(errors.Wrapf(err, "%s.%s", r.schema.Name(), field))
		return nil, false
	}
	return v, true
}
