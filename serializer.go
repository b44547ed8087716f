package typecodec

import (
	"reflect"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

// Definition is the per-type logic behind a TypeSerializer. It declares the
// schema fields and converts values through the Encoder/Decoder helpers
// without knowing anything about the record's physical form.
type Definition[T any] interface {
	// DefineSchema returns the ordered field list. It is called exactly once.
	DefineSchema() []Field
	// Encode writes v. Fields it leaves unwritten are recorded as absent.
	Encode(v T, e *Encoder)
	// Decode rebuilds a value from the record.
	Decode(d *Decoder) T
}

// Composite is implemented by definitions whose fields reference values
// owned by other serializers. Leaf definitions do not implement it.
type Composite interface {
	// Dependencies returns the direct sub-serializers. It may be called
	// lazily, after every serializer in a cycle has been constructed.
	Dependencies() []Serializer
}

// Serializer is the untyped view of a TypeSerializer. Frameworks and
// registries work with it so nested objects can be dispatched by name.
type Serializer interface {
	Name() string
	Schema() *Schema
	Dependencies() []Serializer
	AttachFramework(fw Framework) error
	Framework() Framework
	SerializeValue(v any, rec Record) error
	DeserializeValue(rec Record) (any, error)
}

// Option configures a TypeSerializer at construction.
type Option func(*options)

type options struct {
	fw Framework
}

// WithFramework binds the framework at construction instead of a later AttachFramework.
func WithFramework(fw Framework) Option {
	return func(o *options) { o.fw = fw }
}

// TypeSerializer maps values of T to and from schema-conformant records.
//
// Once constructed and bound to a framework it holds no mutable state, so
// Serialize and Deserialize may be called concurrently. AttachFramework is
// not synchronised and must complete before the first call.
type TypeSerializer[T any] struct {
	name   string
	schema *Schema
	def    Definition[T]
	fw     Framework

	depsOnce sync.Once
	deps     []Serializer
}

var _ Serializer = (*TypeSerializer[struct{}])(nil)

// New builds the serializer named name. The schema is computed here, once,
// so schema-definition errors surface at construction.
func New[T any](name string, def Definition[T], opts ...Option) (*TypeSerializer[T], error) {
	if def == nil {
		return nil, errors.Wrapf(ErrNilDefinition, "serializer %s", name)
	}
	schema, err := NewSchema(name, def.DefineSchema()...)
	if err != nil {
		return nil, err
	}
	s := &TypeSerializer[T]{name: name, schema: schema, def: def}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.fw != nil {
		s.fw = o.fw
	}
	return s, nil
}

// MustNew is like New but panics on error. It is meant for package-level
// wiring where a bad schema must stop the program.
func MustNew[T any](name string, def Definition[T], opts ...Option) *TypeSerializer[T] {
	s, err := New(name, def, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *TypeSerializer[T]) Name() string              { return s.name }
func (s *TypeSerializer[T]) Schema() *Schema           { return s.schema }
func (s *TypeSerializer[T]) Framework() Framework      { return s.fw }
func (s *TypeSerializer[T]) Definition() Definition[T] { return s.def }

// AttachFramework binds fw. Binding the same instance again is a no-op;
// binding a different one fails with ErrFrameworkReplaced and keeps the old.
func (s *TypeSerializer[T]) AttachFramework(fw Framework) error {
	if fw == nil {
		return errors.Wrapf(ErrNoFramework, "serializer %s: attach nil framework", s.name)
	}
	if s.fw != nil && !sameFramework(s.fw, fw) {
		return errors.Wrapf(ErrFrameworkReplaced, "serializer %s", s.name)
	}
	s.fw = fw
	return nil
}

// sameFramework reports whether a and b are the same framework instance.
// Values of a non-comparable type are never the same instance.
func sameFramework(a, b Framework) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() || !va.Comparable() || !vb.Comparable() {
		return false
	}
	return a == b
}

// Dependencies returns the direct sub-serializers declared by the
// definition, one per distinct name, in declaration order. The result is
// computed on first use and reused afterwards.
func (s *TypeSerializer[T]) Dependencies() []Serializer {
	s.depsOnce.Do(func() {
		c, ok := s.def.(Composite)
		if !ok {
			return
		}
		deps := lo.Filter(c.Dependencies(), func(d Serializer, _ int) bool { return d != nil })
		s.deps = lo.UniqBy(deps, func(d Serializer) string { return d.Name() })
	})
	out := make([]Serializer, len(s.deps))
	copy(out, s.deps)
	return out
}

func (s *TypeSerializer[T]) bound(rec Record) error {
	if s.fw == nil {
		return errors.Wrapf(ErrNoFramework, "serializer %s", s.name)
	}
	if rec == nil || !s.schema.Equal(rec.Schema()) {
		return errors.Wrapf(ErrSchemaMismatch, "serializer %s", s.name)
	}
	return nil
}

// Serialize writes v into rec. Every schema field is written exactly once.
func (s *TypeSerializer[T]) Serialize(v T, rec Record) error {
	if err := s.bound(rec); err != nil {
		return err
	}
	e := newEncoder(s.fw, rec, s.schema)
	s.def.Encode(v, e)
	return e.finish()
}

// Deserialize rebuilds a value from rec. On error the zero value is returned.
func (s *TypeSerializer[T]) Deserialize(rec Record) (T, error) {
	var zero T
	if err := s.bound(rec); err != nil {
		return zero, err
	}
	d := newDecoder(s.fw, rec, s.schema)
	v := s.def.Decode(d)
	if d.err != nil {
		return zero, d.err
	}
	if err := rec.Err(); err != nil {
		return zero, err
	}
	return v, nil
}

// SerializeValue accepts T or a non-nil *T.
func (s *TypeSerializer[T]) SerializeValue(v any, rec Record) error {
	switch x := v.(type) {
	case T:
		return s.Serialize(x, rec)
	case *T:
		if x != nil {
			return s.Serialize(*x, rec)
		}
	}
	return errors.Wrapf(ErrTypeMismatch, "serializer %s: cannot serialize %T", s.name, v)
}

func (s *TypeSerializer[T]) DeserializeValue(rec Record) (any, error) {
	v, err := s.Deserialize(rec)
	if err != nil {
		return nil, err
	}
	return v, nil
}
