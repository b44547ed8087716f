package typecodec

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// --- Serializer Test Suite ---

type SerializerTestSuite struct {
	suite.Suite
	m *model
}

// SetupTest runs before each test in the suite, ensuring a clean state.
func (s *SerializerTestSuite) SetupTest() {
	s.m = newModel()
}

func (s *SerializerTestSuite) TestPointScenario() {
	rec := newMemRecord(s.m.point.Schema())
	s.Require().NoError(s.m.point.Serialize(Point{X: 3, Y: 4}, rec))

	got, err := s.m.point.Deserialize(rec)
	s.Require().NoError(err)
	s.Assert().Equal(Point{X: 3, Y: 4}, got)
	s.Assert().Equal([]Field{{Name: "x", Type: FieldInt}, {Name: "y", Type: FieldInt}}, s.m.point.Schema().Fields())
}

func (s *SerializerTestSuite) TestLineDependsOnPointOnce() {
	deps := s.m.line.Dependencies()
	s.Require().Len(deps, 1)
	s.Assert().Same(s.m.point, deps[0])
	s.Assert().Equal([]string{"Point"}, s.m.line.Schema().ReferencedTypes())

	s.Assert().Empty(s.m.point.Dependencies(), "leaf serializer has no dependencies")
}

func (s *SerializerTestSuite) TestDependenciesAreStable() {
	first := s.m.sample.Dependencies()
	second := s.m.sample.Dependencies()
	s.Assert().Equal(first, second)

	// Mutating the returned slice must not leak into the serializer.
	first[0] = nil
	s.Assert().Same(s.m.point, s.m.sample.Dependencies()[0])
}

func (s *SerializerTestSuite) TestSchemaStability() {
	schema := s.m.sample.Schema()
	for i := 0; i < 3; i++ {
		s.Assert().Same(schema, s.m.sample.Schema())
	}
	s.Assert().Equal(sampleDef{}.DefineSchema(), schema.Fields())
}

func (s *SerializerTestSuite) TestRoundTripEveryKind() {
	in := Sample{
		Flag:   true,
		Count:  -7,
		Total:  1 << 40,
		Ratio:  0.25,
		Score:  3.14159,
		Label:  "hello",
		Data:   []byte{0, 1, 2, 0xff},
		Origin: &Point{X: 1, Y: -1},
	}
	rec := newMemRecord(s.m.sample.Schema())
	s.Require().NoError(s.m.sample.Serialize(in, rec))

	out, err := s.m.sample.Deserialize(rec)
	s.Require().NoError(err)
	s.Assert().Equal(in, out)
}

func (s *SerializerTestSuite) TestFieldOrderDeterminism() {
	in := Sample{Flag: true, Count: 1, Label: "x", Origin: &Point{X: 1}}
	first := newMemRecord(s.m.sample.Schema())
	second := newMemRecord(s.m.sample.Schema())
	s.Require().NoError(s.m.sample.Serialize(in, first))
	s.Require().NoError(s.m.sample.Serialize(in, second))

	s.Assert().Equal(first.writes, second.writes)
	s.Assert().Equal([]string{"flag", "count", "total", "ratio", "score", "label", "data", "origin"}, first.writes)
}

func (s *SerializerTestSuite) TestEveryFieldWrittenOnce() {
	// Data is nil and Origin is missing: both still get an absent write.
	rec := newMemRecord(s.m.sample.Schema())
	s.Require().NoError(s.m.sample.Serialize(Sample{}, rec))

	s.Assert().Len(rec.writes, s.m.sample.Schema().NumFields())
	s.Assert().ElementsMatch([]string{"flag", "count", "total", "ratio", "score", "label", "data", "origin"}, rec.writes)
	s.Assert().Nil(rec.values["origin"])
	s.Assert().Nil(rec.values["data"])

	out, err := s.m.sample.Deserialize(rec)
	s.Require().NoError(err)
	s.Assert().Nil(out.Origin)
	s.Assert().Nil(out.Data)
}

func (s *SerializerTestSuite) TestEmptyBytesArePresent() {
	rec := newMemRecord(s.m.sample.Schema())
	s.Require().NoError(s.m.sample.Serialize(Sample{Data: []byte{}}, rec))

	out, err := s.m.sample.Deserialize(rec)
	s.Require().NoError(err)
	s.Assert().NotNil(out.Data)
	s.Assert().Empty(out.Data)
}

func (s *SerializerTestSuite) TestCyclicRoundTrip() {
	in := Node{Value: 1, Next: &Node{Value: 2, Next: &Node{Value: 3}}}
	rec := newMemRecord(s.m.node.Schema())
	s.Require().NoError(s.m.node.Serialize(in, rec))

	out, err := s.m.node.Deserialize(rec)
	s.Require().NoError(err)
	s.Assert().Equal(in, out)
}

func (s *SerializerTestSuite) TestSerializeValue() {
	rec := newMemRecord(s.m.point.Schema())
	s.Require().NoError(s.m.point.SerializeValue(&Point{X: 5}, rec))

	v, err := s.m.point.DeserializeValue(rec)
	s.Require().NoError(err)
	s.Assert().Equal(Point{X: 5}, v)

	err = s.m.point.SerializeValue("not a point", newMemRecord(s.m.point.Schema()))
	s.Assert().ErrorIs(err, ErrTypeMismatch)

	var nilPoint *Point
	err = s.m.point.SerializeValue(nilPoint, newMemRecord(s.m.point.Schema()))
	s.Assert().ErrorIs(err, ErrTypeMismatch)
}

func (s *SerializerTestSuite) TestSchemaMismatch() {
	err := s.m.point.Serialize(Point{}, newMemRecord(s.m.line.Schema()))
	s.Assert().ErrorIs(err, ErrSchemaMismatch)

	_, err = s.m.point.Deserialize(newMemRecord(s.m.line.Schema()))
	s.Assert().ErrorIs(err, ErrSchemaMismatch)
}

func (s *SerializerTestSuite) TestConcurrentUse() {
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int32) {
			defer wg.Done()
			in := Line{A: Point{X: i, Y: -i}, B: Point{X: i * 2, Y: i * 3}}
			rec := newMemRecord(s.m.line.Schema())
			if !assert.NoError(s.T(), s.m.line.Serialize(in, rec)) {
				return
			}
			out, err := s.m.line.Deserialize(rec)
			assert.NoError(s.T(), err)
			assert.Equal(s.T(), in, out)
		}(int32(i))
	}
	wg.Wait()
}

// TestSerializer runs the SerializerTestSuite.
func TestSerializer(t *testing.T) {
	suite.Run(t, new(SerializerTestSuite))
}

// --- Framework attachment ---

func TestAttachFramework(t *testing.T) {
	t.Run("SameInstanceIsIdempotent", func(t *testing.T) {
		s := MustNew[Point]("Point", pointDef{})
		f := newMemFramework()
		require.NoError(t, s.AttachFramework(f))
		require.NoError(t, s.AttachFramework(f))
		assert.Same(t, f, s.Framework())
	})

	t.Run("DifferentInstanceIsRejected", func(t *testing.T) {
		s := MustNew[Point]("Point", pointDef{})
		f1, f2 := newMemFramework(), newMemFramework()
		require.NoError(t, s.AttachFramework(f1))

		err := s.AttachFramework(f2)
		assert.ErrorIs(t, err, ErrFrameworkReplaced)
		assert.Same(t, f1, s.Framework())
	})

	t.Run("ConstructorInjection", func(t *testing.T) {
		f := newMemFramework()
		s := MustNew[Point]("Point", pointDef{}, WithFramework(f))
		assert.Same(t, f, s.Framework())
		assert.ErrorIs(t, s.AttachFramework(newMemFramework()), ErrFrameworkReplaced)
	})

	t.Run("NilFramework", func(t *testing.T) {
		s := MustNew[Point]("Point", pointDef{})
		assert.ErrorIs(t, s.AttachFramework(nil), ErrNoFramework)
		assert.Nil(t, s.Framework())
	})

	t.Run("NonComparableFramework", func(t *testing.T) {
		s := MustNew[Point]("Point", pointDef{})
		f := taggedFramework{memFramework: newMemFramework(), tags: map[string]string{"k": "v"}}
		require.NoError(t, s.AttachFramework(f))

		var err error
		assert.NotPanics(t, func() { err = s.AttachFramework(f) })
		assert.ErrorIs(t, err, ErrFrameworkReplaced)
	})

	t.Run("UseBeforeAttach", func(t *testing.T) {
		s := MustNew[Point]("Point", pointDef{})
		err := s.Serialize(Point{}, newMemRecord(s.Schema()))
		assert.ErrorIs(t, err, ErrNoFramework)
	})
}

// taggedFramework is a value-typed framework that cannot be compared with ==.
type taggedFramework struct {
	*memFramework
	tags map[string]string
}

// --- Construction ---

type dupDef struct{ pointDef }

func (dupDef) DefineSchema() []Field {
	return []Field{NewField("x", FieldInt), NewField("x", FieldInt)}
}

type countingDef struct {
	pointDef
	calls *int
}

func (d countingDef) DefineSchema() []Field {
	*d.calls++
	return d.pointDef.DefineSchema()
}

func TestNew(t *testing.T) {
	t.Run("DuplicateFieldFailsFast", func(t *testing.T) {
		_, err := New[Point]("Point", dupDef{})
		assert.ErrorIs(t, err, ErrDuplicateField)
		assert.Panics(t, func() { MustNew[Point]("Point", dupDef{}) })
	})

	t.Run("NilDefinition", func(t *testing.T) {
		_, err := New[Point]("Point", nil)
		assert.ErrorIs(t, err, ErrNilDefinition)
	})

	t.Run("SchemaDefinedOnce", func(t *testing.T) {
		calls := 0
		s := MustNew[Point]("Point", countingDef{calls: &calls})
		_ = s.Schema()
		_ = s.Schema()
		assert.Equal(t, 1, calls)
	})
}

// --- Field helpers ---

type misuseDef struct {
	pointDef
	encode func(e *Encoder)
}

func (misuseDef) DefineSchema() []Field {
	return []Field{NewField("x", FieldInt), NewField("y", FieldInt), ObjectField("p", "Point")}
}

func (d misuseDef) Encode(_ Point, e *Encoder) { d.encode(e) }

func TestEncoderMisuse(t *testing.T) {
	cases := map[string]struct {
		encode func(e *Encoder)
		want   error
	}{
		"UnknownField":  {func(e *Encoder) { e.WriteInt("z", 1) }, ErrUnknownField},
		"KindMismatch":  {func(e *Encoder) { e.WriteString("x", "1") }, ErrFieldTypeMismatch},
		"AbsentUnknown": {func(e *Encoder) { e.WriteAbsent("z") }, ErrUnknownField},
		"WrittenTwice": {
			encode: func(e *Encoder) {
				e.WriteInt("x", 1)
				e.WriteInt("x", 2)
			},
			want: ErrFieldWrittenTwice,
		},
		"UndeclaredTypeName": {
			encode: func(e *Encoder) { e.WriteObject("p", "Other", Point{}) },
			want:   ErrFieldTypeMismatch,
		},
		"AbsentThenData": {
			encode: func(e *Encoder) {
				e.WriteAbsent("x")
				e.WriteInt("x", 2)
			},
			want: ErrFieldWrittenTwice,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			fw := newMemFramework()
			s := MustNew[Point]("Point", misuseDef{encode: tc.encode}, WithFramework(fw))
			err := s.Serialize(Point{}, newMemRecord(s.Schema()))
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestDecoderDefaults(t *testing.T) {
	fw := newMemFramework()
	schema := MustSchema("Flags", NewField("enabled", FieldBool), NewField("n", FieldInt))
	rec := newMemRecord(schema)
	d := newDecoder(fw, rec, schema)

	t.Run("AbsentWithDefault", func(t *testing.T) {
		assert.True(t, d.ReadBoolOr("enabled", true))
		assert.False(t, d.ReadBoolOr("enabled", false))
	})

	t.Run("AbsentWithoutDefault", func(t *testing.T) {
		v := d.ReadBool("enabled")
		assert.False(t, v.IsPresent())
		_, ok := v.Get()
		assert.False(t, ok)
	})

	t.Run("PresentZeroIsNotAbsent", func(t *testing.T) {
		rec.put("enabled", false)
		rec.put("n", int32(0))
		d := newDecoder(fw, rec, schema)
		assert.False(t, d.ReadBoolOr("enabled", true))
		assert.Equal(t, int32(0), d.ReadIntOr("n", 9))
		assert.True(t, d.ReadInt("n").IsPresent())
	})

	t.Run("ReadUnknownField", func(t *testing.T) {
		d := newDecoder(fw, rec, schema)
		assert.False(t, d.ReadLong("missing").IsPresent())
		assert.ErrorIs(t, d.Err(), ErrUnknownField)
	})

	t.Run("ReadWrongKind", func(t *testing.T) {
		d := newDecoder(fw, rec, schema)
		assert.False(t, d.ReadString("n").IsPresent())
		assert.ErrorIs(t, d.Err(), ErrFieldTypeMismatch)
	})
}

func TestDecoderObjectTypeName(t *testing.T) {
	fw := newMemFramework()
	schema := MustSchema("Holder", ObjectField("p", "Point"), ObjectField("any", ""))
	rec := newMemRecord(schema)

	t.Run("DeclaredNameOnly", func(t *testing.T) {
		d := newDecoder(fw, rec, schema)
		assert.False(t, d.ReadObjectValue("p", "Other").IsPresent())
		assert.ErrorIs(t, d.Err(), ErrFieldTypeMismatch)
	})

	t.Run("DynamicFieldAcceptsAnyName", func(t *testing.T) {
		d := newDecoder(fw, rec, schema)
		assert.False(t, d.ReadObjectValue("any", "Other").IsPresent())
		assert.NoError(t, d.Err())
	})
}

func TestReadObjectTypeMismatch(t *testing.T) {
	m := newModel()
	rec := newMemRecord(m.line.Schema())
	require.NoError(t, m.line.Serialize(Line{A: Point{X: 1}}, rec))

	d := newDecoder(m.fw, rec, m.line.Schema())
	got := ReadObject[Node](d, "a", "Point")
	assert.False(t, got.IsPresent())
	assert.ErrorIs(t, d.Err(), ErrTypeMismatch)
}
