package typecodec

import (
	"bytes"
)

// --- Mocks and Helpers ---

// memRecord keeps field values in a map and remembers the order of writes.
type memRecord struct {
	schema *Schema
	values map[string]any
	writes []string
	err    error
}

func newMemRecord(s *Schema) *memRecord {
	return &memRecord{schema: s, values: make(map[string]any)}
}

func (r *memRecord) Schema() *Schema { return r.schema }
func (r *memRecord) Err() error      { return r.err }

func (r *memRecord) put(field string, v any) {
	r.writes = append(r.writes, field)
	r.values[field] = v
}

// memFramework is an in-memory Framework resolving nested types through a Registry.
type memFramework struct {
	reg *Registry
}

func newMemFramework() *memFramework {
	fw := &memFramework{}
	fw.reg = NewRegistry(fw)
	return fw
}

func (f *memFramework) WriteBool(rec Record, field string, v bool)      { rec.(*memRecord).put(field, v) }
func (f *memFramework) WriteInt(rec Record, field string, v int32)      { rec.(*memRecord).put(field, v) }
func (f *memFramework) WriteLong(rec Record, field string, v int64)     { rec.(*memRecord).put(field, v) }
func (f *memFramework) WriteFloat(rec Record, field string, v float32)  { rec.(*memRecord).put(field, v) }
func (f *memFramework) WriteDouble(rec Record, field string, v float64) { rec.(*memRecord).put(field, v) }
func (f *memFramework) WriteString(rec Record, field string, v string)  { rec.(*memRecord).put(field, v) }
func (f *memFramework) WriteBytes(rec Record, field string, v []byte)   { rec.(*memRecord).put(field, bytes.Clone(v)) }
func (f *memFramework) WriteAbsent(rec Record, field string)            { rec.(*memRecord).put(field, nil) }

func (f *memFramework) WriteObject(rec Record, field, typeName string, v any) {
	r := rec.(*memRecord)
	s, err := f.reg.Resolve(typeName)
	if err != nil {
		r.err = err
		return
	}
	sub := newMemRecord(s.Schema())
	if err := s.SerializeValue(v, sub); err != nil {
		r.err = err
		return
	}
	r.put(field, sub)
}

func memRead[T any](rec Record, field string) (T, bool) {
	v, ok := rec.(*memRecord).values[field].(T)
	return v, ok
}

func (f *memFramework) ReadBool(rec Record, field string) (bool, bool) {
	return memRead[bool](rec, field)
}

func (f *memFramework) ReadInt(rec Record, field string) (int32, bool) {
	return memRead[int32](rec, field)
}

func (f *memFramework) ReadLong(rec Record, field string) (int64, bool) {
	return memRead[int64](rec, field)
}

func (f *memFramework) ReadFloat(rec Record, field string) (float32, bool) {
	return memRead[float32](rec, field)
}

func (f *memFramework) ReadDouble(rec Record, field string) (float64, bool) {
	return memRead[float64](rec, field)
}

func (f *memFramework) ReadString(rec Record, field string) (string, bool) {
	return memRead[string](rec, field)
}

func (f *memFramework) ReadBytes(rec Record, field string) ([]byte, bool) {
	return memRead[[]byte](rec, field)
}

func (f *memFramework) ReadObject(rec Record, field, typeName string) (any, bool) {
	sub, ok := memRead[*memRecord](rec, field)
	if !ok {
		return nil, false
	}
	s, err := f.reg.Resolve(typeName)
	if err != nil {
		rec.(*memRecord).err = err
		return nil, false
	}
	v, err := s.DeserializeValue(sub)
	if err != nil {
		rec.(*memRecord).err = err
		return nil, false
	}
	return v, true
}

// --- Test object model ---

type Point struct{ X, Y int32 }

type pointDef struct{}

func (pointDef) DefineSchema() []Field {
	return []Field{NewField("x", FieldInt), NewField("y", FieldInt)}
}

func (pointDef) Encode(p Point, e *Encoder) {
	e.WriteInt("x", p.X)
	e.WriteInt("y", p.Y)
}

func (pointDef) Decode(d *Decoder) Point {
	return Point{X: d.ReadIntOr("x", 0), Y: d.ReadIntOr("y", 0)}
}

type Line struct{ A, B Point }

type lineDef struct{ point Serializer }

func (lineDef) DefineSchema() []Field {
	return []Field{ObjectField("a", "Point"), ObjectField("b", "Point")}
}

func (lineDef) Encode(l Line, e *Encoder) {
	e.WriteObject("a", "Point", l.A)
	e.WriteObject("b", "Point", l.B)
}

func (lineDef) Decode(d *Decoder) Line {
	return Line{
		A: ReadObject[Point](d, "a", "Point").Value(),
		B: ReadObject[Point](d, "b", "Point").Value(),
	}
}

func (l lineDef) Dependencies() []Serializer { return []Serializer{l.point, l.point} }

// Sample covers every field kind.
type Sample struct {
	Flag   bool
	Count  int32
	Total  int64
	Ratio  float32
	Score  float64
	Label  string
	Data   []byte
	Origin *Point
}

type sampleDef struct{ point Serializer }

func (sampleDef) DefineSchema() []Field {
	return []Field{
		NewField("flag", FieldBool),
		NewField("count", FieldInt),
		NewField("total", FieldLong),
		NewField("ratio", FieldFloat),
		NewField("score", FieldDouble),
		NewField("label", FieldString),
		NewField("data", FieldBytes),
		ObjectField("origin", "Point"),
	}
}

func (sampleDef) Encode(s Sample, e *Encoder) {
	e.WriteBool("flag", s.Flag)
	e.WriteInt("count", s.Count)
	e.WriteLong("total", s.Total)
	e.WriteFloat("ratio", s.Ratio)
	e.WriteDouble("score", s.Score)
	e.WriteString("label", s.Label)
	e.WriteBytes("data", s.Data)
	if s.Origin != nil {
		e.WriteObject("origin", "Point", *s.Origin)
	}
}

func (sampleDef) Decode(d *Decoder) Sample {
	s := Sample{
		Flag:  d.ReadBoolOr("flag", false),
		Count: d.ReadIntOr("count", 0),
		Total: d.ReadLongOr("total", 0),
		Ratio: d.ReadFloatOr("ratio", 0),
		Score: d.ReadDoubleOr("score", 0),
		Label: d.ReadStringOr("label", ""),
		Data:  d.ReadBytes("data").Value(),
	}
	if p, ok := ReadObject[Point](d, "origin", "Point").Get(); ok {
		s.Origin = &p
	}
	return s
}

func (s sampleDef) Dependencies() []Serializer { return []Serializer{s.point} }

// Node references itself, forming a cycle in the composition graph.
type Node struct {
	Value int64
	Next  *Node
}

type nodeDef struct{ self *Serializer }

func (nodeDef) DefineSchema() []Field {
	return []Field{NewField("value", FieldLong), ObjectField("next", "Node")}
}

func (nodeDef) Encode(n Node, e *Encoder) {
	e.WriteLong("value", n.Value)
	if n.Next != nil {
		e.WriteObject("next", "Node", *n.Next)
	}
}

func (nodeDef) Decode(d *Decoder) Node {
	n := Node{Value: d.ReadLongOr("value", 0)}
	if next, ok := ReadObject[Node](d, "next", "Node").Get(); ok {
		n.Next = &next
	}
	return n
}

func (n nodeDef) Dependencies() []Serializer { return []Serializer{*n.self} }

type model struct {
	fw     *memFramework
	point  *TypeSerializer[Point]
	line   *TypeSerializer[Line]
	sample *TypeSerializer[Sample]
	node   *TypeSerializer[Node]
}

// newModel builds the test object model and registers it with a fresh memFramework.
func newModel() *model {
	m := &model{fw: newMemFramework()}
	m.point = MustNew[Point]("Point", pointDef{})
	m.line = MustNew[Line]("Line", lineDef{point: m.point})
	m.sample = MustNew[Sample]("Sample", sampleDef{point: m.point})
	var self Serializer
	m.node = MustNew[Node]("Node", nodeDef{self: &self})
	self = m.node
	if err := m.fw.reg.Register(m.line, m.sample, m.node); err != nil {
		panic(err)
	}
	return m
}
