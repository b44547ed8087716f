package typecodec

// Record is a single schema-conformant unit that a Framework encodes into or
// decodes from. Its physical form is owned entirely by the Framework.
type Record interface {
	// Schema returns the schema the record was created for.
	Schema() *Schema
	// Err returns the first error the framework latched while accessing the record.
	Err() error
}

// FrameworkSerializer writes individual fields into a record.
// Write errors are latched on the record and reported by Record.Err.
type FrameworkSerializer interface {
	WriteBool(rec Record, field string, v bool)
	WriteInt(rec Record, field string, v int32)
	WriteLong(rec Record, field string, v int64)
	WriteFloat(rec Record, field string, v float32)
	WriteDouble(rec Record, field string, v float64)
	WriteString(rec Record, field string, v string)
	WriteBytes(rec Record, field string, v []byte)

	// WriteObject encodes v with the serializer registered under typeName.
	WriteObject(rec Record, field, typeName string, v any)

	// WriteAbsent marks a field as physically absent.
	WriteAbsent(rec Record, field string)
}

// FrameworkDeserializer reads individual fields from a record.
// The boolean result is false when the field is physically absent.
type FrameworkDeserializer interface {
	ReadBool(rec Record, field string) (bool, bool)
	ReadInt(rec Record, field string) (int32, bool)
	ReadLong(rec Record, field string) (int64, bool)
	ReadFloat(rec Record, field string) (float32, bool)
	ReadDouble(rec Record, field string) (float64, bool)
	ReadString(rec Record, field string) (string, bool)
	ReadBytes(rec Record, field string) ([]byte, bool)

	// ReadObject returns the value produced by the serializer registered under typeName.
	ReadObject(rec Record, field, typeName string) (any, bool)
}

// Framework is the record access facade every TypeSerializer delegates to.
// Frameworks are compared by identity when attached, so implementations
// should be pointer types.
type Framework interface {
	FrameworkSerializer
	FrameworkDeserializer
}
