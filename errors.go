package typecodec

import "github.com/cockroachdb/errors"

// Configuration errors. These indicate a wiring bug and should abort startup.
var (
	// ErrFrameworkReplaced indicates an attempt to attach a framework to a
	// serializer that is already bound to a different one.
	ErrFrameworkReplaced = errors.New("typecodec: serializer is already bound to a different framework")

	// ErrNoFramework indicates a serializer was used before a framework was attached.
	ErrNoFramework = errors.New("typecodec: no framework attached to serializer")

	// ErrNilDefinition indicates New was called without a definition.
	ErrNilDefinition = errors.New("typecodec: nil serializer definition")

	// ErrDuplicateSerializer indicates two distinct serializers share one type name.
	ErrDuplicateSerializer = errors.New("typecodec: distinct serializers registered under the same name")

	// ErrMissingSerializer indicates a schema references a type no serializer was registered for.
	ErrMissingSerializer = errors.New("typecodec: referenced type has no registered serializer")

	// ErrUnexpectedDependency indicates a serializer depends on a type none of its fields reference.
	ErrUnexpectedDependency = errors.New("typecodec: dependency not referenced by schema")
)

// Schema-definition errors, returned by NewSchema and New.
var (
	ErrEmptySchemaName  = errors.New("typecodec: empty schema name")
	ErrEmptyFieldName   = errors.New("typecodec: empty field name")
	ErrDuplicateField   = errors.New("typecodec: duplicate field name")
	ErrInvalidFieldType = errors.New("typecodec: invalid field type")
)

// Per-value errors detected while a serializer touches a record.
var (
	// ErrUnknownField indicates a field helper was called with a name the schema does not declare.
	ErrUnknownField = errors.New("typecodec: field not declared in schema")

	// ErrFieldTypeMismatch indicates a field helper of one kind was used on a field of another kind.
	ErrFieldTypeMismatch = errors.New("typecodec: field type mismatch")

	// ErrFieldWrittenTwice indicates the same field was written more than once for one value.
	ErrFieldWrittenTwice = errors.New("typecodec: field written more than once")

	// ErrSchemaMismatch indicates a record built for another schema was handed to a serializer.
	ErrSchemaMismatch = errors.New("typecodec: record schema does not match serializer")

	// ErrTypeMismatch indicates a value of an unexpected Go type crossed an untyped boundary.
	ErrTypeMismatch = errors.New("typecodec: unexpected value type")
)
