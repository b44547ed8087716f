package blob

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/constraints"

	"github.com/oy3o/typecodec"
)

// Order is the byte order of fixed-width fields.
var Order binary.ByteOrder = binary.BigEndian

const BUFFER_SIZE = 4096

// MaxFieldSize bounds the length prefix of string, bytes and object fields.
// Anything larger is treated as corrupt input rather than allocated.
const MaxFieldSize = 64 << 20

// MaxDepth is the default limit on nested object depth.
const MaxDepth = 100

// MAX_PADDING defines the maximum number of trailing bytes to check.
// Anything larger is considered a protocol error.
const MAX_PADDING = 1024

// CheckBufferNotZeros verifies that trailing bytes are all zero.
func CheckBufferNotZeros(trailing []byte) error {
	if len(trailing) > MAX_PADDING {
		return errors.Wrapf(ErrTrailingData, "exceeds maximum expected size of %d bytes", MAX_PADDING)
	}
	for i, b := range trailing {
		if b != 0 {
			return errors.Wrapf(ErrTrailingData, "found non-zero byte 0x%02x at offset %d", b, i)
		}
	}
	return nil
}

// uvarintSize returns the encoded length of v as an unsigned varint.
func uvarintSize[T constraints.Integer](v T) int {
	n := 1
	for x := uint64(v); x >= 0x80; x >>= 7 {
		n++
	}
	return n
}

// fixedWidth returns the payload width of a fixed-size field kind,
// or -1 for length-prefixed kinds.
func fixedWidth(t typecodec.FieldType) int {
	switch t {
	case typecodec.FieldBool:
		return 1
	case typecodec.FieldInt, typecodec.FieldFloat:
		return 4
	case typecodec.FieldLong, typecodec.FieldDouble:
		return 8
	case typecodec.FieldString, typecodec.FieldBytes, typecodec.FieldObject:
		return -1
	default:
		panic("blob: unhandled field type " + t.String())
	}
}
