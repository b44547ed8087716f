package blob

import "github.com/cockroachdb/errors"

var (
	// ErrNilIO indicates that NewReader/NewWriter was called with a nil interface.
	ErrNilIO = errors.New("blob: NewReader/NewWriter called with a nil io.Reader/io.Writer")

	// ErrAlreadyBuffered indicates that NewReader/NewWriter was called with an already-buffered
	// reader/writer whose buffer is too small, which would lead to double-buffering.
	ErrAlreadyBuffered = errors.New("blob: reader or writer is already buffered")

	// ErrTrailingData is returned by UnmarshalBinary when non-zero bytes are found
	// after the end of a record.
	ErrTrailingData = errors.New("blob: non-zero trailing data found after decoding")

	// ErrTruncatedData indicates the input ended before a whole record was read.
	ErrTruncatedData = errors.New("blob: truncated data")

	// ErrFieldTooLarge indicates a length prefix above MaxFieldSize.
	ErrFieldTooLarge = errors.New("blob: field length exceeds limit")

	// ErrTooDeep indicates nested objects exceed the framework's depth limit.
	ErrTooDeep = errors.New("blob: nested objects exceed depth limit")

	// ErrMalformedField indicates a stored field payload does not fit its declared kind.
	ErrMalformedField = errors.New("blob: malformed field payload")
)
