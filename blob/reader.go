package blob

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
)

type ReaderPro interface {
	io.Reader
	io.ByteReader
	Size() int
}

// Reader provides a buffered reader that simplifies reading binary data.
// It tracks the first error. Subsequent reads become no-ops.
type Reader struct {
	r     ReaderPro
	count int64 // total bytes read
	err   error // first error encountered.
	order binary.ByteOrder
}

var _ ReaderPro = (*Reader)(nil)

// NewReaderSize creates a new Reader with a specified buffer size.
func NewReaderSize(r io.Reader, size int) (*Reader, error) {
	if r == nil {
		return nil, ErrNilIO
	}

	switch reader := r.(type) {
	// Reuse the underlying buffer if it's already a compatible Reader.
	case *Reader:
		if reader.r.Size() >= size {
			return &Reader{r: reader.r, order: Order}, nil
		}

	// prevent unpredictable double-buffering.
	case *bufio.Reader:
		if reader.Size() >= size {
			return &Reader{r: reader, order: Order}, nil
		}
		return nil, ErrAlreadyBuffered

	// underlying is a buf so we don't need buffering
	case *BytesReader:
		return &Reader{r: reader, order: Order}, nil
	case *bytes.Reader:
		return &Reader{r: &bytesReaderAdapter{reader}, order: Order}, nil
	case *bytes.Buffer:
		return &Reader{r: &bytesBufferReaderAdapter{reader}, order: Order}, nil
	}

	// default use bufio
	return &Reader{r: bufio.NewReaderSize(r, size), order: Order}, nil
}

// NewReader creates a new Reader with a default buffer size.
func NewReader(r io.Reader) (*Reader, error) {
	return NewReaderSize(r, BUFFER_SIZE)
}

// Read implements the io.Reader interface.
func (r *Reader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	n, err := r.r.Read(p)
	r.count += int64(n)
	r.setError(err)
	return n, r.err
}

func (r *Reader) Size() int    { return r.r.Size() }
func (r *Reader) Count() int64 { return r.count }
func (r *Reader) Err() error   { return r.err }
func (r *Reader) IsEOF() bool  { return r.err == io.EOF }

// setError records the first non-nil error.
func (r *Reader) setError(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}

// Result returns the total bytes read and the final error state.
func (r *Reader) Result() (int64, error) {
	return r.count, r.err
}

// readFull is an internal helper to read an exact number of bytes. Nothing
// larger than what the source can still deliver is allocated up front.
func (r *Reader) readFull(n int) []byte {
	if r.err != nil {
		return nil
	}
	if br, ok := r.r.(*BytesReader); ok && br.Available() < n {
		r.err = io.ErrUnexpectedEOF
		return nil
	}
	if n > BUFFER_SIZE {
		return r.readChunked(n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		if err == io.EOF {
			// a partial read is different from a clean end-of-stream.
			r.err = io.ErrUnexpectedEOF
		} else {
			r.err = err
		}
		return nil
	}
	r.count += int64(n)
	return buf
}

// readChunked reads n bytes from a stream, growing the buffer only as data arrives.
func (r *Reader) readChunked(n int) []byte {
	var buf bytes.Buffer
	copied, err := io.CopyN(&buf, r.r, int64(n))
	r.count += copied
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		r.err = err
		return nil
	}
	return buf.Bytes()
}

// ReadBytes reads n bytes and returns a new byte slice.
// A non-positive n returns an empty, non-nil slice.
func (r *Reader) ReadBytes(n int) []byte {
	if n <= 0 {
		if r.err != nil {
			return nil
		}
		return []byte{}
	}
	return r.readFull(n)
}

// --- Primitive Read Operations ---

func (r *Reader) ReadBool(dest *bool) {
	var b uint8
	r.ReadUint8(&b)
	if r.err == nil {
		*dest = b != 0
	}
}

func (r *Reader) ReadByte() (byte, error) {
	if r.err != nil {
		return 0, r.err
	}
	b, err := r.r.ReadByte()
	if err == nil {
		r.count++
	} else {
		r.err = err
	}
	return b, err
}

func (r *Reader) ReadUint8(dest *uint8) {
	b, err := r.ReadByte()
	if err == nil {
		*dest = b
	}
}

func (r *Reader) ReadUint32(dest *uint32) {
	buf := r.readFull(4)
	if r.err == nil {
		*dest = r.order.Uint32(buf)
	}
}

func (r *Reader) ReadUint64(dest *uint64) {
	buf := r.readFull(8)
	if r.err == nil {
		*dest = r.order.Uint64(buf)
	}
}

// ReadUvarint reads a LEB128 unsigned varint.
func (r *Reader) ReadUvarint(dest *uint64) {
	if r.err != nil {
		return
	}
	v, err := binary.ReadUvarint(r)
	if err != nil {
		// ReadByte may have latched a plain io.EOF; keep the more specific error.
		r.err = err
		return
	}
	*dest = v
}
