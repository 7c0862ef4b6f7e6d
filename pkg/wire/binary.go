package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Binary field errors.
var (
	ErrShortBuffer   = errors.New("field exceeds size budget")
	ErrMalformed     = errors.New("malformed field")
	ErrFieldTooLarge = errors.New("field too large")
)

// Encoded field sizes in bytes.
const (
	SizeUint8  = 1
	SizeBool   = 1
	SizeUint16 = 2
	SizeUint32 = 4
	SizeUint64 = 8

	// MaxStringLength is the longest string a u16 length prefix can carry.
	MaxStringLength = 0xFFFF
)

// Reader decodes fixed-layout fields from a byte stream.
// Each method returns the number of bytes consumed.
type Reader struct {
	r       io.Reader
	scratch [SizeUint64]byte
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// fill reads exactly n bytes into the scratch buffer.
// Nothing is consumed when n exceeds maxSize.
func (r *Reader) fill(n, maxSize int) ([]byte, error) {
	if n > maxSize {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrShortBuffer, n, maxSize)
	}
	buf := r.scratch[:n]
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadUint8 reads a single byte.
func (r *Reader) ReadUint8(maxSize int) (uint8, int, error) {
	buf, err := r.fill(SizeUint8, maxSize)
	if err != nil {
		return 0, 0, err
	}
	return buf[0], SizeUint8, nil
}

// ReadBool reads a boolean encoded as 0 or 1.
func (r *Reader) ReadBool(maxSize int) (bool, int, error) {
	buf, err := r.fill(SizeBool, maxSize)
	if err != nil {
		return false, 0, err
	}
	switch buf[0] {
	case 0:
		return false, SizeBool, nil
	case 1:
		return true, SizeBool, nil
	default:
		return false, SizeBool, fmt.Errorf("%w: bool value %d", ErrMalformed, buf[0])
	}
}

// ReadUint16 reads a big-endian uint16.
func (r *Reader) ReadUint16(maxSize int) (uint16, int, error) {
	buf, err := r.fill(SizeUint16, maxSize)
	if err != nil {
		return 0, 0, err
	}
	return binary.BigEndian.Uint16(buf), SizeUint16, nil
}

// ReadUint32 reads a big-endian uint32.
func (r *Reader) ReadUint32(maxSize int) (uint32, int, error) {
	buf, err := r.fill(SizeUint32, maxSize)
	if err != nil {
		return 0, 0, err
	}
	return binary.BigEndian.Uint32(buf), SizeUint32, nil
}

// ReadUint64 reads a big-endian uint64.
func (r *Reader) ReadUint64(maxSize int) (uint64, int, error) {
	buf, err := r.fill(SizeUint64, maxSize)
	if err != nil {
		return 0, 0, err
	}
	return binary.BigEndian.Uint64(buf), SizeUint64, nil
}

// ReadString reads a u16 length prefix followed by that many bytes.
// The prefix is consumed even when the body does not fit in maxSize.
func (r *Reader) ReadString(maxSize int) (string, int, error) {
	length, n, err := r.ReadUint16(maxSize)
	if err != nil {
		return "", 0, err
	}
	if int(length) > maxSize-n {
		return "", n, fmt.Errorf("%w: string of %d bytes, have %d", ErrShortBuffer, length, maxSize-n)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r.r, body); err != nil {
		return "", n, err
	}
	return string(body), n + int(length), nil
}

// Writer encodes fixed-layout fields to a byte stream.
// Each method returns the number of bytes written.
type Writer struct {
	w       io.Writer
	scratch [SizeUint64]byte
}

// NewWriter creates a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) flush(buf []byte, maxSize int) (int, error) {
	if len(buf) > maxSize {
		return 0, fmt.Errorf("%w: need %d, have %d", ErrShortBuffer, len(buf), maxSize)
	}
	return w.w.Write(buf)
}

// WriteUint8 writes a single byte.
func (w *Writer) WriteUint8(v uint8, maxSize int) (int, error) {
	w.scratch[0] = v
	return w.flush(w.scratch[:SizeUint8], maxSize)
}

// WriteBool writes a boolean as 0 or 1.
func (w *Writer) WriteBool(v bool, maxSize int) (int, error) {
	w.scratch[0] = 0
	if v {
		w.scratch[0] = 1
	}
	return w.flush(w.scratch[:SizeBool], maxSize)
}

// WriteUint16 writes a big-endian uint16.
func (w *Writer) WriteUint16(v uint16, maxSize int) (int, error) {
	binary.BigEndian.PutUint16(w.scratch[:SizeUint16], v)
	return w.flush(w.scratch[:SizeUint16], maxSize)
}

// WriteUint32 writes a big-endian uint32.
func (w *Writer) WriteUint32(v uint32, maxSize int) (int, error) {
	binary.BigEndian.PutUint32(w.scratch[:SizeUint32], v)
	return w.flush(w.scratch[:SizeUint32], maxSize)
}

// WriteUint64 writes a big-endian uint64.
func (w *Writer) WriteUint64(v uint64, maxSize int) (int, error) {
	binary.BigEndian.PutUint64(w.scratch[:SizeUint64], v)
	return w.flush(w.scratch[:SizeUint64], maxSize)
}

// WriteString writes s with a u16 length prefix.
// Nothing is written when the whole field does not fit in maxSize.
func (w *Writer) WriteString(s string, maxSize int) (int, error) {
	if len(s) > MaxStringLength {
		return 0, fmt.Errorf("%w: string of %d bytes", ErrFieldTooLarge, len(s))
	}
	if SizeUint16+len(s) > maxSize {
		return 0, fmt.Errorf("%w: need %d, have %d", ErrShortBuffer, SizeUint16+len(s), maxSize)
	}
	n, err := w.WriteUint16(uint16(len(s)), maxSize)
	if err != nil {
		return n, err
	}
	m, err := io.WriteString(w.w, s)
	return n + m, err
}
