package database

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// Every field is preceded by its length as a big-endian uint32, and integers
// are stored as big-endian uint32s.
const lengthSize = 4

// Smallest possible encoded account: five empty fields.
const minAccountSize = 5 * lengthSize

// Appends length-prefixed fields to a buffer.
type fieldWriter struct {
	buf     []byte
	charset Charset
}

func (w *fieldWriter) writeInt(name string, v int) error {
	if v < 0 || v > math.MaxInt32 {
		return errors.Wrapf(ErrInvalid, "%s %d is out of range", name, v)
	}
	w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(v))
	return nil
}

func (w *fieldWriter) writeString(name, s string) error {
	encoded, err := w.charset.encode(s)
	if err != nil {
		return errors.Wrapf(err, "cannot encode %s", name)
	}
	if uint64(len(encoded)) > math.MaxUint32 {
		return errors.Wrapf(ErrInvalid, "%s is too long (%d bytes)", name, len(encoded))
	}

	w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(len(encoded)))
	w.buf = append(w.buf, encoded...)
	return nil
}

// Reads length-prefixed fields from a buffer, never reading past its end.
type fieldReader struct {
	data    []byte
	offset  int
	charset Charset
}

func (r *fieldReader) remaining() int {
	return len(r.data) - r.offset
}

func (r *fieldReader) readUint32(name string) (uint32, error) {
	if r.remaining() < lengthSize {
		return 0, errors.Wrapf(ErrMalformed, "truncated %s at offset %d", name, r.offset)
	}
	v := binary.BigEndian.Uint32(r.data[r.offset:])
	r.offset += lengthSize
	return v, nil
}

func (r *fieldReader) readInt(name string) (int, error) {
	v, err := r.readUint32(name)
	if err != nil {
		return 0, err
	}
	if v > math.MaxInt32 {
		return 0, errors.Wrapf(ErrMalformed, "%s %d is out of range", name, v)
	}
	return int(v), nil
}

func (r *fieldReader) readString(name string) (string, error) {
	size, err := r.readUint32(name + " length")
	if err != nil {
		return "", err
	}
	if uint64(size) > uint64(r.remaining()) {
		return "", errors.Wrapf(ErrMalformed,
			"%s length %d runs past the end of the payload", name, size)
	}

	raw := r.data[r.offset : r.offset+int(size)]
	r.offset += int(size)

	s, err := r.charset.decode(raw)
	if err != nil {
		return "", errors.Wrapf(err, "cannot decode %s", name)
	}
	return s, nil
}

// Ensure the whole buffer was consumed.
func (r *fieldReader) done() error {
	if r.remaining() != 0 {
		return errors.Wrapf(ErrMalformed, "%d unexpected trailing bytes", r.remaining())
	}
	return nil
}
