package cfb

import (
	"encoding/binary"
	"fmt"
)

// Reader is a bounds-checked little-endian cursor over an in-memory buffer.
// Every read validates against the buffer length so hostile offsets in an
// untrusted file can never index past the end of the input. It is the
// foundation for all binary parsing here and in the MAPI property decoder.
type Reader struct {
	data []byte
	off  int
}

// NewReader returns a cursor positioned at the start of data. The cursor
// aliases data; it never copies.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Remaining reports how many bytes are left after the cursor.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

// Seek positions the cursor at an absolute offset.
func (r *Reader) Seek(off int) error {
	if off < 0 || off > len(r.data) {
		return fmt.Errorf("%w: seek to %d outside buffer of %d bytes", ErrTruncated, off, len(r.data))
	}
	r.off = off
	return nil
}

// Bytes returns the next n bytes as a subslice of the input (no copy).
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.data) {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, r.off, len(r.data)-r.off)
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

// Skip advances the cursor without reading.
func (r *Reader) Skip(n int) error {
	_, err := r.Bytes(n)
	return err
}

// U16 reads a little-endian uint16.
func (r *Reader) U16() (uint16, error) {
	b, err := r.Bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// U32 reads a little-endian uint32.
func (r *Reader) U32() (uint32, error) {
	b, err := r.Bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// U64 reads a little-endian uint64.
func (r *Reader) U64() (uint64, error) {
	b, err := r.Bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}
