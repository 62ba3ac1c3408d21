// Package reader provides bounds-checked access to fixed-size records in an
// immutable byte buffer. Records are handed out as cryptobyte strings, so
// field decoding is a chain of big-endian reads that fails instead of
// panicking when a record is short.
package reader

import (
	"fmt"

	"github.com/QEStudios/ModRecover/parser/format"
	"golang.org/x/crypto/cryptobyte"
)

// Reader reads records at absolute offsets. It never panics.
type Reader struct {
	data []byte
}

// New wraps data. The slice is not copied and must not be modified while the Reader is in use.
func New(data []byte) Reader {
	return Reader{data: data}
}

// inRange reports whether n bytes starting at off are inside the buffer.
func (r Reader) inRange(off, n int) bool {
	if off < 0 || n < 0 {
		return false
	}
	// off+n cannot overflow once both are known to be smaller than the length.
	if off > len(r.data) || n > len(r.data) {
		return false
	}
	return off+n <= len(r.data)
}

// Bytes returns a sub-slice of the buffer without copying.
func (r Reader) Bytes(off, n int) ([]byte, error) {
	if !r.inRange(off, n) {
		return nil, fmt.Errorf("%w: %d bytes at offset %d (length %d)", format.ErrTruncatedData, n, off, len(r.data))
	}
	return r.data[off : off+n : off+n], nil
}

// Record returns the n bytes at off for field-by-field decoding.
func (r Reader) Record(off, n int) (cryptobyte.String, error) {
	b, err := r.Bytes(off, n)
	if err != nil {
		return nil, err
	}
	return cryptobyte.String(b), nil
}

// U32BE reads a single big-endian long.
func (r Reader) U32BE(off int) (uint32, error) {
	s, err := r.Record(off, 4)
	if err != nil {
		return 0, err
	}
	var v uint32
	s.ReadUint32(&v)
	return v, nil
}

// Records reads up to count fixed-size records starting at base. Loading
// stops at the first record that does not fit in the buffer or that read
// rejects; the returned slice then holds only the records before it.
func Records[T any](r Reader, base, count, size int, read func(rec *cryptobyte.String) (T, bool)) []T {
	if count <= 0 || size <= 0 {
		return nil
	}
	out := make([]T, 0, min(count, len(r.data)/size+1))
	for i := 0; i < count; i++ {
		rec, err := r.Record(base+i*size, size)
		if err != nil {
			break
		}
		v, ok := read(&rec)
		if !ok {
			break
		}
		out = append(out, v)
	}
	return out
}
