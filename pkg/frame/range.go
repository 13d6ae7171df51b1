package frame

// Range is a contiguous run of frame records, typically a mapped view of a
// ring buffer. The zero Range is empty.
type Range struct {
	buf []byte
}

// NewRange wraps b as a Range. b must start on a record boundary.
func NewRange(b []byte) Range {
	return Range{buf: b}
}

// Len returns the number of bytes in the range.
func (r Range) Len() int { return len(r.buf) }

// Empty reports whether the range holds no records.
func (r Range) Empty() bool { return len(r.buf) == 0 }

// Bytes returns the raw bytes of the range. The slice aliases the producer's
// memory.
func (r Range) Bytes() []byte { return r.buf }

// Iter returns a fresh iterator positioned before the first record.
// Each call restarts the walk.
func (r Range) Iter() *Iterator {
	return &Iterator{buf: r.buf}
}

// Count walks the range and returns the number of records.
func (r Range) Count() (int, error) {
	n := 0
	it := r.Iter()
	for it.Next() {
		n++
	}
	return n, it.Err()
}

// PrefixBytes reports whether n equals the summed length of some prefix of
// the range's records.
func (r Range) PrefixBytes(n int) bool {
	if n == 0 {
		return true
	}
	it := r.Iter()
	for it.Next() {
		if it.Offset() == n {
			return true
		}
		if it.Offset() > n {
			return false
		}
	}
	return false
}

// Slice returns the sub-range [0, n). n must be a record boundary.
func (r Range) Slice(n int) Range {
	return Range{buf: r.buf[:n:n]}
}

// Iterator walks the records of a Range by their bytes_of_frame field.
//
//	it := rng.Iter()
//	for it.Next() {
//	    f := it.Frame()
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator struct {
	buf []byte
	off int
	cur VideoFrame
	err error
}

// Next advances to the next record. It returns false at the end of the range
// or on the first malformed record, in which case Err is non-nil.
func (it *Iterator) Next() bool {
	if it.err != nil || it.off >= len(it.buf) {
		return false
	}
	rest := it.buf[it.off:]
	h, err := ParseHeader(rest)
	if err != nil {
		it.err = err
		return false
	}
	if err := h.Validate(len(rest)); err != nil {
		it.err = err
		return false
	}
	n := int(h.BytesOfFrame)
	it.cur = VideoFrame{Header: h, Data: rest[:n:n]}
	it.off += n
	return true
}

// Frame returns the current record.
func (it *Iterator) Frame() VideoFrame { return it.cur }

// Offset returns the byte offset just past the current record, i.e. the
// number of bytes a consumer releases to drop every record seen so far.
func (it *Iterator) Offset() int { return it.off }

// Err returns the first decoding error encountered.
func (it *Iterator) Err() error { return it.err }
