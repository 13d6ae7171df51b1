package frame

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// Reader decodes a sequence of frame records from a byte stream, such as a
// file produced by the raw storage backend.
type Reader struct {
	file   *os.File
	reader *bufio.Reader
	off    int64
	buf    []byte
}

// NewReader reads records from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{reader: bufio.NewReaderSize(r, 1<<20)}
}

// OpenFile opens path and returns a Reader over it. Close releases the file.
func OpenFile(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := NewReader(f)
	r.file = f
	return r, nil
}

// Next returns the next record. The returned frame's Data is only valid
// until the following call to Next.
// Returns io.EOF at a clean record boundary and io.ErrUnexpectedEOF when the
// stream ends inside a record.
func (r *Reader) Next(ctx context.Context) (VideoFrame, error) {
	select {
	case <-ctx.Done():
		return VideoFrame{}, ctx.Err()
	default:
	}

	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r.reader, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return VideoFrame{}, io.EOF
		}
		return VideoFrame{}, fmt.Errorf("record at offset %d: %w", r.off, err)
	}

	h, err := ParseHeader(hdr[:])
	if err != nil {
		return VideoFrame{}, err
	}
	// Only the lower bound and alignment can be checked before reading.
	if err := h.Validate(int(h.BytesOfFrame)); err != nil {
		return VideoFrame{}, fmt.Errorf("record at offset %d: %w", r.off, err)
	}

	n := int(h.BytesOfFrame)
	if cap(r.buf) < n {
		r.buf = make([]byte, n)
	}
	r.buf = r.buf[:n]
	copy(r.buf, hdr[:])
	if _, err := io.ReadFull(r.reader, r.buf[HeaderSize:]); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return VideoFrame{}, fmt.Errorf("record at offset %d: %w", r.off, err)
	}

	r.off += int64(n)
	return VideoFrame{Header: h, Data: r.buf}, nil
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int64 {
	return r.off
}

// Close releases the underlying file, if the reader owns one.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}
