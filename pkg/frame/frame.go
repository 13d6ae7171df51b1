package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderSize is the size in bytes of the fixed record header.
const HeaderSize = 56

// Alignment is the byte alignment of every record in a stream.
const Alignment = 8

// Header field offsets.
const (
	offBytesOfFrame    = 0
	offFrameID         = 8
	offHardwareFrameID = 16
	offTimestamp       = 24
	offChannels        = 32
	offWidth           = 36
	offHeight          = 40
	offPlanes          = 44
	offSampleType      = 48
)

// ErrMalformedRecord is returned when a record header does not describe a
// well-formed record within the available bytes.
var ErrMalformedRecord = errors.New("frame: malformed record")

// SampleType identifies the pixel sample encoding of a frame payload.
type SampleType uint8

const (
	SampleU8 SampleType = iota
	SampleU16
	SampleI8
	SampleI16
	SampleF32
	SampleU10
	SampleU12
	SampleU14
	sampleTypeCount
)

var sampleNames = [...]string{
	SampleU8:  "u8",
	SampleU16: "u16",
	SampleI8:  "i8",
	SampleI16: "i16",
	SampleF32: "f32",
	SampleU10: "u10",
	SampleU12: "u12",
	SampleU14: "u14",
}

// String returns the short name of the sample type ("u16", "f32", ...).
func (t SampleType) String() string {
	if t < sampleTypeCount {
		return sampleNames[t]
	}
	return fmt.Sprintf("SampleType(%d)", uint8(t))
}

// Valid reports whether t is a known sample type.
func (t SampleType) Valid() bool {
	return t < sampleTypeCount
}

// BytesPerSample returns the storage size of one sample.
// Packed 10/12/14 bit samples occupy two bytes.
func (t SampleType) BytesPerSample() int {
	switch t {
	case SampleU8, SampleI8:
		return 1
	case SampleU16, SampleI16, SampleU10, SampleU12, SampleU14:
		return 2
	case SampleF32:
		return 4
	default:
		return 0
	}
}

// ParseSampleType converts a short name back into a SampleType.
func ParseSampleType(s string) (SampleType, error) {
	for i, name := range sampleNames {
		if name == s {
			return SampleType(i), nil
		}
	}
	return 0, fmt.Errorf("frame: unknown sample type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t SampleType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("frame: unknown sample type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *SampleType) UnmarshalText(b []byte) error {
	v, err := ParseSampleType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Shape describes the layout of a frame's samples.
type Shape struct {
	Channels uint32
	Width    uint32
	Height   uint32
	Planes   uint32
}

// Samples returns the number of samples in the shape.
func (s Shape) Samples() uint64 {
	return uint64(s.Channels) * uint64(s.Width) * uint64(s.Height) * uint64(s.Planes)
}

// Header is the decoded fixed header of a frame record.
type Header struct {
	BytesOfFrame    uint64
	FrameID         uint64
	HardwareFrameID uint64
	TimestampNs     uint64
	Shape           Shape
	Type            SampleType
}

// PayloadBytes returns the pixel payload size implied by shape and sample type.
func PayloadBytes(shape Shape, t SampleType) int {
	return int(shape.Samples()) * t.BytesPerSample()
}

// RecordBytes returns the aligned record size for a payload of n bytes.
func RecordBytes(payload int) int {
	n := HeaderSize + payload
	return (n + Alignment - 1) &^ (Alignment - 1)
}

// PutHeader encodes h into the first HeaderSize bytes of dst.
// Reserved bytes are zeroed.
func PutHeader(dst []byte, h Header) {
	_ = dst[HeaderSize-1]
	le := binary.LittleEndian
	le.PutUint64(dst[offBytesOfFrame:], h.BytesOfFrame)
	le.PutUint64(dst[offFrameID:], h.FrameID)
	le.PutUint64(dst[offHardwareFrameID:], h.HardwareFrameID)
	le.PutUint64(dst[offTimestamp:], h.TimestampNs)
	le.PutUint32(dst[offChannels:], h.Shape.Channels)
	le.PutUint32(dst[offWidth:], h.Shape.Width)
	le.PutUint32(dst[offHeight:], h.Shape.Height)
	le.PutUint32(dst[offPlanes:], h.Shape.Planes)
	dst[offSampleType] = byte(h.Type)
	clear(dst[offSampleType+1 : HeaderSize])
}

// ParseHeader decodes the header at the start of src.
// It only checks that src holds a full header; use Validate to check the
// record length against the surrounding bytes.
func ParseHeader(src []byte) (Header, error) {
	if len(src) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes left, header needs %d", ErrMalformedRecord, len(src), HeaderSize)
	}
	le := binary.LittleEndian
	return Header{
		BytesOfFrame:    le.Uint64(src[offBytesOfFrame:]),
		FrameID:         le.Uint64(src[offFrameID:]),
		HardwareFrameID: le.Uint64(src[offHardwareFrameID:]),
		TimestampNs:     le.Uint64(src[offTimestamp:]),
		Shape: Shape{
			Channels: le.Uint32(src[offChannels:]),
			Width:    le.Uint32(src[offWidth:]),
			Height:   le.Uint32(src[offHeight:]),
			Planes:   le.Uint32(src[offPlanes:]),
		},
		Type: SampleType(src[offSampleType]),
	}, nil
}

// Validate checks that the record described by h fits in avail bytes and
// that its length is aligned and large enough for its own payload.
func (h Header) Validate(avail int) error {
	n := h.BytesOfFrame
	switch {
	case n < HeaderSize:
		return fmt.Errorf("%w: bytes_of_frame %d smaller than header", ErrMalformedRecord, n)
	case n%Alignment != 0:
		return fmt.Errorf("%w: bytes_of_frame %d not %d-byte aligned", ErrMalformedRecord, n, Alignment)
	case n > uint64(avail):
		return fmt.Errorf("%w: bytes_of_frame %d overruns range (%d bytes left)", ErrMalformedRecord, n, avail)
	case uint64(HeaderSize+PayloadBytes(h.Shape, h.Type)) > n:
		return fmt.Errorf("%w: payload for %dx%d %s does not fit in %d bytes",
			ErrMalformedRecord, h.Shape.Width, h.Shape.Height, h.Type, n)
	}
	return nil
}

// VideoFrame is a view of one record. Data aliases the underlying buffer and
// must not be retained past the unmap of the range it came from.
type VideoFrame struct {
	Header
	Data []byte
}

// Bytes returns the entire record, header included.
func (f VideoFrame) Bytes() []byte {
	return f.Data[:f.BytesOfFrame:f.BytesOfFrame]
}

// Payload returns the pixel payload, excluding header and alignment padding.
func (f VideoFrame) Payload() []byte {
	return f.Data[HeaderSize : HeaderSize+PayloadBytes(f.Shape, f.Type)]
}
