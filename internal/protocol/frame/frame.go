package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// HeaderLen is the fixed packet header size. Inputs shorter than this are
	// control commands, never frame fragments.
	HeaderLen = 10

	// DefaultBufferSize is the per-connection reassembly capacity.
	DefaultBufferSize = 20480

	offType         = 0
	offLength       = 1
	offSubUnitCount = 8
	offTrailing     = 9
)

var (
	ErrShortHeader    = errors.New("frame: short fixed header")
	ErrBufferOverflow = errors.New("frame: reassembly buffer overflow")
)

// Header is the fixed packet header.
type Header struct {
	Type           byte
	DeclaredLength uint32
	SubUnitCount   uint8
	TrailingCount  uint8
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, fmt.Errorf("%w: have %d bytes", ErrShortHeader, len(b))
	}
	return Header{
		Type:           b[offType],
		DeclaredLength: binary.BigEndian.Uint32(b[offLength : offLength+4]),
		SubUnitCount:   b[offSubUnitCount],
		TrailingCount:  b[offTrailing],
	}, nil
}

// EncodeHeader writes h into the first HeaderLen bytes of a new slice.
// Reserved bytes 5..7 are zero.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderLen)
	buf[offType] = h.Type
	binary.BigEndian.PutUint32(buf[offLength:offLength+4], h.DeclaredLength)
	buf[offSubUnitCount] = h.SubUnitCount
	buf[offTrailing] = h.TrailingCount
	return buf
}

// DeclaredLength reads bytes 1..4 without validating the rest of the header.
func DeclaredLength(b []byte) (uint32, bool) {
	if len(b) < offLength+4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(b[offLength : offLength+4]), true
}
