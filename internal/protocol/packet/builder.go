package packet

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/wbkim0504/pms-emul/internal/protocol/frame"
)

var (
	ErrElementTooLarge  = errors.New("packet: element payload exceeds 255 bytes")
	ErrTooManySubUnits  = errors.New("packet: more than 255 sub-units")
	ErrTooManyInstances = errors.New("packet: more than 255 element instances")
	ErrSubUnitTooLarge  = errors.New("packet: sub-unit exceeds 65535 bytes")
)

// SubUnit is the canonical encoding input for one sub-unit: one INV, PCS and
// LIP element each, followed by the ESS and PRU instances in order.
type SubUnit struct {
	ID  byte
	INV []byte
	PCS []byte
	LIP []byte
	ESS [][]byte
	PRU [][]byte
}

// Packet is the encoding input for one frame.
type Packet struct {
	Type     byte
	Trailing byte
	SubUnits []SubUnit
}

// Encode renders p in wire format with declaredLength set to the frame size.
func Encode(p Packet) ([]byte, error) {
	if len(p.SubUnits) > 0xFF {
		return nil, ErrTooManySubUnits
	}
	body := make([]byte, 0, 256)
	for i, su := range p.SubUnits {
		enc, err := encodeSubUnit(su)
		if err != nil {
			return nil, fmt.Errorf("sub-unit[%d]: %w", i, err)
		}
		body = append(body, enc...)
	}
	out := frame.EncodeHeader(frame.Header{
		Type:           p.Type,
		DeclaredLength: uint32(frame.HeaderLen + len(body)),
		SubUnitCount:   uint8(len(p.SubUnits)),
		TrailingCount:  p.Trailing,
	})
	return append(out, body...), nil
}

func encodeSubUnit(su SubUnit) ([]byte, error) {
	if len(su.ESS) > 0xFF || len(su.PRU) > 0xFF {
		return nil, ErrTooManyInstances
	}
	elems := make([][]byte, 0, 3+len(su.ESS)+len(su.PRU))
	elems = append(elems, su.INV, su.PCS, su.LIP)
	elems = append(elems, su.ESS...)
	elems = append(elems, su.PRU...)

	size := SubUnitHeaderLen
	for _, e := range elems {
		if len(e) > 0xFF {
			return nil, ErrElementTooLarge
		}
		size += 1 + len(e)
	}
	if size > 0xFFFF {
		return nil, ErrSubUnitTooLarge
	}

	out := make([]byte, SubUnitHeaderLen, size)
	out[0] = su.ID
	binary.BigEndian.PutUint16(out[1:3], uint16(size))
	out[4] = 1
	out[5] = 1
	out[6] = 1
	out[7] = uint8(len(su.ESS))
	out[8] = uint8(len(su.PRU))
	for _, e := range elems {
		out = append(out, byte(len(e)))
		out = append(out, e...)
	}
	return out, nil
}
