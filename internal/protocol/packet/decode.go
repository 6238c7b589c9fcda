package packet

import (
	"encoding/binary"

	"github.com/wbkim0504/pms-emul/internal/protocol/frame"
)

// SubUnitHeaderLen is the fixed sub-unit header size.
const SubUnitHeaderLen = 9

// SubUnitHeader is the fixed header that opens every sub-unit.
// DeclaredSize is informational; the element walk is bounded by the counts.
type SubUnitHeader struct {
	ID           byte
	DeclaredSize uint16
	INVCount     uint8
	PCSCount     uint8
	LIPCount     uint8
	ESSCount     uint8
	PRUCount     uint8
}

// ElementCount is the number of elements that follow the header.
func (h SubUnitHeader) ElementCount() int {
	return int(h.INVCount) + int(h.PCSCount) + int(h.LIPCount) + int(h.ESSCount) + int(h.PRUCount)
}

func decodeSubUnitHeader(b []byte) SubUnitHeader {
	return SubUnitHeader{
		ID:           b[0],
		DeclaredSize: binary.BigEndian.Uint16(b[1:3]),
		INVCount:     b[4],
		PCSCount:     b[5],
		LIPCount:     b[6],
		ESSCount:     b[7],
		PRUCount:     b[8],
	}
}

// Block is one rendered unit of a decoded frame. Bytes is a view into the
// frame passed to Decode.
type Block struct {
	Kind      Kind
	Offset    int
	Bytes     []byte
	Type      byte
	SubUnit   int
	SubUnitID byte
	Category  Category
	Instance  int
}

type cursor struct {
	b   []byte
	off int
}

func (c *cursor) take(section string, n int) ([]byte, error) {
	if n < 0 || len(c.b)-c.off < n {
		return nil, &DecodeError{Section: section, Offset: c.off, Want: n, Have: len(c.b) - c.off}
	}
	out := c.b[c.off : c.off+n]
	c.off += n
	return out, nil
}

// Decode walks one complete frame and returns the blocks sel asks for.
//
// Every read is bounds-checked against len(b). On a short frame Decode
// returns the blocks produced before the fault together with a *DecodeError.
// KindNone yields no blocks and never touches b.
func Decode(b []byte, sel Selector) ([]Block, error) {
	switch sel.Kind {
	case KindNone:
		return nil, nil
	case KindAll:
		return []Block{{Kind: KindAll, Bytes: b, SubUnit: -1}}, nil
	}

	c := &cursor{b: b}
	head, err := c.take("packet header", frame.HeaderLen)
	if err != nil {
		return nil, err
	}
	hdr, _ := frame.DecodeHeader(head)

	if sel.Kind == KindMPU {
		return []Block{{Kind: KindMPU, Bytes: head, Type: hdr.Type, SubUnit: -1}}, nil
	}

	category, elementKind := sel.Kind.Category()
	if sel.Kind != KindSPU && !elementKind {
		return nil, nil
	}

	var blocks []Block
	for i := 0; i < int(hdr.SubUnitCount); i++ {
		start := c.off
		raw, err := c.take("sub-unit header", SubUnitHeaderLen)
		if err != nil {
			return blocks, err
		}
		su := decodeSubUnitHeader(raw)
		if sel.Kind == KindSPU {
			blocks = append(blocks, Block{
				Kind:      KindSPU,
				Offset:    start,
				Bytes:     raw,
				SubUnit:   i,
				SubUnitID: su.ID,
			})
		}

		target := elementKind && i == sel.SubUnit
		for k := 0; k < su.ElementCount(); k++ {
			elemStart := c.off
			size, err := c.take("element size", 1)
			if err != nil {
				return blocks, err
			}
			if _, err := c.take("element payload", int(size[0])); err != nil {
				return blocks, err
			}
			if !target {
				continue
			}
			cat, inst := Classify(k, int(su.ESSCount), int(su.PRUCount))
			if cat != category {
				continue
			}
			if sel.Instance > 0 && (cat == CategoryESS || cat == CategoryPRU) && inst != sel.Instance {
				continue
			}
			blocks = append(blocks, Block{
				Kind:      sel.Kind,
				Offset:    elemStart,
				Bytes:     b[elemStart:c.off],
				SubUnit:   i,
				SubUnitID: su.ID,
				Category:  cat,
				Instance:  inst,
			})
		}
	}
	return blocks, nil
}

// Categories returns the positional category order of a sub-unit's
// elements, one entry per element the walk consumes.
func Categories(h SubUnitHeader) []Category {
	out := make([]Category, 0, h.ElementCount())
	for k := 0; k < h.ElementCount(); k++ {
		cat, _ := Classify(k, int(h.ESSCount), int(h.PRUCount))
		out = append(out, cat)
	}
	return out
}
