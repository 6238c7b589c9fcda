// Package render turns decode blocks and registry snapshots into the
// human-readable trace text operators read.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/wbkim0504/pms-emul/internal/protocol/packet"
	"github.com/wbkim0504/pms-emul/internal/registry"
)

// BytesPerLine is the hex dump row width.
const BytesPerLine = 10

const rule = "-------------------------"

// HexDump formats b as "0x%02X " cells, BytesPerLine per row, always
// ending in a newline.
func HexDump(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b)*5 + len(b)/BytesPerLine + 1)
	for i, c := range b {
		fmt.Fprintf(&sb, "0x%02X ", c)
		if (i+1)%BytesPerLine == 0 {
			sb.WriteByte('\n')
		}
	}
	sb.WriteByte('\n')
	return sb.String()
}

// Title names a block the way the trace shows it.
func Title(b packet.Block) string {
	switch b.Kind {
	case packet.KindAll:
		return fmt.Sprintf("ALL (%d bytes) ...", len(b.Bytes))
	case packet.KindMPU:
		return fmt.Sprintf("MPU (type 0x%02X) ...", b.Type)
	case packet.KindSPU:
		return fmt.Sprintf("SPU [%d] (id 0x%02X) ...", b.SubUnit, b.SubUnitID)
	default:
		switch b.Category {
		case packet.CategoryESS, packet.CategoryPRU:
			return fmt.Sprintf("%s #%d [sub-unit %d] ...", b.Category, b.Instance, b.SubUnit)
		default:
			return fmt.Sprintf("%s [sub-unit %d] ...", b.Category, b.SubUnit)
		}
	}
}

// Blocks writes every block as a title line followed by its hex dump.
func Blocks(w io.Writer, blocks []packet.Block) error {
	style := lipgloss.NewRenderer(w).NewStyle().Bold(true)
	var sb strings.Builder
	for _, b := range blocks {
		sb.WriteString(style.Render(Title(b)))
		sb.WriteByte('\n')
		sb.WriteString(HexDump(b.Bytes))
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// Status writes the periodic connected-peer listing.
func Status(w io.Writer, entries []registry.Entry) error {
	r := lipgloss.NewRenderer(w)
	heading := r.NewStyle().Bold(true)
	row := r.NewStyle().PaddingLeft(1)

	var sb strings.Builder
	sb.WriteString(rule + "\n")
	sb.WriteString(heading.Render("current mpu list ...") + "\n")
	sb.WriteString(rule + "\n")
	for i, e := range entries {
		sb.WriteString(row.Render(fmt.Sprintf("[%d] %s (id %d)", i+1, e.Address, e.ID)) + "\n")
	}
	sb.WriteString(rule + "\n")
	fmt.Fprintf(&sb, "total %d MPUs are connected\n", len(entries))
	_, err := io.WriteString(w, sb.String())
	return err
}
