package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/wbkim0504/pms-emul/internal/protocol/packet"
	"github.com/wbkim0504/pms-emul/internal/registry"
)

func TestHexDumpWrapsEveryTenBytes(t *testing.T) {
	b := make([]byte, 12)
	for i := range b {
		b[i] = byte(i)
	}
	got := HexDump(b)
	want := "0x00 0x01 0x02 0x03 0x04 0x05 0x06 0x07 0x08 0x09 \n0x0A 0x0B \n"
	if got != want {
		t.Fatalf("unexpected dump:\n%q\nwant\n%q", got, want)
	}
}

func TestHexDumpEmpty(t *testing.T) {
	if got := HexDump(nil); got != "\n" {
		t.Fatalf("unexpected empty dump: %q", got)
	}
}

func TestTitleByKind(t *testing.T) {
	cases := []struct {
		block packet.Block
		want  string
	}{
		{packet.Block{Kind: packet.KindAll, Bytes: make([]byte, 30)}, "ALL (30 bytes) ..."},
		{packet.Block{Kind: packet.KindMPU, Type: 0x11}, "MPU (type 0x11) ..."},
		{packet.Block{Kind: packet.KindSPU, SubUnit: 2, SubUnitID: 0x22}, "SPU [2] (id 0x22) ..."},
		{packet.Block{Kind: packet.KindPCS, Category: packet.CategoryPCS, SubUnit: 0}, "PCS [sub-unit 0] ..."},
		{packet.Block{Kind: packet.KindESS, Category: packet.CategoryESS, Instance: 2, SubUnit: 1}, "ESS #2 [sub-unit 1] ..."},
	}
	for _, tc := range cases {
		if got := Title(tc.block); got != tc.want {
			t.Fatalf("Title() = %q, want %q", got, tc.want)
		}
	}
}

func TestBlocksWritesTitleAndDump(t *testing.T) {
	var buf bytes.Buffer
	err := Blocks(&buf, []packet.Block{{Kind: packet.KindMPU, Type: 0x10, Bytes: []byte{0x10, 0, 0, 0, 10}}})
	if err != nil {
		t.Fatalf("render blocks: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "MPU (type 0x10) ...") {
		t.Fatalf("missing title: %q", out)
	}
	if !strings.Contains(out, "0x10 0x00 0x00 0x00 0x0A") {
		t.Fatalf("missing dump: %q", out)
	}
}

func TestStatusListing(t *testing.T) {
	var buf bytes.Buffer
	err := Status(&buf, []registry.Entry{
		{ID: 10, Address: "10.0.0.1:4000"},
		{ID: 12, Address: "10.0.0.2:4001"},
	})
	if err != nil {
		t.Fatalf("render status: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"current mpu list", "[1] 10.0.0.1:4000 (id 10)", "[2] 10.0.0.2:4001 (id 12)", "total 2 MPUs are connected"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status listing missing %q:\n%s", want, out)
		}
	}
}
