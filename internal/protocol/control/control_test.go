package control

import (
	"testing"

	"github.com/wbkim0504/pms-emul/internal/protocol/packet"
)

func TestParse(t *testing.T) {
	cases := []struct {
		raw  string
		want Command
	}{
		{"quit", Command{Action: ActionQuit}},
		{"quit\r\n", Command{Action: ActionQuit}},
		{"LIST", Command{Action: ActionList}},
		{"ALL", Command{Action: ActionSelect, Kind: packet.KindAll}},
		{"MPU\n", Command{Action: ActionSelect, Kind: packet.KindMPU}},
		{"SPU2", Command{Action: ActionSelect, Kind: packet.KindSPU, SubUnit: 2, HasSubUnit: true}},
		{"INV0\r\n", Command{Action: ActionSelect, Kind: packet.KindINV, SubUnit: 0, HasSubUnit: true}},
		{"ESS12", Command{Action: ActionSelect, Kind: packet.KindESS, SubUnit: 1, HasSubUnit: true, Instance: 2, HasInstance: true}},
		{"PRU3x", Command{Action: ActionSelect, Kind: packet.KindPRU, SubUnit: 3, HasSubUnit: true}},
		{"spu2", Command{Action: ActionSelect, Kind: packet.KindNone, SubUnit: 2, HasSubUnit: true}},
		{"QUIT", Command{Action: ActionSelect, Kind: packet.KindNone}},
		{"qu", Command{Action: ActionSelect, Kind: packet.KindNone}},
		{"", Command{Action: ActionSelect, Kind: packet.KindNone}},
	}
	for _, tc := range cases {
		if got := Parse([]byte(tc.raw)); got != tc.want {
			t.Fatalf("Parse(%q) = %+v, want %+v", tc.raw, got, tc.want)
		}
	}
}

func TestApplyKeepsPreviousSubUnitWhenAbsent(t *testing.T) {
	sel := Parse([]byte("SPU2")).Apply(packet.Selector{})
	if sel.Kind != packet.KindSPU || sel.SubUnit != 2 {
		t.Fatalf("unexpected selector: %+v", sel)
	}
	sel = Parse([]byte("ESS")).Apply(sel)
	if sel.Kind != packet.KindESS || sel.SubUnit != 2 || sel.Instance != 0 {
		t.Fatalf("sub-unit should survive a command without digit: %+v", sel)
	}
	sel = Parse([]byte("garbage")).Apply(sel)
	if sel.Kind != packet.KindNone {
		t.Fatalf("unrecognised input must clear kind: %+v", sel)
	}
}

func TestApplyIgnoresNonSelectActions(t *testing.T) {
	in := packet.Selector{Kind: packet.KindMPU, SubUnit: 4}
	if got := Parse([]byte("quit")).Apply(in); got != in {
		t.Fatalf("quit changed selector: %+v", got)
	}
	if got := Parse([]byte("LIST")).Apply(in); got != in {
		t.Fatalf("LIST changed selector: %+v", got)
	}
}
