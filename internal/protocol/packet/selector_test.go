package packet

import "testing"

func TestParseKindRoundTrip(t *testing.T) {
	for _, k := range []Kind{KindNone, KindMPU, KindSPU, KindINV, KindPCS, KindLIP, KindESS, KindPRU, KindAll} {
		got, ok := ParseKind(k.String())
		if !ok || got != k {
			t.Fatalf("ParseKind(%q) = %v,%v", k.String(), got, ok)
		}
	}
	if _, ok := ParseKind("spu"); ok {
		t.Fatalf("mnemonics are case-sensitive")
	}
}

func TestSelectorString(t *testing.T) {
	cases := []struct {
		sel  Selector
		want string
	}{
		{Selector{Kind: KindNone}, "NONE"},
		{Selector{Kind: KindAll, SubUnit: 3}, "ALL"},
		{Selector{Kind: KindSPU, SubUnit: 2}, "SPU/su=2"},
		{Selector{Kind: KindESS, SubUnit: 1, Instance: 2}, "ESS/su=1/inst=2"},
		{Selector{Kind: KindINV, SubUnit: 0, Instance: 4}, "INV/su=0/inst=4"},
	}
	for _, tc := range cases {
		if got := tc.sel.String(); got != tc.want {
			t.Fatalf("%+v.String() = %q want %q", tc.sel, got, tc.want)
		}
	}
}
