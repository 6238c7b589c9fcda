package packet

import "strconv"

// Kind names which part of the next decoded frame gets rendered.
type Kind uint8

const (
	KindNone Kind = iota
	KindMPU
	KindSPU
	KindINV
	KindPCS
	KindLIP
	KindESS
	KindPRU
	KindAll
)

var kindNames = [...]string{
	KindNone: "NONE",
	KindMPU:  "MPU",
	KindSPU:  "SPU",
	KindINV:  "INV",
	KindPCS:  "PCS",
	KindLIP:  "LIP",
	KindESS:  "ESS",
	KindPRU:  "PRU",
	KindAll:  "ALL",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "UNKNOWN"
}

// ParseKind maps a three-letter mnemonic to its Kind. Matching is case-sensitive.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return KindNone, false
}

// Category reports the element category a Kind selects, if any.
func (k Kind) Category() (Category, bool) {
	switch k {
	case KindINV:
		return CategoryINV, true
	case KindPCS:
		return CategoryPCS, true
	case KindLIP:
		return CategoryLIP, true
	case KindESS:
		return CategoryESS, true
	case KindPRU:
		return CategoryPRU, true
	default:
		return CategoryUnknown, false
	}
}

// Selector is the one-shot render directive.
//
// SubUnit is the zero-based sub-unit position used by element kinds. Instance
// narrows ESS/PRU output to one 1-based instance; zero selects all of them.
type Selector struct {
	Kind     Kind `json:"kind"`
	SubUnit  int  `json:"sub_unit"`
	Instance int  `json:"instance"`
}

func (s Selector) String() string {
	_, element := s.Kind.Category()
	if !element && s.Kind != KindSPU {
		return s.Kind.String()
	}
	out := s.Kind.String() + "/su=" + strconv.Itoa(s.SubUnit)
	if element && s.Instance > 0 {
		out += "/inst=" + strconv.Itoa(s.Instance)
	}
	return out
}

// Category is an element's positional classification inside its sub-unit.
type Category uint8

const (
	CategoryUnknown Category = iota
	CategoryINV
	CategoryPCS
	CategoryLIP
	CategoryESS
	CategoryPRU
)

func (c Category) String() string {
	switch c {
	case CategoryINV:
		return "INV"
	case CategoryPCS:
		return "PCS"
	case CategoryLIP:
		return "LIP"
	case CategoryESS:
		return "ESS"
	case CategoryPRU:
		return "PRU"
	default:
		return "UNKNOWN"
	}
}

// Classify assigns a category to element position k (zero-based) of a
// sub-unit carrying essCount ESS and pruCount PRU instances. INV, PCS and LIP
// always occupy exactly one slot each, whatever their declared counts say.
// Instance is 1-based for ESS and PRU and 1 for the fixed slots. Positions
// beyond the PRU range classify as CategoryUnknown.
func Classify(k, essCount, pruCount int) (Category, int) {
	switch {
	case k == 0:
		return CategoryINV, 1
	case k == 1:
		return CategoryPCS, 1
	case k == 2:
		return CategoryLIP, 1
	case k >= 3 && k < 3+essCount:
		return CategoryESS, k - 2
	case k >= 3+essCount && k < 3+essCount+pruCount:
		return CategoryPRU, k - 2 - essCount
	default:
		return CategoryUnknown, 0
	}
}
