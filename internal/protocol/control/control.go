// Package control parses the plain-text commands peers send in place of
// frames. Any input shorter than a frame header is a command.
package control

import (
	"bytes"

	"github.com/wbkim0504/pms-emul/internal/protocol/packet"
)

// Action is what a command asks the endpoint to do.
type Action uint8

const (
	ActionSelect Action = iota
	ActionQuit
	ActionList
)

func (a Action) String() string {
	switch a {
	case ActionQuit:
		return "quit"
	case ActionList:
		return "list"
	default:
		return "select"
	}
}

var (
	prefixQuit = []byte("quit")
	prefixList = []byte("LIST")
)

// Command is one parsed control input.
//
// For ActionSelect, Kind is always set (KindNone for unrecognised input).
// SubUnit and Instance are only meaningful when their Has* flag is true;
// otherwise the previous selector value is kept.
type Command struct {
	Action      Action
	Kind        packet.Kind
	SubUnit     int
	HasSubUnit  bool
	Instance    int
	HasInstance bool
}

// Parse classifies raw by exact, case-sensitive prefix.
func Parse(raw []byte) Command {
	if bytes.HasPrefix(raw, prefixQuit) {
		return Command{Action: ActionQuit}
	}
	if bytes.HasPrefix(raw, prefixList) {
		return Command{Action: ActionList}
	}

	cmd := Command{Action: ActionSelect, Kind: packet.KindNone}
	if len(raw) >= 3 {
		if k, ok := packet.ParseKind(string(raw[:3])); ok && k != packet.KindNone {
			cmd.Kind = k
		}
	}
	if d, ok := digitAt(raw, 3); ok {
		cmd.SubUnit, cmd.HasSubUnit = d, true
	}
	if d, ok := digitAt(raw, 4); ok {
		cmd.Instance, cmd.HasInstance = d, true
	}
	return cmd
}

func digitAt(raw []byte, i int) (int, bool) {
	if len(raw) <= i {
		return 0, false
	}
	c := raw[i]
	if c < '0' || c > '9' {
		return 0, false
	}
	return int(c - '0'), true
}

// Apply folds a select command into sel. Instance resets to "all" unless the
// command names one.
func (c Command) Apply(sel packet.Selector) packet.Selector {
	if c.Action != ActionSelect {
		return sel
	}
	sel.Kind = c.Kind
	if c.HasSubUnit {
		sel.SubUnit = c.SubUnit
	}
	sel.Instance = 0
	if c.HasInstance {
		sel.Instance = c.Instance
	}
	return sel
}
