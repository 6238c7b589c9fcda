package server

import (
	"sync"

	"github.com/wbkim0504/pms-emul/internal/protocol/control"
	"github.com/wbkim0504/pms-emul/internal/protocol/packet"
)

// SelectorCell is a synchronized one-shot diagnostic selector.
type SelectorCell struct {
	mu  sync.Mutex
	sel packet.Selector
}

func NewSelectorCell() *SelectorCell {
	return &SelectorCell{}
}

// Apply folds a select command into the cell and returns the new value.
func (c *SelectorCell) Apply(cmd control.Command) packet.Selector {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sel = cmd.Apply(c.sel)
	return c.sel
}

// Consume returns the current selector and resets its kind to KindNone in
// the same critical section. SubUnit survives the reset.
func (c *SelectorCell) Consume() packet.Selector {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.sel
	c.sel.Kind = packet.KindNone
	c.sel.Instance = 0
	return out
}

// Load returns the current selector without consuming it.
func (c *SelectorCell) Load() packet.Selector {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel
}
