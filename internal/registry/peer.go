package registry

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type deadlineWriter interface {
	SetWriteDeadline(t time.Time) error
}

// Peer is one registered connection. ID and Name never change after
// registration.
type Peer struct {
	ID          int
	Name        string
	RemoteAddr  string
	Session     uuid.UUID
	ConnectedAt time.Time

	mu           sync.Mutex
	w            io.Writer
	writeTimeout time.Duration
	leaveClaimed atomic.Bool
}

// ClaimLeave reports whether the caller is the first to claim this peer's
// leave notice. Exactly one caller ever gets true.
func (p *Peer) ClaimLeave() bool {
	return p.leaveClaimed.CompareAndSwap(false, true)
}

// Send writes text to the peer's transport. Concurrent senders are
// serialized so messages never interleave on the wire.
func (p *Peer) Send(text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if dw, ok := p.w.(deadlineWriter); ok && p.writeTimeout > 0 {
		_ = dw.SetWriteDeadline(time.Now().Add(p.writeTimeout))
		defer dw.SetWriteDeadline(time.Time{})
	}
	_, err := io.WriteString(p.w, text)
	return err
}

// Close closes the peer's transport when it supports closing.
func (p *Peer) Close() error {
	if c, ok := p.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Entry is the read-only view of a peer used by snapshots.
type Entry struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	Session     string    `json:"session"`
	ConnectedAt time.Time `json:"connected_at"`
}

func (p *Peer) entry() Entry {
	return Entry{
		ID:          p.ID,
		Name:        p.Name,
		Address:     p.RemoteAddr,
		Session:     p.Session.String(),
		ConnectedAt: p.ConnectedAt,
	}
}
