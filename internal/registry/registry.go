package registry

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	DefaultCapacity = 100
	DefaultFirstID  = 10
)

var (
	ErrFull        = errors.New("registry: capacity reached")
	ErrUnknownPeer = errors.New("registry: unknown peer")
	ErrNilWriter   = errors.New("registry: nil writer")
)

// Config bounds and tunes a Registry.
type Config struct {
	// Capacity C: admission fails once the next insertion would reach C,
	// so at most C-1 peers are ever registered.
	Capacity     int
	FirstID      int
	WriteTimeout time.Duration

	// OnWriteError observes every failed per-peer write. Delivery to the
	// remaining peers continues regardless.
	OnWriteError func(p *Peer, err error)
}

func DefaultConfig() Config {
	return Config{
		Capacity:     DefaultCapacity,
		FirstID:      DefaultFirstID,
		WriteTimeout: 5 * time.Second,
	}
}

// Registry maps peer ids to live connections.
type Registry struct {
	mu     sync.RWMutex
	peers  map[int]*Peer
	nextID int
	cfg    Config
}

func New(cfg Config) *Registry {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.OnWriteError == nil {
		cfg.OnWriteError = logWriteError
	}
	return &Registry{
		peers:  make(map[int]*Peer),
		nextID: cfg.FirstID,
		cfg:    cfg,
	}
}

func logWriteError(p *Peer, err error) {
	log.Warn().
		Int("conn_id", p.ID).
		Str("remote", p.RemoteAddr).
		Err(err).
		Msg("broadcast_failed")
}

// Register admits a new peer writing to w, assigning the next id. Rejected
// admissions consume no id and leave the registry unchanged.
func (r *Registry) Register(remoteAddr string, w io.Writer) (*Peer, error) {
	if w == nil {
		return nil, ErrNilWriter
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.peers)+1 >= r.cfg.Capacity {
		return nil, fmt.Errorf("%w: size=%d capacity=%d", ErrFull, len(r.peers), r.cfg.Capacity)
	}
	id := r.nextID
	r.nextID++
	p := &Peer{
		ID:           id,
		Name:         strconv.Itoa(id),
		RemoteAddr:   remoteAddr,
		Session:      uuid.New(),
		ConnectedAt:  time.Now(),
		w:            w,
		writeTimeout: r.cfg.WriteTimeout,
	}
	r.peers[id] = p
	return p, nil
}

// Deregister removes id. Absent ids are ignored.
func (r *Registry) Deregister(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.peers, id)
}

func (r *Registry) Lookup(id int) (*Peer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.peers[id]
	return p, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

func (r *Registry) Capacity() int {
	return r.cfg.Capacity
}

// BroadcastAll writes text to every registered peer.
func (r *Registry) BroadcastAll(text string) error {
	return r.broadcast(text, func(*Peer) bool { return true })
}

// BroadcastExcept writes text to every registered peer other than id.
func (r *Registry) BroadcastExcept(id int, text string) error {
	return r.broadcast(text, func(p *Peer) bool { return p.ID != id })
}

// SendTo writes text to a single peer.
func (r *Registry) SendTo(id int, text string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.peers[id]
	if !ok {
		return fmt.Errorf("%w: id=%d", ErrUnknownPeer, id)
	}
	if err := p.Send(text); err != nil {
		r.cfg.OnWriteError(p, err)
		return fmt.Errorf("peer %d: %w", p.ID, err)
	}
	return nil
}

// SendActiveClients writes one "<<CLIENT id | name" line per registered peer
// to id, in ascending id order.
func (r *Registry) SendActiveClients(id int) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dst, ok := r.peers[id]
	if !ok {
		return fmt.Errorf("%w: id=%d", ErrUnknownPeer, id)
	}
	for _, p := range r.sortedLocked() {
		if err := dst.Send(fmt.Sprintf("<<CLIENT %d | %s\r\n", p.ID, p.Name)); err != nil {
			r.cfg.OnWriteError(dst, err)
			return fmt.Errorf("peer %d: %w", dst.ID, err)
		}
	}
	return nil
}

// Snapshot returns every registered peer ordered by id.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	peers := r.sortedLocked()
	out := make([]Entry, 0, len(peers))
	for _, p := range peers {
		out = append(out, p.entry())
	}
	return out
}

// CloseAll closes every registered transport without deregistering; each
// owning handler observes the close on its next read and leaves normally.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.peers {
		_ = p.Close()
	}
}

func (r *Registry) broadcast(text string, include func(*Peer) bool) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var errs []error
	for _, p := range r.sortedLocked() {
		if !include(p) {
			continue
		}
		if err := p.Send(text); err != nil {
			r.cfg.OnWriteError(p, err)
			errs = append(errs, fmt.Errorf("peer %d: %w", p.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) sortedLocked() []*Peer {
	out := make([]*Peer, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}
