package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wbkim0504/pms-emul/internal/protocol/frame"
	"github.com/wbkim0504/pms-emul/internal/registry"
)

var ErrInvalidConfig = errors.New("server: invalid config")

// SelectorScope controls who shares the diagnostic selector.
type SelectorScope string

const (
	// ScopeGlobal shares one selector across every connection; a command on
	// one connection steers the next decode on any connection.
	ScopeGlobal SelectorScope = "global"
	// ScopeConnection gives each connection its own selector.
	ScopeConnection SelectorScope = "connection"
)

// QuitMode controls how a "quit" command ends the process.
type QuitMode string

const (
	// QuitDrain stops accepting, closes every peer so each leaves with a
	// notice, waits for handlers, then returns ErrQuit from Serve.
	QuitDrain QuitMode = "drain"
	// QuitExit terminates immediately; peers get no leave notice.
	QuitExit QuitMode = "exit"
)

// BackoffConfig defines retry backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config defines endpoint runtime settings.
type Config struct {
	Addr            string
	HTTPAddr        string
	MaxClients      int
	FirstID         int
	BufferSize      int
	AcceptPause     time.Duration
	AcceptBackoff   BackoffConfig
	WriteTimeout    time.Duration
	StatusInterval  time.Duration
	SelectorScope   SelectorScope
	QuitMode        QuitMode
	RetainRemainder bool
}

func DefaultConfig() Config {
	return Config{
		Addr:           ":5000",
		MaxClients:     registry.DefaultCapacity,
		FirstID:        registry.DefaultFirstID,
		BufferSize:     frame.DefaultBufferSize,
		AcceptPause:    time.Second,
		WriteTimeout:   5 * time.Second,
		StatusInterval: 60 * time.Second,
		SelectorScope:  ScopeGlobal,
		QuitMode:       QuitDrain,
		AcceptBackoff: BackoffConfig{
			InitialDelay: 50 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     time.Second,
			Jitter:       true,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr is required", ErrInvalidConfig)
	}
	if c.MaxClients < 2 {
		return fmt.Errorf("%w: max_clients must be at least 2, got %d", ErrInvalidConfig, c.MaxClients)
	}
	if c.BufferSize < frame.HeaderLen {
		return fmt.Errorf("%w: buffer_size must be at least %d, got %d", ErrInvalidConfig, frame.HeaderLen, c.BufferSize)
	}
	if c.AcceptPause < 0 || c.WriteTimeout < 0 || c.StatusInterval < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}
	switch c.SelectorScope {
	case ScopeGlobal, ScopeConnection:
	default:
		return fmt.Errorf("%w: unknown selector_scope %q", ErrInvalidConfig, c.SelectorScope)
	}
	switch c.QuitMode {
	case QuitDrain, QuitExit:
	default:
		return fmt.Errorf("%w: unknown quit_mode %q", ErrInvalidConfig, c.QuitMode)
	}
	return nil
}
