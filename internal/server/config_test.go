package server

import (
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/wbkim0504/pms-emul/internal/protocol/control"
	"github.com/wbkim0504/pms-emul/internal/protocol/packet"
	"github.com/wbkim0504/pms-emul/internal/testutil/testlog"
)

func TestConfigValidate(t *testing.T) {
	testlog.Start(t)
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Addr = " " }},
		{"capacity below two", func(c *Config) { c.MaxClients = 1 }},
		{"buffer below header", func(c *Config) { c.BufferSize = 9 }},
		{"negative pause", func(c *Config) { c.AcceptPause = -time.Second }},
		{"negative write timeout", func(c *Config) { c.WriteTimeout = -1 }},
		{"unknown scope", func(c *Config) { c.SelectorScope = "per-user" }},
		{"unknown quit mode", func(c *Config) { c.QuitMode = "abort" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestNextBackoffDelay(t *testing.T) {
	testlog.Start(t)
	cfg := BackoffConfig{
		InitialDelay: 50 * time.Millisecond,
		Multiplier:   2,
		MaxDelay:     time.Second,
	}
	want := []time.Duration{
		50 * time.Millisecond,
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		time.Second,
		time.Second,
	}
	for i, w := range want {
		if got := NextBackoffDelay(cfg, i+1, nil); got != w {
			t.Fatalf("attempt %d: got %s want %s", i+1, got, w)
		}
	}

	cfg.Jitter = true
	rng := rand.New(rand.NewSource(1))
	for attempt := 2; attempt < 10; attempt++ {
		got := NextBackoffDelay(cfg, attempt, rng)
		if got < 25*time.Millisecond || got > 1500*time.Millisecond {
			t.Fatalf("attempt %d: jittered delay %s out of range", attempt, got)
		}
	}
}

func TestSelectorCellConsumeIsOneShot(t *testing.T) {
	testlog.Start(t)
	cell := NewSelectorCell()
	cell.Apply(control.Parse([]byte("PRU13")))
	if got := cell.Load(); got.Kind != packet.KindPRU || got.SubUnit != 1 || got.Instance != 3 {
		t.Fatalf("unexpected selector %+v", got)
	}
	first := cell.Consume()
	if first.Kind != packet.KindPRU || first.Instance != 3 {
		t.Fatalf("first consume = %+v", first)
	}
	second := cell.Consume()
	if second.Kind != packet.KindNone || second.Instance != 0 || second.SubUnit != 1 {
		t.Fatalf("second consume = %+v", second)
	}
}

func TestSelectorCellConcurrentConsumers(t *testing.T) {
	testlog.Start(t)
	cell := NewSelectorCell()
	cell.Apply(control.Parse([]byte("ALL")))

	var wg sync.WaitGroup
	var mu sync.Mutex
	hits := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if cell.Consume().Kind == packet.KindAll {
				mu.Lock()
				hits++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if hits != 1 {
		t.Fatalf("selector observed by %d consumers, want 1", hits)
	}
}
