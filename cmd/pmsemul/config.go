package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/wbkim0504/pms-emul/internal/server"
)

// pmsemul config.toml key mapping to server runtime settings.
type fileConfig struct {
	Addr            string `toml:"addr"`
	HTTPAddr        string `toml:"http_addr"`
	MaxClients      int    `toml:"max_clients"`
	FirstID         int    `toml:"first_id"`
	BufferSize      int    `toml:"buffer_size"`
	AcceptPause     string `toml:"accept_pause"`
	WriteTimeout    string `toml:"write_timeout"`
	StatusInterval  string `toml:"status_interval"`
	SelectorScope   string `toml:"selector_scope"`
	QuitMode        string `toml:"quit_mode"`
	RetainRemainder bool   `toml:"retain_remainder"`
}

// loadServerConfig overlays the keys defined in path on server defaults.
func loadServerConfig(path string) (server.Config, error) {
	cfg := server.DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return server.Config{}, fmt.Errorf("load pmsemul config: %w", err)
	}

	if meta.IsDefined("addr") {
		cfg.Addr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("http_addr") {
		cfg.HTTPAddr = strings.TrimSpace(raw.HTTPAddr)
	}
	if meta.IsDefined("max_clients") {
		cfg.MaxClients = raw.MaxClients
	}
	if meta.IsDefined("first_id") {
		cfg.FirstID = raw.FirstID
	}
	if meta.IsDefined("buffer_size") {
		cfg.BufferSize = raw.BufferSize
	}
	if meta.IsDefined("accept_pause") {
		if cfg.AcceptPause, err = parseDuration("accept_pause", raw.AcceptPause); err != nil {
			return server.Config{}, err
		}
	}
	if meta.IsDefined("write_timeout") {
		if cfg.WriteTimeout, err = parseDuration("write_timeout", raw.WriteTimeout); err != nil {
			return server.Config{}, err
		}
	}
	if meta.IsDefined("status_interval") {
		if cfg.StatusInterval, err = parseDuration("status_interval", raw.StatusInterval); err != nil {
			return server.Config{}, err
		}
	}
	if meta.IsDefined("selector_scope") {
		cfg.SelectorScope = server.SelectorScope(strings.TrimSpace(raw.SelectorScope))
	}
	if meta.IsDefined("quit_mode") {
		cfg.QuitMode = server.QuitMode(strings.TrimSpace(raw.QuitMode))
	}
	if meta.IsDefined("retain_remainder") {
		cfg.RetainRemainder = raw.RetainRemainder
	}

	if err := cfg.Validate(); err != nil {
		return server.Config{}, fmt.Errorf("load pmsemul config: %w", err)
	}
	return cfg, nil
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("load pmsemul config: %s: %w", key, err)
	}
	return d, nil
}
