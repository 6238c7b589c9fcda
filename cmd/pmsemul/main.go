// pmsemul accepts PMS telemetry connections, reassembles and decodes frames
// on demand, and relays join and leave notices between connected peers.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/wbkim0504/pms-emul/internal/logging"
	"github.com/wbkim0504/pms-emul/internal/server"
)

func main() {
	logging.ConfigureRuntime()
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Error().Err(err).Msg("pmsemul failed")
		fmt.Fprintf(os.Stderr, "pmsemul: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := parseFlags(args)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = srv.ListenAndServe(ctx)
	if errors.Is(err, server.ErrQuit) {
		log.Info().Msg("stopped by quit command")
		return nil
	}
	return err
}

// parseFlags loads --config (when given) and applies explicitly set flags on
// top of it.
func parseFlags(args []string) (server.Config, error) {
	flags := pflag.NewFlagSet("pmsemul", pflag.ContinueOnError)
	configPath := flags.String("config", "", "path to TOML config file")
	addr := flags.String("addr", "", "TCP listen address (default :5000)")
	httpAddr := flags.String("http-addr", "", "HTTP status listen address (disabled when empty)")
	maxClients := flags.Int("max-clients", 0, "registry capacity; at most max-clients-1 peers are admitted")
	scope := flags.String("selector-scope", "", "diagnostic selector scope: global or connection")
	quitMode := flags.String("quit-mode", "", "quit handling: drain or exit")
	statusInterval := flags.Duration("status-interval", 0, "status listing interval (0 disables)")
	if err := flags.Parse(args); err != nil {
		return server.Config{}, err
	}

	cfg := server.DefaultConfig()
	if *configPath != "" {
		loaded, err := loadServerConfig(*configPath)
		if err != nil {
			return server.Config{}, err
		}
		cfg = loaded
	}

	if flags.Changed("addr") {
		cfg.Addr = *addr
	}
	if flags.Changed("http-addr") {
		cfg.HTTPAddr = *httpAddr
	}
	if flags.Changed("max-clients") {
		cfg.MaxClients = *maxClients
	}
	if flags.Changed("selector-scope") {
		cfg.SelectorScope = server.SelectorScope(*scope)
	}
	if flags.Changed("quit-mode") {
		cfg.QuitMode = server.QuitMode(*quitMode)
	}
	if flags.Changed("status-interval") {
		cfg.StatusInterval = *statusInterval
	}
	return cfg, cfg.Validate()
}
