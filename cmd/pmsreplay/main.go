// pmsreplay drives a running pmsemul endpoint: it sends an optional control
// command followed by synthetic frames or TCP payloads replayed from a
// capture, and prints the notices the endpoint broadcasts back.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/wbkim0504/pms-emul/internal/logging"
	"github.com/wbkim0504/pms-emul/internal/protocol/packet"
	"github.com/wbkim0504/pms-emul/internal/replay"
)

type options struct {
	Addr      string
	Command   string
	Synthetic int
	SubUnits  int
	Chunk     int
	Gap       time.Duration
	Pcap      string
	Port      uint16
	ListenFor time.Duration
}

func main() {
	logging.ConfigureRuntime()
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "pmsreplay: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, opts, os.Stdout); err != nil {
		log.Error().Err(err).Msg("pmsreplay failed")
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	flags := pflag.NewFlagSet("pmsreplay", pflag.ContinueOnError)
	flags.StringVar(&opts.Addr, "addr", "127.0.0.1:5000", "endpoint address")
	flags.StringVar(&opts.Command, "command", "", "control command sent before any frame (e.g. SPU2, ESS02, LIST, quit)")
	flags.IntVar(&opts.Synthetic, "synthetic", 0, "number of synthetic frames to send")
	flags.IntVar(&opts.SubUnits, "subunits", 3, "sub-units per synthetic frame")
	flags.IntVar(&opts.Chunk, "chunk", 0, "split every payload into writes of at most this many bytes (0 sends whole)")
	flags.DurationVar(&opts.Gap, "gap", 50*time.Millisecond, "pause between writes")
	flags.StringVar(&opts.Pcap, "pcap", "", "replay TCP payloads from this pcap or pcapng file")
	flags.Uint16Var(&opts.Port, "port", 5000, "destination port filter for --pcap (0 matches any)")
	flags.DurationVar(&opts.ListenFor, "listen-for", 0, "keep the connection open this long to print notices")
	if err := flags.Parse(args); err != nil {
		return options{}, err
	}
	if opts.Synthetic > 0 && opts.Pcap != "" {
		return options{}, errors.New("--synthetic and --pcap are mutually exclusive")
	}
	if opts.SubUnits < 0 || opts.SubUnits > 0xFF {
		return options{}, fmt.Errorf("--subunits must be within 0..255, got %d", opts.SubUnits)
	}
	return opts, nil
}

func run(ctx context.Context, opts options, out io.Writer) error {
	payloads, err := collectPayloads(opts)
	if err != nil {
		return err
	}

	var d net.Dialer
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	conn, err := d.DialContext(dialCtx, "tcp", opts.Addr)
	cancel()
	if err != nil {
		return fmt.Errorf("dial %s: %w", opts.Addr, err)
	}
	defer conn.Close()
	log.Info().Str("addr", opts.Addr).Str("local", conn.LocalAddr().String()).Msg("connected")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		printNotices(conn, out)
	}()

	if opts.Command != "" {
		cmd := replay.Sender{W: conn, Gap: opts.Gap}
		if _, err := cmd.Send(ctx, []byte(opts.Command)); err != nil {
			return fmt.Errorf("send command: %w", err)
		}
		log.Info().Str("command", opts.Command).Msg("command sent")
	}

	sender := replay.Sender{W: conn, Chunk: opts.Chunk, Gap: opts.Gap}
	n, err := sender.Send(ctx, payloads...)
	if err != nil {
		return fmt.Errorf("send payloads: %w", err)
	}
	log.Info().Int("payloads", len(payloads)).Int("bytes", n).Msg("payloads sent")

	if opts.ListenFor > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(opts.ListenFor):
		}
	}
	_ = conn.Close()
	wg.Wait()
	return nil
}

func collectPayloads(opts options) ([][]byte, error) {
	switch {
	case opts.Pcap != "":
		return replay.ReadCaptureFile(opts.Pcap, replay.Filter{DstPort: opts.Port})
	case opts.Synthetic > 0:
		out := make([][]byte, 0, opts.Synthetic)
		for i := 0; i < opts.Synthetic; i++ {
			b, err := packet.Encode(syntheticPacket(byte(i+1), opts.SubUnits))
			if err != nil {
				return nil, err
			}
			out = append(out, b)
		}
		return out, nil
	default:
		return nil, nil
	}
}

// syntheticPacket fills every element with recognizable bytes: the element
// marker, the sub-unit id and the frame sequence.
func syntheticPacket(seq byte, subUnits int) packet.Packet {
	p := packet.Packet{Type: seq}
	for i := 0; i < subUnits; i++ {
		id := byte(0x20 + i)
		p.SubUnits = append(p.SubUnits, packet.SubUnit{
			ID:  id,
			INV: []byte{0x60, id, seq},
			PCS: []byte{0x70, id, seq},
			LIP: []byte{0x80, id, seq},
			ESS: [][]byte{{0x31, id, seq}, {0x32, id, seq}},
			PRU: [][]byte{{0x41, id, seq}, {0x42, id, seq}},
		})
	}
	return p
}

func printNotices(r io.Reader, out io.Writer) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		fmt.Fprintln(out, line)
	}
}
