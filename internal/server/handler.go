package server

import (
	"errors"
	"io"
	"net"

	"github.com/rs/zerolog"
	"github.com/wbkim0504/pms-emul/internal/observability"
	"github.com/wbkim0504/pms-emul/internal/protocol/control"
	"github.com/wbkim0504/pms-emul/internal/protocol/frame"
	"github.com/wbkim0504/pms-emul/internal/protocol/packet"
	"github.com/wbkim0504/pms-emul/internal/registry"
	"github.com/wbkim0504/pms-emul/internal/render"
)

// State is a connection handler lifecycle phase.
type State uint8

const (
	StateConnecting State = iota
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	default:
		return "closed"
	}
}

func JoinNotice(name string) string {
	return "<<JOIN, HELLO " + name + ">\r\n"
}

func LeaveNotice(name string) string {
	return "<<LEAVE, BYE " + name + ">\r\n"
}

type handler struct {
	s        *Server
	conn     net.Conn
	remote   string
	peer     *registry.Peer
	asm      *frame.Assembler
	selector *SelectorCell
	state    State
	logger   zerolog.Logger
}

func newHandler(s *Server, conn net.Conn) *handler {
	selector := s.selector
	if s.cfg.SelectorScope == ScopeConnection {
		selector = NewSelectorCell()
	}
	return &handler{
		s:        s,
		conn:     conn,
		remote:   conn.RemoteAddr().String(),
		selector: selector,
		state:    StateConnecting,
		logger:   s.logger,
	}
}

// connect attempts admission. A rejected connection is closed at once and
// never reaches StateActive.
func (h *handler) connect() error {
	peer, err := h.s.registry.Register(h.remote, h.conn)
	if err != nil {
		observability.RecordAdmission(false)
		h.logger.Warn().Str("remote", h.remote).Err(err).Msg("reject")
		_ = h.conn.Close()
		h.state = StateClosed
		return err
	}
	observability.RecordAdmission(true)
	h.peer = peer
	h.logger = h.s.logger.With().
		Int("conn_id", peer.ID).
		Str("session", peer.Session.String()).
		Str("remote", h.remote).
		Logger()
	h.asm = frame.NewAssembler(
		frame.WithBufferSize(h.s.cfg.BufferSize),
		frame.WithRetainRemainder(h.s.cfg.RetainRemainder),
	)
	h.logger.Info().Msg("accept")

	_ = h.s.registry.BroadcastExcept(peer.ID, JoinNotice(peer.Name))
	h.logger.Info().Str("name", peer.Name).Msg("join")
	h.state = StateActive
	return nil
}

// run is the Active read loop followed by the Closing phase.
func (h *handler) run() {
	buf := make([]byte, h.s.cfg.BufferSize)
	for {
		n, err := h.conn.Read(buf)
		if n > 0 {
			observability.RecordBytesReceived(n)
			h.logger.Trace().Int("bytes", n).Uint8("first", buf[0]).Msg("received")
			h.onChunk(buf[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				h.logger.Warn().Err(err).Msg("read failed")
			}
			break
		}
	}
	h.close()
}

func (h *handler) close() {
	h.state = StateClosing
	_ = h.conn.Close()
	if h.peer.ClaimLeave() {
		_ = h.s.registry.BroadcastExcept(h.peer.ID, LeaveNotice(h.peer.Name))
	}
	h.s.registry.Deregister(h.peer.ID)
	observability.RecordDisconnect()
	h.logger.Info().Str("name", h.peer.Name).Msg("leave")
	h.state = StateClosed
}

func (h *handler) onChunk(chunk []byte) {
	res, err := h.asm.Feed(chunk)
	if err != nil {
		if errors.Is(err, frame.ErrBufferOverflow) {
			observability.RecordOverflow()
			h.logger.Warn().Err(err).Msg("overflow")
			return
		}
		h.logger.Error().Err(err).Msg("reassembly failed")
		return
	}
	if res.Command != nil {
		h.onCommand(res.Command)
	}
	for _, f := range res.Frames {
		observability.RecordFrame()
		h.decode(f)
	}
}

func (h *handler) onCommand(raw []byte) {
	cmd := control.Parse(raw)
	observability.RecordControl(cmd.Action.String(), cmd.Kind.String())
	switch cmd.Action {
	case control.ActionQuit:
		h.logger.Warn().Msg("control quit")
		h.s.Quit()
	case control.ActionList:
		h.logger.Info().Msg("control list")
		if err := h.s.registry.SendActiveClients(h.peer.ID); err != nil {
			h.logger.Warn().Err(err).Msg("client listing failed")
		}
	default:
		sel := h.selector.Apply(cmd)
		h.logger.Info().Stringer("selector", sel).Msg("control")
	}
}

// decode consumes the selector once per frame, whatever the outcome.
func (h *handler) decode(f []byte) {
	sel := h.selector.Consume()
	if sel.Kind == packet.KindNone {
		return
	}
	blocks, err := packet.Decode(f, sel)
	observability.RecordDecode(sel.Kind.String(), len(blocks), err)
	for _, b := range blocks {
		h.logger.Debug().
			Stringer("kind", b.Kind).
			Int("sub_unit", b.SubUnit).
			Int("offset", b.Offset).
			Int("len", len(b.Bytes)).
			Msg("decode_block")
	}
	if len(blocks) > 0 {
		h.s.writeTrace(func(w io.Writer) error {
			return render.Blocks(w, blocks)
		})
	}
	if err != nil {
		h.logger.Warn().Err(err).Stringer("selector", sel).Int("frame_len", len(f)).Msg("decode_error")
	}
}
