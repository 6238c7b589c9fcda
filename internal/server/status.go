package server

import (
	"context"
	"io"
	"time"

	"github.com/wbkim0504/pms-emul/internal/render"
)

// ReportStatus logs the current registry snapshot and writes the listing to
// the trace sink.
func (s *Server) ReportStatus() {
	entries := s.registry.Snapshot()
	s.logger.Info().
		Int("connected", len(entries)).
		Int("capacity", s.registry.Capacity()).
		Msg("status")
	s.writeTrace(func(w io.Writer) error {
		return render.Status(w, entries)
	})
}

// RunStatusReporter calls ReportStatus every StatusInterval until ctx ends.
func (s *Server) RunStatusReporter(ctx context.Context) {
	if s.cfg.StatusInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.StatusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ReportStatus()
		}
	}
}
