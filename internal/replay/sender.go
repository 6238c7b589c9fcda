package replay

import (
	"context"
	"io"
	"time"
)

// Fragment splits b into consecutive chunks of at most size bytes. A
// non-positive size yields b as a single chunk.
func Fragment(b []byte, size int) [][]byte {
	if size <= 0 || size >= len(b) {
		return [][]byte{b}
	}
	out := make([][]byte, 0, (len(b)+size-1)/size)
	for start := 0; start < len(b); start += size {
		end := start + size
		if end > len(b) {
			end = len(b)
		}
		out = append(out, b[start:end])
	}
	return out
}

// Sender writes payloads to an endpoint connection.
type Sender struct {
	W io.Writer
	// Chunk fragments each payload into writes of at most Chunk bytes.
	Chunk int
	// Gap pauses between writes so the peer observes separate reads.
	Gap time.Duration
}

// Send writes every payload in order. It returns the number of bytes written.
func (s Sender) Send(ctx context.Context, payloads ...[]byte) (int, error) {
	total := 0
	for _, p := range payloads {
		for _, chunk := range Fragment(p, s.Chunk) {
			if err := ctx.Err(); err != nil {
				return total, err
			}
			n, err := s.W.Write(chunk)
			total += n
			if err != nil {
				return total, err
			}
			if s.Gap > 0 {
				select {
				case <-ctx.Done():
					return total, ctx.Err()
				case <-time.After(s.Gap):
				}
			}
		}
	}
	return total, nil
}
