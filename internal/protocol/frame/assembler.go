package frame

import "fmt"

// Result describes what one chunk produced.
//
// Command is set when the chunk was shorter than HeaderLen; the buffer is left
// untouched in that case. Frames holds every frame completed by the chunk,
// each an independent copy.
type Result struct {
	Command []byte
	Frames  [][]byte
}

// Assembler reassembles length-prefixed frames out of arbitrarily fragmented
// reads. One Assembler belongs to exactly one connection and is not safe for
// concurrent use.
type Assembler struct {
	buf    []byte
	cursor int

	retainRemainder bool
}

type Option func(*Assembler)

// WithBufferSize overrides DefaultBufferSize. Values below HeaderLen are ignored.
func WithBufferSize(n int) Option {
	return func(a *Assembler) {
		if n >= HeaderLen {
			a.buf = make([]byte, n)
		}
	}
}

// WithRetainRemainder keeps bytes past a completed frame's declared length
// instead of discarding them on reset.
func WithRetainRemainder(retain bool) Option {
	return func(a *Assembler) {
		a.retainRemainder = retain
	}
}

func NewAssembler(opts ...Option) *Assembler {
	a := &Assembler{}
	for _, opt := range opts {
		opt(a)
	}
	if a.buf == nil {
		a.buf = make([]byte, DefaultBufferSize)
	}
	return a
}

// Cursor reports how many bytes are currently buffered.
func (a *Assembler) Cursor() int {
	return a.cursor
}

// Capacity reports the reassembly buffer size.
func (a *Assembler) Capacity() int {
	return len(a.buf)
}

// Reset discards every buffered byte.
func (a *Assembler) Reset() {
	a.cursor = 0
}

// Feed hands one received chunk to the assembler.
//
// A chunk that would push the buffer past capacity discards everything
// buffered, including the chunk itself, and returns ErrBufferOverflow. The
// assembler stays usable afterwards.
func (a *Assembler) Feed(chunk []byte) (Result, error) {
	if len(chunk) < HeaderLen {
		cmd := make([]byte, len(chunk))
		copy(cmd, chunk)
		return Result{Command: cmd}, nil
	}

	if a.cursor+len(chunk) > len(a.buf) {
		dropped := a.cursor
		a.cursor = 0
		return Result{}, fmt.Errorf("%w: buffered=%d chunk=%d capacity=%d",
			ErrBufferOverflow, dropped, len(chunk), len(a.buf))
	}

	copy(a.buf[a.cursor:], chunk)
	a.cursor += len(chunk)

	var res Result
	for a.cursor > HeaderLen {
		declared, _ := DeclaredLength(a.buf[:a.cursor])
		if uint64(a.cursor) < uint64(declared) {
			break
		}
		n := int(declared)
		out := make([]byte, n)
		copy(out, a.buf[:n])
		res.Frames = append(res.Frames, out)

		if !a.retainRemainder || n == 0 {
			a.cursor = 0
			break
		}
		a.cursor = copy(a.buf, a.buf[n:a.cursor])
	}
	return res, nil
}
