package packet

import (
	"errors"
	"fmt"
)

var ErrTruncated = errors.New("packet: truncated frame")

// DecodeError reports a read that would run past the end of a frame.
type DecodeError struct {
	Section string
	Offset  int
	Want    int
	Have    int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("packet: %s at offset %d needs %d bytes, %d available",
		e.Section, e.Offset, e.Want, e.Have)
}

func (e *DecodeError) Unwrap() error {
	return ErrTruncated
}
