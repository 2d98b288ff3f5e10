package mpegts

import (
	"errors"
	"fmt"
)

// Errors returned by Parse. Wrapped errors carry the offending value and
// can be matched with errors.Is.
var (
	ErrInvalidSize = errors.New("mpegts: invalid packet size")
	ErrBadSyncByte = errors.New("mpegts: invalid sync byte")
)

// ErrOutOfRange matches the *IndexError panic raised by Packet.At.
var ErrOutOfRange = errors.New("mpegts: index out of range")

// IndexError is the panic value of an out-of-range Packet.At call. It is a
// caller bug rather than a decode failure, so it is never returned from
// Parse.
type IndexError struct {
	Index int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("mpegts: index %d out of range [0,%d)", e.Index, PacketSize)
}

func (e *IndexError) Is(target error) bool {
	return target == ErrOutOfRange
}
