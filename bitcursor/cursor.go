// Package bitcursor reads bit-granular fields out of a byte slice.
//
// Sub-byte pulls take bits from the least-significant end of the current
// byte upwards. Multi-byte pulls place the earlier byte in the high bits of
// the result, which matches the big-endian packing used by MPEG-TS headers.
package bitcursor

import "errors"

// Sentinel errors returned by Cursor pulls.
var (
	ErrExhausted        = errors.New("bitcursor: no data remaining")
	ErrMisalignedRead   = errors.New("bitcursor: byte pull requested mid-byte")
	ErrInsufficientBits = errors.New("bitcursor: requested more bits than remain in the current byte")
	ErrInvalidWidth     = errors.New("bitcursor: invalid bit width")
)

// Cursor is a read position over a borrowed byte slice. The cursor never
// copies or modifies data, so it must not outlive the slice it was built on.
type Cursor struct {
	data []byte
	pos  int // in bits
}

// New returns a cursor positioned at the first bit of data.
func New(data []byte) *Cursor {
	return &Cursor{data: data}
}

// Len returns the length of the underlying data in bytes.
func (c *Cursor) Len() int { return len(c.data) }

// ByteOffset returns the index of the byte currently being read.
func (c *Cursor) ByteOffset() int { return c.pos / 8 }

// BitOffset returns how many bits of the current byte have been pulled.
func (c *Cursor) BitOffset() int { return c.pos % 8 }

// Remaining returns the number of unread bits.
func (c *Cursor) Remaining() int {
	return len(c.data)*8 - c.pos
}

// PullByte returns the next whole byte. The cursor must be byte aligned.
func (c *Cursor) PullByte() (byte, error) {
	if c.BitOffset() != 0 {
		return 0, ErrMisalignedRead
	}
	if c.ByteOffset() >= len(c.data) {
		return 0, ErrExhausted
	}
	v := c.data[c.ByteOffset()]
	c.pos += 8
	return v, nil
}

// PullBit returns the next bit of the current byte, starting from bit 0.
func (c *Cursor) PullBit() (bool, error) {
	if c.ByteOffset() >= len(c.data) {
		return false, ErrExhausted
	}
	v := c.data[c.ByteOffset()]>>uint(c.BitOffset())&1 == 1
	c.pos++
	return v, nil
}

// PullBits returns the next n bits (1 to 8) of the current byte, right
// aligned. A pull never spans two bytes; n == 8 behaves like PullByte.
func (c *Cursor) PullBits(n int) (uint8, error) {
	if n < 1 || n > 8 {
		return 0, ErrInvalidWidth
	}
	if n == 8 {
		return c.PullByte()
	}
	if c.ByteOffset() >= len(c.data) {
		return 0, ErrExhausted
	}
	off := c.BitOffset()
	if off+n > 8 {
		return 0, ErrInsufficientBits
	}
	v := c.data[c.ByteOffset()] >> uint(off) & (1<<uint(n) - 1)
	c.pos += n
	return v, nil
}

// PullBits16 returns an n-bit value (1 to 16) that may span the current
// and the next byte. The unread bits of the current byte become the high
// bits of the result and the low bits come from the following byte.
func (c *Cursor) PullBits16(n int) (uint16, error) {
	if n < 1 || n > 16 {
		return 0, ErrInvalidWidth
	}
	head := 8 - c.BitOffset()
	if n <= head {
		v, err := c.PullBits(n)
		return uint16(v), err
	}
	tail := n - head
	if tail > 8 {
		return 0, ErrInsufficientBits
	}

	start := c.pos
	hi, err := c.PullBits(head)
	if err != nil {
		return 0, err
	}
	lo, err := c.PullBits(tail)
	if err != nil {
		c.pos = start
		return 0, err
	}
	return uint16(hi)<<uint(tail) | uint16(lo), nil
}
