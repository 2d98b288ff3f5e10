package mpegts

import (
	"fmt"

	"github.com/zsiec/tsinspect/bitcursor"
)

// Parse decodes a single packet. buf must be exactly PacketSize bytes and
// start with the sync byte; no attempt is made to resynchronise.
func Parse(buf []byte) (*Packet, error) {
	if len(buf) != PacketSize {
		return nil, fmt.Errorf("%w: %d bytes, expected %d", ErrInvalidSize, len(buf), PacketSize)
	}

	c := bitcursor.New(buf[:HeaderSize])
	sync, err := c.PullByte()
	if err != nil {
		return nil, fmt.Errorf("mpegts: read sync byte: %w", err)
	}
	if sync != SyncByte {
		return nil, fmt.Errorf("%w 0x%02X", ErrBadSyncByte, sync)
	}

	p := &Packet{}
	if p.Header, err = decodeHeader(c); err != nil {
		return nil, err
	}
	copy(p.Payload[:], buf[HeaderSize:])
	return p, nil
}

// NullPacket returns the canonical stuffing packet: PID 0x1FFF, all flags
// clear and a payload of 0xFF bytes.
func NullPacket() *Packet {
	p := &Packet{Header: Header{PID: NullPID}}
	for i := range p.Payload {
		p.Payload[i] = 0xFF
	}
	return p
}

// headerReader wraps a cursor and keeps the first pull error so header
// decoding reads as a flat sequence of fields.
type headerReader struct {
	c   *bitcursor.Cursor
	err error
}

func (r *headerReader) bits(n int) uint8 {
	if r.err != nil {
		return 0
	}
	v, err := r.c.PullBits(n)
	r.err = err
	return v
}

func (r *headerReader) bit() bool {
	if r.err != nil {
		return false
	}
	v, err := r.c.PullBit()
	r.err = err
	return v
}

// decodeHeader reads bytes 1 to 3 of the header. Sub-byte pulls come out
// least-significant first, so each byte's fields are read from its low end.
func decodeHeader(c *bitcursor.Cursor) (Header, error) {
	r := &headerReader{c: c}
	var h Header

	// byte 1: TEI | PUSI | priority | PID[12:8]
	pidHigh := r.bits(5)
	h.TransportPriority = r.bit()
	h.PayloadUnitStart = r.bit()
	h.TransportError = r.bit()
	// byte 2: PID[7:0]
	pidLow := r.bits(8)
	h.PID = uint16(pidHigh)<<8 | uint16(pidLow)
	// byte 3: scrambling(2) | adaptation | payload | CC(4)
	h.ContinuityCounter = r.bits(4)
	h.HasPayload = r.bit()
	h.HasAdaptationField = r.bit()
	h.ScramblingControl = r.bits(2)

	if r.err != nil {
		return Header{}, fmt.Errorf("mpegts: decode header: %w", r.err)
	}
	return h, nil
}

func (h Header) bytes() [HeaderSize]byte {
	b1 := byte(h.PID>>8) & 0x1F
	if h.TransportError {
		b1 |= 0x80
	}
	if h.PayloadUnitStart {
		b1 |= 0x40
	}
	if h.TransportPriority {
		b1 |= 0x20
	}
	b3 := (h.ScramblingControl&0x03)<<6 | h.ContinuityCounter&0x0F
	if h.HasAdaptationField {
		b3 |= 0x20
	}
	if h.HasPayload {
		b3 |= 0x10
	}
	return [HeaderSize]byte{SyncByte, b1, byte(h.PID), b3}
}

// Bytes returns the 188-byte wire form of p.
func (p *Packet) Bytes() []byte {
	return p.AppendBytes(make([]byte, 0, PacketSize))
}

// AppendBytes appends the wire form of p to dst. Header fields wider than
// their wire width are truncated.
func (p *Packet) AppendBytes(dst []byte) []byte {
	h := p.Header.bytes()
	dst = append(dst, h[:]...)
	return append(dst, p.Payload[:]...)
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p *Packet) MarshalBinary() ([]byte, error) {
	return p.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *Packet) UnmarshalBinary(data []byte) error {
	q, err := Parse(data)
	if err != nil {
		return err
	}
	*p = *q
	return nil
}

// At returns byte i of the wire form, treating header and payload as one
// flat sequence. It panics with an *IndexError if i is outside
// [0, PacketSize).
func (p *Packet) At(i int) byte {
	switch {
	case i < 0 || i >= PacketSize:
		panic(&IndexError{Index: i})
	case i < HeaderSize:
		return p.Header.bytes()[i]
	default:
		return p.Payload[i-HeaderSize]
	}
}

// Equal reports whether p and q serialise to identical bytes.
func (p *Packet) Equal(q *Packet) bool {
	if p == nil || q == nil {
		return p == q
	}
	return p.Header.bytes() == q.Header.bytes() && p.Payload == q.Payload
}

// AdaptationFieldLength returns the adaptation field length byte, or 0
// when the packet has no adaptation field.
func (p *Packet) AdaptationFieldLength() int {
	if !p.Header.HasAdaptationField {
		return 0
	}
	return int(p.Payload[0])
}
