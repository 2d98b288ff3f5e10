package mpegts

const (
	// PCRScale converts 90 kHz timestamp units to 27 MHz clock units.
	PCRScale = 300
	// PCRWrap is the number of 27 MHz ticks representable by a 33-bit base
	// and a 0..299 extension.
	PCRWrap = (1 << 33) * PCRScale

	pcrLen = 6
	// The PCR follows the length and flags bytes of the adaptation field.
	pcrOffset   = 2
	minPCRAFLen = 1 + pcrLen

	afDiscontinuity = 0x80
	afRandomAccess  = 0x40
	afPCRFlag       = 0x10
)

// adaptationFlags returns the adaptation field flags byte, if the packet
// has a well-formed, non-empty adaptation field.
func (p *Packet) adaptationFlags() (byte, bool) {
	if !p.Header.HasAdaptationField {
		return 0, false
	}
	afLen := p.Payload[0]
	if afLen == 0 || afLen > maxAdaptationFieldLength {
		return 0, false
	}
	return p.Payload[1], true
}

// HasPCR reports whether the adaptation field carries a program clock
// reference.
func (p *Packet) HasPCR() bool {
	flags, ok := p.adaptationFlags()
	return ok && flags&afPCRFlag != 0 && p.Payload[0] >= minPCRAFLen
}

// PCR returns the program clock reference in 27 MHz ticks. It returns 0
// when HasPCR is false, which is indistinguishable from a genuine zero
// clock; check HasPCR first.
func (p *Packet) PCR() uint64 {
	if !p.HasPCR() {
		return 0
	}
	return DecodePCR(p.Payload[pcrOffset : pcrOffset+pcrLen])
}

// WritePCR overwrites the clock reference with v (27 MHz ticks, taken
// modulo PCRWrap). It reports false and leaves the packet untouched when
// the packet does not already carry a PCR.
func (p *Packet) WritePCR(v uint64) bool {
	if !p.HasPCR() {
		return false
	}
	EncodePCR(p.Payload[pcrOffset:pcrOffset+pcrLen], v)
	return true
}

// Discontinuity reports the adaptation field discontinuity indicator.
func (p *Packet) Discontinuity() bool {
	flags, ok := p.adaptationFlags()
	return ok && flags&afDiscontinuity != 0
}

// RandomAccess reports the adaptation field random access indicator.
func (p *Packet) RandomAccess() bool {
	flags, ok := p.adaptationFlags()
	return ok && flags&afRandomAccess != 0
}

// SetDiscontinuity sets the discontinuity indicator. It reports false
// without modifying the packet when there is no non-empty adaptation field.
func (p *Packet) SetDiscontinuity() bool {
	if _, ok := p.adaptationFlags(); !ok {
		return false
	}
	p.Payload[1] |= afDiscontinuity
	return true
}

// DecodePCR decodes the 6-byte PCR encoding (33-bit base, 6 reserved
// bits, 9-bit extension) into 27 MHz ticks.
func DecodePCR(b []byte) uint64 {
	_ = b[5]
	base := uint64(b[0])<<25 |
		uint64(b[1])<<17 |
		uint64(b[2])<<9 |
		uint64(b[3])<<1 |
		uint64(b[4]>>7)
	ext := uint64(b[4]&0x01)<<8 | uint64(b[5])
	return base*PCRScale + ext
}

// EncodePCR writes v (27 MHz ticks, modulo PCRWrap) into the 6-byte PCR
// encoding with the reserved bits set.
func EncodePCR(b []byte, v uint64) {
	_ = b[5]
	v %= PCRWrap
	base := v / PCRScale
	ext := v % PCRScale
	b[0] = byte(base >> 25)
	b[1] = byte(base >> 17)
	b[2] = byte(base >> 9)
	b[3] = byte(base >> 1)
	b[4] = byte(base&1)<<7 | 0x7E | byte(ext>>8)
	b[5] = byte(ext)
}
