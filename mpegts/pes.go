package mpegts

const (
	// A PES header carrying PTS and DTS needs 9 fixed bytes plus two
	// 5-byte timestamps.
	pesTimestampHeaderLen = 19

	pesFlagsOffset = 7
	pesPTSOffset   = 9
	pesDTSOffset   = 14

	ptsDTSFlagPTS = 0x2
	ptsDTSFlagDTS = 0x1
)

// isPESPayload checks for the PES start code prefix (0x000001).
func isPESPayload(data []byte) bool {
	return len(data) >= 3 && data[0] == 0x00 && data[1] == 0x00 && data[2] == 0x01
}

// isMediaStreamID matches audio (110x xxxx) and video (1110 xxxx) stream ids.
func isMediaStreamID(id byte) bool {
	return id&0xE0 == 0xC0 || id&0xF0 == 0xE0
}

// pesTimestampFlags returns the PTS_DTS_flags of a PES header that starts
// in this packet, if it carries a timestamp.
func (p *Packet) pesTimestampFlags() ([]byte, byte, bool) {
	if !p.Header.PayloadUnitStart || !p.Header.HasPayload {
		return nil, 0, false
	}
	data := p.Layout().Data
	if len(data) < pesTimestampHeaderLen || !isPESPayload(data) || !isMediaStreamID(data[3]) {
		return nil, 0, false
	}
	flags := data[pesFlagsOffset] >> 6
	if flags&ptsDTSFlagPTS == 0 {
		return nil, 0, false
	}
	return data, flags, true
}

// HasDTS reports whether the packet starts an audio or video PES packet
// whose header carries a timestamp. A PTS-only header counts: its PTS is
// reported as the decode time.
func (p *Packet) HasDTS() bool {
	_, _, ok := p.pesTimestampFlags()
	return ok
}

// DTS returns the decode timestamp of the PES packet starting in p, scaled
// to 27 MHz ticks. When the header carries only a PTS, the PTS is the
// decode time and is returned. It returns 0 when HasDTS is false; check
// HasDTS first.
func (p *Packet) DTS() uint64 {
	data, flags, ok := p.pesTimestampFlags()
	if !ok {
		return 0
	}
	off := pesPTSOffset
	if flags&ptsDTSFlagDTS != 0 {
		off = pesDTSOffset
	}
	return DecodeTimestamp(data[off:off+5]) * PCRScale
}

// TimestampFields returns the 5-byte PTS and DTS fields of the PES header
// starting in p. The slices alias p.Payload. dts is nil for a PTS-only
// header and both are nil when HasDTS is false.
func (p *Packet) TimestampFields() (pts, dts []byte) {
	data, flags, ok := p.pesTimestampFlags()
	if !ok {
		return nil, nil
	}
	pts = data[pesPTSOffset : pesPTSOffset+5]
	if flags&ptsDTSFlagDTS != 0 {
		dts = data[pesDTSOffset : pesDTSOffset+5]
	}
	return pts, dts
}

// DecodeTimestamp extracts a 33-bit PTS/DTS (90 kHz) from its 5-byte PES
// encoding.
func DecodeTimestamp(b []byte) uint64 {
	_ = b[4]
	return uint64(b[0]>>1&0x07)<<30 |
		uint64(b[1])<<22 |
		uint64(b[2]>>1&0x7F)<<15 |
		uint64(b[3])<<7 |
		uint64(b[4]>>1&0x7F)
}

// EncodeTimestamp writes a 33-bit PTS/DTS (90 kHz) into its 5-byte PES
// encoding. The prefix nibble of b[0] is preserved and marker bits are set.
func EncodeTimestamp(b []byte, ts uint64) {
	_ = b[4]
	prefix := b[0] & 0xF0
	b[0] = prefix | byte(ts>>29)&0x0E | 0x01
	b[1] = byte(ts >> 22)
	b[2] = byte(ts>>14)&0xFE | 0x01
	b[3] = byte(ts >> 7)
	b[4] = byte(ts<<1)&0xFE | 0x01
}
