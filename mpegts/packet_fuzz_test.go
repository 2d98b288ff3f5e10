package mpegts

import (
	"bytes"
	"testing"
)

func FuzzParse(f *testing.F) {
	// Seed: valid 188-byte TS packet (sync byte 0x47)
	pkt := make([]byte, 188)
	pkt[0] = 0x47 // sync byte
	pkt[1] = 0x40 // PUSI=1, PID=0
	pkt[2] = 0x00
	pkt[3] = 0x10 // no adaptation, has payload
	f.Add(pkt)

	// Seed: packet with adaptation field carrying a PCR
	afPkt := make([]byte, 188)
	afPkt[0] = 0x47
	afPkt[1] = 0x41 // PUSI, PID high bits
	afPkt[2] = 0x00 // PID low bits
	afPkt[3] = 0x30 // adaptation + payload
	afPkt[4] = 0x07 // adaptation field length
	afPkt[5] = 0x10 // PCR flag
	copy(afPkt[12:], []byte{0x00, 0x00, 0x01, 0xE0, 0x00, 0x00, 0x80, 0xC0, 0x0A})
	f.Add(afPkt)

	f.Add(NullPacket().Bytes())

	f.Fuzz(func(t *testing.T, data []byte) {
		p, err := Parse(data)
		if err != nil {
			return
		}
		if !bytes.Equal(p.Bytes(), data) {
			t.Fatal("round trip mismatch")
		}
		// None of these may panic on any well-sized input.
		_ = p.Layout()
		_ = p.PCR()
		_ = p.DTS()
		_ = p.Discontinuity()
		if p.HasPCR() {
			v := p.PCR()
			if !p.WritePCR(v % PCRWrap) {
				t.Fatal("WritePCR failed on packet with PCR")
			}
		}
	})
}
