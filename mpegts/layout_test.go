package mpegts

import "testing"

func TestLayout(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		buf       []byte
		kind      LayoutKind
		afLen     int
		dataLen   int
		startsPES bool
	}{
		{
			name:    "payload_only",
			buf:     makePacket(0x100, 0, false, []byte{0xAA}),
			kind:    LayoutPayload,
			dataLen: PayloadSize,
		},
		{
			name:      "payload_pes_start",
			buf:       makePacket(0x100, 0, true, []byte{0, 0, 1, 0xE0}),
			kind:      LayoutPayload,
			dataLen:   PayloadSize,
			startsPES: true,
		},
		{
			name:    "start_code_without_pusi",
			buf:     makePacket(0x100, 0, false, []byte{0, 0, 1, 0xE0}),
			kind:    LayoutPayload,
			dataLen: PayloadSize,
		},
		{
			name:    "af_1_byte",
			buf:     makePacketWithAF(0x100, 0, false, []byte{0x00}, []byte{0xAA}),
			kind:    LayoutAdaptationPayload,
			afLen:   1,
			dataLen: PayloadSize - 2,
		},
		{
			name:      "af_pes_start",
			buf:       makePacketWithAF(0x100, 0, true, filled(0, 10), []byte{0, 0, 1, 0xC0}),
			kind:      LayoutAdaptationPayload,
			afLen:     10,
			dataLen:   PayloadSize - 11,
			startsPES: true,
		},
		{
			name:  "af_only_full",
			buf:   makePacketWithAF(0x100, 0, false, filled(0, 183), nil),
			kind:  LayoutAdaptation,
			afLen: 183,
		},
		{
			name:    "af_fills_packet_with_payload_flag",
			buf:     makePacketWithAF(0x100, 0, false, filled(0, 183), []byte{}),
			kind:    LayoutAdaptationPayload,
			afLen:   183,
			dataLen: 0,
		},
		{
			name: "reserved",
			buf:  append([]byte{0x47, 0x01, 0x00, 0x00}, filled(0xFF, PayloadSize)...),
			kind: LayoutReserved,
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := mustParse(t, tc.buf)
			l := p.Layout()
			if l.Kind != tc.kind {
				t.Fatalf("kind = %v, want %v", l.Kind, tc.kind)
			}
			if len(l.AdaptationField) != tc.afLen {
				t.Errorf("adaptation field length = %d, want %d", len(l.AdaptationField), tc.afLen)
			}
			if len(l.Data) != tc.dataLen {
				t.Errorf("data length = %d, want %d", len(l.Data), tc.dataLen)
			}
			if l.StartsPES() != tc.startsPES {
				t.Errorf("StartsPES = %v, want %v", l.StartsPES(), tc.startsPES)
			}
			if tc.afLen > 0 && p.AdaptationFieldLength() != tc.afLen {
				t.Errorf("AdaptationFieldLength = %d, want %d", p.AdaptationFieldLength(), tc.afLen)
			}
		})
	}
}

func TestLayoutMalformed(t *testing.T) {
	t.Parallel()
	buf := makePacketWithAF(0x100, 0, false, []byte{0x10}, []byte{0xAA})
	buf[4] = 200
	p := mustParse(t, buf)

	l := p.Layout()
	if l.Kind != LayoutMalformed {
		t.Fatalf("kind = %v, want malformed", l.Kind)
	}
	if l.AdaptationField != nil || l.Data != nil {
		t.Error("malformed layout should expose no regions")
	}
	if p.HasPCR() || p.SetDiscontinuity() {
		t.Error("malformed adaptation field must not be interpreted")
	}
	if got := p.Bytes(); got[4] != 200 {
		t.Error("malformed length byte was not preserved")
	}
}

func TestLayoutAliasesPayload(t *testing.T) {
	t.Parallel()
	p := mustParse(t, makePacketWithAF(0x100, 0, false, []byte{0x00, 0x01}, []byte{0xAA}))
	l := p.Layout()
	l.Data[0] = 0xBB
	if p.Payload[3] != 0xBB {
		t.Error("Layout.Data does not alias the packet payload")
	}
}

func TestAdaptationFieldLengthWithoutAF(t *testing.T) {
	t.Parallel()
	p := mustParse(t, makePacket(0x100, 0, false, []byte{0x55}))
	if got := p.AdaptationFieldLength(); got != 0 {
		t.Errorf("AdaptationFieldLength = %d, want 0", got)
	}
}
