package mpegts

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func makePacket(pid uint16, cc uint8, pusi bool, payload []byte) []byte {
	buf := make([]byte, PacketSize)
	buf[0] = SyncByte
	buf[1] = byte(pid>>8) & 0x1F
	buf[2] = byte(pid)
	buf[3] = 0x10 | (cc & 0x0F) // payload only
	if pusi {
		buf[1] |= 0x40
	}
	copy(buf[4:], payload)
	return buf
}

// makePacketWithAF builds a packet whose adaptation field body is af. The
// payload flag is set when payload is non-nil.
func makePacketWithAF(pid uint16, cc uint8, pusi bool, af []byte, payload []byte) []byte {
	buf := make([]byte, PacketSize)
	buf[0] = SyncByte
	buf[1] = byte(pid>>8) & 0x1F
	buf[2] = byte(pid)
	if pusi {
		buf[1] |= 0x40
	}
	if payload != nil {
		buf[3] = 0x30 | (cc & 0x0F) // adaptation + payload
	} else {
		buf[3] = 0x20 | (cc & 0x0F) // adaptation only
	}
	buf[4] = byte(len(af))
	copy(buf[5:], af)
	offset := 5 + len(af)
	if offset < PacketSize {
		copy(buf[offset:], payload)
	}
	return buf
}

func filled(b byte, n int) []byte {
	return bytes.Repeat([]byte{b}, n)
}

func mustParse(t testing.TB, buf []byte) *Packet {
	t.Helper()
	p, err := Parse(buf)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestParse_ZeroHeader(t *testing.T) {
	t.Parallel()
	buf := append([]byte{0x47, 0x00, 0x00, 0x00}, filled(0xFF, PayloadSize)...)
	p := mustParse(t, buf)

	if diff := cmp.Diff(Header{}, p.Header); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	if p.Layout().Kind != LayoutReserved {
		t.Errorf("layout = %v, want reserved", p.Layout().Kind)
	}
}

func TestParse_PIDBoundaries(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		header []byte
		want   uint16
	}{
		{"zero", []byte{0x47, 0x00, 0x00, 0x00}, 0},
		{"bit_12", []byte{0x47, 0x10, 0x00, 0x00}, 4096},
		{"max", []byte{0x47, 0x1F, 0xFF, 0x00}, 8191},
		{"flags_do_not_leak", []byte{0x47, 0xE0, 0x01, 0xFF}, 1},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			buf := append(append([]byte{}, tc.header...), filled(0xFF, PayloadSize)...)
			p := mustParse(t, buf)
			if p.Header.PID != tc.want {
				t.Errorf("PID = %d, want %d", p.Header.PID, tc.want)
			}
		})
	}
}

func TestParse_HeaderFields(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		header []byte
		want   Header
	}{
		{
			name:   "all_set",
			header: []byte{0x47, 0xFF, 0xFF, 0xFF},
			want: Header{
				TransportError:     true,
				PayloadUnitStart:   true,
				TransportPriority:  true,
				PID:                MaxPID,
				ScramblingControl:  3,
				HasAdaptationField: true,
				HasPayload:         true,
				ContinuityCounter:  15,
			},
		},
		{
			name:   "tei_only",
			header: []byte{0x47, 0x80, 0x00, 0x00},
			want:   Header{TransportError: true},
		},
		{
			name:   "pusi_pid_0x1e1",
			header: []byte{0x47, 0x41, 0xE1, 0x10},
			want:   Header{PayloadUnitStart: true, PID: 0x1E1, HasPayload: true},
		},
		{
			name:   "priority_scrambled_cc9",
			header: []byte{0x47, 0x20, 0x64, 0x99},
			want:   Header{TransportPriority: true, PID: 0x64, ScramblingControl: 2, HasPayload: true, ContinuityCounter: 9},
		},
		{
			name:   "adaptation_only",
			header: []byte{0x47, 0x01, 0x00, 0x25},
			want:   Header{PID: 0x100, HasAdaptationField: true, ContinuityCounter: 5},
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			buf := append(append([]byte{}, tc.header...), make([]byte, PayloadSize)...)
			p := mustParse(t, buf)
			if diff := cmp.Diff(tc.want, p.Header); diff != "" {
				t.Errorf("header mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_KeepsPayload(t *testing.T) {
	t.Parallel()
	payload := []byte{0x01, 0x02, 0x03}
	p := mustParse(t, makePacket(0x100, 5, false, payload))
	if !bytes.Equal(p.Payload[:3], payload) {
		t.Errorf("payload prefix = %v, want %v", p.Payload[:3], payload)
	}
	if p.Header.ContinuityCounter != 5 {
		t.Errorf("CC = %d, want 5", p.Header.ContinuityCounter)
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		buf  []byte
		want error
	}{
		{"empty", nil, ErrInvalidSize},
		{"short", []byte{0x47, 0x00, 0x00}, ErrInvalidSize},
		{"long", append(makePacket(0, 0, false, nil), 0x47), ErrInvalidSize},
		{"bad_sync", make([]byte, PacketSize), ErrBadSyncByte},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p, err := Parse(tc.buf)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			if p != nil {
				t.Error("expected nil packet on error")
			}
			if errors.Is(err, ErrOutOfRange) {
				t.Error("parse error must not match ErrOutOfRange")
			}
		})
	}
}

func TestNullPacket(t *testing.T) {
	t.Parallel()
	want := append([]byte{0x47, 0x1F, 0xFF, 0x00}, filled(0xFF, PayloadSize)...)

	p := NullPacket()
	if p.Header.PID != NullPID {
		t.Errorf("PID = %d, want %d", p.Header.PID, NullPID)
	}
	if !bytes.Equal(p.Bytes(), want) {
		t.Error("null packet bytes mismatch")
	}

	parsed := mustParse(t, want)
	if !parsed.Equal(p) {
		t.Error("parsed null packet differs from NullPacket()")
	}
	if diff := cmp.Diff(Header{PID: MaxPID}, parsed.Header); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(1))
	buf := make([]byte, PacketSize)
	for i := 0; i < 2000; i++ {
		rng.Read(buf)
		buf[0] = SyncByte
		p := mustParse(t, buf)
		if got := p.Bytes(); !bytes.Equal(got, buf) {
			t.Fatalf("iteration %d: round trip mismatch\n got %x\nwant %x", i, got[:8], buf[:8])
		}
	}
}

func TestParseIdempotent(t *testing.T) {
	t.Parallel()
	buf := makePacketWithAF(0x42, 3, true, []byte{0x50, 1, 2, 3, 4, 5, 6}, []byte{0, 0, 1, 0xE0})
	a := mustParse(t, buf)
	b := mustParse(t, buf)
	if !a.Equal(b) {
		t.Error("parsing the same bytes twice produced unequal packets")
	}
}

func TestBytesTruncatesWideFields(t *testing.T) {
	t.Parallel()
	p := &Packet{Header: Header{PID: 0xFFFF, ScramblingControl: 0xFF, ContinuityCounter: 0xFF}}
	b := p.Bytes()
	if b[1] != 0x1F || b[2] != 0xFF || b[3] != 0xCF {
		t.Errorf("header = % X, want 47 1F FF CF", b[:4])
	}
}

func TestAppendBytes(t *testing.T) {
	t.Parallel()
	a := NullPacket()
	b := mustParse(t, makePacket(0x100, 1, true, []byte{0xAA}))
	out := b.AppendBytes(a.AppendBytes(nil))
	if len(out) != 2*PacketSize {
		t.Fatalf("len = %d, want %d", len(out), 2*PacketSize)
	}
	if !bytes.Equal(out[PacketSize:], b.Bytes()) {
		t.Error("second packet mismatch")
	}
}

func TestBinaryMarshaling(t *testing.T) {
	t.Parallel()
	buf := makePacket(0x1E1, 7, true, []byte{0, 0, 1, 0xC0})
	var p Packet
	if err := p.UnmarshalBinary(buf); err != nil {
		t.Fatal(err)
	}
	out, err := p.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, buf) {
		t.Error("MarshalBinary did not reproduce input")
	}

	if err := p.UnmarshalBinary([]byte{0x00}); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("err = %v, want ErrInvalidSize", err)
	}
	if p.Header.PID != 0x1E1 {
		t.Error("failed unmarshal modified packet")
	}
}

func TestAt(t *testing.T) {
	t.Parallel()
	buf := makePacket(0x1ABC&MaxPID, 0xA, true, []byte{0xDE, 0xAD})
	buf[PacketSize-1] = 0x99
	p := mustParse(t, buf)
	for i := 0; i < PacketSize; i++ {
		if got := p.At(i); got != buf[i] {
			t.Fatalf("At(%d) = 0x%02X, want 0x%02X", i, got, buf[i])
		}
	}
}

func TestAtOutOfRange(t *testing.T) {
	t.Parallel()
	p := NullPacket()
	for _, i := range []int{-1, PacketSize, PacketSize + 100} {
		func() {
			defer func() {
				r := recover()
				err, ok := r.(error)
				if !ok {
					t.Fatalf("At(%d): recovered %v, want error", i, r)
				}
				if !errors.Is(err, ErrOutOfRange) {
					t.Errorf("At(%d): err = %v, want ErrOutOfRange", i, err)
				}
				var ie *IndexError
				if !errors.As(err, &ie) || ie.Index != i {
					t.Errorf("At(%d): IndexError = %+v", i, ie)
				}
			}()
			p.At(i)
		}()
	}
}

func TestEqual(t *testing.T) {
	t.Parallel()
	base := makePacket(0x100, 1, false, []byte{1, 2, 3})

	same := mustParse(t, base)
	if !mustParse(t, base).Equal(same) {
		t.Error("identical packets not equal")
	}

	otherPayload := append([]byte{}, base...)
	otherPayload[PacketSize-1] = 0x01
	if mustParse(t, base).Equal(mustParse(t, otherPayload)) {
		t.Error("packets with different payloads compared equal")
	}

	otherCC := append([]byte{}, base...)
	otherCC[3] = 0x12
	if mustParse(t, base).Equal(mustParse(t, otherCC)) {
		t.Error("packets with same PID but different CC compared equal")
	}

	var nilPkt *Packet
	if nilPkt.Equal(same) || same.Equal(nil) {
		t.Error("nil packet compared equal to non-nil")
	}
	if !nilPkt.Equal(nil) {
		t.Error("nil packets should compare equal")
	}
}

func TestEqualIgnoresUnencodableBits(t *testing.T) {
	t.Parallel()
	a := NullPacket()
	b := NullPacket()
	b.Header.PID = 0xFFFF // encodes as 0x1FFF
	if !a.Equal(b) {
		t.Error("packets with identical wire form compared unequal")
	}
}

func BenchmarkParse(b *testing.B) {
	buf := makePacketWithAF(0x100, 0, true, []byte{0x10, 0, 0, 0, 0, 0, 0}, []byte{0, 0, 1, 0xE0})
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Parse(buf); err != nil {
			b.Fatal(err)
		}
	}
}
