// Package mpegts decodes and encodes 188-byte MPEG transport stream packets.
// Beyond the 4-byte header it interprets only what is needed to locate the
// program clock reference in the adaptation field and the decode timestamp
// in a PES header that starts inside the packet. Every other byte is carried
// through unchanged, so Parse followed by Bytes is an identity.
package mpegts

const (
	PacketSize  = 188
	HeaderSize  = 4
	PayloadSize = PacketSize - HeaderSize
	SyncByte    = 0x47

	// MaxPID is the largest 13-bit packet identifier. It is reserved for
	// null (stuffing) packets.
	MaxPID  = 0x1FFF
	NullPID = MaxPID
)

// Header contains the fields of the 4-byte transport packet header that
// follow the sync byte.
type Header struct {
	TransportError     bool
	PayloadUnitStart   bool
	TransportPriority  bool
	PID                uint16
	ScramblingControl  uint8
	HasAdaptationField bool
	HasPayload         bool
	ContinuityCounter  uint8
}

// Packet is a parsed transport stream packet. Payload holds the 184 bytes
// after the header verbatim, including any adaptation field; use Layout to
// see how the header flags partition it.
type Packet struct {
	Header  Header
	Payload [PayloadSize]byte
}
