package mpegts

// maxAdaptationFieldLength is the largest length byte that keeps the
// adaptation field inside the payload region.
const maxAdaptationFieldLength = PayloadSize - 1

// LayoutKind identifies how the header flags partition the payload region.
type LayoutKind uint8

const (
	// LayoutReserved: neither adaptation field nor payload is signalled.
	LayoutReserved LayoutKind = iota
	// LayoutPayload: the whole region is payload data.
	LayoutPayload
	// LayoutAdaptation: the region is an adaptation field followed by stuffing.
	LayoutAdaptation
	// LayoutAdaptationPayload: an adaptation field followed by payload data.
	LayoutAdaptationPayload
	// LayoutMalformed: the adaptation field length runs past the packet.
	LayoutMalformed
)

func (k LayoutKind) String() string {
	switch k {
	case LayoutReserved:
		return "reserved"
	case LayoutPayload:
		return "payload"
	case LayoutAdaptation:
		return "adaptation"
	case LayoutAdaptationPayload:
		return "adaptation+payload"
	case LayoutMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Layout is a view of a packet's payload region. The slices alias the
// packet's Payload array.
type Layout struct {
	Kind LayoutKind
	// AdaptationField is the adaptation field body, excluding its length byte.
	AdaptationField []byte
	// Data is the payload data after any adaptation field. It is nil
	// unless the packet signals a payload.
	Data []byte

	unitStart bool
}

// StartsPES reports whether Data begins a PES packet: the unit start flag
// is set and the data opens with the 00 00 01 start code prefix.
func (l Layout) StartsPES() bool {
	return l.unitStart && isPESPayload(l.Data)
}

// Layout classifies the payload region from the two header flags and the
// adaptation field length byte.
func (p *Packet) Layout() Layout {
	h := p.Header
	l := Layout{unitStart: h.PayloadUnitStart}

	if !h.HasAdaptationField {
		if h.HasPayload {
			l.Kind = LayoutPayload
			l.Data = p.Payload[:]
		}
		return l
	}

	afLen := int(p.Payload[0])
	if afLen > maxAdaptationFieldLength {
		l.Kind = LayoutMalformed
		return l
	}
	l.AdaptationField = p.Payload[1 : 1+afLen]
	if h.HasPayload {
		l.Kind = LayoutAdaptationPayload
		l.Data = p.Payload[1+afLen:]
	} else {
		l.Kind = LayoutAdaptation
	}
	return l
}
