package cbus

// EnvelopeKind tags the five packet envelopes the PCI can carry.
type EnvelopeKind int

const (
	EnvelopeReset EnvelopeKind = iota
	EnvelopeConfirmation
	EnvelopePCIError
	EnvelopePointToMultipoint
	EnvelopePointToPoint
)

func (k EnvelopeKind) String() string {
	switch k {
	case EnvelopeReset:
		return "reset"
	case EnvelopeConfirmation:
		return "confirmation"
	case EnvelopePCIError:
		return "pci-error"
	case EnvelopePointToMultipoint:
		return "point-to-multipoint"
	case EnvelopePointToPoint:
		return "point-to-point"
	default:
		return "unknown"
	}
}

const (
	bodyTagPointToMultipoint = 0x05
	bodyTagPointToPoint      = 0x06
	bodyTagReset             = '~'
	bodyTagPCIError          = '#'
	confirmSuccess           = '.'
	confirmFailure           = '!'
	pmRouting                = 0x00

	// engineSourceAddress is the fixed source address stamped on every
	// point-to-multipoint frame this engine originates.
	engineSourceAddress = 0xFF
)

// Envelope is the decoded form of one frame body, created by the codec from
// a checksum-verified byte run and consumed by the dispatcher.
type Envelope struct {
	Kind EnvelopeKind

	ConfirmTag     byte
	ConfirmSuccess bool

	SourceAddress byte
	UnitAddress   byte
	Application   byte
	SAL           []SAL
	CAL           CAL
}

func (e Envelope) String() string {
	return e.Kind.String()
}

// DecodePacket decodes a checksum-stripped frame body into an Envelope.
// Failures are ErrShortFrame, ErrUnknownEnvelope, or whatever
// DecodeSALStream/DecodeCAL return for a truncated application payload.
func DecodePacket(body []byte) (Envelope, error) {
	if len(body) == 0 {
		return Envelope{}, ErrShortFrame
	}
	switch body[0] {
	case bodyTagPointToMultipoint:
		if len(body) < 4 {
			return Envelope{}, ErrShortFrame
		}
		source, application := body[1], body[2]
		// body[3] is the routing byte, always 0x00; nothing decodes from it.
		sal, err := DecodeSALStream(application, body[4:])
		if err != nil {
			return Envelope{}, err
		}
		return Envelope{Kind: EnvelopePointToMultipoint, SourceAddress: source, Application: application, SAL: sal}, nil
	case bodyTagPointToPoint:
		if len(body) < 3 {
			return Envelope{}, ErrShortFrame
		}
		unit, application := body[1], body[2]
		cal, err := DecodeCAL(application, body[3:])
		if err != nil {
			return Envelope{}, err
		}
		return Envelope{Kind: EnvelopePointToPoint, UnitAddress: unit, Application: application, CAL: cal}, nil
	case bodyTagReset:
		return Envelope{Kind: EnvelopeReset}, nil
	case bodyTagPCIError:
		return Envelope{Kind: EnvelopePCIError}, nil
	default:
		if validTag(body[0]) && len(body) >= 2 && (body[1] == confirmSuccess || body[1] == confirmFailure) {
			return Envelope{Kind: EnvelopeConfirmation, ConfirmTag: body[0], ConfirmSuccess: body[1] == confirmSuccess}, nil
		}
		return Envelope{}, ErrUnknownEnvelope
	}
}

// EncodePacket serialises an Envelope into a complete on-wire frame. It is
// the inverse of DecodePacket composed with the framer on valid input.
//
// Confirmation replies are the one exception to the usual framing: the PCI
// emits them as a bare tag byte plus '.'/'!' and CR, with no leading '\', no
// hex encoding, and no checksum. Every other envelope kind goes through the
// '\'-prefixed, hex-ASCII, checksummed framing.
func EncodePacket(e Envelope) []byte {
	if e.Kind == EnvelopeConfirmation {
		mark := byte(confirmFailure)
		if e.ConfirmSuccess {
			mark = confirmSuccess
		}
		return []byte{e.ConfirmTag, mark, frameCR}
	}
	return frameBody(encodeBody(e))
}

// frameBody wraps a raw (unchecksummed) body into a complete on-wire frame:
// append the checksum byte, hex-ASCII encode, prefix '\', terminate with CR.
// Shared by EncodePacket and the outbound engine, which splices a
// confirmation tag onto the body before the checksum is computed.
func frameBody(body []byte) []byte {
	sum := byte(0)
	for _, b := range body {
		sum += b
	}
	checksum := byte(0) - sum
	body = append(body, checksum)

	out := make([]byte, 0, 2+len(body)*2)
	out = append(out, frameStart)
	out = append(out, hexEncodeUpper(body)...)
	out = append(out, frameCR)
	return out
}

func encodeBody(e Envelope) []byte {
	switch e.Kind {
	case EnvelopePointToMultipoint:
		body := []byte{bodyTagPointToMultipoint, e.SourceAddress, e.Application, pmRouting}
		return append(body, EncodeSALStream(e.Application, e.SAL)...)
	case EnvelopePointToPoint:
		body := []byte{bodyTagPointToPoint, e.UnitAddress, e.Application}
		return append(body, EncodeCAL(e.CAL)...)
	case EnvelopeReset:
		return []byte{bodyTagReset}
	case EnvelopePCIError:
		return []byte{bodyTagPCIError}
	default:
		return nil
	}
}
