package cbus

import "time"

// Well-known C-Bus application identifiers.
const (
	ApplicationLighting    = 0x38
	ApplicationClock       = 0xDF
	ApplicationTemperature = 0x19
	ApplicationStatus      = 0xFF
)

// ClockAttribute distinguishes a clock update/request's subject.
type ClockAttribute byte

const (
	ClockAttributeTime ClockAttribute = 1
	ClockAttributeDate ClockAttribute = 2
)

// SALKind tags the variant carried by a SAL value.
type SALKind int

const (
	SALLightingOn SALKind = iota
	SALLightingOff
	SALLightingRamp
	SALLightingTerminateRamp
	SALClockTime
	SALClockDate
	SALClockRequest
	SALTemperatureBroadcast
)

// SAL is a single point-to-multipoint application item. Only the fields
// relevant to Kind are meaningful.
type SAL struct {
	Kind SALKind

	Group byte // lighting On/Off/Ramp/TerminateRamp, temperature broadcast

	Level        byte // lighting Ramp: target level 0..255
	DurationCode byte // lighting Ramp: index into rampDurations

	Hour, Minute, Second, Fractional byte           // clock time update
	Year, Month, Day, DayOfWeek      byte           // clock date update
	Attribute                        ClockAttribute // clock request

	Degrees int // temperature broadcast, whole degrees
}

// rampDurations maps a ramp duration code to its nominal ramp time. The
// table is fixed by the protocol; ramp opcodes select an entry by index.
var rampDurations = [...]time.Duration{
	0, 4 * time.Second, 8 * time.Second, 12 * time.Second, 20 * time.Second,
	30 * time.Second, 40 * time.Second, 60 * time.Second, 90 * time.Second,
	120 * time.Second, 180 * time.Second, 300 * time.Second, 420 * time.Second,
	600 * time.Second, 900 * time.Second, 1020 * time.Second,
}

const (
	opLightingOn            = 0x79
	opLightingOff           = 0x01
	opLightingTerminateRamp = 0x09
	opClockUpdate           = 0x08
	opClockRequest          = 0x11
	opTemperatureBroadcast  = 0x02
)

// rampDurationIndex reports whether op is a ramp opcode and, if so, which
// entry of rampDurations it selects. Ramp opcodes run 0x02..0x7A in steps
// of 0x08, i.e. every opcode congruent to 2 mod 8 in that range.
func rampDurationIndex(op byte) (idx int, ok bool) {
	if op < 0x02 || op > 0x7A || int(op)%8 != 2 {
		return 0, false
	}
	idx = (int(op) - 2) / 8
	if idx >= len(rampDurations) {
		return 0, false
	}
	return idx, true
}

func rampOpcodeForIndex(idx int) byte {
	return byte(idx*8 + 2)
}

// DecodeSALStream decodes the self-delimiting sequence of SAL items sharing
// one application byte. It stops at the end of body, or returns
// ErrTruncatedPayload on the first item whose declared length overruns the
// body; the SALs already decoded are still returned.
func DecodeSALStream(application byte, body []byte) ([]SAL, error) {
	var out []SAL
	i := 0
	for i < len(body) {
		op := body[i]
		switch application {
		case ApplicationClock:
			sal, n, err := decodeClockSAL(op, body[i:])
			if err != nil {
				return out, err
			}
			out = append(out, sal)
			i += n
		case ApplicationTemperature:
			sal, n, err := decodeTemperatureSAL(op, body[i:])
			if err != nil {
				return out, err
			}
			out = append(out, sal)
			i += n
		default:
			sal, n, err := decodeLightingSAL(op, body[i:])
			if err != nil {
				return out, err
			}
			out = append(out, sal)
			i += n
		}
	}
	return out, nil
}

func decodeLightingSAL(op byte, rest []byte) (SAL, int, error) {
	switch {
	case op == opLightingOn:
		if len(rest) < 2 {
			return SAL{}, 0, ErrTruncatedPayload
		}
		return SAL{Kind: SALLightingOn, Group: rest[1]}, 2, nil
	case op == opLightingOff:
		if len(rest) < 2 {
			return SAL{}, 0, ErrTruncatedPayload
		}
		return SAL{Kind: SALLightingOff, Group: rest[1]}, 2, nil
	case op == opLightingTerminateRamp:
		if len(rest) < 2 {
			return SAL{}, 0, ErrTruncatedPayload
		}
		return SAL{Kind: SALLightingTerminateRamp, Group: rest[1]}, 2, nil
	default:
		if idx, ok := rampDurationIndex(op); ok {
			if len(rest) < 3 {
				return SAL{}, 0, ErrTruncatedPayload
			}
			return SAL{Kind: SALLightingRamp, Group: rest[1], Level: rest[2], DurationCode: byte(idx)}, 3, nil
		}
		return SAL{}, 0, ErrTruncatedPayload
	}
}

func decodeClockSAL(op byte, rest []byte) (SAL, int, error) {
	switch op {
	case opClockUpdate:
		if len(rest) < 2 {
			return SAL{}, 0, ErrTruncatedPayload
		}
		switch ClockAttribute(rest[1]) {
		case ClockAttributeTime:
			if len(rest) < 6 {
				return SAL{}, 0, ErrTruncatedPayload
			}
			return SAL{Kind: SALClockTime, Hour: rest[2], Minute: rest[3], Second: rest[4], Fractional: rest[5]}, 6, nil
		case ClockAttributeDate:
			if len(rest) < 6 {
				return SAL{}, 0, ErrTruncatedPayload
			}
			return SAL{Kind: SALClockDate, Year: rest[2], Month: rest[3], Day: rest[4], DayOfWeek: rest[5]}, 6, nil
		default:
			return SAL{}, 0, ErrTruncatedPayload
		}
	case opClockRequest:
		if len(rest) < 2 {
			return SAL{}, 0, ErrTruncatedPayload
		}
		return SAL{Kind: SALClockRequest, Attribute: ClockAttribute(rest[1])}, 2, nil
	default:
		return SAL{}, 0, ErrTruncatedPayload
	}
}

func decodeTemperatureSAL(op byte, rest []byte) (SAL, int, error) {
	if op != opTemperatureBroadcast {
		return SAL{}, 0, ErrTruncatedPayload
	}
	if len(rest) < 3 {
		return SAL{}, 0, ErrTruncatedPayload
	}
	return SAL{Kind: SALTemperatureBroadcast, Group: rest[1], Degrees: int(int8(rest[2]))}, 3, nil
}

// EncodeSALStream is the total inverse of DecodeSALStream on valid input.
func EncodeSALStream(application byte, sals []SAL) []byte {
	var out []byte
	for _, s := range sals {
		out = append(out, encodeSAL(application, s)...)
	}
	return out
}

func encodeSAL(application byte, s SAL) []byte {
	switch s.Kind {
	case SALLightingOn:
		return []byte{opLightingOn, s.Group}
	case SALLightingOff:
		return []byte{opLightingOff, s.Group}
	case SALLightingTerminateRamp:
		return []byte{opLightingTerminateRamp, s.Group}
	case SALLightingRamp:
		return []byte{rampOpcodeForIndex(int(s.DurationCode)), s.Group, s.Level}
	case SALClockTime:
		return []byte{opClockUpdate, byte(ClockAttributeTime), s.Hour, s.Minute, s.Second, s.Fractional}
	case SALClockDate:
		return []byte{opClockUpdate, byte(ClockAttributeDate), s.Year, s.Month, s.Day, s.DayOfWeek}
	case SALClockRequest:
		return []byte{opClockRequest, byte(s.Attribute)}
	case SALTemperatureBroadcast:
		return []byte{opTemperatureBroadcast, s.Group, byte(int8(s.Degrees))}
	default:
		return nil
	}
}

// SmallestRampDurationIndex returns the smallest duration-code index whose
// table value is at least requested. If requested exceeds every table
// entry, the longest duration is used.
func SmallestRampDurationIndex(requested time.Duration) byte {
	for i, d := range rampDurations {
		if d >= requested {
			return byte(i)
		}
	}
	return byte(len(rampDurations) - 1)
}
