package cbus

import (
	"bytes"
	"testing"
)

// buildHexFrame checksums body (sum of body bytes + checksum ≡ 0 mod 256),
// then wraps it the way the wire protocol requires: '\' + hex-ASCII + CR.
func buildHexFrame(body []byte) []byte {
	sum := byte(0)
	for _, b := range body {
		sum += b
	}
	full := append(append([]byte{}, body...), byte(0)-sum)
	out := []byte{frameStart}
	out = append(out, hexEncodeUpper(full)...)
	out = append(out, frameCR)
	return out
}

func TestFramerDecodesHexFrame(t *testing.T) {
	body := []byte{bodyTagPointToMultipoint, 0xFF, ApplicationLighting, pmRouting, opLightingOn, 100}
	frame := buildHexFrame(body)

	f := NewFramer()
	bodies, errs := f.Push(frame)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(bodies) != 1 {
		t.Fatalf("expected 1 body, got %d", len(bodies))
	}
	if !bytes.Equal(bodies[0], body) {
		t.Fatalf("got %x, want %x", bodies[0], body)
	}
}

func TestFramerBadChecksumDropsFrame(t *testing.T) {
	body := []byte{bodyTagPointToMultipoint, 0xFF, ApplicationLighting, pmRouting, opLightingOn, 100}
	frame := buildHexFrame(body)
	frame[len(frame)-3] ^= 0x01 // flip a hex digit in the checksum byte

	f := NewFramer()
	bodies, errs := f.Push(frame)
	if len(bodies) != 0 {
		t.Fatalf("expected no bodies from a corrupt frame, got %d", len(bodies))
	}
	if len(errs) != 1 || errs[0] != ErrBadChecksum {
		t.Fatalf("expected a single ErrBadChecksum, got %v", errs)
	}
}

func TestFramerBareConfirmation(t *testing.T) {
	f := NewFramer()
	bodies, errs := f.Push([]byte("h.\r"))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(bodies) != 1 || !bytes.Equal(bodies[0], []byte{'h', '.'}) {
		t.Fatalf("got %v, want [h .]", bodies)
	}
}

func TestFramerBareConfirmationFailureMark(t *testing.T) {
	f := NewFramer()
	bodies, _ := f.Push([]byte("z!\r"))
	if len(bodies) != 1 || !bytes.Equal(bodies[0], []byte{'z', '!'}) {
		t.Fatalf("got %v, want [z !]", bodies)
	}
}

// TestFramerFalseTagNoise checks a tag-alphabet byte not actually starting a
// confirmation (no '.'/'!' right after it) is treated as noise and does not
// prevent the next real frame from being found.
func TestFramerFalseTagNoise(t *testing.T) {
	body := []byte{bodyTagReset}
	frame := buildHexFrame(body)
	stream := append([]byte("hx"), frame...)

	f := NewFramer()
	bodies, _ := f.Push(stream)
	if len(bodies) != 1 || !bytes.Equal(bodies[0], body) {
		t.Fatalf("got %v, want [%x]", bodies, body)
	}
}

// TestFramerArbitraryChunking delivers two valid frames concatenated, split
// across every possible Push boundary, and expects both decoded exactly
// once regardless of chunking.
func TestFramerArbitraryChunking(t *testing.T) {
	frame1 := buildHexFrame([]byte{bodyTagReset})
	frame2 := buildHexFrame([]byte{bodyTagPCIError})
	stream := append(append([]byte{}, frame1...), frame2...)

	for split := 0; split <= len(stream); split++ {
		f := NewFramer()
		var bodies [][]byte
		b1, _ := f.Push(stream[:split])
		bodies = append(bodies, b1...)
		b2, _ := f.Push(stream[split:])
		bodies = append(bodies, b2...)

		if len(bodies) != 2 {
			t.Fatalf("split=%d: expected 2 bodies, got %d", split, len(bodies))
		}
		if !bytes.Equal(bodies[0], []byte{bodyTagReset}) || !bytes.Equal(bodies[1], []byte{bodyTagPCIError}) {
			t.Fatalf("split=%d: got %v", split, bodies)
		}
	}
}

func TestFramerResyncsOnOverflow(t *testing.T) {
	f := NewFramer()
	noise := bytes.Repeat([]byte{'x'}, frameBufferCap+10)
	bodies, _ := f.Push(noise)
	if len(bodies) != 0 {
		t.Fatalf("expected no bodies from pure noise, got %d", len(bodies))
	}
	if len(f.buf) != 0 {
		t.Fatalf("expected buffer to be dropped on overflow, len=%d", len(f.buf))
	}
}
