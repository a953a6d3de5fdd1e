package cbus

import "testing"

// TestPCIErrorFloodingDisconnects checks a run of consecutive PCI error
// frames trips the flooding threshold and drops the connection.
func TestPCIErrorFloodingDisconnects(t *testing.T) {
	e, _ := newTestEngine()
	e.state = StateReady

	for i := 0; i < fatalPCIErrorStreak; i++ {
		frame := buildHexFrame([]byte{bodyTagPCIError})
		e.handleReadEvent(readEvent{gen: e.gen, data: frame})
	}

	if e.state != StateDisconnected {
		t.Fatalf("expected StateDisconnected after %d consecutive PCI errors, got %v", fatalPCIErrorStreak, e.state)
	}
}

// TestPCIErrorStreakResetByGoodFrame checks any successfully decoded
// non-error packet breaks the streak, so scattered PCI errors never
// accumulate to the flooding threshold.
func TestPCIErrorStreakResetByGoodFrame(t *testing.T) {
	e, _ := newTestEngine()
	e.state = StateReady

	errorFrame := buildHexFrame([]byte{bodyTagPCIError})
	goodFrame := buildHexFrame([]byte{bodyTagPointToMultipoint, 0xFF, ApplicationLighting, pmRouting, opLightingOn, 100})

	for i := 0; i < fatalPCIErrorStreak-1; i++ {
		e.handleReadEvent(readEvent{gen: e.gen, data: errorFrame})
	}
	e.handleReadEvent(readEvent{gen: e.gen, data: goodFrame})
	e.handleReadEvent(readEvent{gen: e.gen, data: errorFrame})

	if e.state != StateReady {
		t.Fatalf("expected connection to survive a broken error streak, got %v", e.state)
	}
	if e.pciErrorStreak != 1 {
		t.Fatalf("expected streak restarted at 1, got %d", e.pciErrorStreak)
	}
}

// TestEnterDisconnectedDrainsPendingStatus checks status waiters still
// parked when the connection drops resolve with SendConnectionLost rather
// than hanging until their timeout.
func TestEnterDisconnectedDrainsPendingStatus(t *testing.T) {
	e, _ := newTestEngine()
	e.state = StateReady

	key := statusKey{Application: ApplicationLighting, BlockStart: 0x40}
	waiter := make(chan StatusResult, 1)
	e.pendingStatus[key] = append(e.pendingStatus[key], waiter)

	e.enterDisconnected(ErrConnectionLost)

	select {
	case sr := <-waiter:
		if sr.Outcome != SendConnectionLost {
			t.Fatalf("got %v, want SendConnectionLost", sr.Outcome)
		}
	default:
		t.Fatalf("pending status waiter not resolved on disconnect")
	}
	if len(e.pendingStatus) != 0 {
		t.Fatalf("pending status map not drained, len=%d", len(e.pendingStatus))
	}
}

// TestDropPendingStatusRemovesWaiter checks a resolved waiter is removed so
// a late level report for the same block is not delivered twice.
func TestDropPendingStatusRemovesWaiter(t *testing.T) {
	e, _ := newTestEngine()
	key := statusKey{Application: ApplicationLighting, BlockStart: 0}
	w1 := make(chan StatusResult, 1)
	w2 := make(chan StatusResult, 1)
	e.pendingStatus[key] = []chan StatusResult{w1, w2}

	e.dropPendingStatus(key, w1)
	if len(e.pendingStatus[key]) != 1 || e.pendingStatus[key][0] != w2 {
		t.Fatalf("expected only the second waiter to remain")
	}

	e.dropPendingStatus(key, w2)
	if _, ok := e.pendingStatus[key]; ok {
		t.Fatalf("expected key removed once the last waiter is dropped")
	}
}

// TestReconnectBackoffDoublesAndCaps checks the disconnect-to-connect
// backoff grows exponentially from the floor and stops at the cap.
func TestReconnectBackoffDoublesAndCaps(t *testing.T) {
	e, _ := newTestEngine()
	e.reconnectBackoff = reconnectBackoffFloor

	var seen []int64
	for i := 0; i < 8; i++ {
		seen = append(seen, int64(e.reconnectBackoff.Seconds()))
		e.enterDisconnected(ErrConnectionLost)
	}
	want := []int64{1, 2, 4, 8, 16, 32, 60, 60}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("backoff step %d: got %ds, want %ds", i, seen[i], want[i])
		}
	}
}
