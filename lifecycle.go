package cbus

import "time"

// ConnState is the engine's connection lifecycle state.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateResetting
	StateReady
	StateError
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateResetting:
		return "resetting"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

const (
	resetPreamble = "~~~"
	// smartModeCommand sets the PCI's Interface Options 1 register to enable
	// smart mode plus CONNECT and SRCHK, switching the unit out of basic
	// mode so it checksums traffic and reports monitored SALs. Sent once,
	// unframed, right after the reset preamble.
	smartModeCommand = "A3300059\r"

	reconnectBackoffFloor = 1 * time.Second
	reconnectBackoffCap   = 60 * time.Second
	fatalPCIErrorStreak   = 5
)

// enterConnecting opens the configured transport and, on success, begins
// the reset handshake. Failures loop back to Disconnected with the usual
// backoff.
func (e *Engine) enterConnecting() {
	e.state = StateConnecting
	log.Info("connecting to PCI")
	t, err := e.openTransport()
	if err != nil {
		log.Errorf("opening transport: %v", err)
		e.enterDisconnected(err)
		return
	}
	e.transport = t
	e.gen++
	go e.readLoop(t, e.gen)
	e.enterResetting()
}

// enterResetting sends the reset preamble and smart-mode command directly
// to the transport, bypassing the packet codec entirely since this
// handshake has no checksum or hex framing of its own.
func (e *Engine) enterResetting() {
	e.state = StateResetting
	if _, err := e.transport.Write([]byte(resetPreamble)); err != nil {
		e.enterError(err)
		return
	}
	if _, err := e.transport.Write([]byte(smartModeCommand)); err != nil {
		e.enterError(err)
		return
	}
	e.resetTimer.Reset(e.cfg.ResetTimeout)
}

// enterReady transitions Resetting -> Ready on a timely reset echo and
// starts both periodic controllers.
func (e *Engine) enterReady() {
	e.state = StateReady
	e.resetTimer.Stop()
	e.reconnectBackoff = reconnectBackoffFloor
	e.pciErrorStreak = 0
	e.startClockController()
	e.startResyncController()
	if e.cb.OnConnected != nil {
		e.cb.OnConnected()
	}
}

// onResetTimeout fires when no reset echo arrives within cfg.ResetTimeout.
func (e *Engine) onResetTimeout() {
	if e.state != StateResetting {
		return
	}
	e.enterError(ErrConfirmTimeout)
}

func (e *Engine) notePCIError() {
	e.pciErrorStreak++
	if e.pciErrorStreak >= fatalPCIErrorStreak {
		e.enterError(ErrFatalProtocol)
	}
}

// enterError moves to Error and then immediately to Disconnected; Error has
// no dwell time of its own.
func (e *Engine) enterError(reason error) {
	e.state = StateError
	log.Errorf("connection error: %v", reason)
	e.enterDisconnected(reason)
}

// enterDisconnected drains every engine-owned resource: the confirmation
// pool, all in-flight records, pending status waiters, both periodic
// controllers, and the receive buffer. It then schedules the next connect
// attempt with exponential backoff.
func (e *Engine) enterDisconnected(reason error) {
	wasReady := e.state == StateReady
	e.state = StateDisconnected
	e.stopClockController()
	e.stopResyncController()
	e.drainInFlight()
	for key, waiters := range e.pendingStatus {
		for _, w := range waiters {
			w <- StatusResult{Outcome: SendConnectionLost}
		}
		delete(e.pendingStatus, key)
	}
	e.framer = NewFramer()
	e.gen++ // invalidate any reads still in flight from the old readLoop goroutine
	if e.transport != nil {
		e.transport.Close()
		e.transport = nil
	}
	e.resetTimer.Stop()
	if wasReady && e.cb.OnDisconnected != nil {
		e.cb.OnDisconnected(reason)
	}
	e.reconnectTimer.Reset(e.reconnectBackoff)
	e.reconnectBackoff *= 2
	if e.reconnectBackoff > reconnectBackoffCap {
		e.reconnectBackoff = reconnectBackoffCap
	}
}

func (e *Engine) openTransport() (Transport, error) {
	switch e.cfg.Transport {
	case TransportSerial:
		return openSerialTransport(e.cfg.SerialDevice)
	default:
		return openTCPTransport(e.cfg.TCPAddress, e.cfg.ConfirmTimeout)
	}
}
