package cbus

import (
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// Engine is the single entry point a bridge process embeds. Every field
// below is touched only from the control goroutine started by Start; the
// public methods communicate with it exclusively through cmdCh, never by
// touching engine state directly.
type Engine struct {
	cfg Config
	cb  Callbacks

	state            ConnState
	transport        Transport
	gen              int
	framer           *Framer
	confirm          *confirmPool
	groups           *GroupDB
	inFlight         map[byte]*inFlightRecord
	reconnectBackoff time.Duration
	pciErrorStreak   int

	clockTicker        *time.Ticker
	clockCoalesceTimer *time.Timer

	resyncTicker   *time.Ticker
	resyncApps     map[byte]bool
	resyncQueue    []statusKey
	resyncInFlight *lru.Cache
	pendingStatus  map[statusKey][]chan StatusResult

	deadlineTimer  *time.Timer
	resetTimer     *time.Timer
	reconnectTimer *time.Timer

	readCh       chan readEvent
	tagReady     chan tagGrant
	resyncDoneCh chan resyncDone
	cmdCh        chan func(*Engine)
	closed       bool
}

type readEvent struct {
	gen  int
	data []byte
	err  error
}

// StatusResult is RequestStatus's return value: the confirmation outcome
// plus, on success, the matching level report.
type StatusResult struct {
	Outcome SendOutcome
	Levels  [16]int
}

// NewEngine constructs an Engine; call Start to begin connecting.
func NewEngine(cfg Config, cb Callbacks) *Engine {
	apps := make(map[byte]bool, len(cfg.DefaultApplications))
	for _, a := range cfg.DefaultApplications {
		apps[a] = true
	}
	return &Engine{
		cfg:            cfg,
		cb:             cb,
		state:          StateDisconnected,
		framer:         NewFramer(),
		confirm:        newConfirmPool(),
		groups:         newGroupDB(),
		inFlight:       make(map[byte]*inFlightRecord),
		resyncApps:     apps,
		resyncInFlight: newResyncInFlight(),
		pendingStatus:  make(map[statusKey][]chan StatusResult),
		deadlineTimer:  time.NewTimer(time.Hour),
		resetTimer:     time.NewTimer(time.Hour),
		reconnectTimer: time.NewTimer(time.Hour),
		readCh:         make(chan readEvent, 16),
		tagReady:       make(chan tagGrant, 4),
		resyncDoneCh:   make(chan resyncDone, 4),
		cmdCh:          make(chan func(*Engine), 4),
	}
}

// GroupDB exposes the engine's group level cache as a read-only view for
// the bridge.
func (e *Engine) GroupDB() *GroupDB { return e.groups }

// Start launches the control goroutine and begins connecting. It returns
// immediately; lifecycle progress is reported through Callbacks.
func (e *Engine) Start() {
	for _, t := range []*time.Timer{e.deadlineTimer, e.resetTimer, e.reconnectTimer} {
		if !t.Stop() {
			<-t.C
		}
	}
	e.reconnectBackoff = reconnectBackoffFloor
	go e.run()
	e.cmdCh <- func(eng *Engine) { eng.enterConnecting() }
}

func (e *Engine) now() time.Time { return time.Now() }

func (e *Engine) writeFrame(frame []byte) {
	if e.transport == nil {
		return
	}
	if _, err := e.transport.Write(frame); err != nil {
		log.Errorf("writing frame: %v", err)
		e.enterError(err)
	}
}

// run is the single control loop; every wait the engine can be parked on is
// one case of this select.
func (e *Engine) run() {
	for {
		var clockTickC, clockCoalesceC, resyncTickC <-chan time.Time
		if e.clockTicker != nil {
			clockTickC = e.clockTicker.C
		}
		if e.clockCoalesceTimer != nil {
			clockCoalesceC = e.clockCoalesceTimer.C
		}
		if e.resyncTicker != nil {
			resyncTickC = e.resyncTicker.C
		}

		select {
		case cmd := <-e.cmdCh:
			cmd(e)
			if e.closed {
				return
			}
		case ev := <-e.readCh:
			e.handleReadEvent(ev)
		case g := <-e.tagReady:
			e.handleTagGrant(g)
		case d := <-e.resyncDoneCh:
			e.onResyncDone(d)
		case <-e.deadlineTimer.C:
			e.checkDeadlines()
		case <-e.resetTimer.C:
			e.onResetTimeout()
		case <-e.reconnectTimer.C:
			e.enterConnecting()
		case <-clockTickC:
			e.onClockTick()
		case <-clockCoalesceC:
			e.onClockCoalesceFired()
		case <-resyncTickC:
			e.onResyncTick()
		}
	}
}

func (e *Engine) handleReadEvent(ev readEvent) {
	if ev.gen != e.gen {
		return
	}
	if len(ev.data) > 0 {
		bodies, errs := e.framer.Push(ev.data)
		for _, err := range errs {
			log.Warningf("frame decode error: %v", err)
		}
		for _, body := range bodies {
			env, err := DecodePacket(body)
			if err != nil {
				log.Warningf("packet decode error: %v", err)
				continue
			}
			// Only a non-error packet breaks a PCI error streak; resetting
			// unconditionally would make the flooding threshold unreachable.
			if env.Kind != EnvelopePCIError {
				e.pciErrorStreak = 0
			}
			e.dispatchPacket(env)
		}
	}
	if ev.err != nil && e.state != StateDisconnected {
		e.enterError(ev.err)
	}
}

func (e *Engine) readLoop(t Transport, gen int) {
	buf := make([]byte, 256)
	for {
		n, err := t.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			e.readCh <- readEvent{gen: gen, data: data}
		}
		if err != nil {
			e.readCh <- readEvent{gen: gen, err: err}
			return
		}
	}
}

// LightingOn turns a lighting group fully on. The returned channel resolves
// with the command's terminal outcome.
func (e *Engine) LightingOn(application, group byte) <-chan SendOutcome {
	return e.sendLightingOnOff(application, group, true)
}

// LightingOff turns a lighting group off.
func (e *Engine) LightingOff(application, group byte) <-chan SendOutcome {
	return e.sendLightingOnOff(application, group, false)
}

func (e *Engine) sendLightingOnOff(application, group byte, on bool) <-chan SendOutcome {
	result := make(chan SendOutcome, 1)
	opName := "lightingOff"
	kind := SALLightingOff
	if on {
		opName = "lightingOn"
		kind = SALLightingOn
	}
	e.cmdCh <- func(eng *Engine) {
		env := Envelope{
			Kind:          EnvelopePointToMultipoint,
			SourceAddress: engineSourceAddress,
			Application:   application,
			SAL:           []SAL{{Kind: kind, Group: group}},
		}
		eng.relaySend(env, opName, result)
	}
	return result
}

// LightingRamp ramps a lighting group to level over (approximately) the
// requested duration, using the smallest duration code whose table value is
// at least the requested one.
func (e *Engine) LightingRamp(application, group, level byte, duration time.Duration) <-chan SendOutcome {
	result := make(chan SendOutcome, 1)
	e.cmdCh <- func(eng *Engine) {
		code := SmallestRampDurationIndex(duration)
		env := Envelope{
			Kind:          EnvelopePointToMultipoint,
			SourceAddress: engineSourceAddress,
			Application:   application,
			SAL:           []SAL{{Kind: SALLightingRamp, Group: group, Level: level, DurationCode: code}},
		}
		eng.relaySend(env, "lightingRamp", result)
	}
	return result
}

func (e *Engine) relaySend(env Envelope, opName string, result chan SendOutcome) {
	if e.state != StateReady {
		result <- SendConnectionLost
		close(result)
		return
	}
	out := e.send(env, true, e.cfg.MaxAttempts, opName)
	go func() {
		o := <-out
		result <- o
		close(result)
	}()
}

// RequestStatus issues a point-to-point status request for the 32-group
// block starting at blockStart and awaits the matching level report, up to
// the confirmation timeout.
func (e *Engine) RequestStatus(application, blockStart byte) <-chan StatusResult {
	result := make(chan StatusResult, 1)
	e.cmdCh <- func(eng *Engine) {
		if eng.state != StateReady {
			result <- StatusResult{Outcome: SendConnectionLost}
			close(result)
			return
		}
		key := statusKey{Application: application, BlockStart: blockStart}
		waiter := make(chan StatusResult, 1)
		eng.pendingStatus[key] = append(eng.pendingStatus[key], waiter)

		env := Envelope{
			Kind:        EnvelopePointToPoint,
			UnitAddress: engineSourceAddress,
			Application: application,
			CAL:         CAL{Kind: CALStatusRequest, BlockStart: blockStart},
		}
		out := eng.send(env, true, eng.cfg.MaxAttempts, "requestStatus")
		timeout := time.NewTimer(eng.cfg.ConfirmTimeout)
		finish := func(sr StatusResult) {
			result <- sr
			close(result)
			eng.enqueue(func(inner *Engine) { inner.dropPendingStatus(key, waiter) })
		}
		go func() {
			select {
			case o := <-out:
				if o != SendSuccess {
					timeout.Stop()
					finish(StatusResult{Outcome: o})
					return
				}
				select {
				case sr := <-waiter:
					timeout.Stop()
					finish(sr)
				case <-timeout.C:
					finish(StatusResult{Outcome: SendAbandoned})
				}
			case <-timeout.C:
				finish(StatusResult{Outcome: SendAbandoned})
			}
		}()
	}
	return result
}

// enqueue schedules fn on the control goroutine without blocking the
// caller. If the loop is gone (engine closed) the send is abandoned after a
// bounded wait rather than parking a goroutine forever.
func (e *Engine) enqueue(fn func(*Engine)) {
	select {
	case e.cmdCh <- fn:
	default:
		go func() {
			select {
			case e.cmdCh <- fn:
			case <-time.After(time.Minute):
			}
		}()
	}
}

// dropPendingStatus removes one resolved waiter from the pending-status map
// so a late level report for the same block is not delivered to it again.
func (e *Engine) dropPendingStatus(key statusKey, waiter chan StatusResult) {
	waiters := e.pendingStatus[key]
	for i, w := range waiters {
		if w == waiter {
			waiters = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
	if len(waiters) == 0 {
		delete(e.pendingStatus, key)
		return
	}
	e.pendingStatus[key] = waiters
}

// resolvePendingStatus delivers a matching level report to every
// RequestStatus caller waiting on (application, blockStart).
func (e *Engine) resolvePendingStatus(application, blockStart byte, levels [16]int) {
	key := statusKey{Application: application, BlockStart: blockStart}
	waiters := e.pendingStatus[key]
	if len(waiters) == 0 {
		return
	}
	delete(e.pendingStatus, key)
	for _, w := range waiters {
		w <- StatusResult{Outcome: SendSuccess, Levels: levels}
	}
}

// PublishTime forces a clock emission outside the periodic schedule and
// returns once it has been transmitted.
func (e *Engine) PublishTime() {
	done := make(chan struct{})
	e.cmdCh <- func(eng *Engine) {
		eng.publishTime()
		close(done)
	}
	<-done
}

// Close disconnects the transport, drains all in-flight state, stops both
// periodic controllers, and returns once the control goroutine has wound
// down.
func (e *Engine) Close() {
	done := make(chan struct{})
	e.cmdCh <- func(eng *Engine) {
		eng.enterDisconnected(ErrClosed)
		eng.closed = true
		close(done)
	}
	<-done
}
