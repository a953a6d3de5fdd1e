package cbus

import "time"

// startClockController begins the periodic clock broadcast timer.
func (e *Engine) startClockController() {
	if e.cfg.ClockPublishInterval > 0 {
		e.clockTicker = time.NewTicker(e.cfg.ClockPublishInterval)
	}
}

// stopClockController cancels both the periodic timer and any pending
// coalesced emission.
func (e *Engine) stopClockController() {
	if e.clockTicker != nil {
		e.clockTicker.Stop()
		e.clockTicker = nil
	}
	if e.clockCoalesceTimer != nil {
		e.clockCoalesceTimer.Stop()
		e.clockCoalesceTimer = nil
	}
}

// scheduleClockEmission answers an inbound clock request. Requests arriving
// while an emission is already scheduled are coalesced into it, so at most
// one emission happens per coalescing window.
func (e *Engine) scheduleClockEmission() {
	if e.clockCoalesceTimer != nil {
		return
	}
	e.clockCoalesceTimer = time.NewTimer(e.cfg.ClockCoalesceWindow)
}

// onClockCoalesceFired is called when the coalescing window elapses.
func (e *Engine) onClockCoalesceFired() {
	e.clockCoalesceTimer = nil
	e.emitClock()
}

// onClockTick is called on every clockTicker tick.
func (e *Engine) onClockTick() {
	e.emitClock()
}

// publishTime forces a clock emission outside the periodic schedule.
func (e *Engine) publishTime() {
	e.emitClock()
}

func (e *Engine) emitClock() {
	now := time.Now()
	timeSAL := SAL{
		Kind:   SALClockTime,
		Hour:   byte(now.Hour()),
		Minute: byte(now.Minute()),
		Second: byte(now.Second()),
	}
	dateSAL := SAL{
		Kind:      SALClockDate,
		Year:      byte(now.Year() % 100),
		Month:     byte(now.Month()),
		Day:       byte(now.Day()),
		DayOfWeek: byte(now.Weekday()),
	}
	env := Envelope{
		Kind:          EnvelopePointToMultipoint,
		SourceAddress: engineSourceAddress,
		Application:   ApplicationClock,
		SAL:           []SAL{dateSAL, timeSAL},
	}
	e.send(env, false, 1, "publishTime")
}
