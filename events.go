package cbus

// Callbacks bundles every inbound event the bridge can observe. All
// callbacks are invoked from the engine's control goroutine in arrival
// order; none of them may perform blocking work. A bridge wanting to block
// should hand the event off to its own goroutine.
type Callbacks struct {
	OnLightingOn            func(application, group byte)
	OnLightingOff           func(application, group byte)
	OnLightingRamp          func(application, group, level byte, duration byte)
	OnLightingTerminateRamp func(application, group byte)
	OnClockUpdate           func(sal SAL)
	OnTemperature           func(application, group byte, degrees int)

	// OnLevelReport delivers one decoded status block. changed[i] is true
	// when the level for group blockStart+i differs from the previously
	// cached value; a bridge mirroring state publishes only those groups.
	OnLevelReport func(application, blockStart byte, levels [16]int, changed [16]bool)

	OnConnected        func()
	OnDisconnected     func(reason error)
	OnCommandAbandoned func(op string)
}

// dispatchLightingSAL routes one decoded lighting SAL to its callback and
// updates the group database.
func (e *Engine) dispatchLightingSAL(application byte, s SAL) {
	switch s.Kind {
	case SALLightingOn:
		e.noteLevel(application, s.Group, 255)
		if e.cb.OnLightingOn != nil {
			e.cb.OnLightingOn(application, s.Group)
		}
	case SALLightingOff:
		e.noteLevel(application, s.Group, 0)
		if e.cb.OnLightingOff != nil {
			e.cb.OnLightingOff(application, s.Group)
		}
	case SALLightingRamp:
		e.noteLevel(application, s.Group, int(s.Level))
		if e.cb.OnLightingRamp != nil {
			e.cb.OnLightingRamp(application, s.Group, s.Level, s.DurationCode)
		}
	case SALLightingTerminateRamp:
		if e.cb.OnLightingTerminateRamp != nil {
			e.cb.OnLightingTerminateRamp(application, s.Group)
		}
	}
}

// noteLevel records a broadcast-observed level, logging actual transitions.
func (e *Engine) noteLevel(application, group byte, level int) {
	if e.groups.setLevel(application, group, level) {
		log.Debugf("group %#x/%d level now %d", application, group, level)
	}
}
