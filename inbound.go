package cbus

// dispatchPacket routes one decoded envelope. It is called only from the
// control goroutine, once per envelope, in arrival order.
func (e *Engine) dispatchPacket(env Envelope) {
	switch env.Kind {
	case EnvelopeReset:
		if e.state == StateResetting {
			e.enterReady()
		}
	case EnvelopeConfirmation:
		e.onConfirmation(env.ConfirmTag, env.ConfirmSuccess)
	case EnvelopePCIError:
		log.Warning("PCI reported an error frame")
		e.notePCIError()
	case EnvelopePointToMultipoint:
		e.dispatchSALs(env.Application, env.SAL)
	case EnvelopePointToPoint:
		e.dispatchCAL(env.Application, env.CAL)
	}
}

func (e *Engine) dispatchSALs(application byte, sals []SAL) {
	for _, s := range sals {
		switch s.Kind {
		case SALLightingOn, SALLightingOff, SALLightingRamp, SALLightingTerminateRamp:
			e.noteApplicationInUse(application)
			e.dispatchLightingSAL(application, s)
		case SALClockTime, SALClockDate:
			if e.cb.OnClockUpdate != nil {
				e.cb.OnClockUpdate(s)
			}
		case SALClockRequest:
			e.scheduleClockEmission()
		case SALTemperatureBroadcast:
			if e.cb.OnTemperature != nil {
				e.cb.OnTemperature(application, s.Group, s.Degrees)
			}
		}
	}
}

func (e *Engine) dispatchCAL(application byte, cal CAL) {
	switch cal.Kind {
	case CALStatusReport:
		e.noteApplicationInUse(application)
		var changed [16]bool
		for i, level := range cal.Levels {
			changed[i] = e.groups.setLevel(application, cal.BlockStart+byte(i), level)
		}
		if e.cb.OnLevelReport != nil {
			e.cb.OnLevelReport(application, cal.BlockStart, cal.Levels, changed)
		}
		e.resolvePendingStatus(application, cal.BlockStart, cal.Levels)
	case CALIdentifyReply, CALReply:
		// No operation on the public surface issues identify requests, so
		// there is never an outstanding request to complete; logged for
		// visibility rather than silently dropped.
		log.Debugf("received %s CAL with no outstanding identify request", cal.Kind)
	}
}
