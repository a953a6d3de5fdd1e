package cbus

import (
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// statusKey identifies one 32-group resync block.
type statusKey struct {
	Application byte
	BlockStart  byte
}

// resyncDone relays the outcome of one in-flight resync request back into
// the control goroutine so it can free a slot and pump the next queued
// block (mirrors tagGrant's relay-goroutine pattern in outbound.go).
type resyncDone struct {
	key statusKey
}

// startResyncController begins periodic bulk status polling. A
// ResyncInterval of 0 disables it entirely.
func (e *Engine) startResyncController() {
	if e.cfg.ResyncInterval <= 0 {
		return
	}
	e.resyncTicker = time.NewTicker(e.cfg.ResyncInterval)
	e.onResyncTick()
}

func (e *Engine) stopResyncController() {
	if e.resyncTicker != nil {
		e.resyncTicker.Stop()
		e.resyncTicker = nil
	}
	e.resyncQueue = nil
}

// noteApplicationInUse grows the resync controller's application set from
// observed traffic, so a bridge that never configures an application list
// still gets resync coverage for whatever the network actually uses.
func (e *Engine) noteApplicationInUse(application byte) {
	if !e.resyncApps[application] {
		e.resyncApps[application] = true
	}
}

// onResyncTick enqueues every status block, for every known-in-use
// application, that isn't already queued or in flight from a prior
// overlapping cycle, then pumps as many as the in-flight budget allows.
func (e *Engine) onResyncTick() {
	blockSize := e.cfg.ResyncBlockSize
	if blockSize == 0 {
		blockSize = 32
	}
	queued := make(map[statusKey]bool, len(e.resyncQueue))
	for _, key := range e.resyncQueue {
		queued[key] = true
	}
	for app := range e.resyncApps {
		for start := 0; start < 256; start += int(blockSize) {
			key := statusKey{Application: app, BlockStart: byte(start)}
			if queued[key] || e.resyncInFlight.Contains(key) {
				continue
			}
			e.resyncQueue = append(e.resyncQueue, key)
		}
	}
	e.pumpResyncQueue()
}

func (e *Engine) pumpResyncQueue() {
	for len(e.resyncQueue) > 0 && e.resyncInFlight.Len() < e.cfg.ResyncMaxInFlight {
		key := e.resyncQueue[0]
		e.resyncQueue = e.resyncQueue[1:]
		e.resyncInFlight.Add(key, struct{}{})
		e.issueStatusRequest(key)
	}
}

func (e *Engine) issueStatusRequest(key statusKey) {
	env := Envelope{
		Kind:        EnvelopePointToPoint,
		UnitAddress: engineSourceAddress,
		Application: key.Application,
		CAL:         CAL{Kind: CALStatusRequest, BlockStart: key.BlockStart},
	}
	result := e.send(env, true, e.cfg.MaxAttempts, "resync")
	go func() {
		<-result
		e.resyncDoneCh <- resyncDone{key: key}
	}()
}

// onResyncDone frees the in-flight slot for key and, if the queue still has
// work and a slot is free, pumps the next block.
func (e *Engine) onResyncDone(d resyncDone) {
	e.resyncInFlight.Remove(d.key)
	e.pumpResyncQueue()
}

func newResyncInFlight() *lru.Cache {
	cache, err := lru.New(64)
	if err != nil {
		// lru.New only errors on a non-positive size, which 64 never is.
		panic(err)
	}
	return cache
}
