package cbus

import uuid "github.com/satori/go.uuid"

// confirmPool manages the fixed alphabet of confirmation tags. It is owned
// exclusively by the engine's control goroutine and needs no locking of its
// own.
//
// Invariant: len(free) + len(lent) == len(tagAlphabet) at every observable
// moment, and no tag is ever lent twice.
type confirmPool struct {
	free    []byte
	lent    map[byte]string // tag -> trace id, for log correlation only
	waiters []chan byte     // FIFO queue of pending acquirers
}

func newConfirmPool() *confirmPool {
	free := []byte(tagAlphabet)
	cp := make([]byte, len(free))
	copy(cp, free)
	return &confirmPool{free: cp, lent: make(map[byte]string)}
}

func (p *confirmPool) counts() (free, lent int) {
	return len(p.free), len(p.lent)
}

// acquire hands back a tag immediately if one is free (ok=true). Otherwise
// it registers a FIFO waiter and returns ok=false; the caller must select on
// the returned channel to resume. A closed channel with no further sends
// signals cancellation (connection loss), distinguishable from a delivered
// tag because 0 is never a valid tag byte.
func (p *confirmPool) acquire() (tag byte, waiter <-chan byte, ok bool) {
	if len(p.free) > 0 {
		// Pop from the front: the pool starts as the alphabet in order, so
		// the first-ever acquire hands back 'h'.
		tag = p.free[0]
		p.free = p.free[1:]
		p.lent[tag] = newTraceID()
		return tag, nil, true
	}
	ch := make(chan byte, 1)
	p.waiters = append(p.waiters, ch)
	return 0, ch, false
}

// release returns tag to the pool, waking the oldest waiter if any.
// Releasing a tag that is not currently lent is an internal bug; it is
// logged and ignored rather than surfaced to the caller.
func (p *confirmPool) release(tag byte) {
	traceID, held := p.lent[tag]
	if !held {
		log.Warningf("confirm pool: release of tag %q not currently lent, ignoring", string(tag))
		return
	}
	log.Debugf("confirm pool: tag %q released (trace %s)", string(tag), traceID)
	delete(p.lent, tag)
	if len(p.waiters) > 0 {
		w := p.waiters[0]
		p.waiters = p.waiters[1:]
		p.lent[tag] = newTraceID()
		w <- tag
		close(w)
		return
	}
	p.free = append(p.free, tag)
}

// reset reinitialises the pool on connection loss: every lent tag is
// released and every waiter is cancelled.
func (p *confirmPool) reset() {
	p.free = []byte(tagAlphabet)
	p.lent = make(map[byte]string)
	for _, w := range p.waiters {
		close(w)
	}
	p.waiters = nil
}

func newTraceID() string {
	id := uuid.NewV4()
	return id.String()
}
