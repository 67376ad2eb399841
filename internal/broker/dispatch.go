package broker

import (
	"context"
	"fmt"
)

// event is one queued notification for an entry
type event struct {
	transition Transition
	value      any
	err        error
	subs       []Subscriber
	// settle is resolved after the subscribers have been told
	settle *Promise
}

// enqueueLocked queues the transition from -> e.status for delivery to the
// observer and the current subscribers
func (r *Registry) enqueueLocked(e *entry, from Status, settle *Promise) {
	t := Transition{
		Name:       e.name,
		From:       from,
		To:         e.status,
		Generation: e.generation,
	}
	if e.status.Terminal() && from == Loading && !e.startedAt.IsZero() {
		t.Elapsed = r.now().Sub(e.startedAt)
	}

	e.mailbox = append(e.mailbox, event{
		transition: t,
		value:      e.value,
		err:        e.err,
		subs:       e.subs.snapshot(),
		settle:     settle,
	})
}

// drain delivers queued events of e until its mailbox is empty. Only one
// goroutine drains an entry at a time; others return immediately and leave
// their events to the active drainer, which keeps per-entry order.
func (r *Registry) drain(e *entry) {
	r.mu.Lock()
	if e.dispatching {
		r.mu.Unlock()
		return
	}
	e.dispatching = true

	for len(e.mailbox) > 0 {
		ev := e.mailbox[0]
		e.mailbox[0] = event{}
		e.mailbox = e.mailbox[1:]

		// subscribers that left since the transition are skipped
		subs := ev.subs[:0]
		for _, sub := range ev.subs {
			if e.subs.has(sub) {
				subs = append(subs, sub)
			}
		}
		ev.subs = subs

		r.mu.Unlock()
		r.deliver(ev)
		r.mu.Lock()
	}

	e.mailbox = nil
	e.dispatching = false
	r.mu.Unlock()
}

func (r *Registry) deliver(ev event) {
	t := ev.transition

	r.logger.Debug().
		Str("chunk", t.Name).
		Stringer("from", t.From).
		Stringer("to", t.To).
		Uint64("generation", t.Generation).
		Int("subscribers", len(ev.subs)).
		Msg("Chunk transition")

	if r.observer != nil {
		r.safely(t.Name, func() { r.observer.Observe(t) })
	}

	name := t.Name
	for _, sub := range ev.subs {
		sub := sub
		switch t.To {
		case Waiting:
			if ws, ok := sub.(WaitingSubscriber); ok {
				r.safely(name, func() { ws.Waiting(name) })
			}
		case Loading:
			if ls, ok := sub.(LoadingSubscriber); ok {
				r.safely(name, func() { ls.Loading(name) })
			}
		case Resolved:
			r.safely(name, func() { sub.Resolved(name, ev.value) })
		case Rejected:
			reload := func(ctx context.Context) *Promise {
				return r.Reload(ctx, name, nil)
			}
			r.safely(name, func() { sub.Rejected(name, ev.err, reload) })
		}
	}

	if ev.settle != nil {
		ev.settle.settle(ev.value, ev.err)
	}
}

// safely runs a callback and logs a panic instead of propagating it
func (r *Registry) safely(name string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().
				Str("chunk", name).
				Err(fmt.Errorf("%v", rec)).
				Msg("Chunk callback panicked")
		}
	}()
	fn()
}
