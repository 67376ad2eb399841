package broker

import (
	"context"
	"sync"
)

// Promise is the eventual result of one load generation
type Promise struct {
	done  chan struct{}
	once  sync.Once
	value any
	err   error
}

func newPromise() *Promise {
	return &Promise{done: make(chan struct{})}
}

func settledPromise(value any, err error) *Promise {
	p := newPromise()
	p.settle(value, err)
	return p
}

// settle stores the result the first time it is called
func (p *Promise) settle(value any, err error) bool {
	settled := false
	p.once.Do(func() {
		p.value = value
		p.err = err
		close(p.done)
		settled = true
	})
	return settled
}

// Done is closed once the promise settles
func (p *Promise) Done() <-chan struct{} {
	return p.done
}

// Settled reports whether the promise has a result
func (p *Promise) Settled() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Result returns the settled value and error; both are nil while pending
func (p *Promise) Result() (any, error) {
	if !p.Settled() {
		return nil, nil
	}
	return p.value, p.err
}

// Wait blocks until the promise settles or ctx is done
func (p *Promise) Wait(ctx context.Context) (any, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
