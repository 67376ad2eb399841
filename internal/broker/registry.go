// Package broker tracks logical chunks through their load lifecycle.
//
// A Registry owns one entry per logical chunk name. Each entry moves
// WAITING -> LOADING -> RESOLVED | REJECTED, and runs at most one load per
// generation no matter how many consumers ask for it. Reload and Invalidate
// start a new generation; results from superseded generations are dropped.
//
// Every mutation happens under the registry lock. Notifications for an entry
// are queued under the lock and delivered outside it, one at a time and in
// transition order, so subscribers can call back into the registry.
package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jsh-team/chunkbroker/internal/emitter"
	"github.com/jsh-team/chunkbroker/internal/resolver"
	"github.com/jsh-team/chunkbroker/internal/stats"
)

type entry struct {
	name       string
	status     Status
	generation uint64
	promise    *Promise
	loader     Loader
	value      any
	err        error
	startedAt  time.Time
	subs       *subscriberSet

	mailbox     []event
	dispatching bool
}

// Registry maps logical chunk names to their load state
type Registry struct {
	mu       sync.Mutex
	entries  map[string]*entry
	names    []string
	observer Observer
	logger   zerolog.Logger
	now      func() time.Time
}

type Option func(*Registry)

// WithObserver reports every transition to o
func WithObserver(o Observer) Option {
	return func(r *Registry) {
		r.observer = o
	}
}

// WithLogger sets the logger used for debug tracing of transitions
func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// NewRegistry returns an empty registry
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[string]*entry),
		logger:  zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns a process-wide registry for top-level call sites.
// Library code should always take a *Registry explicitly.
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// entryLocked returns the entry for name, creating it in WAITING
func (r *Registry) entryLocked(name string) *entry {
	e, ok := r.entries[name]
	if !ok {
		e = &entry{
			name:   name,
			status: Waiting,
			subs:   newSubscriberSet(),
		}
		r.entries[name] = e
		r.names = append(r.names, name)
	}
	return e
}

// Add starts loading name with loader unless a load already happened in the
// current generation, and returns the generation's promise. Entries that are
// LOADING, RESOLVED or REJECTED return their existing promise and loader is
// not invoked.
func (r *Registry) Add(ctx context.Context, name string, loader Loader) *Promise {
	r.mu.Lock()
	e := r.entryLocked(name)
	p := e.promise
	if e.status == Waiting {
		p = r.startLoadLocked(ctx, e, loader)
	}
	r.mu.Unlock()

	r.drain(e)
	return p
}

// Subscribe registers sub for transitions of name. An entry that is absent or
// WAITING starts loading with loader. The returned promise is nil only when
// the entry is WAITING and loader is nil.
func (r *Registry) Subscribe(ctx context.Context, name string, sub Subscriber, loader Loader) *Promise {
	r.mu.Lock()
	e := r.entryLocked(name)
	e.subs.add(sub)
	p := e.promise
	if e.status == Waiting && loader != nil {
		p = r.startLoadLocked(ctx, e, loader)
	}
	r.mu.Unlock()

	r.drain(e)
	return p
}

// Unsubscribe removes sub from name. It is safe to call more than once.
func (r *Registry) Unsubscribe(name string, sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[name]; ok {
		e.subs.remove(sub)
	}
}

// Reload starts a new generation for name from any state. A nil loader reuses
// the last loader seen for the entry. Subscribers stay attached; they are told
// the chunk is loading again and then get the new outcome. Whatever the
// superseded load produces is ignored.
func (r *Registry) Reload(ctx context.Context, name string, loader Loader) *Promise {
	r.mu.Lock()
	e := r.entryLocked(name)
	if loader == nil {
		loader = e.loader
	}
	if loader == nil {
		r.mu.Unlock()
		return settledPromise(nil, fmt.Errorf("reload %s: %w", name, ErrNoLoader))
	}
	p := r.startLoadLocked(ctx, e, loader)
	r.mu.Unlock()

	r.drain(e)
	return p
}

// Resolved moves name to RESOLVED with value. It is a no-op returning false
// when the entry is already terminal.
func (r *Registry) Resolved(name string, value any) bool {
	return r.settleExternal(name, value, nil)
}

// Rejected moves name to REJECTED with err. It is a no-op returning false
// when the entry is already terminal.
func (r *Registry) Rejected(name string, err error) bool {
	return r.settleExternal(name, nil, err)
}

func (r *Registry) settleExternal(name string, value any, err error) bool {
	r.mu.Lock()
	e := r.entryLocked(name)
	if e.status.Terminal() {
		r.mu.Unlock()
		return false
	}
	if e.promise == nil {
		e.generation++
		e.promise = newPromise()
	}
	r.finishLocked(e, value, err)
	r.mu.Unlock()

	r.drain(e)
	return true
}

// Set stores value as the resolved value of name, whatever its state. Used to
// seed chunks that are already present, such as those delivered with a server
// rendered page.
func (r *Registry) Set(name string, value any) {
	r.mu.Lock()
	e := r.entryLocked(name)
	if e.promise == nil || e.status.Terminal() {
		e.generation++
		e.promise = newPromise()
	}
	r.finishLocked(e, value, nil)
	r.mu.Unlock()

	r.drain(e)
}

// Invalidate forces name back to WAITING so the next Add or Subscribe loads it
// again. It reports whether the entry changed.
func (r *Registry) Invalidate(name string) bool {
	r.mu.Lock()
	e, ok := r.entries[name]
	if !ok || e.status == Waiting {
		r.mu.Unlock()
		return false
	}
	r.resetLocked(e)
	r.mu.Unlock()

	r.drain(e)
	return true
}

// InvalidatePending forces every LOADING entry back to WAITING and returns
// their names
func (r *Registry) InvalidatePending() []string {
	r.mu.Lock()
	var reset []*entry
	for _, name := range r.names {
		e := r.entries[name]
		if e.status == Loading {
			r.resetLocked(e)
			reset = append(reset, e)
		}
	}
	r.mu.Unlock()

	names := make([]string, 0, len(reset))
	for _, e := range reset {
		r.drain(e)
		names = append(names, e.name)
	}
	return names
}

// Get returns a snapshot of the entry for name
func (r *Registry) Get(name string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return Entry{}, false
	}
	return Entry{
		Name:        e.name,
		Status:      e.status,
		Generation:  e.generation,
		Value:       e.value,
		Err:         e.err,
		Promise:     e.promise,
		Subscribers: e.subs.len(),
	}, true
}

// Status returns the status of name; unknown names are WAITING
func (r *Registry) Status(name string) Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[name]; ok {
		return e.status
	}
	return Waiting
}

// Value returns the resolved value of name
func (r *Registry) Value(name string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok || e.status != Resolved {
		return nil, false
	}
	return e.value, true
}

// ChunkNames returns every name the registry has seen, in first-reference
// order
func (r *Registry) ChunkNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}

// GetChunks resolves the registry's names against a stats snapshot
func (r *Registry) GetChunks(s *stats.Stats) []*stats.Chunk {
	return resolver.Resolve(s, r.ChunkNames())
}

// GetChunkScripts renders the script markup for the registry's names
func (r *Registry) GetChunkScripts(s *stats.Stats, opts emitter.Options) (string, error) {
	return emitter.Emit(s, r.ChunkNames(), opts)
}

// startLoadLocked begins a new generation and runs loader in the background
func (r *Registry) startLoadLocked(ctx context.Context, e *entry, loader Loader) *Promise {
	if ctx == nil {
		ctx = context.Background()
	}

	from := e.status
	e.generation++
	e.status = Loading
	e.promise = newPromise()
	e.value = nil
	e.err = nil
	e.startedAt = r.now()

	r.enqueueLocked(e, from, nil)

	if loader == nil {
		r.finishLocked(e, nil, fmt.Errorf("load %s: %w", e.name, ErrNoLoader))
		return e.promise
	}
	e.loader = loader

	go r.run(ctx, e, e.generation, e.promise, loader)

	return e.promise
}

func (r *Registry) run(ctx context.Context, e *entry, generation uint64, p *Promise, loader Loader) {
	value, err := callLoader(ctx, loader)

	r.mu.Lock()
	current := e.generation == generation && e.status == Loading
	superseded := e.promise != p
	if current {
		r.finishLocked(e, value, err)
	}
	r.mu.Unlock()

	if !current {
		r.logger.Debug().
			Str("chunk", e.name).
			Uint64("generation", generation).
			Msg("Dropping result of superseded load")
		// Settled externally in the same generation: the dispatcher owns p
		if superseded {
			p.settle(value, err)
		}
		return
	}

	r.drain(e)
}

func callLoader(ctx context.Context, loader Loader) (value any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("loader panicked: %v", rec)
		}
	}()

	module, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	return module.Unwrap(), nil
}

// finishLocked records the terminal outcome of the current generation
func (r *Registry) finishLocked(e *entry, value any, err error) {
	from := e.status
	if err != nil {
		e.status = Rejected
		e.err = err
		e.value = nil
	} else {
		e.status = Resolved
		e.value = value
		e.err = nil
	}
	r.enqueueLocked(e, from, e.promise)
}

// resetLocked moves e to WAITING in a new generation
func (r *Registry) resetLocked(e *entry) {
	from := e.status
	e.generation++
	e.status = Waiting
	e.promise = nil
	e.value = nil
	e.err = nil
	r.enqueueLocked(e, from, nil)
}
