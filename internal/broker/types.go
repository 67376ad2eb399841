package broker

import (
	"context"
	"errors"
	"time"
)

// Status is the load state of one logical chunk
type Status int

const (
	Waiting Status = iota
	Loading
	Resolved
	Rejected
)

func (s Status) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Loading:
		return "loading"
	case Resolved:
		return "resolved"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is Resolved or Rejected
func (s Status) Terminal() bool {
	return s == Resolved || s == Rejected
}

var (
	// ErrNoLoader is returned when a load is requested without any loader
	ErrNoLoader = errors.New("no loader registered for chunk")
)

// Module is what a loader produces.
// When Namespace is set and Value is a map holding a "default" key, the
// default export is what consumers receive. Any other value is passed through.
type Module struct {
	Value     any
	Namespace bool
}

// Unwrap returns the value consumers receive
func (m Module) Unwrap() any {
	if !m.Namespace {
		return m.Value
	}
	if exports, ok := m.Value.(map[string]any); ok {
		if def, ok := exports["default"]; ok {
			return def
		}
	}
	return m.Value
}

// Loader fetches one logical chunk. It is invoked at most once per generation.
type Loader func(ctx context.Context) (Module, error)

// ReloadFunc starts a new load generation with the entry's last loader
type ReloadFunc func(ctx context.Context) *Promise

// Subscriber is a consumer interested in the transitions of a chunk.
// Handles must be comparable (pointers in practice); identity is what
// Unsubscribe removes. Callbacks run outside the registry lock and may call
// back into the registry, but must not block on the chunk's own promise.
type Subscriber interface {
	Resolved(name string, value any)
	Rejected(name string, err error, reload ReloadFunc)
}

// LoadingSubscriber is notified when a reload puts the chunk back in flight
type LoadingSubscriber interface {
	Loading(name string)
}

// WaitingSubscriber is notified when the chunk is invalidated
type WaitingSubscriber interface {
	Waiting(name string)
}

// Transition describes one status change, as seen by an Observer
type Transition struct {
	Name       string
	From       Status
	To         Status
	Generation uint64
	// Elapsed is the time spent loading, set on terminal transitions that
	// follow a load
	Elapsed time.Duration
}

// Observer receives every transition of every entry, in per-entry order
type Observer interface {
	Observe(t Transition)
}

// Entry is a read-only snapshot of a registry record
type Entry struct {
	Name        string
	Status      Status
	Generation  uint64
	Value       any
	Err         error
	Promise     *Promise
	Subscribers int
}
