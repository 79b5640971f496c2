package hosting

import (
	"sync"

	"github.com/junioryono/servreg"
)

var _ servreg.Host = (*Lifetime)(nil)

// Lifetime carries the two one-shot notifications of a hosted process.
// Callbacks registered after a notification fired run immediately.
type Lifetime struct {
	started  *event
	stopping *event
}

// NewLifetime returns a Lifetime with neither notification fired.
func NewLifetime() *Lifetime {
	return &Lifetime{
		started:  newEvent(),
		stopping: newEvent(),
	}
}

// OnStarted registers fn to run once the host is ready.
func (l *Lifetime) OnStarted(fn func()) { l.started.register(fn) }

// OnStopping registers fn to run once the host begins stopping.
func (l *Lifetime) OnStopping(fn func()) { l.stopping.register(fn) }

// NotifyStarted runs the started callbacks. Only the first call has effect.
func (l *Lifetime) NotifyStarted() { l.started.fire() }

// NotifyStopping runs the stopping callbacks. Only the first call has effect.
func (l *Lifetime) NotifyStopping() { l.stopping.fire() }

// Started is closed once NotifyStarted ran.
func (l *Lifetime) Started() <-chan struct{} { return l.started.done }

// Stopping is closed once NotifyStopping ran.
func (l *Lifetime) Stopping() <-chan struct{} { return l.stopping.done }

type event struct {
	mu        sync.Mutex
	callbacks []func()
	done      chan struct{}
}

func newEvent() *event {
	return &event{done: make(chan struct{})}
}

func (e *event) register(fn func()) {
	if fn == nil {
		return
	}

	e.mu.Lock()
	select {
	case <-e.done:
		e.mu.Unlock()
		fn()
		return
	default:
	}
	e.callbacks = append(e.callbacks, fn)
	e.mu.Unlock()
}

func (e *event) fire() {
	e.mu.Lock()
	select {
	case <-e.done:
		e.mu.Unlock()
		return
	default:
	}
	callbacks := e.callbacks
	e.callbacks = nil
	close(e.done)
	e.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}
