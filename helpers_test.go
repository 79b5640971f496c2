package servreg_test

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/junioryono/servreg"
	"github.com/junioryono/servreg/container"
	"github.com/junioryono/servreg/hosting"
)

// events is an ordered, concurrency-safe log of component calls.
type events struct {
	mu   sync.Mutex
	list []string
}

func (e *events) add(s string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.list = append(e.list, s)
}

func (e *events) List() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.list...)
}

// plainSetup is an AsyncSetup component with an observable flag.
type plainSetup struct {
	name    string
	ev      *events
	err     error
	panics  any
	delay   time.Duration
	release chan struct{}
	onCall  func()

	calls atomic.Int32
	done  atomic.Bool
}

func (p *plainSetup) Setup(ctx context.Context) error {
	p.calls.Add(1)
	p.ev.add("start:" + p.name)
	if p.onCall != nil {
		p.onCall()
	}
	if p.release != nil {
		<-p.release
	}
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if p.panics != nil {
		panic(p.panics)
	}
	p.done.Store(true)
	p.ev.add("end:" + p.name)
	return p.err
}

type (
	setupA struct{ *plainSetup }
	setupB struct{ *plainSetup }
	setupC struct{ *plainSetup }
)

// resolverSetup is an AsyncSetupWithResolver component. When resolve is set
// it resolves that contract through the resolver it is given, after release
// is closed if set.
type resolverSetup struct {
	name    string
	ev      *events
	err     error
	resolve reflect.Type
	release chan struct{}

	calls      atomic.Int32
	done       atomic.Bool
	resolved   any
	resolveErr error
	resolver   servreg.Resolver
}

func (s *resolverSetup) Setup(ctx context.Context, r servreg.Resolver) error {
	s.calls.Add(1)
	s.resolver = r
	defer s.done.Store(true)
	if s.release != nil {
		<-s.release
	}
	if s.resolve != nil {
		v, err := r.Resolve(s.resolve)
		if err != nil {
			s.resolveErr = err
			return err
		}
		s.resolved = v
	}
	s.ev.add("resolver:" + s.name)
	return s.err
}

type (
	resolverA struct{ *resolverSetup }
	resolverB struct{ *resolverSetup }
)

// closer is a synchronous disposable.
type closer struct {
	name   string
	ev     *events
	err    error
	panics any
	onCall func()

	disposed atomic.Int32
}

func (c *closer) Close() error {
	c.disposed.Add(1)
	c.ev.add("close:" + c.name)
	if c.onCall != nil {
		c.onCall()
	}
	if c.panics != nil {
		panic(c.panics)
	}
	return c.err
}

type (
	closerA struct{ *closer }
	closerB struct{ *closer }
)

// shutdowner is an asynchronous disposable.
type shutdowner struct {
	name string
	ev   *events
	err  error

	disposed atomic.Int32
}

func (s *shutdowner) Shutdown(ctx context.Context) error {
	s.disposed.Add(1)
	s.ev.add("shutdown:" + s.name)
	return s.err
}

type shutdownerA struct{ *shutdowner }

// hosted is a LifetimeHosted component.
type hosted struct {
	ev      *events
	started atomic.Int32
	closed  atomic.Int32
}

func (h *hosted) Start() {
	h.started.Add(1)
	h.ev.add("hosted:start")
}

func (h *hosted) Close() error {
	h.closed.Add(1)
	h.ev.add("hosted:close")
	return nil
}

// scopedUnit is a scoped AsyncDisposable.
type scopedUnit struct {
	disposed atomic.Int32
}

func (u *scopedUnit) Shutdown(context.Context) error {
	u.disposed.Add(1)
	return nil
}

// fixed defines a component whose factory always returns v.
func fixed[T any](v T, opts ...servreg.DefineOption) *servreg.Definition {
	return servreg.MustDefine(func(servreg.Resolver) (T, error) { return v, nil }, opts...)
}

// harness bundles a container, a host and the orchestrator built over them.
type harness struct {
	container *container.Container
	lifetime  *hosting.Lifetime
	orch      *servreg.Orchestrator
}

func build(t *testing.T, configure func(*servreg.Builder)) *harness {
	t.Helper()

	h := &harness{
		container: container.New(),
		lifetime:  hosting.NewLifetime(),
	}

	orch, err := servreg.Configure(h.container, h.lifetime, configure)
	require.NoError(t, err)
	h.orch = orch

	t.Cleanup(func() { _ = h.container.Close() })
	return h
}
