package container

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/dig"

	"github.com/junioryono/servreg"
)

var (
	_ servreg.Container = (*Container)(nil)
	_ servreg.Scope     = (*Scope)(nil)
)

// Container is a servreg.Container backed by dig.
//
// Singletons are provided to a root dig container when they are added and
// cached there. Each child scope provides the scoped bindings to a dig
// container of its own. Transients are built on every resolution.
//
// Resolution is serialized per resolution context. A factory receives a
// resolver that resolves within the call already in progress, so it may
// resolve its dependencies but must not hand that resolver to another
// goroutine.
type Container struct {
	// mu serializes resolution and dig mutations.
	mu        sync.Mutex
	dig       *dig.Container
	resolving map[reflect.Type]bool
	lifecycle lifecycle
	disposed  atomic.Bool

	bmu      sync.RWMutex
	bindings map[reflect.Type]servreg.Binding
	order    []reflect.Type

	logger *slog.Logger
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates an empty container.
func New(opts ...Option) *Container {
	c := &Container{
		dig:       dig.New(),
		resolving: make(map[reflect.Type]bool),
		bindings:  make(map[reflect.Type]servreg.Binding),
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// TryAdd registers b unless its contract is already bound. Invalid bindings
// are logged and refused.
func (c *Container) TryAdd(b servreg.Binding) bool {
	if b.Contract == nil || b.Factory == nil || !b.Lifetime.IsValid() {
		c.logger.Warn("refusing invalid binding",
			"contract", typeName(b.Contract),
			"lifetime", b.Lifetime.String(),
			"error", ErrInvalidBinding)
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed.Load() {
		return false
	}

	c.bmu.Lock()
	defer c.bmu.Unlock()

	if _, exists := c.bindings[b.Contract]; exists {
		return false
	}

	if b.Lifetime == servreg.Singleton {
		// singletons belong to the orchestrator's disposal registries
		if err := provide(c.dig, b, rootResolver{c}, func(any) {}); err != nil {
			c.logger.Warn("dig refused binding", "contract", typeName(b.Contract), "error", err)
			return false
		}
	}

	c.bindings[b.Contract] = b
	c.order = append(c.order, b.Contract)
	return true
}

// Contains reports whether t is bound.
func (c *Container) Contains(t reflect.Type) bool {
	_, ok := c.binding(t)
	return ok
}

// Binding returns the binding registered for t.
func (c *Container) Binding(t reflect.Type) (servreg.Binding, bool) {
	return c.binding(t)
}

// Bindings returns the bindings in registration order.
func (c *Container) Bindings() []servreg.Binding {
	c.bmu.RLock()
	defer c.bmu.RUnlock()

	out := make([]servreg.Binding, 0, len(c.order))
	for _, t := range c.order {
		out = append(out, c.bindings[t])
	}
	return out
}

// Len returns the number of bindings.
func (c *Container) Len() int {
	c.bmu.RLock()
	defer c.bmu.RUnlock()
	return len(c.order)
}

func (c *Container) binding(t reflect.Type) (servreg.Binding, bool) {
	c.bmu.RLock()
	defer c.bmu.RUnlock()
	b, ok := c.bindings[t]
	return b, ok
}

// Resolve resolves t from the root. Scoped contracts fail with a ScopeError.
func (c *Container) Resolve(t reflect.Type) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolveLocked(t)
}

func (c *Container) resolveLocked(t reflect.Type) (any, error) {
	if c.disposed.Load() {
		return nil, ResolutionError{Type: t, Cause: ErrContainerDisposed}
	}

	b, ok := c.binding(t)
	if !ok {
		return nil, ResolutionError{Type: t, Cause: servreg.ErrServiceNotFound}
	}

	if b.Lifetime == servreg.Scoped {
		return nil, ScopeError{Type: t, Cause: ErrScopedFromRoot}
	}

	if c.resolving[t] {
		return nil, ResolutionError{Type: t, Cause: CycleError{Type: t}}
	}
	c.resolving[t] = true
	defer delete(c.resolving, t)

	var (
		instance any
		err      error
	)
	switch b.Lifetime {
	case servreg.Singleton:
		instance, err = invoke(c.dig, t)
	default:
		instance, err = build(b, rootResolver{c})
		if err == nil {
			c.lifecycle.track(instance)
		}
	}

	if err != nil {
		return nil, ResolutionError{Type: t, Cause: err}
	}
	return instance, nil
}

// CreateScope creates a child scope carrying ctx. Scoped bindings added after
// the scope was created are not visible to it.
func (c *Container) CreateScope(ctx context.Context) (servreg.Scope, error) {
	return c.NewScope(ctx)
}

// NewScope is CreateScope returning the concrete scope.
//
// Each scope owns a dig container holding only the scoped bindings, so
// creating one does not take the resolution lock. A factory running inside a
// root resolution may therefore create scopes from the container it captured.
func (c *Container) NewScope(ctx context.Context) (*Scope, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if c.disposed.Load() {
		return nil, ErrContainerDisposed
	}

	id := uuid.NewString()
	s := &Scope{
		id:        id,
		ctx:       ctx,
		container: c,
		dig:       dig.New(),
		resolving: make(map[reflect.Type]bool),
	}

	for _, b := range c.Bindings() {
		if b.Lifetime != servreg.Scoped {
			continue
		}
		if err := provide(s.dig, b, scopeResolver{s}, s.lifecycle.track); err != nil {
			return nil, fmt.Errorf("scope %s: provide %s: %w", id, typeName(b.Contract), err)
		}
	}

	c.logger.Debug("scope created", "scope", id)
	return s, nil
}

// Close disposes the transient instances resolved from the root, last created
// first. Singletons are left to the orchestrator. Close is idempotent.
func (c *Container) Close() error {
	c.mu.Lock()
	if c.disposed.Load() {
		c.mu.Unlock()
		return nil
	}
	c.disposed.Store(true)
	c.mu.Unlock()

	return c.lifecycle.dispose(context.Background())
}

// rootResolver resolves within a root resolution already holding c.mu.
type rootResolver struct{ c *Container }

func (r rootResolver) Resolve(t reflect.Type) (any, error) {
	return r.c.resolveLocked(t)
}
