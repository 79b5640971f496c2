package container

import (
	"context"
	"reflect"
	"sync"

	"go.uber.org/dig"

	"github.com/junioryono/servreg"
)

// Scope is a child resolution context. Scoped instances are cached per scope;
// singletons come from the root.
type Scope struct {
	id        string
	ctx       context.Context
	container *Container
	dig       *dig.Container

	mu        sync.Mutex
	resolving map[reflect.Type]bool
	lifecycle lifecycle
	closed    bool
}

// ID returns the unique scope identifier.
func (s *Scope) ID() string {
	return s.id
}

// Context returns the context the scope was created with.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Resolve resolves t within the scope.
func (s *Scope) Resolve(t reflect.Type) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveLocked(t)
}

func (s *Scope) resolveLocked(t reflect.Type) (any, error) {
	if s.closed {
		return nil, ScopeError{ScopeID: s.id, Type: t, Cause: ErrScopeDisposed}
	}

	b, ok := s.container.binding(t)
	if !ok {
		return nil, ResolutionError{Type: t, Cause: servreg.ErrServiceNotFound}
	}

	if b.Lifetime == servreg.Singleton {
		return s.container.Resolve(t)
	}

	if s.resolving[t] {
		return nil, ResolutionError{Type: t, Cause: CycleError{Type: t}}
	}
	s.resolving[t] = true
	defer delete(s.resolving, t)

	var (
		instance any
		err      error
	)
	switch b.Lifetime {
	case servreg.Scoped:
		instance, err = invoke(s.dig, t)
	default:
		instance, err = build(b, scopeResolver{s})
		if err == nil {
			s.lifecycle.track(instance)
		}
	}

	if err != nil {
		return nil, ResolutionError{Type: t, Cause: err}
	}
	return instance, nil
}

// Close disposes the scoped and transient instances the scope created, last
// created first. Close is idempotent.
func (s *Scope) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.lifecycle.dispose(context.WithoutCancel(s.ctx))
	s.container.logger.Debug("scope closed", "scope", s.id)
	return err
}

// scopeResolver resolves within a scope resolution already holding s.mu.
type scopeResolver struct{ s *Scope }

func (r scopeResolver) Resolve(t reflect.Type) (any, error) {
	return r.s.resolveLocked(t)
}
