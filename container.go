package servreg

import (
	"context"
	"errors"
	"reflect"
)

// Factory builds an implementation instance. It receives the resolver of the
// scope the instance is created in and should resolve its dependencies
// through it: a container may hold a lock for the whole resolution, so
// resolving through a captured container instead can block.
type Factory func(r Resolver) (any, error)

// Binding maps a contract to an implementation at a lifetime scope.
type Binding struct {
	// Contract is the type consumers resolve.
	Contract reflect.Type

	// Implementation is the concrete type the factory produces.
	Implementation reflect.Type

	// Lifetime decides instance caching in the container.
	Lifetime Lifetime

	// Factory creates instances of Implementation.
	Factory Factory
}

// Resolver resolves instances by contract type.
//
// Resolve returns an error satisfying IsNotFound when no binding exists for t.
type Resolver interface {
	Resolve(t reflect.Type) (any, error)
}

// Scope is a disposable child resolution context.
type Scope interface {
	Resolver

	// Close disposes the instances the scope created.
	Close() error
}

// Container is the registration and resolution collaborator the registrar and
// orchestrator work against. The container package provides an implementation.
type Container interface {
	Resolver

	// TryAdd registers b unless a binding for b.Contract already exists.
	// It reports whether b was added. The first registration for a contract wins.
	TryAdd(b Binding) bool

	// CreateScope creates a child resolution context.
	CreateScope(ctx context.Context) (Scope, error)
}

// Host exposes the two one-shot notifications of the hosting process.
// Each callback runs exactly once.
type Host interface {
	// OnStarted registers fn to run when the host became ready.
	OnStarted(fn func())

	// OnStopping registers fn to run when the host is stopping.
	OnStopping(fn func())
}

// Resolve resolves a service of type T.
//
// Example:
//
//	cache, err := servreg.Resolve[Cache](container)
func Resolve[T any](r Resolver) (T, error) {
	var zero T
	if r == nil {
		return zero, ErrResolverNil
	}

	instance, err := r.Resolve(reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}

	service, ok := instance.(T)
	if !ok {
		return zero, TypeMismatchError{
			Expected: reflect.TypeFor[T](),
			Actual:   reflect.TypeOf(instance),
		}
	}

	return service, nil
}

// MustResolve resolves a service of type T and panics on failure.
func MustResolve[T any](r Resolver) T {
	service, err := Resolve[T](r)
	if err != nil {
		panic(err)
	}
	return service
}

// IsNotFound reports whether err indicates a missing binding.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrServiceNotFound)
}
