package servreg

import (
	"context"
	"reflect"
)

// Disposable is implemented by components that release resources synchronously.
// Singleton components implementing it are closed when the host shuts down.
//
// Example:
//
//	type DatabaseConnection struct {
//	    conn *sql.DB
//	}
//
//	func (dc *DatabaseConnection) Close() error {
//	    return dc.conn.Close()
//	}
type Disposable interface {
	// Close disposes the resource.
	Close() error
}

// AsyncDisposable is implemented by components whose teardown may block and
// should honor a deadline.
//
// Example:
//
//	func (s *Server) Shutdown(ctx context.Context) error {
//	    return s.http.Shutdown(ctx)
//	}
type AsyncDisposable interface {
	// Shutdown disposes the resource, giving up when ctx is done.
	Shutdown(ctx context.Context) error
}

// AsyncSetup is implemented by components that need initialization once the
// host starts, such as warming a cache or running migrations.
type AsyncSetup interface {
	Setup(ctx context.Context) error
}

// AsyncSetupWithResolver is implemented by components whose initialization
// needs to resolve other services. The resolver is bound to a scope created
// for this call and closed when Setup returns.
type AsyncSetupWithResolver interface {
	Setup(ctx context.Context, resolver Resolver) error
}

// LifetimeHosted is implemented by components that live as long as the host.
// Start runs when the host becomes ready and Close when it is stopping.
type LifetimeHosted interface {
	Disposable

	Start()
}

// DisposalCaps records which disposal contracts a component declares.
type DisposalCaps uint8

const (
	// DisposeSync marks a component implementing Disposable.
	DisposeSync DisposalCaps = 1 << iota

	// DisposeAsync marks a component implementing AsyncDisposable.
	DisposeAsync
)

// Sync reports whether synchronous disposal is declared.
func (c DisposalCaps) Sync() bool { return c&DisposeSync != 0 }

// Async reports whether asynchronous disposal is declared.
func (c DisposalCaps) Async() bool { return c&DisposeAsync != 0 }

var (
	disposableType             = reflect.TypeFor[Disposable]()
	asyncDisposableType        = reflect.TypeFor[AsyncDisposable]()
	asyncSetupType             = reflect.TypeFor[AsyncSetup]()
	asyncSetupWithResolverType = reflect.TypeFor[AsyncSetupWithResolver]()
	lifetimeHostedType         = reflect.TypeFor[LifetimeHosted]()
)

// roleContract returns the capability contract a role stands for, or nil for
// lifetime roles which have none.
func roleContract(r Role) reflect.Type {
	switch r {
	case RoleAsyncSetup:
		return asyncSetupType
	case RoleAsyncSetupWithResolver:
		return asyncSetupWithResolverType
	case RoleLifetimeHosted:
		return lifetimeHostedType
	default:
		return nil
	}
}

// isMarkerContract reports whether t is one of the capability or disposal
// contracts. Such types never serve as the contract a component is bound to.
func isMarkerContract(t reflect.Type) bool {
	switch t {
	case disposableType, asyncDisposableType, asyncSetupType, asyncSetupWithResolverType, lifetimeHostedType:
		return true
	default:
		return false
	}
}

// detectDisposal inspects t for the disposal contracts it implements.
func detectDisposal(t reflect.Type) DisposalCaps {
	var caps DisposalCaps
	if t.Implements(disposableType) {
		caps |= DisposeSync
	}
	if t.Implements(asyncDisposableType) {
		caps |= DisposeAsync
	}
	return caps
}

// detectRoles inspects t for the capability contracts it implements.
func detectRoles(t reflect.Type) RoleSet {
	var s RoleSet
	if t.Implements(asyncSetupType) {
		s = s.With(RoleAsyncSetup)
	}
	if t.Implements(asyncSetupWithResolverType) {
		s = s.With(RoleAsyncSetupWithResolver)
	}
	if t.Implements(lifetimeHostedType) {
		s = s.With(RoleLifetimeHosted)
	}
	return s
}
