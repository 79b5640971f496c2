package servreg

import (
	"log/slog"
	"reflect"
	"slices"
	"sync"
)

// Registries are the per-role contract lists the orchestrator consumes.
// Each list keeps registration order, which is the execution order.
type Registries struct {
	AsyncSetup             []reflect.Type
	AsyncSetupWithResolver []reflect.Type
	LifetimeHosted         []reflect.Type
	Disposables            []reflect.Type
	AsyncDisposables       []reflect.Type
}

func (r Registries) clone() Registries {
	return Registries{
		AsyncSetup:             slices.Clone(r.AsyncSetup),
		AsyncSetupWithResolver: slices.Clone(r.AsyncSetupWithResolver),
		LifetimeHosted:         slices.Clone(r.LifetimeHosted),
		Disposables:            slices.Clone(r.Disposables),
		AsyncDisposables:       slices.Clone(r.AsyncDisposables),
	}
}

// registrationOrder is the order RegisterAll processes roles in.
var registrationOrder = []Role{
	RoleAsyncSetupWithResolver,
	RoleLifetimeHosted,
	RoleAsyncSetup,
	RoleSingleton,
	RoleTransient,
	RoleScoped,
}

// Registrar binds discovered components into a Container and records the
// contracts each lifecycle phase needs. Each Registrar owns its registries;
// nothing is shared between instances.
//
// Registration happens before the orchestrator starts. Seal freezes the
// registries; later registrations fail with ErrRegistrarSealed.
type Registrar struct {
	container Container
	logger    *slog.Logger

	mu     sync.Mutex
	regs   Registries
	sealed bool
}

// RegistrarOption configures a Registrar.
type RegistrarOption func(*Registrar)

// WithRegistrarLogger sets the logger registrations are reported to.
func WithRegistrarLogger(logger *slog.Logger) RegistrarOption {
	return func(r *Registrar) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistrar creates a registrar writing into c.
func NewRegistrar(c Container, opts ...RegistrarOption) (*Registrar, error) {
	if c == nil {
		return nil, ErrContainerNil
	}

	r := &Registrar{
		container: c,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r, nil
}

// Register binds each definition, in order, for role at lifetime.
//
// For every definition the contract is inferred, the binding is added to the
// container unless the contract is already bound, and the contract is appended
// to the registries the role and lifetime call for. Definitions that do not
// declare role, or are abstract, are skipped.
func (r *Registrar) Register(role Role, lifetime Lifetime, defs []*Definition) error {
	if !role.IsValid() {
		return RoleError{Value: role}
	}
	if !lifetime.IsValid() {
		return LifetimeError{Value: lifetime}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return ErrRegistrarSealed
	}

	for _, def := range Discover(defs, role) {
		r.register(role, lifetime, def)
	}

	return nil
}

func (r *Registrar) register(role Role, lifetime Lifetime, def *Definition) {
	contract := def.contractFor(role)

	added := r.container.TryAdd(Binding{
		Contract:       contract,
		Implementation: def.Type,
		Lifetime:       lifetime,
		Factory:        def.Factory,
	})

	r.logger.Debug("registered component",
		"role", role,
		"contract", contract,
		"implementation", def.Type,
		"lifetime", lifetime,
		"added", added,
	)

	if lifetime == Singleton {
		switch role {
		case RoleAsyncSetup, RoleAsyncSetupWithResolver, RoleSingleton:
			if def.Disposal.Sync() {
				r.regs.Disposables = append(r.regs.Disposables, contract)
			}
			if def.Disposal.Async() {
				r.regs.AsyncDisposables = append(r.regs.AsyncDisposables, contract)
			}
		}
	}

	switch role {
	case RoleAsyncSetup:
		r.regs.AsyncSetup = append(r.regs.AsyncSetup, contract)
	case RoleAsyncSetupWithResolver:
		r.regs.AsyncSetupWithResolver = append(r.regs.AsyncSetupWithResolver, contract)
	case RoleLifetimeHosted:
		r.regs.LifetimeHosted = append(r.regs.LifetimeHosted, contract)
	}
}

// RegisterAll registers every role enabled in opts from catalog. Lifecycle
// roles are registered as singletons; lifetime roles at their own lifetime.
func (r *Registrar) RegisterAll(catalog *Catalog, opts RegistrationOptions) error {
	if catalog == nil {
		return nil
	}

	for _, role := range registrationOrder {
		if !opts.Enabled(role) {
			continue
		}

		lifetime, ok := role.Lifetime()
		if !ok {
			lifetime = Singleton
		}

		if err := r.Register(role, lifetime, catalog.Discover(role)); err != nil {
			return err
		}
	}

	return nil
}

// Explicit registers def for a setup role as a singleton regardless of the
// registration options. def must declare a contract compatible with role.
func (r *Registrar) Explicit(role Role, def *Definition) error {
	switch role {
	case RoleAsyncSetup, RoleAsyncSetupWithResolver:
	default:
		return RoleError{Value: role}
	}

	if def == nil || def.Factory == nil {
		return DefinitionError{Type: typeOf(def), Cause: ErrNilFactory}
	}
	if def.Abstract() {
		return DefinitionError{Type: def.Type, Cause: ErrAbstractDefinition}
	}

	if !def.Type.Implements(roleContract(role)) {
		return DefinitionError{Type: def.Type, Cause: RoleError{Value: role}}
	}

	explicit := *def
	explicit.Roles = def.Roles.With(role)
	return r.Register(role, Singleton, []*Definition{&explicit})
}

// Registries returns a copy of the registries recorded so far.
func (r *Registrar) Registries() Registries {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.regs.clone()
}

// Seal freezes the registrar and returns the final registries.
func (r *Registrar) Seal() Registries {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sealed = true
	return r.regs.clone()
}

// Sealed reports whether Seal was called.
func (r *Registrar) Sealed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.sealed
}

func typeOf(def *Definition) reflect.Type {
	if def == nil {
		return nil
	}
	return def.Type
}
