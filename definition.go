package servreg

import (
	"fmt"
	"reflect"
)

// Definition describes one candidate component: its concrete type, the roles
// it declares, its disposal capabilities, the contracts it may be bound to and
// the factory building it.
//
// Definitions are created with Define and are immutable afterwards.
type Definition struct {
	// Type is the concrete implementation type.
	Type reflect.Type

	// Contracts are the candidate contract types in declaration order.
	Contracts []reflect.Type

	// Roles are the roles the component declares.
	Roles RoleSet

	// Disposal records the disposal contracts the component declares.
	Disposal DisposalCaps

	// Factory builds instances of Type.
	Factory Factory
}

// DefineOption customizes a Definition.
type DefineOption interface {
	applyDefineOption(*defineOptions)
}

type defineOptions struct {
	as          []any
	roles       []Role
	disposal    DisposalCaps
	disposalSet bool
	noDetect    bool
}

type defineOptionFunc func(*defineOptions)

func (f defineOptionFunc) applyDefineOption(o *defineOptions) { f(o) }

// As declares the interfaces the component may be bound to, in order of
// preference. Each argument must be a pointer to an interface.
//
//	servreg.Define(NewRedisCache, servreg.As(new(Cache)), servreg.AsSingleton())
func As(ifaces ...any) DefineOption {
	return defineOptionFunc(func(o *defineOptions) {
		o.as = append(o.as, ifaces...)
	})
}

// WithRoles adds roles to the definition in addition to the detected ones.
func WithRoles(roles ...Role) DefineOption {
	return defineOptionFunc(func(o *defineOptions) {
		o.roles = append(o.roles, roles...)
	})
}

// AsSingleton declares the Singleton lifetime role.
func AsSingleton() DefineOption { return WithRoles(RoleSingleton) }

// AsTransient declares the Transient lifetime role.
func AsTransient() DefineOption { return WithRoles(RoleTransient) }

// AsScoped declares the Scoped lifetime role.
func AsScoped() DefineOption { return WithRoles(RoleScoped) }

// WithDisposal overrides the detected disposal capabilities.
func WithDisposal(caps DisposalCaps) DefineOption {
	return defineOptionFunc(func(o *defineOptions) {
		o.disposal = caps
		o.disposalSet = true
	})
}

// WithoutDetection turns off structural detection of capability roles.
// Only roles given through WithRoles are declared.
func WithoutDetection() DefineOption {
	return defineOptionFunc(func(o *defineOptions) {
		o.noDetect = true
	})
}

// Define describes a component produced by factory.
//
// Capability roles (AsyncSetup, AsyncSetupWithResolver, LifetimeHosted) and
// disposal capabilities are detected from the interfaces T implements.
// Lifetime roles must be declared explicitly.
//
// Example:
//
//	def, err := servreg.Define(func(r servreg.Resolver) (*Migrator, error) {
//	    db, err := servreg.Resolve[*sql.DB](r)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return &Migrator{db: db}, nil
//	})
func Define[T any](factory func(Resolver) (T, error), opts ...DefineOption) (*Definition, error) {
	t := reflect.TypeFor[T]()

	if factory == nil {
		return nil, DefinitionError{Type: t, Cause: ErrNilFactory}
	}

	options := &defineOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt.applyDefineOption(options)
		}
	}

	def := &Definition{
		Type: t,
		Factory: func(r Resolver) (any, error) {
			return factory(r)
		},
	}

	if !options.noDetect {
		def.Roles = detectRoles(t)
	}
	for _, r := range options.roles {
		if !r.IsValid() {
			return nil, DefinitionError{Type: t, Cause: RoleError{Value: r}}
		}
		def.Roles = def.Roles.With(r)
	}

	if options.disposalSet {
		def.Disposal = options.disposal
	} else {
		def.Disposal = detectDisposal(t)
	}

	for _, iface := range options.as {
		contract, err := contractFromPointer(iface)
		if err != nil {
			return nil, DefinitionError{Type: t, Cause: err}
		}
		if t.Kind() != reflect.Interface && !t.Implements(contract) {
			return nil, DefinitionError{
				Type:  t,
				Cause: fmt.Errorf("%s does not implement %s", t, contract),
			}
		}
		def.Contracts = append(def.Contracts, contract)
	}

	if lifetimes := def.Roles.lifetimeRoles(); len(lifetimes) > 1 {
		return nil, DefinitionError{
			Type:  t,
			Cause: fmt.Errorf("%w: %v", ErrMultipleLifetimes, lifetimes),
		}
	}

	return def, nil
}

// MustDefine is like Define but panics on error.
func MustDefine[T any](factory func(Resolver) (T, error), opts ...DefineOption) *Definition {
	def, err := Define(factory, opts...)
	if err != nil {
		panic(err)
	}
	return def
}

// Abstract reports whether the definition cannot produce instances: its type
// is an interface or it has no factory. Abstract definitions never reach
// registration.
func (d *Definition) Abstract() bool {
	return d == nil || d.Type == nil || d.Type.Kind() == reflect.Interface || d.Factory == nil
}

// Lifetime returns the lifetime role the definition declares, if any.
func (d *Definition) Lifetime() (Lifetime, bool) {
	roles := d.Roles.lifetimeRoles()
	if len(roles) == 0 {
		return 0, false
	}
	return roles[0].Lifetime()
}

// contractFor returns the contract the component is bound to when registered
// under role: the first declared contract that is neither the role's own
// contract nor a capability or disposal contract, falling back to the
// component's own type.
func (d *Definition) contractFor(role Role) reflect.Type {
	own := roleContract(role)
	for _, c := range d.Contracts {
		if c == own || isMarkerContract(c) {
			continue
		}
		return c
	}
	return d.Type
}

func (d *Definition) String() string {
	return fmt.Sprintf("%s %s", formatType(d.Type), d.Roles)
}

func contractFromPointer(iface any) (reflect.Type, error) {
	t := reflect.TypeOf(iface)
	if t == nil {
		return nil, fmt.Errorf("invalid servreg.As(nil): argument must be a pointer to an interface")
	}
	if t.Kind() != reflect.Pointer {
		return nil, fmt.Errorf("invalid servreg.As(%v): argument must be a pointer to an interface", t)
	}
	if t.Elem().Kind() != reflect.Interface {
		return nil, fmt.Errorf("invalid servreg.As(*%v): argument must be a pointer to an interface", t.Elem())
	}
	return t.Elem(), nil
}
