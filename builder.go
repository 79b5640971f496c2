package servreg

// SectionBinder binds a named configuration section into a plain options
// struct. The config package provides an implementation backed by viper.
type SectionBinder interface {
	BindSection(name string, out any) error
}

type explicitSetup struct {
	role Role
	def  *Definition
}

// Builder collects the component catalog and the lifecycle options, then
// registers everything and creates the Orchestrator.
//
// Builder methods return the builder for chaining. The first error met while
// configuring is kept and returned by Build.
type Builder struct {
	catalog      *Catalog
	registration RegistrationOptions
	setup        SetupOptions
	explicit     []explicitSetup

	orchestratorOptions []Option
	registrarOptions    []RegistrarOption

	err error
}

// NewBuilder returns a builder with an empty catalog, every role disabled and
// the default setup options.
func NewBuilder() *Builder {
	return &Builder{
		catalog: NewCatalog(),
		setup:   DefaultSetupOptions(),
	}
}

// UseDefinitions adds component definitions to the catalog.
func (b *Builder) UseDefinitions(defs ...*Definition) *Builder {
	b.catalog.Add(defs...)
	return b
}

// UseCatalog adds the definitions of c to the catalog.
func (b *Builder) UseCatalog(c *Catalog) *Builder {
	if c != nil {
		b.catalog.Add(c.Definitions()...)
	}
	return b
}

// RegisterAllServices enables registration of every role.
func (b *Builder) RegisterAllServices() *Builder {
	b.registration.RegisterAll()
	return b
}

// ConfigureRegistrationOptions edits the registration options in place.
func (b *Builder) ConfigureRegistrationOptions(configure func(*RegistrationOptions)) *Builder {
	if configure != nil {
		configure(&b.registration)
	}
	return b
}

// ConfigureRegistrationOptionsFrom replaces the registration options with the
// RegistrationOptionsSection of src.
func (b *Builder) ConfigureRegistrationOptionsFrom(src SectionBinder) *Builder {
	var opts RegistrationOptions
	if err := src.BindSection(RegistrationOptionsSection, &opts); err != nil {
		b.fail(OptionsError{Section: RegistrationOptionsSection, Cause: err})
		return b
	}
	b.registration = opts
	return b
}

// ConfigureSetupOptions edits the setup options in place.
func (b *Builder) ConfigureSetupOptions(configure func(*SetupOptions)) *Builder {
	if configure != nil {
		configure(&b.setup)
	}
	return b
}

// ConfigureSetupOptionsFrom replaces the setup options with the
// SetupOptionsSection of src, starting from DefaultSetupOptions.
func (b *Builder) ConfigureSetupOptionsFrom(src SectionBinder) *Builder {
	opts := DefaultSetupOptions()
	if err := src.BindSection(SetupOptionsSection, &opts); err != nil {
		b.fail(OptionsError{Section: SetupOptionsSection, Cause: err})
		return b
	}
	b.setup = opts
	return b
}

// ExecuteResolverAwareSetupsFirst runs resolver-aware setups before plain ones.
func (b *Builder) ExecuteResolverAwareSetupsFirst() *Builder {
	b.setup.ExecuteResolverAwareSetupsFirst = true
	b.setup.ExecutePlainSetupsFirst = false
	return b
}

// ExecutePlainSetupsFirst runs plain setups before resolver-aware ones.
func (b *Builder) ExecutePlainSetupsFirst() *Builder {
	b.setup.ExecuteResolverAwareSetupsFirst = false
	b.setup.ExecutePlainSetupsFirst = true
	return b
}

// FireAndForgetSetups dispatches setups without waiting for them.
func (b *Builder) FireAndForgetSetups() *Builder {
	b.setup.FireAndForgetSetups = true
	return b
}

// AwaitSetups waits for each setup before starting the next one.
func (b *Builder) AwaitSetups() *Builder {
	b.setup.FireAndForgetSetups = false
	return b
}

// DisableSetupOnStartup turns the startup phase off.
func (b *Builder) DisableSetupOnStartup() *Builder {
	b.setup.TriggersSetupOnStartup = false
	return b
}

// ConfigureAsyncSetup registers def as an AsyncSetup singleton whatever the
// registration options say.
func (b *Builder) ConfigureAsyncSetup(def *Definition) *Builder {
	b.explicit = append(b.explicit, explicitSetup{role: RoleAsyncSetup, def: def})
	return b
}

// ConfigureAsyncSetupWithResolver registers def as an AsyncSetupWithResolver
// singleton whatever the registration options say.
func (b *Builder) ConfigureAsyncSetupWithResolver(def *Definition) *Builder {
	b.explicit = append(b.explicit, explicitSetup{role: RoleAsyncSetupWithResolver, def: def})
	return b
}

// WithOrchestratorOptions adds options passed to the Orchestrator.
func (b *Builder) WithOrchestratorOptions(opts ...Option) *Builder {
	b.orchestratorOptions = append(b.orchestratorOptions, opts...)
	return b
}

// WithRegistrarOptions adds options passed to the Registrar.
func (b *Builder) WithRegistrarOptions(opts ...RegistrarOption) *Builder {
	b.registrarOptions = append(b.registrarOptions, opts...)
	return b
}

// RegistrationOptions returns the registration options configured so far.
func (b *Builder) RegistrationOptions() RegistrationOptions {
	return b.registration
}

// SetupOptions returns the setup options configured so far.
func (b *Builder) SetupOptions() SetupOptions {
	return b.setup
}

// Build registers the catalog and the explicit setups into c, seals the
// registries and creates the orchestrator. host may be nil.
func (b *Builder) Build(c Container, host Host) (*Orchestrator, error) {
	if b.err != nil {
		return nil, b.err
	}

	if err := b.setup.Validate(); err != nil {
		return nil, err
	}

	r, err := NewRegistrar(c, b.registrarOptions...)
	if err != nil {
		return nil, err
	}

	if err := r.RegisterAll(b.catalog, b.registration); err != nil {
		return nil, err
	}

	for _, e := range b.explicit {
		if err := r.Explicit(e.role, e.def); err != nil {
			return nil, err
		}
	}

	return NewOrchestrator(c, host, r.Seal(), b.setup, b.orchestratorOptions...)
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Configure runs configure on a new Builder and builds the orchestrator.
//
// Example:
//
//	orch, err := servreg.Configure(c, lifetime, func(b *servreg.Builder) {
//	    b.UseDefinitions(defs...).
//	        RegisterAllServices().
//	        ExecuteResolverAwareSetupsFirst()
//	})
func Configure(c Container, host Host, configure func(*Builder)) (*Orchestrator, error) {
	if configure == nil {
		return nil, ErrConfigureNil
	}

	b := NewBuilder()
	configure(b)
	return b.Build(c, host)
}

// AddAllServicesFrom registers every role of defs into c and creates an
// orchestrator with the default setup options. triggersSetup controls
// whether Start runs the setup routines.
func AddAllServicesFrom(c Container, host Host, triggersSetup bool, defs ...*Definition) (*Orchestrator, error) {
	return Configure(c, host, func(b *Builder) {
		b.UseDefinitions(defs...).RegisterAllServices()
		if !triggersSetup {
			b.DisableSetupOnStartup()
		}
	})
}
