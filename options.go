package servreg

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Section names the options are bound from in configuration files.
const (
	RegistrationOptionsSection = "ServiceRegistrationOptions"
	SetupOptionsSection        = "AsyncSetupServicesOptions"
)

var validate = validator.New()

// RegistrationOptions selects which roles registration processes.
// Every toggle defaults to false; RegisterAll enables them all.
type RegistrationOptions struct {
	RegisterAsyncSetupWithResolverServices bool `mapstructure:"registerAsyncSetupWithResolverServices" yaml:"registerAsyncSetupWithResolverServices" json:"registerAsyncSetupWithResolverServices"`
	RegisterLifetimeHostedServices         bool `mapstructure:"registerLifetimeHostedServices" yaml:"registerLifetimeHostedServices" json:"registerLifetimeHostedServices"`
	RegisterAsyncSetupServices             bool `mapstructure:"registerAsyncSetupServices" yaml:"registerAsyncSetupServices" json:"registerAsyncSetupServices"`
	RegisterSingletonServices              bool `mapstructure:"registerSingletonServices" yaml:"registerSingletonServices" json:"registerSingletonServices"`
	RegisterTransientServices              bool `mapstructure:"registerTransientServices" yaml:"registerTransientServices" json:"registerTransientServices"`
	RegisterScopedServices                 bool `mapstructure:"registerScopedServices" yaml:"registerScopedServices" json:"registerScopedServices"`
}

// RegisterAll enables every role.
func (o *RegistrationOptions) RegisterAll() {
	o.RegisterAsyncSetupWithResolverServices = true
	o.RegisterLifetimeHostedServices = true
	o.RegisterAsyncSetupServices = true
	o.RegisterSingletonServices = true
	o.RegisterTransientServices = true
	o.RegisterScopedServices = true
}

// Enabled reports whether registration processes role.
func (o RegistrationOptions) Enabled(role Role) bool {
	switch role {
	case RoleAsyncSetupWithResolver:
		return o.RegisterAsyncSetupWithResolverServices
	case RoleLifetimeHosted:
		return o.RegisterLifetimeHostedServices
	case RoleAsyncSetup:
		return o.RegisterAsyncSetupServices
	case RoleSingleton:
		return o.RegisterSingletonServices
	case RoleTransient:
		return o.RegisterTransientServices
	case RoleScoped:
		return o.RegisterScopedServices
	default:
		return false
	}
}

// SetupOrder decides how the two setup procedures are combined on startup.
type SetupOrder int

const (
	// OrderConcurrent runs both procedures concurrently and waits for both.
	OrderConcurrent SetupOrder = iota

	// OrderResolverFirst runs resolver-aware setups to completion, then plain setups.
	OrderResolverFirst

	// OrderPlainFirst runs plain setups to completion, then resolver-aware setups.
	OrderPlainFirst
)

func (o SetupOrder) String() string {
	switch o {
	case OrderConcurrent:
		return "Concurrent"
	case OrderResolverFirst:
		return "ResolverFirst"
	case OrderPlainFirst:
		return "PlainFirst"
	default:
		return fmt.Sprintf("Unknown(%d)", int(o))
	}
}

// SetupOptions control the startup phase.
type SetupOptions struct {
	// ExecuteResolverAwareSetupsFirst runs AsyncSetupWithResolver components
	// before AsyncSetup components.
	ExecuteResolverAwareSetupsFirst bool `mapstructure:"executeResolverAwareSetupsFirst" yaml:"executeResolverAwareSetupsFirst" json:"executeResolverAwareSetupsFirst" validate:"excluded_with=ExecutePlainSetupsFirst"`

	// ExecutePlainSetupsFirst runs AsyncSetup components before
	// AsyncSetupWithResolver components.
	ExecutePlainSetupsFirst bool `mapstructure:"executePlainSetupsFirst" yaml:"executePlainSetupsFirst" json:"executePlainSetupsFirst" validate:"excluded_with=ExecuteResolverAwareSetupsFirst"`

	// FireAndForgetSetups dispatches each Setup without waiting for it.
	// Setup failures are then never reported to the caller of Start.
	FireAndForgetSetups bool `mapstructure:"fireAndForgetSetups" yaml:"fireAndForgetSetups" json:"fireAndForgetSetups"`

	// TriggersSetupOnStartup enables the startup phase. Default: true.
	TriggersSetupOnStartup bool `mapstructure:"triggersSetupOnStartup" yaml:"triggersSetupOnStartup" json:"triggersSetupOnStartup"`
}

// DefaultSetupOptions returns the default startup options: setups enabled,
// awaited, both procedures run concurrently.
func DefaultSetupOptions() SetupOptions {
	return SetupOptions{TriggersSetupOnStartup: true}
}

// Order returns the configured procedure order.
func (o SetupOptions) Order() SetupOrder {
	switch {
	case o.ExecuteResolverAwareSetupsFirst:
		return OrderResolverFirst
	case o.ExecutePlainSetupsFirst:
		return OrderPlainFirst
	default:
		return OrderConcurrent
	}
}

// Validate checks that at most one explicit order is selected.
func (o SetupOptions) Validate() error {
	if err := validate.Struct(o); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			return OptionsError{
				Section: SetupOptionsSection,
				Cause:   fmt.Errorf("%w (%s)", ErrConflictingSetupOrder, strings.Join(fields, ", ")),
			}
		}
		return OptionsError{Section: SetupOptionsSection, Cause: err}
	}
	return nil
}
