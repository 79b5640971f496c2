package servreg

import (
	"errors"
	"fmt"
	"reflect"
)

// ========================================
// Core Error Values (Sentinel Errors)
// ========================================
// These are base errors that are wrapped in typed errors when returned.

var (
	// Resolution errors.
	ErrServiceNotFound = errors.New("service not found")
	ErrResolverNil     = errors.New("resolver cannot be nil")
	ErrContainerNil    = errors.New("container cannot be nil")

	// Definition errors.
	ErrNilFactory         = errors.New("factory cannot be nil")
	ErrAbstractDefinition = errors.New("definition type is an interface and cannot be instantiated")
	ErrMultipleLifetimes  = errors.New("component declares more than one lifetime role")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidLifetime    = errors.New("invalid lifetime")

	// Lifecycle errors.
	ErrRegistrarSealed  = errors.New("registrar has been sealed")
	ErrSetupPanicked    = errors.New("setup panicked")
	ErrDisposalPanicked = errors.New("disposal panicked")

	// Options errors.
	ErrConflictingSetupOrder = errors.New("resolver-aware-first and plain-first setup orders are mutually exclusive")
	ErrConfigureNil          = errors.New("configure function cannot be nil")
)

var (
	_ error = LifetimeError{}
	_ error = RoleError{}
	_ error = DefinitionError{}
	_ error = ConfigurationError{}
	_ error = SetupError{}
	_ error = DisposalError{}
	_ error = TypeMismatchError{}
	_ error = OptionsError{}
)

// ========================================
// Typed Errors for Rich Context
// ========================================

// LifetimeError indicates an invalid lifetime value.
type LifetimeError struct {
	Value any
}

func (e LifetimeError) Error() string {
	return fmt.Sprintf("invalid service lifetime: %v", e.Value)
}

func (e LifetimeError) Unwrap() error {
	return ErrInvalidLifetime
}

// RoleError indicates an invalid role value.
type RoleError struct {
	Value any
}

func (e RoleError) Error() string {
	return fmt.Sprintf("invalid role: %v", e.Value)
}

func (e RoleError) Unwrap() error {
	return ErrInvalidRole
}

// DefinitionError indicates a component definition that cannot be registered.
type DefinitionError struct {
	Type  reflect.Type
	Cause error
}

func (e DefinitionError) Error() string {
	return fmt.Sprintf("invalid definition for %s: %v", formatType(e.Type), e.Cause)
}

func (e DefinitionError) Unwrap() error {
	return e.Cause
}

// ConfigurationError indicates a registration that is missing or unusable at
// startup. It is fatal: the host is expected to fail to start.
type ConfigurationError struct {
	Contract reflect.Type
	Role     Role
	Cause    error
}

func (e ConfigurationError) Error() string {
	if e.Cause == nil || errors.Is(e.Cause, ErrServiceNotFound) {
		return fmt.Sprintf("%s is not registered in the container (role %s)", formatType(e.Contract), e.Role)
	}
	return fmt.Sprintf("%s (role %s) is misconfigured: %v", formatType(e.Contract), e.Role, e.Cause)
}

func (e ConfigurationError) Unwrap() error {
	return e.Cause
}

// SetupError wraps a failure raised by a component's Setup.
type SetupError struct {
	Contract reflect.Type
	Role     Role
	Cause    error
}

func (e SetupError) Error() string {
	return fmt.Sprintf("setup of %s (role %s) failed: %v", formatType(e.Contract), e.Role, e.Cause)
}

func (e SetupError) Unwrap() error {
	return e.Cause
}

// DisposalError wraps a failure raised while disposing a component.
// The orchestrator logs these and never returns them.
type DisposalError struct {
	Contract reflect.Type
	Async    bool
	Cause    error
}

func (e DisposalError) Error() string {
	kind := "sync"
	if e.Async {
		kind = "async"
	}
	return fmt.Sprintf("%s disposal of %s failed: %v", kind, formatType(e.Contract), e.Cause)
}

func (e DisposalError) Unwrap() error {
	return e.Cause
}

// TypeMismatchError indicates a resolved instance of an unexpected type.
type TypeMismatchError struct {
	Expected reflect.Type
	Actual   reflect.Type
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: expected %s, got %s", formatType(e.Expected), formatType(e.Actual))
}

// OptionsError indicates invalid lifecycle options.
type OptionsError struct {
	Section string
	Cause   error
}

func (e OptionsError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Section, e.Cause)
}

func (e OptionsError) Unwrap() error {
	return e.Cause
}

// formatType renders a type for error messages.
func formatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
