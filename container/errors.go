package container

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrContainerDisposed = errors.New("container has been disposed")
	ErrScopeDisposed     = errors.New("scope has been disposed")
	ErrScopedFromRoot    = errors.New("scoped service cannot be resolved from the root container")
	ErrNilInstance       = errors.New("factory returned a nil instance")
	ErrInvalidBinding    = errors.New("binding needs a contract and a factory")
)

var (
	_ error = ResolutionError{}
	_ error = ScopeError{}
	_ error = CycleError{}
)

// ResolutionError wraps a failure to resolve a contract.
type ResolutionError struct {
	Type  reflect.Type
	Cause error
}

func (e ResolutionError) Error() string {
	return fmt.Sprintf("unable to resolve %s: %v", typeName(e.Type), e.Cause)
}

func (e ResolutionError) Unwrap() error {
	return e.Cause
}

// ScopeError reports a resolution the scope cannot serve.
type ScopeError struct {
	ScopeID string
	Type    reflect.Type
	Cause   error
}

func (e ScopeError) Error() string {
	if e.ScopeID == "" {
		return fmt.Sprintf("root scope: %s: %v", typeName(e.Type), e.Cause)
	}
	return fmt.Sprintf("scope %s: %s: %v", e.ScopeID, typeName(e.Type), e.Cause)
}

func (e ScopeError) Unwrap() error {
	return e.Cause
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// CycleError reports a contract whose factory resolved itself, directly or
// through its dependencies.
type CycleError struct {
	Type reflect.Type
}

func (e CycleError) Error() string {
	return fmt.Sprintf("circular dependency on %s", typeName(e.Type))
}
