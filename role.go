package servreg

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role is a capability a component declares. Roles carry no state; they are
// the keys Discovery and Registration group components by.
type Role int

const (
	// RoleAsyncSetup marks a component whose Setup runs when the host starts.
	RoleAsyncSetup Role = iota

	// RoleAsyncSetupWithResolver marks a component whose Setup runs when the
	// host starts and receives a resolver bound to a fresh scope.
	RoleAsyncSetupWithResolver

	// RoleLifetimeHosted marks a component started and closed together with
	// the host itself.
	RoleLifetimeHosted

	// RoleSingleton marks a component registered with Singleton lifetime.
	RoleSingleton

	// RoleTransient marks a component registered with Transient lifetime.
	RoleTransient

	// RoleScoped marks a component registered with Scoped lifetime.
	RoleScoped

	roleCount
)

var roleNames = [...]string{
	RoleAsyncSetup:             "AsyncSetup",
	RoleAsyncSetupWithResolver: "AsyncSetupWithResolver",
	RoleLifetimeHosted:         "LifetimeHosted",
	RoleSingleton:              "Singleton",
	RoleTransient:              "Transient",
	RoleScoped:                 "Scoped",
}

// String returns the string representation of the Role.
func (r Role) String() string {
	if !r.IsValid() {
		return fmt.Sprintf("Unknown(%d)", int(r))
	}
	return roleNames[r]
}

// IsValid checks if the role is one of the known values.
func (r Role) IsValid() bool {
	return r >= RoleAsyncSetup && r < roleCount
}

// IsLifetime reports whether the role selects a lifetime scope
// (Singleton, Transient or Scoped) rather than a lifecycle capability.
func (r Role) IsLifetime() bool {
	_, ok := r.Lifetime()
	return ok
}

// Lifetime returns the lifetime a lifetime role maps to.
func (r Role) Lifetime() (Lifetime, bool) {
	switch r {
	case RoleSingleton:
		return Singleton, true
	case RoleTransient:
		return Transient, true
	case RoleScoped:
		return Scoped, true
	default:
		return 0, false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	for i, name := range roleNames {
		if strings.EqualFold(name, string(text)) {
			*r = Role(i)
			return nil
		}
	}
	return RoleError{Value: string(text)}
}

// MarshalJSON implements json.Marshaler.
func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	return r.UnmarshalText([]byte(s))
}

// RoleSet is the set of roles a component declares.
type RoleSet uint8

// NewRoleSet returns a set holding the given roles. Invalid roles are ignored.
func NewRoleSet(roles ...Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		s = s.With(r)
	}
	return s
}

// Has reports whether r is in the set.
func (s RoleSet) Has(r Role) bool {
	return r.IsValid() && s&(1<<uint(r)) != 0
}

// With returns a copy of the set with r added.
func (s RoleSet) With(r Role) RoleSet {
	if !r.IsValid() {
		return s
	}
	return s | 1<<uint(r)
}

// Roles returns the members of the set in declaration order.
func (s RoleSet) Roles() []Role {
	var roles []Role
	for r := RoleAsyncSetup; r < roleCount; r++ {
		if s.Has(r) {
			roles = append(roles, r)
		}
	}
	return roles
}

// lifetimeRoles returns the lifetime roles in the set.
func (s RoleSet) lifetimeRoles() []Role {
	var roles []Role
	for _, r := range s.Roles() {
		if r.IsLifetime() {
			roles = append(roles, r)
		}
	}
	return roles
}

func (s RoleSet) String() string {
	roles := s.Roles()
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.String()
	}
	return "[" + strings.Join(names, " ") + "]"
}
