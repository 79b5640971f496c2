package servreg

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Lifetime specifies how long an instance registered into a Container lives.
// The lifetime decides when the container creates instances and how it caches them.
type Lifetime int

const (
	// Singleton specifies that a single instance is created on first request
	// and cached for the lifetime of the root container.
	Singleton Lifetime = iota

	// Scoped specifies that one instance is created per scope.
	// Scoped instances are disposed when their scope is closed.
	Scoped

	// Transient specifies that a new instance is created on every request.
	Transient
)

// String returns the string representation of the Lifetime.
func (l Lifetime) String() string {
	switch l {
	case Singleton:
		return "Singleton"
	case Scoped:
		return "Scoped"
	case Transient:
		return "Transient"
	default:
		return fmt.Sprintf("Unknown(%d)", int(l))
	}
}

// IsValid checks if the lifetime is one of the known values.
func (l Lifetime) IsValid() bool {
	return l >= Singleton && l <= Transient
}

// MarshalText implements encoding.TextMarshaler.
func (l Lifetime) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Lifetime) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "singleton":
		*l = Singleton
	case "scoped":
		*l = Scoped
	case "transient":
		*l = Transient
	default:
		return LifetimeError{Value: string(text)}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (l Lifetime) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Lifetime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	return l.UnmarshalText([]byte(s))
}
