package guice

import (
	"encoding/json"
	"fmt"
)

// Lifetime specifies how long instances produced by a binding live and
// where they are cached.
type Lifetime int

const (
	// Singleton specifies one instance shared across the whole injector.
	// Singleton instances live in the underlying dig container and are
	// created lazily on first resolution.
	Singleton Lifetime = iota

	// SessionScoped specifies one instance per web session.
	SessionScoped

	// UIScoped specifies one instance per UI, the root object of a
	// browser tab. A session may own several UIs.
	UIScoped

	// ViewScoped specifies one instance per view, the navigation target
	// currently active inside a UI.
	ViewScoped

	// Transient specifies a new instance on every resolution.
	Transient
)

// String returns the string representation of the Lifetime.
func (l Lifetime) String() string {
	switch l {
	case Singleton:
		return "Singleton"
	case SessionScoped:
		return "SessionScoped"
	case UIScoped:
		return "UIScoped"
	case ViewScoped:
		return "ViewScoped"
	case Transient:
		return "Transient"
	default:
		return fmt.Sprintf("Unknown(%d)", int(l))
	}
}

// IsValid checks if the lifetime is one of the defined values.
func (l Lifetime) IsValid() bool {
	return l >= Singleton && l <= Transient
}

// MarshalText implements encoding.TextMarshaler.
func (l Lifetime) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Lifetime) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Singleton", "singleton":
		*l = Singleton
	case "SessionScoped", "sessionscoped":
		*l = SessionScoped
	case "UIScoped", "uiscoped":
		*l = UIScoped
	case "ViewScoped", "viewscoped":
		*l = ViewScoped
	case "Transient", "transient":
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
