package guice

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Sentinel errors. These are wrapped in typed errors when more context is
// available; match them with errors.Is.
var (
	// Resolution errors.
	ErrBindingNotFound = errors.New("no binding found")
	ErrNoActiveSession = errors.New("no active session")

	// Lifecycle errors.
	ErrInjectorClosed   = errors.New("injector has been closed")
	ErrSessionDestroyed = errors.New("session has been destroyed")
	ErrSessionsClosed   = errors.New("session manager has been closed")

	// Scope precondition violations. These indicate a programming error in
	// lifecycle sequencing and are raised via panic.
	ErrCurrentInstancePresent = errors.New("current instance must not be set")

	// Navigation errors.
	ErrNavigationVetoed = errors.New("navigation vetoed by listener")

	// Registration errors.
	ErrConstructorNil    = errors.New("constructor cannot be nil")
	ErrUIPathEmpty       = errors.New("UI path cannot be empty")
	ErrViewNameEmpty     = errors.New("view name cannot be empty")
	ErrDuplicateUIPath   = errors.New("UI path already registered")
	ErrDuplicateViewName = errors.New("view name already registered")
	ErrOverrideNesting   = errors.New("override modules cannot be nested")
	ErrCollectionBuilt   = errors.New("collection has already been built")
)

var (
	_ error = LifetimeError{}
	_ error = LifetimeConflictError{}
	_ error = ModuleError{}
	_ error = BindingConflictError{}
	_ error = MissingBindingError{}
	_ error = CircularDependencyError{}
	_ error = ResolutionError{}
	_ error = ConstructorPanicError{}
	_ error = DuplicateErrorViewError{}
	_ error = ViewNotFoundError{}
	_ error = UINotRegisteredError{}
	_ error = ScopeStateError{}
)

// LifetimeError indicates an invalid lifetime value.
type LifetimeError struct {
	Value any
}

func (e LifetimeError) Error() string {
	return fmt.Sprintf("invalid lifetime: %v", e.Value)
}

// LifetimeConflictError indicates a binding depends on another binding with
// a narrower lifetime. A singleton, for example, cannot depend on a
// session-scoped binding: it would capture a single session's instance.
type LifetimeConflictError struct {
	Key                Key
	Lifetime           Lifetime
	DependencyKey      Key
	DependencyLifetime Lifetime
}

func (e LifetimeConflictError) Error() string {
	return fmt.Sprintf("lifetime conflict: %s (%s) cannot depend on %s (%s)",
		e.Key, e.Lifetime, e.DependencyKey, e.DependencyLifetime)
}

// ModuleError wraps errors from module application.
type ModuleError struct {
	Module string
	Cause  error
}

func (e ModuleError) Error() string {
	return fmt.Sprintf("module %q: %v", e.Module, e.Cause)
}

func (e ModuleError) Unwrap() error {
	return e.Cause
}

// BindingConflictError indicates two modules of the same tier (both base or
// both override) bound the same key. Conflicts across tiers are resolved by
// letting the override binding win.
type BindingConflictError struct {
	Key     Key
	Modules [2]string
}

func (e BindingConflictError) Error() string {
	return fmt.Sprintf("duplicate binding for %s: bound by modules %q and %q",
		e.Key, e.Modules[0], e.Modules[1])
}

// MissingBindingError indicates a constructor parameter has no binding.
type MissingBindingError struct {
	Key        Key
	RequiredBy Key
}

func (e MissingBindingError) Error() string {
	return fmt.Sprintf("no binding for %s, required by %s", e.Key, e.RequiredBy)
}

func (e MissingBindingError) Unwrap() error {
	return ErrBindingNotFound
}

// CircularDependencyError indicates the binding graph contains a cycle.
type CircularDependencyError struct {
	Path []Key
}

func (e CircularDependencyError) Error() string {
	parts := make([]string, len(e.Path))
	for i, k := range e.Path {
		parts[i] = k.String()
	}
	return "circular dependency: " + strings.Join(parts, " -> ")
}

// ResolutionError wraps errors that occur while resolving a binding.
type ResolutionError struct {
	Key   Key
	Cause error
}

func (e ResolutionError) Error() string {
	return fmt.Sprintf("resolving %s: %v", e.Key, e.Cause)
}

func (e ResolutionError) Unwrap() error {
	return e.Cause
}

// ConstructorPanicError indicates a constructor panicked during invocation.
// It captures the panic value and stack trace for debugging.
type ConstructorPanicError struct {
	Constructor reflect.Type
	Panic       any
	Stack       []byte
}

func (e ConstructorPanicError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "constructor %s panicked: %v", formatType(e.Constructor), e.Panic)
	if len(e.Stack) > 0 {
		b.WriteString("\n")
		b.Write(e.Stack)
	}
	return b.String()
}

// DuplicateErrorViewError indicates more than one view was registered as
// the error view.
type DuplicateErrorViewError struct {
	First  string
	Second string
}

func (e DuplicateErrorViewError) Error() string {
	return fmt.Sprintf("views %q and %q are both registered as error view", e.First, e.Second)
}

// ViewNotFoundError indicates navigation to an unknown view name with no
// error view registered to fall back to.
type ViewNotFoundError struct {
	Name string
}

func (e ViewNotFoundError) Error() string {
	return fmt.Sprintf("no view registered under name %q", e.Name)
}

// UINotRegisteredError indicates a request for a UI path that has no
// registration.
type UINotRegisteredError struct {
	Path string
}

func (e UINotRegisteredError) Error() string {
	return fmt.Sprintf("no UI registered for path %q", e.Path)
}

// ScopeStateError indicates a scope lifecycle precondition was violated.
// It is raised via panic: the caller sequenced endInit or rollback against
// an already-established current instance.
type ScopeStateError struct {
	Operation string
}

func (e ScopeStateError) Error() string {
	return fmt.Sprintf("scope %s: %v", e.Operation, ErrCurrentInstancePresent)
}

func (e ScopeStateError) Unwrap() error {
	return ErrCurrentInstancePresent
}

// formatType formats a reflect.Type for error messages.
func formatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind() {
	case reflect.Pointer:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "*" + elem.Name()
		}
		return t.String()
	case reflect.Interface, reflect.Struct:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	default:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	}
}
