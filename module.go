package guice

import (
	"fmt"
	"reflect"
	"strings"
)

// ModuleOption represents a registration action within a module.
type ModuleOption func(Collection) error

// NewModule creates a new module with the given name and builders.
// Modules group related bindings together and may nest other modules.
//
// Example:
//
//	var ReportingModule = guice.NewModule("reporting",
//	    guice.BindSingleton(NewReportStore),
//	    guice.BindSessionScoped(NewReportFilter),
//	    guice.BindUIScoped(NewReportPresenter),
//	)
func NewModule(name string, builders ...ModuleOption) ModuleOption {
	return func(c Collection) error {
		cc, ok := c.(*collection)
		if ok {
			cc.pushModule(name)
			defer cc.popModule()
		}

		for _, builder := range builders {
			if builder == nil {
				continue
			}

			if err := builder(c); err != nil {
				return ModuleError{Module: name, Cause: err}
			}
		}

		return nil
	}
}

// Override marks the bindings recorded by the given modules as override
// bindings: where an override binding and a base binding share a key, the
// override binding wins when the injector is built. Two override bindings
// for the same key still conflict.
//
// Example:
//
//	c.AddModules(
//	    ProductionModule,
//	    guice.Override(guice.NewModule("test-doubles",
//	        guice.BindSingleton(NewFakeMailer),
//	    )),
//	)
func Override(builders ...ModuleOption) ModuleOption {
	return func(c Collection) error {
		cc, ok := c.(*collection)
		if !ok {
			return fmt.Errorf("override modules require a collection created by NewCollection")
		}

		if cc.overriding {
			return ErrOverrideNesting
		}

		cc.overriding = true
		defer func() { cc.overriding = false }()

		for _, builder := range builders {
			if builder == nil {
				continue
			}

			if err := builder(c); err != nil {
				return err
			}
		}

		return nil
	}
}

// BindSingleton creates a ModuleOption that binds a constructor with
// Singleton lifetime.
func BindSingleton(constructor any, opts ...BindOption) ModuleOption {
	return func(c Collection) error {
		return c.BindSingleton(constructor, opts...)
	}
}

// BindSessionScoped creates a ModuleOption that binds a constructor with
// SessionScoped lifetime.
func BindSessionScoped(constructor any, opts ...BindOption) ModuleOption {
	return func(c Collection) error {
		return c.BindSessionScoped(constructor, opts...)
	}
}

// BindUIScoped creates a ModuleOption that binds a constructor with
// UIScoped lifetime.
func BindUIScoped(constructor any, opts ...BindOption) ModuleOption {
	return func(c Collection) error {
		return c.BindUIScoped(constructor, opts...)
	}
}

// BindViewScoped creates a ModuleOption that binds a constructor with
// ViewScoped lifetime.
func BindViewScoped(constructor any, opts ...BindOption) ModuleOption {
	return func(c Collection) error {
		return c.BindViewScoped(constructor, opts...)
	}
}

// BindTransient creates a ModuleOption that binds a constructor with
// Transient lifetime.
func BindTransient(constructor any, opts ...BindOption) ModuleOption {
	return func(c Collection) error {
		return c.BindTransient(constructor, opts...)
	}
}

// RegisterUI creates a ModuleOption that registers a UI constructor under
// a request path.
func RegisterUI(path string, constructor any) ModuleOption {
	return func(c Collection) error {
		return c.RegisterUI(path, constructor)
	}
}

// RegisterView creates a ModuleOption that registers a view constructor
// under a navigation name.
func RegisterView(name string, constructor any, opts ...ViewOption) ModuleOption {
	return func(c Collection) error {
		return c.RegisterView(name, constructor, opts...)
	}
}

// RegisterViewChangeListener creates a ModuleOption that registers a
// view-change listener, optionally restricted to particular UI types.
func RegisterViewChangeListener(constructor any, forUIs ...reflect.Type) ModuleOption {
	return func(c Collection) error {
		return c.RegisterViewChangeListener(constructor, forUIs...)
	}
}

// RegisterSessionInitListener creates a ModuleOption that registers a
// session-init listener.
func RegisterSessionInitListener(constructor any) ModuleOption {
	return func(c Collection) error {
		return c.RegisterSessionInitListener(constructor)
	}
}

// RegisterSessionDestroyListener creates a ModuleOption that registers a
// session-destroy listener.
func RegisterSessionDestroyListener(constructor any) ModuleOption {
	return func(c Collection) error {
		return c.RegisterSessionDestroyListener(constructor)
	}
}

// A BindOption modifies the default behavior of a binding.
type BindOption interface {
	applyBindOption(*bindOptions)
}

type bindOptions struct {
	Name string
}

func (o *bindOptions) validate() error {
	// Names must be representable inside a backquoted struct tag, which
	// rules out backquotes themselves.
	if strings.ContainsRune(o.Name, '`') {
		return fmt.Errorf("invalid guice.Named(%q): names cannot contain backquotes", o.Name)
	}
	return nil
}

// Named is a BindOption that binds the constructor's result under the
// given name. Named bindings are resolved with ResolveNamed; they do not
// participate in constructor-parameter injection.
//
//	c.BindSingleton(NewReadOnlyConnection, guice.Named("ro"))
//	c.BindSingleton(NewReadWriteConnection, guice.Named("rw"))
func Named(name string) BindOption {
	return namedOption(name)
}

type namedOption string

func (o namedOption) String() string {
	return fmt.Sprintf("Named(%q)", string(o))
}

func (o namedOption) applyBindOption(opts *bindOptions) {
	opts.Name = string(o)
}
