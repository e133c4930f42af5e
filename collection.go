package guice

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/berndhopp/guice/internal/reflection"
)

var (
	uiType                     = reflect.TypeOf((*UI)(nil)).Elem()
	viewType                   = reflect.TypeOf((*View)(nil)).Elem()
	viewChangeListenerType     = reflect.TypeOf((*ViewChangeListener)(nil)).Elem()
	sessionInitListenerType    = reflect.TypeOf((*SessionInitListener)(nil)).Elem()
	sessionDestroyListenerType = reflect.TypeOf((*SessionDestroyListener)(nil)).Elem()
)

// Collection accumulates bindings and registrations before the injector is
// built. A Collection is not safe for concurrent use; register everything
// up front, then call Build.
type Collection interface {
	// AddModules applies the given modules to the collection.
	AddModules(modules ...ModuleOption) error

	// Bind registers a constructor under the given lifetime. The binding
	// key is the constructor's result type, optionally qualified by a
	// Named option.
	Bind(lifetime Lifetime, constructor any, opts ...BindOption) error

	// BindSingleton registers a constructor whose result is shared by the
	// whole injector.
	BindSingleton(constructor any, opts ...BindOption) error

	// BindSessionScoped registers a constructor whose result is cached per
	// session.
	BindSessionScoped(constructor any, opts ...BindOption) error

	// BindUIScoped registers a constructor whose result is cached per UI
	// instance within a session.
	BindUIScoped(constructor any, opts ...BindOption) error

	// BindViewScoped registers a constructor whose result is cached per
	// view instance within a session.
	BindViewScoped(constructor any, opts ...BindOption) error

	// BindTransient registers a constructor invoked on every resolution.
	BindTransient(constructor any, opts ...BindOption) error

	// RegisterUI registers a UI constructor under a request path. The
	// constructor's result must implement UI and is additionally bound
	// with UIScoped lifetime.
	RegisterUI(path string, constructor any) error

	// RegisterView registers a view constructor under a navigation name.
	// The constructor's result must implement View and is additionally
	// bound with ViewScoped lifetime.
	RegisterView(name string, constructor any, opts ...ViewOption) error

	// RegisterViewChangeListener registers a view-change listener
	// constructor, bound with UIScoped lifetime. If forUIs is non-empty
	// the listener only observes navigation in UIs of those types.
	RegisterViewChangeListener(constructor any, forUIs ...reflect.Type) error

	// RegisterSessionInitListener registers a constructor for a listener
	// notified when a session is created. The listener is constructed once
	// when the injector is built, so its dependencies must be singletons.
	RegisterSessionInitListener(constructor any) error

	// RegisterSessionDestroyListener registers a constructor for a
	// listener notified when a session is destroyed.
	RegisterSessionDestroyListener(constructor any) error

	// Count returns the number of recorded bindings.
	Count() int

	// Build validates the collection and constructs the injector. The
	// collection is frozen afterwards.
	Build() (*Injector, error)
}

// NewCollection creates a new, empty Collection.
func NewCollection() Collection {
	return &collection{
		analyzer: reflection.NewAnalyzer(),
		uis:      make(map[string]*uiRegistration),
		views:    make(map[string]*viewRegistration),
	}
}

type collection struct {
	analyzer *reflection.Analyzer

	bindings  []*binding
	uis       map[string]*uiRegistration
	uiOrder   []string
	views     map[string]*viewRegistration
	listeners []*listenerRegistration

	sessionInitKeys    []Key
	sessionDestroyKeys []Key

	moduleStack []string
	overriding  bool
	built       bool
}

func (c *collection) pushModule(name string) {
	c.moduleStack = append(c.moduleStack, name)
}

func (c *collection) popModule() {
	c.moduleStack = c.moduleStack[:len(c.moduleStack)-1]
}

func (c *collection) currentModule() string {
	return strings.Join(c.moduleStack, "/")
}

func (c *collection) AddModules(modules ...ModuleOption) error {
	if c.built {
		return ErrCollectionBuilt
	}

	for _, m := range modules {
		if m == nil {
			continue
		}

		if err := m(c); err != nil {
			return err
		}
	}

	return nil
}

// bind validates the constructor shape and records the binding.
func (c *collection) bind(lifetime Lifetime, constructor any, opts []BindOption) (*binding, error) {
	if c.built {
		return nil, ErrCollectionBuilt
	}

	if !lifetime.IsValid() {
		return nil, LifetimeError{Value: lifetime}
	}

	if constructor == nil {
		return nil, ErrConstructorNil
	}

	options := bindOptions{}
	for _, opt := range opts {
		opt.applyBindOption(&options)
	}
	if err := options.validate(); err != nil {
		return nil, err
	}

	ctor, err := c.analyzer.Analyze(constructor)
	if err != nil {
		return nil, err
	}

	b := &binding{
		key:         Key{Type: ctor.Result, Name: options.Name},
		lifetime:    lifetime,
		constructor: constructor,
		module:      c.currentModule(),
		override:    c.overriding,
		ctor:        ctor,
	}
	c.bindings = append(c.bindings, b)
	return b, nil
}

func (c *collection) Bind(lifetime Lifetime, constructor any, opts ...BindOption) error {
	_, err := c.bind(lifetime, constructor, opts)
	return err
}

func (c *collection) BindSingleton(constructor any, opts ...BindOption) error {
	return c.Bind(Singleton, constructor, opts...)
}

func (c *collection) BindSessionScoped(constructor any, opts ...BindOption) error {
	return c.Bind(SessionScoped, constructor, opts...)
}

func (c *collection) BindUIScoped(constructor any, opts ...BindOption) error {
	return c.Bind(UIScoped, constructor, opts...)
}

func (c *collection) BindViewScoped(constructor any, opts ...BindOption) error {
	return c.Bind(ViewScoped, constructor, opts...)
}

func (c *collection) BindTransient(constructor any, opts ...BindOption) error {
	return c.Bind(Transient, constructor, opts...)
}

func (c *collection) RegisterUI(path string, constructor any) error {
	if c.built {
		return ErrCollectionBuilt
	}

	if path == "" {
		return ErrUIPathEmpty
	}

	if _, exists := c.uis[path]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateUIPath, path)
	}

	b, err := c.bind(UIScoped, constructor, nil)
	if err != nil {
		return err
	}

	if !b.key.Type.Implements(uiType) {
		c.bindings = c.bindings[:len(c.bindings)-1]
		return fmt.Errorf("UI constructor for path %q returns %s, which does not implement guice.UI",
			path, formatType(b.key.Type))
	}

	c.uis[path] = &uiRegistration{path: path, constructor: constructor, key: b.key}
	c.uiOrder = append(c.uiOrder, path)
	return nil
}

func (c *collection) RegisterView(name string, constructor any, opts ...ViewOption) error {
	if c.built {
		return ErrCollectionBuilt
	}

	if name == "" {
		return ErrViewNameEmpty
	}

	if _, exists := c.views[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateViewName, name)
	}

	options := viewOptions{}
	for _, opt := range opts {
		opt.applyViewOption(&options)
	}

	b, err := c.bind(ViewScoped, constructor, nil)
	if err != nil {
		return err
	}

	if !b.key.Type.Implements(viewType) {
		c.bindings = c.bindings[:len(c.bindings)-1]
		return fmt.Errorf("view constructor for %q returns %s, which does not implement guice.View",
			name, formatType(b.key.Type))
	}

	c.views[name] = &viewRegistration{
		name:        name,
		constructor: constructor,
		key:         b.key,
		errorView:   options.errorView,
		forUIs:      options.forUIs,
	}
	return nil
}

func (c *collection) RegisterViewChangeListener(constructor any, forUIs ...reflect.Type) error {
	if c.built {
		return ErrCollectionBuilt
	}

	b, err := c.bind(UIScoped, constructor, nil)
	if err != nil {
		return err
	}

	if !b.key.Type.Implements(viewChangeListenerType) {
		c.bindings = c.bindings[:len(c.bindings)-1]
		return fmt.Errorf("view-change listener constructor returns %s, which does not implement guice.ViewChangeListener",
			formatType(b.key.Type))
	}

	c.listeners = append(c.listeners, &listenerRegistration{
		constructor: constructor,
		key:         b.key,
		forUIs:      forUIs,
	})
	return nil
}

func (c *collection) RegisterSessionInitListener(constructor any) error {
	if c.built {
		return ErrCollectionBuilt
	}

	b, err := c.bind(Singleton, constructor, nil)
	if err != nil {
		return err
	}

	if !b.key.Type.Implements(sessionInitListenerType) {
		c.bindings = c.bindings[:len(c.bindings)-1]
		return fmt.Errorf("session-init listener constructor returns %s, which does not implement guice.SessionInitListener",
			formatType(b.key.Type))
	}

	c.sessionInitKeys = append(c.sessionInitKeys, b.key)
	return nil
}

func (c *collection) RegisterSessionDestroyListener(constructor any) error {
	if c.built {
		return ErrCollectionBuilt
	}

	b, err := c.bind(Singleton, constructor, nil)
	if err != nil {
		return err
	}

	if !b.key.Type.Implements(sessionDestroyListenerType) {
		c.bindings = c.bindings[:len(c.bindings)-1]
		return fmt.Errorf("session-destroy listener constructor returns %s, which does not implement guice.SessionDestroyListener",
			formatType(b.key.Type))
	}

	c.sessionDestroyKeys = append(c.sessionDestroyKeys, b.key)
	return nil
}

func (c *collection) Count() int {
	return len(c.bindings)
}

func (c *collection) Build() (*Injector, error) {
	if c.built {
		return nil, ErrCollectionBuilt
	}
	c.built = true

	return newInjector(c)
}

// effectiveBindings resolves the override tier against the base tier.
// Within a tier, two bindings for the same key conflict; across tiers, the
// override binding replaces the base one.
func (c *collection) effectiveBindings() (map[Key]*binding, error) {
	base := make(map[Key]*binding)
	overrides := make(map[Key]*binding)

	for _, b := range c.bindings {
		tier := base
		if b.override {
			tier = overrides
		}

		if prev, exists := tier[b.key]; exists {
			return nil, BindingConflictError{
				Key:     b.key,
				Modules: [2]string{prev.module, b.module},
			}
		}
		tier[b.key] = b
	}

	for key, b := range overrides {
		base[key] = b
	}
	return base, nil
}
