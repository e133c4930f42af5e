package guice

import (
	"fmt"
	"reflect"
	"runtime/debug"
	"sync/atomic"

	"go.uber.org/dig"
)

// Ambient types resolvable without an explicit binding.
var (
	sessionPtrType        = reflect.TypeOf((*Session)(nil))
	injectorPtrType       = reflect.TypeOf((*Injector)(nil))
	sessionManagerPtrType = reflect.TypeOf((*SessionManager)(nil))
)

// Injector resolves bindings recorded by a Collection. Singletons live in
// an embedded dig container; session, UI and view scoped instances live in
// per-scope caches keyed by session and current instance.
//
// An Injector is safe for concurrent use.
type Injector struct {
	container *dig.Container

	bindings map[Key]*binding

	uis       map[string]*uiRegistration
	uiOrder   []string
	views     map[string]*viewRegistration
	errorView *viewRegistration
	listeners []*listenerRegistration

	sessions *SessionManager

	sessionScope *scopeCache
	uiScope      *scopeCache
	viewScope    *scopeCache

	closed atomic.Bool
}

func newInjector(c *collection) (*Injector, error) {
	bindings, err := c.effectiveBindings()
	if err != nil {
		return nil, err
	}

	if err := validate(c, bindings); err != nil {
		return nil, err
	}

	i := &Injector{
		bindings:  bindings,
		uis:       c.uis,
		uiOrder:   c.uiOrder,
		views:     c.views,
		listeners: c.listeners,

		sessionScope: newScopeCache(func(s *Session) any { return s }),
		uiScope:      newScopeCache(func(s *Session) any { return s.currentInstanceUI() }),
		viewScope:    newScopeCache(func(s *Session) any { return s.currentInstanceView() }),
	}

	for _, reg := range c.views {
		if reg.errorView {
			i.errorView = reg
		}
	}

	i.sessions = newSessionManager([]*scopeCache{i.sessionScope, i.uiScope, i.viewScope})

	container := dig.New(dig.RecoverFromPanics())
	if err := container.Provide(func() *Injector { return i }); err != nil {
		return nil, err
	}
	if err := container.Provide(func() *SessionManager { return i.sessions }); err != nil {
		return nil, err
	}

	for _, b := range bindings {
		if b.lifetime != Singleton {
			continue
		}

		var opts []dig.ProvideOption
		if b.key.Name != "" {
			opts = append(opts, dig.Name(b.key.Name))
		}

		if err := container.Provide(b.constructor, opts...); err != nil {
			return nil, fmt.Errorf("providing %s: %w", b.key, err)
		}
	}
	i.container = container

	for _, key := range c.sessionInitKeys {
		v, err := i.resolve(nil, key)
		if err != nil {
			return nil, err
		}
		i.sessions.initListeners = append(i.sessions.initListeners, v.(SessionInitListener))
	}
	for _, key := range c.sessionDestroyKeys {
		v, err := i.resolve(nil, key)
		if err != nil {
			return nil, err
		}
		i.sessions.destroyListeners = append(i.sessions.destroyListeners, v.(SessionDestroyListener))
	}

	return i, nil
}

// Sessions returns the session manager owned by this injector.
func (i *Injector) Sessions() *SessionManager {
	return i.sessions
}

// UIPaths returns the registered UI paths in registration order.
func (i *Injector) UIPaths() []string {
	paths := make([]string, len(i.uiOrder))
	copy(paths, i.uiOrder)
	return paths
}

// Get resolves the binding for the given type. The session may be nil when
// resolving singletons or transients without session-bound dependencies.
func (i *Injector) Get(s *Session, t reflect.Type) (any, error) {
	return i.GetNamed(s, t, "")
}

// GetNamed resolves the binding for the given type and name.
func (i *Injector) GetNamed(s *Session, t reflect.Type, name string) (any, error) {
	if i.closed.Load() {
		return nil, ErrInjectorClosed
	}

	return i.resolve(s, Key{Type: t, Name: name})
}

func (i *Injector) resolve(s *Session, key Key) (any, error) {
	b, ok := i.bindings[key]
	if !ok {
		return nil, fmt.Errorf("%w for %s", ErrBindingNotFound, key)
	}

	return i.resolveBinding(s, b)
}

func (i *Injector) resolveBinding(s *Session, b *binding) (any, error) {
	switch b.lifetime {
	case Singleton:
		return i.resolveSingleton(b)

	case Transient:
		return i.construct(s, b)

	case SessionScoped:
		scope := i.sessionScope
		if err := checkSession(s); err != nil {
			return nil, ResolutionError{Key: b.key, Cause: err}
		}
		return scope.get(s, b.key, func() (any, error) { return i.construct(s, b) })

	case UIScoped:
		if err := checkSession(s); err != nil {
			return nil, ResolutionError{Key: b.key, Cause: err}
		}
		return i.uiScope.get(s, b.key, func() (any, error) { return i.construct(s, b) })

	case ViewScoped:
		if err := checkSession(s); err != nil {
			return nil, ResolutionError{Key: b.key, Cause: err}
		}
		return i.viewScope.get(s, b.key, func() (any, error) { return i.construct(s, b) })

	default:
		return nil, LifetimeError{Value: b.lifetime}
	}
}

func checkSession(s *Session) error {
	if s == nil {
		return ErrNoActiveSession
	}
	if s.IsDestroyed() {
		return ErrSessionDestroyed
	}
	return nil
}

// resolveSingleton extracts an instance from the dig container by invoking
// a synthesized function that takes exactly the requested type.
func (i *Injector) resolveSingleton(b *binding) (any, error) {
	var result any

	var fnType reflect.Type
	var fn reflect.Value

	if b.key.Name == "" {
		fnType = reflect.FuncOf([]reflect.Type{b.key.Type}, nil, false)
		fn = reflect.MakeFunc(fnType, func(args []reflect.Value) []reflect.Value {
			result = args[0].Interface()
			return nil
		})
	} else {
		paramType := reflect.StructOf([]reflect.StructField{
			{
				Name:      "In",
				Type:      reflect.TypeOf(dig.In{}),
				Anonymous: true,
			},
			{
				Name: "Value",
				Type: b.key.Type,
				Tag:  reflect.StructTag(fmt.Sprintf("name:%q", b.key.Name)),
			},
		})
		fnType = reflect.FuncOf([]reflect.Type{paramType}, nil, false)
		fn = reflect.MakeFunc(fnType, func(args []reflect.Value) []reflect.Value {
			result = args[0].Field(1).Interface()
			return nil
		})
	}

	if err := i.container.Invoke(fn.Interface()); err != nil {
		return nil, ResolutionError{Key: b.key, Cause: err}
	}

	return result, nil
}

// construct invokes the binding's constructor, resolving each parameter
// first. Constructor panics are recovered and reported as errors.
func (i *Injector) construct(s *Session, b *binding) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ConstructorPanicError{
				Constructor: b.ctor.Type,
				Panic:       r,
				Stack:       debug.Stack(),
			}
		}
	}()

	args := make([]reflect.Value, len(b.ctor.Params))
	for idx, param := range b.ctor.Params {
		v, err := i.resolveParam(s, b, param)
		if err != nil {
			return nil, err
		}

		av := reflect.New(param).Elem()
		if rv := reflect.ValueOf(v); rv.IsValid() {
			av.Set(rv)
		}
		args[idx] = av
	}

	v, err := b.ctor.Call(args)
	if err != nil {
		return nil, ResolutionError{Key: b.key, Cause: err}
	}
	return v, nil
}

func (i *Injector) resolveParam(s *Session, b *binding, param reflect.Type) (any, error) {
	switch param {
	case sessionPtrType:
		if s == nil {
			return nil, ResolutionError{Key: b.key, Cause: ErrNoActiveSession}
		}
		return s, nil
	case injectorPtrType:
		return i, nil
	case sessionManagerPtrType:
		return i.sessions, nil
	}

	dep, ok := i.bindings[Key{Type: param}]
	if !ok {
		return nil, MissingBindingError{Key: Key{Type: param}, RequiredBy: b.key}
	}

	return i.resolveBinding(s, dep)
}

// CreateUI constructs the UI registered under path for the given session.
// Bindings resolved during construction are staged and promoted to the new
// UI instance once its constructor returns; on failure the staged
// instances are discarded.
func (i *Injector) CreateUI(s *Session, path string) (UI, error) {
	if i.closed.Load() {
		return nil, ErrInjectorClosed
	}

	reg, ok := i.uis[path]
	if !ok {
		return nil, UINotRegisteredError{Path: path}
	}

	if err := checkSession(s); err != nil {
		return nil, err
	}

	var ui UI
	err := s.runDetached(func() error {
		v, err := i.resolve(s, reg.key)
		if err != nil {
			i.uiScope.rollback(s)
			return err
		}

		ui = v.(UI)
		i.uiScope.endInit(s, ui)
		return nil
	})
	if err != nil {
		return nil, err
	}

	nav := newNavigator(i, s, ui)
	s.addUI(path, ui, nav)

	err = s.RunWithUI(ui, func() error {
		ui.Attach(s)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ui, nil
}

// GetOrCreateUI returns the session's UI for path, constructing it on
// first use.
func (i *Injector) GetOrCreateUI(s *Session, path string) (UI, error) {
	if s != nil {
		if ui, ok := s.UI(path); ok {
			return ui, nil
		}
	}

	return i.CreateUI(s, path)
}

// Close destroys all sessions and closes the injector. Further
// resolutions fail with ErrInjectorClosed.
func (i *Injector) Close() error {
	if !i.closed.CompareAndSwap(false, true) {
		return ErrInjectorClosed
	}

	return i.sessions.Close()
}

// Resolve resolves T's binding through the injector.
//
//	presenter, err := guice.Resolve[*ReportPresenter](injector, session)
func Resolve[T any](i *Injector, s *Session) (T, error) {
	return ResolveNamed[T](i, s, "")
}

// ResolveNamed resolves the binding for T under the given name.
func ResolveNamed[T any](i *Injector, s *Session, name string) (T, error) {
	v, err := i.GetNamed(s, TypeOf[T](), name)
	if err != nil {
		var zero T
		return zero, err
	}

	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s resolved to unexpected type %T",
			ErrBindingNotFound, NamedKeyOf[T](name), v)
	}
	return t, nil
}

// MustResolve is like Resolve but panics on error. Intended for
// initialization code where a missing binding is a programming error.
func MustResolve[T any](i *Injector, s *Session) T {
	t, err := Resolve[T](i, s)
	if err != nil {
		panic(err)
	}
	return t
}
