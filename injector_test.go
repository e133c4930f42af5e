package guice

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type TCycleA struct{ B *TCycleB }

type TCycleB struct{ A *TCycleA }

type TAudit struct {
	Injector *Injector
	Sessions *SessionManager
}

type TSessionInfo struct {
	SessionID string
}

func TestInjector_Singletons(t *testing.T) {
	t.Run("shares one instance across sessions", func(t *testing.T) {
		t.Parallel()

		injector := buildInjector(t, BindSingleton(NewTConfig))

		a, err := Resolve[*TConfig](injector, nil)
		require.NoError(t, err)

		b, err := Resolve[*TConfig](injector, newTestSession(t, injector))
		require.NoError(t, err)

		assert.Same(t, a, b)
	})

	t.Run("resolves named singletons independently", func(t *testing.T) {
		t.Parallel()

		injector := buildInjector(t,
			BindSingleton(func() *TConfig { return &TConfig{Name: "ro"} }, Named("ro")),
			BindSingleton(func() *TConfig { return &TConfig{Name: "rw"} }, Named("rw")),
		)

		ro, err := ResolveNamed[*TConfig](injector, nil, "ro")
		require.NoError(t, err)
		assert.Equal(t, "ro", ro.Name)

		rw, err := ResolveNamed[*TConfig](injector, nil, "rw")
		require.NoError(t, err)
		assert.Equal(t, "rw", rw.Name)

		again, err := ResolveNamed[*TConfig](injector, nil, "ro")
		require.NoError(t, err)
		assert.Same(t, ro, again)
	})

	t.Run("receives the injector and session manager as ambient dependencies", func(t *testing.T) {
		t.Parallel()

		injector := buildInjector(t, BindSingleton(func(i *Injector, m *SessionManager) *TAudit {
			return &TAudit{Injector: i, Sessions: m}
		}))

		audit, err := Resolve[*TAudit](injector, nil)
		require.NoError(t, err)
		assert.Same(t, injector, audit.Injector)
		assert.Same(t, injector.Sessions(), audit.Sessions)
	})

	t.Run("propagates constructor errors", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		injector := buildInjector(t, BindSingleton(func() (*TConfig, error) {
			return nil, boom
		}))

		_, err := Resolve[*TConfig](injector, nil)
		require.Error(t, err)

		var resolutionErr ResolutionError
		assert.ErrorAs(t, err, &resolutionErr)
		assert.Equal(t, KeyOf[*TConfig](), resolutionErr.Key)
	})
}

func TestInjector_Transients(t *testing.T) {
	t.Run("constructs a fresh instance per resolution", func(t *testing.T) {
		t.Parallel()

		injector := buildInjector(t, BindTransient(NewTCart))

		a, err := Resolve[*TCart](injector, nil)
		require.NoError(t, err)

		b, err := Resolve[*TCart](injector, nil)
		require.NoError(t, err)

		assert.NotSame(t, a, b)
	})

	t.Run("recovers constructor panics", func(t *testing.T) {
		t.Parallel()

		injector := buildInjector(t, BindTransient(func() *TCart {
			panic("kaboom")
		}))

		_, err := Resolve[*TCart](injector, nil)
		require.Error(t, err)

		var panicErr ConstructorPanicError
		require.ErrorAs(t, err, &panicErr)
		assert.Equal(t, "kaboom", panicErr.Panic)
		assert.NotEmpty(t, panicErr.Stack)
	})
}

func TestInjector_SessionScope(t *testing.T) {
	t.Run("caches one instance per session", func(t *testing.T) {
		t.Parallel()

		injector := buildInjector(t, BindSessionScoped(NewTCart))

		s1 := newTestSession(t, injector)
		s2 := newTestSession(t, injector)

		a, err := Resolve[*TCart](injector, s1)
		require.NoError(t, err)

		again, err := Resolve[*TCart](injector, s1)
		require.NoError(t, err)
		assert.Same(t, a, again)

		other, err := Resolve[*TCart](injector, s2)
		require.NoError(t, err)
		assert.NotSame(t, a, other)
	})

	t.Run("injects the owning session", func(t *testing.T) {
		t.Parallel()

		injector := buildInjector(t, BindSessionScoped(func(s *Session) *TSessionInfo {
			return &TSessionInfo{SessionID: s.ID()}
		}))

		s := newTestSession(t, injector)

		info, err := Resolve[*TSessionInfo](injector, s)
		require.NoError(t, err)
		assert.Equal(t, s.ID(), info.SessionID)
	})

	t.Run("requires a session", func(t *testing.T) {
		t.Parallel()

		injector := buildInjector(t, BindSessionScoped(NewTCart))

		_, err := Resolve[*TCart](injector, nil)
		assert.ErrorIs(t, err, ErrNoActiveSession)
	})

	t.Run("rejects destroyed sessions", func(t *testing.T) {
		t.Parallel()

		injector := buildInjector(t, BindSessionScoped(NewTCart))

		s := newTestSession(t, injector)
		require.NoError(t, s.Destroy())

		_, err := Resolve[*TCart](injector, s)
		assert.ErrorIs(t, err, ErrSessionDestroyed)
	})
}

func TestInjector_Validation(t *testing.T) {
	t.Run("rejects singletons depending on scoped bindings", func(t *testing.T) {
		t.Parallel()

		c := NewCollection()
		require.NoError(t, c.AddModules(
			BindSessionScoped(NewTCart),
			BindSingleton(func(cart *TCart) *TConfig { return &TConfig{} }),
		))

		_, err := c.Build()

		var conflict LifetimeConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, Singleton, conflict.Lifetime)
		assert.Equal(t, SessionScoped, conflict.DependencyLifetime)
	})

	t.Run("rejects singletons depending on the session", func(t *testing.T) {
		t.Parallel()

		c := NewCollection()
		require.NoError(t, c.AddModules(
			BindSingleton(func(s *Session) *TConfig { return &TConfig{} }),
		))

		_, err := c.Build()

		var conflict LifetimeConflictError
		assert.ErrorAs(t, err, &conflict)
	})

	t.Run("rejects wider scopes depending on narrower scopes", func(t *testing.T) {
		t.Parallel()

		c := NewCollection()
		require.NoError(t, c.AddModules(
			BindViewScoped(NewTViewState),
			BindUIScoped(func(state *TViewState) *TCart { return &TCart{} }),
		))

		_, err := c.Build()

		var conflict LifetimeConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, UIScoped, conflict.Lifetime)
		assert.Equal(t, ViewScoped, conflict.DependencyLifetime)
	})

	t.Run("allows transient dependencies everywhere", func(t *testing.T) {
		t.Parallel()

		c := NewCollection()
		require.NoError(t, c.AddModules(
			BindTransient(NewTViewState),
			BindSessionScoped(func(state *TViewState) *TCart { return &TCart{} }),
		))

		injector, err := c.Build()
		require.NoError(t, err)
		t.Cleanup(func() { _ = injector.Close() })
	})

	t.Run("rejects missing dependencies", func(t *testing.T) {
		t.Parallel()

		c := NewCollection()
		require.NoError(t, c.AddModules(
			BindSessionScoped(NewTPresenter),
		))

		_, err := c.Build()

		var missing MissingBindingError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, KeyOf[*TCart](), missing.Key)
		assert.ErrorIs(t, err, ErrBindingNotFound)
	})

	t.Run("rejects a second error view", func(t *testing.T) {
		t.Parallel()

		c := NewCollection()
		require.NoError(t, c.AddModules(
			RegisterView("oops", NewTErrorView, AsErrorView()),
			RegisterView("fallback", func() *TAdminView { return &TAdminView{} }, AsErrorView()),
		))

		_, err := c.Build()

		var duplicate DuplicateErrorViewError
		require.ErrorAs(t, err, &duplicate)
		assert.Equal(t, "fallback", duplicate.First)
		assert.Equal(t, "oops", duplicate.Second)
	})

	t.Run("rejects views restricted to unregistered UI types", func(t *testing.T) {
		t.Parallel()

		c := NewCollection()
		require.NoError(t, c.AddModules(
			RegisterView("orders", NewTErrorView, ForUIs(TypeOf[*TMainUI]())),
		))

		_, err := c.Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a registered UI type")
	})

	t.Run("rejects listeners restricted to unregistered UI types", func(t *testing.T) {
		t.Parallel()

		c := NewCollection()
		require.NoError(t, c.AddModules(
			RegisterViewChangeListener(NewTRecordingListener, TypeOf[*TAdminUI]()),
		))

		_, err := c.Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a registered UI type")
	})

	t.Run("rejects dependency cycles", func(t *testing.T) {
		t.Parallel()

		c := NewCollection()
		require.NoError(t, c.AddModules(
			BindSessionScoped(func(b *TCycleB) *TCycleA { return &TCycleA{B: b} }),
			BindSessionScoped(func(a *TCycleA) *TCycleB { return &TCycleB{A: a} }),
		))

		_, err := c.Build()

		var cycle CircularDependencyError
		require.ErrorAs(t, err, &cycle)
		assert.GreaterOrEqual(t, len(cycle.Path), 3)
		assert.Equal(t, cycle.Path[0], cycle.Path[len(cycle.Path)-1])
	})
}

func TestInjector_Lifecycle(t *testing.T) {
	t.Run("unbound types fail to resolve", func(t *testing.T) {
		t.Parallel()

		injector := buildInjector(t, BindSingleton(NewTConfig))

		_, err := Resolve[*TCart](injector, nil)
		assert.ErrorIs(t, err, ErrBindingNotFound)
	})

	t.Run("MustResolve panics on missing bindings", func(t *testing.T) {
		t.Parallel()

		injector := buildInjector(t, BindSingleton(NewTConfig))

		assert.Panics(t, func() {
			MustResolve[*TCart](injector, nil)
		})
	})

	t.Run("closed injectors refuse resolution", func(t *testing.T) {
		t.Parallel()

		c := NewCollection()
		require.NoError(t, c.BindSingleton(NewTConfig))

		injector, err := c.Build()
		require.NoError(t, err)
		require.NoError(t, injector.Close())

		_, err = Resolve[*TConfig](injector, nil)
		assert.ErrorIs(t, err, ErrInjectorClosed)

		assert.ErrorIs(t, injector.Close(), ErrInjectorClosed)
	})

	t.Run("closing the injector destroys live sessions", func(t *testing.T) {
		t.Parallel()

		c := NewCollection()
		require.NoError(t, c.BindSingleton(NewTConfig))

		injector, err := c.Build()
		require.NoError(t, err)

		s, err := injector.Sessions().Create()
		require.NoError(t, err)

		require.NoError(t, injector.Close())
		assert.True(t, s.IsDestroyed())
		assert.Equal(t, 0, injector.Sessions().Count())
	})
}
