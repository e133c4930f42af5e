package guice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollection_Bind(t *testing.T) {
	t.Run("records bindings for every lifetime", func(t *testing.T) {
		t.Parallel()

		c := NewCollection()
		require.NoError(t, c.BindSingleton(NewTConfig))
		require.NoError(t, c.BindSessionScoped(NewTCart))
		require.NoError(t, c.BindUIScoped(NewTPresenter))
		require.NoError(t, c.BindViewScoped(NewTViewState))
		require.NoError(t, c.BindTransient(NewTDisposable))

		assert.Equal(t, 5, c.Count())
	})

	t.Run("rejects nil constructor", func(t *testing.T) {
		t.Parallel()

		c := NewCollection()
		assert.ErrorIs(t, c.BindSingleton(nil), ErrConstructorNil)
	})

	t.Run("rejects invalid lifetime", func(t *testing.T) {
		t.Parallel()

		c := NewCollection()
		err := c.Bind(Lifetime(42), NewTConfig)

		var lifetimeErr LifetimeError
		assert.ErrorAs(t, err, &lifetimeErr)
	})

	t.Run("rejects non-constructor values", func(t *testing.T) {
		t.Parallel()

		c := NewCollection()
		assert.Error(t, c.BindSingleton("not a function"))
		assert.Error(t, c.BindSingleton(func() {}))
	})

	t.Run("rejects names containing backquotes", func(t *testing.T) {
		t.Parallel()

		c := NewCollection()
		assert.Error(t, c.BindSingleton(NewTConfig, Named("a`b")))
	})

	t.Run("rejects registration after build", func(t *testing.T) {
		t.Parallel()

		c := NewCollection()
		require.NoError(t, c.BindSingleton(NewTConfig))

		injector, err := c.Build()
		require.NoError(t, err)
		t.Cleanup(func() { _ = injector.Close() })

		assert.ErrorIs(t, c.BindSingleton(NewTCart), ErrCollectionBuilt)

		_, err = c.Build()
		assert.ErrorIs(t, err, ErrCollectionBuilt)
	})
}

func TestCollection_RegisterUI(t *testing.T) {
	t.Run("rejects empty path", func(t *testing.T) {
		t.Parallel()

		c := NewCollection()
		assert.ErrorIs(t, c.RegisterUI("", NewTMainUI), ErrUIPathEmpty)
	})

	t.Run("rejects duplicate path", func(t *testing.T) {
		t.Parallel()

		c := NewCollection()
		require.NoError(t, c.RegisterUI("app", NewTAdminUI))
		assert.ErrorIs(t, c.RegisterUI("app", NewTAdminUI), ErrDuplicateUIPath)
	})

	t.Run("rejects constructors that do not produce a UI", func(t *testing.T) {
		t.Parallel()

		c := NewCollection()
		err := c.RegisterUI("app", NewTConfig)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not implement guice.UI")
		assert.Equal(t, 0, c.Count())
	})
}

func TestCollection_RegisterView(t *testing.T) {
	t.Run("rejects empty name", func(t *testing.T) {
		t.Parallel()

		c := NewCollection()
		assert.ErrorIs(t, c.RegisterView("", NewTOrdersView), ErrViewNameEmpty)
	})

	t.Run("rejects duplicate name", func(t *testing.T) {
		t.Parallel()

		c := NewCollection()
		require.NoError(t, c.RegisterView("orders", NewTOrdersView))
		assert.ErrorIs(t, c.RegisterView("orders", NewTOrdersView), ErrDuplicateViewName)
	})

	t.Run("rejects constructors that do not produce a view", func(t *testing.T) {
		t.Parallel()

		c := NewCollection()
		err := c.RegisterView("orders", NewTConfig)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not implement guice.View")
	})
}

func TestCollection_RegisterListeners(t *testing.T) {
	t.Run("rejects non-listener constructors", func(t *testing.T) {
		t.Parallel()

		c := NewCollection()
		assert.Error(t, c.RegisterViewChangeListener(NewTConfig))
		assert.Error(t, c.RegisterSessionInitListener(NewTConfig))
		assert.Error(t, c.RegisterSessionDestroyListener(NewTConfig))
		assert.Equal(t, 0, c.Count())
	})
}
