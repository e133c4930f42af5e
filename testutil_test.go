package guice

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// ============================================================================
// Shared Test Types
// ============================================================================

// TConfig is a basic singleton for testing.
type TConfig struct {
	Name string
}

func NewTConfig() *TConfig {
	return &TConfig{Name: "test"}
}

// TCart is a session-scoped fixture carrying a unique identity.
type TCart struct {
	ID    int64
	Items []string
}

// TPresenter is a UI-scoped fixture depending on session state.
type TPresenter struct {
	ID   int64
	Cart *TCart
}

// TViewState is a view-scoped fixture.
type TViewState struct {
	ID int64
}

var fixtureIDs atomic.Int64

func NewTCart() *TCart {
	return &TCart{ID: fixtureIDs.Add(1)}
}

func NewTPresenter(cart *TCart) *TPresenter {
	return &TPresenter{ID: fixtureIDs.Add(1), Cart: cart}
}

func NewTViewState() *TViewState {
	return &TViewState{ID: fixtureIDs.Add(1)}
}

// TMainUI records the session it was attached to.
type TMainUI struct {
	Presenter *TPresenter
	Attached  *Session
}

func NewTMainUI(p *TPresenter) *TMainUI {
	return &TMainUI{Presenter: p}
}

func (u *TMainUI) Attach(s *Session) { u.Attached = s }

// TAdminUI is a second UI type for ForUIs filtering.
type TAdminUI struct {
	Attached *Session
}

func NewTAdminUI() *TAdminUI {
	return &TAdminUI{}
}

func (u *TAdminUI) Attach(s *Session) { u.Attached = s }

// TOrdersView records every Enter call.
type TOrdersView struct {
	State  *TViewState
	Events []*ViewChangeEvent
}

func NewTOrdersView(state *TViewState) *TOrdersView {
	return &TOrdersView{State: state}
}

func (v *TOrdersView) Enter(e *ViewChangeEvent) { v.Events = append(v.Events, e) }

// TErrorView is registered as the error view in navigation tests.
type TErrorView struct {
	Events []*ViewChangeEvent
}

func NewTErrorView() *TErrorView {
	return &TErrorView{}
}

func (v *TErrorView) Enter(e *ViewChangeEvent) { v.Events = append(v.Events, e) }

// TAdminView is restricted to TAdminUI in filtering tests.
type TAdminView struct{}

func NewTAdminView() *TAdminView {
	return &TAdminView{}
}

func (v *TAdminView) Enter(*ViewChangeEvent) {}

// TRecordingListener records navigation events and optionally vetoes.
type TRecordingListener struct {
	Veto   bool
	Before []*ViewChangeEvent
	After  []*ViewChangeEvent
}

func NewTRecordingListener() *TRecordingListener {
	return &TRecordingListener{}
}

func (l *TRecordingListener) BeforeViewChange(e *ViewChangeEvent) bool {
	l.Before = append(l.Before, e)
	return !l.Veto
}

func (l *TRecordingListener) AfterViewChange(e *ViewChangeEvent) {
	l.After = append(l.After, e)
}

// TDisposable tracks Close calls for lifecycle testing.
type TDisposable struct {
	closed   atomic.Bool
	closeErr error
}

func NewTDisposable() *TDisposable {
	return &TDisposable{}
}

func (d *TDisposable) Close() error {
	if d.closed.Swap(true) {
		return errors.New("already closed")
	}
	return d.closeErr
}

func (d *TDisposable) IsClosed() bool {
	return d.closed.Load()
}

// ============================================================================
// Helpers
// ============================================================================

// buildInjector builds an injector from the given modules and closes it
// when the test finishes.
func buildInjector(t *testing.T, modules ...ModuleOption) *Injector {
	t.Helper()

	c := NewCollection()
	require.NoError(t, c.AddModules(modules...))

	injector, err := c.Build()
	require.NoError(t, err)

	t.Cleanup(func() { _ = injector.Close() })
	return injector
}

// newTestSession creates a session that is destroyed when the test
// finishes.
func newTestSession(t *testing.T, injector *Injector) *Session {
	t.Helper()

	s, err := injector.Sessions().Create()
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Destroy() })
	return s
}
