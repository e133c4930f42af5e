package guice

import (
	"bytes"
	"errors"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Session represents one web session. Sessions own the UIs created for
// them and carry arbitrary application attributes.
//
// Lifecycle operations (UI construction, navigation, request handling via
// RunWithUI) are serialized per session, mirroring the one-request-at-a-time
// locking of session-based web frameworks. Attribute access is safe from
// any goroutine.
type Session struct {
	id        string
	createdAt time.Time
	manager   *SessionManager

	mu         sync.RWMutex
	attributes map[string]any
	uis        map[string]UI
	navigators map[UI]*Navigator

	// lifecycleMu serializes construction and request handling. curMu
	// guards the current fields so nested RunWithUI calls and scope
	// lookups can read them without holding the lifecycle lock.
	// lifecycleOwner is the goroutine holding lifecycleMu; only that
	// goroutine may take the nested fast path.
	lifecycleMu    sync.Mutex
	curMu          sync.Mutex
	currentUI      UI
	currentView    View
	lifecycleOwner uint64

	destroyed atomic.Bool
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// CreatedAt returns the session's creation time.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// IsDestroyed reports whether the session has been destroyed.
func (s *Session) IsDestroyed() bool {
	return s.destroyed.Load()
}

// Destroy removes the session from its manager, firing destroy listeners
// and disposing scoped instances.
func (s *Session) Destroy() error {
	return s.manager.Destroy(s.id)
}

// SetAttribute stores an application attribute on the session.
func (s *Session) SetAttribute(name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attributes[name] = value
}

// Attribute returns the attribute stored under name.
func (s *Session) Attribute(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.attributes[name]
	return v, ok
}

// RemoveAttribute deletes the attribute stored under name.
func (s *Session) RemoveAttribute(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attributes, name)
}

// UI returns the session's UI for the given path, if one has been created.
func (s *Session) UI(path string) (UI, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ui, ok := s.uis[path]
	return ui, ok
}

// Navigator returns the navigator owned by the given UI.
func (s *Session) Navigator(ui UI) (*Navigator, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	nav, ok := s.navigators[ui]
	return nav, ok
}

// RunWithUI runs fn with the given UI established as the session's current
// instance, so UI- and view-scoped resolutions hit that UI's cache slots.
// Calls are serialized per session. Nested calls from the goroutine that
// established the UI run fn directly, which lets navigation happen from
// inside Attach and view-change listeners; every other goroutine waits
// for the establishing call to finish.
func (s *Session) RunWithUI(ui UI, fn func() error) error {
	if s.destroyed.Load() {
		return ErrSessionDestroyed
	}

	id := goroutineID()

	s.curMu.Lock()
	nested := s.currentUI == ui && s.lifecycleOwner == id
	s.curMu.Unlock()
	if nested {
		return fn()
	}

	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	var view View
	if nav, ok := s.Navigator(ui); ok {
		view, _ = nav.CurrentView()
	}

	s.curMu.Lock()
	s.currentUI = ui
	s.currentView = view
	s.lifecycleOwner = id
	s.curMu.Unlock()

	defer func() {
		s.curMu.Lock()
		s.currentUI = nil
		s.currentView = nil
		s.lifecycleOwner = 0
		s.curMu.Unlock()
	}()

	return fn()
}

// goroutineID parses the current goroutine's id from the stack header
// ("goroutine 18 [running]:"). Used to bind the nested RunWithUI fast
// path to the goroutine that established the current UI.
func goroutineID() uint64 {
	var buf [32]byte
	n := runtime.Stack(buf[:], false)

	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}

	id, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// runDetached runs fn under the lifecycle lock with no current instance
// established. Construction of new UIs happens in this window.
func (s *Session) runDetached(fn func() error) error {
	if s.destroyed.Load() {
		return ErrSessionDestroyed
	}

	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	return fn()
}

// currentInstanceUI returns the UI currently established by RunWithUI.
func (s *Session) currentInstanceUI() any {
	s.curMu.Lock()
	defer s.curMu.Unlock()
	if s.currentUI == nil {
		return nil
	}
	return s.currentUI
}

// currentInstanceView returns the view of the currently established UI.
func (s *Session) currentInstanceView() any {
	s.curMu.Lock()
	defer s.curMu.Unlock()
	if s.currentView == nil {
		return nil
	}
	return s.currentView
}

// setCurrentView records the view shown by the currently established UI.
func (s *Session) setCurrentView(v View) {
	s.curMu.Lock()
	defer s.curMu.Unlock()
	s.currentView = v
}

func (s *Session) addUI(path string, ui UI, nav *Navigator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uis[path] = ui
	s.navigators[ui] = nav
}

// SessionInitListener is notified when a session has been created. An
// error aborts session creation.
type SessionInitListener interface {
	SessionInit(*Session) error
}

// SessionDestroyListener is notified when a session is destroyed.
type SessionDestroyListener interface {
	SessionDestroy(*Session)
}

// SessionManager tracks live sessions and drives init and destroy
// listeners. It owns the scope caches: destroying a session purges every
// instance cached for it and closes those implementing Disposable.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	initListeners    []SessionInitListener
	destroyListeners []SessionDestroyListener
	scopes           []*scopeCache

	closed atomic.Bool
}

func newSessionManager(scopes []*scopeCache) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		scopes:   scopes,
	}
}

// Create creates a new session with a generated identity and fires init
// listeners. If a listener fails, the session is discarded and the error
// returned.
func (m *SessionManager) Create() (*Session, error) {
	if m.closed.Load() {
		return nil, ErrSessionsClosed
	}

	s := &Session{
		id:         uuid.NewString(),
		createdAt:  time.Now(),
		manager:    m,
		attributes: make(map[string]any),
		uis:        make(map[string]UI),
		navigators: make(map[UI]*Navigator),
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	for _, l := range m.initListeners {
		if err := l.SessionInit(s); err != nil {
			m.remove(s)
			s.destroyed.Store(true)
			return nil, err
		}
	}

	return s, nil
}

// Lookup returns the live session with the given identity.
func (m *SessionManager) Lookup(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Count returns the number of live sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Destroy removes the session, fires destroy listeners and disposes every
// scoped instance cached for it. Destroying an unknown or already
// destroyed session is a no-op.
func (m *SessionManager) Destroy(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok || !s.destroyed.CompareAndSwap(false, true) {
		return nil
	}

	for _, l := range m.destroyListeners {
		l.SessionDestroy(s)
	}

	var errs []error
	for _, scope := range m.scopes {
		if err := disposeAll(scope.purgeSession(s)); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Close destroys all live sessions. The manager accepts no new sessions
// afterwards.
func (m *SessionManager) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}

	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := m.Destroy(id); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (m *SessionManager) remove(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, s.id)
}
