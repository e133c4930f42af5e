package guice

import (
	"reflect"
	"strings"
	"sync"
)

// Navigator drives view changes for one UI. Each UI created through the
// injector owns exactly one navigator; obtain it with Session.Navigator.
//
// A navigation state is the view name optionally followed by a slash and
// free-form parameters, for example "orders/id=42".
type Navigator struct {
	injector *Injector
	session  *Session
	ui       UI
	uiType   reflect.Type

	mu   sync.Mutex
	view View
	name string
}

func newNavigator(i *Injector, s *Session, ui UI) *Navigator {
	return &Navigator{
		injector: i,
		session:  s,
		ui:       ui,
		uiType:   reflect.TypeOf(ui),
	}
}

// UI returns the UI this navigator belongs to.
func (n *Navigator) UI() UI {
	return n.ui
}

// CurrentView returns the view currently shown and the name it was
// navigated to under. Before the first navigation both are zero.
func (n *Navigator) CurrentView() (View, string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.view, n.name
}

func (n *Navigator) setCurrent(v View, name string) {
	n.mu.Lock()
	n.view = v
	n.name = name
	n.mu.Unlock()

	n.session.setCurrentView(v)
}

// NavigateTo switches the UI to the view registered under the name part
// of state. View-change listeners may veto the switch, in which case
// ErrNavigationVetoed is returned and the current view stays. An unknown
// view name falls back to the error view if one applies to this UI.
func (n *Navigator) NavigateTo(state string) error {
	name, params, _ := strings.Cut(strings.TrimPrefix(state, "/"), "/")

	return n.session.RunWithUI(n.ui, func() error {
		return n.navigate(name, params)
	})
}

func (n *Navigator) navigate(name, params string) error {
	reg := n.injector.viewFor(name, n.uiType)
	if reg == nil {
		return ViewNotFoundError{Name: name}
	}

	from, fromName := n.CurrentView()
	event := &ViewChangeEvent{
		UI:         n.ui,
		From:       from,
		ViewName:   name,
		Parameters: params,
	}

	listeners, err := n.resolveListeners()
	if err != nil {
		return err
	}

	for _, l := range listeners {
		if !l.BeforeViewChange(event) {
			return ErrNavigationVetoed
		}
	}

	// The new view is constructed with no current view set, so its
	// view-scoped dependencies are staged and promoted together with it.
	n.setCurrent(nil, "")

	v, err := n.injector.resolve(n.session, reg.key)
	if err != nil {
		n.injector.viewScope.rollback(n.session)
		n.setCurrent(from, fromName)
		return err
	}

	view := v.(View)
	n.injector.viewScope.endInit(n.session, view)
	n.setCurrent(view, name)

	event.To = view
	view.Enter(event)
	for _, l := range listeners {
		l.AfterViewChange(event)
	}

	if from != nil {
		return disposeAll(n.injector.viewScope.purgeInstance(n.session, from))
	}
	return nil
}

func (n *Navigator) resolveListeners() ([]ViewChangeListener, error) {
	var out []ViewChangeListener
	for _, reg := range n.injector.listeners {
		if !reg.appliesTo(n.uiType) {
			continue
		}

		v, err := n.injector.resolve(n.session, reg.key)
		if err != nil {
			return nil, err
		}
		out = append(out, v.(ViewChangeListener))
	}
	return out, nil
}

// viewFor returns the registration to show for the given name in a UI of
// the given type: the named view when it exists and applies, otherwise
// the error view when that applies, otherwise nil.
func (i *Injector) viewFor(name string, uiType reflect.Type) *viewRegistration {
	if reg, ok := i.views[name]; ok && reg.appliesTo(uiType) {
		return reg
	}

	if i.errorView != nil && i.errorView.appliesTo(uiType) {
		return i.errorView
	}

	return nil
}
