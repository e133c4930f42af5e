package guice

import "reflect"

// UI is the root of a per-tab object graph. UIs are constructed through
// the injector inside the UI scope: objects resolved during construction
// are staged and bound to the UI once it is complete.
type UI interface {
	// Attach is called once the UI has been constructed and owns its
	// scope. The session is the one the UI was created for.
	Attach(*Session)
}

// View is a navigation target inside a UI. Views are constructed through
// the injector inside the view scope on every navigation.
type View interface {
	// Enter is called when navigation to the view has completed.
	Enter(*ViewChangeEvent)
}

// ViewChangeEvent describes one navigation inside a UI.
type ViewChangeEvent struct {
	// UI is the UI the navigation happens in.
	UI UI

	// From is the view navigated away from, nil on the first navigation.
	From View

	// To is the view navigated to. It is nil in BeforeViewChange, which
	// runs before the target view is constructed.
	To View

	// ViewName is the registered name of the target view.
	ViewName string

	// Parameters is the navigation state following the view name.
	Parameters string
}

// ViewChangeListener observes navigation inside the UIs it applies to.
// Listeners are constructed through the injector inside the UI scope, so
// each UI gets its own listener instances.
type ViewChangeListener interface {
	// BeforeViewChange runs before the target view is constructed.
	// Returning false vetoes the navigation.
	BeforeViewChange(*ViewChangeEvent) bool

	// AfterViewChange runs after the target view's Enter has returned.
	AfterViewChange(*ViewChangeEvent)
}

// ViewOption modifies a view registration.
type ViewOption interface {
	applyViewOption(*viewOptions)
}

type viewOptions struct {
	errorView bool
	forUIs    []reflect.Type
}

// AsErrorView marks a view as the navigation fallback for unknown view
// names. At most one view may be registered as the error view; a second
// registration fails the injector build.
func AsErrorView() ViewOption {
	return errorViewOption{}
}

type errorViewOption struct{}

func (errorViewOption) applyViewOption(o *viewOptions) {
	o.errorView = true
}

// ForUIs restricts a view to the given UI types. Navigation to the view
// from any other UI falls back to the error view. Without this option a
// view is reachable from every UI.
//
// UI types are the constructor result types of registered UIs, typically
// obtained with guice.TypeOf:
//
//	c.RegisterView("orders", NewOrderView, guice.ForUIs(guice.TypeOf[*AdminUI]()))
func ForUIs(uiTypes ...reflect.Type) ViewOption {
	return forUIsOption(uiTypes)
}

type forUIsOption []reflect.Type

func (o forUIsOption) applyViewOption(opts *viewOptions) {
	opts.forUIs = append(opts.forUIs, o...)
}

// uiRegistration records a UI constructor bound to a request path.
type uiRegistration struct {
	path        string
	constructor any
	key         Key
}

// viewRegistration records a view constructor under its navigation name.
type viewRegistration struct {
	name        string
	constructor any
	key         Key
	errorView   bool
	forUIs      []reflect.Type
}

func (r *viewRegistration) appliesTo(uiType reflect.Type) bool {
	if len(r.forUIs) == 0 {
		return true
	}
	for _, t := range r.forUIs {
		if t == uiType {
			return true
		}
	}
	return false
}

// listenerRegistration records a view-change listener constructor,
// optionally restricted to particular UI types.
type listenerRegistration struct {
	constructor any
	key         Key
	forUIs      []reflect.Type
}

func (r *listenerRegistration) appliesTo(uiType reflect.Type) bool {
	if len(r.forUIs) == 0 {
		return true
	}
	for _, t := range r.forUIs {
		if t == uiType {
			return true
		}
	}
	return false
}
