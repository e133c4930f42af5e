package guice

import (
	"fmt"

	"github.com/berndhopp/guice/internal/graph"
)

// scopeRank orders lifetimes from widest to narrowest. Transient sits
// outside the order: transient instances belong to no scope, so they may
// be injected anywhere and may depend on anything available at resolution
// time.
func scopeRank(l Lifetime) int {
	switch l {
	case Singleton:
		return 0
	case SessionScoped:
		return 1
	case UIScoped:
		return 2
	case ViewScoped:
		return 3
	default:
		return 4
	}
}

// validate checks the effective binding set before the injector is built:
// every dependency is bound, no binding depends on a narrower scope, the
// graph is acyclic, at most one view is the error view, and every ForUIs
// restriction names a registered UI type.
func validate(c *collection, bindings map[Key]*binding) error {
	g := graph.New[Key]()

	for _, b := range bindings {
		var deps []Key

		for _, param := range b.ctor.Params {
			switch param {
			case injectorPtrType, sessionManagerPtrType:
				continue
			case sessionPtrType:
				if b.lifetime == Singleton {
					return LifetimeConflictError{
						Key:                b.key,
						Lifetime:           Singleton,
						DependencyKey:      Key{Type: sessionPtrType},
						DependencyLifetime: SessionScoped,
					}
				}
				continue
			}

			depKey := Key{Type: param}
			dep, ok := bindings[depKey]
			if !ok {
				return MissingBindingError{Key: depKey, RequiredBy: b.key}
			}

			if b.lifetime == Singleton && dep.lifetime != Singleton {
				return LifetimeConflictError{
					Key:                b.key,
					Lifetime:           b.lifetime,
					DependencyKey:      dep.key,
					DependencyLifetime: dep.lifetime,
				}
			}

			if b.lifetime != Transient && dep.lifetime != Transient &&
				scopeRank(dep.lifetime) > scopeRank(b.lifetime) {
				return LifetimeConflictError{
					Key:                b.key,
					Lifetime:           b.lifetime,
					DependencyKey:      dep.key,
					DependencyLifetime: dep.lifetime,
				}
			}

			deps = append(deps, depKey)
		}

		g.AddNode(b.key, deps)
	}

	if cycle, found := g.FindCycle(); found {
		return CircularDependencyError{Path: cycle}
	}

	var errorView string
	haveErrorView := false
	for _, reg := range c.views {
		if !reg.errorView {
			continue
		}
		if haveErrorView {
			first, second := errorView, reg.name
			if second < first {
				first, second = second, first
			}
			return DuplicateErrorViewError{First: first, Second: second}
		}
		errorView = reg.name
		haveErrorView = true
	}

	uiTypes := make(map[Key]bool, len(c.uis))
	for _, reg := range c.uis {
		uiTypes[reg.key] = true
	}

	for _, reg := range c.views {
		for _, t := range reg.forUIs {
			if !uiTypes[Key{Type: t}] {
				return fmt.Errorf("view %q is restricted to %s, which is not a registered UI type",
					reg.name, formatType(t))
			}
		}
	}
	for _, reg := range c.listeners {
		for _, t := range reg.forUIs {
			if !uiTypes[Key{Type: t}] {
				return fmt.Errorf("view-change listener %s is restricted to %s, which is not a registered UI type",
					formatType(reg.key.Type), formatType(t))
			}
		}
	}

	return nil
}
