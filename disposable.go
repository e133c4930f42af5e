package guice

import "errors"

// Disposable marks a scoped instance as owning resources that must be
// released when its session is destroyed. The session manager closes
// disposable instances cached in any scope when the owning session ends;
// the navigator does the same for view-scoped instances when navigating
// away from a view.
//
// Example:
//
//	type SearchState struct {
//	    cursor *db.Cursor
//	}
//
//	func (s *SearchState) Close() error {
//	    return s.cursor.Close()
//	}
type Disposable interface {
	Close() error
}

// disposeAll closes every instance that implements Disposable and joins
// the errors.
func disposeAll(instances []any) error {
	var errs []error
	for _, instance := range instances {
		if d, ok := instance.(Disposable); ok {
			if err := d.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}
