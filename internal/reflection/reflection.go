// Package reflection analyzes constructor functions for the injector.
// Analysis results are cached per function pointer since constructors are
// analyzed repeatedly during graph validation and resolution.
package reflection

import (
	"fmt"
	"reflect"
	"sync"
)

var errType = reflect.TypeOf((*error)(nil)).Elem()

// Constructor holds the analyzed shape of a constructor function.
type Constructor struct {
	// Func is the callable constructor value.
	Func reflect.Value

	// Type is the function type of the constructor.
	Type reflect.Type

	// Params are the constructor's parameter types in declaration order.
	Params []reflect.Type

	// Result is the produced type, the first return value.
	Result reflect.Type

	// ReturnsError is true when the constructor has a trailing error return.
	ReturnsError bool
}

// Analyzer analyzes constructor functions and caches the results.
type Analyzer struct {
	mu    sync.RWMutex
	cache map[uintptr]*Constructor
}

// NewAnalyzer creates an empty analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{cache: make(map[uintptr]*Constructor)}
}

// Analyze inspects a constructor function. Valid constructors are plain
// functions returning either (T) or (T, error) where T is not error.
func (a *Analyzer) Analyze(constructor any) (*Constructor, error) {
	if constructor == nil {
		return nil, fmt.Errorf("constructor cannot be nil")
	}

	val := reflect.ValueOf(constructor)
	if !val.IsValid() || (val.Kind() == reflect.Func && val.IsNil()) {
		return nil, fmt.Errorf("constructor cannot be nil")
	}

	typ := val.Type()
	if typ.Kind() != reflect.Func {
		return nil, fmt.Errorf("constructor must be a function, got %s", typ)
	}
	if typ.IsVariadic() {
		return nil, fmt.Errorf("constructor %s must not be variadic", typ)
	}

	key := val.Pointer()

	a.mu.RLock()
	cached, ok := a.cache[key]
	a.mu.RUnlock()
	if ok {
		return cached, nil
	}

	info := &Constructor{
		Func: val,
		Type: typ,
	}

	switch typ.NumOut() {
	case 1:
		info.Result = typ.Out(0)
	case 2:
		if !typ.Out(1).Implements(errType) {
			return nil, fmt.Errorf("constructor %s: second return value must be error", typ)
		}
		info.Result = typ.Out(0)
		info.ReturnsError = true
	default:
		return nil, fmt.Errorf("constructor %s must return (T) or (T, error)", typ)
	}

	if info.Result.Implements(errType) && info.Result == errType {
		return nil, fmt.Errorf("constructor %s must produce a non-error value", typ)
	}

	info.Params = make([]reflect.Type, typ.NumIn())
	for i := 0; i < typ.NumIn(); i++ {
		info.Params[i] = typ.In(i)
	}

	a.mu.Lock()
	a.cache[key] = info
	a.mu.Unlock()

	return info, nil
}

// Call invokes the constructor with the given arguments and unpacks the
// (T) or (T, error) return convention.
func (c *Constructor) Call(args []reflect.Value) (any, error) {
	results := c.Func.Call(args)

	if c.ReturnsError {
		if errVal := results[1]; !errVal.IsNil() {
			return nil, errVal.Interface().(error)
		}
	}

	return results[0].Interface(), nil
}
