package guice

import (
	"fmt"
	"reflect"

	"github.com/berndhopp/guice/internal/reflection"
)

// Key uniquely identifies a binding: the produced type plus an optional
// name for named bindings.
type Key struct {
	Type reflect.Type
	Name string
}

// String returns a readable representation for error messages.
func (k Key) String() string {
	if k.Name != "" {
		return fmt.Sprintf("%s[%s]", formatType(k.Type), k.Name)
	}
	return formatType(k.Type)
}

// KeyOf returns the binding key for type T.
func KeyOf[T any]() Key {
	return Key{Type: TypeOf[T]()}
}

// NamedKeyOf returns the binding key for type T under the given name.
func NamedKeyOf[T any](name string) Key {
	return Key{Type: TypeOf[T](), Name: name}
}

// TypeOf returns the reflect.Type for a type parameter.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// binding associates a Key with a constructor and a lifetime. Bindings are
// recorded by a Collection and become immutable once the injector is built.
type binding struct {
	key         Key
	lifetime    Lifetime
	constructor any
	module      string
	override    bool

	// set during Build
	ctor *reflection.Constructor
}

func (b *binding) String() string {
	return fmt.Sprintf("binding{%s, %s, module:%q}", b.key, b.lifetime, b.module)
}
