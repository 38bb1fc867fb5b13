package entity

import (
	"fmt"
	"reflect"
	"sync"
)

var constructors sync.Map // reflect.Type -> func() Entity

// Register sets the constructor used to create related entities of the
// type ctor returns. Types that are not registered are created with
// reflect.New.
func Register(ctor func() Entity) {
	constructors.Store(reflect.TypeOf(ctor()), ctor)
}

func instantiate(t reflect.Type) (Entity, error) {
	if ctor, ok := constructors.Load(t); ok {
		return ctor.(func() Entity)(), nil
	}

	if !IsEntityType(t) {
		return nil, fmt.Errorf("%s is not an entity type", t)
	}

	return reflect.New(t.Elem()).Interface().(Entity), nil
}
