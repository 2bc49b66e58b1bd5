package builder

import (
	"fmt"
	"reflect"

	"github.com/xraph/taskhub"
)

// checkTarget verifies that t is a pointer to a struct implementing iface.
func checkTarget(hub string, t, iface reflect.Type) error {
	switch {
	case t == nil:
		return &taskhub.ConfigurationError{Hub: hub, Op: "set build target", Err: taskhub.ErrInvalidBuildTarget, Detail: "nil type"}
	case t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct:
		return &taskhub.ConfigurationError{Hub: hub, Op: "set build target", Err: taskhub.ErrInvalidBuildTarget,
			Detail: fmt.Sprintf("%s is not a pointer to a struct", t)}
	case !t.Implements(iface):
		return &taskhub.ConfigurationError{Hub: hub, Op: "set build target", Err: taskhub.ErrInvalidBuildTarget,
			Detail: fmt.Sprintf("%s does not implement %s", t, iface)}
	}
	return nil
}

// instantiate allocates a zero value of the pointer type t.
func instantiate[I any](t reflect.Type) I {
	return reflect.New(t.Elem()).Interface().(I)
}
