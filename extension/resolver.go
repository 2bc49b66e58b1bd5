package extension

import (
	"fmt"
	"reflect"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/taskhub/orchestration"
	"github.com/xraph/taskhub/resolve"
)

// appResolver exposes the engine surfaces registered in the Forge DI
// container to hub builders. Only the types in lookups are consulted; a
// failed lookup is reported as not registered.
type appResolver struct {
	lookups map[reflect.Type]func() (any, error)
}

var _ resolve.Resolver = (*appResolver)(nil)

func newAppResolver(fapp forge.App) *appResolver {
	return &appResolver{lookups: map[reflect.Type]func() (any, error){
		reflect.TypeFor[orchestration.Service](): inject[orchestration.Service](fapp),
		reflect.TypeFor[orchestration.Client]():  inject[orchestration.Client](fapp),
	}}
}

func inject[T any](fapp forge.App) func() (any, error) {
	return func() (any, error) {
		v, err := vessel.Inject[T](fapp.Container())
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

// Resolve implements resolve.Resolver.
func (r *appResolver) Resolve(t reflect.Type) (any, error) {
	lookup, ok := r.lookups[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", resolve.ErrNotFound, t)
	}
	v, err := lookup()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", resolve.ErrNotFound, t, err)
	}
	return v, nil
}
