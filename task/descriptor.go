package task

import (
	"fmt"
	"reflect"

	"github.com/xraph/taskhub/resolve"
)

// OrchestrationDescriptor registers an orchestration under Name and Version.
// New is called once per dispatch with the dispatch-scoped resolver.
type OrchestrationDescriptor struct {
	Name    string
	Version string
	New     func(r resolve.Resolver) (Orchestration, error)
}

// ActivityDescriptor registers an activity under Name and Version.
type ActivityDescriptor struct {
	Name    string
	Version string
	New     func(r resolve.Resolver) (Activity, error)
}

// Validate reports a descriptor that cannot be dispatched.
func (d OrchestrationDescriptor) Validate() error { return validate("orchestration", d.Name, d.New == nil) }

// Validate reports a descriptor that cannot be dispatched.
func (d ActivityDescriptor) Validate() error { return validate("activity", d.Name, d.New == nil) }

func validate(kind, name string, noCtor bool) error {
	if name == "" {
		return fmt.Errorf("%s descriptor has no name", kind)
	}
	if noCtor {
		return fmt.Errorf("%s descriptor %q has no constructor", kind, name)
	}
	return nil
}

// DescriptorOption overrides a descriptor's default name or version.
type DescriptorOption func(name, version *string)

// WithName overrides the default name.
func WithName(name string) DescriptorOption {
	return func(n, _ *string) { *n = name }
}

// WithVersion sets the version.
func WithVersion(version string) DescriptorOption {
	return func(_, v *string) { *v = version }
}

// DefaultName derives a task name from T: the package path and type name,
// with pointers dereferenced.
func DefaultName[T any]() string {
	return nameOf(reflect.TypeFor[T]())
}

func nameOf(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	if t.PkgPath() == "" {
		return t.Name()
	}
	return t.PkgPath() + "." + t.Name()
}

func naming(defaultName string, opts []DescriptorOption) (string, string) {
	name, version := defaultName, ""
	for _, opt := range opts {
		opt(&name, &version)
	}
	return name, version
}

// OrchestrationOf describes the orchestration type T. Each dispatch resolves
// T from the dispatch scope, or uses a zero value when T is an unregistered
// struct pointer.
func OrchestrationOf[T Orchestration](opts ...DescriptorOption) OrchestrationDescriptor {
	name, version := naming(DefaultName[T](), opts)
	return OrchestrationDescriptor{
		Name:    name,
		Version: version,
		New: func(r resolve.Resolver) (Orchestration, error) {
			v, err := resolve.ResolveOrCreate[T](r)
			if err != nil {
				return nil, err
			}
			return v, nil
		},
	}
}

// ActivityOf describes the activity type T.
func ActivityOf[T Activity](opts ...DescriptorOption) ActivityDescriptor {
	name, version := naming(DefaultName[T](), opts)
	return ActivityDescriptor{
		Name:    name,
		Version: version,
		New: func(r resolve.Resolver) (Activity, error) {
			v, err := resolve.ResolveOrCreate[T](r)
			if err != nil {
				return nil, err
			}
			return v, nil
		},
	}
}

// OrchestrationFromFunc describes a function orchestration.
func OrchestrationFromFunc(name, version string, fn OrchestrationFunc) OrchestrationDescriptor {
	return OrchestrationDescriptor{
		Name:    name,
		Version: version,
		New:     func(resolve.Resolver) (Orchestration, error) { return fn, nil },
	}
}

// ActivityFromFunc describes a function activity.
func ActivityFromFunc(name, version string, fn ActivityFunc) ActivityDescriptor {
	return ActivityDescriptor{
		Name:    name,
		Version: version,
		New:     func(resolve.Resolver) (Activity, error) { return fn, nil },
	}
}
