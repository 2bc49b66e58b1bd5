package resolve_test

import (
	"errors"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/xraph/taskhub/resolve"
)

type counter struct{ n int }

type closer struct {
	name   string
	closed *[]string
}

func (c *closer) Close() error {
	*c.closed = append(*c.closed, c.name)
	return nil
}

type other struct{ name string }

func TestContainer_SingletonResolvedOnce(t *testing.T) {
	c := resolve.NewContainer()
	var calls atomic.Int32
	resolve.Provide(c, resolve.Singleton, func(resolve.Resolver) (*counter, error) {
		calls.Add(1)
		return &counter{}, nil
	})

	a, err := resolve.Resolve[*counter](c)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	b, _ := resolve.Resolve[*counter](c)
	if a != b {
		t.Error("singleton should resolve to the same instance")
	}

	s, _ := c.NewScope()
	defer s.Close()
	inScope, _ := resolve.Resolve[*counter](s)
	if inScope != a {
		t.Error("singleton resolved from a scope should be the root instance")
	}
	if calls.Load() != 1 {
		t.Errorf("factory calls = %d, want 1", calls.Load())
	}
}

func TestContainer_ScopedPerScope(t *testing.T) {
	c := resolve.NewContainer()
	resolve.Provide(c, resolve.Scoped, func(resolve.Resolver) (*counter, error) {
		return &counter{}, nil
	})

	s1, _ := c.NewScope()
	s2, _ := c.NewScope()
	defer s1.Close()
	defer s2.Close()

	a1, _ := resolve.Resolve[*counter](s1)
	a2, _ := resolve.Resolve[*counter](s1)
	b, _ := resolve.Resolve[*counter](s2)
	if a1 != a2 {
		t.Error("scoped service should be stable within a scope")
	}
	if a1 == b {
		t.Error("scoped service should differ across scopes")
	}
}

func TestContainer_Transient(t *testing.T) {
	c := resolve.NewContainer()
	resolve.Provide(c, resolve.Transient, func(resolve.Resolver) (*counter, error) {
		return &counter{}, nil
	})
	a, _ := resolve.Resolve[*counter](c)
	b, _ := resolve.Resolve[*counter](c)
	if a == b {
		t.Error("transient service should be new on every resolution")
	}
}

func TestScope_CloseReleasesScopedInReverseOrder(t *testing.T) {
	c := resolve.NewContainer()
	var closed []string
	resolve.Provide(c, resolve.Scoped, func(resolve.Resolver) (*closer, error) {
		return &closer{name: "first", closed: &closed}, nil
	})
	resolve.Provide(c, resolve.Scoped, func(r resolve.Resolver) (*other, error) {
		if _, err := resolve.Resolve[*closer](r); err != nil {
			return nil, err
		}
		return &other{name: "second"}, nil
	})
	c.Provide(reflect.TypeFor[*counter](), resolve.Scoped, func(resolve.Resolver) (any, error) {
		return &closer{name: "third", closed: &closed}, nil
	})

	s, _ := c.NewScope()
	if _, err := resolve.Resolve[*other](s); err != nil {
		t.Fatalf("resolve other: %v", err)
	}
	if _, err := s.Resolve(reflect.TypeFor[*counter]()); err != nil {
		t.Fatalf("resolve counter: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(closed) != 2 || closed[0] != "third" || closed[1] != "first" {
		t.Errorf("closed = %v, want [third first]", closed)
	}

	if err := s.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
	if len(closed) != 2 {
		t.Errorf("second close released again: %v", closed)
	}
	if _, err := resolve.Resolve[*other](s); !errors.Is(err, resolve.ErrScopeClosed) {
		t.Errorf("resolve after close: got %v, want ErrScopeClosed", err)
	}
}

func TestResolve_NotFound(t *testing.T) {
	c := resolve.NewContainer()
	_, err := resolve.Resolve[*counter](c)
	if !errors.Is(err, resolve.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_, ok, err := resolve.Optional[*counter](c)
	if err != nil || ok {
		t.Errorf("Optional = (_, %v, %v), want (_, false, nil)", ok, err)
	}
}

func TestResolveOrCreate(t *testing.T) {
	got, err := resolve.ResolveOrCreate[*counter](resolve.Empty())
	if err != nil {
		t.Fatalf("ResolveOrCreate: %v", err)
	}
	if got == nil {
		t.Fatal("expected a zero value instance")
	}

	c := resolve.NewContainer()
	want := &counter{n: 7}
	resolve.ProvideValue(c, want)
	got, _ = resolve.ResolveOrCreate[*counter](c)
	if got != want {
		t.Error("registered service should win over a zero value")
	}

	if _, err := resolve.ResolveOrCreate[int](resolve.Empty()); !errors.Is(err, resolve.ErrNotFound) {
		t.Errorf("non-pointer type: got %v, want ErrNotFound", err)
	}
}

func TestNewScope_FallsBackForPlainResolvers(t *testing.T) {
	s, err := resolve.NewScope(resolve.Empty())
	if err != nil {
		t.Fatalf("NewScope: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestTryProvideValue_FirstWins(t *testing.T) {
	c := resolve.NewContainer()
	first, second := &counter{n: 1}, &counter{n: 2}
	if !resolve.TryProvideValue(c, first) {
		t.Fatal("first registration should be added")
	}
	if resolve.TryProvideValue(c, second) {
		t.Fatal("second registration should be skipped")
	}
	got, _ := resolve.Resolve[*counter](c)
	if got != first {
		t.Error("expected the first registration")
	}
}

func TestChildContainer_FallsBackToParent(t *testing.T) {
	parent := resolve.NewContainer()
	resolve.ProvideValue(parent, &other{name: "parent"})
	resolve.ProvideValue(parent, &counter{n: 1})

	child := resolve.NewChildContainer(parent)
	resolve.ProvideValue(child, &counter{n: 2})

	o, err := resolve.Resolve[*other](child)
	if err != nil || o.name != "parent" {
		t.Fatalf("other = %+v, %v; want parent registration", o, err)
	}
	c, _ := resolve.Resolve[*counter](child)
	if c.n != 2 {
		t.Errorf("counter.n = %d, want the child registration", c.n)
	}
	if child.Has(reflect.TypeFor[*other]()) {
		t.Error("Has should report local registrations only")
	}

	s, err := child.NewScope()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if o, err := resolve.Resolve[*other](s); err != nil || o.name != "parent" {
		t.Fatalf("scope: other = %+v, %v", o, err)
	}

	if _, err := resolve.Resolve[string](child); !errors.Is(err, resolve.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
