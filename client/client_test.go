package client_test

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/xraph/taskhub"
	"github.com/xraph/taskhub/client"
	"github.com/xraph/taskhub/hosting"
)

type namedClient struct{ name string }

func (c *namedClient) Name() string { return c.name }

func (c *namedClient) Init(b hosting.ClientBinding) error {
	c.name = b.Name
	return nil
}

func provider(names ...string) *client.Provider {
	containers := make([]client.Container, 0, len(names))
	for _, n := range names {
		containers = append(containers, client.NewContainer(n, &namedClient{name: n}))
	}
	return client.NewProvider(containers...)
}

func TestGetClientByName(t *testing.T) {
	p := provider("B", "A", taskhub.DefaultName)

	for _, name := range []string{"A", "B"} {
		c, err := p.GetClient(name)
		if err != nil {
			t.Fatalf("GetClient(%q): %v", name, err)
		}
		if c.Name() != name {
			t.Fatalf("GetClient(%q) returned %q", name, c.Name())
		}
	}

	def, err := p.GetClient()
	if err != nil {
		t.Fatalf("GetClient(): %v", err)
	}
	if def.Name() != taskhub.DefaultName {
		t.Fatalf("default client = %q", def.Name())
	}
	if d2, _ := p.Default(); d2 != def {
		t.Fatal("Default differs from GetClient()")
	}
}

func TestGetClientMiss(t *testing.T) {
	p := provider("B", "A")

	_, err := p.GetClient("C")
	if !errors.Is(err, taskhub.ErrUnknownClient) {
		t.Fatalf("got %v, want ErrUnknownClient", err)
	}
	var lerr *taskhub.LookupError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected LookupError, got %T", err)
	}
	if lerr.Name != "C" || !slices.Equal(lerr.Known, []string{"A", "B"}) {
		t.Fatalf("LookupError = %+v", lerr)
	}
	if !strings.Contains(err.Error(), `"A", "B"`) {
		t.Fatalf("message %q does not list the known clients", err)
	}
}

func TestGetClientIsCaseSensitive(t *testing.T) {
	p := provider("Orders")
	if _, err := p.GetClient("orders"); !errors.Is(err, taskhub.ErrUnknownClient) {
		t.Fatalf("got %v, want ErrUnknownClient", err)
	}
}

func TestDefaultMissing(t *testing.T) {
	p := provider("A")
	_, err := p.Default()
	var lerr *taskhub.LookupError
	if !errors.As(err, &lerr) || lerr.Name != taskhub.DefaultName {
		t.Fatalf("got %v", err)
	}
}

func TestEmptyProvider(t *testing.T) {
	p := client.NewProvider()
	if p.Len() != 0 || len(p.Names()) != 0 {
		t.Fatal("expected empty provider")
	}
	if _, err := p.GetClient("x"); !errors.Is(err, taskhub.ErrUnknownClient) {
		t.Fatalf("got %v", err)
	}
}

func TestGetTyped(t *testing.T) {
	p := provider("A")
	c, err := client.Get[*namedClient](p, "A")
	if err != nil || c.Name() != "A" {
		t.Fatalf("Get = %v, %v", c, err)
	}
	if _, err := client.Get[*hosting.HubClient](p, "A"); err == nil {
		t.Fatal("expected type mismatch error")
	}
}

func TestConcurrentLookups(t *testing.T) {
	p := provider("A", "B", "C")
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := []string{"A", "B", "C"}[i%3]
			if c, err := p.GetClient(name); err != nil || c.Name() != name {
				t.Errorf("GetClient(%q) = %v, %v", name, c, err)
			}
		}()
	}
	wg.Wait()
}
