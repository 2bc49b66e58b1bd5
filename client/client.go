// Package client routes calls to the client hubs of a runtime by name.
//
// A Provider is built once from the runtime's client containers and is
// read-only afterwards, so it can be shared across goroutines. The default
// client is registered under taskhub.DefaultName.
package client

import (
	"fmt"
	"slices"

	"github.com/xraph/taskhub"
	"github.com/xraph/taskhub/hosting"
)

// Container pairs a built client with the hub name it was registered under.
type Container struct {
	name   string
	client hosting.Client
}

// NewContainer returns a container for c registered as name.
func NewContainer(name string, c hosting.Client) Container {
	return Container{name: name, client: c}
}

// Name returns the hub name.
func (c Container) Name() string { return c.name }

// Client returns the built client.
func (c Container) Client() hosting.Client { return c.client }

// Provider looks up built clients by hub name.
type Provider struct {
	containers []Container
}

// NewProvider returns a Provider over containers. When a name appears more
// than once the first container wins.
func NewProvider(containers ...Container) *Provider {
	return &Provider{containers: slices.Clone(containers)}
}

// GetClient returns the client registered under name, or the default
// client when name is omitted. Names match exactly. A miss returns a
// *taskhub.LookupError listing the registered names.
func (p *Provider) GetClient(name ...string) (hosting.Client, error) {
	want := taskhub.DefaultName
	if len(name) > 0 {
		want = name[0]
	}
	for _, c := range p.containers {
		if c.name == want {
			return c.client, nil
		}
	}
	return nil, &taskhub.LookupError{Name: want, Known: p.Names()}
}

// Default returns the default client.
func (p *Provider) Default() (hosting.Client, error) { return p.GetClient() }

// Names returns the registered hub names in sorted order.
func (p *Provider) Names() []string {
	names := make([]string, 0, len(p.containers))
	for _, c := range p.containers {
		names = append(names, c.name)
	}
	slices.Sort(names)
	return slices.Compact(names)
}

// Len returns the number of registered clients.
func (p *Provider) Len() int { return len(p.containers) }

// Get returns the client registered under name as T.
func Get[T hosting.Client](p *Provider, name string) (T, error) {
	var zero T
	c, err := p.GetClient(name)
	if err != nil {
		return zero, err
	}
	t, ok := c.(T)
	if !ok {
		return zero, fmt.Errorf("client %q is %T, not %T", name, c, zero)
	}
	return t, nil
}
