// Package hosting defines the build targets a hub produces and the default
// implementations of them.
//
// A worker builder instantiates its target with reflect.New and hands it a
// WorkerBinding through Init; a client builder does the same with a
// ClientBinding. Applications that need their own host integration set a
// custom target type; everyone else gets HubWorker and HubClient.
package hosting

import (
	"context"
	"log/slog"

	"github.com/xraph/taskhub"
	"github.com/xraph/taskhub/ext"
	"github.com/xraph/taskhub/orchestration"
	"github.com/xraph/taskhub/resolve"
	"github.com/xraph/taskhub/worker"
)

// Worker is a built worker hub as seen by the host process.
type Worker interface {
	Name() string
	Init(b WorkerBinding) error
	Start(ctx context.Context) error
	// Stop stops the hub. When ctx is done before the engine stops, Stop
	// returns without waiting for it.
	Stop(ctx context.Context) error
}

// Client is a built client hub.
type Client interface {
	Name() string
	Init(b ClientBinding) error
}

// WorkerBinding is everything a worker target receives at build time.
type WorkerBinding struct {
	Name       string
	Worker     *worker.Worker
	Resolver   resolve.Resolver
	Logger     *slog.Logger
	Config     taskhub.Config
	Extensions *ext.Registry
}

// ClientBinding is everything a client target receives at build time.
type ClientBinding struct {
	Name       string
	Client     orchestration.Client
	Resolver   resolve.Resolver
	Logger     *slog.Logger
	Extensions *ext.Registry
}

func (b *WorkerBinding) defaults() {
	if b.Logger == nil {
		b.Logger = slog.Default()
	}
	if b.Extensions == nil {
		b.Extensions = ext.NewRegistry(b.Logger)
	}
}

func (b *ClientBinding) defaults() {
	if b.Logger == nil {
		b.Logger = slog.Default()
	}
	if b.Extensions == nil {
		b.Extensions = ext.NewRegistry(b.Logger)
	}
}
