//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"context"

	"github.com/google/wire"

	"github.com/zeusync/dominari/internal/app"
	"github.com/zeusync/dominari/internal/config"
)

// Initialize assembles the whole process from cfg.
func Initialize(ctx context.Context, cfg config.Config) (*app.App, func(), error) {
	wire.Build(ProviderSet)
	return nil, nil, nil
}
