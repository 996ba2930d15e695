//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"mnemo/application/ports"
	appservices "mnemo/application/services"
	domainconfig "mnemo/domain/config"
	"mnemo/domain/core/aggregates"
	"mnemo/infrastructure/config"
	"mnemo/pkg/extensions"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	MemoryConfig *domainconfig.MemoryConfig
	Logger       *zap.Logger
	Store        ports.EventStore
	Graph        *aggregates.MemoryGraph
	Cache        ports.Cache
	Hooks        *extensions.HookManager
	Engine       *appservices.RecallEngine
	Retention    *appservices.RetentionService
}

// Shutdown releases background resources held by the container
func (c *Container) Shutdown() {
	if closer, ok := c.Cache.(interface{ Close() }); ok {
		closer.Close()
	}
	_ = c.Logger.Sync()
}

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideMemoryConfig,
	ProvideEventStore,
	ProvideMemoryGraph,
	ProvideEmotionTagger,
	ProvideSalienceScorer,
	ProvideReflectionAgent,
	ProvideCache,
	ProvideHookManager,
	ProvideRecallEngine,
	ProvideRetentionService,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
