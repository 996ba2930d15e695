package di

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"mnemo/application/ports"
	appservices "mnemo/application/services"
	domainconfig "mnemo/domain/config"
	"mnemo/domain/core/aggregates"
	domainevents "mnemo/domain/events"
	domainservices "mnemo/domain/services"
	"mnemo/infrastructure/config"
	dynamostore "mnemo/infrastructure/persistence/dynamodb"
	"mnemo/infrastructure/persistence/memorystore"
	"mnemo/pkg/extensions"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	if cfg.IsProduction() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	return logger, nil
}

// ProvideMemoryConfig builds the domain configuration with overrides
func ProvideMemoryConfig(cfg *config.Config) (*domainconfig.MemoryConfig, error) {
	return cfg.MemoryConfig()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventStore selects the store driver from configuration.
// The memory driver needs no AWS access and is the default.
func ProvideEventStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.EventStore, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return memorystore.New(logger), nil
	case config.DriverDynamoDB:
		awsCfg, err := ProvideAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return dynamostore.NewStore(ProvideDynamoDBClient(awsCfg), cfg.DynamoDBTable, cfg.DateIndexName, logger), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// ProvideMemoryGraph creates the in-memory relationship graph
func ProvideMemoryGraph(mc *domainconfig.MemoryConfig, logger *zap.Logger) *aggregates.MemoryGraph {
	return aggregates.NewMemoryGraph(mc, logger)
}

// ProvideEmotionTagger creates the emotion analysis service
func ProvideEmotionTagger(logger *zap.Logger) *domainservices.EmotionTagger {
	return domainservices.NewEmotionTagger(logger)
}

// ProvideSalienceScorer creates the salience scoring service
func ProvideSalienceScorer(mc *domainconfig.MemoryConfig, logger *zap.Logger) (*domainservices.SalienceScorer, error) {
	return domainservices.NewSalienceScorer(mc, logger)
}

// ProvideReflectionAgent creates the reflection service
func ProvideReflectionAgent(mc *domainconfig.MemoryConfig, logger *zap.Logger) *domainservices.ReflectionAgent {
	return domainservices.NewReflectionAgent(mc.MinReflectionEvents, logger)
}

// ProvideCache creates a process-local analysis cache
func ProvideCache() ports.Cache {
	return NewAnalysisCache()
}

// ProvideHookManager creates the lifecycle hook registry and installs
// the built-in hooks: a new recorded event invalidates cached pattern
// reports.
func ProvideHookManager(cache ports.Cache) *extensions.HookManager {
	hooks := extensions.NewHookManager()
	hooks.Register(extensions.HookAfterEventRecorded, func(ctx context.Context, _ domainevents.DomainEvent) error {
		return cache.Clear(ctx)
	})
	hooks.Register(extensions.HookAfterRestore, func(ctx context.Context, _ domainevents.DomainEvent) error {
		return cache.Clear(ctx)
	})
	return hooks
}

// ProvideRecallEngine wires the orchestrator
func ProvideRecallEngine(
	store ports.EventStore,
	graph *aggregates.MemoryGraph,
	tagger *domainservices.EmotionTagger,
	scorer *domainservices.SalienceScorer,
	reflector *domainservices.ReflectionAgent,
	cache ports.Cache,
	hooks *extensions.HookManager,
	mc *domainconfig.MemoryConfig,
	logger *zap.Logger,
) *appservices.RecallEngine {
	return appservices.NewRecallEngine(store, graph, tagger, scorer, reflector, cache, hooks, mc, logger)
}

// ProvideRetentionService wires retention and snapshot handling
func ProvideRetentionService(
	store ports.EventStore,
	graph *aggregates.MemoryGraph,
	hooks *extensions.HookManager,
	mc *domainconfig.MemoryConfig,
	logger *zap.Logger,
) *appservices.RetentionService {
	return appservices.NewRetentionService(store, graph, hooks, mc, logger)
}
