package services

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"mnemo/application/ports"
	"mnemo/domain/config"
	"mnemo/domain/core/aggregates"
	domainevents "mnemo/domain/events"
	"mnemo/pkg/errors"
	"mnemo/pkg/extensions"
)

// RetentionService enforces the retention window and handles
// snapshot backup and restore.
type RetentionService struct {
	store  ports.EventStore
	graph  *aggregates.MemoryGraph
	hooks  *extensions.HookManager
	cfg    *config.MemoryConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewRetentionService creates a retention service
func NewRetentionService(store ports.EventStore, graph *aggregates.MemoryGraph, hooks *extensions.HookManager, cfg *config.MemoryConfig, logger *zap.Logger) *RetentionService {
	return &RetentionService{
		store:  store,
		graph:  graph,
		hooks:  hooks,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// emit runs registered lifecycle hooks; failures are logged only
func (s *RetentionService) emit(ctx context.Context, point extensions.HookPoint, event domainevents.DomainEvent) {
	if s.hooks == nil {
		return
	}
	if err := s.hooks.Execute(ctx, point, event); err != nil {
		s.logger.Warn("lifecycle hook failed",
			zap.String("point", string(point)), zap.Error(err))
	}
}

// Cleanup removes events past the retention window and rebuilds the
// graph from what survives. Returns the number of events removed.
func (s *RetentionService) Cleanup(ctx context.Context) (int, error) {
	cutoff := s.now().AddDate(0, 0, -s.cfg.RetentionDays)

	removed, err := s.store.CleanupOlderThan(ctx, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "retention cleanup failed")
	}
	if removed == 0 {
		return 0, nil
	}

	remaining, err := s.store.GetRecentEvents(ctx, s.cfg.RetentionDays, 0)
	if err != nil {
		return removed, errors.Wrap(err, "failed to reload events after cleanup")
	}
	s.graph.Rebuild(remaining)

	s.logger.Info("retention cleanup complete",
		zap.Int("removed", removed),
		zap.Time("cutoff", cutoff),
		zap.Int("remaining", len(remaining)),
	)
	s.emit(ctx, extensions.HookAfterCleanup, domainevents.NewEventsPruned(removed, cutoff, s.now()))
	return removed, nil
}

// Backup writes a full store snapshot to w
func (s *RetentionService) Backup(ctx context.Context, w io.Writer) error {
	if err := s.store.Backup(ctx, w); err != nil {
		return errors.Wrap(err, "backup failed")
	}
	return nil
}

// Restore replaces the store from a snapshot and rebuilds the graph
func (s *RetentionService) Restore(ctx context.Context, r io.Reader) error {
	if err := s.store.Restore(ctx, r); err != nil {
		return errors.Wrap(err, "restore failed")
	}
	events, err := s.store.GetRecentEvents(ctx, s.cfg.RetentionDays, 0)
	if err != nil {
		return errors.Wrap(err, "failed to reload events after restore")
	}
	s.graph.Rebuild(events)

	s.logger.Info("store restored", zap.Int("events", len(events)))
	s.emit(ctx, extensions.HookAfterRestore, domainevents.NewStoreRestored(len(events), s.now()))
	return nil
}
