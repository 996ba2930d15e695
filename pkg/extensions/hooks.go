// Package extensions provides lifecycle hook points for observing the
// memory pipeline without coupling consumers to the engine.
package extensions

import (
	"context"
	"fmt"
	"sync"

	"mnemo/domain/events"
)

// HookPoint represents a point in the pipeline where hooks can be registered
type HookPoint string

const (
	// Ingestion hooks
	HookAfterEventRecorded HookPoint = "after_event_recorded"

	// Reflection hooks
	HookAfterReflectionGenerated HookPoint = "after_reflection_generated"

	// Maintenance hooks
	HookAfterCleanup       HookPoint = "after_cleanup"
	HookAfterRestore       HookPoint = "after_restore"
	HookAfterRecalibration HookPoint = "after_recalibration"
)

// Hook is a function executed at a hook point. Hooks observe completed
// operations; a hook error is reported but cannot undo the operation.
type Hook func(ctx context.Context, event events.DomainEvent) error

// HookManager manages hooks for extension points.
// Safe for concurrent registration and execution.
type HookManager struct {
	hooks map[HookPoint][]Hook
	mu    sync.RWMutex
}

// NewHookManager creates a new hook manager
func NewHookManager() *HookManager {
	return &HookManager{
		hooks: make(map[HookPoint][]Hook),
	}
}

// Register registers a hook for a specific hook point
func (m *HookManager) Register(point HookPoint, hook Hook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks[point] = append(m.hooks[point], hook)
}

// Execute runs all hooks for a hook point in registration order.
// The first hook error stops the chain and is returned.
func (m *HookManager) Execute(ctx context.Context, point HookPoint, event events.DomainEvent) error {
	m.mu.RLock()
	hooks := m.hooks[point]
	m.mu.RUnlock()

	for i, hook := range hooks {
		if err := hook(ctx, event); err != nil {
			return fmt.Errorf("hook %d at %s failed: %w", i, point, err)
		}
	}
	return nil
}

// Clear removes all hooks for a specific hook point
func (m *HookManager) Clear(point HookPoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.hooks, point)
}

// ClearAll removes all registered hooks
func (m *HookManager) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = make(map[HookPoint][]Hook)
}
