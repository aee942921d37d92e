package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/switchboard-hq/switchboard/internal/domain"
	"github.com/switchboard-hq/switchboard/internal/domain/agent"
	"github.com/switchboard-hq/switchboard/internal/port/broadcast"
	"github.com/switchboard-hq/switchboard/internal/port/store"
)

// RegistryService handles agent identity lifecycle.
type RegistryService struct {
	store store.Store
	hub   broadcast.Broadcaster
}

// NewRegistryService creates a new RegistryService.
func NewRegistryService(st store.Store, hub broadcast.Broadcaster) *RegistryService {
	return &RegistryService{store: st, hub: hub}
}

// Register upserts an agent. Re-registration is idempotent on identity, not
// on timestamps: path, status, metadata, and both timestamps are replaced.
func (s *RegistryService) Register(ctx context.Context, req agent.RegisterRequest) (*agent.Agent, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	a, err := s.store.RegisterAgent(ctx, req)
	if err != nil {
		return nil, err
	}
	record(ctx, s.store, s.hub, "register", map[string]any{"agent": a.Name, "path": a.Path})
	return a, nil
}

// Deregister permanently removes the agent row. Reports whether one existed.
func (s *RegistryService) Deregister(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	removed, err := s.store.DeregisterAgent(ctx, name)
	if err != nil {
		return false, err
	}
	if removed {
		record(ctx, s.store, s.hub, "deregister", map[string]any{"agent": name})
	}
	return removed, nil
}

// MarkInactive flips status to inactive but keeps the row, so the session's
// history stays visible on the dashboard.
func (s *RegistryService) MarkInactive(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	updated, err := s.store.UpdateAgentStatus(ctx, name, agent.StatusInactive)
	if err != nil {
		return err
	}
	if !updated {
		return domain.ErrNotFound
	}
	record(ctx, s.store, s.hub, "deregister", map[string]any{"agent": name, "soft": true})
	return nil
}

// Get returns the agent record by name.
func (s *RegistryService) Get(ctx context.Context, name string) (*agent.Agent, error) {
	return s.store.GetAgent(ctx, name)
}

// ListNames returns all agent names, alphabetical.
func (s *RegistryService) ListNames(ctx context.Context) ([]string, error) {
	return s.store.ListAgentNames(ctx)
}

// UpdateStatus sets the agent status and refreshes last_seen. Returns false
// for an unknown name.
func (s *RegistryService) UpdateStatus(ctx context.Context, name string, status agent.Status) (bool, error) {
	return s.store.UpdateAgentStatus(ctx, name, status)
}

// UpdateMetadata replaces the agent's metadata blob. Returns false for an
// unknown name.
func (s *RegistryService) UpdateMetadata(ctx context.Context, name string, metadata map[string]any) (bool, error) {
	return s.store.UpdateAgentMetadata(ctx, name, metadata)
}

// IsRegistered reports whether the name has a registry row.
func (s *RegistryService) IsRegistered(ctx context.Context, name string) (bool, error) {
	_, err := s.store.GetAgent(ctx, name)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Count returns the number of registered agents.
func (s *RegistryService) Count(ctx context.Context) (int, error) {
	return s.store.CountAgents(ctx)
}
