package service

import (
	"context"
	"fmt"

	"github.com/switchboard-hq/switchboard/internal/domain"
	"github.com/switchboard-hq/switchboard/internal/port/store"
)

// ContextService handles the shared (owner, key) -> value scratch space.
type ContextService struct {
	store store.Store
}

// NewContextService creates a new ContextService.
func NewContextService(st store.Store) *ContextService {
	return &ContextService{store: st}
}

// Set stores a value, last write wins.
func (s *ContextService) Set(ctx context.Context, owner, key, value string) error {
	if owner == "" {
		return fmt.Errorf("%w: owner is required", domain.ErrValidation)
	}
	if key == "" {
		return fmt.Errorf("%w: key is required", domain.ErrValidation)
	}
	return s.store.SetContext(ctx, owner, key, value)
}

// Get returns the stored value; a missing key is domain.ErrNotFound, which is
// distinct from a stored empty string.
func (s *ContextService) Get(ctx context.Context, owner, key string) (string, error) {
	return s.store.GetContext(ctx, owner, key)
}
