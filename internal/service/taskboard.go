package service

import (
	"context"
	"fmt"

	"github.com/switchboard-hq/switchboard/internal/domain"
	"github.com/switchboard-hq/switchboard/internal/domain/task"
	"github.com/switchboard-hq/switchboard/internal/port/broadcast"
	"github.com/switchboard-hq/switchboard/internal/port/store"
)

// TaskService handles the per-agent task board. The board is a label store,
// not a state machine: any status string round-trips, and transition legality
// is the caller's business.
type TaskService struct {
	store store.Store
	hub   broadcast.Broadcaster
}

// NewTaskService creates a new TaskService.
func NewTaskService(st store.Store, hub broadcast.Broadcaster) *TaskService {
	return &TaskService{store: st, hub: hub}
}

// Create inserts a pending task under the caller-supplied ID. Duplicate IDs
// are rejected with domain.ErrConflict.
func (s *TaskService) Create(ctx context.Context, req task.CreateRequest) (*task.Task, error) {
	if req.ID == "" {
		return nil, fmt.Errorf("%w: id is required", domain.ErrValidation)
	}
	if req.Agent == "" {
		return nil, fmt.Errorf("%w: agent is required", domain.ErrValidation)
	}
	if req.Description == "" {
		return nil, fmt.Errorf("%w: description is required", domain.ErrValidation)
	}
	t, err := s.store.CreateTask(ctx, req)
	if err != nil {
		return nil, err
	}
	record(ctx, s.store, s.hub, "task_created", map[string]any{
		"task_id": t.ID,
		"agent":   t.Agent,
		"content": t.Description,
	})
	return t, nil
}

// Get returns a task by ID.
func (s *TaskService) Get(ctx context.Context, id string) (*task.Task, error) {
	return s.store.GetTask(ctx, id)
}

// ListAll returns every task, newest first.
func (s *TaskService) ListAll(ctx context.Context) ([]task.Task, error) {
	return s.store.ListTasks(ctx)
}

// ListForAgent returns one agent's tasks, newest first.
func (s *TaskService) ListForAgent(ctx context.Context, agentName string) ([]task.Task, error) {
	return s.store.ListTasksForAgent(ctx, agentName)
}

// ListPendingForAgent returns the agent's pending work queue, oldest first.
func (s *TaskService) ListPendingForAgent(ctx context.Context, agentName string) ([]task.Task, error) {
	return s.store.ListPendingTasks(ctx, agentName)
}

// Update applies a partial update; omitted fields keep their prior value and
// updated_at always refreshes.
func (s *TaskService) Update(ctx context.Context, id string, req task.UpdateRequest) (*task.Task, error) {
	t, err := s.store.UpdateTask(ctx, id, req)
	if err != nil {
		return nil, err
	}
	record(ctx, s.store, s.hub, "task_updated", map[string]any{
		"task_id": t.ID,
		"agent":   t.Agent,
		"status":  string(t.Status),
	})
	return t, nil
}
