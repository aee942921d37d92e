// Package store defines the persistence port shared by the durable SQLite
// adapter and the in-memory adapter used in tests.
package store

import (
	"context"

	"github.com/switchboard-hq/switchboard/internal/domain/activity"
	"github.com/switchboard-hq/switchboard/internal/domain/agent"
	"github.com/switchboard-hq/switchboard/internal/domain/message"
	"github.com/switchboard-hq/switchboard/internal/domain/task"
)

// Store is the port interface over the broker's five logical tables. Every
// method is an individually atomic operation; there are no cross-method
// transactions. Implementations report lookup misses as domain.ErrNotFound,
// duplicate task IDs as domain.ErrConflict, and storage-layer failures that
// survive the retry budget as domain.ErrStoreUnavailable.
type Store interface {
	// Agents
	RegisterAgent(ctx context.Context, req agent.RegisterRequest) (*agent.Agent, error)
	DeregisterAgent(ctx context.Context, name string) (bool, error)
	GetAgent(ctx context.Context, name string) (*agent.Agent, error)
	ListAgentNames(ctx context.Context) ([]string, error)
	UpdateAgentStatus(ctx context.Context, name string, status agent.Status) (bool, error)
	UpdateAgentMetadata(ctx context.Context, name string, metadata map[string]any) (bool, error)
	CountAgents(ctx context.Context) (int, error)

	// Messages
	InsertMessage(ctx context.Context, sender, receiver, body string) (*message.Message, error)
	UnreadMessages(ctx context.Context, receiver string) ([]message.Message, error)
	DrainMessages(ctx context.Context, receiver string) ([]message.Message, error)
	MarkAllRead(ctx context.Context, receiver string) (bool, error)
	CountUnread(ctx context.Context, receiver string) (int, error)

	// Context entries
	SetContext(ctx context.Context, owner, key, value string) error
	GetContext(ctx context.Context, owner, key string) (string, error)

	// Tasks
	CreateTask(ctx context.Context, req task.CreateRequest) (*task.Task, error)
	GetTask(ctx context.Context, id string) (*task.Task, error)
	ListTasks(ctx context.Context) ([]task.Task, error)
	ListTasksForAgent(ctx context.Context, agentName string) ([]task.Task, error)
	ListPendingTasks(ctx context.Context, agentName string) ([]task.Task, error)
	UpdateTask(ctx context.Context, id string, req task.UpdateRequest) (*task.Task, error)

	// Activity
	AppendActivity(ctx context.Context, ev activity.Event) error
	ListActivity(ctx context.Context) ([]activity.Event, error)

	Close() error
}
