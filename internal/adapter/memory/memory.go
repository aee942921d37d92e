// Package memory provides an in-memory store.Store for tests and throwaway
// brokers. It mirrors the sqlite adapter's semantics exactly: same error
// sentinels, same ordering, same drain atomicity (a single mutex stands in
// for the write lock).
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/switchboard-hq/switchboard/internal/domain"
	"github.com/switchboard-hq/switchboard/internal/domain/activity"
	"github.com/switchboard-hq/switchboard/internal/domain/agent"
	"github.com/switchboard-hq/switchboard/internal/domain/message"
	"github.com/switchboard-hq/switchboard/internal/domain/task"
)

// Store implements port/store.Store on process-local maps.
type Store struct {
	mu sync.Mutex

	agents   map[string]agent.Agent
	messages []message.Message
	nextMsg  int64
	context  map[[2]string]string
	tasks    map[string]task.Task
	taskSeq  map[string]int64 // insertion order for equal-timestamp tie-breaks
	nextTask int64
	activity []activity.Event
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		agents:  map[string]agent.Agent{},
		nextMsg: 1,
		context: map[[2]string]string{},
		tasks:   map[string]task.Task{},
		taskSeq: map[string]int64{},
	}
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// ---------------------------------------------------------------------------
// Agents
// ---------------------------------------------------------------------------

func (s *Store) RegisterAgent(_ context.Context, req agent.RegisterRequest) (*agent.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := domain.Now()
	meta := req.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	a := agent.Agent{
		Name:         req.Name,
		Path:         req.Path,
		Status:       agent.StatusActive,
		RegisteredAt: now,
		LastSeen:     now,
		Metadata:     meta,
	}
	s.agents[req.Name] = a
	return &a, nil
}

func (s *Store) DeregisterAgent(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.agents[name]
	delete(s.agents, name)
	return ok, nil
}

func (s *Store) GetAgent(_ context.Context, name string) (*agent.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.agents[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

func (s *Store) ListAgentNames(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.agents))
	for name := range s.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) UpdateAgentStatus(_ context.Context, name string, status agent.Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.agents[name]
	if !ok {
		return false, nil
	}
	a.Status = status
	a.LastSeen = domain.Now()
	s.agents[name] = a
	return true, nil
}

func (s *Store) UpdateAgentMetadata(_ context.Context, name string, metadata map[string]any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.agents[name]
	if !ok {
		return false, nil
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	a.Metadata = metadata
	s.agents[name] = a
	return true, nil
}

func (s *Store) CountAgents(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.agents), nil
}

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

func (s *Store) InsertMessage(_ context.Context, sender, receiver, body string) (*message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := message.Message{
		ID:        s.nextMsg,
		Sender:    sender,
		Receiver:  receiver,
		Body:      body,
		Timestamp: domain.Now(),
	}
	s.nextMsg++
	s.messages = append(s.messages, m)
	return &m, nil
}

func (s *Store) UnreadMessages(_ context.Context, receiver string) ([]message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unreadLocked(receiver), nil
}

func (s *Store) DrainMessages(_ context.Context, receiver string) ([]message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	drained := s.unreadLocked(receiver)
	for i := range s.messages {
		if s.messages[i].Receiver == receiver {
			s.messages[i].Read = true
		}
	}
	for i := range drained {
		drained[i].Read = true
	}
	return drained, nil
}

func (s *Store) MarkAllRead(_ context.Context, receiver string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cleared := false
	for i := range s.messages {
		if s.messages[i].Receiver == receiver && !s.messages[i].Read {
			s.messages[i].Read = true
			cleared = true
		}
	}
	return cleared, nil
}

func (s *Store) CountUnread(_ context.Context, receiver string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.unreadLocked(receiver)), nil
}

func (s *Store) unreadLocked(receiver string) []message.Message {
	out := []message.Message{}
	for _, m := range s.messages {
		if m.Receiver == receiver && !m.Read {
			out = append(out, m)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Context entries
// ---------------------------------------------------------------------------

func (s *Store) SetContext(_ context.Context, owner, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.context[[2]string{owner, key}] = value
	return nil
}

func (s *Store) GetContext(_ context.Context, owner, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.context[[2]string{owner, key}]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

// ---------------------------------------------------------------------------
// Tasks
// ---------------------------------------------------------------------------

func (s *Store) CreateTask(_ context.Context, req task.CreateRequest) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[req.ID]; exists {
		return nil, fmt.Errorf("task %q: %w", req.ID, domain.ErrConflict)
	}
	now := domain.Now()
	t := task.Task{
		ID:          req.ID,
		Agent:       req.Agent,
		Description: req.Description,
		Status:      task.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.tasks[req.ID] = t
	s.nextTask++
	s.taskSeq[req.ID] = s.nextTask
	return &t, nil
}

func (s *Store) GetTask(_ context.Context, id string) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &t, nil
}

func (s *Store) ListTasks(_ context.Context) ([]task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedTasksLocked(func(task.Task) bool { return true }, true), nil
}

func (s *Store) ListTasksForAgent(_ context.Context, agentName string) ([]task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedTasksLocked(func(t task.Task) bool { return t.Agent == agentName }, true), nil
}

func (s *Store) ListPendingTasks(_ context.Context, agentName string) ([]task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedTasksLocked(func(t task.Task) bool {
		return t.Agent == agentName && t.Status == task.StatusPending
	}, false), nil
}

func (s *Store) UpdateTask(_ context.Context, id string, req task.UpdateRequest) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if req.Status != nil {
		t.Status = *req.Status
	}
	if req.Result != nil {
		result := *req.Result
		t.Result = &result
	}
	t.UpdatedAt = domain.Now()
	s.tasks[id] = t
	return &t, nil
}

// sortedTasksLocked filters and sorts by created_at with insertion-order
// tie-breaks; newest first for history views, oldest first for the pending
// work queue.
func (s *Store) sortedTasksLocked(keep func(task.Task) bool, newestFirst bool) []task.Task {
	out := []task.Task{}
	for _, t := range s.tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.CreatedAt != b.CreatedAt {
			if newestFirst {
				return a.CreatedAt > b.CreatedAt
			}
			return a.CreatedAt < b.CreatedAt
		}
		if newestFirst {
			return s.taskSeq[a.ID] > s.taskSeq[b.ID]
		}
		return s.taskSeq[a.ID] < s.taskSeq[b.ID]
	})
	return out
}

// ---------------------------------------------------------------------------
// Activity
// ---------------------------------------------------------------------------

func (s *Store) AppendActivity(_ context.Context, ev activity.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.Timestamp == 0 {
		ev.Timestamp = domain.Now()
	}
	if ev.Fields == nil {
		ev.Fields = map[string]any{}
	}
	s.activity = append(s.activity, ev)
	if len(s.activity) > activity.MaxEvents {
		s.activity = s.activity[len(s.activity)-activity.MaxEvents:]
	}
	return nil
}

func (s *Store) ListActivity(_ context.Context) ([]activity.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]activity.Event, len(s.activity))
	copy(out, s.activity)
	return out, nil
}
