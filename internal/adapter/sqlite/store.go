package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/switchboard-hq/switchboard/internal/domain"
	"github.com/switchboard-hq/switchboard/internal/domain/activity"
	"github.com/switchboard-hq/switchboard/internal/domain/agent"
	"github.com/switchboard-hq/switchboard/internal/domain/message"
	"github.com/switchboard-hq/switchboard/internal/domain/task"
)

// ---------------------------------------------------------------------------
// Agents
// ---------------------------------------------------------------------------

// RegisterAgent upserts an agent row. Re-registering is not a conflict: path,
// status, metadata, and both timestamps are replaced.
func (s *Store) RegisterAgent(ctx context.Context, req agent.RegisterRequest) (*agent.Agent, error) {
	now := domain.Now()
	meta := req.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	err = retryOnContention(func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO agents (name, path, status, registered_at, last_seen, metadata)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(name) DO UPDATE SET
			   path = excluded.path,
			   status = excluded.status,
			   registered_at = excluded.registered_at,
			   last_seen = excluded.last_seen,
			   metadata = excluded.metadata`,
			req.Name, req.Path, string(agent.StatusActive), now, now, string(metaJSON),
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &agent.Agent{
		Name:         req.Name,
		Path:         req.Path,
		Status:       agent.StatusActive,
		RegisteredAt: now,
		LastSeen:     now,
		Metadata:     meta,
	}, nil
}

// DeregisterAgent removes the row entirely. Reports whether a row existed.
func (s *Store) DeregisterAgent(ctx context.Context, name string) (bool, error) {
	var deleted bool
	err := retryOnContention(func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM agents WHERE name = ?`, name)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		deleted = n > 0
		return err
	})
	return deleted, err
}

// GetAgent retrieves an agent by name.
func (s *Store) GetAgent(ctx context.Context, name string) (*agent.Agent, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT name, path, status, registered_at, last_seen, metadata
		 FROM agents WHERE name = ?`, name)

	var a agent.Agent
	var status, metaJSON string
	if err := row.Scan(&a.Name, &a.Path, &status, &a.RegisteredAt, &a.LastSeen, &metaJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	a.Status = agent.Status(status)
	if err := json.Unmarshal([]byte(metaJSON), &a.Metadata); err != nil {
		return nil, fmt.Errorf("parse metadata for agent %s: %w", name, err)
	}
	return &a, nil
}

// ListAgentNames returns all agent names in alphabetical order.
func (s *Store) ListAgentNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM agents ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// UpdateAgentStatus sets status and refreshes last_seen. Reports whether the
// agent exists.
func (s *Store) UpdateAgentStatus(ctx context.Context, name string, status agent.Status) (bool, error) {
	var updated bool
	err := retryOnContention(func() error {
		res, err := s.db.ExecContext(ctx,
			`UPDATE agents SET status = ?, last_seen = ? WHERE name = ?`,
			string(status), domain.Now(), name)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		updated = n > 0
		return err
	})
	return updated, err
}

// UpdateAgentMetadata replaces the metadata blob without touching timestamps.
func (s *Store) UpdateAgentMetadata(ctx context.Context, name string, metadata map[string]any) (bool, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return false, fmt.Errorf("marshal metadata: %w", err)
	}
	var updated bool
	err = retryOnContention(func() error {
		res, err := s.db.ExecContext(ctx,
			`UPDATE agents SET metadata = ? WHERE name = ?`, string(metaJSON), name)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		updated = n > 0
		return err
	})
	return updated, err
}

// CountAgents returns the number of registered agents.
func (s *Store) CountAgents(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM agents`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

// InsertMessage appends to the receiver's queue. Receiver existence is the
// caller's concern; the queue always accepts.
func (s *Store) InsertMessage(ctx context.Context, sender, receiver, body string) (*message.Message, error) {
	now := domain.Now()
	var id int64
	err := retryOnContention(func() error {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO messages (sender, receiver, body, timestamp, read)
			 VALUES (?, ?, ?, ?, 0)`,
			sender, receiver, body, now)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return &message.Message{
		ID:        id,
		Sender:    sender,
		Receiver:  receiver,
		Body:      body,
		Timestamp: now,
	}, nil
}

// UnreadMessages returns the receiver's unread queue oldest-first without
// mutating read state. An unknown receiver yields an empty slice.
func (s *Store) UnreadMessages(ctx context.Context, receiver string) ([]message.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sender, receiver, body, timestamp, read
		 FROM messages WHERE receiver = ? AND read = 0 ORDER BY id`, receiver)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// DrainMessages returns the unread queue and marks every returned message
// read inside one IMMEDIATE transaction, so a send racing the drain is either
// fully included or left unread for the next drain, and concurrent drains on
// one receiver never hand the same message to two winners.
func (s *Store) DrainMessages(ctx context.Context, receiver string) ([]message.Message, error) {
	var msgs []message.Message
	err := retryOnContention(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

		rows, err := tx.QueryContext(ctx,
			`SELECT id, sender, receiver, body, timestamp, read
			 FROM messages WHERE receiver = ? AND read = 0 ORDER BY id`, receiver)
		if err != nil {
			return err
		}
		msgs, err = scanMessages(rows)
		rows.Close()
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE messages SET read = 1 WHERE receiver = ? AND read = 0`, receiver); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		msgs[i].Read = true
	}
	return msgs, nil
}

// MarkAllRead clears the unread queue without returning it. Reports whether
// anything was cleared.
func (s *Store) MarkAllRead(ctx context.Context, receiver string) (bool, error) {
	var cleared bool
	err := retryOnContention(func() error {
		res, err := s.db.ExecContext(ctx,
			`UPDATE messages SET read = 1 WHERE receiver = ? AND read = 0`, receiver)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		cleared = n > 0
		return err
	})
	return cleared, err
}

// CountUnread returns the receiver's unread message count.
func (s *Store) CountUnread(ctx context.Context, receiver string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE receiver = ? AND read = 0`, receiver).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func scanMessages(rows *sql.Rows) ([]message.Message, error) {
	msgs := []message.Message{}
	for rows.Next() {
		var m message.Message
		var read int
		if err := rows.Scan(&m.ID, &m.Sender, &m.Receiver, &m.Body, &m.Timestamp, &read); err != nil {
			return nil, err
		}
		m.Read = read != 0
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// ---------------------------------------------------------------------------
// Context entries
// ---------------------------------------------------------------------------

// SetContext upserts a (owner, key) entry, last write wins.
func (s *Store) SetContext(ctx context.Context, owner, key, value string) error {
	return retryOnContention(func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO context_entries (owner, key, value) VALUES (?, ?, ?)
			 ON CONFLICT(owner, key) DO UPDATE SET value = excluded.value`,
			owner, key, value)
		return err
	})
}

// GetContext returns the stored value. Absence is domain.ErrNotFound,
// distinct from a stored empty string.
func (s *Store) GetContext(ctx context.Context, owner, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM context_entries WHERE owner = ? AND key = ?`, owner, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// ---------------------------------------------------------------------------
// Tasks
// ---------------------------------------------------------------------------

// CreateTask inserts a task with status pending and a null result. A
// duplicate caller-supplied ID is domain.ErrConflict, never an overwrite.
func (s *Store) CreateTask(ctx context.Context, req task.CreateRequest) (*task.Task, error) {
	now := domain.Now()
	err := retryOnContention(func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO tasks (id, agent, description, status, result, created_at, updated_at)
			 VALUES (?, ?, ?, ?, NULL, ?, ?)`,
			req.ID, req.Agent, req.Description, string(task.StatusPending), now, now)
		return err
	})
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("task %q: %w", req.ID, domain.ErrConflict)
		}
		return nil, err
	}
	return &task.Task{
		ID:          req.ID,
		Agent:       req.Agent,
		Description: req.Description,
		Status:      task.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// GetTask retrieves a task by ID.
func (s *Store) GetTask(ctx context.Context, id string) (*task.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, agent, description, status, result, created_at, updated_at
		 FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return t, err
}

// ListTasks returns every task, newest first (history view).
func (s *Store) ListTasks(ctx context.Context) ([]task.Task, error) {
	return s.queryTasks(ctx,
		`SELECT id, agent, description, status, result, created_at, updated_at
		 FROM tasks ORDER BY created_at DESC, rowid DESC`)
}

// ListTasksForAgent returns one agent's tasks, newest first.
func (s *Store) ListTasksForAgent(ctx context.Context, agentName string) ([]task.Task, error) {
	return s.queryTasks(ctx,
		`SELECT id, agent, description, status, result, created_at, updated_at
		 FROM tasks WHERE agent = ? ORDER BY created_at DESC, rowid DESC`, agentName)
}

// ListPendingTasks returns an agent's pending tasks oldest first, so queued
// work is picked up in arrival order.
func (s *Store) ListPendingTasks(ctx context.Context, agentName string) ([]task.Task, error) {
	return s.queryTasks(ctx,
		`SELECT id, agent, description, status, result, created_at, updated_at
		 FROM tasks WHERE agent = ? AND status = ?
		 ORDER BY created_at ASC, rowid ASC`, agentName, string(task.StatusPending))
}

// UpdateTask applies a partial update: nil status keeps the prior status, nil
// result keeps the prior result. updated_at always refreshes on success.
func (s *Store) UpdateTask(ctx context.Context, id string, req task.UpdateRequest) (*task.Task, error) {
	var status, result sql.NullString
	if req.Status != nil {
		status = sql.NullString{String: string(*req.Status), Valid: true}
	}
	if req.Result != nil {
		result = sql.NullString{String: *req.Result, Valid: true}
	}

	var found bool
	err := retryOnContention(func() error {
		res, err := s.db.ExecContext(ctx,
			`UPDATE tasks SET
			   status = COALESCE(?, status),
			   result = COALESCE(?, result),
			   updated_at = ?
			 WHERE id = ?`,
			status, result, domain.Now(), id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		found = n > 0
		return err
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrNotFound
	}
	return s.GetTask(ctx, id)
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]task.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []task.Task{}
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func scanTask(scan func(...any) error) (*task.Task, error) {
	var t task.Task
	var status string
	var result sql.NullString
	if err := scan(&t.ID, &t.Agent, &t.Description, &status, &result, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Status = task.Status(status)
	if result.Valid {
		t.Result = &result.String
	}
	return &t, nil
}

// ---------------------------------------------------------------------------
// Activity
// ---------------------------------------------------------------------------

// AppendActivity inserts an event and prunes the feed to the newest
// activity.MaxEvents rows, in one transaction.
func (s *Store) AppendActivity(ctx context.Context, ev activity.Event) error {
	fields := ev.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal activity fields: %w", err)
	}
	ts := ev.Timestamp
	if ts == 0 {
		ts = domain.Now()
	}

	return retryOnContention(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO activity (event, timestamp, fields) VALUES (?, ?, ?)`,
			ev.Event, ts, string(fieldsJSON)); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM activity WHERE id NOT IN
			   (SELECT id FROM activity ORDER BY id DESC LIMIT ?)`,
			activity.MaxEvents); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// ListActivity returns up to activity.MaxEvents events oldest-first. Storage
// order is newest-first, so the batch is reversed before returning.
func (s *Store) ListActivity(ctx context.Context) ([]activity.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event, timestamp, fields FROM activity ORDER BY id DESC LIMIT ?`,
		activity.MaxEvents)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []activity.Event
	for rows.Next() {
		var ev activity.Event
		var fieldsJSON string
		if err := rows.Scan(&ev.Event, &ev.Timestamp, &fieldsJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(fieldsJSON), &ev.Fields); err != nil {
			return nil, fmt.Errorf("parse activity fields: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}
