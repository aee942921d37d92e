package service

import (
	"context"
	"fmt"

	"github.com/switchboard-hq/switchboard/internal/domain"
	"github.com/switchboard-hq/switchboard/internal/domain/message"
	"github.com/switchboard-hq/switchboard/internal/port/broadcast"
	"github.com/switchboard-hq/switchboard/internal/port/store"
)

// MailboxService handles per-receiver message queues. It never checks that a
// receiver exists: the boundary layer decides what an unknown peer means (the
// HTTP Send handler reports it as a soft text result).
type MailboxService struct {
	store store.Store
	hub   broadcast.Broadcaster
}

// NewMailboxService creates a new MailboxService.
func NewMailboxService(st store.Store, hub broadcast.Broadcaster) *MailboxService {
	return &MailboxService{store: st, hub: hub}
}

// Send appends a message to the receiver's queue and returns the stored
// record with its assigned ID and timestamp.
func (s *MailboxService) Send(ctx context.Context, sender, receiver, body string) (*message.Message, error) {
	if receiver == "" {
		return nil, fmt.Errorf("%w: peer is required", domain.ErrValidation)
	}
	m, err := s.store.InsertMessage(ctx, sender, receiver, body)
	if err != nil {
		return nil, err
	}
	record(ctx, s.store, s.hub, "message", map[string]any{
		"sender":  sender,
		"peer":    receiver,
		"content": body,
	})
	return m, nil
}

// Peek returns the receiver's unread messages oldest-first without touching
// read state. Unknown receivers yield an empty slice, never an error.
func (s *MailboxService) Peek(ctx context.Context, receiver string) ([]message.Message, error) {
	return s.store.UnreadMessages(ctx, receiver)
}

// Read drains the mailbox: it returns exactly the set Peek would have
// returned and marks it read in the same store operation.
func (s *MailboxService) Read(ctx context.Context, receiver string) ([]message.Message, error) {
	return s.store.DrainMessages(ctx, receiver)
}

// Clear marks all unread messages read without returning them. Reports
// whether at least one message was cleared.
func (s *MailboxService) Clear(ctx context.Context, receiver string) (bool, error) {
	return s.store.MarkAllRead(ctx, receiver)
}

// Count returns the receiver's unread message count.
func (s *MailboxService) Count(ctx context.Context, receiver string) (int, error) {
	return s.store.CountUnread(ctx, receiver)
}
