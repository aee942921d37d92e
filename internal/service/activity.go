// Package service implements the broker's business logic over the store port.
package service

import (
	"context"
	"log/slog"

	"github.com/switchboard-hq/switchboard/internal/domain"
	"github.com/switchboard-hq/switchboard/internal/domain/activity"
	"github.com/switchboard-hq/switchboard/internal/port/broadcast"
	"github.com/switchboard-hq/switchboard/internal/port/store"
)

// ActivityService exposes the bounded event feed.
type ActivityService struct {
	store store.Store
}

// NewActivityService creates a new ActivityService.
func NewActivityService(st store.Store) *ActivityService {
	return &ActivityService{store: st}
}

// List returns the retained events in the order they occurred.
func (s *ActivityService) List(ctx context.Context) ([]activity.Event, error) {
	events, err := s.store.ListActivity(ctx)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []activity.Event{}
	}
	return events, nil
}

// record appends an activity event and fans it out to dashboard clients.
// Feed failures are logged and swallowed: the feed is observability, not
// state, and must never fail the mutation that produced it.
func record(ctx context.Context, st store.Store, hub broadcast.Broadcaster, event string, fields map[string]any) {
	ev := activity.Event{Event: event, Timestamp: domain.Now(), Fields: fields}
	if err := st.AppendActivity(ctx, ev); err != nil {
		slog.Error("failed to record activity", "event", event, "error", err)
		return
	}
	if hub != nil {
		hub.BroadcastEvent(ctx, "activity", ev)
	}
}
