package service_test

import (
	"context"
	"sync"

	"github.com/switchboard-hq/switchboard/internal/adapter/memory"
)

// captureHub records broadcast events for assertions.
type captureHub struct {
	mu     sync.Mutex
	events []capturedEvent
}

type capturedEvent struct {
	Type    string
	Payload any
}

func (h *captureHub) BroadcastEvent(_ context.Context, eventType string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, capturedEvent{Type: eventType, Payload: payload})
}

func (h *captureHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

func newTestStore() (*memory.Store, *captureHub) {
	return memory.New(), &captureHub{}
}
