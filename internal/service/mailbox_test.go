package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/switchboard-hq/switchboard/internal/domain"
	"github.com/switchboard-hq/switchboard/internal/service"
)

func TestSendRequiresReceiver(t *testing.T) {
	st, hub := newTestStore()
	svc := service.NewMailboxService(st, hub)

	_, err := svc.Send(context.Background(), "a", "", "hi")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v", err)
	}
}

func TestSendAssignsIDAndTimestamp(t *testing.T) {
	st, hub := newTestStore()
	svc := service.NewMailboxService(st, hub)
	ctx := context.Background()

	m, err := svc.Send(ctx, "alice", "bob", "hello")
	if err != nil {
		t.Fatal(err)
	}
	if m.ID == 0 || m.Timestamp == 0 {
		t.Fatalf("message = %+v", m)
	}
	if m.Read {
		t.Fatal("new message marked read")
	}

	events, _ := st.ListActivity(ctx)
	if len(events) != 1 || events[0].Event != "message" {
		t.Fatalf("activity = %v", events)
	}
	if events[0].Fields["peer"] != "bob" || events[0].Fields["content"] != "hello" {
		t.Fatalf("fields = %v", events[0].Fields)
	}
	if hub.count() != 1 {
		t.Fatalf("broadcasts = %d", hub.count())
	}
}

func TestPeekThenReadDrains(t *testing.T) {
	st, hub := newTestStore()
	svc := service.NewMailboxService(st, hub)
	ctx := context.Background()

	_, _ = svc.Send(ctx, "alice", "bob", "one")
	_, _ = svc.Send(ctx, "alice", "bob", "two")

	peeked, err := svc.Peek(ctx, "bob")
	if err != nil || len(peeked) != 2 {
		t.Fatalf("peek: %v, %v", peeked, err)
	}
	count, _ := svc.Count(ctx, "bob")
	if count != 2 {
		t.Fatalf("count after peek = %d", count)
	}

	read, err := svc.Read(ctx, "bob")
	if err != nil || len(read) != 2 {
		t.Fatalf("read: %v, %v", read, err)
	}
	if read[0].Body != "one" || read[1].Body != "two" {
		t.Fatalf("order: %v", read)
	}

	count, _ = svc.Count(ctx, "bob")
	if count != 0 {
		t.Fatalf("count after read = %d", count)
	}
}

func TestPeekUnknownReceiverIsEmpty(t *testing.T) {
	st, hub := newTestStore()
	svc := service.NewMailboxService(st, hub)

	msgs, err := svc.Peek(context.Background(), "nobody")
	if err != nil || len(msgs) != 0 {
		t.Fatalf("peek: %v, %v", msgs, err)
	}
}

func TestClear(t *testing.T) {
	st, hub := newTestStore()
	svc := service.NewMailboxService(st, hub)
	ctx := context.Background()

	cleared, err := svc.Clear(ctx, "bob")
	if err != nil || cleared {
		t.Fatalf("clear empty: %v, %v", cleared, err)
	}

	_, _ = svc.Send(ctx, "a", "bob", "x")
	cleared, err = svc.Clear(ctx, "bob")
	if err != nil || !cleared {
		t.Fatalf("clear: %v, %v", cleared, err)
	}
	msgs, _ := svc.Peek(ctx, "bob")
	if len(msgs) != 0 {
		t.Fatalf("peek after clear: %v", msgs)
	}
}
