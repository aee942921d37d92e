package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/switchboard-hq/switchboard/internal/domain"
	"github.com/switchboard-hq/switchboard/internal/domain/activity"
	"github.com/switchboard-hq/switchboard/internal/domain/agent"
	"github.com/switchboard-hq/switchboard/internal/domain/message"
	"github.com/switchboard-hq/switchboard/internal/domain/task"
)

func TestRegisterUpsertKeepsSingleRow(t *testing.T) {
	st := New()
	ctx := context.Background()

	if _, err := st.RegisterAgent(ctx, agent.RegisterRequest{Name: "a", Path: "/v1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.RegisterAgent(ctx, agent.RegisterRequest{Name: "a", Path: "/v2"}); err != nil {
		t.Fatal(err)
	}

	count, _ := st.CountAgents(ctx)
	if count != 1 {
		t.Fatalf("count = %d", count)
	}
	got, err := st.GetAgent(ctx, "a")
	if err != nil || got.Path != "/v2" {
		t.Fatalf("get = %+v, %v", got, err)
	}
}

func TestGetAgentNotFound(t *testing.T) {
	st := New()
	if _, err := st.GetAgent(context.Background(), "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestMailboxDrainExactness(t *testing.T) {
	st := New()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if _, err := st.InsertMessage(ctx, "alice", "bob", fmt.Sprintf("m%d", i)); err != nil {
			t.Fatal(err)
		}
	}

	peeked, err := st.UnreadMessages(ctx, "bob")
	if err != nil || len(peeked) != 3 {
		t.Fatalf("peek: %v, %v", peeked, err)
	}

	drained, err := st.DrainMessages(ctx, "bob")
	if err != nil || len(drained) != 3 {
		t.Fatalf("drain: %v, %v", drained, err)
	}
	for i := range drained {
		if drained[i].Body != peeked[i].Body {
			t.Fatalf("drain differs from peek at %d", i)
		}
	}

	count, _ := st.CountUnread(ctx, "bob")
	if count != 0 {
		t.Fatalf("count = %d after drain", count)
	}
}

// Racing drains must split the queue: no double delivery, nothing lost.
func TestMailboxDrainRaceDeliversExactlyOnce(t *testing.T) {
	st := New()
	ctx := context.Background()

	const msgs = 10
	for i := 0; i < msgs; i++ {
		if _, err := st.InsertMessage(ctx, "alice", "bob", fmt.Sprintf("m%d", i)); err != nil {
			t.Fatal(err)
		}
	}

	results := make([][]message.Message, 2)
	var wg sync.WaitGroup
	for r := 0; r < 2; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			drained, err := st.DrainMessages(ctx, "bob")
			if err != nil {
				t.Errorf("reader %d: %v", r, err)
				return
			}
			results[r] = drained
		}(r)
	}
	wg.Wait()

	seen := map[string]int{}
	for _, batch := range results {
		for _, m := range batch {
			seen[m.Body]++
		}
	}
	if len(seen) != msgs {
		t.Fatalf("delivered %d distinct messages, want %d", len(seen), msgs)
	}
	for body, n := range seen {
		if n != 1 {
			t.Fatalf("message %q delivered %d times", body, n)
		}
	}
}

func TestMailboxIsolatedPerReceiver(t *testing.T) {
	st := New()
	ctx := context.Background()
	_, _ = st.InsertMessage(ctx, "a", "bob", "for bob")
	_, _ = st.InsertMessage(ctx, "a", "carol", "for carol")

	if _, err := st.DrainMessages(ctx, "bob"); err != nil {
		t.Fatal(err)
	}
	count, _ := st.CountUnread(ctx, "carol")
	if count != 1 {
		t.Fatalf("carol count = %d", count)
	}
}

func TestMarkAllRead(t *testing.T) {
	st := New()
	ctx := context.Background()
	_, _ = st.InsertMessage(ctx, "a", "bob", "x")

	cleared, err := st.MarkAllRead(ctx, "bob")
	if err != nil || !cleared {
		t.Fatalf("clear: %v, %v", cleared, err)
	}
	cleared, _ = st.MarkAllRead(ctx, "bob")
	if cleared {
		t.Fatal("second clear reported work")
	}
}

func TestContextMissingVsEmpty(t *testing.T) {
	st := New()
	ctx := context.Background()

	if _, err := st.GetContext(ctx, "o", "k"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing: %v", err)
	}
	if err := st.SetContext(ctx, "o", "k", ""); err != nil {
		t.Fatal(err)
	}
	got, err := st.GetContext(ctx, "o", "k")
	if err != nil || got != "" {
		t.Fatalf("empty value: %q, %v", got, err)
	}
}

func TestTaskConflictAndPartialUpdate(t *testing.T) {
	st := New()
	ctx := context.Background()

	if _, err := st.CreateTask(ctx, task.CreateRequest{ID: "t1", Agent: "a", Description: "d"}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.CreateTask(ctx, task.CreateRequest{ID: "t1", Agent: "a", Description: "d"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate: %v", err)
	}

	result := "out"
	updated, err := st.UpdateTask(ctx, "t1", task.UpdateRequest{Result: &result})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != task.StatusPending || updated.Result == nil || *updated.Result != "out" {
		t.Fatalf("updated = %+v", updated)
	}

	if _, err := st.UpdateTask(ctx, "none", task.UpdateRequest{}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing task: %v", err)
	}
}

func TestTaskOrdering(t *testing.T) {
	st := New()
	ctx := context.Background()
	for _, id := range []string{"t1", "t2", "t3"} {
		if _, err := st.CreateTask(ctx, task.CreateRequest{ID: id, Agent: "a", Description: id}); err != nil {
			t.Fatal(err)
		}
	}

	all, _ := st.ListTasks(ctx)
	if len(all) != 3 || all[0].ID != "t3" {
		t.Fatalf("newest-first: %+v", all)
	}
	pending, _ := st.ListPendingTasks(ctx, "a")
	if len(pending) != 3 || pending[0].ID != "t1" {
		t.Fatalf("oldest-first: %+v", pending)
	}
}

func TestActivityCap(t *testing.T) {
	st := New()
	ctx := context.Background()

	for i := 0; i < activity.MaxEvents+10; i++ {
		ev := activity.Event{Event: "e", Timestamp: domain.Now(), Fields: map[string]any{"seq": i}}
		if err := st.AppendActivity(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}

	events, err := st.ListActivity(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != activity.MaxEvents {
		t.Fatalf("len = %d", len(events))
	}
	if events[0].Fields["seq"] != 10 {
		t.Fatalf("oldest retained = %v", events[0].Fields["seq"])
	}
}
