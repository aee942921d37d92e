package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	sbhttp "github.com/switchboard-hq/switchboard/internal/adapter/http"
	"github.com/switchboard-hq/switchboard/internal/adapter/memory"
	"github.com/switchboard-hq/switchboard/internal/adapter/ws"
	"github.com/switchboard-hq/switchboard/internal/client"
	"github.com/switchboard-hq/switchboard/internal/service"
)

func TestDeriveAgentName(t *testing.T) {
	cases := map[string]string{
		"/home/user/myapp/backend":          "myapp-backend",
		"/Users/adity/Desktop/talktome":     "talktome",
		"/home/user/projects/myapp":         "myapp",
		"/home/user/repos/frontend":         "frontend",
		"C:/Users/adity/coding projects/x":  "x",
		`C:\Users\adity\myapp\backend`:      "myapp-backend",
		"/home/user/myapp/backend/":         "myapp-backend",
		"/home/user/my app/back end":        "my-app-back-end",
		"/home/user/MyApp/Backend":          "myapp-backend",
		"myproject":                         "myproject",
		"/myproject":                        "myproject",
		"/home/user/code/api":               "api",
		"/home/user/company/microservice":   "company-microservice",
		"/home/user/src/webapp":             "webapp",
	}
	for path, want := range cases {
		if got := DeriveAgentName(path); got != want {
			t.Errorf("DeriveAgentName(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestIdentityRoundTrip(t *testing.T) {
	dir := t.TempDir()
	if err := WriteIdentity(dir, Identity{Name: "backend", SessionID: "sess-1"}); err != nil {
		t.Fatal(err)
	}
	if got := ReadIdentity(dir); got != "backend" {
		t.Fatalf("ReadIdentity = %q", got)
	}
}

func TestIdentityLegacyBareName(t *testing.T) {
	dir := t.TempDir()
	claudeDir := filepath.Join(dir, ".claude")
	if err := os.MkdirAll(claudeDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(claudeDir, identityFile), []byte("plain-name\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := ReadIdentity(dir); got != "plain-name" {
		t.Fatalf("ReadIdentity = %q", got)
	}
}

func TestIdentityMissing(t *testing.T) {
	if got := ReadIdentity(t.TempDir()); got != "" {
		t.Fatalf("ReadIdentity = %q, want empty", got)
	}
}

func newTestBroker(t *testing.T) *client.Client {
	t.Helper()
	st := memory.New()
	hub := ws.NewHub()
	h := &sbhttp.Handlers{
		Registry: service.NewRegistryService(st, hub),
		Mailbox:  service.NewMailboxService(st, hub),
		Tasks:    service.NewTaskService(st, hub),
		Context:  service.NewContextService(st),
		Activity: service.NewActivityService(st),
	}
	r := chi.NewRouter()
	sbhttp.MountRoutes(r, h, hub)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return client.New(srv.URL)
}

func hookInput(t *testing.T, in Input) *bytes.Buffer {
	t.Helper()
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewBuffer(data)
}

func TestRegisterHook(t *testing.T) {
	c := newTestBroker(t)
	cwd := filepath.Join(t.TempDir(), "acme", "backend")
	if err := os.MkdirAll(cwd, 0o755); err != nil {
		t.Fatal(err)
	}

	r := &Runner{Client: c, StateDir: t.TempDir()}
	var out bytes.Buffer
	err := r.Register(context.Background(), hookInput(t, Input{CWD: cwd, SessionID: "sess-9"}), &out)
	if err != nil {
		t.Fatal(err)
	}

	var resp map[string]map[string]string
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("decode output %q: %v", out.String(), err)
	}
	hookOut := resp["hookSpecificOutput"]
	if hookOut["hookEventName"] != "SessionStart" {
		t.Fatalf("output = %v", resp)
	}
	if !strings.Contains(hookOut["additionalContext"], "acme-backend") {
		t.Fatalf("context missing agent name: %q", hookOut["additionalContext"])
	}

	// identity file written
	if got := ReadIdentity(cwd); got != "acme-backend" {
		t.Fatalf("identity = %q", got)
	}

	// agent registered with session id
	agents, err := c.ListAgents(context.Background())
	if err != nil || len(agents) != 1 {
		t.Fatalf("agents: %v, %v", agents, err)
	}
	if agents[0].Name != "acme-backend" || agents[0].SessionID != "sess-9" {
		t.Fatalf("agent = %+v", agents[0])
	}
}

func TestRegisterHookBrokerDown(t *testing.T) {
	dead := client.New("http://127.0.0.1:1")
	r := &Runner{Client: dead, StateDir: t.TempDir()}

	cwd := t.TempDir()
	var out bytes.Buffer
	err := r.Register(context.Background(), hookInput(t, Input{CWD: cwd}), &out)
	if err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Fatalf("output written despite dead broker: %q", out.String())
	}
}

func TestInboxHookSurfacesMessagesAndTasks(t *testing.T) {
	c := newTestBroker(t)
	ctx := context.Background()

	cwd := t.TempDir()
	if err := WriteIdentity(cwd, Identity{Name: "bob"}); err != nil {
		t.Fatal(err)
	}
	_, _ = c.Register(ctx, "alice", "/a", "")
	_, _ = c.Register(ctx, "bob", cwd, "")
	_, _ = c.Send(ctx, "alice", "bob", "please review the schema change")
	_, _ = c.CreateTask(ctx, "t1", "bob", "migrate the users table")

	r := &Runner{Client: c, StateDir: t.TempDir()}
	var out bytes.Buffer
	if err := r.Inbox(ctx, hookInput(t, Input{CWD: cwd}), &out); err != nil {
		t.Fatal(err)
	}

	var resp map[string]string
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("decode %q: %v", out.String(), err)
	}
	added := resp["additionalContext"]
	if !strings.HasPrefix(added, "[switchboard] ") {
		t.Fatalf("context = %q", added)
	}
	if !strings.Contains(added, "1 new message(s)") || !strings.Contains(added, "[alice]") {
		t.Fatalf("missing message preview: %q", added)
	}
	if !strings.Contains(added, "1 pending task(s)") || !strings.Contains(added, "[t1]") {
		t.Fatalf("missing task preview: %q", added)
	}

	// inbox must not drain the mailbox
	peek, err := c.Peek(ctx, "bob")
	if err != nil || peek.Count != 1 {
		t.Fatalf("mailbox drained by inbox hook: %+v, %v", peek, err)
	}
}

func TestInboxHookCooldown(t *testing.T) {
	c := newTestBroker(t)
	ctx := context.Background()

	cwd := t.TempDir()
	if err := WriteIdentity(cwd, Identity{Name: "bob"}); err != nil {
		t.Fatal(err)
	}
	_, _ = c.Register(ctx, "bob", cwd, "")
	_, _ = c.Register(ctx, "alice", "/a", "")
	_, _ = c.Send(ctx, "alice", "bob", "hi")

	r := &Runner{Client: c, StateDir: t.TempDir(), Cooldown: time.Hour}

	var first bytes.Buffer
	if err := r.Inbox(ctx, hookInput(t, Input{CWD: cwd}), &first); err != nil {
		t.Fatal(err)
	}
	if first.Len() == 0 {
		t.Fatal("first check produced no output")
	}

	var second bytes.Buffer
	if err := r.Inbox(ctx, hookInput(t, Input{CWD: cwd}), &second); err != nil {
		t.Fatal(err)
	}
	if second.Len() != 0 {
		t.Fatalf("cooldown not enforced: %q", second.String())
	}
}

func TestInboxHookQuietWhenEmpty(t *testing.T) {
	c := newTestBroker(t)
	cwd := t.TempDir()
	if err := WriteIdentity(cwd, Identity{Name: "bob"}); err != nil {
		t.Fatal(err)
	}

	r := &Runner{Client: c, StateDir: t.TempDir()}
	var out bytes.Buffer
	if err := r.Inbox(context.Background(), hookInput(t, Input{CWD: cwd}), &out); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Fatalf("output for empty inbox: %q", out.String())
	}
}

func TestStopHookBlocksOnPendingMessages(t *testing.T) {
	c := newTestBroker(t)
	ctx := context.Background()

	cwd := t.TempDir()
	if err := WriteIdentity(cwd, Identity{Name: "bob"}); err != nil {
		t.Fatal(err)
	}
	_, _ = c.Register(ctx, "alice", "/a", "")
	_, _ = c.Register(ctx, "bob", cwd, "")
	_, _ = c.Send(ctx, "alice", "bob", "wait for me")

	r := &Runner{Client: c, StateDir: t.TempDir()}
	var out bytes.Buffer
	if err := r.Stop(ctx, hookInput(t, Input{CWD: cwd}), &out); err != nil {
		t.Fatal(err)
	}

	var resp map[string]string
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("decode %q: %v", out.String(), err)
	}
	if resp["decision"] != "block" {
		t.Fatalf("decision = %q", resp["decision"])
	}
	if !strings.Contains(resp["reason"], "wait for me") {
		t.Fatalf("reason = %q", resp["reason"])
	}
}

func TestStopHookRespectsStopHookActive(t *testing.T) {
	c := newTestBroker(t)
	cwd := t.TempDir()
	if err := WriteIdentity(cwd, Identity{Name: "bob"}); err != nil {
		t.Fatal(err)
	}

	r := &Runner{Client: c, StateDir: t.TempDir()}
	var out bytes.Buffer
	if err := r.Stop(context.Background(), hookInput(t, Input{CWD: cwd, StopHookActive: true}), &out); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Fatalf("output despite stop_hook_active: %q", out.String())
	}
}

func TestStopHookQuietWithoutIdentity(t *testing.T) {
	c := newTestBroker(t)
	r := &Runner{Client: c, StateDir: t.TempDir()}

	var out bytes.Buffer
	if err := r.Stop(context.Background(), hookInput(t, Input{CWD: t.TempDir()}), &out); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Fatalf("output without identity: %q", out.String())
	}
}
