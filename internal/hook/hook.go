// Package hook implements the Claude Code hook handlers: session
// registration, inbox nudges before actions, and the stop gate that keeps
// an agent alive while messages are waiting.
//
// Handlers read a JSON hook payload on stdin and print a JSON response.
// A dead broker always degrades to silence: hooks must never break the
// editor session they run inside.
package hook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/switchboard-hq/switchboard/internal/client"
)

const (
	// DefaultCooldown spaces out inbox checks so a busy session does not
	// hammer the broker on every tool call.
	DefaultCooldown = 10 * time.Second

	inboxPreviewLimit = 5
	inboxPreviewChars = 120
	stopPreviewChars  = 80
)

// Input is the hook payload Claude Code writes to stdin.
type Input struct {
	CWD            string `json:"cwd"`
	SessionID      string `json:"session_id"`
	StopHookActive bool   `json:"stop_hook_active"`
}

// Runner executes hook handlers against one broker.
type Runner struct {
	Client   *client.Client
	Cooldown time.Duration
	// StateDir holds cooldown stamps; defaults to the OS temp dir.
	StateDir string
	// EnsureBroker starts a broker when the probe fails. Nil means probe
	// only.
	EnsureBroker func(context.Context) bool
}

func (r *Runner) cooldown() time.Duration {
	if r.Cooldown > 0 {
		return r.Cooldown
	}
	return DefaultCooldown
}

func (r *Runner) stateDir() string {
	if r.StateDir != "" {
		return r.StateDir
	}
	return os.TempDir()
}

func decodeInput(in io.Reader) (*Input, error) {
	var payload Input
	if err := json.NewDecoder(in).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode hook input: %w", err)
	}
	return &payload, nil
}

func writeOutput(out io.Writer, v any) error {
	return json.NewEncoder(out).Encode(v)
}

// Register handles SessionStart: derive an agent name, make sure a broker
// is up, drop the identity file, and register. The returned context tells
// the agent how to use the bridge tools.
func (r *Runner) Register(ctx context.Context, in io.Reader, out io.Writer) error {
	payload, err := decodeInput(in)
	if err != nil {
		return err
	}

	name := DeriveAgentName(payload.CWD)

	if !r.Client.Healthy(ctx) {
		if r.EnsureBroker == nil || !r.EnsureBroker(ctx) {
			return nil
		}
	}

	if err := WriteIdentity(payload.CWD, Identity{Name: name, SessionID: payload.SessionID}); err != nil {
		return err
	}

	// best effort; the broker may have just died again
	_, _ = r.Client.Register(ctx, name, payload.CWD, payload.SessionID)

	return writeOutput(out, map[string]any{
		"hookSpecificOutput": map[string]any{
			"hookEventName": "SessionStart",
			"additionalContext": fmt.Sprintf(
				"you are registered with the switchboard bridge as '%s'. "+
					"bridge tools: bridge_list_peers, bridge_send_message, "+
					"bridge_read_mailbox, bridge_wait_for_reply, "+
					"bridge_share_context, bridge_get_context, "+
					"bridge_create_task, bridge_get_tasks, bridge_update_task. "+
					"your mailbox is checked automatically before every action "+
					"and when you receive a prompt. incoming messages appear as "+
					"context; read them with bridge_read_mailbox('%s') and "+
					"respond via bridge_send_message. use bridge_wait_for_reply "+
					"to send a message and wait for a response in one turn.",
				name, name),
		},
	})
}

// Inbox handles UserPromptSubmit and PreToolUse: surface waiting messages
// and pending tasks as extra context, rate limited per agent.
func (r *Runner) Inbox(ctx context.Context, in io.Reader, out io.Writer) error {
	payload, err := decodeInput(in)
	if err != nil {
		return err
	}

	name := ReadIdentity(payload.CWD)
	if name == "" {
		return nil
	}
	if !r.passedCooldown(name) {
		return nil
	}

	var parts []string

	if peek, err := r.Client.Peek(ctx, name); err == nil && peek.Count > 0 {
		previews := make([]string, 0, inboxPreviewLimit)
		for _, m := range peek.Messages {
			if len(previews) == inboxPreviewLimit {
				break
			}
			previews = append(previews, fmt.Sprintf("[%s]: %s", m.From, truncate(m.Body, inboxPreviewChars)))
		}
		parts = append(parts, fmt.Sprintf(
			"%d new message(s). preview: %s. call bridge_read_mailbox('%s') to read and respond.",
			peek.Count, strings.Join(previews, "; "), name))
	}

	if tasks, err := r.Client.PendingTasks(ctx, name); err == nil && len(tasks) > 0 {
		previews := make([]string, 0, inboxPreviewLimit)
		for _, t := range tasks {
			if len(previews) == inboxPreviewLimit {
				break
			}
			previews = append(previews, fmt.Sprintf("[%s]: %s", t.ID, truncate(t.Description, inboxPreviewChars)))
		}
		parts = append(parts, fmt.Sprintf(
			"%d pending task(s). preview: %s. call bridge_get_tasks('%s') to see details, "+
				"bridge_update_task(task_id, 'running') to start.",
			len(tasks), strings.Join(previews, "; "), name))
	}

	if len(parts) == 0 {
		return nil
	}
	return writeOutput(out, map[string]string{
		"additionalContext": "[switchboard] " + strings.Join(parts, " | "),
	})
}

// Stop handles the Stop hook: when messages are waiting, block the agent
// from stopping so it reads them first. stop_hook_active guards against
// blocking in a loop.
func (r *Runner) Stop(ctx context.Context, in io.Reader, out io.Writer) error {
	payload, err := decodeInput(in)
	if err != nil {
		return err
	}
	if payload.StopHookActive {
		return nil
	}

	name := ReadIdentity(payload.CWD)
	if name == "" {
		return nil
	}

	peek, err := r.Client.Peek(ctx, name)
	if err != nil || peek.Count == 0 {
		return nil
	}

	previews := make([]string, 0, inboxPreviewLimit)
	for _, m := range peek.Messages {
		if len(previews) == inboxPreviewLimit {
			break
		}
		previews = append(previews, fmt.Sprintf("[%s]: %s", m.From, truncate(m.Body, stopPreviewChars)))
	}
	return writeOutput(out, map[string]string{
		"decision": "block",
		"reason": fmt.Sprintf(
			"you have %d pending message(s) in your mailbox. call bridge_read_mailbox('%s') to read them. preview: %s",
			peek.Count, name, strings.Join(previews, "; ")),
	})
}

// passedCooldown checks and refreshes the per-agent inbox stamp. Stamp
// trouble fails open so a broken temp dir never mutes the inbox.
func (r *Runner) passedCooldown(name string) bool {
	stamp := filepath.Join(r.stateDir(), "switchboard-inbox-"+name)
	now := time.Now()

	if raw, err := os.ReadFile(stamp); err == nil {
		if last, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64); err == nil {
			if now.Sub(time.Unix(int64(last), 0)) < r.cooldown() {
				return false
			}
		}
	}
	_ = os.WriteFile(stamp, []byte(strconv.FormatInt(now.Unix(), 10)), 0o644)
	return true
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
