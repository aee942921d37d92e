// Package client is a small HTTP client for the broker API. It is used by
// the CLI hooks and the MCP proxy, where a dead broker must degrade into
// empty results rather than errors.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/switchboard-hq/switchboard/internal/domain/agent"
	"github.com/switchboard-hq/switchboard/internal/domain/message"
	"github.com/switchboard-hq/switchboard/internal/domain/task"
)

const (
	requestTimeout = 10 * time.Second
	healthTimeout  = 3 * time.Second
	pollInterval   = 2 * time.Second
)

// Client talks to a broker instance over its REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the broker at baseURL, e.g.
// "http://127.0.0.1:3456".
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// BaseURL returns the broker address this client targets.
func (c *Client) BaseURL() string { return c.baseURL }

// Healthy reports whether the broker answers its health endpoint.
func (c *Client) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// AgentSummary is one row of the agents listing.
type AgentSummary struct {
	Name         string  `json:"name"`
	Path         string  `json:"path"`
	Status       string  `json:"status"`
	LastSeen     float64 `json:"last_seen"`
	SessionID    string  `json:"session_id"`
	MailboxCount int     `json:"mailbox_count"`
}

// Register upserts an agent with the broker.
func (c *Client) Register(ctx context.Context, name, path, sessionID string) (*agent.Agent, error) {
	body := map[string]string{"name": name, "path": path}
	if sessionID != "" {
		body["session_id"] = sessionID
	}
	var a agent.Agent
	if err := c.call(ctx, http.MethodPost, "/api/v1/agents", body, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAgents returns all registered agents.
func (c *Client) ListAgents(ctx context.Context) ([]AgentSummary, error) {
	var out []AgentSummary
	if err := c.call(ctx, http.MethodGet, "/api/v1/agents", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Send delivers a message and returns the broker's text result, which may
// be a soft "peer not found" notice.
func (c *Client) Send(ctx context.Context, sender, peer, msg string) (string, error) {
	body := map[string]string{"sender": sender, "peer": peer, "message": msg}
	var out struct {
		Result string `json:"result"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/v1/send", body, &out); err != nil {
		return "", err
	}
	return out.Result, nil
}

// PeekResult is the non-draining mailbox view.
type PeekResult struct {
	Count    int                `json:"count"`
	Messages []message.Delivery `json:"messages"`
}

// Peek returns unread messages without draining them.
func (c *Client) Peek(ctx context.Context, name string) (*PeekResult, error) {
	var out PeekResult
	if err := c.call(ctx, http.MethodGet, "/api/v1/peek/"+name, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Read drains the mailbox.
func (c *Client) Read(ctx context.Context, name string) ([]message.Delivery, error) {
	var out []message.Delivery
	if err := c.call(ctx, http.MethodGet, "/api/v1/read/"+name, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// WaitForReply polls the mailbox until a message arrives or the timeout
// passes, then drains whatever is there. A quiet mailbox yields an empty
// slice, never an error: callers treat silence as a normal outcome.
func (c *Client) WaitForReply(ctx context.Context, name string, timeout time.Duration) []message.Delivery {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		peek, err := c.Peek(ctx, name)
		if err == nil && peek.Count > 0 {
			msgs, err := c.Read(ctx, name)
			if err == nil {
				return msgs
			}
		}
		select {
		case <-ctx.Done():
			return []message.Delivery{}
		case <-time.After(pollInterval):
		}
	}
	return []message.Delivery{}
}

// ShareContext stores a context value and returns the broker's ack text.
func (c *Client) ShareContext(ctx context.Context, owner, key, value string) (string, error) {
	body := map[string]string{"owner": owner, "key": key, "value": value}
	var out struct {
		Result string `json:"result"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/v1/context", body, &out); err != nil {
		return "", err
	}
	return out.Result, nil
}

// GetContext reads a context value. A missing key surfaces the broker's
// error text rather than a Go error, matching the tool contract.
func (c *Client) GetContext(ctx context.Context, owner, key string) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/context/"+owner+"/"+key, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		Value string `json:"value"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if resp.StatusCode == http.StatusNotFound {
		return out.Error, nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("broker returned status %d", resp.StatusCode)
	}
	return out.Value, nil
}

// CreateTask files a task for an agent. An empty id lets the broker
// generate one.
func (c *Client) CreateTask(ctx context.Context, id, agentName, description string) (*task.Task, error) {
	body := map[string]string{"agent": agentName, "description": description}
	if id != "" {
		body["id"] = id
	}
	var t task.Task
	if err := c.call(ctx, http.MethodPost, "/api/v1/tasks", body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// TasksForAgent returns all of an agent's tasks, newest first.
func (c *Client) TasksForAgent(ctx context.Context, name string) ([]task.Task, error) {
	var out []task.Task
	if err := c.call(ctx, http.MethodGet, "/api/v1/tasks/agent/"+name, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PendingTasks returns the agent's open work queue, oldest first.
func (c *Client) PendingTasks(ctx context.Context, name string) ([]task.Task, error) {
	var out []task.Task
	if err := c.call(ctx, http.MethodGet, "/api/v1/tasks/agent/"+name+"/pending", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateTask patches a task's status and/or result.
func (c *Client) UpdateTask(ctx context.Context, id string, status, result *string) (*task.Task, error) {
	body := map[string]*string{"status": status, "result": result}
	var t task.Task
	if err := c.call(ctx, http.MethodPatch, "/api/v1/tasks/"+id, body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("broker: %s", apiErr.Error)
		}
		return fmt.Errorf("broker returned status %d", resp.StatusCode)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}
