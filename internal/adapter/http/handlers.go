package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/switchboard-hq/switchboard/internal/domain/agent"
	"github.com/switchboard-hq/switchboard/internal/domain/message"
	"github.com/switchboard-hq/switchboard/internal/domain/task"
	"github.com/switchboard-hq/switchboard/internal/sessions"
	"github.com/switchboard-hq/switchboard/internal/service"
)

// Handlers bundles the broker services behind the HTTP boundary.
type Handlers struct {
	Registry *service.RegistryService
	Mailbox  *service.MailboxService
	Tasks    *service.TaskService
	Context  *service.ContextService
	Activity *service.ActivityService
	Sessions *sessions.Scanner
}

// ---------------------------------------------------------------------------
// Agents
// ---------------------------------------------------------------------------

type registerRequest struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	SessionID string `json:"session_id"`
}

func (h *Handlers) RegisterAgent(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSON[registerRequest](w, r)
	if !ok {
		return
	}
	req := agent.RegisterRequest{Name: body.Name, Path: body.Path}
	if body.SessionID != "" {
		req.Metadata = map[string]any{agent.MetadataKeySessionID: body.SessionID}
	}
	a, err := h.Registry.Register(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handlers) DeregisterAgent(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "name")
	removed, err := h.Registry.Deregister(r.Context(), name)
	if err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

func (h *Handlers) DeactivateAgent(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "name")
	if err := h.Registry.MarkInactive(r.Context(), name); err != nil {
		writeDomainError(w, err, fmt.Sprintf("agent '%s' not found", name))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": fmt.Sprintf("agent '%s' marked inactive", name)})
}

type agentSummary struct {
	Name         string  `json:"name"`
	Path         string  `json:"path"`
	Status       string  `json:"status"`
	LastSeen     float64 `json:"last_seen"`
	SessionID    string  `json:"session_id"`
	MailboxCount int     `json:"mailbox_count"`
}

func (h *Handlers) ListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.listAgentRecords(r)
	if err != nil {
		writeDomainError(w, err, "agents not found")
		return
	}
	out := make([]agentSummary, 0, len(agents))
	for _, a := range agents {
		count, err := h.Mailbox.Count(r.Context(), a.Name)
		if err != nil {
			writeDomainError(w, err, "agents not found")
			return
		}
		out = append(out, agentSummary{
			Name:         a.Name,
			Path:         a.Path,
			Status:       string(a.Status),
			LastSeen:     a.LastSeen,
			SessionID:    a.SessionID(),
			MailboxCount: count,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) listAgentRecords(r *http.Request) ([]agent.Agent, error) {
	names, err := h.Registry.ListNames(r.Context())
	if err != nil {
		return nil, err
	}
	agents := make([]agent.Agent, 0, len(names))
	for _, name := range names {
		a, err := h.Registry.Get(r.Context(), name)
		if err != nil {
			// deregistered between list and get
			continue
		}
		agents = append(agents, *a)
	}
	return agents, nil
}

// ---------------------------------------------------------------------------
// Mailbox
// ---------------------------------------------------------------------------

type sendRequest struct {
	Sender  string `json:"sender"`
	Peer    string `json:"peer"`
	Message string `json:"message"`
}

func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSON[sendRequest](w, r)
	if !ok {
		return
	}
	if body.Peer == "" {
		writeError(w, http.StatusBadRequest, "peer is required")
		return
	}
	registered, err := h.Registry.IsRegistered(r.Context(), body.Peer)
	if err != nil {
		writeDomainError(w, err, "peer not found")
		return
	}
	if !registered {
		// soft outcome, mirrored to callers as text rather than an error
		writeJSON(w, http.StatusOK, map[string]string{"result": fmt.Sprintf("peer '%s' not found", body.Peer)})
		return
	}
	if _, err := h.Mailbox.Send(r.Context(), body.Sender, body.Peer, body.Message); err != nil {
		writeDomainError(w, err, "peer not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": fmt.Sprintf("message sent to %s", body.Peer)})
}

func (h *Handlers) PeekMailbox(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "name")
	msgs, err := h.Mailbox.Peek(r.Context(), name)
	if err != nil {
		writeDomainError(w, err, "mailbox not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(msgs),
		"messages": message.Deliveries(msgs),
	})
}

func (h *Handlers) ReadMailbox(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "name")
	msgs, err := h.Mailbox.Read(r.Context(), name)
	if err != nil {
		writeDomainError(w, err, "mailbox not found")
		return
	}
	writeJSON(w, http.StatusOK, message.Deliveries(msgs))
}

func (h *Handlers) ClearMailbox(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "name")
	cleared, err := h.Mailbox.Clear(r.Context(), name)
	if err != nil {
		writeDomainError(w, err, "mailbox not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": cleared})
}

// ---------------------------------------------------------------------------
// Context store
// ---------------------------------------------------------------------------

type contextRequest struct {
	Owner string `json:"owner"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (h *Handlers) ShareContext(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSON[contextRequest](w, r)
	if !ok {
		return
	}
	if err := h.Context.Set(r.Context(), body.Owner, body.Key, body.Value); err != nil {
		writeDomainError(w, err, "context not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"result": fmt.Sprintf("context '%s' stored for %s", body.Key, body.Owner),
	})
}

func (h *Handlers) GetContext(w http.ResponseWriter, r *http.Request) {
	owner := urlParam(r, "owner")
	key := urlParam(r, "key")
	value, err := h.Context.Get(r.Context(), owner, key)
	if err != nil {
		writeDomainError(w, err, fmt.Sprintf("no context '%s' found for %s", key, owner))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"value": value})
}

// ---------------------------------------------------------------------------
// Tasks
// ---------------------------------------------------------------------------

type createTaskRequest struct {
	ID          string `json:"id"`
	Agent       string `json:"agent"`
	Description string `json:"description"`
}

func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSON[createTaskRequest](w, r)
	if !ok {
		return
	}
	if body.ID == "" {
		body.ID = newTaskID()
	}
	t, err := h.Tasks.Create(r.Context(), task.CreateRequest{
		ID:          body.ID,
		Agent:       body.Agent,
		Description: body.Description,
	})
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func newTaskID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Tasks.ListAll(r.Context())
	if err != nil {
		writeDomainError(w, err, "tasks not found")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *Handlers) ListAgentTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Tasks.ListForAgent(r.Context(), urlParam(r, "agent"))
	if err != nil {
		writeDomainError(w, err, "tasks not found")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *Handlers) ListPendingTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Tasks.ListPendingForAgent(r.Context(), urlParam(r, "agent"))
	if err != nil {
		writeDomainError(w, err, "tasks not found")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	t, err := h.Tasks.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, fmt.Sprintf("task '%s' not found", id))
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	body, ok := readJSON[task.UpdateRequest](w, r)
	if !ok {
		return
	}
	t, err := h.Tasks.Update(r.Context(), id, body)
	if err != nil {
		writeDomainError(w, err, fmt.Sprintf("task '%s' not found", id))
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// ---------------------------------------------------------------------------
// Activity and sessions
// ---------------------------------------------------------------------------

func (h *Handlers) ListActivity(w http.ResponseWriter, r *http.Request) {
	events, err := h.Activity.List(r.Context())
	if err != nil {
		writeDomainError(w, err, "activity not found")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *Handlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	if h.Sessions == nil {
		writeJSON(w, http.StatusOK, map[string]any{"projects": []sessions.Project{}})
		return
	}
	agents, err := h.listAgentRecords(r)
	if err != nil {
		writeDomainError(w, err, "sessions not found")
		return
	}
	projects, err := h.Sessions.Discover(agents)
	if err != nil {
		writeDomainError(w, err, "sessions not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

// Health reports liveness. The bootstrap probe and install checks hit this.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
