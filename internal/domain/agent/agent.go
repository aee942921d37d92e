// Package agent defines the Agent domain entity.
package agent

// Status represents the current state of an agent session. The set is open:
// any string round-trips through the registry, these are the known values.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusIdle     Status = "idle"
)

// MetadataKeySessionID is the single metadata field the broker understands;
// the dashboard uses it to link agents to discovered editor sessions.
const MetadataKeySessionID = "session_id"

// Agent represents one registered working session/codebase.
type Agent struct {
	Name         string         `json:"name"`
	Path         string         `json:"path"`
	Status       Status         `json:"status"`
	RegisteredAt float64        `json:"registered_at"`
	LastSeen     float64        `json:"last_seen"`
	Metadata     map[string]any `json:"metadata"`
}

// SessionID returns the well-known session_id metadata field, or "".
func (a *Agent) SessionID() string {
	if a.Metadata == nil {
		return ""
	}
	if v, ok := a.Metadata[MetadataKeySessionID].(string); ok {
		return v
	}
	return ""
}

// RegisterRequest holds the fields needed to register (or re-register) an agent.
type RegisterRequest struct {
	Name     string         `json:"name"`
	Path     string         `json:"path"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
