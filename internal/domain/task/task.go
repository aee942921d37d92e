// Package task defines the Task domain entity.
package task

// Status represents the current state of a task. The set is open by design:
// the board stores whatever label the caller supplies, these are the known
// values.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Task represents a unit of work handed to an agent.
type Task struct {
	ID          string  `json:"id"`
	Agent       string  `json:"agent"`
	Description string  `json:"description"`
	Status      Status  `json:"status"`
	Result      *string `json:"result"`
	CreatedAt   float64 `json:"created_at"`
	UpdatedAt   float64 `json:"updated_at"`
}

// CreateRequest holds the fields needed to create a task. ID is supplied by
// the caller; the HTTP layer generates one when absent.
type CreateRequest struct {
	ID          string `json:"id"`
	Agent       string `json:"agent"`
	Description string `json:"description"`
}

// UpdateRequest is a partial update: a nil field keeps the prior value.
type UpdateRequest struct {
	Status *Status `json:"status"`
	Result *string `json:"result"`
}
