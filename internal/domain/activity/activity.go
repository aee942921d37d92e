// Package activity defines the bounded broker event feed.
package activity

import "encoding/json"

// MaxEvents is the retention cap: inserting past it evicts the oldest rows.
const MaxEvents = 100

// Event is one feed entry. Fields is an open, event-specific payload that is
// serialized flat alongside the event tag and timestamp.
type Event struct {
	Event     string
	Timestamp float64
	Fields    map[string]any
}

// MarshalJSON flattens Fields into the top-level object:
// {"event": ..., "timestamp": ..., "agent": ..., ...}.
func (e Event) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(e.Fields)+2)
	for k, v := range e.Fields {
		flat[k] = v
	}
	flat["event"] = e.Event
	flat["timestamp"] = e.Timestamp
	return json.Marshal(flat)
}

// UnmarshalJSON reverses the flattening; event and timestamp are lifted out
// and everything else lands in Fields.
func (e *Event) UnmarshalJSON(data []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	if v, ok := flat["event"].(string); ok {
		e.Event = v
	}
	if v, ok := flat["timestamp"].(float64); ok {
		e.Timestamp = v
	}
	delete(flat, "event")
	delete(flat, "timestamp")
	e.Fields = flat
	return nil
}
