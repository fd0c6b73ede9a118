package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"tally/internal/core"
)

// Event actions carried on the record events queue.
const (
	ActionCreated = "created"
	ActionDeleted = "deleted"
)

// RecordEvent is the lightweight message published after a record mutation.
// It carries identifiers only; the export worker fetches the full record
// from the local database.
type RecordEvent struct {
	RecordID  string    `json:"recordId"`
	OwnerID   string    `json:"ownerId"`
	Kind      core.Kind `json:"kind"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordEvent(recordID, ownerID string, kind core.Kind, action string) *RecordEvent {
	return &RecordEvent{
		RecordID:  recordID,
		OwnerID:   ownerID,
		Kind:      kind,
		Action:    action,
		Timestamp: time.Now(),
	}
}

func (e *RecordEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func RecordEventFromJSON(data []byte) (*RecordEvent, error) {
	var evt RecordEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, err
	}
	if !evt.Kind.Valid() {
		return nil, fmt.Errorf("invalid kind %q", evt.Kind)
	}
	return &evt, nil
}
