package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// ChangeEvent is the backend's entity-change notification. It names what
// mutated; the consumer maps it onto cache groups, it never carries entity
// payloads.
type ChangeEvent struct {
	Entity    string    `json:"entity"` // transaction|budget|category|account|transfer|notification
	Action    string    `json:"action"` // created|updated|deleted
	EntityID  int64     `json:"entity_id,omitempty"`
	UserID    int64     `json:"user_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewChangeEvent creates an event stamped with the current time.
func NewChangeEvent(entity, action string, entityID, userID int64) *ChangeEvent {
	return &ChangeEvent{
		Entity:    entity,
		Action:    action,
		EntityID:  entityID,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e *ChangeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ChangeEventFromJSON decodes an event from JSON bytes.
func ChangeEventFromJSON(data []byte) (*ChangeEvent, error) {
	var e ChangeEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode change event: %w", err)
	}
	if e.Entity == "" {
		return nil, fmt.Errorf("change event missing entity")
	}
	return &e, nil
}
