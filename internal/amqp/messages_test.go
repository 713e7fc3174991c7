package amqp

import (
	"testing"
	"time"
)

func TestChangeEventRoundTrip(t *testing.T) {
	event := NewChangeEvent("transaction", "created", 42, 7)

	data, err := event.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	decoded, err := ChangeEventFromJSON(data)
	if err != nil {
		t.Fatalf("ChangeEventFromJSON() error = %v", err)
	}

	if decoded.Entity != "transaction" {
		t.Errorf("Entity = %q, want %q", decoded.Entity, "transaction")
	}
	if decoded.Action != "created" {
		t.Errorf("Action = %q, want %q", decoded.Action, "created")
	}
	if decoded.EntityID != 42 {
		t.Errorf("EntityID = %d, want 42", decoded.EntityID)
	}
	if decoded.UserID != 7 {
		t.Errorf("UserID = %d, want 7", decoded.UserID)
	}
	if decoded.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
}

func TestChangeEventFromJSON(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{
			name: "valid event",
			data: `{"entity":"budget","action":"updated","entity_id":3,"user_id":1,"timestamp":"2026-08-01T10:00:00Z"}`,
		},
		{
			name:    "missing entity",
			data:    `{"action":"created","entity_id":1}`,
			wantErr: true,
		},
		{
			name:    "malformed JSON",
			data:    `{"entity":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := ChangeEventFromJSON([]byte(tt.data))
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if event.Entity == "" {
				t.Error("decoded event has empty entity")
			}
		})
	}
}

func TestNewChangeEventSetsTimestamp(t *testing.T) {
	before := time.Now().Add(-time.Second)
	event := NewChangeEvent("account", "deleted", 9, 2)
	after := time.Now().Add(time.Second)

	if event.Timestamp.Before(before) || event.Timestamp.After(after) {
		t.Errorf("Timestamp = %v, want between %v and %v", event.Timestamp, before, after)
	}
}
