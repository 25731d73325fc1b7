// Package realtime carries table change events from the server to every
// subscribed client.
package realtime

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EventType is the kind of change a record went through.
type EventType string

const (
	Insert EventType = "INSERT"
	Update EventType = "UPDATE"
	Delete EventType = "DELETE"
)

// StatusSubscribed is sent once a websocket subscription is live.
const StatusSubscribed = "SUBSCRIBED"

// Event is one change notification. New holds the record as stored, or null.
type Event struct {
	Type EventType       `json:"eventType"`
	New  json.RawMessage `json:"new"`
}

// Ack is the first frame a websocket subscriber receives.
type Ack struct {
	Status string `json:"status"`
}

// NewEvent encodes record into an event of the given type. A nil record
// produces a null payload.
func NewEvent(typ EventType, record any) (Event, error) {
	if record == nil {
		return Event{Type: typ}, nil
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s event: %w", typ, err)
	}
	return Event{Type: typ, New: raw}, nil
}

// HasRecord reports whether the event carries a non-null record.
func (e Event) HasRecord() bool {
	trimmed := bytes.TrimSpace(e.New)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
