package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

const (
	EventTransactionCreated = "transaction.created"
	EventTransactionDeleted = "transaction.deleted"
)

// Event announces a change to a transaction. It carries only the id; the
// consumer reads the current row from the store.
type Event struct {
	Event     string    `json:"event"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEvent(kind, id string) *Event {
	return &Event{Event: kind, ID: id, Timestamp: time.Now().UTC()}
}

func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes a message body, rejecting unknown kinds and empty ids.
func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if e.ID == "" {
		return nil, errors.New("event without id")
	}
	switch e.Event {
	case EventTransactionCreated, EventTransactionDeleted:
	default:
		return nil, errors.New("unknown event " + e.Event)
	}
	return &e, nil
}
