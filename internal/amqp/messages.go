package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Operation names the kind of mutation a ChangeMessage reports.
type Operation string

const (
	OpAdd       Operation = "add"
	OpImport    Operation = "import"
	OpUpdate    Operation = "update"
	OpDelete    Operation = "delete"
	OpSetBudget Operation = "set_budget"
	OpProfile   Operation = "profile"
)

// ChangeMessage is a lightweight notice that a collection was rewritten.
// It carries no record data; consumers read the committed snapshot themselves.
type ChangeMessage struct {
	Collection string    `json:"collection"`
	Operation  Operation `json:"operation"`
	ID         string    `json:"id,omitempty"`
	Count      int       `json:"count,omitempty"`
	Version    int64     `json:"version"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewChangeMessage stamps a message with the current time.
func NewChangeMessage(collection string, op Operation, id string, version int64) *ChangeMessage {
	return &ChangeMessage{
		Collection: collection,
		Operation:  op,
		ID:         id,
		Version:    version,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes a message and checks the mandatory fields.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Collection == "" || msg.Operation == "" {
		return nil, fmt.Errorf("change message missing collection or operation")
	}
	return &msg, nil
}
