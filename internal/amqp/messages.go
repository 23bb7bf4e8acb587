package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"vetrina/internal/core"
)

// Op is the kind of change a RecordChangedMessage announces.
type Op string

const (
	OpCreated  Op = "created"
	OpUpdated  Op = "updated"
	OpDeleted  Op = "deleted"
	OpImported Op = "imported"
)

var ErrInvalidMessage = errors.New("invalid record change message")

// RecordChangedMessage announces that a record changed. It carries only the
// identity of the record; consumers reload whatever they need.
type RecordChangedMessage struct {
	Kind      core.Kind `json:"kind"`
	ID        string    `json:"id,omitempty"`
	Op        Op        `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordChangedMessage(kind core.Kind, id string, op Op) *RecordChangedMessage {
	return &RecordChangedMessage{
		Kind:      kind,
		ID:        id,
		Op:        op,
		Timestamp: time.Now(),
	}
}

// Validate checks the kind and op. ID may be empty for OpImported, which
// covers the whole kind.
func (m *RecordChangedMessage) Validate() error {
	if !m.Kind.IsValid() {
		return fmt.Errorf("%w: kind %q", ErrInvalidMessage, m.Kind)
	}
	switch m.Op {
	case OpCreated, OpUpdated, OpDeleted:
		if m.ID == "" {
			return fmt.Errorf("%w: missing id", ErrInvalidMessage)
		}
	case OpImported:
	default:
		return fmt.Errorf("%w: op %q", ErrInvalidMessage, m.Op)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *RecordChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordChangedMessageFromJSON decodes and validates a message.
func RecordChangedMessageFromJSON(data []byte) (*RecordChangedMessage, error) {
	var msg RecordChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
