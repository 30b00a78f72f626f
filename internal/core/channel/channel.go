// Package channel provides the message transport between a mixing client
// and its coordinator.
package channel

import (
	"context"
)

// Channel interface for message passing between protocol parties
// PRINCIPLES:
// - ISP: Interface segregation with ≤5 methods
// - DIP: Core domain depends on interface, not implementations
type Channel interface {
	// Send sends a message to the channel
	Send(ctx context.Context, message Message) error

	// Receive receives a message from the channel
	Receive(ctx context.Context) (Message, error)

	// Close closes the channel
	Close() error
}

// Message is one protocol message.
type Message struct {
	ID      string            `json:"id"`
	Type    MessageType       `json:"type"`
	Source  string            `json:"source"`
	Target  string            `json:"target"`
	Session string            `json:"session,omitempty"`
	Round   int               `json:"round,omitempty"`
	Action  string            `json:"action,omitempty"`
	Payload interface{}       `json:"payload,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// MessageType represents the type of message
type MessageType string

const (
	// MessageTypeRequest asks the counterparty to perform Action
	MessageTypeRequest MessageType = "request"
	// MessageTypeAck acknowledges a request with the same ID
	MessageTypeAck MessageType = "ack"
	// MessageTypeError rejects a request with the same ID
	MessageTypeError MessageType = "error"
)

// Validate ensures message integrity
func (m *Message) Validate() error {
	if m.ID == "" {
		return ErrInvalidMessageID
	}
	if m.Type == "" {
		return ErrInvalidMessageType
	}
	if m.Source == "" {
		return ErrInvalidSource
	}
	if m.Target == "" {
		return ErrInvalidTarget
	}
	return nil
}

// Reply builds the response to m with the given type, swapping endpoints.
func (m Message) Reply(t MessageType, payload interface{}) Message {
	return Message{
		ID:      m.ID,
		Type:    t,
		Source:  m.Target,
		Target:  m.Source,
		Session: m.Session,
		Round:   m.Round,
		Action:  m.Action,
		Payload: payload,
	}
}
