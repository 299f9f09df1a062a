package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType tags an envelope with its wire-level meaning.
type MessageType string

const (
	MessageHeartbeat  MessageType = "heartbeat"
	MessageConnection MessageType = "connection"
	MessageChat       MessageType = "chat"
	MessageTyping     MessageType = "typing"
	MessageError      MessageType = "error"
)

// Connection event values for MessageConnection envelopes.
const (
	EventConnected    = "connected"
	EventDisconnected = "disconnected"
)

// Envelope is the self-describing message unit exchanged over client
// connections and the pub/sub channel. Fields beyond Type and Timestamp are
// type-specific; unused ones are omitted on the wire.
type Envelope struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`

	// heartbeat
	Ping *bool `json:"ping,omitempty"`

	// connection events
	Event        string `json:"event,omitempty"`
	ConnectionID string `json:"connection_id,omitempty"`

	// chat and typing
	UserID         string `json:"user_id,omitempty"`
	Content        string `json:"content,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	IsTyping       *bool  `json:"is_typing,omitempty"`

	// error
	Error string `json:"error,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewHeartbeat builds a heartbeat envelope. ping is true for a server ping,
// false for a reply to a client heartbeat.
func NewHeartbeat(ping bool, now time.Time) Envelope {
	return Envelope{Type: MessageHeartbeat, Timestamp: now, Ping: &ping}
}

// NewConnectionEvent builds a connected/disconnected event envelope.
func NewConnectionEvent(event, userID, connectionID string, now time.Time) Envelope {
	return Envelope{
		Type:         MessageConnection,
		Timestamp:    now,
		Event:        event,
		UserID:       userID,
		ConnectionID: connectionID,
	}
}

// NewError builds an error envelope addressed to a single connection.
func NewError(message string, now time.Time) Envelope {
	return Envelope{Type: MessageError, Timestamp: now, Error: message}
}

// Encode serialises the envelope to its JSON wire form.
func (e Envelope) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}
	return data, nil
}

// ParseEnvelope decodes and validates one wire frame. Unknown type tags and
// missing type-specific fields are rejected rather than silently passed on.
func ParseEnvelope(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch e.Type {
	case MessageHeartbeat, MessageError:
		// no required payload fields
	case MessageConnection:
		if e.Event != EventConnected && e.Event != EventDisconnected {
			return Envelope{}, fmt.Errorf("%w: connection event %q", ErrMalformedMessage, e.Event)
		}
	case MessageChat:
		if e.UserID == "" {
			return Envelope{}, fmt.Errorf("%w: chat message without user_id", ErrMalformedMessage)
		}
		if e.Content == "" {
			return Envelope{}, fmt.Errorf("%w: chat message without content", ErrMalformedMessage)
		}
	case MessageTyping:
		if e.UserID == "" || e.ConversationID == "" {
			return Envelope{}, fmt.Errorf("%w: typing indicator without user_id or conversation_id", ErrMalformedMessage)
		}
		if e.IsTyping == nil {
			return Envelope{}, fmt.Errorf("%w: typing indicator without is_typing", ErrMalformedMessage)
		}
	default:
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownMessageType, string(e.Type))
	}

	return e, nil
}
