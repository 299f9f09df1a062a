package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvelope_ValidMessages(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantType MessageType
	}{
		{
			name:     "heartbeat ping",
			payload:  `{"type":"heartbeat","ping":true}`,
			wantType: MessageHeartbeat,
		},
		{
			name:     "chat message",
			payload:  `{"type":"chat","user_id":"u1","content":"hello"}`,
			wantType: MessageChat,
		},
		{
			name:     "typing indicator",
			payload:  `{"type":"typing","user_id":"u1","conversation_id":"c1","is_typing":true}`,
			wantType: MessageTyping,
		},
		{
			name:     "connection event",
			payload:  `{"type":"connection","event":"connected","user_id":"u1","connection_id":"conn-1"}`,
			wantType: MessageConnection,
		},
		{
			name:     "error message",
			payload:  `{"type":"error","error":"something broke"}`,
			wantType: MessageError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := ParseEnvelope([]byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, env.Type)
		})
	}
}

func TestParseEnvelope_RejectsInvalidMessages(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr error
	}{
		{
			name:    "not json",
			payload: `{{{`,
			wantErr: ErrMalformedMessage,
		},
		{
			name:    "unknown type",
			payload: `{"type":"bogus"}`,
			wantErr: ErrUnknownMessageType,
		},
		{
			name:    "empty type",
			payload: `{"content":"hi"}`,
			wantErr: ErrUnknownMessageType,
		},
		{
			name:    "chat without content",
			payload: `{"type":"chat","user_id":"u1"}`,
			wantErr: ErrMalformedMessage,
		},
		{
			name:    "chat without user id",
			payload: `{"type":"chat","content":"hi"}`,
			wantErr: ErrMalformedMessage,
		},
		{
			name:    "typing without is_typing",
			payload: `{"type":"typing","user_id":"u1","conversation_id":"c1"}`,
			wantErr: ErrMalformedMessage,
		},
		{
			name:    "connection with unknown event",
			payload: `{"type":"connection","event":"rebooted"}`,
			wantErr: ErrMalformedMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEnvelope([]byte(tt.payload))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEnvelope_EncodeParseRoundTrip(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	isTyping := true

	original := Envelope{
		Type:           MessageTyping,
		Timestamp:      now,
		UserID:         "11111111-2222-3333-4444-555555555555",
		ConversationID: "conv-1",
		IsTyping:       &isTyping,
	}

	data, err := original.Encode()
	require.NoError(t, err)

	decoded, err := ParseEnvelope(data)
	require.NoError(t, err)

	assert.Equal(t, original.Type, decoded.Type)
	assert.True(t, original.Timestamp.Equal(decoded.Timestamp))
	assert.Equal(t, original.UserID, decoded.UserID)
	assert.Equal(t, original.ConversationID, decoded.ConversationID)
	require.NotNil(t, decoded.IsTyping)
	assert.True(t, *decoded.IsTyping)
}

func TestNewHeartbeat_SetsPingFlag(t *testing.T) {
	now := time.Now()

	ping := NewHeartbeat(true, now)
	require.NotNil(t, ping.Ping)
	assert.True(t, *ping.Ping)

	pong := NewHeartbeat(false, now)
	require.NotNil(t, pong.Ping)
	assert.False(t, *pong.Ping)
}

func TestNewConnectionEvent_CarriesIdentity(t *testing.T) {
	now := time.Now()
	env := NewConnectionEvent(EventDisconnected, "user-1", "conn-1", now)

	assert.Equal(t, MessageConnection, env.Type)
	assert.Equal(t, EventDisconnected, env.Event)
	assert.Equal(t, "user-1", env.UserID)
	assert.Equal(t, "conn-1", env.ConnectionID)
}
