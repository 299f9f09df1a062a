package domain

import "errors"

var (
	// ErrNotConnected is returned when a send is attempted on a connection
	// that is not in the connected state.
	ErrNotConnected = errors.New("connection not connected")

	// ErrConnectionClosed is returned by receive operations when the peer
	// has closed the transport.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrMalformedMessage is returned when an inbound frame cannot be
	// decoded into an envelope.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrUnknownMessageType is returned when an envelope carries a type tag
	// this service does not recognise.
	ErrUnknownMessageType = errors.New("unknown message type")

	// ErrInvalidToken is returned when credential validation fails.
	ErrInvalidToken = errors.New("invalid authentication token")
)
