package domain

// Socket is the minimal transport surface the connection manager needs from
// one client session. The production implementation wraps a WebSocket;
// tests substitute in-memory fakes.
type Socket interface {
	// Accept completes the transport-level handshake. Implementations whose
	// handshake already happened during the HTTP upgrade return nil.
	Accept() error

	// WriteMessage writes one full frame.
	WriteMessage(data []byte) error

	// ReadMessage blocks until one full frame arrives or the transport
	// closes, in which case it returns an error wrapping ErrConnectionClosed.
	ReadMessage() ([]byte, error)

	// Close performs the transport close handshake with the given code and
	// reason. Implementations must tolerate being called more than once.
	Close(code int, reason string) error
}
