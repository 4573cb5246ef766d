package relay

import "errors"

var (
	// ErrDuplicateConnection means a connection id is already registered.
	// The new connection is rejected, never swapped in.
	ErrDuplicateConnection = errors.New("relay: duplicate connection id")

	// ErrAuthRejected means the handshake carried an empty username.
	ErrAuthRejected = errors.New("relay: auth rejected")

	// ErrInvalidMessage means a chat message had an empty room, author,
	// or content after trimming. The frame is dropped without fan-out.
	ErrInvalidMessage = errors.New("relay: invalid message")
)
