package core

import "errors"

// ErrSinkClosed is returned by sinks whose underlying transport is gone.
// The registry treats any write error as a removal trigger, so sinks may
// also return transport-specific errors.
var ErrSinkClosed = errors.New("sink closed")

// Sink is an output channel capable of receiving serialized frames.
// Implementations must not block indefinitely: a write that cannot
// complete promptly should fail instead.
type Sink interface {
	Write(p []byte) error
}

// Conn is one client's attachment to one room.
type Conn struct {
	room   string
	userID string
	sink   Sink
}

// Room returns the room this connection is attached to.
func (c *Conn) Room() string { return c.room }

// UserID returns the authenticated user behind this connection.
func (c *Conn) UserID() string { return c.userID }
