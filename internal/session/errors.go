package session

import (
	"errors"
	"fmt"
)

// ErrRetryExhausted: the manager gave up reconnecting and reached Stopped.
var ErrRetryExhausted = errors.New("session: reconnect attempts exhausted")

// ConnectError is a failed handshake.
type ConnectError struct {
	Attempt int
	Err     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("session: connect attempt %d: %v", e.Attempt, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// SessionError ends a live session.
type SessionError struct {
	Err error
}

func (e *SessionError) Error() string { return fmt.Sprintf("session: lost: %v", e.Err) }

func (e *SessionError) Unwrap() error { return e.Err }
