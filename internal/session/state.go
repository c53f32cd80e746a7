package session

import (
	"errors"
	"fmt"
)

// State of the upstream session.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Reconnecting
	Stopped
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Event drives a transition.
type Event int

const (
	EventStart Event = iota
	EventHandshakeOK
	EventHandshakeFailed
	EventSessionLost // read error, protocol violation, peer close, keep-alive timeout
	EventDelayElapsed
	EventRetryExhausted
	EventStop
)

func (e Event) String() string {
	switch e {
	case EventStart:
		return "start"
	case EventHandshakeOK:
		return "handshake_ok"
	case EventHandshakeFailed:
		return "handshake_failed"
	case EventSessionLost:
		return "session_lost"
	case EventDelayElapsed:
		return "delay_elapsed"
	case EventRetryExhausted:
		return "retry_exhausted"
	case EventStop:
		return "stop"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

var ErrInvalidTransition = errors.New("session: invalid transition")

type edge struct {
	from State
	ev   Event
}

var transitions = map[edge]State{
	{Disconnected, EventStart}:          Connecting,
	{Disconnected, EventDelayElapsed}:   Connecting,
	{Connecting, EventHandshakeOK}:      Connected,
	{Connecting, EventHandshakeFailed}:  Reconnecting,
	{Connected, EventSessionLost}:       Reconnecting,
	{Reconnecting, EventDelayElapsed}:   Connecting,
	{Reconnecting, EventRetryExhausted}: Stopped,
}

// Next is the transition function. Stop is accepted from every state;
// Stopped is terminal.
func Next(from State, ev Event) (State, error) {
	if ev == EventStop {
		return Stopped, nil
	}
	if to, ok := transitions[edge{from, ev}]; ok {
		return to, nil
	}
	return from, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, from, ev)
}
