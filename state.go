package sockets

import "fmt"

// State is the lifecycle state of a Socket.
type State int

const (
	// StateReady is a freshly opened socket
	StateReady State = iota
	// StateBound has a local endpoint
	StateBound
	// StateListening accepts incoming connections
	StateListening
	// StateConnected has a peer
	StateConnected
	// StateDisconnected had a peer and may connect again
	StateDisconnected
	// StateClosed has released its handle
	StateClosed
)

// String returns a human-readable representation of the State.
func (s State) String() string {
	switch s {
	case StateReady:
		return "Ready"
	case StateBound:
		return "Bound"
	case StateListening:
		return "Listening"
	case StateConnected:
		return "Connected"
	case StateDisconnected:
		return "Disconnected"
	case StateClosed:
		return "Closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Op names a socket operation for state checks and error reports.
type Op int

const (
	OpOpen Op = iota
	OpAccept
	OpBind
	OpConnect
	OpListen
	OpDisconnect
	OpSend
	OpReceive
	OpShutdown
	OpClose
	OpDuplicate
	OpPoll
	OpOption
)

var opNames = [...]string{
	OpOpen:       "socket",
	OpAccept:     "accept",
	OpBind:       "bind",
	OpConnect:    "connect",
	OpListen:     "listen",
	OpDisconnect: "disconnect",
	OpSend:       "send",
	OpReceive:    "receive",
	OpShutdown:   "shutdown",
	OpClose:      "close",
	OpDuplicate:  "duplicate",
	OpPoll:       "poll",
	OpOption:     "option",
}

// String returns the lower-case name of the operation.
func (o Op) String() string {
	if o >= 0 && int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// transition returns the state a socket moves to when op succeeds in state s.
// The boolean is false when op is not permitted in s.
func transition(s State, op Op) (State, bool) {
	if s == StateClosed {
		return s, false
	}

	switch op {
	case OpClose, OpDuplicate:
		return StateClosed, true
	case OpPoll, OpOption:
		return s, true
	}

	switch s {
	case StateReady:
		switch op {
		case OpBind:
			return StateBound, true
		case OpConnect:
			return StateConnected, true
		}
	case StateBound:
		switch op {
		case OpConnect:
			return StateConnected, true
		case OpListen:
			return StateListening, true
		}
	case StateListening:
		if op == OpAccept {
			return StateListening, true
		}
	case StateConnected:
		switch op {
		case OpDisconnect:
			return StateDisconnected, true
		case OpSend, OpReceive, OpShutdown:
			return StateConnected, true
		}
	case StateDisconnected:
		switch op {
		case OpConnect:
			return StateConnected, true
		case OpShutdown:
			return StateDisconnected, true
		}
	}
	return s, false
}

// Permits reports whether op is legal in state s.
func (s State) Permits(op Op) bool {
	_, ok := transition(s, op)
	return ok
}
