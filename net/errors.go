package net

import (
	"errors"
	"fmt"
	"net"
	"os"
)

// Common errors for socket networking
var (
	// ErrConnectionClosed indicates the connection has been closed
	ErrConnectionClosed = net.ErrClosed

	// ErrListenerClosed indicates the listener has been closed
	ErrListenerClosed = errors.New("listener closed")

	// ErrTimeout indicates a deadline passed before the operation completed
	ErrTimeout = os.ErrDeadlineExceeded

	// ErrUnknownNetwork indicates a network name other than tcp, tcp4, tcp6, udp, udp4 or udp6
	ErrUnknownNetwork = errors.New("unknown network")
)

// NetError represents an error with additional context. It implements net.Error.
type NetError struct {
	Op   string // operation that caused the error
	Net  string // network name if relevant
	Addr string // address if relevant
	Err  error  // underlying error
}

func (e *NetError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("%s %s %s: %v", e.Op, e.Net, e.Addr, e.Err)
	}
	if e.Net != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Net, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the error is a deadline expiry.
func (e *NetError) Timeout() bool {
	return errors.Is(e.Err, os.ErrDeadlineExceeded)
}

// Temporary is required by net.Error.
func (e *NetError) Temporary() bool {
	return e.Timeout()
}

// newNetError creates a new NetError
func newNetError(op, network, addr string, err error) *NetError {
	return &NetError{
		Op:   op,
		Net:  network,
		Addr: addr,
		Err:  err,
	}
}

var _ net.Error = (*NetError)(nil)
