package sockets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/opd-ai/sockets/endpoint"
	"github.com/opd-ai/sockets/limits"
)

// Common errors for socket operations
var (
	// ErrInvalidState indicates an operation that the socket's state does not permit
	ErrInvalidState = errors.New("operation not permitted in current socket state")

	// ErrOutOfRange indicates an offset or size outside the caller's buffer
	ErrOutOfRange = limits.ErrOutOfRange

	// ErrInvalidBacklog indicates a listen backlog outside the allowed bounds
	ErrInvalidBacklog = limits.ErrInvalidBacklog

	// ErrInvalidArgument indicates a malformed argument, such as a SocketInformation of the wrong size
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnsupportedFamily indicates an address family other than IPv4 or IPv6
	ErrUnsupportedFamily = endpoint.ErrUnsupportedFamily

	// ErrNilEndPoint indicates a required endpoint was nil or absent
	ErrNilEndPoint = errors.New("endpoint is nil")

	// ErrEndPointNotSet indicates an endpoint accessor on a socket that has none
	ErrEndPointNotSet = errors.New("endpoint not set")

	// ErrNoCandidates indicates ConnectAny was given an empty list
	ErrNoCandidates = errors.New("no candidate endpoints")

	// ErrAllCandidatesFailed indicates every ConnectAny candidate was refused
	ErrAllCandidatesFailed = errors.New("all candidate endpoints failed")

	// ErrCloseCanceled is reported by a DeferredClose that was canceled before it fired
	ErrCloseCanceled = errors.New("deferred close canceled")
)

// StateError reports an operation attempted in a state that does not permit it.
type StateError struct {
	Op    Op
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("socket %s: not permitted in state %s", e.Op, e.State)
}

// Is makes errors.Is(err, ErrInvalidState) true for every StateError.
func (e *StateError) Is(target error) bool {
	return target == ErrInvalidState
}

// OpError represents an operating system failure with additional context
type OpError struct {
	Op   Op     // operation that caused the error
	Addr string // endpoint if relevant
	Err  error  // underlying error, usually wrapping a syscall.Errno
}

func (e *OpError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("socket %s %s: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("socket %s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// newOpError creates a new OpError
func newOpError(op Op, ep *endpoint.EndPoint, err error) *OpError {
	addr := ""
	if ep != nil {
		addr = ep.String()
	}
	return &OpError{
		Op:   op,
		Addr: addr,
		Err:  err,
	}
}

// ConnectAttempt records one failed candidate of ConnectAny.
type ConnectAttempt struct {
	EndPoint *endpoint.EndPoint
	Err      error
}

// ConnectError is returned by ConnectAny when every candidate failed.
// It matches ErrAllCandidatesFailed and each attempt's error.
type ConnectError struct {
	Attempts []ConnectAttempt
}

func (e *ConnectError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.Err.Error()
	}
	return fmt.Sprintf("socket connect: %v (%d tried): %s",
		ErrAllCandidatesFailed, len(e.Attempts), strings.Join(parts, "; "))
}

func (e *ConnectError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts)+1)
	errs = append(errs, ErrAllCandidatesFailed)
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// IsContractViolation reports whether err stems from misuse of the API rather
// than from the environment.
func IsContractViolation(err error) bool {
	for _, target := range []error{
		ErrInvalidState, ErrOutOfRange, ErrInvalidBacklog, ErrInvalidArgument,
		ErrUnsupportedFamily, ErrNilEndPoint, ErrEndPointNotSet, ErrNoCandidates,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsEnvironmental reports whether err is an operating system failure.
func IsEnvironmental(err error) bool {
	var opErr *OpError
	if errors.As(err, &opErr) {
		return true
	}
	return errors.Is(err, ErrAllCandidatesFailed)
}
