package interfaces

import (
	"errors"
	"fmt"
	"time"

	"github.com/opd-ai/sockets/endpoint"
	"github.com/opd-ai/sockets/limits"
)

// ErrUnsupportedOption is returned for an option the implementation does not handle.
var ErrUnsupportedOption = errors.New("unsupported socket option")

// SocketSyscalls is the OS surface used by the socket state machine.
// Every method maps to one BSD socket call.
type SocketSyscalls interface {
	// Socket opens a new handle
	Socket(family endpoint.AddressFamily, socketType SocketType, protocol ProtocolType) (Handle, error)

	// Bind assigns a local endpoint
	Bind(h Handle, ep *endpoint.EndPoint) error

	// Connect establishes a connection, blocking until it completes or fails
	Connect(h Handle, ep *endpoint.EndPoint) error

	// Listen marks the handle as passive
	Listen(h Handle, backlog int) error

	// Accept waits for a pending connection and returns its handle and peer
	Accept(h Handle) (Handle, *endpoint.EndPoint, error)

	// Send writes to a connected handle
	Send(h Handle, p []byte, flags SocketFlags) (int, error)

	// Recv reads from a connected handle; 0 with a nil error means orderly close
	Recv(h Handle, p []byte, flags SocketFlags) (int, error)

	// SendTo writes to an explicit destination
	SendTo(h Handle, p []byte, flags SocketFlags, to *endpoint.EndPoint) (int, error)

	// RecvFrom reads and reports the source endpoint
	RecvFrom(h Handle, p []byte, flags SocketFlags) (int, *endpoint.EndPoint, error)

	// Shutdown disables one or both directions
	Shutdown(h Handle, how SocketShutdown) error

	// Close releases the handle
	Close(h Handle) error

	// LocalEndPoint returns the bound address (getsockname)
	LocalEndPoint(h Handle) (*endpoint.EndPoint, error)

	// RemoteEndPoint returns the peer address (getpeername)
	RemoteEndPoint(h Handle) (*endpoint.EndPoint, error)

	// GetOption reads an integer socket option
	GetOption(h Handle, opt SocketOption) (int, error)

	// SetOption writes an integer socket option
	SetOption(h Handle, opt SocketOption, value int) error

	// SetTimeout sets OptionSendTimeout or OptionReceiveTimeout; zero disables the timeout
	SetTimeout(h Handle, opt SocketOption, d time.Duration) error

	// SetNonblock toggles non-blocking mode
	SetNonblock(h Handle, nonblocking bool) error

	// Available returns the number of bytes readable without blocking (FIONREAD)
	Available(h Handle) (int, error)

	// Poll waits for events on several handles. A negative timeout waits forever.
	// It returns the number of requests with a non-zero Revents.
	Poll(reqs []PollRequest, timeout time.Duration) (int, error)

	// DefaultBacklog is the listen backlog to use when the caller has no preference
	DefaultBacklog() int

	// IsSimulation returns true if this is a simulation implementation
	IsSimulation() bool
}

// SyscallConfig holds configuration for SocketSyscalls implementations
type SyscallConfig struct {
	// UseSimulation determines whether to use simulation or the real OS
	UseSimulation bool

	// SimBufferSize is the per-direction stream buffer of the simulation, in bytes
	SimBufferSize int

	// DefaultBacklog is the listen backlog used when callers have no preference
	DefaultBacklog int
}

// Backlog returns DefaultBacklog, or limits.DefaultBacklog when it is unset.
func (c *SyscallConfig) Backlog() int {
	if c == nil || c.DefaultBacklog <= 0 {
		return limits.DefaultBacklog
	}
	return c.DefaultBacklog
}

// Validate checks the configuration values.
func (c *SyscallConfig) Validate() error {
	if c.SimBufferSize <= 0 {
		return fmt.Errorf("sim buffer size must be positive, got %d", c.SimBufferSize)
	}
	if err := limits.ValidateBacklog(c.DefaultBacklog); err != nil {
		return fmt.Errorf("default backlog: %w", err)
	}
	return nil
}
