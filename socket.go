package sockets

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/opd-ai/sockets/endpoint"
	"github.com/opd-ai/sockets/interfaces"
	"github.com/sirupsen/logrus"
)

// Socket is a BSD-style socket whose legal operations are decided by its State.
type Socket struct {
	mu   sync.Mutex
	sys  interfaces.SocketSyscalls
	opts *Options

	handle     interfaces.Handle
	family     endpoint.AddressFamily
	socketType interfaces.SocketType
	protocol   interfaces.ProtocolType

	local     *endpoint.EndPoint
	remote    *endpoint.EndPoint
	bound     bool
	connected bool

	blocking       bool
	sendTimeout    time.Duration
	receiveTimeout time.Duration

	state State

	// generation changes on every close so that a blocking call that returns
	// after a concurrent close does not commit its transition.
	generation uint64
	inflight   int
	// pendingClose is a handle closed while calls were still using it. The OS
	// close happens when the last of those calls returns, so the descriptor
	// number cannot be reused underneath them.
	pendingClose interfaces.Handle
}

// New opens a socket of the given family, type and protocol in StateReady.
// A nil opts uses NewOptions.
func New(family endpoint.AddressFamily, socketType interfaces.SocketType, protocol interfaces.ProtocolType, opts *Options) (*Socket, error) {
	if !family.IsSupported() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFamily, family)
	}
	if opts == nil {
		opts = NewOptions()
	}
	sys := opts.syscalls()

	h, err := sys.Socket(family, socketType, protocol)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "New",
			"family":   family.String(),
			"type":     socketType.String(),
			"protocol": protocol.String(),
			"error":    err.Error(),
		}).Error("Failed to open socket")
		return nil, newOpError(OpOpen, nil, err)
	}

	s := newSocket(sys, opts, h, family, socketType, protocol)

	logrus.WithFields(logrus.Fields{
		"function":   "New",
		"handle":     int(h),
		"family":     family.String(),
		"type":       socketType.String(),
		"protocol":   protocol.String(),
		"simulation": sys.IsSimulation(),
	}).Debug("Opened socket")

	return s, nil
}

func newSocket(sys interfaces.SocketSyscalls, opts *Options, h interfaces.Handle, family endpoint.AddressFamily, socketType interfaces.SocketType, protocol interfaces.ProtocolType) *Socket {
	s := &Socket{
		sys:        sys,
		opts:       opts,
		handle:     h,
		family:     family,
		socketType: socketType,
		protocol:   protocol,
		blocking:   true,
		state:      StateReady,

		pendingClose: interfaces.InvalidHandle,
	}
	runtime.SetFinalizer(s, finalizeSocket)
	return s
}

// finalizeSocket releases the handle of a socket that was never closed.
func finalizeSocket(s *Socket) {
	if !s.handle.IsValid() {
		return
	}
	logrus.WithFields(logrus.Fields{
		"function": "finalizeSocket",
		"handle":   int(s.handle),
		"state":    s.state.String(),
	}).Warn("Socket garbage-collected while open, closing handle")
	_ = s.sys.Close(s.handle)
}

func (s *Socket) stateErrorLocked(op Op) error {
	return &StateError{Op: op, State: s.state}
}

// checkState fails with a StateError when op is not permitted right now.
func (s *Socket) checkState(op Op) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Permits(op) {
		return s.stateErrorLocked(op)
	}
	return nil
}

// osError logs an OS failure and wraps it in an OpError.
func (s *Socket) osError(op Op, h interfaces.Handle, ep *endpoint.EndPoint, err error) error {
	fields := logrus.Fields{
		"function": "Socket." + op.String(),
		"handle":   int(h),
		"error":    err.Error(),
	}
	if ep != nil {
		fields["endpoint"] = ep.String()
	}
	logrus.WithFields(fields).Error("Socket operation failed")
	return newOpError(op, ep, err)
}

// run checks op against the state machine, performs call with the lock
// released and then commits the transition. commit runs under the lock and only
// when call succeeded and the socket was not closed in the meantime.
func (s *Socket) run(op Op, call func(h interfaces.Handle) error, commit func()) error {
	s.mu.Lock()
	if !s.state.Permits(op) {
		err := s.stateErrorLocked(op)
		s.mu.Unlock()
		return err
	}
	h, gen := s.acquireLocked(), s.generation
	s.mu.Unlock()

	callErr := call(h)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked()

	if s.generation != gen {
		return &StateError{Op: op, State: StateClosed}
	}
	if callErr != nil {
		return callErr
	}
	next, ok := transition(s.state, op)
	if !ok {
		return s.stateErrorLocked(op)
	}
	if commit != nil {
		commit()
	}
	s.state = next
	return nil
}

// acquireLocked marks the current handle as in use by a call made without the lock.
func (s *Socket) acquireLocked() interfaces.Handle {
	s.inflight++
	return s.handle
}

// releaseLocked ends a call started with the lock released and performs a
// close that was postponed while the call was running.
func (s *Socket) releaseLocked() {
	s.inflight--
	if s.inflight > 0 || !s.pendingClose.IsValid() {
		return
	}
	h := s.pendingClose
	s.pendingClose = interfaces.InvalidHandle
	if err := s.sys.Close(h); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Socket.releaseLocked",
			"handle":   int(h),
			"error":    err.Error(),
		}).Warn("Failed to close handle after in-flight calls returned")
	}
}

// withHandle runs fn on the handle of a socket that is not closed. The handle
// stays open until fn returns even if the socket is closed meanwhile.
func (s *Socket) withHandle(op Op, fn func(h interfaces.Handle) error) error {
	s.mu.Lock()
	if !s.state.Permits(op) {
		err := s.stateErrorLocked(op)
		s.mu.Unlock()
		return err
	}
	h := s.acquireLocked()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.releaseLocked()
		s.mu.Unlock()
	}()
	return fn(h)
}

// update applies a cached setting unless the socket was closed meanwhile.
func (s *Socket) update(apply func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateClosed {
		apply()
	}
}

// Handle returns the OS handle, or interfaces.InvalidHandle once closed.
func (s *Socket) Handle() interfaces.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

// State returns the current state.
func (s *Socket) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsConnected reports whether the socket has a peer.
func (s *Socket) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// IsBound reports whether the socket has a local endpoint from Bind.
func (s *Socket) IsBound() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bound
}

// IsListening reports whether the socket accepts connections.
func (s *Socket) IsListening() bool {
	return s.State() == StateListening
}

// Family returns the address family the socket was opened with.
func (s *Socket) Family() endpoint.AddressFamily {
	return s.family
}

// Protocol returns the protocol the socket was opened with.
func (s *Socket) Protocol() interfaces.ProtocolType {
	return s.protocol
}

// Type asks the OS for the socket type (SO_TYPE).
func (s *Socket) Type() (interfaces.SocketType, error) {
	v, err := s.getIntOption(interfaces.OptionType)
	if err != nil {
		return interfaces.UnknownSocketType, err
	}
	return interfaces.SocketType(v), nil
}

// Available returns the number of bytes that can be read without blocking.
func (s *Socket) Available() (int, error) {
	var n int
	err := s.withHandle(OpOption, func(h interfaces.Handle) error {
		var err error
		if n, err = s.sys.Available(h); err != nil {
			return s.osError(OpOption, h, nil, err)
		}
		return nil
	})
	return n, err
}

// Blocking reports whether calls block. New sockets are blocking.
func (s *Socket) Blocking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blocking
}

// SetBlocking toggles blocking mode. It never changes which operations are legal.
func (s *Socket) SetBlocking(blocking bool) error {
	err := s.withHandle(OpOption, func(h interfaces.Handle) error {
		if err := s.sys.SetNonblock(h, !blocking); err != nil {
			return s.osError(OpOption, h, nil, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.update(func() { s.blocking = blocking })
	return nil
}

// LocalEndPoint returns the cached local endpoint, or ErrEndPointNotSet.
func (s *Socket) LocalEndPoint() (*endpoint.EndPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.local == nil {
		return nil, ErrEndPointNotSet
	}
	return s.local, nil
}

// RemoteEndPoint returns the cached peer endpoint, or ErrEndPointNotSet.
func (s *Socket) RemoteEndPoint() (*endpoint.EndPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.remote == nil {
		return nil, ErrEndPointNotSet
	}
	return s.remote, nil
}

func (s *Socket) getIntOption(opt interfaces.SocketOption) (int, error) {
	var v int
	err := s.withHandle(OpOption, func(h interfaces.Handle) error {
		var err error
		if v, err = s.sys.GetOption(h, opt); err != nil {
			return s.osError(OpOption, h, nil, err)
		}
		return nil
	})
	return v, err
}

func (s *Socket) setIntOption(opt interfaces.SocketOption, value int) error {
	if value < 0 {
		return fmt.Errorf("%w: %s must not be negative, got %d", ErrInvalidArgument, opt, value)
	}
	return s.withHandle(OpOption, func(h interfaces.Handle) error {
		if err := s.sys.SetOption(h, opt, value); err != nil {
			return s.osError(OpOption, h, nil, err)
		}
		return nil
	})
}

// SendBufferSize returns SO_SNDBUF.
func (s *Socket) SendBufferSize() (int, error) {
	return s.getIntOption(interfaces.OptionSendBuffer)
}

// SetSendBufferSize sets SO_SNDBUF.
func (s *Socket) SetSendBufferSize(size int) error {
	return s.setIntOption(interfaces.OptionSendBuffer, size)
}

// ReceiveBufferSize returns SO_RCVBUF.
func (s *Socket) ReceiveBufferSize() (int, error) {
	return s.getIntOption(interfaces.OptionReceiveBuffer)
}

// SetReceiveBufferSize sets SO_RCVBUF.
func (s *Socket) SetReceiveBufferSize(size int) error {
	return s.setIntOption(interfaces.OptionReceiveBuffer, size)
}

// SendTimeout returns the send timeout; zero means none.
func (s *Socket) SendTimeout() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sendTimeout
}

// SetSendTimeout sets SO_SNDTIMEO. Zero disables the timeout.
func (s *Socket) SetSendTimeout(d time.Duration) error {
	return s.setTimeout(interfaces.OptionSendTimeout, d, &s.sendTimeout)
}

// ReceiveTimeout returns the receive timeout; zero means none.
func (s *Socket) ReceiveTimeout() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.receiveTimeout
}

// SetReceiveTimeout sets SO_RCVTIMEO. Zero disables the timeout.
func (s *Socket) SetReceiveTimeout(d time.Duration) error {
	return s.setTimeout(interfaces.OptionReceiveTimeout, d, &s.receiveTimeout)
}

func (s *Socket) setTimeout(opt interfaces.SocketOption, d time.Duration, cache *time.Duration) error {
	if d < 0 {
		return fmt.Errorf("%w: negative timeout %s", ErrInvalidArgument, d)
	}
	err := s.withHandle(OpOption, func(h interfaces.Handle) error {
		if err := s.sys.SetTimeout(h, opt, d); err != nil {
			return s.osError(OpOption, h, nil, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.update(func() { *cache = d })
	return nil
}

// Close releases the handle and resets the socket to its defaults. A second
// Close fails with a StateError. If the OS refuses to close the handle the
// socket keeps its state. While other calls are still using the handle it is
// shut down at once and closed when the last of them returns.
func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked(OpClose)
}

func (s *Socket) closeLocked(op Op) error {
	if !s.state.Permits(op) {
		return s.stateErrorLocked(op)
	}

	h := s.handle
	if s.inflight > 0 {
		// Wake the calls blocked on h; the last one to return closes it.
		_ = s.sys.Shutdown(h, interfaces.ShutdownBoth)
		s.pendingClose = h
	} else if err := s.sys.Close(h); err != nil {
		return s.osError(op, h, nil, err)
	}

	previous := s.state
	s.handle = interfaces.InvalidHandle
	s.local = nil
	s.remote = nil
	s.bound = false
	s.connected = false
	s.blocking = true
	s.sendTimeout = 0
	s.receiveTimeout = 0
	s.state = StateClosed
	s.generation++
	runtime.SetFinalizer(s, nil)

	logrus.WithFields(logrus.Fields{
		"function": "Socket.Close",
		"handle":   int(h),
		"previous": previous.String(),
	}).Debug("Socket closed")
	return nil
}
