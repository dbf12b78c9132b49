package sockets

import (
	"fmt"
	"time"

	"github.com/opd-ai/sockets/endpoint"
	"github.com/opd-ai/sockets/interfaces"
	"github.com/opd-ai/sockets/limits"
	"github.com/sirupsen/logrus"
)

func (s *Socket) checkEndPoint(ep *endpoint.EndPoint) error {
	if ep == nil {
		return ErrNilEndPoint
	}
	if ep.Family() != s.family {
		return fmt.Errorf("%w: %s endpoint on %s socket", ErrInvalidArgument, ep.Family(), s.family)
	}
	return nil
}

// Bind assigns a local endpoint. SO_REUSEADDR is set first when
// Options.ReuseAddress is true. Port 0 binds an ephemeral port, which
// LocalEndPoint then reports.
func (s *Socket) Bind(ep *endpoint.EndPoint) error {
	return s.bind(ep, s.opts.ReuseAddress)
}

func (s *Socket) bind(ep *endpoint.EndPoint, reuseAddress bool) error {
	var local *endpoint.EndPoint
	err := s.run(OpBind, func(h interfaces.Handle) error {
		if err := s.checkEndPoint(ep); err != nil {
			return err
		}
		if reuseAddress {
			if err := s.sys.SetOption(h, interfaces.OptionReuseAddress, 1); err != nil {
				return s.osError(OpBind, h, ep, err)
			}
		}
		if err := s.sys.Bind(h, ep); err != nil {
			return s.osError(OpBind, h, ep, err)
		}
		local = s.queryLocal(h, ep)
		return nil
	}, func() {
		s.local = local
		s.bound = true
	})
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"function": "Socket.Bind",
		"local":    local.String(),
	}).Debug("Socket bound")
	return nil
}

// queryLocal asks the OS for the local endpoint, falling back to fallback.
func (s *Socket) queryLocal(h interfaces.Handle, fallback *endpoint.EndPoint) *endpoint.EndPoint {
	local, err := s.sys.LocalEndPoint(h)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Socket.queryLocal",
			"handle":   int(h),
			"error":    err.Error(),
		}).Debug("getsockname failed, keeping requested endpoint")
		return fallback
	}
	return local
}

// Connect establishes a connection to ep.
func (s *Socket) Connect(ep *endpoint.EndPoint) error {
	var local *endpoint.EndPoint
	err := s.run(OpConnect, func(h interfaces.Handle) error {
		if err := s.checkEndPoint(ep); err != nil {
			return err
		}
		if err := s.sys.Connect(h, ep); err != nil {
			return s.osError(OpConnect, h, ep, err)
		}
		local = s.queryLocal(h, nil)
		return nil
	}, func() {
		s.remote = ep
		if local != nil {
			s.local = local
		}
		s.connected = true
	})
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"function": "Socket.Connect",
		"remote":   ep.String(),
	}).Debug("Socket connected")
	return nil
}

// ConnectAddress connects to addr:port.
func (s *Socket) ConnectAddress(addr endpoint.IPAddress, port uint16) error {
	return s.Connect(endpoint.New(addr, port))
}

// ConnectHost connects to an IP literal and port. Host names are not resolved;
// use the resolve package and ConnectAny for those.
func (s *Socket) ConnectHost(host string, port uint16) error {
	if err := s.checkState(OpConnect); err != nil {
		return err
	}
	addr, err := endpoint.Parse(host)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return s.ConnectAddress(addr, port)
}

// ConnectAny tries each endpoint in order and stops at the first success.
// OS failures of individual candidates are collected; any other error aborts
// immediately. When every candidate fails the result is a *ConnectError.
// An unbound stream socket gets a fresh handle before each retry.
func (s *Socket) ConnectAny(eps []*endpoint.EndPoint) error {
	if err := s.checkState(OpConnect); err != nil {
		return err
	}
	if len(eps) == 0 {
		return ErrNoCandidates
	}

	attempts := make([]ConnectAttempt, 0, len(eps))
	for i, ep := range eps {
		err := s.Connect(ep)
		if err == nil {
			return nil
		}
		if !IsEnvironmental(err) {
			return err
		}

		logrus.WithFields(logrus.Fields{
			"function":  "Socket.ConnectAny",
			"candidate": i,
			"endpoint":  ep.String(),
			"error":     err.Error(),
		}).Debug("Candidate failed, trying next")
		attempts = append(attempts, ConnectAttempt{EndPoint: ep, Err: err})
		if i < len(eps)-1 {
			if err := s.renewHandle(); err != nil {
				return err
			}
		}
	}
	return &ConnectError{Attempts: attempts}
}

// renewHandle swaps the handle of an unbound stream socket for a fresh one
// after a failed connect. BSD stacks refuse a second connect on a TCP socket
// whose first connect failed. Bound sockets keep their handle.
func (s *Socket) renewHandle() error {
	s.mu.Lock()
	if s.state != StateReady || s.socketType != interfaces.Stream {
		s.mu.Unlock()
		return nil
	}
	blocking, sendTimeout, receiveTimeout := s.blocking, s.sendTimeout, s.receiveTimeout
	s.mu.Unlock()

	nh, err := s.sys.Socket(s.family, s.socketType, s.protocol)
	if err != nil {
		return s.osError(OpConnect, interfaces.InvalidHandle, nil, err)
	}
	if err := s.restoreOptions(OpConnect, nh, blocking, sendTimeout, receiveTimeout); err != nil {
		_ = s.sys.Close(nh)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady || s.inflight > 0 {
		_ = s.sys.Close(nh)
		return nil
	}
	old := s.handle
	s.handle = nh
	s.local = nil
	if err := s.sys.Close(old); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Socket.renewHandle",
			"handle":   int(old),
			"error":    err.Error(),
		}).Warn("Failed to close replaced handle")
	}
	return nil
}

// DefaultBacklog returns the backlog the OS layer was configured with
// (SOCKETS_DEFAULT_BACKLOG through the factory).
func (s *Socket) DefaultBacklog() int {
	return s.sys.DefaultBacklog()
}

// Listen marks a bound socket as passive.
func (s *Socket) Listen(backlog int) error {
	err := s.run(OpListen, func(h interfaces.Handle) error {
		if err := limits.ValidateBacklog(backlog); err != nil {
			return err
		}
		if err := s.sys.Listen(h, backlog); err != nil {
			return s.osError(OpListen, h, nil, err)
		}
		return nil
	}, nil)
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"function": "Socket.Listen",
		"backlog":  backlog,
	}).Debug("Socket listening")
	return nil
}

// Accept waits for a connection and returns it as a new socket in StateConnected.
// The listening socket stays in StateListening.
func (s *Socket) Accept() (*Socket, error) {
	nh := interfaces.InvalidHandle
	var remote, local *endpoint.EndPoint
	committed := false

	err := s.run(OpAccept, func(h interfaces.Handle) error {
		var err error
		nh, remote, err = s.sys.Accept(h)
		if err != nil {
			return s.osError(OpAccept, h, nil, err)
		}
		local = s.queryLocal(nh, nil)
		return nil
	}, func() {
		committed = true
		if local == nil {
			local = s.local
		}
	})
	if err != nil {
		if !committed && nh.IsValid() {
			_ = s.sys.Close(nh)
		}
		return nil, err
	}

	child := newSocket(s.sys, s.opts, nh, s.family, s.socketType, s.protocol)
	child.local = local
	child.remote = remote
	child.connected = true
	child.state = StateConnected

	logrus.WithFields(logrus.Fields{
		"function": "Socket.Accept",
		"handle":   int(nh),
		"remote":   remote.String(),
	}).Debug("Accepted connection")
	return child, nil
}

// Disconnect shuts down both directions of a connected socket. With
// reuseSocket the OS handle is replaced by a fresh one of the same family,
// type and protocol, so a later Connect starts from a clean handle. Without
// it the old handle stays, and Linux and Darwin both reject a later Connect
// on it with EISCONN.
func (s *Socket) Disconnect(reuseSocket bool) error {
	nh := interfaces.InvalidHandle
	committed := false

	s.mu.Lock()
	blocking, sendTimeout, receiveTimeout := s.blocking, s.sendTimeout, s.receiveTimeout
	s.mu.Unlock()

	err := s.run(OpDisconnect, func(h interfaces.Handle) error {
		if err := s.sys.Shutdown(h, interfaces.ShutdownBoth); err != nil {
			return s.osError(OpDisconnect, h, nil, err)
		}
		if !reuseSocket {
			return nil
		}

		var err error
		nh, err = s.sys.Socket(s.family, s.socketType, s.protocol)
		if err != nil {
			return s.osError(OpDisconnect, h, nil, err)
		}
		return s.restoreOptions(OpDisconnect, nh, blocking, sendTimeout, receiveTimeout)
	}, func() {
		committed = true
		s.connected = false
		s.remote = nil
		if !reuseSocket {
			return
		}
		if s.inflight > 0 {
			s.pendingClose = s.handle
		} else if err := s.sys.Close(s.handle); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Socket.Disconnect",
				"handle":   int(s.handle),
				"error":    err.Error(),
			}).Warn("Failed to close replaced handle")
		}
		s.handle = nh
		s.local = nil
		s.bound = false
	})
	if err != nil {
		if !committed && nh.IsValid() {
			_ = s.sys.Close(nh)
		}
		return err
	}

	logrus.WithFields(logrus.Fields{
		"function": "Socket.Disconnect",
		"reuse":    reuseSocket,
	}).Debug("Socket disconnected")
	return nil
}

// restoreOptions carries blocking mode and timeouts over to a replacement handle.
func (s *Socket) restoreOptions(op Op, h interfaces.Handle, blocking bool, sendTimeout, receiveTimeout time.Duration) error {
	if !blocking {
		if err := s.sys.SetNonblock(h, true); err != nil {
			return s.osError(op, h, nil, err)
		}
	}
	if sendTimeout > 0 {
		if err := s.sys.SetTimeout(h, interfaces.OptionSendTimeout, sendTimeout); err != nil {
			return s.osError(op, h, nil, err)
		}
	}
	if receiveTimeout > 0 {
		if err := s.sys.SetTimeout(h, interfaces.OptionReceiveTimeout, receiveTimeout); err != nil {
			return s.osError(op, h, nil, err)
		}
	}
	return nil
}

// Shutdown disables sends, receives or both. It is legal while Connected or
// Disconnected and does not change the state.
func (s *Socket) Shutdown(how interfaces.SocketShutdown) error {
	return s.run(OpShutdown, func(h interfaces.Handle) error {
		if how < interfaces.ShutdownReceive || how > interfaces.ShutdownBoth {
			return fmt.Errorf("%w: shutdown direction %d", ErrInvalidArgument, int(how))
		}
		if err := s.sys.Shutdown(h, how); err != nil {
			return s.osError(OpShutdown, h, nil, err)
		}
		return nil
	}, nil)
}
