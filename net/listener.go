package net

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/opd-ai/sockets"
	"github.com/sirupsen/logrus"
)

// SocketListener implements net.Listener over a listening stream socket.
type SocketListener struct {
	sock      *sockets.Socket
	localAddr *EndPointAddr

	deadline   time.Time
	deadlineMu sync.RWMutex
}

// NewSocketListener wraps a socket in StateListening.
func NewSocketListener(sock *sockets.Socket) (*SocketListener, error) {
	if !sock.IsListening() {
		return nil, &sockets.StateError{Op: sockets.OpAccept, State: sock.State()}
	}
	l := &SocketListener{sock: sock}
	if local, err := sock.LocalEndPoint(); err == nil {
		l.localAddr = NewEndPointAddr("tcp", local)
	}
	return l, nil
}

// Accept implements net.Listener.Accept().
// It waits for the next connection and returns it as a *SocketConn.
func (l *SocketListener) Accept() (net.Conn, error) {
	return l.AcceptSocket()
}

// AcceptSocket is Accept with a concrete return type.
func (l *SocketListener) AcceptSocket() (*SocketConn, error) {
	l.deadlineMu.RLock()
	deadline := l.deadline
	l.deadlineMu.RUnlock()

	if !deadline.IsZero() {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, l.opError(ErrTimeout)
		}
		res, err := l.sock.Poll(remaining, sockets.SelectRead)
		if err != nil {
			return nil, l.opError(err)
		}
		if res == sockets.PollTimeout {
			return nil, l.opError(ErrTimeout)
		}
	}

	sock, err := l.sock.Accept()
	if err != nil {
		return nil, l.opError(err)
	}

	conn := newSocketConn(sock)
	logrus.WithFields(logrus.Fields{
		"function": "SocketListener.Accept",
		"local":    l.Addr().String(),
		"remote":   conn.RemoteAddr().String(),
	}).Debug("Accepted connection")
	return conn, nil
}

func (l *SocketListener) opError(err error) error {
	var stateErr *sockets.StateError
	if errors.As(err, &stateErr) && stateErr.State == sockets.StateClosed {
		err = ErrListenerClosed
	}
	return newNetError("accept", "tcp", l.Addr().String(), err)
}

// Close implements net.Listener.Close().
// Pending Accept calls return ErrListenerClosed.
func (l *SocketListener) Close() error {
	if err := l.sock.Close(); err != nil {
		return l.opError(err)
	}
	return nil
}

// Addr implements net.Listener.Addr().
func (l *SocketListener) Addr() net.Addr {
	if l.localAddr == nil {
		return &EndPointAddr{network: "tcp"}
	}
	return l.localAddr
}

// SetDeadline sets the deadline for Accept. A zero time disables it.
func (l *SocketListener) SetDeadline(t time.Time) error {
	l.deadlineMu.Lock()
	l.deadline = t
	l.deadlineMu.Unlock()
	return nil
}

// Socket returns the underlying socket.
func (l *SocketListener) Socket() *sockets.Socket {
	return l.sock
}

var _ net.Listener = (*SocketListener)(nil)
