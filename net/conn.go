package net

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/opd-ai/sockets"
	"github.com/opd-ai/sockets/interfaces"
	"github.com/sirupsen/logrus"
)

// SocketConn implements net.Conn over a connected socket.
type SocketConn struct {
	sock       *sockets.Socket
	localAddr  *EndPointAddr
	remoteAddr *EndPointAddr
	stream     bool

	// Deadline management
	readDeadline  time.Time
	writeDeadline time.Time
	deadlineMu    sync.RWMutex

	// Serializes writes so a chunked Write is not interleaved
	writeMu sync.Mutex
}

// NewSocketConn wraps a socket in StateConnected.
func NewSocketConn(sock *sockets.Socket) (*SocketConn, error) {
	if sock.State() != sockets.StateConnected {
		return nil, &sockets.StateError{Op: sockets.OpReceive, State: sock.State()}
	}
	return newSocketConn(sock), nil
}

func newSocketConn(sock *sockets.Socket) *SocketConn {
	typ, err := sock.Type()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "newSocketConn",
			"error":    err.Error(),
		}).Debug("SO_TYPE unavailable, assuming stream")
		typ = interfaces.Stream
	}

	netName := "tcp"
	if typ == interfaces.Dgram {
		netName = "udp"
	}
	c := &SocketConn{
		sock:   sock,
		stream: typ != interfaces.Dgram,
	}
	if local, err := sock.LocalEndPoint(); err == nil {
		c.localAddr = NewEndPointAddr(netName, local)
	}
	if remote, err := sock.RemoteEndPoint(); err == nil {
		c.remoteAddr = NewEndPointAddr(netName, remote)
	}
	return c
}

// wait polls for mode until deadline. A zero deadline does not wait.
func (c *SocketConn) wait(op string, deadline time.Time, mode sockets.SelectMode) error {
	if deadline.IsZero() {
		return nil
	}
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return c.opError(op, ErrTimeout)
	}
	res, err := c.sock.Poll(remaining, mode)
	if err != nil {
		return c.opError(op, err)
	}
	if res == sockets.PollTimeout {
		return c.opError(op, ErrTimeout)
	}
	return nil
}

// opError wraps err for op, mapping a closed socket to ErrConnectionClosed.
func (c *SocketConn) opError(op string, err error) error {
	var stateErr *sockets.StateError
	if errors.As(err, &stateErr) && stateErr.State == sockets.StateClosed {
		err = ErrConnectionClosed
	}
	addr := ""
	if c.remoteAddr != nil {
		addr = c.remoteAddr.String()
	}
	netName := "tcp"
	if !c.stream {
		netName = "udp"
	}
	return newNetError(op, netName, addr, err)
}

// Read implements net.Conn.Read().
// A stream whose peer has shut down its sending side returns io.EOF.
func (c *SocketConn) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}

	c.deadlineMu.RLock()
	deadline := c.readDeadline
	c.deadlineMu.RUnlock()

	if err := c.wait("read", deadline, sockets.SelectRead); err != nil {
		return 0, err
	}

	n, err := c.sock.Receive(b)
	if err != nil {
		return 0, c.opError("read", err)
	}
	if n == 0 && c.stream {
		return 0, io.EOF
	}
	return n, nil
}

// Write implements net.Conn.Write().
// It keeps sending until all of b is written or an error occurs.
func (c *SocketConn) Write(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.deadlineMu.RLock()
	deadline := c.writeDeadline
	c.deadlineMu.RUnlock()

	written := 0
	for written < len(b) {
		if err := c.wait("write", deadline, sockets.SelectWrite); err != nil {
			return written, err
		}
		n, err := c.sock.SendRange(b, written, len(b)-written, interfaces.FlagsNone)
		if err != nil {
			return written, c.opError("write", err)
		}
		written += n
		if !c.stream {
			break
		}
	}
	return written, nil
}

// Close implements net.Conn.Close().
func (c *SocketConn) Close() error {
	if err := c.sock.Close(); err != nil {
		return c.opError("close", err)
	}
	return nil
}

// CloseWrite shuts down the sending side of the connection.
func (c *SocketConn) CloseWrite() error {
	if err := c.sock.Shutdown(interfaces.ShutdownSend); err != nil {
		return c.opError("close", err)
	}
	return nil
}

// CloseRead shuts down the receiving side of the connection.
func (c *SocketConn) CloseRead() error {
	if err := c.sock.Shutdown(interfaces.ShutdownReceive); err != nil {
		return c.opError("close", err)
	}
	return nil
}

// LocalAddr implements net.Conn.LocalAddr().
func (c *SocketConn) LocalAddr() net.Addr {
	if c.localAddr == nil {
		return nil
	}
	return c.localAddr
}

// RemoteAddr implements net.Conn.RemoteAddr().
func (c *SocketConn) RemoteAddr() net.Addr {
	if c.remoteAddr == nil {
		return nil
	}
	return c.remoteAddr
}

// SetDeadline implements net.Conn.SetDeadline().
// It sets both read and write deadlines.
func (c *SocketConn) SetDeadline(t time.Time) error {
	c.deadlineMu.Lock()
	c.readDeadline = t
	c.writeDeadline = t
	c.deadlineMu.Unlock()
	return nil
}

// SetReadDeadline implements net.Conn.SetReadDeadline().
func (c *SocketConn) SetReadDeadline(t time.Time) error {
	c.deadlineMu.Lock()
	c.readDeadline = t
	c.deadlineMu.Unlock()
	return nil
}

// SetWriteDeadline implements net.Conn.SetWriteDeadline().
func (c *SocketConn) SetWriteDeadline(t time.Time) error {
	c.deadlineMu.Lock()
	c.writeDeadline = t
	c.deadlineMu.Unlock()
	return nil
}

// Socket returns the underlying socket.
func (c *SocketConn) Socket() *sockets.Socket {
	return c.sock
}

var _ net.Conn = (*SocketConn)(nil)
