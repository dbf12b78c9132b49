//go:build linux || darwin

package real

import (
	"fmt"
	"time"

	"github.com/opd-ai/sockets/endpoint"
	"github.com/opd-ai/sockets/interfaces"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Socket opens a new close-on-exec handle.
func (s *Syscalls) Socket(family endpoint.AddressFamily, socketType interfaces.SocketType, protocol interfaces.ProtocolType) (interfaces.Handle, error) {
	domain, err := nativeFamily(family)
	if err != nil {
		return interfaces.InvalidHandle, err
	}
	typ, err := nativeSocketType(socketType)
	if err != nil {
		return interfaces.InvalidHandle, err
	}

	var fd int
	err = retryEINTR(func() (e error) {
		fd, e = unix.Socket(domain, typ, int(protocol))
		return e
	})
	if err != nil {
		return interfaces.InvalidHandle, errors.Wrapf(err, "socket(%s, %s, %s)", family, socketType, protocol)
	}
	unix.CloseOnExec(fd)

	logrus.WithFields(logrus.Fields{
		"function": "Syscalls.Socket",
		"handle":   fd,
		"family":   family.String(),
		"type":     socketType.String(),
		"protocol": protocol.String(),
	}).Debug("Opened socket handle")

	return interfaces.Handle(fd), nil
}

// Bind assigns ep to the handle.
func (s *Syscalls) Bind(h interfaces.Handle, ep *endpoint.EndPoint) error {
	sa, err := toSockaddr(ep)
	if err != nil {
		return err
	}
	if err := retryEINTR(func() error { return unix.Bind(int(h), sa) }); err != nil {
		return errors.Wrapf(err, "bind %s", ep)
	}
	return nil
}

// Connect connects the handle to ep. On a blocking handle an interrupted
// connect is completed rather than restarted.
func (s *Syscalls) Connect(h interfaces.Handle, ep *endpoint.EndPoint) error {
	sa, err := toSockaddr(ep)
	if err != nil {
		return err
	}

	err = unix.Connect(int(h), sa)
	if err == unix.EINTR {
		logrus.WithFields(logrus.Fields{
			"function": "Syscalls.Connect",
			"handle":   int(h),
			"remote":   ep.String(),
		}).Debug("Connect interrupted, waiting for completion")
		err = waitConnect(int(h))
	}
	if err != nil {
		return errors.Wrapf(err, "connect %s", ep)
	}
	return nil
}

// waitConnect blocks until an in-progress connect finishes and returns its result.
func waitConnect(fd int) error {
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
	if err := retryEINTR(func() error {
		_, e := unix.Poll(fds, -1)
		return e
	}); err != nil {
		return err
	}

	soErr, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if soErr != 0 {
		return unix.Errno(soErr)
	}
	return nil
}

// Listen marks the handle as passive.
func (s *Syscalls) Listen(h interfaces.Handle, backlog int) error {
	if err := unix.Listen(int(h), backlog); err != nil {
		return errors.Wrapf(err, "listen backlog %d", backlog)
	}
	return nil
}

// Accept waits for a connection. Connections aborted before they were accepted are skipped.
func (s *Syscalls) Accept(h interfaces.Handle) (interfaces.Handle, *endpoint.EndPoint, error) {
	for {
		var nfd int
		var sa unix.Sockaddr
		err := retryEINTR(func() (e error) {
			nfd, sa, e = unix.Accept(int(h))
			return e
		})
		if err == unix.ECONNABORTED {
			continue
		}
		if err != nil {
			return interfaces.InvalidHandle, nil, errors.Wrap(err, "accept")
		}
		unix.CloseOnExec(nfd)

		remote, err := fromSockaddr(sa)
		if err != nil {
			unix.Close(nfd)
			return interfaces.InvalidHandle, nil, err
		}
		return interfaces.Handle(nfd), remote, nil
	}
}

// Send writes p to a connected handle.
func (s *Syscalls) Send(h interfaces.Handle, p []byte, flags interfaces.SocketFlags) (int, error) {
	var n int
	err := retryEINTR(func() (e error) {
		n, e = unix.SendmsgN(int(h), p, nil, nil, nativeFlags(flags))
		return e
	})
	if err != nil {
		return 0, errors.Wrapf(err, "send %d bytes", len(p))
	}
	return n, nil
}

// Recv reads into p from a connected handle.
func (s *Syscalls) Recv(h interfaces.Handle, p []byte, flags interfaces.SocketFlags) (int, error) {
	var n int
	err := retryEINTR(func() (e error) {
		n, _, e = unix.Recvfrom(int(h), p, nativeFlags(flags))
		return e
	})
	if err != nil {
		return 0, errors.Wrapf(err, "recv %d bytes", len(p))
	}
	return n, nil
}

// SendTo writes p to an explicit destination.
func (s *Syscalls) SendTo(h interfaces.Handle, p []byte, flags interfaces.SocketFlags, to *endpoint.EndPoint) (int, error) {
	sa, err := toSockaddr(to)
	if err != nil {
		return 0, err
	}
	var n int
	err = retryEINTR(func() (e error) {
		n, e = unix.SendmsgN(int(h), p, nil, sa, nativeFlags(flags))
		return e
	})
	if err != nil {
		return 0, errors.Wrapf(err, "sendto %s", to)
	}
	return n, nil
}

// RecvFrom reads into p and reports the source. Stream sockets may report no
// source, in which case the returned endpoint is nil.
func (s *Syscalls) RecvFrom(h interfaces.Handle, p []byte, flags interfaces.SocketFlags) (int, *endpoint.EndPoint, error) {
	var n int
	var sa unix.Sockaddr
	err := retryEINTR(func() (e error) {
		n, sa, e = unix.Recvfrom(int(h), p, nativeFlags(flags))
		return e
	})
	if err != nil {
		return 0, nil, errors.Wrapf(err, "recvfrom %d bytes", len(p))
	}
	if sa == nil {
		return n, nil, nil
	}
	from, err := fromSockaddr(sa)
	if err != nil {
		return n, nil, nil
	}
	return n, from, nil
}

// Shutdown disables one or both directions.
func (s *Syscalls) Shutdown(h interfaces.Handle, how interfaces.SocketShutdown) error {
	var native int
	switch how {
	case interfaces.ShutdownReceive:
		native = unix.SHUT_RD
	case interfaces.ShutdownSend:
		native = unix.SHUT_WR
	case interfaces.ShutdownBoth:
		native = unix.SHUT_RDWR
	default:
		return fmt.Errorf("shutdown: invalid direction %d", int(how))
	}
	if err := unix.Shutdown(int(h), native); err != nil {
		return errors.Wrapf(err, "shutdown %s", how)
	}
	return nil
}

// Close releases the handle. EINTR is not retried: the descriptor is gone either way.
func (s *Syscalls) Close(h interfaces.Handle) error {
	err := unix.Close(int(h))
	if err != nil && err != unix.EINTR {
		return errors.Wrap(err, "close")
	}
	logrus.WithFields(logrus.Fields{
		"function": "Syscalls.Close",
		"handle":   int(h),
	}).Debug("Closed socket handle")
	return nil
}

// LocalEndPoint returns the result of getsockname.
func (s *Syscalls) LocalEndPoint(h interfaces.Handle) (*endpoint.EndPoint, error) {
	sa, err := unix.Getsockname(int(h))
	if err != nil {
		return nil, errors.Wrap(err, "getsockname")
	}
	return fromSockaddr(sa)
}

// RemoteEndPoint returns the result of getpeername.
func (s *Syscalls) RemoteEndPoint(h interfaces.Handle) (*endpoint.EndPoint, error) {
	sa, err := unix.Getpeername(int(h))
	if err != nil {
		return nil, errors.Wrap(err, "getpeername")
	}
	return fromSockaddr(sa)
}

// GetOption reads an integer SOL_SOCKET option.
func (s *Syscalls) GetOption(h interfaces.Handle, opt interfaces.SocketOption) (int, error) {
	name, err := nativeOption(opt)
	if err != nil {
		return 0, err
	}
	v, err := unix.GetsockoptInt(int(h), unix.SOL_SOCKET, name)
	if err != nil {
		return 0, errors.Wrapf(err, "getsockopt %s", opt)
	}
	if opt == interfaces.OptionType {
		return int(socketTypeFromNative(v)), nil
	}
	return v, nil
}

// SetOption writes an integer SOL_SOCKET option.
func (s *Syscalls) SetOption(h interfaces.Handle, opt interfaces.SocketOption, value int) error {
	name, err := nativeOption(opt)
	if err != nil {
		return err
	}
	if err := unix.SetsockoptInt(int(h), unix.SOL_SOCKET, name, value); err != nil {
		return errors.Wrapf(err, "setsockopt %s=%d", opt, value)
	}
	return nil
}

// SetTimeout sets SO_SNDTIMEO or SO_RCVTIMEO.
func (s *Syscalls) SetTimeout(h interfaces.Handle, opt interfaces.SocketOption, d time.Duration) error {
	var name int
	switch opt {
	case interfaces.OptionSendTimeout:
		name = unix.SO_SNDTIMEO
	case interfaces.OptionReceiveTimeout:
		name = unix.SO_RCVTIMEO
	default:
		return fmt.Errorf("%w: %s is not a timeout", interfaces.ErrUnsupportedOption, opt)
	}
	if d < 0 {
		d = 0
	}
	tv := unix.NsecToTimeval(d.Nanoseconds())
	if err := unix.SetsockoptTimeval(int(h), unix.SOL_SOCKET, name, &tv); err != nil {
		return errors.Wrapf(err, "setsockopt %s=%s", opt, d)
	}
	return nil
}

// SetNonblock toggles O_NONBLOCK.
func (s *Syscalls) SetNonblock(h interfaces.Handle, nonblocking bool) error {
	if err := unix.SetNonblock(int(h), nonblocking); err != nil {
		return errors.Wrapf(err, "set nonblock %t", nonblocking)
	}
	return nil
}

// Available returns the FIONREAD count.
func (s *Syscalls) Available(h interfaces.Handle) (int, error) {
	n, err := unix.IoctlGetInt(int(h), fionread)
	if err != nil {
		return 0, errors.Wrap(err, "ioctl FIONREAD")
	}
	return n, nil
}

// Poll waits for events on reqs. Interrupted waits are restarted with the full timeout.
func (s *Syscalls) Poll(reqs []interfaces.PollRequest, timeout time.Duration) (int, error) {
	fds := make([]unix.PollFd, len(reqs))
	for i, r := range reqs {
		fds[i] = unix.PollFd{Fd: int32(r.Handle), Events: nativePollEvents(r.Events)}
	}

	var n int
	err := retryEINTR(func() (e error) {
		n, e = unix.Poll(fds, pollTimeoutMillis(timeout))
		return e
	})
	if err != nil {
		return 0, errors.Wrap(err, "poll")
	}

	for i := range reqs {
		reqs[i].Revents = pollEventsFromNative(fds[i].Revents)
	}
	return n, nil
}

// retryEINTR runs fn until it returns something other than EINTR.
func retryEINTR(fn func() error) error {
	for {
		err := fn()
		if err != unix.EINTR {
			return err
		}
	}
}

// pollTimeoutMillis converts a timeout to poll(2) milliseconds, rounding up so a
// short positive timeout does not turn into a non-blocking poll.
func pollTimeoutMillis(d time.Duration) int {
	if d < 0 {
		return -1
	}
	ms := (d + time.Millisecond - 1) / time.Millisecond
	const maxInt32 = 1<<31 - 1
	if ms > maxInt32 {
		return maxInt32
	}
	return int(ms)
}
