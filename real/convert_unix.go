//go:build linux || darwin

package real

import (
	"fmt"

	"github.com/opd-ai/sockets/endpoint"
	"github.com/opd-ai/sockets/interfaces"
	"golang.org/x/sys/unix"
)

func nativeFamily(f endpoint.AddressFamily) (int, error) {
	switch f {
	case endpoint.InterNetwork:
		return unix.AF_INET, nil
	case endpoint.InterNetworkV6:
		return unix.AF_INET6, nil
	default:
		return 0, fmt.Errorf("%w: %s", endpoint.ErrUnsupportedFamily, f)
	}
}

func nativeSocketType(t interfaces.SocketType) (int, error) {
	switch t {
	case interfaces.Stream:
		return unix.SOCK_STREAM, nil
	case interfaces.Dgram:
		return unix.SOCK_DGRAM, nil
	case interfaces.Raw:
		return unix.SOCK_RAW, nil
	case interfaces.Rdm:
		return unix.SOCK_RDM, nil
	case interfaces.SeqPacket:
		return unix.SOCK_SEQPACKET, nil
	default:
		return 0, fmt.Errorf("unsupported socket type %s", t)
	}
}

func socketTypeFromNative(v int) interfaces.SocketType {
	switch v {
	case unix.SOCK_STREAM:
		return interfaces.Stream
	case unix.SOCK_DGRAM:
		return interfaces.Dgram
	case unix.SOCK_RAW:
		return interfaces.Raw
	case unix.SOCK_RDM:
		return interfaces.Rdm
	case unix.SOCK_SEQPACKET:
		return interfaces.SeqPacket
	default:
		return interfaces.UnknownSocketType
	}
}

func nativeOption(opt interfaces.SocketOption) (int, error) {
	switch opt {
	case interfaces.OptionReuseAddress:
		return unix.SO_REUSEADDR, nil
	case interfaces.OptionSendBuffer:
		return unix.SO_SNDBUF, nil
	case interfaces.OptionReceiveBuffer:
		return unix.SO_RCVBUF, nil
	case interfaces.OptionType:
		return unix.SO_TYPE, nil
	case interfaces.OptionAcceptConn:
		return unix.SO_ACCEPTCONN, nil
	case interfaces.OptionError:
		return unix.SO_ERROR, nil
	default:
		return 0, fmt.Errorf("%w: %s", interfaces.ErrUnsupportedOption, opt)
	}
}

func nativeFlags(f interfaces.SocketFlags) int {
	var n int
	if f&interfaces.FlagOutOfBand != 0 {
		n |= unix.MSG_OOB
	}
	if f&interfaces.FlagPeek != 0 {
		n |= unix.MSG_PEEK
	}
	if f&interfaces.FlagDontRoute != 0 {
		n |= unix.MSG_DONTROUTE
	}
	return n
}

var pollEventMap = []struct {
	portable interfaces.PollEvents
	native   int16
}{
	{interfaces.PollIn, unix.POLLIN},
	{interfaces.PollPri, unix.POLLPRI},
	{interfaces.PollOut, unix.POLLOUT},
	{interfaces.PollErr, unix.POLLERR},
	{interfaces.PollHup, unix.POLLHUP},
	{interfaces.PollNval, unix.POLLNVAL},
}

func nativePollEvents(e interfaces.PollEvents) int16 {
	var n int16
	for _, m := range pollEventMap {
		if e&m.portable != 0 {
			n |= m.native
		}
	}
	return n
}

func pollEventsFromNative(n int16) interfaces.PollEvents {
	var e interfaces.PollEvents
	for _, m := range pollEventMap {
		if n&m.native != 0 {
			e |= m.portable
		}
	}
	return e
}

func toSockaddr(ep *endpoint.EndPoint) (unix.Sockaddr, error) {
	if ep == nil {
		return nil, fmt.Errorf("%w: nil endpoint", endpoint.ErrInvalidFormat)
	}
	addr := ep.Address()
	switch addr.Family() {
	case endpoint.InterNetwork:
		sa := &unix.SockaddrInet4{Port: int(ep.Port())}
		copy(sa.Addr[:], addr.Bytes())
		return sa, nil
	case endpoint.InterNetworkV6:
		scope, _ := addr.ScopeID()
		sa := &unix.SockaddrInet6{Port: int(ep.Port()), ZoneId: scope}
		copy(sa.Addr[:], addr.Bytes())
		return sa, nil
	default:
		return nil, fmt.Errorf("%w: %s", endpoint.ErrUnsupportedFamily, addr.Family())
	}
}

func fromSockaddr(sa unix.Sockaddr) (*endpoint.EndPoint, error) {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return endpoint.New(endpoint.NewIPv4(a.Addr), uint16(a.Port)), nil
	case *unix.SockaddrInet6:
		return endpoint.New(endpoint.NewIPv6(a.Addr, a.ZoneId), uint16(a.Port)), nil
	default:
		return nil, fmt.Errorf("%w: %T", endpoint.ErrUnsupportedFamily, sa)
	}
}
