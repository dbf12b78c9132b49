package testing

import (
	"time"

	"github.com/opd-ai/sockets/endpoint"
	"github.com/opd-ai/sockets/interfaces"
	"github.com/smallnest/ringbuffer"
)

// datagram is one queued message of a datagram socket.
type datagram struct {
	data []byte
	from *endpoint.EndPoint
}

// simSocket is the simulated kernel state behind a handle.
type simSocket struct {
	handle   interfaces.Handle
	family   endpoint.AddressFamily
	typ      interfaces.SocketType
	protocol interfaces.ProtocolType

	local  *endpoint.EndPoint
	remote *endpoint.EndPoint
	bound  bool

	listening   bool
	backlog     int
	acceptQueue []*simSocket

	// stream state
	in        *ringbuffer.RingBuffer
	peer      *simSocket
	peerEOF   bool
	readShut  bool
	writeShut bool

	// datagram state
	dgrams     []datagram
	dgramBytes int

	nonblocking    bool
	sendTimeout    time.Duration
	receiveTimeout time.Duration
	options        map[interfaces.SocketOption]int
	closed         bool
}

func (s *simSocket) isStream() bool {
	return s.typ == interfaces.Stream || s.typ == interfaces.SeqPacket
}

// readable reports whether a receive would complete without blocking.
func (s *simSocket) readable() bool {
	switch {
	case s.closed || s.readShut:
		return true
	case s.listening:
		return len(s.acceptQueue) > 0
	case s.isStream():
		return s.in != nil && (s.in.Length() > 0 || s.peerEOF)
	default:
		return len(s.dgrams) > 0
	}
}

// writable reports whether a send would make progress without blocking.
func (s *simSocket) writable() bool {
	switch {
	case s.closed || s.writeShut:
		return true
	case s.listening:
		return false
	case s.isStream():
		if s.peer == nil {
			return s.in == nil
		}
		return s.peer.closed || s.peer.in.Free() > 0
	default:
		return true
	}
}

// revents computes the poll result for the requested events.
func (s *simSocket) revents(events interfaces.PollEvents) interfaces.PollEvents {
	var r interfaces.PollEvents
	if events.Has(interfaces.PollIn) && s.readable() {
		r |= interfaces.PollIn
	}
	if events.Has(interfaces.PollOut) && s.writable() {
		r |= interfaces.PollOut
	}
	if s.isStream() && !s.listening && s.in != nil && s.peerEOF && s.writeShut {
		r |= interfaces.PollHup
	}
	return r
}
