package interfaces

import "fmt"

// Handle is an opaque OS socket handle.
type Handle int

// InvalidHandle marks a socket that has no OS handle.
const InvalidHandle Handle = -1

// IsValid reports whether h refers to an open handle.
func (h Handle) IsValid() bool {
	return h >= 0
}

// SocketType is the communication semantics of a socket (SOCK_*).
type SocketType int32

const (
	UnknownSocketType SocketType = -1
	Stream            SocketType = 1
	Dgram             SocketType = 2
	Raw               SocketType = 3
	Rdm               SocketType = 4
	SeqPacket         SocketType = 5
)

// String returns a human-readable representation of the SocketType.
func (t SocketType) String() string {
	switch t {
	case Stream:
		return "Stream"
	case Dgram:
		return "Dgram"
	case Raw:
		return "Raw"
	case Rdm:
		return "Rdm"
	case SeqPacket:
		return "SeqPacket"
	case UnknownSocketType:
		return "Unknown"
	default:
		return fmt.Sprintf("SocketType(%d)", int32(t))
	}
}

// ProtocolType is the IP protocol number of a socket.
type ProtocolType int32

const (
	UnspecifiedProtocol ProtocolType = 0
	ICMP                ProtocolType = 1
	TCP                 ProtocolType = 6
	UDP                 ProtocolType = 17
	IPv6                ProtocolType = 41
	ICMPv6              ProtocolType = 58
	RawProtocol         ProtocolType = 255
)

// String returns a human-readable representation of the ProtocolType.
func (p ProtocolType) String() string {
	switch p {
	case UnspecifiedProtocol:
		return "Unspecified"
	case ICMP:
		return "ICMP"
	case TCP:
		return "TCP"
	case UDP:
		return "UDP"
	case IPv6:
		return "IPv6"
	case ICMPv6:
		return "ICMPv6"
	case RawProtocol:
		return "Raw"
	default:
		return fmt.Sprintf("ProtocolType(%d)", int32(p))
	}
}

// SocketShutdown selects which direction Shutdown disables.
type SocketShutdown int

const (
	ShutdownReceive SocketShutdown = 0
	ShutdownSend    SocketShutdown = 1
	ShutdownBoth    SocketShutdown = 2
)

// String returns a human-readable representation of the SocketShutdown.
func (s SocketShutdown) String() string {
	switch s {
	case ShutdownReceive:
		return "Receive"
	case ShutdownSend:
		return "Send"
	case ShutdownBoth:
		return "Both"
	default:
		return fmt.Sprintf("SocketShutdown(%d)", int(s))
	}
}

// SocketFlags modify a single send or receive call (MSG_*).
type SocketFlags int

const (
	FlagsNone     SocketFlags = 0
	FlagOutOfBand SocketFlags = 0x1
	FlagPeek      SocketFlags = 0x2
	FlagDontRoute SocketFlags = 0x4
)

// PollEvents is a poll(2) event mask.
type PollEvents int16

const (
	PollIn   PollEvents = 0x001
	PollPri  PollEvents = 0x002
	PollOut  PollEvents = 0x004
	PollErr  PollEvents = 0x008
	PollHup  PollEvents = 0x010
	PollNval PollEvents = 0x020
)

// Has reports whether any bit of mask is set in e.
func (e PollEvents) Has(mask PollEvents) bool {
	return e&mask != 0
}

// PollRequest is one entry of a multi-handle poll. Revents is filled in by Poll.
type PollRequest struct {
	Handle  Handle
	Events  PollEvents
	Revents PollEvents
}

// SocketOption names a socket-level option understood by GetOption and SetOption.
type SocketOption int

const (
	OptionReuseAddress SocketOption = iota
	OptionSendBuffer
	OptionReceiveBuffer
	OptionType
	OptionAcceptConn
	OptionError
	OptionSendTimeout
	OptionReceiveTimeout
)

// String returns a human-readable representation of the SocketOption.
func (o SocketOption) String() string {
	switch o {
	case OptionReuseAddress:
		return "SO_REUSEADDR"
	case OptionSendBuffer:
		return "SO_SNDBUF"
	case OptionReceiveBuffer:
		return "SO_RCVBUF"
	case OptionType:
		return "SO_TYPE"
	case OptionAcceptConn:
		return "SO_ACCEPTCONN"
	case OptionError:
		return "SO_ERROR"
	case OptionSendTimeout:
		return "SO_SNDTIMEO"
	case OptionReceiveTimeout:
		return "SO_RCVTIMEO"
	default:
		return fmt.Sprintf("SocketOption(%d)", int(o))
	}
}

// IsTimeout reports whether o is set through SetTimeout rather than SetOption.
func (o SocketOption) IsTimeout() bool {
	return o == OptionSendTimeout || o == OptionReceiveTimeout
}
