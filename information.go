package sockets

import (
	"encoding/binary"
	"fmt"

	"github.com/opd-ai/sockets/endpoint"
	"github.com/opd-ai/sockets/interfaces"
	"github.com/opd-ai/sockets/limits"
	"github.com/sirupsen/logrus"
)

// InformationOption records which endpoint a SocketInformation carries.
type InformationOption uint8

const (
	InformationNone InformationOption = iota
	InformationConnected
	InformationBound
)

// String returns a human-readable representation of the InformationOption.
func (o InformationOption) String() string {
	switch o {
	case InformationNone:
		return "None"
	case InformationConnected:
		return "Connected"
	case InformationBound:
		return "Bound"
	default:
		return fmt.Sprintf("InformationOption(%d)", uint8(o))
	}
}

// SocketInformation is the serialized form of a socket produced by
// DuplicateAndClose. ProtocolInformation holds family, type and protocol as
// little-endian int32 values followed by a sockaddr_storage endpoint.
type SocketInformation struct {
	Option              InformationOption
	ProtocolInformation []byte
}

// MarshalBinary encodes the information as the option byte followed by
// ProtocolInformation.
func (i SocketInformation) MarshalBinary() ([]byte, error) {
	if err := limits.ValidateExactSize(i.ProtocolInformation, limits.InformationSize); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	buf := make([]byte, 0, 1+limits.InformationSize)
	buf = append(buf, byte(i.Option))
	return append(buf, i.ProtocolInformation...), nil
}

// UnmarshalBinary decodes data produced by MarshalBinary.
func (i *SocketInformation) UnmarshalBinary(data []byte) error {
	if err := limits.ValidateExactSize(data, 1+limits.InformationSize); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	opt := InformationOption(data[0])
	if opt > InformationBound {
		return fmt.Errorf("%w: unknown information option %d", ErrInvalidArgument, data[0])
	}
	i.Option = opt
	i.ProtocolInformation = append([]byte(nil), data[1:]...)
	return nil
}

// DuplicateAndClose serializes the socket so another owner can rebuild it with
// FromInformation, then closes it. A connected socket records its peer; a bound
// one records its local endpoint.
func (s *Socket) DuplicateAndClose() (SocketInformation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Permits(OpDuplicate) {
		return SocketInformation{}, s.stateErrorLocked(OpDuplicate)
	}

	var opt InformationOption
	var ep *endpoint.EndPoint
	switch {
	case s.connected:
		opt, ep = InformationConnected, s.remote
	case s.bound:
		opt, ep = InformationBound, s.local
	}
	if ep == nil {
		return SocketInformation{}, ErrNilEndPoint
	}

	info := SocketInformation{
		Option:              opt,
		ProtocolInformation: encodeInformation(s.family, s.socketType, s.protocol, ep),
	}
	if err := s.closeLocked(OpDuplicate); err != nil {
		return SocketInformation{}, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "Socket.DuplicateAndClose",
		"option":   opt.String(),
		"endpoint": ep.String(),
	}).Debug("Socket duplicated")
	return info, nil
}

func encodeInformation(family endpoint.AddressFamily, socketType interfaces.SocketType, protocol interfaces.ProtocolType, ep *endpoint.EndPoint) []byte {
	buf := make([]byte, limits.InformationSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(int32(family)))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(int32(socketType)))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(int32(protocol)))
	copy(buf[limits.InformationHeaderSize:], ep.Serialize())
	return buf
}

// FromInformation opens a new socket described by info. Connected information
// connects to the recorded peer, Bound information binds the recorded local
// endpoint with SO_REUSEADDR, and None yields a socket in StateReady.
func FromInformation(info SocketInformation, opts *Options) (*Socket, error) {
	if err := limits.ValidateExactSize(info.ProtocolInformation, limits.InformationSize); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	pi := info.ProtocolInformation
	family := endpoint.AddressFamily(int32(binary.LittleEndian.Uint32(pi[0:4])))
	socketType := interfaces.SocketType(int32(binary.LittleEndian.Uint32(pi[4:8])))
	protocol := interfaces.ProtocolType(int32(binary.LittleEndian.Uint32(pi[8:12])))

	if !family.IsSupported() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFamily, family)
	}

	var ep *endpoint.EndPoint
	if info.Option != InformationNone {
		var err error
		ep, err = endpoint.FromBytes(pi[limits.InformationHeaderSize:])
		if err != nil {
			return nil, err
		}
	}

	s, err := New(family, socketType, protocol, opts)
	if err != nil {
		return nil, err
	}

	switch info.Option {
	case InformationNone:
	case InformationConnected:
		err = s.Connect(ep)
	case InformationBound:
		err = s.bind(ep, true)
	default:
		err = fmt.Errorf("%w: unknown information option %d", ErrInvalidArgument, uint8(info.Option))
	}
	if err != nil {
		if closeErr := s.Close(); closeErr != nil {
			logrus.WithFields(logrus.Fields{
				"function": "FromInformation",
				"error":    closeErr.Error(),
			}).Warn("Failed to close socket after reconstruction error")
		}
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "FromInformation",
		"option":   info.Option.String(),
		"state":    s.State().String(),
	}).Debug("Socket reconstructed")
	return s, nil
}
