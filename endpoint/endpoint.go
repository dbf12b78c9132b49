package endpoint

import (
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"
	"strconv"

	"github.com/opd-ai/sockets/limits"
	"github.com/sirupsen/logrus"
)

// Offsets into the serialized sockaddr image.
const (
	offFamily   = 0
	offPort     = 2
	offAddr4    = 4
	offFlowInfo = 4
	offAddr6    = 8
	offScopeID  = 24
)

// EndPoint is an immutable IP address and port.
type EndPoint struct {
	address IPAddress
	port    uint16
}

// New returns an endpoint for the given address and port.
func New(address IPAddress, port uint16) *EndPoint {
	return &EndPoint{address: address, port: port}
}

// FromAddrPort converts a netip.AddrPort.
func FromAddrPort(ap netip.AddrPort) (*EndPoint, error) {
	addr, err := FromNetIP(ap.Addr())
	if err != nil {
		return nil, err
	}
	return New(addr, ap.Port()), nil
}

// ParseEndPoint parses "host:port" where host is an IP literal.
func ParseEndPoint(s string) (*EndPoint, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("%w: port %q", ErrInvalidFormat, portStr)
	}
	addr, err := Parse(host)
	if err != nil {
		return nil, err
	}
	return New(addr, uint16(port)), nil
}

// Address returns the endpoint's IP address.
func (e *EndPoint) Address() IPAddress {
	return e.address
}

// Port returns the endpoint's port in host order.
func (e *EndPoint) Port() uint16 {
	return e.port
}

// Family returns the address family of the endpoint.
func (e *EndPoint) Family() AddressFamily {
	return e.address.Family()
}

// AddrPort returns the endpoint as a netip.AddrPort.
func (e *EndPoint) AddrPort() netip.AddrPort {
	return netip.AddrPortFrom(e.address.NetIP(), e.port)
}

// Equal reports whether two endpoints have the same address and port.
func (e *EndPoint) Equal(other *EndPoint) bool {
	if e == nil || other == nil {
		return e == other
	}
	return e.port == other.port && e.address.Equal(other.address)
}

// String returns "addr:port", bracketing IPv6 addresses.
func (e *EndPoint) String() string {
	return net.JoinHostPort(e.address.String(), strconv.Itoa(int(e.port)))
}

// Serialize returns the sockaddr_storage image of the endpoint. The result is
// always limits.SockaddrStorageSize bytes; unused bytes are zero.
func (e *EndPoint) Serialize() []byte {
	buf := make([]byte, limits.SockaddrStorageSize)
	family := e.address.Family()
	binary.LittleEndian.PutUint16(buf[offFamily:], uint16(family))
	binary.BigEndian.PutUint16(buf[offPort:], e.port)

	switch family {
	case InterNetwork:
		copy(buf[offAddr4:offAddr4+4], e.address.Bytes())
	case InterNetworkV6:
		binary.BigEndian.PutUint32(buf[offFlowInfo:], 0)
		copy(buf[offAddr6:offAddr6+16], e.address.Bytes())
		binary.LittleEndian.PutUint32(buf[offScopeID:], e.address.scopeID)
	}
	return buf
}

// FromBytes rebuilds an endpoint from a sockaddr_storage image produced by Serialize.
func FromBytes(data []byte) (*EndPoint, error) {
	if len(data) != limits.SockaddrStorageSize {
		logrus.WithFields(logrus.Fields{
			"function": "FromBytes",
			"length":   len(data),
			"expected": limits.SockaddrStorageSize,
		}).Debug("Rejected endpoint image of wrong size")
		return nil, fmt.Errorf("%w: endpoint image is %d bytes, want %d",
			ErrInvalidFormat, len(data), limits.SockaddrStorageSize)
	}

	family := AddressFamily(binary.LittleEndian.Uint16(data[offFamily:]))
	port := binary.BigEndian.Uint16(data[offPort:])

	switch family {
	case InterNetwork:
		var b [4]byte
		copy(b[:], data[offAddr4:offAddr4+4])
		return New(NewIPv4(b), port), nil
	case InterNetworkV6:
		var b [16]byte
		copy(b[:], data[offAddr6:offAddr6+16])
		scope := binary.LittleEndian.Uint32(data[offScopeID:])
		return New(NewIPv6(b, scope), port), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFamily, family)
	}
}
