package net

import (
	"fmt"
	"net"

	"github.com/opd-ai/sockets/endpoint"
	"github.com/opd-ai/sockets/interfaces"
)

// EndPointAddr implements net.Addr for an endpoint.EndPoint.
type EndPointAddr struct {
	ep      *endpoint.EndPoint
	network string
}

// NewEndPointAddr wraps ep for the given network ("tcp" or "udp").
func NewEndPointAddr(network string, ep *endpoint.EndPoint) *EndPointAddr {
	return &EndPointAddr{ep: ep, network: network}
}

// ResolveEndPointAddr parses a numeric "host:port" address. Host names are
// not resolved; use Dial for those.
func ResolveEndPointAddr(network, address string) (*EndPointAddr, error) {
	n, err := parseNetwork(network)
	if err != nil {
		return nil, err
	}
	ep, err := endpoint.ParseEndPoint(address)
	if err != nil {
		return nil, newNetError("resolve", network, address, err)
	}
	if !n.accepts(ep.Family()) {
		return nil, newNetError("resolve", network, address,
			fmt.Errorf("%w: %s address", ErrUnknownNetwork, ep.Family()))
	}
	return &EndPointAddr{ep: ep, network: n.base}, nil
}

// Network returns "tcp" or "udp".
// This implements net.Addr.Network().
func (a *EndPointAddr) Network() string {
	return a.network
}

// String returns "host:port".
// This implements net.Addr.String().
func (a *EndPointAddr) String() string {
	if a == nil || a.ep == nil {
		return "<nil>"
	}
	return a.ep.String()
}

// EndPoint returns the wrapped endpoint.
func (a *EndPointAddr) EndPoint() *endpoint.EndPoint {
	return a.ep
}

// Equal returns true if both addresses name the same network and endpoint.
func (a *EndPointAddr) Equal(other *EndPointAddr) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.network == other.network && a.ep.Equal(other.ep)
}

// NetAddr converts the address to a *net.TCPAddr or *net.UDPAddr.
func (a *EndPointAddr) NetAddr() net.Addr {
	ap := a.ep.AddrPort()
	if a.network == "udp" {
		return net.UDPAddrFromAddrPort(ap)
	}
	return net.TCPAddrFromAddrPort(ap)
}

// network describes a parsed network name.
type network struct {
	base       string
	family     endpoint.AddressFamily
	socketType interfaces.SocketType
	protocol   interfaces.ProtocolType
}

func parseNetwork(name string) (network, error) {
	switch name {
	case "tcp", "tcp4", "tcp6":
		return network{base: "tcp", family: familySuffix(name), socketType: interfaces.Stream, protocol: interfaces.TCP}, nil
	case "udp", "udp4", "udp6":
		return network{base: "udp", family: familySuffix(name), socketType: interfaces.Dgram, protocol: interfaces.UDP}, nil
	default:
		return network{}, newNetError("parse", name, "", ErrUnknownNetwork)
	}
}

func familySuffix(name string) endpoint.AddressFamily {
	switch name[len(name)-1] {
	case '4':
		return endpoint.InterNetwork
	case '6':
		return endpoint.InterNetworkV6
	default:
		return endpoint.Unspecified
	}
}

func (n network) accepts(family endpoint.AddressFamily) bool {
	return n.family == endpoint.Unspecified || n.family == family
}
