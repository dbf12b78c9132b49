package endpoint

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
)

// AddressFamily identifies the addressing scheme of an endpoint. Values follow
// the Linux AF_* numbering; the OS layer maps them to the host's numbering.
type AddressFamily uint16

const (
	// Unspecified is AF_UNSPEC
	Unspecified AddressFamily = 0
	// InterNetwork is AF_INET
	InterNetwork AddressFamily = 2
	// InterNetworkV6 is AF_INET6
	InterNetworkV6 AddressFamily = 10
)

// String returns a human-readable representation of the AddressFamily.
func (f AddressFamily) String() string {
	switch f {
	case Unspecified:
		return "Unspecified"
	case InterNetwork:
		return "InterNetwork"
	case InterNetworkV6:
		return "InterNetworkV6"
	default:
		return fmt.Sprintf("AddressFamily(%d)", uint16(f))
	}
}

// IsSupported reports whether the family can be used to open a socket.
func (f AddressFamily) IsSupported() bool {
	return f == InterNetwork || f == InterNetworkV6
}

var (
	// ErrInvalidFormat indicates an address or endpoint image that cannot be parsed
	ErrInvalidFormat = errors.New("invalid address format")

	// ErrUnsupportedFamily indicates an address family other than IPv4 or IPv6
	ErrUnsupportedFamily = errors.New("unsupported address family")

	// ErrNoScope indicates a scope id request on an address that has none
	ErrNoScope = errors.New("scope id is only defined for IPv6 addresses")
)

// IPAddress is an immutable IPv4 or IPv6 address. IPv6 addresses may carry a
// numeric scope id.
type IPAddress struct {
	addr    netip.Addr
	scopeID uint32
}

// Well-known addresses.
var (
	Any          = IPAddress{addr: netip.IPv4Unspecified()}
	Loopback     = IPAddress{addr: netip.AddrFrom4([4]byte{127, 0, 0, 1})}
	Broadcast    = IPAddress{addr: netip.AddrFrom4([4]byte{255, 255, 255, 255})}
	None         = Broadcast
	IPv6Any      = IPAddress{addr: netip.IPv6Unspecified()}
	IPv6Loopback = IPAddress{addr: netip.IPv6Loopback()}
	IPv6None     = IPv6Any
)

// NewIPv4 returns the IPv4 address with the given bytes.
func NewIPv4(b [4]byte) IPAddress {
	return IPAddress{addr: netip.AddrFrom4(b)}
}

// NewIPv6 returns the IPv6 address with the given bytes and scope id.
func NewIPv6(b [16]byte, scopeID uint32) IPAddress {
	return IPAddress{addr: netip.AddrFrom16(b), scopeID: scopeID}
}

// FromNetIP converts a netip.Addr. IPv4-mapped IPv6 addresses become IPv4.
// A numeric zone is kept as the scope id; named zones are dropped.
func FromNetIP(a netip.Addr) (IPAddress, error) {
	if !a.IsValid() {
		return IPAddress{}, fmt.Errorf("%w: invalid address", ErrInvalidFormat)
	}
	if a.Is4In6() {
		return IPAddress{addr: a.Unmap()}, nil
	}
	if a.Is4() {
		return IPAddress{addr: a}, nil
	}
	var scope uint32
	if zone := a.Zone(); zone != "" {
		if n, err := strconv.ParseUint(zone, 10, 32); err == nil {
			scope = uint32(n)
		} else if ifi, err := net.InterfaceByName(zone); err == nil {
			scope = uint32(ifi.Index)
		}
	}
	return IPAddress{addr: a.WithZone(""), scopeID: scope}, nil
}

// FromIP converts a net.IP.
func FromIP(ip net.IP) (IPAddress, error) {
	a, ok := netip.AddrFromSlice(ip)
	if !ok {
		return IPAddress{}, fmt.Errorf("%w: %d-byte IP", ErrInvalidFormat, len(ip))
	}
	return FromNetIP(a)
}

// Parse parses a dotted IPv4 or textual IPv6 literal, with an optional %zone.
func Parse(s string) (IPAddress, error) {
	a, err := netip.ParseAddr(s)
	if err != nil {
		return IPAddress{}, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	return FromNetIP(a)
}

// TryParse is Parse without the error detail.
func TryParse(s string) (IPAddress, bool) {
	a, err := Parse(s)
	return a, err == nil
}

// Family returns InterNetwork or InterNetworkV6, or Unspecified for the zero value.
func (a IPAddress) Family() AddressFamily {
	switch {
	case a.addr.Is4():
		return InterNetwork
	case a.addr.Is6():
		return InterNetworkV6
	default:
		return Unspecified
	}
}

// IsValid reports whether a holds an address.
func (a IPAddress) IsValid() bool {
	return a.addr.IsValid()
}

// Bytes returns the address in network order, 4 or 16 bytes long.
func (a IPAddress) Bytes() []byte {
	return a.addr.AsSlice()
}

// IsLoopback reports whether a is 127.0.0.0/8 or ::1.
func (a IPAddress) IsLoopback() bool {
	return a.addr.IsLoopback()
}

// ScopeID returns the IPv6 scope id.
func (a IPAddress) ScopeID() (uint32, error) {
	if !a.addr.Is6() {
		return 0, ErrNoScope
	}
	return a.scopeID, nil
}

// WithScopeID returns a copy of an IPv6 address with the given scope id.
func (a IPAddress) WithScopeID(id uint32) (IPAddress, error) {
	if !a.addr.Is6() {
		return IPAddress{}, ErrNoScope
	}
	a.scopeID = id
	return a, nil
}

// NetIP returns the address as a netip.Addr. The scope id is rendered as a numeric zone.
func (a IPAddress) NetIP() netip.Addr {
	if a.addr.Is6() && a.scopeID != 0 {
		return a.addr.WithZone(strconv.FormatUint(uint64(a.scopeID), 10))
	}
	return a.addr
}

// Equal reports whether two addresses are identical, scope id included.
func (a IPAddress) Equal(b IPAddress) bool {
	return a.addr == b.addr && a.scopeID == b.scopeID
}

// String returns the textual form of the address.
func (a IPAddress) String() string {
	if !a.addr.IsValid() {
		return "invalid IP"
	}
	return a.NetIP().String()
}
