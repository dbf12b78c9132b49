package resolve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"time"

	"github.com/opd-ai/sockets/endpoint"
	"github.com/opd-ai/sockets/interfaces"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/idna"
)

// DefaultTimeout bounds a lookup whose context carries no deadline.
const DefaultTimeout = 10 * time.Second

var (
	// ErrEmptyService indicates a lookup without a service or port
	ErrEmptyService = errors.New("service must not be empty")

	// ErrInvalidHost indicates a host name that fails IDNA validation
	ErrInvalidHost = errors.New("invalid host name")

	// ErrNoAddresses indicates a lookup that produced no usable endpoint
	ErrNoAddresses = errors.New("no addresses found")
)

// Hints narrows a lookup, like the hints argument of getaddrinfo. Zero values
// mean unspecified.
type Hints struct {
	Family   endpoint.AddressFamily
	Type     interfaces.SocketType
	Protocol interfaces.ProtocolType
}

// ipNetwork returns the network name for address lookups.
func (h Hints) ipNetwork() string {
	switch h.Family {
	case endpoint.InterNetwork:
		return "ip4"
	case endpoint.InterNetworkV6:
		return "ip6"
	default:
		return "ip"
	}
}

// portNetwork returns the network name for service lookups.
func (h Hints) portNetwork() string {
	if h.Type == interfaces.Dgram || h.Protocol == interfaces.UDP {
		return "udp"
	}
	return "tcp"
}

func (h Hints) accepts(family endpoint.AddressFamily) bool {
	return h.Family == endpoint.Unspecified || h.Family == family
}

// HostLookup is the subset of *net.Resolver used by Resolver.
type HostLookup interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
	LookupPort(ctx context.Context, network, service string) (int, error)
}

// Resolver looks up endpoints through a HostLookup, net.DefaultResolver by default.
type Resolver struct {
	lookup  HostLookup
	timeout time.Duration
}

// NewResolver creates a resolver backed by net.DefaultResolver.
func NewResolver() *Resolver {
	return NewResolverWithLookup(net.DefaultResolver)
}

// NewResolverWithLookup creates a resolver backed by lookup.
func NewResolverWithLookup(lookup HostLookup) *Resolver {
	return &Resolver{
		lookup:  lookup,
		timeout: DefaultTimeout,
	}
}

// SetTimeout changes the bound applied to contexts without a deadline.
func (r *Resolver) SetTimeout(d time.Duration) {
	r.timeout = d
}

// LookupEndPoints resolves host and service into endpoints in lookup order.
// service may be a port number or a service name. An empty host yields
// wildcard endpoints for binding.
func (r *Resolver) LookupEndPoints(ctx context.Context, host, service string, hints Hints) ([]*endpoint.EndPoint, error) {
	if service == "" {
		return nil, ErrEmptyService
	}
	if hints.Family != endpoint.Unspecified && !hints.Family.IsSupported() {
		return nil, fmt.Errorf("%w: %s", endpoint.ErrUnsupportedFamily, hints.Family)
	}

	if _, ok := ctx.Deadline(); !ok && r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	port, err := r.lookupPort(ctx, service, hints)
	if err != nil {
		return nil, err
	}

	addrs, err := r.lookupAddresses(ctx, host, hints)
	if err != nil {
		return nil, err
	}

	eps := make([]*endpoint.EndPoint, 0, len(addrs))
	for _, addr := range addrs {
		if !hints.accepts(addr.Family()) {
			continue
		}
		ep := endpoint.New(addr, port)
		if containsEndPoint(eps, ep) {
			continue
		}
		eps = append(eps, ep)
	}
	if len(eps) == 0 {
		return nil, fmt.Errorf("%w: %q for %s", ErrNoAddresses, host, hints.ipNetwork())
	}

	logrus.WithFields(logrus.Fields{
		"function":  "Resolver.LookupEndPoints",
		"host":      host,
		"service":   service,
		"endpoints": len(eps),
	}).Debug("Resolved endpoints")
	return eps, nil
}

func (r *Resolver) lookupPort(ctx context.Context, service string, hints Hints) (uint16, error) {
	if n, err := strconv.ParseUint(service, 10, 16); err == nil {
		return uint16(n), nil
	}
	port, err := r.lookup.LookupPort(ctx, hints.portNetwork(), service)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Resolver.lookupPort",
			"service":  service,
			"error":    err.Error(),
		}).Debug("Service lookup failed")
		return 0, fmt.Errorf("lookup service %q: %w", service, err)
	}
	if port < 0 || port > 65535 {
		return 0, fmt.Errorf("lookup service %q: port %d out of range", service, port)
	}
	return uint16(port), nil
}

func (r *Resolver) lookupAddresses(ctx context.Context, host string, hints Hints) ([]endpoint.IPAddress, error) {
	if host == "" {
		return []endpoint.IPAddress{endpoint.Any, endpoint.IPv6Any}, nil
	}
	if addr, err := endpoint.Parse(host); err == nil {
		return []endpoint.IPAddress{addr}, nil
	}

	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidHost, host, err)
	}

	ips, err := r.lookup.LookupNetIP(ctx, hints.ipNetwork(), ascii)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Resolver.lookupAddresses",
			"host":     ascii,
			"error":    err.Error(),
		}).Debug("Host lookup failed")
		return nil, fmt.Errorf("lookup host %q: %w", ascii, err)
	}

	addrs := make([]endpoint.IPAddress, 0, len(ips))
	for _, ip := range ips {
		addr, err := endpoint.FromNetIP(ip)
		if err != nil {
			continue
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

func containsEndPoint(eps []*endpoint.EndPoint, ep *endpoint.EndPoint) bool {
	for _, e := range eps {
		if e.Equal(ep) {
			return true
		}
	}
	return false
}
