package net

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/opd-ai/sockets"
	"github.com/opd-ai/sockets/endpoint"
	"github.com/opd-ai/sockets/resolve"
	"github.com/sirupsen/logrus"
)

// Dialer holds the options for connecting to an address.
type Dialer struct {
	// Options configures new sockets; nil selects sockets.NewOptions.
	Options *sockets.Options
	// Resolver resolves host names; nil selects resolve.NewResolver.
	Resolver *resolve.Resolver
	// Timeout bounds the whole dial, including resolution. Zero means none.
	Timeout time.Duration
}

func (d *Dialer) resolver() *resolve.Resolver {
	if d.Resolver != nil {
		return d.Resolver
	}
	return resolve.NewResolver()
}

// Dial connects to address on the named network and returns a net.Conn.
func Dial(network, address string) (net.Conn, error) {
	var d Dialer
	return d.Dial(network, address)
}

// DialTimeout is Dial with a timeout. If timeout is 0, no timeout is applied.
func DialTimeout(network, address string, timeout time.Duration) (net.Conn, error) {
	d := Dialer{Timeout: timeout}
	return d.Dial(network, address)
}

// Dial connects to address on the named network.
func (d *Dialer) Dial(network, address string) (net.Conn, error) {
	return d.DialContext(context.Background(), network, address)
}

// DialContext resolves address and tries every candidate endpoint, grouped by
// address family, until one connects. Cancelling ctx closes the socket being
// connected.
func (d *Dialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	conn, err := d.dialSocket(ctx, network, address)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (d *Dialer) dialSocket(ctx context.Context, network, address string) (*SocketConn, error) {
	n, err := parseNetwork(network)
	if err != nil {
		return nil, err
	}
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	host, service, err := net.SplitHostPort(address)
	if err != nil {
		return nil, newNetError("dial", network, address, err)
	}
	if host == "" {
		host = "localhost"
	}
	eps, err := d.resolver().LookupEndPoints(ctx, host, service, resolve.Hints{
		Family:   n.family,
		Type:     n.socketType,
		Protocol: n.protocol,
	})
	if err != nil {
		return nil, newNetError("dial", network, address, err)
	}

	var lastErr error
	for _, group := range groupByFamily(eps) {
		sock, err := d.connectFamily(ctx, n, group)
		if err == nil {
			conn := newSocketConn(sock)
			logrus.WithFields(logrus.Fields{
				"function": "Dialer.DialContext",
				"network":  network,
				"address":  address,
				"remote":   conn.RemoteAddr().String(),
			}).Debug("Dial succeeded")
			return conn, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, newNetError("dial", network, address, ctxErr)
		}
		lastErr = err
	}
	return nil, newNetError("dial", network, address, lastErr)
}

// connectFamily opens one socket for the family of eps and tries each endpoint.
func (d *Dialer) connectFamily(ctx context.Context, n network, eps []*endpoint.EndPoint) (*sockets.Socket, error) {
	sock, err := sockets.New(eps[0].Family(), n.socketType, n.protocol, d.Options)
	if err != nil {
		return nil, err
	}

	stop := context.AfterFunc(ctx, func() {
		_ = sock.Close()
	})
	err = sock.ConnectAny(eps)
	if !stop() {
		return nil, ctx.Err()
	}
	if err != nil {
		_ = sock.Close()
		return nil, err
	}
	return sock, nil
}

// groupByFamily splits eps by address family, keeping the order in which
// families first appear.
func groupByFamily(eps []*endpoint.EndPoint) [][]*endpoint.EndPoint {
	var order []endpoint.AddressFamily
	groups := make(map[endpoint.AddressFamily][]*endpoint.EndPoint)
	for _, ep := range eps {
		if _, ok := groups[ep.Family()]; !ok {
			order = append(order, ep.Family())
		}
		groups[ep.Family()] = append(groups[ep.Family()], ep)
	}
	result := make([][]*endpoint.EndPoint, 0, len(order))
	for _, f := range order {
		result = append(result, groups[f])
	}
	return result
}

// ListenConfig holds the options for creating a listener.
type ListenConfig struct {
	// Options configures the listening socket; nil selects sockets.NewOptions.
	Options *sockets.Options
	// Resolver resolves host names; nil selects resolve.NewResolver.
	Resolver *resolve.Resolver
	// Backlog is the accept queue length; zero selects the OS layer default
	// (SOCKETS_DEFAULT_BACKLOG).
	Backlog int
}

// Listen announces on the local network address. Only stream networks are
// supported. An empty host listens on the wildcard address.
func Listen(network, address string) (net.Listener, error) {
	var lc ListenConfig
	return lc.Listen(context.Background(), network, address)
}

// Listen binds and listens on the first endpoint address resolves to.
func (lc *ListenConfig) Listen(ctx context.Context, network, address string) (net.Listener, error) {
	l, err := lc.ListenSocket(ctx, network, address)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// ListenSocket is Listen with a concrete return type.
func (lc *ListenConfig) ListenSocket(ctx context.Context, network, address string) (*SocketListener, error) {
	n, err := parseNetwork(network)
	if err != nil {
		return nil, err
	}
	if n.base != "tcp" {
		return nil, newNetError("listen", network, address,
			fmt.Errorf("%w: listening requires a stream network", ErrUnknownNetwork))
	}

	host, service, err := net.SplitHostPort(address)
	if err != nil {
		return nil, newNetError("listen", network, address, err)
	}
	resolver := lc.Resolver
	if resolver == nil {
		resolver = resolve.NewResolver()
	}
	eps, err := resolver.LookupEndPoints(ctx, host, service, resolve.Hints{
		Family:   n.family,
		Type:     n.socketType,
		Protocol: n.protocol,
	})
	if err != nil {
		return nil, newNetError("listen", network, address, err)
	}

	ep := eps[0]
	sock, err := sockets.New(ep.Family(), n.socketType, n.protocol, lc.Options)
	if err != nil {
		return nil, newNetError("listen", network, address, err)
	}
	backlog := lc.Backlog
	if backlog == 0 {
		backlog = sock.DefaultBacklog()
	}
	if err := sock.Bind(ep); err != nil {
		_ = sock.Close()
		return nil, newNetError("listen", network, address, err)
	}
	if err := sock.Listen(backlog); err != nil {
		_ = sock.Close()
		return nil, newNetError("listen", network, address, err)
	}

	l, err := NewSocketListener(sock)
	if err != nil {
		_ = sock.Close()
		return nil, newNetError("listen", network, address, err)
	}
	logrus.WithFields(logrus.Fields{
		"function": "ListenConfig.Listen",
		"network":  network,
		"local":    l.Addr().String(),
		"backlog":  backlog,
	}).Info("Listening")
	return l, nil
}
