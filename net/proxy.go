package net

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"
)

// ProxyConfig describes a SOCKS5 proxy.
type ProxyConfig struct {
	Host     string
	Port     uint16
	Username string
	Password string
}

// ProxyDialer dials through a SOCKS5 proxy. The connection to the proxy
// itself is made with the wrapped Dialer, so it runs on this package's sockets.
type ProxyDialer struct {
	socks     proxy.Dialer
	proxyAddr string
}

// SOCKS5 returns a dialer that reaches its targets through the proxy in config.
func (d *Dialer) SOCKS5(config *ProxyConfig) (*ProxyDialer, error) {
	if config == nil {
		return nil, fmt.Errorf("proxy config cannot be nil")
	}
	if config.Host == "" || config.Port == 0 {
		return nil, fmt.Errorf("proxy address %s:%d is incomplete", config.Host, config.Port)
	}
	proxyAddr := net.JoinHostPort(config.Host, strconv.Itoa(int(config.Port)))

	var auth *proxy.Auth
	if config.Username != "" || config.Password != "" {
		auth = &proxy.Auth{
			User:     config.Username,
			Password: config.Password,
		}
	}

	socks, err := proxy.SOCKS5("tcp", proxyAddr, auth, d)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "Dialer.SOCKS5",
			"proxy_addr": proxyAddr,
			"error":      err.Error(),
		}).Error("Failed to create SOCKS5 dialer")
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":   "Dialer.SOCKS5",
		"proxy_addr": proxyAddr,
		"auth":       auth != nil,
	}).Debug("SOCKS5 dialer configured")

	return &ProxyDialer{socks: socks, proxyAddr: proxyAddr}, nil
}

// Dial connects to address through the proxy.
func (p *ProxyDialer) Dial(network, address string) (net.Conn, error) {
	return p.DialContext(context.Background(), network, address)
}

// DialContext connects to address through the proxy. Only tcp networks can
// be proxied.
func (p *ProxyDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	n, err := parseNetwork(network)
	if err != nil {
		return nil, err
	}
	if n.base != "tcp" {
		return nil, newNetError("dial", network, address,
			fmt.Errorf("%w: SOCKS5 proxies only carry stream networks", ErrUnknownNetwork))
	}

	var conn net.Conn
	if cd, ok := p.socks.(proxy.ContextDialer); ok {
		conn, err = cd.DialContext(ctx, "tcp", address)
	} else {
		conn, err = p.socks.Dial("tcp", address)
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "ProxyDialer.DialContext",
			"proxy_addr": p.proxyAddr,
			"address":    address,
			"error":      err.Error(),
		}).Debug("Proxied dial failed")
		return nil, newNetError("dial", network, address, err)
	}
	return conn, nil
}

// ProxyAddr returns the host:port of the proxy.
func (p *ProxyDialer) ProxyAddr() string {
	return p.proxyAddr
}
