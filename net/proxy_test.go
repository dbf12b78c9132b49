package net

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"strconv"
	"testing"

	"github.com/opd-ai/sockets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveSOCKS5 accepts one client on ln, performs a no-auth IPv4 CONNECT
// handshake and relays to the requested target.
func serveSOCKS5(t *testing.T, ln *SocketListener, opts *sockets.Options) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		done <- func() error {
			client, err := ln.AcceptSocket()
			if err != nil {
				return err
			}
			defer client.Close()

			greeting := make([]byte, 2)
			if _, err := io.ReadFull(client, greeting); err != nil {
				return err
			}
			if _, err := io.ReadFull(client, make([]byte, greeting[1])); err != nil {
				return err
			}
			if _, err := client.Write([]byte{5, 0}); err != nil {
				return err
			}

			request := make([]byte, 10)
			if _, err := io.ReadFull(client, request); err != nil {
				return err
			}
			target := net.JoinHostPort(net.IP(request[4:8]).String(),
				strconv.Itoa(int(binary.BigEndian.Uint16(request[8:10]))))

			d := Dialer{Options: opts}
			upstream, err := d.Dial("tcp", target)
			if err != nil {
				_, _ = client.Write([]byte{5, 5, 0, 1, 0, 0, 0, 0, 0, 0})
				return err
			}
			defer upstream.Close()
			if _, err := client.Write([]byte{5, 0, 0, 1, 0, 0, 0, 0, 0, 0}); err != nil {
				return err
			}

			go func() { _, _ = io.Copy(upstream, client) }()
			_, err = io.Copy(client, upstream)
			return err
		}()
	}()
	return done
}

func TestProxyDialerSOCKS5(t *testing.T) {
	opts := simOptions()
	lc := ListenConfig{Options: opts}

	target, err := lc.ListenSocket(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer target.Close()

	proxyLn, err := lc.ListenSocket(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer proxyLn.Close()
	proxyDone := serveSOCKS5(t, proxyLn, opts)

	proxyEP := proxyLn.Addr().(*EndPointAddr).EndPoint()
	d := &Dialer{Options: opts}
	pd, err := d.SOCKS5(&ProxyConfig{Host: "127.0.0.1", Port: proxyEP.Port()})
	require.NoError(t, err)
	assert.Equal(t, proxyLn.Addr().String(), pd.ProxyAddr())

	conn, err := pd.Dial("tcp", target.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	server, err := target.AcceptSocket()
	require.NoError(t, err)
	defer server.Close()

	_, err = conn.Write([]byte("through the proxy"))
	require.NoError(t, err)
	buf := make([]byte, 64)
	n, err := server.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "through the proxy", string(buf[:n]))

	require.NoError(t, server.Close())
	_, err = io.ReadAll(conn)
	require.NoError(t, err)
	require.NoError(t, conn.Close())
	<-proxyDone
}

func TestProxyDialerRejects(t *testing.T) {
	d := &Dialer{Options: simOptions()}

	_, err := d.SOCKS5(nil)
	assert.Error(t, err)
	_, err = d.SOCKS5(&ProxyConfig{Host: "127.0.0.1"})
	assert.Error(t, err)

	pd, err := d.SOCKS5(&ProxyConfig{Host: "127.0.0.1", Port: 1080, Username: "u", Password: "p"})
	require.NoError(t, err)

	_, err = pd.Dial("udp", "127.0.0.1:53")
	assert.ErrorIs(t, err, ErrUnknownNetwork)
	_, err = pd.Dial("sctp", "127.0.0.1:53")
	assert.ErrorIs(t, err, ErrUnknownNetwork)
}

func TestProxyDialerUnreachableProxy(t *testing.T) {
	opts := simOptions()
	lc := ListenConfig{Options: opts}
	ln, err := lc.ListenSocket(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*EndPointAddr).EndPoint().Port()
	require.NoError(t, ln.Close())

	d := &Dialer{Options: opts}
	pd, err := d.SOCKS5(&ProxyConfig{Host: "127.0.0.1", Port: port})
	require.NoError(t, err)

	_, err = pd.Dial("tcp", "127.0.0.1:80")
	var netErr *NetError
	assert.ErrorAs(t, err, &netErr)
}
