package net

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/opd-ai/sockets"
	"github.com/opd-ai/sockets/endpoint"
	"github.com/opd-ai/sockets/factory"
	"github.com/opd-ai/sockets/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simOptions() *sockets.Options {
	opts := sockets.NewOptions()
	opts.Syscalls = factory.NewSyscallFactory().CreateSimulationForTesting()
	return opts
}

// pipe returns both ends of a simulated loopback stream connection.
func pipe(t *testing.T) (client, server *SocketConn) {
	t.Helper()
	opts := simOptions()

	lc := ListenConfig{Options: opts}
	ln, err := lc.ListenSocket(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	d := Dialer{Options: opts}
	client, err = d.dialSocket(context.Background(), "tcp", ln.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	server, err = ln.AcceptSocket()
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.Close() })
	return client, server
}

func TestConnReadWrite(t *testing.T) {
	client, server := pipe(t)

	n, err := client.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	buf := make([]byte, 16)
	n, err = server.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))

	assert.Equal(t, client.LocalAddr().String(), server.RemoteAddr().String())
	assert.Equal(t, server.LocalAddr().String(), client.RemoteAddr().String())
	assert.Equal(t, "tcp", client.RemoteAddr().Network())
}

func TestConnLargeWrite(t *testing.T) {
	client, server := pipe(t)
	payload := make([]byte, 64*1024)
	for i := range payload {
		payload[i] = byte(i)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := client.Write(payload)
		if err == nil {
			err = client.CloseWrite()
		}
		errCh <- err
	}()

	got, err := io.ReadAll(server)
	require.NoError(t, err)
	require.NoError(t, <-errCh)
	assert.Equal(t, payload, got)
}

func TestConnReadEOF(t *testing.T) {
	client, server := pipe(t)
	require.NoError(t, client.CloseWrite())

	n, err := server.Read(make([]byte, 4))
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)
}

func TestConnReadDeadline(t *testing.T) {
	_, server := pipe(t)
	require.NoError(t, server.SetReadDeadline(time.Now().Add(20*time.Millisecond)))

	_, err := server.Read(make([]byte, 4))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)

	var netErr net.Error
	require.True(t, errors.As(err, &netErr))
	assert.True(t, netErr.Timeout())

	require.NoError(t, server.SetDeadline(time.Now().Add(-time.Second)))
	_, err = server.Read(make([]byte, 4))
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestConnClosed(t *testing.T) {
	client, _ := pipe(t)
	require.NoError(t, client.Close())

	_, err := client.Read(make([]byte, 4))
	assert.ErrorIs(t, err, net.ErrClosed)
	_, err = client.Write([]byte{1})
	assert.ErrorIs(t, err, net.ErrClosed)
	assert.ErrorIs(t, client.Close(), ErrConnectionClosed)
}

func TestNewSocketConnRequiresConnected(t *testing.T) {
	sock, err := sockets.New(endpoint.InterNetwork, interfaces.Stream, interfaces.TCP, simOptions())
	require.NoError(t, err)
	defer sock.Close()

	_, err = NewSocketConn(sock)
	assert.ErrorIs(t, err, sockets.ErrInvalidState)

	_, err = NewSocketListener(sock)
	assert.ErrorIs(t, err, sockets.ErrInvalidState)
}
