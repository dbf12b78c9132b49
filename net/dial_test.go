package net

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/opd-ai/sockets"
	"github.com/opd-ai/sockets/factory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenRejectsBadNetworks(t *testing.T) {
	lc := ListenConfig{Options: simOptions()}

	_, err := lc.Listen(context.Background(), "udp", "127.0.0.1:0")
	assert.ErrorIs(t, err, ErrUnknownNetwork)

	_, err = lc.Listen(context.Background(), "sctp", "127.0.0.1:0")
	assert.ErrorIs(t, err, ErrUnknownNetwork)

	_, err = lc.Listen(context.Background(), "tcp", "127.0.0.1")
	assert.Error(t, err)
}

func TestListenUsesConfiguredBacklog(t *testing.T) {
	opts := sockets.NewOptions()
	opts.Syscalls = factory.NewSyscallFactory().CreateSimulationForTesting(factory.WithDefaultBacklog(1))

	tests := []struct {
		name      string
		backlog   int
		connected int
	}{
		{"zero uses the OS layer default", 0, 2},
		{"explicit backlog wins", 4, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lc := ListenConfig{Options: opts, Backlog: tt.backlog}
			ln, err := lc.ListenSocket(context.Background(), "tcp", "127.0.0.1:0")
			require.NoError(t, err)
			defer ln.Close()

			d := Dialer{Options: opts}
			connected := 0
			for i := 0; i < 3; i++ {
				conn, err := d.Dial("tcp", ln.Addr().String())
				if err != nil {
					assert.ErrorIs(t, err, syscall.ECONNREFUSED)
					continue
				}
				defer conn.Close()
				connected++
			}
			assert.Equal(t, tt.connected, connected)
		})
	}
}

func TestListenerAcceptDeadline(t *testing.T) {
	lc := ListenConfig{Options: simOptions(), Backlog: 4}
	ln, err := lc.ListenSocket(context.Background(), "tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	require.NoError(t, ln.SetDeadline(time.Now().Add(10*time.Millisecond)))
	_, err = ln.Accept()
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestListenerClose(t *testing.T) {
	lc := ListenConfig{Options: simOptions()}
	ln, err := lc.ListenSocket(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)

	require.NoError(t, ln.Close())
	_, err = ln.Accept()
	assert.ErrorIs(t, err, ErrListenerClosed)
	assert.ErrorIs(t, ln.Close(), ErrListenerClosed)
}

func TestDialRefused(t *testing.T) {
	d := Dialer{Options: simOptions()}
	_, err := d.Dial("tcp", "127.0.0.1:1")
	require.Error(t, err)
	assert.ErrorIs(t, err, syscall.ECONNREFUSED)
}

func TestDialFamilyMismatch(t *testing.T) {
	d := Dialer{Options: simOptions()}
	_, err := d.Dial("tcp6", "127.0.0.1:80")
	assert.Error(t, err)
}

func TestDialCanceledContext(t *testing.T) {
	opts := simOptions()
	lc := ListenConfig{Options: opts}
	ln, err := lc.ListenSocket(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := Dialer{Options: opts}
	_, err = d.DialContext(ctx, "tcp", ln.Addr().String())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDialUDP(t *testing.T) {
	d := Dialer{Options: simOptions()}
	conn, err := d.Dial("udp", "127.0.0.1:5353")
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "udp", conn.RemoteAddr().Network())
	n, err := conn.Write([]byte("query"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}
