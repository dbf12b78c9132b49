package sockets

import (
	"errors"
	"runtime"
	"syscall"
	"testing"
	"time"

	"github.com/opd-ai/sockets/endpoint"
	"github.com/opd-ai/sockets/factory"
	"github.com/opd-ai/sockets/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRealOptions returns options backed by the host's socket layer.
func newRealOptions(t *testing.T) *Options {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping OS socket test in short mode")
	}
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		t.Skipf("OS socket layer not available on %s", runtime.GOOS)
	}
	f := factory.NewSyscallFactory()
	f.SwitchToReal()
	opts := NewOptions()
	opts.Syscalls = f.CreateSyscalls()
	require.False(t, opts.Syscalls.IsSimulation())
	return opts
}

// closedLoopbackPort returns a loopback endpoint whose port was just released.
func closedLoopbackPort(t *testing.T, opts *Options) *endpoint.EndPoint {
	t.Helper()
	s := newStream(t, opts)
	require.NoError(t, s.Bind(endpoint.New(endpoint.Loopback, 0)))
	local, err := s.LocalEndPoint()
	require.NoError(t, err)
	require.NoError(t, s.Close())
	return local
}

func TestRealSendReceiveAndShutdown(t *testing.T) {
	opts := newRealOptions(t)
	client, server := newPair(t, opts)
	require.NoError(t, server.SetReceiveTimeout(2*time.Second))

	n, err := client.Send([]byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	buf := make([]byte, 8)
	got := 0
	for got < 3 {
		n, err = server.Receive(buf[got:])
		require.NoError(t, err)
		require.NotZero(t, n, "connection closed early")
		got += n
	}
	assert.Equal(t, []byte{1, 2, 3}, buf[:got])

	require.NoError(t, client.Shutdown(interfaces.ShutdownSend))
	n, err = server.Receive(buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRealDuplicateBoundRoundTrip(t *testing.T) {
	opts := newRealOptions(t)
	s := newStream(t, opts)
	require.NoError(t, s.Bind(endpoint.New(endpoint.Loopback, 0)))
	local, err := s.LocalEndPoint()
	require.NoError(t, err)
	require.NotZero(t, local.Port())

	info, err := s.DuplicateAndClose()
	require.NoError(t, err)
	assert.Equal(t, InformationBound, info.Option)

	rebuilt, err := FromInformation(info, opts)
	require.NoError(t, err)
	defer rebuilt.Close()

	assert.Equal(t, StateBound, rebuilt.State())
	rebuiltLocal, err := rebuilt.LocalEndPoint()
	require.NoError(t, err)
	assert.Equal(t, local.Serialize(), rebuiltLocal.Serialize())
}

func TestRealConnectAny(t *testing.T) {
	tests := []struct {
		name      string
		listening bool
	}{
		{name: "third candidate accepts", listening: true},
		{name: "every candidate refuses", listening: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := newRealOptions(t)
			candidates := []*endpoint.EndPoint{
				closedLoopbackPort(t, opts),
				closedLoopbackPort(t, opts),
			}
			if tt.listening {
				_, local := newListener(t, opts)
				candidates = append(candidates, local)
			} else {
				candidates = append(candidates, closedLoopbackPort(t, opts))
			}

			s := newStream(t, opts)
			err := s.ConnectAny(candidates)

			if tt.listening {
				require.NoError(t, err)
				assert.Equal(t, StateConnected, s.State())
				remote, err := s.RemoteEndPoint()
				require.NoError(t, err)
				assert.True(t, remote.Equal(candidates[2]))
				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrAllCandidatesFailed)
			assert.ErrorIs(t, err, syscall.ECONNREFUSED)
			var connErr *ConnectError
			require.True(t, errors.As(err, &connErr))
			assert.Len(t, connErr.Attempts, 3)
			assert.Equal(t, StateReady, s.State())
		})
	}
}
