package sockets

import (
	"testing"

	"github.com/opd-ai/sockets/endpoint"
	"github.com/opd-ai/sockets/factory"
	"github.com/opd-ai/sockets/interfaces"
	sim "github.com/opd-ai/sockets/testing"
	"github.com/stretchr/testify/require"
)

func newSimOptions(t *testing.T) (*sim.SimulatedSyscalls, *Options) {
	t.Helper()
	s := factory.NewSyscallFactory().CreateSimulationForTesting()
	opts := NewOptions()
	opts.Syscalls = s
	return s, opts
}

func newStream(t *testing.T, opts *Options) *Socket {
	t.Helper()
	s, err := New(endpoint.InterNetwork, interfaces.Stream, interfaces.TCP, opts)
	require.NoError(t, err)
	t.Cleanup(func() {
		if s.State() != StateClosed {
			_ = s.Close()
		}
	})
	return s
}

// newListener returns a socket listening on 127.0.0.1 with an ephemeral port.
func newListener(t *testing.T, opts *Options) (*Socket, *endpoint.EndPoint) {
	t.Helper()
	l := newStream(t, opts)
	require.NoError(t, l.Bind(endpoint.New(endpoint.Loopback, 0)))
	require.NoError(t, l.Listen(8))
	local, err := l.LocalEndPoint()
	require.NoError(t, err)
	return l, local
}

// newPair returns a connected client and the server side accepted for it.
func newPair(t *testing.T, opts *Options) (client, server *Socket) {
	t.Helper()
	l, local := newListener(t, opts)
	client = newStream(t, opts)
	require.NoError(t, client.Connect(local))
	server, err := l.Accept()
	require.NoError(t, err)
	t.Cleanup(func() {
		if server.State() != StateClosed {
			_ = server.Close()
		}
	})
	return client, server
}
