package sockets

import (
	"syscall"
	"testing"
	"time"

	"github.com/opd-ai/sockets/endpoint"
	"github.com/opd-ai/sockets/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendReceiveThenShutdown(t *testing.T) {
	_, opts := newSimOptions(t)
	client, server := newPair(t, opts)

	n, err := client.Send([]byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, client.Shutdown(interfaces.ShutdownSend))

	buf := make([]byte, 16)
	n, err = server.Receive(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, buf[:n])

	n, err = server.Receive(buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "orderly shutdown reads as zero bytes")
}

func TestRangeValidationPrecedesSyscalls(t *testing.T) {
	sim, opts := newSimOptions(t)
	client, _ := newPair(t, opts)
	dest := endpoint.New(endpoint.Loopback, 9)
	buf := make([]byte, 4)

	tests := []struct {
		name string
		call func() error
	}{
		{"send past end", func() error {
			_, err := client.SendRange(buf, 2, 5, interfaces.FlagsNone)
			return err
		}},
		{"send negative offset", func() error {
			_, err := client.SendRange(buf, -1, 1, interfaces.FlagsNone)
			return err
		}},
		{"send offset past end", func() error {
			_, err := client.SendRange(buf, 5, 0, interfaces.FlagsNone)
			return err
		}},
		{"sendto negative size", func() error {
			_, err := client.SendToRange(buf, 0, -1, interfaces.FlagsNone, dest)
			return err
		}},
		{"receive past end", func() error {
			_, err := client.ReceiveRange(buf, 1, 4, interfaces.FlagsNone)
			return err
		}},
		{"receivefrom past end", func() error {
			_, _, err := client.ReceiveFromRange(buf, 4, 1, interfaces.FlagsNone)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim.ClearCallLog()
			err := tt.call()
			assert.ErrorIs(t, err, ErrOutOfRange)
			assert.True(t, IsContractViolation(err))
			assert.Equal(t, 0, sim.CallCount())
			assert.Equal(t, StateConnected, client.State())
		})
	}
}

func TestSendRangeSendsSlice(t *testing.T) {
	_, opts := newSimOptions(t)
	client, server := newPair(t, opts)

	n, err := client.SendRange([]byte("abcdef"), 2, 3, interfaces.FlagsNone)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	buf := make([]byte, 8)
	n, err = server.ReceiveRange(buf, 1, 7, interfaces.FlagsNone)
	require.NoError(t, err)
	assert.Equal(t, "cde", string(buf[1:1+n]))
}

func TestEmptyRangeIsAllowed(t *testing.T) {
	_, opts := newSimOptions(t)
	client, _ := newPair(t, opts)

	n, err := client.SendRange(make([]byte, 4), 4, 0, interfaces.FlagsNone)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestReceiveFromReportsPeer(t *testing.T) {
	_, opts := newSimOptions(t)
	client, server := newPair(t, opts)

	_, err := client.Send([]byte("ping"))
	require.NoError(t, err)

	buf := make([]byte, 8)
	n, from, err := server.ReceiveFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf[:n]))

	clientLocal, err := client.LocalEndPoint()
	require.NoError(t, err)
	assert.True(t, from.Equal(clientLocal))
}

func TestReceiveTimeout(t *testing.T) {
	_, opts := newSimOptions(t)
	_, server := newPair(t, opts)
	require.NoError(t, server.SetReceiveTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := server.Receive(make([]byte, 4))
	require.Error(t, err)
	assert.ErrorIs(t, err, syscall.EAGAIN)
	assert.True(t, IsEnvironmental(err))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.Equal(t, StateConnected, server.State())
}

func TestDatagramSendToReceiveFrom(t *testing.T) {
	_, opts := newSimOptions(t)

	recv, err := New(endpoint.InterNetwork, interfaces.Dgram, interfaces.UDP, opts)
	require.NoError(t, err)
	defer recv.Close()
	require.NoError(t, recv.Bind(endpoint.New(endpoint.Loopback, 0)))
	recvLocal, err := recv.LocalEndPoint()
	require.NoError(t, err)

	sender, err := New(endpoint.InterNetwork, interfaces.Dgram, interfaces.UDP, opts)
	require.NoError(t, err)
	defer sender.Close()
	require.NoError(t, sender.Connect(recvLocal))

	n, err := sender.SendTo([]byte("dgram"), recvLocal)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	// A bound-only datagram socket is not connected, so receiving needs a peer.
	_, _, err = recv.ReceiveFrom(make([]byte, 8))
	assert.ErrorIs(t, err, ErrInvalidState)

	senderLocal, err := sender.LocalEndPoint()
	require.NoError(t, err)
	require.NoError(t, recv.Connect(senderLocal))

	buf := make([]byte, 8)
	n, from, err := recv.ReceiveFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, "dgram", string(buf[:n]))
	assert.Equal(t, senderLocal.Port(), from.Port())
	assert.True(t, from.Address().IsLoopback())
}
