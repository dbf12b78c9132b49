package testing

import (
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/opd-ai/sockets/endpoint"
	"github.com/opd-ai/sockets/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig() *interfaces.SyscallConfig {
	return &interfaces.SyscallConfig{
		UseSimulation:  true,
		SimBufferSize:  64,
		DefaultBacklog: 8,
	}
}

// listenOn opens a listening stream socket on 127.0.0.1 with an ephemeral port.
func listenOn(t *testing.T, sim *SimulatedSyscalls) (interfaces.Handle, *endpoint.EndPoint) {
	t.Helper()
	h, err := sim.Socket(endpoint.InterNetwork, interfaces.Stream, interfaces.TCP)
	require.NoError(t, err)
	require.NoError(t, sim.Bind(h, endpoint.New(endpoint.Loopback, 0)))
	require.NoError(t, sim.Listen(h, 4))
	local, err := sim.LocalEndPoint(h)
	require.NoError(t, err)
	return h, local
}

func connectedPair(t *testing.T, sim *SimulatedSyscalls) (client, server interfaces.Handle) {
	t.Helper()
	listener, local := listenOn(t, sim)
	client, err := sim.Socket(endpoint.InterNetwork, interfaces.Stream, interfaces.TCP)
	require.NoError(t, err)
	require.NoError(t, sim.Connect(client, local))
	server, _, err = sim.Accept(listener)
	require.NoError(t, err)
	return client, server
}

func TestNewSimulatedSyscalls(t *testing.T) {
	sim := NewSimulatedSyscalls(newTestConfig())
	assert.True(t, sim.IsSimulation())
	assert.Equal(t, 0, sim.CallCount())
	assert.Equal(t, SimStats{}, sim.GetStats())
}

func TestBindAssignsEphemeralPort(t *testing.T) {
	sim := NewSimulatedSyscalls(newTestConfig())
	_, local := listenOn(t, sim)
	assert.GreaterOrEqual(t, int(local.Port()), firstEphemeral)
	assert.True(t, local.Address().Equal(endpoint.Loopback))
}

func TestBindConflict(t *testing.T) {
	sim := NewSimulatedSyscalls(newTestConfig())
	_, local := listenOn(t, sim)

	h, err := sim.Socket(endpoint.InterNetwork, interfaces.Stream, interfaces.TCP)
	require.NoError(t, err)
	assert.ErrorIs(t, sim.Bind(h, endpoint.New(endpoint.Any, local.Port())), syscall.EADDRINUSE)
	assert.ErrorIs(t, sim.Bind(h, endpoint.New(endpoint.IPv6Loopback, 80)), syscall.EAFNOSUPPORT)
}

func TestConnectRefused(t *testing.T) {
	sim := NewSimulatedSyscalls(newTestConfig())
	h, err := sim.Socket(endpoint.InterNetwork, interfaces.Stream, interfaces.TCP)
	require.NoError(t, err)

	err = sim.Connect(h, endpoint.New(endpoint.Loopback, 9))
	assert.ErrorIs(t, err, syscall.ECONNREFUSED)
}

func TestAcceptEndpoints(t *testing.T) {
	sim := NewSimulatedSyscalls(newTestConfig())
	listener, local := listenOn(t, sim)

	client, err := sim.Socket(endpoint.InterNetwork, interfaces.Stream, interfaces.TCP)
	require.NoError(t, err)
	require.NoError(t, sim.Connect(client, local))

	server, peer, err := sim.Accept(listener)
	require.NoError(t, err)

	clientLocal, err := sim.LocalEndPoint(client)
	require.NoError(t, err)
	assert.True(t, clientLocal.Equal(peer))

	serverLocal, err := sim.LocalEndPoint(server)
	require.NoError(t, err)
	assert.True(t, serverLocal.Equal(local))

	clientRemote, err := sim.RemoteEndPoint(client)
	require.NoError(t, err)
	assert.True(t, clientRemote.Equal(local))
}

func TestSendRecvAndShutdown(t *testing.T) {
	sim := NewSimulatedSyscalls(newTestConfig())
	client, server := connectedPair(t, sim)

	n, err := sim.Send(client, []byte{1, 2, 3}, interfaces.FlagsNone)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	avail, err := sim.Available(server)
	require.NoError(t, err)
	assert.Equal(t, 3, avail)

	buf := make([]byte, 16)
	n, err = sim.Recv(server, buf, interfaces.FlagsNone)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, buf[:n])

	require.NoError(t, sim.Shutdown(client, interfaces.ShutdownSend))
	n, err = sim.Recv(server, buf, interfaces.FlagsNone)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = sim.Send(client, []byte{4}, interfaces.FlagsNone)
	assert.ErrorIs(t, err, syscall.EPIPE)
}

func TestBlockingSendLargerThanBuffer(t *testing.T) {
	sim := NewSimulatedSyscalls(newTestConfig())
	client, server := connectedPair(t, sim)

	payload := make([]byte, 200) // larger than the 64-byte buffer
	for i := range payload {
		payload[i] = byte(i)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		n, err := sim.Send(client, payload, interfaces.FlagsNone)
		assert.NoError(t, err)
		assert.Equal(t, len(payload), n)
	}()

	got := make([]byte, 0, len(payload))
	buf := make([]byte, 32)
	for len(got) < len(payload) {
		n, err := sim.Recv(server, buf, interfaces.FlagsNone)
		require.NoError(t, err)
		require.NotZero(t, n)
		got = append(got, buf[:n]...)
	}
	wg.Wait()
	assert.Equal(t, payload, got)
}

func TestNonblockingCalls(t *testing.T) {
	sim := NewSimulatedSyscalls(newTestConfig())
	listener, _ := listenOn(t, sim)
	client, server := connectedPair(t, sim)

	require.NoError(t, sim.SetNonblock(listener, true))
	_, _, err := sim.Accept(listener)
	assert.ErrorIs(t, err, syscall.EAGAIN)

	require.NoError(t, sim.SetNonblock(server, true))
	_, err = sim.Recv(server, make([]byte, 4), interfaces.FlagsNone)
	assert.ErrorIs(t, err, syscall.EAGAIN)

	require.NoError(t, sim.SetNonblock(client, true))
	n, err := sim.Send(client, make([]byte, 100), interfaces.FlagsNone)
	require.NoError(t, err)
	assert.Equal(t, 64, n, "partial write up to the buffer size")
	_, err = sim.Send(client, []byte{1}, interfaces.FlagsNone)
	assert.ErrorIs(t, err, syscall.EAGAIN)
}

func TestReceiveTimeout(t *testing.T) {
	sim := NewSimulatedSyscalls(newTestConfig())
	_, server := connectedPair(t, sim)

	require.NoError(t, sim.SetTimeout(server, interfaces.OptionReceiveTimeout, 20*time.Millisecond))
	start := time.Now()
	_, err := sim.Recv(server, make([]byte, 4), interfaces.FlagsNone)
	assert.ErrorIs(t, err, syscall.EAGAIN)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestCloseWakesBlockedAccept(t *testing.T) {
	sim := NewSimulatedSyscalls(newTestConfig())
	listener, _ := listenOn(t, sim)

	done := make(chan error, 1)
	go func() {
		_, _, err := sim.Accept(listener)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, sim.Shutdown(listener, interfaces.ShutdownBoth))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, syscall.EINVAL)
	case <-time.After(2 * time.Second):
		t.Fatal("accept did not return after shutdown")
	}
}

func TestClosedHandle(t *testing.T) {
	sim := NewSimulatedSyscalls(newTestConfig())
	h, err := sim.Socket(endpoint.InterNetwork, interfaces.Stream, interfaces.TCP)
	require.NoError(t, err)
	require.NoError(t, sim.Close(h))

	assert.ErrorIs(t, sim.Close(h), syscall.EBADF)
	_, err = sim.Send(h, []byte{1}, interfaces.FlagsNone)
	assert.ErrorIs(t, err, syscall.EBADF)
}

func TestPeerCloseReadsEOF(t *testing.T) {
	sim := NewSimulatedSyscalls(newTestConfig())
	client, server := connectedPair(t, sim)

	_, err := sim.Send(client, []byte("bye"), interfaces.FlagsNone)
	require.NoError(t, err)
	require.NoError(t, sim.Close(client))

	buf := make([]byte, 8)
	n, err := sim.Recv(server, buf, interfaces.FlagsNone)
	require.NoError(t, err)
	assert.Equal(t, "bye", string(buf[:n]))

	n, err = sim.Recv(server, buf, interfaces.FlagsNone)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = sim.Send(server, []byte{1}, interfaces.FlagsNone)
	assert.ErrorIs(t, err, syscall.EPIPE)
}

func TestDatagrams(t *testing.T) {
	sim := NewSimulatedSyscalls(newTestConfig())

	receiver, err := sim.Socket(endpoint.InterNetwork, interfaces.Dgram, interfaces.UDP)
	require.NoError(t, err)
	require.NoError(t, sim.Bind(receiver, endpoint.New(endpoint.Loopback, 5353)))

	sender, err := sim.Socket(endpoint.InterNetwork, interfaces.Dgram, interfaces.UDP)
	require.NoError(t, err)
	n, err := sim.SendTo(sender, []byte("ping"), interfaces.FlagsNone, endpoint.New(endpoint.Loopback, 5353))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	avail, err := sim.Available(receiver)
	require.NoError(t, err)
	assert.Equal(t, 4, avail)

	buf := make([]byte, 16)
	n, from, err := sim.RecvFrom(receiver, buf, interfaces.FlagsNone)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf[:n]))
	senderLocal, err := sim.LocalEndPoint(sender)
	require.NoError(t, err)
	assert.Equal(t, senderLocal.Port(), from.Port())
	assert.True(t, from.Address().IsLoopback())
}

func TestPoll(t *testing.T) {
	sim := NewSimulatedSyscalls(newTestConfig())
	client, server := connectedPair(t, sim)

	reqs := []interfaces.PollRequest{
		{Handle: server, Events: interfaces.PollIn},
		{Handle: client, Events: interfaces.PollOut},
		{Handle: 9999, Events: interfaces.PollIn},
	}
	n, err := sim.Poll(reqs, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Zero(t, reqs[0].Revents)
	assert.True(t, reqs[1].Revents.Has(interfaces.PollOut))
	assert.Equal(t, interfaces.PollNval, reqs[2].Revents)

	go func() {
		time.Sleep(10 * time.Millisecond)
		sim.Send(client, []byte{7}, interfaces.FlagsNone)
	}()
	reqs = []interfaces.PollRequest{{Handle: server, Events: interfaces.PollIn}}
	n, err = sim.Poll(reqs, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, reqs[0].Revents.Has(interfaces.PollIn))
}

func TestOptions(t *testing.T) {
	sim := NewSimulatedSyscalls(newTestConfig())
	listener, _ := listenOn(t, sim)

	v, err := sim.GetOption(listener, interfaces.OptionType)
	require.NoError(t, err)
	assert.Equal(t, int(interfaces.Stream), v)

	v, err = sim.GetOption(listener, interfaces.OptionAcceptConn)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = sim.GetOption(listener, interfaces.OptionSendBuffer)
	require.NoError(t, err)
	assert.Equal(t, 64, v)

	require.NoError(t, sim.SetOption(listener, interfaces.OptionSendBuffer, 1024))
	v, err = sim.GetOption(listener, interfaces.OptionSendBuffer)
	require.NoError(t, err)
	assert.Equal(t, 1024, v)

	assert.ErrorIs(t, sim.SetOption(listener, interfaces.OptionType, 2), syscall.ENOPROTOOPT)
	assert.ErrorIs(t, sim.SetTimeout(listener, interfaces.OptionType, time.Second), interfaces.ErrUnsupportedOption)
}

func TestCallLog(t *testing.T) {
	sim := NewSimulatedSyscalls(newTestConfig())
	h, err := sim.Socket(endpoint.InterNetwork, interfaces.Stream, interfaces.TCP)
	require.NoError(t, err)
	_ = sim.Connect(h, endpoint.New(endpoint.Loopback, 1))

	log := sim.GetCallLog()
	require.Len(t, log, 2)
	assert.Equal(t, "Socket", log[0].Op)
	assert.NoError(t, log[0].Err)
	assert.Equal(t, "Connect", log[1].Op)
	assert.ErrorIs(t, log[1].Err, syscall.ECONNREFUSED)
	assert.Equal(t, 1, sim.CountCalls("Connect"))

	stats := sim.GetStats()
	assert.Equal(t, 1, stats.OpenSockets)
	assert.Equal(t, 1, stats.FailedCalls)

	sim.ClearCallLog()
	assert.Equal(t, 0, sim.CallCount())
}
