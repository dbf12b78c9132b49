package demo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/opd-ai/sockets"
	"github.com/opd-ai/sockets/endpoint"
	"github.com/opd-ai/sockets/handoff"
	"github.com/opd-ai/sockets/interfaces"
	socknet "github.com/opd-ai/sockets/net"
	"github.com/sirupsen/logrus"
)

func (o *Orchestrator) listenAddress() string {
	return net.JoinHostPort(o.config.Address, strconv.Itoa(int(o.config.Port)))
}

func (o *Orchestrator) family() (endpoint.AddressFamily, error) {
	addr, err := endpoint.Parse(o.config.Address)
	if err != nil {
		return endpoint.Unspecified, err
	}
	return addr.Family(), nil
}

// echoStep sends a payload through a loopback echo server and compares it.
func (o *Orchestrator) echoStep(ctx context.Context) error {
	lc := socknet.ListenConfig{Options: o.opts}
	ln, err := lc.ListenSocket(ctx, "tcp", o.listenAddress())
	if err != nil {
		return err
	}
	defer ln.Close()

	serverErr := make(chan error, 1)
	go func() {
		conn, err := ln.AcceptSocket()
		if err != nil {
			serverErr <- err
			return
		}
		defer conn.Close()
		if _, err := io.Copy(conn, conn); err != nil {
			serverErr <- err
			return
		}
		serverErr <- conn.CloseWrite()
	}()

	d := socknet.Dialer{Options: o.opts}
	conn, err := d.DialContext(ctx, "tcp", ln.Addr().String())
	if err != nil {
		return err
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	payload := make([]byte, o.config.MessageSize)
	for i := range payload {
		payload[i] = byte(i % 251)
	}

	writeErr := make(chan error, 1)
	go func() {
		if _, err := conn.Write(payload); err != nil {
			writeErr <- err
			return
		}
		writeErr <- conn.(*socknet.SocketConn).CloseWrite()
	}()

	echoed, err := io.ReadAll(conn)
	if err != nil {
		return err
	}
	if err := <-writeErr; err != nil {
		return err
	}
	if err := <-serverErr; err != nil {
		return err
	}
	if !bytes.Equal(payload, echoed) {
		return fmt.Errorf("echo mismatch: sent %d bytes, received %d", len(payload), len(echoed))
	}

	o.logger.WithField("bytes", len(echoed)).Info("Echo verified")
	return nil
}

// closedEndPoint returns an endpoint nobody listens on by binding an
// ephemeral port and closing the socket again.
func (o *Orchestrator) closedEndPoint(family endpoint.AddressFamily, addr endpoint.IPAddress) (*endpoint.EndPoint, error) {
	s, err := sockets.New(family, interfaces.Stream, interfaces.TCP, o.opts)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	if err := s.Bind(endpoint.New(addr, 0)); err != nil {
		return nil, err
	}
	return s.LocalEndPoint()
}

// connectAnyStep connects through two refused candidates to a listener.
func (o *Orchestrator) connectAnyStep(ctx context.Context) error {
	family, err := o.family()
	if err != nil {
		return err
	}
	addr, _ := endpoint.Parse(o.config.Address)

	lc := socknet.ListenConfig{Options: o.opts}
	ln, err := lc.ListenSocket(ctx, "tcp", o.listenAddress())
	if err != nil {
		return err
	}
	defer ln.Close()

	candidates := make([]*endpoint.EndPoint, 0, 3)
	for i := 0; i < 2; i++ {
		ep, err := o.closedEndPoint(family, addr)
		if err != nil {
			return err
		}
		candidates = append(candidates, ep)
	}
	candidates = append(candidates, ln.Addr().(*socknet.EndPointAddr).EndPoint())

	client, err := sockets.New(family, interfaces.Stream, interfaces.TCP, o.opts)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.ConnectAny(candidates); err != nil {
		return err
	}
	remote, err := client.RemoteEndPoint()
	if err != nil {
		return err
	}
	if !remote.Equal(candidates[2]) {
		return fmt.Errorf("connected to %s, want %s", remote, candidates[2])
	}

	server, err := ln.AcceptSocket()
	if err != nil {
		return err
	}
	defer server.Close()

	o.logger.WithField("remote", remote.String()).Info("Reached third candidate")
	return nil
}

// handoffStep duplicates a bound socket, seals it through a pipe and adopts it.
func (o *Orchestrator) handoffStep(ctx context.Context) error {
	family, err := o.family()
	if err != nil {
		return err
	}
	addr, _ := endpoint.Parse(o.config.Address)

	sock, err := sockets.New(family, interfaces.Stream, interfaces.TCP, o.opts)
	if err != nil {
		return err
	}
	if err := sock.Bind(endpoint.New(addr, 0)); err != nil {
		_ = sock.Close()
		return err
	}
	local, err := sock.LocalEndPoint()
	if err != nil {
		_ = sock.Close()
		return err
	}

	key, err := handoff.GenerateKey()
	if err != nil {
		_ = sock.Close()
		return err
	}

	pr, pw := io.Pipe()
	sendErr := make(chan error, 1)
	go func() {
		err := handoff.Transfer(sock, pw, key)
		_ = pw.CloseWithError(err)
		sendErr <- err
	}()

	adopted, err := handoff.Adopt(pr, key, o.opts)
	if err != nil {
		return err
	}
	defer adopted.Close()
	if err := <-sendErr; err != nil {
		return err
	}

	adoptedLocal, err := adopted.LocalEndPoint()
	if err != nil {
		return err
	}
	if !bytes.Equal(local.Serialize(), adoptedLocal.Serialize()) {
		return fmt.Errorf("adopted socket bound to %s, want %s", adoptedLocal, local)
	}
	if err := adopted.Listen(1); err != nil {
		return err
	}

	o.logger.WithFields(logrus.Fields{
		"local": adoptedLocal.String(),
		"state": adopted.State().String(),
	}).Info("Socket adopted after handoff")
	return nil
}

// selectStep checks that Select reports exactly the socket with pending data.
func (o *Orchestrator) selectStep(ctx context.Context) error {
	lc := socknet.ListenConfig{Options: o.opts}
	ln, err := lc.ListenSocket(ctx, "tcp", o.listenAddress())
	if err != nil {
		return err
	}
	defer ln.Close()

	d := socknet.Dialer{Options: o.opts}
	quiet, err := d.DialContext(ctx, "tcp", ln.Addr().String())
	if err != nil {
		return err
	}
	defer quiet.Close()
	busy, err := d.DialContext(ctx, "tcp", ln.Addr().String())
	if err != nil {
		return err
	}
	defer busy.Close()

	quietPeer, err := ln.AcceptSocket()
	if err != nil {
		return err
	}
	defer quietPeer.Close()
	busyPeer, err := ln.AcceptSocket()
	if err != nil {
		return err
	}
	defer busyPeer.Close()

	if _, err := busy.Write([]byte("ready")); err != nil {
		return err
	}

	readable, _, _, err := sockets.Select(
		[]*sockets.Socket{quietPeer.Socket(), busyPeer.Socket()}, nil, nil, time.Second)
	if err != nil {
		return err
	}
	if len(readable) != 1 || readable[0] != busyPeer.Socket() {
		return fmt.Errorf("select reported %d readable sockets, want only the busy one", len(readable))
	}
	return nil
}

// deferredCloseStep schedules a close and waits for it.
func (o *Orchestrator) deferredCloseStep(ctx context.Context) error {
	family, err := o.family()
	if err != nil {
		return err
	}
	sock, err := sockets.New(family, interfaces.Stream, interfaces.TCP, o.opts)
	if err != nil {
		return err
	}

	canceled := sock.CloseAfter(time.Hour)
	if !canceled.Cancel() {
		return errors.New("pending close could not be canceled")
	}

	dc := sock.CloseAfter(20 * time.Millisecond)
	select {
	case <-dc.Done():
	case <-ctx.Done():
		_ = sock.Close()
		return ctx.Err()
	}
	if err := dc.Err(); err != nil {
		return err
	}
	if sock.State() != sockets.StateClosed {
		return fmt.Errorf("socket in state %s after deferred close", sock.State())
	}
	return nil
}
