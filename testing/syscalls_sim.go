package testing

import (
	"fmt"
	"sync"
	"syscall"
	"time"

	"github.com/opd-ai/sockets/endpoint"
	"github.com/opd-ai/sockets/interfaces"
	"github.com/smallnest/ringbuffer"
	"github.com/sirupsen/logrus"
)

const (
	firstSimHandle    = 3
	firstEphemeral    = 49152
	ephemeralAttempts = 65536 - firstEphemeral
)

// CallRecord represents one call into the simulated OS for testing verification
type CallRecord struct {
	Op        string
	Handle    interfaces.Handle
	Timestamp int64
	Err       error
}

// SimStats summarizes the simulated network
type SimStats struct {
	OpenSockets int
	Listeners   int
	TotalCalls  int
	FailedCalls int
}

// SimulatedSyscalls implements interfaces.SocketSyscalls with an in-memory loopback network
type SimulatedSyscalls struct {
	mu       sync.Mutex
	cond     *sync.Cond
	config   *interfaces.SyscallConfig
	sockets  map[interfaces.Handle]*simSocket
	next     interfaces.Handle
	nextPort uint16
	callLog  []CallRecord
}

// NewSimulatedSyscalls creates a new simulated network for testing
func NewSimulatedSyscalls(config *interfaces.SyscallConfig) *SimulatedSyscalls {
	logrus.Warn("SIMULATION FUNCTION - NOT A REAL OPERATION")
	logrus.WithFields(logrus.Fields{
		"function":        "NewSimulatedSyscalls",
		"buffer_size":     config.SimBufferSize,
		"default_backlog": config.DefaultBacklog,
	}).Info("Creating simulated socket syscalls for testing")

	s := &SimulatedSyscalls{
		config:   config,
		sockets:  make(map[interfaces.Handle]*simSocket),
		next:     firstSimHandle,
		nextPort: firstEphemeral,
		callLog:  make([]CallRecord, 0),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// IsSimulation returns true for the simulation implementation
func (s *SimulatedSyscalls) IsSimulation() bool {
	return true
}

// DefaultBacklog returns the configured listen backlog.
func (s *SimulatedSyscalls) DefaultBacklog() int {
	return s.config.Backlog()
}

// record appends to the call log. Callers hold s.mu.
func (s *SimulatedSyscalls) record(op string, h interfaces.Handle, err error) error {
	s.callLog = append(s.callLog, CallRecord{
		Op:        op,
		Handle:    h,
		Timestamp: time.Now().UnixNano(),
		Err:       err,
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "SimulatedSyscalls." + op,
			"handle":   int(h),
			"error":    err.Error(),
		}).Debug("Simulated call failed")
	}
	return err
}

// GetCallLog returns a copy of every call made so far
func (s *SimulatedSyscalls) GetCallLog() []CallRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	logCopy := make([]CallRecord, len(s.callLog))
	copy(logCopy, s.callLog)
	return logCopy
}

// CallCount returns the number of calls made so far
func (s *SimulatedSyscalls) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.callLog)
}

// CountCalls returns the number of calls to op
func (s *SimulatedSyscalls) CountCalls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, rec := range s.callLog {
		if rec.Op == op {
			n++
		}
	}
	return n
}

// ClearCallLog clears the call log
func (s *SimulatedSyscalls) ClearCallLog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callLog = s.callLog[:0]
}

// GetStats returns a snapshot of the simulated network
func (s *SimulatedSyscalls) GetStats() SimStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := SimStats{
		OpenSockets: len(s.sockets),
		TotalCalls:  len(s.callLog),
	}
	for _, sock := range s.sockets {
		if sock.listening {
			stats.Listeners++
		}
	}
	for _, rec := range s.callLog {
		if rec.Err != nil {
			stats.FailedCalls++
		}
	}
	return stats
}

func (s *SimulatedSyscalls) lookup(h interfaces.Handle) (*simSocket, error) {
	sock, ok := s.sockets[h]
	if !ok || sock.closed {
		return nil, syscall.EBADF
	}
	return sock, nil
}

func (s *SimulatedSyscalls) newSocket(family endpoint.AddressFamily, typ interfaces.SocketType, protocol interfaces.ProtocolType) *simSocket {
	return &simSocket{
		handle:   interfaces.InvalidHandle,
		family:   family,
		typ:      typ,
		protocol: protocol,
		options:  make(map[interfaces.SocketOption]int),
	}
}

func (s *SimulatedSyscalls) register(sock *simSocket) interfaces.Handle {
	sock.handle = s.next
	s.next++
	s.sockets[sock.handle] = sock
	return sock.handle
}

// waitLocked blocks on the condition variable until ready returns true or the
// timeout expires. A negative timeout waits forever. Callers hold s.mu.
func (s *SimulatedSyscalls) waitLocked(timeout time.Duration, ready func() bool) bool {
	if ready() {
		return true
	}
	if timeout == 0 {
		return false
	}

	expired := false
	if timeout > 0 {
		timer := time.AfterFunc(timeout, func() {
			s.mu.Lock()
			expired = true
			s.cond.Broadcast()
			s.mu.Unlock()
		})
		defer timer.Stop()
	}

	for !ready() {
		if expired {
			return false
		}
		s.cond.Wait()
	}
	return true
}

// blockingTimeout converts a socket's mode and timeout to a waitLocked timeout.
func blockingTimeout(sock *simSocket, sockTimeout time.Duration) time.Duration {
	if sock.nonblocking {
		return 0
	}
	if sockTimeout > 0 {
		return sockTimeout
	}
	return -1
}

func isWildcard(a endpoint.IPAddress) bool {
	return a.NetIP().IsUnspecified()
}

func addressesOverlap(a, b endpoint.IPAddress) bool {
	return a.Equal(b) || isWildcard(a) || isWildcard(b)
}

func loopbackFor(family endpoint.AddressFamily) endpoint.IPAddress {
	if family == endpoint.InterNetworkV6 {
		return endpoint.IPv6Loopback
	}
	return endpoint.Loopback
}

func anyFor(family endpoint.AddressFamily) endpoint.IPAddress {
	if family == endpoint.InterNetworkV6 {
		return endpoint.IPv6Any
	}
	return endpoint.Any
}

func (s *SimulatedSyscalls) portInUse(family endpoint.AddressFamily, addr endpoint.IPAddress, port uint16) bool {
	for _, other := range s.sockets {
		if !other.bound || other.local.Family() != family || other.local.Port() != port {
			continue
		}
		if addressesOverlap(other.local.Address(), addr) {
			return true
		}
	}
	return false
}

func (s *SimulatedSyscalls) allocPort(family endpoint.AddressFamily, addr endpoint.IPAddress) (uint16, error) {
	for i := 0; i < ephemeralAttempts; i++ {
		port := s.nextPort
		s.nextPort++
		if s.nextPort == 0 {
			s.nextPort = firstEphemeral
		}
		if !s.portInUse(family, addr, port) {
			return port, nil
		}
	}
	return 0, syscall.EADDRINUSE
}

func (s *SimulatedSyscalls) autobind(sock *simSocket, addr endpoint.IPAddress) error {
	if sock.bound {
		return nil
	}
	port, err := s.allocPort(sock.family, addr)
	if err != nil {
		return err
	}
	sock.local = endpoint.New(addr, port)
	sock.bound = true
	return nil
}

func (s *SimulatedSyscalls) findBound(family endpoint.AddressFamily, ep *endpoint.EndPoint, match func(*simSocket) bool) *simSocket {
	for _, sock := range s.sockets {
		if !sock.bound || sock.local.Family() != family || sock.local.Port() != ep.Port() {
			continue
		}
		if addressesOverlap(sock.local.Address(), ep.Address()) && match(sock) {
			return sock
		}
	}
	return nil
}

// Socket implements interfaces.SocketSyscalls.Socket
func (s *SimulatedSyscalls) Socket(family endpoint.AddressFamily, socketType interfaces.SocketType, protocol interfaces.ProtocolType) (interfaces.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !family.IsSupported() {
		return interfaces.InvalidHandle, s.record("Socket", interfaces.InvalidHandle, syscall.EAFNOSUPPORT)
	}
	switch socketType {
	case interfaces.Stream, interfaces.Dgram, interfaces.SeqPacket:
	default:
		return interfaces.InvalidHandle, s.record("Socket", interfaces.InvalidHandle, syscall.ESOCKTNOSUPPORT)
	}

	h := s.register(s.newSocket(family, socketType, protocol))
	return h, s.record("Socket", h, nil)
}

// Bind implements interfaces.SocketSyscalls.Bind
func (s *SimulatedSyscalls) Bind(h interfaces.Handle, ep *endpoint.EndPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record("Bind", h, s.bindLocked(h, ep))
}

func (s *SimulatedSyscalls) bindLocked(h interfaces.Handle, ep *endpoint.EndPoint) error {
	sock, err := s.lookup(h)
	if err != nil {
		return err
	}
	if sock.bound {
		return syscall.EINVAL
	}
	if ep.Family() != sock.family {
		return syscall.EAFNOSUPPORT
	}

	port := ep.Port()
	if port == 0 {
		if port, err = s.allocPort(sock.family, ep.Address()); err != nil {
			return err
		}
	} else if s.portInUse(sock.family, ep.Address(), port) {
		return syscall.EADDRINUSE
	}

	sock.local = endpoint.New(ep.Address(), port)
	sock.bound = true
	return nil
}

// Connect implements interfaces.SocketSyscalls.Connect. Stream connections
// complete immediately by queueing a server-side socket on the listener.
func (s *SimulatedSyscalls) Connect(h interfaces.Handle, ep *endpoint.EndPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record("Connect", h, s.connectLocked(h, ep))
}

func (s *SimulatedSyscalls) connectLocked(h interfaces.Handle, ep *endpoint.EndPoint) error {
	sock, err := s.lookup(h)
	if err != nil {
		return err
	}
	if ep.Family() != sock.family {
		return syscall.EAFNOSUPPORT
	}
	if sock.listening || sock.in != nil {
		return syscall.EISCONN
	}

	dest := ep.Address()
	if isWildcard(dest) {
		dest = loopbackFor(sock.family)
	}

	if !sock.isStream() {
		if err := s.autobind(sock, anyFor(sock.family)); err != nil {
			return err
		}
		sock.remote = endpoint.New(dest, ep.Port())
		return nil
	}

	listener := s.findBound(sock.family, ep, func(c *simSocket) bool {
		return c.listening && !c.readShut && c.typ == sock.typ
	})
	if listener == nil || len(listener.acceptQueue) > listener.backlog {
		return syscall.ECONNREFUSED
	}
	if err := s.autobind(sock, dest); err != nil {
		return err
	}

	server := s.newSocket(sock.family, sock.typ, sock.protocol)
	server.local = endpoint.New(dest, ep.Port())
	server.remote = sock.local
	server.in = ringbuffer.New(s.config.SimBufferSize)
	server.peer = sock

	sock.remote = server.local
	sock.in = ringbuffer.New(s.config.SimBufferSize)
	sock.peer = server

	listener.acceptQueue = append(listener.acceptQueue, server)
	s.cond.Broadcast()

	logrus.WithFields(logrus.Fields{
		"function": "SimulatedSyscalls.Connect",
		"handle":   int(h),
		"local":    sock.local.String(),
		"remote":   sock.remote.String(),
	}).Debug("Simulated connection queued on listener")
	return nil
}

// Listen implements interfaces.SocketSyscalls.Listen
func (s *SimulatedSyscalls) Listen(h interfaces.Handle, backlog int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record("Listen", h, s.listenLocked(h, backlog))
}

func (s *SimulatedSyscalls) listenLocked(h interfaces.Handle, backlog int) error {
	sock, err := s.lookup(h)
	if err != nil {
		return err
	}
	if !sock.isStream() {
		return syscall.EOPNOTSUPP
	}
	if sock.in != nil {
		return syscall.EINVAL
	}
	if err := s.autobind(sock, anyFor(sock.family)); err != nil {
		return err
	}
	sock.listening = true
	sock.backlog = backlog
	return nil
}

// Accept implements interfaces.SocketSyscalls.Accept
func (s *SimulatedSyscalls) Accept(h interfaces.Handle) (interfaces.Handle, *endpoint.EndPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nh, remote, err := s.acceptLocked(h)
	return nh, remote, s.record("Accept", h, err)
}

func (s *SimulatedSyscalls) acceptLocked(h interfaces.Handle) (interfaces.Handle, *endpoint.EndPoint, error) {
	sock, err := s.lookup(h)
	if err != nil {
		return interfaces.InvalidHandle, nil, err
	}
	if !sock.listening {
		return interfaces.InvalidHandle, nil, syscall.EINVAL
	}

	s.waitLocked(blockingTimeout(sock, sock.receiveTimeout), sock.readable)

	switch {
	case sock.closed:
		return interfaces.InvalidHandle, nil, syscall.EBADF
	case len(sock.acceptQueue) > 0:
	case sock.readShut:
		return interfaces.InvalidHandle, nil, syscall.EINVAL
	default:
		return interfaces.InvalidHandle, nil, syscall.EAGAIN
	}

	server := sock.acceptQueue[0]
	sock.acceptQueue = sock.acceptQueue[1:]
	nh := s.register(server)
	return nh, server.remote, nil
}

// Send implements interfaces.SocketSyscalls.Send
func (s *SimulatedSyscalls) Send(h interfaces.Handle, p []byte, flags interfaces.SocketFlags) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.sendLocked(h, p, flags, nil)
	return n, s.record("Send", h, err)
}

// SendTo implements interfaces.SocketSyscalls.SendTo. Stream sockets ignore the destination.
func (s *SimulatedSyscalls) SendTo(h interfaces.Handle, p []byte, flags interfaces.SocketFlags, to *endpoint.EndPoint) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.sendLocked(h, p, flags, to)
	return n, s.record("SendTo", h, err)
}

func (s *SimulatedSyscalls) sendLocked(h interfaces.Handle, p []byte, flags interfaces.SocketFlags, to *endpoint.EndPoint) (int, error) {
	sock, err := s.lookup(h)
	if err != nil {
		return 0, err
	}
	if flags&(interfaces.FlagOutOfBand|interfaces.FlagPeek) != 0 {
		return 0, syscall.EOPNOTSUPP
	}
	if !sock.isStream() {
		if to == nil {
			to = sock.remote
		}
		return s.sendDatagramLocked(sock, p, to)
	}

	if sock.peer == nil {
		return 0, syscall.ENOTCONN
	}
	if sock.writeShut {
		return 0, syscall.EPIPE
	}

	timeout := blockingTimeout(sock, sock.sendTimeout)
	written := 0
	for written < len(p) {
		if !s.waitLocked(timeout, sock.writable) {
			break
		}
		if sock.closed {
			return written, syscall.EBADF
		}
		peer := sock.peer
		if sock.writeShut || peer.closed {
			if written > 0 {
				return written, nil
			}
			return 0, syscall.EPIPE
		}

		chunk := len(p) - written
		if free := peer.in.Free(); chunk > free {
			chunk = free
		}
		n, _ := peer.in.Write(p[written : written+chunk])
		written += n
		s.cond.Broadcast()
	}

	if written == 0 && len(p) > 0 {
		return 0, syscall.EAGAIN
	}
	return written, nil
}

func (s *SimulatedSyscalls) sendDatagramLocked(sock *simSocket, p []byte, to *endpoint.EndPoint) (int, error) {
	if to == nil {
		return 0, syscall.EDESTADDRREQ
	}
	if sock.writeShut {
		return 0, syscall.EPIPE
	}
	if to.Family() != sock.family {
		return 0, syscall.EAFNOSUPPORT
	}
	if err := s.autobind(sock, anyFor(sock.family)); err != nil {
		return 0, err
	}

	target := s.findBound(sock.family, to, func(c *simSocket) bool {
		return !c.isStream() && !c.readShut
	})
	if target == nil || target.dgramBytes+len(p) > s.config.SimBufferSize {
		// Datagrams without a receiver or room are dropped, as on a real network.
		return len(p), nil
	}

	from := sock.local
	if isWildcard(from.Address()) {
		from = endpoint.New(loopbackFor(sock.family), from.Port())
	}
	data := make([]byte, len(p))
	copy(data, p)
	target.dgrams = append(target.dgrams, datagram{data: data, from: from})
	target.dgramBytes += len(data)
	s.cond.Broadcast()
	return len(p), nil
}

// Recv implements interfaces.SocketSyscalls.Recv
func (s *SimulatedSyscalls) Recv(h interfaces.Handle, p []byte, flags interfaces.SocketFlags) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, _, err := s.recvLocked(h, p, flags)
	return n, s.record("Recv", h, err)
}

// RecvFrom implements interfaces.SocketSyscalls.RecvFrom
func (s *SimulatedSyscalls) RecvFrom(h interfaces.Handle, p []byte, flags interfaces.SocketFlags) (int, *endpoint.EndPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, from, err := s.recvLocked(h, p, flags)
	return n, from, s.record("RecvFrom", h, err)
}

func (s *SimulatedSyscalls) recvLocked(h interfaces.Handle, p []byte, flags interfaces.SocketFlags) (int, *endpoint.EndPoint, error) {
	sock, err := s.lookup(h)
	if err != nil {
		return 0, nil, err
	}
	if flags&(interfaces.FlagOutOfBand|interfaces.FlagPeek) != 0 {
		return 0, nil, syscall.EOPNOTSUPP
	}
	if sock.listening {
		return 0, nil, syscall.ENOTCONN
	}
	if sock.isStream() && sock.in == nil {
		return 0, nil, syscall.ENOTCONN
	}

	s.waitLocked(blockingTimeout(sock, sock.receiveTimeout), sock.readable)
	if sock.closed {
		return 0, nil, syscall.EBADF
	}

	if !sock.isStream() {
		if len(sock.dgrams) == 0 {
			if sock.readShut {
				return 0, nil, nil
			}
			return 0, nil, syscall.EAGAIN
		}
		d := sock.dgrams[0]
		sock.dgrams = sock.dgrams[1:]
		sock.dgramBytes -= len(d.data)
		return copy(p, d.data), d.from, nil
	}

	if sock.in.Length() > 0 {
		if len(p) == 0 {
			return 0, sock.remote, nil
		}
		n, _ := sock.in.Read(p)
		s.cond.Broadcast()
		return n, sock.remote, nil
	}
	if sock.peerEOF || sock.readShut {
		return 0, sock.remote, nil
	}
	return 0, nil, syscall.EAGAIN
}

// Shutdown implements interfaces.SocketSyscalls.Shutdown
func (s *SimulatedSyscalls) Shutdown(h interfaces.Handle, how interfaces.SocketShutdown) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record("Shutdown", h, s.shutdownLocked(h, how))
}

func (s *SimulatedSyscalls) shutdownLocked(h interfaces.Handle, how interfaces.SocketShutdown) error {
	sock, err := s.lookup(h)
	if err != nil {
		return err
	}
	if how < interfaces.ShutdownReceive || how > interfaces.ShutdownBoth {
		return syscall.EINVAL
	}
	connected := sock.in != nil || (!sock.isStream() && sock.remote != nil)
	if !connected && !sock.listening {
		return syscall.ENOTCONN
	}

	if how == interfaces.ShutdownReceive || how == interfaces.ShutdownBoth {
		sock.readShut = true
	}
	if how == interfaces.ShutdownSend || how == interfaces.ShutdownBoth {
		sock.writeShut = true
		if sock.peer != nil {
			sock.peer.peerEOF = true
		}
	}
	s.cond.Broadcast()
	return nil
}

// Close implements interfaces.SocketSyscalls.Close
func (s *SimulatedSyscalls) Close(h interfaces.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sock, err := s.lookup(h)
	if err != nil {
		return s.record("Close", h, err)
	}
	delete(s.sockets, h)
	s.closeLocked(sock)
	for _, pending := range sock.acceptQueue {
		s.closeLocked(pending)
	}
	sock.acceptQueue = nil
	s.cond.Broadcast()
	return s.record("Close", h, nil)
}

func (s *SimulatedSyscalls) closeLocked(sock *simSocket) {
	sock.closed = true
	sock.bound = false
	sock.listening = false
	if sock.peer != nil {
		sock.peer.peerEOF = true
	}
}

// LocalEndPoint implements interfaces.SocketSyscalls.LocalEndPoint. An unbound
// socket reports the wildcard address with port 0.
func (s *SimulatedSyscalls) LocalEndPoint(h interfaces.Handle) (*endpoint.EndPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sock, err := s.lookup(h)
	if err != nil {
		return nil, s.record("LocalEndPoint", h, err)
	}
	local := sock.local
	if local == nil {
		local = endpoint.New(anyFor(sock.family), 0)
	}
	return local, s.record("LocalEndPoint", h, nil)
}

// RemoteEndPoint implements interfaces.SocketSyscalls.RemoteEndPoint
func (s *SimulatedSyscalls) RemoteEndPoint(h interfaces.Handle) (*endpoint.EndPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sock, err := s.lookup(h)
	if err != nil {
		return nil, s.record("RemoteEndPoint", h, err)
	}
	if sock.remote == nil {
		return nil, s.record("RemoteEndPoint", h, syscall.ENOTCONN)
	}
	return sock.remote, s.record("RemoteEndPoint", h, nil)
}

// GetOption implements interfaces.SocketSyscalls.GetOption
func (s *SimulatedSyscalls) GetOption(h interfaces.Handle, opt interfaces.SocketOption) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.getOptionLocked(h, opt)
	return v, s.record("GetOption", h, err)
}

func (s *SimulatedSyscalls) getOptionLocked(h interfaces.Handle, opt interfaces.SocketOption) (int, error) {
	sock, err := s.lookup(h)
	if err != nil {
		return 0, err
	}
	switch opt {
	case interfaces.OptionType:
		return int(sock.typ), nil
	case interfaces.OptionAcceptConn:
		if sock.listening {
			return 1, nil
		}
		return 0, nil
	case interfaces.OptionError:
		return 0, nil
	case interfaces.OptionSendBuffer, interfaces.OptionReceiveBuffer:
		if v, ok := sock.options[opt]; ok {
			return v, nil
		}
		return s.config.SimBufferSize, nil
	case interfaces.OptionReuseAddress:
		return sock.options[opt], nil
	default:
		return 0, fmt.Errorf("%w: %s", interfaces.ErrUnsupportedOption, opt)
	}
}

// SetOption implements interfaces.SocketSyscalls.SetOption
func (s *SimulatedSyscalls) SetOption(h interfaces.Handle, opt interfaces.SocketOption, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record("SetOption", h, s.setOptionLocked(h, opt, value))
}

func (s *SimulatedSyscalls) setOptionLocked(h interfaces.Handle, opt interfaces.SocketOption, value int) error {
	sock, err := s.lookup(h)
	if err != nil {
		return err
	}
	switch opt {
	case interfaces.OptionReuseAddress, interfaces.OptionSendBuffer, interfaces.OptionReceiveBuffer:
		sock.options[opt] = value
		return nil
	case interfaces.OptionType, interfaces.OptionAcceptConn, interfaces.OptionError:
		return syscall.ENOPROTOOPT
	default:
		return fmt.Errorf("%w: %s", interfaces.ErrUnsupportedOption, opt)
	}
}

// SetTimeout implements interfaces.SocketSyscalls.SetTimeout
func (s *SimulatedSyscalls) SetTimeout(h interfaces.Handle, opt interfaces.SocketOption, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sock, err := s.lookup(h)
	if err != nil {
		return s.record("SetTimeout", h, err)
	}
	if d < 0 {
		d = 0
	}
	switch opt {
	case interfaces.OptionSendTimeout:
		sock.sendTimeout = d
	case interfaces.OptionReceiveTimeout:
		sock.receiveTimeout = d
	default:
		return s.record("SetTimeout", h, fmt.Errorf("%w: %s is not a timeout", interfaces.ErrUnsupportedOption, opt))
	}
	return s.record("SetTimeout", h, nil)
}

// SetNonblock implements interfaces.SocketSyscalls.SetNonblock
func (s *SimulatedSyscalls) SetNonblock(h interfaces.Handle, nonblocking bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sock, err := s.lookup(h)
	if err != nil {
		return s.record("SetNonblock", h, err)
	}
	sock.nonblocking = nonblocking
	return s.record("SetNonblock", h, nil)
}

// Available implements interfaces.SocketSyscalls.Available
func (s *SimulatedSyscalls) Available(h interfaces.Handle) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sock, err := s.lookup(h)
	if err != nil {
		return 0, s.record("Available", h, err)
	}
	switch {
	case sock.listening:
		return 0, s.record("Available", h, syscall.EINVAL)
	case sock.isStream():
		if sock.in == nil {
			return 0, s.record("Available", h, nil)
		}
		return sock.in.Length(), s.record("Available", h, nil)
	case len(sock.dgrams) > 0:
		return len(sock.dgrams[0].data), s.record("Available", h, nil)
	default:
		return 0, s.record("Available", h, nil)
	}
}

// Poll implements interfaces.SocketSyscalls.Poll
func (s *SimulatedSyscalls) Poll(reqs []interfaces.PollRequest, timeout time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	first := interfaces.InvalidHandle
	if len(reqs) > 0 {
		first = reqs[0].Handle
	}

	ready := 0
	scan := func() bool {
		ready = 0
		for i := range reqs {
			sock, err := s.lookup(reqs[i].Handle)
			if err != nil {
				reqs[i].Revents = interfaces.PollNval
			} else {
				reqs[i].Revents = sock.revents(reqs[i].Events)
			}
			if reqs[i].Revents != 0 {
				ready++
			}
		}
		return ready > 0
	}
	s.waitLocked(timeout, scan)
	return ready, s.record("Poll", first, nil)
}

var _ interfaces.SocketSyscalls = (*SimulatedSyscalls)(nil)
