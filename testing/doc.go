// Package testing provides an in-memory socket network for deterministic
// testing of the sockets library.
//
// # Overview
//
// SimulatedSyscalls implements interfaces.SocketSyscalls without touching the
// operating system. Handles, port bindings, listen queues and stream buffers all
// live in process memory, so tests exercise the socket state machine with the
// same blocking semantics as the real implementation but without flakiness from
// the host network.
//
// # Simulation vs Real Implementation
//
//   - Simulation (this package): every socket is reachable only from the same
//     SimulatedSyscalls instance. Connections to a port nobody listens on fail
//     with ECONNREFUSED.
//
//   - Real (real package): calls go to the kernel through golang.org/x/sys/unix.
//
// Both conform to interfaces.SocketSyscalls, allowing switching via the factory
// package.
//
// # Usage
//
//	sim := testing.NewSimulatedSyscalls(&interfaces.SyscallConfig{
//	    UseSimulation:  true,
//	    SimBufferSize:  4096,
//	    DefaultBacklog: 16,
//	})
//	sock, _ := sockets.New(endpoint.InterNetwork, interfaces.Stream, interfaces.TCP,
//	    &sockets.Options{Syscalls: sim})
//
//	// Inspect every call that reached the simulated OS
//	for _, rec := range sim.GetCallLog() {
//	    fmt.Println(rec.Op, rec.Handle, rec.Err)
//	}
//
// # Stream Buffers
//
// Each direction of a stream connection is a github.com/smallnest/ringbuffer of
// SimBufferSize bytes. A blocking send waits for the reader to drain the buffer;
// a non-blocking send writes what fits and fails with EAGAIN when nothing fits.
//
// # Limitations
//
// MSG_PEEK and out-of-band data are not simulated and fail with EOPNOTSUPP.
//
// # Thread Safety
//
// All methods are safe for concurrent use. A single mutex and condition
// variable guard the whole simulated network.
package testing
