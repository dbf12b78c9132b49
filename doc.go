// Package sockets implements a state-machine wrapper over BSD-style sockets.
//
// A [Socket] owns one OS handle and a [State]. Every operation consults the
// state machine before touching the OS, so calling Listen on an unbound socket
// or Send on a closed one fails with a [*StateError] without any syscall:
//
//	sock, err := sockets.New(endpoint.InterNetwork, interfaces.Stream, interfaces.TCP, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sock.Close()
//
//	if err := sock.Bind(endpoint.New(endpoint.Loopback, 0)); err != nil {
//	    log.Fatal(err)
//	}
//	if err := sock.Listen(limits.DefaultBacklog); err != nil {
//	    log.Fatal(err)
//	}
//	conn, err := sock.Accept()
//
// # States
//
//	Ready        -> Bound (Bind), Connected (Connect), Closed
//	Bound        -> Connected (Connect), Listening (Listen), Closed
//	Listening    -> Accept yields a new Connected socket; Closed
//	Connected    -> Disconnected (Disconnect), Closed
//	Disconnected -> Connected (Connect), Closed
//	Closed       -> every operation fails
//
// Send, Receive and their variants are legal only while Connected. Shutdown is
// legal while Connected or Disconnected and never changes the state.
//
// # Errors
//
// Misuse of the API is reported as a contract violation: [*StateError]
// (matching [ErrInvalidState]), [ErrOutOfRange], [ErrInvalidArgument],
// [ErrUnsupportedFamily] and [ErrNilEndPoint]. Failures of the operating system
// are reported as [*OpError], which unwraps to the errno. Use
// [IsContractViolation] and [IsEnvironmental] to tell them apart.
//
// # Handoff
//
// [Socket.DuplicateAndClose] captures the family, type, protocol and endpoint
// of a socket in a [SocketInformation] and closes it. [FromInformation] rebuilds
// an equivalent socket, possibly in another process.
//
// # Concurrency
//
// A Socket is meant to be driven from one goroutine. The only supported
// concurrent use is closing it, directly or through [Socket.CloseAfter], while
// another goroutine is blocked in Accept, Receive or Send; the blocked call
// returns a state error once the socket is closed.
//
// # OS Layer
//
// All OS access goes through interfaces.SocketSyscalls. By default the factory
// package picks the real implementation unless SOCKETS_USE_SIMULATION is set.
// Tests inject the in-memory simulation through [Options].
package sockets
