// Package factory creates interfaces.SocketSyscalls implementations.
//
// The factory decouples the socket state machine from the concrete OS layer,
// allowing switching between the in-memory simulation (for testing) and the
// real golang.org/x/sys/unix implementation without changing consuming code.
//
// # Configuration
//
// The factory supports configuration via environment variables:
//   - SOCKETS_USE_SIMULATION: "true" or "false" to enable simulation mode
//   - SOCKETS_SIM_BUFFER_SIZE: per-direction stream buffer of the simulation, in bytes
//   - SOCKETS_DEFAULT_BACKLOG: listen backlog used when callers pass none
//
// Out-of-range or unparsable values are logged and ignored.
//
// # Usage
//
//	f := factory.NewSyscallFactory()
//	sys := f.CreateSyscalls()
//
//	// Or create simulation for testing
//	sim := f.CreateSimulationForTesting(factory.WithSimBufferSize(16))
package factory
