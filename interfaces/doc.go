// Package interfaces defines the contract between the sockets state machine and
// the operating system.
//
// This package provides the enums shared with the OS layer and the
// [SocketSyscalls] interface. The socket state machine talks to the OS only
// through that interface, which allows switching between the production
// implementation and an in-memory simulation:
//
//	sys, err := factory.NewSyscallFactory().CreateSyscalls()
//	sock, err := sockets.New(endpoint.InterNetwork, interfaces.Stream, interfaces.TCP,
//	    &sockets.Options{Syscalls: sys})
//
// # Implementation Selection
//
// The factory package creates implementations based on [SyscallConfig]:
//   - UseSimulation=true: SimulatedSyscalls from the testing package
//   - UseSimulation=false: Syscalls from the real package
//
// # Numbering
//
// Address families, socket types, protocols, flags and poll events use the Linux
// numbering throughout. Implementations translate to the host's values.
//
// # Error Handling
//
// Implementations return the raw errno (syscall.Errno) or an error wrapping it,
// so callers can use errors.Is with values like syscall.ECONNREFUSED regardless
// of the implementation in use.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Blocking calls such as Accept
// and Recv may be made concurrently with Close on the same handle.
package interfaces
