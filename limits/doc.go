// Package limits provides centralized size constants and range validation for the
// sockets module. Every component that slices a caller buffer or reads a wire
// payload checks it here first, so out-of-range arithmetic is rejected before an
// OS call is made.
//
// # Size Hierarchy
//
//   - SockaddrStorageSize (128 bytes): the fixed size of a serialized endpoint,
//     matching the platform sockaddr_storage structure.
//
//   - InformationHeaderSize (12 bytes): family, type and protocol, each a 32-bit
//     little-endian integer, at the front of a SocketInformation payload.
//
//   - InformationSize (140 bytes): the only accepted length of a SocketInformation
//     protocol payload.
//
//   - SealOverhead (40 bytes): nonce plus authenticator added when a payload is
//     sealed for transfer between processes.
//
// # Validation Functions
//
//	err := limits.ValidateRange(len(buf), offset, size)
//	if err != nil {
//	    // errors.Is(err, limits.ErrOutOfRange)
//	}
//
//	err = limits.ValidateBacklog(backlog)
//
// # Error Types
//
//   - ErrOutOfRange: offset or size does not fit the buffer
//   - ErrInvalidBacklog: listen backlog outside [MinBacklog, MaxBacklog]
//   - ErrWrongSize: a fixed-size payload has the wrong length
package limits
