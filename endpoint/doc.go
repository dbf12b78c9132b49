// Package endpoint implements the IP address and endpoint value objects used by
// the sockets package.
//
// An EndPoint is an immutable address and port pair. It serializes to a fixed
// 128-byte sockaddr_storage image so that it can travel inside a
// SocketInformation payload and be rebuilt in another process:
//
//	ep := endpoint.New(endpoint.Loopback, 8080)
//	raw := ep.Serialize()            // always limits.SockaddrStorageSize bytes
//	back, err := endpoint.FromBytes(raw)
//
// The image uses the Linux layout regardless of the host platform. The family is
// a little-endian uint16 at offset 0 and the port is big-endian at offset 2.
// IPv4 addresses occupy bytes 4..8. IPv6 addresses carry flow info at 4..8, the
// address at 8..24 and the scope id at 24..28.
package endpoint
