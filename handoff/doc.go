// Package handoff moves a socket between owners, typically processes joined
// by a pipe or a UNIX socket.
//
// The sending side calls Transfer, which duplicates and closes the socket and
// writes its SocketInformation as one sealed frame. The receiving side calls
// Adopt with the same key to open an equivalent socket. Frames are a 4-byte
// big-endian length followed by a 24-byte nonce and a NaCl secretbox, so a
// tampered or foreign frame is rejected before any socket is opened.
//
// Example:
//
//	key, _ := handoff.GenerateKey()
//	if err := handoff.Transfer(sock, pipeWriter, key); err != nil {
//	    log.Fatal(err)
//	}
//	// in the other process
//	sock, err := handoff.Adopt(pipeReader, key, sockets.NewOptions())
package handoff
