// Package net adapts sockets.Socket to the standard library networking
// interfaces.
//
// The package provides:
//   - EndPointAddr: net.Addr for an endpoint.EndPoint
//   - SocketConn: net.Conn over a connected stream or datagram socket
//   - SocketListener: net.Listener over a listening stream socket
//   - Dial/Listen functions that resolve addresses and drive the socket
//     state machine
//   - ProxyDialer: SOCKS5 dialing (golang.org/x/net/proxy) with the proxy
//     hop made over these sockets
//
// Example usage:
//
//	ln, err := socknet.Listen("tcp", "127.0.0.1:0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ln.Close()
//
//	go func() {
//	    conn, err := ln.Accept()
//	    if err != nil {
//	        return
//	    }
//	    io.Copy(conn, conn)
//	}()
//
//	conn, err := socknet.Dial("tcp", ln.Addr().String())
//
// Deadlines are implemented by polling the socket before each blocking call,
// and a read of zero bytes from a stream socket is reported as io.EOF.
package net
