// Package main provides the command-line demo for the sockets module.
//
// # Overview
//
// sockdemo walks a socket through its lifecycle using the public API:
// listen, accept, connect, echo, handoff to another owner, readiness
// multiplexing and deferred close. Each step is reported with its outcome
// and duration.
//
// # Usage
//
// Run against the host network stack on loopback:
//
//	go run ./cmd/sockdemo
//
// Run against the in-memory simulation with debug logging:
//
//	go run ./cmd/sockdemo -simulation -log-level DEBUG
//
// Run over IPv6 with a larger echo payload:
//
//	go run ./cmd/sockdemo -address ::1 -message-size 1048576
//
// # Configuration Options
//
// Network configuration:
//   - -address: IP literal to bind listeners to (default: 127.0.0.1)
//   - -port: Listener port, 0 picks an ephemeral port (default: 0)
//
// Simulation:
//   - -simulation: Use the in-memory OS layer (default: false)
//   - -sim-buffer-size: Simulated stream buffer in bytes (default: 65536)
//
// Timeouts:
//   - -overall-timeout: Overall run timeout (default: 1m)
//   - -step-timeout: Per-step timeout (default: 10s)
//
// Logging configuration:
//   - -log-level: Log level (DEBUG, INFO, WARN, ERROR) (default: INFO)
//   - -log-file: Log file path (default: stdout)
//   - -verbose: Log the effective configuration (default: true)
//
// The SOCKETS_USE_SIMULATION environment variable is honored as well when
// -simulation is not given.
//
// # Exit Codes
//
//   - 0: All steps passed
//   - 1: Configuration error or step failure
package main
