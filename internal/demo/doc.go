// Package demo runs an end-to-end walk through the socket state machine on
// loopback: echo over a stream, multi-candidate connect, handoff of a bound
// socket, readiness with Select and a deferred close. Each step is timed and
// reported; the orchestrator stops at the first failure.
package demo
