// Package real provides the production implementation of
// interfaces.SocketSyscalls on top of golang.org/x/sys/unix.
//
// Every method performs exactly one BSD socket call, translating between the
// Linux numbering used by the interfaces and endpoint packages and the host's
// constants. Errors are returned as the underlying unix.Errno annotated with
// github.com/pkg/errors, so errors.Is(err, unix.ECONNREFUSED) keeps working.
//
// # Interrupted Calls
//
// The Go runtime preempts goroutines with signals, so blocking calls can fail
// with EINTR. Every call is retried on EINTR. A blocking connect that was
// interrupted is completed by polling the handle for writability and reading
// SO_ERROR, because restarting connect(2) would fail with EALREADY.
//
// # Platforms
//
// Linux and Darwin are supported. On other platforms every method returns
// ErrUnsupportedPlatform and callers should use the simulation instead.
package real
