package sockets

import (
	"sync"

	"github.com/opd-ai/sockets/factory"
	"github.com/opd-ai/sockets/interfaces"
)

// Options contains configuration for new sockets.
type Options struct {
	// Syscalls is the OS layer; nil selects DefaultSyscalls.
	Syscalls interfaces.SocketSyscalls
	// ReuseAddress sets SO_REUSEADDR before every Bind.
	ReuseAddress bool
	// TimeProvider drives deferred closes; nil selects the package default.
	TimeProvider TimeProvider
}

// NewOptions returns the default options.
func NewOptions() *Options {
	return &Options{
		ReuseAddress: true,
	}
}

var (
	defaultSyscallsOnce sync.Once
	defaultSyscalls     interfaces.SocketSyscalls
)

// DefaultSyscalls returns the process-wide OS layer selected by the factory
// package from the SOCKETS_* environment variables.
func DefaultSyscalls() interfaces.SocketSyscalls {
	defaultSyscallsOnce.Do(func() {
		defaultSyscalls = factory.NewSyscallFactory().CreateSyscalls()
	})
	return defaultSyscalls
}

func (o *Options) syscalls() interfaces.SocketSyscalls {
	if o.Syscalls != nil {
		return o.Syscalls
	}
	return DefaultSyscalls()
}
