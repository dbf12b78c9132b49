package real

import (
	"errors"

	"github.com/opd-ai/sockets/interfaces"
	"github.com/sirupsen/logrus"
)

// ErrUnsupportedPlatform is returned by every call on platforms without a socket backend.
var ErrUnsupportedPlatform = errors.New("sockets: platform not supported")

// Syscalls implements interfaces.SocketSyscalls against the operating system.
type Syscalls struct {
	config *interfaces.SyscallConfig
}

// NewSyscalls creates the production syscall implementation
func NewSyscalls(config *interfaces.SyscallConfig) *Syscalls {
	logrus.WithFields(logrus.Fields{
		"function":        "NewSyscalls",
		"default_backlog": config.DefaultBacklog,
	}).Info("Creating real socket syscalls")

	return &Syscalls{config: config}
}

// IsSimulation returns false for the real implementation
func (s *Syscalls) IsSimulation() bool {
	return false
}

// DefaultBacklog returns the configured listen backlog.
func (s *Syscalls) DefaultBacklog() int {
	return s.config.Backlog()
}

var _ interfaces.SocketSyscalls = (*Syscalls)(nil)
