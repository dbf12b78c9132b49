//go:build linux

package real

import "golang.org/x/sys/unix"

// fionread is the ioctl reporting the unread byte count of a socket.
const fionread = unix.SIOCINQ
