//go:build darwin

package real

// fionread is FIONREAD from <sys/filio.h>; x/sys/unix does not export it.
const fionread = 0x4004667f
