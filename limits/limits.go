package limits

import (
	"errors"
	"fmt"
)

const (
	// SockaddrStorageSize is the size of a serialized endpoint (sockaddr_storage).
	SockaddrStorageSize = 128

	// InformationHeaderSize covers family, type and protocol (3 x int32).
	InformationHeaderSize = 12

	// InformationSize is the exact length of a SocketInformation protocol payload.
	InformationSize = InformationHeaderSize + SockaddrStorageSize

	// NonceSize is the secretbox nonce length used by sealed handoff frames.
	NonceSize = 24

	// SealOverhead is the nonce plus the Poly1305 tag added by a sealed frame.
	SealOverhead = NonceSize + 16 // golang.org/x/crypto/nacl/secretbox.Overhead

	// MaxFrameSize bounds any length-prefixed frame read from an untrusted stream.
	MaxFrameSize = 64 * 1024

	// MinBacklog and MaxBacklog bound the listen queue length.
	MinBacklog = 0
	MaxBacklog = 65535

	// DefaultBacklog is used when a caller has no preference.
	DefaultBacklog = 128
)

var (
	// ErrOutOfRange indicates an offset/size pair that does not fit a buffer
	ErrOutOfRange = errors.New("offset or size out of range")

	// ErrInvalidBacklog indicates a listen backlog outside the allowed bounds
	ErrInvalidBacklog = errors.New("invalid backlog")

	// ErrWrongSize indicates a fixed-size payload of unexpected length
	ErrWrongSize = errors.New("wrong payload size")
)

// ValidateRange checks that [offset, offset+size) lies inside a buffer of length bufLen.
// The comparison is written so that it cannot overflow.
func ValidateRange(bufLen, offset, size int) error {
	if offset < 0 || size < 0 || offset > bufLen || size > bufLen-offset {
		return fmt.Errorf("%w: offset %d size %d buffer %d", ErrOutOfRange, offset, size, bufLen)
	}
	return nil
}

// ValidateBacklog checks a listen backlog against MinBacklog and MaxBacklog.
func ValidateBacklog(backlog int) error {
	if backlog < MinBacklog || backlog > MaxBacklog {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidBacklog, backlog, MinBacklog, MaxBacklog)
	}
	return nil
}

// ValidateExactSize checks that data has exactly the expected length.
func ValidateExactSize(data []byte, expected int) error {
	if len(data) != expected {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrWrongSize, len(data), expected)
	}
	return nil
}

// ValidateFrameSize checks a frame length announced by a peer.
func ValidateFrameSize(n int) error {
	if n <= 0 || n > MaxFrameSize {
		return fmt.Errorf("%w: frame of %d bytes exceeds limit %d", ErrWrongSize, n, MaxFrameSize)
	}
	return nil
}
