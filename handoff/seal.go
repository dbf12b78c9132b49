package handoff

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/opd-ai/sockets"
	"github.com/opd-ai/sockets/limits"
	"golang.org/x/crypto/nacl/secretbox"
)

// KeySize is the length of a handoff key.
const KeySize = 32

// Key is a shared secretbox key.
type Key [KeySize]byte

var (
	// ErrDecryptionFailed indicates a frame that does not authenticate under the key
	ErrDecryptionFailed = errors.New("handoff frame failed authentication")

	// ErrShortFrame indicates a sealed frame too short to hold a nonce and tag
	ErrShortFrame = errors.New("handoff frame too short")
)

// GenerateKey creates a random key.
func GenerateKey() (Key, error) {
	var key Key
	if _, err := rand.Read(key[:]); err != nil {
		return Key{}, err
	}
	return key, nil
}

// Seal encrypts and authenticates info under key. The result is the nonce
// followed by the secretbox.
func Seal(info sockets.SocketInformation, key Key) ([]byte, error) {
	plain, err := info.MarshalBinary()
	if err != nil {
		return nil, err
	}

	var nonce [limits.NonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, limits.NonceSize, limits.NonceSize+len(plain)+secretbox.Overhead)
	copy(out, nonce[:])
	k := [KeySize]byte(key)
	return secretbox.Seal(out, plain, &nonce, &k), nil
}

// Open verifies and decrypts a frame produced by Seal.
func Open(sealed []byte, key Key) (sockets.SocketInformation, error) {
	if len(sealed) < limits.SealOverhead {
		return sockets.SocketInformation{}, fmt.Errorf("%w: %d bytes", ErrShortFrame, len(sealed))
	}

	var nonce [limits.NonceSize]byte
	copy(nonce[:], sealed[:limits.NonceSize])
	k := [KeySize]byte(key)
	plain, ok := secretbox.Open(nil, sealed[limits.NonceSize:], &nonce, &k)
	if !ok {
		return sockets.SocketInformation{}, ErrDecryptionFailed
	}

	var info sockets.SocketInformation
	if err := info.UnmarshalBinary(plain); err != nil {
		return sockets.SocketInformation{}, err
	}
	return info, nil
}
