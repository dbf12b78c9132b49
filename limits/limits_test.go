package limits

import (
	"crypto/rand"
	"errors"
	"math"
	"testing"

	"golang.org/x/crypto/nacl/secretbox"
)

// TestSealOverheadMatchesSecretbox verifies that SealOverhead matches the nonce
// plus the actual overhead from golang.org/x/crypto/nacl/secretbox
func TestSealOverheadMatchesSecretbox(t *testing.T) {
	if SealOverhead != NonceSize+secretbox.Overhead {
		t.Errorf("SealOverhead = %d, want %d", SealOverhead, NonceSize+secretbox.Overhead)
	}

	var key [32]byte
	var nonce [NonceSize]byte
	if _, err := rand.Read(key[:]); err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}

	payload := make([]byte, InformationSize)
	sealed := secretbox.Seal(nonce[:], payload, &nonce, &key)
	if len(sealed) != InformationSize+SealOverhead {
		t.Errorf("sealed length = %d, want %d", len(sealed), InformationSize+SealOverhead)
	}
}

func TestInformationSize(t *testing.T) {
	if InformationSize != 140 {
		t.Errorf("InformationSize = %d, want 140", InformationSize)
	}
}

func TestValidateRange(t *testing.T) {
	tests := []struct {
		name    string
		bufLen  int
		offset  int
		size    int
		wantErr bool
	}{
		{"whole buffer", 8, 0, 8, false},
		{"empty at end", 8, 8, 0, false},
		{"middle", 8, 2, 3, false},
		{"empty buffer", 0, 0, 0, false},
		{"offset past end", 8, 9, 0, true},
		{"size past end", 8, 4, 5, true},
		{"negative offset", 8, -1, 1, true},
		{"negative size", 8, 0, -1, true},
		{"overflowing size", 8, 1, math.MaxInt, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRange(tt.bufLen, tt.offset, tt.size)
			if tt.wantErr {
				if !errors.Is(err, ErrOutOfRange) {
					t.Errorf("ValidateRange(%d, %d, %d) = %v, want ErrOutOfRange", tt.bufLen, tt.offset, tt.size, err)
				}
				return
			}
			if err != nil {
				t.Errorf("ValidateRange(%d, %d, %d) unexpected error: %v", tt.bufLen, tt.offset, tt.size, err)
			}
		})
	}
}

func TestValidateBacklog(t *testing.T) {
	for _, backlog := range []int{MinBacklog, DefaultBacklog, MaxBacklog} {
		if err := ValidateBacklog(backlog); err != nil {
			t.Errorf("ValidateBacklog(%d) unexpected error: %v", backlog, err)
		}
	}
	for _, backlog := range []int{-1, MaxBacklog + 1} {
		if err := ValidateBacklog(backlog); !errors.Is(err, ErrInvalidBacklog) {
			t.Errorf("ValidateBacklog(%d) = %v, want ErrInvalidBacklog", backlog, err)
		}
	}
}

func TestValidateExactSize(t *testing.T) {
	if err := ValidateExactSize(make([]byte, InformationSize), InformationSize); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateExactSize(make([]byte, InformationSize-1), InformationSize); !errors.Is(err, ErrWrongSize) {
		t.Errorf("got %v, want ErrWrongSize", err)
	}
}

func TestValidateFrameSize(t *testing.T) {
	if err := ValidateFrameSize(1); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	for _, n := range []int{0, -5, MaxFrameSize + 1} {
		if err := ValidateFrameSize(n); !errors.Is(err, ErrWrongSize) {
			t.Errorf("ValidateFrameSize(%d) = %v, want ErrWrongSize", n, err)
		}
	}
}
