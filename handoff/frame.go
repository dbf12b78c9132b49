package handoff

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/opd-ai/sockets/limits"
	"github.com/sirupsen/logrus"
)

const lengthPrefixSize = 4

// WriteFrame writes payload with a 4-byte big-endian length prefix.
func WriteFrame(w io.Writer, payload []byte) error {
	if err := limits.ValidateFrameSize(len(payload)); err != nil {
		return err
	}

	frame := make([]byte, lengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[lengthPrefixSize:], payload)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// ReadFrame reads one frame written by WriteFrame. The announced length is
// checked against limits.MaxFrameSize before any payload is read.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [lengthPrefixSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read frame length: %w", err)
	}

	length := binary.BigEndian.Uint32(header[:])
	if err := limits.ValidateFrameSize(int(length)); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "ReadFrame",
			"length":   length,
		}).Warn("Rejecting oversized handoff frame")
		return nil, err
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read frame payload: %w", err)
	}
	return payload, nil
}
