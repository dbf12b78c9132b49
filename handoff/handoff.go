package handoff

import (
	"io"

	"github.com/opd-ai/sockets"
	"github.com/sirupsen/logrus"
)

// Send seals info and writes it as one frame.
func Send(w io.Writer, info sockets.SocketInformation, key Key) error {
	sealed, err := Seal(info, key)
	if err != nil {
		return err
	}
	return WriteFrame(w, sealed)
}

// Receive reads one frame and opens it.
func Receive(r io.Reader, key Key) (sockets.SocketInformation, error) {
	sealed, err := ReadFrame(r)
	if err != nil {
		return sockets.SocketInformation{}, err
	}
	return Open(sealed, key)
}

// Transfer duplicates and closes sock, then sends its information to w.
// The socket is closed even if writing fails.
func Transfer(sock *sockets.Socket, w io.Writer, key Key) error {
	info, err := sock.DuplicateAndClose()
	if err != nil {
		return err
	}
	if err := Send(w, info, key); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Transfer",
			"option":   info.Option.String(),
			"error":    err.Error(),
		}).Error("Failed to send socket information")
		return err
	}

	logrus.WithFields(logrus.Fields{
		"function": "Transfer",
		"option":   info.Option.String(),
	}).Debug("Socket handed off")
	return nil
}

// Adopt receives socket information from r and opens the socket it describes.
func Adopt(r io.Reader, key Key, opts *sockets.Options) (*sockets.Socket, error) {
	info, err := Receive(r, key)
	if err != nil {
		return nil, err
	}
	sock, err := sockets.FromInformation(info, opts)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "Adopt",
		"option":   info.Option.String(),
		"state":    sock.State().String(),
	}).Debug("Socket adopted")
	return sock, nil
}
