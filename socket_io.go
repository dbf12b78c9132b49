package sockets

import (
	"github.com/opd-ai/sockets/endpoint"
	"github.com/opd-ai/sockets/interfaces"
	"github.com/opd-ai/sockets/limits"
)

// Send writes p to the peer and returns the number of bytes sent.
func (s *Socket) Send(p []byte) (int, error) {
	return s.SendRange(p, 0, len(p), interfaces.FlagsNone)
}

// SendRange sends p[offset:offset+size]. The range is validated before any OS call.
func (s *Socket) SendRange(p []byte, offset, size int, flags interfaces.SocketFlags) (int, error) {
	var n int
	err := s.run(OpSend, func(h interfaces.Handle) error {
		if err := limits.ValidateRange(len(p), offset, size); err != nil {
			return err
		}
		var err error
		n, err = s.sys.Send(h, p[offset:offset+size], flags)
		if err != nil {
			return s.osError(OpSend, h, nil, err)
		}
		return nil
	}, nil)
	return n, err
}

// SendTo writes p to an explicit destination.
func (s *Socket) SendTo(p []byte, to *endpoint.EndPoint) (int, error) {
	return s.SendToRange(p, 0, len(p), interfaces.FlagsNone, to)
}

// SendToRange sends p[offset:offset+size] to an explicit destination.
func (s *Socket) SendToRange(p []byte, offset, size int, flags interfaces.SocketFlags, to *endpoint.EndPoint) (int, error) {
	var n int
	err := s.run(OpSend, func(h interfaces.Handle) error {
		if err := limits.ValidateRange(len(p), offset, size); err != nil {
			return err
		}
		if err := s.checkEndPoint(to); err != nil {
			return err
		}
		var err error
		n, err = s.sys.SendTo(h, p[offset:offset+size], flags, to)
		if err != nil {
			return s.osError(OpSend, h, to, err)
		}
		return nil
	}, nil)
	return n, err
}

// Receive reads into p. A return of 0 with a nil error means the peer closed
// its sending side.
func (s *Socket) Receive(p []byte) (int, error) {
	return s.ReceiveRange(p, 0, len(p), interfaces.FlagsNone)
}

// ReceiveRange reads into p[offset:offset+size].
func (s *Socket) ReceiveRange(p []byte, offset, size int, flags interfaces.SocketFlags) (int, error) {
	var n int
	err := s.run(OpReceive, func(h interfaces.Handle) error {
		if err := limits.ValidateRange(len(p), offset, size); err != nil {
			return err
		}
		var err error
		n, err = s.sys.Recv(h, p[offset:offset+size], flags)
		if err != nil {
			return s.osError(OpReceive, h, nil, err)
		}
		return nil
	}, nil)
	return n, err
}

// ReceiveFrom reads into p and reports the sender.
func (s *Socket) ReceiveFrom(p []byte) (int, *endpoint.EndPoint, error) {
	return s.ReceiveFromRange(p, 0, len(p), interfaces.FlagsNone)
}

// ReceiveFromRange reads into p[offset:offset+size] and reports the sender.
// Stream sockets report their peer.
func (s *Socket) ReceiveFromRange(p []byte, offset, size int, flags interfaces.SocketFlags) (int, *endpoint.EndPoint, error) {
	var n int
	var from *endpoint.EndPoint
	err := s.run(OpReceive, func(h interfaces.Handle) error {
		if err := limits.ValidateRange(len(p), offset, size); err != nil {
			return err
		}
		var err error
		n, from, err = s.sys.RecvFrom(h, p[offset:offset+size], flags)
		if err != nil {
			return s.osError(OpReceive, h, nil, err)
		}
		return nil
	}, func() {
		if from == nil {
			from = s.remote
		}
	})
	if err != nil {
		return 0, nil, err
	}
	return n, from, nil
}
