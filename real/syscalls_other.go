//go:build !linux && !darwin

package real

import (
	"time"

	"github.com/opd-ai/sockets/endpoint"
	"github.com/opd-ai/sockets/interfaces"
	"github.com/sirupsen/logrus"
)

func unsupported(function string) error {
	logrus.WithFields(logrus.Fields{
		"function": function,
	}).Warn("Socket syscalls are not supported on this platform")
	return ErrUnsupportedPlatform
}

func (s *Syscalls) Socket(endpoint.AddressFamily, interfaces.SocketType, interfaces.ProtocolType) (interfaces.Handle, error) {
	return interfaces.InvalidHandle, unsupported("Syscalls.Socket")
}

func (s *Syscalls) Bind(interfaces.Handle, *endpoint.EndPoint) error {
	return unsupported("Syscalls.Bind")
}

func (s *Syscalls) Connect(interfaces.Handle, *endpoint.EndPoint) error {
	return unsupported("Syscalls.Connect")
}

func (s *Syscalls) Listen(interfaces.Handle, int) error {
	return unsupported("Syscalls.Listen")
}

func (s *Syscalls) Accept(interfaces.Handle) (interfaces.Handle, *endpoint.EndPoint, error) {
	return interfaces.InvalidHandle, nil, unsupported("Syscalls.Accept")
}

func (s *Syscalls) Send(interfaces.Handle, []byte, interfaces.SocketFlags) (int, error) {
	return 0, unsupported("Syscalls.Send")
}

func (s *Syscalls) Recv(interfaces.Handle, []byte, interfaces.SocketFlags) (int, error) {
	return 0, unsupported("Syscalls.Recv")
}

func (s *Syscalls) SendTo(interfaces.Handle, []byte, interfaces.SocketFlags, *endpoint.EndPoint) (int, error) {
	return 0, unsupported("Syscalls.SendTo")
}

func (s *Syscalls) RecvFrom(interfaces.Handle, []byte, interfaces.SocketFlags) (int, *endpoint.EndPoint, error) {
	return 0, nil, unsupported("Syscalls.RecvFrom")
}

func (s *Syscalls) Shutdown(interfaces.Handle, interfaces.SocketShutdown) error {
	return unsupported("Syscalls.Shutdown")
}

func (s *Syscalls) Close(interfaces.Handle) error {
	return unsupported("Syscalls.Close")
}

func (s *Syscalls) LocalEndPoint(interfaces.Handle) (*endpoint.EndPoint, error) {
	return nil, unsupported("Syscalls.LocalEndPoint")
}

func (s *Syscalls) RemoteEndPoint(interfaces.Handle) (*endpoint.EndPoint, error) {
	return nil, unsupported("Syscalls.RemoteEndPoint")
}

func (s *Syscalls) GetOption(interfaces.Handle, interfaces.SocketOption) (int, error) {
	return 0, unsupported("Syscalls.GetOption")
}

func (s *Syscalls) SetOption(interfaces.Handle, interfaces.SocketOption, int) error {
	return unsupported("Syscalls.SetOption")
}

func (s *Syscalls) SetTimeout(interfaces.Handle, interfaces.SocketOption, time.Duration) error {
	return unsupported("Syscalls.SetTimeout")
}

func (s *Syscalls) SetNonblock(interfaces.Handle, bool) error {
	return unsupported("Syscalls.SetNonblock")
}

func (s *Syscalls) Available(interfaces.Handle) (int, error) {
	return 0, unsupported("Syscalls.Available")
}

func (s *Syscalls) Poll([]interfaces.PollRequest, time.Duration) (int, error) {
	return 0, unsupported("Syscalls.Poll")
}
