package sockets

import (
	"fmt"
	"time"

	"github.com/opd-ai/sockets/interfaces"
	"github.com/sirupsen/logrus"
)

// SelectMode selects the condition Poll tests for. The values are poll(2) bits.
type SelectMode = interfaces.PollEvents

const (
	SelectRead      SelectMode = interfaces.PollIn
	SelectWrite     SelectMode = interfaces.PollOut
	SelectError     SelectMode = interfaces.PollErr
	SelectOutOfBand SelectMode = interfaces.PollPri
	SelectHungUp    SelectMode = interfaces.PollHup
	SelectInvalid   SelectMode = interfaces.PollNval
)

// PollResult is the outcome of Poll.
type PollResult int

const (
	// PollTimeout means no event happened before the timeout
	PollTimeout PollResult = iota
	// PollFalse means an event happened but not the one asked for
	PollFalse
	// PollTrue means the requested condition holds
	PollTrue
)

// String returns a human-readable representation of the PollResult.
func (r PollResult) String() string {
	switch r {
	case PollTimeout:
		return "Timeout"
	case PollFalse:
		return "False"
	case PollTrue:
		return "True"
	default:
		return fmt.Sprintf("PollResult(%d)", int(r))
	}
}

// requestedEvents maps a select mode to the events to wait for. Error, hang-up
// and invalid conditions are always reported by the OS and need no request bit.
func requestedEvents(mode SelectMode) interfaces.PollEvents {
	switch mode {
	case SelectRead, SelectWrite, SelectOutOfBand:
		return mode
	default:
		return 0
	}
}

// Poll waits up to timeout for the condition named by mode. A negative timeout
// waits forever.
func (s *Socket) Poll(timeout time.Duration, mode SelectMode) (PollResult, error) {
	revents, ready, err := s.poll(timeout, requestedEvents(mode))
	if err != nil {
		return PollTimeout, err
	}
	if !ready {
		return PollTimeout, nil
	}
	if revents&mode == mode {
		return PollTrue, nil
	}
	return PollFalse, nil
}

// PollEvents waits up to timeout for events and returns the raw revents mask.
func (s *Socket) PollEvents(timeout time.Duration, events interfaces.PollEvents) (interfaces.PollEvents, error) {
	revents, _, err := s.poll(timeout, events)
	return revents, err
}

func (s *Socket) poll(timeout time.Duration, events interfaces.PollEvents) (interfaces.PollEvents, bool, error) {
	var revents interfaces.PollEvents
	var ready bool
	err := s.run(OpPoll, func(h interfaces.Handle) error {
		reqs := []interfaces.PollRequest{{Handle: h, Events: events}}
		n, err := s.sys.Poll(reqs, timeout)
		if err != nil {
			return s.osError(OpPoll, h, nil, err)
		}
		revents, ready = reqs[0].Revents, n > 0
		return nil
	}, nil)
	if err != nil {
		return 0, false, err
	}
	return revents, ready, nil
}

// pollHandle acquires the handle for Select; release with releaseHandle.
func (s *Socket) pollHandle() (interfaces.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Permits(OpPoll) {
		return interfaces.InvalidHandle, s.stateErrorLocked(OpPoll)
	}
	return s.acquireLocked(), nil
}

func (s *Socket) releaseHandle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked()
}

// Select waits until at least one socket in read is readable, one in write is
// writable or one in errs has an error condition, or the timeout expires. It
// returns the ready subset of each list. All sockets must share the same OS layer.
func Select(read, write, errs []*Socket, timeout time.Duration) (readReady, writeReady, errReady []*Socket, err error) {
	total := len(read) + len(write) + len(errs)
	if total == 0 {
		return nil, nil, nil, fmt.Errorf("%w: select needs at least one socket", ErrInvalidArgument)
	}

	type entry struct {
		sock *Socket
		list int
		mask interfaces.PollEvents
	}
	entries := make([]entry, 0, total)
	reqs := make([]interfaces.PollRequest, 0, total)
	var sys interfaces.SocketSyscalls
	defer func() {
		for _, e := range entries {
			e.sock.releaseHandle()
		}
	}()

	add := func(list int, socks []*Socket, events, mask interfaces.PollEvents) error {
		for _, sock := range socks {
			if sock == nil {
				return fmt.Errorf("%w: nil socket in select list", ErrInvalidArgument)
			}
			if sys == nil {
				sys = sock.sys
			} else if sock.sys != sys {
				return fmt.Errorf("%w: select across different OS layers", ErrInvalidArgument)
			}
			h, err := sock.pollHandle()
			if err != nil {
				return err
			}
			entries = append(entries, entry{sock: sock, list: list, mask: mask})
			reqs = append(reqs, interfaces.PollRequest{Handle: h, Events: events})
		}
		return nil
	}

	if err := add(0, read, interfaces.PollIn, interfaces.PollIn|interfaces.PollHup|interfaces.PollErr); err != nil {
		return nil, nil, nil, err
	}
	if err := add(1, write, interfaces.PollOut, interfaces.PollOut|interfaces.PollErr); err != nil {
		return nil, nil, nil, err
	}
	if err := add(2, errs, interfaces.PollPri, interfaces.PollPri|interfaces.PollErr); err != nil {
		return nil, nil, nil, err
	}

	if _, err := sys.Poll(reqs, timeout); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Select",
			"sockets":  total,
			"error":    err.Error(),
		}).Error("Select failed")
		return nil, nil, nil, newOpError(OpPoll, nil, err)
	}

	for i, e := range entries {
		if !reqs[i].Revents.Has(e.mask) {
			continue
		}
		switch e.list {
		case 0:
			readReady = append(readReady, e.sock)
		case 1:
			writeReady = append(writeReady, e.sock)
		case 2:
			errReady = append(errReady, e.sock)
		}
	}
	return readReady, writeReady, errReady, nil
}
