package sockets

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DeferredClose is a pending close scheduled by CloseAfter.
type DeferredClose struct {
	mu      sync.Mutex
	claimed bool
	done    chan struct{}
	timer   *time.Timer
	err     error
}

// CloseAfter closes the socket once timeout has elapsed. A non-positive timeout
// closes immediately. If the socket is already closed when the close fires, it
// does nothing and reports no error. Calls still running when it fires keep
// the OS handle open until they return, as with Close.
func (s *Socket) CloseAfter(timeout time.Duration) *DeferredClose {
	dc := &DeferredClose{done: make(chan struct{})}
	if timeout <= 0 {
		dc.claim()
		dc.finish(s.closeIfOpen())
		return dc
	}

	dc.mu.Lock()
	dc.timer = getTimeProvider(s.opts.TimeProvider).AfterFunc(timeout, func() {
		if dc.claim() {
			dc.finish(s.closeIfOpen())
		}
	})
	dc.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "Socket.CloseAfter",
		"timeout":  timeout.String(),
	}).Debug("Deferred close scheduled")
	return dc
}

func (s *Socket) closeIfOpen() error {
	err := s.Close()
	var stateErr *StateError
	if errors.As(err, &stateErr) && stateErr.State == StateClosed {
		return nil
	}
	return err
}

// claim reserves the right to decide the outcome. Only the first caller wins.
func (d *DeferredClose) claim() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.claimed {
		return false
	}
	d.claimed = true
	return true
}

func (d *DeferredClose) finish(err error) {
	d.err = err
	close(d.done)
}

// Cancel stops a pending close. It returns false if the close already started.
func (d *DeferredClose) Cancel() bool {
	if !d.claim() {
		return false
	}
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()
	d.finish(ErrCloseCanceled)
	return true
}

// Done is closed once the close has run or was canceled.
func (d *DeferredClose) Done() <-chan struct{} {
	return d.done
}

// Err returns the close result after Done is closed: nil on success,
// ErrCloseCanceled after Cancel, or the Close error.
func (d *DeferredClose) Err() error {
	select {
	case <-d.done:
		return d.err
	default:
		return nil
	}
}
