package sockets

import (
	"sync/atomic"
	"time"
)

// TimeProvider schedules the callbacks behind CloseAfter. Tests substitute a
// provider that fires early or records the requested delays.
type TimeProvider interface {
	Now() time.Time
	// AfterFunc calls f in its own goroutine once d has elapsed. Stop on the
	// returned timer prevents the call if it has not started.
	AfterFunc(d time.Duration, f func()) *time.Timer
}

// RealTimeProvider schedules on the system clock.
type RealTimeProvider struct{}

func (RealTimeProvider) Now() time.Time {
	return time.Now()
}

func (RealTimeProvider) AfterFunc(d time.Duration, f func()) *time.Timer {
	return time.AfterFunc(d, f)
}

type providerHolder struct{ tp TimeProvider }

var defaultTimeProvider atomic.Pointer[providerHolder]

func init() {
	defaultTimeProvider.Store(&providerHolder{RealTimeProvider{}})
}

// SetDefaultTimeProvider replaces the provider used by sockets whose Options
// carry none. nil restores RealTimeProvider.
func SetDefaultTimeProvider(tp TimeProvider) {
	if tp == nil {
		tp = RealTimeProvider{}
	}
	defaultTimeProvider.Store(&providerHolder{tp})
}

func getTimeProvider(tp TimeProvider) TimeProvider {
	if tp != nil {
		return tp
	}
	return defaultTimeProvider.Load().tp
}
