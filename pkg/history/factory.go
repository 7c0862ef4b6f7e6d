package history

import (
	"fmt"
	"time"
)

// Factory builds history windows stamped with the current time.
type Factory struct {
	now            Clock
	defaultTimeout time.Duration
}

// NewFactory creates a factory using the wall clock and DefaultTimeout.
func NewFactory() *Factory {
	return NewFactoryWithClock(time.Now, DefaultTimeout)
}

// NewFactoryWithClock creates a factory with a custom clock and default
// timeout. A nil clock uses time.Now; a non-positive timeout uses
// DefaultTimeout.
func NewFactoryWithClock(now Clock, defaultTimeout time.Duration) *Factory {
	if now == nil {
		now = time.Now
	}
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultTimeout
	}
	return &Factory{now: now, defaultTimeout: defaultTimeout}
}

// DefaultTimeout returns the timeout used when a constructor gets zero.
func (f *Factory) DefaultTimeout() time.Duration {
	return f.defaultTimeout
}

func (f *Factory) lifetime(timeout time.Duration) (lifetime, error) {
	if timeout < 0 {
		return lifetime{}, fmt.Errorf("%w: %v", ErrInvalidTimeout, timeout)
	}
	if timeout == 0 {
		timeout = f.defaultTimeout
	}
	return lifetime{timeout: timeout, requestTime: f.now(), now: f.now}, nil
}

// NewShift creates a window over the last length messages of each sender.
func (f *Factory) NewShift(length uint64, timeout time.Duration) (*Shift, error) {
	lt, err := f.lifetime(timeout)
	if err != nil {
		return nil, err
	}
	return &Shift{lifetime: lt, Length: length}, nil
}

// NewDiscrete creates a window over sequence numbers [from, to].
func (f *Factory) NewDiscrete(from, to uint64, timeout time.Duration) (*Discrete, error) {
	if from > to {
		return nil, fmt.Errorf("%w: %d > %d", ErrInvalidRange, from, to)
	}
	lt, err := f.lifetime(timeout)
	if err != nil {
		return nil, err
	}
	return &Discrete{lifetime: lt, From: from, To: to}, nil
}

// NewTime creates a window over publish times [since, until].
// Either bound may be zero to leave that side open.
func (f *Factory) NewTime(since, until time.Time, timeout time.Duration) (*Time, error) {
	if !since.IsZero() && !until.IsZero() && since.After(until) {
		return nil, fmt.Errorf("%w: %s after %s", ErrInvalidRange, since, until)
	}
	lt, err := f.lifetime(timeout)
	if err != nil {
		return nil, err
	}
	return &Time{lifetime: lt, Since: since, Until: until}, nil
}
