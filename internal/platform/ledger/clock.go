package ledger

import "time"

// Clock returns the current time. Registry timestamps have second precision.
type Clock func() time.Time

// SystemClock is the wall clock in UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// Now reads c truncated to whole seconds, falling back to the system clock.
func (c Clock) Now() time.Time {
	if c == nil {
		return SystemClock().Truncate(time.Second)
	}
	return c().UTC().Truncate(time.Second)
}

// FixedClock returns a Clock pinned to t.
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
