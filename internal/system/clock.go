// Package system reads the host clocks a TrueTime anchor is built from.
package system

import "time"

// Clock reads the device wall clock, which the user or other software may
// step at any time, and a monotonic clock that keeps counting while the
// host is suspended and is never stepped.
type Clock struct{}

func (Clock) Now() time.Time {
	return wallClock()
}

// Elapsed returns the monotonic reading as time since boot. Only
// differences between readings are meaningful.
func (Clock) Elapsed() time.Duration {
	return monotonicClock()
}
