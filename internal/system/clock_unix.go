//go:build linux || darwin

package system

import (
	"time"

	"golang.org/x/sys/unix"
)

func wallClock() time.Time {
	var now unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_REALTIME, &now); err != nil {
		return time.Now().Round(0)
	}
	return time.Unix(now.Unix())
}

func monotonicClock() time.Duration {
	var now unix.Timespec
	if err := unix.ClockGettime(monotonicClockID, &now); err != nil {
		return fallbackElapsed()
	}
	return time.Duration(now.Nano())
}
