//go:build !linux && !darwin

package system

import "time"

func wallClock() time.Time {
	return time.Now().Round(0)
}

func monotonicClock() time.Duration {
	return fallbackElapsed()
}
