package system

import "golang.org/x/sys/unix"

// CLOCK_BOOTTIME includes time spent in suspend, unlike CLOCK_MONOTONIC.
const monotonicClockID = unix.CLOCK_BOOTTIME
