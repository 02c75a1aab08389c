package system

import "golang.org/x/sys/unix"

// CLOCK_MONOTONIC keeps counting across sleep on darwin.
const monotonicClockID = unix.CLOCK_MONOTONIC
