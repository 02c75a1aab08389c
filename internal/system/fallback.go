package system

import "time"

var processStart = time.Now()

// fallbackElapsed measures from process start on the runtime's monotonic
// clock. It does not count suspended time.
func fallbackElapsed() time.Duration {
	return time.Since(processStart)
}
