// Package listener provides truetime.EventListener implementations for
// logging, metrics and fan-out.
package listener

import (
	"time"

	"github.com/AndrewLester/truetime/pkg/truetime"
)

// Multi forwards every event to each listener in order.
type Multi []truetime.EventListener

var _ truetime.EventListener = Multi(nil)

func (m Multi) SyncStarted(params truetime.Parameters) {
	for _, l := range m {
		l.SyncStarted(params)
	}
}

func (m Multi) HostResolved(host string, addresses []string) {
	for _, l := range m {
		l.HostResolved(host, addresses)
	}
}

func (m Multi) RequestSucceeded(result truetime.SyncResult) {
	for _, l := range m {
		l.RequestSucceeded(result)
	}
}

func (m Multi) RequestFailed(address string, err error) {
	for _, l := range m {
		l.RequestFailed(address, err)
	}
}

func (m Multi) LastAttempt(address string) {
	for _, l := range m {
		l.LastAttempt(address)
	}
}

func (m Multi) SyncSucceeded(result truetime.SyncResult) {
	for _, l := range m {
		l.SyncSucceeded(result)
	}
}

func (m Multi) SyncFailed(err error) {
	for _, l := range m {
		l.SyncFailed(err)
	}
}

func (m Multi) NextSyncIn(delay time.Duration) {
	for _, l := range m {
		l.NextSyncIn(delay)
	}
}

func (m Multi) FallbackToDeviceTime() {
	for _, l := range m {
		l.FallbackToDeviceTime()
	}
}

func (m Multi) StoreFailed(err error) {
	for _, l := range m {
		l.StoreFailed(err)
	}
}
