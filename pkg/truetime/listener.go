package truetime

import (
	"context"
	"time"
)

// EventListener observes the sync lifecycle. Implementations must be safe
// for concurrent use when Parameters.ConcurrentAddresses is set, and must
// not block for long: they are called from the sync goroutine.
type EventListener interface {
	SyncStarted(params Parameters)
	HostResolved(host string, addresses []string)
	RequestSucceeded(result SyncResult)
	RequestFailed(address string, err error)
	// LastAttempt is called before the final attempt against address, whose
	// error is no longer swallowed.
	LastAttempt(address string)
	SyncSucceeded(result SyncResult)
	// SyncFailed reports a failed cycle of the background loop.
	SyncFailed(err error)
	NextSyncIn(delay time.Duration)
	FallbackToDeviceTime()
	StoreFailed(err error)
}

// NoOpEventListener ignores every event. Embed it to implement only the
// events of interest.
type NoOpEventListener struct{}

var _ EventListener = NoOpEventListener{}

func (NoOpEventListener) SyncStarted(Parameters) {}
func (NoOpEventListener) HostResolved(string, []string) {}
func (NoOpEventListener) RequestSucceeded(SyncResult) {}
func (NoOpEventListener) RequestFailed(string, error) {}
func (NoOpEventListener) LastAttempt(string) {}
func (NoOpEventListener) SyncSucceeded(SyncResult) {}
func (NoOpEventListener) SyncFailed(error) {}
func (NoOpEventListener) NextSyncIn(time.Duration) {}
func (NoOpEventListener) FallbackToDeviceTime() {}
func (NoOpEventListener) StoreFailed(error) {}

// gatedListener drops every event once ctx is done, so a cancelled sync
// loop goes quiet even while its last cycle unwinds.
type gatedListener struct {
	ctx  context.Context
	next EventListener
}

func (l gatedListener) open() bool {
	return l.ctx.Err() == nil
}

func (l gatedListener) SyncStarted(params Parameters) {
	if l.open() {
		l.next.SyncStarted(params)
	}
}

func (l gatedListener) HostResolved(host string, addresses []string) {
	if l.open() {
		l.next.HostResolved(host, addresses)
	}
}

func (l gatedListener) RequestSucceeded(result SyncResult) {
	if l.open() {
		l.next.RequestSucceeded(result)
	}
}

func (l gatedListener) RequestFailed(address string, err error) {
	if l.open() {
		l.next.RequestFailed(address, err)
	}
}

func (l gatedListener) LastAttempt(address string) {
	if l.open() {
		l.next.LastAttempt(address)
	}
}

func (l gatedListener) SyncSucceeded(result SyncResult) {
	if l.open() {
		l.next.SyncSucceeded(result)
	}
}

func (l gatedListener) SyncFailed(err error) {
	if l.open() {
		l.next.SyncFailed(err)
	}
}

func (l gatedListener) NextSyncIn(delay time.Duration) {
	if l.open() {
		l.next.NextSyncIn(delay)
	}
}

func (l gatedListener) FallbackToDeviceTime() {
	if l.open() {
		l.next.FallbackToDeviceTime()
	}
}

func (l gatedListener) StoreFailed(err error) {
	if l.open() {
		l.next.StoreFailed(err)
	}
}
