// Package truetime keeps a wall clock that is corrected against NTP servers
// and anchored to the host's monotonic clock, so it is unaffected by changes
// to the device clock.
package truetime

import (
	"context"
	"time"

	"github.com/AndrewLester/truetime/internal/system"
	"github.com/AndrewLester/truetime/pkg/sntp"
	"github.com/benbjohnson/clock"
)

// TrueTime owns one time anchor and the machinery to refresh it. Each
// instance is independent; share one by passing it around.
type TrueTime struct {
	listener  EventListener
	resolver  HostResolver
	requester Requester
	clock     Clock
	timer     clock.Clock
	store     AnchorStore
	keeper    *TimeKeeper
}

type Option func(*TrueTime)

func WithListener(listener EventListener) Option {
	return func(tt *TrueTime) { tt.listener = listener }
}

func WithResolver(resolver HostResolver) Option {
	return func(tt *TrueTime) { tt.resolver = resolver }
}

// WithRequester replaces the SNTP client, mostly for tests.
func WithRequester(requester Requester) Option {
	return func(tt *TrueTime) { tt.requester = requester }
}

// WithClock replaces the device clock pair anchors are read from.
func WithClock(clock Clock) Option {
	return func(tt *TrueTime) { tt.clock = clock }
}

// WithTimerClock replaces the clock that paces the sync loop.
func WithTimerClock(timer clock.Clock) Option {
	return func(tt *TrueTime) { tt.timer = timer }
}

// WithStore persists every new anchor and seeds the instance from the
// stored one.
func WithStore(store AnchorStore) Option {
	return func(tt *TrueTime) { tt.store = store }
}

func New(opts ...Option) *TrueTime {
	tt := &TrueTime{
		listener: NoOpEventListener{},
		resolver: NetResolver{},
		clock:    system.Clock{},
		timer:    clock.New(),
	}
	for _, opt := range opts {
		opt(tt)
	}
	if tt.requester == nil {
		tt.requester = sntp.NewClient(tt.clock)
	}
	tt.keeper = NewTimeKeeper(tt.clock)

	if tt.store != nil {
		anchor, ok, err := tt.store.Load()
		if err != nil {
			tt.listener.StoreFailed(err)
		} else if ok {
			tt.keeper.Seed(anchor)
		}
	}
	return tt
}

// Initialize runs one sync cycle on the calling goroutine and returns the
// resulting true time. Any failure is returned.
func (tt *TrueTime) Initialize(ctx context.Context, params Parameters) (time.Time, error) {
	if err := params.Validate(); err != nil {
		return time.Time{}, err
	}
	return tt.initialize(ctx, params.clone(), tt.listener)
}

func (tt *TrueTime) initialize(ctx context.Context, params Parameters, listener EventListener) (time.Time, error) {
	s := selector{resolver: tt.resolver, requester: tt.requester, listener: listener}
	result, err := s.run(ctx, params)
	if err != nil {
		return time.Time{}, err
	}

	anchor := tt.keeper.Save(result)
	if tt.store != nil {
		if err := tt.store.Save(anchor); err != nil {
			listener.StoreFailed(err)
		}
	}
	return tt.keeper.Now()
}

// Sync starts a background loop that syncs, waits SyncInterval and repeats
// until the handle is cancelled or ctx ends. Failed cycles are reported to
// the listener as SyncFailed and the loop carries on. Only invalid
// parameters are returned as an error.
func (tt *TrueTime) Sync(ctx context.Context, params Parameters) (*SyncHandle, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	handle := &SyncHandle{cancel: cancel, done: make(chan struct{})}
	go handle.run(ctx, tt, params.clone())
	return handle, nil
}

// Now returns true time, or the uncorrected device time when no sync has
// succeeded yet. The fallback is reported to the listener.
func (tt *TrueTime) Now() time.Time {
	if now, err := tt.keeper.Now(); err == nil {
		return now
	}
	tt.listener.FallbackToDeviceTime()
	return tt.clock.Now()
}

// NowTrueOnly returns true time or ErrNotInitialized.
func (tt *TrueTime) NowTrueOnly() (time.Time, error) {
	return tt.keeper.Now()
}

func (tt *TrueTime) Initialized() bool {
	return tt.keeper.HasTheTime()
}

func (tt *TrueTime) Anchor() (Anchor, bool) {
	return tt.keeper.Anchor()
}
