package truetime

import (
	"time"

	"go.uber.org/atomic"
)

// Clock is the device clock pair an anchor is taken from. Now may be stepped
// by the user at any moment; Elapsed must be monotonic and should keep
// counting while the host sleeps.
type Clock interface {
	Now() time.Time
	Elapsed() time.Duration
}

// bootTolerance absorbs the jitter between reading the two device clocks
// when estimating the boot instant.
const bootTolerance = time.Second

// Anchor pins a corrected wall clock instant to the monotonic reading taken
// when it was established. Device is the uncorrected device clock at the
// same moment.
type Anchor struct {
	Wall      time.Time
	Monotonic time.Duration
	Device    time.Time
}

// bootedAt estimates when the host booted from the anchor's device readings.
func (a Anchor) bootedAt() time.Time {
	return a.Device.Add(-a.Monotonic)
}

// at projects the anchor to the monotonic reading elapsed.
func (a Anchor) at(elapsed time.Duration) time.Time {
	return a.Wall.Add(elapsed - a.Monotonic)
}

// TimeKeeper holds the current anchor. Anchors are immutable and swapped
// whole, so readers never see a partial update.
type TimeKeeper struct {
	clock  Clock
	anchor atomic.Pointer[Anchor]
}

func NewTimeKeeper(clock Clock) *TimeKeeper {
	return &TimeKeeper{clock: clock}
}

// Save replaces the anchor with the device clock corrected by the result's
// offset. The last Save wins.
func (k *TimeKeeper) Save(result SyncResult) Anchor {
	device := k.clock.Now()
	anchor := &Anchor{
		Wall:      device.Add(result.ClockOffset),
		Monotonic: k.clock.Elapsed(),
		Device:    device,
	}
	k.anchor.Store(anchor)
	return *anchor
}

// Seed installs a previously persisted anchor when no anchor is set yet. An
// anchor from an earlier boot is refused: its monotonic reading means
// nothing against the current one.
func (k *TimeKeeper) Seed(anchor Anchor) bool {
	if anchor.Wall.IsZero() {
		return false
	}
	device, elapsed := k.clock.Now(), k.clock.Elapsed()
	if anchor.Monotonic > elapsed {
		return false
	}
	if !anchor.Device.IsZero() {
		drift := device.Add(-elapsed).Sub(anchor.bootedAt())
		if drift > bootTolerance || drift < -bootTolerance {
			return false
		}
	}
	return k.anchor.CompareAndSwap(nil, &anchor)
}

func (k *TimeKeeper) HasTheTime() bool {
	return k.anchor.Load() != nil
}

// Now advances the anchor's wall time by the monotonic time elapsed since it
// was set, ignoring any change to the device wall clock.
func (k *TimeKeeper) Now() (time.Time, error) {
	anchor := k.anchor.Load()
	if anchor == nil {
		return time.Time{}, ErrNotInitialized
	}
	return anchor.at(k.clock.Elapsed()), nil
}

func (k *TimeKeeper) Anchor() (Anchor, bool) {
	anchor := k.anchor.Load()
	if anchor == nil {
		return Anchor{}, false
	}
	return *anchor, true
}
