package truetime

import (
	"context"

	"go.uber.org/atomic"
)

type State int32

const (
	StateIdle State = iota
	StateSyncing
	StateScheduled
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSyncing:
		return "syncing"
	case StateScheduled:
		return "scheduled"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// SyncHandle controls a background sync loop started by TrueTime.Sync.
type SyncHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
	state  atomic.Int32
}

// Cancel stops the loop without waiting for it. A cycle in flight is
// abandoned at its next network operation; an anchor it already installed
// stays. No listener event follows once the loop sees the cancellation.
func (h *SyncHandle) Cancel() {
	h.cancel()
	h.state.Store(int32(StateCancelled))
}

// Done is closed when the loop has exited.
func (h *SyncHandle) Done() <-chan struct{} {
	return h.done
}

func (h *SyncHandle) State() State {
	return State(h.state.Load())
}

// enter moves the loop to state unless it has been cancelled.
func (h *SyncHandle) enter(state State) bool {
	for {
		current := h.state.Load()
		if State(current) == StateCancelled {
			return false
		}
		if h.state.CompareAndSwap(current, int32(state)) {
			return true
		}
	}
}

func (h *SyncHandle) run(ctx context.Context, tt *TrueTime, params Parameters) {
	defer close(h.done)
	defer h.state.Store(int32(StateCancelled))

	listener := gatedListener{ctx: ctx, next: tt.listener}
	for {
		if ctx.Err() != nil || !h.enter(StateSyncing) {
			return
		}
		if _, err := tt.initialize(ctx, params, listener); err != nil {
			listener.SyncFailed(err)
		}

		if ctx.Err() != nil {
			return
		}
		// The timer exists before NextSyncIn is announced, so an observer
		// that advances a mock clock on the event always fires it.
		timer := tt.timer.Timer(params.SyncInterval)
		if !h.enter(StateScheduled) {
			timer.Stop()
			return
		}
		listener.NextSyncIn(params.SyncInterval)

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
