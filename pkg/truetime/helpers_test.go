package truetime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AndrewLester/truetime/pkg/sntp"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// fakeClock is a device clock whose wall time can be stepped independently
// of its monotonic reading.
type fakeClock struct {
	mu      sync.Mutex
	wall    time.Time
	elapsed time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{wall: epoch, elapsed: time.Hour}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wall
}

func (c *fakeClock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}

// Advance moves both clocks, as real time passing does.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wall = c.wall.Add(d)
	c.elapsed += d
}

// Step changes the wall clock only, as a user adjusting the device does.
func (c *fakeClock) Step(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wall = c.wall.Add(d)
}

type resolverFunc func(ctx context.Context, host string) ([]string, error)

func (f resolverFunc) Resolve(ctx context.Context, host string) ([]string, error) {
	return f(ctx, host)
}

func staticResolver(addresses ...string) HostResolver {
	return resolverFunc(func(context.Context, string) ([]string, error) {
		return addresses, nil
	})
}

// fakeRequester answers each query with reply(address, n) where n counts the
// queries made against that address so far, starting at 0.
type fakeRequester struct {
	mu    sync.Mutex
	calls map[string]int
	reply func(address string, n int) (*sntp.Response, error)
}

func newFakeRequester(reply func(address string, n int) (*sntp.Response, error)) *fakeRequester {
	return &fakeRequester{calls: map[string]int{}, reply: reply}
}

func (r *fakeRequester) Query(ctx context.Context, address string, _ sntp.Options) (*sntp.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	n := r.calls[address]
	r.calls[address]++
	r.mu.Unlock()
	return r.reply(address, n)
}

func (r *fakeRequester) Calls(address string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[address]
}

func (r *fakeRequester) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, n := range r.calls {
		total += n
	}
	return total
}

// response builds a reply whose sample yields exactly offset and delay.
func response(address string, offset, delay time.Duration) *sntp.Response {
	t1 := epoch
	t2 := t1.Add(delay/2 + offset)
	return &sntp.Response{
		Address: address,
		Sample: sntp.Sample{
			T1:      t1,
			T2:      t2,
			T3:      t2,
			T4:      t1.Add(delay),
			Mode:    sntp.ModeServer,
			Stratum: 1,
		},
	}
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// recordingListener keeps every event as a short string and mirrors it on
// a channel for tests that wait for a particular event.
type recordingListener struct {
	mu     sync.Mutex
	events []string
	ch     chan string
}

func newRecordingListener() *recordingListener {
	return &recordingListener{ch: make(chan string, 1024)}
}

func (l *recordingListener) record(format string, args ...any) {
	event := fmt.Sprintf(format, args...)
	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()
	select {
	case l.ch <- event:
	default:
	}
}

func (l *recordingListener) Events() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// await blocks until an event equal to want arrives or the timeout passes.
func (l *recordingListener) await(want string, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		select {
		case event := <-l.ch:
			if event == want {
				return true
			}
		case <-deadline:
			return false
		}
	}
}

func (l *recordingListener) SyncStarted(Parameters) { l.record("started") }

func (l *recordingListener) HostResolved(host string, addresses []string) {
	l.record("resolved %s %v", host, addresses)
}

func (l *recordingListener) RequestSucceeded(result SyncResult) {
	l.record("request ok %s", result.Address)
}

func (l *recordingListener) RequestFailed(address string, err error) {
	l.record("request failed %s", address)
}

func (l *recordingListener) LastAttempt(address string) { l.record("last attempt %s", address) }

func (l *recordingListener) SyncSucceeded(result SyncResult) {
	l.record("succeeded %s", result.Address)
}

func (l *recordingListener) SyncFailed(err error) { l.record("failed") }

func (l *recordingListener) NextSyncIn(delay time.Duration) { l.record("next %s", delay) }

func (l *recordingListener) FallbackToDeviceTime() { l.record("fallback") }

func (l *recordingListener) StoreFailed(err error) { l.record("store failed") }

func testParameters() Parameters {
	params := DefaultParameters()
	params.HostPool = []string{"pool.test"}
	params.RetryCountAgainstSingleIP = 3
	params.SyncInterval = time.Minute
	return params
}
