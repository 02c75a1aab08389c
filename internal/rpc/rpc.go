// Package rpc serves the daemon's sync status over a unix socket.
package rpc

import (
	"context"
	"errors"
	"net"
	netrpc "net/rpc"
	"os"
	"sync"
	"time"

	"github.com/AndrewLester/truetime/pkg/truetime"
)

const serviceName = "StatusServer"

// Status is what `truetime status` shows.
type Status struct {
	HasTheTime bool
	TrueNow    time.Time
	DeviceNow  time.Time
	State      string

	Host       string
	Addresses  []string
	LastResult *truetime.SyncResult
	LastSync   time.Time
	LastError  string
	NextSync   time.Time
	Syncs      int
	Failures   int
}

// TimeSource is the part of *truetime.TrueTime the server reads.
type TimeSource interface {
	NowTrueOnly() (time.Time, error)
	Initialized() bool
}

// Tracker is an event listener that remembers the latest sync outcome.
type Tracker struct {
	truetime.NoOpEventListener

	now func() time.Time

	mu     sync.Mutex
	status Status
}

func NewTracker() *Tracker {
	return &Tracker{now: time.Now}
}

func (t *Tracker) HostResolved(host string, addresses []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Host = host
	t.status.Addresses = append([]string(nil), addresses...)
}

func (t *Tracker) SyncSucceeded(result truetime.SyncResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.LastResult = &result
	t.status.LastSync = t.now()
	t.status.LastError = ""
	t.status.Syncs++
}

func (t *Tracker) SyncFailed(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.LastError = err.Error()
	t.status.Failures++
}

func (t *Tracker) NextSyncIn(delay time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.NextSync = t.now().Add(delay)
}

func (t *Tracker) snapshot() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	status := t.status
	status.Addresses = append([]string(nil), t.status.Addresses...)
	if t.status.LastResult != nil {
		result := *t.status.LastResult
		status.LastResult = &result
	}
	return status
}

type StatusServer struct {
	Time    TimeSource
	Tracker *Tracker
	// State reports the sync loop state; nil reports idle.
	State func() truetime.State
}

func (s *StatusServer) Status(_ int, reply *Status) error {
	status := s.Tracker.snapshot()
	status.HasTheTime = s.Time.Initialized()
	status.DeviceNow = time.Now()
	if now, err := s.Time.NowTrueOnly(); err == nil {
		status.TrueNow = now
	}
	status.State = truetime.StateIdle.String()
	if s.State != nil {
		status.State = s.State().String()
	}
	*reply = status
	return nil
}

// Listen serves s on a unix socket at path until ctx is done. A stale socket
// left by a previous run is removed first.
func Listen(ctx context.Context, path string, s *StatusServer) error {
	server := netrpc.NewServer()
	if err := server.RegisterName(serviceName, s); err != nil {
		return err
	}

	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	l, err := net.Listen("unix", path)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		l.Close()
	}()
	server.Accept(l)
	return ctx.Err()
}

type Client struct {
	client *netrpc.Client
}

func Dial(path string) (*Client, error) {
	client, err := netrpc.Dial("unix", path)
	if err != nil {
		return nil, err
	}
	return &Client{client: client}, nil
}

func (c *Client) Status() (Status, error) {
	var status Status
	err := c.client.Call(serviceName+".Status", 0, &status)
	return status, err
}

func (c *Client) Close() error {
	return c.client.Close()
}
