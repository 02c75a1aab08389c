package sntp

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrRequestTimeout  = errors.New("server did not respond in time")
	ErrInvalidResponse = errors.New("invalid server response")
	ErrTransport       = errors.New("transport failure")
)

// Sample is one request/response exchange. T1 and T4 are captured by the
// client, T2 and T3 are read from the server's reply.
type Sample struct {
	T1 time.Time /* client transmit */
	T2 time.Time /* server receive */
	T3 time.Time /* server transmit */
	T4 time.Time /* client receive */

	Leap           LeapIndicator
	Mode           Mode
	Stratum        byte
	RootDelay      time.Duration
	RootDispersion time.Duration
	ReferenceID    uint32
	KissCode       string
}

// RoundTripDelay is (T4 - T1) - (T3 - T2): the network transit time of the
// exchange net of the time the server held the request.
func (s Sample) RoundTripDelay() time.Duration {
	return s.T4.Sub(s.T1) - s.T3.Sub(s.T2)
}

// ClockOffset is ((T2 - T1) + (T3 - T4)) / 2. It is positive when the
// server is ahead of the local clock.
func (s Sample) ClockOffset() time.Duration {
	return (s.T2.Sub(s.T1) + s.T3.Sub(s.T4)) / 2
}

// Options bound a single query. Zero thresholds disable the matching check.
type Options struct {
	Timeout                time.Duration
	RootDelayMax           time.Duration
	RootDispersionMax      time.Duration
	ServerResponseDelayMax time.Duration
	// DSCP marks outgoing requests with a differentiated services code
	// point. Zero leaves the socket untouched.
	DSCP int
}

// Validate rejects samples from servers that are not fit to be a time
// source.
func (s Sample) Validate(opts Options) error {
	if s.Leap == LeapNotInSync {
		return fmt.Errorf("%w: unsynchronized server (leap indicator alarm)", ErrInvalidResponse)
	}
	if s.Mode != ModeServer && s.Mode != ModeBroadcast {
		return fmt.Errorf("%w: untrusted mode %d", ErrInvalidResponse, s.Mode)
	}
	if s.Stratum == 0 {
		return fmt.Errorf("%w: unsynchronized server (stratum 0, kiss code %q)", ErrInvalidResponse, s.KissCode)
	}
	if s.Stratum > MaxStratum {
		return fmt.Errorf("%w: untrusted stratum %d", ErrInvalidResponse, s.Stratum)
	}
	if s.T2.IsZero() {
		return fmt.Errorf("%w: zero receive timestamp", ErrInvalidResponse)
	}
	if s.T3.IsZero() {
		return fmt.Errorf("%w: zero transmit timestamp", ErrInvalidResponse)
	}
	if opts.RootDelayMax > 0 && s.RootDelay > opts.RootDelayMax {
		return fmt.Errorf("%w: root delay %s exceeds %s", ErrInvalidResponse, s.RootDelay, opts.RootDelayMax)
	}
	if opts.RootDispersionMax > 0 && s.RootDispersion > opts.RootDispersionMax {
		return fmt.Errorf("%w: root dispersion %s exceeds %s", ErrInvalidResponse, s.RootDispersion, opts.RootDispersionMax)
	}
	// The server cannot hold a request longer than the client waited for it.
	delay := s.RoundTripDelay()
	if delay < 0 {
		return fmt.Errorf("%w: negative round-trip delay %s", ErrInvalidResponse, delay)
	}
	if opts.ServerResponseDelayMax > 0 && delay >= opts.ServerResponseDelayMax {
		return fmt.Errorf("%w: server response delay %s exceeds %s", ErrInvalidResponse, delay, opts.ServerResponseDelayMax)
	}
	return nil
}

// Response is a validated sample tagged with the address that produced it.
type Response struct {
	Address string
	Sample
}
