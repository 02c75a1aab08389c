package sntp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

const DefaultTimeout = 30 * time.Second

// Clock supplies the client-side timestamps. Now is the device wall clock;
// Elapsed is a monotonic reading that is immune to wall clock steps.
type Clock interface {
	Now() time.Time
	Elapsed() time.Duration
}

// Client performs single SNTP exchanges. It holds no per-request state and
// may be shared between goroutines.
type Client struct {
	clock  Clock
	dialer net.Dialer
}

func NewClient(clock Clock) *Client {
	return &Client{clock: clock}
}

// Query sends one request to address and waits for the reply until the
// timeout or ctx expires. address may omit the port, in which case 123 is
// used. There are no retries.
func (c *Client) Query(ctx context.Context, address string, opts Options) (*Response, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	conn, err := c.dialer.DialContext(ctx, "udp", hostPort(address))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: dial %s: %w", ErrTransport, address, err)
	}
	defer conn.Close()

	if opts.DSCP != 0 {
		if err := setDSCP(conn, opts.DSCP); err != nil {
			return nil, fmt.Errorf("%w: set dscp on %s: %w", ErrTransport, address, err)
		}
	}

	deadline := time.Now().Add(opts.Timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	// Unblock the read as soon as ctx is cancelled.
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	request := NewRequest(TimestampFromTime(c.clock.Now()))
	sent := c.clock.Elapsed()
	if _, err := conn.Write(request.Encode()); err != nil {
		return nil, c.ioError(ctx, address, opts, err)
	}

	buffer := make([]byte, mtu)
	n, err := conn.Read(buffer)
	elapsed := c.clock.Elapsed() - sent
	if err != nil {
		return nil, c.ioError(ctx, address, opts, err)
	}

	reply, err := Decode(buffer[:n])
	if err != nil {
		return nil, err
	}
	if reply.OriginTime != request.TransmitTime {
		return nil, fmt.Errorf("%w: origin timestamp does not match request", ErrInvalidResponse)
	}

	t1 := request.TransmitTime.Time()
	sample := Sample{
		T1:             t1,
		T2:             timeOrZero(reply.ReceiveTime),
		T3:             timeOrZero(reply.TransmitTime),
		T4:             t1.Add(elapsed),
		Leap:           reply.Leap,
		Mode:           reply.Mode,
		Stratum:        reply.Stratum,
		RootDelay:      reply.RootDelay.Duration(),
		RootDispersion: reply.RootDispersion.Duration(),
		ReferenceID:    reply.ReferenceID,
	}
	if reply.Stratum == 0 {
		sample.KissCode = reply.KissCode()
	}
	if err := sample.Validate(opts); err != nil {
		return nil, err
	}
	return &Response{Address: address, Sample: sample}, nil
}

func (c *Client) ioError(ctx context.Context, address string, opts Options, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s after %s", ErrRequestTimeout, address, opts.Timeout)
	}
	return fmt.Errorf("%w: %s: %w", ErrTransport, address, err)
}

func setDSCP(conn net.Conn, dscp int) error {
	tos := dscp << 2
	if addr, ok := conn.RemoteAddr().(*net.UDPAddr); ok && addr.IP.To4() == nil {
		return ipv6.NewConn(conn).SetTrafficClass(tos)
	}
	return ipv4.NewConn(conn).SetTOS(tos)
}

func hostPort(address string) string {
	if _, _, err := net.SplitHostPort(address); err == nil {
		return address
	}
	return net.JoinHostPort(address, Port)
}

func timeOrZero(ts Timestamp) time.Time {
	if ts.IsZero() {
		return time.Time{}
	}
	return ts.Time()
}
