package truetime

import (
	"fmt"
	"time"

	"github.com/AndrewLester/truetime/pkg/sntp"
)

// SyncResult is the offset and delay measured by one exchange with Address.
type SyncResult struct {
	Address        string
	ClockOffset    time.Duration
	RoundTripDelay time.Duration
}

func resultFromResponse(response *sntp.Response) SyncResult {
	return SyncResult{
		Address:        response.Address,
		ClockOffset:    response.ClockOffset(),
		RoundTripDelay: response.RoundTripDelay(),
	}
}

func (r SyncResult) OffsetMillis() int64 {
	return r.ClockOffset.Milliseconds()
}

func (r SyncResult) DelayMillis() int64 {
	return r.RoundTripDelay.Milliseconds()
}

func (r SyncResult) String() string {
	return fmt.Sprintf("%s offset %s delay %s", r.Address, r.ClockOffset, r.RoundTripDelay)
}
