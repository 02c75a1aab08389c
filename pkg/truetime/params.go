package truetime

import (
	"fmt"
	"time"

	"github.com/AndrewLester/truetime/pkg/sntp"
	"github.com/go-playground/validator/v10"
)

const RequestsPerAddress = 5 // samples taken against each address
const MaxAddresses = 5       // addresses queried per sync

// Parameters configure one sync. A sync works on its own copy, so changing
// a Parameters value never affects a sync already running.
type Parameters struct {
	// HostPool lists NTP hosts; the first entry is resolved and queried.
	HostPool                  []string      `validate:"required,min=1,dive,hostname_rfc1123|ip"`
	ConnectionTimeout         time.Duration `validate:"gt=0"`
	RetryCountAgainstSingleIP int           `validate:"gte=1"`
	SyncInterval              time.Duration `validate:"gt=0"`
	RootDelayMax              time.Duration `validate:"gte=0"`
	RootDispersionMax         time.Duration `validate:"gte=0"`
	// ServerResponseDelayMax rejects exchanges whose round-trip delay
	// reaches it. Zero disables the check.
	ServerResponseDelayMax time.Duration `validate:"gte=0"`
	// ConcurrentAddresses queries the resolved addresses in parallel.
	// Selection is unaffected; listener calls may then interleave.
	ConcurrentAddresses bool
	DSCP                int `validate:"gte=0,lte=63"`
}

func DefaultParameters() Parameters {
	return Parameters{
		HostPool:                  []string{"time.google.com"},
		ConnectionTimeout:         30 * time.Second,
		RetryCountAgainstSingleIP: 50,
		SyncInterval:              time.Hour,
		RootDelayMax:              100 * time.Millisecond,
		RootDispersionMax:         100 * time.Millisecond,
		ServerResponseDelayMax:    750 * time.Millisecond,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (p Parameters) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParameters, err)
	}
	return nil
}

func (p Parameters) sntpOptions() sntp.Options {
	return sntp.Options{
		Timeout:                p.ConnectionTimeout,
		RootDelayMax:           p.RootDelayMax,
		RootDispersionMax:      p.RootDispersionMax,
		ServerResponseDelayMax: p.ServerResponseDelayMax,
		DSCP:                   p.DSCP,
	}
}

// clone copies the host pool so the caller may reuse its slice.
func (p Parameters) clone() Parameters {
	p.HostPool = append([]string(nil), p.HostPool...)
	return p
}
