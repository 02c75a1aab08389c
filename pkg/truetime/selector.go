package truetime

import (
	"context"
	"fmt"
	"sort"

	"github.com/AndrewLester/truetime/pkg/sntp"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Requester performs one SNTP exchange. *sntp.Client implements it.
type Requester interface {
	Query(ctx context.Context, address string, opts sntp.Options) (*sntp.Response, error)
}

var _ Requester = (*sntp.Client)(nil)

type selector struct {
	resolver  HostResolver
	requester Requester
	listener  EventListener
}

// run resolves the first pool host, measures each of its first MaxAddresses
// addresses and returns the median-offset result among them.
func (s *selector) run(ctx context.Context, params Parameters) (SyncResult, error) {
	s.listener.SyncStarted(params)

	host := params.HostPool[0]
	addresses, err := s.resolver.Resolve(ctx, host)
	if err != nil {
		return SyncResult{}, err
	}
	s.listener.HostResolved(host, addresses)

	if len(addresses) > MaxAddresses {
		addresses = addresses[:MaxAddresses]
	}

	results := make([]SyncResult, len(addresses))
	errs := make([]error, len(addresses))
	measure := func(i int) {
		results[i], errs[i] = s.measureAddress(ctx, addresses[i], params)
	}

	if params.ConcurrentAddresses {
		var group errgroup.Group
		for i := range addresses {
			i := i
			group.Go(func() error {
				measure(i)
				return nil
			})
		}
		group.Wait()
	} else {
		for i := range addresses {
			if ctx.Err() != nil {
				break
			}
			measure(i)
		}
	}
	if err := ctx.Err(); err != nil {
		return SyncResult{}, err
	}

	perAddress := make([]SyncResult, 0, len(addresses))
	for i := range addresses {
		if errs[i] == nil {
			perAddress = append(perAddress, results[i])
		}
	}
	if len(perAddress) == 0 {
		return SyncResult{}, fmt.Errorf("%w from %s: %w", ErrNoResultsAvailable, host, multierr.Combine(errs...))
	}

	result := filterMedianClockOffset(perAddress)
	s.listener.SyncSucceeded(result)
	return result, nil
}

// measureAddress takes RequestsPerAddress samples from address and keeps
// the one with the least round-trip delay. An address whose request runs
// out of retries is abandoned.
func (s *selector) measureAddress(ctx context.Context, address string, params Parameters) (SyncResult, error) {
	samples := make([]SyncResult, 0, RequestsPerAddress)
	for i := 0; i < RequestsPerAddress; i++ {
		result, err := s.requestWithRetry(ctx, address, params)
		if err != nil {
			return SyncResult{}, fmt.Errorf("%s: %w", address, err)
		}
		samples = append(samples, result)
	}
	return filterLeastRoundTripDelay(samples), nil
}

// filterLeastRoundTripDelay returns the result with the smallest delay; the
// earliest wins a tie. results must not be empty.
func filterLeastRoundTripDelay(results []SyncResult) SyncResult {
	best := results[0]
	for _, result := range results[1:] {
		if result.RoundTripDelay < best.RoundTripDelay {
			best = result
		}
	}
	return best
}

// filterMedianClockOffset sorts by clock offset and returns the element at
// len/2. For an even count that is the upper of the two middle elements,
// not their average. results must not be empty.
func filterMedianClockOffset(results []SyncResult) SyncResult {
	sorted := append([]SyncResult(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ClockOffset < sorted[j].ClockOffset
	})
	return sorted[len(sorted)/2]
}
