package truetime

import (
	"context"
	"fmt"
	"testing"

	"github.com/AndrewLester/truetime/pkg/sntp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withDelays(delays ...int) []SyncResult {
	results := make([]SyncResult, len(delays))
	for i, delay := range delays {
		results[i] = SyncResult{Address: fmt.Sprint(i), RoundTripDelay: ms(delay)}
	}
	return results
}

func withOffsets(offsets ...int) []SyncResult {
	results := make([]SyncResult, len(offsets))
	for i, offset := range offsets {
		results[i] = SyncResult{Address: fmt.Sprint(i), ClockOffset: ms(offset)}
	}
	return results
}

func TestFilterLeastRoundTripDelay(t *testing.T) {
	best := filterLeastRoundTripDelay(withDelays(40, 10, 25, 10, 5))
	assert.Equal(t, ms(5), best.RoundTripDelay)
	assert.Equal(t, "4", best.Address)
}

func TestFilterLeastRoundTripDelayFirstSeenWinsTie(t *testing.T) {
	best := filterLeastRoundTripDelay(withDelays(40, 5, 25, 5, 30))
	assert.Equal(t, "1", best.Address)
}

func TestFilterMedianClockOffsetOdd(t *testing.T) {
	median := filterMedianClockOffset(withOffsets(10, 50, -5))
	assert.Equal(t, ms(10), median.ClockOffset)
}

func TestFilterMedianClockOffsetEvenTakesUpperMiddle(t *testing.T) {
	median := filterMedianClockOffset(withOffsets(40, 10, 30, 20))
	assert.Equal(t, ms(30), median.ClockOffset)
}

func TestFilterMedianClockOffsetLeavesInputOrder(t *testing.T) {
	results := withOffsets(40, 10, 30)
	filterMedianClockOffset(results)
	assert.Equal(t, withOffsets(40, 10, 30), results)
}

func newSelector(resolver HostResolver, requester Requester, listener EventListener) *selector {
	return &selector{resolver: resolver, requester: requester, listener: listener}
}

func TestSelectorPicksMinDelayThenMedianOffset(t *testing.T) {
	// Each address gets a distinct offset on its lowest-delay sample and a
	// misleading offset on the others.
	offsets := map[string]int{"10.0.0.1": 10, "10.0.0.2": 50, "10.0.0.3": -5}
	delays := []int{40, 10, 25, 10, 5}
	requester := newFakeRequester(func(address string, n int) (*sntp.Response, error) {
		offset := offsets[address]
		if delays[n] != 5 {
			offset += 1000
		}
		return response(address, ms(offset), ms(delays[n])), nil
	})

	s := newSelector(staticResolver("10.0.0.1", "10.0.0.2", "10.0.0.3"), requester, NoOpEventListener{})
	result, err := s.run(context.Background(), testParameters())
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1", result.Address)
	assert.Equal(t, ms(10), result.ClockOffset)
	assert.Equal(t, ms(5), result.RoundTripDelay)
}

func TestSelectorQueriesFirstFiveAddressesFiveTimes(t *testing.T) {
	addresses := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4", "10.0.0.5", "10.0.0.6", "10.0.0.7"}
	requester := newFakeRequester(func(address string, n int) (*sntp.Response, error) {
		return response(address, 0, ms(10)), nil
	})

	s := newSelector(staticResolver(addresses...), requester, NoOpEventListener{})
	_, err := s.run(context.Background(), testParameters())
	require.NoError(t, err)

	for _, address := range addresses[:MaxAddresses] {
		assert.Equal(t, RequestsPerAddress, requester.Calls(address), address)
	}
	assert.Zero(t, requester.Calls("10.0.0.6"))
	assert.Zero(t, requester.Calls("10.0.0.7"))
}

func TestSelectorSkipsFailingAddress(t *testing.T) {
	requester := newFakeRequester(func(address string, n int) (*sntp.Response, error) {
		switch address {
		case "10.0.0.2":
			return nil, sntp.ErrRequestTimeout
		case "10.0.0.1":
			return response(address, ms(10), ms(8)), nil
		default:
			return response(address, ms(20), ms(8)), nil
		}
	})

	listener := newRecordingListener()
	s := newSelector(staticResolver("10.0.0.1", "10.0.0.2", "10.0.0.3"), requester, listener)
	result, err := s.run(context.Background(), testParameters())
	require.NoError(t, err)

	// Two survivors: index 2/2 = 1 is the upper one.
	assert.Equal(t, "10.0.0.3", result.Address)
	// The failing address is abandoned after its first request runs out of
	// retries.
	assert.Equal(t, 3, requester.Calls("10.0.0.2"))
	assert.Contains(t, listener.Events(), "last attempt 10.0.0.2")
}

func TestSelectorNoResults(t *testing.T) {
	requester := newFakeRequester(func(address string, n int) (*sntp.Response, error) {
		return nil, fmt.Errorf("%w: %s", sntp.ErrRequestTimeout, address)
	})

	listener := newRecordingListener()
	s := newSelector(staticResolver("10.0.0.1", "10.0.0.2"), requester, listener)
	_, err := s.run(context.Background(), testParameters())

	assert.ErrorIs(t, err, ErrNoResultsAvailable)
	assert.ErrorIs(t, err, sntp.ErrRequestTimeout)
	assert.NotContains(t, listener.Events(), "succeeded 10.0.0.1")
}

func TestSelectorResolutionFailure(t *testing.T) {
	resolver := resolverFunc(func(ctx context.Context, host string) ([]string, error) {
		return nil, fmt.Errorf("%w: %s", ErrResolution, host)
	})
	requester := newFakeRequester(func(string, int) (*sntp.Response, error) {
		t.Fatal("no request expected")
		return nil, nil
	})

	s := newSelector(resolver, requester, NoOpEventListener{})
	_, err := s.run(context.Background(), testParameters())
	assert.ErrorIs(t, err, ErrResolution)
}

func TestSelectorEventOrder(t *testing.T) {
	requester := newFakeRequester(func(address string, n int) (*sntp.Response, error) {
		return response(address, 0, ms(10)), nil
	})

	listener := newRecordingListener()
	params := testParameters()
	params.RetryCountAgainstSingleIP = 1
	s := newSelector(staticResolver("10.0.0.1"), requester, listener)
	_, err := s.run(context.Background(), params)
	require.NoError(t, err)

	want := []string{"started", "resolved pool.test [10.0.0.1]"}
	for i := 0; i < RequestsPerAddress; i++ {
		want = append(want, "last attempt 10.0.0.1", "request ok 10.0.0.1")
	}
	want = append(want, "succeeded 10.0.0.1")
	assert.Equal(t, want, listener.Events())
}

func TestSelectorConcurrentMatchesSequential(t *testing.T) {
	offsets := map[string]int{"10.0.0.1": 30, "10.0.0.2": -10, "10.0.0.3": 70, "10.0.0.4": 20}
	reply := func(address string, n int) (*sntp.Response, error) {
		return response(address, ms(offsets[address]+n), ms(50-n)), nil
	}
	resolver := staticResolver("10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4")

	params := testParameters()
	sequential, err := newSelector(resolver, newFakeRequester(reply), NoOpEventListener{}).run(context.Background(), params)
	require.NoError(t, err)

	params.ConcurrentAddresses = true
	concurrent, err := newSelector(resolver, newFakeRequester(reply), NoOpEventListener{}).run(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, sequential, concurrent)
	assert.Equal(t, "10.0.0.1", concurrent.Address)
}

func TestSelectorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	requester := newFakeRequester(func(address string, n int) (*sntp.Response, error) {
		cancel()
		return response(address, 0, ms(10)), nil
	})

	s := newSelector(staticResolver("10.0.0.1", "10.0.0.2"), requester, NoOpEventListener{})
	_, err := s.run(ctx, testParameters())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, requester.Calls("10.0.0.2"))
}
