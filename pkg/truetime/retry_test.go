package truetime

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/AndrewLester/truetime/pkg/sntp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryRecoversBeforeLastAttempt(t *testing.T) {
	requester := newFakeRequester(func(address string, n int) (*sntp.Response, error) {
		if n < 2 {
			return nil, sntp.ErrRequestTimeout
		}
		return response(address, ms(7), ms(12)), nil
	})

	listener := newRecordingListener()
	s := newSelector(nil, requester, listener)
	params := testParameters()
	params.RetryCountAgainstSingleIP = 3

	result, err := s.requestWithRetry(context.Background(), "10.0.0.1", params)
	require.NoError(t, err)
	assert.Equal(t, ms(7), result.ClockOffset)
	assert.Equal(t, 3, requester.Calls("10.0.0.1"))
	assert.Equal(t, []string{
		"request failed 10.0.0.1",
		"request failed 10.0.0.1",
		"last attempt 10.0.0.1",
		"request ok 10.0.0.1",
	}, listener.Events())
}

func TestRetryPropagatesLastError(t *testing.T) {
	attemptErrs := []error{
		fmt.Errorf("%w: first", sntp.ErrTransport),
		fmt.Errorf("%w: second", sntp.ErrRequestTimeout),
		fmt.Errorf("%w: third", sntp.ErrInvalidResponse),
	}
	requester := newFakeRequester(func(address string, n int) (*sntp.Response, error) {
		return nil, attemptErrs[n]
	})

	listener := newRecordingListener()
	s := newSelector(nil, requester, listener)
	params := testParameters()
	params.RetryCountAgainstSingleIP = 3

	_, err := s.requestWithRetry(context.Background(), "10.0.0.1", params)
	assert.Same(t, attemptErrs[2], err)
	assert.Equal(t, 3, requester.Calls("10.0.0.1"))
	assert.Equal(t, []string{
		"request failed 10.0.0.1",
		"request failed 10.0.0.1",
		"last attempt 10.0.0.1",
	}, listener.Events())
}

func TestRetryCountBelowOneMakesOneAttempt(t *testing.T) {
	boom := errors.New("boom")
	requester := newFakeRequester(func(string, int) (*sntp.Response, error) {
		return nil, boom
	})

	s := newSelector(nil, requester, NoOpEventListener{})
	params := testParameters()
	params.RetryCountAgainstSingleIP = 0

	_, err := s.requestWithRetry(context.Background(), "10.0.0.1", params)
	assert.Same(t, boom, err)
	assert.Equal(t, 1, requester.Calls("10.0.0.1"))
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	requester := newFakeRequester(func(string, int) (*sntp.Response, error) {
		cancel()
		return nil, sntp.ErrRequestTimeout
	})

	listener := newRecordingListener()
	s := newSelector(nil, requester, listener)

	_, err := s.requestWithRetry(ctx, "10.0.0.1", testParameters())
	assert.Error(t, err)
	assert.Equal(t, 1, requester.Calls("10.0.0.1"))
	assert.Empty(t, listener.Events())
}
