package truetime

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// immediately retries without waiting. Retries against one address exist to
// ride out packet loss, which a pause does not help with.
var immediately = retry.BackoffFunc(func() (time.Duration, bool) {
	return 0, false
})

// requestWithRetry makes up to params.RetryCountAgainstSingleIP attempts
// against address. Failures before the last are reported and swallowed; the
// last attempt's error is returned as is.
func (s *selector) requestWithRetry(ctx context.Context, address string, params Parameters) (SyncResult, error) {
	attempts := params.RetryCountAgainstSingleIP
	if attempts < 1 {
		attempts = 1
	}

	var result SyncResult
	attempt := 0
	backoff := retry.WithMaxRetries(uint64(attempts-1), immediately)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		last := attempt >= attempts
		if last {
			s.listener.LastAttempt(address)
		}

		response, err := s.requester.Query(ctx, address, params.sntpOptions())
		if err != nil {
			if last || ctx.Err() != nil {
				return err
			}
			s.listener.RequestFailed(address, err)
			return retry.RetryableError(err)
		}

		result = resultFromResponse(response)
		s.listener.RequestSucceeded(result)
		return nil
	})
	if err != nil {
		return SyncResult{}, err
	}
	return result, nil
}
