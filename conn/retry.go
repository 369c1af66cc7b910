package conn

import (
	"time"

	"github.com/chamira/SQLiteManager/engine"
)

// RetryPolicy bounds how often a call that reported SQLITE_BUSY or
// SQLITE_LOCKED is attempted before the engine error reaches the caller.
type RetryPolicy struct {
	// MaxAttempts counts the first call. Values below 1 mean a single attempt.
	MaxAttempts int
	// Backoff is the sleep between attempts.
	Backoff time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 10, Backoff: 50 * time.Millisecond}
}

// Do calls fn until it succeeds, fails with a non-busy error or the attempts
// are exhausted. It returns the number of attempts made and the last error.
func (p RetryPolicy) Do(fn func() error) (int, error) {
	max := p.MaxAttempts
	if max < 1 {
		max = 1
	}
	var err error
	for attempt := 1; ; attempt++ {
		err = fn()
		if err == nil || !engine.IsBusy(err) || attempt >= max {
			return attempt, err
		}
		if p.Backoff > 0 {
			time.Sleep(p.Backoff)
		}
	}
}
