package jupiter

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"dustsweep-go/internal/failure"
	"dustsweep-go/internal/metrics"
)

const (
	DefaultQuoteAttempts   = 3
	DefaultQuoteRetryDelay = 500 * time.Millisecond
	DefaultSlippageBps     = 50
)

// Quoter performs one quote round-trip.
type Quoter interface {
	GetQuote(ctx context.Context, r QuoteRequest) (*Quote, error)
}

// QuoteService retries transient quote failures with linearly increasing delay.
type QuoteService struct {
	quoter   Quoter
	attempts int
	delay    time.Duration
	log      zerolog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewQuoteService wraps quoter. attempts <= 0 and delay < 0 fall back to defaults.
func NewQuoteService(quoter Quoter, attempts int, delay time.Duration, log zerolog.Logger) *QuoteService {
	if attempts <= 0 {
		attempts = DefaultQuoteAttempts
	}
	if delay < 0 {
		delay = DefaultQuoteRetryDelay
	}
	return &QuoteService{quoter: quoter, attempts: attempts, delay: delay, log: log, sleep: sleepCtx}
}

// Quote returns the first accepted quote. NoRoute is returned immediately; any other failure is
// retried until the attempt budget is spent and then surfaced as QuoteNetwork.
func (s *QuoteService) Quote(ctx context.Context, r QuoteRequest) (*Quote, error) {
	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		if attempt > 1 {
			if err := s.sleep(ctx, s.delay*time.Duration(attempt-1)); err != nil {
				return nil, failure.Wrap(failure.QuoteNetwork, err)
			}
		}
		q, err := s.quoter.GetQuote(ctx, r)
		if err == nil {
			metrics.QuoteAttemptsTotal.WithLabelValues("ok").Inc()
			return q, nil
		}
		if failure.Is(err, failure.NoRoute) {
			metrics.QuoteAttemptsTotal.WithLabelValues("no_route").Inc()
			return nil, err
		}
		metrics.QuoteAttemptsTotal.WithLabelValues("error").Inc()
		lastErr = err
		s.log.Warn().Err(err).Str("asset", r.InputMint).Int("attempt", attempt).Int("budget", s.attempts).Msg("quote attempt failed")
		if ctx.Err() != nil {
			break
		}
	}
	return nil, failure.Wrap(failure.QuoteNetwork, fmt.Errorf("failed to fetch quote after %d attempts: %w", s.attempts, lastErr))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
