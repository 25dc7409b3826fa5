package youtube

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
)

// RetryConfig controls the exponential backoff applied to transient API failures.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultRetryConfig is used for zero fields of a RetryConfig.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:      3,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     10 * time.Second,
	Multiplier:      2,
}

func (r RetryConfig) withDefaults() RetryConfig {
	if r.MaxRetries < 0 {
		r.MaxRetries = 0
	} else if r.MaxRetries == 0 {
		r.MaxRetries = DefaultRetryConfig.MaxRetries
	}
	if r.InitialInterval <= 0 {
		r.InitialInterval = DefaultRetryConfig.InitialInterval
	}
	if r.MaxInterval <= 0 {
		r.MaxInterval = DefaultRetryConfig.MaxInterval
	}
	if r.Multiplier < 1 {
		r.Multiplier = DefaultRetryConfig.Multiplier
	}
	return r
}

func (r RetryConfig) backOff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.InitialInterval
	b.MaxInterval = r.MaxInterval
	b.Multiplier = r.Multiplier
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.MaxRetries)), ctx)
}

// withRetry runs op until it succeeds, fails permanently, runs out of retries or
// ctx is done.
func (c *Client) withRetry(ctx context.Context, endpoint string, op func() error) error {
	attempt := 0
	operation := func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		c.metrics.ObserveRetry(endpoint)
		c.logger.Warn("Retrying YouTube API call",
			zap.String("endpoint", endpoint),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	err := backoff.RetryNotify(operation, c.retry.backOff(ctx), notify)
	if err != nil && ctx.Err() != nil && !errors.Is(err, ctx.Err()) {
		return errors.Join(ctx.Err(), err)
	}
	return err
}

// IsRetryable reports whether err is a transient failure worth retrying: rate
// limiting, server errors, attempt timeouts, connection resets and truncated
// responses. Other transport failures, such as a malformed endpoint URL, are
// permanent.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	var decErr *decodeError
	if errors.As(err, &decErr) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	// *url.Error is a net.Error for every transport failure; only its timeouts
	// are transient.
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
