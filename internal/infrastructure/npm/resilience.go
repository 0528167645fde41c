package npm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/ratelimit"
	"github.com/felixgeelhaar/fortify/retry"
)

// ResilienceConfig configures the patterns wrapped around registry requests.
type ResilienceConfig struct {
	// RateLimitRPM caps requests per minute. Zero disables rate limiting.
	RateLimitRPM int

	RetryAttempts    int
	RetryInitialWait time.Duration
	RetryMaxWait     time.Duration

	CircuitBreakerEnabled   bool
	CircuitBreakerThreshold int           // consecutive failures before opening
	CircuitBreakerTimeout   time.Duration // how long to stay open
}

// DefaultResilienceConfig returns the defaults used against the public registry.
func DefaultResilienceConfig() ResilienceConfig {
	return ResilienceConfig{
		RateLimitRPM:            600,
		RetryAttempts:           3,
		RetryInitialWait:        250 * time.Millisecond,
		RetryMaxWait:            5 * time.Second,
		CircuitBreakerEnabled:   true,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   30 * time.Second,
	}
}

type resilience struct {
	rateLimiter    ratelimit.RateLimiter
	retrier        retry.Retry[[]string]
	circuitBreaker circuitbreaker.CircuitBreaker[[]string]
}

func newResilience(cfg ResilienceConfig) *resilience {
	r := &resilience{}

	if cfg.RateLimitRPM > 0 {
		r.rateLimiter = ratelimit.New(&ratelimit.Config{
			Rate:     cfg.RateLimitRPM,
			Burst:    cfg.RateLimitRPM,
			Interval: time.Minute,
		})
	}

	if cfg.RetryAttempts > 0 {
		r.retrier = retry.New[[]string](retry.Config{
			MaxAttempts:   cfg.RetryAttempts,
			InitialDelay:  cfg.RetryInitialWait,
			MaxDelay:      cfg.RetryMaxWait,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    2.0,
			Jitter:        true,
			IsRetryable:   isRetryableError,
		})
	}

	if cfg.CircuitBreakerEnabled {
		threshold := cfg.CircuitBreakerThreshold
		r.circuitBreaker = circuitbreaker.New[[]string](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    cfg.CircuitBreakerTimeout,
			Timeout:     cfg.CircuitBreakerTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(threshold) // #nosec G115 -- bounded config value
			},
		})
	}
	return r
}

// execute runs operation behind the rate limiter, the circuit breaker and
// the retrier, in that order.
func (r *resilience) execute(ctx context.Context, operation func(context.Context) ([]string, error)) ([]string, error) {
	if r.rateLimiter != nil {
		if err := r.rateLimiter.Wait(ctx, "npm-registry"); err != nil {
			return nil, err
		}
	}
	if r.circuitBreaker != nil {
		return r.circuitBreaker.Execute(ctx, func(ctx context.Context) ([]string, error) {
			return r.executeWithRetry(ctx, operation)
		})
	}
	return r.executeWithRetry(ctx, operation)
}

func (r *resilience) executeWithRetry(ctx context.Context, operation func(context.Context) ([]string, error)) ([]string, error) {
	if r.retrier != nil {
		return r.retrier.Do(ctx, operation)
	}
	return operation(ctx)
}

// isRetryableError reports whether a failed request is worth repeating.
// Status errors retry only on rate limiting and server faults; transport
// errors always retry.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return IsRetryableHTTPStatus(se.StatusCode)
	}
	var de *decodeError
	return !errors.As(err, &de)
}

// IsRetryableHTTPStatus returns true for HTTP status codes worth retrying.
func IsRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusRequestTimeout,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
