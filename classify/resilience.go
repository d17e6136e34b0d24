// ABOUTME: Circuit breaker and rate limiting wrappers for any Gateway
// ABOUTME: An open circuit fails fast as an unavailable classification
package classify

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// BreakerConfig holds the circuit breaker configuration.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures required to trip the circuit.
	MaxFailures uint32

	// Timeout is how long the circuit stays open before a trial request.
	Timeout time.Duration

	// HalfOpenRequests is the number of trial requests allowed while half-open.
	HalfOpenRequests uint32
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.MaxFailures == 0 {
		c.MaxFailures = 3
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.HalfOpenRequests == 0 {
		c.HalfOpenRequests = 1
	}
	return c
}

type breakerGateway struct {
	next    Gateway
	breaker *gobreaker.CircuitBreaker
}

// WithCircuitBreaker stops calling next after repeated transport failures.
// Schema failures mean the classifier answered, so they do not count.
func WithCircuitBreaker(next Gateway, config BreakerConfig) Gateway {
	config = config.withDefaults()
	settings := gobreaker.Settings{
		Name:        "classifier",
		MaxRequests: config.HalfOpenRequests,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var f *Failure
			return errors.As(err, &f) && f.Reason == ReasonSchema
		},
	}
	return &breakerGateway{next: next, breaker: gobreaker.NewCircuitBreaker(settings)}
}

func (b *breakerGateway) Classify(ctx context.Context, req Request) ([]byte, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.next.Classify(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &Failure{Reason: ReasonUnavailable, Err: err}
	}
	if err != nil {
		return nil, err
	}
	payload, _ := result.([]byte)
	return payload, nil
}

type limitedGateway struct {
	next    Gateway
	limiter *rate.Limiter
}

// WithRateLimit spaces calls to next at rps with the given burst.
// A non-positive rps returns next unchanged.
func WithRateLimit(next Gateway, rps float64, burst int) Gateway {
	if rps <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &limitedGateway{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (l *limitedGateway) Classify(ctx context.Context, req Request) ([]byte, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, AsFailure(err)
	}
	return l.next.Classify(ctx, req)
}
