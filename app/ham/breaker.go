package ham

import (
	"context"
	"errors"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// BreakerClient guards record fetches with a circuit breaker so a failing
// catalog is not hammered by every retrieval.
type BreakerClient struct {
	*Client
	cb *gobreaker.CircuitBreaker[*Record]
}

type BreakerConfig struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

func NewBreakerClient(client *Client, config BreakerConfig) *BreakerClient {
	threshold := config.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}

	cb := gobreaker.NewCircuitBreaker[*Record](gobreaker.Settings{
		Name:        "ham-api",
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		// Precondition and cancellation failures say nothing about catalog health.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrMissingAPIKey) ||
				errors.Is(err, context.Canceled)
		},
	})

	return &BreakerClient{Client: client, cb: cb}
}

func (b *BreakerClient) FetchOneRandomRecord(ctx context.Context) (*Record, error) {
	return b.cb.Execute(func() (*Record, error) {
		return b.Client.FetchOneRandomRecord(ctx)
	})
}

func (b *BreakerClient) State() gobreaker.State {
	return b.cb.State()
}
