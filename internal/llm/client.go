package llm

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/portfolio-bff/backend/pkg/circuitbreaker"
	"github.com/portfolio-bff/backend/pkg/logger"
	"github.com/portfolio-bff/backend/pkg/retry"
)

// Provider is one upstream generation API.
type Provider interface {
	Name() string
	APIKey() string
	Generate(ctx context.Context, prompt string) (string, error)
}

type Config struct {
	// Retries bounds the total number of attempts, including the first.
	Retries int
	Backoff retry.BackoffFunc
	Timeout time.Duration
	Breaker *circuitbreaker.CircuitBreaker
	Sleep   retry.SleepFunc
	Logger  *zap.Logger
	// OnAttempt is called after every provider call.
	OnAttempt func(provider string, elapsed time.Duration, err error)
}

// Client retries rate-limited calls with capped exponential backoff and
// propagates every other failure at once.
type Client struct {
	provider  Provider
	retries   int
	backoff   retry.BackoffFunc
	timeout   time.Duration
	cb        *circuitbreaker.CircuitBreaker
	sleep     retry.SleepFunc
	logger    *zap.Logger
	onAttempt func(provider string, elapsed time.Duration, err error)
}

func NewClient(p Provider, cfg Config) *Client {
	if cfg.Retries <= 0 {
		cfg.Retries = 3
	}
	if cfg.Backoff == nil {
		cfg.Backoff = retry.ExponentialCapped(time.Second, 16*time.Second)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	if cfg.Breaker == nil {
		cfg.Breaker = circuitbreaker.NewCircuitBreaker("llm", circuitbreaker.Config{
			MaxRequests:      5,
			Interval:         time.Minute,
			Timeout:          30 * time.Second,
			FailureThreshold: 5,
			SuccessThreshold: 2,
			IsFailure:        countsAgainstBreaker,
			Logger:           cfg.Logger,
		})
	}

	cfg.Logger.Info("LLM client initialized",
		zap.String("provider", p.Name()),
		zap.Int("retries", cfg.Retries),
	)

	return &Client{
		provider:  p,
		retries:   cfg.Retries,
		backoff:   cfg.Backoff,
		timeout:   cfg.Timeout,
		cb:        cfg.Breaker,
		sleep:     cfg.Sleep,
		logger:    cfg.Logger,
		onAttempt: cfg.OnAttempt,
	}
}

// countsAgainstBreaker ignores caller-side 4xx replies, including an
// exhausted rate limit, and malformed bodies.
func countsAgainstBreaker(err error) bool {
	if code, ok := statusOf(err); ok {
		return code >= 500
	}
	return !errors.Is(err, ErrMalformedResponse)
}

func (c *Client) Provider() string {
	return c.provider.Name()
}

// Send returns the provider's text for prompt.
func (c *Client) Send(ctx context.Context, prompt string) (string, error) {
	key := c.provider.APIKey()
	if key == "" {
		return "", ErrMissingAPIKey
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var text string
	err := c.cb.Execute(ctx, func() error {
		var err error
		text, err = retry.DoWithResult(ctx, retry.Config{
			Name:        "llm." + c.provider.Name(),
			MaxAttempts: c.retries,
			Backoff:     c.backoff,
			Retryable:   IsRateLimited,
			Sleep:       c.sleep,
			Logger:      c.logger,
		}, func() (string, error) {
			start := time.Now()
			out, err := c.provider.Generate(ctx, prompt)
			if c.onAttempt != nil {
				c.onAttempt(c.provider.Name(), time.Since(start), err)
			}
			return out, err
		})
		return err
	})
	if err != nil {
		err = redact(err, key)
		c.logger.Error("LLM request failed",
			zap.String("provider", c.provider.Name()),
			zap.Error(err),
		)
		return "", err
	}

	c.logger.Debug("LLM response received",
		zap.String("provider", c.provider.Name()),
		zap.Int("response_length", len(text)),
	)
	return text, nil
}
