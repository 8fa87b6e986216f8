package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

var errUpstream = errors.New("upstream down")

func fail() error { return errUpstream }
func succeed() error { return nil }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	var transitions []string

	cb := NewCircuitBreaker("test", Config{
		MaxRequests:      5,
		FailureThreshold: 3,
		Timeout:          10 * time.Second,
		Now:              clock.Now,
		OnStateChange: func(_ string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, fail), errUpstream)
	}
	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, succeed), ErrCircuitOpen)

	clock.Advance(11 * time.Second)
	assert.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(ctx, succeed))
	assert.Equal(t, StateHalfOpen, cb.State())
	require.NoError(t, cb.Execute(ctx, succeed))
	assert.Equal(t, StateClosed, cb.State())

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	cb := NewCircuitBreaker("test", Config{
		FailureThreshold: 1,
		Timeout:          time.Second,
		Now:              clock.Now,
	})
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	require.Equal(t, StateOpen, cb.State())

	clock.Advance(2 * time.Second)
	_ = cb.Execute(ctx, fail)
	assert.Equal(t, StateOpen, cb.State())
}

func TestBreaker_IsFailureFiltersCallerErrors(t *testing.T) {
	errBadInput := errors.New("bad input")
	cb := NewCircuitBreaker("test", Config{
		FailureThreshold: 1,
		IsFailure:        func(err error) bool { return !errors.Is(err, errBadInput) },
	})

	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, cb.Execute(context.Background(), func() error { return errBadInput }), errBadInput)
	}
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, uint32(5), cb.Counts().TotalSuccesses)
}

func TestBreaker_CancelledContextIsNotAFailure(t *testing.T) {
	cb := NewCircuitBreaker("test", Config{FailureThreshold: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_ = cb.Execute(ctx, func() error { return ctx.Err() })
	assert.Equal(t, StateClosed, cb.State())
}
