package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/portfolio-bff/backend/internal/storage/executor"
)

func TestExecutorObserver(t *testing.T) {
	var obs ExecutorObserver

	before := testutil.ToFloat64(DBTransitions.WithLabelValues("connecting", "connected"))
	obs.StateChanged(executor.StateConnecting, executor.StateConnected)

	assert.Equal(t, float64(executor.StateConnected), testutil.ToFloat64(DBState))
	assert.Equal(t, before+1, testutil.ToFloat64(DBTransitions.WithLabelValues("connecting", "connected")))
}

func TestQueryResult(t *testing.T) {
	assert.Equal(t, "ok", queryResult(nil))
	assert.Equal(t, "timeout", queryResult(executor.ErrQueryTimeout))
	assert.Equal(t, "connection_lost", queryResult(fmt.Errorf("%w: eof", executor.ErrConnectionLost)))
	assert.Equal(t, "failed", queryResult(&executor.QueryError{Cause: errors.New("syntax")}))
	assert.Equal(t, "cancelled", queryResult(context.Canceled))
}

func TestObserveLLMAttempt(t *testing.T) {
	before := testutil.ToFloat64(LLMAttempts.WithLabelValues("gemini", "error"))
	ObserveLLMAttempt("gemini", 10*time.Millisecond, errors.New("429"))
	assert.Equal(t, before+1, testutil.ToFloat64(LLMAttempts.WithLabelValues("gemini", "error")))
}

func TestInitIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Init()
		Init()
	})
}
