package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/portfolio-bff/backend/pkg/logger"
	"github.com/portfolio-bff/backend/pkg/retry"
)

const (
	defaultReconnectDelay = 5 * time.Second
	defaultConnectTimeout = 10 * time.Second
	defaultQueryTimeout   = 10 * time.Second
	defaultMaxAttempts    = 3
	defaultRetryStep      = 2 * time.Second
	defaultHealthTimeout  = 5 * time.Second
)

// Request is a single query submission.
type Request struct {
	Statement   string
	Args        []any
	Timeout     time.Duration
	MaxAttempts int
}

func (r Request) validate() error {
	if strings.TrimSpace(r.Statement) == "" {
		return fmt.Errorf("%w: empty statement", ErrInvalidRequest)
	}
	if r.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidRequest)
	}
	if r.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts must be at least 1", ErrInvalidRequest)
	}
	return nil
}

type Config struct {
	Dialer          Dialer
	ReconnectDelay  time.Duration
	ConnectTimeout  time.Duration
	DefaultTimeout  time.Duration
	DefaultAttempts int
	RetryStep       time.Duration
	HealthTimeout   time.Duration
	Observer        Observer
	Logger          *zap.Logger
	// Sleep overrides the wait between retry attempts.
	Sleep retry.SleepFunc
}

// Health is the result of a health probe.
type Health struct {
	Healthy bool   `json:"healthy"`
	Reason  string `json:"reason,omitempty"`
	State   string `json:"state"`
}

// Executor owns a lazily established connection and runs timeout-bounded,
// retried queries on it. After a connection failure it goes back to
// disconnected and reconnects after ReconnectDelay.
//
// The timeout race cancels the query's context, but a driver that ignores
// cancellation keeps its goroutine until the driver call returns; the result
// is then discarded.
type Executor struct {
	dialer          Dialer
	reconnectDelay  time.Duration
	connectTimeout  time.Duration
	defaultTimeout  time.Duration
	defaultAttempts int
	retryStep       time.Duration
	healthTimeout   time.Duration
	observer        Observer
	logger          *zap.Logger
	sleep           retry.SleepFunc

	baseCtx context.Context
	cancel  context.CancelFunc

	mu             sync.Mutex
	state          State
	conn           Conn
	reconnectTimer *time.Timer
	closed         bool
}

func New(cfg Config) *Executor {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = defaultQueryTimeout
	}
	if cfg.DefaultAttempts <= 0 {
		cfg.DefaultAttempts = defaultMaxAttempts
	}
	if cfg.RetryStep <= 0 {
		cfg.RetryStep = defaultRetryStep
	}
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = defaultHealthTimeout
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Executor{
		dialer:          cfg.Dialer,
		reconnectDelay:  cfg.ReconnectDelay,
		connectTimeout:  cfg.ConnectTimeout,
		defaultTimeout:  cfg.DefaultTimeout,
		defaultAttempts: cfg.DefaultAttempts,
		retryStep:       cfg.RetryStep,
		healthTimeout:   cfg.HealthTimeout,
		observer:        cfg.Observer,
		logger:          cfg.Logger.With(zap.String("component", "db-executor")),
		sleep:           cfg.Sleep,
		baseCtx:         ctx,
		cancel:          cancel,
		state:           StateDisconnected,
	}
}

func (e *Executor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Connect starts a connection attempt in the background. It is a no-op when
// an attempt is already in flight or the executor is connected.
func (e *Executor) Connect() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}

	switch e.state {
	case StateConnecting:
		e.logger.Debug("Connection attempt already in progress, skipping")
		return
	case StateConnected:
		return
	}

	e.setStateLocked(StateConnecting)
	go e.establish()
}

func (e *Executor) establish() {
	ctx, cancel := context.WithTimeout(e.baseCtx, e.connectTimeout)
	conn, err := e.dialer(ctx)
	cancel()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		if conn != nil {
			conn.Close()
		}
		return
	}

	if err != nil {
		e.logger.Error("Database connection failed", zap.Error(err))
		e.setStateLocked(StateDisconnected)
		e.scheduleReconnectLocked()
		return
	}

	e.conn = conn
	e.setStateLocked(StateConnected)
	e.logger.Info("Connected to the database")
}

func (e *Executor) setStateLocked(to State) {
	from := e.state
	if from == to {
		return
	}
	e.state = to
	e.logger.Debug("Executor state changed",
		zap.String("from", from.String()),
		zap.String("to", to.String()),
	)
	e.observer.StateChanged(from, to)
}

func (e *Executor) scheduleReconnectLocked() {
	if e.closed || e.reconnectTimer != nil {
		return
	}

	e.logger.Info("Scheduling database reconnection", zap.Duration("delay", e.reconnectDelay))

	e.reconnectTimer = time.AfterFunc(e.reconnectDelay, func() {
		e.mu.Lock()
		e.reconnectTimer = nil
		e.mu.Unlock()

		e.Connect()
	})
}

// dropConnection discards conn after a connection-loss error, unless it was
// already replaced, and schedules a reconnection.
func (e *Executor) dropConnection(conn Conn, cause error) {
	e.mu.Lock()
	if e.conn != conn {
		e.mu.Unlock()
		return
	}
	e.conn = nil
	e.logger.Warn("Database connection lost", zap.Error(cause))
	e.setStateLocked(StateDisconnected)
	e.scheduleReconnectLocked()
	e.mu.Unlock()

	// sql.DB.Close waits for in-flight queries
	go conn.Close()
}

func (e *Executor) currentConn() (Conn, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}
	return e.conn, nil
}

// QueryOnce runs a single attempt of req. Without a connection it starts
// connecting and fails with ErrNotConnected at once.
func (e *Executor) QueryOnce(ctx context.Context, req Request) ([]Row, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	conn, err := e.currentConn()
	if err != nil {
		return nil, err
	}
	if conn == nil {
		e.Connect()
		return nil, ErrNotConnected
	}

	type result struct {
		rows []Row
		err  error
	}

	queryCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// buffered so the losing side of the race never blocks
	done := make(chan result, 1)
	start := time.Now()

	go func() {
		rows, err := conn.Query(queryCtx, req.Statement, req.Args...)
		done <- result{rows: rows, err: err}
	}()

	timer := time.NewTimer(req.Timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		err := e.classify(ctx, conn, res.err)
		e.observer.QueryCompleted(time.Since(start), err)
		if err != nil {
			return nil, err
		}
		return res.rows, nil

	case <-timer.C:
		e.logger.Warn("Query timed out",
			zap.String("statement", summarize(req.Statement)),
			zap.Duration("timeout", req.Timeout),
		)
		e.observer.QueryCompleted(time.Since(start), ErrQueryTimeout)
		return nil, ErrQueryTimeout

	case <-ctx.Done():
		e.observer.QueryCompleted(time.Since(start), ctx.Err())
		return nil, ctx.Err()
	}
}

func (e *Executor) classify(ctx context.Context, conn Conn, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if IsConnectionLoss(err) {
		e.dropConnection(conn, err)
		return fmt.Errorf("%w: %w", ErrConnectionLost, err)
	}
	e.logger.Debug("Query failed", zap.Error(err))
	return &QueryError{Cause: err}
}

// Query runs statement with the default timeout and attempt budget.
func (e *Executor) Query(ctx context.Context, statement string, args ...any) ([]Row, error) {
	return e.QueryWith(ctx, Request{Statement: statement, Args: args})
}

// QueryWith retries req up to MaxAttempts times, waiting attempt × RetryStep
// between attempts. Every error class is retried except shutdown and
// caller cancellation.
func (e *Executor) QueryWith(ctx context.Context, req Request) ([]Row, error) {
	if req.Timeout == 0 {
		req.Timeout = e.defaultTimeout
	}
	if req.MaxAttempts == 0 {
		req.MaxAttempts = e.defaultAttempts
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	cfg := retry.Config{
		Name:        "db.query",
		MaxAttempts: req.MaxAttempts,
		Backoff:     retry.Linear(e.retryStep),
		Sleep:       e.sleep,
		Logger:      e.logger,
		Retryable: func(err error) bool {
			return !errors.Is(err, ErrClosed) && ctx.Err() == nil
		},
	}

	return retry.DoWithResult(ctx, cfg, func() ([]Row, error) {
		return e.QueryOnce(ctx, req)
	})
}

// Health runs a trivial query with a short timeout and no retries.
func (e *Executor) Health(ctx context.Context) Health {
	_, err := e.QueryOnce(ctx, Request{
		Statement:   "SELECT 1",
		Timeout:     e.healthTimeout,
		MaxAttempts: 1,
	})
	if err != nil {
		return Health{Healthy: false, Reason: err.Error(), State: e.State().String()}
	}
	return Health{Healthy: true, State: e.State().String()}
}

// Close stops reconnection and closes the current connection.
func (e *Executor) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	if e.reconnectTimer != nil {
		e.reconnectTimer.Stop()
		e.reconnectTimer = nil
	}
	conn := e.conn
	e.conn = nil
	e.setStateLocked(StateDisconnected)
	e.mu.Unlock()

	e.cancel()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

func summarize(statement string) string {
	s := strings.Join(strings.Fields(statement), " ")
	if len(s) > 80 {
		return s[:80] + "..."
	}
	return s
}
