package resilience

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"bharatconnect/pkg/logger"
)

// State represents the state of a circuit breaker
type State string

const (
	StateClosed   State = "closed"
	StateHalfOpen State = "half_open"
	StateOpen     State = "open"
)

// ErrCircuitOpen is returned while the breaker rejects calls
var ErrCircuitOpen = errors.New("circuit breaker is open")

var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "circuit_breaker_state",
		Help: "State of a circuit breaker (0=closed, 1=half_open, 2=open)",
	}, []string{"breaker"})

	breakerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "circuit_breaker_requests_total",
		Help: "Calls made through a circuit breaker",
	}, []string{"breaker", "operation", "status"})

	breakerErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "circuit_breaker_errors_total",
		Help: "Failed calls made through a circuit breaker, by error class",
	}, []string{"breaker", "operation", "error_type"})
)

// Config tunes a Breaker
type Config struct {
	Name           string
	MaxFailures    int           // consecutive failures before opening
	OpenTimeout    time.Duration // time spent open before a trial call
	MaxAttempts    int           // attempts per Execute, including the first
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultConfig returns the settings used for object storage
func DefaultConfig(name string) Config {
	return Config{
		Name:           name,
		MaxFailures:    3,
		OpenTimeout:    10 * time.Second,
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
	}
}

// Breaker wraps backend calls with retry and a circuit breaker
type Breaker struct {
	cfg Config
	now func() time.Time

	mu                  sync.Mutex
	state               State
	consecutiveFailures int
	openedAt            time.Time
}

// New creates a closed breaker
func New(cfg Config) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	b := &Breaker{cfg: cfg, now: time.Now, state: StateClosed}
	breakerState.WithLabelValues(cfg.Name).Set(0)
	return b
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. It does not count against the
// breaker either, so a missing object never trips it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Execute runs fn with retries until it succeeds, returns a permanent error,
// runs out of attempts or ctx is done.
func (b *Breaker) Execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= b.cfg.MaxAttempts; attempt++ {
		if !b.allow() {
			breakerRequestsTotal.WithLabelValues(b.cfg.Name, operation, "rejected").Inc()
			logger.Warn("Circuit breaker open, request rejected",
				zap.String("breaker", b.cfg.Name),
				zap.String("operation", operation))
			if lastErr != nil {
				return fmt.Errorf("%w: %v", ErrCircuitOpen, lastErr)
			}
			return ErrCircuitOpen
		}

		err := fn(ctx)
		if err == nil {
			b.onSuccess()
			breakerRequestsTotal.WithLabelValues(b.cfg.Name, operation, "success").Inc()
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			b.onSuccess()
			breakerRequestsTotal.WithLabelValues(b.cfg.Name, operation, "permanent_error").Inc()
			return perm.err
		}

		lastErr = err
		b.onFailure(operation)
		breakerRequestsTotal.WithLabelValues(b.cfg.Name, operation, "failure").Inc()
		breakerErrorsTotal.WithLabelValues(b.cfg.Name, operation, classifyError(err)).Inc()

		if attempt == b.cfg.MaxAttempts {
			break
		}

		backoff := b.backoff(attempt)
		logger.Debug("Backend call failed, backing off",
			zap.String("breaker", b.cfg.Name),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", operation, ctx.Err())
		case <-time.After(backoff):
		}
	}

	return fmt.Errorf("%s failed after retries: %w", operation, lastErr)
}

// State returns the current breaker state
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset closes the breaker
func (b *Breaker) Reset() {
	b.onSuccess()
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateOpen {
		return true
	}
	if b.now().Sub(b.openedAt) < b.cfg.OpenTimeout {
		return false
	}
	b.setState(StateHalfOpen)
	return true
}

func (b *Breaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveFailures = 0
	b.setState(StateClosed)
}

func (b *Breaker) onFailure(operation string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures++
	if b.state == StateHalfOpen || b.consecutiveFailures >= b.cfg.MaxFailures {
		if b.state != StateOpen {
			logger.Error("Circuit breaker opened",
				zap.String("breaker", b.cfg.Name),
				zap.String("operation", operation),
				zap.Int("consecutive_failures", b.consecutiveFailures))
		}
		b.openedAt = b.now()
		b.setState(StateOpen)
	}
}

// setState must be called with mu held
func (b *Breaker) setState(s State) {
	if b.state == s {
		return
	}
	b.state = s
	switch s {
	case StateClosed:
		breakerState.WithLabelValues(b.cfg.Name).Set(0)
	case StateHalfOpen:
		breakerState.WithLabelValues(b.cfg.Name).Set(1)
	case StateOpen:
		breakerState.WithLabelValues(b.cfg.Name).Set(2)
	}
}

func (b *Breaker) backoff(attempt int) time.Duration {
	d := time.Duration(attempt) * b.cfg.InitialBackoff
	if b.cfg.MaxBackoff > 0 && d > b.cfg.MaxBackoff {
		d = b.cfg.MaxBackoff
	}
	return d
}

// classifyError buckets errors for metrics
func classifyError(err error) string {
	if err == nil {
		return "none"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}

	errMsg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "deadline exceeded"):
		return "timeout"
	case strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "network unreachable"):
		return "network"
	case strings.Contains(errMsg, "no such host") || strings.Contains(errMsg, "dns"):
		return "dns"
	case strings.Contains(errMsg, "permission denied") || strings.Contains(errMsg, "access denied"):
		return "permission"
	default:
		return "unknown"
	}
}
