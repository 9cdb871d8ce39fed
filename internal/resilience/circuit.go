package resilience

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// ErrOpenCircuit is returned when the circuit breaker refuses a request.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State represents the current breaker state.
type State int

const (
	Closed State = iota
	Open
	// HalfOpen lets a single probe through to decide between Closed and Open.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	}
	return "unknown"
}

func (s State) gauge() float64 {
	switch s {
	case Closed:
		return 0
	case Open:
		return 1
	case HalfOpen:
		return 2
	}
	return -1
}

// Counts is the outcome tally of the current closed window.
type Counts struct {
	Requests  int
	Failures  int
	Successes int
}

// FailureRatio returns failures over requests, 0 when nothing was observed.
func (c Counts) FailureRatio() float64 {
	if c.Requests == 0 {
		return 0
	}
	return float64(c.Failures) / float64(c.Requests)
}

func (c *Counts) record(success bool) {
	c.Requests++
	if success {
		c.Successes++
	} else {
		c.Failures++
	}
}

// halve keeps the window bounded while preserving the ratio.
func (c *Counts) halve() {
	c.Successes = (c.Successes + 1) / 2
	c.Failures = (c.Failures + 1) / 2
	c.Requests = c.Successes + c.Failures
}

// Breaker trips when the failure ratio of upstream calls reaches the
// threshold once MinRequests outcomes were seen, then refuses calls for
// OpenFor before probing again.
type Breaker struct {
	MinRequests  int
	FailureRatio float64
	OpenFor      time.Duration
	// OnStateChange, when set, is called after every transition while the
	// breaker lock is held.
	OnStateChange func(target string, from, to State)

	mu       sync.Mutex
	state    State
	counts   Counts
	openedAt time.Time
	probing  bool
	target   string
	logger   zerolog.Logger
	now      func() time.Time
}

// NewBreaker builds a closed breaker, clamping nonsensical settings.
func NewBreaker(minRequests int, failureRatio float64, openFor time.Duration) *Breaker {
	if minRequests < 1 {
		minRequests = 1
	}
	switch {
	case failureRatio <= 0:
		failureRatio = 0.5
	case failureRatio > 1:
		failureRatio = 1
	}
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	return &Breaker{
		MinRequests:  minRequests,
		FailureRatio: failureRatio,
		OpenFor:      openFor,
		target:       "default",
		logger:       zerolog.Nop(),
		now:          time.Now,
	}
}

// WithClock replaces the breaker clock.
func (b *Breaker) WithClock(now func() time.Time) *Breaker {
	if now != nil {
		b.mu.Lock()
		b.now = now
		b.mu.Unlock()
	}
	return b
}

// WithTarget names the upstream in metrics and logs.
func (b *Breaker) WithTarget(target string) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t := strings.TrimSpace(target); t != "" {
		b.target = t
	}
	BreakerState.WithLabelValues(b.target).Set(b.state.gauge())
	return b
}

// WithLogger sets the fallback logger for transition events.
func (b *Breaker) WithLogger(logger zerolog.Logger) *Breaker {
	b.mu.Lock()
	b.logger = logger
	b.mu.Unlock()
	return b
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Counts returns a copy of the current window.
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Execute runs fn when the breaker allows it and reports the outcome.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if !b.Allow(ctx) {
		return ErrOpenCircuit
	}
	err := fn(ctx)
	b.Report(ctx, err == nil)
	return err
}

// Allow reports whether a call may go upstream. After OpenFor has elapsed
// the breaker turns half-open and admits exactly one probe until it is
// reported.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true
	case Open:
		if b.now().Sub(b.openedAt) < b.OpenFor {
			return false
		}
		b.transition(ctx, HalfOpen)
		b.probing = true
		return true
	default:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	}
}

// Report feeds a call outcome into the state machine.
func (b *Breaker) Report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		b.probing = false
		if success {
			b.transition(ctx, Closed)
		} else {
			b.transition(ctx, Open)
		}
		return
	}

	b.counts.record(success)
	if b.counts.Requests < b.MinRequests {
		return
	}
	if b.counts.FailureRatio() >= b.FailureRatio {
		b.transition(ctx, Open)
		return
	}
	if b.counts.Requests > 2*b.MinRequests {
		b.counts.halve()
	}
}

func (b *Breaker) transition(ctx context.Context, to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.counts = Counts{}
	switch to {
	case Open:
		b.openedAt = b.now()
		BreakerOpenedTotal.WithLabelValues(b.target).Inc()
	case Closed:
		b.openedAt = time.Time{}
	}
	BreakerState.WithLabelValues(b.target).Set(to.gauge())
	BreakerTransitions.WithLabelValues(b.target, from.String(), to.String()).Inc()

	logger := b.logger
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		logger = *l
	}
	evt := logger.Info().Str("target", b.target).Str("from_state", from.String()).Str("to_state", to.String())
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		evt = evt.Str("trace_id", sc.TraceID().String())
	}
	evt.Msg("breaker_transition")

	if b.OnStateChange != nil {
		b.OnStateChange(b.target, from, to)
	}
}
