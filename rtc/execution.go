package rtc

import (
	"context"
	"strings"
	"sync/atomic"

	modular "github.com/edwinhayes/logrus-modular"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Executable is a component driven by an ExecutionContext.
type Executable interface {
	Activate() error
	ExecuteCycle() error
	Deactivate() error
}

// RetryPolicy decides what an ExecutionContext does when a cycle fails.
type RetryPolicy int

const (
	// RetryNextTick logs the failure and runs the next cycle as scheduled.
	RetryNextTick RetryPolicy = iota
	// StopOnError deactivates the component and ends Run with the error.
	StopOnError
)

func (p RetryPolicy) String() string {
	switch p {
	case RetryNextTick:
		return "retry"
	case StopOnError:
		return "stop"
	default:
		return "unknown"
	}
}

// ParseRetryPolicy parses "retry" or "stop".
func ParseRetryPolicy(s string) (RetryPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "retry", "":
		return RetryNextTick, nil
	case "stop":
		return StopOnError, nil
	default:
		return RetryNextTick, errors.Errorf("unknown retry policy %q", s)
	}
}

// ExecutionContext invokes an Executable's cycle periodically.
type ExecutionContext struct {
	cycles   uint64
	failures uint64
	id       string
	rate     float64
	policy   RetryPolicy
	logger   modular.Logger
}

type ExecutionOption func(*ExecutionContext)

func WithRetryPolicy(p RetryPolicy) ExecutionOption {
	return func(ec *ExecutionContext) { ec.policy = p }
}

func WithExecutionLogger(l modular.Logger) ExecutionOption {
	return func(ec *ExecutionContext) { ec.logger = l }
}

// NewExecutionContext returns a context ticking at rate Hz.
func NewExecutionContext(rate float64, opts ...ExecutionOption) (*ExecutionContext, error) {
	if rate <= 0 {
		return nil, errors.Errorf("execution rate must be positive, got %v", rate)
	}
	ec := &ExecutionContext{
		id:   uuid.New().String(),
		rate: rate,
	}
	for _, opt := range opts {
		opt(ec)
	}
	if ec.logger == nil {
		ec.logger = NewLogger("ExecutionContext")
	}
	ec.logger = ec.logger.WithField("ec", ec.id)
	return ec, nil
}

func (ec *ExecutionContext) ID() string {
	return ec.id
}

func (ec *ExecutionContext) Rate() float64 {
	return ec.rate
}

// Stats returns the number of completed and failed cycles.
func (ec *ExecutionContext) Stats() (cycles, failures uint64) {
	return atomic.LoadUint64(&ec.cycles), atomic.LoadUint64(&ec.failures)
}

// Run activates comp, executes it once per period until ctx is done and
// then deactivates it. An activation failure is returned without running
// any cycle.
func (ec *ExecutionContext) Run(ctx context.Context, comp Executable) error {
	logger := ec.logger
	if err := comp.Activate(); err != nil {
		logger.WithError(err).Error("Activation failed")
		return errors.Wrap(err, "activate")
	}
	logger.Debugf("Activated, running at %v Hz", ec.rate)

	rate := NewRate(ec.rate)
	for ctx.Err() == nil {
		if err := comp.ExecuteCycle(); err != nil {
			atomic.AddUint64(&ec.failures, 1)
			logger.WithError(err).Error("Cycle failed")
			if ec.policy == StopOnError {
				if derr := comp.Deactivate(); derr != nil {
					logger.WithError(derr).Warn("Deactivation after failure failed")
				}
				return errors.Wrap(err, "execute")
			}
		} else {
			atomic.AddUint64(&ec.cycles, 1)
		}
		if err := rate.Wait(ctx); err != nil {
			break
		}
	}

	logger.Debug("Stopping")
	if err := comp.Deactivate(); err != nil {
		return errors.Wrap(err, "deactivate")
	}
	return nil
}
