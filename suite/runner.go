// Package suite runs an ordered list of named test cases against a shared Env.
// The first failing case stops the run.
package suite

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/zorostang/secret-upgradable-nfts/logger"
	"github.com/zorostang/secret-upgradable-nfts/metrics"
)

type State string

const (
	Pending State = "pending"
	Running State = "running"
	Passed  State = "passed"
	Failed  State = "failed"
)

var (
	ErrDuplicateCase = errors.New("duplicate test case")
	ErrInvalidCase   = errors.New("invalid test case")
	ErrMissingKey    = errors.New("missing env key")
)

type TestCase struct {
	Name string
	// Requires lists the keys that must be in the Env before the case starts.
	Requires []Key
	// Produces lists the keys the case must have set once it returns.
	Produces []Key
	Run      func(ctx context.Context, env *Env) error
}

// CaseError is the failure of a single case.
type CaseError struct {
	Name string
	Err  error
}

func (e *CaseError) Error() string {
	return fmt.Sprintf("test case %s failed: %v", e.Name, e.Err)
}

func (e *CaseError) Unwrap() error {
	return e.Err
}

type Runner struct {
	cases      []TestCase
	states     []State
	logger     logger.Logger
	indicators metrics.SuiteIndicators
	now        func() time.Time
}

type Option func(*Runner)

func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

func WithIndicators(i metrics.SuiteIndicators) Option {
	return func(r *Runner) {
		r.indicators = i
	}
}

// New validates cases and returns a runner with every case Pending.
func New(cases []TestCase, opts ...Option) (*Runner, error) {
	seen := make(map[string]struct{}, len(cases))
	for i, tc := range cases {
		if tc.Name == "" {
			return nil, fmt.Errorf("%w: case %d has no name", ErrInvalidCase, i)
		}
		if tc.Run == nil {
			return nil, fmt.Errorf("%w: case %s has no function", ErrInvalidCase, tc.Name)
		}
		if _, ok := seen[tc.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCase, tc.Name)
		}
		seen[tc.Name] = struct{}{}
	}

	r := &Runner{
		cases:      cases,
		states:     make([]State, len(cases)),
		logger:     logger.NewLogrusLogger("text"),
		indicators: metrics.Noop{},
		now:        time.Now,
	}
	for i := range r.states {
		r.states[i] = Pending
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// States returns the current state of every case, in order.
func (r *Runner) States() []State {
	out := make([]State, len(r.states))
	copy(out, r.states)
	return out
}

// Run executes the cases in order. It stops at the first failure and returns it as a
// *CaseError; the remaining cases stay Pending. The report is returned either way.
func (r *Runner) Run(ctx context.Context, env *Env) (*Report, error) {
	report := &Report{StartedAt: r.now()}
	defer func() {
		report.Duration = r.now().Sub(report.StartedAt)
	}()

	for i, tc := range r.cases {
		r.states[i] = Running
		r.logger.Info(fmt.Sprintf("Testing %s", tc.Name))

		start := r.now()
		err := r.runCase(ctx, env, tc)
		elapsed := r.now().Sub(start)

		result := CaseReport{Name: tc.Name, Duration: elapsed}
		if err != nil {
			r.states[i] = Failed
			result.State = Failed
			result.Error = err.Error()
			report.Cases = append(report.Cases, result)
			r.indicators.ObserveCase(tc.Name, string(Failed), elapsed.Seconds())
			r.logger.Error(fmt.Sprintf("[FAILED] %s", tc.Name), logger.WithError(err))

			for _, rest := range r.cases[i+1:] {
				report.Cases = append(report.Cases, CaseReport{Name: rest.Name, State: Pending})
			}
			report.summarize()
			return report, &CaseError{Name: tc.Name, Err: err}
		}

		r.states[i] = Passed
		result.State = Passed
		report.Cases = append(report.Cases, result)
		r.indicators.ObserveCase(tc.Name, string(Passed), elapsed.Seconds())
		r.logger.Info(fmt.Sprintf("[SUCCESS] %s", tc.Name))
	}

	report.summarize()
	return report, nil
}

func (r *Runner) runCase(ctx context.Context, env *Env, tc TestCase) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if missing := env.missing(tc.Requires); len(missing) > 0 {
		return fmt.Errorf("%w: requires %v", ErrMissingKey, missing)
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Debug("Recovered test case panic", logger.WithField("stack", string(debug.Stack())))
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	if err := tc.Run(ctx, env); err != nil {
		return err
	}
	if missing := env.missing(tc.Produces); len(missing) > 0 {
		return fmt.Errorf("%w: did not produce %v", ErrMissingKey, missing)
	}
	return nil
}
