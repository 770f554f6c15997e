package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrNoImage is recorded when a model answers without an inline image part.
var ErrNoImage = errors.New("response contained no image part")

// Image is an opaque blob plus its MIME type.
type Image struct {
	Data []byte
	MIME string
}

// Candidate is one way of turning a photo and a prompt into a new image.
type Candidate interface {
	Name() string
	Attempt(ctx context.Context, image Image, prompt string) (*Image, error)
}

// Observer is told about every attempt. Implementations must be safe for concurrent use.
type Observer interface {
	ObserveAttempt(candidate string, err error, elapsed time.Duration)
}

type Failure struct {
	Candidate string
	Err       error
}

func (f Failure) String() string {
	return f.Candidate + ": " + f.Err.Error()
}

// Result carries the winning image and whatever failed before it.
type Result struct {
	Image    Image
	Model    string
	Elapsed  time.Duration
	Failures []Failure
}

// ExhaustedError is returned when no candidate produced an image.
type ExhaustedError struct {
	Failures []Failure
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d candidates failed: %s", len(e.Failures), e.Detail())
}

// Detail is the " | "-joined failure list, short enough to show a client.
func (e *ExhaustedError) Detail() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.String())
	}
	return strings.Join(parts, " | ")
}

// Chain tries candidates in order and returns the first image produced.
type Chain struct {
	candidates []Candidate
	timeout    time.Duration
	observer   Observer
	log        *zap.Logger
}

type ChainOption func(*Chain)

func WithObserver(o Observer) ChainOption {
	return func(c *Chain) { c.observer = o }
}

func WithLogger(l *zap.Logger) ChainOption {
	return func(c *Chain) { c.log = l }
}

// NewChain builds a chain where every attempt gets at most timeout; zero means no limit.
func NewChain(candidates []Candidate, timeout time.Duration, opts ...ChainOption) *Chain {
	c := &Chain{
		candidates: candidates,
		timeout:    timeout,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Chain) Candidates() []string {
	names := make([]string, 0, len(c.candidates))
	for _, cand := range c.candidates {
		names = append(names, cand.Name())
	}
	return names
}

// Run tries each candidate exactly once. A cancelled parent context stops the
// walk; its error is recorded as the remaining failure.
func (c *Chain) Run(ctx context.Context, image Image, prompt string) (*Result, error) {
	if len(c.candidates) == 0 {
		return nil, &ExhaustedError{Failures: []Failure{{Candidate: "chain", Err: errors.New("no candidates configured")}}}
	}

	start := time.Now()
	var failures []Failure
	for _, cand := range c.candidates {
		if err := ctx.Err(); err != nil {
			failures = append(failures, Failure{Candidate: cand.Name(), Err: err})
			break
		}

		out, err := c.attempt(ctx, cand, image, prompt)
		if err == nil {
			return &Result{
				Image:    *out,
				Model:    cand.Name(),
				Elapsed:  time.Since(start),
				Failures: failures,
			}, nil
		}

		c.log.Warn("candidate failed", zap.String("candidate", cand.Name()), zap.Error(err))
		failures = append(failures, Failure{Candidate: cand.Name(), Err: err})
	}
	return nil, &ExhaustedError{Failures: failures}
}

func (c *Chain) attempt(ctx context.Context, cand Candidate, image Image, prompt string) (*Image, error) {
	attemptCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	started := time.Now()
	out, err := cand.Attempt(attemptCtx, image, prompt)
	if err == nil && (out == nil || len(out.Data) == 0) {
		err = ErrNoImage
	}
	if err != nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		err = fmt.Errorf("timed out after %s: %w", c.timeout, err)
	}
	if c.observer != nil {
		c.observer.ObserveAttempt(cand.Name(), err, time.Since(started))
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}
