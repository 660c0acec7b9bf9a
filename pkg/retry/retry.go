// Package retry runs device operations with a bounded number of attempts and a fixed delay.
//
// Only failures the Policy classifies as retryable are retried; anything else is returned
// from the attempt that produced it. AtomicRetryableSequence extends this to multi-step
// device transactions that replay from the start on every attempt.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fiscalbridge/pkg/transport"
)

const (
	DefaultMaxAttempts = 3
	DefaultDelay       = time.Second
)

// ErrAfterCommit marks a failure that happened after a sequence wrote its commit command.
// Whether the device acted on it is unknown, so the sequence is not replayed.
var ErrAfterCommit = errors.New("retry: failed after commit point, device state unknown")

// Policy bounds the attempts of one operation.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	// Retryable decides whether an error is worth another attempt. Nil means
	// transport.IsTransient.
	Retryable func(error) bool
	Logf      func(format string, args ...any)
}

// Default is three attempts one second apart, retrying transport faults only.
func Default() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, Delay: DefaultDelay}
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p Policy) retryable(err error) bool {
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return transport.IsTransient(err)
}

func (p Policy) logf(format string, args ...any) {
	if p.Logf != nil {
		p.Logf(format, args...)
	}
}

// Do calls op until it succeeds, returns a non-retryable error, or the attempts run out.
// attempt starts at 1. On exhaustion the last error is wrapped with the operation name and
// the attempt count.
func Do[T any](ctx context.Context, p Policy, name string, op func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	limit := p.attempts()
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		res, err := op(ctx, attempt)
		if err == nil {
			return res, nil
		}
		if !p.retryable(err) {
			return zero, err
		}
		if attempt >= limit {
			return zero, fmt.Errorf("%s failed after %d attempts: %w", name, attempt, err)
		}
		p.logf("%s: attempt %d/%d failed: %v; retrying in %s", name, attempt, limit, err, p.Delay)
		if err := sleep(ctx, p.Delay); err != nil {
			return zero, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Commit records whether the current attempt has passed its point of no return.
type Commit struct {
	step   string
	passed bool
}

// Mark is called immediately before writing a command that changes fiscal memory or
// otherwise cannot be repeated safely.
func (c *Commit) Mark(step string) {
	c.step = step
	c.passed = true
}

// Passed reports whether Mark was called in this attempt.
func (c *Commit) Passed() bool { return c.passed }

// Step is the name given to Mark.
func (c *Commit) Step() string { return c.step }

// AtomicRetryableSequence replays a whole device transaction on each attempt: open the
// connection, run every step, close. Attempts are retried under Policy only while the
// commit point has not been reached. A transport failure after it is returned wrapped in
// ErrAfterCommit; a device-reported error after it is returned as is.
type AtomicRetryableSequence[T any] struct {
	Name   string
	Policy Policy
	Run    func(ctx context.Context, commit *Commit) (T, error)
}

// Execute runs the sequence.
func (s AtomicRetryableSequence[T]) Execute(ctx context.Context) (T, error) {
	var commit *Commit
	p := s.Policy
	inner := p.retryable
	p.Retryable = func(err error) bool {
		return !commit.Passed() && inner(err)
	}
	res, err := Do(ctx, p, s.Name, func(ctx context.Context, attempt int) (T, error) {
		commit = &Commit{}
		return s.Run(ctx, commit)
	})
	if err != nil && commit != nil && commit.Passed() && inner(err) {
		return res, fmt.Errorf("%s at %s: %w: %w", s.Name, commit.Step(), ErrAfterCommit, err)
	}
	return res, err
}
