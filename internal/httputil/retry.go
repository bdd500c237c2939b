// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the attempt loop and error classification shared
// by the PubChem fetchers.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultMaxAttempts is used when a Policy leaves MaxAttempts unset.
const DefaultMaxAttempts = 3

// ErrRetryExhausted wraps the last error once every attempt has failed.
var ErrRetryExhausted = errors.New("retry attempts exhausted")

// Class is the retry classification of a failed attempt.
type Class string

const (
	// ClassTransient failures (network errors, timeouts, non-200 responses)
	// are retried until the attempt budget runs out.
	ClassTransient Class = "transient"

	// ClassPermanent failures (malformed payloads) end the loop for the
	// current identifier immediately.
	ClassPermanent Class = "permanent"
)

// Classifier is implemented by errors that know their own retry class.
type Classifier interface {
	ErrorClass() Class
}

// Classify returns the retry class of err. Errors that do not implement
// Classifier anywhere in their chain are transient, which covers the
// *url.Error values returned by http.Client for connection failures.
func Classify(err error) Class {
	var c Classifier
	if errors.As(err, &c) {
		return c.ErrorClass()
	}
	return ClassTransient
}

// permanentError marks an arbitrary error as permanent.
type permanentError struct{ err error }

func (e *permanentError) Error() string     { return e.err.Error() }
func (e *permanentError) Unwrap() error     { return e.err }
func (e *permanentError) ErrorClass() Class { return ClassPermanent }

// Permanent wraps err so Classify reports ClassPermanent. A nil err stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Policy controls Retry.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// Wait is the fixed pause between a failed attempt and the next one.
	// No pause follows the final attempt.
	Wait time.Duration

	// OnFailure, when set, is called after every failed attempt with the
	// 1-based attempt number and the error's class.
	OnFailure func(attempt int, class Class, err error)
}

// Retry calls fn until it succeeds, returns a permanent error, or
// MaxAttempts tries have been made. It returns the number of attempts made.
//
// After exhausting attempts the error wraps both ErrRetryExhausted and the
// last attempt's error. If ctx is cancelled, Retry stops and returns
// ctx.Err() without classifying it.
func Retry(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		err := fn(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return attempt, ctxErr
		}

		lastErr = err
		class := Classify(err)
		if p.OnFailure != nil {
			p.OnFailure(attempt, class, err)
		}
		if class == ClassPermanent {
			return attempt, err
		}
		if attempt == maxAttempts {
			break
		}
		if err := Sleep(ctx, p.Wait); err != nil {
			return attempt, err
		}
	}

	return maxAttempts, fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, maxAttempts, lastErr)
}

// Sleep pauses for d or until ctx is done, whichever comes first.
// A non-positive d returns immediately.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
