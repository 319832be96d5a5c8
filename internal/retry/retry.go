// Package retry implements the bounded exponential backoff described in
// spec.md §7: base 1s, factor 2, cap 3 attempts, used around the search
// service's cache calls and the lexicon generator's LLM call.
package retry

import (
	"context"
	"time"

	"github.com/Atlogit/atlomy/internal/errkind"
)

// Options configures a retry loop. Zero values fall back to the §7 defaults.
type Options struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Factor      float64
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = time.Second
	}
	if o.Factor <= 0 {
		o.Factor = 2
	}
	return o
}

// Classifier decides whether an error is worth retrying.
type Classifier func(error) bool

// IsTransient treats errkind.Transient-tagged errors as retryable.
func IsTransient(err error) bool { return errkind.Is(err, errkind.Transient) }

// Do invokes fn up to opts.MaxAttempts times, sleeping with exponential
// backoff between attempts while classify(err) reports the failure as
// retryable. The final error is returned unwrapped (callers convert it to
// the underlying kind themselves, per §7's "before being converted to the
// underlying kind" propagation policy).
func Do(ctx context.Context, opts Options, classify Classifier, fn func(ctx context.Context) error) error {
	opts = opts.withDefaults()
	if classify == nil {
		classify = IsTransient
	}

	delay := opts.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == opts.MaxAttempts || !classify(lastErr) {
			return lastErr
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * opts.Factor)
	}
	return lastErr
}
