package runctl

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Flag is a cancellation request that can be raised from outside a run.
// The run polls it at segment and encoder-line granularity.
type Flag struct {
	v atomic.Bool
}

func (f *Flag) Set() {
	if f != nil {
		f.v.Store(true)
	}
}

func (f *Flag) Reset() {
	if f != nil {
		f.v.Store(false)
	}
}

func (f *Flag) IsSet() bool {
	return f != nil && f.v.Load()
}

// Check returns ErrCancelled when the flag is raised or ctx is done.
// A nil flag only consults ctx.
func Check(ctx context.Context, f *Flag) error {
	if f.IsSet() {
		return ErrCancelled
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrCancelled, err)
		}
	}
	return nil
}
