package progress

import (
	"errors"
	"iter"
)

// Stream is the shape every long-running stage exposes. A non-nil error ends
// the stream; a KindResult event is the last successful element.
type Stream[T any] = iter.Seq2[Event[T], error]

var ErrNoResult = errors.New("stream ended without a result")

// Drain consumes a stream, forwarding progress events to onProgress (which may
// be nil), and returns the result.
func Drain[T any](s Stream[T], onProgress func(Event[T])) (T, error) {
	var zero T
	for ev, err := range s {
		if err != nil {
			return zero, err
		}
		if onProgress != nil {
			onProgress(ev)
		}
		if ev.Kind == KindResult {
			return ev.Result, nil
		}
	}
	return zero, ErrNoResult
}
