// Package progress carries stage progress from long-running work back to its
// caller: tagged events, sub-range mapping, ETR estimation and encoder
// progress-line parsing.
package progress

type Kind int

const (
	KindProgress Kind = iota
	KindResult
)

func (k Kind) String() string {
	switch k {
	case KindProgress:
		return "progress"
	case KindResult:
		return "result"
	default:
		return "unknown"
	}
}

// Event is either an informational progress update or the terminal result of
// a stage. Only KindResult events carry a meaningful Result.
type Event[T any] struct {
	Kind     Kind
	Fraction float64
	Message  string
	Result   T
}

func Update[T any](fraction float64, message string) Event[T] {
	return Event[T]{Kind: KindProgress, Fraction: clamp01(fraction), Message: message}
}

func Done[T any](result T, message string) Event[T] {
	return Event[T]{Kind: KindResult, Fraction: 1, Message: message, Result: result}
}

// Fraction returns done/total in [0, 1]; zero totals report 0.
func Fraction(done, total int) float64 {
	if total <= 0 {
		return 0
	}
	return clamp01(float64(done) / float64(total))
}

func clamp01(f float64) float64 {
	if f != f || f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
