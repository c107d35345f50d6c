package progress

import (
	"fmt"
	"time"
)

// Estimator extrapolates time remaining from the average time per completed
// unit of work.
type Estimator struct {
	now     func() time.Time
	started time.Time
}

func NewEstimator(now func() time.Time) *Estimator {
	if now == nil {
		now = time.Now
	}
	return &Estimator{now: now, started: now()}
}

func (e *Estimator) Elapsed() time.Duration {
	return e.now().Sub(e.started)
}

// Remaining reports the estimate after done of total units. ok is false until
// at least one unit has completed.
func (e *Estimator) Remaining(done, total int) (time.Duration, bool) {
	if done <= 0 || total <= 0 {
		return 0, false
	}
	left := total - done
	if left < 0 {
		left = 0
	}
	per := e.Elapsed() / time.Duration(done)
	return per * time.Duration(left), true
}

// RemainingRatio is Remaining for continuous work measured as a ratio in
// (0, 1].
func (e *Estimator) RemainingRatio(ratio float64) (time.Duration, bool) {
	if ratio <= 0 || ratio != ratio {
		return 0, false
	}
	if ratio > 1 {
		ratio = 1
	}
	elapsed := e.Elapsed().Seconds()
	left := elapsed/ratio - elapsed
	return time.Duration(left * float64(time.Second)), true
}

// FormatETR renders d as mm:ss, or h:mm:ss past one hour.
func FormatETR(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second) / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
