package cli

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

const progressScale = 1000

// progressView draws a bar on interactive terminals. Elsewhere it does
// nothing and the pipeline's sampled progress logs stand in for it.
type progressView struct {
	bar  *progressbar.ProgressBar
	last string
}

func newProgressView(w io.Writer, interactive bool) *progressView {
	if !interactive {
		return &progressView{}
	}
	bar := progressbar.NewOptions(progressScale,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription("Starting"),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &progressView{bar: bar}
}

func (v *progressView) update(fraction float64, message string) {
	if v.bar == nil {
		return
	}
	if message != "" && message != v.last {
		v.bar.Describe(message)
		v.last = message
	}
	_ = v.bar.Set(int(fraction * progressScale))
}

func (v *progressView) finish() {
	if v.bar == nil {
		return
	}
	_ = v.bar.Finish()
}
