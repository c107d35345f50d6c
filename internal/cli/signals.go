package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// withInterrupts derives the context for one run. The first SIGINT or
// SIGTERM calls cancelRun so the pipeline stops at its next checkpoint; a
// second one cancels the context, which kills any running tool.
func withInterrupts(parent context.Context, timeout time.Duration, cancelRun func(), notice io.Writer) (context.Context, func()) {
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	ctx, stop := watchInterrupts(parent, timeout, sigs, cancelRun, notice)
	return ctx, func() {
		signal.Stop(sigs)
		stop()
	}
}

func watchInterrupts(parent context.Context, timeout time.Duration, sigs <-chan os.Signal, cancelRun func(), notice io.Writer) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, timeout)
		base := cancel
		cancel = func() {
			cancelTimeout()
			base()
		}
	}

	done := make(chan struct{})
	go func() {
		received := 0
		for {
			select {
			case <-done:
				return
			case <-sigs:
				received++
				if received == 1 {
					fmt.Fprintln(notice, "\ninterrupt received, stopping (press Ctrl+C again to force)")
					cancelRun()
					continue
				}
				cancel()
				return
			}
		}
	}()

	return ctx, func() {
		close(done)
		cancel()
	}
}
