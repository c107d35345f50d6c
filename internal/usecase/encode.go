package usecase

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/forPelevin/voxdub/internal/ports"
	"github.com/forPelevin/voxdub/internal/progress"
	"github.com/forPelevin/voxdub/internal/runctl"
)

type encodeJob struct {
	video  ports.VideoTool
	req    ports.MuxRequest
	total  time.Duration
	cancel *runctl.Flag
	now    func() time.Time
	log    *slog.Logger
	report func(f float64, msg string) error
}

// Progress lines look like key=value; they are kept out of the error tail.
var kvLineRE = regexp.MustCompile(`^[a-z0-9_]+=\S*$`)

// encode runs the encoder to completion. Cancellation is checked on every
// output line and kills the process.
func encode(ctx context.Context, job encodeJob) error {
	if err := job.report(0, "Encoding video"); err != nil {
		return err
	}
	proc, err := job.video.StartMux(ctx, job.req)
	if err != nil {
		if cerr := runctl.Check(ctx, job.cancel); cerr != nil {
			return cerr
		}
		marker := runctl.ErrStageFailed
		if errors.Is(err, exec.ErrNotFound) {
			marker = runctl.ErrExternalTool
		}
		return runctl.Wrap(marker, "mux", "start encoder", "", err)
	}

	est := progress.NewEstimator(job.now)
	tail := make([]string, 0, encoderTailSize)
	ended := false
	sc := bufio.NewScanner(proc.Output())
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	sc.Split(scanLines)

	for sc.Scan() {
		if err := runctl.Check(ctx, job.cancel); err != nil {
			abort(proc)
			job.log.Info("encoder killed", slog.String("reason", err.Error()))
			return err
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if progress.IsEndMarker(line) {
			ended = true
			continue
		}
		if !kvLineRE.MatchString(line) {
			if len(tail) == encoderTailSize {
				tail = tail[1:]
			}
			tail = append(tail, line)
		}

		out, ok := progress.ParseOutTime(line)
		if !ok || job.total <= 0 {
			continue
		}
		ratio := out.Seconds() / job.total.Seconds()
		if ratio > 1 {
			ratio = 1
		}
		msg := fmt.Sprintf("Encoding video %d%%", int(ratio*100))
		if etr, ok := est.RemainingRatio(ratio); ok {
			msg += ", ETR " + progress.FormatETR(etr)
		}
		if err := job.report(ratio, msg); err != nil {
			abort(proc)
			return err
		}
	}
	if err := sc.Err(); err != nil {
		// The encoder blocks once its output is no longer drained.
		abort(proc)
		if cerr := runctl.Check(ctx, job.cancel); cerr != nil {
			return cerr
		}
		return runctl.Wrap(runctl.ErrStageFailed, "mux", "read encoder output", "", err)
	}
	waitErr := proc.Wait()

	if err := runctl.Check(ctx, job.cancel); err != nil {
		return err
	}
	if waitErr != nil {
		return runctl.Wrap(runctl.ErrStageFailed, "mux", "encode", "encoder exited with an error",
			fmt.Errorf("%w\n%s", waitErr, strings.Join(tail, "\n")))
	}
	if !ended {
		job.log.Warn("encoder exited without an end marker")
	}
	return job.report(1, "Encoding finished")
}

func abort(proc ports.Process) {
	_ = proc.Kill()
	_ = proc.Wait()
}

// scanLines splits on \n, \r\n or a bare \r.
func scanLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		adv := i + 1
		if data[i] == '\r' && i+1 < len(data) && data[i+1] == '\n' {
			adv++
		} else if data[i] == '\r' && i+1 == len(data) && !atEOF {
			// Need more data to tell \r from \r\n.
			return 0, nil, nil
		}
		return adv, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
