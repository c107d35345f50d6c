package ffmpeg

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
)

// process runs a command with stdout and stderr merged into one pipe.
type process struct {
	cmd  *exec.Cmd
	out  *io.PipeReader
	done chan struct{}
	err  error

	killOnce sync.Once
}

func startProcess(cmd *exec.Cmd) (*process, error) {
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw
	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		_ = pr.Close()
		return nil, err
	}

	p := &process{cmd: cmd, out: pr, done: make(chan struct{})}
	go func() {
		p.err = cmd.Wait()
		_ = pw.Close()
		close(p.done)
	}()
	return p, nil
}

func (p *process) Output() io.Reader { return p.out }

// Kill stops the process and unblocks any pending writes to the output pipe
// so Wait can return without the reader draining it.
func (p *process) Kill() error {
	var err error
	p.killOnce.Do(func() {
		err = p.cmd.Process.Kill()
		if errors.Is(err, os.ErrProcessDone) {
			err = nil
		}
		_ = p.out.CloseWithError(io.ErrClosedPipe)
	})
	return err
}

func (p *process) Wait() error {
	<-p.done
	return p.err
}
