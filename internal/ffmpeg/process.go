package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/e7canasta/orion-care-sensor/modules/frame-source/internal/failure"
)

// stderrTail is how much decoder stderr is kept for failure classification.
const stderrTail = 4096

// ExitError is returned by Process.Wait when ffmpeg exits abnormally.
type ExitError struct {
	Err      error
	Category failure.Category
	Stderr   string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("ffmpeg: decoder exited (%s): %v", e.Category, e.Err)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Process is a running ffmpeg whose stdout carries raw frames.
//
// Read must be drained to EOF (or the process cancelled) before Wait.
type Process struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *tailWriter
	cancel context.CancelFunc

	cancelled atomic.Bool
	waitOnce  sync.Once
	waitErr   error
}

// Start launches ffmpegPath with args. stdin is not connected. When logStderr
// is true, decoder stderr is also copied to this process's stderr.
func Start(ctx context.Context, ffmpegPath string, args []string, logStderr bool) (*Process, error) {
	ctx, cancel := context.WithCancel(ctx)

	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	// Let Wait return even if a grandchild keeps the pipes open
	cmd.WaitDelay = 3 * time.Second

	p := &Process{
		cmd:    cmd,
		stderr: &tailWriter{max: stderrTail},
		cancel: cancel,
	}
	if logStderr {
		cmd.Stderr = io.MultiWriter(os.Stderr, p.stderr)
	} else {
		cmd.Stderr = p.stderr
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg: stdout pipe: %w", err)
	}
	p.stdout = stdout

	slog.Debug("ffmpeg: starting decoder", "path", ffmpegPath, "args", strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg: start %s: %w", ffmpegPath, err)
	}
	slog.Info("ffmpeg: decoder started", "pid", cmd.Process.Pid)

	return p, nil
}

// Read reads raw frame bytes from the decoder's stdout.
func (p *Process) Read(b []byte) (int, error) {
	return p.stdout.Read(b)
}

// Cancel kills the decoder. A cancelled process reports a clean exit from Wait.
func (p *Process) Cancel() {
	if p.cancelled.CompareAndSwap(false, true) {
		slog.Debug("ffmpeg: cancelling decoder", "pid", p.cmd.Process.Pid)
	}
	p.cancel()
}

// Wait reaps the decoder. A non-zero exit that was not caused by Cancel is
// returned as *ExitError with a classified category.
func (p *Process) Wait() error {
	p.waitOnce.Do(func() {
		err := p.cmd.Wait()
		p.cancel()

		if err == nil || p.cancelled.Load() {
			slog.Debug("ffmpeg: decoder exited", "pid", p.cmd.Process.Pid, "error", err)
			return
		}

		tail := p.stderr.String()
		exitErr := &ExitError{
			Err:      err,
			Category: failure.Classify(err.Error(), tail),
			Stderr:   tail,
		}
		slog.Error("ffmpeg: decoder failed",
			"pid", p.cmd.Process.Pid,
			"error", err,
			"category", exitErr.Category.String(),
			"stderr", tail,
		)
		p.waitErr = exitErr
	})
	return p.waitErr
}

// tailWriter keeps the last max bytes written to it.
type tailWriter struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (w *tailWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, b...)
	if over := len(w.buf) - w.max; over > 0 {
		w.buf = append(w.buf[:0], w.buf[over:]...)
	}
	return len(b), nil
}

func (w *tailWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return strings.TrimSpace(string(w.buf))
}
