package ffmpeg

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"testing"

	"github.com/e7canasta/orion-care-sensor/modules/frame-source/internal/failure"
)

// sh stands in for ffmpeg: the byte source contract is just stdout plus exit status
func lookSh(t *testing.T) string {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	return sh
}

func TestProcess_CleanExit(t *testing.T) {
	sh := lookSh(t)
	p, err := Start(context.Background(), sh, []string{"-c", "printf abcdefgh"}, false)
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	out, err := io.ReadAll(p)
	if err != nil {
		t.Fatalf("ReadAll() failed: %v", err)
	}
	if string(out) != "abcdefgh" {
		t.Errorf("stdout = %q", out)
	}
	if err := p.Wait(); err != nil {
		t.Errorf("Wait() = %v, want nil", err)
	}
}

func TestProcess_FailureClassified(t *testing.T) {
	sh := lookSh(t)
	script := "echo 'in.mp4: No such file or directory' >&2; exit 1"
	p, err := Start(context.Background(), sh, []string{"-c", script}, false)
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	io.Copy(io.Discard, p)

	err = p.Wait()
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("Wait() = %v, want *ExitError", err)
	}
	if exitErr.Category != failure.CategoryInput {
		t.Errorf("Category = %s, want input", exitErr.Category)
	}
	if !strings.Contains(exitErr.Stderr, "No such file") {
		t.Errorf("Stderr = %q", exitErr.Stderr)
	}
	// Wait is idempotent
	if again := p.Wait(); again != err {
		t.Errorf("second Wait() = %v, want %v", again, err)
	}
	t.Logf("✅ %v", err)
}

func TestProcess_CancelIsClean(t *testing.T) {
	sh := lookSh(t)
	p, err := Start(context.Background(), sh, []string{"-c", "sleep 30"}, false)
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	p.Cancel()
	io.Copy(io.Discard, p)
	if err := p.Wait(); err != nil {
		t.Errorf("Wait() after Cancel = %v, want nil", err)
	}
}

func TestTailWriter(t *testing.T) {
	w := &tailWriter{max: 8}
	w.Write([]byte("0123456789"))
	w.Write([]byte("ab"))
	if got := w.String(); got != "456789ab" {
		t.Errorf("String() = %q, want 456789ab", got)
	}
}
