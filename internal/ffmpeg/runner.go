// Package ffmpeg wraps the external ffmpeg and ffprobe binaries behind a
// small encoder capability. The pipeline never links a codec; it describes
// what to render and this package builds the subprocess invocation.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"slidecast/internal/faults"
	"slidecast/internal/logging"
)

// Runner executes ffmpeg-family commands. Tests substitute a fake to avoid
// spawning processes.
type Runner interface {
	Run(ctx context.Context, binary string, args ...string) (string, error)
}

// ExecRunner runs commands via os/exec, capturing combined diagnostics.
type ExecRunner struct {
	logger *slog.Logger
}

// NewRunner returns an ExecRunner logging command failures to logger.
func NewRunner(logger *slog.Logger) *ExecRunner {
	return &ExecRunner{logger: logging.NewComponentLogger(logger, "ffmpeg")}
}

// Run executes binary with args and returns trimmed stdout. On failure the
// returned error carries ffmpeg's stderr tail, which holds the useful
// diagnostic.
func (r *ExecRunner) Run(ctx context.Context, binary string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("running command",
		logging.String("binary", binary),
		logging.Int("args", len(args)),
	)

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = strings.TrimSpace(stdout.String())
		}
		if detail == "" {
			detail = err.Error()
		}
		return "", fmt.Errorf("%s: %s", binary, tail(detail, 12))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// tail keeps the last n lines of multi-line subprocess output.
func tail(output string, n int) string {
	lines := strings.Split(output, "\n")
	if len(lines) <= n {
		return output
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}

// wrapEncoding tags a subprocess failure as a recoverable per-slide
// encoding error.
func wrapEncoding(operation string, err error) error {
	return faults.Wrap(faults.ErrEncoding, "ffmpeg", operation, err)
}
