package ffmpeg

import (
	"bytes"
	"context"
	"os/exec"
)

// Executor abstracts command execution for testability. It returns the
// process's stderr, which ffmpeg uses for both diagnostics and measurements.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.Bytes(), err
}
