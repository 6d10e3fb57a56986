package driver

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/extremevalue/quantvalid/internal/domain"
)

// LocalRunner spawns the backtest engine as a subprocess against a
// project directory containing the rewritten program and a small
// configuration file.
type LocalRunner struct {
	EngineBinary string
	ProjectRoot  string
}

// NewLocalRunner builds a LocalRunner rooted at projectRoot, invoking
// engineBinary (e.g. "lean") as a subprocess.
func NewLocalRunner(engineBinary, projectRoot string) *LocalRunner {
	return &LocalRunner{EngineBinary: engineBinary, ProjectRoot: projectRoot}
}

func (r *LocalRunner) Run(ctx context.Context, program string, w domain.WindowSpec, timeout time.Duration) (string, int, bool, error) {
	dir := filepath.Join(r.ProjectRoot, "window-"+itoa(w.ID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", -1, false, err
	}
	if err := os.WriteFile(filepath.Join(dir, "main.py"), []byte(program), 0o644); err != nil {
		return "", -1, false, err
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"algorithm-language": "Python"}`), 0o644); err != nil {
		return "", -1, false, err
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.EngineBinary, "backtest", dir)
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	err := cmd.Run()
	timedOut := runCtx.Err() == context.DeadlineExceeded
	if timedOut {
		return combined.String(), -1, true, nil
	}
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return combined.String(), -1, false, err
		}
	}
	return combined.String(), exitCode, false, nil
}

func itoa(n int) string { return intStr(n) }
