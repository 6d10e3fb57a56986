package driver

import (
	"bytes"
	"context"
	"os/exec"
	"regexp"
)

// projectIDRe and backtestIDRe pull the engine CLI's project/backtest
// ids out of its push-command output; the CLI prints them as plain
// "Project id: <n>" / "Backtest id: <n>" lines. A project id is taken
// as a run of digits; a backtest id as any run of non-space characters.
var (
	projectIDRe  = regexp.MustCompile(`(?i)project\s*id:\s*(\d+)`)
	backtestIDRe = regexp.MustCompile(`(?i)backtest\s*id:\s*(\S+)`)
)

// CLIProjectPusher implements ProjectPusher by shelling out to the
// engine's own CLI push subcommand, the cloud-mode counterpart to
// LocalRunner's direct subprocess invocation.
type CLIProjectPusher struct {
	EngineBinary string
}

// NewCLIProjectPusher builds a CLIProjectPusher invoking engineBinary
// (e.g. "lean") as a subprocess.
func NewCLIProjectPusher(engineBinary string) *CLIProjectPusher {
	return &CLIProjectPusher{EngineBinary: engineBinary}
}

func (p *CLIProjectPusher) Push(ctx context.Context, dir string) (projectID, backtestID, output string, err error) {
	cmd := exec.CommandContext(ctx, p.EngineBinary, "cloud", "push", "--project", dir)
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	runErr := cmd.Run()
	output = combined.String()
	if runErr != nil {
		return "", "", output, runErr
	}

	if m := projectIDRe.FindStringSubmatch(output); m != nil {
		projectID = m[1]
	}
	if m := backtestIDRe.FindStringSubmatch(output); m != nil {
		backtestID = m[1]
	}
	return projectID, backtestID, output, nil
}
