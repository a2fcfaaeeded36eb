package darkmode

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
)

// CommandDetector runs a shell command and compares its trimmed
// standard output against a sentinel value.
type CommandDetector struct {
	command   string
	args      []string
	darkValue string
}

// NewCommandDetector creates a CommandDetector.
func NewCommandDetector(command string, args []string, darkValue string) *CommandDetector {
	return &CommandDetector{
		command:   command,
		args:      args,
		darkValue: darkValue,
	}
}

// Name implements Detector.
func (d *CommandDetector) Name() string {
	return d.command
}

// Detect implements Detector.
func (d *CommandDetector) Detect(ctx context.Context) (bool, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, d.command, d.args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return false, &CommandError{
			Command: d.command,
			Stderr:  strings.TrimSpace(stderr.String()),
			Err:     err,
		}
	}

	if errOut := strings.TrimSpace(stderr.String()); errOut != "" {
		return false, &CommandError{Command: d.command, Stderr: errOut}
	}

	return strings.TrimSpace(stdout.String()) == d.darkValue, nil
}
