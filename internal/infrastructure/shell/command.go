// Package shell runs the configured external commands behind release checks.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	rperrors "github.com/relicta-tech/relmono/internal/errors"
)

// maxLoggedOutput bounds how much command output is logged on failure.
const maxLoggedOutput = 4 << 10

// Logger receives command results.
type Logger interface {
	Debug(msg any, keyvals ...any)
	Warn(msg any, keyvals ...any)
}

// Command is a shell command line whose exit status answers a check.
type Command struct {
	// Name labels the command in logs.
	Name string
	// Line is passed to the platform shell. Empty always passes.
	Line string
	// Dir is the working directory.
	Dir string
	// Timeout bounds the run. Zero means no limit beyond ctx.
	Timeout time.Duration
	Logger  Logger
}

// Run executes the command. A non-zero exit status is a failed check,
// reported as false with a nil error. Failing to start the command, or
// running past its timeout, is an error.
func (c *Command) Run(ctx context.Context) (bool, error) {
	const op = "shell.Run"

	if strings.TrimSpace(c.Line) == "" {
		return true, nil
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	name, args := shellArgs(c.Line)
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = c.Dir
	cmd.WaitDelay = time.Second

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, rperrors.IOWrap(ctxErr, op, fmt.Sprintf("%s did not finish", c.label()))
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		c.warn(fmt.Sprintf("%s failed", c.label()),
			"exit_code", exitErr.ExitCode(),
			"duration", elapsed.Round(time.Millisecond),
			"output", tail(output.String()))
		return false, nil
	}
	if err != nil {
		return false, rperrors.IOWrap(err, op, "failed to start "+c.label())
	}

	c.debug(fmt.Sprintf("%s passed", c.label()), "duration", elapsed.Round(time.Millisecond))
	return true, nil
}

func (c *Command) label() string {
	if c.Name != "" {
		return c.Name
	}
	return rperrors.RedactSensitive(c.Line)
}

func (c *Command) debug(msg string, keyvals ...any) {
	if c.Logger != nil {
		c.Logger.Debug(msg, keyvals...)
	}
}

func (c *Command) warn(msg string, keyvals ...any) {
	if c.Logger != nil {
		c.Logger.Warn(msg, keyvals...)
	}
}

func shellArgs(line string) (string, []string) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C", line}
	}
	return "sh", []string{"-c", line}
}

// tail returns the redacted end of s, at most maxLoggedOutput bytes.
func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxLoggedOutput {
		s = "..." + s[len(s)-maxLoggedOutput:]
	}
	return rperrors.RedactSensitive(s)
}
