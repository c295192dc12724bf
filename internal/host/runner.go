// Package host wraps the machine-level primitives the charm drives: running commands,
// filesystem mutation with explicit ownership, system users and groups, and services.
package host

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/openstack-charmers/charm-openstack-dashboard/internal/messages"
)

// Command describes a process invocation.
type Command struct {
	Name string
	Args []string
	// Env is appended to the current process environment.
	Env []string
	Dir string
}

// String renders the command line for logs and errors.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner runs commands and returns their standard output.
type Runner interface {
	Run(ctx context.Context, cmd Command) (string, error)
}

// CommandError reports a command that could not be started or exited non-zero.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if stderr == "" {
		return fmt.Sprintf(messages.HostCommandFailedFmt, e.Command, e.ExitCode, e.Err)
	}
	return fmt.Sprintf(messages.HostCommandFailedStderrFmt, e.Command, e.ExitCode, stderr)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// IsCommandError reports whether err wraps a CommandError and returns it.
func IsCommandError(err error) (*CommandError, bool) {
	var e *CommandError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	Log *zap.SugaredLogger
}

// Run executes cmd, returning stdout. A non-zero exit yields a *CommandError.
func (r ExecRunner) Run(ctx context.Context, cmd Command) (string, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	c.Dir = cmd.Dir
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	if r.Log != nil {
		r.Log.Debugw("running command", "command", cmd.String())
	}
	if err := c.Run(); err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return stdout.String(), &CommandError{
			Command:  cmd.String(),
			ExitCode: code,
			Stderr:   stderr.String(),
			Err:      err,
		}
	}
	return stdout.String(), nil
}
