// Package runner invokes the external commands tfsync depends on: the
// discovery commands declared by resources and the terraform binary.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/openfroyo/tfsync/pkg/engine"
)

// Command describes one process invocation.
type Command struct {
	// Args is the argument vector; Args[0] is the program.
	Args []string

	// Dir is the working directory, the current one when empty.
	Dir string

	// Env holds extra KEY=value pairs appended to the inherited environment.
	Env []string

	// Passthrough streams stdout to the runner's output instead of
	// capturing it.
	Passthrough bool
}

// String returns the shell-quoted command line.
func (c Command) String() string {
	return Join(c.Args)
}

// Result is the outcome of a successful invocation.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// Runner runs external commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// Options configure an Exec runner.
type Options struct {
	// Timeout bounds every invocation; zero means no limit.
	Timeout time.Duration

	// Stdout receives the output of passthrough commands.
	Stdout io.Writer

	// Stderr receives a copy of the standard error of every command.
	Stderr io.Writer

	Logger zerolog.Logger
}

// Exec runs commands as local processes.
type Exec struct {
	opts Options
}

// New creates an Exec runner.
func New(opts Options) *Exec {
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	return &Exec{opts: opts}
}

// Run executes cmd and returns its captured output. A non-zero exit status
// or a timeout yields an external process error; an interrupted context
// yields a cancellation error.
func (e *Exec) Run(ctx context.Context, cmd Command) (*Result, error) {
	if len(cmd.Args) == 0 {
		return nil, engine.NewExternalProcessError("", fmt.Errorf("command is required"))
	}

	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	c := exec.CommandContext(ctx, cmd.Args[0], cmd.Args[1:]...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(c.Environ(), cmd.Env...)
	}

	var stdout, stderr bytes.Buffer
	if cmd.Passthrough {
		c.Stdout = e.opts.Stdout
	} else {
		c.Stdout = &stdout
	}
	if e.opts.Stderr != nil {
		c.Stderr = io.MultiWriter(&stderr, e.opts.Stderr)
	} else {
		c.Stderr = &stderr
	}

	e.opts.Logger.Debug().
		Str("command", cmd.String()).
		Str("dir", cmd.Dir).
		Msg("executing command")

	start := time.Now()
	err := c.Run()
	result := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if err == nil {
		return result, nil
	}

	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return nil, engine.NewCancelledError(ctx.Err()).WithDetail("command", cmd.String())
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return nil, engine.NewExternalProcessError(cmd.String(),
			fmt.Errorf("timed out after %s", e.opts.Timeout))
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		msg := fmt.Sprintf("exit status %d", exitErr.ExitCode())
		if text := strings.TrimSpace(stderr.String()); text != "" {
			msg += ": " + text
		}
		return nil, engine.NewExternalProcessError(cmd.String(), errors.New(msg)).
			WithDetail("exit_code", exitErr.ExitCode())
	}

	return nil, engine.NewExternalProcessError(cmd.String(), fmt.Errorf("failed to execute command: %w", err))
}

// Join quotes args so that a POSIX shell splits the result back into args.
func Join(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = Quote(arg)
	}
	return strings.Join(quoted, " ")
}

// Quote returns a shell-escaped version of s.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, needsQuoting) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

func needsQuoting(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	return !strings.ContainsRune("@%+=:,./-_", r)
}
