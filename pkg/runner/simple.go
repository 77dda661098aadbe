package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	perrors "provisioner/pkg/errors"
	"provisioner/pkg/logger"
)

// SimpleRunner executes system commands with the child's stdout and stderr
// connected to the configured writers, so whatever a failing package manager
// prints stays visible to the operator.
type SimpleRunner struct {
	logger *logger.Logger
	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader
	env    []string
	dir    string
}

type SimpleOption func(*SimpleRunner)

// WithOutput sets the writers for child stdout and stderr.
func WithOutput(stdout, stderr io.Writer) SimpleOption {
	return func(r *SimpleRunner) {
		r.stdout = stdout
		r.stderr = stderr
	}
}

// WithTee additionally copies child output into w (for example a run log).
// os/exec copies stdout and stderr on separate goroutines, so writes to w are
// serialised.
func WithTee(w io.Writer) SimpleOption {
	return func(r *SimpleRunner) {
		if w == nil {
			return
		}
		tee := &syncWriter{w: w}
		r.stdout = io.MultiWriter(r.stdout, tee)
		r.stderr = io.MultiWriter(r.stderr, tee)
	}
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func WithLogger(l *logger.Logger) SimpleOption {
	return func(r *SimpleRunner) {
		r.logger = l
	}
}

// WithDir sets the working directory of child processes.
func WithDir(dir string) SimpleOption {
	return func(r *SimpleRunner) {
		r.dir = dir
	}
}

// WithEnv appends KEY=VALUE pairs to the inherited environment.
func WithEnv(env ...string) SimpleOption {
	return func(r *SimpleRunner) {
		r.env = append(r.env, env...)
	}
}

// NewSimpleRunner creates a new SimpleRunner instance
func NewSimpleRunner(opts ...SimpleOption) *SimpleRunner {
	r := &SimpleRunner{
		logger: logger.Default(),
		stdout: os.Stdout,
		stderr: os.Stderr,
		stdin:  nil,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes command with args and waits for it to exit.
func (r *SimpleRunner) Run(ctx context.Context, command string, args []string) error {
	if err := r.validateCommand(command); err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}

	r.logger.WithFields(logger.Fields{
		"command": command,
		"args":    args,
	}).Debug("Executing command")

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr
	cmd.Stdin = r.stdin
	cmd.Dir = r.dir
	if len(r.env) > 0 {
		cmd.Env = append(os.Environ(), r.env...)
	}

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s interrupted: %w (%v)", command, ctxErr, err)
		}
		r.logger.WithFields(logger.Fields{
			"command":   command,
			"exit_code": perrors.ExitCode(err),
		}).WithError(err).Debug("Command execution failed")
		return fmt.Errorf("%s: %w", command, err)
	}

	return nil
}

// validateCommand rejects commands that can never be started.
func (r *SimpleRunner) validateCommand(command string) error {
	if strings.TrimSpace(command) == "" {
		return perrors.ErrEmptyCommand
	}
	if strings.ContainsAny(command, "\n\r\x00") {
		return fmt.Errorf("unsafe characters in command: %q", command)
	}
	return nil
}

// CommandLine renders command and args for logs and summaries.
func CommandLine(command string, args []string) string {
	if len(args) == 0 {
		return command
	}
	return command + " " + strings.Join(args, " ")
}
