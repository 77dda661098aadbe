package runner

import "context"

// CommandRunner runs one external command to completion. A nil error means
// the command exited with status zero.
type CommandRunner interface {
	Run(ctx context.Context, command string, args []string) error
}
