// Package testutil provides testing utilities for the provisioner
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// MockCommandRunner implements runner.CommandRunner for testing
type MockCommandRunner struct {
	mu        sync.RWMutex
	commands  []ExecutedCommand
	responses map[string]CommandResponse
}

type ExecutedCommand struct {
	Command string
	Args    []string
	Context context.Context
}

// Line returns the command joined with its arguments.
func (e ExecutedCommand) Line() string {
	return commandKey(e.Command, e.Args)
}

type CommandResponse struct {
	Error error
	Delay time.Duration
	// Run, when set, is called instead of returning Error.
	Run func(ctx context.Context) error
}

// ExitError is a stand-in for *exec.ExitError carrying a fixed status.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit status %d", e.Code) }
func (e *ExitError) ExitCode() int { return e.Code }

// Fail returns a response that exits with the given status.
func Fail(code int) CommandResponse {
	return CommandResponse{Error: &ExitError{Code: code}}
}

func NewMockCommandRunner() *MockCommandRunner {
	return &MockCommandRunner{
		responses: make(map[string]CommandResponse),
	}
}

func commandKey(command string, args []string) string {
	return strings.TrimSpace(command + " " + strings.Join(args, " "))
}

func (m *MockCommandRunner) Run(ctx context.Context, command string, args []string) error {
	m.mu.Lock()
	m.commands = append(m.commands, ExecutedCommand{
		Command: command,
		Args:    append([]string(nil), args...),
		Context: ctx,
	})
	m.mu.Unlock()

	m.mu.RLock()
	response, exists := m.responses[commandKey(command, args)]
	m.mu.RUnlock()

	if !exists {
		return nil
	}
	if response.Delay > 0 {
		select {
		case <-time.After(response.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if response.Run != nil {
		return response.Run(ctx)
	}
	return response.Error
}

// SetResponse registers the outcome for one exact command line.
func (m *MockCommandRunner) SetResponse(command string, args []string, response CommandResponse) {
	m.mu.Lock()
	m.responses[commandKey(command, args)] = response
	m.mu.Unlock()
}

func (m *MockCommandRunner) GetExecutedCommands() []ExecutedCommand {
	m.mu.RLock()
	defer m.mu.RUnlock()

	commands := make([]ExecutedCommand, len(m.commands))
	copy(commands, m.commands)
	return commands
}

// ExecutedLines returns every executed command line in invocation order.
func (m *MockCommandRunner) ExecutedLines() []string {
	commands := m.GetExecutedCommands()
	lines := make([]string, len(commands))
	for i, c := range commands {
		lines[i] = c.Line()
	}
	return lines
}


// CreateTestFile creates a test file with the given content
func CreateTestFile(t *testing.T, dir, filename, content string) string {
	t.Helper()

	filePath := filepath.Join(dir, filename)
	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test file %s: %v", filePath, err)
	}

	return filePath
}

// WithTimeout creates a context with timeout for tests
func WithTimeout(t *testing.T, timeout time.Duration) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), timeout)
}

// AssertNoError asserts that the error is nil
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}

// AssertError asserts that an error occurred
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
}
