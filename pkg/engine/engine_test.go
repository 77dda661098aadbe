package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "provisioner/pkg/errors"
	"provisioner/pkg/logger"
	"provisioner/pkg/plan"
	"provisioner/pkg/testutil"
)

func stepNamed(i int) plan.Step {
	return plan.NewStep(fmt.Sprintf("step-%d", i), "stand-in", fmt.Sprintf("%d", i))
}

func planOf(n int) plan.Plan {
	p := plan.Plan{Name: "test-plan"}
	for i := 1; i <= n; i++ {
		p.Steps = append(p.Steps, stepNamed(i))
	}
	return p
}

func lines(p plan.Plan) []string {
	out := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		out[i] = s.CommandLine()
	}
	return out
}

func newTestEngine(r *testutil.MockCommandRunner, opts ...OptFunc) (*Engine, *bytes.Buffer) {
	var out bytes.Buffer
	base := []OptFunc{
		WithRunner(r),
		WithOutput(&out),
		WithLogger(logger.Discard()),
		WithRunID("run-test"),
	}
	return NewEngine(append(base, opts...)...), &out
}

func TestEngine_AllStepsSucceed(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t, 5*time.Second)
	defer cancel()

	mock := testutil.NewMockCommandRunner()
	e, _ := newTestEngine(mock)
	p := planOf(4)

	result, err := e.Run(ctx, p)

	testutil.AssertNoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, StateSucceeded, result.State)
	assert.Equal(t, 0, result.ExitCode)
	assert.Empty(t, result.FailedStep)
	assert.Equal(t, lines(p), mock.ExecutedLines(), "each step invoked exactly once, in declared order")
	assert.Len(t, result.Steps, 4)
	assert.Equal(t, "run-test", result.RunID)
	assert.Equal(t, "test-plan", result.Plan)
}

func TestEngine_FailFast(t *testing.T) {
	const n = 5
	for k := 1; k <= n; k++ {
		t.Run(fmt.Sprintf("fail at step %d", k), func(t *testing.T) {
			mock := testutil.NewMockCommandRunner()
			p := planOf(n)
			failing := p.Steps[k-1]
			mock.SetResponse(failing.Command, failing.Args, testutil.Fail(100))

			e, _ := newTestEngine(mock)
			result, err := e.Run(context.Background(), p)

			require.Error(t, err)
			var stepErr *perrors.StepError
			require.ErrorAs(t, err, &stepErr)
			assert.Equal(t, failing.Name, stepErr.StepName)
			assert.Equal(t, k-1, stepErr.Index)

			assert.Equal(t, lines(p)[:k], mock.ExecutedLines(), "steps 1..k run once, later steps never")
			assert.Equal(t, StateFailed, result.State)
			assert.Equal(t, failing.Name, result.FailedStep)
			assert.Len(t, result.Steps, k)
			assert.Equal(t, 100, result.ExitCode)
			assert.Equal(t, 100, perrors.ExitCode(err))
		})
	}
}

func TestEngine_OnlyFirstFailureCounts(t *testing.T) {
	mock := testutil.NewMockCommandRunner()
	p := planOf(4)
	mock.SetResponse(p.Steps[1].Command, p.Steps[1].Args, testutil.Fail(2))
	mock.SetResponse(p.Steps[2].Command, p.Steps[2].Args, testutil.Fail(3))

	e, _ := newTestEngine(mock)
	result, err := e.Run(context.Background(), p)

	require.Error(t, err)
	assert.Equal(t, "step-2", result.FailedStep)
	assert.Equal(t, 2, result.ExitCode)
	assert.Equal(t, lines(p)[:2], mock.ExecutedLines())
}

func TestEngine_EmptyPlan(t *testing.T) {
	mock := testutil.NewMockCommandRunner()
	e, out := newTestEngine(mock)

	result, err := e.Run(context.Background(), plan.Plan{Name: "empty"})

	testutil.AssertNoError(t, err)
	assert.Equal(t, StateSucceeded, result.State)
	assert.Equal(t, 0, result.ExitCode)
	assert.Empty(t, mock.GetExecutedCommands())
	assert.Empty(t, out.String())
}

func TestEngine_ExitStatusPassThrough(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "all succeed", err: nil, wantCode: 0},
		{name: "exit status propagated", err: &testutil.ExitError{Code: 42}, wantCode: 42},
		{name: "status unavailable", err: errors.New("executable file not found in $PATH"), wantCode: 1},
		{name: "killed by signal", err: &testutil.ExitError{Code: -1}, wantCode: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockCommandRunner()
			p := planOf(3)
			if tt.err != nil {
				mock.SetResponse(p.Steps[0].Command, p.Steps[0].Args, testutil.CommandResponse{Error: tt.err})
			}

			e, _ := newTestEngine(mock)
			result, err := e.Run(context.Background(), p)

			assert.Equal(t, tt.wantCode, result.ExitCode)
			assert.Equal(t, tt.wantCode, perrors.ExitCode(err))
			assert.Equal(t, tt.err != nil, err != nil, "nonzero iff a command failed")
		})
	}
}

func TestEngine_Announcements(t *testing.T) {
	mock := testutil.NewMockCommandRunner()
	p := plan.Plan{Name: "announced", Steps: []plan.Step{
		plan.NewStep("update", "apt-get", "update"),
		plan.NewStep("install", "apt-get", "install", "-y", "ffmpeg"),
		plan.NewStep("pip", "pip", "install", "-r", "requirements.txt"),
	}}
	p.Steps[0].Announce = "Installing system packages..."
	p.Steps[2].Announce = "Installing Python requirements..."

	e, out := newTestEngine(mock)
	_, err := e.Run(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, "Installing system packages...\nInstalling Python requirements...\n", out.String())
}

func TestEngine_AnnouncementPrintedBeforeFailingStep(t *testing.T) {
	mock := testutil.NewMockCommandRunner()
	p := plan.Plan{Name: "announced", Steps: []plan.Step{
		plan.NewStep("update", "apt-get", "update"),
		plan.NewStep("pip", "pip", "install", "-r", "requirements.txt"),
	}}
	p.Steps[0].Announce = "Installing system packages..."
	p.Steps[1].Announce = "Installing Python requirements..."
	mock.SetResponse("apt-get", []string{"update"}, testutil.Fail(100))

	e, out := newTestEngine(mock)
	_, err := e.Run(context.Background(), p)
	require.Error(t, err)

	assert.Equal(t, "Installing system packages...\n", out.String())
}

type recordingHook struct {
	mu      sync.Mutex
	name    string
	results []*Result
	err     error
}

func (h *recordingHook) Name() string { return h.name }

func (h *recordingHook) AfterRun(ctx context.Context, result *Result) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.results = append(h.results, result)
	return h.err
}

func TestEngine_HooksSeeTerminalResult(t *testing.T) {
	mock := testutil.NewMockCommandRunner()
	p := planOf(3)
	mock.SetResponse(p.Steps[1].Command, p.Steps[1].Args, testutil.Fail(7))

	failingHook := &recordingHook{name: "broken", err: errors.New("history unavailable")}
	hook := &recordingHook{name: "recorder"}

	e, _ := newTestEngine(mock, WithHooks(failingHook, hook))
	result, err := e.Run(context.Background(), p)

	require.Error(t, err)
	assert.Equal(t, 7, perrors.ExitCode(err), "hook failures never change the exit status")

	require.Len(t, failingHook.results, 1)
	require.Len(t, hook.results, 1, "later hooks still run after a hook fails")
	assert.Same(t, result, hook.results[0])
	assert.True(t, hook.results[0].State.Terminal())
	assert.Equal(t, StateFailed, hook.results[0].State)
}

func TestEngine_HookFailureDoesNotFailSuccessfulRun(t *testing.T) {
	mock := testutil.NewMockCommandRunner()
	hook := HookFunc{HookName: "explode", Fn: func(context.Context, *Result) error {
		return errors.New("boom")
	}}

	e, _ := newTestEngine(mock, WithHooks(hook))
	result, err := e.Run(context.Background(), planOf(2))

	testutil.AssertNoError(t, err)
	assert.Equal(t, StateSucceeded, result.State)
}

func TestEngine_CancelledContextStopsRemainingSteps(t *testing.T) {
	mock := testutil.NewMockCommandRunner()
	p := planOf(3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The first step cancels the run while it is executing, like SIGINT would.
	mock.SetResponse(p.Steps[0].Command, p.Steps[0].Args, testutil.CommandResponse{
		Run: func(context.Context) error {
			cancel()
			return nil
		},
	})

	e, _ := newTestEngine(mock)
	result, err := e.Run(ctx, p)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, lines(p)[:1], mock.ExecutedLines())
	assert.Equal(t, StateFailed, result.State)
	assert.Equal(t, "step-2", result.FailedStep)
	assert.Equal(t, 1, result.ExitCode)
}

func TestEngine_HooksRunAfterCancellation(t *testing.T) {
	mock := testutil.NewMockCommandRunner()
	var hookCtxErr error
	hook := HookFunc{HookName: "ctx", Fn: func(ctx context.Context, _ *Result) error {
		hookCtxErr = ctx.Err()
		return nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e, _ := newTestEngine(mock, WithHooks(hook))
	_, err := e.Run(ctx, planOf(1))

	require.Error(t, err)
	assert.NoError(t, hookCtxErr)
	assert.Empty(t, mock.GetExecutedCommands())
}

func TestEngine_RunLogger(t *testing.T) {
	dir := t.TempDir()
	rl, err := logger.NewRunLogger("run-test", filepath.Join(dir, "run"), logger.Discard())
	require.NoError(t, err)

	mock := testutil.NewMockCommandRunner()
	p := planOf(2)
	mock.SetResponse(p.Steps[1].Command, p.Steps[1].Args, testutil.Fail(5))

	e, _ := newTestEngine(mock, WithRunLogger(rl))
	_, runErr := e.Run(context.Background(), p)
	require.Error(t, runErr)
	require.NoError(t, rl.Close())

	data, err := os.ReadFile(rl.LogFilePath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "$ stand-in 1")
	assert.Contains(t, string(data), "$ stand-in 2")
	assert.Contains(t, string(data), "Exit Status: 5")
}

func TestEngine_StepDurationsUseClock(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var ticks int
	clock := func() time.Time {
		ticks++
		return base.Add(time.Duration(ticks) * time.Second)
	}

	mock := testutil.NewMockCommandRunner()
	e, _ := newTestEngine(mock, WithClock(clock))
	result, err := e.Run(context.Background(), planOf(1))
	require.NoError(t, err)

	require.Len(t, result.Steps, 1)
	assert.Equal(t, time.Second, result.Steps[0].Duration)
	assert.Equal(t, 3*time.Second, result.Duration())
}
