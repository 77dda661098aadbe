package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"provisioner/internal/config"
	"provisioner/internal/dao"
	"provisioner/pkg/engine"
	perrors "provisioner/pkg/errors"
	"provisioner/pkg/logger"
	"provisioner/pkg/plan"
	"provisioner/pkg/probe"
	"provisioner/pkg/speech"
	"provisioner/pkg/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Plan:    plan.DefaultPlan,
		History: config.HistoryConfig{Driver: config.HistoryNone},
		Server:  config.ServerConfig{Port: "8080"},
	}
}

func TestProvisionExecutor_RunsDefaultPlan(t *testing.T) {
	mock := testutil.NewMockCommandRunner()
	var out bytes.Buffer

	exec := NewProvisionExecutor(testConfig(), logger.Discard(),
		WithCommandRunner(mock), WithAnnouncementOutput(&out))
	result, err := exec.Execute(context.Background(), "")

	require.NoError(t, err)
	assert.Equal(t, plan.DefaultPlan, result.Plan)
	assert.Equal(t, []string{
		"apt-get update",
		"apt-get install -y ffmpeg libsndfile1 libavcodec-extra",
		"pip install --upgrade pip",
		"pip install -r requirements.txt",
	}, mock.ExecutedLines())
	assert.Empty(t, out.String())
}

func TestProvisionExecutor_VerbosePlanAnnounces(t *testing.T) {
	mock := testutil.NewMockCommandRunner()
	var out bytes.Buffer

	exec := NewProvisionExecutor(testConfig(), logger.Discard(),
		WithCommandRunner(mock), WithAnnouncementOutput(&out))
	_, err := exec.Execute(context.Background(), "render-build-verbose")

	require.NoError(t, err)
	assert.Equal(t, "Installing system packages...\nInstalling Python requirements...\n", out.String())
}

func TestProvisionExecutor_UnknownPlan(t *testing.T) {
	exec := NewProvisionExecutor(testConfig(), logger.Discard(), WithCommandRunner(testutil.NewMockCommandRunner()))

	result, err := exec.Execute(context.Background(), "nope")
	testutil.AssertError(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, perrors.ErrPlanNotFound)
}

func TestProvisionExecutor_RecordsHistoryAndRunLog(t *testing.T) {
	historyDir := t.TempDir()
	runsDir := t.TempDir()
	store, err := dao.NewFileRunDAO(historyDir, logger.Discard())
	require.NoError(t, err)

	cfg := testConfig()
	cfg.RunsDir = runsDir

	mock := testutil.NewMockCommandRunner()
	mock.SetResponse("pip", []string{"install", "--upgrade", "pip"}, testutil.Fail(2))

	exec := NewProvisionExecutor(cfg, logger.Discard(),
		WithCommandRunner(mock), WithHistory(store), WithAnnouncementOutput(&bytes.Buffer{}))
	result, runErr := exec.Execute(context.Background(), plan.DefaultPlan)

	require.Error(t, runErr)
	assert.Equal(t, 2, perrors.ExitCode(runErr))
	assert.Len(t, mock.ExecutedLines(), 3)

	run, err := store.GetRunByUUID(result.RunID)
	require.NoError(t, err)
	assert.Equal(t, "failed", run.Status)
	assert.Equal(t, "upgrade-pip", run.FailedStep)
	assert.Equal(t, 2, run.ExitCode)

	logs, err := filepath.Glob(filepath.Join(runsDir, "render-build_*", "provision.log"))
	require.NoError(t, err)
	require.Len(t, logs, 1)
	data, err := os.ReadFile(logs[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "PROVISIONING FAILED")
}

func TestProvisionExecutor_ExtraHooks(t *testing.T) {
	var seen *engine.Result
	hook := engine.HookFunc{HookName: "capture", Fn: func(_ context.Context, r *engine.Result) error {
		seen = r
		return nil
	}}

	exec := NewProvisionExecutor(testConfig(), logger.Discard(),
		WithCommandRunner(testutil.NewMockCommandRunner()), WithExtraHooks(hook), WithAnnouncementOutput(&bytes.Buffer{}))
	result, err := exec.Execute(context.Background(), "")

	require.NoError(t, err)
	assert.Same(t, result, seen)
}

func TestRunService_HistoryDisabled(t *testing.T) {
	svc := NewRunService(nil)

	_, _, err := svc.ListRuns(1, 10)
	assert.ErrorIs(t, err, perrors.ErrHistoryDisabled)
	_, err = svc.GetRunByUUID("x")
	assert.ErrorIs(t, err, perrors.ErrHistoryDisabled)
}

func TestPlanService(t *testing.T) {
	svc := NewPlanService(nil)

	plans := svc.ListPlans()
	require.Len(t, plans, 2)
	assert.Equal(t, "render-build", plans[0].Name)
	assert.True(t, plans[0].Default)
	assert.False(t, plans[1].Default)
	assert.Equal(t, "apt-get update", plans[0].Steps[0].Command)

	got, err := svc.GetPlan("render-build-verbose")
	require.NoError(t, err)
	assert.Equal(t, "Installing system packages...", got.Steps[0].Announce)

	_, err = svc.GetPlan("missing")
	assert.ErrorIs(t, err, perrors.ErrPlanNotFound)
}

type stubProber struct {
	info probe.Info
	err  error
}

func (s stubProber) FFmpeg(context.Context) (probe.Info, error) { return s.info, s.err }

func TestStatusService(t *testing.T) {
	svc := NewStatusService(stubProber{info: probe.Info{Found: true, Path: "/usr/bin/ffmpeg"}})

	status := svc.Status()
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, ServiceName, status.Service)
	assert.Equal(t, []string{"render-build", "render-build-verbose"}, status.Plans)

	info, err := svc.FFmpeg(context.Background())
	require.NoError(t, err)
	assert.True(t, info.Found)

	failing := NewStatusService(stubProber{err: errors.New("boom")})
	_, err = failing.FFmpeg(context.Background())
	assert.Error(t, err)
}

func TestOpenHistory(t *testing.T) {
	cfg := testConfig()
	store, err := OpenHistory(cfg, logger.Discard())
	require.NoError(t, err)
	assert.Nil(t, store)

	cfg.History = config.HistoryConfig{Driver: config.HistoryFile, Dir: t.TempDir()}
	store, err = OpenHistory(cfg, logger.Discard())
	require.NoError(t, err)
	require.NotNil(t, store)
	_, isWatcher := store.(Watcher)
	assert.True(t, isWatcher)
}

func TestSpeechService_Validation(t *testing.T) {
	svc := NewSpeechService(config.SpeechConfig{}, logger.Discard())

	tests := []struct {
		name    string
		req     SpeakRequest
		message string
	}{
		{name: "empty text", req: SpeakRequest{Text: ""}, message: "text is required"},
		{name: "blank text", req: SpeakRequest{Text: "   \n"}, message: "text is required"},
		{name: "unknown format", req: SpeakRequest{Text: "hello", Format: "ogg"}, message: "format must be mp3 or wav"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Speak(context.Background(), tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, perrors.ErrInvalidSpeech)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestSpeechService_LocalPlaceholder(t *testing.T) {
	svc := NewSpeechService(config.SpeechConfig{}, logger.Discard())

	for _, format := range []string{"", "mp3", "WAV"} {
		audio, err := svc.Speak(context.Background(), SpeakRequest{Text: "hello", Format: format})
		require.NoError(t, err)
		assert.Equal(t, "audio/wav", audio.ContentType)
		assert.Equal(t, speech.StubAudio(), audio.Data)
	}
}

func TestSpeechService_Upstream(t *testing.T) {
	var got SpeakRequest
	var gotPath string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3fake"))
	}))
	defer upstream.Close()

	svc := NewSpeechService(config.SpeechConfig{UpstreamURL: upstream.URL + "/"}, logger.Discard())
	audio, err := svc.Speak(context.Background(), SpeakRequest{Text: "  hello  ", Voice: "demo-speaker-0"})
	require.NoError(t, err)

	assert.Equal(t, "/speak", gotPath)
	assert.Equal(t, SpeakRequest{Text: "hello", Voice: "demo-speaker-0", Format: "mp3", Speed: 1.0}, got)
	assert.Equal(t, "audio/mpeg", audio.ContentType)
	assert.Equal(t, []byte("ID3fake"), audio.Data)
}

func TestSpeechService_UpstreamFailures(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer failing.Close()

	svc := NewSpeechService(config.SpeechConfig{UpstreamURL: failing.URL}, logger.Discard())
	_, err := svc.Speak(context.Background(), SpeakRequest{Text: "hello", Format: "wav"})
	require.Error(t, err)
	assert.ErrorIs(t, err, perrors.ErrUpstream)
	assert.Contains(t, err.Error(), "status 503")

	closed := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	closedURL := closed.URL
	closed.Close()

	svc = NewSpeechService(config.SpeechConfig{UpstreamURL: closedURL, Timeout: time.Second}, logger.Discard())
	_, err = svc.Speak(context.Background(), SpeakRequest{Text: "hello"})
	assert.ErrorIs(t, err, perrors.ErrUpstream)
}
