package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RunLogger mirrors a provisioning run into provision.log and error.log
// inside the run directory, in addition to the regular log output.
type RunLogger struct {
	*Logger
	runID     string
	runDir    string
	logFile   *os.File
	errorFile *os.File
	mu        sync.Mutex
}

func NewRunLogger(runID, runDir string, base *Logger) (*RunLogger, error) {
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	logFile, err := os.OpenFile(filepath.Join(runDir, "provision.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	errorFile, err := os.OpenFile(filepath.Join(runDir, "error.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("failed to create error log file: %w", err)
	}

	header := fmt.Sprintf("\n=== Provisioning Log Started: %s ===\n", time.Now().Format(time.RFC3339))
	header += fmt.Sprintf("Run ID: %s\n", runID)
	header += fmt.Sprintf("Run Directory: %s\n", runDir)
	header += "==========================================\n\n"
	logFile.WriteString(header)

	l := logrus.New()
	l.SetLevel(base.GetLevel())
	l.SetFormatter(base.Formatter)
	l.SetOutput(io.MultiWriter(base.Out, logFile))

	return &RunLogger{
		Logger:    &Logger{Logger: l},
		runID:     runID,
		runDir:    runDir,
		logFile:   logFile,
		errorFile: errorFile,
	}, nil
}

// Output returns a writer that appends child process output to provision.log.
func (rl *RunLogger) Output() io.Writer {
	return lockedWriter{mu: &rl.mu, w: rl.logFile}
}

type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (lw lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

func (rl *RunLogger) LogStepHeader(stepName, commandLine string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.logFile.WriteString(fmt.Sprintf("\n--- [%s] Step: %s ---\n$ %s\n", time.Now().Format(time.RFC3339), stepName, commandLine))
}

func (rl *RunLogger) LogRunFailure(stepName string, exitCode int, err error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	failureMsg := fmt.Sprintf("\n=== PROVISIONING FAILED: %s ===\n", time.Now().Format(time.RFC3339))
	failureMsg += fmt.Sprintf("Run ID: %s\n", rl.runID)
	failureMsg += fmt.Sprintf("Step: %s\n", stepName)
	failureMsg += fmt.Sprintf("Exit Status: %d\n", exitCode)
	if err != nil {
		failureMsg += fmt.Sprintf("Error: %v\n", err)
	}
	failureMsg += "=====================================\n\n"

	rl.logFile.WriteString(failureMsg)
	rl.errorFile.WriteString(failureMsg)
}

func (rl *RunLogger) LogRunSuccess(steps int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	successMsg := fmt.Sprintf("\n=== PROVISIONING COMPLETED SUCCESSFULLY: %s ===\n", time.Now().Format(time.RFC3339))
	successMsg += fmt.Sprintf("Run ID: %s\n", rl.runID)
	successMsg += fmt.Sprintf("Steps: %d\n", steps)
	successMsg += "=========================================\n\n"

	rl.logFile.WriteString(successMsg)
}

func (rl *RunLogger) Close() error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	var errs []error

	if rl.logFile != nil {
		footer := fmt.Sprintf("\n=== Provisioning Log Ended: %s ===\n", time.Now().Format(time.RFC3339))
		rl.logFile.WriteString(footer)

		if err := rl.logFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close log file: %w", err))
		}
	}

	if rl.errorFile != nil {
		if err := rl.errorFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close error file: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing run logger: %v", errs)
	}

	return nil
}

func (rl *RunLogger) LogFilePath() string {
	return filepath.Join(rl.runDir, "provision.log")
}

func (rl *RunLogger) ErrorLogFilePath() string {
	return filepath.Join(rl.runDir, "error.log")
}
