// Package probe inspects the toolchain a provisioning run installs.
package probe

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// Info describes the ffmpeg binary found on PATH.
type Info struct {
	Found       bool   `json:"ffmpeg_found"`
	Path        string `json:"path"`
	VersionLine string `json:"version_line,omitempty"`
}

type Prober struct {
	lookPath func(file string) (string, error)
	output   func(ctx context.Context, name string, args ...string) ([]byte, error)
	timeout  time.Duration
}

type Option func(*Prober)

// WithLookPath replaces exec.LookPath.
func WithLookPath(fn func(file string) (string, error)) Option {
	return func(p *Prober) {
		p.lookPath = fn
	}
}

// WithOutput replaces running the binary and capturing stdout.
func WithOutput(fn func(ctx context.Context, name string, args ...string) ([]byte, error)) Option {
	return func(p *Prober) {
		p.output = fn
	}
}

func WithTimeout(d time.Duration) Option {
	return func(p *Prober) {
		p.timeout = d
	}
}

func NewProber(opts ...Option) *Prober {
	p := &Prober{
		lookPath: exec.LookPath,
		output:   commandOutput,
		timeout:  defaultTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func commandOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// FFmpeg reports whether ffmpeg is on PATH and, if so, the first line of
// `ffmpeg -version`. A missing binary is not an error.
func (p *Prober) FFmpeg(ctx context.Context) (Info, error) {
	path, err := p.lookPath("ffmpeg")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return Info{Found: false}, nil
		}
		return Info{}, fmt.Errorf("failed to locate ffmpeg: %w", err)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	out, err := p.output(ctx, path, "-version")
	if err != nil {
		return Info{}, fmt.Errorf("failed to run %s -version: %w", path, err)
	}

	return Info{Found: true, Path: path, VersionLine: firstLine(out)}, nil
}

func firstLine(out []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text())
	}
	return ""
}

var defaultProber = NewProber()

// FFmpeg probes with the default Prober.
func FFmpeg(ctx context.Context) (Info, error) {
	return defaultProber.FFmpeg(ctx)
}
