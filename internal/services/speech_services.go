package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"provisioner/internal/config"
	perrors "provisioner/pkg/errors"
	"provisioner/pkg/logger"
	"provisioner/pkg/speech"
)

const defaultSpeechTimeout = 120 * time.Second

// SpeakRequest is the body of POST /speak. It is forwarded unchanged, apart
// from defaults, when an upstream is configured.
type SpeakRequest struct {
	Text   string  `json:"text"`
	Voice  string  `json:"voice,omitempty"`
	Format string  `json:"format"`
	Speed  float64 `json:"speed"`
	Pitch  float64 `json:"pitch"`
}

type Audio struct {
	ContentType string
	Data        []byte
}

type SpeechServiceMethods interface {
	Speak(ctx context.Context, req SpeakRequest) (*Audio, error)
}

type speechService struct {
	upstream   string
	httpClient *http.Client
	logger     *logger.Logger
}

type SpeechOption func(*speechService)

func WithHTTPClient(client *http.Client) SpeechOption {
	return func(s *speechService) {
		s.httpClient = client
	}
}

func NewSpeechService(cfg config.SpeechConfig, log *logger.Logger, opts ...SpeechOption) SpeechServiceMethods {
	if log == nil {
		log = logger.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSpeechTimeout
	}

	s := &speechService{
		upstream:   strings.TrimRight(strings.TrimSpace(cfg.UpstreamURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Speak validates req, then proxies it to the upstream synthesiser or, with
// none configured, returns the local placeholder audio.
func (s *speechService) Speak(ctx context.Context, req SpeakRequest) (*Audio, error) {
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		return nil, fmt.Errorf("%w: text is required", perrors.ErrInvalidSpeech)
	}

	req.Format = strings.ToLower(strings.TrimSpace(req.Format))
	if req.Format == "" {
		req.Format = speech.FormatMP3
	}
	if !speech.SupportedFormat(req.Format) {
		return nil, fmt.Errorf("%w: format must be mp3 or wav", perrors.ErrInvalidSpeech)
	}
	if req.Speed == 0 {
		req.Speed = 1.0
	}

	if s.upstream != "" {
		return s.proxy(ctx, req)
	}

	s.logger.WithFields(logger.Fields{
		"format": req.Format,
		"chars":  len(req.Text),
	}).Debug("Returning placeholder audio")
	return &Audio{
		ContentType: speech.MimeType(speech.FormatWAV),
		Data:        speech.StubAudio(),
	}, nil
}

func (s *speechService) proxy(ctx context.Context, req SpeakRequest) (*Audio, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal speak request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.upstream+"/speak", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", perrors.ErrUpstream, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", perrors.ErrUpstream, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", perrors.ErrUpstream, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: status %d: %s", perrors.ErrUpstream, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = speech.MimeType(req.Format)
	}
	s.logger.WithFields(logger.Fields{
		"upstream": s.upstream,
		"bytes":    len(data),
	}).Debug("Proxied speak request")
	return &Audio{ContentType: contentType, Data: data}, nil
}
