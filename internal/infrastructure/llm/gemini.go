package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"quantprep/internal/config"
	"quantprep/internal/pkg/logger"

	"google.golang.org/genai"
)

const (
	maxOutputTokens   = 2048
	defaultAPIVersion = "v1beta"
)

var apiVersionRe = regexp.MustCompile(`^v\d+(alpha|beta)?\d*$`)

type geminiClient struct {
	models *genai.Models
	model  string
	log    *logger.Logger
}

// NewGemini builds a Gemini API client. GeminiURL may carry the API
// version as its last path segment (".../v1beta").
func NewGemini(ctx context.Context, cfg config.AIConfig, log *logger.Logger) (Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	base, version := splitAPIVersion(cfg.GeminiURL)

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.GeminiAPIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    base,
			APIVersion: version,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &geminiClient{models: client.Models, model: strings.TrimSpace(cfg.GeminiModel), log: log}, nil
}

func (c *geminiClient) Generate(ctx context.Context, req Request) (string, error) {
	if c == nil || c.models == nil {
		return "", ErrNilClient
	}

	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens: maxOutputTokens,
	})
	if err != nil {
		c.log.Warn("gemini request failed", "model", c.model, "purpose", req.Purpose, "error", err)
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}

	c.log.Debug("gemini request completed", "model", c.model, "purpose", req.Purpose, "duration_ms", time.Since(start).Milliseconds())
	return text, nil
}

// splitAPIVersion separates a trailing version segment from raw. An empty
// base leaves the SDK default endpoint in place.
func splitAPIVersion(raw string) (string, string) {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return "", defaultAPIVersion
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw + "/", defaultAPIVersion
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	version := defaultAPIVersion
	if last := segs[len(segs)-1]; apiVersionRe.MatchString(last) {
		version = last
		segs = segs[:len(segs)-1]
	}
	u.Path = strings.Join(segs, "/")
	if u.Path != "" {
		u.Path = "/" + u.Path
	}
	return u.String() + "/", version
}

var _ Client = (*geminiClient)(nil)
