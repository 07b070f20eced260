package scene

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// Fetcher downloads scenes over HTTP, retrying transient failures.
type Fetcher struct {
	client *retryablehttp.Client
	logger *zap.Logger
}

// FetchOption configures a Fetcher.
type FetchOption func(*Fetcher)

// WithFetchLogger sets the fetcher logger. Retries are logged at debug level.
func WithFetchLogger(logger *zap.Logger) FetchOption {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithRetry sets the retry budget and backoff bounds.
func WithRetry(maxRetries int, minWait, maxWait time.Duration) FetchOption {
	return func(f *Fetcher) {
		f.client.RetryMax = maxRetries
		f.client.RetryWaitMin = minWait
		f.client.RetryWaitMax = maxWait
	}
}

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) FetchOption {
	return func(f *Fetcher) {
		f.client.HTTPClient.Timeout = d
	}
}

// NewFetcher creates a fetcher with three retries.
func NewFetcher(opts ...FetchOption) *Fetcher {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 10 * time.Second
	client.HTTPClient.Timeout = 30 * time.Second

	f := &Fetcher{client: client, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	client.Logger = leveledLogger{f.logger.Sugar()}
	return f
}

// Fetch downloads and parses the scene at rawURL. The format comes from
// the response content type, falling back to the URL path extension.
// Scripts must be inline; file references are rejected.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Scene, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid scene url %q", rawURL)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build scene request: %w", err)
	}
	req.Header.Set("Accept", "application/yaml, application/toml;q=0.9, text/plain;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch scene %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch scene %s: unexpected status %s", rawURL, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxSceneSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read scene %s: %w", rawURL, err)
	}

	format, err := formatOfResponse(resp.Header.Get("Content-Type"), u.Path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rawURL, err)
	}
	for _, sc := range s.Scripts {
		if sc.File != "" {
			return nil, fmt.Errorf("%w: remote scene %q references script file %q", ErrInvalidScene, s.Name, sc.File)
		}
	}
	s.Origin = rawURL

	f.logger.Info("Scene fetched",
		zap.String("url", rawURL),
		zap.String("scene", s.Name),
		zap.Int("scripts", len(s.Scripts)),
	)
	return s, nil
}

func formatOfResponse(contentType, path string) (Format, error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch {
	case strings.HasSuffix(mediaType, "yaml"):
		return FormatYAML, nil
	case strings.HasSuffix(mediaType, "toml"):
		return FormatTOML, nil
	}
	return FormatOf(path)
}

// leveledLogger adapts zap to retryablehttp.LeveledLogger.
type leveledLogger struct {
	*zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, keysAndValues ...any) { l.Errorw(msg, keysAndValues...) }
func (l leveledLogger) Info(msg string, keysAndValues ...any)  { l.Debugw(msg, keysAndValues...) }
func (l leveledLogger) Debug(msg string, keysAndValues ...any) { l.Debugw(msg, keysAndValues...) }
func (l leveledLogger) Warn(msg string, keysAndValues ...any)  { l.Warnw(msg, keysAndValues...) }

var _ retryablehttp.LeveledLogger = leveledLogger{}
