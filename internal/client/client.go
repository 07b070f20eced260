package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	apihttp "github.com/GriffinCanCode/motionbridge/internal/api/http"
	"github.com/GriffinCanCode/motionbridge/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/motionbridge/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/motionbridge/internal/native"
	"github.com/GriffinCanCode/motionbridge/internal/registry"
	"github.com/GriffinCanCode/motionbridge/internal/script"
	"github.com/GriffinCanCode/motionbridge/internal/stage"
)

const userAgent = "motionctl/" + apihttp.Version

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
	// Code is the native error code of a failed UI method call.
	Code *int
}

func (e *APIError) Error() string {
	if e.Code != nil {
		return fmt.Sprintf("devtools: %d: %s (code %d)", e.Status, e.Message, *e.Code)
	}
	return fmt.Sprintf("devtools: %d: %s", e.Status, e.Message)
}

// Client talks to a devtools server.
type Client struct {
	resty   *resty.Client
	breaker *resilience.Breaker
	mu      sync.RWMutex
	limiter *rate.Limiter
}

type options struct {
	timeout    time.Duration
	maxRetries int
	minWait    time.Duration
	maxWait    time.Duration
	breaker    resilience.Settings
	transport  http.RoundTripper
}

// Option configures a Client.
type Option func(*options)

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithRetry configures retries of failed requests.
func WithRetry(maxRetries int, minWait, maxWait time.Duration) Option {
	return func(o *options) {
		o.maxRetries = maxRetries
		o.minWait = minWait
		o.maxWait = maxWait
	}
}

// WithBreaker replaces the circuit breaker settings.
func WithBreaker(settings resilience.Settings) Option {
	return func(o *options) { o.breaker = settings }
}

// WithTransport replaces the HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	o := options{
		timeout:    30 * time.Second,
		maxRetries: 2,
		minWait:    200 * time.Millisecond,
		maxWait:    5 * time.Second,
		breaker: resilience.Settings{
			Timeout: 10 * time.Second,
			ReadyToTrip: func(c resilience.Counts) bool {
				return c.ConsecutiveFailures >= 5
			},
		},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.breaker.IsFailure == nil {
		o.breaker.IsFailure = isFailure
	}
	if o.transport == nil {
		o.transport = retryablehttp.NewClient().HTTPClient.Transport
	}

	r := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(o.timeout).
		SetRetryCount(o.maxRetries).
		SetRetryWaitTime(o.minWait).
		SetRetryMaxWaitTime(o.maxWait).
		SetTransport(o.transport).
		SetHeader("User-Agent", userAgent).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err != nil || resp.StatusCode() == http.StatusServiceUnavailable ||
				resp.StatusCode() == http.StatusTooManyRequests
		})

	return &Client{
		resty:   r,
		breaker: resilience.New("devtools", o.breaker),
		limiter: rate.NewLimiter(rate.Inf, 0),
	}
}

// isFailure counts transport errors and 5xx responses against the breaker.
func isFailure(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= http.StatusInternalServerError
	}
	return err != nil
}

// SetRateLimit limits outgoing requests per second. Zero removes the limit.
func (c *Client) SetRateLimit(rps float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rps <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 0)
		return
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
}

// BreakerState returns the circuit breaker state.
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

// BaseURL returns the server URL.
func (c *Client) BaseURL() string {
	return c.resty.BaseURL
}

type errorBody struct {
	Error string `json:"error"`
	Code  *int   `json:"code"`
}

// do sends a request. On a non-2xx response it returns an *APIError; when
// decodeFailure is set, the response body is decoded into out as well.
func (c *Client) do(ctx context.Context, method, path string, body, out any, decodeFailure bool) error {
	c.mu.RLock()
	limiter := c.limiter
	c.mu.RUnlock()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit error: %w", err)
	}

	return c.breaker.Do(func() error {
		req := c.resty.R().SetContext(ctx)
		tracing.Inject(ctx, req.Header)
		if body != nil {
			req.SetBody(body)
		}
		if out != nil {
			req.SetResult(out)
		}

		resp, err := req.Execute(method, path)
		if err != nil {
			return err
		}
		if !resp.IsError() {
			return nil
		}

		apiErr := &APIError{Status: resp.StatusCode(), Message: resp.Status()}
		var eb errorBody
		if sonic.Unmarshal(resp.Body(), &eb) == nil {
			if eb.Error != "" {
				apiErr.Message = eb.Error
			}
			apiErr.Code = eb.Code
		}
		if decodeFailure && out != nil {
			_ = sonic.Unmarshal(resp.Body(), out)
		}
		return apiErr
	})
}

// Health is the /health response.
type Health struct {
	Status string       `json:"status"`
	Stage  stage.Status `json:"stage"`
}

// Health reports flush and registry state.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, &h, false); err != nil {
		return nil, err
	}
	return &h, nil
}

// Tree is a rendering of the native tree.
type Tree struct {
	Seq     uint64      `json:"seq"`
	HTML    string      `json:"html"`
	Pending []native.Op `json:"pending"`
}

// Tree returns the page as of the last flush, or with pending writes when
// live is set.
func (c *Client) Tree(ctx context.Context, live bool) (*Tree, error) {
	var t Tree
	path := "/api/tree"
	if live {
		path += "?live=true"
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &t, false); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadPage replaces the page.
func (c *Client) LoadPage(ctx context.Context, html string) error {
	return c.do(ctx, http.MethodPost, "/api/page", html, nil, false)
}

// RunScript executes source. The result is returned for failed runs too.
func (c *Client) RunScript(ctx context.Context, source string) (*script.Result, error) {
	var res script.Result
	err := c.do(ctx, http.MethodPost, "/api/scripts", apihttp.ScriptRequest{Source: source}, &res, true)
	if err != nil && res.RunID == "" {
		return nil, err
	}
	return &res, err
}

// Console returns console history, filtered by runID when set.
func (c *Client) Console(ctx context.Context, runID string) ([]script.LogEntry, error) {
	var out struct {
		Entries []script.LogEntry `json:"entries"`
	}
	req := "/api/console"
	if runID != "" {
		req += "?run_id=" + url.QueryEscape(runID)
	}
	if err := c.do(ctx, http.MethodGet, req, nil, &out, false); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

// ResetRuntime drops script globals and timers.
func (c *Client) ResetRuntime(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/runtime/reset", nil, nil, false)
}

// LogLevel reports the server log level.
func (c *Client) LogLevel(ctx context.Context) (string, error) {
	var out struct {
		Level string `json:"level"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/log-level", nil, &out, false); err != nil {
		return "", err
	}
	return out.Level, nil
}

// SetLogLevel changes the server log level.
func (c *Client) SetLogLevel(ctx context.Context, level string) (string, error) {
	var out struct {
		Level string `json:"level"`
	}
	req := apihttp.LogLevelRequest{Level: level}
	if err := c.do(ctx, http.MethodPut, "/api/log-level", req, &out, false); err != nil {
		return "", err
	}
	return out.Level, nil
}

// Query describes matching nodes.
func (c *Client) Query(ctx context.Context, q apihttp.QueryRequest) ([]native.Node, error) {
	var out struct {
		Nodes []native.Node `json:"nodes"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/query", q, &out, false); err != nil {
		return nil, err
	}
	return out.Nodes, nil
}

// Invoke calls a native UI method on the first element matching selector.
func (c *Client) Invoke(ctx context.Context, selector, method string, params map[string]any) (any, error) {
	var out struct {
		Data any `json:"data"`
	}
	req := apihttp.InvokeRequest{Selector: selector, Method: method, Params: params}
	if err := c.do(ctx, http.MethodPost, "/api/invoke", req, &out, false); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Animation reports started animations.
type Animation struct {
	Count    int               `json:"count"`
	Handles  []registry.Handle `json:"handles"`
	Finished bool              `json:"finished"`
}

// Animate starts animations on matching elements.
func (c *Client) Animate(ctx context.Context, req apihttp.AnimateRequest) (*Animation, error) {
	var a Animation
	if err := c.do(ctx, http.MethodPost, "/api/animate", req, &a, false); err != nil {
		return nil, err
	}
	return &a, nil
}

// StopAnimation stops the animation registered under h.
func (c *Client) StopAnimation(ctx context.Context, h registry.Handle) error {
	path := "/api/animations/" + strconv.FormatUint(uint64(h), 10)
	return c.do(ctx, http.MethodDelete, path, nil, nil, false)
}

// Registry is the handle table summary.
type Registry struct {
	Handles int                        `json:"handles"`
	Exports map[string]registry.Handle `json:"exports"`
	Easings []string                   `json:"easings"`
}

// Registry reports the handle table.
func (c *Client) Registry(ctx context.Context) (*Registry, error) {
	var r Registry
	if err := c.do(ctx, http.MethodGet, "/api/registry", nil, &r, false); err != nil {
		return nil, err
	}
	return &r, nil
}

// PlayScene plays an inline scene or one the server fetches from a URL.
func (c *Client) PlayScene(ctx context.Context, req apihttp.SceneRequest) (*stage.PlayResult, error) {
	var res stage.PlayResult
	if err := c.do(ctx, http.MethodPost, "/api/scenes", req, &res, false); err != nil {
		return nil, err
	}
	return &res, nil
}
