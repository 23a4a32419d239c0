package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"condense/internal/logging"
	"condense/internal/services"
)

const (
	defaultHTTPTimeout    = 120 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryAttempts  = 3
)

// Config captures the runtime settings required to talk to a backend.
type Config struct {
	Kind    string
	BaseURL string
	Model   string
	Timeout time.Duration
	// Params are sampling parameters merged into every request body.
	Params map[string]any
}

// DefaultHTTPTimeout returns the default timeout used for backend requests.
func DefaultHTTPTimeout() time.Duration {
	return defaultHTTPTimeout
}

// Generation is one successful generate call.
type Generation struct {
	Text string
	// Raw is the unmodified response body.
	Raw json.RawMessage
}

// Client issues generate requests against a single backend.
type Client struct {
	cfg        Config
	adapter    Adapter
	httpClient *http.Client
	logger     *slog.Logger

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the default retry count (defaults to 3).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithLogger attaches a logger used for retry warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient constructs a backend client. Kind selects the adapter.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	adapter, err := LookupAdapter(cfg.Kind)
	if err != nil {
		return nil, services.Wrap(services.ErrConfig, "backend", "new client", "Unsupported backend", err)
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfig, "backend", "new client", "Backend URL required", nil)
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Host == "" {
		return nil, services.Wrap(services.ErrConfig, "backend", "new client", fmt.Sprintf("Invalid backend URL %q", baseURL), err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	client := &Client{
		cfg: Config{
			Kind:    adapter.Name(),
			BaseURL: baseURL,
			Model:   strings.TrimSpace(cfg.Model),
			Timeout: timeout,
			Params:  cfg.Params,
		},
		adapter:          adapter,
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: timeout}
	}
	client.logger = logging.NewComponentLogger(client.logger, "backend")
	return client, nil
}

// Kind reports the canonical adapter name.
func (c *Client) Kind() string { return c.adapter.Name() }

// Model reports the configured model name.
func (c *Client) Model() string { return c.cfg.Model }

// Endpoint returns the generate URL. A base URL with its own path is used verbatim.
func (c *Client) Endpoint() string {
	parsed, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return c.cfg.BaseURL
	}
	if parsed.Path == "" || parsed.Path == "/" {
		parsed.Path = c.adapter.GeneratePath()
	}
	return parsed.String()
}

func (c *Client) healthURL() string {
	parsed, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return strings.TrimRight(c.cfg.BaseURL, "/") + c.adapter.HealthPath()
	}
	root := url.URL{Scheme: parsed.Scheme, Host: parsed.Host, User: parsed.User}
	root.Path = c.adapter.HealthPath()
	return root.String()
}

// StatusError reports a non-2xx backend response.
type StatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend request: http %d: %s", e.StatusCode, summarizePayloadSnippet(e.Body))
}

type emptyContentError struct {
	Snippet string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("backend request: empty generated text (response_snippet=%s)", e.Snippet)
}

// RequestBody builds the JSON body sent for prompt. Sampling parameters
// override the adapter defaults; prompt, model, and stream always come from
// the client.
func (c *Client) RequestBody(prompt string) map[string]any {
	body := c.adapter.DefaultBody(c.cfg.Model, prompt)
	if len(c.cfg.Params) == 0 {
		return body
	}
	body = MergeParams(body, cloneParams(c.cfg.Params))
	return applyOwnedKeys(body, c.adapter.DefaultBody(c.cfg.Model, prompt))
}

// Generate sends prompt to the backend, retrying failed attempts.
func (c *Client) Generate(ctx context.Context, prompt string) (Generation, error) {
	encoded, err := json.Marshal(c.RequestBody(prompt))
	if err != nil {
		return Generation{}, services.Wrap(services.ErrConfig, "backend", "encode request", "Sampling parameters are not JSON-encodable", err)
	}

	attempts := c.retryAttempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		generation, err := c.generateOnce(ctx, encoded)
		if err == nil {
			return generation, nil
		}
		lastErr = err
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Generation{}, fmt.Errorf("backend generate: %w", ctxErr)
		}

		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			break
		}
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "backend request failed; retrying", "backend_retry",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", attempts),
			logging.Duration("delay", delay),
			logging.String("url", c.Endpoint()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the backend is running and the model is loaded"),
			logging.String(logging.FieldImpact, "request will be retried"),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return Generation{}, fmt.Errorf("backend generate: %w", err)
		}
	}

	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return Generation{}, services.Wrap(
		services.ErrBackend,
		"backend",
		"generate",
		fmt.Sprintf("%s request failed after %d attempts", c.adapter.Name(), attempts),
		lastErr,
	)
}

func (c *Client) generateOnce(ctx context.Context, encoded []byte) (Generation, error) {
	endpoint := c.Endpoint()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return Generation{}, fmt.Errorf("backend request: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Generation{}, fmt.Errorf("backend request: http error (timeout=%s): %w", c.timeoutDuration(), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Generation{}, fmt.Errorf("backend request: read body (timeout=%s): %w", c.timeoutDuration(), err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return Generation{}, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}
	text, err := c.adapter.ExtractText(body)
	if err != nil {
		return Generation{}, fmt.Errorf("backend request: %w (response_snippet=%s)", err, summarizePayloadSnippet(string(body)))
	}
	if strings.TrimSpace(text) == "" {
		return Generation{}, &emptyContentError{Snippet: summarizePayloadSnippet(string(body))}
	}
	return Generation{Text: text, Raw: json.RawMessage(bytes.TrimSpace(body))}, nil
}

// HealthCheck issues a single GET against the adapter's health endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	target := c.healthURL()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return services.Wrap(services.ErrBackend, "backend", "health", "Build health request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrBackend, "backend", "health", fmt.Sprintf("Backend unreachable at %s", target), err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return services.Wrap(services.ErrBackend, "backend", "health", fmt.Sprintf("Health endpoint %s returned an error", target), &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		})
	}
	return nil
}

func (c *Client) timeoutDuration() time.Duration {
	if c == nil || c.httpClient == nil || c.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.httpClient.Timeout
}

func (c *Client) retryAttempts() int {
	if c == nil || c.retryMaxAttempts <= 0 {
		return 1
	}
	return c.retryMaxAttempts
}

// retryDelay treats every failure as transient; only context errors stop the loop early.
func (c *Client) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts || err == nil {
		return 0, false
	}
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return 0, false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
		return c.capDelay(statusErr.RetryAfter), true
	}
	return c.backoffDelay(attempt), true
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	base := defaultRetryBaseDelay
	maxDelay := defaultRetryMaxDelay
	if c != nil {
		if c.retryBaseDelay >= 0 {
			base = c.retryBaseDelay
		}
		if c.retryMaxDelay > 0 {
			maxDelay = c.retryMaxDelay
		}
	}
	if base <= 0 {
		return 0
	}
	if attempt <= 0 {
		attempt = 1
	}

	// attempt 1 -> base, attempt 2 -> base*2, attempt 3 -> base*4, ...
	delay := base
	for i := 1; i < attempt; i++ {
		if delay > maxDelay/2 {
			delay = maxDelay
			break
		}
		delay *= 2
	}
	return c.capDelay(delay)
}

func (c *Client) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	maxDelay := defaultRetryMaxDelay
	if c != nil && c.retryMaxDelay > 0 {
		maxDelay = c.retryMaxDelay
	}
	if maxDelay > 0 && delay > maxDelay {
		return maxDelay
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c != nil && c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}

func cloneParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for key, value := range params {
		if nested, ok := value.(map[string]any); ok {
			out[key] = cloneParams(nested)
			continue
		}
		out[key] = value
	}
	return out
}

func summarizePayloadSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
