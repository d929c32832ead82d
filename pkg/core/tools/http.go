package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/blackcoderx/postbox/pkg/core"
	"github.com/blackcoderx/postbox/pkg/storage"
	"golang.org/x/time/rate"
)

// DefaultTimeout bounds a single exchange when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// HTTPTool executes resolved requests over net/http.
type HTTPTool struct {
	client  *http.Client
	limiter *rate.Limiter
}

// HTTPOption configures an HTTPTool.
type HTTPOption func(*HTTPTool)

// WithTimeout sets the client timeout for each exchange.
func WithTimeout(d time.Duration) HTTPOption {
	return func(t *HTTPTool) {
		if d > 0 {
			t.client.Timeout = d
		}
	}
}

// WithRateLimit caps outgoing requests per second. Zero or less disables it.
func WithRateLimit(requestsPerSecond float64) HTTPOption {
	return func(t *HTTPTool) {
		if requestsPerSecond <= 0 {
			t.limiter = nil
			return
		}
		burst := int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

// WithClient replaces the underlying client, e.g. for httptest servers.
func WithClient(c *http.Client) HTTPOption {
	return func(t *HTTPTool) {
		if c != nil {
			t.client = c
		}
	}
}

// NewHTTPTool creates a new HTTP executor
func NewHTTPTool(opts ...HTTPOption) *HTTPTool {
	t := &HTTPTool{
		client: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Execute performs one attempt (implements core.Executor). Transport failures
// come back as *core.ExecutionError.
func (t *HTTPTool) Execute(ctx context.Context, req *core.ResolvedRequest) (*core.Response, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	target := req.DialURL()
	fail := func(err error) error {
		return &core.ExecutionError{Method: method, URL: target, Err: err}
	}

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fail(err)
		}
	}

	var bodyReader io.Reader
	if req.Body != "" {
		bodyReader = strings.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fail(fmt.Errorf("failed to create request: %w", err))
	}
	for _, h := range req.Headers {
		if h.Key == "" || h.Disabled {
			continue
		}
		httpReq.Header.Add(h.Key, h.Value)
	}
	if req.Body != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", guessContentType(req.Body))
	}

	startTime := time.Now()
	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fail(err)
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fail(fmt.Errorf("failed to read response: %w", err))
	}
	elapsed := time.Since(startTime)

	return &core.Response{
		StatusCode: httpResp.StatusCode,
		StatusText: statusText(httpResp),
		Headers:    flattenHeaders(httpResp.Header),
		Body:       string(bodyBytes),
		ElapsedMs:  elapsed.Milliseconds(),
	}, nil
}

// statusText strips the numeric code from "200 OK".
func statusText(resp *http.Response) string {
	if _, text, ok := strings.Cut(resp.Status, " "); ok {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

// flattenHeaders emits one entry per value, sorted by header name.
func flattenHeaders(h http.Header) []storage.KeyValue {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]storage.KeyValue, 0, len(names))
	for _, name := range names {
		for _, value := range h[name] {
			out = append(out, storage.KeyValue{Key: name, Value: value})
		}
	}
	return out
}

func guessContentType(body string) string {
	trimmed := strings.TrimSpace(body)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return "application/json"
	}
	return "text/plain; charset=utf-8"
}
