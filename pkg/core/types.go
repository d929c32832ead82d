// Package core provides request resolution, the execution adapter contract,
// and the run loop that ties collections, environments and history together.
package core

import (
	"context"
	"fmt"

	"github.com/blackcoderx/postbox/pkg/storage"
)

// ResolvedRequest is a request with every variable substituted and its URL
// normalized. It is what an Executor receives.
type ResolvedRequest struct {
	// Name is the endpoint name, or empty for ad-hoc requests.
	Name string `json:"name,omitempty"`
	// Method is the HTTP method; GET when the source left it empty.
	Method string `json:"method"`
	// URL is structured when the substituted string parsed as an absolute URL.
	URL storage.URL `json:"url"`
	// Headers are sent in order; disabled entries are kept but not sent.
	Headers []storage.KeyValue `json:"headers"`
	// Query holds extra parameters appended to the URL at execution time.
	Query []storage.KeyValue `json:"query,omitempty"`
	// Body is the raw body, empty when the request has none.
	Body string `json:"body,omitempty"`
}

// DialURL is the URL an executor should dial: the URL's target string with
// the enabled extra query pairs appended.
func (r *ResolvedRequest) DialURL() string {
	extra := make([]storage.KeyValue, 0, len(r.Query))
	for _, kv := range r.Query {
		if !kv.Disabled {
			extra = append(extra, kv)
		}
	}
	return storage.AppendQuery(r.URL.Target(), extra)
}

// Response is what an Executor returns for a completed exchange.
type Response struct {
	// StatusCode is the numeric HTTP status.
	StatusCode int `json:"code"`
	// StatusText is the reason phrase, e.g. "OK".
	StatusText string `json:"status"`
	// Headers are the response headers, one entry per value.
	Headers []storage.KeyValue `json:"headers"`
	// Body is the response body as text.
	Body string `json:"body"`
	// ElapsedMs is the wall time of the exchange in milliseconds.
	ElapsedMs int64 `json:"elapsedMs"`
}

// Executor performs a resolved request. Implementations own timeout and
// rate-limit policy; callers make one attempt and never retry.
type Executor interface {
	Execute(ctx context.Context, req *ResolvedRequest) (*Response, error)
}

// ExecutionError wraps a transport failure reported by an Executor.
type ExecutionError struct {
	Method string
	URL    string
	Err    error
}

func (e *ExecutionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("execute %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// EnvironmentSelection picks the variables used for substitution: Values
// when non-nil, otherwise the stored environment called Name.
type EnvironmentSelection struct {
	Name   string             `json:"name,omitempty"`
	Values []storage.Variable `json:"values,omitempty"`
}

// Inline builds a selection from an explicit variable list.
func Inline(values []storage.Variable) EnvironmentSelection {
	if values == nil {
		values = []storage.Variable{}
	}
	return EnvironmentSelection{Values: values}
}

// Named builds a selection that loads the stored environment name.
func Named(name string) EnvironmentSelection {
	return EnvironmentSelection{Name: name}
}
