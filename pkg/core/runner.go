package core

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/blackcoderx/postbox/pkg/history"
	"github.com/blackcoderx/postbox/pkg/storage"
)

// Recorder receives one entry per completed or failed execution.
type Recorder interface {
	Append(ctx context.Context, entry history.Entry) (history.Entry, error)
}

// RunRequest is a request spec plus the environment to resolve it against.
type RunRequest struct {
	storage.RequestSpec
	Environment EnvironmentSelection `json:"environment"`
}

// UnmarshalJSON decodes the spec fields and the environment selection from
// the same object.
func (r *RunRequest) UnmarshalJSON(data []byte) error {
	var spec storage.RequestSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return err
	}
	var aux struct {
		Environment *EnvironmentSelection `json:"environment"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.RequestSpec = spec
	r.Environment = EnvironmentSelection{}
	if aux.Environment != nil {
		r.Environment = *aux.Environment
	}
	return nil
}

// RunResult echoes what was sent alongside the response.
type RunResult struct {
	Request  SentRequest `json:"request"`
	Response *Response   `json:"response"`
}

// SentRequest is the wire view of a resolved request.
type SentRequest struct {
	Method  string             `json:"method"`
	URL     string             `json:"url"`
	Headers []storage.KeyValue `json:"headers"`
	Body    string             `json:"body,omitempty"`
}

// Runner resolves requests and hands them to an executor.
type Runner struct {
	resolver *Resolver
	executor Executor
	recorder Recorder
}

// NewRunner creates a runner. recorder may be nil.
func NewRunner(resolver *Resolver, executor Executor, recorder Recorder) *Runner {
	return &Runner{
		resolver: resolver,
		executor: executor,
		recorder: recorder,
	}
}

// Resolver returns the resolver used by Run.
func (r *Runner) Resolver() *Resolver {
	return r.resolver
}

// Run resolves req and executes it once. Resolution errors are returned
// before anything is sent; execution errors are returned as-is.
func (r *Runner) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	resolved, err := r.resolver.Resolve(req.RequestSpec, req.Environment)
	if err != nil {
		return nil, err
	}

	sent := SentRequest{
		Method:  resolved.Method,
		URL:     resolved.DialURL(),
		Headers: resolved.Headers,
		Body:    resolved.Body,
	}

	start := time.Now()
	resp, execErr := r.executor.Execute(ctx, resolved)
	r.record(ctx, req, sent, resp, execErr, time.Since(start))
	if execErr != nil {
		return nil, execErr
	}
	return &RunResult{Request: sent, Response: resp}, nil
}

func (r *Runner) record(ctx context.Context, req RunRequest, sent SentRequest, resp *Response, execErr error, elapsed time.Duration) {
	if r.recorder == nil {
		return
	}
	entry := history.Entry{
		Collection:  req.CollectionName,
		Endpoint:    req.EndpointName,
		Environment: req.Environment.Name,
		Method:      sent.Method,
		URL:         sent.URL,
		DurationMs:  elapsed.Milliseconds(),
	}
	if resp != nil {
		entry.StatusCode = resp.StatusCode
		entry.Status = resp.StatusText
		entry.DurationMs = resp.ElapsedMs
	}
	if execErr != nil {
		entry.Error = execErr.Error()
	}
	// Detach from the request context so a canceled client still gets logged.
	if _, err := r.recorder.Append(context.WithoutCancel(ctx), entry); err != nil {
		log.Printf("warning: failed to record history: %v", err)
	}
}

// IsExecutionError reports whether err came from the executor.
func IsExecutionError(err error) bool {
	var execErr *ExecutionError
	return errors.As(err, &execErr)
}
