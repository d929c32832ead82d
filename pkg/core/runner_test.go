package core

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/blackcoderx/postbox/pkg/history"
	"github.com/blackcoderx/postbox/pkg/storage"
)

// mockExecutor implements the Executor interface for testing
type mockExecutor struct {
	calls       int
	last        *ResolvedRequest
	executeFunc func(req *ResolvedRequest) (*Response, error)
}

func (m *mockExecutor) Execute(ctx context.Context, req *ResolvedRequest) (*Response, error) {
	m.calls++
	m.last = req
	if m.executeFunc != nil {
		return m.executeFunc(req)
	}
	return &Response{StatusCode: 200, StatusText: "OK", Body: "pong", ElapsedMs: 3}, nil
}

type mockRecorder struct {
	entries []history.Entry
	err     error
}

func (m *mockRecorder) Append(ctx context.Context, entry history.Entry) (history.Entry, error) {
	m.entries = append(m.entries, entry)
	return entry, m.err
}

func TestRunner_Run(t *testing.T) {
	exec := &mockExecutor{}
	rec := &mockRecorder{}
	runner := NewRunner(NewResolver(nil, nil), exec, rec)

	result, err := runner.Run(context.Background(), RunRequest{
		RequestSpec: storage.RequestSpec{
			Method:  "POST",
			URL:     storage.URL{Raw: "{{base}}/ping"},
			Headers: []storage.KeyValue{{Key: "X-Env", Value: "{{env}}"}},
			Query:   []storage.KeyValue{{Key: "v", Value: "{{env}}"}, {Key: "off", Value: "1", Disabled: true}},
			Body:    "hello",
		},
		Environment: Inline([]storage.Variable{
			{Key: "base", Value: "https://svc.test", Enabled: true},
			{Key: "env", Value: "dev", Enabled: true},
		}),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if exec.calls != 1 {
		t.Errorf("executor called %d times, want 1", exec.calls)
	}
	if result.Request.URL != "https://svc.test/ping?v=dev" {
		t.Errorf("sent URL = %q", result.Request.URL)
	}
	if result.Request.Method != "POST" || result.Request.Body != "hello" {
		t.Errorf("sent request = %+v", result.Request)
	}
	if result.Request.Headers[0].Value != "dev" {
		t.Errorf("sent header = %q", result.Request.Headers[0].Value)
	}
	if result.Response.Body != "pong" {
		t.Errorf("response body = %q", result.Response.Body)
	}

	if len(rec.entries) != 1 {
		t.Fatalf("recorded %d entries, want 1", len(rec.entries))
	}
	entry := rec.entries[0]
	if entry.Method != "POST" || entry.URL != "https://svc.test/ping?v=dev" || entry.StatusCode != 200 || entry.DurationMs != 3 {
		t.Errorf("entry = %+v", entry)
	}
}

func TestRunner_ExecutionError(t *testing.T) {
	boom := errors.New("connection refused")
	exec := &mockExecutor{executeFunc: func(req *ResolvedRequest) (*Response, error) {
		return nil, &ExecutionError{Method: req.Method, URL: req.DialURL(), Err: boom}
	}}
	rec := &mockRecorder{}
	runner := NewRunner(NewResolver(nil, nil), exec, rec)

	_, err := runner.Run(context.Background(), RunRequest{
		RequestSpec: storage.RequestSpec{URL: storage.URL{Raw: "http://localhost:1/x"}},
	})
	if !IsExecutionError(err) {
		t.Fatalf("Run() error = %v, want an ExecutionError", err)
	}
	if !errors.Is(err, boom) {
		t.Error("ExecutionError does not unwrap to the transport error")
	}
	if len(rec.entries) != 1 || rec.entries[0].Error == "" {
		t.Errorf("failed run not recorded: %+v", rec.entries)
	}
}

func TestRunner_ResolveErrorSkipsExecution(t *testing.T) {
	exec := &mockExecutor{}
	rec := &mockRecorder{}
	collections := storage.NewCollectionStore(storage.NewMemoryStore())
	runner := NewRunner(NewResolver(collections, nil), exec, rec)

	_, err := runner.Run(context.Background(), RunRequest{
		RequestSpec: storage.RequestSpec{CollectionName: "Missing", EndpointName: "X"},
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Run() error = %v, want ErrNotFound", err)
	}
	if exec.calls != 0 {
		t.Error("executor called despite resolve failure")
	}
	if len(rec.entries) != 0 {
		t.Error("history recorded for a request that was never sent")
	}
}

func TestRunner_RecorderFailureIsNotFatal(t *testing.T) {
	rec := &mockRecorder{err: errors.New("disk full")}
	runner := NewRunner(NewResolver(nil, nil), &mockExecutor{}, rec)

	if _, err := runner.Run(context.Background(), RunRequest{
		RequestSpec: storage.RequestSpec{URL: storage.URL{Raw: "https://x.test"}},
	}); err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}
}

func TestRunRequestUnmarshal(t *testing.T) {
	data := `{
		"collectionName": "Users",
		"endpointName": "GetUser",
		"params": [{"key": "page", "value": 2}],
		"environment": {"name": "dev", "values": [{"name": "id", "current": "9"}]}
	}`

	var req RunRequest
	if err := json.Unmarshal([]byte(data), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if req.CollectionName != "Users" || req.EndpointName != "GetUser" {
		t.Errorf("names = %q/%q", req.CollectionName, req.EndpointName)
	}
	if len(req.Query) != 1 || req.Query[0].Value != "2" {
		t.Errorf("params alias not applied: %+v", req.Query)
	}
	if req.Environment.Name != "dev" {
		t.Errorf("environment name = %q", req.Environment.Name)
	}
	want := storage.Variable{Key: "id", Value: "9", Enabled: true}
	if len(req.Environment.Values) != 1 || req.Environment.Values[0] != want {
		t.Errorf("environment values = %+v", req.Environment.Values)
	}
}
