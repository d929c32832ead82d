package core

import (
	"errors"
	"reflect"
	"testing"

	"github.com/blackcoderx/postbox/pkg/storage"
)

const usersCollection = `{
  "info": {"name": "Users"},
  "item": [
    {
      "name": "GetUser",
      "request": {
        "method": "GET",
        "header": [{"key": "Authorization", "value": "Bearer {{token}}"}],
        "url": {
          "raw": "{{baseUrl}}/users/{{id}}",
          "host": ["{{baseUrl}}"],
          "path": ["users", "{{id}}"],
          "query": [{"key": "expand", "value": "{{expand}}"}]
        }
      }
    },
    {
      "name": "CreateUser",
      "request": {
        "method": "POST",
        "header": [],
        "url": "{{baseUrl}}/users",
        "body": {"mode": "raw", "raw": "{\"name\":\"{{name}}\"}"}
      }
    },
    {
      "name": "Backfill",
      "request": {
        "url": {"raw": "https://{{host}}/v1/items"}
      }
    }
  ]
}`

func newTestResolver(t *testing.T, opts ...ResolverOption) *Resolver {
	t.Helper()
	collections := storage.NewMemoryStore()
	if err := collections.Put("Users.json", []byte(usersCollection)); err != nil {
		t.Fatalf("seed collection: %v", err)
	}
	environments := storage.NewMemoryStore()
	env := `{"name": "dev", "values": [
		{"key": "baseUrl", "value": "https://api.example.com"},
		{"key": "token", "value": "secret"},
		{"key": "id", "value": "7"},
		{"key": "expand", "value": "roles", "enabled": false}
	]}`
	if err := environments.Put("dev.json", []byte(env)); err != nil {
		t.Fatalf("seed environment: %v", err)
	}
	if err := environments.Put("broken.json", []byte(`{`)); err != nil {
		t.Fatalf("seed environment: %v", err)
	}
	return NewResolver(
		storage.NewCollectionStore(collections),
		storage.NewEnvironmentStore(environments),
		opts...,
	)
}

func TestResolve_AdHocStringURL(t *testing.T) {
	r := NewResolver(nil, nil)

	resolved, err := r.Resolve(
		storage.RequestSpec{URL: storage.URL{Raw: "https://api.example.com/users?id={{userId}}"}},
		Inline([]storage.Variable{{Key: "userId", Value: "42", Enabled: true}}),
	)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	u := resolved.URL
	if u.Raw != "https://api.example.com/users?id=42" {
		t.Errorf("Raw = %q", u.Raw)
	}
	if !u.Structured || u.Protocol != "https" {
		t.Errorf("URL not structured: %+v", u)
	}
	if !reflect.DeepEqual(u.Host, []string{"api", "example", "com"}) {
		t.Errorf("Host = %v", u.Host)
	}
	if !reflect.DeepEqual(u.Path, []string{"users"}) {
		t.Errorf("Path = %v", u.Path)
	}
	if resolved.Method != "GET" {
		t.Errorf("Method = %q, want GET", resolved.Method)
	}
	if got := resolved.DialURL(); got != "https://api.example.com/users?id=42" {
		t.Errorf("DialURL() = %q", got)
	}
}

func TestResolve_IdentityWithoutTokens(t *testing.T) {
	r := NewResolver(nil, nil)
	spec := storage.RequestSpec{
		Method:  "PATCH",
		URL:     storage.URL{Raw: "relative/path"},
		Headers: []storage.KeyValue{{Key: "X-Trace", Value: "abc"}, {Key: "X-Off", Value: "1", Disabled: true}},
		Query:   []storage.KeyValue{{Key: "q", Value: "1"}},
		Body:    `{"plain":true}`,
	}

	resolved, err := r.Resolve(spec, Inline([]storage.Variable{{Key: "unused", Value: "x", Enabled: true}}))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.Method != spec.Method || resolved.Body != spec.Body {
		t.Errorf("method/body changed: %+v", resolved)
	}
	if !reflect.DeepEqual(resolved.Headers, spec.Headers) {
		t.Errorf("Headers = %+v, want %+v", resolved.Headers, spec.Headers)
	}
	if !reflect.DeepEqual(resolved.Query, spec.Query) {
		t.Errorf("Query = %+v, want %+v", resolved.Query, spec.Query)
	}
	if resolved.URL.Structured || resolved.URL.Raw != "relative/path" {
		t.Errorf("URL = %+v, want the unparsed string", resolved.URL)
	}

	resolved.Headers[0].Value = "mutated"
	if spec.Headers[0].Value != "abc" {
		t.Error("Resolve shares header storage with the spec")
	}
}

func TestResolve_StoredEndpointWithNamedEnvironment(t *testing.T) {
	r := newTestResolver(t)

	resolved, err := r.Resolve(
		storage.RequestSpec{CollectionName: "Users", EndpointName: "GetUser"},
		Named("dev"),
	)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if resolved.Name != "GetUser" {
		t.Errorf("Name = %q", resolved.Name)
	}
	if resolved.Headers[0].Value != "Bearer secret" {
		t.Errorf("Authorization = %q", resolved.Headers[0].Value)
	}
	if resolved.URL.Raw != "https://api.example.com/users/7" {
		t.Errorf("Raw = %q", resolved.URL.Raw)
	}
	// Populated components are left as stored; only absent ones are backfilled.
	if !reflect.DeepEqual(resolved.URL.Host, []string{"{{baseUrl}}"}) {
		t.Errorf("Host = %v, want the stored value", resolved.URL.Host)
	}
	if resolved.URL.Protocol != "https" {
		t.Errorf("Protocol = %q, want backfilled https", resolved.URL.Protocol)
	}
	// Disabled variables still substitute by default.
	if got := resolved.URL.Query[0].Value; got != "roles" {
		t.Errorf("query expand = %q, want roles", got)
	}
	// The stored query is not part of raw, so it is appended when dialing.
	if got := resolved.DialURL(); got != "https://api.example.com/users/7?expand=roles" {
		t.Errorf("DialURL() = %q", got)
	}
}

func TestResolve_SkipDisabled(t *testing.T) {
	r := newTestResolver(t, WithSkipDisabled(true))

	resolved, err := r.Resolve(
		storage.RequestSpec{CollectionName: "Users", EndpointName: "GetUser"},
		Named("dev"),
	)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := resolved.URL.Query[0].Value; got != "{{expand}}" {
		t.Errorf("query expand = %q, want the token left verbatim", got)
	}
}

func TestResolve_StringURLBodyAndInlinePrecedence(t *testing.T) {
	r := newTestResolver(t)

	sel := Inline([]storage.Variable{
		{Key: "baseUrl", Value: "http://localhost:9000", Enabled: true},
		{Key: "name", Value: "ada", Enabled: true},
	})
	sel.Name = "dev"

	resolved, err := r.Resolve(storage.RequestSpec{CollectionName: "Users", EndpointName: "CreateUser"}, sel)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.Method != "POST" {
		t.Errorf("Method = %q", resolved.Method)
	}
	if resolved.Body != `{"name":"ada"}` {
		t.Errorf("Body = %q", resolved.Body)
	}
	if !resolved.URL.Structured || resolved.URL.Port != "9000" {
		t.Errorf("URL = %+v, want structured with port 9000", resolved.URL)
	}
	if got := resolved.DialURL(); got != "http://localhost:9000/users" {
		t.Errorf("DialURL() = %q", got)
	}
}

func TestResolve_BackfillsAbsentComponents(t *testing.T) {
	r := newTestResolver(t)

	resolved, err := r.Resolve(
		storage.RequestSpec{CollectionName: "Users", EndpointName: "Backfill"},
		Inline([]storage.Variable{{Key: "host", Value: "shop.example.com", Enabled: true}}),
	)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	u := resolved.URL
	if u.Protocol != "https" {
		t.Errorf("Protocol = %q", u.Protocol)
	}
	if !reflect.DeepEqual(u.Host, []string{"shop", "example", "com"}) {
		t.Errorf("Host = %v", u.Host)
	}
	if !reflect.DeepEqual(u.Path, []string{"v1", "items"}) {
		t.Errorf("Path = %v", u.Path)
	}
	if resolved.Method != "GET" {
		t.Errorf("Method = %q, want GET", resolved.Method)
	}
}

func TestResolve_Errors(t *testing.T) {
	r := newTestResolver(t)

	tests := []struct {
		name    string
		spec    storage.RequestSpec
		env     EnvironmentSelection
		wantErr error
	}{
		{
			name:    "missing collection",
			spec:    storage.RequestSpec{CollectionName: "Nope", EndpointName: "GetUser"},
			wantErr: storage.ErrNotFound,
		},
		{
			name:    "missing endpoint",
			spec:    storage.RequestSpec{CollectionName: "Users", EndpointName: "Nope"},
			wantErr: storage.ErrNotFound,
		},
		{
			name:    "malformed environment",
			spec:    storage.RequestSpec{URL: storage.URL{Raw: "https://x.test"}},
			env:     Named("broken"),
			wantErr: storage.ErrParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved, err := r.Resolve(tt.spec, tt.env)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Resolve() error = %v, want %v", err, tt.wantErr)
			}
			if resolved != nil {
				t.Errorf("expected no partial result, got %+v", resolved)
			}
		})
	}
}

func TestResolve_MissingNamedEnvironmentIsEmpty(t *testing.T) {
	r := newTestResolver(t)

	resolved, err := r.Resolve(
		storage.RequestSpec{URL: storage.URL{Raw: "{{baseUrl}}/x"}},
		Named("does-not-exist"),
	)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.URL.Raw != "{{baseUrl}}/x" {
		t.Errorf("Raw = %q, want unchanged", resolved.URL.Raw)
	}
}

func TestResolve_FieldsSubstituteIndependently(t *testing.T) {
	r := NewResolver(nil, nil)

	vars := []storage.Variable{
		{Key: "A", Value: "{{B}}", Enabled: true},
		{Key: "B", Value: "b", Enabled: true},
	}
	resolved, err := r.Resolve(storage.RequestSpec{
		URL:     storage.URL{Raw: "https://x.test/{{A}}"},
		Headers: []storage.KeyValue{{Key: "H", Value: "{{A}}"}},
		Body:    "{{B}}{{A}}",
	}, Inline(vars))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.URL.Raw != "https://x.test/b" {
		t.Errorf("Raw = %q", resolved.URL.Raw)
	}
	if resolved.Headers[0].Value != "b" {
		t.Errorf("header = %q", resolved.Headers[0].Value)
	}
	if resolved.Body != "bb" {
		t.Errorf("Body = %q", resolved.Body)
	}
}
