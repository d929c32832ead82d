package core

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/blackcoderx/postbox/pkg/storage"
	"github.com/blackcoderx/postbox/pkg/vars"
)

// EndpointFinder looks up a stored endpoint and returns a copy of it.
type EndpointFinder interface {
	FindEndpoint(collection, endpoint string) (*storage.Node, error)
}

// EnvironmentLoader loads a stored environment by name.
type EnvironmentLoader interface {
	Load(name string) (*storage.Environment, error)
}

// Resolver turns request specs into execution-ready requests.
type Resolver struct {
	endpoints    EndpointFinder
	environments EnvironmentLoader
	skipDisabled bool
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithSkipDisabled drops variables marked disabled before substitution.
func WithSkipDisabled(skip bool) ResolverOption {
	return func(r *Resolver) {
		r.skipDisabled = skip
	}
}

// NewResolver creates a resolver. Either dependency may be nil, in which case
// stored lookups report ErrNotFound and named environments resolve empty.
func NewResolver(endpoints EndpointFinder, environments EnvironmentLoader, opts ...ResolverOption) *Resolver {
	r := &Resolver{endpoints: endpoints, environments: environments}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var httpURLPattern = regexp.MustCompile(`(?i)^https?://`)

// Resolve loads the request named by spec (or uses spec itself when it does
// not name a stored endpoint), picks the variables for env, and substitutes
// them into the URL, query values, header values and raw body. Each field is
// substituted independently over the full variable list.
func (r *Resolver) Resolve(spec storage.RequestSpec, env EnvironmentSelection) (*ResolvedRequest, error) {
	resolved, err := r.source(spec)
	if err != nil {
		return nil, err
	}

	values, err := r.variables(env)
	if err != nil {
		return nil, err
	}

	resolved.URL = resolveURL(resolved.URL, values)
	for i := range resolved.Headers {
		resolved.Headers[i].Value = vars.Substitute(resolved.Headers[i].Value, values)
	}
	for i := range resolved.Query {
		resolved.Query[i].Value = vars.Substitute(resolved.Query[i].Value, values)
	}
	resolved.Body = vars.Substitute(resolved.Body, values)
	return resolved, nil
}

func (r *Resolver) source(spec storage.RequestSpec) (*ResolvedRequest, error) {
	if spec.CollectionName == "" || spec.EndpointName == "" {
		method := spec.Method
		if method == "" {
			method = "GET"
		}
		return &ResolvedRequest{
			Method:  method,
			URL:     spec.URL.Clone(),
			Headers: cloneKeyValues(spec.Headers),
			Query:   cloneKeyValues(spec.Query),
			Body:    spec.Body,
		}, nil
	}

	if r.endpoints == nil {
		return nil, fmt.Errorf("collection %q: %w", spec.CollectionName, storage.ErrNotFound)
	}
	node, err := r.endpoints.FindEndpoint(spec.CollectionName, spec.EndpointName)
	if err != nil {
		return nil, err
	}
	req := node.Request
	if req == nil {
		return nil, fmt.Errorf("endpoint %q: %w", spec.EndpointName, storage.ErrNotFound)
	}

	out := &ResolvedRequest{
		Name:    node.Name,
		Method:  req.Method,
		URL:     req.URL,
		Headers: cloneKeyValues(req.Header),
		Query:   cloneKeyValues(spec.Query),
	}
	if out.Method == "" {
		out.Method = "GET"
	}
	if req.Body != nil {
		out.Body = req.Body.Raw
	}
	return out, nil
}

// variables returns the inline values when given; otherwise the named
// environment, where a missing environment yields an empty list.
func (r *Resolver) variables(env EnvironmentSelection) ([]storage.Variable, error) {
	values := env.Values
	if values == nil && env.Name != "" && r.environments != nil {
		loaded, err := r.environments.Load(env.Name)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			values = nil
		case err != nil:
			return nil, err
		default:
			values = loaded.Values
		}
	}
	if r.skipDisabled {
		values = vars.Enabled(values)
	}
	return values, nil
}

// resolveURL substitutes into a string URL and promotes it to structured form
// when the result parses. For a structured URL it substitutes raw and the query
// values, then backfills only the components that were absent.
func resolveURL(u storage.URL, values []storage.Variable) storage.URL {
	if !u.Structured {
		substituted := vars.Substitute(u.Raw, values)
		if parsed, ok := storage.ToStructured(substituted); ok {
			return parsed
		}
		return storage.URL{Raw: substituted}
	}

	out := u.Clone()
	if out.Raw != "" {
		out.Raw = vars.Substitute(out.Raw, values)
		if httpURLPattern.MatchString(out.Raw) {
			if parsed, ok := storage.ToStructured(out.Raw); ok {
				if out.Protocol == "" {
					out.Protocol = parsed.Protocol
				}
				if out.Host == nil {
					out.Host = parsed.Host
				}
				if out.Path == nil {
					out.Path = parsed.Path
				}
				if out.Port == "" && parsed.Port != "" {
					out.Port = parsed.Port
				}
			}
		}
	}
	for i := range out.Query {
		out.Query[i].Value = vars.Substitute(out.Query[i].Value, values)
	}
	return out
}

func cloneKeyValues(in []storage.KeyValue) []storage.KeyValue {
	out := make([]storage.KeyValue, len(in))
	copy(out, in)
	return out
}
