package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/blackcoderx/postbox/pkg/storage"
	"github.com/spf13/cobra"
)

// requestFlags are the ad-hoc request fields shared by run and save.
type requestFlags struct {
	method  string
	url     string
	body    string
	headers []string
	query   []string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.method, "method", "X", "", "HTTP method (default GET)")
	cmd.Flags().StringVar(&f.url, "url", "", "request URL, may contain {{variables}}")
	cmd.Flags().StringVarP(&f.body, "body", "d", "", "raw request body, or @file to read it from a file")
	cmd.Flags().StringArrayVarP(&f.headers, "header", "H", nil, `request header as "Name: value" (repeatable)`)
	cmd.Flags().StringArrayVarP(&f.query, "query", "q", nil, "query parameter as key=value (repeatable)")
}

// spec builds a request spec from the flags.
func (f *requestFlags) spec() (storage.RequestSpec, error) {
	spec := storage.RequestSpec{
		Method: strings.ToUpper(f.method),
		URL:    storage.URL{Raw: f.url},
	}

	for _, h := range f.headers {
		kv, err := parseHeader(h)
		if err != nil {
			return spec, err
		}
		spec.Headers = append(spec.Headers, kv)
	}
	for _, q := range f.query {
		key, value, ok := strings.Cut(q, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return spec, fmt.Errorf("%w: query %q must be key=value", storage.ErrValidation, q)
		}
		spec.Query = append(spec.Query, storage.KeyValue{Key: strings.TrimSpace(key), Value: value})
	}

	body, err := readBody(f.body)
	if err != nil {
		return spec, err
	}
	spec.Body = body
	return spec, nil
}

// parseHeader accepts "Name: value" and, for convenience, "Name=value".
func parseHeader(h string) (storage.KeyValue, error) {
	key, value, ok := strings.Cut(h, ":")
	if !ok {
		key, value, ok = strings.Cut(h, "=")
	}
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return storage.KeyValue{}, fmt.Errorf("%w: header %q must be \"Name: value\"", storage.ErrValidation, h)
	}
	return storage.KeyValue{Key: key, Value: strings.TrimSpace(value)}, nil
}

func readBody(body string) (string, error) {
	path, ok := strings.CutPrefix(body, "@")
	if !ok {
		return body, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read body file: %w", err)
	}
	return string(data), nil
}
