package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EnvironmentExts are the recognized environment file suffixes, in load
// preference order. The first one is also the suffix every save writes.
var EnvironmentExts = []string{".json", ".postman_environment", ".postman_environment.json"}

// ExportedUsing is recorded in saved environment documents.
const ExportedUsing = "postbox"

// EnvironmentStore reads and writes environment documents.
type EnvironmentStore struct {
	blobs BlobStore
	now   func() time.Time
}

type environmentDocument struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Values        []Variable `json:"values"`
	Scope         string     `json:"_postman_variable_scope"`
	ExportedAt    string     `json:"_postman_exported_at"`
	ExportedUsing string     `json:"_postman_exported_using"`
}

// NewEnvironmentStore returns a store over blobs.
func NewEnvironmentStore(blobs BlobStore) *EnvironmentStore {
	return &EnvironmentStore{blobs: blobs, now: time.Now}
}

// SetClock replaces the time source used for export timestamps.
func (s *EnvironmentStore) SetClock(now func() time.Time) {
	s.now = now
}

// List returns the sorted, de-duplicated identifiers of stored environments.
// Only the final extension is stripped, so "dev.postman_environment.json"
// lists as "dev.postman_environment", which Load resolves through the
// ".json" candidate.
func (s *EnvironmentStore) List() ([]string, error) {
	keys, err := s.blobs.Keys()
	if err != nil {
		return nil, err
	}
	return uniqueSorted(keys, func(key string) (string, bool) {
		lower := strings.ToLower(key)
		for _, ext := range EnvironmentExts {
			if strings.HasSuffix(lower, ext) {
				if i := strings.LastIndex(key, "."); i > 0 {
					return key[:i], true
				}
				return "", false
			}
		}
		return "", false
	}), nil
}

// Load reads the named environment, trying each recognized extension.
func (s *EnvironmentStore) Load(name string) (*Environment, error) {
	id, err := SanitizeName(name)
	if err != nil {
		return nil, err
	}

	for _, ext := range EnvironmentExts {
		data, err := s.blobs.Get(id + ext)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("environment %q: %w", name, err)
		}
		env, err := decodeEnvironment(data, id)
		if err != nil {
			return nil, fmt.Errorf("environment %q: %w", name, err)
		}
		return env, nil
	}
	return nil, fmt.Errorf("environment %q: %w", name, ErrNotFound)
}

// Save writes vars as the canonical document for name, always under the
// primary extension.
func (s *EnvironmentStore) Save(name string, vars []Variable) (*Environment, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: environment name required", ErrValidation)
	}
	id, err := SanitizeName(name)
	if err != nil {
		return nil, err
	}

	values := make([]Variable, 0, len(vars))
	values = append(values, vars...)
	doc := environmentDocument{
		ID:            id + "-env",
		Name:          name,
		Values:        values,
		Scope:         "environment",
		ExportedAt:    s.now().UTC().Format(time.RFC3339),
		ExportedUsing: ExportedUsing,
	}
	data, err := encodeDocument(doc)
	if err != nil {
		return nil, err
	}
	if err := s.blobs.Put(id+EnvironmentExts[0], data); err != nil {
		if errors.Is(err, ErrWrite) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: environment %q: %v", ErrWrite, name, err)
	}
	return &Environment{Name: name, Values: values}, nil
}

func decodeEnvironment(data []byte, id string) (*Environment, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	var raw []any
	if list, ok := doc["values"].([]any); ok {
		raw = list
	} else if list, ok := doc["variables"].([]any); ok {
		raw = list
	} else if nested, ok := doc["environment"].(map[string]any); ok {
		if list, ok := nested["values"].([]any); ok {
			raw = list
		}
	}

	values := make([]Variable, 0, len(raw))
	for _, item := range raw {
		fields, _ := item.(map[string]any)
		values = append(values, normalizeVariable(fields))
	}

	name := id
	if n, ok := doc["name"].(string); ok && n != "" {
		name = n
	}
	return &Environment{Name: name, Values: values}, nil
}

var (
	variableKeyFields   = []string{"key", "name", "variable", "var"}
	variableValueFields = []string{"value", "current", "default"}
)

// normalizeVariable maps one loosely shaped variable onto {key, value,
// enabled}. For key and value the first field holding a truthy value wins.
// enabled is true when absent and follows JavaScript truthiness otherwise.
func normalizeVariable(fields map[string]any) Variable {
	v := Variable{
		Key:     firstText(fields, variableKeyFields),
		Value:   firstText(fields, variableValueFields),
		Enabled: true,
	}
	if raw, ok := fields["enabled"]; ok {
		v.Enabled = truthy(raw)
	}
	return v
}

// firstText skips falsy values, so 0 and false fall through to the next field.
func firstText(fields map[string]any, names []string) string {
	for _, name := range names {
		v := fields[name]
		if !truthy(v) {
			continue
		}
		if s := textOf(v); s != "" {
			return s
		}
	}
	return ""
}

func textOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	default:
		return true
	}
}
