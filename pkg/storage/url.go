package storage

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"
)

// URL is either a raw string or a structured Postman-style URL. Structured
// records which form was read so the same form is written back.
type URL struct {
	Raw        string
	Protocol   string
	Host       []string
	Path       []string
	Port       string
	Query      []KeyValue
	Structured bool
}

type urlObject struct {
	Raw      string          `json:"raw"`
	Protocol string          `json:"protocol,omitempty"`
	Host     json.RawMessage `json:"host,omitempty"`
	Path     json.RawMessage `json:"path,omitempty"`
	Port     json.RawMessage `json:"port,omitempty"`
	Query    []KeyValue      `json:"query,omitempty"`
}

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
	"ws":    "80",
	"wss":   "443",
	"ftp":   "21",
}

// ToStructured parses raw as an absolute URL. It reports false when raw is not
// a well-formed absolute URL, in which case callers keep the string form.
func ToStructured(raw string) (URL, bool) {
	if raw == "" || strings.ContainsAny(raw, " \t\r\n") {
		return URL{}, false
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" {
		return URL{}, false
	}
	protocol := strings.ToLower(parsed.Scheme)
	if _, special := defaultPorts[protocol]; special && parsed.Hostname() == "" {
		return URL{}, false
	}

	out := URL{
		Raw:        raw,
		Protocol:   protocol,
		Host:       []string{},
		Path:       []string{},
		Structured: true,
	}
	if hostname := strings.ToLower(parsed.Hostname()); hostname != "" {
		if strings.Contains(hostname, ":") {
			// IPv6 literal: one bracketed label, not split on dots.
			out.Host = []string{"[" + hostname + "]"}
		} else {
			out.Host = strings.Split(hostname, ".")
		}
	}
	pathname := parsed.EscapedPath()
	if parsed.Opaque != "" {
		pathname = parsed.Opaque
	}
	out.Path = splitPath(pathname)
	if port := parsed.Port(); port != "" && defaultPorts[protocol] != port {
		out.Port = port
	}
	out.Query = parseQuery(parsed.RawQuery)
	return out, true
}

// StringForm rebuilds a URL string from the structured fields. Absent pieces
// are omitted without placeholder punctuation.
func (u URL) StringForm() string {
	var sb strings.Builder
	if u.Protocol != "" {
		sb.WriteString(u.Protocol)
		sb.WriteString("://")
	}
	host := strings.Join(u.Host, ".")
	sb.WriteString(host)
	if host != "" && u.Port != "" {
		sb.WriteString(":")
		sb.WriteString(u.Port)
	}
	if len(u.Path) > 0 {
		if host != "" {
			sb.WriteString("/")
		}
		sb.WriteString(strings.Join(u.Path, "/"))
	}
	return AppendQuery(sb.String(), u.Query)
}

// Target is the string an executor should dial. With Raw set, enabled query
// entries whose key Raw does not already carry are appended to it; otherwise
// the string form is rebuilt from the structured fields.
func (u URL) Target() string {
	if u.Raw == "" {
		return u.StringForm()
	}
	return AppendQuery(u.Raw, u.missingQuery())
}

func (u URL) missingQuery() []KeyValue {
	if len(u.Query) == 0 {
		return nil
	}
	_, rawQuery, _ := strings.Cut(u.Raw, "?")
	rawQuery, _, _ = strings.Cut(rawQuery, "#")
	present := map[string]struct{}{}
	for _, kv := range parseQuery(rawQuery) {
		present[kv.Key] = struct{}{}
	}

	var missing []KeyValue
	for _, kv := range u.Query {
		if kv.Key == "" || kv.Disabled {
			continue
		}
		if _, ok := present[kv.Key]; ok {
			continue
		}
		missing = append(missing, kv)
	}
	return missing
}

// Clone returns a deep copy of the URL.
func (u URL) Clone() URL {
	out := u
	out.Host = cloneStrings(u.Host)
	out.Path = cloneStrings(u.Path)
	out.Query = cloneKeyValues(u.Query)
	return out
}

// AppendQuery appends percent-encoded pairs to raw, joining with "&" when raw
// already carries a query and "?" otherwise. Pairs with empty keys are skipped.
func AppendQuery(raw string, pairs []KeyValue) string {
	encoded := encodeQuery(pairs)
	if encoded == "" {
		return raw
	}
	sep := "?"
	if strings.Contains(raw, "?") {
		sep = "&"
	}
	return raw + sep + encoded
}

func encodeQuery(pairs []KeyValue) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p.Key == "" {
			continue
		}
		parts = append(parts, escapeComponent(p.Key)+"="+escapeComponent(p.Value))
	}
	return strings.Join(parts, "&")
}

func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func parseQuery(rawQuery string) []KeyValue {
	if rawQuery == "" {
		return nil
	}
	var out []KeyValue
	for _, part := range strings.Split(rawQuery, "&") {
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		out = append(out, KeyValue{Key: unescapeComponent(key), Value: unescapeComponent(value)})
	}
	return out
}

func unescapeComponent(s string) string {
	if decoded, err := url.QueryUnescape(s); err == nil {
		return decoded
	}
	return s
}

func splitPath(p string) []string {
	segments := []string{}
	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}

// MarshalJSON writes a raw string for string-form URLs and an object otherwise.
func (u URL) MarshalJSON() ([]byte, error) {
	if !u.Structured {
		return json.Marshal(u.Raw)
	}
	obj := urlObject{
		Raw:      u.Raw,
		Protocol: u.Protocol,
		Query:    u.Query,
	}
	if len(u.Host) > 0 {
		obj.Host, _ = json.Marshal(u.Host)
	}
	if len(u.Path) > 0 {
		obj.Path, _ = json.Marshal(u.Path)
	}
	if u.Port != "" {
		obj.Port, _ = json.Marshal(u.Port)
	}
	return json.Marshal(obj)
}

// UnmarshalJSON accepts a string or an object whose host and path may each be
// a list or a single string.
func (u *URL) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*u = URL{}
		return nil
	}
	if trimmed[0] == '"' {
		var raw string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		*u = URL{Raw: raw}
		return nil
	}

	var obj urlObject
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return err
	}
	host, err := decodeSegments(obj.Host, ".")
	if err != nil {
		return err
	}
	path, err := decodeSegments(obj.Path, "/")
	if err != nil {
		return err
	}
	*u = URL{
		Raw:        obj.Raw,
		Protocol:   obj.Protocol,
		Host:       host,
		Path:       path,
		Port:       rawString(obj.Port),
		Query:      obj.Query,
		Structured: true,
	}
	return nil
}

// decodeSegments keeps nil for an absent field so callers can tell "missing"
// from "present but empty".
func decodeSegments(raw json.RawMessage, sep string) ([]string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, err
		}
		out := []string{}
		for _, part := range strings.Split(s, sep) {
			if part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	}
	var parts []any
	if err := json.Unmarshal(trimmed, &parts); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		switch v := p.(type) {
		case string:
			out = append(out, v)
		case map[string]any:
			// Postman path segments may be {type, value} objects.
			if s, ok := v["value"].(string); ok {
				out = append(out, s)
			}
		default:
			b, _ := json.Marshal(v)
			out = append(out, string(b))
		}
	}
	return out, nil
}
