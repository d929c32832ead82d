package storage

import (
	"bytes"
	"encoding/json"
	"strings"
)

// SchemaV21 is the collection format written for newly created collections.
const SchemaV21 = "https://schema.getpostman.com/json/collection/v2.1.0/collection.json"

// Collection is a named, persisted tree of folders and endpoints.
type Collection struct {
	Info     Info       `json:"info"`
	Item     []Node     `json:"item"`
	Variable []KeyValue `json:"variable,omitempty"`
}

// Info identifies a collection document.
type Info struct {
	PostmanID   string          `json:"_postman_id,omitempty"`
	Name        string          `json:"name"`
	Description json.RawMessage `json:"description,omitempty"`
	Schema      string          `json:"schema,omitempty"`
}

// Node is an entry in a collection tree. A node carrying Request is an
// endpoint, a node carrying Item is a folder, and a node may be both.
type Node struct {
	Name        string          `json:"name"`
	Description json.RawMessage `json:"description,omitempty"`
	Request     *Request        `json:"request,omitempty"`
	Item        []Node          `json:"item,omitempty"`
}

// Request is the stored description of an HTTP request.
type Request struct {
	Method      string          `json:"method,omitempty"`
	Header      []KeyValue      `json:"header"`
	URL         URL             `json:"url"`
	Body        *Body           `json:"body,omitempty"`
	Description json.RawMessage `json:"description,omitempty"`
}

// Body is a stored request body. Only raw bodies take part in substitution.
type Body struct {
	Mode       string          `json:"mode,omitempty"`
	Raw        string          `json:"raw,omitempty"`
	URLEncoded []KeyValue      `json:"urlencoded,omitempty"`
	FormData   []KeyValue      `json:"formdata,omitempty"`
	Options    json.RawMessage `json:"options,omitempty"`
}

// KeyValue is an ordered header or query pair.
type KeyValue struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Disabled bool   `json:"disabled,omitempty"`
	Type     string `json:"type,omitempty"`
}

// Variable is one environment entry. Order within a list is significant.
type Variable struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Enabled bool   `json:"enabled"`
}

// Environment is a named, ordered list of variables.
type Environment struct {
	Name   string     `json:"name"`
	Values []Variable `json:"values"`
}

// RequestSpec is a request as supplied by a caller, either to save into a
// collection or to resolve ad hoc.
type RequestSpec struct {
	CollectionName string     `json:"collectionName,omitempty"`
	EndpointName   string     `json:"endpointName,omitempty"`
	Method         string     `json:"method,omitempty"`
	URL            URL        `json:"url"`
	Headers        []KeyValue `json:"headers,omitempty"`
	Query          []KeyValue `json:"query,omitempty"`
	Body           string     `json:"body,omitempty"`
}

// UnmarshalJSON accepts "params" as an alias for query and non-string bodies,
// which are kept as their JSON text.
func (s *RequestSpec) UnmarshalJSON(data []byte) error {
	var aux struct {
		CollectionName string          `json:"collectionName"`
		EndpointName   string          `json:"endpointName"`
		Method         string          `json:"method"`
		URL            URL             `json:"url"`
		Headers        []KeyValue      `json:"headers"`
		Header         []KeyValue      `json:"header"`
		Query          []KeyValue      `json:"query"`
		Params         []KeyValue      `json:"params"`
		Body           json.RawMessage `json:"body"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*s = RequestSpec{
		CollectionName: aux.CollectionName,
		EndpointName:   aux.EndpointName,
		Method:         aux.Method,
		URL:            aux.URL,
		Headers:        aux.Headers,
		Query:          aux.Query,
		Body:           rawString(aux.Body),
	}
	if s.Headers == nil {
		s.Headers = aux.Header
	}
	if s.Query == nil {
		s.Query = aux.Params
	}
	return nil
}

// UnmarshalJSON accepts a bare URL string as shorthand for a GET request and
// "headers" as an alias for "header".
func (r *Request) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var raw string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		*r = Request{Method: "GET", Header: []KeyValue{}, URL: URL{Raw: raw}}
		return nil
	}

	type plain Request
	var aux struct {
		plain
		Headers []KeyValue `json:"headers"`
	}
	if err := json.Unmarshal(trimmed, &aux); err != nil {
		return err
	}
	*r = Request(aux.plain)
	if r.Header == nil {
		r.Header = aux.Headers
	}
	return nil
}

// UnmarshalJSON coerces non-string values to text and accepts "name" as an
// alias for "key".
func (kv *KeyValue) UnmarshalJSON(data []byte) error {
	var aux struct {
		Key      string          `json:"key"`
		Name     string          `json:"name"`
		Value    json.RawMessage `json:"value"`
		Disabled bool            `json:"disabled"`
		Type     string          `json:"type"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*kv = KeyValue{
		Key:      aux.Key,
		Value:    rawString(aux.Value),
		Disabled: aux.Disabled,
		Type:     aux.Type,
	}
	if kv.Key == "" {
		kv.Key = aux.Name
	}
	return nil
}

// UnmarshalJSON applies the same tolerant field lookup as stored environment
// documents. Shapes that are not objects become an empty, enabled variable.
func (v *Variable) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		var probe any
		if json.Unmarshal(data, &probe) != nil {
			return err
		}
		fields = nil
	}
	*v = normalizeVariable(fields)
	return nil
}

// Clone returns a deep copy of the node and its subtree.
func (n Node) Clone() Node {
	out := Node{
		Name:        n.Name,
		Description: cloneRaw(n.Description),
	}
	if n.Request != nil {
		req := n.Request.Clone()
		out.Request = &req
	}
	if n.Item != nil {
		out.Item = make([]Node, len(n.Item))
		for i, child := range n.Item {
			out.Item[i] = child.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the request.
func (r Request) Clone() Request {
	out := Request{
		Method:      r.Method,
		Header:      cloneKeyValues(r.Header),
		URL:         r.URL.Clone(),
		Description: cloneRaw(r.Description),
	}
	if r.Body != nil {
		body := *r.Body
		body.URLEncoded = cloneKeyValues(r.Body.URLEncoded)
		body.FormData = cloneKeyValues(r.Body.FormData)
		body.Options = cloneRaw(r.Body.Options)
		out.Body = &body
	}
	return out
}

func cloneKeyValues(in []KeyValue) []KeyValue {
	if in == nil {
		return nil
	}
	out := make([]KeyValue, len(in))
	copy(out, in)
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneRaw(in json.RawMessage) json.RawMessage {
	if in == nil {
		return nil
	}
	out := make(json.RawMessage, len(in))
	copy(out, in)
	return out
}

// rawString renders a JSON value as text: strings unquoted, null and missing
// as empty, anything else as its compact JSON form.
func rawString(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err == nil {
		return buf.String()
	}
	return strings.TrimSpace(string(trimmed))
}
