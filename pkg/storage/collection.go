package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aymanbagabas/go-udiff"
)

const collectionExt = ".json"

// CollectionStore reads and writes whole collection documents.
type CollectionStore struct {
	blobs BlobStore
	now   func() time.Time
}

// SaveResult reports where a request was saved.
type SaveResult struct {
	Collection string `json:"collection"`
	SavedName  string `json:"savedName"`
	Created    bool   `json:"created"`
}

// EndpointRef is a flattened view of one endpoint for listings.
type EndpointRef struct {
	Name   string   `json:"name" yaml:"name"`
	Folder []string `json:"folder,omitempty" yaml:"folder,omitempty"`
	Method string   `json:"method" yaml:"method"`
	URL    string   `json:"url" yaml:"url"`
}

// NewCollectionStore returns a store over blobs.
func NewCollectionStore(blobs BlobStore) *CollectionStore {
	return &CollectionStore{blobs: blobs, now: time.Now}
}

// SetClock replaces the time source used for generated endpoint names.
func (s *CollectionStore) SetClock(now func() time.Time) {
	s.now = now
}

func collectionKey(name string) (string, string, error) {
	id, err := SanitizeName(name)
	if err != nil {
		return "", "", err
	}
	return id, id + collectionExt, nil
}

// List returns the sorted, de-duplicated identifiers of stored collections.
func (s *CollectionStore) List() ([]string, error) {
	keys, err := s.blobs.Keys()
	if err != nil {
		return nil, err
	}
	return uniqueSorted(keys, func(key string) (string, bool) {
		return strings.TrimSuffix(key, filepath.Ext(key)), true
	}), nil
}

// Load reads the named collection.
func (s *CollectionStore) Load(name string) (*Collection, error) {
	_, key, err := collectionKey(name)
	if err != nil {
		return nil, err
	}
	data, err := s.blobs.Get(key)
	if err != nil {
		return nil, fmt.Errorf("collection %q: %w", name, err)
	}
	coll, err := decodeCollection(data)
	if err != nil {
		return nil, fmt.Errorf("collection %q: %w", name, err)
	}
	return coll, nil
}

// FindEndpoint returns a deep copy of the first endpoint named endpoint.
func (s *CollectionStore) FindEndpoint(name, endpoint string) (*Node, error) {
	coll, err := s.Load(name)
	if err != nil {
		return nil, err
	}
	found := Find(coll.Item, endpoint)
	if found == nil {
		return nil, fmt.Errorf("endpoint %q in collection %q: %w", endpoint, name, ErrNotFound)
	}
	clone := found.Clone()
	return &clone, nil
}

// Endpoints flattens the collection tree in traversal order.
func (s *CollectionStore) Endpoints(name string) ([]EndpointRef, error) {
	coll, err := s.Load(name)
	if err != nil {
		return nil, err
	}
	refs := []EndpointRef{}
	Walk(coll.Item, func(folder []string, node *Node) bool {
		if node.Request == nil {
			return true
		}
		method := node.Request.Method
		if method == "" {
			method = "GET"
		}
		refs = append(refs, EndpointRef{
			Name:   node.Name,
			Folder: folder,
			Method: method,
			URL:    node.Request.URL.Target(),
		})
		return true
	})
	return refs, nil
}

// Save builds a request from spec and writes it into the named collection.
// The first endpoint named endpoint is updated in place; otherwise a new leaf
// is appended to the root. A missing collection is created. An empty
// endpoint name is replaced with a generated one.
func (s *CollectionStore) Save(name, endpoint string, spec RequestSpec) (*SaveResult, error) {
	plan, err := s.plan(name, endpoint, spec)
	if err != nil {
		return nil, err
	}
	if err := s.write(plan.key, plan.after); err != nil {
		return nil, err
	}
	return plan.result, nil
}

// Preview returns the unified diff Save would apply, without writing.
func (s *CollectionStore) Preview(name, endpoint string, spec RequestSpec) (string, error) {
	plan, err := s.plan(name, endpoint, spec)
	if err != nil {
		return "", err
	}
	before, after := string(plan.before), string(plan.after)
	edits := udiff.Strings(before, after)
	unified, err := udiff.ToUnified("a/"+plan.key, "b/"+plan.key, before, edits, 3)
	if err != nil {
		return "", fmt.Errorf("failed to build diff: %w", err)
	}
	return unified, nil
}

// Put replaces the named collection with coll.
func (s *CollectionStore) Put(name string, coll *Collection) error {
	if coll == nil {
		return fmt.Errorf("%w: collection document required", ErrValidation)
	}
	_, key, err := collectionKey(name)
	if err != nil {
		return err
	}
	if coll.Item == nil {
		coll.Item = []Node{}
	}
	data, err := encodeDocument(coll)
	if err != nil {
		return err
	}
	return s.write(key, data)
}

type savePlan struct {
	key    string
	before []byte
	after  []byte
	result *SaveResult
}

func (s *CollectionStore) plan(name, endpoint string, spec RequestSpec) (*savePlan, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: collection name required", ErrValidation)
	}
	id, key, err := collectionKey(name)
	if err != nil {
		return nil, err
	}

	var coll *Collection
	before, err := s.blobs.Get(key)
	switch {
	case errors.Is(err, ErrNotFound):
		before = nil
		coll = &Collection{Info: Info{Name: id, Schema: SchemaV21}, Item: []Node{}}
	case err != nil:
		return nil, fmt.Errorf("collection %q: %w", name, err)
	default:
		if coll, err = decodeCollection(before); err != nil {
			return nil, fmt.Errorf("collection %q: %w", name, err)
		}
	}

	nameToUse := endpoint
	if nameToUse == "" {
		nameToUse = fmt.Sprintf("Saved Request %d", s.now().UnixMilli())
	}

	req := BuildRequest(spec)
	created := false
	if loc := FindWithLocation(coll.Item, nameToUse); loc != nil {
		loc.Siblings[loc.Index].Request = &req
	} else {
		coll.Item = append(coll.Item, Node{Name: nameToUse, Request: &req})
		created = true
	}

	after, err := encodeDocument(coll)
	if err != nil {
		return nil, err
	}
	return &savePlan{
		key:    key,
		before: before,
		after:  after,
		result: &SaveResult{Collection: id, SavedName: nameToUse, Created: created},
	}, nil
}

func (s *CollectionStore) write(key string, data []byte) error {
	if err := s.blobs.Put(key, data); err != nil {
		if errors.Is(err, ErrWrite) {
			return err
		}
		return fmt.Errorf("%w: %s: %v", ErrWrite, key, err)
	}
	return nil
}

// BuildRequest converts a caller-supplied spec into the stored request shape.
func BuildRequest(spec RequestSpec) Request {
	method := spec.Method
	if method == "" {
		method = "GET"
	}

	req := Request{
		Method: method,
		Header: nonEmptyKeys(spec.Headers),
		URL:    structuredURL(spec.URL),
	}
	if spec.Body != "" {
		req.Body = &Body{Mode: "raw", Raw: spec.Body}
	}

	if query := nonEmptyKeys(spec.Query); len(query) > 0 {
		req.URL.Query = query
		base, _, _ := strings.Cut(req.URL.Raw, "?")
		req.URL.Raw = AppendQuery(base, query)
	}
	return req
}

// structuredURL normalizes either URL form into a structured value, keeping
// the raw string when it cannot be parsed.
func structuredURL(u URL) URL {
	if u.Structured {
		out := u.Clone()
		if out.Raw == "" {
			out.Raw = out.StringForm()
		}
		return out
	}
	if parsed, ok := ToStructured(u.Raw); ok {
		return parsed
	}
	return URL{Raw: u.Raw, Structured: true}
}

func nonEmptyKeys(in []KeyValue) []KeyValue {
	out := []KeyValue{}
	for _, kv := range in {
		if kv.Key == "" {
			continue
		}
		out = append(out, KeyValue{Key: kv.Key, Value: kv.Value, Disabled: kv.Disabled})
	}
	return out
}

func decodeCollection(data []byte) (*Collection, error) {
	if err := ValidateCollection(data); err != nil {
		return nil, err
	}
	var coll Collection
	if err := json.Unmarshal(data, &coll); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if coll.Item == nil {
		coll.Item = []Node{}
	}
	return &coll, nil
}

func encodeDocument(doc any) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode document: %v", ErrWrite, err)
	}
	return append(data, '\n'), nil
}

// uniqueSorted maps keys through name, dropping rejected and duplicate names.
func uniqueSorted(keys []string, name func(string) (string, bool)) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		n, ok := name(key)
		if !ok || n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
