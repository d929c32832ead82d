package storage

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"
)

func TestDirStore(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "postbox-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	// The directory does not exist until the first write.
	store := NewDirStore(filepath.Join(tmpDir, "collections"))

	keys, err := store.Keys()
	if err != nil {
		t.Fatalf("Keys on missing dir: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("Keys() = %v, want empty", keys)
	}

	if _, err := store.Get("a.json"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing error = %v, want ErrNotFound", err)
	}

	if err := store.Put("a.json", []byte("one")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Put("a.json", []byte("two")); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	if err := store.Put("b.json", []byte("three")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := os.Mkdir(filepath.Join(store.Dir(), "sub"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	data, err := store.Get("a.json")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != "two" {
		t.Errorf("Get() = %q, want %q", data, "two")
	}

	keys, err = store.Keys()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	sort.Strings(keys)
	if want := []string{"a.json", "b.json"}; !reflect.DeepEqual(keys, want) {
		t.Errorf("Keys() = %v, want %v (no temp files or directories)", keys, want)
	}
}

func TestDirStore_PathValidation(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "postbox-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	outsideDir, err := os.MkdirTemp("", "postbox-outside-*")
	if err != nil {
		t.Fatalf("failed to create outside dir: %v", err)
	}
	defer os.RemoveAll(outsideDir)

	store := NewDirStore(tmpDir)

	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{name: "plain key", key: "ok.json", wantErr: false},
		{name: "path traversal attempt", key: "../../../etc/passwd", wantErr: true},
		{name: "absolute path outside store", key: filepath.Join(outsideDir, "secret.json"), wantErr: true},
		{name: "traversal in middle", key: "sub/../../secret.json", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Put(tt.key, []byte("{}"))
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Errorf("Put(%q) error = %v, want ErrValidation", tt.key, err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "Orders", want: "Orders"},
		{input: "  Orders  ", want: "Orders"},
		{input: "../../etc/passwd", want: "passwd"},
		{input: `..\..\windows\win.ini`, want: "win.ini"},
		{input: "nested/dir/", want: "dir"},
		{input: "", wantErr: true},
		{input: "..", wantErr: true},
		{input: "a/.", wantErr: true},
		{input: "/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := SanitizeName(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Errorf("SanitizeName(%q) error = %v, want ErrValidation", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("SanitizeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	if err := store.Put("x/y.json", []byte("{}")); !errors.Is(err, ErrValidation) {
		t.Errorf("Put with path error = %v, want ErrValidation", err)
	}
	if err := store.Put("a.json", []byte("{}")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	data, _ := store.Get("a.json")
	data[0] = 'X'
	again, _ := store.Get("a.json")
	if string(again) != "{}" {
		t.Error("Get returned shared storage")
	}
}
