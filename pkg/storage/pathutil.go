package storage

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SanitizeName reduces a logical collection or environment name to the
// basename used as its storage identifier. Both "/" and "\" count as
// separators, so "../../etc/passwd" becomes "passwd".
func SanitizeName(name string) (string, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(name), `\`, "/")
	if i := strings.LastIndex(strings.TrimRight(normalized, "/"), "/"); i >= 0 {
		normalized = normalized[i+1:]
	}
	normalized = strings.TrimRight(normalized, "/")
	switch normalized {
	case "", ".", "..":
		return "", fmt.Errorf("%w: invalid name %q", ErrValidation, name)
	}
	return normalized, nil
}

// ValidatePathWithinDir resolves key against dir and fails if the result would
// escape dir, for example through ".." segments or an absolute key.
func ValidatePathWithinDir(key, dir string) (string, error) {
	target := key
	if !filepath.IsAbs(target) {
		target = filepath.Join(dir, target)
	}

	absPath, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve store directory: %w", err)
	}

	// Trailing separator so /data-evil does not match /data.
	prefix := absDir
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	if !strings.HasPrefix(absPath, prefix) {
		return "", fmt.Errorf("%w: access denied: %q is outside %s", ErrValidation, key, dir)
	}

	return absPath, nil
}
