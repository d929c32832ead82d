// Package vars implements {{key}} substitution over ordered variable lists.
package vars

import (
	"regexp"
	"strings"

	"github.com/blackcoderx/postbox/pkg/storage"
)

var placeholderPattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// Substitute replaces {{key}} tokens in text, one variable at a time in list
// order. Each pass runs over the output of the previous one, so a value that
// contains {{other}} is expanded when other comes later in the list and left
// alone when it came earlier. Tokens with no matching key stay verbatim.
//
// Enabled is not consulted; use Enabled to filter first.
func Substitute(text string, vars []storage.Variable) string {
	if text == "" || len(vars) == 0 {
		return text
	}
	out := text
	for _, v := range vars {
		if v.Key == "" {
			continue
		}
		out = strings.ReplaceAll(out, "{{"+v.Key+"}}", v.Value)
	}
	return out
}

// Enabled returns the enabled variables, preserving order.
func Enabled(vars []storage.Variable) []storage.Variable {
	out := make([]storage.Variable, 0, len(vars))
	for _, v := range vars {
		if v.Enabled {
			out = append(out, v)
		}
	}
	return out
}

// Placeholders lists the distinct {{name}} tokens left in text, in order of
// first appearance.
func Placeholders(text string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	return names
}

// FromPairs builds an enabled variable list from key=value pairs, keeping
// their order. Pairs with an empty key are dropped.
func FromPairs(pairs []string) []storage.Variable {
	out := make([]storage.Variable, 0, len(pairs))
	for _, pair := range pairs {
		key, value, _ := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		out = append(out, storage.Variable{Key: key, Value: value, Enabled: true})
	}
	return out
}
