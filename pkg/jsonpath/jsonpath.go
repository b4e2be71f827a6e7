// Package jsonpath pulls single values out of JSON response bodies using a
// small JSONPath dialect ($.a.b[0], $['a'], $[0]) translated to gjson paths.
package jsonpath

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	// ErrEmptyDocument is returned when there is no JSON to search.
	ErrEmptyDocument = errors.New("empty JSON document")

	// ErrInvalidDocument is returned when the document is not valid JSON.
	ErrInvalidDocument = errors.New("invalid JSON document")

	// ErrEmptyPath is returned for an empty expression.
	ErrEmptyPath = errors.New("empty JSONPath expression")

	// ErrNotFound is returned when the expression matches nothing.
	ErrNotFound = errors.New("path not found")
)

// Extract returns the value at path in doc. Strings come back unquoted,
// objects and arrays as their raw JSON text, null as "null".
func Extract(doc []byte, path string) (string, error) {
	result, err := Lookup(doc, path)
	if err != nil {
		return "", err
	}
	if result.Type == gjson.Null {
		return "null", nil
	}
	return result.String(), nil
}

// Lookup returns the raw gjson result at path, for callers that need the
// value type.
func Lookup(doc []byte, path string) (gjson.Result, error) {
	if len(strings.TrimSpace(string(doc))) == 0 {
		return gjson.Result{}, ErrEmptyDocument
	}
	if path == "" {
		return gjson.Result{}, ErrEmptyPath
	}
	if !gjson.ValidBytes(doc) {
		return gjson.Result{}, ErrInvalidDocument
	}

	result := gjson.GetBytes(doc, ToGJSON(path))
	if !result.Exists() {
		return gjson.Result{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return result, nil
}

// ExtractMultiple extracts every named path. Values that could be extracted
// are returned even when others fail; the error lists the failures.
func ExtractMultiple(doc []byte, paths map[string]string) (map[string]string, error) {
	if len(strings.TrimSpace(string(doc))) == 0 {
		return nil, ErrEmptyDocument
	}
	if len(paths) == 0 {
		return nil, errors.New("no JSONPath expressions provided")
	}

	names := make([]string, 0, len(paths))
	for name := range paths {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]string, len(paths))
	var failures []string
	for _, name := range names {
		value, err := Extract(doc, paths[name])
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		results[name] = value
	}

	if len(failures) > 0 {
		return results, fmt.Errorf("extraction errors: %s", strings.Join(failures, "; "))
	}
	return results, nil
}

// ToGJSON converts a JSONPath expression to gjson path syntax:
// $.users[0].name becomes users.0.name and $ becomes @this.
func ToGJSON(path string) string {
	path = strings.TrimPrefix(path, "$")
	if path == "" {
		return "@this"
	}
	path = strings.TrimPrefix(path, ".")

	var b strings.Builder
	for i := 0; i < len(path); i++ {
		c := path[i]
		switch c {
		case '[':
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				b.WriteString(path[i:])
				return b.String()
			}
			key := strings.Trim(path[i+1:i+end], `'"`)
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			b.WriteString(escapeKey(key))
			i += end
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// escapeKey escapes characters gjson treats as path syntax inside a
// bracketed key.
func escapeKey(key string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`)
	return r.Replace(key)
}
