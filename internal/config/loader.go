package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/reqwire/internal/jsonutil"
)

// LoadCollection reads, parses and validates a collection file.
func LoadCollection(path string) (*Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Errorf("collection file not found: %s", path)
		}
		return nil, errors.Wrap(err, "reading collection file")
	}

	collection, err := ParseCollection(data, path)
	if err != nil {
		return nil, err
	}

	if errs := ValidateCollection(collection); len(errs) > 0 {
		return nil, errors.Wrapf(errs, "invalid collection %s", path)
	}
	return collection, nil
}

// ParseCollection parses collection data without validating it.
//
// The format is determined by the file extension in path: .json is parsed as
// JSON, anything else as YAML.
func ParseCollection(data []byte, path string) (*Collection, error) {
	var collection Collection

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		if err := jsonutil.UnmarshalSingle(data, &collection); err != nil {
			return nil, errors.Wrap(err, "failed to parse JSON collection")
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, &collection); err != nil {
			return nil, errors.Wrap(err, "failed to parse YAML collection")
		}
	default:
		if err := yaml.Unmarshal(data, &collection); err != nil {
			return nil, errors.Wrapf(err, "failed to parse collection (unknown format %s)", ext)
		}
	}

	for name, req := range collection.Requests {
		if req == nil {
			collection.Requests[name] = &Request{}
		}
	}
	return &collection, nil
}

// Names returns the request names in lexical order.
func (c *Collection) Names() []string {
	names := make([]string, 0, len(c.Requests))
	for name := range c.Requests {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select returns the named requests in the order given, or every request in
// lexical order when names is empty.
func (c *Collection) Select(names []string) ([]string, error) {
	if len(names) == 0 {
		return c.Names(), nil
	}
	for _, name := range names {
		if _, ok := c.Requests[name]; !ok {
			return nil, errors.Errorf("request not found: %s", name)
		}
	}
	return names, nil
}

// HeadersFor merges the default headers with the request's own headers.
// Header names are matched case-insensitively; the request wins.
func (c *Collection) HeadersFor(req *Request) map[string]string {
	merged := make(map[string]string, len(c.Defaults.Headers)+len(req.Headers))
	for k, v := range c.Defaults.Headers {
		merged[canonical(k)] = v
	}
	for k, v := range req.Headers {
		merged[canonical(k)] = v
	}
	return merged
}
