// Package config loads request collections: named requests plus shared
// defaults, stored as YAML or JSON files and run by the CLI.
package config

import (
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Collection is the top-level structure of a collection file.
type Collection struct {
	// Defaults apply to every request in the collection.
	Defaults Defaults `json:"defaults,omitempty" yaml:"defaults,omitempty"`

	// Requests maps request names to their definitions.
	Requests map[string]*Request `json:"requests" yaml:"requests"`
}

// Defaults holds settings shared by all requests of a collection.
type Defaults struct {
	// Timeout bounds each exchange (e.g., "10s").
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// UserAgent is sent unless a request sets its own User-Agent.
	UserAgent string `json:"userAgent,omitempty" yaml:"userAgent,omitempty"`

	// Headers are sent with every request; request headers take precedence.
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// Request describes a single HTTP request.
type Request struct {
	// Method is the HTTP method. Defaults to GET.
	Method string `json:"method,omitempty" yaml:"method,omitempty"`

	// URL is the absolute request target.
	URL string `json:"url" yaml:"url"`

	// Headers are added to the request.
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// JSON is encoded as the request body when set.
	JSON any `json:"json,omitempty" yaml:"json,omitempty"`

	// Extract maps variable names to JSONPath expressions evaluated against
	// the response body.
	Extract map[string]string `json:"extract,omitempty" yaml:"extract,omitempty"`

	// Schema is an inline JSON Schema the response body must satisfy.
	Schema string `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// MethodOrDefault returns the upper-cased method, or GET when unset.
func (r *Request) MethodOrDefault() string {
	if r.Method == "" {
		return "GET"
	}
	return strings.ToUpper(r.Method)
}

// Duration is a time.Duration written as a string ("30s", "1m30s") in
// collection files.
type Duration time.Duration

// GetDuration returns the duration or a default if empty.
func (d Duration) GetDuration(defaultValue time.Duration) time.Duration {
	if d == 0 {
		return defaultValue
	}
	return time.Duration(d)
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" || s == "null" {
		*d = 0
		return nil
	}
	return d.set(s)
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		*d = 0
		return nil
	}
	return d.set(s)
}

func (d *Duration) set(s string) error {
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}
