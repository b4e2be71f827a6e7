package config

import (
	"fmt"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"
	"strings"

	"github.com/wesleyorama2/reqwire/pkg/jsonschema"
)

// ValidationError represents a collection validation error
type ValidationError struct {
	Path    string
	Message string
}

// Error returns the error message
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors collects every problem found in a collection.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	msgs := make([]string, len(ve))
	for i, e := range ve {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

var validMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
	http.MethodConnect: true,
	http.MethodTrace:   true,
}

// ValidateCollection checks a parsed collection. Errors are ordered by
// request name.
func ValidateCollection(c *Collection) ValidationErrors {
	var errs ValidationErrors

	if len(c.Requests) == 0 {
		errs = append(errs, ValidationError{
			Path:    "requests",
			Message: "at least one request is required",
		})
	}
	if c.Defaults.Timeout < 0 {
		errs = append(errs, ValidationError{
			Path:    "defaults.timeout",
			Message: "timeout cannot be negative",
		})
	}
	for key := range c.Defaults.Headers {
		if !validHeaderName(key) {
			errs = append(errs, ValidationError{
				Path:    "defaults.headers." + key,
				Message: "invalid header name",
			})
		}
	}

	for _, name := range c.Names() {
		errs = append(errs, validateRequest(name, c.Requests[name])...)
	}
	return errs
}

func validateRequest(name string, req *Request) []ValidationError {
	var errs []ValidationError
	path := "requests." + name

	if req.URL == "" {
		errs = append(errs, ValidationError{Path: path + ".url", Message: "url is required"})
	} else if u, err := url.Parse(req.URL); err != nil {
		errs = append(errs, ValidationError{Path: path + ".url", Message: err.Error()})
	} else if u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{Path: path + ".url", Message: "url must be absolute"})
	}

	if method := req.MethodOrDefault(); !validMethods[method] {
		errs = append(errs, ValidationError{
			Path:    path + ".method",
			Message: fmt.Sprintf("invalid method: %s", req.Method),
		})
	}

	keys := make([]string, 0, len(req.Headers))
	for key := range req.Headers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if !validHeaderName(key) {
			errs = append(errs, ValidationError{Path: path + ".headers." + key, Message: "invalid header name"})
		}
	}

	vars := make([]string, 0, len(req.Extract))
	for varName := range req.Extract {
		vars = append(vars, varName)
	}
	sort.Strings(vars)
	for _, varName := range vars {
		if req.Extract[varName] == "" {
			errs = append(errs, ValidationError{
				Path:    fmt.Sprintf("%s.extract.%s", path, varName),
				Message: "extract path cannot be empty",
			})
		}
	}

	if req.Schema != "" {
		if _, err := jsonschema.Compile(req.Schema); err != nil {
			errs = append(errs, ValidationError{Path: path + ".schema", Message: err.Error()})
		}
	}
	return errs
}

// validHeaderName reports whether name is a non-empty RFC 7230 token.
func validHeaderName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c <= ' ' || c >= 0x7f || strings.IndexByte(`"(),/:;<=>?@[\]{}`, c) >= 0 {
			return false
		}
	}
	return true
}

func canonical(name string) string {
	return textproto.CanonicalMIMEHeaderKey(name)
}
