// Package jsonschema validates JSON response bodies against JSON Schema
// documents. Compiled schemas are kept in an LRU cache keyed by the schema
// text, so validating many responses against the same schema compiles it once.
package jsonschema

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/wesleyorama2/reqwire/internal/jsonutil"
)

// DefaultCacheSize is the number of compiled schemas kept by a Validator
// created with a non-positive size.
var DefaultCacheSize = 64

const resourceName = "schema.json"

// ValidationErrors represents a collection of validation errors
type ValidationErrors []error

// Error implements the error interface for ValidationErrors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, err := range ve {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Validator compiles and caches schemas. It is safe for concurrent use.
type Validator struct {
	cache *lru.Cache[string, *jsonschema.Schema]
}

// NewValidator creates a Validator caching up to size compiled schemas. Pass
// a value less than 1 to use DefaultCacheSize.
func NewValidator(size int) (*Validator, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, *jsonschema.Schema](size)
	if err != nil {
		return nil, fmt.Errorf("creating schema LRU: %w", err)
	}
	return &Validator{cache: cache}, nil
}

var defaultValidator = mustValidator()

func mustValidator() *Validator {
	v, err := NewValidator(0)
	if err != nil {
		panic(err)
	}
	return v
}

// Compile returns the compiled form of schema, from the cache when possible.
func (v *Validator) Compile(schema string) (*jsonschema.Schema, error) {
	if compiled, ok := v.cache.Get(schema); ok {
		return compiled, nil
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(resourceName, strings.NewReader(schema)); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	compiled, err := compiler.Compile(resourceName)
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	v.cache.Add(schema, compiled)
	return compiled, nil
}

// Len returns the number of cached schemas.
func (v *Validator) Len() int {
	return v.cache.Len()
}

// Validate reports whether doc satisfies schema. An error is returned only
// when the schema does not compile or doc is not JSON.
func (v *Validator) Validate(doc []byte, schema string) (bool, error) {
	valid, errs := v.ValidateWithErrors(doc, schema)
	if valid {
		return true, nil
	}
	for _, err := range errs {
		if _, ok := err.(*inputError); ok {
			return false, err
		}
	}
	return false, nil
}

// ValidateWithErrors validates doc against schema and returns every
// violation found.
func (v *Validator) ValidateWithErrors(doc []byte, schema string) (bool, ValidationErrors) {
	compiled, err := v.Compile(schema)
	if err != nil {
		return false, ValidationErrors{&inputError{err}}
	}

	var instance any
	if err := jsonutil.Unmarshal(doc, &instance); err != nil {
		return false, ValidationErrors{&inputError{fmt.Errorf("invalid JSON: %w", err)}}
	}

	if err := compiled.Validate(instance); err != nil {
		if validationErr, ok := err.(*jsonschema.ValidationError); ok {
			return false, extractValidationErrors(validationErr)
		}
		return false, ValidationErrors{err}
	}
	return true, nil
}

// Compile compiles schema with the package-level validator, reporting
// whether it is a usable JSON Schema.
func Compile(schema string) (*jsonschema.Schema, error) {
	return defaultValidator.Compile(schema)
}

// Validate checks doc against schema using the package-level validator.
func Validate(doc []byte, schema string) (bool, error) {
	return defaultValidator.Validate(doc, schema)
}

// ValidateWithErrors checks doc against schema using the package-level
// validator and returns every violation.
func ValidateWithErrors(doc []byte, schema string) (bool, ValidationErrors) {
	return defaultValidator.ValidateWithErrors(doc, schema)
}

// inputError marks failures caused by the schema or document themselves
// rather than by a violation.
type inputError struct {
	err error
}

func (e *inputError) Error() string { return e.err.Error() }
func (e *inputError) Unwrap() error { return e.err }

// extractValidationErrors flattens a jsonschema.ValidationError tree
func extractValidationErrors(err *jsonschema.ValidationError) ValidationErrors {
	var errors ValidationErrors

	if err.Message != "" && len(err.Causes) == 0 {
		location := err.InstanceLocation
		if location == "" {
			location = "/"
		}
		errors = append(errors, fmt.Errorf("validation error at %s: %s", location, err.Message))
	}

	for _, childErr := range err.Causes {
		errors = append(errors, extractValidationErrors(childErr)...)
	}

	return errors
}
