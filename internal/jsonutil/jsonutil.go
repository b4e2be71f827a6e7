// Package jsonutil is the JSON codec used by the request builder and the
// response helpers. It wraps sonic configured for encoding/json compatibility,
// so struct tags, sorted map keys and HTML escaping behave like the standard
// library while encoding and decoding run on sonic's JIT.
package jsonutil

import (
	"errors"

	"github.com/bytedance/sonic"
)

var api = sonic.ConfigStd

// ErrTrailingData is returned by UnmarshalSingle when a JSON value is
// followed by anything but whitespace.
var ErrTrailingData = errors.New("jsonutil: unexpected data after top-level value")

// Marshal encodes v as compact JSON.
func Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

// MarshalIndent encodes v as indented JSON.
func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return api.MarshalIndent(v, prefix, indent)
}

// Unmarshal decodes data into v.
func Unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}

// UnmarshalSingle decodes data into v. data must hold exactly one JSON value,
// optionally surrounded by whitespace.
func UnmarshalSingle(data []byte, v any) error {
	if api.Valid(data) {
		return api.Unmarshal(data, v)
	}
	// Unmarshal reports the syntax error; if it does not, the value parsed
	// and something follows it.
	if err := api.Unmarshal(data, v); err != nil {
		return err
	}
	return ErrTrailingData
}

// Valid reports whether data is a syntactically valid JSON document.
func Valid(data []byte) bool {
	return api.Valid(data)
}

// Indent pretty-prints a JSON document. If data is not JSON it is returned
// unchanged.
func Indent(data []byte, prefix, indent string) []byte {
	var v any
	if err := api.Unmarshal(data, &v); err != nil {
		return data
	}
	out, err := api.MarshalIndent(v, prefix, indent)
	if err != nil {
		return data
	}
	return out
}
