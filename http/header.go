package http

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
)

// Header is a typed request or response header. The header value is the
// single source of truth for its wire name and encoding.
//
// Two different types may report the same Name; the builder stores headers
// by canonical name, so the last one inserted wins.
type Header interface {
	// Name returns the header's wire name as it should be reported. Lookups
	// are case-insensitive.
	Name() string

	// Encode returns the header's wire values, one per header line.
	Encode() []string
}

// HeaderDecoder is implemented by headers that can be read back from a
// header map.
type HeaderDecoder interface {
	Header

	// Decode parses the wire values of the header. It is only called with
	// at least one value.
	Decode(values []string) error
}

// DecodeHeader reads the header named by dst.Name() from h into dst. It
// reports false without error when the header is absent.
func DecodeHeader(h http.Header, dst HeaderDecoder) (bool, error) {
	values := h.Values(dst.Name())
	if len(values) == 0 {
		return false, nil
	}
	if err := dst.Decode(values); err != nil {
		return true, fmt.Errorf("decode %s: %w", dst.Name(), err)
	}
	return true, nil
}

// MediaTypeJSON is the media type set by RequestBuilder.BodyJSON.
const MediaTypeJSON = "application/json"

// ContentType is the Content-Type header.
type ContentType struct {
	MediaType string
	Params    map[string]string
}

// JSONContentType is the Content-Type declared for JSON bodies.
var JSONContentType = ContentType{MediaType: MediaTypeJSON}

func (ContentType) Name() string { return "Content-Type" }

func (c ContentType) Encode() []string {
	return []string{mime.FormatMediaType(c.MediaType, c.Params)}
}

func (c *ContentType) Decode(values []string) error {
	mediaType, params, err := mime.ParseMediaType(values[0])
	if err != nil {
		return err
	}
	c.MediaType = mediaType
	c.Params = params
	return nil
}

// IsJSON reports whether the media type is JSON or a +json suffix type.
func (c ContentType) IsJSON() bool {
	return c.MediaType == MediaTypeJSON || strings.HasSuffix(c.MediaType, "+json")
}

// Accept is the Accept header.
type Accept []string

func (Accept) Name() string { return "Accept" }

func (a Accept) Encode() []string {
	return []string{strings.Join(a, ", ")}
}

func (a *Accept) Decode(values []string) error {
	var out Accept
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	*a = out
	return nil
}

// Authorization is the Authorization header.
type Authorization struct {
	Scheme      string
	Credentials string
}

// BearerAuth returns an Authorization header carrying a bearer token.
func BearerAuth(token string) Authorization {
	return Authorization{Scheme: "Bearer", Credentials: token}
}

// BasicAuth returns an Authorization header with basic credentials.
func BasicAuth(username, password string) Authorization {
	return Authorization{
		Scheme:      "Basic",
		Credentials: base64.StdEncoding.EncodeToString([]byte(username + ":" + password)),
	}
}

func (Authorization) Name() string { return "Authorization" }

func (a Authorization) Encode() []string {
	return []string{a.Scheme + " " + a.Credentials}
}

func (a *Authorization) Decode(values []string) error {
	scheme, credentials, ok := strings.Cut(values[0], " ")
	if !ok || scheme == "" {
		return errors.New("missing authorization scheme")
	}
	a.Scheme = scheme
	a.Credentials = strings.TrimSpace(credentials)
	return nil
}

// UserAgent is the User-Agent header.
type UserAgent string

func (UserAgent) Name() string { return "User-Agent" }

func (u UserAgent) Encode() []string { return []string{string(u)} }

func (u *UserAgent) Decode(values []string) error {
	*u = UserAgent(values[0])
	return nil
}

// ETag is the ETag response header.
type ETag struct {
	Tag  string
	Weak bool
}

func (ETag) Name() string { return "ETag" }

func (e ETag) Encode() []string {
	return []string{e.String()}
}

func (e ETag) String() string {
	tag := `"` + e.Tag + `"`
	if e.Weak {
		return "W/" + tag
	}
	return tag
}

func (e *ETag) Decode(values []string) error {
	v := strings.TrimSpace(values[0])
	weak := strings.HasPrefix(v, "W/")
	v = strings.TrimPrefix(v, "W/")
	if len(v) < 2 || v[0] != '"' || v[len(v)-1] != '"' {
		return fmt.Errorf("malformed entity tag %q", values[0])
	}
	e.Tag = v[1 : len(v)-1]
	e.Weak = weak
	return nil
}

// IfNoneMatch is the If-None-Match header.
type IfNoneMatch []ETag

func (IfNoneMatch) Name() string { return "If-None-Match" }

func (m IfNoneMatch) Encode() []string {
	tags := make([]string, len(m))
	for i, tag := range m {
		tags[i] = tag.String()
	}
	return []string{strings.Join(tags, ", ")}
}

// RawHeader is an untyped header for names with no dedicated type.
type RawHeader struct {
	Key   string
	Value string
}

func (h RawHeader) Name() string { return h.Key }

func (h RawHeader) Encode() []string { return []string{h.Value} }

func (h *RawHeader) Decode(values []string) error {
	h.Value = values[0]
	return nil
}
