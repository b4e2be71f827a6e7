package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlCollection = `
defaults:
  timeout: 10s
  userAgent: reqwire/1.0
  headers:
    accept: application/json
requests:
  create-user:
    method: post
    url: https://api.example.com/users
    headers:
      X-Trace: abc
      Accept: application/vnd.api+json
    json:
      name: alice
      tags: [a, b]
    extract:
      id: $.id
    schema: '{"type":"object","required":["id"]}'
  list-users:
    url: https://api.example.com/users
`

const jsonCollection = `{
  "defaults": {"timeout": "1m30s", "headers": {"Accept": "application/json"}},
  "requests": {
    "ping": {"method": "GET", "url": "http://localhost:8080/ping"},
    "echo": {"method": "PUT", "url": "http://localhost:8080/echo", "json": {"n": 1}}
  }
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseCollection_YAML(t *testing.T) {
	c, err := ParseCollection([]byte(yamlCollection), "api.yaml")
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, c.Defaults.Timeout.GetDuration(0))
	assert.Equal(t, "reqwire/1.0", c.Defaults.UserAgent)
	require.Len(t, c.Requests, 2)

	create := c.Requests["create-user"]
	assert.Equal(t, "POST", create.MethodOrDefault())
	assert.Equal(t, "https://api.example.com/users", create.URL)
	assert.Equal(t, map[string]any{"name": "alice", "tags": []any{"a", "b"}}, create.JSON)
	assert.Equal(t, "$.id", create.Extract["id"])
	assert.NotEmpty(t, create.Schema)

	list := c.Requests["list-users"]
	assert.Equal(t, "GET", list.MethodOrDefault())
	assert.Nil(t, list.JSON)
}

func TestParseCollection_JSON(t *testing.T) {
	c, err := ParseCollection([]byte(jsonCollection), "api.json")
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, time.Duration(c.Defaults.Timeout))
	assert.Equal(t, []string{"echo", "ping"}, c.Names())
	assert.Equal(t, map[string]any{"n": float64(1)}, c.Requests["echo"].JSON)
}

func TestParseCollection_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		path string
	}{
		{name: "malformed json", data: `{"requests":`, path: "c.json"},
		{name: "trailing json", data: `{} {}`, path: "c.json"},
		{name: "malformed yaml", data: "requests: [unclosed", path: "c.yaml"},
		{name: "bad duration", data: "defaults:\n  timeout: soon\n", path: "c.yml"},
		{name: "bad json duration", data: `{"defaults":{"timeout":"soon"}}`, path: "c.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCollection([]byte(tt.data), tt.path)
			assert.Error(t, err)
		})
	}
}

func TestParseCollection_EmptyRequestEntry(t *testing.T) {
	c, err := ParseCollection([]byte("requests:\n  empty:\n"), "c.yaml")
	require.NoError(t, err)
	require.NotNil(t, c.Requests["empty"])

	errs := ValidateCollection(c)
	require.Len(t, errs, 1)
	assert.Equal(t, "requests.empty.url", errs[0].Path)
}

func TestLoadCollection(t *testing.T) {
	t.Run("yaml file", func(t *testing.T) {
		c, err := LoadCollection(writeFile(t, "api.yaml", yamlCollection))
		require.NoError(t, err)
		assert.Len(t, c.Requests, 2)
	})

	t.Run("json file", func(t *testing.T) {
		c, err := LoadCollection(writeFile(t, "api.json", jsonCollection))
		require.NoError(t, err)
		assert.Len(t, c.Requests, 2)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadCollection(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("invalid collection", func(t *testing.T) {
		path := writeFile(t, "bad.yaml", "requests:\n  rel:\n    url: /users\n")
		_, err := LoadCollection(path)
		require.Error(t, err)

		var verrs ValidationErrors
		require.True(t, stderrors.As(err, &verrs))
		assert.Equal(t, "requests.rel.url", verrs[0].Path)
		assert.True(t, strings.HasPrefix(err.Error(), "invalid collection"))
	})
}

func TestCollection_Select(t *testing.T) {
	c, err := ParseCollection([]byte(yamlCollection), "api.yaml")
	require.NoError(t, err)

	names, err := c.Select(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"create-user", "list-users"}, names)

	names, err = c.Select([]string{"list-users", "create-user"})
	require.NoError(t, err)
	assert.Equal(t, []string{"list-users", "create-user"}, names)

	_, err = c.Select([]string{"delete-user"})
	assert.EqualError(t, err, "request not found: delete-user")
}

func TestCollection_HeadersFor(t *testing.T) {
	c, err := ParseCollection([]byte(yamlCollection), "api.yaml")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"Accept":  "application/vnd.api+json",
		"X-Trace": "abc",
	}, c.HeadersFor(c.Requests["create-user"]))

	assert.Equal(t, map[string]string{
		"Accept": "application/json",
	}, c.HeadersFor(c.Requests["list-users"]))
}

func TestDuration_Marshal(t *testing.T) {
	d := Duration(2 * time.Minute)

	b, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"2m0s"`, string(b))

	v, err := d.MarshalYAML()
	require.NoError(t, err)
	assert.Equal(t, "2m0s", v)

	assert.Equal(t, 5*time.Second, Duration(0).GetDuration(5*time.Second))
}
