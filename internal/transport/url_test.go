package transport

import (
	"net/url"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURL(t *testing.T) {
	tests := []struct {
		page string
		want string
	}{
		{"http://localhost:4200/", "ws://localhost:4200/ws?id=abc123"},
		{"http://localhost:4200", "ws://localhost:4200/ws?id=abc123"},
		{"https://ssh.example.com/console/", "wss://ssh.example.com/console/ws?id=abc123"},
		{"https://ssh.example.com/console", "wss://ssh.example.com/console/ws?id=abc123"},
		{"http://10.0.0.1:8888/?lang=en#top", "ws://10.0.0.1:8888/ws?id=abc123"},
		{"ws://localhost:4200/", "ws://localhost:4200/ws?id=abc123"},
	}

	for _, tt := range tests {
		t.Run(tt.page, func(t *testing.T) {
			got, err := URL(tt.page, "abc123")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestURL_EscapesID(t *testing.T) {
	got, err := URL("http://h/", "a b&c")
	require.NoError(t, err)
	assert.Equal(t, "ws://h/ws?id=a+b%26c", got)
}

func TestURL_Invalid(t *testing.T) {
	for _, page := range []string{"ftp://h/", "http://", "::not a url"} {
		_, err := URL(page, "abc")
		assert.Error(t, err, page)
	}
}

func TestURLProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	segment := gen.AlphaString().Map(func(s string) string {
		if len(s) > 12 {
			return s[:12]
		}
		return s
	})

	properties.Property("scheme is substituted and the path joined exactly once", prop.ForAll(
		func(secure bool, segments []string, trailing bool, id string) bool {
			scheme, wsScheme := "http", "ws"
			if secure {
				scheme, wsScheme = "https", "wss"
			}

			var nonEmpty []string
			for _, s := range segments {
				if s != "" {
					nonEmpty = append(nonEmpty, s)
				}
			}
			path := "/" + strings.Join(nonEmpty, "/")
			if trailing && path != "/" {
				path += "/"
			}

			got, err := URL(scheme+"://example.com:4200"+path, id)
			if err != nil {
				return false
			}

			prefix := wsScheme + "://example.com:4200"
			if !strings.HasPrefix(got, prefix) {
				return false
			}
			if strings.Contains(strings.TrimPrefix(got, wsScheme+"://"), "//") {
				return false
			}

			u, err := url.Parse(got)
			if err != nil {
				return false
			}
			return strings.HasSuffix(u.Path, "/ws") && u.Query().Get("id") == id
		},
		gen.Bool(),
		gen.SliceOf(segment),
		gen.Bool(),
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
