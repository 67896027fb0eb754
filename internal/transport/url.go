package transport

import (
	"fmt"
	"net/url"
	"strings"
)

// URL derives the websocket address of worker id from the page URL the client
// was pointed at. http becomes ws and https becomes wss, and the path is joined
// with exactly one slash before "ws?id=<id>".
func URL(pageURL, id string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url %q: %w", pageURL, err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("invalid server url %q: unsupported scheme %q", pageURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid server url %q: missing host", pageURL)
	}

	path := u.EscapedPath()
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}

	return fmt.Sprintf("%s://%s%sws?id=%s", u.Scheme, u.Host, path, url.QueryEscape(id)), nil
}
