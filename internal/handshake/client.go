package handshake

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/vanpelt/rpsh/internal/logger"
	"github.com/vanpelt/rpsh/internal/models"
	"golang.org/x/net/publicsuffix"
)

// maxResponseSize caps how much of a provisioning response is read
const maxResponseSize = 1 << 20

// Client asks the provisioning server to allocate a remote shell worker
type Client struct {
	endpoint   string
	httpClient *http.Client
	inFlight   atomic.Bool
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewCookieJar returns the jar shared by provisioning and the websocket dial,
// which gives both legs same-origin credentials.
func NewCookieJar() (http.CookieJar, error) {
	return cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
}

// NewHTTPClient builds the HTTP client used for provisioning
func NewHTTPClient(jar http.CookieJar, timeout time.Duration, insecure bool) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via --insecure
	}
	return &http.Client{
		Jar:       jar,
		Timeout:   timeout,
		Transport: transport,
	}
}

// New creates a Client posting to baseURL
func New(baseURL string, opts ...Option) (*Client, error) {
	endpoint, err := Endpoint(baseURL)
	if err != nil {
		return nil, err
	}

	c := &Client{
		endpoint:   endpoint,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the provisioning URL for a page URL: the same path with
// query and fragment dropped.
func Endpoint(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid server url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid server url %q: missing host", baseURL)
	}
	u.RawQuery = ""
	u.Fragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

// Validate checks local preconditions of a request
func Validate(req models.ConnectionRequest) error {
	if req.KeyTooLarge() {
		return &ValidationError{Field: "privateKey", Message: models.MsgKeyTooLarge}
	}
	return nil
}

// Submit validates req and POSTs it to the provisioning endpoint. A denial is a
// normal result, not an error. Only one Submit may be in flight at a time.
func (c *Client) Submit(ctx context.Context, req models.ConnectionRequest) (models.ProvisioningResult, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return models.ProvisioningResult{}, ErrAlreadyConnecting
	}
	defer c.inFlight.Store(false)

	if err := Validate(req); err != nil {
		return models.ProvisioningResult{}, err
	}

	req = req.Normalize()
	requestID := uuid.New().String()
	log := logger.WithFields(map[string]interface{}{
		"request_id": requestID,
		"endpoint":   c.endpoint,
	})

	if req.HasPrivateKey() {
		if info, err := InspectKey(req.PrivateKey); err == nil {
			log.Debug().Str("key_type", info.Type).Bool("encrypted", info.Encrypted).Msg("submitting private key")
		} else {
			log.Debug().Err(err).Msg("private key not recognised locally, leaving it to the server")
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return models.ProvisioningResult{}, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return models.ProvisioningResult{}, &TransportError{Op: "build request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-Id", requestID)

	log.Debug().Fields(req.Redacted()).Msg("📡 requesting new connection")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.Warn().Err(err).Msg("provisioning request failed")
		return models.ProvisioningResult{}, &TransportError{Op: "provision", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		log.Warn().Int("status", resp.StatusCode).Msg("provisioning endpoint returned non-2xx")
		return models.ProvisioningResult{}, &TransportError{Op: "provision", StatusCode: resp.StatusCode}
	}

	var result models.ProvisioningResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&result); err != nil {
		return models.ProvisioningResult{}, &TransportError{Op: "decode response", Err: err}
	}

	if result.IsAllocated() {
		log.Info().Str("worker_id", result.ID).Msg("✅ worker allocated")
	} else {
		log.Info().Str("status", result.Status).Msg("provisioning denied")
	}
	return result, nil
}
