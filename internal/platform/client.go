// Package platform implements the typed HTTP client for the CertifyPro
// platform API. The platform owns authentication, certificate minting,
// anchoring, and persistence; this client performs exactly one network call
// per operation, decodes the uniform {success, message, data} envelope, and
// converts failures into the taxonomy in errors.go. No operation retries.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/certifypro/certportal/internal/telemetry"
)

const defaultTimeout = 15 * time.Second

// Credentials holds the opaque bearer token authorizing a call. The zero
// value means the call is made unauthenticated.
type Credentials struct {
	Token string
}

// Settings configures a Client.
type Settings struct {
	// BaseURL is the platform API root, e.g. "https://api.certifypro.example/api".
	BaseURL string
	// Timeout bounds each request end to end. Zero means the default 15s.
	Timeout time.Duration
	// HTTPClient overrides the transport; mainly for tests. When set, Timeout
	// is ignored in favour of the supplied client's own.
	HTTPClient *http.Client
}

// Client is a CertifyPro platform API client. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient validates settings and builds a Client.
func NewClient(settings Settings) (*Client, error) {
	base := strings.TrimRight(settings.BaseURL, "/")
	if base == "" {
		return nil, errors.New("platform: base URL is required")
	}
	hc := settings.HTTPClient
	if hc == nil {
		timeout := settings.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: base, httpClient: hc}, nil
}

// envelope is the uniform response wrapper every platform endpoint returns.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// do executes one request against the platform and decodes the envelope's
// data field into out (when non-nil). creds may be nil for public endpoints.
// op is the fixed operation name used as the metrics label; never derive it
// from a raw path, which would leak ids into label cardinality.
func (c *Client) do(ctx context.Context, op, method, path string, creds *Credentials, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("platform: encode %s %s body: %w", method, path, err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("platform: create %s %s request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuthHeader(req, creds)

	return c.send(req, op, out)
}

// doMultipart executes a multipart/form-data upload with a single file field.
func (c *Client) doMultipart(ctx context.Context, op, path string, creds *Credentials, fieldName, fileName string, file io.Reader, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(fieldName, fileName)
	if err != nil {
		return fmt.Errorf("platform: build multipart body: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("platform: read upload payload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("platform: finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("platform: create upload request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.setAuthHeader(req, creds)

	return c.send(req, op, out)
}

func (c *Client) setAuthHeader(req *http.Request, creds *Credentials) {
	if creds != nil && creds.Token != "" {
		req.Header.Set("Authorization", "Bearer "+creds.Token)
	}
}

// send performs the request and maps the outcome onto the error taxonomy.
func (c *Client) send(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		telemetry.PlatformRequestsTotal.WithLabelValues(op, "unreachable").Inc()
		return NewAPIError(0, "platform unreachable", fmt.Errorf("%w: %v", ErrUnavailable, err))
	}
	defer resp.Body.Close()

	telemetry.PlatformRequestsTotal.WithLabelValues(op, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewAPIError(resp.StatusCode, "read platform response", fmt.Errorf("%w: %v", ErrUnavailable, err))
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := env.Message
		if decodeErr != nil || message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return NewAPIError(resp.StatusCode, message, sentinelFor(resp.StatusCode))
	}

	if decodeErr != nil {
		return NewAPIError(resp.StatusCode, "malformed platform response", fmt.Errorf("%w: %v", ErrUnavailable, decodeErr))
	}

	// A 2xx with success=false breaks the platform contract; treat it like a
	// server-side failure so callers do not act on half-formed data.
	if !env.Success {
		message := env.Message
		if message == "" {
			message = "platform reported failure"
		}
		return NewAPIError(resp.StatusCode, message, ErrUnavailable)
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return NewAPIError(resp.StatusCode, "decode platform response data", fmt.Errorf("%w: %v", ErrUnavailable, err))
		}
	}
	return nil
}
