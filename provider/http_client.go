package provider

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/mstgnz/signpay/infra/logger"
	"github.com/mstgnz/signpay/infra/opensearch"
)

// maxResponseBytes caps how much of a provider answer is read into memory
const maxResponseBytes = 1 << 20

// HTTPClientConfig configures the JSON client a provider talks through
type HTTPClientConfig struct {
	BaseURL            string
	Timeout            time.Duration
	InsecureSkipVerify bool
	Username           string
	Password           string
	DefaultHeaders     map[string]string
}

// HTTPRequest is one call to a provider endpoint. Endpoint is joined to
// BaseURL unless it is already absolute.
type HTTPRequest struct {
	Method      string
	Endpoint    string
	Headers     map[string]string
	Body        any
	QueryParams map[string]string
}

// HTTPResponse is a provider answer with its body fully read
type HTTPResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// ProviderHTTPClient sends JSON requests with basic auth to a payment provider
type ProviderHTTPClient struct {
	config *HTTPClientConfig
	client *http.Client
}

// NewProviderHTTPClient creates a client; a zero timeout becomes 30 seconds
func NewProviderHTTPClient(config *HTTPClientConfig) *ProviderHTTPClient {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &ProviderHTTPClient{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: config.InsecureSkipVerify},
			},
		},
	}
}

// SendJSON sends req and reads the answer. Non-2xx answers are returned
// together with an *Error so callers can still inspect the body.
func (c *ProviderHTTPClient) SendJSON(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error) {
	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, NewError("transport", "HTTP request failed", 0, fmt.Errorf("%w: %v", ErrTransport, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, NewError("transport", "failed to read response body", resp.StatusCode, fmt.Errorf("%w: %v", ErrTransport, err))
	}

	logger.Debug("Provider response", logger.LogContext{
		RequestID: middleware.GetReqID(ctx),
		Fields: map[string]any{
			"method":      req.Method,
			"endpoint":    req.Endpoint,
			"status_code": resp.StatusCode,
			"duration_ms": time.Since(started).Milliseconds(),
		},
	})

	answer := &HTTPResponse{StatusCode: resp.StatusCode, Headers: resp.Header, Body: body}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return answer, NewError("http_error", strings.TrimSpace(string(body)), resp.StatusCode, ErrorForStatus(resp.StatusCode))
	}
	return answer, nil
}

func (c *ProviderHTTPClient) newRequest(ctx context.Context, req *HTTPRequest) (*http.Request, error) {
	target := c.buildURL(req.Endpoint, req.QueryParams)

	var payload []byte
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, NewError("encode_failed", "failed to marshal JSON body", 0, err)
		}
		payload = encoded
	}

	logger.Debug("Provider request", logger.LogContext{
		RequestID: middleware.GetReqID(ctx),
		Fields: map[string]any{
			"method": req.Method,
			"url":    opensearch.SanitizeForLog(target),
			"body":   opensearch.SanitizeForLog(string(payload)),
		},
	})

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, NewError("request_failed", "failed to create HTTP request", 0, err)
	}

	for key, value := range c.config.DefaultHeaders {
		httpReq.Header.Set(key, value)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if id := middleware.GetReqID(ctx); id != "" && httpReq.Header.Get(middleware.RequestIDHeader) == "" {
		httpReq.Header.Set(middleware.RequestIDHeader, id)
	}
	if c.config.Username != "" {
		httpReq.SetBasicAuth(c.config.Username, c.config.Password)
	}

	return httpReq, nil
}

// buildURL joins endpoint to the base URL and appends query parameters
func (c *ProviderHTTPClient) buildURL(endpoint string, queryParams map[string]string) string {
	target := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		target = strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
	}

	if len(queryParams) == 0 {
		return target
	}

	u, err := url.Parse(target)
	if err != nil {
		return target
	}

	q := u.Query()
	for key, value := range queryParams {
		q.Set(key, value)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// ParseJSONResponse decodes the answer body into target
func (c *ProviderHTTPClient) ParseJSONResponse(response *HTTPResponse, target any) error {
	if err := json.Unmarshal(response.Body, target); err != nil {
		return NewError("decode_failed", "invalid JSON in provider response", response.StatusCode, fmt.Errorf("%w: %v", ErrMalformedResponse, err))
	}
	return nil
}

// CreateHTTPClientConfig returns the JSON client settings shared by providers.
// TLS verification is skipped outside production.
func CreateHTTPClientConfig(baseURL string, isProduction bool, timeout time.Duration) *HTTPClientConfig {
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &HTTPClientConfig{
		BaseURL:            baseURL,
		Timeout:            timeout,
		InsecureSkipVerify: !isProduction,
		DefaultHeaders: map[string]string{
			"Accept":     "application/json",
			"User-Agent": "SignPay/1.0",
		},
	}
}
