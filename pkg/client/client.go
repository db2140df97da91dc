// Package client is the Go SDK for the ContractKeeper REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/turtacn/ContractKeeper/pkg/errors"
	"github.com/turtacn/ContractKeeper/pkg/types/common"
)

const Version = "0.1.0"

// apiPrefix is prepended to every resource path.
const apiPrefix = "/api/v1"

// Logger defines the logging interface used by the Client
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...interface{}) {}
func (noopLogger) Infof(string, ...interface{})  {}
func (noopLogger) Errorf(string, ...interface{}) {}

// Client is the ContractKeeper SDK client.  It authenticates with a bearer
// token issued by the identity provider.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	token        string
	userAgent    string
	logger       Logger
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration

	contracts      *ContractsClient
	contractsOnce  sync.Once
	trash          *TrashClient
	trashOnce      sync.Once
	categories     *CategoriesClient
	categoriesOnce sync.Once
	settings       *SettingsClient
	settingsOnce   sync.Once
}

// APIError is an error response from the API.
type APIError struct {
	StatusCode int               `json:"status_code"`
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Fields     map[string]string `json:"fields,omitempty"`
	RequestID  string            `json:"request_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("contractkeeper: %s (HTTP %d): %s [request_id=%s]", e.Code, e.StatusCode, e.Message, e.RequestID)
}

func (e *APIError) IsNotFound() bool     { return e.StatusCode == http.StatusNotFound }
func (e *APIError) IsUnauthorized() bool { return e.StatusCode == http.StatusUnauthorized }
func (e *APIError) IsForbidden() bool    { return e.StatusCode == http.StatusForbidden }

// IsValidation reports a rejected payload; Fields names the offending
// fields.
func (e *APIError) IsValidation() bool { return e.StatusCode == http.StatusUnprocessableEntity }

func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string, token string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New(errors.ErrCodeConfigError, "baseURL is required")
	}
	if token == "" {
		return nil, errors.New(errors.ErrCodeConfigError, "token is required")
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigError, "invalid baseURL")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, errors.New(errors.ErrCodeConfigError, "baseURL scheme must be http or https")
	}

	c := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		token:        token,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		userAgent:    fmt.Sprintf("contractkeeper-go-sdk/%s", Version),
		logger:       noopLogger{},
		retryMax:     3,
		retryWaitMin: 500 * time.Millisecond,
		retryWaitMax: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Contracts returns the contracts sub-client.
func (c *Client) Contracts() *ContractsClient {
	c.contractsOnce.Do(func() { c.contracts = &ContractsClient{client: c} })
	return c.contracts
}

// Trash returns the trash sub-client.
func (c *Client) Trash() *TrashClient {
	c.trashOnce.Do(func() { c.trash = &TrashClient{client: c} })
	return c.trash
}

// Categories returns the categories sub-client.
func (c *Client) Categories() *CategoriesClient {
	c.categoriesOnce.Do(func() { c.categories = &CategoriesClient{client: c} })
	return c.categories
}

// Settings returns the settings sub-client.
func (c *Client) Settings() *SettingsClient {
	c.settingsOnce.Do(func() { c.settings = &SettingsClient{client: c} })
	return c.settings
}

// do performs a request against apiPrefix+path.  Idempotent methods are
// retried on transport errors, 5xx and 429; a Retry-After header replaces
// the computed wait.  POST is sent once.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "cannot encode request body")
		}
	}

	policy := c.retryPolicy()
	attempt := func() error {
		err := c.send(ctx, method, path, payload, result, policy)
		switch {
		case err == nil:
			return nil
		case ctx.Err() != nil:
			return backoff.Permanent(ctx.Err())
		case !idempotent(method) || !retryable(err):
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Debugf("%s %s failed, retrying in %v: %v", method, path, wait, err)
	}

	retries := uint64(0)
	if idempotent(method) && c.retryMax > 0 {
		retries = uint64(c.retryMax)
	}
	b := backoff.WithContext(backoff.WithMaxRetries(policy, retries), ctx)
	return backoff.RetryNotify(attempt, b, notify)
}

// send performs one HTTP round trip.
func (c *Client) send(ctx context.Context, method, path string, payload []byte, result interface{}, policy *retryAfterBackOff) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, body)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeBadRequest, "cannot build request")
	}
	requestID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Errorf("%s %s: %v", method, path, err)
		return err
	}
	defer resp.Body.Close()
	c.logger.Debugf("%s %s %d (%v)", method, path, resp.StatusCode, time.Since(start))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs >= 0 {
			policy.override = time.Duration(secs) * time.Second
		}
		return newAPIError(resp.StatusCode, requestID, raw)
	}
	if result == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "cannot decode response body")
	}
	return nil
}

// retryable reports whether a failed round trip may succeed when repeated.
// Transport errors are, as are 5xx and 429 responses.
func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsServerError() || apiErr.StatusCode == http.StatusTooManyRequests
	}
	var local *errors.AppError
	return !errors.As(err, &local)
}

func (c *Client) retryPolicy() *retryAfterBackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.retryWaitMin
	exp.MaxInterval = c.retryWaitMax
	exp.Multiplier = 2
	exp.RandomizationFactor = 0.25
	exp.MaxElapsedTime = 0
	return &retryAfterBackOff{BackOff: exp}
}

// retryAfterBackOff lets a server-sent Retry-After replace the next
// computed interval once.
type retryAfterBackOff struct {
	backoff.BackOff
	override time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next != backoff.Stop && b.override > 0 {
		next, b.override = b.override, 0
	}
	return next
}

func (b *retryAfterBackOff) Reset() {
	b.override = 0
	b.BackOff.Reset()
}

func newAPIError(status int, requestID string, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, RequestID: requestID}
	if len(body) == 0 {
		return apiErr
	}
	var errResp common.ErrorBody
	if err := json.Unmarshal(body, &errResp); err == nil {
		apiErr.Code, apiErr.Message, apiErr.Fields = errResp.Code, errResp.Message, errResp.Fields
	} else {
		apiErr.Message = string(body)
	}
	return apiErr
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodHead:
		return true
	}
	return false
}

func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, result interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

func (c *Client) put(ctx context.Context, path string, body interface{}, result interface{}) error {
	return c.do(ctx, http.MethodPut, path, body, result)
}

func (c *Client) delete(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodDelete, path, nil, result)
}

//Personal.AI order the ending
