package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// maxResponseSize caps how much of an ERP response body is read (10MB)
const maxResponseSize = 10 * 1024 * 1024

// Client errors
var (
	ErrUnavailable     = errors.New("erp: service unavailable")
	ErrQueryFailed     = errors.New("erp: query failed")
	ErrActionFailed    = errors.New("erp: action failed")
	ErrInvalidResponse = errors.New("erp: invalid response")
)

// QueryError is returned when a bulk query answers with a non-2xx status
type QueryError struct {
	Status int
	Body   string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("erp query failed: %d %s", e.Status, e.Body)
}

func (e *QueryError) Is(target error) bool {
	return target == ErrQueryFailed
}

// ActionError is returned when an action invocation answers with a non-2xx status
type ActionError struct {
	Status int
	Reason string
	Body   string
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("erp action failed: %d %s - %s", e.Status, e.Reason, e.Body)
}

func (e *ActionError) Is(target error) bool {
	return target == ErrActionFailed
}

// DurationRecorder receives the latency of each ERP round trip
type DurationRecorder interface {
	RecordERPRequest(ctx context.Context, operation string, d time.Duration, err error)
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithDurationRecorder reports request latencies to r
func WithDurationRecorder(r DurationRecorder) Option {
	return func(c *Client) {
		c.recorder = r
	}
}

// Client talks to the ERP query and action endpoints with signed requests
type Client struct {
	cfg        *Config
	signer     *Signer
	httpClient *http.Client
	logger     *zap.Logger
	recorder   DurationRecorder
}

// NewClient validates cfg and creates a client
func NewClient(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrConfigMissingAccount
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{
		cfg:    cfg,
		signer: NewSigner(cfg),
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type queryRequest struct {
	Q string `json:"q"`
}

type queryResponse struct {
	Items   []json.RawMessage `json:"items"`
	HasMore bool              `json:"hasMore"`
}

// Query runs a SuiteQL statement and returns the raw result rows
func (c *Client) Query(ctx context.Context, q string) (items []json.RawMessage, err error) {
	start := time.Now()
	defer func() { c.observe(ctx, "query", start, err) }()

	payload, err := json.Marshal(queryRequest{Q: q})
	if err != nil {
		return nil, fmt.Errorf("erp: failed to encode query: %w", err)
	}

	status, body, err := c.doRequest(ctx, http.MethodPost, c.cfg.QueryURL, payload, map[string]string{
		"prefer": "transient",
	})
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		c.logger.Error("ERP query rejected", zap.Int("status", status), zap.String("body", string(body)))
		return nil, &QueryError{Status: status, Body: string(body)}
	}

	var resp queryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return resp.Items, nil
}

// InvokeAction calls a deployed server script. The body is sent as JSON
// for POST and PUT and ignored for other methods.
func (c *Client) InvokeAction(ctx context.Context, scriptID, deployID, method string, body any) (out json.RawMessage, err error) {
	start := time.Now()
	defer func() { c.observe(ctx, "action", start, err) }()

	method = strings.ToUpper(method)
	if method == "" {
		method = http.MethodPost
	}

	target, err := c.actionURL(scriptID, deployID)
	if err != nil {
		return nil, err
	}

	var payload []byte
	if body != nil && (method == http.MethodPost || method == http.MethodPut) {
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("erp: failed to encode action body: %w", err)
		}
	}

	status, respBody, err := c.doRequest(ctx, method, target, payload, nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		c.logger.Error("ERP action rejected",
			zap.String("script", scriptID),
			zap.Int("status", status),
			zap.String("body", string(respBody)))
		return nil, &ActionError{Status: status, Reason: http.StatusText(status), Body: string(respBody)}
	}
	if !json.Valid(respBody) {
		return nil, fmt.Errorf("%w: action response is not JSON", ErrInvalidResponse)
	}
	return json.RawMessage(respBody), nil
}

func (c *Client) actionURL(scriptID, deployID string) (string, error) {
	u, err := url.Parse(c.cfg.RestletURL)
	if err != nil {
		return "", fmt.Errorf("erp: invalid action url: %w", err)
	}
	q := u.Query()
	q.Set("script", scriptID)
	q.Set("deploy", deployID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// doRequest signs and sends one request and returns status and body
func (c *Client) doRequest(ctx context.Context, method, target string, payload []byte, headers map[string]string) (int, []byte, error) {
	auth, err := c.signer.Authorization(method, target)
	if err != nil {
		return 0, nil, err
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("erp: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", auth)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return 0, nil, fmt.Errorf("erp: failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) observe(ctx context.Context, op string, start time.Time, err error) {
	if c.recorder != nil {
		c.recorder.RecordERPRequest(ctx, op, time.Since(start), err)
	}
}
