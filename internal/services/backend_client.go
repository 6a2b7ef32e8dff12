package services

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
	"sync"
	"time"

	"go.uber.org/zap"

	"negotiation-dashboard/backend-go/internal/config"
	"negotiation-dashboard/backend-go/internal/metrics"
	"negotiation-dashboard/backend-go/internal/models"
)

var ErrCircuitOpen = errors.New("backend circuit breaker open")

// BackendClient talks to the REST backend that owns projects, vendors and
// the compiled negotiation analytics.
type BackendClient struct {
	baseURL      string
	token        string
	hc           *http.Client
	statsTimeout time.Duration
	cb           *circuitBreaker
	logger       *zap.Logger
}

type UpstreamError struct {
	Status  int
	Code    int
	Message string
	Body    string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend api: %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend api: %d", e.Status)
}

type bearerTokenKey struct{}

// WithBearerToken attaches the caller's token to ctx. Requests made with
// that context forward it instead of the configured service token.
func WithBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerTokenKey{}, token)
}

func bearerToken(ctx context.Context) string {
	v, _ := ctx.Value(bearerTokenKey{}).(string)
	return v
}

type circuitBreaker struct {
	mu        sync.Mutex
	failures  int
	threshold int
	openedAt  time.Time
	cooldown  time.Duration
}

func newCircuitBreaker(threshold int, cooldown time.Duration) *circuitBreaker {
	if threshold <= 0 {
		threshold = 1
	}
	return &circuitBreaker{threshold: threshold, cooldown: cooldown}
}

func (c *circuitBreaker) allow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures < c.threshold {
		return true
	}
	if time.Since(c.openedAt) > c.cooldown {
		c.failures = 0
		c.openedAt = time.Time{}
		return true
	}
	return false
}

func (c *circuitBreaker) success() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = 0
	c.openedAt = time.Time{}
}

func (c *circuitBreaker) fail() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures++
	if c.failures >= c.threshold {
		c.openedAt = time.Now()
	}
}

func NewBackendClient(cfg config.Config, logger *zap.Logger) *BackendClient {
	return &BackendClient{
		baseURL: strings.TrimRight(cfg.BackendBaseURL, "/"),
		token:   cfg.BackendAPIToken,
		hc: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		statsTimeout: cfg.StatisticsTimeout,
		cb:           newCircuitBreaker(cfg.CircuitFailLimit, cfg.CircuitCooldown),
		logger:       logger,
	}
}

func (c *BackendClient) Health(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	res, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return fmt.Errorf("backend health: %s", res.Status)
	}
	return nil
}

// FetchStatistics returns the raw analytics document compiled for a vendor.
// A successful response that is not a JSON object yields an empty document.
func (c *BackendClient) FetchStatistics(ctx context.Context, vendorID string) (map[string]any, error) {
	var payload any
	path := "/statistics/compile/" + url.PathEscape(vendorID)
	if err := c.call(ctx, "statistics", http.MethodGet, path, nil, &payload, 3, c.statsTimeout); err != nil {
		return nil, err
	}
	doc, ok := payload.(map[string]any)
	if !ok {
		c.logger.Warn("statistics payload is not an object", zap.String("vendor_id", vendorID))
		return map[string]any{}, nil
	}
	return doc, nil
}

func (c *BackendClient) GetProject(ctx context.Context, projectID string) (models.Project, error) {
	var out models.Project
	path := "/projects/" + url.PathEscape(projectID)
	if err := c.call(ctx, "project", http.MethodGet, path, nil, &out, 3, 0); err != nil {
		return out, err
	}
	if out.Vendors == nil {
		out.Vendors = []models.Vendor{}
	}
	return out, nil
}

// SendForecasterMessage posts one chat message. It is never retried.
func (c *BackendClient) SendForecasterMessage(ctx context.Context, req models.ForecasterRequest) (models.ForecasterResponse, error) {
	var out models.ForecasterResponse
	payload, err := json.Marshal(req)
	if err != nil {
		return out, err
	}
	err = c.call(ctx, "forecaster", http.MethodPost, "/forecaster/chat", payload, &out, 1, 0)
	return out, err
}

func (c *BackendClient) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token := bearerToken(ctx)
	if token == "" {
		token = c.token
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// call runs one backend request through the circuit breaker. Transport
// failures, 5xx answers and undecodable bodies are retried with linear
// back-off; 4xx answers are returned immediately.
func (c *BackendClient) call(ctx context.Context, endpoint, method, path string, body []byte, out any, attempts int, timeout time.Duration) error {
	if !c.cb.allow() {
		metrics.UpstreamRequests.WithLabelValues(endpoint, "circuit_open").Inc()
		return ErrCircuitOpen
	}

	start := time.Now()
	defer func() {
		metrics.UpstreamDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	hc := c.hc
	if timeout > 0 {
		cp := *c.hc
		cp.Timeout = timeout
		hc = &cp
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				c.cb.fail()
				metrics.UpstreamRequests.WithLabelValues(endpoint, "canceled").Inc()
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 300 * time.Millisecond):
			}
		}

		req, err := c.newRequest(ctx, method, path, body)
		if err != nil {
			return err
		}
		err = c.doOnce(hc, req, out)
		if err == nil {
			c.cb.success()
			metrics.UpstreamRequests.WithLabelValues(endpoint, "ok").Inc()
			return nil
		}

		var upErr *UpstreamError
		if errors.As(err, &upErr) && upErr.Status < 500 {
			c.cb.success()
			metrics.UpstreamRequests.WithLabelValues(endpoint, "client_error").Inc()
			return err
		}
		lastErr = err
		c.logger.Debug("backend attempt failed",
			zap.String("endpoint", endpoint),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}

	c.cb.fail()
	metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
	c.logger.Warn("backend request failed",
		zap.String("endpoint", endpoint),
		zap.String("path", path),
		zap.Error(lastErr),
	)
	return lastErr
}

func (c *BackendClient) doOnce(hc *http.Client, req *http.Request, out any) error {
	res, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		return newUpstreamError(res)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return nil
}

func newUpstreamError(res *http.Response) *UpstreamError {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	upErr := &UpstreamError{Status: res.StatusCode, Body: string(body)}
	var parsed models.ErrorResponse
	if err := json.Unmarshal(body, &parsed); err == nil {
		upErr.Code = parsed.Code
		upErr.Message = parsed.Message
	}
	return upErr
}
