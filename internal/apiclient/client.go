// Package apiclient talks to the secure data access backend. It is the only
// package that sees the wire format; callers get normalized model types.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/innoguard/internal/model"
	"github.com/jwalitptl/innoguard/pkg/circuitbreaker"
	"github.com/jwalitptl/innoguard/pkg/logger"
	"github.com/jwalitptl/innoguard/pkg/metrics"
)

const HeaderXRequestID = "X-Request-ID"

// Endpoint labels used in logs and metrics.
const (
	EndpointToken    = "token"
	EndpointPatients = "patients"
	EndpointDownload = "download"
)

// StatusError is returned when the backend answers outside the 2xx range.
type StatusError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Endpoint, e.Status)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

type Config struct {
	BaseURL string
	Timeout time.Duration
	Breaker circuitbreaker.Settings
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	metrics    *metrics.Metrics
	logger     *logger.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(cfg Config, opts ...Option) *Client {
	breakerSettings := cfg.Breaker
	if breakerSettings.Name == "" {
		breakerSettings.Name = "backend-api"
	}
	breakerSettings.IsFailure = isBreakerFailure

	c := &Client{
		baseURL:    trimSlash(cfg.BaseURL),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    circuitbreaker.NewCircuitBreaker(breakerSettings),
		metrics:    metrics.New("innoguard_client"),
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API base all requests are made against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// BreakerState reports the circuit breaker state for the readiness check.
func (c *Client) BreakerState() string {
	return c.breaker.State()
}

// RequestToken exchanges a role for an access token. The response is
// returned as decoded; an empty AccessToken is left for the caller to judge.
func (c *Client) RequestToken(ctx context.Context, role model.Role) (*model.TokenResponse, error) {
	body, err := json.Marshal(model.TokenRequest{Role: role})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal token request: %w", err)
	}

	var out model.TokenResponse
	err = c.do(ctx, EndpointToken, http.MethodPost, "/token", "", bytes.NewReader(body), func(resp *http.Response) error {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return fmt.Errorf("failed to decode token response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPatients fetches one page of patients and normalizes its rows.
func (c *Client) ListPatients(ctx context.Context, token string, limit, offset int) (*model.PatientPage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var page *model.PatientPage
	err := c.do(ctx, EndpointPatients, http.MethodGet, "/patients?"+q.Encode(), token, nil, func(resp *http.Response) error {
		p, err := DecodePatientPage(resp.Body)
		if err != nil {
			return err
		}
		page = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// DownloadPatients opens the CSV export. The caller must close the returned
// body.
func (c *Client) DownloadPatients(ctx context.Context, token string) (io.ReadCloser, error) {
	var body io.ReadCloser
	err := c.do(ctx, EndpointDownload, http.MethodGet, "/download/patients", token, nil, func(resp *http.Response) error {
		body = resp.Body
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// do issues one request. handle runs only for 2xx responses; the body is
// closed afterwards unless handle took ownership of it by returning it to
// the caller (download).
func (c *Client) do(ctx context.Context, endpoint, method, path, token string, body io.Reader, handle func(*http.Response) error) error {
	requestID := uuid.New().String()
	start := time.Now()
	status := 0
	keepBody := endpoint == EndpointDownload

	err := c.breaker.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set(HeaderXRequestID, requestID)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		status = resp.StatusCode

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			defer resp.Body.Close()
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return &StatusError{Endpoint: endpoint, Status: resp.StatusCode, Body: string(snippet)}
		}

		if !keepBody {
			defer resp.Body.Close()
		}
		if err := handle(resp); err != nil {
			if keepBody {
				resp.Body.Close()
			}
			return err
		}
		return nil
	})

	c.observe(endpoint, status, time.Since(start))
	zl := c.logger.Zerolog()
	var ev *zerolog.Event
	if err != nil {
		ev = zl.Warn().Err(err)
	} else {
		ev = zl.Debug()
	}
	ev.Str("request_id", requestID).
		Str("endpoint", endpoint).
		Str("method", method).
		Int("status", status).
		Dur("latency", time.Since(start)).
		Msg("backend request")

	return err
}

func (c *Client) observe(endpoint string, status int, d time.Duration) {
	if c.metrics == nil {
		return
	}
	label := "error"
	if status != 0 {
		label = strconv.Itoa(status)
	}
	c.metrics.APIRequests.WithLabelValues(endpoint, label).Inc()
	c.metrics.APILatency.WithLabelValues(endpoint).Observe(d.Seconds())
}

// isBreakerFailure counts transport errors and 5xx answers; a 4xx is the
// backend working as intended.
func isBreakerFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status >= 500
	}
	return true
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
