// Package upload implements the optional HTTPS client that hands each
// cycle's emitted metrics to a remote aggregation service. The emitter
// only depends on the Client interface, so running without an upload
// target configured costs nothing.
package upload

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/intel/gprofiler-go/internal/errkind"
	cleanup "github.com/intel/gprofiler-go/internal/errors"
	"github.com/intel/gprofiler-go/internal/metrics"
	"github.com/intel/gprofiler-go/internal/retry"
)

// FormatVersion is the wire format version sent in every upload payload.
const FormatVersion = "1"

// Client uploads a cycle's metrics to the aggregation service. An
// interface so the emitter can be tested against a fake without making
// real HTTP calls.
type Client interface {
	Upload(ctx context.Context, timestamp time.Time, m metrics.Metrics) error
}

// Config configures the HTTPS client.
type Config struct {
	Host       string
	APIVersion string // defaults to "v1"
	APIKey     string
	Service    string
	Hostname   string
	Token      string

	MaxRetries int           // defaults to 3
	Timeout    time.Duration // defaults to 30s
}

// HTTPClient is the real upload.Client, POSTing gzip-compressed JSON to
// "<host>/api/<ver>/spark_metrics". The path name is kept for wire
// compatibility with the existing collector.
type HTTPClient struct {
	cfg    Config
	http   *http.Client
	logger zerolog.Logger
}

// New constructs an HTTPClient.
func New(cfg Config, logger zerolog.Logger) *HTTPClient {
	if cfg.APIVersion == "" {
		cfg.APIVersion = "v1"
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &HTTPClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger.With().Str("component", "upload_client").Logger(),
	}
}

type payload struct {
	FormatVersion string          `json:"format_version"`
	Timestamp     int64           `json:"timestamp"`
	Metrics       metrics.Metrics `json:"metrics"`
}

// Upload sends one cycle's metrics, retrying transient failures with
// internal/retry's exponential backoff. Upload failures are the
// caller's concern to log and ignore; they must never affect subsequent
// cycles.
func (c *HTTPClient) Upload(ctx context.Context, timestamp time.Time, m metrics.Metrics) error {
	body, err := encodeGzipJSON(payload{
		FormatVersion: FormatVersion,
		Timestamp:     timestamp.Unix(),
		Metrics:       m,
	})
	if err != nil {
		return fmt.Errorf("encode upload payload: %w", err)
	}

	retryCfg := retry.Config{
		MaxRetries:     c.cfg.MaxRetries,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Jitter:         0.2,
	}

	// One idempotency key for every retry attempt of this cycle's upload,
	// so the aggregator can de-duplicate a request it actually received
	// but whose response was lost to a network error.
	idempotencyKey := uuid.New().String()

	return retry.Do(ctx, retryCfg, func() error {
		return c.doUpload(ctx, body, timestamp, idempotencyKey)
	}, isRetryable)
}

func (c *HTTPClient) doUpload(ctx context.Context, body []byte, timestamp time.Time, idempotencyKey string) error {
	u, err := url.Parse(fmt.Sprintf("%s/api/%s/spark_metrics", c.cfg.Host, c.cfg.APIVersion))
	if err != nil {
		return fmt.Errorf("build upload url: %w", err)
	}
	q := u.Query()
	q.Set("key", c.cfg.APIKey)
	q.Set("service", c.cfg.Service)
	q.Set("hostname", c.cfg.Hostname)
	q.Set("timestamp", strconv.FormatInt(timestamp.Unix(), 10))
	q.Set("version", c.cfg.APIVersion)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("X-Gprofiler-Service", c.cfg.Service)
	req.Header.Set("X-Idempotency-Key", idempotencyKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upload request failed: %w", err)
	}
	defer cleanup.DeferClose(c.logger, resp.Body, "close upload response body")

	if resp.StatusCode/100 != 2 {
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(resp.Body)
		return &errkind.ApiStatusError{Status: resp.StatusCode, Body: buf.String()}
	}
	return nil
}

func isRetryable(err error) bool {
	var apiErr *errkind.ApiStatusError
	if e, ok := err.(*errkind.ApiStatusError); ok {
		apiErr = e
		return apiErr.Status >= 500 || apiErr.Status == http.StatusTooManyRequests
	}
	return true
}

func encodeGzipJSON(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(raw); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var _ Client = (*HTTPClient)(nil)
