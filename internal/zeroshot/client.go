package zeroshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/rajasatyajit/civictriage/internal/errors"
	"github.com/rajasatyajit/civictriage/internal/logger"
	"github.com/rajasatyajit/civictriage/internal/metrics"
)

const defaultTimeout = 10 * time.Second

type classifyRequest struct {
	Text            string   `json:"text"`
	CandidateLabels []string `json:"candidate_labels"`
}

type classifyResponse struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

type healthResponse struct {
	ModelVersion string `json:"model_version"`
}

// ClientOptions configures an HTTPClient.
type ClientOptions struct {
	Timeout   time.Duration
	RateLimit float64 // requests per second; 0 means unlimited
}

// HTTPClient calls the classifier sidecar's /classify and /health endpoints.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewHTTPClient creates a client for the service at baseURL.
func NewHTTPClient(baseURL string, opts ClientOptions) *HTTPClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return c
}

// Classify implements Classifier.
func (c *HTTPClient) Classify(ctx context.Context, text string, labels []string) (Result, error) {
	start := time.Now()
	res, err := c.classify(ctx, text, labels)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RecordClassifierCall(status, time.Since(start))
	return res, err
}

func (c *HTTPClient) classify(ctx context.Context, text string, labels []string) (Result, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, apperrors.ClassifierError{Stage: "rate_limit", Err: err}
		}
	}

	body, err := json.Marshal(classifyRequest{Text: text, CandidateLabels: labels})
	if err != nil {
		return nil, apperrors.ClassifierError{Stage: "classify", Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/classify", bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.ClassifierError{Stage: "classify", Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.ClassifierError{Stage: "classify", Err: fmt.Errorf("http request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.ClassifierError{Stage: "classify", Err: fmt.Errorf("classifier returned %d", resp.StatusCode)}
	}

	var out classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperrors.ClassifierError{Stage: "decode", Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(out.Labels) != len(out.Scores) {
		return nil, apperrors.ClassifierError{
			Stage: "decode",
			Err:   fmt.Errorf("got %d labels but %d scores", len(out.Labels), len(out.Scores)),
		}
	}
	return newResult(out.Labels, out.Scores), nil
}

// Health probes GET /health and returns the reported model version, which
// may be empty.
func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("service unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unhealthy status: %d", resp.StatusCode)
	}
	// The body is optional; a 200 alone means healthy.
	var h healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		logger.Debug("Classifier health body not decoded", "url", c.baseURL, "error", err)
		return "", nil
	}
	return h.ModelVersion, nil
}
