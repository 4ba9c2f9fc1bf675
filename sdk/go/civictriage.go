// Package sdk is a small client for the civictriage HTTP API.
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Client{BaseURL: baseURL, HTTP: &http.Client{Timeout: 60 * time.Second}}
}

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Message    string `json:"message"`
	RequestID  string `json:"request_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("civictriage: %d %s (request %s)", e.StatusCode, e.Message, e.RequestID)
}

type SeverityFactors struct {
	BaseCategory      string `json:"base_category"`
	HasUrgentKeywords bool   `json:"has_urgent_keywords"`
	HasMinorKeywords  bool   `json:"has_minor_keywords"`
	UserInput         string `json:"user_input"`
	DuplicateCount    int    `json:"duplicate_count"`
	TrustUser         bool   `json:"trust_user"`
}

type Verdict struct {
	Category        string           `json:"category"`
	Severity        string           `json:"severity"`
	IsSpam          bool             `json:"is_spam"`
	Confidence      float64          `json:"confidence"`
	Reasoning       string           `json:"reasoning"`
	Method          string           `json:"method"`
	SeverityFactors *SeverityFactors `json:"severity_factors,omitempty"`
}

type Report struct {
	ID           string     `json:"id"`
	Description  string     `json:"description"`
	PhotoURL     string     `json:"photo_url,omitempty"`
	Latitude     float64    `json:"latitude"`
	Longitude    float64    `json:"longitude"`
	Category     string     `json:"category"`
	Severity     string     `json:"severity"`
	IsSpam       bool       `json:"is_spam"`
	AIConfidence float64    `json:"ai_confidence"`
	Reasoning    string     `json:"reasoning"`
	Status       string     `json:"status"`
	UserID       string     `json:"user_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
}

type Candidate struct {
	ID              string  `json:"id"`
	Description     string  `json:"description"`
	Category        string  `json:"category"`
	SimilarityScore float64 `json:"similarity_score"`
	IsDuplicate     bool    `json:"is_duplicate"`
}

type LinkedReport struct {
	Report
	Similarity float64 `json:"similarity_score"`
}

type ReportDetail struct {
	Report
	Duplicates []LinkedReport `json:"duplicates"`
}

type Submission struct {
	Description  string  `json:"description"`
	PhotoURL     string  `json:"photo_url,omitempty"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	UserSeverity string  `json:"user_severity,omitempty"`
	UserID       string  `json:"user_id,omitempty"`
}

type SubmitResult struct {
	Message    string      `json:"message"`
	Report     Report      `json:"report"`
	Verdict    Verdict     `json:"verdict"`
	Candidates []Candidate `json:"candidates"`
}

type TriageResult struct {
	Preliminary Verdict     `json:"preliminary"`
	Verdict     Verdict     `json:"verdict"`
	Candidates  []Candidate `json:"candidates"`
}

type Stats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Resolved int `json:"resolved"`
	Spam     int `json:"spam"`
}

// ListOptions filters Reports. Zero values are omitted.
type ListOptions struct {
	Categories  []string
	Severities  []string
	Statuses    []string
	ExcludeSpam bool
	Limit       int
	Offset      int
}

func (o ListOptions) values() url.Values {
	q := url.Values{}
	for _, c := range o.Categories {
		q.Add("category", c)
	}
	for _, s := range o.Severities {
		q.Add("severity", s)
	}
	for _, s := range o.Statuses {
		q.Add("status", s)
	}
	if o.ExcludeSpam {
		q.Set("exclude_spam", "true")
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Offset > 0 {
		q.Set("offset", strconv.Itoa(o.Offset))
	}
	return q
}

func (c *Client) Submit(ctx context.Context, s Submission) (*SubmitResult, error) {
	var out SubmitResult
	return &out, c.do(ctx, http.MethodPost, "/v1/reports", nil, s, &out)
}

// Triage returns the verdict a submission would get without storing it.
func (c *Client) Triage(ctx context.Context, s Submission) (*TriageResult, error) {
	var out TriageResult
	return &out, c.do(ctx, http.MethodPost, "/v1/triage", nil, s, &out)
}

func (c *Client) Reports(ctx context.Context, opts ListOptions) ([]Report, error) {
	var out struct {
		Data []Report `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/reports", opts.values(), nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) Report(ctx context.Context, id string) (*ReportDetail, error) {
	var out ReportDetail
	return &out, c.do(ctx, http.MethodGet, "/v1/reports/"+url.PathEscape(id), nil, nil, &out)
}

func (c *Client) UpdateStatus(ctx context.Context, id, status string) (*Report, error) {
	var out Report
	body := map[string]string{"status": status}
	return &out, c.do(ctx, http.MethodPatch, "/v1/reports/"+url.PathEscape(id)+"/status", nil, body, &out)
}

func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var out Stats
	return &out, c.do(ctx, http.MethodGet, "/v1/stats", nil, nil, &out)
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, out any) error {
	u := c.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
