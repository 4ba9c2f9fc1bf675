package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/rajasatyajit/civictriage/internal/errors"
	"github.com/rajasatyajit/civictriage/internal/models"
	"github.com/rajasatyajit/civictriage/internal/pipeline"
	"github.com/rajasatyajit/civictriage/internal/triage"
)

const (
	maxBodyBytes     = 64 << 10
	defaultListLimit = 100
	maxListLimit     = 1000
)

// SubmitResponse is returned by POST /v1/reports.
type SubmitResponse struct {
	Message    string                      `json:"message"`
	Report     models.Report               `json:"report"`
	Verdict    models.Verdict              `json:"verdict"`
	Duplicates *DuplicateSummary           `json:"duplicates,omitempty"`
	Candidates []models.DuplicateCandidate `json:"candidates,omitempty"`
}

// DuplicateSummary describes nearby similar reports.
type DuplicateSummary struct {
	Count   int    `json:"count"`
	Linked  int    `json:"linked"`
	Message string `json:"message"`
}

// ReportDetail is returned by GET /v1/reports/{id}.
type ReportDetail struct {
	models.Report
	Duplicates []models.LinkedReport `json:"duplicates"`
}

type statusUpdate struct {
	Status string `json:"status"`
}

func (h *Handler) submitReportHandler(w http.ResponseWriter, r *http.Request) {
	var req pipeline.SubmitRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err, "decode report")
		return
	}
	req.UserSeverity = normalizeSeverity(req.UserSeverity)

	res, err := h.submitter.Submit(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err, "submit report")
		return
	}

	resp := SubmitResponse{
		Message:    "Report submitted successfully",
		Report:     res.Report,
		Verdict:    res.Verdict,
		Candidates: res.Candidates,
	}
	if res.Verdict.IsSpam {
		resp.Message = "Report flagged as spam"
	}
	if n := len(res.Candidates); n > 0 {
		resp.Duplicates = &DuplicateSummary{
			Count:   n,
			Linked:  len(res.Links),
			Message: fmt.Sprintf("%d similar report(s) found in this area", n),
		}
	}
	h.writeJSONResponse(w, http.StatusCreated, resp)
}

// triageHandler returns the verdict a submission would get without storing it.
func (h *Handler) triageHandler(w http.ResponseWriter, r *http.Request) {
	var req pipeline.SubmitRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err, "decode triage")
		return
	}
	req.UserSeverity = normalizeSeverity(req.UserSeverity)
	if err := req.Validate(); err != nil {
		h.writeError(w, r, err, "triage")
		return
	}

	outcome := h.triager.Triage(r.Context(), triage.Submission{
		Description:  req.Description,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		UserSeverity: req.UserSeverity,
	})
	h.writeJSONResponse(w, http.StatusOK, outcome)
}

func (h *Handler) listReportsHandler(w http.ResponseWriter, r *http.Request) {
	q, err := parseReportQuery(r)
	if err != nil {
		h.writeError(w, r, err, "parse query")
		return
	}

	reports, err := h.store.QueryReports(r.Context(), q)
	if err != nil {
		h.writeError(w, r, err, "query reports")
		return
	}
	if reports == nil {
		reports = []models.Report{}
	}

	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"data":      reports,
		"count":     len(reports),
		"timestamp": time.Now().UTC(),
	})
}

func (h *Handler) getReportHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	report, err := h.store.GetReport(ctx, id)
	if err != nil {
		h.writeError(w, r, err, "get report")
		return
	}
	if report == nil {
		h.writeErrorResponse(w, r, http.StatusNotFound, "Report not found")
		return
	}

	dups, err := h.store.DuplicatesOf(ctx, id)
	if err != nil {
		h.writeError(w, r, err, "get duplicates")
		return
	}
	if dups == nil {
		dups = []models.LinkedReport{}
	}
	h.writeJSONResponse(w, http.StatusOK, ReportDetail{Report: *report, Duplicates: dups})
}

func (h *Handler) updateStatusHandler(w http.ResponseWriter, r *http.Request) {
	var body statusUpdate
	if err := decodeBody(w, r, &body); err != nil {
		h.writeError(w, r, err, "decode status")
		return
	}
	status := strings.ToLower(strings.TrimSpace(body.Status))
	if !models.ValidStatus(status) {
		h.writeError(w, r, apperrors.ValidationError{
			Field:   "status",
			Message: "must be one of pending, in_progress, resolved",
		}, "update status")
		return
	}

	report, err := h.store.UpdateStatus(r.Context(), chi.URLParam(r, "id"), status, time.Now())
	if err != nil {
		h.writeError(w, r, err, "update status")
		return
	}
	h.writeJSONResponse(w, http.StatusOK, report)
}

func (h *Handler) statsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.writeError(w, r, err, "stats")
		return
	}
	h.writeJSONResponse(w, http.StatusOK, stats)
}

// decodeBody reads a single JSON object, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return apperrors.ValidationError{Field: "body", Message: "is empty"}
		}
		return apperrors.ValidationError{Field: "body", Message: err.Error()}
	}
	return nil
}

// normalizeSeverity accepts any casing; unknown values are left for
// validation to reject.
func normalizeSeverity(s models.Severity) models.Severity {
	if s == "" {
		return s
	}
	if parsed := models.ParseSeverity(string(s)); parsed != "" {
		return parsed
	}
	return s
}

// parseReportQuery parses query parameters into a ReportQuery
func parseReportQuery(r *http.Request) (models.ReportQuery, error) {
	values := r.URL.Query()
	q := models.ReportQuery{
		Limit:      defaultListLimit,
		Categories: values["category"],
		Statuses:   values["status"],
	}

	for _, s := range values["severity"] {
		sev := models.ParseSeverity(s)
		if sev == "" {
			return q, apperrors.ValidationError{Field: "severity", Message: fmt.Sprintf("invalid severity: %s", s)}
		}
		q.Severities = append(q.Severities, string(sev))
	}
	for _, s := range q.Statuses {
		if !models.ValidStatus(s) {
			return q, apperrors.ValidationError{Field: "status", Message: fmt.Sprintf("invalid status: %s", s)}
		}
	}

	if limitStr := values.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return q, apperrors.ValidationError{Field: "limit", Message: fmt.Sprintf("invalid limit: %s", limitStr)}
		}
		if limit < 1 || limit > maxListLimit {
			return q, apperrors.ValidationError{Field: "limit", Message: fmt.Sprintf("limit must be between 1 and %d", maxListLimit)}
		}
		q.Limit = limit
	}

	if offsetStr := values.Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return q, apperrors.ValidationError{Field: "offset", Message: fmt.Sprintf("invalid offset: %s", offsetStr)}
		}
		if offset < 0 {
			return q, apperrors.ValidationError{Field: "offset", Message: "offset must be non-negative"}
		}
		q.Offset = offset
	}

	if spamStr := values.Get("exclude_spam"); spamStr != "" {
		exclude, err := strconv.ParseBool(spamStr)
		if err != nil {
			return q, apperrors.ValidationError{Field: "exclude_spam", Message: fmt.Sprintf("invalid boolean: %s", spamStr)}
		}
		q.ExcludeSpam = exclude
	}

	return q, nil
}
