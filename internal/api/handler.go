package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/session"
)

// maxUploadBytes bounds the multipart form size for /upload.
const maxUploadBytes = 32 << 20

// Handler holds dependencies for API handlers.
type Handler struct {
	store   *session.Store
	runner  *session.Runner
	cache   domain.ClassificationCache
	bus     domain.EventBus
	version string
}

// NewHandler creates a new API handler.
func NewHandler(store *session.Store, runner *session.Runner, cache domain.ClassificationCache, bus domain.EventBus, version string) *Handler {
	return &Handler{
		store:   store,
		runner:  runner,
		cache:   cache,
		bus:     bus,
		version: version,
	}
}

// UploadResponse is the response for POST /upload.
type UploadResponse struct {
	SessionID       string `json:"session_id"`
	ComplaintsCount int    `json:"complaints_count"`
	RiskTableLoaded bool   `json:"risk_table_loaded"`
	Message         string `json:"message"`
}

// Upload handles POST /upload: a multipart form with a complaints CSV
// and a risk table CSV, opening a new session.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid multipart form: " + err.Error(),
		})
		return
	}

	complaintsFile, _, err := r.FormFile("complaints_file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "complaints_file is required",
		})
		return
	}
	defer complaintsFile.Close()

	riskFile, _, err := r.FormFile("risk_table_file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "risk_table_file is required",
		})
		return
	}
	defer riskFile.Close()

	complaints, err := parseComplaints(complaintsFile)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "failed to parse complaints file: " + err.Error(),
		})
		return
	}
	if len(complaints) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "complaints file contains no complaints",
		})
		return
	}

	riskTable, err := parseRiskTable(riskFile)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "failed to parse risk table file: " + err.Error(),
		})
		return
	}
	if len(riskTable) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "risk table file contains no entries",
		})
		return
	}

	s := session.New(complaints, riskTable)
	h.store.Put(s)

	slog.Info("session created",
		"session_id", s.ID,
		"complaints", len(complaints),
		"risk_entries", len(riskTable),
	)
	h.publishSessionEvent(r, s.ID, domain.TopicSessionCreated)

	writeJSON(w, http.StatusOK, UploadResponse{
		SessionID:       s.ID,
		ComplaintsCount: len(complaints),
		RiskTableLoaded: true,
		Message:         fmt.Sprintf("Uploaded %d complaints and %d risk table entries", len(complaints), len(riskTable)),
	})
}

// InfoResponse is the response for GET /sessions/{id}.
type InfoResponse struct {
	SessionID       string                 `json:"session_id"`
	CreatedAt       time.Time              `json:"created_at"`
	Status          domain.SessionState    `json:"status"`
	ComplaintsCount int                    `json:"complaints_count"`
	RiskTableLoaded bool                   `json:"risk_table_loaded"`
	Iteration       int                    `json:"iteration"`
	HasResults      bool                   `json:"has_results"`
	FeedbackLog     []domain.FeedbackEntry `json:"feedback_log"`
	HistoryRuns     int                    `json:"history_runs"`
}

// Info handles GET /sessions/{id}: session metadata including the
// feedback audit trail.
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, InfoResponse{
		SessionID:       s.ID,
		CreatedAt:       s.CreatedAt,
		Status:          s.State(),
		ComplaintsCount: s.ComplaintCount(),
		RiskTableLoaded: s.RiskTableLoaded(),
		Iteration:       s.Iteration(),
		HasResults:      s.HasResults(),
		FeedbackLog:     s.FeedbackLog(),
		HistoryRuns:     len(s.History()),
	})
}

// Process handles POST /sessions/{id}/process: triggers an asynchronous
// classification run and returns immediately.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := h.runner.Start(s); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"session_id": s.ID,
		"status":     string(domain.StateProcessing),
		"message":    "Processing started",
	})
}

// Progress handles GET /sessions/{id}/progress.
func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, s.Progress())
}

// ResultsResponse is the response for GET /sessions/{id}/results.
type ResultsResponse struct {
	SessionID      string             `json:"session_id"`
	Results        []domain.ResultRow `json:"results"`
	TotalRows      int                `json:"total_rows"`
	ProcessingTime float64            `json:"processing_time_seconds"`
	Iteration      int                `json:"iteration"`
}

// Results handles GET /sessions/{id}/results. Only a completed run has
// results; anything else is a conflict.
func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	rows, elapsed, err := s.Results()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ResultsResponse{
		SessionID:      s.ID,
		Results:        rows,
		TotalRows:      len(rows),
		ProcessingTime: elapsed,
		Iteration:      s.Iteration(),
	})
}

// Export handles GET /sessions/{id}/export: streams the result set as a
// CSV attachment.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	// Pre-check completion so the error is JSON, not half a CSV.
	if _, _, err := s.Results(); err != nil {
		writeDomainError(w, err)
		return
	}

	filename := session.ExportFilename(time.Now())
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := s.WriteCSV(w); err != nil {
		slog.Error("csv export failed",
			"session_id", s.ID,
			"error", err,
		)
	}
}

// FeedbackRequest is the request body for POST /sessions/{id}/feedback.
type FeedbackRequest struct {
	Feedback string `json:"feedback"`
}

// Feedback handles POST /sessions/{id}/feedback: triggers a
// reprocessing run with the feedback folded into the prompt.
func (h *Handler) Feedback(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid request body: " + err.Error(),
		})
		return
	}
	feedback := strings.TrimSpace(req.Feedback)
	if feedback == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "feedback is required",
		})
		return
	}

	if err := h.runner.StartWithFeedback(s, feedback); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"session_id": s.ID,
		"status":     string(domain.StateProcessing),
		"iteration":  s.Iteration(),
		"message":    "Reprocessing started with feedback",
	})
}

// Delete handles DELETE /sessions/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.store.Delete(id); err != nil {
		writeDomainError(w, err)
		return
	}

	slog.Info("session deleted", "session_id", id)
	h.publishSessionEvent(r, id, domain.TopicSessionDeleted)

	writeJSON(w, http.StatusOK, map[string]string{
		"session_id": id,
		"message":    "Session deleted",
	})
}

// CacheStats handles GET /cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	size, err := h.cache.Size(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "cache unavailable: " + err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"cached_classifications": size,
		"active_sessions":        h.store.Count(),
	})
}

// CacheClear handles DELETE /cache/clear.
func (h *Handler) CacheClear(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.Clear(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to clear cache: " + err.Error(),
		})
		return
	}

	slog.Info("classification cache cleared")
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Cache cleared",
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	if h.bus != nil {
		if err := h.bus.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// session resolves the {id} URL parameter, writing the 404 itself on a
// miss.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := chi.URLParam(r, "id")

	s, err := h.store.Get(id)
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	return s, true
}

// writeDomainError maps domain sentinel errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrNoComplaints), errors.Is(err, domain.ErrNoRiskTable):
		status = http.StatusBadRequest
	}

	writeJSON(w, status, map[string]string{
		"error": err.Error(),
	})
}

func (h *Handler) publishSessionEvent(r *http.Request, sessionID, topic string) {
	if h.bus == nil {
		return
	}
	payload, _ := json.Marshal(map[string]string{"sessionId": sessionID})
	if err := h.bus.Publish(r.Context(), sessionID, topic, payload); err != nil {
		slog.Warn("event publish failed",
			"session_id", sessionID,
			"topic", topic,
			"error", err,
		)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
