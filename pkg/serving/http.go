package serving

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/tbdelay/platform/pkg/common/logger"
	"github.com/tbdelay/platform/pkg/common/models"
	"github.com/tbdelay/platform/pkg/observability/metrics"
	"github.com/tbdelay/platform/pkg/schema"
	"github.com/tbdelay/platform/pkg/serving/predictor"
)

// ArtifactStatus tells the front end whether a model can be served.
// *predictor.Predictor satisfies it.
type ArtifactStatus interface {
	Available() bool
	Path() string
}

// PredictionHistory reads back logged predictions. *Repository satisfies it.
type PredictionHistory interface {
	Recent(ctx context.Context, limit int) ([]PredictionLog, error)
}

const defaultRecentLimit = 20

type HTTPHandler struct {
	service  *Service
	artifact ArtifactStatus
	history  PredictionHistory
}

func NewHTTPHandler(service *Service, artifact ArtifactStatus) *HTTPHandler {
	return &HTTPHandler{service: service, artifact: artifact}
}

// WithHistory enables GET /api/v1/predictions/recent.
func (h *HTTPHandler) WithHistory(history PredictionHistory) *HTTPHandler {
	h.history = history
	return h
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/", h.handleIndex).Methods(http.MethodGet)
	router.HandleFunc("/predict", h.handleFormPredict).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/predict", h.handleAPIPredict).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/predictions/recent", h.handleRecent).Methods(http.MethodGet)
	router.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/metrics", h.handleMetrics).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleIndex(w http.ResponseWriter, r *http.Request) {
	if !h.artifact.Available() {
		h.renderMissing(w)
		return
	}
	h.render(w, http.StatusOK, newPage(formValues(schema.DefaultObservation())))
}

func (h *HTTPHandler) handleFormPredict(w http.ResponseWriter, r *http.Request) {
	if !h.artifact.Available() {
		metrics.ObserveModelUnavailable()
		h.renderMissing(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		logger.Log.WithError(err).Warn("invalid form submission")
		http.Error(w, "invalid form submission", http.StatusBadRequest)
		return
	}
	page := newPage(submittedValues(r.PostForm))

	obs, err := ParseForm(r.PostForm)
	if err != nil {
		metrics.ObserveRejectedInput()
		page.Error = err.Error()
		h.render(w, http.StatusBadRequest, page)
		return
	}

	assessment, err := h.service.Assess(r.Context(), obs)
	if err != nil {
		switch {
		case IsInputError(err):
			page.Error = err.Error()
			h.render(w, http.StatusBadRequest, page)
		case errors.Is(err, predictor.ErrModelNotFound):
			h.renderMissing(w)
		default:
			logger.Log.WithError(err).Error("failed to assess submission")
			page.Error = "Prediction failed. Check the server logs."
			h.render(w, http.StatusInternalServerError, page)
		}
		return
	}

	page.Result = newResult(assessment)
	h.render(w, http.StatusOK, page)
}

func (h *HTTPHandler) handleAPIPredict(w http.ResponseWriter, r *http.Request) {
	var req models.PredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Log.WithError(err).Warn("invalid prediction payload")
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	obs, err := schema.FromValues(req.Features)
	if err != nil {
		metrics.ObserveRejectedInput()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	assessment, err := h.service.AssessPatient(r.Context(), req.PatientID, obs)
	if err != nil {
		switch {
		case IsInputError(err):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, predictor.ErrModelNotFound):
			writeError(w, http.StatusServiceUnavailable, "model not trained yet")
		default:
			logger.Log.WithError(err).Error("failed to assess prediction request")
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, assessment.Response(req.PatientID))
}

func (h *HTTPHandler) handleRecent(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotFound, "prediction log disabled")
		return
	}
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	logs, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to read prediction log")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if logs == nil {
		logs = []PredictionLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "healthy",
		"model_loaded": h.artifact.Available(),
	})
}

func (h *HTTPHandler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics.WritePrometheus(w)
}

func (h *HTTPHandler) renderMissing(w http.ResponseWriter) {
	page := newPage(nil)
	page.ModelMissing = true
	page.ArtifactPath = h.artifact.Path()
	h.render(w, http.StatusServiceUnavailable, page)
}

func (h *HTTPHandler) render(w http.ResponseWriter, status int, page pageView) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, page); err != nil {
		logger.Log.WithError(err).Error("failed to render page")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
