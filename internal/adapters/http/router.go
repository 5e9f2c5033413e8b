package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/plant-care-assistant/internal/config"
	"github.com/kirillkom/plant-care-assistant/internal/core/domain"
	"github.com/kirillkom/plant-care-assistant/internal/core/ports"
	"github.com/kirillkom/plant-care-assistant/internal/infrastructure/vision"
	"github.com/kirillkom/plant-care-assistant/internal/observability/logging"
	"github.com/kirillkom/plant-care-assistant/internal/observability/metrics"
)

const (
	serviceName          = "api"
	imageFormField       = "image"
	runIDHeader          = "X-Run-Id"
	multipartOverhead    = 1 << 20
	defaultListLimit     = 20
	defaultMaxImageBytes = 10 << 20
	runHistoryWriteTime  = 5 * time.Second
)

type Router struct {
	cfg      config.Config
	pipeline ports.ArticlePipeline
	runs     ports.RunRepository
	metrics  *metrics.HTTPServerMetrics
	now      func() time.Time
}

// NewRouter builds the HTTP surface. runs and httpMetrics may be nil: run
// history and /metrics are then disabled.
func NewRouter(
	cfg config.Config,
	pipeline ports.ArticlePipeline,
	runs ports.RunRepository,
	httpMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:      cfg,
		pipeline: pipeline,
		runs:     runs,
		metrics:  httpMetrics,
		now:      time.Now,
	}
}

func (rt *Router) Handler() http.Handler {
	var rejects rejectRecorder
	if rt.metrics != nil {
		rejects = rt.metrics
	}

	predict := http.Handler(http.HandlerFunc(rt.predict))
	predict = backpressureMiddleware(
		predict,
		rt.cfg.APIMaxInFlight,
		time.Duration(rt.cfg.APIBackpressureWaitMS)*time.Millisecond,
		rejects,
	)
	predict = rateLimitMiddleware(predict, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, rejects)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.Handle("POST /api/predict", predict)
	mux.HandleFunc("GET /v1/runs", rt.listRuns)
	mux.HandleFunc("GET /v1/runs/{run_id}", rt.getRun)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) predict(w http.ResponseWriter, r *http.Request) {
	maxBytes := rt.cfg.MaxImageBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxImageBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)

	file, _, err := r.FormFile(imageFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "image is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "multipart field 'image' is required")
		return
	}
	defer file.Close()

	img, format, err := vision.DecodeImage(file, maxBytes)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	ctx := r.Context()
	if timeout := rt.cfg.PipelineTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, err := rt.pipeline.RunDetailed(ctx, img)
	if err != nil {
		if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
			slog.Info("predict_client_gone", "request_id", logging.RequestIDFromContext(ctx))
			return
		}
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	slog.InfoContext(ctx, "predict_completed",
		"request_id", logging.RequestIDFromContext(ctx),
		"run_id", result.RunID,
		"image_format", format,
		"species", result.Species.Label,
		"fallback_reason", string(result.FallbackReason),
	)
	rt.recordRun(r.Context(), *result)

	w.Header().Set(runIDHeader, result.RunID)
	writeJSON(w, http.StatusOK, map[string]string{"article": result.Article})
}

// recordRun stores a run summary. A failed write never fails the request.
func (rt *Router) recordRun(ctx context.Context, result domain.PipelineResult) {
	if rt.runs == nil {
		return
	}
	requestID := logging.RequestIDFromContext(ctx)
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), runHistoryWriteTime)
	defer cancel()

	err := rt.runs.Create(writeCtx, domain.NewPipelineRun(result, requestID, rt.now()))
	if rt.metrics != nil {
		rt.metrics.RecordRunHistoryWrite(err)
	}
	if err != nil {
		slog.WarnContext(ctx, "run_history_write_failed",
			"request_id", requestID,
			"run_id", result.RunID,
			"error", err,
		)
	}
}

func (rt *Router) getRun(w http.ResponseWriter, r *http.Request) {
	if rt.runs == nil {
		writeError(w, http.StatusNotImplemented, "run history is disabled")
		return
	}
	id := strings.TrimSpace(r.PathValue("run_id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "run id is required")
		return
	}

	run, err := rt.runs.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (rt *Router) listRuns(w http.ResponseWriter, r *http.Request) {
	if rt.runs == nil {
		writeError(w, http.StatusNotImplemented, "run history is disabled")
		return
	}
	limit := defaultListLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	runs, err := rt.runs.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	if runs == nil {
		runs = []domain.PipelineRun{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("http_response_encode_failed", "error", err)
	}
}
