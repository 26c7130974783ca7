// Package handlers implements HTTP handlers for the extraction API.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/simrs/icdflow/internal/api/middleware"
	"github.com/simrs/icdflow/internal/domain/record"
	"github.com/simrs/icdflow/internal/evaluation"
	"github.com/simrs/icdflow/internal/ner"
	"github.com/simrs/icdflow/internal/observability/metrics"
	"github.com/simrs/icdflow/internal/pipeline"
)

// ExtractionHandler handles diagnosis extraction requests.
type ExtractionHandler struct {
	extractor    *ner.Client
	orchestrator *pipeline.Orchestrator
	resolver     *pipeline.Resolver
	metrics      *metrics.Metrics
	logger       *zap.Logger
	tracer       trace.Tracer
}

// NewExtractionHandler creates a new extraction handler.
func NewExtractionHandler(
	extractor *ner.Client,
	orchestrator *pipeline.Orchestrator,
	resolver *pipeline.Resolver,
	m *metrics.Metrics,
	logger *zap.Logger,
) *ExtractionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExtractionHandler{
		extractor:    extractor,
		orchestrator: orchestrator,
		resolver:     resolver,
		metrics:      m,
		logger:       logger,
		tracer:       otel.Tracer("extraction-handler"),
	}
}

// Routes registers the extraction routes.
func (h *ExtractionHandler) Routes(r chi.Router) {
	r.Post("/batches", h.ProcessBatch)
	r.Post("/resolve", h.ResolveEntities)
}

type batchRequest struct {
	Records []record.PatientRecord `json:"records"`
}

type batchResponse struct {
	BatchID string                    `json:"batch_id"`
	Results []record.ExtractionResult `json:"results"`
	Metrics evaluation.Metrics        `json:"metrics"`
}

// ProcessBatch runs the full extraction pipeline over a batch of patient
// records and returns per-record results with summary accuracy metrics.
func (h *ExtractionHandler) ProcessBatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "handler.ProcessBatch")
	defer span.End()

	start := time.Now()

	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	batch := record.NewBatch(req.Records)
	if err := batch.Validate(); err != nil {
		h.jsonError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	span.SetAttributes(
		attribute.String("batch.id", batch.ID),
		attribute.Int("batch.records", len(batch.Records)),
	)

	rows, err := h.extractor.ExtractBatch(ctx, batch.Narratives())
	if err != nil {
		h.metrics.ExtractorFailures.Inc()
		h.metrics.BatchesFailed.Inc()
		h.logger.Error("extractor call failed",
			zap.String("batch_id", batch.ID),
			zap.Error(err),
		)
		h.jsonError(w, http.StatusBadGateway, "entity extraction failed")
		return
	}

	results, err := h.orchestrator.ProcessBatch(ctx, batch, rows)
	if err != nil {
		h.metrics.BatchesFailed.Inc()
		h.logger.Error("batch processing failed",
			zap.String("batch_id", batch.ID),
			zap.Error(err),
		)
		h.jsonError(w, http.StatusInternalServerError, "batch processing failed")
		return
	}

	m := evaluation.Evaluate(results)

	var entities, codes int
	for i := range results {
		entities += len(results[i].EntitiesDetected)
		codes += len(results[i].ICD10Codes)
	}

	h.metrics.BatchesProcessed.Inc()
	h.metrics.RecordsProcessed.Add(float64(len(results)))
	h.metrics.EntitiesDetected.Add(float64(entities))
	h.metrics.CodesResolved.Add(float64(codes))
	h.metrics.BatchDuration.Observe(time.Since(start).Seconds())
	h.metrics.BatchAccuracy.Set(m.Accuracy)

	h.logger.Info("batch processed",
		zap.String("batch_id", batch.ID),
		zap.Int("records", m.TotalRecords),
		zap.Float64("accuracy", m.Accuracy),
		zap.String("request_id", middleware.GetRequestID(ctx)),
	)

	h.writeJSON(w, http.StatusOK, batchResponse{
		BatchID: batch.ID,
		Results: results,
		Metrics: m,
	})
}

type resolveRequest struct {
	Entities []string `json:"entities"`
}

type resolveResponse struct {
	Entities []string `json:"entities"`
	Codes    []string `json:"icd10_codes"`
}

// ResolveEntities maps a list of clinical entities to ICD-10 codes without
// invoking the extractor.
func (h *ExtractionHandler) ResolveEntities(w http.ResponseWriter, r *http.Request) {
	_, span := h.tracer.Start(r.Context(), "handler.ResolveEntities")
	defer span.End()

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	codes := h.resolver.Resolve(req.Entities)
	if codes == nil {
		codes = []string{}
	}
	h.metrics.CodesResolved.Add(float64(len(codes)))

	h.writeJSON(w, http.StatusOK, resolveResponse{
		Entities: req.Entities,
		Codes:    codes,
	})
}

func (h *ExtractionHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (h *ExtractionHandler) jsonError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
