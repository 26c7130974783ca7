package pipeline

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/simrs/icdflow/internal/domain/record"
	"github.com/simrs/icdflow/internal/ner"
	"github.com/simrs/icdflow/pkg/workerpool"
)

// Orchestrator assembles per-record extraction results: identifying fields
// carried through verbatim, detected entities stored in order, codes resolved
// by the Resolver. It performs no text normalization of its own, keeping
// extraction mechanics and coding logic separated.
//
// Records are independent, so a batch fans out over the orchestrator's worker
// pool. Each batch collects on its own reply channel, so concurrent batches
// share workers without sharing results.
type Orchestrator struct {
	resolver *Resolver
	pool     *workerpool.Pool
	logger   *zap.Logger
	tracer   trace.Tracer
}

// rowTask is the self-contained payload for one record.
type rowTask struct {
	rec record.PatientRecord
	row ner.RowResult
}

// NewOrchestrator creates an orchestrator with its own worker pool. Call
// Start before processing batches and Stop on shutdown.
func NewOrchestrator(resolver *Resolver, poolCfg workerpool.Config, logger *zap.Logger) (*Orchestrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	o := &Orchestrator{
		resolver: resolver,
		logger:   logger,
		tracer:   otel.Tracer("extraction-orchestrator"),
	}

	pool, err := workerpool.New(poolCfg, o.processTask, logger)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	o.pool = pool

	return o, nil
}

// Start launches the worker pool.
func (o *Orchestrator) Start() { o.pool.Start() }

// Stop shuts down the worker pool.
func (o *Orchestrator) Stop() error { return o.pool.Stop() }

// PoolStats exposes worker pool counters for health reporting.
func (o *Orchestrator) PoolStats() workerpool.Stats { return o.pool.Stats() }

// Process produces the result for one record. It is stateless and safe to
// call concurrently.
func (o *Orchestrator) Process(rec record.PatientRecord, entities []string) record.ExtractionResult {
	detected := make([]string, len(entities))
	copy(detected, entities)

	return record.ExtractionResult{
		PatientID:        rec.PatientID,
		PatientName:      rec.PatientName,
		Sex:              rec.Sex,
		Age:              rec.Age,
		VisitID:          rec.VisitID,
		RegistrationDate: rec.RegistrationDate,
		Physician:        rec.Physician,
		Narrative:        rec.Narrative,
		EntitiesDetected: detected,
		ICD10Codes:       o.resolver.Resolve(detected),
		GroundTruth:      rec.GroundTruth,
	}
}

// ProcessBatch produces one result per record, in input order. The extractor
// must supply one row per record; a count mismatch is a contract violation
// that fails the batch. A failed row degrades that record to zero entities
// rather than aborting the batch.
func (o *Orchestrator) ProcessBatch(ctx context.Context, batch *record.Batch, rows []ner.RowResult) ([]record.ExtractionResult, error) {
	ctx, span := o.tracer.Start(ctx, "process_batch",
		trace.WithAttributes(
			attribute.String("batch_id", batch.ID),
			attribute.Int("records", len(batch.Records)),
		))
	defer span.End()

	if len(rows) != len(batch.Records) {
		err := fmt.Errorf("batch %s: %d extractor rows for %d records", batch.ID, len(rows), len(batch.Records))
		span.RecordError(err)
		return nil, err
	}

	tasks := make([]*workerpool.Task, len(batch.Records))
	for i := range batch.Records {
		tasks[i] = &workerpool.Task{
			ID:      fmt.Sprintf("%s/%d", batch.ID, i),
			Payload: rowTask{rec: batch.Records[i], row: rows[i]},
			Context: ctx,
		}
	}

	collected, err := o.pool.Collect(ctx, tasks)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("batch %s: %w", batch.ID, err)
	}

	results := make([]record.ExtractionResult, len(batch.Records))
	for i, task := range tasks {
		res := collected[task.ID]
		if res == nil || !res.Success {
			return nil, fmt.Errorf("batch %s: record %d did not complete", batch.ID, i)
		}
		results[i] = res.Data.(record.ExtractionResult)
	}
	return results, nil
}

func (o *Orchestrator) processTask(ctx context.Context, task *workerpool.Task) *workerpool.Result {
	rt := task.Payload.(rowTask)

	if !rt.row.OK() {
		o.logger.Debug("extractor row degraded to empty",
			zap.String("patient_id", rt.rec.PatientID),
			zap.String("reason", rt.row.FailureReason()))
	}

	return &workerpool.Result{
		TaskID:  task.ID,
		Success: true,
		Data:    o.Process(rt.rec, rt.row.Entities()),
	}
}
