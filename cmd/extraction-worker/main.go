// Package main provides the extraction worker entry point.
// Consumes patient record batches from the bus, runs the extraction
// pipeline, and publishes results and accuracy metrics.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/simrs/icdflow/internal/domain/record"
	"github.com/simrs/icdflow/internal/evaluation"
	"github.com/simrs/icdflow/internal/infrastructure/postgres"
	"github.com/simrs/icdflow/internal/infrastructure/redpanda"
	"github.com/simrs/icdflow/internal/ner"
	"github.com/simrs/icdflow/internal/observability/metrics"
	"github.com/simrs/icdflow/internal/observability/tracing"
	"github.com/simrs/icdflow/internal/pipeline"
	"github.com/simrs/icdflow/pkg/workerpool"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	brokers := []string{"localhost:9092"}
	if b := os.Getenv("KAFKA_BROKERS"); b != "" {
		brokers = strings.Split(b, ",")
	}

	extractorURL := os.Getenv("EXTRACTOR_URL")
	if extractorURL == "" {
		extractorURL = "http://localhost:8090"
	}

	ctx := context.Background()

	tracingCfg := tracing.DefaultConfig("extraction-worker")
	tracingCfg.OTLPEndpoint = os.Getenv("OTLP_ENDPOINT")
	tp, err := tracing.Init(ctx, tracingCfg)
	if err != nil {
		logger.Fatal("tracing init failed", zap.Error(err))
	}
	defer tp.Shutdown(context.Background())

	// Ensure topics exist before consuming
	admin, err := redpanda.NewAdmin(brokers, logger)
	if err != nil {
		logger.Fatal("admin client creation failed", zap.Error(err))
	}
	if err := admin.EnsureTopics(ctx); err != nil {
		logger.Fatal("topic creation failed", zap.Error(err))
	}
	admin.Close()

	// Load the mapping table
	table, dbPool, err := postgres.LoadMappingTable(ctx, os.Getenv("DATABASE_URL"), logger)
	if err != nil {
		logger.Fatal("failed to load mapping table", zap.Error(err))
	}
	if dbPool != nil {
		defer dbPool.Close()
	}
	logger.Info("mapping table loaded", zap.Int("entries", table.Len()))

	// Create extractor client
	nerCfg := ner.DefaultClientConfig()
	nerCfg.BaseURL = extractorURL
	extractor, err := ner.NewClient(nerCfg, logger)
	if err != nil {
		logger.Fatal("extractor client creation failed", zap.Error(err))
	}

	// Create pipeline
	resolver := pipeline.NewResolver(table)
	orchestrator, err := pipeline.NewOrchestrator(resolver, workerpool.DefaultConfig(), logger)
	if err != nil {
		logger.Fatal("orchestrator creation failed", zap.Error(err))
	}
	orchestrator.Start()
	defer orchestrator.Stop()

	// Create producer for results
	producerCfg := redpanda.DefaultProducerConfig()
	producerCfg.Brokers = brokers
	producer, err := redpanda.NewProducer(producerCfg, logger)
	if err != nil {
		logger.Fatal("producer creation failed", zap.Error(err))
	}
	defer producer.Close()

	m := metrics.New()

	worker := &batchWorker{
		extractor:    extractor,
		orchestrator: orchestrator,
		producer:     producer,
		metrics:      m,
		logger:       logger,
	}

	// Metrics endpoint
	metricsPort := os.Getenv("METRICS_PORT")
	if metricsPort == "" {
		metricsPort = "9091"
	}
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		if err := http.ListenAndServe(":"+metricsPort, mux); err != nil {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()

	// Create consumer
	consumerCfg := redpanda.DefaultConsumerConfig()
	consumerCfg.Brokers = brokers
	consumerCfg.GroupID = "extraction-worker"
	consumerCfg.Topics = []string{redpanda.TopicBatchesIncoming}

	consumer, err := redpanda.NewConsumer(consumerCfg, worker.handleMessage, logger)
	if err != nil {
		logger.Fatal("consumer creation failed", zap.Error(err))
	}

	consumer.Start()
	logger.Info("extraction worker started", zap.Strings("brokers", brokers))

	// Wait for shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	consumer.Stop()
	producer.Flush(context.Background())
	logger.Info("extraction worker stopped")
}

type batchWorker struct {
	extractor    *ner.Client
	orchestrator *pipeline.Orchestrator
	producer     *redpanda.Producer
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

// resultsMessage is the payload published to the results topic.
type resultsMessage struct {
	BatchID string                    `json:"batch_id"`
	Results []record.ExtractionResult `json:"results"`
	Metrics evaluation.Metrics        `json:"metrics"`
}

// handleMessage processes one consumed batch. Returning nil commits the
// offset; a non-nil return leaves it uncommitted so the batch is retried.
// Malformed batches go to the dead letter topic and are committed, since
// reprocessing cannot fix them.
func (bw *batchWorker) handleMessage(ctx context.Context, msg *redpanda.ConsumedMessage) error {
	bw.metrics.BusMessagesIn.Inc()

	var batch record.Batch
	if err := json.Unmarshal(msg.Value, &batch); err != nil {
		bw.logger.Warn("unparseable batch, dead-lettering",
			zap.String("key", string(msg.Key)),
			zap.Error(err),
		)
		return bw.deadLetter(ctx, msg, err)
	}
	if batch.ID == "" {
		batch.ID = string(msg.Key)
	}

	if err := batch.Validate(); err != nil {
		bw.logger.Warn("invalid batch, dead-lettering",
			zap.String("batch_id", batch.ID),
			zap.Error(err),
		)
		return bw.deadLetter(ctx, msg, err)
	}

	start := time.Now()

	rows, err := bw.extractor.ExtractBatch(ctx, batch.Narratives())
	if err != nil {
		// Transient extractor failure. Leave the offset uncommitted.
		bw.metrics.ExtractorFailures.Inc()
		return fmt.Errorf("extract batch %s: %w", batch.ID, err)
	}

	results, err := bw.orchestrator.ProcessBatch(ctx, &batch, rows)
	if err != nil {
		bw.metrics.BatchesFailed.Inc()
		return fmt.Errorf("process batch %s: %w", batch.ID, err)
	}

	m := evaluation.Evaluate(results)

	payload, err := json.Marshal(resultsMessage{
		BatchID: batch.ID,
		Results: results,
		Metrics: m,
	})
	if err != nil {
		return fmt.Errorf("marshal results for batch %s: %w", batch.ID, err)
	}

	if err := bw.producer.Produce(ctx, redpanda.TopicResults, batch.ID, payload); err != nil {
		return fmt.Errorf("publish results for batch %s: %w", batch.ID, err)
	}

	metricsPayload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal metrics for batch %s: %w", batch.ID, err)
	}
	if err := bw.producer.Produce(ctx, redpanda.TopicMetrics, batch.ID, metricsPayload); err != nil {
		return fmt.Errorf("publish metrics for batch %s: %w", batch.ID, err)
	}
	bw.metrics.BusMessagesOut.Add(2)

	bw.metrics.BatchesProcessed.Inc()
	bw.metrics.RecordsProcessed.Add(float64(m.TotalRecords))
	bw.metrics.BatchDuration.Observe(time.Since(start).Seconds())
	bw.metrics.BatchAccuracy.Set(m.Accuracy)

	bw.logger.Info("batch processed",
		zap.String("batch_id", batch.ID),
		zap.Int("records", m.TotalRecords),
		zap.Float64("accuracy", m.Accuracy),
		zap.Duration("duration", time.Since(start)),
	)

	return nil
}

func (bw *batchWorker) deadLetter(ctx context.Context, msg *redpanda.ConsumedMessage, cause error) error {
	rec := &redpanda.Record{
		Topic: redpanda.TopicDeadLetter,
		Key:   string(msg.Key),
		Value: msg.Value,
		Headers: map[string]string{
			"error":        cause.Error(),
			"source_topic": msg.Topic,
		},
	}
	if err := bw.producer.ProduceBatch(ctx, []*redpanda.Record{rec}); err != nil {
		return fmt.Errorf("dead letter publish: %w", err)
	}
	bw.metrics.BusMessagesOut.Inc()
	return nil
}
