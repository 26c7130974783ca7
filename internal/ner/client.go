package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/simrs/icdflow/pkg/circuitbreaker"
)

// ClientConfig holds configuration for the extraction service client.
type ClientConfig struct {
	// BaseURL is the extraction service endpoint.
	BaseURL string
	// Timeout bounds a single batch call. Model inference on a large batch is
	// slow; this is a transport guard, not a retry policy.
	Timeout time.Duration
	// Model names the pretrained model to run.
	Model string
}

// DefaultClientConfig returns defaults for a local clinical NER service.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL: "http://localhost:8090",
		Timeout: 120 * time.Second,
		Model:   "ner_dl_clinical",
	}
}

// Client calls the external entity extractor over HTTP. One call covers the
// whole batch to amortize model load latency. The client never retries; retry
// policy belongs to the caller.
type Client struct {
	config  ClientConfig
	http    *http.Client
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
	tracer  trace.Tracer
}

// NewClient creates a new extraction service client.
func NewClient(cfg ClientConfig, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("extractor base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultClientConfig().Timeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	breaker, err := circuitbreaker.New(circuitbreaker.DefaultConfig("ner-extractor"), logger)
	if err != nil {
		return nil, fmt.Errorf("create circuit breaker: %w", err)
	}

	return &Client{
		config:  cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		logger:  logger,
		tracer:  otel.Tracer("ner-client"),
	}, nil
}

// extractRequest is the wire request: one narrative per row.
type extractRequest struct {
	Model string   `json:"model"`
	Texts []string `json:"texts"`
}

// extractResponse is the wire response: one row per input text, same order.
type extractResponse struct {
	Rows []extractRow `json:"rows"`
}

type extractRow struct {
	Entities []string `json:"entities"`
	Error    string   `json:"error,omitempty"`
}

// ExtractBatch sends the narratives in one call and returns one RowResult per
// narrative, in input order. A transport failure, non-200 status, or row
// count mismatch fails the whole batch.
func (c *Client) ExtractBatch(ctx context.Context, narratives []string) ([]RowResult, error) {
	ctx, span := c.tracer.Start(ctx, "ner_extract_batch",
		trace.WithAttributes(
			attribute.Int("batch_size", len(narratives)),
			attribute.String("model", c.config.Model),
		))
	defer span.End()

	if len(narratives) == 0 {
		return nil, nil
	}

	result, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		return c.doExtract(ctx, narratives)
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("extractor call failed: %w", err)
	}

	rows := result.([]RowResult)
	if len(rows) != len(narratives) {
		err := fmt.Errorf("extractor returned %d rows for %d narratives", len(rows), len(narratives))
		span.RecordError(err)
		return nil, err
	}

	return rows, nil
}

func (c *Client) doExtract(ctx context.Context, narratives []string) ([]RowResult, error) {
	body, err := json.Marshal(extractRequest{
		Model: c.config.Model,
		Texts: narratives,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/extract", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post extract: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("extractor returned status %d: %s", resp.StatusCode, snippet)
	}

	var payload extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	rows := make([]RowResult, len(payload.Rows))
	for i, row := range payload.Rows {
		if row.Error != "" {
			rows[i] = Failure(row.Error)
			c.logger.Debug("extractor row failed",
				zap.Int("row", i),
				zap.String("reason", row.Error))
			continue
		}
		rows[i] = Entities(row.Entities)
	}

	return rows, nil
}

// BreakerState exposes the circuit state for health reporting.
func (c *Client) BreakerState() circuitbreaker.State {
	return c.breaker.GetState()
}
