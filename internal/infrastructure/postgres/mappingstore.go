// Package postgres provides PostgreSQL infrastructure components.
// The code mapping table is the only durable state the pipeline reads:
// versioned reference data, loaded once at process start.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/simrs/icdflow/internal/icd10"
)

// MappingStore loads the canonical-term to ICD-10 code mapping from the
// icd_mappings table. The ordinal column defines resolution order, matching
// the insertion-order semantics of the in-memory table.
//
// Expected schema:
//
//	CREATE TABLE icd_mappings (
//	    ordinal  INT PRIMARY KEY,
//	    term     TEXT NOT NULL,
//	    code     TEXT NOT NULL
//	);
type MappingStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewMappingStore creates a mapping store.
func NewMappingStore(pool *pgxpool.Pool, logger *zap.Logger) *MappingStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MappingStore{pool: pool, logger: logger}
}

// LoadTable reads all mapping rows in ordinal order and builds the immutable
// table. A malformed row is a configuration error: the process must not
// start with a broken code set.
func (s *MappingStore) LoadTable(ctx context.Context) (*icd10.Table, error) {
	query := `
		SELECT term, code
		FROM icd_mappings
		ORDER BY ordinal ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query icd_mappings: %w", err)
	}
	defer rows.Close()

	var entries []icd10.Entry
	for rows.Next() {
		var e icd10.Entry
		if err := rows.Scan(&e.Term, &e.Code); err != nil {
			return nil, fmt.Errorf("scan icd_mappings row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read icd_mappings: %w", err)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("icd_mappings is empty")
	}

	table, err := icd10.NewTable(entries)
	if err != nil {
		return nil, fmt.Errorf("build mapping table: %w", err)
	}

	s.logger.Info("mapping table loaded from database",
		zap.Int("entries", table.Len()))
	return table, nil
}

// Count returns the number of mapping rows, used by readiness checks.
func (s *MappingStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM icd_mappings").Scan(&n); err != nil {
		return 0, fmt.Errorf("count icd_mappings: %w", err)
	}
	return n, nil
}

// LoadMappingTable connects resolution of the table source: when databaseURL
// is empty the builtin code set is used; otherwise the table must load from
// Postgres and any failure is fatal to startup (configuration errors do not
// degrade).
func LoadMappingTable(ctx context.Context, databaseURL string, logger *zap.Logger) (*icd10.Table, *pgxpool.Pool, error) {
	if databaseURL == "" {
		logger.Info("using builtin mapping table")
		return icd10.Builtin(), nil, nil
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("database ping failed: %w", err)
	}

	table, err := NewMappingStore(pool, logger).LoadTable(ctx)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return table, pool, nil
}
