package pgdb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pgrecon/compare"
)

const (
	DefaultBatchSize  = 10000
	DefaultMaxRetries = 3
)

// ErrRetriesExhausted is returned when a batch keeps failing at the minimum
// batch size.
var ErrRetriesExhausted = errors.New("pgdb: extraction retries exhausted")

// PagedExtractor pulls a table's rows in key-ordered batches. A failing batch
// is retried with exponential backoff; when retries are exhausted the batch
// size is halved and extraction restarts for the whole table from offset 0.
type PagedExtractor struct {
	schema     string
	table      string
	keyColumns []string
	BatchSize  int
	MaxRetries int

	fetch func(ctx context.Context, limit, offset int) ([]compare.Record, error)
	sleep func(time.Duration)
}

// Extractor builds a paged extractor for one table, ordered by the given key
// columns.
func (d *DB) Extractor(schema, table string, keyColumns []string) *PagedExtractor {
	e := &PagedExtractor{
		schema:     schema,
		table:      table,
		keyColumns: keyColumns,
		BatchSize:  DefaultBatchSize,
		MaxRetries: DefaultMaxRetries,
		sleep:      time.Sleep,
	}
	e.fetch = func(ctx context.Context, limit, offset int) ([]compare.Record, error) {
		return d.fetchBatch(ctx, e, limit, offset)
	}
	return e
}

// OrderByKey sets the paging order columns. Key resolution calls this when
// the extractor was built without a known key, so batches stay consistently
// ordered across queries.
func (e *PagedExtractor) OrderByKey(columns []string) {
	e.keyColumns = columns
}

// Extract pages through the whole table.
func (e *PagedExtractor) Extract(ctx context.Context) ([]compare.Record, error) {
	batchSize := e.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return e.extract(ctx, batchSize)
}

func (e *PagedExtractor) extract(ctx context.Context, batchSize int) ([]compare.Record, error) {
	var records []compare.Record
	offset := 0
	for {
		batch, err := e.fetchWithRetry(ctx, batchSize, offset)
		if err != nil {
			if batchSize > 1 {
				// Bisect and restart from offset 0; rows fetched so far are
				// discarded rather than resumed.
				return e.extract(ctx, batchSize/2)
			}
			return nil, err
		}
		records = append(records, batch...)
		if len(batch) < batchSize {
			return records, nil
		}
		offset += batchSize
	}
}

func (e *PagedExtractor) fetchWithRetry(ctx context.Context, batchSize, offset int) ([]compare.Record, error) {
	maxRetries := e.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		batch, err := e.fetch(ctx, batchSize, offset)
		if err == nil {
			return batch, nil
		}
		lastErr = err
		if attempt < maxRetries {
			e.sleep(time.Duration(1<<attempt) * time.Second)
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrRetriesExhausted, lastErr)
}

// Sample fetches one arbitrary record for key-column resolution.
func (e *PagedExtractor) Sample(ctx context.Context) (compare.Record, bool, error) {
	batch, err := e.fetch(ctx, 1, 0)
	if err != nil {
		return nil, false, err
	}
	if len(batch) == 0 {
		return nil, false, nil
	}
	return batch[0], true, nil
}

func (d *DB) fetchBatch(ctx context.Context, e *PagedExtractor, limit, offset int) ([]compare.Record, error) {
	query := fmt.Sprintf("SELECT * FROM %s.%s%s LIMIT %d OFFSET %d",
		compare.QuoteIdent(e.schema), compare.QuoteIdent(e.table), orderByClause(e.keyColumns), limit, offset)

	rows, err := d.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("fetch batch at offset %d: %w", offset, err)
	}
	defer rows.Close()

	var records []compare.Record
	for rows.Next() {
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, normalizeRecord(row))
	}
	return records, rows.Err()
}

func orderByClause(keyColumns []string) string {
	if len(keyColumns) == 0 {
		return ""
	}
	quoted := make([]string, len(keyColumns))
	for i, col := range keyColumns {
		quoted[i] = compare.QuoteIdent(col)
	}
	return " ORDER BY " + strings.Join(quoted, ", ")
}

// normalizeRecord converts driver byte slices to strings so both sides of a
// comparison key identically.
func normalizeRecord(row map[string]any) compare.Record {
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			row[k] = string(b)
		}
	}
	return compare.Record(row)
}
