package compare

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
)

// keyDelimiter joins stringified key-column values into a RecordKey. The key
// is an equality token only; it is never parsed back.
const keyDelimiter = "|#|"

// RecordExtractor produces the rows of one table on one side. Live sides
// page through the table; dump sides serve the parsed record list.
type RecordExtractor interface {
	Extract(ctx context.Context) ([]Record, error)
	// Sample returns one record when the table has any, for key-column
	// resolution. ok is false for an empty table.
	Sample(ctx context.Context) (rec Record, ok bool, err error)
}

// KeyOrderer is implemented by extractors whose paging order depends on the
// key columns. TableData feeds the resolved columns back through it before
// extraction so multi-batch paging stays stable even when the extractor was
// built without a known key.
type KeyOrderer interface {
	OrderByKey(columns []string)
}

// StaticExtractor serves pre-parsed records, typically a dump side.
type StaticExtractor struct {
	Records []Record
}

func (e *StaticExtractor) Extract(ctx context.Context) ([]Record, error) {
	return e.Records, nil
}

func (e *StaticExtractor) Sample(ctx context.Context) (Record, bool, error) {
	if len(e.Records) == 0 {
		return nil, false, nil
	}
	return e.Records[0], true, nil
}

// RecordKey derives the lookup token identifying one logical row. Records
// with an identical key are treated as the same row even if non-key columns
// differ; two records whose key columns are all NULL share a key and collide.
func RecordKey(rec Record, keyColumns []string) string {
	parts := make([]string, len(keyColumns))
	for i, col := range keyColumns {
		parts[i] = keyString(rec[col])
	}
	return strings.Join(parts, keyDelimiter)
}

// keyString renders one key-column value as key text. Dump-side values keep
// their literal text, so a timestamp keys as e.g. "2024-06-01 12:30:00" from
// a dump but as RFC 3339 from a live side; tables keyed by a timestamp column
// only reconcile reliably when both sides come from the same kind of source.
func keyString(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// ResolveKeyColumns picks the columns used to key records: introspected
// primary keys when available, else the "id" column when a sampled record has
// one, else the sampled record's full column set as a composite key. An empty
// result with a nil error means no key could be determined and the table must
// be skipped.
func ResolveKeyColumns(ctx context.Context, primaryKeys []string, source, target RecordExtractor) ([]string, error) {
	if len(primaryKeys) > 0 {
		return primaryKeys, nil
	}

	sample, ok, err := source.Sample(ctx)
	if err != nil {
		return nil, fmt.Errorf("sample source: %w", err)
	}
	if !ok {
		sample, ok, err = target.Sample(ctx)
		if err != nil {
			return nil, fmt.Errorf("sample target: %w", err)
		}
	}
	if !ok {
		return nil, nil
	}

	if _, hasID := sample["id"]; hasID {
		return []string{"id"}, nil
	}

	columns := make([]string, 0, len(sample))
	for col := range sample {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return columns, nil
}

// TableData reconciles the rows of one table across the two sides. Pass the
// table's introspected primary-key columns as keyColumns; an empty slice
// triggers resolution via ResolveKeyColumns. Extraction failures mark the
// result Failed rather than reporting a clean table.
func TableData(ctx context.Context, table string, source, target RecordExtractor, keyColumns []string) TableDataDiff {
	diff := TableDataDiff{Table: table}

	resolved, err := ResolveKeyColumns(ctx, keyColumns, source, target)
	if err != nil {
		diff.State = StateFailed
		diff.Reason = err.Error()
		return diff
	}
	if len(resolved) == 0 {
		log.Printf("Warning: skipping data comparison for table '%s': no key columns could be determined", table)
		diff.State = StateSkipped
		diff.Reason = "no key columns could be determined"
		return diff
	}

	if o, ok := source.(KeyOrderer); ok {
		o.OrderByKey(resolved)
	}
	if o, ok := target.(KeyOrderer); ok {
		o.OrderByKey(resolved)
	}

	sourceRecords, err := source.Extract(ctx)
	if err != nil {
		diff.State = StateFailed
		diff.Reason = fmt.Sprintf("extract source: %v", err)
		return diff
	}
	targetRecords, err := target.Extract(ctx)
	if err != nil {
		diff.State = StateFailed
		diff.Reason = fmt.Sprintf("extract target: %v", err)
		return diff
	}

	diff.SourceCount = len(sourceRecords)
	diff.TargetCount = len(targetRecords)

	sourceByKey := make(map[string]Record, len(sourceRecords))
	for _, rec := range sourceRecords {
		sourceByKey[RecordKey(rec, resolved)] = rec
	}
	targetByKey := make(map[string]Record, len(targetRecords))
	for _, rec := range targetRecords {
		targetByKey[RecordKey(rec, resolved)] = rec
	}

	for _, rec := range sourceRecords {
		if _, exists := targetByKey[RecordKey(rec, resolved)]; !exists {
			diff.MissingInTarget = append(diff.MissingInTarget, rec)
		}
	}
	for _, rec := range targetRecords {
		if _, exists := sourceByKey[RecordKey(rec, resolved)]; !exists {
			diff.MissingInSource = append(diff.MissingInSource, rec)
		}
	}

	diff.State = StateComplete
	diff.HasDifferences = len(diff.MissingInSource) > 0 || len(diff.MissingInTarget) > 0
	return diff
}
