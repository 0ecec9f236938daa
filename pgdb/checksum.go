package pgdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"pgrecon/compare"
)

// RowCount returns the table's total row count.
func (d *DB) RowCount(ctx context.Context, schema, table string) (int, error) {
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s.%s", compare.QuoteIdent(schema), compare.QuoteIdent(table))
	if err := d.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows in '%s': %w", table, err)
	}
	return count, nil
}

// Checksum computes an MD5 aggregate over all rows ordered by the given
// columns. ok is false when the server returned no hash (empty table). Two
// sides with equal checksums hold identical data, which lets the caller skip
// full extraction.
func (d *DB) Checksum(ctx context.Context, schema, table string, orderBy []string) (hash string, ok bool, err error) {
	if len(orderBy) == 0 {
		return "", false, nil
	}
	quoted := make([]string, len(orderBy))
	for i, col := range orderBy {
		quoted[i] = "t." + compare.QuoteIdent(col)
	}

	query := fmt.Sprintf("SELECT MD5(CAST((array_agg(t.* ORDER BY %s)) AS text)) FROM %s.%s t",
		strings.Join(quoted, ", "), compare.QuoteIdent(schema), compare.QuoteIdent(table))

	var result sql.NullString
	if err := d.db.QueryRowContext(ctx, query).Scan(&result); err != nil {
		return "", false, fmt.Errorf("checksum '%s': %w", table, err)
	}
	return result.String, result.Valid, nil
}
