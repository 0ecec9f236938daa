package compare

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"time"
)

// intervalUnits is the fixed emission order for interval composites.
var intervalUnits = []string{"years", "months", "days", "hours", "minutes", "seconds"}

// FormatValue renders one normalized scalar as a PostgreSQL literal.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case string:
		return quoteLiteral(val)
	case []byte:
		return quoteLiteral(string(val))
	case time.Time:
		return quoteLiteral(val.Format(time.RFC3339Nano))
	case map[string]any:
		if len(val) == 0 {
			return "NULL"
		}
		if lit, ok := formatInterval(val); ok {
			return lit
		}
		return jsonLiteral(val)
	case []any:
		return jsonLiteral(val)
	default:
		if v != nil {
			switch reflect.TypeOf(v).Kind() {
			case reflect.Slice, reflect.Array, reflect.Map:
				return jsonLiteral(v)
			}
		}
		return fmt.Sprintf("%v", v)
	}
}

// formatInterval builds an INTERVAL literal from a composite holding any of
// the interval unit fields. All fields zero or absent yields NULL. The second
// return is false when the composite has no interval fields at all.
func formatInterval(m map[string]any) (string, bool) {
	hasUnitField := false
	var parts []string
	for _, unit := range intervalUnits {
		raw, present := m[unit]
		if !present {
			continue
		}
		hasUnitField = true
		n, ok := numericValue(raw)
		if !ok || n == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s", formatNumber(n), unit))
	}
	if !hasUnitField {
		return "", false
	}
	if len(parts) == 0 {
		return "NULL", true
	}
	return quoteLiteral(strings.Join(parts, " ")) + "::interval", true
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func formatNumber(n float64) string {
	if n == math.Trunc(n) {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%v", n)
}

func jsonLiteral(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return quoteLiteral(fmt.Sprintf("%v", v))
	}
	return quoteLiteral(string(b))
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// GenerateInsert builds one multi-row INSERT for the given records. The
// column list comes from the first record's keys (sorted for determinism),
// relying on the records being schema-homogeneous. Returns false for an empty
// record list.
func GenerateInsert(direction Direction, table string, records []Record) (InsertQuery, bool) {
	if len(records) == 0 {
		return InsertQuery{}, false
	}

	columns := make([]string, 0, len(records[0]))
	for col := range records[0] {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES\n", QuoteIdent(table), quoteIdentList(columns))
	for i, rec := range records {
		values := make([]string, len(columns))
		for j, col := range columns {
			values[j] = FormatValue(rec[col])
		}
		b.WriteString("(" + strings.Join(values, ", ") + ")")
		if i < len(records)-1 {
			b.WriteString(",\n")
		}
	}
	b.WriteString(";\n")

	side := "target"
	if direction == ToSource {
		side = "source"
	}
	return InsertQuery{
		Direction:   direction,
		Table:       table,
		RecordCount: len(records),
		SQL:         b.String(),
		Description: fmt.Sprintf("insert %d missing rows into %s table '%s'", len(records), side, table),
	}, true
}
