package compare

import "database/sql"

// SchemaSnapshot is the normalized structural view of one side of a
// comparison, regardless of whether it came from live introspection or from a
// parsed dump file. Tables keep declaration/introspection order.
type SchemaSnapshot struct {
	SchemaName string
	Tables     []TableSchema
}

func (s *SchemaSnapshot) TotalTables() int { return len(s.Tables) }

// Table returns the descriptor for the named table, if present.
func (s *SchemaSnapshot) Table(name string) (TableSchema, bool) {
	for _, t := range s.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return TableSchema{}, false
}

type TableSchema struct {
	Name        string
	Columns     []ColumnSchema
	PrimaryKeys []string
	ForeignKeys []ForeignKeySchema
	Indexes     []IndexSchema
}

func (t TableSchema) Column(name string) (ColumnSchema, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSchema{}, false
}

type ColumnSchema struct {
	Name     string
	DataType string
	Nullable bool
	// Default carries the default expression text when introspected live.
	// Dump-derived columns only record that a DEFAULT clause was present
	// (Valid with empty String) since the parser does not retain the
	// expression.
	Default sql.NullString
	// Length/precision/scale are populated from live introspection only.
	MaxLength        sql.NullInt64
	NumericPrecision sql.NullInt64
	NumericScale     sql.NullInt64
}

type ForeignKeySchema struct {
	Name              string
	Columns           []string
	ReferencedTable   string
	ReferencedColumns []string
}

type IndexSchema struct {
	Name string
	// Columns may be empty for live-introspected indexes whose definition
	// text could not be decomposed; only Name and Unique are reliable then.
	Columns []string
	Unique  bool
}

// Direction tags generated SQL with the side it should be applied to.
type Direction string

const (
	ToSource Direction = "to-source"
	ToTarget Direction = "to-target"
)

type SchemaDiff struct {
	SourceTableCount int
	TargetTableCount int
	CommonTables     []string
	OnlyInSource     []string
	OnlyInTarget     []string
	TableDiffs       []TableDiff
	CreateQueries    []CreateTableQuery
}

// DifferingTableCount counts common tables that compared unequal.
func (d SchemaDiff) DifferingTableCount() int {
	n := 0
	for _, td := range d.TableDiffs {
		if td.HasDifferences {
			n++
		}
	}
	return n
}

type TableDiff struct {
	Table           string
	HasDifferences  bool
	ColumnDiffs     []FieldDiff
	ConstraintDiffs []FieldDiff
	IndexDiffs      []FieldDiff
}

// FieldDiff is one observed difference: Key identifies the column name or
// constraint/index category, Description is the human-readable detail.
type FieldDiff struct {
	Key         string
	Description string
}

// Record is one logical row as a column-name-to-value mapping. Values are the
// normalized scalar set: nil, bool, int64/float64, string, time.Time,
// map[string]any composites and []any arrays. Homogeneity across the records
// of one table is assumed, not enforced.
type Record map[string]any

// DataSnapshot maps table names to their extracted records.
type DataSnapshot map[string][]Record

// CompareState tags a per-table data comparison result so a clean table can
// be told apart from one that was never examined.
type CompareState int

const (
	StateComplete CompareState = iota
	StateSkipped
	StateFailed
)

func (s CompareState) String() string {
	switch s {
	case StateComplete:
		return "complete"
	case StateSkipped:
		return "skipped"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

type TableDataDiff struct {
	Table string
	State CompareState
	// Reason explains a Skipped or Failed state.
	Reason          string
	HasDifferences  bool
	MissingInSource []Record
	MissingInTarget []Record
	SourceCount     int
	TargetCount     int
}

type CreateTableQuery struct {
	Direction   Direction
	Table       string
	SQL         string
	Description string
}

type InsertQuery struct {
	Direction   Direction
	Table       string
	RecordCount int
	SQL         string
	Description string
}
