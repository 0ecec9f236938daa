package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usersTable() TableSchema {
	return TableSchema{
		Name: "users",
		Columns: []ColumnSchema{
			{Name: "id", DataType: "integer", Nullable: false},
			{Name: "name", DataType: "character varying", Nullable: true},
		},
		PrimaryKeys: []string{"id"},
		ForeignKeys: []ForeignKeySchema{
			{Name: "users_org_fkey", Columns: []string{"org_id"}, ReferencedTable: "orgs", ReferencedColumns: []string{"id"}},
		},
		Indexes: []IndexSchema{
			{Name: "users_name_idx", Columns: []string{"name"}, Unique: false},
		},
	}
}

func TestCompareTableIdentical(t *testing.T) {
	td := CompareTable(usersTable(), usersTable())
	assert.False(t, td.HasDifferences)
	assert.Empty(t, td.ColumnDiffs)
	assert.Empty(t, td.ConstraintDiffs)
	assert.Empty(t, td.IndexDiffs)
}

func TestCompareTableColumnOnlyInTarget(t *testing.T) {
	source := usersTable()
	target := usersTable()
	target.Columns = append(target.Columns, ColumnSchema{Name: "created_at", DataType: "timestamp without time zone", Nullable: true})

	td := CompareTable(source, target)
	assert.True(t, td.HasDifferences)
	require.Len(t, td.ColumnDiffs, 1)
	assert.Equal(t, "created_at", td.ColumnDiffs[0].Key)
	assert.Contains(t, td.ColumnDiffs[0].Description, "exists in target but not in source")
}

func TestCompareTableTypeAndNullableMismatch(t *testing.T) {
	source := usersTable()
	target := usersTable()
	target.Columns[1].DataType = "text"
	target.Columns[1].Nullable = false

	td := CompareTable(source, target)
	assert.True(t, td.HasDifferences)
	// One record per mismatched property.
	assert.Len(t, td.ColumnDiffs, 2)
}

func TestCompareTablePrimaryKeyOrderInsensitive(t *testing.T) {
	source := usersTable()
	source.PrimaryKeys = []string{"org_id", "id"}
	target := usersTable()
	target.PrimaryKeys = []string{"id", "org_id"}

	td := CompareTable(source, target)
	assert.Empty(t, td.ConstraintDiffs)
}

func TestCompareTablePrimaryKeySingleDiffRecord(t *testing.T) {
	source := usersTable()
	source.PrimaryKeys = []string{"id", "org_id"}
	target := usersTable()
	target.PrimaryKeys = []string{"email", "tenant"}

	td := CompareTable(source, target)
	// Any inequality yields exactly one constraint record, not one per column.
	count := 0
	for _, d := range td.ConstraintDiffs {
		if d.Key == "primary key" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestCompareTableForeignKeyByNameOnly(t *testing.T) {
	source := usersTable()
	target := usersTable()
	// Renamed but structurally identical: still a difference.
	target.ForeignKeys[0].Name = "users_org_fk_renamed"

	td := CompareTable(source, target)
	assert.True(t, td.HasDifferences)
	assert.Len(t, td.ConstraintDiffs, 2) // one per side's unmatched name

	// Same name, different structure: name-set comparison does not see it.
	target = usersTable()
	target.ForeignKeys[0].Columns = []string{"different"}
	td = CompareTable(source, target)
	assert.False(t, td.HasDifferences)
}

func TestSchemasTablePartition(t *testing.T) {
	source := &SchemaSnapshot{SchemaName: "public", Tables: []TableSchema{
		{Name: "users"}, {Name: "orders"}, {Name: "legacy"},
	}}
	target := &SchemaSnapshot{SchemaName: "public", Tables: []TableSchema{
		{Name: "orders"}, {Name: "users"}, {Name: "audit"},
	}}

	diff := Schemas(source, target)
	assert.Equal(t, len(diff.CommonTables)+len(diff.OnlyInSource), source.TotalTables())
	assert.Equal(t, len(diff.CommonTables)+len(diff.OnlyInTarget), target.TotalTables())

	// Common tables keep source order; only-in lists keep their side's order.
	assert.Equal(t, []string{"users", "orders"}, diff.CommonTables)
	assert.Equal(t, []string{"legacy"}, diff.OnlyInSource)
	assert.Equal(t, []string{"audit"}, diff.OnlyInTarget)
}

func TestSchemasGeneratesCreateQueries(t *testing.T) {
	source := &SchemaSnapshot{SchemaName: "public", Tables: []TableSchema{usersTable()}}
	target := &SchemaSnapshot{SchemaName: "public"}

	diff := Schemas(source, target)
	require.Len(t, diff.CreateQueries, 1)
	q := diff.CreateQueries[0]
	assert.Equal(t, ToTarget, q.Direction)
	assert.Equal(t, "users", q.Table)
	assert.Contains(t, q.SQL, `CREATE TABLE "users"`)
	assert.Contains(t, q.SQL, `"id" integer NOT NULL`)
	assert.Contains(t, q.SQL, `ADD CONSTRAINT "users_pkey" PRIMARY KEY ("id")`)
	assert.Contains(t, q.SQL, `FOREIGN KEY ("org_id") REFERENCES "orgs" ("id")`)
	assert.Contains(t, q.SQL, `CREATE INDEX "users_name_idx" ON "users" ("name")`)
}

func TestGenerateCreateTableSkipsDumpDefaultMarker(t *testing.T) {
	table := usersTable()
	// Dump-sourced presence marker: Valid with empty text.
	table.Columns[1].Default.Valid = true

	q := GenerateCreateTable(ToTarget, table)
	assert.NotContains(t, q.SQL, "DEFAULT")
}

func TestGenerateCreateTableUniqueIndexAndPrecision(t *testing.T) {
	table := TableSchema{
		Name: "prices",
		Columns: []ColumnSchema{
			{Name: "amount", DataType: "numeric", Nullable: false},
		},
		Indexes: []IndexSchema{
			{Name: "prices_amount_key", Columns: []string{"amount"}, Unique: true},
			{Name: "prices_opaque_idx", Unique: false}, // no columns: skipped
		},
	}
	table.Columns[0].NumericPrecision.Valid = true
	table.Columns[0].NumericPrecision.Int64 = 10
	table.Columns[0].NumericScale.Valid = true
	table.Columns[0].NumericScale.Int64 = 2

	q := GenerateCreateTable(ToSource, table)
	assert.Contains(t, q.SQL, `"amount" numeric(10,2) NOT NULL`)
	assert.Contains(t, q.SQL, `CREATE UNIQUE INDEX "prices_amount_key"`)
	assert.NotContains(t, q.SQL, "prices_opaque_idx")
}
