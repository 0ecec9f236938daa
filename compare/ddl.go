package compare

import (
	"fmt"
	"strings"
)

// QuoteIdent double-quotes an SQL identifier, doubling embedded quotes.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteIdentList(names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = QuoteIdent(name)
	}
	return strings.Join(quoted, ", ")
}

// GenerateCreateTable builds the DDL that recreates a table existing on only
// one side: CREATE TABLE, then ALTER TABLE statements for the primary key and
// each foreign key, then CREATE INDEX per index with a known column list.
func GenerateCreateTable(direction Direction, table TableSchema) CreateTableQuery {
	var b strings.Builder

	fmt.Fprintf(&b, "CREATE TABLE %s (\n", QuoteIdent(table.Name))
	for i, col := range table.Columns {
		fmt.Fprintf(&b, "    %s %s", QuoteIdent(col.Name), columnType(col))
		if !col.Nullable {
			b.WriteString(" NOT NULL")
		}
		// Dump-sourced columns carry only a presence marker with empty text;
		// never emit an empty or literal-NULL default.
		if col.Default.Valid && col.Default.String != "" && !strings.EqualFold(col.Default.String, "NULL") {
			fmt.Fprintf(&b, " DEFAULT %s", col.Default.String)
		}
		if i < len(table.Columns)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(");\n")

	if len(table.PrimaryKeys) > 0 {
		fmt.Fprintf(&b, "ALTER TABLE %s ADD CONSTRAINT %s PRIMARY KEY (%s);\n",
			QuoteIdent(table.Name), QuoteIdent(table.Name+"_pkey"), quoteIdentList(table.PrimaryKeys))
	}
	for _, fk := range table.ForeignKeys {
		fmt.Fprintf(&b, "ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s);\n",
			QuoteIdent(table.Name), QuoteIdent(fk.Name), quoteIdentList(fk.Columns),
			QuoteIdent(fk.ReferencedTable), quoteIdentList(fk.ReferencedColumns))
	}
	for _, idx := range table.Indexes {
		if len(idx.Columns) == 0 {
			continue
		}
		unique := ""
		if idx.Unique {
			unique = "UNIQUE "
		}
		fmt.Fprintf(&b, "CREATE %sINDEX %s ON %s (%s);\n",
			unique, QuoteIdent(idx.Name), QuoteIdent(table.Name), quoteIdentList(idx.Columns))
	}

	return CreateTableQuery{
		Direction:   direction,
		Table:       table.Name,
		SQL:         b.String(),
		Description: fmt.Sprintf("create table '%s' with %d columns", table.Name, len(table.Columns)),
	}
}

// columnType renders the raw data-type text, re-attaching length or
// precision/scale when live introspection recorded them.
func columnType(col ColumnSchema) string {
	switch strings.ToLower(col.DataType) {
	case "character varying", "varchar", "character", "char":
		if col.MaxLength.Valid {
			return fmt.Sprintf("%s(%d)", col.DataType, col.MaxLength.Int64)
		}
	case "numeric", "decimal":
		if col.NumericPrecision.Valid && col.NumericScale.Valid {
			return fmt.Sprintf("%s(%d,%d)", col.DataType, col.NumericPrecision.Int64, col.NumericScale.Int64)
		}
	}
	return col.DataType
}
