package pgdb

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"pgrecon/compare"
)

// ListTables returns base-table names in the schema, ordered by name. A
// non-empty allowList restricts the result to the named tables.
func (d *DB) ListTables(ctx context.Context, schema string, allowList []string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`, schema)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	allowed := make(map[string]bool, len(allowList))
	for _, name := range allowList {
		allowed[name] = true
	}

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		if len(allowList) > 0 && !allowed[tableName] {
			continue
		}
		tables = append(tables, tableName)
	}
	return tables, rows.Err()
}

// Snapshot introspects every table in the schema (optionally restricted by
// allowList) into the shared snapshot shape.
func (d *DB) Snapshot(ctx context.Context, schema string, allowList []string) (*compare.SchemaSnapshot, error) {
	tables, err := d.ListTables(ctx, schema, allowList)
	if err != nil {
		return nil, err
	}

	snap := &compare.SchemaSnapshot{SchemaName: schema}
	for _, name := range tables {
		t, err := d.tableSchema(ctx, schema, name)
		if err != nil {
			return nil, fmt.Errorf("introspect table '%s': %w", name, err)
		}
		snap.Tables = append(snap.Tables, t)
	}
	return snap, nil
}

func (d *DB) tableSchema(ctx context.Context, schema, name string) (compare.TableSchema, error) {
	t := compare.TableSchema{Name: name}

	columns, err := d.db.QueryContext(ctx, `
		SELECT
			column_name,
			data_type,
			is_nullable,
			column_default,
			character_maximum_length,
			numeric_precision,
			numeric_scale
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`, schema, name)
	if err != nil {
		return t, fmt.Errorf("query columns: %w", err)
	}
	defer columns.Close()

	for columns.Next() {
		var col compare.ColumnSchema
		var nullable string
		if err := columns.Scan(&col.Name, &col.DataType, &nullable, &col.Default,
			&col.MaxLength, &col.NumericPrecision, &col.NumericScale); err != nil {
			return t, fmt.Errorf("scan column: %w", err)
		}
		col.Nullable = nullable == "YES"
		t.Columns = append(t.Columns, col)
	}
	if err := columns.Err(); err != nil {
		return t, err
	}

	if t.PrimaryKeys, err = d.primaryKeys(ctx, schema, name); err != nil {
		return t, err
	}
	if t.ForeignKeys, err = d.foreignKeys(ctx, schema, name); err != nil {
		return t, err
	}
	if t.Indexes, err = d.indexes(ctx, schema, name); err != nil {
		return t, err
	}
	return t, nil
}

// primaryKeys returns the PK columns ordered by key ordinal.
func (d *DB) primaryKeys(ctx context.Context, schema, name string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT a.attname
		FROM   pg_index i
		JOIN   pg_attribute a ON a.attrelid = i.indrelid
		                      AND a.attnum = ANY(i.indkey)
		WHERE  i.indrelid = ($1)::regclass
		AND    i.indisprimary
		ORDER BY array_position(i.indkey, a.attnum)
	`, schema+"."+name)
	if err != nil {
		return nil, fmt.Errorf("query primary keys: %w", err)
	}
	defer rows.Close()

	var pks []string
	for rows.Next() {
		var pkColumn string
		if err := rows.Scan(&pkColumn); err != nil {
			return nil, fmt.Errorf("scan primary key: %w", err)
		}
		pks = append(pks, pkColumn)
	}
	return pks, rows.Err()
}

func (d *DB) foreignKeys(ctx context.Context, schema, name string) ([]compare.ForeignKeySchema, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT
			tc.constraint_name,
			kcu.column_name,
			ccu.table_name AS referenced_table,
			ccu.column_name AS referenced_column
		FROM
			information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON tc.constraint_name = kcu.constraint_name
				AND tc.table_schema = kcu.table_schema
			JOIN information_schema.constraint_column_usage ccu
				ON ccu.constraint_name = tc.constraint_name
				AND ccu.table_schema = tc.table_schema
		WHERE
			tc.constraint_type = 'FOREIGN KEY' AND
			tc.table_schema = $1 AND
			tc.table_name = $2
		ORDER BY tc.constraint_name, kcu.ordinal_position
	`, schema, name)
	if err != nil {
		return nil, fmt.Errorf("query foreign keys: %w", err)
	}
	defer rows.Close()

	var fks []compare.ForeignKeySchema
	byName := make(map[string]int)
	for rows.Next() {
		var constraint, column, refTable, refColumn string
		if err := rows.Scan(&constraint, &column, &refTable, &refColumn); err != nil {
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}
		if i, exists := byName[constraint]; exists {
			fks[i].Columns = append(fks[i].Columns, column)
			fks[i].ReferencedColumns = append(fks[i].ReferencedColumns, refColumn)
			continue
		}
		byName[constraint] = len(fks)
		fks = append(fks, compare.ForeignKeySchema{
			Name:              constraint,
			Columns:           []string{column},
			ReferencedTable:   refTable,
			ReferencedColumns: []string{refColumn},
		})
	}
	return fks, rows.Err()
}

// indexColumnsRe pulls the parenthesized column list out of an index
// definition; definitions it cannot decompose keep an empty column list.
var indexColumnsRe = regexp.MustCompile(`\(([^)]+)\)\s*$`)

// indexes reads name/definition pairs from pg_indexes; uniqueness is derived
// by substring-matching UNIQUE in the definition text.
func (d *DB) indexes(ctx context.Context, schema, name string) ([]compare.IndexSchema, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT indexname, indexdef
		FROM pg_indexes
		WHERE schemaname = $1 AND tablename = $2
		ORDER BY indexname
	`, schema, name)
	if err != nil {
		return nil, fmt.Errorf("query indexes: %w", err)
	}
	defer rows.Close()

	var indexes []compare.IndexSchema
	for rows.Next() {
		var indexName, indexDef string
		if err := rows.Scan(&indexName, &indexDef); err != nil {
			return nil, fmt.Errorf("scan index: %w", err)
		}
		idx := compare.IndexSchema{
			Name:   indexName,
			Unique: strings.Contains(strings.ToUpper(indexDef), "UNIQUE"),
		}
		if m := indexColumnsRe.FindStringSubmatch(indexDef); m != nil {
			for _, col := range strings.Split(m[1], ",") {
				idx.Columns = append(idx.Columns, strings.Trim(strings.TrimSpace(col), `"`))
			}
		}
		indexes = append(indexes, idx)
	}
	return indexes, rows.Err()
}
