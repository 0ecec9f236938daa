package compare

import (
	"fmt"
	"sort"
)

// Schemas compares two schema snapshots and reports table-set membership,
// per-table structural differences and CREATE TABLE statements for tables
// that exist on exactly one side. It is a pure function of its inputs; output
// ordering follows each snapshot's declaration order.
func Schemas(source, target *SchemaSnapshot) SchemaDiff {
	diff := SchemaDiff{
		SourceTableCount: source.TotalTables(),
		TargetTableCount: target.TotalTables(),
	}

	targetTables := make(map[string]TableSchema, len(target.Tables))
	for _, t := range target.Tables {
		targetTables[t.Name] = t
	}
	sourceTables := make(map[string]TableSchema, len(source.Tables))
	for _, t := range source.Tables {
		sourceTables[t.Name] = t
	}

	for _, t := range source.Tables {
		if _, exists := targetTables[t.Name]; exists {
			diff.CommonTables = append(diff.CommonTables, t.Name)
		} else {
			diff.OnlyInSource = append(diff.OnlyInSource, t.Name)
		}
	}
	for _, t := range target.Tables {
		if _, exists := sourceTables[t.Name]; !exists {
			diff.OnlyInTarget = append(diff.OnlyInTarget, t.Name)
		}
	}

	for _, name := range diff.CommonTables {
		diff.TableDiffs = append(diff.TableDiffs, CompareTable(sourceTables[name], targetTables[name]))
	}

	// Tables on exactly one side get DDL for the other side.
	for _, name := range diff.OnlyInSource {
		diff.CreateQueries = append(diff.CreateQueries, GenerateCreateTable(ToTarget, sourceTables[name]))
	}
	for _, name := range diff.OnlyInTarget {
		diff.CreateQueries = append(diff.CreateQueries, GenerateCreateTable(ToSource, targetTables[name]))
	}

	return diff
}

// CompareTable reports the structural differences between two descriptors of
// the same table.
func CompareTable(source, target TableSchema) TableDiff {
	td := TableDiff{Table: source.Name}

	// Columns, both directions. Data types are compared as opaque text.
	for _, srcCol := range source.Columns {
		tgtCol, exists := target.Column(srcCol.Name)
		if !exists {
			td.ColumnDiffs = append(td.ColumnDiffs, FieldDiff{
				Key:         srcCol.Name,
				Description: fmt.Sprintf("column '%s.%s' exists in source but not in target", source.Name, srcCol.Name),
			})
			continue
		}
		if srcCol.DataType != tgtCol.DataType {
			td.ColumnDiffs = append(td.ColumnDiffs, FieldDiff{
				Key: srcCol.Name,
				Description: fmt.Sprintf("column '%s.%s' has different data type: source='%s', target='%s'",
					source.Name, srcCol.Name, srcCol.DataType, tgtCol.DataType),
			})
		}
		if srcCol.Nullable != tgtCol.Nullable {
			td.ColumnDiffs = append(td.ColumnDiffs, FieldDiff{
				Key: srcCol.Name,
				Description: fmt.Sprintf("column '%s.%s' has different nullable property: source=%v, target=%v",
					source.Name, srcCol.Name, srcCol.Nullable, tgtCol.Nullable),
			})
		}
	}
	for _, tgtCol := range target.Columns {
		if _, exists := source.Column(tgtCol.Name); !exists {
			td.ColumnDiffs = append(td.ColumnDiffs, FieldDiff{
				Key:         tgtCol.Name,
				Description: fmt.Sprintf("column '%s.%s' exists in target but not in source", source.Name, tgtCol.Name),
			})
		}
	}

	// Primary keys compare as sorted sequences; any inequality is exactly one
	// difference record.
	srcPK := sortedCopy(source.PrimaryKeys)
	tgtPK := sortedCopy(target.PrimaryKeys)
	if !equalStrings(srcPK, tgtPK) {
		td.ConstraintDiffs = append(td.ConstraintDiffs, FieldDiff{
			Key: "primary key",
			Description: fmt.Sprintf("table '%s' has different primary keys: source=%v, target=%v",
				source.Name, source.PrimaryKeys, target.PrimaryKeys),
		})
	}

	// Foreign keys and indexes compare by name set only. A renamed but
	// structurally identical constraint registers as a difference.
	td.ConstraintDiffs = append(td.ConstraintDiffs,
		nameSetDiffs("foreign key", source.Name, fkNames(source.ForeignKeys), fkNames(target.ForeignKeys))...)
	td.IndexDiffs = append(td.IndexDiffs,
		nameSetDiffs("index", source.Name, indexNames(source.Indexes), indexNames(target.Indexes))...)

	td.HasDifferences = len(td.ColumnDiffs) > 0 || len(td.ConstraintDiffs) > 0 || len(td.IndexDiffs) > 0
	return td
}

func nameSetDiffs(category, table string, source, target []string) []FieldDiff {
	var diffs []FieldDiff
	srcSet := toSet(source)
	tgtSet := toSet(target)
	for _, name := range sortedCopy(source) {
		if !tgtSet[name] {
			diffs = append(diffs, FieldDiff{
				Key:         category,
				Description: fmt.Sprintf("%s '%s' on table '%s' exists in source but not in target", category, name, table),
			})
		}
	}
	for _, name := range sortedCopy(target) {
		if !srcSet[name] {
			diffs = append(diffs, FieldDiff{
				Key:         category,
				Description: fmt.Sprintf("%s '%s' on table '%s' exists in target but not in source", category, name, table),
			})
		}
	}
	return diffs
}

func fkNames(fks []ForeignKeySchema) []string {
	names := make([]string, len(fks))
	for i, fk := range fks {
		names[i] = fk.Name
	}
	return names
}

func indexNames(indexes []IndexSchema) []string {
	names := make([]string, len(indexes))
	for i, idx := range indexes {
		names[i] = idx.Name
	}
	return names
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

func sortedCopy(items []string) []string {
	cp := make([]string, len(items))
	copy(cp, items)
	sort.Strings(cp)
	return cp
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
