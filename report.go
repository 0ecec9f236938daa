package main

import (
	"context"
	"fmt"

	"pgrecon/compare"
)

func printSideInfo(ctx context.Context, cfg Config, source, target *side) {
	fmt.Println("\n=== Database Information ===")
	printOneSide(ctx, cfg, source)
	printOneSide(ctx, cfg, target)
}

func printOneSide(ctx context.Context, cfg Config, s *side) {
	if s.db == nil {
		fmt.Printf("%s: dump file, schema '%s', tables: %d\n",
			titleCase(s.name), s.snap.SchemaName, s.snap.TotalTables())
		return
	}
	info, err := s.db.Info(ctx, cfg.Schema)
	if err != nil {
		fmt.Printf("Warning: couldn't collect full %s database info: %v\n", s.name, err)
		return
	}
	fmt.Printf("%s: %s, Database: %s, Tables: %d, Size: %s\n",
		titleCase(s.name), info.Host, info.DatabaseName, info.TableCount, formatSize(info.TotalSize))
}

func printSchemaDiff(diff compare.SchemaDiff) {
	fmt.Println("\n=== Schema Differences ===")

	if len(diff.OnlyInSource) > 0 {
		fmt.Printf("Tables in source but not in target: %v\n", diff.OnlyInSource)
	}
	if len(diff.OnlyInTarget) > 0 {
		fmt.Printf("Tables in target but not in source: %v\n", diff.OnlyInTarget)
	}

	differing := 0
	for _, td := range diff.TableDiffs {
		if !td.HasDifferences {
			continue
		}
		differing++
		all := append(append(append([]compare.FieldDiff{}, td.ColumnDiffs...), td.ConstraintDiffs...), td.IndexDiffs...)
		// Only the first difference keeps the report concise.
		fmt.Printf("- %s (%s)\n", td.Table, all[0].Description)
		if len(all) > 1 {
			fmt.Printf("  (and %d more differences)\n", len(all)-1)
		}
	}
	if differing == 0 && len(diff.OnlyInSource) == 0 && len(diff.OnlyInTarget) == 0 {
		fmt.Println("No schema differences found.")
	}
}

func printSummary(schemaDiff compare.SchemaDiff, dataDiffs []compare.TableDataDiff) {
	fmt.Println("\n=== Comparison Summary ===")
	fmt.Printf("Source tables: %d, target tables: %d, common: %d\n",
		schemaDiff.SourceTableCount, schemaDiff.TargetTableCount, len(schemaDiff.CommonTables))

	differentTables := 0
	for _, d := range dataDiffs {
		switch d.State {
		case compare.StateComplete:
			if d.HasDifferences {
				differentTables++
				fmt.Printf("- %s (missing in target: %d, missing in source: %d; rows source=%d target=%d)\n",
					d.Table, len(d.MissingInTarget), len(d.MissingInSource), d.SourceCount, d.TargetCount)
			}
		case compare.StateSkipped:
			fmt.Printf("- %s (skipped: %s)\n", d.Table, d.Reason)
		case compare.StateFailed:
			fmt.Printf("- %s (comparison failed: %s)\n", d.Table, d.Reason)
		}
	}

	if differentTables == 0 && schemaDiff.DifferingTableCount() == 0 &&
		len(schemaDiff.OnlyInSource) == 0 && len(schemaDiff.OnlyInTarget) == 0 {
		fmt.Println("No differences found between the databases.")
	} else {
		fmt.Printf("Schema differences in %d tables, data differences in %d tables.\n",
			schemaDiff.DifferingTableCount(), differentTables)
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}
