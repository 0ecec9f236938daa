package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"pgrecon/compare"
	"pgrecon/dump"
	"pgrecon/pgdb"
)

// side is one half of a comparison: a live connection or a parsed dump.
type side struct {
	name string
	db   *pgdb.DB // nil for a dump side
	snap *compare.SchemaSnapshot
	data compare.DataSnapshot // dump side only
}

func (s *side) extractor(cfg Config, table string, keyColumns []string) compare.RecordExtractor {
	if s.db == nil {
		return &compare.StaticExtractor{Records: s.data[table]}
	}
	e := s.db.Extractor(s.snap.SchemaName, table, keyColumns)
	e.BatchSize = cfg.BatchSize
	e.MaxRetries = cfg.MaxRetries
	return e
}

func (s *side) close() {
	if s.db != nil {
		s.db.Close()
	}
}

func openSide(ctx context.Context, cfg Config, name, location string) (*side, error) {
	if isDumpPath(location) {
		snap, data, err := dump.ParseFile(location, cfg.Schema)
		if err != nil {
			return nil, fmt.Errorf("parse %s dump: %w", name, err)
		}
		return &side{name: name, snap: snap, data: data}, nil
	}

	db, err := pgdb.Connect(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("connect to %s database: %w", name, err)
	}
	snap, err := db.Snapshot(ctx, cfg.Schema, cfg.TableList())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("introspect %s database: %w", name, err)
	}
	return &side{name: name, db: db, snap: snap}, nil
}

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	if err := run(context.Background(), cfg); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// run executes a full comparison. Both sides are released on every return
// path, which main's log.Fatalf would bypass.
func run(ctx context.Context, cfg Config) error {
	source, err := openSide(ctx, cfg, "source", cfg.Source)
	if err != nil {
		return err
	}
	defer source.close()

	target, err := openSide(ctx, cfg, "target", cfg.Target)
	if err != nil {
		return err
	}
	defer target.close()

	printSideInfo(ctx, cfg, source, target)

	schemaDiff := compare.Schemas(source.snap, target.snap)
	printSchemaDiff(schemaDiff)

	var dataDiffs []compare.TableDataDiff
	var inserts []compare.InsertQuery
	if !cfg.SchemaOnly {
		dataDiffs, inserts = compareData(ctx, cfg, source, target, schemaDiff.CommonTables)
	}

	printSummary(schemaDiff, dataDiffs)

	if cfg.OutputDir != "" && (len(schemaDiff.CreateQueries) > 0 || len(inserts) > 0) {
		if err := writeArtifacts(cfg.OutputDir, schemaDiff.CreateQueries, inserts); err != nil {
			return fmt.Errorf("writing artifacts: %w", err)
		}
		fmt.Printf("\nGenerated SQL written to %s\n", cfg.OutputDir)
	}

	fmt.Println("\n=== Database Comparison Finished ===")
	return nil
}

func compareData(ctx context.Context, cfg Config, source, target *side, commonTables []string) ([]compare.TableDataDiff, []compare.InsertQuery) {
	fmt.Printf("\nComparing data for %d tables...\n", len(commonTables))

	progress := mpb.New(mpb.WithWidth(40))
	bar := progress.AddBar(int64(len(commonTables)),
		mpb.PrependDecorators(decor.Name("comparing "), decor.CountersNoUnit("%d / %d")),
		mpb.AppendDecorators(decor.Percentage()),
	)

	var diffs []compare.TableDataDiff
	var inserts []compare.InsertQuery
	for _, table := range commonTables {
		diff := compareTableData(ctx, cfg, source, target, table)
		diffs = append(diffs, diff)

		if q, ok := compare.GenerateInsert(compare.ToTarget, table, diff.MissingInTarget); ok {
			inserts = append(inserts, q)
		}
		if q, ok := compare.GenerateInsert(compare.ToSource, table, diff.MissingInSource); ok {
			inserts = append(inserts, q)
		}
		bar.Increment()
	}
	progress.Wait()
	return diffs, inserts
}

func compareTableData(ctx context.Context, cfg Config, source, target *side, table string) compare.TableDataDiff {
	var keyColumns []string
	if t, ok := source.snap.Table(table); ok && len(t.PrimaryKeys) > 0 {
		keyColumns = t.PrimaryKeys
	} else if t, ok := target.snap.Table(table); ok && len(t.PrimaryKeys) > 0 {
		keyColumns = t.PrimaryKeys
	}

	// Fast path: when both sides are live and keyed, equal whole-table
	// checksums prove the data identical without extracting anything.
	if source.db != nil && target.db != nil && len(keyColumns) > 0 {
		if diff, ok := checksumFastPath(ctx, cfg, source.db, target.db, table, keyColumns); ok {
			return diff
		}
	}

	return compare.TableData(ctx, table,
		source.extractor(cfg, table, keyColumns),
		target.extractor(cfg, table, keyColumns),
		keyColumns)
}

// tableChecksummer is the slice of the live side the fast path needs.
type tableChecksummer interface {
	Checksum(ctx context.Context, schema, table string, orderBy []string) (hash string, ok bool, err error)
	RowCount(ctx context.Context, schema, table string) (int, error)
}

// checksumFastPath returns a clean result when both sides hold provably
// identical data. Any checksum error or mismatch falls through to full
// extraction.
func checksumFastPath(ctx context.Context, cfg Config, source, target tableChecksummer, table string, keyColumns []string) (compare.TableDataDiff, bool) {
	srcHash, srcOK, err := source.Checksum(ctx, cfg.Schema, table, keyColumns)
	if err != nil {
		return compare.TableDataDiff{}, false
	}
	tgtHash, tgtOK, err := target.Checksum(ctx, cfg.Schema, table, keyColumns)
	if err != nil {
		return compare.TableDataDiff{}, false
	}
	if !srcOK || !tgtOK || srcHash != tgtHash {
		return compare.TableDataDiff{}, false
	}

	diff := compare.TableDataDiff{Table: table, State: compare.StateComplete}
	if count, err := source.RowCount(ctx, cfg.Schema, table); err == nil {
		diff.SourceCount = count
		diff.TargetCount = count
	}
	return diff, true
}
