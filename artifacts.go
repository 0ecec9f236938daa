package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pgrecon/compare"
)

// writeArtifacts renders the generated SQL into one file per direction:
// to_source.sql holds statements converging the source onto the target's
// state and to_target.sql the reverse. CREATE TABLE statements come first so
// the files apply in order.
func writeArtifacts(dir string, creates []compare.CreateTableQuery, inserts []compare.InsertQuery) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	for _, direction := range []compare.Direction{compare.ToSource, compare.ToTarget} {
		var b strings.Builder
		for _, q := range creates {
			if q.Direction != direction {
				continue
			}
			fmt.Fprintf(&b, "-- %s\n%s\n", q.Description, q.SQL)
		}
		for _, q := range inserts {
			if q.Direction != direction {
				continue
			}
			fmt.Fprintf(&b, "-- %s\n%s\n", q.Description, q.SQL)
		}
		if b.Len() == 0 {
			continue
		}

		path := filepath.Join(dir, strings.ReplaceAll(string(direction), "-", "_")+".sql")
		if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}
