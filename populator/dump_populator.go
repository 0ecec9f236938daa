// Generates a pair of pg_dump-style SQL files with seeded differences, for
// demos and manual testing of the comparison engine:
//
//	go run ./populator
//
// writes source_dump.sql and target_dump.sql in the working directory. The
// target is the source minus one table, minus one column on another table,
// minus a slice of rows, plus a handful of rows the source lacks.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"strings"
)

const (
	sourcePath = "source_dump.sql"
	targetPath = "target_dump.sql"
	batchSize  = 100 // rows per multi-row INSERT
)

type columnKind int

const (
	kindInteger columnKind = iota
	kindNumeric
	kindText
	kindVarchar
	kindBoolean
	kindTimestamp
)

type column struct {
	Name    string
	Kind    columnKind
	NotNull bool
}

type table struct {
	Name    string
	Columns []column
	Rows    int
}

func main() {
	rng := rand.New(rand.NewSource(42))

	tableCount := 3 + rng.Intn(5)
	tables := make([]table, tableCount)
	fmt.Printf("Generating %d random tables...\n", tableCount)
	for i := range tables {
		tables[i] = randomTable(rng, i+1)
	}

	if err := writeDump(sourcePath, tables, rng, false); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", sourcePath, err)
		os.Exit(1)
	}
	if err := writeDump(targetPath, tables, rng, true); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", targetPath, err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %s and %s\n", sourcePath, targetPath)
	fmt.Println("Try: pgrecon source_dump.sql target_dump.sql")
}

func randomTable(rng *rand.Rand, n int) table {
	t := table{
		Name: fmt.Sprintf("table_%d", n),
		Rows: 50 + rng.Intn(450),
	}
	t.Columns = append(t.Columns, column{Name: "id", Kind: kindInteger, NotNull: true})
	extra := 2 + rng.Intn(5)
	for i := 0; i < extra; i++ {
		t.Columns = append(t.Columns, column{
			Name: fmt.Sprintf("col_%d", i+1),
			Kind: columnKind(rng.Intn(int(kindTimestamp) + 1)),
		})
	}
	return t
}

// writeDump emits CREATE TABLE, ALTER TABLE ... PRIMARY KEY and batched
// multi-row INSERT statements. With mutate set, the last table is dropped,
// the first table loses its last column, every 25th row is skipped and a few
// extra rows are appended, so the two files always differ.
func writeDump(path string, tables []table, rng *rand.Rand, mutate bool) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	for ti, t := range tables {
		if mutate && ti == len(tables)-1 {
			continue
		}
		columns := t.Columns
		if mutate && ti == 0 && len(columns) > 2 {
			columns = columns[:len(columns)-1]
		}

		fmt.Fprintf(f, "CREATE TABLE public.%s (\n", t.Name)
		for i, c := range columns {
			fmt.Fprintf(f, "    %s %s", c.Name, typeName(c.Kind))
			if c.NotNull {
				fmt.Fprint(f, " NOT NULL")
			}
			if i < len(columns)-1 {
				fmt.Fprint(f, ",")
			}
			fmt.Fprintln(f)
		}
		fmt.Fprintln(f, ");")
		fmt.Fprintf(f, "ALTER TABLE ONLY public.%s ADD CONSTRAINT %s_pkey PRIMARY KEY (id);\n\n", t.Name, t.Name)

		rowRng := rand.New(rand.NewSource(int64(ti) * 7919)) // same rows on both sides
		var tuples []string
		flush := func() {
			if len(tuples) == 0 {
				return
			}
			fmt.Fprintf(f, "INSERT INTO %s (%s) VALUES %s;\n", t.Name, columnList(columns), strings.Join(tuples, ", "))
			tuples = tuples[:0]
		}

		for row := 1; row <= t.Rows; row++ {
			values := randomTuple(rowRng, columns, row)
			if mutate && row%25 == 0 {
				continue
			}
			tuples = append(tuples, values)
			if len(tuples) == batchSize {
				flush()
			}
		}
		if mutate {
			for extra := 0; extra < 3; extra++ {
				tuples = append(tuples, randomTuple(rng, columns, t.Rows+1+extra))
			}
		}
		flush()
		fmt.Fprintln(f)
	}
	return nil
}

func columnList(columns []column) string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return strings.Join(names, ", ")
}

func typeName(kind columnKind) string {
	switch kind {
	case kindInteger:
		return "integer"
	case kindNumeric:
		return "numeric"
	case kindText:
		return "text"
	case kindVarchar:
		return "character varying"
	case kindBoolean:
		return "boolean"
	default:
		return "timestamp without time zone"
	}
}

func randomTuple(rng *rand.Rand, columns []column, id int) string {
	values := make([]string, len(columns))
	for i, c := range columns {
		if c.Name == "id" {
			values[i] = fmt.Sprintf("%d", id)
			continue
		}
		if rng.Intn(10) == 0 {
			values[i] = "NULL"
			continue
		}
		switch c.Kind {
		case kindInteger:
			values[i] = fmt.Sprintf("%d", rng.Intn(100000))
		case kindNumeric:
			values[i] = fmt.Sprintf("%.2f", rng.Float64()*1000)
		case kindBoolean:
			if rng.Intn(2) == 0 {
				values[i] = "TRUE"
			} else {
				values[i] = "FALSE"
			}
		case kindTimestamp:
			values[i] = fmt.Sprintf("'2024-%02d-%02d %02d:%02d:00'", 1+rng.Intn(12), 1+rng.Intn(28), rng.Intn(24), rng.Intn(60))
		default:
			values[i] = "'" + randomText(rng) + "'"
		}
	}
	return "(" + strings.Join(values, ", ") + ")"
}

var words = []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "o''brien", "quote''d"}

func randomText(rng *rand.Rand) string {
	n := 1 + rng.Intn(3)
	parts := make([]string, n)
	for i := range parts {
		parts[i] = words[rng.Intn(len(words))]
	}
	return strings.Join(parts, " ")
}
