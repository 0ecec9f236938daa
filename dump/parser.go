// Package dump recovers schema structure and row data from pg_dump-style SQL
// text. Parsing is deliberately lenient: only CREATE TABLE, ALTER TABLE ...
// ADD CONSTRAINT, CREATE [UNIQUE] INDEX and INSERT INTO statements are
// recognized, malformed individual statements are skipped, and everything
// else is ignored.
package dump

import (
	"bufio"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"pgrecon/compare"
)

// ErrUnreadable wraps failures to read the dump input; no partial snapshot is
// returned in that case.
var ErrUnreadable = errors.New("dump: input unreadable")

// DefaultSchema is used when no schema name is configured.
const DefaultSchema = "public"

var (
	createTableRe = regexp.MustCompile(`(?i)^CREATE\s+TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?(?:"?([\w$]+)"?\.)?"?([\w$]+)"?\s*\(`)
	primaryKeyRe  = regexp.MustCompile(`(?i)^ALTER\s+TABLE\s+(?:ONLY\s+)?(?:"?([\w$]+)"?\.)?"?([\w$]+)"?\s+ADD\s+CONSTRAINT\s+"?([\w$]+)"?\s+PRIMARY\s+KEY\s*\(([^)]+)\)`)
	foreignKeyRe  = regexp.MustCompile(`(?i)^ALTER\s+TABLE\s+(?:ONLY\s+)?(?:"?([\w$]+)"?\.)?"?([\w$]+)"?\s+ADD\s+CONSTRAINT\s+"?([\w$]+)"?\s+FOREIGN\s+KEY\s*\(([^)]+)\)\s+REFERENCES\s+(?:"?[\w$]+"?\.)?"?([\w$]+)"?\s*\(([^)]+)\)`)
	createIndexRe = regexp.MustCompile(`(?i)^CREATE\s+(UNIQUE\s+)?INDEX\s+"?([\w$]+)"?\s+ON\s+(?:ONLY\s+)?(?:"?([\w$]+)"?\.)?"?([\w$]+)"?\s+(?:USING\s+[\w$]+\s*)?\(([^)]+)\)`)
	insertRe      = regexp.MustCompile(`(?is)^INSERT\s+INTO\s+(?:"?([\w$]+)"?\.)?"?([\w$]+)"?\s*\(([^)]*)\)\s+VALUES\s*(.+);$`)
	// tupleRe splits a VALUES clause into its top-level parenthesized groups.
	// It does not account for parentheses inside quoted literals; dumps that
	// escape such literals conventionally split correctly.
	tupleRe  = regexp.MustCompile(`\(([^()]*)\)`)
	numberRe = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
)

// columnTypeKeywords is the allow-list a CREATE TABLE body line must start
// its type text with to be captured as a column. Multi-line CHECK constraints
// and generated-column expressions fall through and are silently ignored.
var columnTypeKeywords = []string{
	"integer", "bigint", "smallint", "serial", "bigserial",
	"character varying", "varchar", "character", "char", "text",
	"numeric", "decimal", "real", "double precision",
	"boolean", "timestamp", "date", "time",
	"uuid", "jsonb", "json", "bytea", "interval", "inet",
}

// ParseFile parses the dump at path restricted to the given schema name.
func ParseFile(path, schemaName string) (*compare.SchemaSnapshot, compare.DataSnapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer f.Close()
	return Parse(f, schemaName)
}

// Parse consumes dump text in a single forward pass, producing a schema
// snapshot and a data snapshot for the configured schema.
func Parse(r io.Reader, schemaName string) (*compare.SchemaSnapshot, compare.DataSnapshot, error) {
	if schemaName == "" {
		schemaName = DefaultSchema
	}
	p := &parser{
		schema: schemaName,
		byName: make(map[string]*compare.TableSchema),
		data:   make(compare.DataSnapshot),
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		p.line(strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	snap := &compare.SchemaSnapshot{SchemaName: schemaName}
	for _, name := range p.order {
		snap.Tables = append(snap.Tables, *p.byName[name])
	}
	return snap, p.data, nil
}

type parser struct {
	schema  string
	order   []string
	byName  map[string]*compare.TableSchema
	data    compare.DataSnapshot
	current *compare.TableSchema
	// pending accumulates a multi-line statement until a line ends with ";".
	pending string
}

func (p *parser) line(line string) {
	if line == "" || strings.HasPrefix(line, "--") {
		return
	}

	if p.pending != "" {
		// Space-joined accumulation preserves token spacing well enough for
		// the statement regexes.
		p.pending += " " + line
		if strings.HasSuffix(line, ";") {
			stmt := p.pending
			p.pending = ""
			p.statement(stmt)
		}
		return
	}

	if p.current != nil {
		if strings.Contains(line, ");") {
			p.current = nil
			return
		}
		p.column(line)
		return
	}

	upper := strings.ToUpper(line)
	switch {
	case strings.HasPrefix(upper, "CREATE TABLE"):
		p.openTable(line)
	case strings.HasPrefix(upper, "ALTER TABLE"),
		strings.HasPrefix(upper, "CREATE INDEX"),
		strings.HasPrefix(upper, "CREATE UNIQUE INDEX"),
		strings.HasPrefix(upper, "INSERT INTO"):
		if strings.HasSuffix(line, ";") {
			p.statement(line)
		} else {
			p.pending = line
		}
	}
}

func (p *parser) openTable(line string) {
	m := createTableRe.FindStringSubmatch(line)
	if m == nil {
		return
	}
	schema, name := m[1], m[2]
	if schema != "" && schema != p.schema {
		return
	}
	t := &compare.TableSchema{Name: name}
	if _, exists := p.byName[name]; !exists {
		p.order = append(p.order, name)
	}
	p.byName[name] = t
	p.current = t
}

// column parses one CREATE TABLE body line into (name, type, nullable,
// default-presence). Lines whose type text is not on the allow-list are
// ignored.
func (p *parser) column(line string) {
	line = strings.TrimSuffix(line, ",")
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return
	}

	typeText := strings.Join(fields[1:], " ")
	if !hasTypeKeyword(typeText) {
		return
	}

	upper := strings.ToUpper(typeText)
	notNull := strings.Contains(upper, "NOT NULL")
	hasDefault := strings.Contains(upper, " DEFAULT ") || strings.HasSuffix(upper, " DEFAULT")

	// Strip trailing clauses; only the bare type text is retained.
	if i := strings.Index(upper, " DEFAULT"); i >= 0 {
		typeText = typeText[:i]
		upper = upper[:i]
	}
	if i := strings.Index(upper, " NOT NULL"); i >= 0 {
		typeText = typeText[:i]
	}
	typeText = strings.TrimSpace(typeText)

	col := compare.ColumnSchema{
		Name:     strings.Trim(fields[0], `"`),
		DataType: typeText,
		Nullable: !notNull,
	}
	if hasDefault {
		// Presence marker only; the expression text is not recoverable here.
		col.Default = sql.NullString{Valid: true}
	}
	p.current.Columns = append(p.current.Columns, col)
}

func hasTypeKeyword(typeText string) bool {
	lower := strings.ToLower(typeText)
	for _, kw := range columnTypeKeywords {
		if strings.HasPrefix(lower, kw) {
			return true
		}
	}
	return false
}

// statement dispatches a complete (possibly re-joined) statement. Constraint
// and index statements are no-ops when their table was not captured, e.g. a
// non-matching schema.
func (p *parser) statement(stmt string) {
	upper := strings.ToUpper(stmt)
	switch {
	case strings.HasPrefix(upper, "ALTER TABLE"):
		if m := primaryKeyRe.FindStringSubmatch(stmt); m != nil {
			if t := p.tableFor(m[1], m[2]); t != nil {
				t.PrimaryKeys = splitIdentList(m[4])
			}
			return
		}
		if m := foreignKeyRe.FindStringSubmatch(stmt); m != nil {
			if t := p.tableFor(m[1], m[2]); t != nil {
				t.ForeignKeys = append(t.ForeignKeys, compare.ForeignKeySchema{
					Name:              m[3],
					Columns:           splitIdentList(m[4]),
					ReferencedTable:   m[5],
					ReferencedColumns: splitIdentList(m[6]),
				})
			}
		}
	case strings.HasPrefix(upper, "CREATE INDEX"), strings.HasPrefix(upper, "CREATE UNIQUE INDEX"):
		if m := createIndexRe.FindStringSubmatch(stmt); m != nil {
			if t := p.tableFor(m[3], m[4]); t != nil {
				t.Indexes = append(t.Indexes, compare.IndexSchema{
					Name:    m[2],
					Columns: splitIdentList(m[5]),
					Unique:  m[1] != "",
				})
			}
		}
	case strings.HasPrefix(upper, "INSERT INTO"):
		p.insert(stmt)
	}
}

func (p *parser) tableFor(schema, name string) *compare.TableSchema {
	if schema != "" && schema != p.schema {
		return nil
	}
	return p.byName[name]
}

// insert parses a complete single- or multi-row INSERT statement. A tuple is
// accepted only when its token count equals the column count; mismatched
// tuples are dropped silently.
func (p *parser) insert(stmt string) {
	m := insertRe.FindStringSubmatch(strings.TrimSpace(stmt))
	if m == nil {
		return
	}
	if m[1] != "" && m[1] != p.schema {
		return
	}
	table := m[2]
	columns := splitIdentList(m[3])
	if len(columns) == 0 {
		return
	}

	for _, tuple := range tupleRe.FindAllStringSubmatch(m[4], -1) {
		tokens := splitTuple(tuple[1])
		if len(tokens) != len(columns) {
			continue
		}
		rec := make(compare.Record, len(columns))
		for i, tok := range tokens {
			rec[columns[i]] = parseValue(tok)
		}
		p.data[table] = append(p.data[table], rec)
	}
}

// splitTuple splits a tuple's inner text on commas outside quote spans.
// A doubled quote character inside a span stays part of the token; tokens
// keep their surrounding quotes for parseValue.
func splitTuple(s string) []string {
	var tokens []string
	var b strings.Builder
	var quote rune

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch {
		case quote != 0:
			b.WriteRune(ch)
			if ch == quote {
				if i+1 < len(runes) && runes[i+1] == quote {
					b.WriteRune(runes[i+1])
					i++
				} else {
					quote = 0
				}
			}
		case ch == '\'' || ch == '"':
			quote = ch
			b.WriteRune(ch)
		case ch == ',':
			tokens = append(tokens, strings.TrimSpace(b.String()))
			b.Reset()
		default:
			b.WriteRune(ch)
		}
	}
	tokens = append(tokens, strings.TrimSpace(b.String()))
	return tokens
}

func parseValue(token string) any {
	switch strings.ToUpper(token) {
	case "NULL":
		return nil
	case "TRUE":
		return true
	case "FALSE":
		return false
	}

	if len(token) >= 2 {
		first := token[0]
		if (first == '\'' || first == '"') && token[len(token)-1] == first {
			q := string(first)
			return strings.ReplaceAll(token[1:len(token)-1], q+q, q)
		}
	}

	if numberRe.MatchString(token) {
		if !strings.Contains(token, ".") {
			if n, err := strconv.ParseInt(token, 10, 64); err == nil {
				return n
			}
		}
		if f, err := strconv.ParseFloat(token, 64); err == nil {
			return f
		}
	}

	return token
}

func splitIdentList(s string) []string {
	parts := strings.Split(s, ",")
	idents := make([]string, 0, len(parts))
	for _, part := range parts {
		ident := strings.Trim(strings.TrimSpace(part), `"`)
		if ident != "" {
			idents = append(idents, ident)
		}
	}
	return idents
}
