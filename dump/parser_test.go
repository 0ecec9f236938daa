package dump

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pgrecon/compare"
)

func parse(t *testing.T, text string) (*compare.SchemaSnapshot, compare.DataSnapshot) {
	t.Helper()
	snap, data, err := Parse(strings.NewReader(text), "public")
	require.NoError(t, err)
	return snap, data
}

func TestParseUsersScenario(t *testing.T) {
	snap, data := parse(t, `
CREATE TABLE public.users (
    id integer NOT NULL,
    name character varying
);
INSERT INTO users (id, name) VALUES (1, 'Ann'), (2, NULL);
`)

	require.Equal(t, 1, snap.TotalTables())
	table, ok := snap.Table("users")
	require.True(t, ok)
	require.Len(t, table.Columns, 2)
	assert.Equal(t, "id", table.Columns[0].Name)
	assert.Equal(t, "integer", table.Columns[0].DataType)
	assert.False(t, table.Columns[0].Nullable)
	assert.Equal(t, "name", table.Columns[1].Name)
	assert.Equal(t, "character varying", table.Columns[1].DataType)
	assert.True(t, table.Columns[1].Nullable)

	require.Len(t, data["users"], 2)
	assert.Equal(t, compare.Record{"id": int64(1), "name": "Ann"}, data["users"][0])
	assert.Equal(t, compare.Record{"id": int64(2), "name": nil}, data["users"][1])
}

func TestParseDefaultClauseIsPresenceMarkerOnly(t *testing.T) {
	snap, _ := parse(t, `
CREATE TABLE public.users (
    id integer NOT NULL,
    status text DEFAULT 'active' NOT NULL,
    created_at timestamp without time zone DEFAULT now()
);
`)

	table, ok := snap.Table("users")
	require.True(t, ok)
	require.Len(t, table.Columns, 3)

	status := table.Columns[1]
	assert.Equal(t, "text", status.DataType)
	assert.False(t, status.Nullable)
	assert.True(t, status.Default.Valid)
	assert.Empty(t, status.Default.String) // expression not retained

	created := table.Columns[2]
	assert.Equal(t, "timestamp without time zone", created.DataType)
	assert.True(t, created.Nullable)
	assert.True(t, created.Default.Valid)
}

func TestParseSkipsOtherSchemas(t *testing.T) {
	snap, data := parse(t, `
CREATE TABLE audit.events (
    id integer NOT NULL
);
CREATE TABLE public.users (
    id integer NOT NULL
);
INSERT INTO audit.events (id) VALUES (1);
`)

	assert.Equal(t, 1, snap.TotalTables())
	_, ok := snap.Table("events")
	assert.False(t, ok)
	assert.Empty(t, data["events"])
}

func TestParseConstraintsAndIndexes(t *testing.T) {
	snap, _ := parse(t, `
CREATE TABLE public.orders (
    id integer NOT NULL,
    user_id integer NOT NULL
);
ALTER TABLE ONLY public.orders
    ADD CONSTRAINT orders_pkey PRIMARY KEY (id);
ALTER TABLE ONLY public.orders
    ADD CONSTRAINT orders_user_fkey FOREIGN KEY (user_id) REFERENCES public.users(id);
CREATE INDEX orders_user_idx ON public.orders USING btree (user_id);
CREATE UNIQUE INDEX orders_number_key ON public.orders (number);
`)

	table, ok := snap.Table("orders")
	require.True(t, ok)
	assert.Equal(t, []string{"id"}, table.PrimaryKeys)

	require.Len(t, table.ForeignKeys, 1)
	fk := table.ForeignKeys[0]
	assert.Equal(t, "orders_user_fkey", fk.Name)
	assert.Equal(t, []string{"user_id"}, fk.Columns)
	assert.Equal(t, "users", fk.ReferencedTable)
	assert.Equal(t, []string{"id"}, fk.ReferencedColumns)

	require.Len(t, table.Indexes, 2)
	assert.Equal(t, "orders_user_idx", table.Indexes[0].Name)
	assert.Equal(t, []string{"user_id"}, table.Indexes[0].Columns)
	assert.False(t, table.Indexes[0].Unique)
	assert.Equal(t, "orders_number_key", table.Indexes[1].Name)
	assert.True(t, table.Indexes[1].Unique)
}

func TestParseConstraintForUncapturedTableIsNoop(t *testing.T) {
	snap, _ := parse(t, `
ALTER TABLE ONLY public.ghost ADD CONSTRAINT ghost_pkey PRIMARY KEY (id);
`)
	assert.Equal(t, 0, snap.TotalTables())
}

func TestParseMultiLineInsert(t *testing.T) {
	_, data := parse(t, `
INSERT INTO users (id, name) VALUES
(1, 'Ann'),
(2, 'Bob'),
(3, 'Cid');
`)

	require.Len(t, data["users"], 3)
	assert.Equal(t, int64(3), data["users"][2]["id"])
	assert.Equal(t, "Cid", data["users"][2]["name"])
}

func TestParseEscapedQuotes(t *testing.T) {
	_, data := parse(t, `
INSERT INTO users (id, name) VALUES (1, 'O''Brien');
`)

	require.Len(t, data["users"], 1)
	assert.Equal(t, "O'Brien", data["users"][0]["name"])
}

func TestParseQuotedCommaStaysOneToken(t *testing.T) {
	_, data := parse(t, `
INSERT INTO users (id, name) VALUES (1, 'Ann, the first');
`)

	require.Len(t, data["users"], 1)
	assert.Equal(t, "Ann, the first", data["users"][0]["name"])
}

func TestParseValueTypes(t *testing.T) {
	_, data := parse(t, `
INSERT INTO t (a, b, c, d, e) VALUES (-7, 3.25, TRUE, NULL, 'x');
`)

	require.Len(t, data["t"], 1)
	rec := data["t"][0]
	assert.Equal(t, int64(-7), rec["a"])
	assert.Equal(t, 3.25, rec["b"])
	assert.Equal(t, true, rec["c"])
	assert.Nil(t, rec["d"])
	assert.Equal(t, "x", rec["e"])
}

// Tuples with the wrong arity are dropped without failing the parse.
func TestParseMismatchedTupleDropped(t *testing.T) {
	_, data := parse(t, `
INSERT INTO users (id, name) VALUES (1, 'Ann'), (2), (3, 'Cid');
`)

	require.Len(t, data["users"], 2)
	assert.Equal(t, int64(1), data["users"][0]["id"])
	assert.Equal(t, int64(3), data["users"][1]["id"])
}

func TestParseIgnoresUnknownStatements(t *testing.T) {
	snap, data := parse(t, `
SET statement_timeout = 0;
SELECT pg_catalog.set_config('search_path', '', false);
COMMENT ON SCHEMA public IS 'standard public schema';
CREATE TABLE public.users (
    id integer NOT NULL,
    CONSTRAINT users_check CHECK (id > 0)
);
GRANT ALL ON TABLE public.users TO app;
`)

	require.Equal(t, 1, snap.TotalTables())
	table, _ := snap.Table("users")
	// The CHECK constraint line is not on the type allow-list.
	assert.Len(t, table.Columns, 1)
	assert.Empty(t, data)
}

func TestParseFileMissing(t *testing.T) {
	_, _, err := ParseFile("does-not-exist.sql", "public")
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestParseUnqualifiedCreateTable(t *testing.T) {
	snap, _ := parse(t, `
CREATE TABLE widgets (
    id bigint NOT NULL,
    label text
);
`)
	table, ok := snap.Table("widgets")
	require.True(t, ok)
	assert.Len(t, table.Columns, 2)
}
