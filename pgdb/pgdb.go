// Package pgdb is the live side of a comparison: connection handling, schema
// introspection and paginated row extraction against a PostgreSQL-compatible
// server.
package pgdb

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// DB wraps one side's connection for the duration of a comparison run.
type DB struct {
	db  *sqlx.DB
	dsn string
}

// Connect opens a connection and verifies it with a bounded ping, closing the
// handle on failure.
func Connect(ctx context.Context, dsn string) (*DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{db: db, dsn: dsn}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Info summarizes one side for the report header.
type Info struct {
	Host         string
	DatabaseName string
	TableCount   int
	TotalSize    int64 // in bytes
}

// Info collects host, database name, table count and total size. Size lookup
// is best effort.
func (d *DB) Info(ctx context.Context, schema string) (Info, error) {
	info := Info{}
	info.Host, info.DatabaseName = parseDSN(d.dsn)

	tables, err := d.ListTables(ctx, schema, nil)
	if err != nil {
		return info, err
	}
	info.TableCount = len(tables)

	var size int64
	if err := d.db.QueryRowContext(ctx, "SELECT pg_database_size(current_database())").Scan(&size); err == nil {
		info.TotalSize = size
	}

	return info, nil
}

func parseDSN(dsn string) (host, database string) {
	if u, err := url.Parse(dsn); err == nil && u.Host != "" {
		return u.Host, strings.TrimPrefix(u.Path, "/")
	}
	// key=value form
	for _, field := range strings.Fields(dsn) {
		if v, ok := strings.CutPrefix(field, "host="); ok {
			host = v
		}
		if v, ok := strings.CutPrefix(field, "dbname="); ok {
			database = v
		}
	}
	return host, database
}
