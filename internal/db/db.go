package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// DB is the metadata database handle. Queries are written with "?"
// placeholders and passed through Rebind.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open connects, pings and migrates.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	d := Dialect(driver)
	switch d {
	case Postgres, SQLite:
	default:
		return nil, fmt.Errorf("db: unsupported driver %q", driver)
	}

	sqlDB, err := sql.Open(string(d), dsn)
	if err != nil {
		return nil, err
	}

	if d == SQLite {
		// One writer keeps modernc from returning SQLITE_BUSY under load.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	db := &DB{DB: sqlDB, Dialect: d}
	if err := Migrate(ctx, db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Rebind rewrites "?" placeholders to "$1..$n" for Postgres.
func (d *DB) Rebind(query string) string {
	if d.Dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
