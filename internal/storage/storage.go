package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

//go:embed schema_sqlite.sql schema_postgres.sql
var ddl embed.FS

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	ErrNotFound  = errors.New("storage: not found")
	ErrSlotTaken = errors.New("storage: slot is not free")
	ErrNotActive = errors.New("storage: booking is not active")
)

// DB is the single implementation of Repository. The dialect is picked by
// the driver name; queries are written with "?" and rebound per driver.
type DB struct {
	*sqlx.DB
	driver string
	now    func() time.Time
}

var _ Repository = (*DB)(nil)

// Open connects to the database and applies the schema for the driver.
func Open(driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite:
		dsn = sqliteDSN(dsn)
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("storage: unsupported driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// one writer at a time; transactions queue on the connection instead of failing with SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}

	d := &DB{DB: db, driver: driver, now: time.Now}
	if err = d.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (d *DB) migrate() error {
	b, err := ddl.ReadFile("schema_" + d.driver + ".sql")
	if err != nil {
		return err
	}
	if _, err = d.Exec(string(b)); err != nil {
		return fmt.Errorf("storage: migrate: %w", err)
	}
	return nil
}

func (d *DB) Driver() string { return d.driver }

// SetClock replaces the source of created_at timestamps.
func (d *DB) SetClock(now func() time.Time) { d.now = now }

// Ping is used by the readiness probe.
func (d *DB) Ping(ctx context.Context) error {
	return d.PingContext(ctx)
}

func (d *DB) unix() int64 { return d.now().Unix() }

// get runs a single-row query and maps sql.ErrNoRows to ErrNotFound.
func (d *DB) get(ctx context.Context, dst any, query string, args ...any) error {
	err := d.GetContext(ctx, dst, d.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (d *DB) selectAll(ctx context.Context, dst any, query string, args ...any) error {
	return d.SelectContext(ctx, dst, d.Rebind(query), args...)
}

func (d *DB) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := d.ExecContext(ctx, d.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// inTx runs fn in a transaction, rolling back on any error.
func (d *DB) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := d.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func txExec(ctx context.Context, tx *sqlx.Tx, query string, args ...any) (int64, error) {
	res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func txGet(ctx context.Context, tx *sqlx.Tx, dst any, query string, args ...any) error {
	err := tx.GetContext(ctx, dst, tx.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
