package config

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Store is the system of record for products, plans, users, payment methods,
// subscriptions, and admin accounts. SQLite is the default backend;
// PostgreSQL and MySQL are supported through Open.
type Store struct {
	db      *sqlx.DB
	dialect dialect
}

// NewStore opens the default SQLite store under dataDir. Pass empty string
// for in-memory.
func NewStore(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == "" {
		dsn = ":memory:?_pragma=foreign_keys(1)"
	} else {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dsn = filepath.Join(dataDir, "subgate.db") +
			"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	return Open("sqlite", dsn)
}

// Open connects to the store using one of the supported drivers: "sqlite",
// "postgres", or "mysql". The schema is created if it does not exist.
func Open(driver, dsn string) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	if d.name == "mysql" {
		// DATETIME columns only scan into time.Time with parseTime set.
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		dsn = cfg.FormatDSN()
	}

	db, err := sqlx.Connect(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", d.name, err)
	}

	if d.name == "sqlite" {
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
	}

	s := &Store{db: db, dialect: d}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return s, nil
}

// newStoreWithDB wraps an existing handle without migrating. Tests use it
// with sqlmock.
func newStoreWithDB(db *sqlx.DB, driver string) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, dialect: d}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Driver returns the configured backend name.
func (s *Store) Driver() string {
	return s.dialect.name
}

// rebind converts a ?-placeholder query to the driver's bind style.
func (s *Store) rebind(q string) string {
	return s.db.Rebind(q)
}

func newID() string {
	return uuid.NewString()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// updateBuilder accumulates "col = ?" assignments for partial updates.
type updateBuilder struct {
	sets []string
	args []interface{}
}

func (b *updateBuilder) set(col string, v interface{}) {
	b.sets = append(b.sets, col+" = ?")
	b.args = append(b.args, v)
}

func (b *updateBuilder) empty() bool {
	return len(b.sets) == 0
}

// build renders "UPDATE table SET ... WHERE id = ?" with id appended to args.
func (b *updateBuilder) build(table, id string) (string, []interface{}) {
	q := "UPDATE " + table + " SET " + strings.Join(b.sets, ", ") + " WHERE id = ?"
	return q, append(b.args, id)
}

// querier is satisfied by both *sqlx.DB and *sqlx.Tx so helpers can run
// inside or outside a transaction.
type querier interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	Rebind(query string) string
}

func count(ctx context.Context, q querier, query string, args ...interface{}) (int, error) {
	var n int
	if err := q.GetContext(ctx, &n, q.Rebind(query), args...); err != nil {
		return 0, err
	}
	return n, nil
}
