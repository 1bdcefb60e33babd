package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO
)

// Supported SQL dialects.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
)

// Options selects and tunes the SQL backend.
type Options struct {
	Dialect         string
	Path            string // sqlite file, ":memory:" is not supported
	DSN             string // postgres or mysql
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// MySQLDSN builds a go-sql-driver DSN.
func MySQLDSN(host string, port int, user, password, name string) string {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", host, port)
	cfg.User = user
	cfg.Passwd = password
	cfg.DBName = name
	// RowsAffected must count matched rows for the compare-and-set updates
	cfg.ClientFoundRows = true
	return cfg.FormatDSN()
}

// PostgresDSN builds a lib/pq URL DSN with every part escaped.
func PostgresDSN(host string, port int, user, password, name, sslMode string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     net.JoinHostPort(host, strconv.Itoa(port)),
		Path:     "/" + name,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}

// dbtx is what both *sql.DB and *sql.Tx offer.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore implements Store on database/sql for SQLite, PostgreSQL and MySQL.
type SQLStore struct {
	*queries
	db  *sql.DB
	log *zap.Logger
}

// NewSQLStore opens the database, applies the schema and returns the store.
func NewSQLStore(ctx context.Context, opts Options, log *zap.Logger) (*SQLStore, error) {
	d := dialect(opts.Dialect)
	driver, dsn := string(d), opts.DSN

	switch d {
	case DialectSQLite:
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", opts.Path)
	case DialectPostgres, DialectMySQL:
		if dsn == "" {
			return nil, fmt.Errorf("%s store requires a DSN", d)
		}
	default:
		return nil, fmt.Errorf("unsupported store dialect %q", opts.Dialect)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", d, err)
	}

	if d == DialectSQLite {
		// SQLite only supports 1 writer
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		maxOpen, maxIdle, life := opts.MaxOpenConns, opts.MaxIdleConns, opts.ConnMaxLifetime
		if maxOpen <= 0 {
			maxOpen = 25
		}
		if maxIdle <= 0 {
			maxIdle = 10
		}
		if life <= 0 {
			life = 5 * time.Minute
		}
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(maxIdle)
		db.SetConnMaxLifetime(life)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", d, err)
	}

	s := &SQLStore{queries: &queries{db: db, d: d}, db: db, log: log}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Info("store initialized", zap.String("dialect", string(d)))
	return s, nil
}

// WithTx runs fn in a transaction and commits when it returns nil.
func (s *SQLStore) WithTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&queries{db: tx, d: s.d}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Dialect names the backend in use.
func (s *SQLStore) Dialect() string { return string(s.d) }

// Ping checks the connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) migrate(ctx context.Context) error {
	for _, stmt := range s.d.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: %s", err, firstLine(stmt))
		}
	}
	_, err := s.db.ExecContext(ctx,
		s.d.insertIgnore("stats_totals", "id, total_drops, total_boxes_posted, total_boxes_picked_up, total_reservations, total_no_shows, avg_rating", 7),
		statsRowID, 0, 0, 0, 0, 0, 0.0)
	return err
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// queries carries every statement. It runs against the pool or a transaction.
type queries struct {
	db dbtx
	d  dialect
}

func (q *queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.db.ExecContext(ctx, q.d.rebind(query), args...)
}

func (q *queries) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return q.db.QueryContext(ctx, q.d.rebind(query), args...)
}

func (q *queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.db.QueryRowContext(ctx, q.d.rebind(query), args...)
}

// execOne runs an update and reports whether exactly one row changed.
func (q *queries) execOne(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := q.exec(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

type dialect string

// rebind turns ? placeholders into $n for PostgreSQL.
func (d dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// insertIgnore builds an insert that silently skips unique conflicts.
func (d dialect) insertIgnore(table, cols string, n int) string {
	ph := placeholders(n)
	switch d {
	case DialectMySQL:
		return fmt.Sprintf("INSERT IGNORE INTO %s (%s) VALUES (%s)", table, cols, ph)
	case DialectPostgres:
		return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING", table, cols, ph)
	default:
		return fmt.Sprintf("INSERT OR IGNORE INTO %s (%s) VALUES (%s)", table, cols, ph)
	}
}

// forUpdate is the row-lock suffix for a SELECT. SQLite has a single writer
// and no row locks.
func (d dialect) forUpdate() string {
	if d == DialectSQLite {
		return ""
	}
	return " FOR UPDATE"
}

func (d dialect) floatType() string {
	if d == DialectMySQL {
		return "DOUBLE"
	}
	return "DOUBLE PRECISION"
}

func (d dialect) schema() []string {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS drops (
			id VARCHAR(64) PRIMARY KEY,
			location VARCHAR(32) NOT NULL,
			location_detail TEXT NOT NULL,
			drop_date VARCHAR(10) NOT NULL,
			window_start VARCHAR(5) NOT NULL,
			window_end VARCHAR(5) NOT NULL,
			total_boxes INTEGER NOT NULL,
			remaining_boxes INTEGER NOT NULL,
			reserved_boxes INTEGER NOT NULL,
			price_min INTEGER NOT NULL,
			price_max INTEGER NOT NULL,
			description TEXT NOT NULL,
			image_ref TEXT NOT NULL,
			created_at BIGINT NOT NULL,
			CHECK (remaining_boxes >= 0 AND reserved_boxes >= 0 AND remaining_boxes + reserved_boxes = total_boxes)
		)`,
		`CREATE TABLE IF NOT EXISTS reservations (
			id VARCHAR(64) PRIMARY KEY,
			drop_id VARCHAR(64) NOT NULL,
			session_id VARCHAR(128) NOT NULL,
			location VARCHAR(32) NOT NULL,
			location_detail TEXT NOT NULL,
			drop_date VARCHAR(10) NOT NULL,
			window_start VARCHAR(5) NOT NULL,
			window_end VARCHAR(5) NOT NULL,
			image_ref TEXT NOT NULL,
			pickup_code VARCHAR(8) NOT NULL,
			status VARCHAR(16) NOT NULL,
			payment_method VARCHAR(16) NOT NULL,
			current_price INTEGER NOT NULL,
			rating INTEGER NULL,
			box_status VARCHAR(16) NOT NULL,
			active_key VARCHAR(200) NULL UNIQUE,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS pickup_codes (
			id VARCHAR(64) PRIMARY KEY,
			code VARCHAR(8) NOT NULL,
			live_code VARCHAR(8) NULL UNIQUE,
			reservation_id VARCHAR(64) NOT NULL UNIQUE,
			drop_id VARCHAR(64) NOT NULL,
			status VARCHAR(16) NOT NULL,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS accounts (
			session_id VARCHAR(128) PRIMARY KEY,
			is_first_time BOOLEAN NOT NULL,
			total_pickups INTEGER NOT NULL,
			no_show_count INTEGER NOT NULL,
			has_account BOOLEAN NOT NULL,
			has_card_saved BOOLEAN NOT NULL,
			card_last4 VARCHAR(4) NOT NULL,
			membership TEXT NULL,
			credits_remaining INTEGER NOT NULL,
			updated_at BIGINT NOT NULL,
			CHECK (credits_remaining >= 0)
		)`,
		`CREATE TABLE IF NOT EXISTS waitlist_entries (
			id VARCHAR(64) PRIMARY KEY,
			drop_id VARCHAR(64) NOT NULL,
			session_id VARCHAR(128) NOT NULL,
			notified BOOLEAN NOT NULL,
			created_at BIGINT NOT NULL,
			UNIQUE (drop_id, session_id)
		)`,
		`CREATE TABLE IF NOT EXISTS stats_totals (
			id VARCHAR(16) PRIMARY KEY,
			total_drops BIGINT NOT NULL,
			total_boxes_posted BIGINT NOT NULL,
			total_boxes_picked_up BIGINT NOT NULL,
			total_reservations BIGINT NOT NULL,
			total_no_shows BIGINT NOT NULL,
			avg_rating ` + d.floatType() + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS stats_daily (
			day VARCHAR(10) PRIMARY KEY,
			drops BIGINT NOT NULL,
			boxes_posted BIGINT NOT NULL,
			reservations BIGINT NOT NULL,
			pickups BIGINT NOT NULL,
			no_shows BIGINT NOT NULL,
			cancellations BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS location_caps (
			location VARCHAR(32) PRIMARY KEY,
			daily_cap INTEGER NOT NULL,
			consecutive_weeks_above_85 INTEGER NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
	}

	// MySQL has no CREATE INDEX IF NOT EXISTS; its lookups ride on the unique keys.
	if d != DialectMySQL {
		stmts = append(stmts,
			`CREATE INDEX IF NOT EXISTS idx_reservations_session ON reservations(session_id)`,
			`CREATE INDEX IF NOT EXISTS idx_reservations_status ON reservations(status)`,
			`CREATE INDEX IF NOT EXISTS idx_pickup_codes_code ON pickup_codes(code)`,
		)
	}
	return stmts
}

// IsDuplicateKeyErr reports whether err is a unique constraint violation on
// any supported backend.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicate) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}

	// SQLite (error code 2067 / 1555)
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
