package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/portfolio-bff/backend/internal/storage/executor"
	"github.com/portfolio-bff/backend/pkg/logger"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// Querier is satisfied by *executor.Executor.
type Querier interface {
	Query(ctx context.Context, statement string, args ...any) ([]executor.Row, error)
}

type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

// DialectFor maps a database/sql driver name to its placeholder dialect.
func DialectFor(driver string) Dialect {
	if driver == "pgx" || driver == "postgres" {
		return Postgres
	}
	return SQLite
}

type Repository struct {
	q       Querier
	dialect Dialect
	now     func() time.Time
	logger  *zap.Logger
}

func New(q Querier, dialect Dialect) *Repository {
	return &Repository{
		q:       q,
		dialect: dialect,
		now:     time.Now,
		logger:  logger.GetLogger().With(zap.String("component", "repository")),
	}
}

func (r *Repository) query(ctx context.Context, statement string, args ...any) ([]executor.Row, error) {
	return r.q.Query(ctx, Rebind(r.dialect, statement), args...)
}

// Rebind rewrites ? placeholders into $1..$n for Postgres. Statements must
// not contain a literal question mark.
func Rebind(d Dialect, statement string) string {
	if d != Postgres || !strings.Contains(statement, "?") {
		return statement
	}

	var b strings.Builder
	b.Grow(len(statement) + 8)
	n := 0
	for i := 0; i < len(statement); i++ {
		if statement[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(statement[i])
	}
	return b.String()
}

func (r *Repository) InitSchema(ctx context.Context) error {
	for _, stmt := range schema(r.dialect) {
		if _, err := r.query(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	r.logger.Info("Database schema initialized")
	return nil
}

func schema(d Dialect) []string {
	pk := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if d == Postgres {
		pk = "BIGSERIAL PRIMARY KEY"
	}

	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			id ` + pk + `,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS guests (
			id ` + pk + `,
			name TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS contact_messages (
			id ` + pk + `,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			message TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS reference_submissions (
			id ` + pk + `,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			job_title TEXT NOT NULL DEFAULT '',
			company TEXT NOT NULL DEFAULT '',
			relationship TEXT NOT NULL DEFAULT '',
			about_me TEXT NOT NULL DEFAULT '',
			image_path TEXT,
			signature_path TEXT,
			lor_path TEXT,
			created_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS programs (
			id ` + pk + `,
			program_name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS reviews (
			id ` + pk + `,
			reviewer_name TEXT NOT NULL,
			reviewer_role TEXT NOT NULL DEFAULT '',
			program_id BIGINT REFERENCES programs(id),
			category TEXT NOT NULL,
			rating INTEGER NOT NULL,
			review_text TEXT NOT NULL,
			skills TEXT,
			avatar TEXT,
			created_at BIGINT NOT NULL,
			updated_at BIGINT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_category ON reviews(category, created_at)`,
		`CREATE TABLE IF NOT EXISTS project_feedback (
			id TEXT PRIMARY KEY,
			like_count BIGINT NOT NULL DEFAULT 0,
			comments TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS uk_cities (
			id ` + pk + `,
			name TEXT NOT NULL,
			county TEXT NOT NULL DEFAULT '',
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL
		)`,
	}
}

// IsDuplicate reports whether err is a unique constraint violation from
// either supported driver.
func IsDuplicate(err error) bool {
	if errors.Is(err, ErrDuplicate) {
		return true
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func firstID(rows []executor.Row) (int64, error) {
	if len(rows) == 0 {
		return 0, ErrNotFound
	}
	return rows[0].Int64("id"), nil
}
