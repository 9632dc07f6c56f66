package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"

	"latiafanny/backend/internal/store"
)

//go:embed schema.sql
var schema string

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}

	return &Store{db: db}, nil
}

// NewFromDB wraps an existing handle. The caller keeps ownership of pool settings.
func NewFromDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "migrate: %s", firstLine(stmt))
		}
	}
	return nil
}

func schemaStatements() []string {
	parts := strings.Split(schema, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstLine(stmt string) string {
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		return stmt[:i]
	}
	return stmt
}

// mapError translates constraint violations into store sentinels and wraps
// everything else with op.
func mapError(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return store.ErrConflict
		case "23503", "23514":
			return store.ErrInvalidInput
		}
	}
	return errors.Wrap(err, op)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// execAffecting runs an UPDATE or DELETE and reports ErrNotFound when no row matched.
func execAffecting(ctx context.Context, db execer, b squirrel.Sqlizer, op string) error {
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, op)
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err, op)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, op)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
