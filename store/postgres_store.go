package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	"github.com/BatmanBruc/convert-menu-bot/types"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var ErrNotConfigured = errors.New("postgres dsn is not configured")

const queryTimeout = 5 * time.Second

// PostgresStore is the audit journal: known users and every conversion attempt.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  logrus.FieldLogger
}

func NewPostgresStore(ctx context.Context, dsn string, log logrus.FieldLogger) (*PostgresStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, ErrNotConfigured
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &PostgresStore{pool: pool, log: log}
	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PostgresStore) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDB(*s.pool.Config().ConnConfig)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(s.log)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, "migrations")
}

func (s *PostgresStore) UpsertUser(ctx context.Context, user types.User) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := s.pool.Exec(ctx, `
INSERT INTO users (user_id, chat_id, username, first_name, last_name, language_code)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (user_id) DO UPDATE SET
  chat_id = EXCLUDED.chat_id,
  username = EXCLUDED.username,
  first_name = EXCLUDED.first_name,
  last_name = EXCLUDED.last_name,
  language_code = EXCLUDED.language_code,
  updated_at = NOW();
`, user.UserID, user.ChatID,
		strings.TrimSpace(user.Username),
		strings.TrimSpace(user.FirstName),
		strings.TrimSpace(user.LastName),
		strings.TrimSpace(user.LanguageCode))
	if err != nil {
		return fmt.Errorf("upsert user %d: %w", user.UserID, err)
	}
	return nil
}

func (s *PostgresStore) RecordConversion(ctx context.Context, rec types.ConversionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := s.pool.Exec(ctx, `
INSERT INTO conversions (id, user_id, mode, outcome, input_bytes, output_bytes, duration_ms, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`, rec.ID, rec.UserID, string(rec.Mode), rec.Outcome, rec.InputBytes, rec.OutputBytes, rec.Duration.Milliseconds(), rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("record conversion for user %d: %w", rec.UserID, err)
	}
	return nil
}
