package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog"

	"babagram/internal/config"
)

// Connect opens the Postgres pool used for notifications and device tokens.
func Connect(cfg *config.Config, log zerolog.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.PostgresDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)

	log.Info().Str("host", cfg.DBHost).Str("db", cfg.DBName).Msg("connected to postgres")
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS notifications (
	id           BIGSERIAL PRIMARY KEY,
	recipient_id TEXT        NOT NULL,
	sender_id    TEXT        NOT NULL,
	kind         TEXT        NOT NULL,
	content_type TEXT        NOT NULL,
	content_id   TEXT        NOT NULL,
	text         TEXT,
	is_read      BOOLEAN     NOT NULL DEFAULT false,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_notifications_recipient_created
	ON notifications (recipient_id, created_at DESC);

CREATE TABLE IF NOT EXISTS device_tokens (
	id         BIGSERIAL PRIMARY KEY,
	user_id    TEXT        NOT NULL,
	token      TEXT        NOT NULL UNIQUE,
	platform   TEXT        NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_device_tokens_user ON device_tokens (user_id);
`

// EnsureSchema creates the notification tables when missing.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
