package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// deviceTokenRepository keeps one row per FCM registration token. The token
// column is unique, so a phone that signs into another account moves over.
type deviceTokenRepository struct {
	db *sqlx.DB
}

func NewDeviceTokenRepository(db *sqlx.DB) DeviceTokenRepository {
	return &deviceTokenRepository{db: db}
}

func (r *deviceTokenRepository) Register(ctx context.Context, userID, token, platform string) error {
	const query = `
		INSERT INTO device_tokens (user_id, token, platform)
		VALUES ($1, $2, $3)
		ON CONFLICT (token) DO UPDATE
		SET user_id = EXCLUDED.user_id, platform = EXCLUDED.platform, updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, userID, token, platform); err != nil {
		return fmt.Errorf("register device token: %w", err)
	}
	return nil
}

// Tokens lists the push targets of a user, most recently registered first.
func (r *deviceTokenRepository) Tokens(ctx context.Context, userID string) ([]string, error) {
	tokens := []string{}
	err := r.db.SelectContext(ctx, &tokens,
		`SELECT token FROM device_tokens WHERE user_id = $1 ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list device tokens of %s: %w", userID, err)
	}
	return tokens, nil
}

// Unregister drops a token only while it still belongs to userID, so a stale
// logout cannot unhook the account the device moved to.
func (r *deviceTokenRepository) Unregister(ctx context.Context, userID, token string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM device_tokens WHERE user_id = $1 AND token = $2`, userID, token)
	if err != nil {
		return fmt.Errorf("unregister device token: %w", err)
	}
	return nil
}

// Prune removes tokens FCM reported as unregistered.
func (r *deviceTokenRepository) Prune(ctx context.Context, tokens []string) (int64, error) {
	if len(tokens) == 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM device_tokens WHERE token = ANY($1)`, pq.StringArray(tokens))
	if err != nil {
		return 0, fmt.Errorf("prune device tokens: %w", err)
	}
	return res.RowsAffected()
}
