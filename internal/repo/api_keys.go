package repo

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"vyomsetu/internal/domain"
)

// HashAPIKey returns a stable SHA-256 hex digest for the provided key.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(key)))
	return hex.EncodeToString(sum[:])
}

// InsertAPIKey stores a hashed API key. KeyHash must already contain the hashed value.
func (r Repo) InsertAPIKey(ctx context.Context, key domain.APIKey) error {
	if key.ID == "" {
		return errors.New("id required")
	}
	if key.KeyHash == "" {
		return errors.New("key_hash required")
	}
	if key.CreatedAt == "" {
		key.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := r.DB.ExecContext(ctx, `INSERT INTO api_keys(id, name, key_hash, created_at, revoked_at) VALUES (?,?,?,?,?)`,
		key.ID, nullable(key.Name), key.KeyHash, key.CreatedAt, nullableStringPtr(key.RevokedAt))
	return err
}

// GetAPIKeyByHash returns an unrevoked API key by its hashed value.
func (r Repo) GetAPIKeyByHash(ctx context.Context, hash string) (domain.APIKey, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT id, COALESCE(name,''), key_hash, created_at, revoked_at FROM api_keys WHERE key_hash=? AND revoked_at IS NULL LIMIT 1`, hash)
	var key domain.APIKey
	var revokedAt sql.NullString
	err := row.Scan(&key.ID, &key.Name, &key.KeyHash, &key.CreatedAt, &revokedAt)
	if err == sql.ErrNoRows {
		return domain.APIKey{}, ErrNotFound
	}
	if err != nil {
		return domain.APIKey{}, err
	}
	if revokedAt.Valid {
		key.RevokedAt = &revokedAt.String
	}
	return key, nil
}

// ListAPIKeys returns all API keys, revoked ones included.
func (r Repo) ListAPIKeys(ctx context.Context) ([]domain.APIKey, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, COALESCE(name,''), key_hash, created_at, revoked_at FROM api_keys ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []domain.APIKey
	for rows.Next() {
		var key domain.APIKey
		var revokedAt sql.NullString
		if err := rows.Scan(&key.ID, &key.Name, &key.KeyHash, &key.CreatedAt, &revokedAt); err != nil {
			return nil, err
		}
		if revokedAt.Valid {
			key.RevokedAt = &revokedAt.String
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// RevokeAPIKey disables a key without losing its audit trail.
func (r Repo) RevokeAPIKey(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("id required")
	}
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := r.DB.ExecContext(ctx, `UPDATE api_keys SET revoked_at=? WHERE id=? AND revoked_at IS NULL`, now, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
