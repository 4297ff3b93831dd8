package webhook

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"funnel_backend/platform/apperr"
)

// APIKey identifies a capture source and binds it to one tenant. Only
// the hash is stored; the plaintext is shown once at creation.
type APIKey struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Name      string
	KeyPrefix string
	CreatedAt time.Time
	RevokedAt *time.Time
}

// Repository manages webhook API keys.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new webhook key repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// HashKey hashes a plaintext API key for lookup.
func HashKey(plaintext string) string {
	h := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(h[:])
}

// Create stores a new API key record.
func (r *Repository) Create(ctx context.Context, ownerID uuid.UUID, name, keyHash, keyPrefix string) (APIKey, error) {
	var key APIKey
	err := r.pool.QueryRow(ctx, `
		INSERT INTO webhook_api_keys (owner_id, name, key_hash, key_prefix)
		VALUES ($1, $2, $3, $4)
		RETURNING id, owner_id, name, key_prefix, created_at, revoked_at`,
		ownerID, name, keyHash, keyPrefix).
		Scan(&key.ID, &key.OwnerID, &key.Name, &key.KeyPrefix, &key.CreatedAt, &key.RevokedAt)
	if err != nil {
		return APIKey{}, fmt.Errorf("create webhook key: %w", err)
	}
	return key, nil
}

// GetByHash resolves an unrevoked key by its hash.
func (r *Repository) GetByHash(ctx context.Context, keyHash string) (APIKey, error) {
	var key APIKey
	err := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, name, key_prefix, created_at, revoked_at
		FROM webhook_api_keys
		WHERE key_hash = $1 AND revoked_at IS NULL`, keyHash).
		Scan(&key.ID, &key.OwnerID, &key.Name, &key.KeyPrefix, &key.CreatedAt, &key.RevokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return APIKey{}, apperr.Unauthorized("invalid API key")
		}
		return APIKey{}, fmt.Errorf("get webhook key: %w", err)
	}
	return key, nil
}

// List returns every key of the tenant, revoked ones included.
func (r *Repository) List(ctx context.Context, ownerID uuid.UUID) ([]APIKey, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner_id, name, key_prefix, created_at, revoked_at
		FROM webhook_api_keys
		WHERE owner_id = $1
		ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list webhook keys: %w", err)
	}
	defer rows.Close()

	keys := make([]APIKey, 0)
	for rows.Next() {
		var key APIKey
		err := rows.Scan(&key.ID, &key.OwnerID, &key.Name, &key.KeyPrefix, &key.CreatedAt, &key.RevokedAt)
		if err != nil {
			return nil, fmt.Errorf("scan webhook key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Revoke disables a key.
func (r *Repository) Revoke(ctx context.Context, ownerID, keyID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE webhook_api_keys SET revoked_at = now()
		WHERE id = $1 AND owner_id = $2 AND revoked_at IS NULL`, keyID, ownerID)
	if err != nil {
		return fmt.Errorf("revoke webhook key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("webhook key not found")
	}
	return nil
}
