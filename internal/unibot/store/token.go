package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/kart-io/unibot/internal/model"
)

// TokenStore persists revoked token IDs, implementing the jwt revocation
// Store interface. Expired rows are skipped on lookup and purged lazily.
type TokenStore struct {
	db *gorm.DB
}

func newTokens(db *gorm.DB) *TokenStore {
	return &TokenStore{db}
}

// Revoke marks a token ID as revoked for the given duration.
func (t *TokenStore) Revoke(ctx context.Context, tokenID string, expiration time.Duration) error {
	token := &model.RevokedToken{
		TokenID:   tokenID,
		ExpiresAt: time.Now().Add(expiration),
	}
	err := t.db.WithContext(ctx).Create(token).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil
	}
	return err
}

// IsRevoked reports whether a token ID is on the revocation list.
func (t *TokenStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var count int64
	err := t.db.WithContext(ctx).
		Model(&model.RevokedToken{}).
		Where("token_id = ? AND expires_at > ?", tokenID, time.Now()).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Purge removes expired revocation rows.
func (t *TokenStore) Purge(ctx context.Context) error {
	return t.db.WithContext(ctx).
		Where("expires_at <= ?", time.Now()).
		Delete(&model.RevokedToken{}).Error
}

// Close implements the jwt store interface; the database connection is owned
// by the factory.
func (t *TokenStore) Close() error {
	return nil
}
