package model

import "time"

// RevokedToken backs the JWT revocation list. Entries are looked up on every
// authenticated call and purged after the token's natural expiry.
type RevokedToken struct {
	ID        uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	TokenID   string    `json:"token_id" gorm:"size:64;not null;uniqueIndex:uk_token_id"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index:idx_revoked_expires"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName returns the table name for GORM.
func (r *RevokedToken) TableName() string {
	return "revoked_tokens"
}
