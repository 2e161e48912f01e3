package models

import "time"

// QRToken is a per-table access token encoded in the table's QR code.
// Invariant: at most one active token per table. Superseded tokens are
// deactivated, never deleted.
type QRToken struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	Token              string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"token"`
	TableID            uint       `gorm:"not null;index" json:"table_id"`
	Table              Table      `gorm:"foreignKey:TableID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	IsActive           bool       `gorm:"not null;default:true;index" json:"is_active"`
	ExpiresAt          time.Time  `gorm:"not null" json:"expires_at"`
	PaymentCompletedAt *time.Time `json:"payment_completed_at,omitempty"`
	CreatedAt          time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"not null" json:"updated_at"`
}

// Expired is a computed predicate; expiry never flips any stored state.
func (t *QRToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
