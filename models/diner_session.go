package models

import "time"

const (
	SessionStatusActive   = "active"
	SessionStatusFinished = "finished"
)

// DinerSession is one seated party at a table, started when their QR
// scan validates and closed when their bill settles.
type DinerSession struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TableID   uint      `gorm:"not null;index" json:"table_id"`
	Table     Table     `gorm:"foreignKey:TableID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"table"`
	QRTokenID uint      `gorm:"not null" json:"qr_token_id"`
	QRToken   QRToken   `gorm:"foreignKey:QRTokenID;references:ID" json:"-"`
	Status    string    `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
