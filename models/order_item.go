package models

import "time"

// OrderItem is a single menu line on an order. Written once at checkout,
// read-only afterwards.
type OrderItem struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	OrderID      uint      `gorm:"not null" json:"order_id"`
	Order        Order     `gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	MenuID       uint      `gorm:"not null" json:"menu_id"`
	Menu         Menu      `gorm:"foreignKey:MenuID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"menu"`
	Quantity     int       `gorm:"not null" json:"quantity"`
	UnitPrice    float64   `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	Instructions string    `gorm:"type:text" json:"instructions"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}
