package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/iqbalhamzah/dinelink/models"
	"github.com/iqbalhamzah/dinelink/utils"
)

// Migrate brings the schema up to date and adds the lookup indexes the
// hot paths depend on (active-token lookup, batch receipt lookup).
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Table{},
		&models.QRToken{},
		&models.DinerSession{},
		&models.MenuCategory{},
		&models.Menu{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.Notification{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}

	indexes := []struct {
		name string
		sql  string
	}{
		{"idx_qr_tokens_table_active", "CREATE INDEX idx_qr_tokens_table_active ON qr_tokens (table_id, is_active)"},
		{"idx_diner_sessions_table_status", "CREATE INDEX idx_diner_sessions_table_status ON diner_sessions (table_id, status)"},
		{"idx_payments_payment_date", "CREATE INDEX idx_payments_payment_date ON payments (payment_date)"},
	}
	for _, idx := range indexes {
		if err := db.Exec(idx.sql).Error; err != nil {
			// An already existing index is fine.
			utils.InfoLogger.Printf("Skipping index %s: %v", idx.name, err)
		}
	}

	utils.InfoLogger.Println("Database migration completed")
	return nil
}
