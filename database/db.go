package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/CM-market/cameroon-made-market/models"
)

// Connect opens the Postgres connection and returns the gorm handle.
// TranslateError turns driver unique violations into gorm.ErrDuplicatedKey so
// callers can map them without depending on pgx.
func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Migrate runs auto-migrations for the order/payment tables and the partial
// unique index that allows at most one pending-or-successful payment per
// order. The index backs the application-level duplicate check: two
// initiations racing past the check both reach the gateway, but only one
// insert can commit. AutoMigrate cannot express the WHERE clause, so the
// index is created directly.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Order{}, &models.OrderItem{}, &models.Payment{}); err != nil {
		return err
	}
	return db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_active_order
		ON payments (order_id) WHERE status IN ('pending', 'success')`).Error
}
