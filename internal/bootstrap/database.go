package bootstrap

import (
	"fmt"

	"gorm.io/gorm"

	"paycom/internal/models"
)

// Migrate ensures the transaction, audit and order tables exist.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	return nil
}

// AllModels lists every persisted model.
func AllModels() []interface{} {
	return []interface{}{
		&models.Transaction{},
		&models.AuditEntry{},
		// Only read by the database order provider.
		&models.Order{},
	}
}
