package repository

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"paycom/internal/audit"
	"paycom/internal/models"
	"paycom/internal/pkg/utils"
)

// AuditRepository stores transaction audit entries. It implements audit.Sink.
type AuditRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewAuditRepository(db *gorm.DB, logger *zap.Logger) *AuditRepository {
	return &AuditRepository{db: db, logger: logger}
}

// Record persists the event; failures are logged and swallowed.
func (r *AuditRepository) Record(ctx context.Context, e audit.Event) {
	entry := models.AuditEntry{
		ID:            utils.GenerateUUID(),
		TransactionID: e.After.ID,
		PaycomID:      e.After.PaycomTransactionID,
		Action:        e.Action,
		After:         snapshot(&e.After),
		RowsAffected:  e.RowsAffected,
		RequestID:     e.RequestID,
	}
	if e.Before != nil {
		entry.Before = snapshot(e.Before)
	}
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		r.logger.Error("Failed to write audit entry",
			zap.String("action", e.Action),
			zap.Uint("transaction_id", e.After.ID),
			zap.Error(err))
	}
}

// FindByTransaction returns audit entries for a transaction, oldest first.
func (r *AuditRepository) FindByTransaction(ctx context.Context, transactionID uint) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}

func snapshot(t *models.Transaction) datatypes.JSON {
	raw, err := json.Marshal(t)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}
