package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditEntry maps to the `transaction_audit` table. Rows are append-only.
type AuditEntry struct {
	ID            string         `gorm:"column:id;primaryKey;size:36" json:"id"`
	TransactionID uint           `gorm:"column:transaction_id;index" json:"transaction_id"`
	PaycomID      string         `gorm:"column:paycom_transaction_id;size:25;index" json:"paycom_transaction_id"`
	Action        string         `gorm:"column:action;size:20" json:"action"`
	Before        datatypes.JSON `gorm:"column:before_state" json:"before"`
	After         datatypes.JSON `gorm:"column:after_state" json:"after"`
	RowsAffected  int64          `gorm:"column:rows_affected" json:"rows_affected"`
	RequestID     string         `gorm:"column:request_id;size:64" json:"request_id"`
	CreatedAt     time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (AuditEntry) TableName() string {
	return "transaction_audit"
}
