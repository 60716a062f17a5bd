package models

import "time"

// Order statuses used by the database order provider.
const (
	OrderPending   = "pending"
	OrderPaid      = "paid"
	OrderCancelled = "cancelled"
	OrderDelivered = "delivered"
)

// Order maps to the `orders` table.
type Order struct {
	ID            string    `gorm:"column:id;primaryKey;size:64" json:"id"`
	Amount        int64     `gorm:"column:amount;not null" json:"amount"`
	Status        string    `gorm:"column:status;size:20;not null;default:pending" json:"status"`
	TransactionID *uint     `gorm:"column:transaction_id" json:"transaction_id"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}
