package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"paycom/internal/models"
)

// ErrOrderNotFound is returned when no order has the requested id.
var ErrOrderNotFound = errors.New("order not found")

// OrderRepository handles merchant order rows used by the database order provider.
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// FindByID returns an order by id.
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

// Create inserts an order.
func (r *OrderRepository) Create(ctx context.Context, o *models.Order) error {
	return r.db.WithContext(ctx).Create(o).Error
}

// Transition moves an order from one of the allowed statuses to status under
// a row lock. It reports false when the order was not in an allowed status.
func (r *OrderRepository) Transition(ctx context.Context, id string, from []string, status string, transactionID *uint) (bool, error) {
	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&o).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		if o.Status == status {
			return nil
		}
		allowed := false
		for _, s := range from {
			if o.Status == s {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil
		}

		updates := map[string]interface{}{"status": status}
		if transactionID != nil {
			updates["transaction_id"] = *transactionID
		}
		res := tx.Model(&models.Order{}).Where("id = ? AND status = ?", id, o.Status).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		changed = res.RowsAffected > 0
		return nil
	})
	return changed, err
}
