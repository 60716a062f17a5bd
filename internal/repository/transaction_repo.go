package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"paycom/internal/audit"
	"paycom/internal/models"
)

var (
	// ErrNotFound is returned when no transaction matches a lookup.
	ErrNotFound = errors.New("transaction not found")
	// ErrNoRowsAffected is returned when an insert reports zero affected rows.
	ErrNoRowsAffected = errors.New("no rows affected")
	// ErrStateConflict is returned when the stored state differs from the one
	// the caller loaded, i.e. another request mutated the row first.
	ErrStateConflict = errors.New("transaction state changed concurrently")
	// ErrDuplicate is returned when the external transaction id already exists.
	ErrDuplicate = errors.New("transaction already exists")
)

const reportBatchSize = 500

// TransactionRepository persists gateway transactions.
type TransactionRepository struct {
	db    *gorm.DB
	audit audit.Sink
}

func NewTransactionRepository(db *gorm.DB, sink audit.Sink) *TransactionRepository {
	if sink == nil {
		sink = audit.Nop{}
	}
	return &TransactionRepository{db: db, audit: sink}
}

// FindByExternalID returns the transaction with the given gateway id.
func (r *TransactionRepository) FindByExternalID(ctx context.Context, paycomID string) (*models.Transaction, error) {
	var t models.Transaction
	err := r.db.WithContext(ctx).Where("paycom_transaction_id = ?", paycomID).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// FindActiveByOrder returns the first created or completed transaction for
// the order. Cancelled rows of either kind are skipped.
func (r *TransactionRepository) FindActiveByOrder(ctx context.Context, orderID string) (*models.Transaction, error) {
	var t models.Transaction
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND state IN ?", orderID,
			[]models.TransactionState{models.StateCreated, models.StateCompleted}).
		Order("id ASC").
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// CanCreate returns the transaction blocking a new one for the order, or nil
// when no created or completed transaction exists for it.
func (r *TransactionRepository) CanCreate(ctx context.Context, orderID string) (*models.Transaction, error) {
	var t models.Transaction
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND state NOT IN ?", orderID,
			[]models.TransactionState{models.StateCancelled, models.StateCancelledAfterComplete}).
		Order("id ASC").
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// Insert stores a new transaction and assigns its id.
// On failure t.ID is left at zero.
func (r *TransactionRepository) Insert(ctx context.Context, t *models.Transaction) error {
	if t.ID != 0 {
		return fmt.Errorf("insert transaction %d: id already set", t.ID)
	}
	row := *t
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Create(&row)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				return ErrDuplicate
			}
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNoRowsAffected
		}
		affected = res.RowsAffected
		return nil
	})
	if err != nil {
		return fmt.Errorf("insert transaction %s: %w", t.PaycomTransactionID, err)
	}

	t.ID = row.ID
	r.audit.Record(ctx, audit.Event{
		Action:       audit.ActionInsert,
		After:        *t,
		RowsAffected: affected,
		RequestID:    audit.RequestID(ctx),
		At:           time.Now(),
	})
	return nil
}

// Complete marks a created transaction performed at now and persists it.
func (r *TransactionRepository) Complete(ctx context.Context, t *models.Transaction, now time.Time) error {
	next := *t
	next.Complete(now)
	if err := r.update(ctx, audit.ActionUpdate, t.State, &next, "state", "perform_time"); err != nil {
		return err
	}
	*t = next
	return nil
}

// Cancel cancels the transaction with reason at now and persists it.
func (r *TransactionRepository) Cancel(ctx context.Context, t *models.Transaction, reason models.CancelReason, now time.Time) error {
	next := *t
	next.Cancel(reason, now)
	if err := r.update(ctx, audit.ActionCancel, t.State, &next, "cancel_time", "state", "reason"); err != nil {
		return err
	}
	*t = next
	return nil
}

// update writes only the named columns, and only while the row still holds
// the state the caller loaded it with.
func (r *TransactionRepository) update(ctx context.Context, action string, prev models.TransactionState, t *models.Transaction, fields ...string) error {
	if t.ID == 0 {
		return fmt.Errorf("update transaction %s: id not set", t.PaycomTransactionID)
	}
	values, err := columnValues(t, fields)
	if err != nil {
		return err
	}

	var before models.Transaction
	var affected int64
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", t.ID).
			First(&before).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if before.State != prev {
			return ErrStateConflict
		}

		res := tx.Model(&models.Transaction{}).
			Where("id = ? AND state = ?", t.ID, prev).
			Updates(values)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStateConflict
		}
		affected = res.RowsAffected
		return nil
	})
	if err != nil {
		return fmt.Errorf("update transaction %d: %w", t.ID, err)
	}

	r.audit.Record(ctx, audit.Event{
		Action:       action,
		Before:       &before,
		After:        *t,
		RowsAffected: affected,
		RequestID:    audit.RequestID(ctx),
		At:           time.Now(),
	})
	return nil
}

func columnValues(t *models.Transaction, fields []string) (map[string]interface{}, error) {
	values := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		switch f {
		case "state":
			values[f] = t.State
		case "perform_time":
			values[f] = t.PerformTime
		case "cancel_time":
			values[f] = t.CancelTime
		case "reason":
			values[f] = t.Reason
		case "receivers":
			values[f] = t.Receivers
		default:
			return nil, fmt.Errorf("column %q is not updatable", f)
		}
	}
	return values, nil
}

// Report returns transactions whose gateway time lies in [from, to], in
// gateway time order. Rows are read in primary key batches and sorted after.
func (r *TransactionRepository) Report(ctx context.Context, from, to int64) ([]models.Transaction, error) {
	result := make([]models.Transaction, 0)
	var batch []models.Transaction
	err := r.db.WithContext(ctx).
		Where("paycom_time BETWEEN ? AND ?", from, to).
		FindInBatches(&batch, reportBatchSize, func(tx *gorm.DB, _ int) error {
			result = append(result, batch...)
			return nil
		}).Error
	if err != nil {
		return nil, fmt.Errorf("report transactions: %w", err)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].PaycomTime < result[j].PaycomTime
	})
	return result, nil
}

// CountStale counts created transactions that have outlived the timeout at
// now but have not been touched since.
func (r *TransactionRepository) CountStale(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.Add(-time.Duration(models.Timeout) * time.Millisecond)
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("state = ? AND create_time < ?", models.StateCreated, cutoff).
		Count(&count).Error
	return count, err
}
