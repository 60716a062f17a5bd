package models

import (
	"time"

	"gorm.io/datatypes"
)

// Timeout is how long a created transaction may wait to be performed, in milliseconds.
const Timeout int64 = 43_200_000

// TransactionState mirrors the gateway's numeric transaction states.
type TransactionState int

const (
	StateCreated                TransactionState = 1
	StateCompleted              TransactionState = 2
	StateCancelled              TransactionState = -1
	StateCancelledAfterComplete TransactionState = -2
)

// IsCancelled reports whether the state is one of the cancelled variants.
func (s TransactionState) IsCancelled() bool {
	return s == StateCancelled || s == StateCancelledAfterComplete
}

// Valid reports whether s is a known state.
func (s TransactionState) Valid() bool {
	switch s {
	case StateCreated, StateCompleted, StateCancelled, StateCancelledAfterComplete:
		return true
	}
	return false
}

// CancelReason is the gateway's numeric cancellation reason.
type CancelReason int

const (
	ReasonReceiversNotFound         CancelReason = 1
	ReasonProcessingExecutionFailed CancelReason = 2
	ReasonExecutionFailed           CancelReason = 3
	ReasonCancelledByTimeout        CancelReason = 4
	ReasonFundReturned              CancelReason = 5
	ReasonUnknown                   CancelReason = 10
)

func (r CancelReason) Valid() bool {
	switch r {
	case ReasonReceiversNotFound, ReasonProcessingExecutionFailed, ReasonExecutionFailed,
		ReasonCancelledByTimeout, ReasonFundReturned, ReasonUnknown:
		return true
	}
	return false
}

// Transaction maps to the `transactions` table.
type Transaction struct {
	ID                  uint             `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	PaycomTransactionID string           `gorm:"column:paycom_transaction_id;size:25;not null;uniqueIndex" json:"paycom_transaction_id"`
	PaycomTime          int64            `gorm:"column:paycom_time;not null;index" json:"paycom_time"`
	PaycomTimeDatetime  time.Time        `gorm:"column:paycom_time_datetime;not null" json:"paycom_time_datetime"`
	CreateTime          time.Time        `gorm:"column:create_time;not null" json:"create_time"`
	PerformTime         *time.Time       `gorm:"column:perform_time" json:"perform_time"`
	CancelTime          *time.Time       `gorm:"column:cancel_time" json:"cancel_time"`
	Amount              int64            `gorm:"column:amount;not null" json:"amount"`
	State               TransactionState `gorm:"column:state;not null;index" json:"state"`
	Reason              *CancelReason    `gorm:"column:reason" json:"reason"`
	Receivers           datatypes.JSON   `gorm:"column:receivers" json:"receivers"`
	OrderID             string           `gorm:"column:order_id;size:64;not null;index" json:"order_id"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// IsExpired reports whether a created transaction has outlived Timeout at now.
func (t *Transaction) IsExpired(now time.Time) bool {
	return t.State == StateCreated && now.Sub(t.CreateTime).Milliseconds() > Timeout
}

// Cancel moves the transaction to its cancelled state in memory.
// A zero reason is replaced with the default for the resulting state.
func (t *Transaction) Cancel(reason CancelReason, now time.Time) {
	if t.State == StateCompleted {
		t.State = StateCancelledAfterComplete
	} else {
		t.State = StateCancelled
	}
	if reason == 0 {
		if t.State == StateCancelledAfterComplete {
			reason = ReasonFundReturned
		} else {
			reason = ReasonProcessingExecutionFailed
		}
	}
	t.CancelTime = &now
	t.Reason = &reason
}

// Complete marks the transaction performed at now.
func (t *Transaction) Complete(now time.Time) {
	t.State = StateCompleted
	t.PerformTime = &now
}

// ReasonValue returns the reason as a nullable int for responses.
func (t *Transaction) ReasonValue() *int {
	if t.Reason == nil {
		return nil
	}
	r := int(*t.Reason)
	return &r
}

// ReceiversValue returns the stored receivers, or nil when none were recorded.
func (t *Transaction) ReceiversValue() interface{} {
	if len(t.Receivers) == 0 || string(t.Receivers) == "null" {
		return nil
	}
	return t.Receivers
}
