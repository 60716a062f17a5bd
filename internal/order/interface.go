package order

import (
	"context"
	"fmt"

	"paycom/internal/pkg/utils"
)

// Account is the `account` object the gateway sends to identify an order.
type Account map[string]interface{}

// OrderID returns account.order_id as a string, or "" when absent.
func (a Account) OrderID() string {
	if a == nil {
		return ""
	}
	return utils.StringValue(a["order_id"])
}

// Order is the merchant-side object a transaction pays for.
type Order struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"` // tiyin
	Status string `json:"status"`
}

// Provider is the merchant's order/fulfillment integration.
// Find and Validate report bad input with *AccountError; any other error is
// treated as an internal failure.
type Provider interface {
	// Find resolves the order identified by account.
	Find(ctx context.Context, account Account) (*Order, error)

	// Validate checks the order can be paid with amount.
	Validate(ctx context.Context, o *Order, amount int64) error

	// SetPaid marks the order fulfilled by the given transaction.
	SetPaid(ctx context.Context, o *Order, transactionID uint) error

	// Cancel cancels the order. afterComplete is set when the payment had
	// already been performed.
	Cancel(ctx context.Context, o *Order, afterComplete bool) error

	// AllowCancel reports whether a paid order may still be cancelled.
	AllowCancel(ctx context.Context, o *Order) (bool, error)

	// Name returns the provider identifier.
	Name() string
}

// AccountError is an invalid-account failure raised by a provider.
// Code may be set anywhere in the gateway's -31099..-31050 range; zero means -31050.
type AccountError struct {
	Field string
	Code  int
	RU    string
	UZ    string
	EN    string
}

func (e *AccountError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid account field %s: %s", e.Field, e.EN)
	}
	return "invalid account: " + e.EN
}

func errOrderIDMissing() *AccountError {
	return &AccountError{
		Field: "order_id",
		RU:    "Код заказа не указан.",
		UZ:    "Harid kodi kiritilmagan.",
		EN:    "Order code not specified.",
	}
}

func errOrderNotFound() *AccountError {
	return &AccountError{
		Field: "order_id",
		RU:    "Неверный код заказа.",
		UZ:    "Harid kodida xatolik.",
		EN:    "Incorrect order code.",
	}
}

func errAmountMismatch() *AccountError {
	return &AccountError{
		Field: "amount",
		RU:    "Неверная сумма.",
		UZ:    "Noto'g'ri summa.",
		EN:    "Incorrect amount.",
	}
}

func errNotPayable() *AccountError {
	return &AccountError{
		Field: "order_id",
		RU:    "Состояние заказа неверное.",
		UZ:    "Harid holatida xatolik.",
		EN:    "Order state is invalid.",
	}
}
