package order

import (
	"context"
	"errors"
	"fmt"

	"paycom/internal/models"
	"paycom/internal/repository"
)

// DatabaseProvider resolves orders from the local `orders` table.
type DatabaseProvider struct {
	orders *repository.OrderRepository
}

func NewDatabaseProvider(orders *repository.OrderRepository) *DatabaseProvider {
	return &DatabaseProvider{orders: orders}
}

func (p *DatabaseProvider) Name() string {
	return "database"
}

func (p *DatabaseProvider) Find(ctx context.Context, account Account) (*Order, error) {
	id := account.OrderID()
	if id == "" {
		return nil, errOrderIDMissing()
	}
	row, err := p.orders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, errOrderNotFound()
		}
		return nil, fmt.Errorf("find order %s: %w", id, err)
	}
	return &Order{ID: row.ID, Amount: row.Amount, Status: row.Status}, nil
}

func (p *DatabaseProvider) Validate(_ context.Context, o *Order, amount int64) error {
	if amount <= 0 || amount != o.Amount {
		return errAmountMismatch()
	}
	if o.Status != models.OrderPending {
		return errNotPayable()
	}
	return nil
}

func (p *DatabaseProvider) SetPaid(ctx context.Context, o *Order, transactionID uint) error {
	changed, err := p.orders.Transition(ctx, o.ID, []string{models.OrderPending}, models.OrderPaid, &transactionID)
	if err != nil {
		return fmt.Errorf("mark order %s paid: %w", o.ID, err)
	}
	if !changed {
		current, err := p.orders.FindByID(ctx, o.ID)
		if err != nil {
			return fmt.Errorf("reload order %s: %w", o.ID, err)
		}
		if current.Status != models.OrderPaid {
			return fmt.Errorf("order %s is %s, cannot mark paid", o.ID, current.Status)
		}
	}
	o.Status = models.OrderPaid
	return nil
}

func (p *DatabaseProvider) Cancel(ctx context.Context, o *Order, afterComplete bool) error {
	from := []string{models.OrderPending}
	if afterComplete {
		from = append(from, models.OrderPaid)
	}
	if _, err := p.orders.Transition(ctx, o.ID, from, models.OrderCancelled, nil); err != nil {
		return fmt.Errorf("cancel order %s: %w", o.ID, err)
	}
	o.Status = models.OrderCancelled
	return nil
}

// AllowCancel permits cancelling a paid order until it is delivered.
func (p *DatabaseProvider) AllowCancel(ctx context.Context, o *Order) (bool, error) {
	current, err := p.orders.FindByID(ctx, o.ID)
	if err != nil {
		return false, fmt.Errorf("reload order %s: %w", o.ID, err)
	}
	return current.Status != models.OrderDelivered, nil
}
