package paycom

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"paycom/internal/models"
	"paycom/internal/order"
	"paycom/internal/pkg/utils"
	"paycom/internal/repository"
)

const maxTransactionIDLength = 25

type checkPerformResult struct {
	Allow bool `json:"allow"`
}

type checkResult struct {
	CreateTime  int64                   `json:"create_time"`
	PerformTime *int64                  `json:"perform_time"`
	CancelTime  *int64                  `json:"cancel_time"`
	Transaction string                  `json:"transaction"`
	State       models.TransactionState `json:"state"`
	Reason      *int                    `json:"reason"`
}

type createResult struct {
	CreateTime  int64                   `json:"create_time"`
	Transaction string                  `json:"transaction"`
	State       models.TransactionState `json:"state"`
	Receivers   interface{}             `json:"receivers"`
}

type performResult struct {
	Transaction string                  `json:"transaction"`
	PerformTime int64                   `json:"perform_time"`
	State       models.TransactionState `json:"state"`
}

type cancelResult struct {
	Transaction string                  `json:"transaction"`
	CancelTime  int64                   `json:"cancel_time"`
	State       models.TransactionState `json:"state"`
}

type changePasswordResult struct {
	Success bool `json:"success"`
}

type statementAccount struct {
	OrderID string `json:"order_id"`
}

type statementEntry struct {
	ID          string                  `json:"id"`
	Time        int64                   `json:"time"`
	Amount      int64                   `json:"amount"`
	Account     statementAccount        `json:"account"`
	CreateTime  *int64                  `json:"create_time"`
	PerformTime *int64                  `json:"perform_time"`
	CancelTime  *int64                  `json:"cancel_time"`
	Transaction uint                    `json:"transaction"`
	State       models.TransactionState `json:"state"`
	Reason      *int                    `json:"reason"`
	Receivers   interface{}             `json:"receivers"`
}

type statementResult struct {
	Transactions []statementEntry `json:"transactions"`
}

func toCreateResult(t *models.Transaction) createResult {
	return createResult{
		CreateTime:  utils.Milliseconds(t.CreateTime),
		Transaction: t.PaycomTransactionID,
		State:       t.State,
		Receivers:   t.ReceiversValue(),
	}
}

func toPerformResult(t *models.Transaction) performResult {
	var performTime int64
	if t.PerformTime != nil {
		performTime = utils.Milliseconds(*t.PerformTime)
	}
	return performResult{
		Transaction: t.PaycomTransactionID,
		PerformTime: performTime,
		State:       t.State,
	}
}

func toCancelResult(t *models.Transaction) cancelResult {
	var cancelTime int64
	if t.CancelTime != nil {
		cancelTime = utils.Milliseconds(*t.CancelTime)
	}
	return cancelResult{
		Transaction: t.PaycomTransactionID,
		CancelTime:  cancelTime,
		State:       t.State,
	}
}

func toStatementEntry(t *models.Transaction) statementEntry {
	return statementEntry{
		ID:          t.PaycomTransactionID,
		Time:        t.PaycomTime,
		Amount:      t.Amount,
		Account:     statementAccount{OrderID: t.OrderID},
		CreateTime:  utils.OptionalSeconds(&t.CreateTime),
		PerformTime: utils.OptionalSeconds(t.PerformTime),
		CancelTime:  utils.OptionalSeconds(t.CancelTime),
		Transaction: t.ID,
		State:       t.State,
		Reason:      t.ReasonValue(),
		Receivers:   t.ReceiversValue(),
	}
}

// resolveOrder finds the order named by the account and checks the amount.
func (a *Application) resolveOrder(ctx context.Context, p Params) (*order.Order, int64, error) {
	o, err := a.orders.Find(ctx, p.Account())
	if err != nil {
		return nil, 0, err
	}
	amount, perr := p.Int64("amount")
	if perr != nil {
		return nil, 0, perr
	}
	if err := a.orders.Validate(ctx, o, amount); err != nil {
		return nil, 0, err
	}
	return o, amount, nil
}

// lockTransaction serializes find+mutate for one gateway transaction id.
func (a *Application) lockTransaction(ctx context.Context, paycomID string) (func(), error) {
	unlock, err := a.locker.Lock(ctx, paycomID)
	if err != nil {
		return nil, fmt.Errorf("lock transaction %s: %w", paycomID, err)
	}
	return unlock, nil
}

// lockOrder serializes the order check and insert of CreateTransaction calls
// that carry different ids for the same order. It is always taken after the
// transaction lock.
func (a *Application) lockOrder(ctx context.Context, orderID string) (func(), error) {
	unlock, err := a.locker.Lock(ctx, "order:"+orderID)
	if err != nil {
		return nil, fmt.Errorf("lock order %s: %w", orderID, err)
	}
	return unlock, nil
}

// withTransaction loads the transaction and runs fn on it. When fn loses a
// race against a concurrent update, the row is reloaded and fn runs once more
// against the new state.
func (a *Application) withTransaction(ctx context.Context, paycomID string, fn func(*models.Transaction) (interface{}, error)) (interface{}, error) {
	for attempt := 0; ; attempt++ {
		t, err := a.store.FindByExternalID(ctx, paycomID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, errTransactionNotFound()
			}
			return nil, err
		}
		result, err := fn(t)
		if errors.Is(err, repository.ErrStateConflict) && attempt == 0 {
			a.log.Info("transaction changed concurrently, reloading", zap.String("paycom_id", paycomID))
			continue
		}
		return result, err
	}
}

// expire cancels an expired created transaction and reports it to the caller.
func (a *Application) expire(ctx context.Context, t *models.Transaction) error {
	if err := a.store.Cancel(ctx, t, models.ReasonCancelledByTimeout, a.clock()); err != nil {
		return err
	}
	a.log.Info("transaction expired", zap.String("paycom_id", t.PaycomTransactionID), zap.String("order_id", t.OrderID))
	return errCouldNotPerform("Transaction is expired.")
}

func (a *Application) checkPerformTransaction(ctx context.Context, p Params) (interface{}, error) {
	o, _, err := a.resolveOrder(ctx, p)
	if err != nil {
		return nil, err
	}

	active, err := a.store.FindActiveByOrder(ctx, o.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if active != nil && (active.State == models.StateCreated || active.State == models.StateCompleted) {
		return nil, errCouldNotPerform("There is other active/completed transaction for this order.")
	}
	return checkPerformResult{Allow: true}, nil
}

func (a *Application) checkTransaction(ctx context.Context, p Params) (interface{}, error) {
	id, perr := p.TransactionID()
	if perr != nil {
		return nil, perr
	}
	t, err := a.store.FindByExternalID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errTransactionNotFound()
		}
		return nil, err
	}
	return checkResult{
		CreateTime:  utils.Milliseconds(t.CreateTime),
		PerformTime: utils.OptionalMilliseconds(t.PerformTime),
		CancelTime:  utils.OptionalMilliseconds(t.CancelTime),
		Transaction: t.PaycomTransactionID,
		State:       t.State,
		Reason:      t.ReasonValue(),
	}, nil
}

func (a *Application) createTransaction(ctx context.Context, p Params) (interface{}, error) {
	id, perr := p.TransactionID()
	if perr != nil {
		return nil, perr
	}
	if len(id) > maxTransactionIDLength {
		return nil, errInvalidField("id", "Transaction id is too long.")
	}
	o, amount, err := a.resolveOrder(ctx, p)
	if err != nil {
		return nil, err
	}
	paycomTime, perr := p.Int64("time")
	if perr != nil {
		return nil, perr
	}

	unlock, err := a.lockTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	existing, err := a.withTransaction(ctx, id, func(t *models.Transaction) (interface{}, error) {
		return a.replayCreate(ctx, t)
	})
	if err == nil {
		return existing, nil
	}
	var pe *Error
	if !errors.As(err, &pe) || pe.Code != CodeTransactionNotFound {
		return nil, err
	}

	unlockOrder, err := a.lockOrder(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	defer unlockOrder()

	blocking, err := a.store.CanCreate(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	if blocking != nil {
		return nil, errInvalidField("order_id", fmt.Sprintf("Transaction %d(%s) with orderId: %s already exists!",
			blocking.ID, blocking.PaycomTransactionID, o.ID))
	}

	now := a.clock()
	if utils.Milliseconds(now)-paycomTime >= models.Timeout {
		return nil, errInvalidLocalized("time",
			fmt.Sprintf("С даты создания транзакции прошло %dмс", models.Timeout),
			fmt.Sprintf("Tranzaksiya yaratilgan sanadan %dms o`tgan", models.Timeout),
			fmt.Sprintf("Since create time of the transaction passed %dms", models.Timeout),
		)
	}

	t := &models.Transaction{
		PaycomTransactionID: id,
		PaycomTime:          paycomTime,
		PaycomTimeDatetime:  utils.FromMilliseconds(paycomTime),
		CreateTime:          now,
		State:               models.StateCreated,
		Amount:              amount,
		OrderID:             o.ID,
	}
	if err := a.store.Insert(ctx, t); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			a.log.Info("lost create race, replaying", zap.String("paycom_id", id))
			return a.withTransaction(ctx, id, func(t *models.Transaction) (interface{}, error) {
				return a.replayCreate(ctx, t)
			})
		}
		return nil, err
	}
	a.log.Info("transaction created",
		zap.String("paycom_id", id),
		zap.Uint("transaction_id", t.ID),
		zap.String("order_id", o.ID),
		zap.Int64("amount", amount),
	)
	return toCreateResult(t), nil
}

// replayCreate answers CreateTransaction for a transaction that already exists.
func (a *Application) replayCreate(ctx context.Context, t *models.Transaction) (interface{}, error) {
	if t.State != models.StateCreated {
		return nil, errCouldNotPerform("Transaction found, but is not active.")
	}
	if t.IsExpired(a.clock()) {
		return nil, a.expire(ctx, t)
	}
	return toCreateResult(t), nil
}

func (a *Application) performTransaction(ctx context.Context, p Params) (interface{}, error) {
	id, perr := p.TransactionID()
	if perr != nil {
		return nil, perr
	}

	unlock, err := a.lockTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return a.withTransaction(ctx, id, func(t *models.Transaction) (interface{}, error) {
		switch t.State {
		case models.StateCreated:
			now := a.clock()
			if t.IsExpired(now) {
				return nil, a.expire(ctx, t)
			}
			o, err := a.orders.Find(ctx, order.Account{"order_id": t.OrderID})
			if err != nil {
				return nil, err
			}
			if err := a.orders.SetPaid(ctx, o, t.ID); err != nil {
				a.log.Error("order could not be marked paid",
					zap.String("paycom_id", id), zap.String("order_id", t.OrderID), zap.Error(err))
				return nil, errCouldNotPerform("Could not perform this operation.")
			}
			if err := a.store.Complete(ctx, t, now); err != nil {
				return nil, err
			}
			a.log.Info("transaction performed", zap.String("paycom_id", id), zap.String("order_id", t.OrderID))
			return toPerformResult(t), nil

		case models.StateCompleted:
			return toPerformResult(t), nil

		default:
			return nil, errCouldNotPerform("Could not perform this operation.")
		}
	})
}

func (a *Application) cancelTransaction(ctx context.Context, p Params) (interface{}, error) {
	id, perr := p.TransactionID()
	if perr != nil {
		return nil, perr
	}
	var reason models.CancelReason
	if p.has("reason") {
		r, perr := p.Int64("reason")
		if perr != nil {
			return nil, perr
		}
		reason = models.CancelReason(r)
		if reason != 0 && !reason.Valid() {
			return nil, errInvalidField("reason", "Unknown cancel reason.")
		}
	}

	unlock, err := a.lockTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return a.withTransaction(ctx, id, func(t *models.Transaction) (interface{}, error) {
		switch t.State {
		case models.StateCancelled, models.StateCancelledAfterComplete:
			return toCancelResult(t), nil

		case models.StateCreated:
			if err := a.store.Cancel(ctx, t, reason, a.clock()); err != nil {
				return nil, err
			}
			a.cancelOrder(ctx, t, false)
			return toCancelResult(t), nil

		case models.StateCompleted:
			o, err := a.orders.Find(ctx, order.Account{"order_id": t.OrderID})
			if err != nil {
				return nil, err
			}
			allow, err := a.orders.AllowCancel(ctx, o)
			if err != nil {
				return nil, err
			}
			if !allow {
				return nil, errCouldNotCancel()
			}
			if err := a.store.Cancel(ctx, t, reason, a.clock()); err != nil {
				return nil, err
			}
			a.cancelOrder(ctx, t, true)
			return toCancelResult(t), nil

		default:
			return nil, errCouldNotCancel()
		}
	})
}

// cancelOrder tells the order provider about a persisted cancellation.
// The transaction is already cancelled, so failures are logged only.
func (a *Application) cancelOrder(ctx context.Context, t *models.Transaction, afterComplete bool) {
	fields := []zap.Field{
		zap.String("paycom_id", t.PaycomTransactionID),
		zap.String("order_id", t.OrderID),
		zap.Bool("after_complete", afterComplete),
	}
	o, err := a.orders.Find(ctx, order.Account{"order_id": t.OrderID})
	if err == nil {
		err = a.orders.Cancel(ctx, o, afterComplete)
	}
	if err != nil {
		a.log.Error("order cancellation failed", append(fields, zap.Error(err))...)
		return
	}
	a.log.Info("transaction cancelled", fields...)
}

func (a *Application) changePassword(ctx context.Context, p Params) (interface{}, error) {
	raw, _ := p["password"].(string)
	password := strings.TrimSpace(raw)
	if password == "" {
		return nil, errInvalidField("password", "New password not specified.")
	}

	current, err := a.gate.creds.Secret()
	if err != nil {
		return nil, err
	}
	if password == current {
		return nil, errInsufficientPrivilege("Insufficient privilege. Incorrect new password.")
	}

	store, ok := a.gate.creds.(CredentialStore)
	if !ok {
		a.log.Warn("password change requested but no key file is configured")
		return nil, errInternal()
	}
	if err := store.SetSecret(password); err != nil {
		return nil, err
	}
	a.log.Info("merchant password changed")
	return changePasswordResult{Success: true}, nil
}

func (a *Application) getStatement(ctx context.Context, p Params) (interface{}, error) {
	if !p.has("from") {
		return nil, errInvalidField("from", "Incorrect period.")
	}
	if !p.has("to") {
		return nil, errInvalidField("to", "Incorrect period.")
	}
	from, ok := utils.ParseInt64(p["from"])
	if !ok {
		return nil, errInvalidField("from", "Incorrect period.")
	}
	to, ok := utils.ParseInt64(p["to"])
	if !ok {
		return nil, errInvalidField("to", "Incorrect period.")
	}
	if from >= to {
		return nil, errInvalidField("from", "Incorrect period. (from >= to)")
	}

	rows, err := a.store.Report(ctx, from, to)
	if err != nil {
		return nil, err
	}
	entries := make([]statementEntry, 0, len(rows))
	for i := range rows {
		entries = append(entries, toStatementEntry(&rows[i]))
	}
	return statementResult{Transactions: entries}, nil
}
