package paycom

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"paycom/internal/audit"
	"paycom/internal/lock"
	"paycom/internal/models"
	"paycom/internal/order"
	"paycom/internal/pkg/utils"
)

// Store is the transaction persistence the dispatcher needs.
type Store interface {
	FindByExternalID(ctx context.Context, paycomID string) (*models.Transaction, error)
	FindActiveByOrder(ctx context.Context, orderID string) (*models.Transaction, error)
	CanCreate(ctx context.Context, orderID string) (*models.Transaction, error)
	Insert(ctx context.Context, t *models.Transaction) error
	Complete(ctx context.Context, t *models.Transaction, now time.Time) error
	Cancel(ctx context.Context, t *models.Transaction, reason models.CancelReason, now time.Time) error
	Report(ctx context.Context, from, to int64) ([]models.Transaction, error)
}

// Application authorizes and dispatches gateway calls.
type Application struct {
	gate   *Gate
	store  Store
	orders order.Provider
	locker lock.Locker
	clock  utils.Clock
	log    *zap.Logger
}

type Option func(*Application)

// WithLocker sets the per-transaction lock. Defaults to an in-process locker.
func WithLocker(l lock.Locker) Option {
	return func(a *Application) { a.locker = l }
}

// WithClock overrides the time source.
func WithClock(c utils.Clock) Option {
	return func(a *Application) { a.clock = c }
}

func NewApplication(gate *Gate, store Store, orders order.Provider, log *zap.Logger, opts ...Option) *Application {
	if log == nil {
		log = zap.NewNop()
	}
	a := &Application{
		gate:   gate,
		store:  store,
		orders: orders,
		clock:  utils.SystemClock,
		log:    log.Named("paycom"),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.locker == nil {
		a.locker = lock.NewMemoryLocker(0)
	}
	return a
}

type handlerFunc func(a *Application, ctx context.Context, p Params) (interface{}, error)

var methods = map[string]handlerFunc{
	"CheckPerformTransaction": (*Application).checkPerformTransaction,
	"CheckTransaction":        (*Application).checkTransaction,
	"CreateTransaction":       (*Application).createTransaction,
	"PerformTransaction":      (*Application).performTransaction,
	"CancelTransaction":       (*Application).cancelTransaction,
	"ChangePassword":          (*Application).changePassword,
	"GetStatement":            (*Application).getStatement,
}

// Run handles one endpoint call end to end and always produces an envelope.
func (a *Application) Run(ctx context.Context, httpMethod string, body []byte, header HeaderLookup) *Response {
	start := time.Now()
	req, perr := ParseRequest(httpMethod, body)
	if perr != nil {
		a.log.Warn("rejected request", zap.Int("code", perr.Code), zap.String("http_method", httpMethod))
		return failure(req.ID, perr)
	}
	if aerr := a.gate.Authorize(header); aerr != nil {
		a.log.Warn("unauthorized call", zap.String("method", req.Method), zap.ByteString("id", req.ID))
		return failure(req.ID, aerr)
	}

	ctx = audit.WithRequestID(ctx, string(req.ID))
	resp := a.Dispatch(ctx, req)
	a.log.Info("call handled",
		zap.String("method", req.Method),
		zap.ByteString("id", req.ID),
		zap.Int("code", resp.Code()),
		zap.Duration("duration", time.Since(start)),
	)
	return resp
}

// Dispatch routes an authorized request to its method.
func (a *Application) Dispatch(ctx context.Context, req *Request) *Response {
	h, ok := methods[req.Method]
	if !ok {
		return failure(req.ID, errMethodNotFound(req.Method))
	}
	result, err := h(a, ctx, req.Params)
	if err != nil {
		return failure(req.ID, a.protocolError(req.Method, err))
	}
	return success(req.ID, result)
}

// protocolError maps any handler error to the wire taxonomy. Errors that are
// not already protocol errors are logged and reported as internal failures.
func (a *Application) protocolError(method string, err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	var ae *order.AccountError
	if errors.As(err, &ae) {
		return fromAccountError(ae)
	}
	a.log.Error("internal failure", zap.String("method", method), zap.Error(err))
	return errInternal()
}
