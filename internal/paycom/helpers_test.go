package paycom

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"paycom/internal/models"
	"paycom/internal/order"
	"paycom/internal/repository"
	"paycom/internal/testutil"
)

const (
	testLogin  = "Paycom"
	testSecret = "s3cret"
)

var baseTime = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// stubOrders is an in-memory order provider that records side effects.
type stubOrders struct {
	mu          sync.Mutex
	orders      map[string]*order.Order
	allowCancel bool
	setPaidErr  error
	paid        []uint
	cancels     []bool
}

func newStubOrders() *stubOrders {
	return &stubOrders{
		orders: map[string]*order.Order{
			"O1": {ID: "O1", Amount: 1000, Status: models.OrderPending},
			"O2": {ID: "O2", Amount: 2500, Status: models.OrderPending},
		},
		allowCancel: true,
	}
}

func (s *stubOrders) Name() string { return "stub" }

func (s *stubOrders) Find(_ context.Context, account order.Account) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[account.OrderID()]
	if !ok {
		return nil, &order.AccountError{Field: "order_id", RU: "Неверный код заказа.", UZ: "Harid kodida xatolik.", EN: "Incorrect order code."}
	}
	cp := *o
	return &cp, nil
}

func (s *stubOrders) Validate(_ context.Context, o *order.Order, amount int64) error {
	if amount != o.Amount {
		return &order.AccountError{Field: "amount", Code: -31051, EN: "Incorrect amount."}
	}
	return nil
}

func (s *stubOrders) SetPaid(_ context.Context, _ *order.Order, transactionID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setPaidErr != nil {
		return s.setPaidErr
	}
	s.paid = append(s.paid, transactionID)
	return nil
}

func (s *stubOrders) Cancel(_ context.Context, _ *order.Order, afterComplete bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancels = append(s.cancels, afterComplete)
	return nil
}

func (s *stubOrders) AllowCancel(context.Context, *order.Order) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allowCancel, nil
}

func (s *stubOrders) cancelCalls() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bool(nil), s.cancels...)
}

type harness struct {
	app    *Application
	db     *gorm.DB
	repo   *repository.TransactionRepository
	orders *stubOrders
	clock  *fakeClock
	creds  Credentials
	auth   string
}

type harnessConfig struct {
	creds Credentials
	wrap  func(Store) Store
}

type harnessOption func(*harnessConfig)

func withCredentials(c Credentials) harnessOption {
	return func(cfg *harnessConfig) { cfg.creds = c }
}

// withStore wraps the repository, e.g. to inject a concurrent writer.
func withStore(wrap func(Store) Store) harnessOption {
	return func(cfg *harnessConfig) { cfg.wrap = wrap }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	cfg := harnessConfig{creds: StaticSecret(testSecret)}
	for _, opt := range opts {
		opt(&cfg)
	}

	db := testutil.NewDB(t)
	h := &harness{
		db:     db,
		repo:   repository.NewTransactionRepository(db, nil),
		orders: newStubOrders(),
		clock:  &fakeClock{now: baseTime},
		creds:  cfg.creds,
		auth:   basicAuth(testLogin, testSecret),
	}
	var store Store = h.repo
	if cfg.wrap != nil {
		store = cfg.wrap(h.repo)
	}
	h.app = NewApplication(NewGate(testLogin, h.creds), store, h.orders, zap.NewNop(), WithClock(h.clock.Now))
	return h
}

func basicAuth(login, secret string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(login+":"+secret))
}

type rpcError struct {
	Code    int             `json:"code"`
	Message json.RawMessage `json:"message"`
	Data    string          `json:"data"`
}

type rpcReply struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
	ID     json.RawMessage `json:"id"`
}

func (r rpcReply) result(t *testing.T) map[string]interface{} {
	t.Helper()
	require.Nil(t, r.Error, "unexpected error: %+v", r.Error)
	var out map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(r.Result))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&out))
	return out
}

func (h *harness) post(t *testing.T, body string) rpcReply {
	t.Helper()
	return h.raw(t, http.MethodPost, body, h.auth)
}

func (h *harness) raw(t *testing.T, httpMethod, body, auth string) rpcReply {
	t.Helper()
	resp := h.app.Run(context.Background(), httpMethod, []byte(body), func(name string) string {
		if name == "Authorization" {
			return auth
		}
		return ""
	})
	var reply rpcReply
	require.NoError(t, json.Unmarshal(resp.Marshal(), &reply))
	return reply
}

func (h *harness) call(t *testing.T, method string, params map[string]interface{}) rpcReply {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{"method": method, "params": params, "id": 42})
	require.NoError(t, err)
	return h.post(t, string(body))
}

func (h *harness) create(t *testing.T, id, orderID string, amount int64) rpcReply {
	t.Helper()
	return h.call(t, "CreateTransaction", map[string]interface{}{
		"id":      id,
		"time":    h.clock.Now().UnixMilli(),
		"amount":  amount,
		"account": map[string]interface{}{"order_id": orderID},
	})
}

func (h *harness) countRows(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(&models.Transaction{}).Count(&n).Error)
	return n
}

func (h *harness) stored(t *testing.T, id string) *models.Transaction {
	t.Helper()
	tx, err := h.repo.FindByExternalID(context.Background(), id)
	require.NoError(t, err)
	return tx
}

// assertInvariants checks the timestamp rules that hold for every state.
func assertInvariants(t *testing.T, tx *models.Transaction) {
	t.Helper()
	require.True(t, tx.State.Valid())
	performed := tx.State == models.StateCompleted || tx.State == models.StateCancelledAfterComplete
	require.Equal(t, performed, tx.PerformTime != nil, "perform_time for state %d", tx.State)
	require.Equal(t, tx.State.IsCancelled(), tx.CancelTime != nil, "cancel_time for state %d", tx.State)
	require.Equal(t, tx.State.IsCancelled(), tx.Reason != nil, "reason for state %d", tx.State)
}
