package paycom

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paycom/internal/models"
	"paycom/internal/repository"
)

func TestRun_RequestShape(t *testing.T) {
	h := newHarness(t)

	reply := h.raw(t, http.MethodGet, `{"method":"CheckTransaction","params":{},"id":1}`, h.auth)
	require.NotNil(t, reply.Error)
	assert.Equal(t, CodeRequestMethod, reply.Error.Code)
	assert.JSONEq(t, `null`, string(reply.ID))

	reply = h.post(t, `{"method":`)
	require.NotNil(t, reply.Error)
	assert.Equal(t, CodeParseError, reply.Error.Code)

	reply = h.post(t, `{"method":"CheckTransaction","id":"abc"}`)
	require.NotNil(t, reply.Error)
	assert.Equal(t, CodeInvalidRequest, reply.Error.Code)
	assert.JSONEq(t, `"abc"`, string(reply.ID))
}

func TestRun_Authorization(t *testing.T) {
	h := newHarness(t)
	body := `{"method":"CheckTransaction","params":{"id":"T1"},"id":7}`

	for name, header := range map[string]string{
		"missing":      "",
		"wrong secret": basicAuth(testLogin, "nope"),
		"wrong login":  basicAuth("Other", testSecret),
		"bearer":       "Bearer " + testSecret,
		"not base64":   "Basic !!!",
		"extra token":  basicAuth(testLogin, testSecret) + " extra",
	} {
		t.Run(name, func(t *testing.T) {
			reply := h.raw(t, http.MethodPost, body, header)
			require.NotNil(t, reply.Error)
			assert.Equal(t, CodeInsufficientPrivilege, reply.Error.Code)
			assert.JSONEq(t, `7`, string(reply.ID))
		})
	}

	// Scheme is case-insensitive and surrounding whitespace is allowed.
	reply := h.raw(t, http.MethodPost, body, "  basic "+basicAuth(testLogin, testSecret)[len("Basic "):]+"  ")
	require.NotNil(t, reply.Error)
	assert.Equal(t, CodeTransactionNotFound, reply.Error.Code)
}

func TestRun_MethodNotFound(t *testing.T) {
	h := newHarness(t)
	reply := h.call(t, "Refund", map[string]interface{}{})
	require.NotNil(t, reply.Error)
	assert.Equal(t, CodeMethodNotFound, reply.Error.Code)
	assert.Equal(t, "Refund", reply.Error.Data)
	assert.JSONEq(t, `42`, string(reply.ID))
}

func TestScenario_CreatePerformAndRefuseCancel(t *testing.T) {
	h := newHarness(t)

	res := h.create(t, "T1", "O1", 1000).result(t)
	assert.Equal(t, json.Number("1"), res["state"])
	assert.Equal(t, "T1", res["transaction"])
	assert.Equal(t, json.Number("1714554000000"), res["create_time"])
	assert.Nil(t, res["receivers"])

	res = h.call(t, "CheckTransaction", map[string]interface{}{"id": "T1"}).result(t)
	assert.Equal(t, json.Number("1"), res["state"])
	assert.Nil(t, res["perform_time"])
	assert.Nil(t, res["cancel_time"])
	assert.Nil(t, res["reason"])

	h.clock.Advance(time.Minute)
	first := h.call(t, "PerformTransaction", map[string]interface{}{"id": "T1"})
	res = first.result(t)
	assert.Equal(t, json.Number("2"), res["state"])
	assert.Equal(t, json.Number("1714554060000"), res["perform_time"])

	h.clock.Advance(time.Minute)
	second := h.call(t, "PerformTransaction", map[string]interface{}{"id": "T1"})
	assert.Equal(t, string(first.Result), string(second.Result), "perform replay must not move perform_time")
	assert.Len(t, h.orders.paid, 1)

	h.orders.allowCancel = false
	reply := h.call(t, "CancelTransaction", map[string]interface{}{"id": "T1", "reason": 5})
	require.NotNil(t, reply.Error)
	assert.Equal(t, CodeCouldNotCancel, reply.Error.Code)

	stored := h.stored(t, "T1")
	assert.Equal(t, models.StateCompleted, stored.State)
	assertInvariants(t, stored)
}

func TestCreateTransaction_IdempotentReplay(t *testing.T) {
	h := newHarness(t)

	first := h.create(t, "T1", "O1", 1000)
	require.Nil(t, first.Error)

	h.clock.Advance(time.Hour)
	second := h.call(t, "CreateTransaction", map[string]interface{}{
		"id":      "T1",
		"time":    baseTime.UnixMilli(),
		"amount":  1000,
		"account": map[string]interface{}{"order_id": "O1"},
	})
	require.Nil(t, second.Error)
	assert.Equal(t, string(first.Result), string(second.Result))
	assert.Equal(t, int64(1), h.countRows(t))
}

func TestCreateTransaction_Validation(t *testing.T) {
	h := newHarness(t)

	reply := h.create(t, "T1", "missing", 1000)
	require.NotNil(t, reply.Error)
	assert.Equal(t, CodeInvalidAccount, reply.Error.Code)
	assert.Equal(t, "order_id", reply.Error.Data)
	assert.JSONEq(t, `{"ru":"Неверный код заказа.","uz":"Harid kodida xatolik.","en":"Incorrect order code."}`, string(reply.Error.Message))

	reply = h.create(t, "T1", "O1", 999)
	require.NotNil(t, reply.Error)
	assert.Equal(t, -31051, reply.Error.Code)
	assert.Equal(t, "amount", reply.Error.Data)

	reply = h.call(t, "CreateTransaction", map[string]interface{}{
		"id": "T1", "time": baseTime.UnixMilli(), "amount": "10.5",
		"account": map[string]interface{}{"order_id": "O1"},
	})
	require.NotNil(t, reply.Error)
	assert.Equal(t, CodeInvalidAccount, reply.Error.Code)
	assert.Equal(t, "amount", reply.Error.Data)

	reply = h.create(t, "T12345678901234567890123456", "O1", 1000)
	require.NotNil(t, reply.Error)
	assert.Equal(t, "id", reply.Error.Data)

	assert.Zero(t, h.countRows(t))
}

func TestCreateTransaction_TimeoutSinceGatewayTime(t *testing.T) {
	h := newHarness(t)

	reply := h.call(t, "CreateTransaction", map[string]interface{}{
		"id":      "T1",
		"time":    baseTime.UnixMilli() - models.Timeout,
		"amount":  1000,
		"account": map[string]interface{}{"order_id": "O1"},
	})
	require.NotNil(t, reply.Error)
	assert.Equal(t, CodeInvalidAccount, reply.Error.Code)
	assert.Equal(t, "time", reply.Error.Data)
	var msg map[string]string
	require.NoError(t, json.Unmarshal(reply.Error.Message, &msg))
	assert.Contains(t, msg["en"], "43200000ms")
	assert.Zero(t, h.countRows(t))

	reply = h.call(t, "CreateTransaction", map[string]interface{}{
		"id":      "T1",
		"time":    baseTime.UnixMilli() - models.Timeout + 1,
		"amount":  1000,
		"account": map[string]interface{}{"order_id": "O1"},
	})
	require.Nil(t, reply.Error)
}

func TestCreateTransaction_OrderAlreadyHasTransaction(t *testing.T) {
	h := newHarness(t)
	require.Nil(t, h.create(t, "T1", "O1", 1000).Error)

	reply := h.create(t, "T2", "O1", 1000)
	require.NotNil(t, reply.Error)
	assert.Equal(t, CodeInvalidAccount, reply.Error.Code)
	assert.Contains(t, string(reply.Error.Message), "(T1) with orderId: O1 already exists!")

	require.Nil(t, h.call(t, "CancelTransaction", map[string]interface{}{"id": "T1", "reason": 1}).Error)
	require.Nil(t, h.create(t, "T2", "O1", 1000).Error, "cancelled transactions free the order")
}

func TestCreateTransaction_ExpiresOnce(t *testing.T) {
	h := newHarness(t)
	require.Nil(t, h.create(t, "T1", "O1", 1000).Error)

	h.clock.Advance(12*time.Hour + time.Second)
	reply := h.call(t, "CreateTransaction", map[string]interface{}{
		"id": "T1", "time": baseTime.UnixMilli(), "amount": 1000,
		"account": map[string]interface{}{"order_id": "O1"},
	})
	require.NotNil(t, reply.Error)
	assert.Equal(t, CodeCouldNotPerform, reply.Error.Code)
	assert.JSONEq(t, `"Transaction is expired."`, string(reply.Error.Message))

	stored := h.stored(t, "T1")
	assert.Equal(t, models.StateCancelled, stored.State)
	require.NotNil(t, stored.Reason)
	assert.Equal(t, models.ReasonCancelledByTimeout, *stored.Reason)
	assertInvariants(t, stored)
	cancelledAt := *stored.CancelTime

	h.clock.Advance(time.Minute)
	reply = h.call(t, "CreateTransaction", map[string]interface{}{
		"id": "T1", "time": baseTime.UnixMilli(), "amount": 1000,
		"account": map[string]interface{}{"order_id": "O1"},
	})
	require.NotNil(t, reply.Error)
	assert.JSONEq(t, `"Transaction found, but is not active."`, string(reply.Error.Message))

	res := h.call(t, "CancelTransaction", map[string]interface{}{"id": "T1", "reason": 3}).result(t)
	assert.Equal(t, json.Number("-1"), res["state"])
	assert.Equal(t, json.Number("1714597201000"), res["cancel_time"])
	assert.Empty(t, h.orders.cancelCalls(), "replayed cancel must not reach the order provider")
	assert.True(t, cancelledAt.Equal(*h.stored(t, "T1").CancelTime))
}

func TestCreateTransaction_ExactlyTimeoutIsNotExpired(t *testing.T) {
	h := newHarness(t)
	first := h.create(t, "T1", "O1", 1000)
	require.Nil(t, first.Error)

	h.clock.Advance(12 * time.Hour)
	second := h.call(t, "CreateTransaction", map[string]interface{}{
		"id": "T1", "time": baseTime.UnixMilli(), "amount": 1000,
		"account": map[string]interface{}{"order_id": "O1"},
	})
	require.Nil(t, second.Error)
	assert.Equal(t, string(first.Result), string(second.Result))
}

func TestCreateTransaction_ConcurrentSameID(t *testing.T) {
	h := newHarness(t)
	body := `{"method":"CreateTransaction","params":{"id":"T1","time":1714554000000,"amount":1000,"account":{"order_id":"O1"}},"id":1}`

	const callers = 8
	results := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp := h.app.Run(context.Background(), http.MethodPost, []byte(body), func(string) string { return h.auth })
			results[i] = string(resp.Marshal())
		}(i)
	}
	wg.Wait()

	for _, r := range results[1:] {
		assert.Equal(t, results[0], r)
	}
	assert.Contains(t, results[0], `"state":1`)
	assert.Equal(t, int64(1), h.countRows(t))
}

// slowCanCreate holds every order check open for a while and records how
// many ran at once.
type slowCanCreate struct {
	Store
	inFlight int32
	maxSeen  int32
}

func (s *slowCanCreate) CanCreate(ctx context.Context, orderID string) (*models.Transaction, error) {
	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		seen := atomic.LoadInt32(&s.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&s.maxSeen, seen, n) {
			break
		}
	}
	time.Sleep(30 * time.Millisecond)
	return s.Store.CanCreate(ctx, orderID)
}

func TestCreateTransaction_ConcurrentSameOrder(t *testing.T) {
	slow := &slowCanCreate{}
	h := newHarness(t, withStore(func(s Store) Store {
		slow.Store = s
		return slow
	}))

	ids := []string{"TA", "TB", "TC"}
	replies := make([]rpcReply, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			replies[i] = h.create(t, id, "O1", 1000)
		}(i, id)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&slow.maxSeen), "order checks never overlap")

	var created, refused int
	for _, r := range replies {
		if r.Error == nil {
			created++
			continue
		}
		assert.Equal(t, CodeInvalidAccount, r.Error.Code)
		assert.Equal(t, "order_id", r.Error.Data)
		refused++
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 2, refused)

	var active int64
	require.NoError(t, h.db.Model(&models.Transaction{}).
		Where("order_id = ? AND state = ?", "O1", models.StateCreated).
		Count(&active).Error)
	assert.Equal(t, int64(1), active)
}

// racingStore makes another request win the insert between find and insert.
type racingStore struct {
	Store
	repo *repository.TransactionRepository
	once sync.Once
}

func (s *racingStore) FindByExternalID(ctx context.Context, id string) (*models.Transaction, error) {
	var raced bool
	s.once.Do(func() {
		winner := &models.Transaction{
			PaycomTransactionID: id,
			PaycomTime:          baseTime.UnixMilli(),
			PaycomTimeDatetime:  baseTime,
			CreateTime:          baseTime.Add(-time.Second),
			State:               models.StateCreated,
			Amount:              1000,
			OrderID:             "O1",
		}
		_ = s.repo.Insert(ctx, winner)
		raced = true
	})
	if raced {
		return nil, repository.ErrNotFound
	}
	return s.Store.FindByExternalID(ctx, id)
}

func (s *racingStore) CanCreate(context.Context, string) (*models.Transaction, error) {
	return nil, nil
}

func TestCreateTransaction_LostInsertRaceReplaysWinner(t *testing.T) {
	h := newHarness(t, withStore(func(s Store) Store {
		return &racingStore{Store: s, repo: s.(*repository.TransactionRepository)}
	}))

	res := h.create(t, "T1", "O1", 1000).result(t)
	assert.Equal(t, json.Number("1714553999000"), res["create_time"], "answer carries the winner's create_time")
	assert.Equal(t, int64(1), h.countRows(t))
}

func TestPerformTransaction(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		h := newHarness(t)
		reply := h.call(t, "PerformTransaction", map[string]interface{}{"id": "nope"})
		require.NotNil(t, reply.Error)
		assert.Equal(t, CodeTransactionNotFound, reply.Error.Code)
	})

	t.Run("expired", func(t *testing.T) {
		h := newHarness(t)
		require.Nil(t, h.create(t, "T1", "O1", 1000).Error)
		h.clock.Advance(13 * time.Hour)

		reply := h.call(t, "PerformTransaction", map[string]interface{}{"id": "T1"})
		require.NotNil(t, reply.Error)
		assert.Equal(t, CodeCouldNotPerform, reply.Error.Code)
		cancelledAt := *h.stored(t, "T1").CancelTime

		h.clock.Advance(time.Minute)
		reply = h.call(t, "PerformTransaction", map[string]interface{}{"id": "T1"})
		require.NotNil(t, reply.Error)
		assert.Equal(t, CodeCouldNotPerform, reply.Error.Code)

		stored := h.stored(t, "T1")
		assert.True(t, cancelledAt.Equal(*stored.CancelTime), "expiry happens once")
		assert.Equal(t, models.ReasonCancelledByTimeout, *stored.Reason)
		assert.Empty(t, h.orders.paid)
	})

	t.Run("order provider failure", func(t *testing.T) {
		h := newHarness(t)
		require.Nil(t, h.create(t, "T1", "O1", 1000).Error)
		h.orders.setPaidErr = errors.New("warehouse offline")

		reply := h.call(t, "PerformTransaction", map[string]interface{}{"id": "T1"})
		require.NotNil(t, reply.Error)
		assert.Equal(t, CodeCouldNotPerform, reply.Error.Code)
		assert.Equal(t, models.StateCreated, h.stored(t, "T1").State)
	})

	t.Run("cancelled", func(t *testing.T) {
		h := newHarness(t)
		require.Nil(t, h.create(t, "T1", "O1", 1000).Error)
		require.Nil(t, h.call(t, "CancelTransaction", map[string]interface{}{"id": "T1"}).Error)

		reply := h.call(t, "PerformTransaction", map[string]interface{}{"id": "T1"})
		require.NotNil(t, reply.Error)
		assert.Equal(t, CodeCouldNotPerform, reply.Error.Code)
	})
}

// conflictStore lets a concurrent request complete the transaction first.
type conflictStore struct {
	Store
	once sync.Once
}

func (s *conflictStore) Complete(ctx context.Context, t *models.Transaction, now time.Time) error {
	var raced bool
	s.once.Do(func() {
		winner := *t
		_ = s.Store.Complete(ctx, &winner, now.Add(-time.Second))
		raced = true
	})
	if raced {
		return repository.ErrStateConflict
	}
	return s.Store.Complete(ctx, t, now)
}

func TestPerformTransaction_ConflictReloads(t *testing.T) {
	h := newHarness(t, withStore(func(s Store) Store { return &conflictStore{Store: s} }))
	require.Nil(t, h.create(t, "T1", "O1", 1000).Error)
	h.clock.Advance(time.Minute)

	res := h.call(t, "PerformTransaction", map[string]interface{}{"id": "T1"}).result(t)
	assert.Equal(t, json.Number("2"), res["state"])
	assert.Equal(t, json.Number("1714554059000"), res["perform_time"], "answer reflects the winning update")
}

func TestCancelTransaction(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		h := newHarness(t)
		require.Nil(t, h.create(t, "T1", "O1", 1000).Error)
		h.clock.Advance(time.Minute)

		first := h.call(t, "CancelTransaction", map[string]interface{}{"id": "T1", "reason": 3})
		res := first.result(t)
		assert.Equal(t, json.Number("-1"), res["state"])
		assert.Equal(t, "T1", res["transaction"])
		assert.Equal(t, []bool{false}, h.orders.cancelCalls())

		stored := h.stored(t, "T1")
		assert.Equal(t, models.ReasonExecutionFailed, *stored.Reason)
		assertInvariants(t, stored)

		h.clock.Advance(time.Minute)
		second := h.call(t, "CancelTransaction", map[string]interface{}{"id": "T1", "reason": 3})
		assert.Equal(t, string(first.Result), string(second.Result))
		assert.Len(t, h.orders.cancelCalls(), 1)

		check := h.call(t, "CheckTransaction", map[string]interface{}{"id": "T1"}).result(t)
		assert.Equal(t, json.Number("3"), check["reason"])
		assert.Equal(t, json.Number("1714554060000"), check["cancel_time"])
	})

	t.Run("created without reason", func(t *testing.T) {
		h := newHarness(t)
		require.Nil(t, h.create(t, "T1", "O1", 1000).Error)
		require.Nil(t, h.call(t, "CancelTransaction", map[string]interface{}{"id": "T1"}).Error)
		assert.Equal(t, models.ReasonProcessingExecutionFailed, *h.stored(t, "T1").Reason)
	})

	t.Run("after completion", func(t *testing.T) {
		h := newHarness(t)
		require.Nil(t, h.create(t, "T1", "O1", 1000).Error)
		require.Nil(t, h.call(t, "PerformTransaction", map[string]interface{}{"id": "T1"}).Error)

		res := h.call(t, "CancelTransaction", map[string]interface{}{"id": "T1"}).result(t)
		assert.Equal(t, json.Number("-2"), res["state"])
		assert.Equal(t, []bool{true}, h.orders.cancelCalls())

		stored := h.stored(t, "T1")
		assert.Equal(t, models.ReasonFundReturned, *stored.Reason)
		assertInvariants(t, stored)
	})

	t.Run("invalid reason", func(t *testing.T) {
		h := newHarness(t)
		require.Nil(t, h.create(t, "T1", "O1", 1000).Error)

		for _, reason := range []interface{}{"soon", 7, 1.5} {
			reply := h.call(t, "CancelTransaction", map[string]interface{}{"id": "T1", "reason": reason})
			require.NotNil(t, reply.Error)
			assert.Equal(t, CodeInvalidAccount, reply.Error.Code)
			assert.Equal(t, "reason", reply.Error.Data)
		}
		assert.Equal(t, models.StateCreated, h.stored(t, "T1").State)
	})

	t.Run("not found", func(t *testing.T) {
		h := newHarness(t)
		reply := h.call(t, "CancelTransaction", map[string]interface{}{"id": "T9", "reason": 1})
		require.NotNil(t, reply.Error)
		assert.Equal(t, CodeTransactionNotFound, reply.Error.Code)
	})
}

func TestCheckPerformTransaction(t *testing.T) {
	h := newHarness(t)
	params := map[string]interface{}{"amount": 1000, "account": map[string]interface{}{"order_id": "O1"}}

	res := h.call(t, "CheckPerformTransaction", params).result(t)
	assert.Equal(t, true, res["allow"])

	require.Nil(t, h.create(t, "T1", "O1", 1000).Error)
	reply := h.call(t, "CheckPerformTransaction", params)
	require.NotNil(t, reply.Error)
	assert.Equal(t, CodeCouldNotPerform, reply.Error.Code)

	require.Nil(t, h.call(t, "CancelTransaction", map[string]interface{}{"id": "T1"}).Error)
	res = h.call(t, "CheckPerformTransaction", params).result(t)
	assert.Equal(t, true, res["allow"])

	reply = h.call(t, "CheckPerformTransaction", map[string]interface{}{"amount": 1, "account": map[string]interface{}{"order_id": "O1"}})
	require.NotNil(t, reply.Error)
	assert.Equal(t, "amount", reply.Error.Data)
	assert.Equal(t, int64(1), h.countRows(t), "check never writes")
}

func TestCheckPerformTransaction_RefundedThenCreated(t *testing.T) {
	h := newHarness(t)
	params := map[string]interface{}{"amount": 1000, "account": map[string]interface{}{"order_id": "O1"}}

	require.Nil(t, h.create(t, "T1", "O1", 1000).Error)
	require.Nil(t, h.call(t, "PerformTransaction", map[string]interface{}{"id": "T1"}).Error)
	require.Nil(t, h.call(t, "CancelTransaction", map[string]interface{}{"id": "T1", "reason": 5}).Error)
	assert.Equal(t, models.StateCancelledAfterComplete, h.stored(t, "T1").State)

	require.Nil(t, h.create(t, "T2", "O1", 1000).Error)
	reply := h.call(t, "CheckPerformTransaction", params)
	require.NotNil(t, reply.Error, "the created T2 blocks the order even behind a refunded T1")
	assert.Equal(t, CodeCouldNotPerform, reply.Error.Code)
}

func TestCheckTransaction_NotFound(t *testing.T) {
	h := newHarness(t)
	reply := h.call(t, "CheckTransaction", map[string]interface{}{"id": "T1"})
	require.NotNil(t, reply.Error)
	assert.Equal(t, CodeTransactionNotFound, reply.Error.Code)
	assert.JSONEq(t, `"Transaction not found."`, string(reply.Error.Message))
}

func TestGetStatement(t *testing.T) {
	h := newHarness(t)

	for _, tc := range []struct {
		params map[string]interface{}
		field  string
	}{
		{map[string]interface{}{"to": 10}, "from"},
		{map[string]interface{}{"from": 10}, "to"},
		{map[string]interface{}{"from": 10, "to": 10}, "from"},
		{map[string]interface{}{"from": 11, "to": 10}, "from"},
		{map[string]interface{}{"from": "x", "to": 10}, "from"},
	} {
		reply := h.call(t, "GetStatement", tc.params)
		require.NotNil(t, reply.Error, "%v", tc.params)
		assert.Equal(t, CodeInvalidAccount, reply.Error.Code)
		assert.Equal(t, tc.field, reply.Error.Data)
	}

	start := baseTime.UnixMilli()
	require.Nil(t, h.create(t, "T1", "O1", 1000).Error)
	h.clock.Advance(time.Second)
	require.Nil(t, h.create(t, "T2", "O2", 2500).Error)
	require.Nil(t, h.call(t, "PerformTransaction", map[string]interface{}{"id": "T2"}).Error)

	res := h.call(t, "GetStatement", map[string]interface{}{"from": start, "to": start + 1000}).result(t)
	txs, ok := res["transactions"].([]interface{})
	require.True(t, ok)
	require.Len(t, txs, 2)

	first := txs[0].(map[string]interface{})
	assert.Equal(t, "T1", first["id"])
	assert.Equal(t, json.Number("1714554000000"), first["time"])
	assert.Equal(t, json.Number("1000"), first["amount"])
	assert.Equal(t, map[string]interface{}{"order_id": "O1"}, first["account"])
	assert.Equal(t, json.Number("1714554000"), first["create_time"])
	assert.Nil(t, first["perform_time"])
	assert.Nil(t, first["cancel_time"])
	assert.Equal(t, json.Number("1"), first["transaction"])
	assert.Nil(t, first["reason"])
	assert.Nil(t, first["receivers"])

	second := txs[1].(map[string]interface{})
	assert.Equal(t, "T2", second["id"])
	assert.Equal(t, json.Number("1714554001"), second["perform_time"])
	assert.Equal(t, json.Number("2"), second["state"])

	res = h.call(t, "GetStatement", map[string]interface{}{"from": start + 1, "to": start + 1000}).result(t)
	assert.Len(t, res["transactions"], 1)

	res = h.call(t, "GetStatement", map[string]interface{}{"from": 1, "to": 2}).result(t)
	assert.Equal(t, []interface{}{}, res["transactions"])
}
