package loyalty

import (
	"context"
	"encoding/json"
	"testing"

	"dailynutra-loyaltyplane/pkg/config"
	"dailynutra-loyaltyplane/pkg/errutil"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type fakeTracker struct {
	calls []trackCall
	err   error
}

type trackCall struct {
	code      string
	productID string
	amount    float64
}

func (f *fakeTracker) Track(_ context.Context, code, productID string, amount float64) error {
	f.calls = append(f.calls, trackCall{code: code, productID: productID, amount: amount})
	return f.err
}

func newPurchaseTask(t *testing.T, payload ProcessPurchasePayload) *asynq.Task {
	t.Helper()
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	return asynq.NewTask(TaskProcessPurchase, b)
}

func taskConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Loyalty.PointsPerUnit = 1.0
	cfg.Loyalty.WelcomeBonusPoints = 100
	return cfg
}

func TestHandleProcessPurchase(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, "cust-1", 100)
	require.NoError(t, err)

	tracker := &fakeTracker{}
	task := NewTask(TaskParams{Service: svc, Tracker: tracker, Config: taskConfig()})

	err = task.HandleProcessPurchase(ctx, newPurchaseTask(t, ProcessPurchasePayload{
		OrderID:    "order-1",
		CustomerID: "cust-1",
		ProductID:  "1",
		Amount:     125,
	}))
	require.NoError(t, err)
	require.Empty(t, tracker.calls)

	current, err := svc.Account(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, int64(225), current.TotalPoints)
}

func TestHandleProcessPurchaseWithReferral(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateAccount(ctx, "cust-1", 100)
	require.NoError(t, err)

	tracker := &fakeTracker{}
	task := NewTask(TaskParams{Service: svc, Tracker: tracker, Config: taskConfig()})

	err = task.HandleProcessPurchase(ctx, newPurchaseTask(t, ProcessPurchasePayload{
		OrderID:      "order-1",
		CustomerID:   "cust-1",
		ProductID:    "1",
		Amount:       125,
		ReferralCode: "DN-7890-ABCDE",
	}))
	require.NoError(t, err)
	require.Len(t, tracker.calls, 1)
	require.Equal(t, "DN-7890-ABCDE", tracker.calls[0].code)
	require.Equal(t, "1", tracker.calls[0].productID)
	require.Equal(t, 125.0, tracker.calls[0].amount)
}

func TestHandleProcessPurchaseRedelivery(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, "cust-1", 0)
	require.NoError(t, err)

	tracker := &fakeTracker{}
	task := NewTask(TaskParams{Service: svc, Tracker: tracker, Config: taskConfig()})

	payload := ProcessPurchasePayload{OrderID: "order-1", CustomerID: "cust-1", ProductID: "1", Amount: 50}
	require.NoError(t, task.HandleProcessPurchase(ctx, newPurchaseTask(t, payload)))
	require.NoError(t, task.HandleProcessPurchase(ctx, newPurchaseTask(t, payload)))

	current, err := svc.Account(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, int64(50), current.TotalPoints)
}

func TestHandleProcessPurchaseBadReferralNotRetried(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateAccount(ctx, "cust-1", 0)
	require.NoError(t, err)

	tracker := &fakeTracker{err: errutil.NotFound("invalid referral code")}
	task := NewTask(TaskParams{Service: svc, Tracker: tracker, Config: taskConfig()})

	err = task.HandleProcessPurchase(ctx, newPurchaseTask(t, ProcessPurchasePayload{
		OrderID:      "order-1",
		CustomerID:   "cust-1",
		ProductID:    "1",
		Amount:       50,
		ReferralCode: "DN-XXXX-YYYYY",
	}))
	require.NoError(t, err)
}

func TestHandleProcessPurchaseUnknownCustomer(t *testing.T) {
	svc, _ := newTestService(t)

	task := NewTask(TaskParams{Service: svc, Tracker: &fakeTracker{}, Config: taskConfig()})

	err := task.HandleProcessPurchase(context.Background(), newPurchaseTask(t, ProcessPurchasePayload{
		OrderID:    "order-1",
		CustomerID: "nobody",
		Amount:     50,
	}))
	require.Error(t, err)
}
