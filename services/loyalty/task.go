package loyalty

import (
	"context"
	"encoding/json"
	"errors"
	"math"

	"dailynutra-loyaltyplane/pkg/config"
	"dailynutra-loyaltyplane/pkg/errutil"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ReferralTracker credits the referrer when a referred purchase completes.
// Implemented by the referral service; declared here to keep the task handler
// free of a package cycle.
type ReferralTracker interface {
	Track(ctx context.Context, referralCode, productID string, purchaseAmount float64) error
}

type Task struct {
	service *Service
	tracker ReferralTracker
	cfg     *config.Config
}

type TaskParams struct {
	fx.In
	Service *Service
	Tracker ReferralTracker
	Config  *config.Config
}

func NewTask(p TaskParams) *Task {
	return &Task{
		service: p.Service,
		tracker: p.Tracker,
		cfg:     p.Config,
	}
}

var TaskModule = fx.Module("loyalty.task",
	fx.Provide(NewTask),
	fx.Invoke(registerTaskHandlers),
)

func registerTaskHandlers(mux *asynq.ServeMux, task *Task) {
	mux.HandleFunc(TaskProcessPurchase, task.HandleProcessPurchase)
}

// HandleProcessPurchase consumes a paid-order event: award points to the
// buyer, then credit the referrer when the order carried a referral code.
// Already-processed orders are acknowledged without effect so redeliveries
// stay harmless.
func (t *Task) HandleProcessPurchase(ctx context.Context, task *asynq.Task) error {
	var payload ProcessPurchasePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		zap.L().Error("invalid purchase payload", zap.Error(err))
		return nil // malformed payload, retrying will not help
	}

	zapLog := zap.L().With(
		zap.String("order_id", payload.OrderID),
		zap.String("customer_id", payload.CustomerID),
		zap.String("trace_id", payload.TraceID),
	)

	account, err := t.service.AccountByCustomer(ctx, payload.CustomerID)
	if err != nil {
		zapLog.Error("purchase for unknown customer", zap.Error(err))
		return err
	}

	points := int64(math.Floor(payload.Amount * t.cfg.Loyalty.PointsPerUnit))

	_, _, _, err = t.service.RecordPurchase(ctx, account.ID, payload.OrderID, points, "Purchase")
	if err != nil {
		var be errutil.BaseError
		if errors.As(err, &be) && be.Code == errutil.StatusConflict {
			zapLog.Info("order already processed, skipping")
			return nil
		}
		zapLog.Error("failed to record purchase", zap.Error(err))
		return err
	}

	zapLog.Info("purchase points awarded", zap.Int64("points", points))

	if payload.ReferralCode == "" {
		return nil
	}

	if err := t.tracker.Track(ctx, payload.ReferralCode, payload.ProductID, payload.Amount); err != nil {
		var be errutil.BaseError
		if errors.As(err, &be) && be.Code.HTTPStatus() < 500 {
			// bad code or ineligible referrer, not worth a retry
			zapLog.Warn("referral not credited", zap.Error(err))
			return nil
		}
		zapLog.Error("failed to track referral", zap.Error(err))
		return err
	}

	return nil
}
