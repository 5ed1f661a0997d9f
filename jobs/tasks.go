package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/harborline/harborline/internal/auth"
	"github.com/harborline/harborline/internal/orders"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskOrderExpiry cancels orders that sat in pending_payment past the
	// payment window.
	TaskOrderExpiry = "orders:expire_pending"
	// TaskSessionReap removes expired rows from the session registry.
	TaskSessionReap = "auth:reap_sessions"
)

// OrderExpiryPayload parametrises one expiry sweep.
type OrderExpiryPayload struct {
	WindowSeconds int `json:"window_seconds"`
	Limit         int `json:"limit"`
}

// NewOrderExpiryTask constructs an order expiry sweep task.
func NewOrderExpiryTask(window time.Duration, limit int) (*asynq.Task, error) {
	data, err := json.Marshal(OrderExpiryPayload{
		WindowSeconds: int(window / time.Second),
		Limit:         limit,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderExpiry, data), nil
}

// NewOrderExpiryHandler returns the handler for TaskOrderExpiry.
func NewOrderExpiryHandler(logger *slog.Logger, service *orders.Service, defaultWindow time.Duration) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload OrderExpiryPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		window := defaultWindow
		if payload.WindowSeconds > 0 {
			window = time.Duration(payload.WindowSeconds) * time.Second
		}
		limit := payload.Limit
		if limit <= 0 {
			limit = 500
		}
		expired, err := service.ExpireStalePending(ctx, window, limit)
		if err != nil {
			return err
		}
		logger.Info("order expiry sweep", slog.Int("expired", expired))
		return nil
	}
}

// NewSessionReapTask constructs a session registry cleanup task.
func NewSessionReapTask() (*asynq.Task, error) {
	return asynq.NewTask(TaskSessionReap, nil), nil
}

// NewSessionReapHandler returns the handler for TaskSessionReap.
func NewSessionReapHandler(logger *slog.Logger, service *auth.Service) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		removed, err := service.ReapExpiredSessions(ctx)
		if err != nil {
			return err
		}
		logger.Info("session registry reaped", slog.Int64("removed", removed))
		return nil
	}
}
