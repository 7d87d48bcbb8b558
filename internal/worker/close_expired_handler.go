package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// ExpiredCloser 关闭截止时间已过的职位。
type ExpiredCloser interface {
	CloseExpired(ctx context.Context, now time.Time) (int64, error)
}

// CloseExpiredHandler 是 positions:close-expired 周期任务的处理器。
type CloseExpiredHandler struct {
	closer ExpiredCloser
	logger *slog.Logger
	now    func() time.Time
}

func NewCloseExpiredHandler(closer ExpiredCloser, logger *slog.Logger) *CloseExpiredHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CloseExpiredHandler{closer: closer, logger: logger, now: time.Now}
}

// ProcessTask 实现 asynq.Handler。
func (h *CloseExpiredHandler) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	n, err := h.closer.CloseExpired(ctx, h.now())
	if err != nil {
		h.logger.Error("close expired positions failed", slog.Any("error", err))
		return err
	}
	if n > 0 {
		h.logger.Info("closed expired positions", slog.Int64("count", n))
	}
	return nil
}
