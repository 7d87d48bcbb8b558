package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"hireLoop/internal/tasks"
)

// ReportNotifyMessage 是通过 Redis Pub/Sub 转发给企业端 WebSocket 的消息。
// 字段名与前端解析保持一致。
type ReportNotifyMessage struct {
	Type          string `json:"type"`
	Status        string `json:"status"`
	InterviewID   uint   `json:"interview_id"`
	PositionID    uint   `json:"position_id"`
	CorrelationID string `json:"correlation_id"`
	ErrorCode     int    `json:"error_code"`
	ErrorMessage  string `json:"error_message"`
}

// Publisher 是 Redis 发布能力的最小子集，*redis.Client 满足该接口。
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

func publishNotify(ctx context.Context, pub Publisher, userID uint, msg ReportNotifyMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := tasks.NotifyChannel(userID)
	if err := pub.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}
