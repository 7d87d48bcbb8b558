package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeReportGenerate       = "report:generate"
	TypePositionsCloseExpire = "positions:close-expired"
)

// ReportGeneratePayload 描述生成面试报告所需的最小信息。
type ReportGeneratePayload struct {
	InterviewID   uint   `json:"interview_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewReportGenerateTask 构造面试报告 PDF 生成任务，失败最多重试 3 次。
// 同一面试 10 分钟内只入队一次。
func NewReportGenerateTask(interviewID uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ReportGeneratePayload{
		InterviewID:   interviewID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeReportGenerate, payload,
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute),
		asynq.Unique(10*time.Minute),
	), nil
}

// NewCloseExpiredTask 构造关闭过期职位的周期任务。
func NewCloseExpiredTask() *asynq.Task {
	return asynq.NewTask(TypePositionsCloseExpire, nil, asynq.MaxRetry(1))
}

// NotifyChannel 返回用户的 Redis 通知频道，worker 发布、WebSocket 订阅。
func NotifyChannel(userID uint) string {
	return fmt.Sprintf("user_notify:%d", userID)
}
