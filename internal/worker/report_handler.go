package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"hireLoop/internal/database"
	"hireLoop/internal/errcode"
	"hireLoop/internal/report"
	"hireLoop/internal/tasks"
)

// Uploader 把生成的报告写入对象存储。
type Uploader interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
}

// PDFRenderer 把 HTML 渲染为 PDF。
type PDFRenderer func(ctx context.Context, html string) ([]byte, error)

// ReportTaskHandler 负责消费面试报告生成任务。
type ReportTaskHandler struct {
	db        *gorm.DB
	storage   Uploader
	publisher Publisher
	renderPDF PDFRenderer
	logger    *slog.Logger
}

// NewReportTaskHandler 创建任务处理器。renderPDF 为 nil 时使用无头浏览器渲染。
func NewReportTaskHandler(db *gorm.DB, storage Uploader, publisher Publisher, renderPDF PDFRenderer, logger *slog.Logger) *ReportTaskHandler {
	if renderPDF == nil {
		renderPDF = report.GeneratePDF
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportTaskHandler{
		db:        db,
		storage:   storage,
		publisher: publisher,
		renderPDF: renderPDF,
		logger:    logger,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *ReportTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.ReportGeneratePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return fmt.Errorf("unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Uint64("interview_id", uint64(payload.InterviewID)),
	)
	log.Info("starting interview report generation")

	var iv database.Interview
	if err := h.db.WithContext(ctx).First(&iv, payload.InterviewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("interview not found, skipping task")
			return nil
		}
		log.Error("query interview failed", slog.Any("error", err))
		return err
	}
	if iv.CompletedAt == nil {
		log.Warn("interview not completed, skipping task", slog.String("status", string(iv.Status)))
		return nil
	}

	var pos database.Position
	if err := h.db.WithContext(ctx).Unscoped().First(&pos, iv.PositionID).Error; err != nil {
		log.Error("query position failed", slog.Any("error", err))
		return err
	}

	log = log.With(slog.Uint64("company_id", uint64(pos.CompanyID)))

	notify := ReportNotifyMessage{
		Type:          "report",
		InterviewID:   iv.ID,
		PositionID:    pos.ID,
		CorrelationID: payload.CorrelationID,
	}

	defer func() {
		if retErr == nil || !isFinalAsynqAttempt(ctx) {
			return
		}
		notify.Status = "error"
		notify.ErrorCode = errcode.SystemError
		notify.ErrorMessage = strings.TrimSpace(retErr.Error())
		if err := publishNotify(ctx, h.publisher, pos.CompanyID, notify); err != nil {
			log.Error("publish report error notification failed", slog.Any("error", err))
		}
	}()

	html, err := report.Render(&iv, &pos, h.candidateName(ctx, &iv))
	if err != nil {
		log.Error("render report html failed", slog.Any("error", err))
		return err
	}

	pdfBytes, err := h.renderPDF(ctx, html)
	if err != nil {
		log.Error("render report pdf failed", slog.Any("error", err))
		return err
	}

	objectKey := report.ObjectKey(pos.ID, iv.ID)
	if err := h.storage.UploadFile(ctx, objectKey, bytes.NewReader(pdfBytes), int64(len(pdfBytes)), "application/pdf"); err != nil {
		log.Error("upload report to minio failed", slog.Any("error", err))
		return err
	}

	if err := h.db.WithContext(ctx).Model(&database.Interview{}).
		Where("id = ?", iv.ID).
		UpdateColumn("report_object_key", objectKey).Error; err != nil {
		log.Error("update interview report key failed", slog.Any("error", err))
		return err
	}

	notify.Status = "completed"
	notify.ErrorCode = errcode.OK
	if iv.Feedback.Data() == nil {
		notify.ErrorCode = errcode.ProviderDegraded
		notify.ErrorMessage = "AI 评价不可用，报告仅包含逐题记录"
	}
	if err := publishNotify(ctx, h.publisher, pos.CompanyID, notify); err != nil {
		// 报告已生成，通知失败不再重试整个任务。
		log.Error("publish report notification failed", slog.Any("error", err))
	}

	log.Info("interview report generated", slog.String("object_key", objectKey), slog.Int("bytes", len(pdfBytes)))
	return nil
}

func (h *ReportTaskHandler) candidateName(ctx context.Context, iv *database.Interview) string {
	if iv.CandidateID == nil {
		return iv.CandidateName
	}
	var user database.User
	if err := h.db.WithContext(ctx).Select("display_name", "username").First(&user, *iv.CandidateID).Error; err != nil {
		return iv.CandidateName
	}
	if user.DisplayName != "" {
		return user.DisplayName
	}
	return user.Username
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
