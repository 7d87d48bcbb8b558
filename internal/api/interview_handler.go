package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"hireLoop/internal/api/middleware"
	"hireLoop/internal/database"
	"hireLoop/internal/interview"
	"hireLoop/internal/position"
	"hireLoop/internal/tasks"
)

const reportLinkTTL = 10 * time.Minute

// TaskEnqueuer 是 asynq.Client 的入队能力。
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ReportLinker 为已生成的报告签发下载链接。
type ReportLinker interface {
	PresignDownload(ctx context.Context, objectKey string, ttl time.Duration, fileName string) (string, error)
}

// InterviewHandler 处理面试详情、状态管理、答题流程与公开链接入口。
type InterviewHandler struct {
	interviews *interview.Manager
	registry   *position.Registry
	enqueuer   TaskEnqueuer
	reports    ReportLinker
}

// NewInterviewHandler 构造 InterviewHandler。enqueuer 为 nil 时不生成报告。
func NewInterviewHandler(interviews *interview.Manager, registry *position.Registry, enqueuer TaskEnqueuer, reports ReportLinker) *InterviewHandler {
	return &InterviewHandler{
		interviews: interviews,
		registry:   registry,
		enqueuer:   enqueuer,
		reports:    reports,
	}
}

type interviewResponse struct {
	ID                   uint                    `json:"id"`
	PositionID           uint                    `json:"position_id"`
	CandidateID          *uint                   `json:"candidate_id,omitempty"`
	CandidateName        string                  `json:"candidate_name,omitempty"`
	CandidateEmail       string                  `json:"candidate_email,omitempty"`
	IsPublic             bool                    `json:"is_public"`
	Status               string                  `json:"status"`
	IsStarted            bool                    `json:"is_started"`
	CurrentQuestionIndex int                     `json:"current_question_index"`
	CurrentQuestion      string                  `json:"current_question,omitempty"`
	QuestionsAsked       int                     `json:"questions_asked"`
	Answers              []database.AnswerRecord `json:"answers"`
	Score                *float64                `json:"score,omitempty"`
	Percent              *float64                `json:"percent,omitempty"`
	ScoringPolicy        string                  `json:"scoring_policy,omitempty"`
	Feedback             *database.Feedback      `json:"feedback,omitempty"`
	ReportReady          bool                    `json:"report_ready"`
	StartedAt            *time.Time              `json:"started_at,omitempty"`
	CompletedAt          *time.Time              `json:"completed_at,omitempty"`
	CreatedAt            time.Time               `json:"created_at"`
}

func newInterviewResponse(iv *database.Interview) interviewResponse {
	out := interviewResponse{
		ID:                   iv.ID,
		PositionID:           iv.PositionID,
		CandidateID:          iv.CandidateID,
		CandidateName:        iv.CandidateName,
		CandidateEmail:       iv.CandidateEmail,
		IsPublic:             iv.IsPublic,
		Status:               string(iv.Status),
		IsStarted:            iv.IsStarted,
		CurrentQuestionIndex: iv.CurrentQuestionIndex,
		CurrentQuestion:      iv.CurrentQuestion,
		QuestionsAsked:       iv.QuestionsAsked,
		Answers:              iv.Answers,
		Score:                iv.Score,
		ScoringPolicy:        iv.ScoringPolicy,
		Feedback:             iv.Feedback.Data(),
		ReportReady:          iv.ReportObjectKey != "",
		StartedAt:            iv.StartedAt,
		CompletedAt:          iv.CompletedAt,
		CreatedAt:            iv.CreatedAt,
	}
	if out.Answers == nil {
		out.Answers = []database.AnswerRecord{}
	}
	if iv.Score != nil {
		p := interview.Percent(*iv.Score)
		out.Percent = &p
	}
	return out
}

// GetInterview 返回面试详情。
func (h *InterviewHandler) GetInterview(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	caller, _ := callerFromContext(c)
	iv, err := h.interviews.Get(c.Request.Context(), id, caller)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newInterviewResponse(iv))
}

// StartInterview 开始面试并返回第一题。不存在或不可开始时统一返回 404。
func (h *InterviewHandler) StartInterview(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	caller, _ := callerFromContext(c)
	ctx := c.Request.Context()

	iv, err := h.interviews.Begin(ctx, id, caller)
	if err != nil {
		if errors.Is(err, interview.ErrNotFound) || errors.Is(err, interview.ErrInvalidState) {
			NotFound(c, "interview not found or cannot be started")
			return
		}
		respondError(c, err)
		return
	}

	first, err := h.interviews.NextQuestion(ctx, iv.ID, 0)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"interview":      newInterviewResponse(iv),
		"first_question": first,
	})
}

// CancelInterview 取消尚未开始的面试。
func (h *InterviewHandler) CancelInterview(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	caller, _ := callerFromContext(c)
	iv, err := h.interviews.Cancel(c.Request.Context(), id, caller)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newInterviewResponse(iv))
}

// SetStatus 企业或管理员直接设置面试状态。
func (h *InterviewHandler) SetStatus(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	caller, _ := callerFromContext(c)
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	iv, err := h.interviews.SetStatus(c.Request.Context(), id, caller, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newInterviewResponse(iv))
}

// ReportLink 返回面试报告 PDF 的限时下载链接。
func (h *InterviewHandler) ReportLink(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	caller, _ := callerFromContext(c)
	iv, err := h.interviews.Get(c.Request.Context(), id, caller)
	if err != nil {
		respondError(c, err)
		return
	}
	if iv.ReportObjectKey == "" || h.reports == nil {
		Conflict(c, "report not ready")
		return
	}

	fileName := fmt.Sprintf("interview-%d-report.pdf", iv.ID)
	url, err := h.reports.PresignDownload(c.Request.Context(), iv.ReportObjectKey, reportLinkTTL, fileName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "expires_in": int(reportLinkTTL.Seconds())})
}

// RegenerateReport 重新生成报告，异步执行并立即返回 202。
func (h *InterviewHandler) RegenerateReport(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	caller, _ := callerFromContext(c)
	iv, err := h.interviews.Get(c.Request.Context(), id, caller)
	if err != nil {
		respondError(c, err)
		return
	}
	if iv.CompletedAt == nil {
		Conflict(c, "interview not completed")
		return
	}
	info, err := h.enqueueReport(c, iv.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"message": "report generation request accepted",
		"task_id": info.ID,
	})
}

func (h *InterviewHandler) enqueueReport(c *gin.Context, interviewID uint) (*asynq.TaskInfo, error) {
	if h.enqueuer == nil {
		return nil, errors.New("report queue unavailable")
	}
	task, err := tasks.NewReportGenerateTask(interviewID, middleware.GetCorrelationID(c))
	if err != nil {
		return nil, fmt.Errorf("create report task: %w", err)
	}
	info, err := h.enqueuer.EnqueueContext(c.Request.Context(), task)
	if err != nil {
		return nil, fmt.Errorf("enqueue report task: %w", err)
	}
	return info, nil
}

// enqueueReportAfterCompletion 面试结束后生成报告；入队失败只记录日志，不影响结束结果。
func (h *InterviewHandler) enqueueReportAfterCompletion(c *gin.Context, interviewID uint) {
	if h.enqueuer == nil {
		return
	}
	if _, err := h.enqueueReport(c, interviewID); err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
		middleware.LoggerFromContext(c).Warn("enqueue interview report failed",
			slog.Uint64("interview_id", uint64(interviewID)),
			slog.Any("error", err),
		)
	}
}
