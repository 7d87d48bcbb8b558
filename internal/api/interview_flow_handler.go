package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hireLoop/internal/database"
	"hireLoop/internal/interview"
)

type transcriptMessage struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content"`
}

func toMessages(in []transcriptMessage) []database.Message {
	out := make([]database.Message, 0, len(in))
	for _, m := range in {
		out = append(out, database.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

type nextQuestionRequest struct {
	ID             uint                `json:"id" binding:"required"`
	Transcript     []transcriptMessage `json:"transcript" binding:"dive"`
	QuestionNumber *int                `json:"questionNumber" binding:"required,min=0"`
}

// NextQuestion 保存当前对话记录并返回第 questionNumber 题（从 0 开始）。
func (h *InterviewHandler) NextQuestion(c *gin.Context) {
	var req nextQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	caller, ok := callerFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	ctx := c.Request.Context()

	if _, err := h.interviews.Authorize(ctx, req.ID, caller); err != nil {
		respondError(c, err)
		return
	}
	if err := h.interviews.SaveTranscript(ctx, req.ID, toMessages(req.Transcript)); err != nil {
		respondError(c, err)
		return
	}

	q, err := h.interviews.NextQuestion(ctx, req.ID, *req.QuestionNumber)
	if err != nil {
		if errors.Is(err, interview.ErrExhaustedQuestions) {
			c.JSON(http.StatusOK, gin.H{"done": true})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

type answerRequest struct {
	ID             uint   `json:"id" binding:"required"`
	Question       string `json:"question"`
	Answer         string `json:"answer" binding:"required"`
	QuestionNumber *int   `json:"questionNumber" binding:"required,min=0"`
}

type feedbackResponse struct {
	Score          *float64          `json:"score"`
	Percent        *float64          `json:"percent,omitempty"`
	Strengths      []string          `json:"strengths"`
	Weaknesses     []string          `json:"weaknesses"`
	Summary        string            `json:"summary"`
	Recommendation string            `json:"recommendation"`
	Ratings        *database.Ratings `json:"ratings,omitempty"`
	Warning        string            `json:"warning,omitempty"`
}

func newFeedbackResponse(res *interview.CompleteResult) feedbackResponse {
	out := feedbackResponse{
		Score:      res.Score,
		Strengths:  []string{},
		Weaknesses: []string{},
	}
	if res.Score != nil {
		p := interview.Percent(*res.Score)
		out.Percent = &p
	}
	if fb := res.Feedback; fb != nil {
		if fb.Strengths != nil {
			out.Strengths = fb.Strengths
		}
		if fb.Weaknesses != nil {
			out.Weaknesses = fb.Weaknesses
		}
		out.Summary = fb.Summary
		out.Recommendation = fb.Recommendation
		out.Ratings = fb.Ratings
	}
	if res.Warning != nil {
		out.Warning = res.Warning.Error()
	}
	return out
}

// SubmitAnswer 记录一题答案；答完最后一题时结束面试并返回整体评价。
func (h *InterviewHandler) SubmitAnswer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	caller, ok := callerFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	res, err := h.interviews.SubmitAnswer(c.Request.Context(), req.ID, caller, req.Question, req.Answer, *req.QuestionNumber, "")
	if err != nil {
		respondError(c, err)
		return
	}

	body := gin.H{
		"entry":    res.Answer.Entry,
		"answered": res.Answer.Answered,
		"total":    res.Answer.Total,
		"last":     res.Answer.Last,
	}
	switch {
	case res.Answer.ProviderErr != nil:
		body["warning"] = res.Answer.ProviderErr.Error()
	case res.Answer.Warning != nil:
		body["warning"] = res.Answer.Warning.Error()
	}
	if res.Completion != nil {
		body["completed"] = newFeedbackResponse(res.Completion)
		h.enqueueReportAfterCompletion(c, req.ID)
	}
	c.JSON(http.StatusOK, body)
}

type endRequest struct {
	ID         uint                `json:"id" binding:"required"`
	Transcript []transcriptMessage `json:"transcript" binding:"dive"`
}

// EndInterview 保存最终对话记录，结束面试并返回整体评价。
func (h *InterviewHandler) EndInterview(c *gin.Context) {
	var req endRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	caller, ok := callerFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	ctx := c.Request.Context()

	if _, err := h.interviews.Authorize(ctx, req.ID, caller); err != nil {
		respondError(c, err)
		return
	}
	if err := h.interviews.SaveTranscript(ctx, req.ID, toMessages(req.Transcript)); err != nil {
		respondError(c, err)
		return
	}

	res, err := h.interviews.Complete(ctx, req.ID, "")
	if err != nil {
		respondError(c, err)
		return
	}
	h.enqueueReportAfterCompletion(c, req.ID)
	c.JSON(http.StatusOK, newFeedbackResponse(res))
}
