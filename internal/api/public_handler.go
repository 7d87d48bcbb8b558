package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"hireLoop/internal/api/middleware"
	"hireLoop/internal/position"
)

// ValidateLink 校验公开链接并返回职位概要。
func (h *InterviewHandler) ValidateLink(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		BadRequest(c, "missing token")
		return
	}
	summary, err := h.registry.ValidateLink(c.Request.Context(), token)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

type publicStartRequest struct {
	Token string `json:"token" binding:"required"`
	Name  string `json:"name" binding:"required,max=128"`
	Email string `json:"email" binding:"required,email,max=255"`
}

// StartPublic 通过公开链接匿名开始面试。
// 响应中的 interview_token 只对这场面试有效，后续答题放在 X-Interview-Token 头中。
func (h *InterviewHandler) StartPublic(c *gin.Context) {
	var req publicStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()

	iv, err := h.registry.StartPublic(ctx, req.Token, position.Candidate{Name: req.Name, Email: req.Email})
	if err != nil {
		respondError(c, err)
		return
	}
	first, err := h.interviews.NextQuestion(ctx, iv.ID, 0)
	if err != nil {
		respondError(c, err)
		return
	}

	middleware.LoggerFromContext(c).Info("public interview started",
		slog.Uint64("interview_id", uint64(iv.ID)),
		slog.Uint64("position_id", uint64(iv.PositionID)),
	)
	c.JSON(http.StatusCreated, gin.H{
		"interview_id":    iv.ID,
		"interview_token": iv.AccessToken,
		"first_question":  first,
		"token_header":    middleware.InterviewTokenHeader,
	})
}
