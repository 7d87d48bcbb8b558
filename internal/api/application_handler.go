package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"hireLoop/internal/api/middleware"
	"hireLoop/internal/position"
)

// ApplicationHandler 处理候选人投递。
type ApplicationHandler struct {
	registry *position.Registry
}

func NewApplicationHandler(registry *position.Registry) *ApplicationHandler {
	return &ApplicationHandler{registry: registry}
}

type applyRequest struct {
	PositionID uint `json:"position_id" binding:"required"`
}

// Apply 投递职位，同时创建一场待开始的面试。
func (h *ApplicationHandler) Apply(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	var req applyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	app, iv, err := h.registry.Apply(c.Request.Context(), userID, req.PositionID)
	if err != nil {
		respondError(c, err)
		return
	}

	middleware.LoggerFromContext(c).Info("application created",
		slog.Uint64("application_id", uint64(app.ID)),
		slog.Uint64("position_id", uint64(req.PositionID)),
	)
	c.JSON(http.StatusCreated, gin.H{
		"application_id": app.ID,
		"interview_id":   iv.ID,
	})
}

// Mine 列出当前候选人的投递。
func (h *ApplicationHandler) Mine(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	apps, err := h.registry.ListCandidateApplications(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	items := make([]applicationResponse, 0, len(apps))
	for i := range apps {
		items = append(items, newApplicationResponse(&apps[i]))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SetStatus 由所属企业修改投递状态。
func (h *ApplicationHandler) SetStatus(c *gin.Context) {
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
	app, err := h.registry.SetApplicationStatus(c.Request.Context(), id, caller, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newApplicationResponse(app))
}
