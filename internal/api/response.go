package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"hireLoop/internal/api/middleware"
	"hireLoop/internal/interview"
	"hireLoop/internal/position"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

func Unauthorized(c *gin.Context)           { Error(c, http.StatusUnauthorized, "unauthorized") }
func BadRequest(c *gin.Context, msg string) { Error(c, http.StatusBadRequest, msg) }
func Forbidden(c *gin.Context, msg string)  { Error(c, http.StatusForbidden, msg) }
func NotFound(c *gin.Context, msg string)   { Error(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string)   { Error(c, http.StatusConflict, msg) }
func Internal(c *gin.Context, msg string)   { Error(c, http.StatusInternalServerError, msg) }

// statusFor 把领域错误映射为 HTTP 状态码，未知错误返回 500。
func statusFor(err error) int {
	var verr *position.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, interview.ErrNotFound),
		errors.Is(err, position.ErrNotFound),
		errors.Is(err, position.ErrApplicationNotFound),
		errors.Is(err, position.ErrLinkNotFound):
		return http.StatusNotFound
	case errors.Is(err, interview.ErrUnauthorized),
		errors.Is(err, position.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, interview.ErrInvalidStatus),
		errors.Is(err, position.ErrInvalidApplicationStatus):
		return http.StatusBadRequest
	case errors.Is(err, interview.ErrInvalidState),
		errors.Is(err, interview.ErrExhaustedQuestions),
		errors.Is(err, position.ErrDuplicateApplication),
		errors.Is(err, position.ErrPositionClosed):
		return http.StatusConflict
	case errors.Is(err, position.ErrLinkInactive):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// respondError 写出领域错误。500 只返回通用信息，细节写日志。
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		middleware.LoggerFromContext(c).Error("request failed", slog.Any("error", err))
		_ = c.Error(err)
		Internal(c, "internal error")
		return
	}

	var verr *position.ValidationError
	if errors.As(err, &verr) {
		c.JSON(status, gin.H{"error": "validation failed", "fields": verr.Fields})
		return
	}
	Error(c, status, err.Error())
}
