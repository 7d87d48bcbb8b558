package api

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"hireLoop/internal/api/middleware"
	"hireLoop/internal/interview"
)

var errInvalidID = errors.New("invalid id")

func userIDFromContext(c *gin.Context) (uint, bool) {
	value, exists := c.Get(middleware.UserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, v != 0
	case int:
		if v <= 0 {
			return 0, false
		}
		return uint(v), true
	case uint64:
		return uint(v), v != 0
	default:
		return 0, false
	}
}

// callerFromContext 组装当前调用方：登录用户或持有面试访问令牌的匿名候选人。
func callerFromContext(c *gin.Context) (interview.Caller, bool) {
	if userID, ok := userIDFromContext(c); ok {
		return interview.Caller{UserID: userID, Role: c.GetString(middleware.RoleKey)}, true
	}
	if token := c.GetString(middleware.InterviewTokenKey); token != "" {
		return interview.Caller{AccessToken: token}, true
	}
	return interview.Caller{}, false
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errInvalidID
	}
	return uint(id), nil
}

// idParam 解析路径参数 :id，失败时写 400 并返回 false。
func idParam(c *gin.Context) (uint, bool) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}
