package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"hireLoop/internal/auth"
)

// 上下文键。
const (
	UserIDKey             = "userID"
	RoleKey               = "role"
	MustChangePasswordKey = "mustChangePassword"
	InterviewTokenKey     = "interviewToken"
)

// InterviewTokenHeader 携带公开面试开始时签发的访问令牌。
const InterviewTokenHeader = "X-Interview-Token"

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	raw := strings.TrimSpace(parts[1])
	return raw, raw != ""
}

func setClaims(c *gin.Context, claims *auth.TokenClaims) {
	c.Set(UserIDKey, claims.UserID)
	c.Set(RoleKey, claims.Role)
	c.Set(MustChangePasswordKey, claims.MustChangePassword)
}

// AuthMiddleware 校验访问令牌并将 userID、role 注入上下文。
func AuthMiddleware(authService *auth.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawToken, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c)
			return
		}

		claims, err := authService.ValidateToken(rawToken)
		if err != nil || claims.TokenType != auth.TokenTypeAccess {
			abortUnauthorized(c)
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// ParticipantMiddleware 用于面试答题接口：接受登录令牌，或公开面试的 X-Interview-Token。
// 两者都没有时返回 401。token 是否属于该面试由业务层校验。
func ParticipantMiddleware(authService *auth.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rawToken, ok := bearerToken(c); ok {
			claims, err := authService.ValidateToken(rawToken)
			if err != nil || claims.TokenType != auth.TokenTypeAccess {
				abortUnauthorized(c)
				return
			}
			setClaims(c, claims)
			c.Next()
			return
		}

		interviewToken := strings.TrimSpace(c.GetHeader(InterviewTokenHeader))
		if interviewToken == "" {
			abortUnauthorized(c)
			return
		}
		c.Set(InterviewTokenKey, interviewToken)
		c.Next()
	}
}

// RequireRole 只放行指定角色，管理员始终放行。
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(RoleKey)
		if role == "admin" {
			c.Next()
			return
		}
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

// RequirePasswordChanged 拦截 must_change_password 仍为 true 的访问令牌。
// 公开链接参与者没有该声明，直接放行。
func RequirePasswordChanged() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetBool(MustChangePasswordKey) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "password change required"})
			return
		}
		c.Next()
	}
}
