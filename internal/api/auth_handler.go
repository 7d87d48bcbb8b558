package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"hireLoop/internal/api/middleware"
	"hireLoop/internal/auth"
	"hireLoop/internal/database"
)

const refreshTokenCookieName = "refresh_token"

// AuthHandler 处理注册、登录、令牌刷新、退出与改密。
type AuthHandler struct {
	db           *gorm.DB
	authService  *auth.AuthService
	sessions     SessionStore
	logger       *slog.Logger
	cookieDomain string
}

// NewAuthHandler 构造认证处理器。
func NewAuthHandler(db *gorm.DB, authService *auth.AuthService, sessions SessionStore, logger *slog.Logger, cookieDomain string) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		db:           db,
		authService:  authService,
		sessions:     sessions,
		logger:       logger,
		cookieDomain: strings.TrimSpace(cookieDomain),
	}
}

type registerRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=64"`
	Password    string `json:"password" binding:"required,min=8,max=72"`
	Role        string `json:"role" binding:"required,oneof=candidate company"`
	DisplayName string `json:"display_name" binding:"max=128"`
	CompanyName string `json:"company_name" binding:"max=255"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required,min=8,max=72"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=NewPassword"`
}

type tokenResponse struct {
	AccessToken        string          `json:"access_token"`
	TokenType          string          `json:"token_type"`
	ExpiresIn          int             `json:"expires_in"`
	MustChangePassword bool            `json:"must_change_password"`
	User               profileResponse `json:"user"`
}

type profileResponse struct {
	ID                 uint   `json:"id"`
	Username           string `json:"username"`
	Role               string `json:"role"`
	DisplayName        string `json:"display_name,omitempty"`
	CompanyName        string `json:"company_name,omitempty"`
	MustChangePassword bool   `json:"must_change_password"`
}

func newProfile(u database.User) profileResponse {
	return profileResponse{
		ID:                 u.ID,
		Username:           u.Username,
		Role:               u.Role,
		DisplayName:        u.DisplayName,
		CompanyName:        u.CompanyName,
		MustChangePassword: u.MustChangePassword,
	}
}

// Register 创建候选人或企业账号。管理员账号只能通过 cmd/admin 创建。
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.CompanyName = strings.TrimSpace(req.CompanyName)
	if err := auth.CheckPasswordStrength(req.Password); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if req.Role == database.RoleCompany && req.CompanyName == "" {
		BadRequest(c, "company_name is required for company accounts")
		return
	}

	ctx := c.Request.Context()
	logger := h.log(c).With(slog.String("username", req.Username), slog.String("role", req.Role))

	hashed, err := h.authService.HashPassword(req.Password)
	if err != nil {
		logger.Error("hash password failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	user := database.User{
		Username:     req.Username,
		PasswordHash: hashed,
		Role:         req.Role,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		CompanyName:  req.CompanyName,
	}
	// username 唯一索引兜底并发注册。
	if err := h.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			logger.Info("register conflict: username taken")
			Conflict(c, "username already taken")
			return
		}
		logger.Error("create user failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logger.Info("user registered", slog.Uint64("user_id", uint64(user.ID)))
	c.JSON(http.StatusCreated, newProfile(user))
}

// Login 校验口令并签发令牌对。
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	username := strings.TrimSpace(req.Username)
	logger := h.log(c).With(slog.String("username", username))

	if err := h.sessions.CheckLogin(ctx, c.ClientIP(), username); err != nil {
		logger.Warn("login refused", slog.Any("error", err))
		Error(c, http.StatusTooManyRequests, err.Error())
		return
	}

	var user database.User
	err := h.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("login query failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	if err != nil || !h.authService.CheckPasswordHash(req.Password, user.PasswordHash) {
		logger.Info("login failed")
		if ferr := h.sessions.LoginFailed(ctx, username); ferr != nil {
			logger.Warn("record login failure failed", slog.Any("error", ferr))
		}
		Unauthorized(c)
		return
	}

	if err := h.sessions.LoginSucceeded(ctx, username); err != nil {
		logger.Warn("clear login failures failed", slog.Any("error", err))
	}
	h.issueTokens(c, user)
}

// Refresh 轮换刷新令牌：旧令牌吊销后签发新的令牌对。
func (h *AuthHandler) Refresh(c *gin.Context) {
	claims, ok := h.liveRefreshClaims(c)
	if !ok {
		Unauthorized(c)
		return
	}
	ctx := c.Request.Context()
	logger := h.log(c).With(slog.Uint64("user_id", uint64(claims.UserID)))

	var user database.User
	if err := h.db.WithContext(ctx).First(&user, claims.UserID).Error; err != nil {
		logger.Info("refresh user not found", slog.Any("error", err))
		Unauthorized(c)
		return
	}
	if err := h.sessions.Revoke(ctx, claims.ID, expiresAt(claims, h.authService.RefreshTokenTTL())); err != nil {
		logger.Error("revoke rotated refresh token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	h.issueTokens(c, user)
}

// Logout 吊销刷新令牌并清除 Cookie。
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := h.liveRefreshClaims(c)
	if !ok {
		Unauthorized(c)
		return
	}
	if err := h.sessions.Revoke(c.Request.Context(), claims.ID, expiresAt(claims, h.authService.RefreshTokenTTL())); err != nil {
		h.log(c).Error("logout revoke failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	h.writeRefreshCookie(c, "", -1)
	c.Status(http.StatusOK)
}

// ChangePassword 校验当前密码后更新，并吊销当前刷新令牌。
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	ctx := c.Request.Context()
	logger := h.log(c).With(slog.Uint64("user_id", uint64(userID)))

	var user database.User
	if err := h.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		Unauthorized(c)
		return
	}
	if !h.authService.CheckPasswordHash(req.CurrentPassword, user.PasswordHash) {
		logger.Info("change password: current password mismatch")
		Unauthorized(c)
		return
	}
	if req.NewPassword == req.CurrentPassword {
		BadRequest(c, "new password must be different from current password")
		return
	}
	if err := auth.CheckPasswordStrength(req.NewPassword); err != nil {
		BadRequest(c, err.Error())
		return
	}

	hashed, err := h.authService.HashPassword(req.NewPassword)
	if err != nil {
		logger.Error("change password: hash failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	if err := h.db.WithContext(ctx).Model(&user).Updates(map[string]any{
		"password_hash":        hashed,
		"must_change_password": false,
	}).Error; err != nil {
		logger.Error("change password: update failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	user.MustChangePassword = false

	if claims, ok := h.liveRefreshClaims(c); ok {
		if err := h.sessions.Revoke(ctx, claims.ID, expiresAt(claims, h.authService.RefreshTokenTTL())); err != nil {
			logger.Warn("change password: revoke refresh failed", slog.Any("error", err))
		}
	}
	logger.Info("password changed")
	h.issueTokens(c, user)
}

// Me 返回当前登录用户的资料。
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	var user database.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			Unauthorized(c)
			return
		}
		h.log(c).Error("load profile failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	c.JSON(http.StatusOK, newProfile(user))
}

func (h *AuthHandler) issueTokens(c *gin.Context, user database.User) {
	pair, err := h.authService.GenerateTokenPair(user.ID, user.Role, user.MustChangePassword)
	if err != nil {
		h.log(c).Error("generate token pair failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	maxAge := int(h.authService.RefreshTokenTTL().Seconds())
	if maxAge <= 0 {
		maxAge = int(time.Hour.Seconds())
	}
	h.writeRefreshCookie(c, pair.RefreshToken, maxAge)
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:        pair.AccessToken,
		TokenType:          "Bearer",
		ExpiresIn:          int(h.authService.AccessTokenTTL().Seconds()),
		MustChangePassword: user.MustChangePassword,
		User:               newProfile(user),
	})
}

// liveRefreshClaims 从 Cookie 或请求体取刷新令牌，校验类型、jti 与吊销状态。
func (h *AuthHandler) liveRefreshClaims(c *gin.Context) (*auth.TokenClaims, bool) {
	raw, err := c.Cookie(refreshTokenCookieName)
	if err != nil || raw == "" {
		var req refreshRequest
		if c.ShouldBindJSON(&req) == nil {
			raw = req.RefreshToken
		}
	}
	if raw == "" {
		return nil, false
	}

	logger := h.log(c)
	claims, err := h.authService.ValidateToken(raw)
	if err != nil || claims.TokenType != auth.TokenTypeRefresh || claims.ID == "" {
		logger.Info("refresh token rejected", slog.Any("error", err))
		return nil, false
	}
	revoked, err := h.sessions.Revoked(c.Request.Context(), claims.ID)
	if err != nil {
		logger.Error("refresh revocation lookup failed", slog.Any("error", err))
		return nil, false
	}
	if revoked {
		logger.Info("refresh token revoked", slog.String("jti", claims.ID))
		return nil, false
	}
	return claims, true
}

func expiresAt(claims *auth.TokenClaims, fallback time.Duration) time.Time {
	if claims.ExpiresAt == nil {
		return time.Now().Add(fallback)
	}
	return claims.ExpiresAt.Time
}

func (h *AuthHandler) writeRefreshCookie(c *gin.Context, value string, maxAge int) {
	secure := c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https")
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     refreshTokenCookieName,
		Value:    value,
		MaxAge:   maxAge,
		Path:     "/v1/auth",
		Domain:   h.cookieDomain,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) log(c *gin.Context) *slog.Logger {
	if logger := middleware.LoggerFromContext(c); logger != nil {
		return logger
	}
	return h.logger
}
