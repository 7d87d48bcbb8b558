package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"hireLoop/internal/api/middleware"
	"hireLoop/internal/auth"
	"hireLoop/internal/config"
	"hireLoop/internal/database"
	"hireLoop/internal/interview"
	"hireLoop/internal/position"
)

// Deps 汇总注册路由所需的依赖。
type Deps struct {
	Config      *config.Config
	DB          *gorm.DB
	Redis       redis.UniversalClient
	Logger      *slog.Logger
	Auth        *auth.AuthService
	Sessions    SessionStore
	Interviews  *interview.Manager
	Registry    *position.Registry
	Enqueuer    TaskEnqueuer
	Storage     ResumeStore
	ReportLinks ReportLinker
	Scanner     VirusScanner
}

// RegisterRoutes 注册 /v1 下的全部 API 路由。
func RegisterRoutes(router *gin.Engine, d Deps) {
	apiCfg := d.Config.API
	authHandler := NewAuthHandler(d.DB, d.Auth, d.Sessions, d.Logger, apiCfg.CookieDomain)
	wsHandler := NewWsHandler(d.Redis, d.Auth, d.Logger, apiCfg.Origins())
	positionHandler := NewPositionHandler(d.DB, d.Registry, d.Interviews, apiCfg.BaseURL)
	applicationHandler := NewApplicationHandler(d.Registry)
	interviewHandler := NewInterviewHandler(d.Interviews, d.Registry, d.Enqueuer, d.ReportLinks)
	resumeHandler := NewResumeHandler(d.DB, d.Storage, d.Scanner, d.Registry)

	authMiddleware := middleware.AuthMiddleware(d.Auth)
	passwordGate := middleware.RequirePasswordChanged()
	company := middleware.RequireRole(database.RoleCompany)
	candidate := middleware.RequireRole(database.RoleCandidate)

	v1 := router.Group("/v1")
	v1.GET("/ws", wsHandler.HandleConnection)

	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authMiddleware, authHandler.Logout)
		authGroup.POST("/change-password", authMiddleware, authHandler.ChangePassword)
		authGroup.GET("/me", authMiddleware, authHandler.Me)
	}

	public := v1.Group("/interview/public")
	{
		public.GET("/validate", interviewHandler.ValidateLink)
		public.POST("/start", interviewHandler.StartPublic)
	}

	// 面试过程既接受登录用户，也接受公开链接的 X-Interview-Token。
	flow := v1.Group("/interview")
	flow.Use(middleware.ParticipantMiddleware(d.Auth), passwordGate)
	{
		flow.POST("/next-question", interviewHandler.NextQuestion)
		flow.POST("/answer", interviewHandler.SubmitAnswer)
		flow.POST("/end", interviewHandler.EndInterview)
	}

	authed := v1.Group("")
	authed.Use(authMiddleware, passwordGate)

	positions := authed.Group("/positions")
	{
		positions.GET("", positionHandler.ListPositions)
		positions.GET("/:id", positionHandler.GetPosition)
		positions.POST("", company, positionHandler.CreatePosition)
		positions.PUT("/:id", company, positionHandler.UpdatePosition)
		positions.POST("/:id/close", company, positionHandler.ClosePosition)
		positions.GET("/:id/counts", company, positionHandler.Counts)
		positions.GET("/:id/applications", company, positionHandler.ListApplications)
		positions.GET("/:id/interviews", company, positionHandler.ListInterviews)
		positions.GET("/:id/results.xlsx", company, positionHandler.ExportResults)
		positions.POST("/:id/links", company, positionHandler.MintLink)
		positions.GET("/:id/links", company, positionHandler.ListLinks)
	}
	authed.DELETE("/links/:token", company, positionHandler.DeactivateLink)

	applications := authed.Group("/applications")
	{
		applications.POST("", candidate, applicationHandler.Apply)
		applications.GET("/mine", candidate, applicationHandler.Mine)
		applications.PUT("/:id/status", company, applicationHandler.SetStatus)
	}

	interviews := authed.Group("/interviews")
	{
		interviews.GET("/:id", interviewHandler.GetInterview)
		interviews.POST("/:id/start", interviewHandler.StartInterview)
		interviews.POST("/:id/cancel", interviewHandler.CancelInterview)
		interviews.PUT("/:id/status", company, interviewHandler.SetStatus)
		interviews.GET("/:id/report-link", interviewHandler.ReportLink)
		interviews.POST("/:id/report", company, interviewHandler.RegenerateReport)
	}

	resumes := authed.Group("/resumes")
	{
		resumes.POST("", candidate, resumeHandler.UploadResume)
		resumes.GET("", candidate, resumeHandler.ListResumes)
		resumes.GET("/:id/link", resumeHandler.GetResumeLink)
		resumes.DELETE("/:id", candidate, resumeHandler.DeleteResume)
	}
}
