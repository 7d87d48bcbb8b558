package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"hireLoop/internal/api/middleware"
	"hireLoop/internal/database"
	"hireLoop/internal/position"
)

const (
	maxResumeBytes = 10 << 20
	resumeLinkTTL  = 5 * time.Minute
)

var resumeContentTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// ResumeStore 是简历文件需要的对象存储能力。
type ResumeStore interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	PresignDownload(ctx context.Context, objectKey string, ttl time.Duration, fileName string) (string, error)
	DeleteObject(ctx context.Context, objectKey string) error
}

// ResumeHandler 负责候选人简历上传与下载链接。
type ResumeHandler struct {
	db       *gorm.DB
	storage  ResumeStore
	scanner  VirusScanner
	registry *position.Registry
}

// NewResumeHandler 构造 ResumeHandler。
func NewResumeHandler(db *gorm.DB, storage ResumeStore, scanner VirusScanner, registry *position.Registry) *ResumeHandler {
	return &ResumeHandler{db: db, storage: storage, scanner: scanner, registry: registry}
}

type resumeResponse struct {
	ID          uint      `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

func newResumeResponse(r database.Resume) resumeResponse {
	return resumeResponse{
		ID:          r.ID,
		FileName:    r.FileName,
		ContentType: r.ContentType,
		Size:        r.Size,
		CreatedAt:   r.CreatedAt,
	}
}

// resumeExt 返回允许的扩展名，文件名不合法时返回 false。
func resumeExt(fileName string) (string, bool) {
	ext := strings.ToLower(path.Ext(strings.TrimSpace(fileName)))
	_, ok := resumeContentTypes[ext]
	return ext, ok
}

func resumeObjectKey(userID uint, ext string) string {
	return fmt.Sprintf("resumes/%d/%s%s", userID, uuid.NewString(), ext)
}

// UploadResume 扫描病毒后把简历写入对象存储。
func (h *ResumeHandler) UploadResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	logger := middleware.LoggerFromContext(c).With(slog.Uint64("user_id", uint64(userID)))

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}
	if file.Size <= 0 || file.Size > maxResumeBytes {
		Error(c, http.StatusRequestEntityTooLarge, "resume must be between 1 byte and 10 MiB")
		return
	}
	ext, ok := resumeExt(file.Filename)
	if !ok {
		BadRequest(c, "resume must be a .pdf, .doc or .docx file")
		return
	}

	if err := h.scan(file); err != nil {
		if errors.Is(err, ErrMalicious) {
			logger.Warn("resume rejected by virus scan", slog.String("file_name", file.Filename))
			BadRequest(c, ErrMalicious.Error())
			return
		}
		logger.Error("scan resume failed", slog.Any("error", err))
		Internal(c, "failed to scan file")
		return
	}

	reader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open file")
		return
	}
	defer reader.Close()

	ctx := c.Request.Context()
	objectKey := resumeObjectKey(userID, ext)
	contentType := resumeContentTypes[ext]
	if err := h.storage.UploadFile(ctx, objectKey, reader, file.Size, contentType); err != nil {
		logger.Error("upload resume failed", slog.Any("error", err))
		Internal(c, "failed to upload file")
		return
	}

	resume := database.Resume{
		UserID:      userID,
		ObjectKey:   objectKey,
		FileName:    path.Base(file.Filename),
		ContentType: contentType,
		Size:        file.Size,
	}
	if err := h.db.WithContext(ctx).Create(&resume).Error; err != nil {
		logger.Error("create resume record failed", slog.Any("error", err))
		if delErr := h.storage.DeleteObject(ctx, objectKey); delErr != nil {
			logger.Error("cleanup orphan resume failed", slog.Any("error", delErr))
		}
		Internal(c, "internal error")
		return
	}

	logger.Info("resume uploaded", slog.Uint64("resume_id", uint64(resume.ID)))
	c.JSON(http.StatusCreated, newResumeResponse(resume))
}

func (h *ResumeHandler) scan(file *multipart.FileHeader) error {
	if h.scanner == nil {
		return nil
	}
	r, err := file.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer r.Close()
	return h.scanner.Scan(r)
}

// ListResumes 列出当前用户的简历。
func (h *ResumeHandler) ListResumes(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	var list []database.Resume
	if err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		Internal(c, "failed to list resumes")
		return
	}
	items := make([]resumeResponse, 0, len(list))
	for _, r := range list {
		items = append(items, newResumeResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetResumeLink 为简历签发限时下载链接。本人、管理员或候选人投递过的企业可以下载。
func (h *ResumeHandler) GetResumeLink(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	caller, _ := callerFromContext(c)
	ctx := c.Request.Context()

	var resume database.Resume
	if err := h.db.WithContext(ctx).First(&resume, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "resume not found")
			return
		}
		Internal(c, "failed to query resume")
		return
	}

	allowed := resume.UserID == caller.UserID || caller.Role == database.RoleAdmin
	if !allowed && caller.Role == database.RoleCompany {
		applied, err := h.registry.HasApplied(ctx, resume.UserID, caller.UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		allowed = applied
	}
	if !allowed {
		// 对无权访问者隐藏简历是否存在。
		NotFound(c, "resume not found")
		return
	}

	url, err := h.storage.PresignDownload(ctx, resume.ObjectKey, resumeLinkTTL, resume.FileName)
	if err != nil {
		Internal(c, "failed to generate download link")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// DeleteResume 删除本人的简历记录与文件。
func (h *ResumeHandler) DeleteResume(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	ctx := c.Request.Context()

	var resume database.Resume
	if err := h.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&resume).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "resume not found")
			return
		}
		Internal(c, "failed to query resume")
		return
	}
	if err := h.storage.DeleteObject(ctx, resume.ObjectKey); err != nil {
		Internal(c, "failed to delete file")
		return
	}
	if err := h.db.WithContext(ctx).Delete(&resume).Error; err != nil {
		Internal(c, "failed to delete resume")
		return
	}
	c.Status(http.StatusNoContent)
}
