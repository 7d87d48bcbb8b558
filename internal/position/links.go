package position

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"hireLoop/internal/database"
	"hireLoop/internal/interview"
)

const linkTokenBytes = 32

// LinkSummary 是公开链接可见的职位概要。
type LinkSummary struct {
	Token         string    `json:"token"`
	PositionID    uint      `json:"position_id"`
	Title         string    `json:"title"`
	Department    string    `json:"department"`
	Description   string    `json:"description"`
	Requirements  []string  `json:"requirements"`
	CompanyName   string    `json:"company_name"`
	QuestionCount int       `json:"question_count"`
	Deadline      time.Time `json:"deadline"`
}

func newLinkToken() (string, error) {
	buf := make([]byte, linkTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate link token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func mintLink(tx *gorm.DB, pos *database.Position) (*database.InterviewLink, error) {
	token, err := newLinkToken()
	if err != nil {
		return nil, err
	}
	link := &database.InterviewLink{
		Token:      token,
		PositionID: pos.ID,
		CompanyID:  pos.CompanyID,
		Active:     true,
	}
	if err := tx.Create(link).Error; err != nil {
		return nil, fmt.Errorf("create interview link: %w", err)
	}
	return link, nil
}

// MintLink 为职位生成一条新的公开链接。
func (r *Registry) MintLink(ctx context.Context, positionID uint, caller interview.Caller) (*database.InterviewLink, error) {
	pos, err := r.owned(ctx, positionID, caller)
	if err != nil {
		return nil, err
	}
	return mintLink(r.db.WithContext(ctx), pos)
}

// DeactivateLink 停用链接并清除缓存。
func (r *Registry) DeactivateLink(ctx context.Context, token string, caller interview.Caller) error {
	link, err := r.findLink(ctx, token)
	if err != nil {
		return err
	}
	if caller.Role != database.RoleAdmin && (caller.Role != database.RoleCompany || link.CompanyID != caller.UserID) {
		return ErrUnauthorized
	}
	if err := r.db.WithContext(ctx).Model(link).Update("active", false).Error; err != nil {
		return fmt.Errorf("deactivate link: %w", err)
	}
	r.links.Remove(token)
	r.logger.Info("interview link deactivated", slog.Uint64("position_id", uint64(link.PositionID)))
	return nil
}

// ListLinks 列出职位的全部链接。
func (r *Registry) ListLinks(ctx context.Context, positionID uint, caller interview.Caller) ([]database.InterviewLink, error) {
	if _, err := r.owned(ctx, positionID, caller); err != nil {
		return nil, err
	}
	var out []database.InterviewLink
	if err := r.db.WithContext(ctx).Where("position_id = ?", positionID).Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	return out, nil
}

// ValidateLink 校验公开链接并返回职位概要，结果按 token 缓存。
func (r *Registry) ValidateLink(ctx context.Context, token string) (*LinkSummary, error) {
	if token == "" {
		return nil, ErrLinkNotFound
	}
	if s, ok := r.links.Get(token); ok {
		if !r.now().Before(s.Deadline) {
			r.links.Remove(token)
			return nil, ErrLinkInactive
		}
		return &s, nil
	}

	link, err := r.findLink(ctx, token)
	if err != nil {
		return nil, err
	}
	if !link.Active {
		return nil, ErrLinkInactive
	}
	pos, err := r.GetPosition(ctx, link.PositionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrLinkInactive
		}
		return nil, err
	}
	if !acceptsApplications(pos, r.now()) {
		return nil, ErrLinkInactive
	}

	var company database.User
	if err := r.db.WithContext(ctx).Limit(1).Find(&company, pos.CompanyID).Error; err != nil {
		return nil, fmt.Errorf("load company: %w", err)
	}
	name := company.CompanyName
	if name == "" {
		name = company.DisplayName
	}

	s := LinkSummary{
		Token:         token,
		PositionID:    pos.ID,
		Title:         pos.Title,
		Department:    pos.Department,
		Description:   pos.Description,
		Requirements:  pos.Requirements,
		CompanyName:   name,
		QuestionCount: len(interview.QuestionsFor(pos)),
		Deadline:      pos.Deadline,
	}
	r.links.Add(token, s)
	return &s, nil
}

// StartPublic 通过公开链接创建匿名面试并立即开始。
// 每场面试签发独立的 AccessToken，链接 token 只用于兑换，不能用来操作面试。
func (r *Registry) StartPublic(ctx context.Context, token string, who Candidate) (*database.Interview, error) {
	if err := who.validate(); err != nil {
		return nil, err
	}
	summary, err := r.ValidateLink(ctx, token)
	if err != nil {
		return nil, err
	}
	access, err := newLinkToken()
	if err != nil {
		return nil, err
	}

	iv := &database.Interview{
		PositionID:     summary.PositionID,
		CandidateName:  who.Name,
		CandidateEmail: who.Email,
		IsPublic:       true,
		LinkToken:      token,
		AccessToken:    access,
		Status:         database.InterviewPending,
	}
	if err := r.db.WithContext(ctx).Create(iv).Error; err != nil {
		return nil, fmt.Errorf("create public interview: %w", err)
	}

	started, err := r.interviews.Begin(ctx, iv.ID, interview.Caller{AccessToken: access})
	if err != nil {
		// 开始失败时不留下无人能继续的 pending 记录。
		if delErr := r.db.WithContext(context.WithoutCancel(ctx)).Unscoped().Delete(&database.Interview{}, iv.ID).Error; delErr != nil {
			r.logger.Error("remove unstarted public interview",
				slog.Uint64("interview_id", uint64(iv.ID)),
				slog.Any("error", delErr),
			)
		}
		return nil, err
	}
	r.logger.Info("public interview started",
		slog.Uint64("interview_id", uint64(started.ID)),
		slog.Uint64("position_id", uint64(summary.PositionID)),
	)
	return started, nil
}

func (r *Registry) findLink(ctx context.Context, token string) (*database.InterviewLink, error) {
	var link database.InterviewLink
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("load link: %w", err)
	}
	return &link, nil
}

func (r *Registry) evictPosition(ctx context.Context, positionID uint) {
	var tokens []string
	err := r.db.WithContext(ctx).Model(&database.InterviewLink{}).
		Where("position_id = ?", positionID).
		Pluck("token", &tokens).Error
	if err != nil {
		r.logger.Warn("link cache eviction failed, purging", slog.Any("error", err))
		r.links.Purge()
		return
	}
	for _, t := range tokens {
		r.links.Remove(t)
	}
}
