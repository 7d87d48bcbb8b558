package position

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"gorm.io/gorm"

	"hireLoop/internal/ai"
	"hireLoop/internal/database"
	"hireLoop/internal/interview"
)

const linkCacheSize = 1024

// Registry 管理职位、投递与公开面试链接。
type Registry struct {
	db         *gorm.DB
	completer  ai.Completer
	interviews *interview.Manager
	logger     *slog.Logger
	links      *lru.Cache[string, LinkSummary]
	now        func() time.Time
}

// NewRegistry 构造 Registry。completer 可以为 nil，此时自动出题退回默认题库。
func NewRegistry(db *gorm.DB, completer ai.Completer, interviews *interview.Manager, logger *slog.Logger) (*Registry, error) {
	cache, err := lru.New[string, LinkSummary](linkCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create link cache: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		db:         db,
		completer:  completer,
		interviews: interviews,
		logger:     logger,
		links:      cache,
		now:        time.Now,
	}, nil
}

// CreateResult 是 CreatePosition 的结果。Warning 非空表示自动出题失败，已使用默认题库。
type CreateResult struct {
	Position *database.Position
	Link     *database.InterviewLink
	Warning  error
}

// CreatePosition 校验输入，按需生成面试题，并在同一事务中创建职位和公开链接。
func (r *Registry) CreatePosition(ctx context.Context, companyID uint, in Input) (*CreateResult, error) {
	if err := in.Validate(r.now()); err != nil {
		return nil, err
	}

	var warning error
	questions := in.Questions
	if in.GenerateQuestions && len(questions) == 0 {
		generated, err := r.generateQuestions(ctx, in)
		if err != nil {
			r.logger.Warn("question generation degraded, using default set",
				slog.String("title", in.Title),
				slog.Any("error", err),
			)
			warning = err
			generated = append([]string(nil), interview.DefaultQuestions...)
		}
		questions = generated
	}

	status := database.PositionActive
	if in.Draft {
		status = database.PositionDraft
	}
	pos := &database.Position{
		Title:              in.Title,
		Department:         in.Department,
		CompanyID:          companyID,
		Description:        in.Description,
		Requirements:       in.Requirements,
		Questions:          questions,
		ExperienceMinYears: in.ExperienceMinYears,
		ExperienceMaxYears: in.ExperienceMaxYears,
		SalaryMin:          in.SalaryMin,
		SalaryMax:          in.SalaryMax,
		Deadline:           in.Deadline,
		Status:             status,
	}

	var link *database.InterviewLink
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(pos).Error; err != nil {
			return fmt.Errorf("create position: %w", err)
		}
		l, err := mintLink(tx, pos)
		if err != nil {
			return err
		}
		link = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("position created",
		slog.Uint64("position_id", uint64(pos.ID)),
		slog.Uint64("company_id", uint64(companyID)),
		slog.Int("questions", len(questions)),
	)
	return &CreateResult{Position: pos, Link: link, Warning: warning}, nil
}

// UpdatePosition 修改职位内容，仅职位所属企业可调用。
func (r *Registry) UpdatePosition(ctx context.Context, id uint, caller interview.Caller, in Input) (*database.Position, error) {
	pos, err := r.owned(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	// 未提供题目时保留原题；截止时间未变时不做“必须在未来”的校验。
	if len(in.Questions) == 0 {
		in.Questions = pos.Questions
	}
	in.GenerateQuestions = false
	now := r.now()
	if in.Deadline.Equal(pos.Deadline) {
		now = time.Time{}
	}
	if err := in.Validate(now); err != nil {
		return nil, err
	}

	updates := map[string]any{
		"title":                in.Title,
		"department":           in.Department,
		"description":          in.Description,
		"requirements":         stringsValue(in.Requirements),
		"questions":            stringsValue(in.Questions),
		"experience_min_years": in.ExperienceMinYears,
		"experience_max_years": in.ExperienceMaxYears,
		"salary_min":           in.SalaryMin,
		"salary_max":           in.SalaryMax,
		"deadline":             in.Deadline,
	}
	if pos.Status == database.PositionDraft && !in.Draft {
		updates["status"] = database.PositionActive
	}
	if err := r.db.WithContext(ctx).Model(pos).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update position: %w", err)
	}
	r.evictPosition(ctx, pos.ID)
	return r.GetPosition(ctx, pos.ID)
}

// ClosePosition 手动关闭职位。
func (r *Registry) ClosePosition(ctx context.Context, id uint, caller interview.Caller) error {
	pos, err := r.owned(ctx, id, caller)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Model(pos).Update("status", database.PositionClosed).Error; err != nil {
		return fmt.Errorf("close position: %w", err)
	}
	r.evictPosition(ctx, pos.ID)
	r.logger.Info("position closed", slog.Uint64("position_id", uint64(pos.ID)))
	return nil
}

// GetPosition 按 ID 读取职位。
func (r *Registry) GetPosition(ctx context.Context, id uint) (*database.Position, error) {
	var pos database.Position
	if err := r.db.WithContext(ctx).First(&pos, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load position: %w", err)
	}
	return &pos, nil
}

// ListFilter 过滤职位列表。CompanyID 为 0 时不过滤企业。
type ListFilter struct {
	CompanyID     uint
	IncludeClosed bool
}

// ListPositions 列出职位，默认只返回 active。
func (r *Registry) ListPositions(ctx context.Context, f ListFilter) ([]database.Position, error) {
	q := r.db.WithContext(ctx).Model(&database.Position{})
	if f.CompanyID != 0 {
		q = q.Where("company_id = ?", f.CompanyID)
	}
	if !f.IncludeClosed {
		q = q.Where("status = ?", database.PositionActive)
	}
	var out []database.Position
	if err := q.Order("created_at DESC").Order("id DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	return out, nil
}

// CloseExpired 关闭截止时间已过的 active 职位，返回关闭数量。
func (r *Registry) CloseExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&database.Position{}).
		Where("status = ? AND deadline < ?", database.PositionActive, now).
		Update("status", database.PositionClosed)
	if res.Error != nil {
		return 0, fmt.Errorf("close expired positions: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		r.links.Purge()
		r.logger.Info("expired positions closed", slog.Int64("count", res.RowsAffected))
	}
	return res.RowsAffected, nil
}

// OwnedPosition 返回职位，调用方必须是所属企业或管理员。
func (r *Registry) OwnedPosition(ctx context.Context, id uint, caller interview.Caller) (*database.Position, error) {
	return r.owned(ctx, id, caller)
}

// owned 读取职位并校验调用方是否为所属企业或管理员。
func (r *Registry) owned(ctx context.Context, id uint, caller interview.Caller) (*database.Position, error) {
	pos, err := r.GetPosition(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ownsPosition(pos, caller) {
		return nil, ErrUnauthorized
	}
	return pos, nil
}

func ownsPosition(pos *database.Position, caller interview.Caller) bool {
	if caller.Role == database.RoleAdmin {
		return true
	}
	return caller.Role == database.RoleCompany && caller.UserID != 0 && pos.CompanyID == caller.UserID
}

func acceptsApplications(pos *database.Position, now time.Time) bool {
	return pos.Status == database.PositionActive && now.Before(pos.Deadline)
}
