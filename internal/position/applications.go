package position

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"hireLoop/internal/database"
	"hireLoop/internal/interview"
)

var applicationStatuses = map[string]bool{
	database.ApplicationPending:   true,
	database.ApplicationScheduled: true,
	database.ApplicationAccepted:  true,
	database.ApplicationRejected:  true,
}

// Apply 创建投递及其面试，二者在同一事务中写入。
func (r *Registry) Apply(ctx context.Context, candidateID, positionID uint) (*database.Application, *database.Interview, error) {
	var (
		app database.Application
		iv  database.Interview
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pos database.Position
		if err := tx.First(&pos, positionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("load position: %w", err)
		}
		if !acceptsApplications(&pos, r.now()) {
			return ErrPositionClosed
		}

		var existing int64
		if err := tx.Model(&database.Application{}).
			Where("candidate_id = ? AND position_id = ?", candidateID, positionID).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("check application: %w", err)
		}
		if existing > 0 {
			return ErrDuplicateApplication
		}

		app = database.Application{
			CandidateID: candidateID,
			PositionID:  positionID,
			Status:      database.ApplicationPending,
		}
		if err := tx.Create(&app).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateApplication
			}
			return fmt.Errorf("create application: %w", err)
		}

		iv = database.Interview{
			PositionID:    positionID,
			CandidateID:   &candidateID,
			ApplicationID: &app.ID,
			Status:        database.InterviewPending,
		}
		if err := tx.Create(&iv).Error; err != nil {
			return fmt.Errorf("create interview: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	r.logger.Info("application created",
		slog.Uint64("application_id", uint64(app.ID)),
		slog.Uint64("interview_id", uint64(iv.ID)),
		slog.Uint64("position_id", uint64(positionID)),
	)
	return &app, &iv, nil
}

// SetApplicationStatus 修改投递状态；排期时同步把待开始的面试标记为 scheduled。
func (r *Registry) SetApplicationStatus(ctx context.Context, applicationID uint, caller interview.Caller, status string) (*database.Application, error) {
	if !applicationStatuses[status] {
		return nil, ErrInvalidApplicationStatus
	}

	var app database.Application
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Position").First(&app, applicationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrApplicationNotFound
			}
			return fmt.Errorf("load application: %w", err)
		}
		if !ownsPosition(&app.Position, caller) {
			return ErrUnauthorized
		}
		if err := tx.Model(&app).Update("status", status).Error; err != nil {
			return fmt.Errorf("update application: %w", err)
		}
		if status != database.ApplicationScheduled {
			return nil
		}
		err := tx.Model(&database.Interview{}).
			Where("application_id = ? AND status = ?", app.ID, string(database.InterviewPending)).
			Updates(map[string]any{
				"status":  string(database.InterviewScheduled),
				"version": gorm.Expr("version + 1"),
			}).Error
		if err != nil {
			return fmt.Errorf("schedule interview: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// ListApplications 列出职位的投递（企业视角）。
func (r *Registry) ListApplications(ctx context.Context, positionID uint, caller interview.Caller) ([]database.Application, error) {
	if _, err := r.owned(ctx, positionID, caller); err != nil {
		return nil, err
	}
	var out []database.Application
	err := r.db.WithContext(ctx).
		Preload("Candidate").
		Where("position_id = ?", positionID).
		Order("created_at DESC").Order("id DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return out, nil
}

// ListCandidateApplications 列出候选人自己的投递。
func (r *Registry) ListCandidateApplications(ctx context.Context, candidateID uint) ([]database.Application, error) {
	var out []database.Application
	err := r.db.WithContext(ctx).
		Preload("Position").
		Where("candidate_id = ?", candidateID).
		Order("created_at DESC").Order("id DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list candidate applications: %w", err)
	}
	return out, nil
}

// HasApplied 判断候选人是否投递过该企业的任一职位。
func (r *Registry) HasApplied(ctx context.Context, candidateID, companyID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&database.Application{}).
		Joins("JOIN positions ON positions.id = applications.position_id").
		Where("applications.candidate_id = ? AND positions.company_id = ?", candidateID, companyID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check applications: %w", err)
	}
	return n > 0, nil
}

// Counts 是职位看板的统计数据。
type Counts struct {
	Applications int64            `json:"applications"`
	Interviews   int64            `json:"interviews"`
	ByStatus     map[string]int64 `json:"by_status"`
}

// CountsByPosition 统计投递数、面试数以及各状态的面试数。
func (r *Registry) CountsByPosition(ctx context.Context, positionID uint, caller interview.Caller) (*Counts, error) {
	if _, err := r.owned(ctx, positionID, caller); err != nil {
		return nil, err
	}
	db := r.db.WithContext(ctx)
	out := &Counts{ByStatus: map[string]int64{}}
	if err := db.Model(&database.Application{}).Where("position_id = ?", positionID).Count(&out.Applications).Error; err != nil {
		return nil, fmt.Errorf("count applications: %w", err)
	}

	var rows []struct {
		Status string
		N      int64
	}
	err := db.Model(&database.Interview{}).
		Select("status, COUNT(*) AS n").
		Where("position_id = ?", positionID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count interviews: %w", err)
	}
	for _, row := range rows {
		out.ByStatus[row.Status] = row.N
		out.Interviews += row.N
	}
	return out, nil
}
