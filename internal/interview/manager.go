package interview

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hireLoop/internal/ai"
	"hireLoop/internal/database"
	"hireLoop/internal/metrics"
)

// Caller 描述发起操作的一方：登录用户，或持有面试访问令牌的匿名候选人。
// AccessToken 是公开面试开始时为该场面试单独签发的令牌，不是链接 token。
type Caller struct {
	UserID      uint
	Role        string
	AccessToken string
}

func (c Caller) isAdmin() bool { return c.Role == database.RoleAdmin }

// Options 为 Manager 的可选配置。
type Options struct {
	// Policy 是 Complete 未指定策略时使用的默认策略。
	Policy Policy
	Now    func() time.Time
}

// Manager 负责面试生命周期：开始、出题、记录答案、评分与结束。
// completer 为 nil 时所有 AI 步骤都会降级为 ProviderError。
type Manager struct {
	db        *gorm.DB
	completer ai.Completer
	logger    *slog.Logger
	policy    Policy
	now       func() time.Time
}

// NewManager 构造 Manager。
func NewManager(db *gorm.DB, completer ai.Completer, logger *slog.Logger, opts Options) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Policy == "" {
		opts.Policy = PolicyMean
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		db:        db,
		completer: completer,
		logger:    logger,
		policy:    opts.Policy,
		now:       opts.Now,
	}
}

// DefaultPolicy 返回配置的默认计分策略。
func (m *Manager) DefaultPolicy() Policy { return m.policy }

// AnswerResult 是 RecordAnswer 的结果。ProviderErr 非空表示答案已保存但未评分。
// Warning 为 ErrScoreDiscarded 时评分已算出但没有写入，Entry 与存储一致、不带分数。
type AnswerResult struct {
	Entry       database.AnswerRecord
	Answered    int
	Total       int
	Last        bool
	ProviderErr error
	Warning     error
}

// CompleteResult 是 Complete 的结果。Warning 为 *PartialResultError 或 nil。
type CompleteResult struct {
	Interview *database.Interview
	Score     *float64
	Feedback  *database.Feedback
	Warning   error
}

// SubmitResult 组合了一次答题以及（最后一题时）面试结束的结果。
type SubmitResult struct {
	Answer     *AnswerResult
	Completion *CompleteResult
}

// Begin 将面试置为 in-progress。并发调用时只有一次能成功。
func (m *Manager) Begin(ctx context.Context, interviewID uint, caller Caller) (*database.Interview, error) {
	iv, err := m.mutate(ctx, interviewID, "begin interview", func(iv *database.Interview, _ *database.Position) (map[string]any, error) {
		if !canParticipate(iv, caller) {
			return nil, ErrUnauthorized
		}
		if !startable(iv) {
			return nil, fmt.Errorf("%w: cannot start interview in %s", ErrInvalidState, iv.Status)
		}
		return map[string]any{
			"status":     string(StatusInProgress),
			"is_started": true,
			"started_at": m.now(),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	metrics.ObserveTransition(string(StatusInProgress))
	m.logger.Info("interview started",
		slog.Uint64("interview_id", uint64(iv.ID)),
		slog.Bool("public", iv.IsPublic),
	)
	return iv, nil
}

// NextQuestion 返回 currentIndex 对应的问题并记录出题进度。
func (m *Manager) NextQuestion(ctx context.Context, interviewID uint, currentIndex int) (Question, error) {
	var q Question
	_, err := m.mutate(ctx, interviewID, "next question", func(iv *database.Interview, pos *database.Position) (map[string]any, error) {
		if iv.Status != StatusInProgress {
			return nil, fmt.Errorf("%w: interview is %s", ErrInvalidState, iv.Status)
		}
		questions := QuestionsFor(pos)
		if currentIndex < 0 || currentIndex >= len(questions) {
			return nil, ErrExhaustedQuestions
		}
		q = Question{
			Index:     currentIndex,
			Text:      questions[currentIndex],
			Total:     len(questions),
			Remaining: len(questions) - currentIndex - 1,
		}
		return map[string]any{
			"current_question":       q.Text,
			"current_question_index": currentIndex,
			"questions_asked":        max(iv.QuestionsAsked, currentIndex+1),
		}, nil
	})
	if err != nil {
		return Question{}, err
	}
	return q, nil
}

// RecordAnswer 保存答案后再调用 AI 评分。评分失败不会回滚已保存的答案。
func (m *Manager) RecordAnswer(ctx context.Context, interviewID uint, question, answer string, questionIndex int) (*AnswerResult, error) {
	var (
		entry database.AnswerRecord
		pos   database.Position
		res   AnswerResult
	)
	_, err := m.mutate(ctx, interviewID, "record answer", func(iv *database.Interview, p *database.Position) (map[string]any, error) {
		if iv.Status != StatusInProgress {
			return nil, fmt.Errorf("%w: interview is %s", ErrInvalidState, iv.Status)
		}
		questions := QuestionsFor(p)
		if questionIndex < 0 || questionIndex >= len(questions) {
			return nil, ErrExhaustedQuestions
		}
		if question == "" {
			question = questions[questionIndex]
		}
		entry = database.AnswerRecord{Index: questionIndex, Question: question, Answer: answer}
		answers := upsertAnswer(iv.Answers, entry)
		if len(answers) > len(questions) {
			return nil, ErrExhaustedQuestions
		}
		pos = *p
		res.Answered = len(answers)
		res.Total = len(questions)
		res.Last = res.Answered == res.Total
		return map[string]any{"answers": answersValue(answers)}, nil
	})
	if err != nil {
		return nil, err
	}

	log := m.logger.With(
		slog.Uint64("interview_id", uint64(interviewID)),
		slog.Int("question_index", questionIndex),
	)

	scored, provErr := m.scoreAnswer(ctx, &pos, entry)
	if provErr != nil {
		log.Warn("answer scoring degraded", slog.Any("error", provErr))
		metrics.ObserveProviderDegraded("score answer")
		res.Entry = entry
		res.ProviderErr = provErr
		return &res, nil
	}

	attached := false
	_, err = m.mutate(ctx, interviewID, "attach answer score", func(iv *database.Interview, _ *database.Position) (map[string]any, error) {
		attached = false
		if iv.Status != StatusInProgress {
			return nil, nil
		}
		answers := make([]database.AnswerRecord, len(iv.Answers))
		copy(answers, iv.Answers)
		for i := range answers {
			// 同一题已被重新作答时不覆盖新答案。
			if answers[i].Index == scored.Index && answers[i].Answer == scored.Answer {
				answers[i] = scored
				attached = true
				return map[string]any{"answers": answersValue(answers)}, nil
			}
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	if !attached {
		log.Warn("answer score discarded", slog.Int("score", *scored.Score))
		res.Entry = entry
		res.Warning = ErrScoreDiscarded
		return &res, nil
	}
	res.Entry = scored
	log.Info("answer recorded", slog.Int("score", *scored.Score))
	return &res, nil
}

// SubmitAnswer 校验调用方并记录答案；答完最后一题时自动结束面试。
func (m *Manager) SubmitAnswer(ctx context.Context, interviewID uint, caller Caller, question, answer string, questionIndex int, policy Policy) (*SubmitResult, error) {
	if _, err := m.Authorize(ctx, interviewID, caller); err != nil {
		return nil, err
	}
	ans, err := m.RecordAnswer(ctx, interviewID, question, answer, questionIndex)
	if err != nil {
		return nil, err
	}
	out := &SubmitResult{Answer: ans}
	if !ans.Last {
		return out, nil
	}
	done, err := m.Complete(ctx, interviewID, policy)
	if err != nil {
		return nil, err
	}
	out.Completion = done
	return out, nil
}

// Complete 汇总得分并生成整体评价，把面试置为 completed。
func (m *Manager) Complete(ctx context.Context, interviewID uint, policy Policy) (*CompleteResult, error) {
	if policy == "" {
		policy = m.policy
	}
	iv, pos, err := m.load(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	if iv.Status != StatusInProgress {
		return nil, fmt.Errorf("%w: interview is %s", ErrInvalidState, iv.Status)
	}
	transcript, err := m.Transcript(ctx, interviewID)
	if err != nil {
		return nil, err
	}

	log := m.logger.With(slog.Uint64("interview_id", uint64(interviewID)), slog.String("policy", string(policy)))

	var warning error
	feedback, provErr := m.summarize(ctx, pos, iv.Answers, transcript)
	if provErr != nil {
		log.Warn("interview summary degraded", slog.Any("error", provErr))
		metrics.ObserveProviderDegraded("summarize interview")
		warning = &PartialResultError{Reason: "summary unavailable", Err: provErr}
	}

	var score *float64
	switch {
	case policy == PolicyRubric && feedback != nil && feedback.Ratings != nil:
		v := Weighted(*feedback.Ratings)
		score = &v
	default:
		if policy == PolicyRubric && warning == nil {
			warning = &PartialResultError{Reason: "rubric ratings missing, used mean"}
		}
		if v, ok := Mean(iv.Answers); ok {
			score = &v
		} else if warning == nil {
			warning = &PartialResultError{Reason: "no scored answers"}
		}
	}

	updated, err := m.mutate(ctx, interviewID, "complete interview", func(cur *database.Interview, _ *database.Position) (map[string]any, error) {
		if cur.Status != StatusInProgress {
			return nil, fmt.Errorf("%w: interview is %s", ErrInvalidState, cur.Status)
		}
		updates := map[string]any{
			"status":         string(StatusCompleted),
			"completed_at":   m.now(),
			"scoring_policy": string(policy),
			"score":          score,
		}
		if feedback != nil {
			updates["feedback"] = feedbackValue(feedback)
		}
		return updates, nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ObserveTransition(string(StatusCompleted))
	attrs := []any{slog.Int("answers", len(updated.Answers))}
	if score != nil {
		metrics.ObserveScore(string(policy), *score)
		attrs = append(attrs, slog.Float64("score", *score))
	}
	log.Info("interview completed", attrs...)

	return &CompleteResult{
		Interview: updated,
		Score:     score,
		Feedback:  feedback,
		Warning:   warning,
	}, nil
}

// Cancel 取消尚未开始的面试。
func (m *Manager) Cancel(ctx context.Context, interviewID uint, caller Caller) (*database.Interview, error) {
	iv, err := m.mutate(ctx, interviewID, "cancel interview", func(iv *database.Interview, pos *database.Position) (map[string]any, error) {
		if !canParticipate(iv, caller) && !canManage(pos, caller) {
			return nil, ErrUnauthorized
		}
		if !cancellable(iv.Status) {
			return nil, fmt.Errorf("%w: cannot cancel interview in %s", ErrInvalidState, iv.Status)
		}
		return map[string]any{"status": string(StatusCancelled)}, nil
	})
	if err != nil {
		return nil, err
	}
	metrics.ObserveTransition(string(StatusCancelled))
	m.logger.Info("interview cancelled", slog.Uint64("interview_id", uint64(iv.ID)))
	return iv, nil
}

// SetStatus 是企业或管理员的人工改状态，不做顺序校验。
func (m *Manager) SetStatus(ctx context.Context, interviewID uint, caller Caller, raw string) (*database.Interview, error) {
	next, err := ParseStatus(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q (want one of %s)", ErrInvalidStatus, raw, statusNames())
	}

	var prev Status
	iv, err := m.mutate(ctx, interviewID, "set interview status", func(iv *database.Interview, pos *database.Position) (map[string]any, error) {
		if !canManage(pos, caller) {
			return nil, ErrUnauthorized
		}
		prev = iv.Status
		updates := map[string]any{"status": string(next)}
		now := m.now()
		if next == StatusInProgress && iv.StartedAt == nil {
			updates["is_started"] = true
			updates["started_at"] = now
		}
		if next == StatusCompleted && iv.CompletedAt == nil {
			updates["completed_at"] = now
		}
		return updates, nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ObserveTransition(string(next))
	attrs := []any{
		slog.Uint64("interview_id", uint64(iv.ID)),
		slog.String("from", string(prev)),
		slog.String("to", string(next)),
		slog.Uint64("caller_id", uint64(caller.UserID)),
	}
	if IsTerminal(prev) && prev != next {
		m.logger.Warn("interview status overridden", append(attrs, slog.Bool("admin_override", true))...)
	} else {
		m.logger.Info("interview status set", attrs...)
	}
	return iv, nil
}

// SaveTranscript 覆盖保存面试的对话记录。
func (m *Manager) SaveTranscript(ctx context.Context, interviewID uint, messages []database.Message) error {
	if len(messages) == 0 {
		return nil
	}
	conv := database.Conversation{InterviewID: interviewID, Messages: messages}
	err := m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "interview_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"messages", "updated_at"}),
	}).Create(&conv).Error
	if err != nil {
		return storeErr("save transcript", err)
	}
	return nil
}

// Transcript 读取对话记录，不存在时返回空。
func (m *Manager) Transcript(ctx context.Context, interviewID uint) ([]database.Message, error) {
	var conv database.Conversation
	err := m.db.WithContext(ctx).Where("interview_id = ?", interviewID).Limit(1).Find(&conv).Error
	if err != nil {
		return nil, storeErr("load transcript", err)
	}
	return conv.Messages, nil
}

// Authorize 校验调用方是否为面试参与者（候选人本人、持有访问令牌的匿名候选人或管理员）。
func (m *Manager) Authorize(ctx context.Context, interviewID uint, caller Caller) (*database.Interview, error) {
	iv, pos, err := m.load(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	if !canParticipate(iv, caller) {
		return nil, ErrUnauthorized
	}
	iv.Position = *pos
	return iv, nil
}

// Get 返回面试详情，参与者和所属企业均可查看。
func (m *Manager) Get(ctx context.Context, interviewID uint, caller Caller) (*database.Interview, error) {
	iv, pos, err := m.load(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	if !canParticipate(iv, caller) && !canManage(pos, caller) {
		return nil, ErrUnauthorized
	}
	iv.Position = *pos
	return iv, nil
}

// ListByPosition 按创建时间倒序列出职位下的面试。
func (m *Manager) ListByPosition(ctx context.Context, positionID uint) ([]database.Interview, error) {
	var out []database.Interview
	err := m.db.WithContext(ctx).
		Where("position_id = ?", positionID).
		Order("created_at DESC").Order("id DESC").
		Find(&out).Error
	if err != nil {
		return nil, storeErr("list interviews", err)
	}
	for i := range out {
		if err := checkRecord(&out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (m *Manager) scoreAnswer(ctx context.Context, pos *database.Position, rec database.AnswerRecord) (database.AnswerRecord, error) {
	if m.completer == nil {
		return rec, &ProviderError{Op: "score answer", Err: ai.ErrNoProvider}
	}
	raw, err := m.completer.Complete(ctx, answerScoringPrompt(pos, rec))
	if err != nil {
		return rec, &ProviderError{Op: "score answer", Err: err}
	}
	var v answerVerdict
	how, err := ai.Decode(raw, &v)
	if err != nil {
		return rec, &ProviderError{Op: "score answer", Err: err}
	}
	if v.Score == nil {
		return rec, &ProviderError{Op: "score answer", Err: errors.New("completion has no score")}
	}
	score, err := normalizeScore(*v.Score)
	if err != nil {
		return rec, &ProviderError{Op: "score answer", Err: err}
	}
	if how == ai.DecodedRecovered {
		m.logger.Debug("answer score recovered from prose", slog.Int("question_index", rec.Index))
	}
	now := m.now()
	rec.Score = &score
	rec.Feedback = v.Feedback
	rec.ScoredAt = &now
	return rec, nil
}

func (m *Manager) summarize(ctx context.Context, pos *database.Position, answers []database.AnswerRecord, transcript []database.Message) (*database.Feedback, error) {
	if m.completer == nil {
		return nil, &ProviderError{Op: "summarize interview", Err: ai.ErrNoProvider}
	}
	raw, err := m.completer.Complete(ctx, summaryPrompt(pos, answers, transcript))
	if err != nil {
		return nil, &ProviderError{Op: "summarize interview", Err: err}
	}
	var v summaryVerdict
	if _, err := ai.Decode(raw, &v); err != nil {
		return nil, &ProviderError{Op: "summarize interview", Err: err}
	}
	fb := &database.Feedback{
		Ratings:        v.Ratings,
		Strengths:      v.Strengths,
		Weaknesses:     v.Weaknesses,
		Summary:        v.Summary,
		Recommendation: v.Recommendation,
	}
	return fb, nil
}

type mutation func(iv *database.Interview, pos *database.Position) (map[string]any, error)

// mutate 在行锁事务中读取面试并按 fn 的结果做带版本号的条件更新。
// 版本冲突时整体重试一次。
func (m *Manager) mutate(ctx context.Context, interviewID uint, op string, fn mutation) (*database.Interview, error) {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		var iv *database.Interview
		iv, err = m.mutateOnce(ctx, interviewID, op, fn)
		if !errors.Is(err, errVersionConflict) {
			return iv, err
		}
		m.logger.Warn("interview version conflict",
			slog.Uint64("interview_id", uint64(interviewID)),
			slog.String("op", op),
			slog.Int("attempt", attempt+1),
		)
	}
	return nil, storeErr(op, err)
}

func (m *Manager) mutateOnce(ctx context.Context, interviewID uint, op string, fn mutation) (*database.Interview, error) {
	var out *database.Interview
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		iv, err := loadInterview(tx.Clauses(clause.Locking{Strength: "UPDATE"}), interviewID)
		if err != nil {
			return err
		}
		pos, err := loadPosition(tx, iv.PositionID)
		if err != nil {
			return err
		}
		updates, err := fn(iv, pos)
		if err != nil {
			return err
		}
		if len(updates) == 0 {
			iv.Position = *pos
			out = iv
			return nil
		}
		updates["version"] = gorm.Expr("version + 1")
		res := tx.Model(&database.Interview{}).
			Where("id = ? AND version = ?", iv.ID, iv.Version).
			Updates(updates)
		if res.Error != nil {
			return storeErr(op, res.Error)
		}
		if res.RowsAffected == 0 {
			return errVersionConflict
		}
		fresh, err := loadInterview(tx, interviewID)
		if err != nil {
			return err
		}
		fresh.Position = *pos
		out = fresh
		return nil
	})
	return out, err
}

func (m *Manager) load(ctx context.Context, interviewID uint) (*database.Interview, *database.Position, error) {
	db := m.db.WithContext(ctx)
	iv, err := loadInterview(db, interviewID)
	if err != nil {
		return nil, nil, err
	}
	pos, err := loadPosition(db, iv.PositionID)
	if err != nil {
		return nil, nil, err
	}
	return iv, pos, nil
}

func loadInterview(db *gorm.DB, id uint) (*database.Interview, error) {
	var iv database.Interview
	if err := db.First(&iv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr("load interview", err)
	}
	if err := checkRecord(&iv); err != nil {
		return nil, err
	}
	return &iv, nil
}

func loadPosition(db *gorm.DB, id uint) (*database.Position, error) {
	var pos database.Position
	if err := db.Unscoped().First(&pos, id).Error; err != nil {
		return nil, storeErr("load position", err)
	}
	return &pos, nil
}

// checkRecord 拒绝缺少必要字段的存量记录。
func checkRecord(iv *database.Interview) error {
	if iv.PositionID == 0 {
		return storeErr("read interview", fmt.Errorf("interview %d has no position", iv.ID))
	}
	if !Valid(iv.Status) {
		return storeErr("read interview", fmt.Errorf("interview %d has unknown status %q", iv.ID, iv.Status))
	}
	return nil
}

func canParticipate(iv *database.Interview, c Caller) bool {
	if c.isAdmin() {
		return true
	}
	if iv.CandidateID != nil && c.UserID != 0 && *iv.CandidateID == c.UserID {
		return true
	}
	if !iv.IsPublic || c.AccessToken == "" || iv.AccessToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.AccessToken), []byte(iv.AccessToken)) == 1
}

func canManage(pos *database.Position, c Caller) bool {
	if c.isAdmin() {
		return true
	}
	return c.Role == database.RoleCompany && c.UserID != 0 && pos.CompanyID == c.UserID
}

// upsertAnswer 替换同题号的旧答案，保证记录按题号有序且不重复。
func upsertAnswer(existing []database.AnswerRecord, rec database.AnswerRecord) []database.AnswerRecord {
	out := make([]database.AnswerRecord, 0, len(existing)+1)
	inserted := false
	for _, a := range existing {
		switch {
		case a.Index == rec.Index:
			if !inserted {
				out = append(out, rec)
				inserted = true
			}
		case a.Index > rec.Index && !inserted:
			out = append(out, rec, a)
			inserted = true
		default:
			out = append(out, a)
		}
	}
	if !inserted {
		out = append(out, rec)
	}
	return out
}
