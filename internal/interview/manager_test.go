package interview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"hireLoop/internal/ai"
	"hireLoop/internal/database"
)

const (
	companyID   uint = 1
	candidateID uint = 2
)

type fakeCompleter struct {
	mu      sync.Mutex
	replies []string
	err     error
	prompts []ai.Prompt
}

func (f *fakeCompleter) Complete(_ context.Context, p ai.Prompt) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, p)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	out := f.replies[0]
	f.replies = f.replies[1:]
	return out, nil
}

func (f *fakeCompleter) Name() string { return "fake" }

func scoreReplies(scores ...int) []string {
	out := make([]string, 0, len(scores))
	for _, s := range scores {
		out = append(out, fmt.Sprintf(`{"score": %d, "feedback": "noted"}`, s))
	}
	return out
}

const summaryReply = `Here is my evaluation:
{"ratings": {"technical": 9, "communication": 8, "problem_solving": 7, "experience": 6},
 "strengths": ["clear reasoning"], "weaknesses": ["limited depth on databases"],
 "summary": "Solid candidate.", "recommendation": "hire"}`

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(database.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestManager(t *testing.T, db *gorm.DB, c ai.Completer) *Manager {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(db, c, logger, Options{})
}

func seedPosition(t *testing.T, db *gorm.DB, questions ...string) *database.Position {
	t.Helper()
	pos := &database.Position{
		Title:        "Backend Engineer",
		CompanyID:    companyID,
		Description:  "Build services in Go.",
		Requirements: []string{"Go", "SQL"},
		Questions:    questions,
		SalaryMin:    100,
		SalaryMax:    200,
		Deadline:     time.Now().Add(24 * time.Hour),
		Status:       database.PositionActive,
	}
	require.NoError(t, db.Create(pos).Error)
	return pos
}

func seedInterview(t *testing.T, db *gorm.DB, pos *database.Position, status Status) *database.Interview {
	t.Helper()
	cid := candidateID
	iv := &database.Interview{
		PositionID:  pos.ID,
		CandidateID: &cid,
		Status:      status,
	}
	require.NoError(t, db.Create(iv).Error)
	return iv
}

func reload(t *testing.T, db *gorm.DB, id uint) database.Interview {
	t.Helper()
	var iv database.Interview
	require.NoError(t, db.First(&iv, id).Error)
	return iv
}

var (
	candidate = Caller{UserID: candidateID, Role: database.RoleCandidate}
	company   = Caller{UserID: companyID, Role: database.RoleCompany}
)

func TestBegin_SecondCallFails(t *testing.T) {
	db := newTestDB(t)
	m := newTestManager(t, db, nil)
	iv := seedInterview(t, db, seedPosition(t, db, "q1"), StatusPending)

	got, err := m.Begin(context.Background(), iv.ID, candidate)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, got.Status)
	assert.True(t, got.IsStarted)
	assert.NotNil(t, got.StartedAt)

	_, err = m.Begin(context.Background(), iv.ID, candidate)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestBegin_Authorization(t *testing.T) {
	db := newTestDB(t)
	m := newTestManager(t, db, nil)
	iv := seedInterview(t, db, seedPosition(t, db, "q1"), StatusScheduled)

	_, err := m.Begin(context.Background(), iv.ID, Caller{UserID: 99, Role: database.RoleCandidate})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = m.Begin(context.Background(), 4242, candidate)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := m.Begin(context.Background(), iv.ID, Caller{UserID: 50, Role: database.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, got.Status)
}

func TestBegin_PublicToken(t *testing.T) {
	db := newTestDB(t)
	m := newTestManager(t, db, nil)
	pos := seedPosition(t, db, "q1")
	iv := &database.Interview{PositionID: pos.ID, IsPublic: true, LinkToken: "link-1", AccessToken: "tok-123", Status: StatusScheduled}
	require.NoError(t, db.Create(iv).Error)

	_, err := m.Begin(context.Background(), iv.ID, Caller{AccessToken: "wrong"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	// 链接 token 不能代替访问令牌。
	_, err = m.Begin(context.Background(), iv.ID, Caller{AccessToken: "link-1"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	// 公开面试不能从 scheduled 开始。
	_, err = m.Begin(context.Background(), iv.ID, Caller{AccessToken: "tok-123"})
	assert.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, db.Model(iv).Update("status", string(StatusPending)).Error)
	got, err := m.Begin(context.Background(), iv.ID, Caller{AccessToken: "tok-123"})
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, got.Status)
}

func TestBegin_Concurrent(t *testing.T) {
	db := newTestDB(t)
	m := newTestManager(t, db, nil)
	iv := seedInterview(t, db, seedPosition(t, db, "q1"), StatusPending)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Begin(context.Background(), iv.ID, candidate); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, successes)
}

func TestNextQuestion(t *testing.T) {
	db := newTestDB(t)
	m := newTestManager(t, db, nil)
	iv := seedInterview(t, db, seedPosition(t, db, "first?", "second?"), StatusPending)

	_, err := m.NextQuestion(context.Background(), iv.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = m.Begin(context.Background(), iv.ID, candidate)
	require.NoError(t, err)

	q, err := m.NextQuestion(context.Background(), iv.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, Question{Index: 1, Text: "second?", Total: 2, Remaining: 0}, q)

	q, err = m.NextQuestion(context.Background(), iv.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "first?", q.Text)

	stored := reload(t, db, iv.ID)
	assert.Equal(t, "first?", stored.CurrentQuestion)
	assert.Equal(t, 0, stored.CurrentQuestionIndex)
	assert.Equal(t, 2, stored.QuestionsAsked)

	_, err = m.NextQuestion(context.Background(), iv.ID, 2)
	assert.ErrorIs(t, err, ErrExhaustedQuestions)
	_, err = m.NextQuestion(context.Background(), iv.ID, -1)
	assert.ErrorIs(t, err, ErrExhaustedQuestions)
}

func TestNextQuestion_DefaultSet(t *testing.T) {
	db := newTestDB(t)
	m := newTestManager(t, db, nil)
	iv := seedInterview(t, db, seedPosition(t, db), StatusPending)
	_, err := m.Begin(context.Background(), iv.ID, candidate)
	require.NoError(t, err)

	q, err := m.NextQuestion(context.Background(), iv.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, len(DefaultQuestions), q.Total)
	assert.Equal(t, DefaultQuestions[4], q.Text)
}

func TestRecordAnswer_NeverExceedsQuestionCount(t *testing.T) {
	db := newTestDB(t)
	fake := &fakeCompleter{replies: scoreReplies(6, 9)}
	m := newTestManager(t, db, fake)
	iv := seedInterview(t, db, seedPosition(t, db, "q1", "q2"), StatusPending)
	_, err := m.Begin(context.Background(), iv.ID, candidate)
	require.NoError(t, err)

	res, err := m.RecordAnswer(context.Background(), iv.ID, "q1", "first try", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Answered)
	assert.False(t, res.Last)

	res, err = m.RecordAnswer(context.Background(), iv.ID, "q1", "second try", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Answered)
	require.NotNil(t, res.Entry.Score)
	assert.Equal(t, 9, *res.Entry.Score)

	_, err = m.RecordAnswer(context.Background(), iv.ID, "q3", "extra", 2)
	assert.ErrorIs(t, err, ErrExhaustedQuestions)

	stored := reload(t, db, iv.ID)
	require.Len(t, stored.Answers, 1)
	assert.Equal(t, "second try", stored.Answers[0].Answer)
	assert.Equal(t, "noted", stored.Answers[0].Feedback)
}

func TestRecordAnswer_ProviderFailureKeepsAnswer(t *testing.T) {
	db := newTestDB(t)
	fake := &fakeCompleter{err: errors.New("upstream 503")}
	m := newTestManager(t, db, fake)
	iv := seedInterview(t, db, seedPosition(t, db, "q1", "q2"), StatusPending)
	_, err := m.Begin(context.Background(), iv.ID, candidate)
	require.NoError(t, err)

	res, err := m.RecordAnswer(context.Background(), iv.ID, "", "my answer", 1)
	require.NoError(t, err)
	var provErr *ProviderError
	require.ErrorAs(t, res.ProviderErr, &provErr)
	assert.Nil(t, res.Entry.Score)

	stored := reload(t, db, iv.ID)
	require.Len(t, stored.Answers, 1)
	assert.Equal(t, "q2", stored.Answers[0].Question)
	assert.Nil(t, stored.Answers[0].Score)
}

// gatedCompleter 让第一次调用阻塞到 release 关闭，之后的调用直接失败。
type gatedCompleter struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
	first   string
}

func (g *gatedCompleter) Complete(ctx context.Context, _ ai.Prompt) (string, error) {
	isFirst := false
	g.once.Do(func() { isFirst = true })
	if !isFirst {
		return "", errors.New("summary unavailable")
	}
	close(g.entered)
	select {
	case <-g.release:
		return g.first, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (g *gatedCompleter) Name() string { return "gated" }

func TestRecordAnswer_ScoreDiscardedWhenInterviewEndsMeanwhile(t *testing.T) {
	db := newTestDB(t)
	gate := &gatedCompleter{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		first:   `{"score": 9, "feedback": "strong"}`,
	}
	m := newTestManager(t, db, gate)
	iv := seedInterview(t, db, seedPosition(t, db, "q1", "q2"), StatusPending)
	_, err := m.Begin(context.Background(), iv.ID, candidate)
	require.NoError(t, err)

	type outcome struct {
		res *AnswerResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := m.RecordAnswer(context.Background(), iv.ID, "", "my answer", 0)
		done <- outcome{res, err}
	}()

	<-gate.entered
	completed, err := m.Complete(context.Background(), iv.ID, PolicyMean)
	require.NoError(t, err)
	assert.Nil(t, completed.Score)
	close(gate.release)

	got := <-done
	require.NoError(t, got.err)
	assert.ErrorIs(t, got.res.Warning, ErrScoreDiscarded)
	assert.NoError(t, got.res.ProviderErr)
	assert.Nil(t, got.res.Entry.Score)

	stored := reload(t, db, iv.ID)
	assert.Equal(t, StatusCompleted, stored.Status)
	require.Len(t, stored.Answers, 1)
	assert.Nil(t, stored.Answers[0].Score)
}

func TestRecordAnswer_MalformedCompletion(t *testing.T) {
	db := newTestDB(t)
	fake := &fakeCompleter{replies: []string{"I would rate this highly."}}
	m := newTestManager(t, db, fake)
	iv := seedInterview(t, db, seedPosition(t, db, "q1"), StatusPending)
	_, err := m.Begin(context.Background(), iv.ID, candidate)
	require.NoError(t, err)

	res, err := m.RecordAnswer(context.Background(), iv.ID, "q1", "answer", 0)
	require.NoError(t, err)
	var parseErr *ai.ParseError
	assert.ErrorAs(t, res.ProviderErr, &parseErr)
}

func TestRecordAnswer_NoProvider(t *testing.T) {
	db := newTestDB(t)
	m := newTestManager(t, db, nil)
	iv := seedInterview(t, db, seedPosition(t, db, "q1"), StatusPending)
	_, err := m.Begin(context.Background(), iv.ID, candidate)
	require.NoError(t, err)

	res, err := m.RecordAnswer(context.Background(), iv.ID, "q1", "answer", 0)
	require.NoError(t, err)
	assert.ErrorIs(t, res.ProviderErr, ai.ErrNoProvider)
	assert.True(t, res.Last)
}

func TestRecordAnswer_RequiresInProgress(t *testing.T) {
	db := newTestDB(t)
	m := newTestManager(t, db, nil)
	iv := seedInterview(t, db, seedPosition(t, db, "q1"), StatusPending)

	_, err := m.RecordAnswer(context.Background(), iv.ID, "q1", "answer", 0)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestRecordAnswer_ConcurrentAppendsKeepAll(t *testing.T) {
	db := newTestDB(t)
	m := newTestManager(t, db, nil)
	iv := seedInterview(t, db, seedPosition(t, db, "q1", "q2", "q3", "q4"), StatusPending)
	_, err := m.Begin(context.Background(), iv.ID, candidate)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, err := m.RecordAnswer(context.Background(), iv.ID, "", fmt.Sprintf("answer %d", idx), idx)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stored := reload(t, db, iv.ID)
	assert.Len(t, stored.Answers, 4)
}

func TestComplete_MeanOfScores(t *testing.T) {
	db := newTestDB(t)
	fake := &fakeCompleter{replies: append(scoreReplies(8, 6, 10, 4), summaryReply)}
	m := newTestManager(t, db, fake)
	iv := seedInterview(t, db, seedPosition(t, db, "q1", "q2", "q3", "q4"), StatusPending)
	_, err := m.Begin(context.Background(), iv.ID, candidate)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, err := m.RecordAnswer(context.Background(), iv.ID, "", "answer", i)
		require.NoError(t, err)
	}

	res, err := m.Complete(context.Background(), iv.ID, PolicyMean)
	require.NoError(t, err)
	assert.NoError(t, res.Warning)
	require.NotNil(t, res.Score)
	assert.Equal(t, 7.0, *res.Score)

	stored := reload(t, db, iv.ID)
	assert.Equal(t, StatusCompleted, stored.Status)
	require.NotNil(t, stored.Score)
	assert.Equal(t, 7.0, *stored.Score)
	assert.Equal(t, string(PolicyMean), stored.ScoringPolicy)
	require.NotNil(t, stored.Feedback.Data())
	assert.Equal(t, "hire", stored.Feedback.Data().Recommendation)
	assert.Equal(t, []string{"clear reasoning"}, stored.Feedback.Data().Strengths)
}

func TestComplete_Rubric(t *testing.T) {
	db := newTestDB(t)
	fake := &fakeCompleter{replies: append(scoreReplies(3), summaryReply)}
	m := newTestManager(t, db, fake)
	iv := seedInterview(t, db, seedPosition(t, db, "q1"), StatusPending)
	_, err := m.Begin(context.Background(), iv.ID, candidate)
	require.NoError(t, err)
	_, err = m.RecordAnswer(context.Background(), iv.ID, "", "answer", 0)
	require.NoError(t, err)

	res, err := m.Complete(context.Background(), iv.ID, PolicyRubric)
	require.NoError(t, err)
	require.NotNil(t, res.Score)
	assert.InDelta(t, 8.6, *res.Score, 1e-9)
	assert.Equal(t, string(PolicyRubric), res.Interview.ScoringPolicy)
}

func TestComplete_SummaryFailureStillCompletes(t *testing.T) {
	db := newTestDB(t)
	fake := &fakeCompleter{replies: append(scoreReplies(8, 6), "no idea")}
	m := newTestManager(t, db, fake)
	iv := seedInterview(t, db, seedPosition(t, db, "q1", "q2"), StatusPending)
	_, err := m.Begin(context.Background(), iv.ID, candidate)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := m.RecordAnswer(context.Background(), iv.ID, "", "answer", i)
		require.NoError(t, err)
	}

	res, err := m.Complete(context.Background(), iv.ID, PolicyRubric)
	require.NoError(t, err)
	var partial *PartialResultError
	require.ErrorAs(t, res.Warning, &partial)
	require.NotNil(t, res.Score)
	assert.Equal(t, 7.0, *res.Score)

	stored := reload(t, db, iv.ID)
	assert.Equal(t, StatusCompleted, stored.Status)
	assert.NotNil(t, stored.CompletedAt)
}

func TestComplete_RequiresInProgress(t *testing.T) {
	db := newTestDB(t)
	m := newTestManager(t, db, nil)
	iv := seedInterview(t, db, seedPosition(t, db, "q1"), StatusPending)

	_, err := m.Complete(context.Background(), iv.ID, PolicyMean)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = m.Complete(context.Background(), 999, PolicyMean)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitAnswer_LastQuestionCompletes(t *testing.T) {
	db := newTestDB(t)
	fake := &fakeCompleter{replies: append(scoreReplies(9, 7, 8, 6, 10), summaryReply)}
	m := newTestManager(t, db, fake)
	pos := seedPosition(t, db, "q1", "q2", "q3", "q4", "q5")
	iv := seedInterview(t, db, pos, StatusPending)
	ctx := context.Background()

	_, err := m.Begin(ctx, iv.ID, candidate)
	require.NoError(t, err)

	var last *SubmitResult
	for i := 0; i < 5; i++ {
		q, err := m.NextQuestion(ctx, iv.ID, i)
		require.NoError(t, err)
		last, err = m.SubmitAnswer(ctx, iv.ID, candidate, q.Text, fmt.Sprintf("answer %d", i), i, PolicyMean)
		require.NoError(t, err)
		if i < 4 {
			assert.Nil(t, last.Completion)
		}
	}

	require.NotNil(t, last.Completion)
	require.NotNil(t, last.Completion.Score)
	assert.Equal(t, 8.0, *last.Completion.Score)

	stored := reload(t, db, iv.ID)
	assert.Equal(t, StatusCompleted, stored.Status)
	assert.NotNil(t, stored.CompletedAt)
	assert.Len(t, stored.Answers, 5)
	assert.Equal(t, 5, stored.QuestionsAsked)
}

func TestSubmitAnswer_RejectsStranger(t *testing.T) {
	db := newTestDB(t)
	m := newTestManager(t, db, nil)
	iv := seedInterview(t, db, seedPosition(t, db, "q1"), StatusPending)
	_, err := m.Begin(context.Background(), iv.ID, candidate)
	require.NoError(t, err)

	_, err = m.SubmitAnswer(context.Background(), iv.ID, Caller{UserID: 7, Role: database.RoleCandidate}, "q1", "a", 0, PolicyMean)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Empty(t, reload(t, db, iv.ID).Answers)
}

func TestCancel(t *testing.T) {
	db := newTestDB(t)
	m := newTestManager(t, db, nil)
	pos := seedPosition(t, db, "q1")

	pending := seedInterview(t, db, pos, StatusPending)
	got, err := m.Cancel(context.Background(), pending.ID, company)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)

	running := seedInterview(t, db, pos, StatusInProgress)
	_, err = m.Cancel(context.Background(), running.ID, candidate)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSetStatus_RejectsUnknownValue(t *testing.T) {
	db := newTestDB(t)
	m := newTestManager(t, db, nil)
	iv := seedInterview(t, db, seedPosition(t, db, "q1"), StatusScheduled)

	_, err := m.SetStatus(context.Background(), iv.ID, company, "archived")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.Equal(t, StatusScheduled, reload(t, db, iv.ID).Status)
}

func TestSetStatus_Override(t *testing.T) {
	db := newTestDB(t)
	m := newTestManager(t, db, nil)
	iv := seedInterview(t, db, seedPosition(t, db, "q1"), StatusCompleted)

	_, err := m.SetStatus(context.Background(), iv.ID, candidate, "shortlisted")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = m.SetStatus(context.Background(), iv.ID, Caller{UserID: 77, Role: database.RoleCompany}, "shortlisted")
	assert.ErrorIs(t, err, ErrUnauthorized)

	got, err := m.SetStatus(context.Background(), iv.ID, company, "shortlisted")
	require.NoError(t, err)
	assert.Equal(t, StatusShortlisted, got.Status)

	got, err = m.SetStatus(context.Background(), iv.ID, Caller{UserID: 50, Role: database.RoleAdmin}, "in-progress")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, got.Status)
	assert.NotNil(t, got.StartedAt)
}

func TestGet_Authorization(t *testing.T) {
	db := newTestDB(t)
	m := newTestManager(t, db, nil)
	iv := seedInterview(t, db, seedPosition(t, db, "q1"), StatusPending)

	got, err := m.Get(context.Background(), iv.ID, company)
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineer", got.Position.Title)

	_, err = m.Get(context.Background(), iv.ID, candidate)
	require.NoError(t, err)

	_, err = m.Get(context.Background(), iv.ID, Caller{UserID: 8, Role: database.RoleCompany})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestGet_RejectsMalformedRecord(t *testing.T) {
	db := newTestDB(t)
	m := newTestManager(t, db, nil)
	iv := seedInterview(t, db, seedPosition(t, db, "q1"), StatusPending)
	require.NoError(t, db.Model(iv).Update("status", "paused").Error)

	_, err := m.Get(context.Background(), iv.ID, company)
	var storeErr *StoreError
	assert.ErrorAs(t, err, &storeErr)
}

func TestSaveTranscript_Upserts(t *testing.T) {
	db := newTestDB(t)
	m := newTestManager(t, db, nil)
	iv := seedInterview(t, db, seedPosition(t, db, "q1"), StatusPending)
	ctx := context.Background()

	require.NoError(t, m.SaveTranscript(ctx, iv.ID, []database.Message{{Role: "assistant", Content: "hi"}}))
	require.NoError(t, m.SaveTranscript(ctx, iv.ID, []database.Message{
		{Role: "assistant", Content: "hi"},
		{Role: "user", Content: "hello"},
	}))

	msgs, err := m.Transcript(ctx, iv.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	var count int64
	require.NoError(t, db.Model(&database.Conversation{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestListByPosition(t *testing.T) {
	db := newTestDB(t)
	m := newTestManager(t, db, nil)
	pos := seedPosition(t, db, "q1")
	first := seedInterview(t, db, pos, StatusPending)
	second := seedInterview(t, db, pos, StatusScheduled)
	seedInterview(t, db, seedPosition(t, db, "other"), StatusPending)

	got, err := m.ListByPosition(context.Background(), pos.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.ElementsMatch(t, []uint{first.ID, second.ID}, []uint{got[0].ID, got[1].ID})
}
