package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"hireLoop/internal/database"
	"hireLoop/internal/errcode"
	"hireLoop/internal/tasks"
)

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

type fakeUploader struct {
	keys  []string
	sizes []int64
	err   error
}

func (f *fakeUploader) UploadFile(_ context.Context, objectName string, r io.Reader, size int64, _ string) error {
	if f.err != nil {
		return f.err
	}
	if _, err := io.ReadAll(r); err != nil {
		return err
	}
	f.keys = append(f.keys, objectName)
	f.sizes = append(f.sizes, size)
	return nil
}

type published struct {
	channel string
	payload []byte
}

type fakePublisher struct {
	msgs []published
}

func (f *fakePublisher) Publish(_ context.Context, channel string, message any) *redis.IntCmd {
	f.msgs = append(f.msgs, published{channel: channel, payload: message.([]byte)})
	return redis.NewIntResult(1, nil)
}

func fakePDF(_ context.Context, html string) ([]byte, error) {
	return []byte("%PDF-1.7 " + html[:16]), nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedCompleted(t *testing.T, db *gorm.DB, withFeedback bool) (*database.Position, *database.Interview) {
	t.Helper()
	company := &database.User{Username: "acme", Role: database.RoleCompany, CompanyName: "Acme"}
	require.NoError(t, db.Create(company).Error)
	cand := &database.User{Username: "dana", Role: database.RoleCandidate, DisplayName: "Dana Scully"}
	require.NoError(t, db.Create(cand).Error)

	pos := &database.Position{Title: "SRE", CompanyID: company.ID, Status: database.PositionActive, Deadline: time.Now().Add(time.Hour)}
	require.NoError(t, db.Create(pos).Error)

	score := 7.0
	done := time.Now()
	iv := &database.Interview{
		PositionID:  pos.ID,
		CandidateID: &cand.ID,
		Status:      database.InterviewCompleted,
		Score:       &score,
		CompletedAt: &done,
		Answers:     []database.AnswerRecord{{Index: 0, Question: "Pager?", Answer: "Yes."}},
	}
	if withFeedback {
		iv.Feedback = datatypes.NewJSONType(&database.Feedback{Summary: "Solid", Recommendation: "hire"})
	}
	require.NoError(t, db.Create(iv).Error)
	return pos, iv
}

func reportTask(t *testing.T, interviewID uint) *asynq.Task {
	t.Helper()
	task, err := tasks.NewReportGenerateTask(interviewID, "corr-7")
	require.NoError(t, err)
	return task
}

func TestReportTaskHandler_GeneratesAndNotifies(t *testing.T) {
	db := newTestDB(t)
	pos, iv := seedCompleted(t, db, true)
	up := &fakeUploader{}
	pub := &fakePublisher{}

	var seenHTML string
	render := func(ctx context.Context, html string) ([]byte, error) {
		seenHTML = html
		return fakePDF(ctx, html)
	}
	h := NewReportTaskHandler(db, up, pub, render, quietLogger())

	require.NoError(t, h.ProcessTask(context.Background(), reportTask(t, iv.ID)))

	key := fmt.Sprintf("reports/%d/%d.pdf", pos.ID, iv.ID)
	assert.Equal(t, []string{key}, up.keys)
	assert.Contains(t, seenHTML, "Dana Scully")

	var stored database.Interview
	require.NoError(t, db.First(&stored, iv.ID).Error)
	assert.Equal(t, key, stored.ReportObjectKey)

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, tasks.NotifyChannel(pos.CompanyID), pub.msgs[0].channel)
	var msg ReportNotifyMessage
	require.NoError(t, json.Unmarshal(pub.msgs[0].payload, &msg))
	assert.Equal(t, "completed", msg.Status)
	assert.Equal(t, iv.ID, msg.InterviewID)
	assert.Equal(t, "corr-7", msg.CorrelationID)
	assert.Equal(t, errcode.OK, msg.ErrorCode)
}

func TestReportTaskHandler_FlagsMissingFeedback(t *testing.T) {
	db := newTestDB(t)
	_, iv := seedCompleted(t, db, false)
	pub := &fakePublisher{}
	h := NewReportTaskHandler(db, &fakeUploader{}, pub, fakePDF, quietLogger())

	require.NoError(t, h.ProcessTask(context.Background(), reportTask(t, iv.ID)))

	require.Len(t, pub.msgs, 1)
	var msg ReportNotifyMessage
	require.NoError(t, json.Unmarshal(pub.msgs[0].payload, &msg))
	assert.Equal(t, errcode.ProviderDegraded, msg.ErrorCode)
}

func TestReportTaskHandler_SkipsMissingAndUnfinished(t *testing.T) {
	db := newTestDB(t)
	up := &fakeUploader{}
	h := NewReportTaskHandler(db, up, &fakePublisher{}, fakePDF, quietLogger())

	require.NoError(t, h.ProcessTask(context.Background(), reportTask(t, 999)))

	pos := &database.Position{Title: "QA", CompanyID: 1, Status: database.PositionActive}
	require.NoError(t, db.Create(pos).Error)
	iv := &database.Interview{PositionID: pos.ID, Status: database.InterviewInProgress}
	require.NoError(t, db.Create(iv).Error)
	require.NoError(t, h.ProcessTask(context.Background(), reportTask(t, iv.ID)))

	assert.Empty(t, up.keys)
}

func TestReportTaskHandler_UploadFailureIsRetried(t *testing.T) {
	db := newTestDB(t)
	_, iv := seedCompleted(t, db, true)
	pub := &fakePublisher{}
	up := &fakeUploader{err: errors.New("minio down")}
	h := NewReportTaskHandler(db, up, pub, fakePDF, quietLogger())

	err := h.ProcessTask(context.Background(), reportTask(t, iv.ID))
	require.Error(t, err)
	assert.Empty(t, pub.msgs, "no error notification before the final attempt")

	var stored database.Interview
	require.NoError(t, db.First(&stored, iv.ID).Error)
	assert.Empty(t, stored.ReportObjectKey)
}

func TestReportTaskHandler_BadPayloadSkipsRetry(t *testing.T) {
	h := NewReportTaskHandler(newTestDB(t), &fakeUploader{}, &fakePublisher{}, fakePDF, quietLogger())
	err := h.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeReportGenerate, []byte("{")))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

type fakeCloser struct {
	calls int
	n     int64
	err   error
}

func (f *fakeCloser) CloseExpired(context.Context, time.Time) (int64, error) {
	f.calls++
	return f.n, f.err
}

func TestCloseExpiredHandler(t *testing.T) {
	c := &fakeCloser{n: 2}
	h := NewCloseExpiredHandler(c, quietLogger())
	require.NoError(t, h.ProcessTask(context.Background(), tasks.NewCloseExpiredTask()))
	assert.Equal(t, 1, c.calls)

	c.err = errors.New("db gone")
	assert.Error(t, h.ProcessTask(context.Background(), tasks.NewCloseExpiredTask()))
}
