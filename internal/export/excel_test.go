package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"hireLoop/internal/database"
)

func ptr[T any](v T) *T { return &v }

func gormModel(id uint) gorm.Model { return gorm.Model{ID: id} }

func TestPositionResults_RanksByScore(t *testing.T) {
	done := time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)
	interviews := []database.Interview{
		{Model: gormModel(1), Status: database.InterviewInProgress, CandidateName: "No Score"},
		{
			Model: gormModel(2), Status: database.InterviewCompleted, Score: ptr(6.0), CompletedAt: &done,
			Answers: []database.AnswerRecord{{Index: 0, Question: "Why?", Answer: "Because.", Score: ptr(6)}},
		},
		{
			Model: gormModel(3), Status: database.InterviewCompleted, Score: ptr(9.0), CompletedAt: &done,
			Feedback: datatypes.NewJSONType(&database.Feedback{Recommendation: "hire"}),
			Answers: []database.AnswerRecord{
				{Index: 0, Question: "Why?", Answer: "Impact."},
				{Index: 1, Question: "How?", Answer: "Carefully.", Score: ptr(9), Feedback: "Great"},
			},
		},
	}
	names := map[uint]string{2: "Bo", 3: "Ada"}

	data, err := PositionResults(&database.Position{Title: "Go Engineer"}, interviews, names)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(resultsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Rank", rows[0][0])
	assert.Equal(t, []string{"1", "Ada"}, rows[1][:2])
	assert.Equal(t, "9", rows[1][4])
	assert.Equal(t, "90", rows[1][5])
	assert.Equal(t, "hire", rows[1][6])
	assert.Equal(t, []string{"2", "Bo"}, rows[2][:2])
	assert.Equal(t, []string{"3", "No Score"}, rows[3][:2])

	answers, err := f.GetRows(answersSheet)
	require.NoError(t, err)
	require.Len(t, answers, 4)
	assert.Equal(t, []string{"Ada", "1", "Why?", "Impact."}, answers[1][:4])
	assert.Equal(t, []string{"Ada", "2", "How?", "Carefully.", "9", "Great"}, answers[2])
	assert.Equal(t, "Bo", answers[3][0])
}

func TestPositionResults_Empty(t *testing.T) {
	data, err := PositionResults(&database.Position{Title: "Empty"}, nil, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{resultsSheet, answersSheet}, f.GetSheetList())
	rows, err := f.GetRows(resultsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
