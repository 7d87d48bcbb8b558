package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"hireLoop/internal/database"
)

func TestRender(t *testing.T) {
	score := 8.0
	nine := 9
	done := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	iv := &database.Interview{
		Status:         database.InterviewCompleted,
		CandidateName:  "Dana <script>",
		CandidateEmail: "dana@example.com",
		Score:          &score,
		CompletedAt:    &done,
		Answers: []database.AnswerRecord{
			{Index: 0, Question: "Why Go?", Answer: "Simplicity.", Score: &nine, Feedback: "Concise."},
			{Index: 1, Question: "Channels?", Answer: "Pipes."},
		},
		Feedback: datatypes.NewJSONType(&database.Feedback{
			Ratings:        &database.Ratings{Technical: 8, Communication: 7, ProblemSolving: 9, Experience: 6},
			Strengths:      []string{"clear"},
			Weaknesses:     []string{"brief"},
			Summary:        "Good fit.",
			Recommendation: "hire",
		}),
	}
	pos := &database.Position{Title: "Go Engineer"}

	html, err := Render(iv, pos, "")
	require.NoError(t, err)

	assert.Contains(t, html, "Go Engineer")
	assert.Contains(t, html, "Dana &lt;script&gt;")
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "8.0")
	assert.Contains(t, html, "(80%)")
	assert.Contains(t, html, "2026-03-14")
	assert.Contains(t, html, "Q1. Why Go? (9/10)")
	assert.Contains(t, html, "Q2. Channels?")
	assert.Contains(t, html, "Good fit.")
	assert.Contains(t, html, "<li>clear</li>")
}

func TestRender_NoScoreOrFeedback(t *testing.T) {
	iv := &database.Interview{Status: database.InterviewCompleted}
	iv.ID = 12

	html, err := Render(iv, &database.Position{Title: "QA"}, "")
	require.NoError(t, err)
	assert.Contains(t, html, "Candidate #12")
	assert.Contains(t, html, "No aggregate score.")
	assert.Contains(t, html, "No answers were recorded.")
}

func TestRender_RequiresInputs(t *testing.T) {
	_, err := Render(nil, &database.Position{}, "")
	assert.Error(t, err)
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "reports/3/17.pdf", ObjectKey(3, 17))
}
