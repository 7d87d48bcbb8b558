package report

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"hireLoop/internal/database"
	"hireLoop/internal/interview"
)

var tmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
	"deref": func(p *int) int {
		if p == nil {
			return 0
		}
		return *p
	},
	"scoreColor": func(score float64) string {
		switch {
		case score >= 8:
			return "#2f855a"
		case score >= 5:
			return "#b7791f"
		default:
			return "#c53030"
		}
	},
}).Parse(reportTemplate))

type view struct {
	Position       database.Position
	CandidateName  string
	CandidateEmail string
	StatusLabel    string
	CompletedAt    string
	HasScore       bool
	Score          float64
	Percent        float64
	Feedback       *database.Feedback
	Answers        []database.AnswerRecord
}

// Render 把面试结果渲染为 HTML。candidateName 为空时使用面试中自报的名字。
func Render(iv *database.Interview, pos *database.Position, candidateName string) (string, error) {
	if iv == nil || pos == nil {
		return "", fmt.Errorf("render report: interview and position are required")
	}
	v := view{
		Position:       *pos,
		CandidateName:  candidateName,
		CandidateEmail: iv.CandidateEmail,
		StatusLabel:    string(iv.Status),
		Feedback:       iv.Feedback.Data(),
		Answers:        iv.Answers,
	}
	if v.CandidateName == "" {
		v.CandidateName = iv.CandidateName
	}
	if v.CandidateName == "" {
		v.CandidateName = fmt.Sprintf("Candidate #%d", iv.ID)
	}
	if iv.CompletedAt != nil {
		v.CompletedAt = iv.CompletedAt.UTC().Format(time.DateOnly)
	}
	if iv.Score != nil {
		v.HasScore = true
		v.Score = *iv.Score
		v.Percent = interview.Percent(*iv.Score)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("execute report template: %w", err)
	}
	return buf.String(), nil
}

// ObjectKey 是报告在对象存储中的路径。
func ObjectKey(positionID, interviewID uint) string {
	return fmt.Sprintf("reports/%d/%d.pdf", positionID, interviewID)
}
