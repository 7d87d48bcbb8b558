package interview

import (
	"strings"

	"hireLoop/internal/database"
)

// DefaultQuestions 在职位没有自定义题目时使用。
var DefaultQuestions = []string{
	"Tell me about yourself and your professional background.",
	"Describe a challenging project you worked on and how you handled it.",
	"How do you approach learning a new technology or skill?",
	"Tell me about a time you disagreed with a teammate and how you resolved it.",
	"Why are you interested in this role, and what would you bring to the team?",
}

// QuestionsFor 返回职位的有序题目列表。
func QuestionsFor(pos *database.Position) []string {
	if pos == nil {
		return DefaultQuestions
	}
	out := make([]string, 0, len(pos.Questions))
	for _, q := range pos.Questions {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	if len(out) == 0 {
		return DefaultQuestions
	}
	return out
}

// Question 是 NextQuestion 返回给调用方的题目。
type Question struct {
	Index     int    `json:"index"`
	Text      string `json:"question"`
	Total     int    `json:"total"`
	Remaining int    `json:"remaining"`
}
