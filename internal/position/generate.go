package position

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"

	"hireLoop/internal/ai"
)

const generatedQuestionCount = 5

func questionPrompt(in Input) ai.Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "Position: %s\n", in.Title)
	if in.Department != "" {
		fmt.Fprintf(&b, "Department: %s\n", in.Department)
	}
	fmt.Fprintf(&b, "Description: %s\n", in.Description)
	fmt.Fprintf(&b, "Requirements: %s\n", strings.Join(in.Requirements, "; "))
	fmt.Fprintf(&b, "Experience: %d-%d years\n\n", in.ExperienceMinYears, in.ExperienceMaxYears)
	fmt.Fprintf(&b, "Write %d interview questions for this position, ordered from general to specific.\n", generatedQuestionCount)
	b.WriteString(`Respond as {"questions": ["...", "..."]}`)
	return ai.Prompt{
		System: "You are a hiring manager preparing a structured interview. Respond with a single JSON object only.",
		User:   b.String(),
		JSON:   true,
	}
}

func (r *Registry) generateQuestions(ctx context.Context, in Input) ([]string, error) {
	if r.completer == nil {
		return nil, ai.ErrNoProvider
	}
	raw, err := r.completer.Complete(ctx, questionPrompt(in))
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}
	var out struct {
		Questions []string `json:"questions"`
	}
	if _, err := ai.Decode(raw, &out); err != nil {
		return nil, err
	}
	questions := compact(out.Questions)
	if len(questions) == 0 {
		return nil, errors.New("generate questions: completion has no questions")
	}
	if len(questions) > generatedQuestionCount {
		questions = questions[:generatedQuestionCount]
	}
	return questions, nil
}

func stringsValue(s []string) datatypes.JSONSlice[string] {
	return datatypes.JSONSlice[string](s)
}
