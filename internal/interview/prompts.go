package interview

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"hireLoop/internal/ai"
	"hireLoop/internal/database"
)

const evaluatorSystem = "You are an experienced technical interviewer. " +
	"Evaluate candidates fairly and respond with a single JSON object only."

// transcript 过长时只保留末尾部分（按字节计，截断点落在字符边界）。
const maxTranscriptChars = 6000

func writePositionContext(b *strings.Builder, pos *database.Position) {
	if pos == nil {
		return
	}
	fmt.Fprintf(b, "Position: %s\n", pos.Title)
	if pos.Department != "" {
		fmt.Fprintf(b, "Department: %s\n", pos.Department)
	}
	if pos.Description != "" {
		fmt.Fprintf(b, "Description: %s\n", pos.Description)
	}
	if len(pos.Requirements) > 0 {
		fmt.Fprintf(b, "Requirements: %s\n", strings.Join(pos.Requirements, "; "))
	}
	if pos.ExperienceMinYears > 0 || pos.ExperienceMaxYears > 0 {
		fmt.Fprintf(b, "Experience: %d-%d years\n", pos.ExperienceMinYears, pos.ExperienceMaxYears)
	}
}

func answerScoringPrompt(pos *database.Position, rec database.AnswerRecord) ai.Prompt {
	var b strings.Builder
	writePositionContext(&b, pos)
	b.WriteString("\n")
	fmt.Fprintf(&b, "Question %d: %s\n", rec.Index+1, rec.Question)
	fmt.Fprintf(&b, "Candidate answer: %s\n\n", rec.Answer)
	b.WriteString("Rate this answer from 0 to 10 and give one or two sentences of feedback.\n")
	b.WriteString(`Respond as {"score": <0-10>, "feedback": "<text>"}`)
	return ai.Prompt{System: evaluatorSystem, User: b.String(), JSON: true}
}

func summaryPrompt(pos *database.Position, answers []database.AnswerRecord, transcript []database.Message) ai.Prompt {
	var b strings.Builder
	writePositionContext(&b, pos)
	b.WriteString("\nInterview answers:\n")
	for _, a := range answers {
		fmt.Fprintf(&b, "Q%d: %s\nA: %s\n", a.Index+1, a.Question, a.Answer)
		if a.Score != nil {
			fmt.Fprintf(&b, "Score: %d/10\n", *a.Score)
		}
	}
	if t := renderTranscript(transcript); t != "" {
		b.WriteString("\nConversation transcript:\n")
		b.WriteString(t)
		b.WriteString("\n")
	}
	b.WriteString("\nGive an overall evaluation of the candidate. Rate each dimension from 0 to 10.\n")
	b.WriteString(`Respond as {"ratings": {"technical": n, "communication": n, "problem_solving": n, "experience": n}, `)
	b.WriteString(`"strengths": ["..."], "weaknesses": ["..."], "summary": "...", "recommendation": "hire|consider|reject"}`)
	return ai.Prompt{System: evaluatorSystem, User: b.String(), JSON: true}
}

func renderTranscript(msgs []database.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	s := b.String()
	if len(s) > maxTranscriptChars {
		start := len(s) - maxTranscriptChars
		for start < len(s) && !utf8.RuneStart(s[start]) {
			start++
		}
		s = s[start:]
	}
	return strings.TrimSpace(s)
}

type answerVerdict struct {
	Score    *float64 `json:"score"`
	Feedback string   `json:"feedback"`
}

type summaryVerdict struct {
	Ratings        *database.Ratings `json:"ratings"`
	Strengths      []string          `json:"strengths"`
	Weaknesses     []string          `json:"weaknesses"`
	Summary        string            `json:"summary"`
	Recommendation string            `json:"recommendation"`
}
