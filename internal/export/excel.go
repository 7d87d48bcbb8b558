package export

import (
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"hireLoop/internal/database"
	"hireLoop/internal/interview"
)

const (
	resultsSheet = "Results"
	answersSheet = "Answers"
)

var border = []excelize.Border{
	{Type: "left", Color: "000000", Style: 1},
	{Type: "right", Color: "000000", Style: 1},
	{Type: "top", Color: "000000", Style: 1},
	{Type: "bottom", Color: "000000", Style: 1},
}

// PositionResults 生成职位面试结果的 Excel 工作簿，按得分降序排名。
// names 把面试 ID 映射到候选人显示名，缺失时使用面试中的自报名字。
func PositionResults(pos *database.Position, interviews []database.Interview, names map[uint]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(answersSheet); err != nil {
		return nil, fmt.Errorf("create answers sheet: %w", err)
	}

	ranked := rank(interviews)
	if err := writeResults(f, pos, ranked, names); err != nil {
		return nil, fmt.Errorf("write results sheet: %w", err)
	}
	if err := writeAnswers(f, ranked, names); err != nil {
		return nil, fmt.Errorf("write answers sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// rank 有分数的排在前面，分数相同按完成时间先后。
func rank(in []database.Interview) []database.Interview {
	out := append([]database.Interview(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Score, out[j].Score
		switch {
		case a == nil && b == nil:
			return out[i].ID < out[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case *a != *b:
			return *a > *b
		default:
			return completedAt(out[i]).Before(completedAt(out[j]))
		}
	})
	return out
}

func completedAt(iv database.Interview) time.Time {
	if iv.CompletedAt == nil {
		return time.Time{}
	}
	return *iv.CompletedAt
}

func candidateName(iv database.Interview, names map[uint]string) string {
	if n := names[iv.ID]; n != "" {
		return n
	}
	if iv.CandidateName != "" {
		return iv.CandidateName
	}
	return fmt.Sprintf("Candidate #%d", iv.ID)
}

func headerStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
}

func bandStyle(f *excelize.File, color string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Border: border,
	})
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return err
		}
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func setRow(f *excelize.File, sheet string, row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func writeResults(f *excelize.File, pos *database.Position, ranked []database.Interview, names map[uint]string) error {
	hdr, err := headerStyle(f)
	if err != nil {
		return err
	}
	strong, err := bandStyle(f, "C6EFCE")
	if err != nil {
		return err
	}
	fair, err := bandStyle(f, "FFEB9C")
	if err != nil {
		return err
	}
	weak, err := bandStyle(f, "FFC7CE")
	if err != nil {
		return err
	}

	headers := []string{"Rank", "Candidate", "Email", "Status", "Score (0-10)", "Score (%)", "Recommendation", "Answered", "Completed"}
	if err := writeHeader(f, resultsSheet, headers, hdr); err != nil {
		return err
	}
	for col, width := range []float64{8, 28, 28, 14, 14, 12, 18, 12, 20} {
		name, _ := excelize.ColumnNumberToName(col + 1)
		if err := f.SetColWidth(resultsSheet, name, name, width); err != nil {
			return err
		}
	}

	for i, iv := range ranked {
		row := i + 2
		var score, percent any
		if iv.Score != nil {
			score = *iv.Score
			percent = interview.Percent(*iv.Score)
		}
		var recommendation string
		if fb := iv.Feedback.Data(); fb != nil {
			recommendation = fb.Recommendation
		}
		var completed string
		if iv.CompletedAt != nil {
			completed = iv.CompletedAt.UTC().Format("2006-01-02 15:04")
		}
		if err := setRow(f, resultsSheet, row,
			i+1, candidateName(iv, names), iv.CandidateEmail, string(iv.Status),
			score, percent, recommendation, len(iv.Answers), completed,
		); err != nil {
			return err
		}

		if iv.Score == nil {
			continue
		}
		style := weak
		switch {
		case *iv.Score >= 8:
			style = strong
		case *iv.Score >= 5:
			style = fair
		}
		if err := f.SetCellStyle(resultsSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("I%d", row), style); err != nil {
			return err
		}
	}

	if len(ranked) > 0 {
		ref := fmt.Sprintf("A1:I%d", len(ranked)+1)
		if err := f.AutoFilter(resultsSheet, ref, []excelize.AutoFilterOptions{}); err != nil {
			return err
		}
	}
	return f.SetDocProps(&excelize.DocProperties{
		Title:   pos.Title + " interview results",
		Creator: "hireLoop",
	})
}

func writeAnswers(f *excelize.File, ranked []database.Interview, names map[uint]string) error {
	hdr, err := headerStyle(f)
	if err != nil {
		return err
	}
	wrap, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
		Border:    border,
	})
	if err != nil {
		return err
	}

	headers := []string{"Candidate", "#", "Question", "Answer", "Score", "Feedback"}
	if err := writeHeader(f, answersSheet, headers, hdr); err != nil {
		return err
	}
	for col, width := range []float64{28, 6, 40, 60, 8, 40} {
		name, _ := excelize.ColumnNumberToName(col + 1)
		if err := f.SetColWidth(answersSheet, name, name, width); err != nil {
			return err
		}
	}

	row := 2
	for _, iv := range ranked {
		name := candidateName(iv, names)
		for _, a := range iv.Answers {
			var score any
			if a.Score != nil {
				score = *a.Score
			}
			if err := setRow(f, answersSheet, row, name, a.Index+1, a.Question, a.Answer, score, a.Feedback); err != nil {
				return err
			}
			if err := f.SetCellStyle(answersSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("F%d", row), wrap); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}
