package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/quiz"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatXLSX = "xlsx"
)

// Filename is the download name for an export made on day.
func Filename(day time.Time, format string) string {
	return fmt.Sprintf("quiz-results-%s.%s", day.UTC().Format("2006-01-02"), format)
}

type exportSummary struct {
	TotalQuestions   int    `json:"totalQuestions"`
	CorrectAnswers   int    `json:"correctAnswers"`
	IncorrectAnswers int    `json:"incorrectAnswers"`
	Percentage       int    `json:"percentage"`
	TimeSpent        string `json:"timeSpent"`
}

type exportDocument struct {
	model.Result
	Score   model.ScoreSummary `json:"score"`
	Summary exportSummary      `json:"summary"`
}

// ExportJSON renders the downloadable results document: the Result itself
// plus its score and a human summary. Unanswered questions count as
// incorrect.
func ExportJSON(result model.Result) ([]byte, error) {
	score := quiz.Score(result)
	doc := exportDocument{
		Result: result,
		Score:  score,
		Summary: exportSummary{
			TotalQuestions:   score.Total,
			CorrectAnswers:   score.Correct,
			IncorrectAnswers: score.Total - score.Correct,
			Percentage:       score.Percentage,
			TimeSpent:        FormatDuration(result.TimeSpentSeconds),
		},
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal results: %w", err)
	}
	return data, nil
}

const (
	summarySheet = "Summary"
	reviewSheet  = "Review"
)

// WriteXLSX writes rep as a two-sheet workbook: the score summary and one
// review row per presented question.
func WriteXLSX(w io.Writer, rep Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	summary := [][]any{
		{"Title", rep.Title},
		{"Correct", rep.Score.Correct},
		{"Total", rep.Score.Total},
		{"Percentage", rep.Score.Percentage},
		{"Performance", rep.Performance.Message},
		{"Time Spent", rep.TimeSpent},
		{"Completed At", rep.CompletedAt.UTC().Format(time.RFC3339)},
		{"Questions Skipped", rep.Insights.QuestionsSkipped},
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	if _, err := f.NewSheet(reviewSheet); err != nil {
		return fmt.Errorf("create review sheet: %w", err)
	}
	header := []any{"#", "Question", "Your Answer", "Correct Answer", "Result", "Explanation"}
	if err := f.SetSheetRow(reviewSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	_ = f.SetCellStyle(reviewSheet, "A1", "F1", bold)
	_ = f.SetCellStyle(summarySheet, "A1", fmt.Sprintf("A%d", len(summary)), bold)

	for i, r := range rep.Rows {
		yours := "Not answered"
		if r.UserAnswer != nil {
			yours = optionText(r.Question, *r.UserAnswer)
		}
		verdict := "Incorrect"
		if r.IsCorrect {
			verdict = "Correct"
		}
		row := []any{
			r.Position + 1,
			r.Question.Text,
			yours,
			optionText(r.Question, r.Question.CorrectIndex),
			verdict,
			r.Question.Explanation,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(reviewSheet, cell, &row); err != nil {
			return fmt.Errorf("write review row %d: %w", i+1, err)
		}
	}
	_ = f.SetColWidth(summarySheet, "A", "B", 24)
	_ = f.SetColWidth(reviewSheet, "B", "F", 32)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func optionText(q model.Question, i int) string {
	if i < 0 || i >= len(q.Options) {
		return ""
	}
	return q.Options[i]
}
