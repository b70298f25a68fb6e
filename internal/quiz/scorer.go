package quiz

import "github.com/stemsi/exstem-quiz/internal/model"

// Score counts correct answers in a completed Result. An unanswered position
// is never correct.
func Score(result model.Result) model.ScoreSummary {
	total := len(result.Questions)
	correct := 0
	for i, q := range result.Questions {
		if a, ok := result.Answers[i]; ok && a == q.CorrectIndex {
			correct++
		}
	}
	return model.ScoreSummary{
		Correct:    correct,
		Total:      total,
		Percentage: Percentage(correct, total),
	}
}

// Percentage rounds correct/total*100 half-up in integer arithmetic.
func Percentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return (correct*200 + total) / (2 * total)
}

// ReviewRows lists every question in the order it was presented.
func ReviewRows(result model.Result) []model.ReviewRow {
	rows := make([]model.ReviewRow, len(result.Questions))
	for i, q := range result.Questions {
		row := model.ReviewRow{Position: i, Question: q}
		if a, ok := result.Answers[i]; ok {
			answer := a
			row.UserAnswer = &answer
			row.WasAnswered = true
			row.IsCorrect = a == q.CorrectIndex
		}
		rows[i] = row
	}
	return rows
}

// IncorrectRows returns the review rows that were answered wrongly or left
// blank.
func IncorrectRows(result model.Result) []model.ReviewRow {
	var out []model.ReviewRow
	for _, row := range ReviewRows(result) {
		if !row.IsCorrect {
			out = append(out, row)
		}
	}
	return out
}
