// Package report turns a completed Result into the results page and its
// downloadable exports.
package report

import (
	"fmt"
	"math"
	"time"

	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/quiz"
)

// Band is the performance message shown above the score.
type Band struct {
	Message string `json:"message"`
	Tone    string `json:"tone"`
}

var bands = []struct {
	min  int
	band Band
}{
	{90, Band{"Excellent work!", "green"}},
	{80, Band{"Great job!", "blue"}},
	{70, Band{"Good effort!", "yellow"}},
	{60, Band{"Keep practicing!", "orange"}},
}

// Performance picks the band for a rounded percentage.
func Performance(percentage int) Band {
	for _, b := range bands {
		if percentage >= b.min {
			return b.band
		}
	}
	return Band{"Review and try again!", "red"}
}

// FormatDuration renders seconds as "Xm Ys".
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
}

// Insights are the secondary figures under the score.
type Insights struct {
	AccuracyRate float64 `json:"accuracy_rate"`
	// AvgSecondsPerQuestion is nil when no time was recorded.
	AvgSecondsPerQuestion *int `json:"avg_seconds_per_question"`
	QuestionsSkipped      int  `json:"questions_skipped"`
}

// Report is everything the results page renders.
type Report struct {
	Title            string             `json:"title"`
	Score            model.ScoreSummary `json:"score"`
	Performance      Band               `json:"performance"`
	TimeSpent        string             `json:"time_spent"`
	TimeSpentSeconds int                `json:"time_spent_seconds"`
	CompletedAt      time.Time          `json:"completed_at"`
	Insights         Insights           `json:"insights"`
	Rows             []model.ReviewRow  `json:"rows"`
}

// Build scores result and assembles the page data.
func Build(title string, result model.Result) Report {
	score := quiz.Score(result)

	insights := Insights{
		QuestionsSkipped: score.Total - len(result.Answers),
	}
	if score.Total > 0 {
		insights.AccuracyRate = math.Round(float64(score.Correct)/float64(score.Total)*1000) / 10
		if result.TimeSpentSeconds > 0 {
			avg := int(math.Round(float64(result.TimeSpentSeconds) / float64(score.Total)))
			insights.AvgSecondsPerQuestion = &avg
		}
	}

	return Report{
		Title:            title,
		Score:            score,
		Performance:      Performance(score.Percentage),
		TimeSpent:        FormatDuration(result.TimeSpentSeconds),
		TimeSpentSeconds: result.TimeSpentSeconds,
		CompletedAt:      result.CompletedAt,
		Insights:         insights,
		Rows:             quiz.ReviewRows(result),
	}
}
