package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/stemsi/exstem-quiz/internal/model"
)

func sampleResult() model.Result {
	return model.Result{
		Questions: []model.Question{
			{Text: "2+2?", Options: []string{"3", "4"}, CorrectIndex: 1, Explanation: "Basic sum."},
			{Text: "3*3?", Options: []string{"9", "6"}, CorrectIndex: 0},
			{Text: "10-7?", Options: []string{"2", "3"}, CorrectIndex: 1},
		},
		Answers:          map[int]int{0: 1, 1: 1},
		TimeSpentSeconds: 125,
		CompletedAt:      time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC),
	}
}

func TestPerformance(t *testing.T) {
	tests := []struct {
		pct  int
		want string
	}{
		{100, "Excellent work!"},
		{90, "Excellent work!"},
		{89, "Great job!"},
		{80, "Great job!"},
		{70, "Good effort!"},
		{60, "Keep practicing!"},
		{59, "Review and try again!"},
		{0, "Review and try again!"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Performance(tt.pct).Message, "pct=%d", tt.pct)
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0m 0s", FormatDuration(0))
	assert.Equal(t, "0m 59s", FormatDuration(59))
	assert.Equal(t, "2m 5s", FormatDuration(125))
	assert.Equal(t, "61m 1s", FormatDuration(3661))
	assert.Equal(t, "0m 0s", FormatDuration(-3))
}

func TestBuild(t *testing.T) {
	rep := Build("Arithmetic", sampleResult())

	assert.Equal(t, "Arithmetic", rep.Title)
	assert.Equal(t, model.ScoreSummary{Correct: 1, Total: 3, Percentage: 33}, rep.Score)
	assert.Equal(t, "Review and try again!", rep.Performance.Message)
	assert.Equal(t, "2m 5s", rep.TimeSpent)
	assert.Equal(t, 33.3, rep.Insights.AccuracyRate)
	require.NotNil(t, rep.Insights.AvgSecondsPerQuestion)
	assert.Equal(t, 42, *rep.Insights.AvgSecondsPerQuestion)
	assert.Equal(t, 1, rep.Insights.QuestionsSkipped)
	require.Len(t, rep.Rows, 3)
	assert.False(t, rep.Rows[2].WasAnswered)
}

func TestBuild_NoTimeRecorded(t *testing.T) {
	r := sampleResult()
	r.TimeSpentSeconds = 0
	assert.Nil(t, Build("x", r).Insights.AvgSecondsPerQuestion)
}

func TestFilename(t *testing.T) {
	day := time.Date(2026, 10, 18, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "quiz-results-2026-10-18.json", Filename(day, FormatJSON))
	assert.Equal(t, "quiz-results-2026-10-18.xlsx", Filename(day, FormatXLSX))
}

func TestExportJSON(t *testing.T) {
	data, err := ExportJSON(sampleResult())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Len(t, doc["questions"], 3)
	assert.Equal(t, map[string]any{"0": 1.0, "1": 1.0}, doc["answers"])
	assert.Equal(t, 125.0, doc["timeSpent"])
	assert.Equal(t, "2026-03-04T10:30:00Z", doc["completedAt"])
	assert.Equal(t, map[string]any{"correct": 1.0, "total": 3.0, "percentage": 33.0}, doc["score"])
	assert.Equal(t, map[string]any{
		"totalQuestions":   3.0,
		"correctAnswers":   1.0,
		"incorrectAnswers": 2.0,
		"percentage":       33.0,
		"timeSpent":        "2m 5s",
	}, doc["summary"])
	assert.Contains(t, string(data), "\n  \"questions\"")
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, Build("Arithmetic", sampleResult())))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{summarySheet, reviewSheet}, f.GetSheetList())

	title, err := f.GetCellValue(summarySheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "Arithmetic", title)

	rows, err := f.GetRows(reviewSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"1", "2+2?", "4", "4", "Correct", "Basic sum."}, rows[1])
	assert.Equal(t, "Not answered", rows[3][2])
	assert.Equal(t, "Incorrect", rows[3][4])
}
