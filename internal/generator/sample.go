package generator

import (
	"fmt"

	"github.com/stemsi/exstem-quiz/internal/model"
)

// SampleQuestionSet is the built-in set offered as a format example.
func SampleQuestionSet() *model.QuestionSet {
	return &model.QuestionSet{
		Title:            "Sample Math Quiz",
		TimeLimitSeconds: 600,
		Questions: []model.Question{
			{
				Text:         "What is 2 + 2?",
				Options:      []string{"3", "4", "5", "6"},
				CorrectIndex: 1,
				Explanation:  "2 + 2 equals 4.",
			},
			{
				Text:         "What is the square root of 16?",
				Options:      []string{"2", "4", "6", "8"},
				CorrectIndex: 1,
				Explanation:  "The square root of 16 is 4.",
			},
			{
				Text:         "What is 5 × 6?",
				Options:      []string{"25", "30", "35", "40"},
				CorrectIndex: 1,
				Explanation:  "5 multiplied by 6 equals 30.",
			},
		},
	}
}

// DemoQuestionSet stands in for generation when no API key is configured.
func DemoQuestionSet(topic string) *model.QuestionSet {
	return &model.QuestionSet{
		Title:            "Demo Quiz: " + topic,
		TimeLimitSeconds: 600,
		Questions: []model.Question{
			{
				Text:         fmt.Sprintf("What is a fundamental concept in %q?", topic),
				Options:      []string{"Concept A", "Concept B", "Concept C", "Concept D"},
				CorrectIndex: 0,
				Explanation:  "This is a demo question. Add an API key for real generation.",
			},
		},
	}
}
