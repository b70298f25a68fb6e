// Package quiz holds the test-session core: question-set validation, the
// session state machine and scoring.
package quiz

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/stemsi/exstem-quiz/internal/model"
)

// DefaultTitle names question sets uploaded without a title.
const DefaultTitle = "Untitled Quiz"

// MaxOptions is the largest number of options a question may carry.
const MaxOptions = 10

// MaxTimeLimitSeconds caps timeLimit so huge values stay timed and positive
// after conversion.
const MaxTimeLimitSeconds = math.MaxInt32

// ValidationError describes the first violation found in a question set.
// Question is 1-based; 0 means the problem is with the set as a whole.
type ValidationError struct {
	Question int
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.Question == 0 {
		return e.Reason
	}
	return fmt.Sprintf("Question %d: %s", e.Question, e.Reason)
}

func setError(reason string) error {
	return &ValidationError{Reason: reason}
}

func questionError(n int, reason string) error {
	return &ValidationError{Question: n, Reason: reason}
}

// ValidateJSON decodes data and validates the result.
func ValidateJSON(data []byte) (*model.QuestionSet, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, setError("Invalid JSON: " + err.Error())
	}
	return Validate(raw)
}

// Validate turns decoded, untrusted data into a QuestionSet. It stops at the
// first offending question; nothing is returned unless every question is valid.
func Validate(raw any) (*model.QuestionSet, error) {
	root, ok := raw.(map[string]any)
	if !ok {
		return nil, setError("Invalid data format")
	}

	items, ok := root["questions"].([]any)
	if !ok {
		return nil, setError("Questions array is required")
	}
	if len(items) == 0 {
		return nil, setError("At least one question is required")
	}

	questions := make([]model.Question, 0, len(items))
	for i, item := range items {
		q, err := validateQuestion(i+1, item)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}

	set := &model.QuestionSet{
		Title:     DefaultTitle,
		Questions: questions,
	}
	if title, ok := root["title"].(string); ok && title != "" {
		set.Title = title
	}
	if limit, ok := toNumber(root["timeLimit"]); ok && limit > 0 {
		set.TimeLimitSeconds = int(math.Min(math.Floor(limit), MaxTimeLimitSeconds))
	}
	if shuffle, ok := root["shuffle"].(bool); ok {
		set.Shuffle = shuffle
	}
	return set, nil
}

func validateQuestion(n int, item any) (model.Question, error) {
	obj, ok := item.(map[string]any)
	if !ok {
		return model.Question{}, questionError(n, "Question text is required")
	}

	text, ok := obj["question"].(string)
	if !ok || text == "" {
		return model.Question{}, questionError(n, "Question text is required")
	}

	rawOptions, ok := obj["options"].([]any)
	if !ok || len(rawOptions) < 2 {
		return model.Question{}, questionError(n, "At least 2 options are required")
	}
	if len(rawOptions) > MaxOptions {
		return model.Question{}, questionError(n, fmt.Sprintf("At most %d options are allowed", MaxOptions))
	}
	options := make([]string, len(rawOptions))
	for i, o := range rawOptions {
		s, ok := o.(string)
		if !ok {
			return model.Question{}, questionError(n, fmt.Sprintf("Option %d must be text", i+1))
		}
		options[i] = s
	}

	correct, ok := toNumber(obj["correct"])
	if !ok || correct != math.Trunc(correct) || correct < 0 || correct >= float64(len(options)) {
		return model.Question{}, questionError(n, "Invalid correct answer index")
	}

	q := model.Question{
		Text:         text,
		Options:      options,
		CorrectIndex: int(correct),
	}
	if explanation, ok := obj["explanation"].(string); ok {
		q.Explanation = explanation
	}
	return q, nil
}

// toNumber accepts the numeric shapes produced by encoding/json and by Go
// callers building raw maps by hand.
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}

// Revalidate runs an already-typed set through the same rules, for sets that
// come back from storage or from a collaborator written in Go.
func Revalidate(set *model.QuestionSet) (*model.QuestionSet, error) {
	if set == nil {
		return nil, setError("Invalid data format")
	}
	data, err := json.Marshal(set)
	if err != nil {
		return nil, fmt.Errorf("marshal question set: %w", err)
	}
	return ValidateJSON(data)
}
