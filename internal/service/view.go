package service

import (
	"github.com/google/uuid"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/quiz"
)

// BuildView renders an engine snapshot for clients. The correct index and
// explanation of the current question are never included.
func BuildView(id uuid.UUID, st quiz.State) model.SessionView {
	v := model.SessionView{
		ID:     id,
		Title:  st.Title,
		Status: st.Status,
		Current: model.QuestionForTaker{
			Position: st.Position,
			Text:     st.Current.Text,
			Options:  st.Current.Options,
		},
		Position:         st.Position,
		Total:            st.Total,
		Answers:          st.Answers,
		Flags:            st.Flags,
		ProgressPercent:  st.ProgressPercent,
		AnsweredCount:    st.AnsweredCount,
		UnansweredCount:  st.UnansweredCount,
		IsLastQuestion:   st.IsLastQuestion,
		Timed:            st.Timed,
		TimeLimitSeconds: st.TimeLimitSeconds,
		SecondsRemaining: st.SecondsRemaining,
		StartedAt:        st.StartedAt,
	}

	if a, ok := st.Answers[st.Position]; ok {
		v.SelectedOption = &a
	}
	for _, p := range st.Flags {
		if p == st.Position {
			v.Flagged = true
			break
		}
	}
	if st.FirstUnanswered != quiz.None {
		p := st.FirstUnanswered
		v.FirstUnanswered = &p
	}
	if st.FirstFlagged != quiz.None {
		p := st.FirstFlagged
		v.FirstFlagged = &p
	}
	return v
}
