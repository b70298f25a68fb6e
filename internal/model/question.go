package model

// Question is a single multiple-choice question. The JSON tags follow the
// upload format accepted from files, pasted text and the generator.
type Question struct {
	Text         string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct"`
	Explanation  string   `json:"explanation,omitempty"`
}

// QuestionSet is a validated, titled collection of questions.
// TimeLimitSeconds of 0 means the test is untimed.
type QuestionSet struct {
	Title            string     `json:"title"`
	TimeLimitSeconds int        `json:"timeLimit"`
	Shuffle          bool       `json:"shuffle"`
	Questions        []Question `json:"questions"`
}

// QuestionForTaker is a question without its answer key, sent to clients
// while a session is in progress.
type QuestionForTaker struct {
	Position int      `json:"position"`
	Text     string   `json:"question"`
	Options  []string `json:"options"`
}

// GenerateQuestionSetRequest is the payload for AI question generation.
type GenerateQuestionSetRequest struct {
	Topic string `json:"topic" binding:"required,notblank,min=2,max=200"`
}
