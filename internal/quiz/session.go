package quiz

import (
	"errors"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/timer"
)

// Session errors.
var (
	ErrEmptyQuestionSet   = errors.New("question set has no questions")
	ErrOptionOutOfRange   = errors.New("option index out of range for current question")
	ErrPositionOutOfRange = errors.New("position out of range")
)

// Session is one attempt at a question set. All intents and timer ticks are
// serialized on the session's own lock, so a Session may be shared between
// goroutines. Once completed, every intent is a silent no-op.
type Session struct {
	mu sync.Mutex

	set       model.QuestionSet
	questions []model.Question
	answers   map[int]int
	flags     map[int]struct{}
	position  int
	startedAt time.Time
	status    model.SessionStatus
	timer     *timer.Timer
	result    *model.Result

	now        func() time.Time
	shuffle    func(n int, swap func(i, j int))
	scheduler  timer.Scheduler
	onComplete func(model.Result)
}

// Option configures a Session.
type Option func(*Session)

// WithClock sets the time source used for start and completion stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithRand sets the random source used to shuffle question order.
func WithRand(r *rand.Rand) Option {
	return func(s *Session) { s.shuffle = r.Shuffle }
}

// WithScheduler sets the tick source for the countdown of timed sessions.
func WithScheduler(sch timer.Scheduler) Option {
	return func(s *Session) { s.scheduler = sch }
}

// OnComplete registers fn to receive the Result exactly once. fn runs while
// the session lock is held and must not call back into the Session.
func OnComplete(fn func(model.Result)) Option {
	return func(s *Session) { s.onComplete = fn }
}

// StartSession begins an attempt at set. The presented order is fixed here,
// and a countdown starts when the set has a positive time limit.
func StartSession(set *model.QuestionSet, opts ...Option) (*Session, error) {
	if set == nil || len(set.Questions) == 0 {
		return nil, ErrEmptyQuestionSet
	}

	s := &Session{
		set:     *set,
		answers: make(map[int]int),
		flags:   make(map[int]struct{}),
		status:  model.SessionStatusInProgress,
		now:     time.Now,
		shuffle: rand.Shuffle,
	}
	for _, o := range opts {
		o(s)
	}
	if s.scheduler == nil {
		s.scheduler = timer.NewRealScheduler(nil)
	}

	s.set.Questions = cloneQuestions(set.Questions)
	s.questions = cloneQuestions(set.Questions)
	if set.Shuffle {
		s.shuffle(len(s.questions), func(i, j int) {
			s.questions[i], s.questions[j] = s.questions[j], s.questions[i]
		})
	}
	s.startedAt = s.now()

	if set.TimeLimitSeconds > 0 {
		s.timer = timer.New(set.TimeLimitSeconds, s.completeLocked,
			timer.WithScheduler(lockedScheduler{inner: s.scheduler, mu: &s.mu}))
		s.timer.Start()
	}
	return s, nil
}

// lockedScheduler runs every tick under the session lock, so timer expiry
// and user intents never overlap.
type lockedScheduler struct {
	inner timer.Scheduler
	mu    *sync.Mutex
}

func (l lockedScheduler) Every(interval time.Duration, fn func()) func() {
	return l.inner.Every(interval, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		fn()
	})
}

// SelectAnswer records optionIndex for the current question, replacing any
// earlier choice. It does not move the position.
func (s *Session) SelectAnswer(optionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == model.SessionStatusCompleted {
		return nil
	}
	if optionIndex < 0 || optionIndex >= len(s.questions[s.position].Options) {
		return ErrOptionOutOfRange
	}
	s.answers[s.position] = optionIndex
	return nil
}

// GoNext moves forward one question; no-op on the last one.
func (s *Session) GoNext() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == model.SessionStatusInProgress && s.position < len(s.questions)-1 {
		s.position++
	}
}

// GoPrevious moves back one question; no-op on the first one.
func (s *Session) GoPrevious() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == model.SessionStatusInProgress && s.position > 0 {
		s.position--
	}
}

// GoTo jumps to position. Out-of-range positions leave the session unchanged
// and report ErrPositionOutOfRange.
func (s *Session) GoTo(position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == model.SessionStatusCompleted {
		return nil
	}
	if !s.inRange(position) {
		return ErrPositionOutOfRange
	}
	s.position = position
	return nil
}

// ToggleFlag flips the review flag of the current question.
func (s *Session) ToggleFlag() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == model.SessionStatusInProgress {
		s.toggleFlagLocked(s.position)
	}
}

// ToggleFlagAt flips the review flag of position.
func (s *Session) ToggleFlagAt(position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == model.SessionStatusCompleted {
		return nil
	}
	if !s.inRange(position) {
		return ErrPositionOutOfRange
	}
	s.toggleFlagLocked(position)
	return nil
}

func (s *Session) toggleFlagLocked(position int) {
	if _, ok := s.flags[position]; ok {
		delete(s.flags, position)
		return
	}
	s.flags[position] = struct{}{}
}

// Complete closes the session and returns its Result. Later calls return the
// first Result unchanged.
func (s *Session) Complete() model.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.completeLocked()
	return cloneResult(*s.result)
}

func (s *Session) completeLocked() {
	if s.status == model.SessionStatusCompleted {
		return
	}

	now := s.now()
	var spent int
	if s.timer != nil {
		s.timer.Pause()
		spent = s.set.TimeLimitSeconds - s.timer.SecondsRemaining()
	} else {
		ms := now.Sub(s.startedAt).Milliseconds()
		if ms < 0 {
			ms = 0
		}
		spent = int((ms + 500) / 1000)
	}

	s.status = model.SessionStatusCompleted
	s.result = &model.Result{
		Questions:        cloneQuestions(s.questions),
		Answers:          cloneAnswers(s.answers),
		TimeSpentSeconds: spent,
		CompletedAt:      now.UTC(),
	}

	if s.onComplete != nil {
		s.onComplete(cloneResult(*s.result))
	}
}

// Abandon stops the countdown of a session that is being discarded. No Result
// is produced and the status does not change.
func (s *Session) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Pause()
	}
}

// Result returns the frozen Result once the session is completed.
func (s *Session) Result() (model.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.result == nil {
		return model.Result{}, false
	}
	return cloneResult(*s.result), true
}

// The frozen Result and the presented order are never handed out directly;
// callers get copies down to each question's options.

func cloneResult(r model.Result) model.Result {
	r.Questions = cloneQuestions(r.Questions)
	r.Answers = cloneAnswers(r.Answers)
	return r
}

func cloneQuestions(qs []model.Question) []model.Question {
	out := make([]model.Question, len(qs))
	for i, q := range qs {
		out[i] = cloneQuestion(q)
	}
	return out
}

func cloneQuestion(q model.Question) model.Question {
	q.Options = append([]string(nil), q.Options...)
	return q
}

func cloneAnswers(answers map[int]int) map[int]int {
	out := make(map[int]int, len(answers))
	for k, v := range answers {
		out[k] = v
	}
	return out
}

func (s *Session) inRange(position int) bool {
	return position >= 0 && position < len(s.questions)
}

// State is a consistent snapshot of everything a presenter renders.
type State struct {
	Title            string
	Status           model.SessionStatus
	Position         int
	Total            int
	Current          model.Question
	Answers          map[int]int
	Flags            []int
	ProgressPercent  float64
	AnsweredCount    int
	UnansweredCount  int
	IsLastQuestion   bool
	FirstUnanswered  int
	FirstFlagged     int
	Timed            bool
	TimeLimitSeconds int
	SecondsRemaining int
	StartedAt        time.Time
}

// None marks an absent position in State.
const None = -1

// Snapshot captures the session state under one lock.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Title:            s.set.Title,
		Status:           s.status,
		Position:         s.position,
		Total:            len(s.questions),
		Current:          cloneQuestion(s.questions[s.position]),
		Answers:          cloneAnswers(s.answers),
		Flags:            s.sortedFlagsLocked(),
		ProgressPercent:  s.progressLocked(),
		AnsweredCount:    len(s.answers),
		UnansweredCount:  len(s.questions) - len(s.answers),
		IsLastQuestion:   s.position == len(s.questions)-1,
		FirstUnanswered:  s.firstUnansweredLocked(),
		FirstFlagged:     s.firstFlaggedLocked(),
		Timed:            s.timer != nil,
		TimeLimitSeconds: s.set.TimeLimitSeconds,
		StartedAt:        s.startedAt,
	}
	if s.timer != nil {
		st.SecondsRemaining = s.timer.SecondsRemaining()
	}
	return st
}

// OrderedQuestions returns a copy of the presented order.
func (s *Session) OrderedQuestions() []model.Question {
	s.mu.Lock()
	defer s.mu.Unlock()

	return cloneQuestions(s.questions)
}

// QuestionSet returns the set the session was started from, in authoring
// order.
func (s *Session) QuestionSet() model.QuestionSet {
	set := s.set
	set.Questions = cloneQuestions(s.set.Questions)
	return set
}

// Status returns the session status.
func (s *Session) Status() model.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Position returns the current 0-based position.
func (s *Session) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// Total returns the number of questions.
func (s *Session) Total() int {
	return len(s.questions)
}

// Answers returns a copy of the recorded answers.
func (s *Session) Answers() map[int]int {
	return s.Snapshot().Answers
}

// ProgressPercent is (position+1)/total*100.
func (s *Session) ProgressPercent() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progressLocked()
}

// AnsweredCount returns how many positions have an answer.
func (s *Session) AnsweredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}

// UnansweredCount returns total minus answered. This is also the number of
// skipped questions on the report.
func (s *Session) UnansweredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.questions) - len(s.answers)
}

// IsLastQuestion reports whether the current position is the last one.
func (s *Session) IsLastQuestion() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position == len(s.questions)-1
}

// FirstUnanswered returns the lowest position without an answer.
func (s *Session) FirstUnanswered() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.firstUnansweredLocked()
	return p, p != None
}

// FirstFlagged returns the lowest flagged position.
func (s *Session) FirstFlagged() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.firstFlaggedLocked()
	return p, p != None
}

// SecondsRemaining returns the countdown value, or 0 for untimed sessions.
func (s *Session) SecondsRemaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer == nil {
		return 0
	}
	return s.timer.SecondsRemaining()
}

func (s *Session) progressLocked() float64 {
	return float64(s.position+1) / float64(len(s.questions)) * 100
}

func (s *Session) firstUnansweredLocked() int {
	for i := range s.questions {
		if _, ok := s.answers[i]; !ok {
			return i
		}
	}
	return None
}

func (s *Session) firstFlaggedLocked() int {
	first := None
	for p := range s.flags {
		if first == None || p < first {
			first = p
		}
	}
	return first
}

func (s *Session) sortedFlagsLocked() []int {
	flags := make([]int, 0, len(s.flags))
	for p := range s.flags {
		flags = append(flags, p)
	}
	sort.Ints(flags)
	return flags
}
