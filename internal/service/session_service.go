package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/quiz"
	"github.com/stemsi/exstem-quiz/internal/report"
)

// Session errors.
var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionNotCompleted = errors.New("session is not completed yet")
	ErrInvalidOption       = errors.New("option index out of range")
	ErrInvalidPosition     = errors.New("position out of range")
	ErrUnknownExportFormat = errors.New("unknown export format")
)

// EventCompleted is published once when a session completes, whether by
// request or by timer expiry.
const EventCompleted = "completed"

// SessionEvent is delivered to subscribers of a session.
type SessionEvent struct {
	Type      string
	SessionID uuid.UUID
	Report    *report.Report
}

// ResultSink receives completed attempts for persistence.
type ResultSink interface {
	Enqueue(ctx context.Context, res model.StoredResult) error
}

type sessionEntry struct {
	id      uuid.UUID
	set     model.QuestionSet
	session *quiz.Session

	mu       sync.Mutex
	lastSeen time.Time
	subs     map[int]chan SessionEvent
	nextSub  int
	final    *SessionEvent
}

// SessionService hosts running quiz sessions in memory.
type SessionService struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*sessionEntry

	prefs      *PreferenceService
	tokens     *TokenService
	sink       ResultSink
	idleTTL    time.Duration
	now        func() time.Time
	engineOpts []quiz.Option
	log        zerolog.Logger
}

// SessionServiceOption configures a SessionService.
type SessionServiceOption func(*SessionService)

// WithResultSink enables persistence of completed attempts.
func WithResultSink(sink ResultSink) SessionServiceOption {
	return func(s *SessionService) { s.sink = sink }
}

// WithEngineOptions passes options to every quiz.StartSession call.
func WithEngineOptions(opts ...quiz.Option) SessionServiceOption {
	return func(s *SessionService) { s.engineOpts = append(s.engineOpts, opts...) }
}

// WithIdleTTL sets how long an untouched session survives.
func WithIdleTTL(d time.Duration) SessionServiceOption {
	return func(s *SessionService) { s.idleTTL = d }
}

// WithNow replaces the clock used for idle tracking.
func WithNow(now func() time.Time) SessionServiceOption {
	return func(s *SessionService) { s.now = now }
}

func NewSessionService(prefs *PreferenceService, tokens *TokenService, log zerolog.Logger, opts ...SessionServiceOption) *SessionService {
	s := &SessionService{
		sessions: make(map[uuid.UUID]*sessionEntry),
		prefs:    prefs,
		tokens:   tokens,
		idleTTL:  2 * time.Hour,
		now:      time.Now,
		log:      log.With().Str("component", "session_service").Logger(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Create starts a session on set and remembers set as the last used one.
func (s *SessionService) Create(ctx context.Context, set *model.QuestionSet) (*model.CreateSessionResponse, error) {
	if err := s.prefs.SaveQuestionSet(ctx, set); err != nil {
		s.log.Warn().Err(err).Msg("could not remember question set, starting anyway")
	}
	return s.start(set)
}

// CreateFromSaved starts a session on the saved question set.
func (s *SessionService) CreateFromSaved(ctx context.Context) (*model.CreateSessionResponse, error) {
	set, err := s.prefs.SavedQuestionSet(ctx)
	if err != nil {
		return nil, err
	}
	return s.start(set)
}

// Restart discards session id and starts a fresh attempt on the same set.
func (s *SessionService) Restart(ctx context.Context, id uuid.UUID) (*model.CreateSessionResponse, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	s.remove(e)
	s.log.Info().Str("session_id", id.String()).Msg("Session restarted")

	set := e.set
	return s.start(&set)
}

func (s *SessionService) start(set *model.QuestionSet) (*model.CreateSessionResponse, error) {
	e := &sessionEntry{
		id:       uuid.New(),
		set:      *set,
		lastSeen: s.now(),
		subs:     make(map[int]chan SessionEvent),
	}

	opts := append([]quiz.Option{
		quiz.OnComplete(func(r model.Result) { s.onComplete(e, r) }),
	}, s.engineOpts...)

	sess, err := quiz.StartSession(set, opts...)
	if err != nil {
		return nil, err
	}
	e.session = sess

	token, err := s.tokens.Issue(e.id)
	if err != nil {
		sess.Abandon()
		return nil, err
	}

	s.mu.Lock()
	s.sessions[e.id] = e
	s.mu.Unlock()

	s.log.Info().
		Str("session_id", e.id.String()).
		Str("title", set.Title).
		Int("questions", len(set.Questions)).
		Int("time_limit", set.TimeLimitSeconds).
		Bool("shuffle", set.Shuffle).
		Msg("Session started")

	return &model.CreateSessionResponse{
		Session: BuildView(e.id, sess.Snapshot()),
		Token:   token,
	}, nil
}

// onComplete runs under the engine's lock and must not call back into it.
func (s *SessionService) onComplete(e *sessionEntry, r model.Result) {
	rep := report.Build(e.set.Title, r)
	ev := SessionEvent{Type: EventCompleted, SessionID: e.id, Report: &rep}

	e.mu.Lock()
	e.final = &ev
	for _, ch := range e.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	e.mu.Unlock()

	s.log.Info().
		Str("session_id", e.id.String()).
		Int("correct", rep.Score.Correct).
		Int("total", rep.Score.Total).
		Int("time_spent", r.TimeSpentSeconds).
		Msg("Session completed")

	if s.sink != nil {
		go s.persist(e, r, rep.Score)
	}
}

func (s *SessionService) persist(e *sessionEntry, r model.Result, score model.ScoreSummary) {
	payload, err := json.Marshal(r)
	if err != nil {
		s.log.Error().Err(err).Str("session_id", e.id.String()).Msg("marshal result failed")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = s.sink.Enqueue(ctx, model.StoredResult{
		ID:               uuid.New(),
		SessionID:        e.id,
		Title:            e.set.Title,
		Correct:          score.Correct,
		Total:            score.Total,
		Percentage:       score.Percentage,
		TimeSpentSeconds: r.TimeSpentSeconds,
		CompletedAt:      r.CompletedAt,
		Payload:          payload,
	})
	if err != nil {
		s.log.Error().Err(err).Str("session_id", e.id.String()).Msg("enqueue result failed")
	}
}

func (s *SessionService) lookup(id uuid.UUID) (*sessionEntry, error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	e.mu.Lock()
	e.lastSeen = s.now()
	e.mu.Unlock()
	return e, nil
}

// remove drops e from the registry, stops its countdown and closes its
// subscriber channels.
func (s *SessionService) remove(e *sessionEntry) {
	s.mu.Lock()
	delete(s.sessions, e.id)
	s.mu.Unlock()

	e.session.Abandon()

	e.mu.Lock()
	for k, ch := range e.subs {
		delete(e.subs, k)
		close(ch)
	}
	e.mu.Unlock()
}

// Get returns the current view of a session.
func (s *SessionService) Get(id uuid.UUID) (model.SessionView, error) {
	return s.apply(id, func(*quiz.Session) error { return nil })
}

// Answer records option for the current question.
func (s *SessionService) Answer(id uuid.UUID, option int) (model.SessionView, error) {
	return s.apply(id, func(q *quiz.Session) error {
		if err := q.SelectAnswer(option); errors.Is(err, quiz.ErrOptionOutOfRange) {
			return ErrInvalidOption
		}
		return nil
	})
}

// Next moves to the following question.
func (s *SessionService) Next(id uuid.UUID) (model.SessionView, error) {
	return s.apply(id, func(q *quiz.Session) error { q.GoNext(); return nil })
}

// Previous moves to the preceding question.
func (s *SessionService) Previous(id uuid.UUID) (model.SessionView, error) {
	return s.apply(id, func(q *quiz.Session) error { q.GoPrevious(); return nil })
}

// GoTo jumps to position.
func (s *SessionService) GoTo(id uuid.UUID, position int) (model.SessionView, error) {
	return s.apply(id, func(q *quiz.Session) error {
		if err := q.GoTo(position); errors.Is(err, quiz.ErrPositionOutOfRange) {
			return ErrInvalidPosition
		}
		return nil
	})
}

// ToggleFlag flips the flag at position, or at the current question when
// position is nil.
func (s *SessionService) ToggleFlag(id uuid.UUID, position *int) (model.SessionView, error) {
	return s.apply(id, func(q *quiz.Session) error {
		if position == nil {
			q.ToggleFlag()
			return nil
		}
		if err := q.ToggleFlagAt(*position); errors.Is(err, quiz.ErrPositionOutOfRange) {
			return ErrInvalidPosition
		}
		return nil
	})
}

// Complete closes the session. Completing twice returns the same state.
func (s *SessionService) Complete(id uuid.UUID) (model.SessionView, error) {
	return s.apply(id, func(q *quiz.Session) error { q.Complete(); return nil })
}

func (s *SessionService) apply(id uuid.UUID, intent func(*quiz.Session) error) (model.SessionView, error) {
	e, err := s.lookup(id)
	if err != nil {
		return model.SessionView{}, err
	}
	if err := intent(e.session); err != nil {
		return model.SessionView{}, err
	}
	return BuildView(e.id, e.session.Snapshot()), nil
}

// SecondsRemaining reports the countdown and whether the session is still in
// progress.
func (s *SessionService) SecondsRemaining(id uuid.UUID) (int, bool, error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return 0, false, ErrSessionNotFound
	}
	return e.session.SecondsRemaining(), e.session.Status() == model.SessionStatusInProgress, nil
}

// Result returns the report of a completed session.
func (s *SessionService) Result(id uuid.UUID) (*report.Report, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	r, ok := e.session.Result()
	if !ok {
		return nil, ErrSessionNotCompleted
	}
	rep := report.Build(e.set.Title, r)
	return &rep, nil
}

// Export is a downloadable results document.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Export renders the result of a completed session as format.
func (s *SessionService) Export(id uuid.UUID, format string) (*Export, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	r, ok := e.session.Result()
	if !ok {
		return nil, ErrSessionNotCompleted
	}

	switch format {
	case report.FormatJSON, "":
		data, err := report.ExportJSON(r)
		if err != nil {
			return nil, err
		}
		return &Export{
			Filename:    report.Filename(s.now(), report.FormatJSON),
			ContentType: "application/json",
			Data:        data,
		}, nil
	case report.FormatXLSX:
		var buf bytes.Buffer
		if err := report.WriteXLSX(&buf, report.Build(e.set.Title, r)); err != nil {
			return nil, err
		}
		return &Export{
			Filename:    report.Filename(s.now(), report.FormatXLSX),
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        buf.Bytes(),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExportFormat, format)
	}
}

// Subscribe delivers the session's events until cancel is called or the
// session is evicted, which closes the channel. A session that has already
// completed replays its completed event immediately.
func (s *SessionService) Subscribe(id uuid.UUID) (<-chan SessionEvent, func(), error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan SessionEvent, 1)

	e.mu.Lock()
	key := e.nextSub
	e.nextSub++
	e.subs[key] = ch
	if e.final != nil {
		ch <- *e.final
	}
	e.mu.Unlock()

	cancel := func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if c, ok := e.subs[key]; ok {
			delete(e.subs, key)
			close(c)
		}
	}
	return ch, cancel, nil
}

// Count returns how many sessions are held.
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// EvictIdle drops every session untouched for longer than the idle TTL and
// returns how many were dropped.
func (s *SessionService) EvictIdle() int {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.RLock()
	var stale []*sessionEntry
	for _, e := range s.sessions {
		e.mu.Lock()
		if e.lastSeen.Before(cutoff) {
			stale = append(stale, e)
		}
		e.mu.Unlock()
	}
	s.mu.RUnlock()

	for _, e := range stale {
		s.remove(e)
	}
	return len(stale)
}

// RunJanitor evicts idle sessions every interval until ctx is done.
func (s *SessionService) RunJanitor(ctx context.Context, interval time.Duration) {
	s.log.Info().Dur("idle_ttl", s.idleTTL).Msg("Session janitor started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.EvictIdle(); n > 0 {
				s.log.Info().Int("evicted", n).Int("remaining", s.Count()).Msg("Evicted idle sessions")
			}
		}
	}
}
