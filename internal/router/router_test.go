package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/generator"
	"github.com/stemsi/exstem-quiz/internal/handler"
	"github.com/stemsi/exstem-quiz/internal/quiz"
	"github.com/stemsi/exstem-quiz/internal/repository"
	"github.com/stemsi/exstem-quiz/internal/service"
	"github.com/stemsi/exstem-quiz/internal/timer"
	"github.com/stemsi/exstem-quiz/internal/validator"
)

const capitals = `{
  "title": "Capitals",
  "questions": [
    {"question": "France?", "options": ["Paris", "Rome"], "correct": 0},
    {"question": "Italy?", "options": ["Paris", "Rome"], "correct": 1, "explanation": "Rome."}
  ]
}`

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

type testServer struct {
	t      *testing.T
	engine *gin.Engine
	clock  *timer.Manual
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	validator.Setup()

	cfg := &config.Config{GinMode: gin.TestMode, SessionSecret: "router-secret", SessionExpiry: time.Hour, StoreDriver: config.StoreMemory}
	log := zerolog.Nop()
	clock := timer.NewManual(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))

	tokens := service.NewTokenService(cfg)
	prefs := service.NewPreferenceService(repository.NewMemoryStore(), log)
	sets := service.NewQuestionSetService(generator.NewClient(cfg.Generator, log), log)
	sessions := service.NewSessionService(prefs, tokens, log,
		service.WithEngineOptions(quiz.WithClock(clock.Now), quiz.WithScheduler(clock)),
		service.WithNow(clock.Now),
	)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	engine := SetupRouter(ctx, tokens, &Handlers{
		QuestionSet: handler.NewQuestionSetHandler(sets, prefs),
		Preference:  handler.NewPreferenceHandler(prefs),
		Session:     handler.NewSessionHandler(sessions, sets),
		Result:      handler.NewResultHandler(nil, log),
		WS:          handler.NewWSHandler(sessions, log, nil),
		System:      handler.NewSystemHandler(sessions, nil, cfg.StoreDriver, log),
	}, cfg, log)

	return &testServer{t: t, engine: engine, clock: clock}
}

func (s *testServer) do(method, path, token, body string) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") && w.Header().Get("Content-Disposition") == "" {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

type created struct {
	Session struct {
		ID       string `json:"id"`
		Status   string `json:"status"`
		Total    int    `json:"total"`
		Position int    `json:"position"`
	} `json:"session"`
	Token string `json:"token"`
}

func (s *testServer) createSession(body string) created {
	s.t.Helper()
	w, env := s.do(http.MethodPost, "/api/v1/sessions", "", body)
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	var c created
	require.NoError(s.t, json.Unmarshal(env.Data, &c))
	return c
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/health", "/api/v1/health"} {
		w, env := s.do(http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, string(env.Data), `"status":"ok"`)
	}
}

func TestQuestionSets_ValidateReportsFirstBadQuestion(t *testing.T) {
	s := newTestServer(t)
	body := `{"questions":[
		{"question":"a","options":["x","y"],"correct":0},
		{"question":"b","options":["x","y"],"correct":1},
		{"question":"c","options":["x","y"],"correct":5}]}`

	w, env := s.do(http.MethodPost, "/api/v1/question-sets/validate", "", body)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_QUESTION_SET", env.Error.Code)
	assert.Equal(t, "Question 3: Invalid correct answer index", env.Error.Message)
	assert.Equal(t, "3", env.Error.Fields["question"])
}

func TestQuestionSets_SampleAndDownload(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(http.MethodGet, "/api/v1/question-sets/sample", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "Sample Math Quiz")
	assert.Contains(t, w.Header().Get("Cache-Control"), "max-age")

	w, _ = s.do(http.MethodGet, "/api/v1/question-sets/sample?download=true", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "sample-questions.json")
	_, err := quiz.ValidateJSON(w.Body.Bytes())
	assert.NoError(t, err, "the downloadable sample must be a valid upload")
}

func (s *testServer) upload(filename, content string) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(s.t, err)
		_, err = part.Write([]byte(content))
		require.NoError(s.t, err)
	}
	require.NoError(s.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/question-sets/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func TestQuestionSets_Upload(t *testing.T) {
	s := newTestServer(t)

	w, env := s.upload("capitals.json", capitals)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), `"title":"Capitals"`)

	w, env = s.upload("capitals.txt", capitals)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNSUPPORTED_FILE_TYPE", env.Error.Code)

	w, env = s.upload("", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "FILE_REQUIRED", env.Error.Code)

	w, env = s.upload("broken.json", `{"questions":[{"question":"a","options":["x"],"correct":0}]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Question 1: At least 2 options are required", env.Error.Message)
}

func TestQuestionSets_GenerateDemoAndValidation(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(http.MethodPost, "/api/v1/question-sets/generate", "", `{"topic":"Volcanoes"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), "Volcanoes")

	w, env = s.do(http.MethodPost, "/api/v1/question-sets/generate", "", `{"topic":"   "}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Fields, "topic")
}

func TestQuestionSets_SavedLifecycle(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(http.MethodGet, "/api/v1/question-sets/saved", "", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NO_SAVED_QUESTION_SET", env.Error.Code)

	w, _ = s.do(http.MethodPut, "/api/v1/question-sets/saved", "", capitals)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(http.MethodGet, "/api/v1/question-sets/saved", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "Capitals")

	w, _ = s.do(http.MethodDelete, "/api/v1/question-sets/saved", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(http.MethodGet, "/api/v1/question-sets/saved", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPreferences(t *testing.T) {
	s := newTestServer(t)

	_, env := s.do(http.MethodGet, "/api/v1/preferences", "", "")
	assert.JSONEq(t, `{"dark_mode":false}`, string(env.Data))

	w, _ := s.do(http.MethodPut, "/api/v1/preferences", "", `{"dark_mode":true}`)
	require.Equal(t, http.StatusOK, w.Code)

	_, env = s.do(http.MethodGet, "/api/v1/preferences", "", "")
	assert.JSONEq(t, `{"dark_mode":true}`, string(env.Data))

	w, env = s.do(http.MethodPut, "/api/v1/preferences", "", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error.Fields, "dark_mode")
}

func TestResults_UnavailableWithoutDatabase(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(http.MethodGet, "/api/v1/results", "", "")
	assert.Equal(t, http.StatusNotImplemented, w.Code)
	assert.Equal(t, "FEATURE_UNAVAILABLE", env.Error.Code)
}

func TestSessions_CreateRequiresSource(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(http.MethodPost, "/api/v1/sessions", "", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error.Fields, "question_set")

	w, env = s.do(http.MethodPost, "/api/v1/sessions", "", `{"use_saved":true}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NO_SAVED_QUESTION_SET", env.Error.Code)

	w, env = s.do(http.MethodPost, "/api/v1/sessions", "", `{"question_set":{"questions":[]}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "At least one question is required", env.Error.Message)
}

func TestSessions_TokenGuardsRoutes(t *testing.T) {
	s := newTestServer(t)
	a := s.createSession(`{"question_set":` + capitals + `}`)
	b := s.createSession(`{"question_set":` + capitals + `}`)

	w, env := s.do(http.MethodGet, "/api/v1/sessions/"+a.Session.ID, "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "TOKEN_REQUIRED", env.Error.Code)

	w, env = s.do(http.MethodGet, "/api/v1/sessions/"+a.Session.ID, b.Token, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/sessions/"+a.Session.ID, a.Token, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestSessions_FullAttempt(t *testing.T) {
	s := newTestServer(t)
	c := s.createSession(`{"question_set":` + capitals + `}`)
	require.Equal(t, "IN_PROGRESS", c.Session.Status)
	require.Equal(t, 2, c.Session.Total)
	base := "/api/v1/sessions/" + c.Session.ID

	w, env := s.do(http.MethodGet, base, c.Token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, string(env.Data), `"correct"`, "the answer key must not leak")

	w, env = s.do(http.MethodPost, base+"/answer", c.Token, `{"option_index":7}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "INVALID_OPTION", env.Error.Code)

	w, _ = s.do(http.MethodPost, base+"/answer", c.Token, `{"option_index":0}`)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(http.MethodPost, base+"/flag", c.Token, "")
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(http.MethodPost, base+"/next", c.Token, "")
	require.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(http.MethodPost, base+"/goto", c.Token, `{"position":9}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "INVALID_POSITION", env.Error.Code)

	w, _ = s.do(http.MethodPost, base+"/answer", c.Token, `{"option_index":0}`)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(http.MethodGet, base+"/result", c.Token, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "SESSION_NOT_COMPLETED", env.Error.Code)

	s.clock.Advance(5)
	w, env = s.do(http.MethodPost, base+"/complete", c.Token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"status":"COMPLETED"`)

	w, env = s.do(http.MethodGet, base+"/result", c.Token, "")
	require.Equal(t, http.StatusOK, w.Code)
	var rep struct {
		Score struct {
			Correct    int `json:"correct"`
			Total      int `json:"total"`
			Percentage int `json:"percentage"`
		} `json:"score"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &rep))
	assert.Equal(t, 1, rep.Score.Correct)
	assert.Equal(t, 2, rep.Score.Total)
	assert.Equal(t, 50, rep.Score.Percentage)

	w, _ = s.do(http.MethodGet, base+"/result/export?format=json", c.Token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "quiz-results-2026-03-02.json")
	assert.Contains(t, w.Body.String(), `"incorrectAnswers": 1`)

	w, _ = s.do(http.MethodGet, base+"/result/export?format=xlsx", c.Token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")), "xlsx is a zip container")

	w, env = s.do(http.MethodGet, base+"/result/export?format=pdf", c.Token, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "UNSUPPORTED_FORMAT", env.Error.Code)
}

func TestSessions_RestartIssuesNewSession(t *testing.T) {
	s := newTestServer(t)
	c := s.createSession(`{"question_set":` + capitals + `}`)

	w, env := s.do(http.MethodPost, "/api/v1/sessions/"+c.Session.ID+"/restart", c.Token, "")
	require.Equal(t, http.StatusCreated, w.Code)
	var next created
	require.NoError(t, json.Unmarshal(env.Data, &next))
	assert.NotEqual(t, c.Session.ID, next.Session.ID)

	w, env = s.do(http.MethodGet, "/api/v1/sessions/"+c.Session.ID, c.Token, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "SESSION_NOT_FOUND", env.Error.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/sessions/"+next.Session.ID, next.Token, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSessions_CreateFromSavedAfterUpload(t *testing.T) {
	s := newTestServer(t)
	s.createSession(`{"question_set":` + capitals + `}`)

	c := s.createSession(`{"use_saved":true}`)
	assert.Equal(t, 2, c.Session.Total)
}

func TestWebSocket_Stream(t *testing.T) {
	s := newTestServer(t)
	c := s.createSession(`{"question_set":` + capitals + `}`)

	srv := httptest.NewServer(s.engine)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/v1/sessions/" + c.Session.ID + "/stream?token=" + c.Token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	readEvent := func() map[string]any {
		var m map[string]any
		require.NoError(t, conn.ReadJSON(&m))
		return m
	}

	assert.Equal(t, "state", readEvent()["event"])

	require.NoError(t, conn.WriteJSON(map[string]any{"action": "ping"}))
	assert.Equal(t, "pong", readEvent()["event"])

	require.NoError(t, conn.WriteJSON(map[string]any{"action": "answer"}))
	ev := readEvent()
	assert.Equal(t, "error", ev["event"])
	assert.Equal(t, "option_index is required", ev["error"])

	require.NoError(t, conn.WriteJSON(map[string]any{"action": "answer", "option_index": 1}))
	assert.Equal(t, "state", readEvent()["event"])

	require.NoError(t, conn.WriteJSON(map[string]any{"action": "complete"}))
	seen := map[any]bool{}
	for range 2 {
		seen[readEvent()["event"]] = true
	}
	assert.True(t, seen["state"])
	assert.True(t, seen["completed"])
}

func TestWebSocket_RejectsWrongToken(t *testing.T) {
	s := newTestServer(t)
	a := s.createSession(`{"question_set":` + capitals + `}`)
	b := s.createSession(`{"question_set":` + capitals + `}`)

	srv := httptest.NewServer(s.engine)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/v1/sessions/" + a.Session.ID + "/stream?token=" + b.Token
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
