package main

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/quiz"
	"github.com/stemsi/exstem-quiz/internal/timer"
)

func testSet(limit int) *model.QuestionSet {
	return &model.QuestionSet{
		Title:            "Colors",
		TimeLimitSeconds: limit,
		Questions: []model.Question{
			{Text: "Sky?", Options: []string{"Blue", "Green"}, CorrectIndex: 0},
			{Text: "Grass?", Options: []string{"Blue", "Green"}, CorrectIndex: 1, Explanation: "Chlorophyll."},
		},
	}
}

func newTestRunner(input string, clock *timer.Manual) (*runner, *bytes.Buffer) {
	var out bytes.Buffer
	r := newRunner(strings.NewReader(input), &out, 80, false,
		quiz.WithClock(clock.Now), quiz.WithScheduler(clock))
	return r, &out
}

func TestRunner_CompletesAndPrintsReport(t *testing.T) {
	clock := timer.NewManual(time.Unix(0, 0))
	r, out := newTestRunner("1\nn\n1\nc\n", clock)

	res, err := r.run(testSet(0))
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, map[int]int{0: 0, 1: 0}, res.Answers)
	text := out.String()
	assert.Contains(t, text, "Score: 1/2 (50%)")
	assert.Contains(t, text, "Review and try again!")
	assert.Contains(t, text, "Correct: Green")
	assert.Contains(t, text, "Chlorophyll.")
}

func TestRunner_CompleteAsksToConfirmWithUnanswered(t *testing.T) {
	clock := timer.NewManual(time.Unix(0, 0))
	r, out := newTestRunner("2\nc\nc\n", clock)

	res, err := r.run(testSet(0))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Contains(t, out.String(), "1 question(s) unanswered")
	assert.Contains(t, out.String(), "Not answered")
}

func TestRunner_QuitAbandons(t *testing.T) {
	clock := timer.NewManual(time.Unix(0, 0))
	r, out := newTestRunner("1\nq\n", clock)

	res, err := r.run(testSet(60))
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Contains(t, out.String(), "Quiz abandoned.")
	assert.Zero(t, clock.Pending(), "abandoning stops the countdown")
}

func TestRunner_EndOfInputIsAnError(t *testing.T) {
	clock := timer.NewManual(time.Unix(0, 0))
	r, _ := newTestRunner("1\n", clock)

	_, err := r.run(testSet(0))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestRunner_TimerExpiryCompletes(t *testing.T) {
	clock := timer.NewManual(time.Unix(0, 0))
	pr, pw := io.Pipe()
	defer pw.Close()

	var out bytes.Buffer
	r := newRunner(pr, &out, 80, false, quiz.WithClock(clock.Now), quiz.WithScheduler(clock))

	go func() {
		// The write returns once the runner is reading, so the session exists.
		_, _ = pw.Write([]byte("h\n"))
		clock.Advance(30)
	}()

	res, err := r.run(testSet(30))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 30, res.TimeSpentSeconds)
	assert.Empty(t, res.Answers)
}

func TestRunner_HandleNavigation(t *testing.T) {
	clock := timer.NewManual(time.Unix(0, 0))
	r, _ := newTestRunner("", clock)
	sess, err := quiz.StartSession(testSet(0), quiz.WithClock(clock.Now), quiz.WithScheduler(clock))
	require.NoError(t, err)
	r.sess = sess

	msg, _ := r.handle("g 2")
	assert.Empty(t, msg)
	assert.Equal(t, 1, sess.Position())

	msg, _ = r.handle("g 5")
	assert.Equal(t, "There is no question 5.", msg)

	msg, _ = r.handle("l")
	assert.Equal(t, "No questions are flagged.", msg)

	r.handle("f")
	r.handle("p")
	r.handle("l")
	assert.Equal(t, 1, sess.Position())

	msg, _ = r.handle("7")
	assert.Equal(t, "There is no option 7.", msg)

	r.handle("2")
	r.handle("u")
	assert.Equal(t, 0, sess.Position())

	msg, _ = r.handle("x")
	assert.Equal(t, "Unknown key. Press h for help.", msg)

	_, quit := r.handle("q")
	assert.True(t, quit)
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "[----------]   0%", progressBar(0, 18))
	assert.Equal(t, "[#####-----]  50%", progressBar(50, 18))
	assert.Equal(t, "[##########] 100%", progressBar(100, 10))
}
