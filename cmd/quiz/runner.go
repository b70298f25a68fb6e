package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/quiz"
	"github.com/stemsi/exstem-quiz/internal/report"
)

const helpText = `Keys: 1-9 answer | n next | p previous | f flag | g N go to question N
      u first unanswered | l first flagged | c complete | q quit | h help`

// runner drives one session from line-based input. Timer expiry completes
// the session while the runner waits for input.
type runner struct {
	in          io.Reader
	out         io.Writer
	width       int
	interactive bool
	opts        []quiz.Option

	sess           *quiz.Session
	confirmPending bool
}

func newRunner(in io.Reader, out io.Writer, width int, interactive bool, opts ...quiz.Option) *runner {
	return &runner{in: in, out: out, width: width, interactive: interactive, opts: opts}
}

// run plays set to completion. It returns nil, nil when the taker quits.
func (r *runner) run(set *model.QuestionSet) (*model.Result, error) {
	expired := make(chan model.Result, 1)
	opts := append([]quiz.Option{quiz.OnComplete(func(res model.Result) {
		select {
		case expired <- res:
		default:
		}
	})}, r.opts...)

	sess, err := quiz.StartSession(set, opts...)
	if err != nil {
		return nil, err
	}
	r.sess = sess

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(r.in)
		for sc.Scan() {
			lines <- sc.Text()
		}
		readErr <- sc.Err()
	}()

	fmt.Fprintln(r.out, helpText)
	r.render("")

	finish := func(res model.Result, timedOut bool) (*model.Result, error) {
		if timedOut {
			fmt.Fprintln(r.out, "\nTime's up!")
		}
		r.printReport(set.Title, res)
		return &res, nil
	}

	for {
		select {
		case res := <-expired:
			return finish(res, true)
		case err := <-readErr:
			r.sess.Abandon()
			if err == nil {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		case line := <-lines:
			msg, quit := r.handle(line)
			if quit {
				r.sess.Abandon()
				fmt.Fprintln(r.out, "Quiz abandoned.")
				return nil, nil
			}
			if r.sess.Status() == model.SessionStatusCompleted {
				return finish(<-expired, false)
			}
			r.render(msg)
		}
	}
}

// handle applies one input line and returns a message for the taker.
func (r *runner) handle(line string) (string, bool) {
	line = strings.TrimSpace(strings.ToLower(line))
	if line != "c" {
		r.confirmPending = false
	}

	switch {
	case line == "":
		return "", false
	case line == "q":
		return "", true
	case line == "h" || line == "?":
		return helpText, false
	case line == "n":
		r.sess.GoNext()
	case line == "p":
		r.sess.GoPrevious()
	case line == "f":
		r.sess.ToggleFlag()
	case line == "u":
		pos, ok := r.sess.FirstUnanswered()
		if !ok {
			return "Every question is answered.", false
		}
		_ = r.sess.GoTo(pos)
	case line == "l":
		pos, ok := r.sess.FirstFlagged()
		if !ok {
			return "No questions are flagged.", false
		}
		_ = r.sess.GoTo(pos)
	case line == "c":
		if n := r.sess.UnansweredCount(); n > 0 && !r.confirmPending {
			r.confirmPending = true
			return fmt.Sprintf("%d question(s) unanswered. Press c again to submit.", n), false
		}
		r.sess.Complete()
	case strings.HasPrefix(line, "g"):
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "g")))
		if err != nil {
			return "Usage: g N", false
		}
		if err := r.sess.GoTo(n - 1); err != nil {
			return fmt.Sprintf("There is no question %d.", n), false
		}
	default:
		n, err := strconv.Atoi(line)
		if err != nil || n < 1 || n > 9 {
			return "Unknown key. Press h for help.", false
		}
		if err := r.sess.SelectAnswer(n - 1); err != nil {
			return fmt.Sprintf("There is no option %d.", n), false
		}
	}
	return "", false
}

func (r *runner) render(msg string) {
	st := r.sess.Snapshot()
	if r.interactive {
		fmt.Fprint(r.out, "\033[H\033[2J")
	}

	header := fmt.Sprintf("%s  [%d/%d]", st.Title, st.Position+1, st.Total)
	if st.Timed {
		header += "  " + clock(st.SecondsRemaining)
	}
	fmt.Fprintln(r.out, header)
	fmt.Fprintln(r.out, progressBar(st.ProgressPercent, r.width))
	fmt.Fprintln(r.out)

	flag := ""
	if containsInt(st.Flags, st.Position) {
		flag = "  [flagged]"
	}
	fmt.Fprintf(r.out, "Q%d. %s%s\n", st.Position+1, st.Current.Text, flag)

	selected, answered := st.Answers[st.Position]
	for i, opt := range st.Current.Options {
		mark := " "
		if answered && selected == i {
			mark = "*"
		}
		fmt.Fprintf(r.out, "%s %d) %s\n", mark, i+1, opt)
	}

	fmt.Fprintf(r.out, "\nAnswered %d, unanswered %d", st.AnsweredCount, st.UnansweredCount)
	if len(st.Flags) > 0 {
		fmt.Fprintf(r.out, ", flagged %d", len(st.Flags))
	}
	fmt.Fprintln(r.out)
	if st.IsLastQuestion {
		fmt.Fprintln(r.out, "Last question. Press c to complete.")
	}
	if msg != "" {
		fmt.Fprintln(r.out, msg)
	}
	fmt.Fprint(r.out, "> ")
}

func (r *runner) printReport(title string, res model.Result) {
	rep := report.Build(title, res)

	fmt.Fprintf(r.out, "\n=== %s: Results ===\n", rep.Title)
	fmt.Fprintf(r.out, "Score: %d/%d (%d%%)  %s\n", rep.Score.Correct, rep.Score.Total, rep.Score.Percentage, rep.Performance.Message)
	fmt.Fprintf(r.out, "Time: %s\n", rep.TimeSpent)
	fmt.Fprintf(r.out, "Accuracy: %.1f%%  Skipped: %d", rep.Insights.AccuracyRate, rep.Insights.QuestionsSkipped)
	if rep.Insights.AvgSecondsPerQuestion != nil {
		fmt.Fprintf(r.out, "  Avg: %ds/question", *rep.Insights.AvgSecondsPerQuestion)
	}
	fmt.Fprintln(r.out)

	wrong := quiz.IncorrectRows(res)
	if len(wrong) == 0 {
		return
	}
	fmt.Fprintln(r.out, "\nReview:")
	for _, row := range wrong {
		q := row.Question
		fmt.Fprintf(r.out, "Q%d. %s\n", row.Position+1, q.Text)
		if row.UserAnswer != nil {
			fmt.Fprintf(r.out, "   Your answer: %s\n", q.Options[*row.UserAnswer])
		} else {
			fmt.Fprintln(r.out, "   Not answered")
		}
		fmt.Fprintf(r.out, "   Correct: %s\n", q.Options[q.CorrectIndex])
		if q.Explanation != "" {
			fmt.Fprintf(r.out, "   %s\n", q.Explanation)
		}
	}
}

func clock(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// progressBar fits a bar and its percentage into width columns.
func progressBar(percent float64, width int) string {
	barWidth := min(max(width-8, 10), 60)
	filled := int(percent / 100 * float64(barWidth))
	filled = min(max(filled, 0), barWidth)
	return fmt.Sprintf("[%s%s] %3.0f%%",
		strings.Repeat("#", filled), strings.Repeat("-", barWidth-filled), percent)
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
