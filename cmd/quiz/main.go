// Command quiz takes a quiz in the terminal.
//
//	quiz [-export json|xlsx] take questions.json
//	quiz [-export json|xlsx] sample
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/generator"
	"github.com/stemsi/exstem-quiz/internal/logger"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/quiz"
	"github.com/stemsi/exstem-quiz/internal/report"
	"golang.org/x/term"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  quiz [-export json|xlsx] take <questions.json>")
	fmt.Fprintln(os.Stderr, "  quiz [-export json|xlsx] sample")
	fmt.Fprintln(os.Stderr, "  quiz print-sample")
	flag.PrintDefaults()
}

func main() {
	exportFormat := flag.String("export", "", "write the results to the current directory as json or xlsx")
	flag.Usage = usage
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	// Logs go to stderr so they never interleave with the rendered quiz.
	log := logger.Component(logger.New(os.Stderr, cfg.LogLevel, cfg.LogFormat), "quiz_cli")

	if *exportFormat != "" && *exportFormat != report.FormatJSON && *exportFormat != report.FormatXLSX {
		fmt.Fprintf(os.Stderr, "unknown export format %q\n", *exportFormat)
		os.Exit(2)
	}

	var set *model.QuestionSet
	switch flag.Arg(0) {
	case "take":
		if flag.NArg() < 2 {
			usage()
			os.Exit(2)
		}
		data, err := os.ReadFile(flag.Arg(1))
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error reading file:", err)
			os.Exit(1)
		}
		set, err = quiz.ValidateJSON(data)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
	case "sample":
		set = generator.SampleQuestionSet()
	case "print-sample":
		data, _ := json.MarshalIndent(generator.SampleQuestionSet(), "", "  ")
		fmt.Println(string(data))
		return
	default:
		usage()
		os.Exit(2)
	}

	log.Debug().Str("title", set.Title).Int("questions", len(set.Questions)).Msg("Question set loaded")

	// ─── Terminal ──────────────────────────────────────────────────────
	fd := int(os.Stdout.Fd())
	interactive := term.IsTerminal(fd)
	width := 80
	if interactive {
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			width = w
		}
	}

	r := newRunner(os.Stdin, os.Stdout, width, interactive)
	res, err := r.run(set)
	if err != nil {
		log.Error().Err(err).Msg("Quiz aborted")
		os.Exit(1)
	}
	if res == nil {
		return
	}

	if *exportFormat != "" {
		name, err := writeExport(set.Title, *res, *exportFormat)
		if err != nil {
			log.Error().Err(err).Msg("Export failed")
			os.Exit(1)
		}
		fmt.Printf("Results saved to %s\n", name)
	}
}

func writeExport(title string, res model.Result, format string) (string, error) {
	name := report.Filename(time.Now(), format)

	var data []byte
	switch format {
	case report.FormatXLSX:
		var buf bytes.Buffer
		if err := report.WriteXLSX(&buf, report.Build(title, res)); err != nil {
			return "", err
		}
		data = buf.Bytes()
	default:
		var err error
		if data, err = report.ExportJSON(res); err != nil {
			return "", err
		}
	}
	return name, os.WriteFile(name, data, 0o644)
}
