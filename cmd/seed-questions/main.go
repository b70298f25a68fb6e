// Command seed-questions stores a question set as the saved set in the
// configured store, so "use saved" sessions have something to start from.
//
//	seed-questions [-sample] [file.json]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/database"
	"github.com/stemsi/exstem-quiz/internal/generator"
	"github.com/stemsi/exstem-quiz/internal/logger"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/quiz"
	"github.com/stemsi/exstem-quiz/internal/repository"
	"github.com/stemsi/exstem-quiz/internal/service"
)

func main() {
	useSample := flag.Bool("sample", false, "seed the built-in sample set instead of a file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.Setup("info", "pretty")
		bootLog.Fatal().Err(err).Msg("Invalid configuration")
	}
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	if cfg.StoreDriver == config.StoreMemory {
		log.Fatal().Msg("STORE_DRIVER is memory; nothing would survive this command")
	}

	set, err := loadQuestionSet(*useSample, flag.Args())
	if errors.Is(err, errUsage) {
		fmt.Fprintln(os.Stderr, "usage: seed-questions [-sample] [file.json]")
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Question set rejected")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	b, err := database.Connect(ctx, cfg, false, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect store")
	}
	defer b.Close()

	prefs := service.NewPreferenceService(repository.OpenStore(cfg.StoreDriver, b), log)
	if err := prefs.SaveQuestionSet(ctx, set); err != nil {
		log.Fatal().Err(err).Msg("Failed to save question set")
	}

	fmt.Printf("=== Saved %q (%d questions) to the %s store ===\n", set.Title, len(set.Questions), cfg.StoreDriver)
}

var errUsage = errors.New("usage")

// loadQuestionSet returns the sample, or the single file named in args after
// validation.
func loadQuestionSet(useSample bool, args []string) (*model.QuestionSet, error) {
	switch {
	case useSample && len(args) == 0:
		return generator.SampleQuestionSet(), nil
	case !useSample && len(args) == 1:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, fmt.Errorf("read question set: %w", err)
		}
		set, err := quiz.ValidateJSON(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", args[0], err)
		}
		return set, nil
	default:
		return nil, errUsage
	}
}
