package service

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quiz/internal/generator"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/quiz"
)

// Generator produces a question set for a topic.
type Generator interface {
	Generate(ctx context.Context, topic string) (*model.QuestionSet, error)
}

// QuestionSetService is the question source: uploads, the sample and the
// generator all come out of it validated.
type QuestionSetService struct {
	gen Generator
	log zerolog.Logger
}

func NewQuestionSetService(gen Generator, log zerolog.Logger) *QuestionSetService {
	return &QuestionSetService{
		gen: gen,
		log: log.With().Str("component", "question_set_service").Logger(),
	}
}

// Validate parses an uploaded or pasted question set.
func (s *QuestionSetService) Validate(data []byte) (*model.QuestionSet, error) {
	set, err := quiz.ValidateJSON(data)
	if err != nil {
		s.log.Debug().Err(err).Msg("question set rejected")
		return nil, err
	}
	return set, nil
}

// Sample returns the built-in example set.
func (s *QuestionSetService) Sample() *model.QuestionSet {
	return generator.SampleQuestionSet()
}

// Generate asks the generator for a set about topic and validates it once
// more before handing it out.
func (s *QuestionSetService) Generate(ctx context.Context, topic string) (*model.QuestionSet, error) {
	set, err := s.gen.Generate(ctx, topic)
	if err != nil {
		s.log.Warn().Err(err).Str("topic", topic).Msg("generation failed")
		return nil, err
	}
	return quiz.Revalidate(set)
}
