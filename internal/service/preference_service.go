package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/quiz"
	"github.com/stemsi/exstem-quiz/internal/repository"
)

// ErrNoSavedQuestionSet is returned when nothing valid has been saved yet.
var ErrNoSavedQuestionSet = errors.New("no saved question set")

// PreferenceService persists the last used question set and the display
// preference through the key/value store.
type PreferenceService struct {
	store repository.Store
	log   zerolog.Logger
}

func NewPreferenceService(store repository.Store, log zerolog.Logger) *PreferenceService {
	return &PreferenceService{
		store: store,
		log:   log.With().Str("component", "preference_service").Logger(),
	}
}

// GetPreferences returns the stored preferences. Missing or unreadable
// values fall back to defaults.
func (s *PreferenceService) GetPreferences(ctx context.Context) (model.Preferences, error) {
	raw, ok, err := s.store.Get(ctx, config.CacheKey.DarkModeKey())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to read dark mode preference")
		return model.Preferences{}, err
	}
	if !ok {
		return model.Preferences{}, nil
	}

	dark, err := strconv.ParseBool(raw)
	if err != nil {
		s.log.Warn().Str("value", raw).Msg("ignoring malformed dark mode preference")
		return model.Preferences{}, nil
	}
	return model.Preferences{DarkMode: dark}, nil
}

// SetDarkMode stores the display preference.
func (s *PreferenceService) SetDarkMode(ctx context.Context, dark bool) error {
	if err := s.store.Set(ctx, config.CacheKey.DarkModeKey(), strconv.FormatBool(dark)); err != nil {
		s.log.Error().Err(err).Msg("failed to save dark mode preference")
		return err
	}
	return nil
}

// SaveQuestionSet remembers set as the last used one.
func (s *PreferenceService) SaveQuestionSet(ctx context.Context, set *model.QuestionSet) error {
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("marshal question set: %w", err)
	}
	if err := s.store.Set(ctx, config.CacheKey.SavedQuestionSetKey(), string(data)); err != nil {
		s.log.Error().Err(err).Msg("failed to save question set")
		return err
	}
	return nil
}

// SavedQuestionSet restores the last used set. Stored data is validated
// again; a value that no longer passes is discarded.
func (s *PreferenceService) SavedQuestionSet(ctx context.Context) (*model.QuestionSet, error) {
	raw, ok, err := s.store.Get(ctx, config.CacheKey.SavedQuestionSetKey())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to read saved question set")
		return nil, err
	}
	if !ok {
		return nil, ErrNoSavedQuestionSet
	}

	set, err := quiz.ValidateJSON([]byte(raw))
	if err != nil {
		s.log.Warn().Err(err).Msg("discarding invalid saved question set")
		_ = s.store.Delete(ctx, config.CacheKey.SavedQuestionSetKey())
		return nil, ErrNoSavedQuestionSet
	}
	return set, nil
}

// ClearSavedQuestionSet forgets the saved set.
func (s *PreferenceService) ClearSavedQuestionSet(ctx context.Context) error {
	return s.store.Delete(ctx, config.CacheKey.SavedQuestionSetKey())
}
