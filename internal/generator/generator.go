// Package generator produces question sets from a topic using an
// OpenAI-compatible chat-completions endpoint.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/quiz"
)

// Kind classifies a generation failure.
type Kind string

const (
	KindRequest Kind = "request"
	KindStatus  Kind = "status"
	KindDecode  Kind = "decode"
	KindInvalid Kind = "invalid"
)

// GenerationError is returned for every failed generation.
type GenerationError struct {
	Kind   Kind
	Status int
	Err    error
}

func (e *GenerationError) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("API Error: %d", e.Status)
	default:
		return fmt.Sprintf("generation %s error: %v", e.Kind, e.Err)
	}
}

func (e *GenerationError) Unwrap() error { return e.Err }

const systemPrompt = `You are an expert question generator. Create multiple choice questions in JSON format. Always respond with valid JSON only.

Format:
{
  "title": "Topic Name Quiz",
  "timeLimit": 600,
  "questions": [
    {
      "question": "Question text?",
      "options": ["Option A", "Option B", "Option C", "Option D"],
      "correct": 0,
      "explanation": "Brief explanation of the correct answer"
    }
  ]
}

Rules:
- Generate 5-10 questions
- Make questions educational and accurate
- Include brief explanations
- Vary difficulty levels
- Ensure only one correct answer per question`

const maxLoggedBody = 300

// maxResponseBytes caps the completion reply; a 2000-token answer is far below it.
const maxResponseBytes = 1 << 20

var errResponseTooLarge = errors.New("completion response too large")

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatResponse struct {
	ID      string       `json:"id,omitempty"`
	Choices []chatChoice `json:"choices"`
}

// Client calls the completions API. Without an API key it serves a demo set
// and never touches the network.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient builds a Client from the generator configuration.
func NewClient(cfg config.Generator, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "generator").Logger(),
	}
}

// Configured reports whether a real backend will be called.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Generate asks the backend for a question set about topic and validates the
// reply. The returned set always satisfies the validator.
func (c *Client) Generate(ctx context.Context, topic string) (*model.QuestionSet, error) {
	if !c.Configured() {
		c.log.Debug().Str("topic", topic).Msg("No API key, returning demo set")
		return DemoQuestionSet(topic), nil
	}

	start := time.Now()
	content, err := c.complete(ctx, topic)
	if err != nil {
		return nil, err
	}

	set, err := quiz.ValidateJSON([]byte(stripCodeFence(content)))
	if err != nil {
		var verr *quiz.ValidationError
		kind := KindInvalid
		if errors.As(err, &verr) && verr.Question == 0 && strings.HasPrefix(verr.Reason, "Invalid JSON") {
			kind = KindDecode
		}
		c.log.Warn().Err(err).Str("topic", topic).Msg("Generated content rejected")
		return nil, &GenerationError{Kind: kind, Err: err}
	}

	c.log.Info().
		Str("topic", topic).
		Int("questions", len(set.Questions)).
		Dur("took", time.Since(start)).
		Msg("Question set generated")
	return set, nil
}

func (c *Client) complete(ctx context.Context, topic string) (string, error) {
	reqBody, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: "Generate multiple choice questions about: " + topic},
		},
		Temperature: 0.7,
		MaxTokens:   2000,
	})
	if err != nil {
		return "", &GenerationError{Kind: KindRequest, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return "", &GenerationError{Kind: KindRequest, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error().Err(err).Msg("Completion request failed")
		return "", &GenerationError{Kind: KindRequest, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return "", &GenerationError{Kind: KindRequest, Err: err}
	}
	if len(body) > maxResponseBytes {
		c.log.Warn().Int("limit", maxResponseBytes).Msg("Completion response exceeded size limit")
		return "", &GenerationError{Kind: KindDecode, Err: errResponseTooLarge}
	}

	if resp.StatusCode != http.StatusOK {
		c.log.Warn().
			Int("status", resp.StatusCode).
			Str("body", truncate(string(body), maxLoggedBody)).
			Msg("Completion API returned error status")
		return "", &GenerationError{
			Kind:   KindStatus,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("status %d", resp.StatusCode),
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &GenerationError{Kind: KindDecode, Err: err}
	}
	if len(parsed.Choices) == 0 {
		return "", &GenerationError{Kind: KindDecode, Err: errors.New("no choices in API response")}
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// stripCodeFence removes a leading ```json or ``` fence and a trailing ```.
func stripCodeFence(content string) string {
	s := strings.TrimSpace(content)
	switch {
	case strings.HasPrefix(s, "```json"):
		s = strings.TrimPrefix(s, "```json")
	case strings.HasPrefix(s, "```"):
		s = strings.TrimPrefix(s, "```")
	default:
		return s
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
