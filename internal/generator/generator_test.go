package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/quiz"
)

const validContent = `{"title":"Go Quiz","timeLimit":300,"questions":[{"question":"Who made Go?","options":["Google","Apple"],"correct":0}]}`

func completionServer(t *testing.T, status int, content string, raw string) (*httptest.Server, *chatRequest) {
	t.Helper()
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(status)
		if raw != "" {
			_, _ = w.Write([]byte(raw))
			return
		}
		_ = json.NewEncoder(w).Encode(chatResponse{
			Choices: []chatChoice{{Message: chatMessage{Role: "assistant", Content: content}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func newTestClient(url string) *Client {
	return NewClient(config.Generator{
		BaseURL: url + "/",
		APIKey:  "sk-test",
		Model:   "test-model",
		Timeout: 2 * time.Second,
	}, zerolog.Nop())
}

func TestGenerate_ValidReply(t *testing.T) {
	srv, req := completionServer(t, http.StatusOK, "```json\n"+validContent+"\n```", "")

	set, err := newTestClient(srv.URL).Generate(context.Background(), "golang")
	require.NoError(t, err)

	assert.Equal(t, "Go Quiz", set.Title)
	assert.Equal(t, 300, set.TimeLimitSeconds)
	require.Len(t, set.Questions, 1)

	assert.Equal(t, "test-model", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "Generate multiple choice questions about: golang", req.Messages[1].Content)
}

func TestGenerate_StatusError(t *testing.T) {
	srv, _ := completionServer(t, http.StatusTooManyRequests, "", `{"error":"slow down"}`)

	_, err := newTestClient(srv.URL).Generate(context.Background(), "x")

	var gerr *GenerationError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, KindStatus, gerr.Kind)
	assert.Equal(t, http.StatusTooManyRequests, gerr.Status)
	assert.Equal(t, "API Error: 429", err.Error())
}

func TestGenerate_DecodeErrors(t *testing.T) {
	tests := map[string]struct {
		content string
		raw     string
	}{
		"body not json":   {raw: "<html>"},
		"no choices":      {raw: `{"choices":[]}`},
		"content garbage": {content: "Sure! Here are your questions."},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			srv, _ := completionServer(t, http.StatusOK, tt.content, tt.raw)

			_, err := newTestClient(srv.URL).Generate(context.Background(), "x")

			var gerr *GenerationError
			require.ErrorAs(t, err, &gerr)
			assert.Equal(t, KindDecode, gerr.Kind)
		})
	}
}

func TestGenerate_RejectsOversizedReply(t *testing.T) {
	huge := `{"choices":[{"message":{"role":"assistant","content":"` + strings.Repeat("a", maxResponseBytes) + `"}}]}`
	srv, _ := completionServer(t, http.StatusOK, "", huge)

	_, err := newTestClient(srv.URL).Generate(context.Background(), "x")

	var gerr *GenerationError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, KindDecode, gerr.Kind)
	assert.ErrorIs(t, err, errResponseTooLarge)
}

func TestGenerate_InvalidSet(t *testing.T) {
	srv, _ := completionServer(t, http.StatusOK, `{"questions":[{"question":"q","options":["a"],"correct":0}]}`, "")

	_, err := newTestClient(srv.URL).Generate(context.Background(), "x")

	var gerr *GenerationError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, KindInvalid, gerr.Kind)

	var verr *quiz.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 1, verr.Question)
}

func TestGenerate_ContextCancelled(t *testing.T) {
	srv, _ := completionServer(t, http.StatusOK, validContent, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(srv.URL).Generate(ctx, "x")

	var gerr *GenerationError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, KindRequest, gerr.Kind)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerate_DemoWithoutKey(t *testing.T) {
	c := NewClient(config.Generator{BaseURL: "http://127.0.0.1:1"}, zerolog.Nop())
	require.False(t, c.Configured())

	set, err := c.Generate(context.Background(), "Photosynthesis")
	require.NoError(t, err)
	assert.Equal(t, "Demo Quiz: Photosynthesis", set.Title)
	assert.Equal(t, 600, set.TimeLimitSeconds)
	require.Len(t, set.Questions, 1)

	_, err = quiz.Revalidate(set)
	assert.NoError(t, err)
}

func TestSampleQuestionSetIsValid(t *testing.T) {
	set, err := quiz.Revalidate(SampleQuestionSet())
	require.NoError(t, err)
	assert.Equal(t, "Sample Math Quiz", set.Title)
	assert.Len(t, set.Questions, 3)
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("  {\"a\":1}  "))
}
