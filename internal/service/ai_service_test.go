package service

import (
	"context"
	"encoding/json"
	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/testutil"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingGenerator struct {
	prompt string
	reply  string
}

func (g *recordingGenerator) Complete(_ context.Context, prompt string) (string, error) {
	g.prompt = prompt
	return g.reply, nil
}

func TestGenerateQuizReturnsProviderText(t *testing.T) {
	env := newEnv(t)
	instructor := testutil.CreateUser(t, env.db, model.Instructor)
	other := testutil.CreateUser(t, env.db, model.Instructor)
	fx := testutil.CreateCourse(t, env.db, instructor, 2, 0)

	gen := &recordingGenerator{reply: "  1. What is Go?\n"}
	svc := NewAIService(repository.NewCourseRepository(env.db), gen)

	_, err := svc.GenerateQuiz(env.ctx, actorOf(other), fx.Course.ID)
	assert.ErrorIs(t, err, util.ErrNotCourseOwner)

	out, err := svc.GenerateQuiz(env.ctx, actorOf(instructor), fx.Course.ID)
	require.NoError(t, err)
	assert.Equal(t, "  1. What is Go?\n", out.Content)
	assert.Contains(t, gen.prompt, fx.Course.Title)
	assert.Contains(t, gen.prompt, "content 1")
	assert.Contains(t, gen.prompt, "content 2")
}

func TestChatCompletionClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 1)

		w.Header().Set("Content-Type", "application/json")
		if req.Messages[0].Content == "fail" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"bad prompt"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"quiz text"}}]}`))
	}))
	defer srv.Close()

	client := NewChatCompletionClient(config.AIConfig{BaseURL: srv.URL + "/", APIKey: "secret", Model: "test-model"})

	text, err := client.Complete(context.Background(), "make a quiz")
	require.NoError(t, err)
	assert.Equal(t, "quiz text", text)

	_, err = client.Complete(context.Background(), "fail")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad prompt")
}
