package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/morler/codeassist/apperrors"
	"github.com/morler/codeassist/token_management"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIProvider_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-4o",
			"choices": []map[string]interface{}{
				{"index": 0, "finish_reason": "stop", "message": map[string]string{"role": "assistant", "content": "print(1)"}},
			},
			"usage": map[string]int{"prompt_tokens": 7, "completion_tokens": 2, "total_tokens": 9},
		})
	}))
	defer server.Close()

	tokens := token_management.NewTokenManager()
	provider := NewOpenAIProvider(&OpenAIConfig{
		BaseURL:         server.URL + "/v1",
		ApiKey:          "secret",
		Model:           "gpt-4o",
		TokenManagement: tokens,
		Logger:          zerolog.Nop(),
	})

	text, err := provider.Generate(context.Background(), "print one")
	require.NoError(t, err)
	assert.Equal(t, "print(1)", text)

	total, _, _ := tokens.GetCurrentTokenUsage()
	assert.Equal(t, 9, total)
}

func TestOpenAIProvider_FailureIsGenerationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider(&OpenAIConfig{BaseURL: server.URL + "/v1", ApiKey: "bad", Model: "gpt-4o", Logger: zerolog.Nop()})

	_, err := provider.Generate(context.Background(), "anything")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindGeneration, apperrors.KindOf(err))
}
