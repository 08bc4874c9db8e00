package openai

import (
	"context"

	"github.com/morler/codeassist/apperrors"
	"github.com/morler/codeassist/providers/contracts"
	contracts2 "github.com/morler/codeassist/token_management/contracts"
	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"gitlab.com/tozd/go/errors"
)

// OpenAIConfig implements the generator interface for any OpenAI compatible endpoint.
type OpenAIConfig struct {
	BaseURL         string
	ApiKey          string
	Model           string
	Temperature     *float32
	MaxTokens       int
	TokenManagement contracts2.ITokenManagement
	Logger          zerolog.Logger

	client *openai.Client
}

// NewOpenAIProvider initializes a new OpenAI generator.
func NewOpenAIProvider(config *OpenAIConfig) contracts.IGenerator {
	clientConfig := openai.DefaultConfig(config.ApiKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIConfig{
		BaseURL:         clientConfig.BaseURL,
		ApiKey:          config.ApiKey,
		Model:           config.Model,
		Temperature:     config.Temperature,
		MaxTokens:       config.MaxTokens,
		TokenManagement: config.TokenManagement,
		Logger:          config.Logger,
		client:          openai.NewClientWithConfig(clientConfig),
	}
}

func (openAIProvider *OpenAIConfig) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: openAIProvider.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if openAIProvider.Temperature != nil {
		req.Temperature = *openAIProvider.Temperature
	}
	if openAIProvider.MaxTokens > 0 {
		req.MaxTokens = openAIProvider.MaxTokens
	}

	resp, err := openAIProvider.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", apperrors.Generation("chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.Generation("chat completion", errors.New("no choices returned"))
	}

	if openAIProvider.TokenManagement != nil {
		openAIProvider.TokenManagement.UsedTokens(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}

	openAIProvider.Logger.Debug().Str("model", openAIProvider.Model).Str("finish_reason", string(resp.Choices[0].FinishReason)).Msg("openai generation finished")
	return resp.Choices[0].Message.Content, nil
}
