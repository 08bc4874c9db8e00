package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/morler/codeassist/apperrors"
	"github.com/morler/codeassist/providers/contracts"
	"github.com/morler/codeassist/providers/models"
	ollama_models "github.com/morler/codeassist/providers/ollama/models"
	contracts2 "github.com/morler/codeassist/token_management/contracts"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// OllamaConfig implements the generator interface against a local Ollama server.
type OllamaConfig struct {
	BaseURL         string
	Model           string
	Temperature     *float32
	TokenManagement contracts2.ITokenManagement
	HTTPClient      *http.Client
	Logger          zerolog.Logger
}

const (
	defaultBaseURL = "http://localhost:11434/api"
)

// NewOllamaProvider initializes a new Ollama generator.
func NewOllamaProvider(config *OllamaConfig) contracts.IGenerator {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &OllamaConfig{
		BaseURL:         baseURL,
		Model:           config.Model,
		Temperature:     config.Temperature,
		TokenManagement: config.TokenManagement,
		HTTPClient:      client,
		Logger:          config.Logger,
	}
}

// Generate sends prompt as a single user message and gathers the streamed
// answer into one string.
func (ollamaProvider *OllamaConfig) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := ollama_models.OllamaChatCompletionRequest{
		Model: ollamaProvider.Model,
		Messages: []ollama_models.Message{
			{Role: "user", Content: prompt},
		},
		Stream:      true,
		Temperature: ollamaProvider.Temperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", apperrors.Generation("marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/chat", ollamaProvider.BaseURL), bytes.NewBuffer(jsonData))
	if err != nil {
		return "", apperrors.Generation("create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ollamaProvider.HTTPClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return "", apperrors.Generation("request canceled", err)
		}
		return "", apperrors.Generation("send request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var apiError models.AIError
		if err := json.Unmarshal(body, &apiError); err != nil || apiError.Error.Message == "" {
			return "", apperrors.Generation("chat", errors.Errorf("API request failed with status code '%d'", resp.StatusCode))
		}
		return "", apperrors.Generation("chat", errors.Errorf("API request failed with status code '%d' - %s", resp.StatusCode, apiError.Error.Message))
	}

	var contentBuilder strings.Builder
	reader := bufio.NewReader(resp.Body)

	for {
		line, err := reader.ReadString('\n')
		if strings.TrimSpace(line) != "" {
			var response ollama_models.OllamaChatCompletionResponse
			if jsonErr := json.Unmarshal([]byte(line), &response); jsonErr != nil {
				return "", apperrors.Generation("decode chunk", jsonErr)
			}

			contentBuilder.WriteString(response.Message.Content)

			if response.Done {
				ollamaProvider.recordUsage(response.PromptEvalCount, response.EvalCount)
				break
			}
		}

		if err != nil {
			if err == io.EOF {
				break
			}
			return "", apperrors.Generation("read stream", err)
		}
	}

	ollamaProvider.Logger.Debug().Str("model", ollamaProvider.Model).Int("chars", contentBuilder.Len()).Msg("ollama generation finished")
	return contentBuilder.String(), nil
}

func (ollamaProvider *OllamaConfig) recordUsage(input, output int) {
	if ollamaProvider.TokenManagement == nil || input+output == 0 {
		return
	}
	ollamaProvider.TokenManagement.UsedTokens(input, output)
}
