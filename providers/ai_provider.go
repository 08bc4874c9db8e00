package providers

import (
	"strings"

	"github.com/morler/codeassist/providers/contracts"
	"github.com/morler/codeassist/providers/ollama"
	"github.com/morler/codeassist/providers/openai"
	contracts_token "github.com/morler/codeassist/token_management/contracts"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// AIProviderConfig selects and configures the generation backend.
type AIProviderConfig struct {
	Provider    string   `mapstructure:"provider"`
	BaseURL     string   `mapstructure:"base_url"`
	Model       string   `mapstructure:"model"`
	Temperature *float32 `mapstructure:"temperature"`
	MaxTokens   int      `mapstructure:"max_tokens"`
	ApiKey      string   `mapstructure:"api_key"`
}

// ProviderFactory builds the generator named by config.Provider.
func ProviderFactory(config *AIProviderConfig, tokenManagement contracts_token.ITokenManagement, logger zerolog.Logger) (contracts.IGenerator, error) {
	if config == nil {
		return nil, errors.New("no ai provider configured")
	}

	switch strings.ToLower(config.Provider) {
	case "ollama":
		return ollama.NewOllamaProvider(&ollama.OllamaConfig{
			BaseURL:         config.BaseURL,
			Model:           config.Model,
			Temperature:     config.Temperature,
			TokenManagement: tokenManagement,
			Logger:          logger,
		}), nil
	case "openai", "deepseek", "openrouter":
		return openai.NewOpenAIProvider(&openai.OpenAIConfig{
			BaseURL:         config.BaseURL,
			ApiKey:          config.ApiKey,
			Model:           config.Model,
			Temperature:     config.Temperature,
			MaxTokens:       config.MaxTokens,
			TokenManagement: tokenManagement,
			Logger:          logger,
		}), nil
	default:
		return nil, errors.Errorf("provider '%s' is not supported", config.Provider)
	}
}
