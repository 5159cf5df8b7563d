package component

import (
	"context"
	"fmt"

	arkext "github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/akbargherbal/gemini-fusion/internal/config"
)

// geminiBaseURL is Google's OpenAI-compatible endpoint for the Gemini
// API. The gemini provider is driven through the openai component
// against this URL.
const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// NewChatModel builds a ChatModel for one upstream call. The API key is
// the caller's per-request credential, never taken from config, so each
// turn gets its own credential-scoped model instance.
func NewChatModel(ctx context.Context, cfg *config.AIConfig, apiKey, modelName string) (model.ChatModel, error) {
	if modelName == "" {
		modelName = cfg.DefaultModel
	}

	switch cfg.Provider {
	case "gemini", "":
		return newGeminiChatModel(ctx, cfg, apiKey, modelName)
	case "openai":
		return newOpenAIChatModel(ctx, cfg, apiKey, modelName, false)
	case "azure":
		return newOpenAIChatModel(ctx, cfg, apiKey, modelName, true)
	case "ark":
		return newArkChatModel(ctx, cfg, apiKey, modelName)
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}
}

// newGeminiChatModel talks to Gemini through its OpenAI-compatible API.
func newGeminiChatModel(ctx context.Context, cfg *config.AIConfig, apiKey, modelName string) (model.ChatModel, error) {
	modelCfg := &openai.ChatModelConfig{
		Model:   modelName,
		APIKey:  apiKey,
		BaseURL: geminiBaseURL,
	}
	if cfg.BaseURL != "" {
		modelCfg.BaseURL = cfg.BaseURL
	}

	applyOptions(modelCfg, &cfg.Options)

	return openai.NewChatModel(ctx, modelCfg)
}

func newOpenAIChatModel(ctx context.Context, cfg *config.AIConfig, apiKey, modelName string, byAzure bool) (model.ChatModel, error) {
	modelCfg := &openai.ChatModelConfig{
		Model:   modelName,
		APIKey:  apiKey,
		ByAzure: byAzure,
	}
	if cfg.BaseURL != "" {
		modelCfg.BaseURL = cfg.BaseURL
	}

	applyOptions(modelCfg, &cfg.Options)

	return openai.NewChatModel(ctx, modelCfg)
}

func newArkChatModel(ctx context.Context, cfg *config.AIConfig, apiKey, modelName string) (model.ChatModel, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://ark.cn-beijing.volces.com/api/v3"
	}

	modelCfg := &arkext.ChatModelConfig{
		Model:   modelName,
		APIKey:  apiKey,
		BaseURL: baseURL,
	}

	if cfg.Options.Temperature > 0 {
		temp := float32(cfg.Options.Temperature)
		modelCfg.Temperature = &temp
	}
	if cfg.Options.MaxTokens > 0 {
		maxTokens := cfg.Options.MaxTokens
		modelCfg.MaxTokens = &maxTokens
	}
	if cfg.Options.TopP > 0 {
		topP := float32(cfg.Options.TopP)
		modelCfg.TopP = &topP
	}

	return arkext.NewChatModel(ctx, modelCfg)
}

func applyOptions(modelCfg *openai.ChatModelConfig, opts *config.AIOptionsConfig) {
	if opts.Temperature > 0 {
		temp := float32(opts.Temperature)
		modelCfg.Temperature = &temp
	}
	if opts.MaxTokens > 0 {
		maxTokens := opts.MaxTokens
		modelCfg.MaxTokens = &maxTokens
	}
	if opts.TopP > 0 {
		topP := float32(opts.TopP)
		modelCfg.TopP = &topP
	}
}
