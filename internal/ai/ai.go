package ai

import (
	"context"
	"errors"
	"fmt"

	"hireLoop/internal/config"
)

// ErrNoProvider 表示未配置任何 AI 服务，调用方应按降级流程处理。
var ErrNoProvider = errors.New("ai: no completion provider configured")

// Prompt 是一次补全请求。JSON 为 true 时要求模型只输出 JSON。
type Prompt struct {
	System string
	User   string
	JSON   bool
}

// Completer 抽象所有可互换的补全服务（OpenAI、Together AI、Gemini）。
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
	Name() string
}

// New 根据配置构造补全服务。provider 为 none 时返回 ErrNoProvider。
func New(ctx context.Context, cfg config.AIConfig) (Completer, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.Timeout()), nil
	case "together":
		return NewOpenAIClient(cfg.TogetherAPIKey, cfg.TogetherBaseURL, cfg.TogetherModel, cfg.Timeout()), nil
	case "gemini":
		return NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.Timeout())
	case "", "none":
		return nil, ErrNoProvider
	default:
		return nil, fmt.Errorf("ai: unknown provider %q", cfg.Provider)
	}
}
