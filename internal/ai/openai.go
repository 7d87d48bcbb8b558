package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIClient 是 OpenAI 兼容的 chat/completions 客户端，
// 同时用于 OpenAI 与 Together AI（仅 BaseURL 与模型不同）。
type OpenAIClient struct {
	client  openai.Client
	apiKey  string
	model   string
	timeout time.Duration
}

// NewOpenAIClient 构造客户端；timeout<=0 时不额外限制单次调用时长。
// baseURL 为空时使用 SDK 默认的 OpenAI 地址，extra 追加在默认选项之后。
func NewOpenAIClient(apiKey, baseURL, model string, timeout time.Duration, extra ...option.RequestOption) *OpenAIClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	opts = append(opts, extra...)
	return &OpenAIClient{
		client:  openai.NewClient(opts...),
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
	}
}

func (c *OpenAIClient) Name() string { return "openai-compatible:" + c.model }

// Complete 发送一次补全请求并返回第一条回复内容。
func (c *OpenAIClient) Complete(ctx context.Context, p Prompt) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("ai: api key is empty")
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(c.model),
		Temperature: openai.Float(0.2),
	}
	if strings.TrimSpace(p.System) != "" {
		params.Messages = append(params.Messages, openai.SystemMessage(p.System))
	}
	params.Messages = append(params.Messages, openai.UserMessage(p.User))
	if p.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("request completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("ai: no choices returned by model")
	}
	return resp.Choices[0].Message.Content, nil
}
