package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	// 通义千问API端点
	defaultTongyiEndpoint = "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation"
)

// TongyiClient 通义千问大模型客户端实现
type TongyiClient struct {
	cfg        *Config
	endpoint   string
	httpClient *http.Client
}

// NewTongyiClient 创建新的通义千问大模型客户端
func NewTongyiClient(opts ...Option) (Client, error) {
	cfg := NewConfig(append([]Option{WithModel(ModelQwenPlus)}, opts...)...)

	if cfg.APIKey == "" {
		return nil, NewLLMError(ErrCodeInvalidAPIKey, ErrMsgInvalidAPIKey)
	}

	endpoint := cfg.BaseURL
	if endpoint == "" {
		endpoint = defaultTongyiEndpoint
	}

	return &TongyiClient{
		cfg:        cfg,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Name 返回模型名称
func (c *TongyiClient) Name() string {
	return c.cfg.Model
}

// Generate 根据提示词生成回答
func (c *TongyiClient) Generate(ctx context.Context, prompt string, options ...GenerateOption) (*Response, error) {
	if prompt == "" {
		return nil, NewLLMError(ErrCodeEmptyPrompt, ErrMsgEmptyPrompt)
	}
	messages, chatOpts := generateToChat(prompt, options)
	return c.Chat(ctx, messages, chatOpts...)
}

// Chat 进行一次对话请求
// 重试由调用方的重试策略负责，这里只发送一次
func (c *TongyiClient) Chat(ctx context.Context, messages []Message, options ...ChatOption) (*Response, error) {
	if len(messages) == 0 {
		return nil, NewLLMError(ErrCodeInvalidRequest, "messages cannot be empty")
	}

	maxTokens, temperature := applyChatOptions(c.cfg, options)
	params := &TongyiParameters{
		ResultFormat: "message",
		Temperature:  &temperature,
	}
	if maxTokens > 0 {
		params.MaxTokens = &maxTokens
	}

	req := &TongyiRequest{
		Model:      c.cfg.Model,
		Input:      &TongyiRequestInput{Messages: messages},
		Parameters: params,
	}

	body, err := postJSON(ctx, c.httpClient, c.endpoint, c.cfg.APIKey, req)
	if err != nil {
		return nil, err
	}

	var resp TongyiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, NewLLMError(ErrCodeServerError, fmt.Sprintf("failed to parse response: %v", err))
	}
	if resp.Code != "" {
		return nil, NewLLMError(ErrCodeServerError,
			fmt.Sprintf("API error: %s (%s)", resp.Message, resp.Code))
	}

	return c.processResponse(&resp)
}

// processResponse 处理通义千问的响应
func (c *TongyiClient) processResponse(resp *TongyiResponse) (*Response, error) {
	result := &Response{
		ModelName:  c.cfg.Model,
		TokenCount: resp.Usage.TotalTokens,
		FinishTime: time.Now(),
	}

	switch {
	case resp.Output.Text != nil:
		result.Text = *resp.Output.Text
	case len(resp.Output.Choices) > 0:
		result.Text = resp.Output.Choices[0].Message.Content
	default:
		return nil, NewLLMError(ErrCodeEmptyResponse, ErrMsgEmptyResponse)
	}

	return result, nil
}

// 在包初始化时注册通义千问客户端
func init() {
	RegisterClient("tongyi", NewTongyiClient)
}
