package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// OpenAI兼容API默认地址
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
)

// OpenAIClient OpenAI兼容(chat/completions)大模型客户端
// 也适用于提供相同协议的代理服务
type OpenAIClient struct {
	cfg        *Config
	baseURL    string
	httpClient *http.Client
}

// NewOpenAIClient 创建OpenAI兼容客户端
func NewOpenAIClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)
	if cfg.APIKey == "" {
		return nil, NewLLMError(ErrCodeInvalidAPIKey, ErrMsgInvalidAPIKey)
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	return &OpenAIClient{
		cfg:        cfg,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Name 返回模型名称
func (c *OpenAIClient) Name() string {
	return c.cfg.Model
}

// Generate 根据提示词生成回答
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, options ...GenerateOption) (*Response, error) {
	if prompt == "" {
		return nil, NewLLMError(ErrCodeEmptyPrompt, ErrMsgEmptyPrompt)
	}
	messages, chatOpts := generateToChat(prompt, options)
	return c.Chat(ctx, messages, chatOpts...)
}

// Chat 发送一次chat/completions请求
func (c *OpenAIClient) Chat(ctx context.Context, messages []Message, options ...ChatOption) (*Response, error) {
	if len(messages) == 0 {
		return nil, NewLLMError(ErrCodeInvalidRequest, "messages cannot be empty")
	}

	maxTokens, temperature := applyChatOptions(c.cfg, options)
	req := &ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	body, err := postJSON(ctx, c.httpClient, c.baseURL+"/chat/completions", c.cfg.APIKey, req)
	if err != nil {
		return nil, err
	}

	var parsed ChatCompletionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, NewLLMError(ErrCodeServerError, fmt.Sprintf("failed to parse response: %v", err))
	}
	if parsed.Error != nil {
		return nil, NewLLMError(ErrCodeServerError, "API error: "+parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, NewLLMError(ErrCodeEmptyResponse, ErrMsgEmptyResponse)
	}

	model := parsed.Model
	if model == "" {
		model = c.cfg.Model
	}
	return &Response{
		Text:       parsed.Choices[0].Message.Content,
		TokenCount: parsed.Usage.TotalTokens,
		ModelName:  model,
		FinishTime: time.Now(),
	}, nil
}

// postJSON 发送JSON请求并返回2xx响应体
func postJSON(ctx context.Context, client *http.Client, url, apiKey string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, NewLLMError(ErrCodeInvalidRequest, fmt.Sprintf("failed to marshal request: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, NewLLMError(ErrCodeInvalidRequest, fmt.Sprintf("failed to create request: %v", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Message string `json:"message"`
			Error   struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		detail := string(body)
		if jsonErr := json.Unmarshal(body, &errResp); jsonErr == nil {
			if errResp.Error.Message != "" {
				detail = errResp.Error.Message
			} else if errResp.Message != "" {
				detail = errResp.Message
			}
		}
		return nil, statusError(resp.StatusCode, detail)
	}

	return body, nil
}

// 在包初始化时注册OpenAI兼容客户端
func init() {
	RegisterClient("openai", NewOpenAIClient)
}
