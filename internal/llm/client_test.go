package llm

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// TestMockClientChat 测试使用Mock客户端的对话功能
func TestMockClientChat(t *testing.T) {
	mockClient := NewMockClient(t)

	messages := []Message{
		{Role: RoleSystem, Content: "translate the text"},
		{Role: RoleUser, Content: "hello world"},
	}
	expectedResp := &Response{
		Text:       `{"zh_text": "你好，世界"}`,
		TokenCount: 10,
		ModelName:  "mock-model",
		FinishTime: time.Now(),
	}

	mockClient.EXPECT().Chat(mock.Anything, messages, mock.Anything).Return(expectedResp, nil)

	resp, err := mockClient.Chat(context.Background(), messages)
	assert.NoError(t, err)
	assert.Equal(t, expectedResp.Text, resp.Text)
	assert.Equal(t, 10, resp.TokenCount)
}

// TestMockClientErrors 测试错误处理
func TestMockClientErrors(t *testing.T) {
	mockClient := NewMockClient(t)
	ctx := context.Background()

	emptyPromptErr := NewLLMError(ErrCodeEmptyPrompt, ErrMsgEmptyPrompt)
	mockClient.EXPECT().Generate(mock.Anything, "", mock.Anything).Return(nil, emptyPromptErr)

	_, err := mockClient.Generate(ctx, "")
	require.Error(t, err)
	var llmErr LLMError
	assert.ErrorAs(t, err, &llmErr)
	assert.Equal(t, ErrCodeEmptyPrompt, llmErr.Code)

	apiKeyErr := NewLLMError(ErrCodeInvalidAPIKey, ErrMsgInvalidAPIKey)
	mockClient.EXPECT().Chat(mock.Anything, mock.Anything, mock.Anything).Return(nil, apiKeyErr)

	_, err = mockClient.Chat(ctx, []Message{{Role: RoleUser, Content: "测试"}})
	require.Error(t, err)
	assert.ErrorAs(t, err, &llmErr)
	assert.Equal(t, ErrCodeInvalidAPIKey, llmErr.Code)
}

// TestMockClientName 测试模型名称方法
func TestMockClientName(t *testing.T) {
	mockClient := NewMockClient(t)
	mockClient.EXPECT().Name().Return("mock-model")

	assert.Equal(t, "mock-model", mockClient.Name())
}

// TestTongyiClientIntegration 测试通义千问客户端集成
// 只有在设置TONGYI_API_KEY环境变量时才运行
func TestTongyiClientIntegration(t *testing.T) {
	apiKey := os.Getenv("TONGYI_API_KEY")
	if apiKey == "" {
		t.Skip("Haven't set TONGYI_API_KEY environment variable, skipping test")
	}

	client, err := NewTongyiClient(
		WithAPIKey(apiKey),
		WithModel(ModelQwenTurbo),
		WithTimeout(10*time.Second),
	)
	require.NoError(t, err, "创建客户端失败")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	resp, err := client.Chat(ctx, []Message{
		{Role: RoleSystem, Content: "say hello to me"},
		{Role: RoleUser, Content: "hello"},
	}, WithChatMaxTokens(5))
	if err != nil {
		t.Logf("API calling error: %v", err)
		t.Skip("Skipping API test")
	}

	assert.NotEmpty(t, resp.Text, "Response text should not be empty")
	assert.Equal(t, ModelQwenTurbo, resp.ModelName)
}

// TestConfigAndOptions 测试配置选项
func TestConfigAndOptions(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ModelGPT35Turbo, cfg.Model)
	assert.Equal(t, 120*time.Second, cfg.Timeout)
	assert.Equal(t, float32(0), cfg.Temperature)

	cfg = NewConfig(
		WithAPIKey("test-key"),
		WithBaseURL("http://localhost:8080/v1"),
		WithModel("custom-model"),
		WithTimeout(30*time.Second),
		WithMaxTokens(100),
		WithTemperature(0.5),
	)

	assert.Equal(t, "test-key", cfg.APIKey)
	assert.Equal(t, "http://localhost:8080/v1", cfg.BaseURL)
	assert.Equal(t, "custom-model", cfg.Model)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 100, cfg.MaxTokens)
	assert.Equal(t, float32(0.5), cfg.Temperature)

	// 空模型名不覆盖默认值
	cfg = NewConfig(WithModel(""))
	assert.Equal(t, ModelGPT35Turbo, cfg.Model)
}

// TestChatOptions 测试聊天选项与默认值合并
func TestChatOptions(t *testing.T) {
	cfg := NewConfig(WithMaxTokens(200))

	maxTokens, temperature := applyChatOptions(cfg, nil)
	assert.Equal(t, 200, maxTokens)
	assert.Equal(t, float32(0), temperature)

	maxTokens, temperature = applyChatOptions(cfg, []ChatOption{
		WithChatMaxTokens(50),
		WithChatTemperature(0.3),
	})
	assert.Equal(t, 50, maxTokens)
	assert.Equal(t, float32(0.3), temperature)
}

// TestGenerateToChat 测试单条提示词转换为对话
func TestGenerateToChat(t *testing.T) {
	messages, chatOpts := generateToChat("hi", []GenerateOption{
		WithGenerateMaxTokens(7),
		WithGenerateTemperature(0.2),
	})

	require.Len(t, messages, 1)
	assert.Equal(t, RoleUser, messages[0].Role)
	assert.Equal(t, "hi", messages[0].Content)

	maxTokens, temperature := applyChatOptions(DefaultConfig(), chatOpts)
	assert.Equal(t, 7, maxTokens)
	assert.Equal(t, float32(0.2), temperature)
}

// TestClientFactory 测试客户端工厂功能
func TestClientFactory(t *testing.T) {
	testFactory := func(opts ...Option) (Client, error) {
		return NewMockClient(t), nil
	}
	RegisterClient("test-factory", testFactory)

	client, err := NewClient("test-factory")
	assert.NoError(t, err)
	assert.NotNil(t, client)

	_, err = NewClient("invalid-type")
	require.Error(t, err)
	assert.Equal(t, ErrCodeInvalidRequest, ErrorCode(err))

	_, err = NewClient("openai")
	require.Error(t, err, "缺少API密钥时应当失败")
	assert.Equal(t, ErrCodeInvalidAPIKey, ErrorCode(err))
}

// TestErrorClassification 测试错误分类
func TestErrorClassification(t *testing.T) {
	assert.True(t, IsPermanent(NewLLMError(ErrCodeInvalidAPIKey, ErrMsgInvalidAPIKey)))
	assert.True(t, IsPermanent(NewLLMError(ErrCodeContextTooLong, ErrMsgContextTooLong)))
	assert.False(t, IsPermanent(NewLLMError(ErrCodeRateLimited, ErrMsgRateLimited)))
	assert.False(t, IsPermanent(NewLLMError(ErrCodeTimeout, ErrMsgTimeout)))
	assert.False(t, IsPermanent(errors.New("plain error")))

	wrapped := WrapError(errors.New("boom"), ErrCodeNetworkError)
	assert.Equal(t, ErrCodeNetworkError, wrapped.Code)
	assert.Equal(t, "boom", wrapped.Message)

	// 已是LLMError时保持原错误码
	inner := NewLLMError(ErrCodeRateLimited, ErrMsgRateLimited)
	assert.Equal(t, ErrCodeRateLimited, WrapError(inner, ErrCodeServerError).Code)

	assert.Equal(t, ErrCodeTimeout, transportError(context.DeadlineExceeded).Code)
	assert.Equal(t, ErrCodeNetworkError, transportError(errors.New("connection refused")).Code)

	assert.Equal(t, ErrCodeInvalidAPIKey, statusError(401, "").Code)
	assert.Equal(t, ErrCodeRateLimited, statusError(429, "").Code)
	assert.Equal(t, ErrCodeModelOverload, statusError(503, "").Code)
	assert.Equal(t, ErrCodeServerError, statusError(502, "").Code)
	assert.Equal(t, ErrCodeInvalidRequest, statusError(400, "").Code)
}
