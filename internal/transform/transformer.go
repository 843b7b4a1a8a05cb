package transform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fyerfyer/scholar-assistant/internal/cache"
	"github.com/fyerfyer/scholar-assistant/internal/llm"
	"github.com/fyerfyer/scholar-assistant/internal/paper"
	"github.com/sirupsen/logrus"
)

// PolishFailureMarker 润色失败时加在原文前的标记
const PolishFailureMarker = "<润色失败>"

// ErrMalformedReply 回复无法解析为JSON对象
var ErrMalformedReply = errors.New("malformed structured reply")

// Result 一次转换的结果
type Result struct {
	Mode       Mode
	Text       string        // 单值结果；双输出模式下为原文(英文)
	Target     string        // 双输出模式下的译文(中文)
	Summary    *SummaryReply // 仅总结模式
	Attempts   int           // 实际调用后端的次数，空输入和缓存命中为0
	Fallback   bool          // 重试耗尽后使用了回退值
	MissingKey bool          // 回复可解析但缺少期望的键
	Cached     bool          // 结果来自缓存
}

// SummaryReply 总结回复，每一部分只有在回复中出现时才有值
type SummaryReply struct {
	Summary             *string
	SectionSummaries    []paper.SectionSummary
	HasSectionSummaries bool
	Assessment          *paper.Assessment
	Failed              bool // 重试耗尽
}

// Transformer 结构化文本转换客户端
// 对每次调用执行 清洗输入 -> 调用模型 -> 修复反斜杠 -> 解析JSON -> 提取字段，失败按策略重试，最终总能返回可用结果
type Transformer struct {
	client         llm.Client
	policy         Policy
	attemptTimeout time.Duration
	cache          cache.Cache
	cacheTTL       time.Duration
	logger         *logrus.Logger
}

// Option 转换器配置选项
type Option func(*Transformer)

// WithPolicy 设置重试策略
func WithPolicy(p Policy) Option {
	return func(t *Transformer) {
		t.policy = p
	}
}

// WithMaxAttempts 只修改最大尝试次数
func WithMaxAttempts(n int) Option {
	return func(t *Transformer) {
		t.policy.MaxAttempts = n
	}
}

// WithAttemptTimeout 设置单次调用超时
func WithAttemptTimeout(d time.Duration) Option {
	return func(t *Transformer) {
		t.attemptTimeout = d
	}
}

// WithCache 启用结果缓存
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(t *Transformer) {
		t.cache = c
		t.cacheTTL = ttl
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) Option {
	return func(t *Transformer) {
		t.logger = logger
	}
}

// New 创建转换器
func New(client llm.Client, opts ...Option) *Transformer {
	t := &Transformer{
		client:         client,
		policy:         DefaultPolicy(),
		attemptTimeout: 2 * time.Minute,
		logger:         logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// MaxAttempts 返回当前策略的最大尝试次数
func (t *Transformer) MaxAttempts() int {
	return t.policy.MaxAttempts
}

// Transform 按模式转换一段文本，不返回错误
func (t *Transformer) Transform(ctx context.Context, mode Mode, input string) Result {
	if mode != ModeSummarize && strings.TrimSpace(input) == "" {
		return t.passthrough(mode, input)
	}
	if mode == ModeSummarize && strings.TrimSpace(input) == "" {
		return Result{Mode: mode, Summary: &SummaryReply{}}
	}

	request := input
	if mode != ModeSummarize {
		request = Sanitize(input)
	}

	logger := t.logger.WithFields(logrus.Fields{"mode": mode.String()})
	key := t.cacheKey(mode, request)

	if fields, ok := t.lookup(ctx, key, logger); ok {
		res := t.extract(mode, input, fields)
		res.Cached = true
		return res
	}

	fields, outcome := Retry(ctx, t.policy, func(ctx context.Context, attempt int) (map[string]json.RawMessage, error) {
		reply, err := t.call(ctx, mode, request)
		if err != nil {
			logger.WithFields(logrus.Fields{"attempt": attempt, "error": err.Error()}).Warn("Transform attempt failed")
			return nil, err
		}
		fields, err := decodeObject(reply)
		if err != nil {
			logger.WithFields(logrus.Fields{"attempt": attempt, "error": err.Error()}).Warn("Transform attempt failed with JSON decode error")
			return nil, err
		}
		t.store(ctx, key, reply, logger)
		return fields, nil
	}, func() map[string]json.RawMessage { return nil })

	if outcome.Fallback {
		logger.WithFields(logrus.Fields{"attempts": outcome.Attempts}).Error("Transform failed after all attempts, using fallback")
		res := t.fallback(mode, input)
		res.Attempts = outcome.Attempts
		return res
	}

	res := t.extract(mode, input, fields)
	res.Attempts = outcome.Attempts
	if res.MissingKey {
		logger.Warn("Structured reply is missing expected key")
	}
	return res
}

// Ping 发送一条简单请求检查模型服务是否可用
func (t *Transformer) Ping(ctx context.Context) error {
	ctx, cancel := t.withAttemptTimeout(ctx)
	defer cancel()
	_, err := t.client.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: "say hello to me"},
		{Role: llm.RoleUser, Content: "hello"},
	}, llm.WithChatTemperature(0))
	if err != nil {
		return fmt.Errorf("llm ping failed: %w", err)
	}
	return nil
}

// call 发起一次模型调用并返回修复后的回复
func (t *Transformer) call(ctx context.Context, mode Mode, request string) (string, error) {
	ctx, cancel := t.withAttemptTimeout(ctx)
	defer cancel()

	resp, err := t.client.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: mode.Prompt()},
		{Role: llm.RoleUser, Content: request},
	}, llm.WithChatTemperature(0))
	if err != nil {
		return "", err
	}
	return RepairBackslashes(StripCodeFence(resp.Text)), nil
}

func (t *Transformer) withAttemptTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.attemptTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, t.attemptTimeout)
}

// decodeObject 将回复解析为JSON对象
func decodeObject(reply string) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(reply), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: reply is null", ErrMalformedReply)
	}
	return fields, nil
}

// stringField 读取字符串字段，缺失或类型不符时返回false
func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// extract 按模式从回复中提取结果，缺少的键保留原文
func (t *Transformer) extract(mode Mode, input string, fields map[string]json.RawMessage) Result {
	res := Result{Mode: mode}
	switch mode {
	case ModeFormatTranslate:
		en, okEn := stringField(fields, "en_context")
		zh, okZh := stringField(fields, "zh_context")
		res.Text, res.Target = input, input
		if okEn {
			res.Text = en
		}
		if okZh {
			res.Target = zh
		}
		res.MissingKey = !okEn || !okZh
	case ModeFormat:
		res.Text = input
		if v, ok := stringField(fields, "context"); ok {
			res.Text = v
		} else {
			res.MissingKey = true
		}
	case ModeTranslate:
		res.Text = input
		if v, ok := stringField(fields, "zh_text"); ok {
			res.Text = v
		} else {
			res.MissingKey = true
		}
	case ModePolishEnglish, ModePolishChinese:
		if v, ok := stringField(fields, "polished_text"); ok {
			res.Text = v
		} else {
			res.Text = PolishFailureMarker + input
			res.MissingKey = true
		}
	case ModeSummarize:
		res.Summary = decodeSummary(fields, t.logger)
	}
	return res
}

// decodeSummary 分别解析总结的三个部分，解析失败的部分视为缺失
func decodeSummary(fields map[string]json.RawMessage, logger *logrus.Logger) *SummaryReply {
	reply := &SummaryReply{}
	if s, ok := stringField(fields, "summary"); ok {
		reply.Summary = &s
	}
	if raw, ok := fields["section_summaries"]; ok {
		var items []paper.SectionSummary
		if err := json.Unmarshal(raw, &items); err != nil {
			logger.WithError(err).Warn("Failed to decode section summaries")
		} else {
			reply.SectionSummaries = items
			reply.HasSectionSummaries = true
		}
	}
	if raw, ok := fields["overall_assessment"]; ok {
		var assessment paper.Assessment
		if err := json.Unmarshal(raw, &assessment); err != nil {
			logger.WithError(err).Warn("Failed to decode overall assessment")
		} else {
			reply.Assessment = &assessment
		}
	}
	return reply
}

// passthrough 空输入直接返回，不调用后端
func (t *Transformer) passthrough(mode Mode, input string) Result {
	res := Result{Mode: mode, Text: input}
	if mode.Dual() {
		res.Target = input
	}
	return res
}

// fallback 重试耗尽时的确定性回退值
func (t *Transformer) fallback(mode Mode, input string) Result {
	res := Result{Mode: mode, Fallback: true}
	switch {
	case mode == ModeSummarize:
		res.Summary = &SummaryReply{Failed: true}
	case mode.IsPolish():
		res.Text = PolishFailureMarker + input
	case mode.Dual():
		res.Text, res.Target = input, input
	default:
		res.Text = input
	}
	return res
}

func (t *Transformer) cacheKey(mode Mode, request string) string {
	if t.cache == nil {
		return ""
	}
	return cache.GenerateCacheKey("transform", mode.String(), t.client.Name(), cache.HashText(request))
}

// lookup 查询缓存，缓存错误只记录日志
func (t *Transformer) lookup(ctx context.Context, key string, logger *logrus.Entry) (map[string]json.RawMessage, bool) {
	if t.cache == nil {
		return nil, false
	}
	reply, found, err := t.cache.Get(ctx, key)
	if err != nil {
		logger.WithError(err).Warn("Failed to read transform cache")
		return nil, false
	}
	if !found {
		return nil, false
	}
	fields, err := decodeObject(reply)
	if err != nil {
		return nil, false
	}
	return fields, true
}

func (t *Transformer) store(ctx context.Context, key, reply string, logger *logrus.Entry) {
	if t.cache == nil {
		return
	}
	if err := t.cache.Set(ctx, key, reply, t.cacheTTL); err != nil {
		logger.WithError(err).Warn("Failed to write transform cache")
	}
}
