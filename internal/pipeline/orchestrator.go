package pipeline

import (
	"context"
	"time"

	"github.com/fyerfyer/scholar-assistant/internal/paper"
	"github.com/fyerfyer/scholar-assistant/internal/section"
	"github.com/fyerfyer/scholar-assistant/internal/transform"
	"github.com/sirupsen/logrus"
)

// Options 单次处理的选项
type Options struct {
	Translate      bool           // 分析模式下是否翻译为中文
	Polish         bool           // 为true时进入润色模式，忽略Translate
	PolishLanguage paper.Language // 润色语言
}

// StatusHook 状态变化回调
type StatusHook func(status paper.Status)

// Orchestrator 论文级处理流程
type Orchestrator struct {
	tr         Transformer
	walker     *Walker
	logger     *logrus.Logger
	bodyOffset int
	onStatus   StatusHook
	now        func() time.Time
}

// OrchestratorOption 流程配置选项
type OrchestratorOption func(*Orchestrator)

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithBodyOffset 设置正文顶层章节的起始编号
func WithBodyOffset(offset int) OrchestratorOption {
	return func(o *Orchestrator) {
		if offset > 0 {
			o.bodyOffset = offset
		}
	}
}

// WithStatusHook 设置状态回调
func WithStatusHook(hook StatusHook) OrchestratorOption {
	return func(o *Orchestrator) {
		o.onStatus = hook
	}
}

// NewOrchestrator 创建处理流程
func NewOrchestrator(tr Transformer, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		tr:         tr,
		logger:     logrus.StandardLogger(),
		bodyOffset: section.DefaultBodyOffset,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.walker = NewWalker(tr, o.logger)
	return o
}

// Run 执行一次完整处理，返回新的结果，不修改传入的论文
// 单个字段失败只会留下回退值，Run本身不会失败
func (o *Orchestrator) Run(ctx context.Context, p paper.Paper, opts Options) *paper.Result {
	p = p.Clone()
	started := o.now()
	result := &paper.Result{Status: paper.StatusRunning, StartedAt: &started}
	o.setStatus(paper.StatusRunning)

	if opts.Polish {
		result.Mode = paper.ModePolish
		result.PolishLanguage = opts.PolishLanguage
		if result.PolishLanguage == "" {
			result.PolishLanguage = paper.LanguageEnglish
		}
		o.polish(ctx, p, result)
	} else {
		result.Mode = paper.ModeAnalyze
		result.Translated = opts.Translate
		o.analyze(ctx, p, opts.Translate, result)
	}

	finished := o.now()
	result.FinishedAt = &finished
	result.Status = paper.StatusDone
	if result.Fallbacks > 0 {
		result.Status = paper.StatusDoneWithFallback
	}
	o.setStatus(result.Status)

	o.logger.WithFields(logrus.Fields{
		"mode":      result.Mode,
		"status":    result.Status,
		"fallbacks": result.Fallbacks,
		"elapsed":   finished.Sub(started).String(),
	}).Info("Paper processing finished")
	return result
}

// analyze 格式整理/翻译后整篇总结
func (o *Orchestrator) analyze(ctx context.Context, p paper.Paper, translate bool, result *paper.Result) {
	logger := o.logger.WithField("mode", paper.ModeAnalyze)

	if translate {
		logger.Info("Step 1.1: translating title, institutes and keywords")
		result.ZhTitle = o.text(ctx, transform.ModeTranslate, p.Title, result)
		result.ZhInstitutes = o.text(ctx, transform.ModeTranslate, p.Institutes, result)
		result.ZhKeywords = o.text(ctx, transform.ModeTranslate, p.Keywords, result)
	}

	logger.Info("Step 1.2: processing abstract and introduction")
	paragraphMode := transform.ModeFormat
	if translate {
		paragraphMode = transform.ModeFormatTranslate
	}
	abstract := o.tr.Transform(ctx, paragraphMode, p.Abstract)
	introduction := o.tr.Transform(ctx, paragraphMode, p.Introduction)
	result.Fallbacks += fallbackCount(abstract) + fallbackCount(introduction)
	result.AbstractProcessed = abstract.Text
	result.IntroductionProcessed = introduction.Text
	if translate {
		result.ZhAbstractProcessed = abstract.Target
		result.ZhIntroductionProcessed = introduction.Target
	}

	logger.WithField("sections", section.Count(p.Sections)).Info("Step 1.3: processing body sections")
	body := o.walker.ProcessTree(ctx, p.Sections, translate)
	result.SectionsProcessed = body.Source
	result.ZhSectionsProcessed = body.Target
	result.Fallbacks += body.Fallbacks

	logger.Info("Step 2: summarizing paper")
	payload, err := BuildSummaryPayload(p.Title, p.Abstract, p.Introduction, body.Source, o.bodyOffset).Encode()
	if err != nil {
		logger.WithError(err).Error("Failed to encode summary payload")
		result.Fallbacks++
		return
	}
	summary := o.tr.Transform(ctx, transform.ModeSummarize, payload)
	result.Fallbacks += fallbackCount(summary)
	applySummary(result, summary.Summary)
}

// polish 润色标题、引言、摘要和正文
func (o *Orchestrator) polish(ctx context.Context, p paper.Paper, result *paper.Result) {
	mode := polishMode(result.PolishLanguage)
	o.logger.WithFields(logrus.Fields{"mode": paper.ModePolish, "language": result.PolishLanguage}).Info("Polishing paper")

	result.PolishedTitle = o.text(ctx, mode, p.Title, result)
	result.PolishedIntroduction = o.text(ctx, mode, p.Introduction, result)
	result.PolishedAbstract = o.text(ctx, mode, p.Abstract, result)

	body := o.walker.PolishTree(ctx, p.Sections, result.PolishLanguage)
	result.PolishedSections = body.Source
	result.Fallbacks += body.Fallbacks
}

// text 处理单值字段并累计回退次数
func (o *Orchestrator) text(ctx context.Context, mode transform.Mode, input string, result *paper.Result) string {
	r := o.tr.Transform(ctx, mode, input)
	result.Fallbacks += fallbackCount(r)
	return r.Text
}

func (o *Orchestrator) setStatus(status paper.Status) {
	if o.onStatus != nil {
		o.onStatus(status)
	}
}
