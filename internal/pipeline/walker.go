package pipeline

import (
	"context"

	"github.com/fyerfyer/scholar-assistant/internal/paper"
	"github.com/fyerfyer/scholar-assistant/internal/section"
	"github.com/fyerfyer/scholar-assistant/internal/transform"
	"github.com/sirupsen/logrus"
)

// Transformer 单段文本转换接口，实现方保证总是返回可用结果
type Transformer interface {
	Transform(ctx context.Context, mode transform.Mode, input string) transform.Result
}

// NodeResult 单个节点的处理结果，按路径回写到各棵树
type NodeResult struct {
	Path      section.Path
	Title     string // 译文标题，仅翻译时有值
	Text      string // 原文树(或润色树)中的正文
	Target    string // 译文树中的正文
	Fallbacks int
}

// Output 树处理结果
type Output struct {
	Source    []*section.Section // 原文树，润色时为润色后的树
	Target    []*section.Section // 译文树，不翻译时为nil
	Fallbacks int
}

// Walker 章节树处理器
type Walker struct {
	tr     Transformer
	logger *logrus.Logger
}

// NewWalker 创建章节树处理器
func NewWalker(tr Transformer, logger *logrus.Logger) *Walker {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Walker{tr: tr, logger: logger}
}

// ProcessTree 对每个节点整理正文格式，translate为true时同时翻译标题和正文
// 先一次前序遍历收集所有节点结果，再按路径写入独立的深拷贝，输入树不会被修改
func (w *Walker) ProcessTree(ctx context.Context, tree []*section.Section, translate bool) Output {
	textMode := transform.ModeFormat
	if translate {
		textMode = transform.ModeFormatTranslate
	}

	var results []NodeResult
	_ = section.Walk(tree, func(path section.Path, s *section.Section) error {
		nr := NodeResult{Path: path}
		if translate {
			title := w.tr.Transform(ctx, transform.ModeTranslate, s.Title)
			nr.Title = title.Text
			nr.Fallbacks += fallbackCount(title)
		}
		text := w.tr.Transform(ctx, textMode, s.Text)
		nr.Text, nr.Target = text.Text, text.Target
		nr.Fallbacks += fallbackCount(text)

		w.logger.WithFields(logrus.Fields{
			"path":      path.String(),
			"fallbacks": nr.Fallbacks,
		}).Debug("Section processed")
		results = append(results, nr)
		return nil
	})

	out := Output{Source: section.Clone(tree)}
	if translate {
		out.Target = section.Clone(tree)
	}
	for _, nr := range results {
		out.Fallbacks += nr.Fallbacks
		if src, ok := section.At(out.Source, nr.Path); ok {
			src.Text = nr.Text
		}
		if !translate {
			continue
		}
		if dst, ok := section.At(out.Target, nr.Path); ok {
			dst.Title = nr.Title
			dst.Text = nr.Target
		}
	}
	return out
}

// PolishTree 润色深拷贝中每个节点的正文，标题保持不变
func (w *Walker) PolishTree(ctx context.Context, tree []*section.Section, lang paper.Language) Output {
	mode := polishMode(lang)

	var results []NodeResult
	_ = section.Walk(tree, func(path section.Path, s *section.Section) error {
		r := w.tr.Transform(ctx, mode, s.Text)
		results = append(results, NodeResult{Path: path, Text: r.Text, Fallbacks: fallbackCount(r)})
		return nil
	})

	out := Output{Source: section.Clone(tree)}
	for _, nr := range results {
		out.Fallbacks += nr.Fallbacks
		if dst, ok := section.At(out.Source, nr.Path); ok {
			dst.Text = nr.Text
		}
	}
	return out
}

func polishMode(lang paper.Language) transform.Mode {
	if lang == paper.LanguageChinese {
		return transform.ModePolishChinese
	}
	return transform.ModePolishEnglish
}

// fallbackCount 结果是否带有回退值或失败标记
func fallbackCount(r transform.Result) int {
	if r.Fallback || (r.MissingKey && r.Mode.IsPolish()) {
		return 1
	}
	return 0
}
