package document

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fyerfyer/scholar-assistant/internal/paper"
	"github.com/fyerfyer/scholar-assistant/internal/section"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// View 单一语言的阅读视图数据
type View struct {
	Language     paper.Language
	Title        string
	Authors      string
	Institutes   string
	Keywords     string
	Abstract     string
	Introduction string
	Body         []*section.Section
	Notes        *Notes // 仅中文视图且开启注释时非空
}

// Notes 阅读视图中的模型注释
type Notes struct {
	Summary          string
	Assessment       *paper.Assessment
	SectionSummaries paper.SummaryMap
}

// headings 各语言的固定标题
var headings = map[paper.Language]struct {
	abstract, keywords, introduction string
}{
	paper.LanguageEnglish: {"Abstract", "Keywords", "Introduction"},
	paper.LanguageChinese: {"摘要", "关键词", "引言"},
}

// NewView 从快照构造指定语言的阅读视图
// 润色模式下两种语言都显示润色结果；分析模式下中文字段缺失时回退到英文
func NewView(s paper.Snapshot, lang paper.Language, notes bool) View {
	v := View{
		Language:     lang,
		Title:        s.Title,
		Authors:      s.Authors,
		Institutes:   s.Institutes,
		Keywords:     s.Keywords,
		Abstract:     firstNonEmpty(s.AbstractProcessed, s.Abstract),
		Introduction: firstNonEmpty(s.IntroductionProcessed, s.Introduction),
		Body:         s.Sections,
	}
	if len(s.SectionsProcessed) > 0 {
		v.Body = s.SectionsProcessed
	}

	switch {
	case s.Mode == paper.ModePolish:
		v.Title = firstNonEmpty(s.PolishedTitle, s.Title)
		v.Abstract = firstNonEmpty(s.PolishedAbstract, s.Abstract)
		v.Introduction = firstNonEmpty(s.PolishedIntroduction, s.Introduction)
		if len(s.PolishedSections) > 0 {
			v.Body = s.PolishedSections
		}
	case lang == paper.LanguageChinese:
		v.Title = firstNonEmpty(s.ZhTitle, v.Title)
		v.Institutes = firstNonEmpty(s.ZhInstitutes, v.Institutes)
		v.Keywords = firstNonEmpty(s.ZhKeywords, v.Keywords)
		v.Abstract = firstNonEmpty(s.ZhAbstractProcessed, v.Abstract)
		v.Introduction = firstNonEmpty(s.ZhIntroductionProcessed, v.Introduction)
		if len(s.ZhSectionsProcessed) > 0 {
			v.Body = s.ZhSectionsProcessed
		}
	}

	// 注释为中文，只在中文视图显示
	if notes && lang == paper.LanguageChinese && s.Mode == paper.ModeAnalyze {
		v.Notes = &Notes{
			Summary:          s.Summary,
			Assessment:       s.Assessment,
			SectionSummaries: s.SectionSummaries,
		}
	}
	return v
}

// RenderMarkdown 将阅读视图渲染为Markdown
// 引言作为第1节，正文顶层章节从2开始编号
func RenderMarkdown(v View) string {
	h, ok := headings[v.Language]
	if !ok {
		h = headings[paper.LanguageEnglish]
	}

	var sb strings.Builder
	if v.Notes != nil {
		writeOverallNotes(&sb, v.Notes)
	}

	fmt.Fprintf(&sb, "# %s\n\n", v.Title)
	if v.Authors != "" {
		fmt.Fprintf(&sb, "*%s*\n\n", v.Authors)
	}
	if v.Institutes != "" {
		fmt.Fprintf(&sb, "*%s*\n\n", v.Institutes)
	}

	fmt.Fprintf(&sb, "## %s\n\n", h.abstract)
	if v.Notes != nil {
		writeNote(&sb, "摘要概述", lookup(v.Notes.SectionSummaries, "0"))
	}
	writeParagraphs(&sb, v.Abstract)

	fmt.Fprintf(&sb, "**%s**: %s\n\n", h.keywords, v.Keywords)

	body := make([]*section.Section, 0, len(v.Body)+1)
	body = append(body, &section.Section{Title: h.introduction, Text: v.Introduction})
	body = append(body, v.Body...)
	writeSections(&sb, body, "", 2, v.Notes)

	return strings.TrimRight(sb.String(), "\n") + "\n"
}

// RenderHTML 将阅读视图渲染为完整的HTML页面
func RenderHTML(v View) []byte {
	md := RenderMarkdown(v)

	mdParser := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{
		Title: v.Title,
		Flags: html.CommonFlags | html.HrefTargetBlank | html.CompletePage,
	})
	return markdown.ToHTML([]byte(md), mdParser, renderer)
}

// writeSections 递归输出章节，标题级别最多到6级
func writeSections(sb *strings.Builder, nodes []*section.Section, prefix string, level int, notes *Notes) {
	for i, s := range nodes {
		label := strconv.Itoa(i + 1)
		if prefix != "" {
			label = prefix + "." + label
		}

		hashes := strings.Repeat("#", min(level, 6))
		fmt.Fprintf(sb, "%s %s. %s\n\n", hashes, label, s.Title)
		if notes != nil {
			writeNote(sb, label+" "+s.Title+"-章节概述", lookup(notes.SectionSummaries, label))
		}
		writeParagraphs(sb, s.Text)
		writeSections(sb, s.Children, label, level+1, notes)
	}
}

// writeOverallNotes 输出整篇论文的概述和评审
func writeOverallNotes(sb *strings.Builder, n *Notes) {
	writeNote(sb, "论文概述", n.Summary)
	if a := n.Assessment; a != nil {
		writeNote(sb, "研究主题", a.ResearchTopic)
		writeNote(sb, "研究成果", a.ResearchOutcomes)
		writeNote(sb, "研究方法", a.Methodology)
		writeNote(sb, "创新点", a.Innovations)
		writeNote(sb, "数据集", a.DatasetDescription)
		writeNote(sb, "写作逻辑", a.PaperStructure)
		writeNote(sb, "整体评价", a.Conclusions)
	}
}

// writeNote 以引用块输出一条注释，内容为空时跳过
func writeNote(sb *strings.Builder, label, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	fmt.Fprintf(sb, "> **[%s]** %s\n\n", label, text)
}

// writeParagraphs 按换行拆分段落输出
func writeParagraphs(sb *strings.Builder, text string) {
	for _, p := range strings.Split(text, "\n") {
		if p = strings.TrimSpace(p); p != "" {
			sb.WriteString(p)
			sb.WriteString("\n\n")
		}
	}
}

func lookup(m paper.SummaryMap, label string) string {
	s, _ := m.Lookup(label)
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
