package document

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fyerfyer/scholar-assistant/internal/paper"
	"github.com/fyerfyer/scholar-assistant/internal/section"
)

// ErrUnsupportedType 不支持的文档类型
var ErrUnsupportedType = errors.New("unsupported document type")

// Importer 文档导入器接口
// 负责将不同格式的文档转换为论文结构
type Importer interface {
	// Import 从Reader导入论文
	Import(r io.Reader) (paper.Paper, error)
}

// ContentType 表示文档的内容类型
type ContentType string

const (
	// Markdown 文档类型
	Markdown ContentType = "markdown"
	// PlainText 纯文本类型
	PlainText ContentType = "plaintext"
	// Unknown 未知类型
	Unknown ContentType = "unknown"
)

// ImporterFor 根据文件名创建对应的导入器
func ImporterFor(filename string) (Importer, error) {
	switch detectContentType(filename) {
	case Markdown:
		return NewMarkdownImporter(), nil
	case PlainText:
		return NewPlainTextImporter(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Ext(filename))
	}
}

// ImportFile 导入本地文件
func ImportFile(filePath string) (paper.Paper, error) {
	importer, err := ImporterFor(filePath)
	if err != nil {
		return paper.Paper{}, err
	}

	file, err := os.Open(filePath)
	if err != nil {
		return paper.Paper{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return importer.Import(file)
}

// detectContentType 根据文件扩展名检测内容类型
func detectContentType(filePath string) ContentType {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".md", ".markdown":
		return Markdown
	case ".txt":
		return PlainText
	default:
		return Unknown
	}
}

// headingNumberPattern 匹配标题前的编号，如 "1." "2.3 "
var headingNumberPattern = regexp.MustCompile(`^\d+(\.\d+)*\.?\s+`)

// stripNumber 去掉标题前的编号
func stripNumber(title string) string {
	return strings.TrimSpace(headingNumberPattern.ReplaceAllString(strings.TrimSpace(title), ""))
}

// part 论文中的非正文部分
type part int

const (
	partFront part = iota
	partAbstract
	partIntroduction
	partKeywords
	partBody
)

// classifyHeading 判断标题是否对应摘要、引言或关键词
func classifyHeading(title string) (part, bool) {
	switch strings.ToLower(stripNumber(title)) {
	case "abstract", "摘要":
		return partAbstract, true
	case "introduction", "引言":
		return partIntroduction, true
	case "keywords", "key words", "关键词":
		return partKeywords, true
	}
	return partBody, false
}

// frontLabels 元数据行的前缀
var frontLabels = []struct {
	field    string
	prefixes []string
}{
	{"authors", []string{"authors", "author", "作者"}},
	{"institutes", []string{"institutes", "affiliations", "机构", "单位"}},
	{"keywords", []string{"keywords", "key words", "关键词"}},
}

// frontField 识别 "Authors: ..." 形式的元数据行，返回字段名和值
func frontField(line string) (string, string, bool) {
	lower := strings.ToLower(line)
	for _, l := range frontLabels {
		for _, prefix := range l.prefixes {
			if !strings.HasPrefix(lower, prefix) {
				continue
			}
			rest := strings.TrimSpace(line[len(prefix):])
			if !strings.HasPrefix(rest, ":") && !strings.HasPrefix(rest, "：") {
				continue
			}
			rest = strings.TrimPrefix(strings.TrimPrefix(rest, ":"), "：")
			return l.field, strings.TrimSpace(rest), true
		}
	}
	return "", "", false
}

// builder 按顺序累积论文内容
type builder struct {
	p       paper.Paper
	current part
	stack   []levelled // 当前正文章节路径
}

type levelled struct {
	level int
	node  *section.Section
}

func newBuilder() *builder {
	return &builder{p: paper.Paper{Sections: []*section.Section{}}}
}

// heading 处理一个标题
func (b *builder) heading(level int, title string) {
	if level == 1 && b.p.Title == "" && len(b.p.Sections) == 0 {
		b.p.Title = strings.TrimSpace(title)
		b.current = partFront
		return
	}
	if kind, ok := classifyHeading(title); ok {
		b.current = kind
		return
	}

	b.current = partBody
	node := section.New(stripNumber(title), "")
	for len(b.stack) > 0 && b.stack[len(b.stack)-1].level >= level {
		b.stack = b.stack[:len(b.stack)-1]
	}
	if len(b.stack) == 0 {
		b.p.Sections = append(b.p.Sections, node)
	} else {
		parent := b.stack[len(b.stack)-1].node
		parent.Children = append(parent.Children, node)
	}
	b.stack = append(b.stack, levelled{level: level, node: node})
}

// paragraph 处理一个段落
func (b *builder) paragraph(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	if b.current != partBody {
		if field, value, ok := frontField(text); ok {
			switch field {
			case "authors":
				b.p.Authors = value
			case "institutes":
				b.p.Institutes = value
			default:
				b.p.Keywords = value
			}
			return
		}
	}

	switch b.current {
	case partFront:
		if b.p.Authors == "" {
			b.p.Authors = text
		} else if b.p.Institutes == "" {
			b.p.Institutes = text
		}
	case partAbstract:
		b.p.Abstract = appendParagraph(b.p.Abstract, text)
	case partIntroduction:
		b.p.Introduction = appendParagraph(b.p.Introduction, text)
	case partKeywords:
		b.p.Keywords = appendParagraph(b.p.Keywords, text)
	case partBody:
		node := b.stack[len(b.stack)-1].node
		node.Text = appendParagraph(node.Text, text)
	}
}

// result 返回导入的论文，正文为空时补一个空白章节
func (b *builder) result() (paper.Paper, error) {
	if len(b.p.Sections) == 0 {
		b.p.Sections = section.NewTree()
	}
	if err := b.p.Validate(); err != nil {
		return paper.Paper{}, err
	}
	return b.p, nil
}

// appendParagraph 以换行追加段落
func appendParagraph(text, paragraph string) string {
	if text == "" {
		return paragraph
	}
	return text + "\n" + paragraph
}
