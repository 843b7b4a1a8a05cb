package document

import (
	"fmt"
	"io"
	"strings"

	"github.com/fyerfyer/scholar-assistant/internal/paper"
	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"
)

// MarkdownImporter Markdown论文导入器
// 一级标题为论文标题，Abstract/Introduction/Keywords标题下的段落进入对应字段，
// 其余标题按层级组成正文章节树
type MarkdownImporter struct{}

// NewMarkdownImporter 创建新的Markdown导入器
func NewMarkdownImporter() Importer {
	return &MarkdownImporter{}
}

// Import 从Reader导入Markdown论文
func (m *MarkdownImporter) Import(r io.Reader) (paper.Paper, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return paper.Paper{}, fmt.Errorf("failed to read markdown content: %w", err)
	}

	mdParser := parser.NewWithExtensions(parser.CommonExtensions)
	doc := mdParser.Parse(content)

	b := newBuilder()
	for _, node := range doc.GetChildren() {
		switch n := node.(type) {
		case *ast.Heading:
			b.heading(n.Level, plainText(n))
		case *ast.List:
			for _, item := range n.GetChildren() {
				b.paragraph(plainText(item))
			}
		case *ast.HorizontalRule:
		default:
			b.paragraph(plainText(n))
		}
	}

	return b.result()
}

// plainText 提取节点下的纯文本，公式保留$定界符
func plainText(node ast.Node) string {
	var sb strings.Builder
	ast.WalkFunc(node, func(n ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		switch v := n.(type) {
		case *ast.Softbreak, *ast.Hardbreak:
			sb.WriteString(" ")
		case *ast.Math:
			sb.WriteString("$" + string(v.Literal) + "$")
		case *ast.MathBlock:
			sb.WriteString("$$" + string(v.Literal) + "$$")
			return ast.SkipChildren
		case *ast.Code:
			sb.Write(v.Literal)
		case *ast.CodeBlock:
			sb.Write(v.Literal)
		case *ast.Text:
			sb.Write(v.Literal)
		}
		return ast.GoToNext
	})
	return strings.Join(strings.Fields(sb.String()), " ")
}
