package document

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fyerfyer/scholar-assistant/internal/paper"
)

// PlainTextImporter 纯文本论文导入器
// 第一行非空文本为标题，"Abstract"等单独成行的标记切换字段，
// "# "开头的行按井号数量作为章节标题，其余每行为一个段落
type PlainTextImporter struct{}

// NewPlainTextImporter 创建一个新的纯文本导入器
func NewPlainTextImporter() Importer {
	return &PlainTextImporter{}
}

// Import 从Reader导入纯文本论文
func (p *PlainTextImporter) Import(r io.Reader) (paper.Paper, error) {
	b := newBuilder()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if b.p.Title == "" && len(b.p.Sections) == 0 && b.current == partFront {
			b.p.Title = line
			continue
		}
		if level := headingLevel(line); level > 0 {
			b.heading(level+1, strings.TrimSpace(line[level:]))
			continue
		}
		if kind, ok := classifyHeading(line); ok {
			b.current = kind
			continue
		}
		b.paragraph(line)
	}
	if err := scanner.Err(); err != nil {
		return paper.Paper{}, fmt.Errorf("failed to read text content: %w", err)
	}

	return b.result()
}

// headingLevel 返回行首连续井号的数量，后面必须跟空格
func headingLevel(line string) int {
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level == 0 || level >= len(line) || line[level] != ' ' {
		return 0
	}
	return level
}
