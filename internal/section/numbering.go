package section

import "strconv"

// DefaultBodyOffset 正文顶层章节的起始编号
// 1、2 预留给摘要与引言两个合成章节
const DefaultBodyOffset = 3

// Numbered 带章节号的章节视图
// 去掉了ID等仅用于编辑的字段
type Numbered struct {
	Title         string     `json:"title"`
	Text          string     `json:"texts"`
	Sections      []Numbered `json:"sections"`
	SectionNumber string     `json:"section_number"`
}

// Number 为树中每个节点分配点分十进制章节号
// 顶层第k个节点编号为 offset+k-1，子节点在父编号后追加 ".k"
// 只读取输入，不修改调用方的树
func Number(tree []*Section, offset int) []Numbered {
	out := make([]Numbered, 0, len(tree))
	for i, s := range tree {
		out = append(out, number(s, strconv.Itoa(offset+i)))
	}
	return out
}

func number(s *Section, label string) Numbered {
	n := Numbered{
		Title:         s.Title,
		Text:          s.Text,
		Sections:      make([]Numbered, 0, len(s.Children)),
		SectionNumber: label,
	}
	for i, child := range s.Children {
		n.Sections = append(n.Sections, number(child, label+"."+strconv.Itoa(i+1)))
	}
	return n
}

// Labels 按前序返回所有章节号
func Labels(numbered []Numbered) []string {
	var out []string
	for _, n := range numbered {
		out = append(out, n.SectionNumber)
		out = append(out, Labels(n.Sections)...)
	}
	return out
}
