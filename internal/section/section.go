package section

import (
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ErrSectionNotFound 章节不存在
var ErrSectionNotFound = errors.New("section not found")

// Section 论文章节节点
// Text 中的段落以 "\n" 分隔
type Section struct {
	ID       string     `json:"id" yaml:"id" validate:"required,uuid4"`            // 章节唯一标识，创建时分配
	Title    string     `json:"title" yaml:"title"`                                // 章节标题
	Text     string     `json:"texts" yaml:"texts"`                                // 章节正文
	Children []*Section `json:"sections" yaml:"sections" validate:"dive,required"`
}

// New 创建一个带新ID的章节
func New(title, text string) *Section {
	return &Section{
		ID:       uuid.New().String(),
		Title:    title,
		Text:     text,
		Children: []*Section{},
	}
}

// NewTree 创建只包含一个空白根章节的新树
func NewTree() []*Section {
	return []*Section{New("", "")}
}

// AssignIDs 为缺少ID的章节分配新ID
func AssignIDs(tree []*Section) {
	for _, s := range tree {
		if s == nil {
			continue
		}
		if s.ID == "" {
			s.ID = uuid.New().String()
		}
		if s.Children == nil {
			s.Children = []*Section{}
		}
		AssignIDs(s.Children)
	}
}

// Clone 深拷贝单个章节及其全部子章节
func (s *Section) Clone() *Section {
	if s == nil {
		return nil
	}
	c := &Section{
		ID:       s.ID,
		Title:    s.Title,
		Text:     s.Text,
		Children: make([]*Section, 0, len(s.Children)),
	}
	for _, child := range s.Children {
		c.Children = append(c.Children, child.Clone())
	}
	return c
}

// Clone 深拷贝整棵树，结果与输入不共享任何节点
func Clone(tree []*Section) []*Section {
	out := make([]*Section, 0, len(tree))
	for _, s := range tree {
		out = append(out, s.Clone())
	}
	return out
}

// Path 节点在树中的位置，每一级为兄弟节点中的0基下标
type Path []int

// String 返回形如 "0.2.1" 的路径表示
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, idx := range p {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, ".")
}

// Child 返回子路径，不修改原路径
func (p Path) Child(idx int) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = idx
	return out
}

// VisitFunc 遍历回调
type VisitFunc func(path Path, s *Section) error

// Walk 深度优先前序遍历，先访问节点本身再访问子节点
// nil 节点被跳过，但仍占用其在兄弟中的序号
func Walk(tree []*Section, fn VisitFunc) error {
	return walk(tree, Path{}, fn)
}

func walk(nodes []*Section, prefix Path, fn VisitFunc) error {
	for i, s := range nodes {
		if s == nil {
			continue
		}
		p := prefix.Child(i)
		if err := fn(p, s); err != nil {
			return err
		}
		if err := walk(s.Children, p, fn); err != nil {
			return err
		}
	}
	return nil
}

// At 按路径定位节点
func At(tree []*Section, path Path) (*Section, bool) {
	if len(path) == 0 {
		return nil, false
	}
	nodes := tree
	var cur *Section
	for _, idx := range path {
		if idx < 0 || idx >= len(nodes) {
			return nil, false
		}
		cur = nodes[idx]
		nodes = cur.Children
	}
	return cur, true
}

// Count 统计节点总数
func Count(tree []*Section) int {
	n := 0
	_ = Walk(tree, func(Path, *Section) error {
		n++
		return nil
	})
	return n
}

// Depth 返回树的最大深度，空树为0
func Depth(tree []*Section) int {
	max := 0
	for _, s := range tree {
		if d := 1 + Depth(s.Children); d > max {
			max = d
		}
	}
	return max
}

// SameShape 判断两棵树的结构是否一致(节点数、兄弟顺序和嵌套)
func SameShape(a, b []*Section) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !SameShape(a[i].Children, b[i].Children) {
			return false
		}
	}
	return true
}
