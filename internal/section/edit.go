package section

// Find 递归查找指定ID的章节
func Find(tree []*Section, id string) *Section {
	for _, s := range tree {
		if s.ID == id {
			return s
		}
		if found := Find(s.Children, id); found != nil {
			return found
		}
	}
	return nil
}

// locate 返回节点所在的兄弟列表所有者和下标
// parent 为 nil 表示位于顶层
func locate(tree []*Section, parent *Section, id string) (*Section, int, bool) {
	for i, s := range tree {
		if s.ID == id {
			return parent, i, true
		}
		if p, idx, ok := locate(s.Children, s, id); ok {
			return p, idx, ok
		}
	}
	return nil, -1, false
}

// AddChild 在指定章节末尾追加一个空白子章节
func AddChild(tree []*Section, parentID string) (*Section, error) {
	parent := Find(tree, parentID)
	if parent == nil {
		return nil, ErrSectionNotFound
	}
	child := New("", "")
	parent.Children = append(parent.Children, child)
	return child, nil
}

// AddSibling 在指定章节之后插入一个空白同级章节
// 顶层插入会产生新的切片，调用方需使用返回的树
func AddSibling(tree []*Section, id string) ([]*Section, *Section, error) {
	parent, idx, ok := locate(tree, nil, id)
	if !ok {
		return tree, nil, ErrSectionNotFound
	}
	sibling := New("", "")
	if parent == nil {
		return insertAt(tree, idx+1, sibling), sibling, nil
	}
	parent.Children = insertAt(parent.Children, idx+1, sibling)
	return tree, sibling, nil
}

// Delete 删除指定章节及其子树
// 删除最后一个顶层章节后树为空，调用方可按需重新创建根章节
func Delete(tree []*Section, id string) ([]*Section, error) {
	parent, idx, ok := locate(tree, nil, id)
	if !ok {
		return tree, ErrSectionNotFound
	}
	if parent == nil {
		return removeAt(tree, idx), nil
	}
	parent.Children = removeAt(parent.Children, idx)
	return tree, nil
}

func insertAt(nodes []*Section, idx int, s *Section) []*Section {
	out := make([]*Section, 0, len(nodes)+1)
	out = append(out, nodes[:idx]...)
	out = append(out, s)
	return append(out, nodes[idx:]...)
}

func removeAt(nodes []*Section, idx int) []*Section {
	out := make([]*Section, 0, len(nodes)-1)
	out = append(out, nodes[:idx]...)
	return append(out, nodes[idx+1:]...)
}
