package section

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleTree 构造测试用的三层章节树
func sampleTree() []*Section {
	a := New("Method", "m1\nm2")
	a.Children = []*Section{New("Model", "x"), New("Training", "y")}
	a.Children[1].Children = []*Section{New("Loss", "z")}
	b := New("Experiments", "e1")
	return []*Section{a, b}
}

func TestNewTree(t *testing.T) {
	tree := NewTree()
	require.Len(t, tree, 1)
	assert.NotEmpty(t, tree[0].ID)
	assert.Empty(t, tree[0].Title)
	assert.Empty(t, tree[0].Text)
	assert.Empty(t, tree[0].Children)
}

func TestNewUniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s := New("", "")
		assert.False(t, seen[s.ID], "section id reused")
		seen[s.ID] = true
	}
}

func TestCloneIndependent(t *testing.T) {
	tree := sampleTree()
	cloned := Clone(tree)

	require.True(t, SameShape(tree, cloned))
	assert.Equal(t, tree[0].ID, cloned[0].ID)

	cloned[0].Text = "changed"
	cloned[0].Children[1].Children[0].Title = "changed"
	cloned[1].Children = append(cloned[1].Children, New("extra", ""))

	assert.Equal(t, "m1\nm2", tree[0].Text)
	assert.Equal(t, "Loss", tree[0].Children[1].Children[0].Title)
	assert.Empty(t, tree[1].Children)
}

func TestWalkPreOrder(t *testing.T) {
	tree := sampleTree()

	var titles, paths []string
	err := Walk(tree, func(p Path, s *Section) error {
		titles = append(titles, s.Title)
		paths = append(paths, p.String())
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Method", "Model", "Training", "Loss", "Experiments"}, titles)
	assert.Equal(t, []string{"0", "0.0", "0.1", "0.1.0", "1"}, paths)
}

func TestWalkSkipsNilNodes(t *testing.T) {
	tree := []*Section{nil, New("Method", ""), nil}
	tree[1].Children = []*Section{nil, New("Model", "")}

	var paths []string
	err := Walk(tree, func(p Path, s *Section) error {
		paths = append(paths, p.String())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "1.1"}, paths)
}

func TestAt(t *testing.T) {
	tree := sampleTree()

	s, ok := At(tree, Path{0, 1, 0})
	require.True(t, ok)
	assert.Equal(t, "Loss", s.Title)

	_, ok = At(tree, Path{0, 5})
	assert.False(t, ok)
	_, ok = At(tree, Path{})
	assert.False(t, ok)
}

func TestCountAndDepth(t *testing.T) {
	tree := sampleTree()
	assert.Equal(t, 5, Count(tree))
	assert.Equal(t, 3, Depth(tree))
	assert.Equal(t, 0, Count(nil))
	assert.Equal(t, 0, Depth(nil))
}

func TestSameShape(t *testing.T) {
	a := sampleTree()
	b := sampleTree()
	assert.True(t, SameShape(a, b))

	b[0].Children = b[0].Children[:1]
	assert.False(t, SameShape(a, b))
}

func TestAddChild(t *testing.T) {
	tree := sampleTree()
	child, err := AddChild(tree, tree[1].ID)
	require.NoError(t, err)
	require.Len(t, tree[1].Children, 1)
	assert.Equal(t, child.ID, tree[1].Children[0].ID)

	_, err = AddChild(tree, "missing")
	assert.ErrorIs(t, err, ErrSectionNotFound)
}

func TestAddSibling(t *testing.T) {
	tree := sampleTree()

	// 顶层插入
	tree, sib, err := AddSibling(tree, tree[0].ID)
	require.NoError(t, err)
	require.Len(t, tree, 3)
	assert.Equal(t, sib.ID, tree[1].ID)
	assert.Equal(t, "Experiments", tree[2].Title)

	// 嵌套插入到目标节点之后
	model := tree[0].Children[0]
	tree, sib, err = AddSibling(tree, model.ID)
	require.NoError(t, err)
	require.Len(t, tree[0].Children, 3)
	assert.Equal(t, sib.ID, tree[0].Children[1].ID)
	assert.Equal(t, "Training", tree[0].Children[2].Title)

	_, _, err = AddSibling(tree, "missing")
	assert.ErrorIs(t, err, ErrSectionNotFound)
}

func TestDelete(t *testing.T) {
	tree := sampleTree()
	loss := tree[0].Children[1].Children[0]

	tree, err := Delete(tree, loss.ID)
	require.NoError(t, err)
	assert.Empty(t, tree[0].Children[1].Children)

	tree, err = Delete(tree, tree[0].ID)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, "Experiments", tree[0].Title)
	assert.Nil(t, Find(tree, loss.ID))

	_, err = Delete(tree, "missing")
	assert.ErrorIs(t, err, ErrSectionNotFound)
}

func TestAssignIDs(t *testing.T) {
	keep := New("Kept", "")
	tree := []*Section{
		keep,
		{Title: "Fresh", Children: []*Section{{Title: "Nested"}}},
	}

	AssignIDs(tree)

	assert.Equal(t, keep.ID, tree[0].ID, "已有ID保持不变")
	assert.NotEmpty(t, tree[1].ID)
	require.Len(t, tree[1].Children, 1)
	assert.NotEmpty(t, tree[1].Children[0].ID)
	assert.NotEqual(t, tree[1].ID, tree[1].Children[0].ID)
	assert.NotNil(t, tree[1].Children[0].Children)
}
