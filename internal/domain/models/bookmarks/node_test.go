package bookmarks_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treemark/internal/domain/models/bookmarks"
)

func TestForest_DecodesBothVariants(t *testing.T) {
	payload := `[
		{"id":"1","title":"Development","isFolder":true,"parentId":null,"children":[
			{"id":"3","title":"React Documentation","url":"https://react.dev","isFolder":false,"parentId":"1"}
		]},
		{"id":"2","title":"Empty","isFolder":true,"parentId":null}
	]`

	var forest bookmarks.Forest
	require.NoError(t, json.Unmarshal([]byte(payload), &forest))
	require.Len(t, forest, 2)

	switch n := forest[0].(type) {
	case *bookmarks.Folder:
		require.Len(t, n.Children, 1)
		l, ok := n.Children[0].(*bookmarks.Leaf)
		require.True(t, ok)
		assert.Equal(t, "https://react.dev", l.URL)
		require.NotNil(t, l.ParentID)
		assert.Equal(t, "1", *l.ParentID)
	default:
		t.Fatalf("expected folder, got %T", n)
	}

	empty := forest[1].(*bookmarks.Folder)
	assert.Empty(t, empty.Children)
}

func TestDecodeNode_RejectsLeafWithChildren(t *testing.T) {
	_, err := bookmarks.DecodeNode([]byte(`{"id":"x","title":"X","isFolder":false,"children":[{"id":"y","title":"Y"}]}`))
	assert.Error(t, err)
}

func TestFolder_MarshalJSONCarriesDiscriminant(t *testing.T) {
	tree := bookmarks.NewFolder("1", "Development", bookmarks.NewLeaf("3", "React", "https://react.dev"))

	data, err := json.Marshal(tree)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, true, raw["isFolder"])
	children := raw["children"].([]any)
	require.Len(t, children, 1)
	child := children[0].(map[string]any)
	assert.Equal(t, false, child["isFolder"])
	assert.Equal(t, "https://react.dev", child["url"])
}

func TestDecodeSeed(t *testing.T) {
	seed := `
- id: "1"
  title: Development
  children:
    - id: "2"
      title: Frontend
      children:
        - id: "3"
          title: React Documentation
          url: https://react.dev
- title: Inbox
  folder: true
`
	nodes, err := bookmarks.DecodeSeed(strings.NewReader(seed))
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.True(t, nodes[1].IsFolder())

	forest := bookmarks.SeedForest(nodes, "user-1")
	assert.Equal(t, 4, bookmarks.Count(forest))

	flat := bookmarks.Flatten(forest)
	assert.True(t, bookmarks.CheckConsistency(flat).Consistent())
	ix := bookmarks.NewIndex(flat)
	assert.Equal(t, []string{"3"}, ix["2"].Children)
	assert.Equal(t, "user-1", ix["3"].UserID)
	assert.NotEmpty(t, flat[len(flat)-1].ID, "generated id for Inbox")
}

func TestDecodeSeed_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing title", "- url: https://x.test\n"},
		{"leaf without url", "- title: Lonely\n"},
		{"folder with url", "- title: F\n  url: https://x.test\n  folder: true\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := bookmarks.DecodeSeed(strings.NewReader(tt.yaml))
			assert.Error(t, err)
		})
	}
}
