package bookmarks

import (
	"encoding/json"
	"fmt"
	"time"
)

// Meta holds the fields shared by folders and leaves.
type Meta struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	ParentID  *string   `json:"parentId"`
	UserID    string    `json:"userId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Node is one entry of the nested tree form. The only implementations are
// *Folder and *Leaf; callers switch on the concrete type.
type Node interface {
	NodeID() string
	NodeTitle() string
	node()
}

// Folder owns an ordered list of nested children.
type Folder struct {
	Meta
	Children []Node
}

// Leaf is a single bookmark with a URL.
type Leaf struct {
	Meta
	URL string
}

func (f *Folder) NodeID() string    { return f.ID }
func (f *Folder) NodeTitle() string { return f.Title }
func (*Folder) node()               {}

func (l *Leaf) NodeID() string    { return l.ID }
func (l *Leaf) NodeTitle() string { return l.Title }
func (*Leaf) node()               {}

// NewFolder builds a folder node with the given children.
func NewFolder(id, title string, children ...Node) *Folder {
	if children == nil {
		children = []Node{}
	}
	return &Folder{Meta: Meta{ID: id, Title: title}, Children: children}
}

// NewLeaf builds a leaf node.
func NewLeaf(id, title, url string) *Leaf {
	return &Leaf{Meta: Meta{ID: id, Title: title}, URL: url}
}

// MarshalJSON emits the folder with its isFolder discriminant.
func (f *Folder) MarshalJSON() ([]byte, error) {
	children := f.Children
	if children == nil {
		children = []Node{}
	}
	return json.Marshal(struct {
		Meta
		IsFolder bool   `json:"isFolder"`
		Children []Node `json:"children"`
	}{f.Meta, true, children})
}

// MarshalJSON emits the leaf with its isFolder discriminant.
func (l *Leaf) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Meta
		URL      string `json:"url"`
		IsFolder bool   `json:"isFolder"`
	}{l.Meta, l.URL, false})
}

// Forest is a decodable list of root nodes.
type Forest []Node

// UnmarshalJSON decodes each element using its isFolder discriminant.
func (f *Forest) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	nodes := make(Forest, 0, len(raw))
	for _, r := range raw {
		n, err := DecodeNode(r)
		if err != nil {
			return err
		}
		nodes = append(nodes, n)
	}
	*f = nodes
	return nil
}

// DecodeNode decodes a single JSON tree node.
func DecodeNode(data []byte) (Node, error) {
	var probe struct {
		Meta
		IsFolder bool              `json:"isFolder"`
		URL      string            `json:"url"`
		Children []json.RawMessage `json:"children"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}

	if !probe.IsFolder {
		if len(probe.Children) > 0 {
			return nil, fmt.Errorf("bookmark %q: leaf cannot have children", probe.ID)
		}
		return &Leaf{Meta: probe.Meta, URL: probe.URL}, nil
	}

	folder := &Folder{Meta: probe.Meta, Children: make([]Node, 0, len(probe.Children))}
	for _, raw := range probe.Children {
		child, err := DecodeNode(raw)
		if err != nil {
			return nil, err
		}
		folder.Children = append(folder.Children, child)
	}
	return folder, nil
}

// Walk visits every node depth-first in display order. parent is nil for
// roots. Returning false from fn skips the node's children.
func Walk(forest []Node, fn func(n Node, parent *Folder, depth int) bool) {
	walk(forest, nil, 0, fn)
}

func walk(nodes []Node, parent *Folder, depth int, fn func(Node, *Folder, int) bool) {
	for _, n := range nodes {
		if !fn(n, parent, depth) {
			continue
		}
		if f, ok := n.(*Folder); ok {
			walk(f.Children, f, depth+1, fn)
		}
	}
}

// Count returns the number of nodes in the forest.
func Count(forest []Node) int {
	total := 0
	Walk(forest, func(Node, *Folder, int) bool {
		total++
		return true
	})
	return total
}
