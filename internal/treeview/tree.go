// Package treeview applies edits to a nested bookmark forest held in memory.
// Every function returns a new forest; nodes off the edited path are shared
// with the input and never modified.
package treeview

import (
	"strings"
	"time"

	"treemark/internal/domain/models/bookmarks"
)

// Add appends node to the children of the folder with id parentID, or to the
// root level when parentID is nil. The node's parentId is set to match.
// A parentID that names no folder leaves the forest unchanged.
func Add(forest []bookmarks.Node, parentID *string, node bookmarks.Node) []bookmarks.Node {
	node = withParent(node, parentID)
	if parentID == nil {
		out := make([]bookmarks.Node, 0, len(forest)+1)
		out = append(out, forest...)
		return append(out, node)
	}

	out, _ := mapFolder(forest, *parentID, func(f *bookmarks.Folder) bookmarks.Node {
		children := make([]bookmarks.Node, 0, len(f.Children)+1)
		children = append(children, f.Children...)
		f.Children = append(children, node)
		return f
	})
	return out
}

// Delete removes the node with the given id, and its subtree, at any depth.
func Delete(forest []bookmarks.Node, id string) []bookmarks.Node {
	out, _ := deleteNode(forest, id)
	return out
}

func deleteNode(nodes []bookmarks.Node, id string) ([]bookmarks.Node, bool) {
	for i, n := range nodes {
		if n.NodeID() == id {
			out := make([]bookmarks.Node, 0, len(nodes)-1)
			out = append(out, nodes[:i]...)
			return append(out, nodes[i+1:]...), true
		}
	}
	for i, n := range nodes {
		f, ok := n.(*bookmarks.Folder)
		if !ok {
			continue
		}
		children, found := deleteNode(f.Children, id)
		if !found {
			continue
		}
		cp := *f
		cp.Children = children
		return replaceAt(nodes, i, &cp), true
	}
	return nodes, false
}

// Edit lists the fields Update may change. Nil fields are left alone.
type Edit struct {
	Title *string
	URL   *string // ignored for folders
	At    time.Time
}

// Update applies edit to the node with the given id. Position, children and
// parent links are preserved; UpdatedAt is set when edit.At is non-zero.
func Update(forest []bookmarks.Node, id string, edit Edit) []bookmarks.Node {
	out, _ := mapNode(forest, id, func(n bookmarks.Node) bookmarks.Node {
		switch v := n.(type) {
		case *bookmarks.Folder:
			cp := *v
			applyMeta(&cp.Meta, edit)
			return &cp
		case *bookmarks.Leaf:
			cp := *v
			applyMeta(&cp.Meta, edit)
			if edit.URL != nil {
				cp.URL = *edit.URL
			}
			return &cp
		}
		return n
	})
	return out
}

func applyMeta(m *bookmarks.Meta, edit Edit) {
	if edit.Title != nil {
		m.Title = *edit.Title
	}
	if !edit.At.IsZero() {
		m.UpdatedAt = edit.At
	}
}

// Filter keeps the nodes whose title or url contains query, ignoring case,
// and the folders that contain such a node. Kept folders carry only their
// filtered children. An empty query returns forest as is.
func Filter(forest []bookmarks.Node, query string) []bookmarks.Node {
	if query == "" {
		return forest
	}
	return filter(forest, strings.ToLower(query))
}

func filter(nodes []bookmarks.Node, q string) []bookmarks.Node {
	out := make([]bookmarks.Node, 0)
	for _, n := range nodes {
		switch v := n.(type) {
		case *bookmarks.Folder:
			children := filter(v.Children, q)
			if len(children) == 0 && !contains(v.Title, q) {
				continue
			}
			cp := *v
			cp.Children = children
			out = append(out, &cp)
		case *bookmarks.Leaf:
			if contains(v.Title, q) || contains(v.URL, q) {
				out = append(out, v)
			}
		}
	}
	return out
}

func contains(s, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(s), lowerQuery)
}

// Find returns the node with the given id.
func Find(forest []bookmarks.Node, id string) (bookmarks.Node, bool) {
	var found bookmarks.Node
	bookmarks.Walk(forest, func(n bookmarks.Node, _ *bookmarks.Folder, _ int) bool {
		if found != nil {
			return false
		}
		if n.NodeID() == id {
			found = n
			return false
		}
		return true
	})
	return found, found != nil
}

// mapNode replaces the node with the given id by fn's result, copying every
// folder on the path to it.
func mapNode(nodes []bookmarks.Node, id string, fn func(bookmarks.Node) bookmarks.Node) ([]bookmarks.Node, bool) {
	for i, n := range nodes {
		if n.NodeID() == id {
			return replaceAt(nodes, i, fn(n)), true
		}
		f, ok := n.(*bookmarks.Folder)
		if !ok {
			continue
		}
		children, found := mapNode(f.Children, id, fn)
		if !found {
			continue
		}
		cp := *f
		cp.Children = children
		return replaceAt(nodes, i, &cp), true
	}
	return nodes, false
}

// mapFolder is mapNode restricted to folders; fn receives a copy it may
// modify.
func mapFolder(nodes []bookmarks.Node, id string, fn func(*bookmarks.Folder) bookmarks.Node) ([]bookmarks.Node, bool) {
	target, ok := Find(nodes, id)
	if !ok {
		return nodes, false
	}
	if _, isFolder := target.(*bookmarks.Folder); !isFolder {
		return nodes, false
	}
	return mapNode(nodes, id, func(n bookmarks.Node) bookmarks.Node {
		cp := *n.(*bookmarks.Folder)
		return fn(&cp)
	})
}

func replaceAt(nodes []bookmarks.Node, i int, n bookmarks.Node) []bookmarks.Node {
	out := make([]bookmarks.Node, len(nodes))
	copy(out, nodes)
	out[i] = n
	return out
}

func withParent(n bookmarks.Node, parentID *string) bookmarks.Node {
	var parent *string
	if parentID != nil {
		parent = bookmarks.StringPtr(*parentID)
	}
	switch v := n.(type) {
	case *bookmarks.Folder:
		cp := *v
		cp.ParentID = parent
		if cp.Children == nil {
			cp.Children = []bookmarks.Node{}
		}
		return &cp
	case *bookmarks.Leaf:
		cp := *v
		cp.ParentID = parent
		return &cp
	}
	return n
}
