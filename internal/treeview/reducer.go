package treeview

import (
	"time"

	"github.com/google/uuid"

	"treemark/internal/domain/models/bookmarks"
)

// State is everything the tree view renders from.
type State struct {
	Bookmarks []bookmarks.Node
	Expanded  Expanded
	Query     string
}

// Visible returns the forest with the current query applied.
func (s State) Visible() []bookmarks.Node {
	return Filter(s.Bookmarks, s.Query)
}

// Action is one state transition. The set of actions is closed.
type Action interface {
	apply(State) State
}

// Reduce returns the state that results from applying a to s. s is not
// modified. A nil action returns s.
func Reduce(s State, a Action) State {
	if a == nil {
		return s
	}
	return a.apply(s)
}

// AddBookmark appends a leaf under ParentID (nil = root).
type AddBookmark struct {
	ParentID *string
	Bookmark *bookmarks.Leaf
}

func (a AddBookmark) apply(s State) State {
	s.Bookmarks = Add(s.Bookmarks, a.ParentID, a.Bookmark)
	return s
}

// AddFolder appends a folder under ParentID (nil = root) and expands it.
// An unknown ParentID leaves the state unchanged.
type AddFolder struct {
	ParentID *string
	Folder   *bookmarks.Folder
}

func (a AddFolder) apply(s State) State {
	s.Bookmarks = Add(s.Bookmarks, a.ParentID, a.Folder)
	if _, ok := Find(s.Bookmarks, a.Folder.ID); ok {
		s.Expanded = s.Expanded.With(a.Folder.ID)
	}
	return s
}

// DeleteItem removes a node and its subtree. Expanded entries for removed
// folders are dropped.
type DeleteItem struct {
	ID string
}

func (a DeleteItem) apply(s State) State {
	target, ok := Find(s.Bookmarks, a.ID)
	if !ok {
		return s
	}
	var removed []string
	bookmarks.Walk([]bookmarks.Node{target}, func(n bookmarks.Node, _ *bookmarks.Folder, _ int) bool {
		removed = append(removed, n.NodeID())
		return true
	})
	s.Bookmarks = Delete(s.Bookmarks, a.ID)
	s.Expanded = s.Expanded.Without(removed...)
	return s
}

// UpdateItem renames a node and, for leaves, replaces the url when URL is set.
type UpdateItem struct {
	ID    string
	Title string
	URL   *string
	At    time.Time
}

func (a UpdateItem) apply(s State) State {
	title := a.Title
	s.Bookmarks = Update(s.Bookmarks, a.ID, Edit{Title: &title, URL: a.URL, At: a.At})
	return s
}

// ToggleFolder flips a folder between expanded and collapsed.
type ToggleFolder struct {
	ID string
}

func (a ToggleFolder) apply(s State) State {
	s.Expanded = s.Expanded.Toggle(a.ID)
	return s
}

// SetQuery changes the search query used by Visible.
type SetQuery struct {
	Query string
}

func (a SetQuery) apply(s State) State {
	s.Query = a.Query
	return s
}

// NewBookmark builds a leaf with a generated id, ready for AddBookmark.
func NewBookmark(title, url string) *bookmarks.Leaf {
	now := time.Now().UTC()
	l := bookmarks.NewLeaf(uuid.NewString(), title, url)
	l.CreatedAt, l.UpdatedAt = now, now
	return l
}

// NewFolder builds an empty folder with a generated id, ready for AddFolder.
func NewFolder(title string) *bookmarks.Folder {
	now := time.Now().UTC()
	f := bookmarks.NewFolder(uuid.NewString(), title)
	f.CreatedAt, f.UpdatedAt = now, now
	return f
}
