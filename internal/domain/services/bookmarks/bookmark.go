package bookmarks

import (
	"context"

	models "treemark/internal/domain/models/bookmarks"
)

// TreeService reads the owner's forest and maintains its link consistency.
type TreeService interface {
	// GetTree reconstructs the nested forest from the flat collection.
	GetTree(ctx context.Context, userID string) ([]models.Node, error)

	// Search returns the forest filtered by a case-insensitive title/url query.
	Search(ctx context.Context, userID, query string) ([]models.Node, error)

	// Check reports parent/child disagreements without changing anything.
	Check(ctx context.Context, userID string) (*models.Report, error)

	// Repair fixes the reported disagreements and returns the pre-repair
	// report with Repaired set to the number of records rewritten.
	Repair(ctx context.Context, userID string) (*models.Report, error)
}

// BookmarkService mutates single entries while keeping both link
// directions in agreement.
type BookmarkService interface {
	// GetBookmark returns one flat record.
	GetBookmark(ctx context.Context, userID, id string) (*models.Bookmark, error)

	// CreateBookmark inserts a folder or leaf and links it into its parent.
	CreateBookmark(ctx context.Context, req *CreateBookmarkRequest) (*models.Bookmark, error)

	// UpdateBookmark merges the given fields. A changed parentId is applied
	// as a move; children may only be reordered.
	UpdateBookmark(ctx context.Context, req *UpdateBookmarkRequest) (*models.Bookmark, error)

	// MoveBookmark relinks an entry under another folder (or the root).
	MoveBookmark(ctx context.Context, req *MoveBookmarkRequest) (*models.Bookmark, error)

	// DeleteBookmark removes an entry and every descendant, returning the
	// number of records removed.
	DeleteBookmark(ctx context.Context, userID, id string) (int, error)
}

// CreateBookmarkRequest represents a bookmark or folder creation request
type CreateBookmarkRequest struct {
	UserID   string  `json:"-"`
	Title    string  `json:"title"`
	URL      string  `json:"url,omitempty"`
	IsFolder bool    `json:"isFolder"`
	ParentID *string `json:"parentId,omitempty"` // null or absent for root
}

// OptionalParent tracks tri-state parentId updates.
// This is transport-agnostic (no JSON tags) - handler maps from httputil.OptionalString.
//   - Present=false: field absent (parent unchanged)
//   - Present=true, Value=nil or &"": move to the root
//   - Present=true, Value=&"id": move under folder id
type OptionalParent struct {
	Present bool
	Value   *string
}

// MoveTo returns a present OptionalParent naming folder id.
func MoveTo(id string) OptionalParent {
	return OptionalParent{Present: true, Value: &id}
}

// MoveToRoot returns a present OptionalParent that detaches to the root.
func MoveToRoot() OptionalParent {
	return OptionalParent{Present: true}
}

// Target returns the new parent id, nil for the root.
func (o OptionalParent) Target() *string {
	if o.Value == nil || *o.Value == "" {
		return nil
	}
	v := *o.Value
	return &v
}

// UpdateBookmarkRequest represents a partial update
type UpdateBookmarkRequest struct {
	UserID   string
	ID       string
	Title    *string
	URL      *string
	ParentID OptionalParent // absent keeps, null moves to root
	Children []string
}

// MoveBookmarkRequest relinks an entry. Position is the index in the new
// parent's children; nil appends. Root entries keep insertion order, so
// Position must be nil when ParentID is nil.
type MoveBookmarkRequest struct {
	UserID   string  `json:"-"`
	ID       string  `json:"id"`
	ParentID *string `json:"parentId"`
	Position *int    `json:"position,omitempty"`
}
