package bookmarks

import (
	"slices"
	"time"
)

// Bookmark is the flat, stored form of a tree entity.
// Folders reference their children by id; leaves carry a URL.
type Bookmark struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url,omitempty"`      // leaves only
	IsFolder  bool      `json:"isFolder"`
	Children  []string  `json:"children,omitempty"` // folders only, display order
	ParentID  *string   `json:"parentId"`           // nil = root level
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	UserID    string    `json:"userId"`
}

// IsRoot reports whether the record sits at the top of the forest.
func (b *Bookmark) IsRoot() bool {
	return b.ParentID == nil
}

// HasChild reports whether id is listed in the record's children.
func (b *Bookmark) HasChild(id string) bool {
	return slices.Contains(b.Children, id)
}

// Clone returns a copy that shares no slices or pointers with b.
func (b Bookmark) Clone() Bookmark {
	b.Children = slices.Clone(b.Children)
	if b.ParentID != nil {
		p := *b.ParentID
		b.ParentID = &p
	}
	return b
}

// Meta returns the fields shared by both tree variants.
func (b *Bookmark) Meta() Meta {
	var parent *string
	if b.ParentID != nil {
		p := *b.ParentID
		parent = &p
	}
	return Meta{
		ID:        b.ID,
		Title:     b.Title,
		ParentID:  parent,
		UserID:    b.UserID,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

// Patch lists the mutable fields of an update. Nil means unchanged.
type Patch struct {
	Title     *string
	URL       *string
	Children  []string // nil leaves children untouched
	ParentSet bool     // ParentID is applied only when set
	ParentID  *string
	UpdatedAt time.Time
}

// Apply merges the patch into b.
func (p *Patch) Apply(b *Bookmark) {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.URL != nil {
		b.URL = *p.URL
	}
	if p.Children != nil {
		b.Children = slices.Clone(p.Children)
	}
	if p.ParentSet {
		b.ParentID = p.ParentID
	}
	b.UpdatedAt = p.UpdatedAt
}

// StringPtr is a small helper for optional ids.
func StringPtr(s string) *string { return &s }

// SameParent compares two optional parent ids.
func SameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
