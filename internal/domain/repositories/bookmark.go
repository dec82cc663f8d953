package repositories

import (
	"context"

	"treemark/internal/domain/models/bookmarks"
)

// BookmarkRepository is the flat-collection capability the tree services
// are written against. Every method is scoped to an owner.
//
// AppendChild and RemoveChild must each be a single atomic array update
// in the underlying store.
type BookmarkRepository interface {
	// Create assigns an id and inserts the record.
	Create(ctx context.Context, b *bookmarks.Bookmark) error

	// GetByID returns domain.ErrNotFound when no record matches.
	GetByID(ctx context.Context, id, userID string) (*bookmarks.Bookmark, error)

	// GetMany batch-fetches records; unknown ids are skipped.
	GetMany(ctx context.Context, ids []string, userID string) ([]bookmarks.Bookmark, error)

	// ListAll returns the owner's whole collection in insertion order.
	ListAll(ctx context.Context, userID string) ([]bookmarks.Bookmark, error)

	// ListByParent returns records whose parentId equals parentID (nil = roots).
	ListByParent(ctx context.Context, parentID *string, userID string) ([]bookmarks.Bookmark, error)

	// Update merges patch into the stored record.
	// Returns domain.ErrNotFound when no record matches.
	Update(ctx context.Context, id, userID string, patch *bookmarks.Patch) error

	// AppendChild pushes childID onto the end of the folder's children.
	AppendChild(ctx context.Context, folderID, childID, userID string) error

	// RemoveChild pulls every occurrence of childID from the folder's children.
	RemoveChild(ctx context.Context, folderID, childID, userID string) error

	// Delete removes a single record. Returns domain.ErrNotFound when absent.
	Delete(ctx context.Context, id, userID string) error

	// DeleteMany removes the given records and reports how many existed.
	DeleteMany(ctx context.Context, ids []string, userID string) (int64, error)
}
