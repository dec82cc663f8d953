package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"treemark/internal/domain"
	"treemark/internal/domain/models/bookmarks"
	"treemark/internal/domain/repositories"
)

// Store is an in-process bookmark collection. It backs local development
// and the handler/service tests; records are kept in insertion order.
type Store struct {
	mu      sync.RWMutex
	records []bookmarks.Bookmark
	pos     map[string]int
	// txMu serializes ExecTx callers so a multi-step mutation is not
	// interleaved with another one.
	txMu sync.Mutex
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{pos: make(map[string]int)}
}

// BookmarkRepository implements repositories.BookmarkRepository over a Store.
type BookmarkRepository struct {
	store *Store
	now   func() time.Time
}

// NewBookmarkRepository creates a repository backed by store.
func NewBookmarkRepository(store *Store) repositories.BookmarkRepository {
	return &BookmarkRepository{store: store, now: time.Now}
}

func notFound(id string) error {
	return fmt.Errorf("bookmark %s: %w", id, domain.ErrNotFound)
}

// lookup must be called with the lock held.
func (s *Store) lookup(id, userID string) (int, bool) {
	i, ok := s.pos[id]
	if !ok || s.records[i].UserID != userID {
		return 0, false
	}
	return i, true
}

func (s *Store) reindex() {
	clear(s.pos)
	for i, r := range s.records {
		s.pos[r.ID] = i
	}
}

// Create inserts b, assigning an id when it has none.
func (r *BookmarkRepository) Create(ctx context.Context, b *bookmarks.Bookmark) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := r.now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = b.CreatedAt
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pos[b.ID]; exists {
		return &domain.ConflictError{Message: fmt.Sprintf("bookmark %s already exists", b.ID), ResourceID: b.ID}
	}
	s.records = append(s.records, b.Clone())
	s.pos[b.ID] = len(s.records) - 1
	return nil
}

// GetByID returns a copy of the stored record.
func (r *BookmarkRepository) GetByID(ctx context.Context, id, userID string) (*bookmarks.Bookmark, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.lookup(id, userID)
	if !ok {
		return nil, notFound(id)
	}
	b := s.records[i].Clone()
	return &b, nil
}

// GetMany returns copies of the records that exist, in the order of ids.
func (r *BookmarkRepository) GetMany(ctx context.Context, ids []string, userID string) ([]bookmarks.Bookmark, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]bookmarks.Bookmark, 0, len(ids))
	for _, id := range ids {
		if i, ok := s.lookup(id, userID); ok {
			out = append(out, s.records[i].Clone())
		}
	}
	return out, nil
}

// ListAll returns the owner's records in insertion order.
func (r *BookmarkRepository) ListAll(ctx context.Context, userID string) ([]bookmarks.Bookmark, error) {
	return r.filter(func(b *bookmarks.Bookmark) bool { return b.UserID == userID }), nil
}

// ListByParent returns the owner's records whose parentId equals parentID.
func (r *BookmarkRepository) ListByParent(ctx context.Context, parentID *string, userID string) ([]bookmarks.Bookmark, error) {
	return r.filter(func(b *bookmarks.Bookmark) bool {
		return b.UserID == userID && bookmarks.SameParent(b.ParentID, parentID)
	}), nil
}

func (r *BookmarkRepository) filter(keep func(*bookmarks.Bookmark) bool) []bookmarks.Bookmark {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]bookmarks.Bookmark, 0)
	for i := range s.records {
		if keep(&s.records[i]) {
			out = append(out, s.records[i].Clone())
		}
	}
	return out
}

// Update applies patch to the stored record.
func (r *BookmarkRepository) Update(ctx context.Context, id, userID string, patch *bookmarks.Patch) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.lookup(id, userID)
	if !ok {
		return notFound(id)
	}
	if patch.UpdatedAt.IsZero() {
		patch.UpdatedAt = r.now().UTC()
	}
	patch.Apply(&s.records[i])
	return nil
}

// AppendChild pushes childID onto the folder's children.
func (r *BookmarkRepository) AppendChild(ctx context.Context, folderID, childID, userID string) error {
	return r.mutateChildren(folderID, userID, func(children []string) []string {
		return append(children, childID)
	})
}

// RemoveChild pulls every occurrence of childID from the folder's children.
func (r *BookmarkRepository) RemoveChild(ctx context.Context, folderID, childID, userID string) error {
	return r.mutateChildren(folderID, userID, func(children []string) []string {
		return slices.DeleteFunc(children, func(c string) bool { return c == childID })
	})
}

func (r *BookmarkRepository) mutateChildren(folderID, userID string, fn func([]string) []string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.lookup(folderID, userID)
	if !ok {
		return notFound(folderID)
	}
	rec := &s.records[i]
	rec.Children = fn(slices.Clone(rec.Children))
	rec.UpdatedAt = r.now().UTC()
	return nil
}

// Delete removes a single record.
func (r *BookmarkRepository) Delete(ctx context.Context, id, userID string) error {
	n, err := r.DeleteMany(ctx, []string{id}, userID)
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

// DeleteMany removes the given records and returns how many existed.
func (r *BookmarkRepository) DeleteMany(ctx context.Context, ids []string, userID string) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.lookup(id, userID); ok {
			drop[id] = true
		}
	}
	if len(drop) == 0 {
		return 0, nil
	}
	s.records = slices.DeleteFunc(s.records, func(b bookmarks.Bookmark) bool { return drop[b.ID] })
	s.reindex()
	return int64(len(drop)), nil
}
