package bookmarks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"treemark/internal/config"
	"treemark/internal/domain"
	models "treemark/internal/domain/models/bookmarks"
	"treemark/internal/domain/repositories"
	bookmarkSvc "treemark/internal/domain/services/bookmarks"
	"treemark/internal/observability"
)

type bookmarkService struct {
	repo      repositories.BookmarkRepository
	txManager repositories.TransactionManager
	metrics   *observability.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewBookmarkService creates a new bookmark service
func NewBookmarkService(
	repo repositories.BookmarkRepository,
	txManager repositories.TransactionManager,
	metrics *observability.Metrics,
	logger *slog.Logger,
) bookmarkSvc.BookmarkService {
	return &bookmarkService{
		repo:      repo,
		txManager: txManager,
		metrics:   metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// GetBookmark retrieves a single flat record
func (s *bookmarkService) GetBookmark(ctx context.Context, userID, id string) (*models.Bookmark, error) {
	if id == "" {
		return nil, domain.Invalid("bookmark id is required")
	}
	rec, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, notFoundAs("bookmark", id, err)
	}
	return rec, nil
}

// CreateBookmark inserts the record and appends it to its parent's children
// in one transaction.
func (s *bookmarkService) CreateBookmark(ctx context.Context, req *bookmarkSvc.CreateBookmarkRequest) (*models.Bookmark, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.URL = strings.TrimSpace(req.URL)
	if req.ParentID != nil && *req.ParentID == "" {
		req.ParentID = nil
	}

	if err := validateCreateRequest(req); err != nil {
		s.metrics.RecordMutation("create", err)
		return nil, err
	}

	now := s.now()
	rec := &models.Bookmark{
		Title:     req.Title,
		IsFolder:  req.IsFolder,
		ParentID:  req.ParentID,
		UserID:    req.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if !req.IsFolder {
		rec.URL = req.URL
	}

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if req.ParentID != nil {
			if _, err := s.placeUnder(ctx, *req.ParentID, req.UserID, 0); err != nil {
				return err
			}
		}

		if err := s.repo.Create(ctx, rec); err != nil {
			return err
		}

		if req.ParentID != nil {
			if err := s.repo.AppendChild(ctx, *req.ParentID, rec.ID, req.UserID); err != nil {
				return fmt.Errorf("link to parent: %w", err)
			}
		}
		return nil
	})
	s.metrics.RecordMutation("create", err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("bookmark created",
		"id", rec.ID,
		"is_folder", rec.IsFolder,
		"parent_id", rec.ParentID,
		"user_id", rec.UserID,
	)

	return rec, nil
}

// UpdateBookmark merges title/url, reorders children, and routes a parentId
// change through the move path.
func (s *bookmarkService) UpdateBookmark(ctx context.Context, req *bookmarkSvc.UpdateBookmarkRequest) (*models.Bookmark, error) {
	if req.Title != nil {
		t := strings.TrimSpace(*req.Title)
		req.Title = &t
	}
	if req.URL != nil {
		u := strings.TrimSpace(*req.URL)
		req.URL = &u
	}

	if err := validateUpdateRequest(req); err != nil {
		s.metrics.RecordMutation("update", err)
		return nil, err
	}

	var updated *models.Bookmark
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		rec, err := s.repo.GetByID(ctx, req.ID, req.UserID)
		if err != nil {
			return notFoundAs("bookmark", req.ID, err)
		}

		if rec.IsFolder && req.URL != nil && *req.URL != "" {
			return domain.Invalid("folders cannot have a url")
		}
		if !rec.IsFolder && req.URL != nil && *req.URL == "" {
			return domain.Invalid("url: cannot be blank")
		}
		if !rec.IsFolder && req.Children != nil {
			return domain.Invalid("bookmarks cannot have children")
		}
		if req.Children != nil && !sameMembers(rec.Children, req.Children) {
			return domain.Invalid("children can only be reordered; use create, move or delete to change membership")
		}

		if req.ParentID.Present {
			newParent := req.ParentID.Target()
			if !models.SameParent(rec.ParentID, newParent) {
				if err := s.move(ctx, rec, newParent, nil); err != nil {
					return err
				}
			}
		}

		patch := &models.Patch{
			Title:     req.Title,
			Children:  req.Children,
			UpdatedAt: s.now(),
		}
		if !rec.IsFolder {
			patch.URL = req.URL
		}
		if err := s.repo.Update(ctx, req.ID, req.UserID, patch); err != nil {
			return notFoundAs("bookmark", req.ID, err)
		}

		updated, err = s.repo.GetByID(ctx, req.ID, req.UserID)
		return err
	})
	s.metrics.RecordMutation("update", err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("bookmark updated",
		"id", updated.ID,
		"parent_id", updated.ParentID,
		"user_id", req.UserID,
	)

	return updated, nil
}

// MoveBookmark relinks a record under a new parent in one transaction.
func (s *bookmarkService) MoveBookmark(ctx context.Context, req *bookmarkSvc.MoveBookmarkRequest) (*models.Bookmark, error) {
	if req.ParentID != nil && *req.ParentID == "" {
		req.ParentID = nil
	}
	if err := validateMoveRequest(req); err != nil {
		s.metrics.RecordMutation("move", err)
		return nil, err
	}

	var moved *models.Bookmark
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		rec, err := s.repo.GetByID(ctx, req.ID, req.UserID)
		if err != nil {
			return notFoundAs("bookmark", req.ID, err)
		}
		if err := s.move(ctx, rec, req.ParentID, req.Position); err != nil {
			return err
		}
		moved, err = s.repo.GetByID(ctx, req.ID, req.UserID)
		return err
	})
	s.metrics.RecordMutation("move", err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("bookmark moved",
		"id", moved.ID,
		"parent_id", moved.ParentID,
		"user_id", req.UserID,
	)

	return moved, nil
}

// move detaches rec from its current parent, attaches it to newParent at
// position (nil appends) and updates its parentId. Must run inside a
// transaction.
func (s *bookmarkService) move(ctx context.Context, rec *models.Bookmark, newParent *string, position *int) error {
	var parent *models.Bookmark
	if newParent != nil {
		if *newParent == rec.ID {
			return domain.Invalid("cannot move %s into itself", rec.ID)
		}
		_, height, err := s.collectDescendants(ctx, rec)
		if err != nil {
			return err
		}
		p, err := s.placeUnder(ctx, *newParent, rec.UserID, height)
		if err != nil {
			return err
		}
		if err := s.validateNoCircularReference(ctx, rec.ID, *newParent, rec.UserID); err != nil {
			return err
		}
		parent = p
	}

	sameParent := models.SameParent(rec.ParentID, newParent)

	if rec.ParentID != nil && !sameParent {
		err := s.repo.RemoveChild(ctx, *rec.ParentID, rec.ID, rec.UserID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("unlink from parent: %w", err)
		}
		if err != nil {
			s.logger.Warn("old parent missing during move", "id", rec.ID, "parent_id", *rec.ParentID)
		}
	}

	if parent != nil {
		switch {
		case position != nil:
			children := slices.DeleteFunc(slices.Clone(parent.Children), func(c string) bool { return c == rec.ID })
			at := min(max(*position, 0), len(children))
			children = slices.Insert(children, at, rec.ID)
			if err := s.repo.Update(ctx, parent.ID, rec.UserID, &models.Patch{Children: children, UpdatedAt: s.now()}); err != nil {
				return fmt.Errorf("reorder parent: %w", err)
			}
		case !sameParent:
			if err := s.repo.AppendChild(ctx, parent.ID, rec.ID, rec.UserID); err != nil {
				return fmt.Errorf("link to parent: %w", err)
			}
		}
	}

	if sameParent {
		return nil
	}
	patch := &models.Patch{ParentSet: true, ParentID: newParent, UpdatedAt: s.now()}
	if err := s.repo.Update(ctx, rec.ID, rec.UserID, patch); err != nil {
		return notFoundAs("bookmark", rec.ID, err)
	}
	rec.ParentID = newParent
	return nil
}

// placeUnder checks that parentID names an existing folder with room for a
// subtree of the given height (0 for a single entry) below it.
func (s *bookmarkService) placeUnder(ctx context.Context, parentID, userID string, height int) (*models.Bookmark, error) {
	parent, err := s.repo.GetByID(ctx, parentID, userID)
	if err != nil {
		return nil, notFoundAs("parent folder", parentID, err)
	}
	if !parent.IsFolder {
		return nil, domain.Invalid("parent %s is not a folder", parentID)
	}

	depth, err := s.depthOf(ctx, parent)
	if err != nil {
		return nil, err
	}
	if depth+1+height >= config.MaxTreeDepth {
		return nil, domain.Invalid("folders cannot be nested more than %d levels deep", config.MaxTreeDepth)
	}
	return parent, nil
}

// depthOf counts the ancestors of rec (0 for a root).
func (s *bookmarkService) depthOf(ctx context.Context, rec *models.Bookmark) (int, error) {
	depth := 0
	seen := map[string]bool{rec.ID: true}
	current := rec
	for current.ParentID != nil && depth <= config.MaxTreeDepth {
		if seen[*current.ParentID] {
			break
		}
		next, err := s.repo.GetByID(ctx, *current.ParentID, rec.UserID)
		if errors.Is(err, domain.ErrNotFound) {
			break
		}
		if err != nil {
			return 0, err
		}
		seen[next.ID] = true
		current = next
		depth++
	}
	return depth, nil
}

// validateNoCircularReference ensures moving folderID under newParentID
// won't make it its own ancestor.
func (s *bookmarkService) validateNoCircularReference(ctx context.Context, folderID, newParentID, userID string) error {
	currentID := newParentID
	seen := map[string]bool{}
	for !seen[currentID] {
		seen[currentID] = true

		current, err := s.repo.GetByID(ctx, currentID, userID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if current.ParentID == nil {
			return nil
		}
		if *current.ParentID == folderID {
			return domain.Invalid("cannot move %s into its own descendant", folderID)
		}
		currentID = *current.ParentID
	}
	return nil
}

// DeleteBookmark removes the record and its whole subtree, then detaches it
// from its parent. Descendants are found through both children lists and
// parentId back-references so orphans left by earlier partial deletes go
// too.
func (s *bookmarkService) DeleteBookmark(ctx context.Context, userID, id string) (int, error) {
	if id == "" {
		err := domain.Invalid("bookmark id is required")
		s.metrics.RecordMutation("delete", err)
		return 0, err
	}

	removed := 0
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		rec, err := s.repo.GetByID(ctx, id, userID)
		if err != nil {
			return notFoundAs("bookmark", id, err)
		}

		descendants, _, err := s.collectDescendants(ctx, rec)
		if err != nil {
			return err
		}
		if len(descendants) > 0 {
			n, err := s.repo.DeleteMany(ctx, descendants, userID)
			if err != nil {
				return fmt.Errorf("delete descendants: %w", err)
			}
			removed += int(n)
		}

		if rec.ParentID != nil {
			err := s.repo.RemoveChild(ctx, *rec.ParentID, id, userID)
			if errors.Is(err, domain.ErrNotFound) {
				s.logger.Warn("parent missing during delete", "id", id, "parent_id", *rec.ParentID)
			} else if err != nil {
				return fmt.Errorf("unlink from parent: %w", err)
			}
		}

		if err := s.repo.Delete(ctx, id, userID); err != nil {
			return notFoundAs("bookmark", id, err)
		}
		removed++
		return nil
	})
	s.metrics.RecordMutation("delete", err)
	if err != nil {
		return 0, err
	}

	s.metrics.ObserveCascade(removed)
	s.logger.Info("bookmark deleted",
		"id", id,
		"removed", removed,
		"user_id", userID,
	)

	return removed, nil
}

// collectDescendants walks the subtree breadth-first, one batch per folder,
// and returns the descendant ids along with the subtree height.
func (s *bookmarkService) collectDescendants(ctx context.Context, root *models.Bookmark) ([]string, int, error) {
	type entry struct {
		rec   models.Bookmark
		level int
	}
	visited := map[string]bool{root.ID: true}
	var out []string
	height := 0
	queue := []entry{{rec: *root}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		height = max(height, current.level)
		if !current.rec.IsFolder {
			continue
		}

		var listed []string
		for _, c := range current.rec.Children {
			if !visited[c] {
				listed = append(listed, c)
			}
		}
		children, err := s.repo.GetMany(ctx, listed, current.rec.UserID)
		if err != nil {
			return nil, 0, fmt.Errorf("fetch children of %s: %w", current.rec.ID, err)
		}

		backRefs, err := s.repo.ListByParent(ctx, &current.rec.ID, current.rec.UserID)
		if err != nil {
			return nil, 0, fmt.Errorf("list children of %s: %w", current.rec.ID, err)
		}

		for _, child := range append(children, backRefs...) {
			if visited[child.ID] {
				continue
			}
			visited[child.ID] = true
			out = append(out, child.ID)
			queue = append(queue, entry{rec: child, level: current.level + 1})
		}
	}
	return out, height, nil
}

// notFoundAs rewrites a repository not-found into a typed error naming the
// resource; other errors pass through.
func notFoundAs(resource, id string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewNotFound(resource, id)
	}
	return err
}

// sameMembers reports whether b is a permutation of a.
func sameMembers(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x, y := slices.Clone(a), slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}
