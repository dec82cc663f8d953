package bookmarks_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treemark/internal/domain"
	models "treemark/internal/domain/models/bookmarks"
	"treemark/internal/domain/repositories"
	bookmarkSvc "treemark/internal/domain/services/bookmarks"
	"treemark/internal/repository/memory"
	service "treemark/internal/service/bookmarks"
)

const user = "user-1"

type fixture struct {
	repo  repositories.BookmarkRepository
	marks bookmarkSvc.BookmarkService
	tree  bookmarkSvc.TreeService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	repo := memory.NewBookmarkRepository(store)
	tx := memory.NewTransactionManager(store)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{
		repo:  repo,
		marks: service.NewBookmarkService(repo, tx, nil, logger),
		tree:  service.NewTreeService(repo, tx, nil, logger),
	}
}

func (f *fixture) folder(t *testing.T, title string, parent *string) *models.Bookmark {
	t.Helper()
	b, err := f.marks.CreateBookmark(context.Background(), &bookmarkSvc.CreateBookmarkRequest{
		UserID: user, Title: title, IsFolder: true, ParentID: parent,
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) leaf(t *testing.T, title, url string, parent *string) *models.Bookmark {
	t.Helper()
	b, err := f.marks.CreateBookmark(context.Background(), &bookmarkSvc.CreateBookmarkRequest{
		UserID: user, Title: title, URL: url, ParentID: parent,
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) get(t *testing.T, id string) *models.Bookmark {
	t.Helper()
	b, err := f.repo.GetByID(context.Background(), id, user)
	require.NoError(t, err)
	return b
}

func (f *fixture) assertConsistent(t *testing.T) {
	t.Helper()
	report, err := f.tree.Check(context.Background(), user)
	require.NoError(t, err)
	assert.True(t, report.Consistent(), "issues: %+v", report.Issues)
}

// seed builds Development > Frontend > React, Development > Go.
func (f *fixture) seed(t *testing.T) (dev, fe, react, golang *models.Bookmark) {
	dev = f.folder(t, "Development", nil)
	fe = f.folder(t, "Frontend", &dev.ID)
	react = f.leaf(t, "React Documentation", "https://react.dev", &fe.ID)
	golang = f.leaf(t, "Go", "https://go.dev", &dev.ID)
	return
}

func TestCreateBookmark_LinksIntoParent(t *testing.T) {
	f := newFixture(t)
	dev, fe, react, golang := f.seed(t)

	assert.Equal(t, []string{fe.ID, golang.ID}, f.get(t, dev.ID).Children)
	assert.Equal(t, []string{react.ID}, f.get(t, fe.ID).Children)
	assert.False(t, react.CreatedAt.IsZero())
	assert.Equal(t, user, react.UserID)
	f.assertConsistent(t)
}

func TestCreateBookmark_Errors(t *testing.T) {
	f := newFixture(t)
	leaf := f.leaf(t, "Go", "https://go.dev", nil)
	missing := "does-not-exist"

	tests := []struct {
		name    string
		req     bookmarkSvc.CreateBookmarkRequest
		wantErr error
	}{
		{"blank title", bookmarkSvc.CreateBookmarkRequest{Title: "  ", URL: "https://x.test"}, domain.ErrValidation},
		{"leaf without url", bookmarkSvc.CreateBookmarkRequest{Title: "X"}, domain.ErrValidation},
		{"relative url", bookmarkSvc.CreateBookmarkRequest{Title: "X", URL: "not a url"}, domain.ErrValidation},
		{"folder with url", bookmarkSvc.CreateBookmarkRequest{Title: "F", IsFolder: true, URL: "https://x.test"}, domain.ErrValidation},
		{"missing parent", bookmarkSvc.CreateBookmarkRequest{Title: "X", URL: "https://x.test", ParentID: &missing}, domain.ErrNotFound},
		{"leaf parent", bookmarkSvc.CreateBookmarkRequest{Title: "X", URL: "https://x.test", ParentID: &leaf.ID}, domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			req.UserID = user
			_, err := f.marks.CreateBookmark(context.Background(), &req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	all, err := f.repo.ListAll(context.Background(), user)
	require.NoError(t, err)
	assert.Len(t, all, 1, "failed creates must not insert")
}

func TestGetTree_NestsInChildrenOrder(t *testing.T) {
	f := newFixture(t)
	dev, fe, react, golang := f.seed(t)
	news := f.leaf(t, "News", "https://news.ycombinator.com", nil)

	forest, err := f.tree.GetTree(context.Background(), user)
	require.NoError(t, err)

	require.Len(t, forest, 2)
	assert.Equal(t, dev.ID, forest[0].NodeID())
	assert.Equal(t, news.ID, forest[1].NodeID())

	devNode := forest[0].(*models.Folder)
	require.Len(t, devNode.Children, 2)
	assert.Equal(t, fe.ID, devNode.Children[0].NodeID())
	assert.Equal(t, golang.ID, devNode.Children[1].NodeID())
	feNode := devNode.Children[0].(*models.Folder)
	require.Len(t, feNode.Children, 1)
	assert.Equal(t, react.ID, feNode.Children[0].NodeID())

	// round trip back to the stored links
	flat := models.Flatten(forest)
	assert.True(t, models.CheckConsistency(flat).Consistent())
	assert.Equal(t, f.get(t, dev.ID).Children, models.NewIndex(flat)[dev.ID].Children)
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	f.folder(t, "Empty", nil)

	forest, err := f.tree.Search(context.Background(), user, "REACT")
	require.NoError(t, err)
	require.Len(t, forest, 1)
	assert.Equal(t, 3, models.Count(forest))
}

func TestUpdateBookmark_PreservesStructure(t *testing.T) {
	f := newFixture(t)
	dev, fe, react, _ := f.seed(t)
	before := f.get(t, react.ID)

	title, url := "React", "https://react.dev/learn"
	updated, err := f.marks.UpdateBookmark(context.Background(), &bookmarkSvc.UpdateBookmarkRequest{
		UserID: user, ID: react.ID, Title: &title, URL: &url,
	})
	require.NoError(t, err)

	assert.Equal(t, "React", updated.Title)
	assert.Equal(t, url, updated.URL)
	assert.Equal(t, fe.ID, *updated.ParentID)
	assert.True(t, !updated.UpdatedAt.Before(before.UpdatedAt))
	assert.Equal(t, before.CreatedAt, updated.CreatedAt)
	assert.Equal(t, []string{react.ID}, f.get(t, fe.ID).Children)
	assert.Len(t, f.get(t, dev.ID).Children, 2)
}

func TestUpdateBookmark_Errors(t *testing.T) {
	f := newFixture(t)
	dev, fe, react, golang := f.seed(t)
	url := "https://x.test"
	title := "X"

	tests := []struct {
		name    string
		req     bookmarkSvc.UpdateBookmarkRequest
		wantErr error
	}{
		{"unknown id", bookmarkSvc.UpdateBookmarkRequest{ID: "nope", Title: &title}, domain.ErrNotFound},
		{"missing id", bookmarkSvc.UpdateBookmarkRequest{Title: &title}, domain.ErrValidation},
		{"url on folder", bookmarkSvc.UpdateBookmarkRequest{ID: dev.ID, URL: &url}, domain.ErrValidation},
		{"children on leaf", bookmarkSvc.UpdateBookmarkRequest{ID: react.ID, Children: []string{}}, domain.ErrValidation},
		{"children membership change", bookmarkSvc.UpdateBookmarkRequest{ID: dev.ID, Children: []string{fe.ID}}, domain.ErrValidation},
		{"children foreign id", bookmarkSvc.UpdateBookmarkRequest{ID: dev.ID, Children: []string{fe.ID, react.ID}}, domain.ErrValidation},
		{"move into descendant", bookmarkSvc.UpdateBookmarkRequest{ID: dev.ID, ParentID: bookmarkSvc.MoveTo(fe.ID)}, domain.ErrValidation},
		{"move under leaf", bookmarkSvc.UpdateBookmarkRequest{ID: fe.ID, ParentID: bookmarkSvc.MoveTo(golang.ID)}, domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			req.UserID = user
			_, err := f.marks.UpdateBookmark(context.Background(), &req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Equal(t, "Development", f.get(t, dev.ID).Title)
	assert.Equal(t, []string{fe.ID, golang.ID}, f.get(t, dev.ID).Children)
	f.assertConsistent(t)
}

func TestUpdateBookmark_ReordersChildren(t *testing.T) {
	f := newFixture(t)
	dev, fe, _, golang := f.seed(t)

	_, err := f.marks.UpdateBookmark(context.Background(), &bookmarkSvc.UpdateBookmarkRequest{
		UserID: user, ID: dev.ID, Children: []string{golang.ID, fe.ID},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{golang.ID, fe.ID}, f.get(t, dev.ID).Children)
	f.assertConsistent(t)
}

func TestUpdateBookmark_ParentChangeIsAMove(t *testing.T) {
	f := newFixture(t)
	dev, fe, react, _ := f.seed(t)

	_, err := f.marks.UpdateBookmark(context.Background(), &bookmarkSvc.UpdateBookmarkRequest{
		UserID: user, ID: react.ID, ParentID: bookmarkSvc.MoveTo(dev.ID),
	})
	require.NoError(t, err)

	assert.Empty(t, f.get(t, fe.ID).Children)
	assert.Contains(t, f.get(t, dev.ID).Children, react.ID)
	f.assertConsistent(t)

	// null moves to the root
	_, err = f.marks.UpdateBookmark(context.Background(), &bookmarkSvc.UpdateBookmarkRequest{
		UserID: user, ID: react.ID, ParentID: bookmarkSvc.MoveToRoot(),
	})
	require.NoError(t, err)
	assert.Nil(t, f.get(t, react.ID).ParentID)
	assert.NotContains(t, f.get(t, dev.ID).Children, react.ID)
	f.assertConsistent(t)
}

func TestMoveBookmark_Position(t *testing.T) {
	f := newFixture(t)
	dev, fe, react, golang := f.seed(t)

	pos := 0
	moved, err := f.marks.MoveBookmark(context.Background(), &bookmarkSvc.MoveBookmarkRequest{
		UserID: user, ID: react.ID, ParentID: &dev.ID, Position: &pos,
	})
	require.NoError(t, err)
	assert.Equal(t, dev.ID, *moved.ParentID)
	assert.Equal(t, []string{react.ID, fe.ID, golang.ID}, f.get(t, dev.ID).Children)

	// reorder within the same parent
	last := 99
	_, err = f.marks.MoveBookmark(context.Background(), &bookmarkSvc.MoveBookmarkRequest{
		UserID: user, ID: react.ID, ParentID: &dev.ID, Position: &last,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{fe.ID, golang.ID, react.ID}, f.get(t, dev.ID).Children)
	f.assertConsistent(t)
}

func TestMoveBookmark_RejectsCycles(t *testing.T) {
	f := newFixture(t)
	dev, fe, _, _ := f.seed(t)
	inner := f.folder(t, "Inner", &fe.ID)

	for _, target := range []string{dev.ID, fe.ID, inner.ID} {
		_, err := f.marks.MoveBookmark(context.Background(), &bookmarkSvc.MoveBookmarkRequest{
			UserID: user, ID: dev.ID, ParentID: &target,
		})
		assert.ErrorIs(t, err, domain.ErrValidation, target)
	}
	f.assertConsistent(t)
}

// chain nests n folders under parent and returns them top-down.
func (f *fixture) chain(t *testing.T, n int, parent *string) []*models.Bookmark {
	t.Helper()
	out := make([]*models.Bookmark, 0, n)
	for i := range n {
		b := f.folder(t, fmt.Sprintf("Level %d", i), parent)
		out = append(out, b)
		parent = &b.ID
	}
	return out
}

func TestMoveBookmark_CountsSubtreeHeight(t *testing.T) {
	f := newFixture(t)
	a := f.chain(t, 40, nil)
	b := f.chain(t, 30, nil)
	f.leaf(t, "Bottom", "https://bottom.test", &b[len(b)-1].ID)
	deepest := a[len(a)-1].ID

	_, err := f.marks.MoveBookmark(context.Background(), &bookmarkSvc.MoveBookmarkRequest{
		UserID: user, ID: b[0].ID, ParentID: &deepest,
	})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Nil(t, f.get(t, b[0].ID).ParentID)

	_, err = f.marks.UpdateBookmark(context.Background(), &bookmarkSvc.UpdateBookmarkRequest{
		UserID: user, ID: b[0].ID, ParentID: bookmarkSvc.MoveTo(deepest),
	})
	require.ErrorIs(t, err, domain.ErrValidation)

	// b[10] is 20 levels tall and lands at depth 40, bottoming out at 60
	_, err = f.marks.MoveBookmark(context.Background(), &bookmarkSvc.MoveBookmarkRequest{
		UserID: user, ID: b[10].ID, ParentID: &deepest,
	})
	require.NoError(t, err)

	stored, err := f.repo.ListAll(context.Background(), user)
	require.NoError(t, err)
	forest, err := f.tree.GetTree(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, len(stored), models.Count(forest), "every stored record stays reachable")
	f.assertConsistent(t)
}

func TestMoveBookmark_RootRejectsPosition(t *testing.T) {
	f := newFixture(t)
	_, _, react, _ := f.seed(t)

	pos := 0
	_, err := f.marks.MoveBookmark(context.Background(), &bookmarkSvc.MoveBookmarkRequest{
		UserID: user, ID: react.ID, Position: &pos,
	})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.NotNil(t, f.get(t, react.ID).ParentID)

	_, err = f.marks.MoveBookmark(context.Background(), &bookmarkSvc.MoveBookmarkRequest{
		UserID: user, ID: react.ID,
	})
	require.NoError(t, err)
	assert.Nil(t, f.get(t, react.ID).ParentID)
	f.assertConsistent(t)
}

func TestDeleteBookmark_CascadesEveryDepth(t *testing.T) {
	f := newFixture(t)
	dev, fe, _, _ := f.seed(t)
	deep := f.folder(t, "Deep", &fe.ID)
	f.leaf(t, "Deeper", "https://deep.test", &deep.ID)
	keep := f.leaf(t, "Keep", "https://keep.test", nil)

	removed, err := f.marks.DeleteBookmark(context.Background(), user, dev.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, removed)

	all, err := f.repo.ListAll(context.Background(), user)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, keep.ID, all[0].ID)
}

func TestDeleteBookmark_FollowsParentBackRefs(t *testing.T) {
	f := newFixture(t)
	dev := f.folder(t, "Development", nil)
	// an entry that names dev as parent but is not listed by it
	stray := &models.Bookmark{Title: "Stray", URL: "https://stray.test", ParentID: &dev.ID, UserID: user}
	require.NoError(t, f.repo.Create(context.Background(), stray))

	removed, err := f.marks.DeleteBookmark(context.Background(), user, dev.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
}

func TestDeleteBookmark_DetachesPreservingSiblingOrder(t *testing.T) {
	f := newFixture(t)
	dev := f.folder(t, "Development", nil)
	a := f.leaf(t, "A", "https://a.test", &dev.ID)
	b := f.leaf(t, "B", "https://b.test", &dev.ID)
	c := f.leaf(t, "C", "https://c.test", &dev.ID)

	removed, err := f.marks.DeleteBookmark(context.Background(), user, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, []string{a.ID, c.ID}, f.get(t, dev.ID).Children)
	f.assertConsistent(t)
}

func TestDeleteBookmark_UnknownIDChangesNothing(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	_, err := f.marks.DeleteBookmark(context.Background(), user, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.marks.DeleteBookmark(context.Background(), user, "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	all, err := f.repo.ListAll(context.Background(), user)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestRepair_FixesCorruption(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dev, fe, react, _ := f.seed(t)

	// simulate the old shallow delete: fe removed, react left orphaned
	require.NoError(t, f.repo.RemoveChild(ctx, dev.ID, fe.ID, user))
	require.NoError(t, f.repo.Delete(ctx, fe.ID, user))
	// and a dangling reference
	require.NoError(t, f.repo.AppendChild(ctx, dev.ID, "gone", user))

	report, err := f.tree.Check(ctx, user)
	require.NoError(t, err)
	require.False(t, report.Consistent())

	repaired, err := f.tree.Repair(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, len(report.Issues), len(repaired.Issues))
	assert.Equal(t, 2, repaired.Repaired)

	f.assertConsistent(t)
	assert.Nil(t, f.get(t, react.ID).ParentID, "orphan promoted to root")

	again, err := f.tree.Repair(ctx, user)
	require.NoError(t, err)
	assert.Zero(t, again.Repaired)
}
