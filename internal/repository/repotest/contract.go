// Package repotest holds the behaviour every BookmarkRepository backend
// must share. Backend packages call Run from their own tests.
package repotest

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treemark/internal/domain"
	"treemark/internal/domain/models/bookmarks"
	"treemark/internal/domain/repositories"
)

// Backend is what a store under test provides.
type Backend struct {
	Repo repositories.BookmarkRepository
	Tx   repositories.TransactionManager
	// Rollback reports whether ExecTx undoes writes when fn fails.
	Rollback bool
}

// Run exercises the repository contract. Each subtest uses a fresh owner id
// so a shared database needs no cleanup between runs.
func Run(t *testing.T, newBackend func(t *testing.T) Backend) {
	t.Run("create and fetch", func(t *testing.T) { testCreateAndFetch(t, newBackend(t)) })
	t.Run("children arrays", func(t *testing.T) { testChildren(t, newBackend(t)) })
	t.Run("update patch", func(t *testing.T) { testUpdate(t, newBackend(t)) })
	t.Run("delete", func(t *testing.T) { testDelete(t, newBackend(t)) })
	t.Run("owner scoping", func(t *testing.T) { testOwnerScoping(t, newBackend(t)) })
	t.Run("transaction", func(t *testing.T) { testTransaction(t, newBackend(t)) })
}

func owner() string { return "user-" + uuid.NewString() }

func mustCreate(t *testing.T, repo repositories.BookmarkRepository, b *bookmarks.Bookmark) *bookmarks.Bookmark {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), b))
	require.NotEmpty(t, b.ID)
	return b
}

func testCreateAndFetch(t *testing.T, be Backend) {
	ctx := context.Background()
	user := owner()

	f := mustCreate(t, be.Repo, &bookmarks.Bookmark{Title: "Development", IsFolder: true, UserID: user})
	l := mustCreate(t, be.Repo, &bookmarks.Bookmark{Title: "React", URL: "https://react.dev", ParentID: bookmarks.StringPtr(f.ID), UserID: user})

	got, err := be.Repo.GetByID(ctx, l.ID, user)
	require.NoError(t, err)
	assert.Equal(t, "React", got.Title)
	assert.Equal(t, "https://react.dev", got.URL)
	assert.False(t, got.IsFolder)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, f.ID, *got.ParentID)

	many, err := be.Repo.GetMany(ctx, []string{f.ID, "does-not-exist", l.ID}, user)
	require.NoError(t, err)
	assert.Len(t, many, 2)

	roots, err := be.Repo.ListByParent(ctx, nil, user)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, f.ID, roots[0].ID)

	all, err := be.Repo.ListAll(ctx, user)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, f.ID, all[0].ID)

	_, err = be.Repo.GetByID(ctx, "does-not-exist", user)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testChildren(t *testing.T, be Backend) {
	ctx := context.Background()
	user := owner()

	f := mustCreate(t, be.Repo, &bookmarks.Bookmark{Title: "F", IsFolder: true, UserID: user})
	require.NoError(t, be.Repo.AppendChild(ctx, f.ID, "a", user))
	require.NoError(t, be.Repo.AppendChild(ctx, f.ID, "b", user))
	require.NoError(t, be.Repo.AppendChild(ctx, f.ID, "a", user))

	got, err := be.Repo.GetByID(ctx, f.ID, user)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "a"}, got.Children)

	require.NoError(t, be.Repo.RemoveChild(ctx, f.ID, "a", user))
	got, err = be.Repo.GetByID(ctx, f.ID, user)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, got.Children)

	assert.ErrorIs(t, be.Repo.AppendChild(ctx, "does-not-exist", "a", user), domain.ErrNotFound)
}

func testUpdate(t *testing.T, be Backend) {
	ctx := context.Background()
	user := owner()

	l := mustCreate(t, be.Repo, &bookmarks.Bookmark{Title: "Old", URL: "https://old.test", UserID: user})
	f := mustCreate(t, be.Repo, &bookmarks.Bookmark{Title: "F", IsFolder: true, UserID: user})

	title := "New"
	require.NoError(t, be.Repo.Update(ctx, l.ID, user, &bookmarks.Patch{Title: &title}))
	got, err := be.Repo.GetByID(ctx, l.ID, user)
	require.NoError(t, err)
	assert.Equal(t, "New", got.Title)
	assert.Equal(t, "https://old.test", got.URL, "absent fields are preserved")
	assert.Nil(t, got.ParentID)

	require.NoError(t, be.Repo.Update(ctx, l.ID, user, &bookmarks.Patch{ParentSet: true, ParentID: bookmarks.StringPtr(f.ID)}))
	children, err := be.Repo.ListByParent(ctx, bookmarks.StringPtr(f.ID), user)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, l.ID, children[0].ID)

	require.NoError(t, be.Repo.Update(ctx, l.ID, user, &bookmarks.Patch{ParentSet: true}))
	got, err = be.Repo.GetByID(ctx, l.ID, user)
	require.NoError(t, err)
	assert.Nil(t, got.ParentID)

	err = be.Repo.Update(ctx, "does-not-exist", user, &bookmarks.Patch{Title: &title})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testDelete(t *testing.T, be Backend) {
	ctx := context.Background()
	user := owner()

	a := mustCreate(t, be.Repo, &bookmarks.Bookmark{Title: "A", URL: "https://a.test", UserID: user})
	b := mustCreate(t, be.Repo, &bookmarks.Bookmark{Title: "B", URL: "https://b.test", UserID: user})
	c := mustCreate(t, be.Repo, &bookmarks.Bookmark{Title: "C", URL: "https://c.test", UserID: user})

	n, err := be.Repo.DeleteMany(ctx, []string{a.ID, b.ID, "does-not-exist"}, user)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	require.NoError(t, be.Repo.Delete(ctx, c.ID, user))
	assert.ErrorIs(t, be.Repo.Delete(ctx, c.ID, user), domain.ErrNotFound)

	all, err := be.Repo.ListAll(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func testOwnerScoping(t *testing.T, be Backend) {
	ctx := context.Background()
	alice, bob := owner(), owner()

	a := mustCreate(t, be.Repo, &bookmarks.Bookmark{Title: "A", URL: "https://a.test", UserID: alice})

	_, err := be.Repo.GetByID(ctx, a.ID, bob)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, be.Repo.Delete(ctx, a.ID, bob), domain.ErrNotFound)

	all, err := be.Repo.ListAll(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func testTransaction(t *testing.T, be Backend) {
	ctx := context.Background()
	user := owner()

	var created string
	err := be.Tx.ExecTx(ctx, func(ctx context.Context) error {
		b := &bookmarks.Bookmark{Title: "Committed", URL: "https://c.test", UserID: user}
		if err := be.Repo.Create(ctx, b); err != nil {
			return err
		}
		created = b.ID
		return nil
	})
	require.NoError(t, err)
	_, err = be.Repo.GetByID(ctx, created, user)
	require.NoError(t, err)

	if !be.Rollback {
		return
	}

	boom := errors.New("boom")
	err = be.Tx.ExecTx(ctx, func(ctx context.Context) error {
		if err := be.Repo.Create(ctx, &bookmarks.Bookmark{Title: "Rolled back", URL: "https://r.test", UserID: user}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	all, err := be.Repo.ListAll(ctx, user)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
