package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"treemark/internal/domain"
	"treemark/internal/domain/models/bookmarks"
	"treemark/internal/domain/repositories"
)

const bookmarkColumns = "id, user_id, title, url, is_folder, children, parent_id, created_at, updated_at"

// PostgresBookmarkRepository implements the BookmarkRepository interface
type PostgresBookmarkRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewBookmarkRepository creates a new bookmark repository
func NewBookmarkRepository(config *RepositoryConfig) repositories.BookmarkRepository {
	return &PostgresBookmarkRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create inserts a bookmark, generating a UUID when b has no id.
func (r *PostgresBookmarkRepository) Create(ctx context.Context, b *bookmarks.Bookmark) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = b.CreatedAt
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, r.tables.Bookmarks, bookmarkColumns)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		b.ID,
		b.UserID,
		b.Title,
		b.URL,
		b.IsFolder,
		nonNil(b.Children),
		b.ParentID,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		if isPgDuplicateError(err) {
			return &domain.ConflictError{Message: fmt.Sprintf("bookmark %s already exists", b.ID), ResourceID: b.ID}
		}
		return fmt.Errorf("create bookmark: %w", err)
	}

	return nil
}

// GetByID retrieves a bookmark by ID
func (r *PostgresBookmarkRepository) GetByID(ctx context.Context, id, userID string) (*bookmarks.Bookmark, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1 AND user_id = $2
	`, bookmarkColumns, r.tables.Bookmarks)

	executor := GetExecutor(ctx, r.pool)
	b, err := scanBookmark(executor.QueryRow(ctx, query, id, userID))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("bookmark %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get bookmark: %w", err)
	}

	return b, nil
}

// GetMany batch-fetches bookmarks with id = ANY($1).
func (r *PostgresBookmarkRepository) GetMany(ctx context.Context, ids []string, userID string) ([]bookmarks.Bookmark, error) {
	if len(ids) == 0 {
		return []bookmarks.Bookmark{}, nil
	}
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = ANY($1) AND user_id = $2
		ORDER BY seq
	`, bookmarkColumns, r.tables.Bookmarks)

	return r.list(ctx, query, ids, userID)
}

// ListAll returns the user's whole collection in insertion order.
func (r *PostgresBookmarkRepository) ListAll(ctx context.Context, userID string) ([]bookmarks.Bookmark, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = $1
		ORDER BY seq
	`, bookmarkColumns, r.tables.Bookmarks)

	return r.list(ctx, query, userID)
}

// ListByParent returns records whose parent_id equals parentID (NULL for roots).
func (r *PostgresBookmarkRepository) ListByParent(ctx context.Context, parentID *string, userID string) ([]bookmarks.Bookmark, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = $1 AND parent_id IS NOT DISTINCT FROM $2
		ORDER BY seq
	`, bookmarkColumns, r.tables.Bookmarks)

	return r.list(ctx, query, userID, parentID)
}

func (r *PostgresBookmarkRepository) list(ctx context.Context, query string, args ...any) ([]bookmarks.Bookmark, error) {
	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookmarks: %w", err)
	}
	defer rows.Close()

	out := make([]bookmarks.Bookmark, 0)
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookmarks: %w", err)
	}

	return out, nil
}

// Update applies the patch's set fields in one statement.
func (r *PostgresBookmarkRepository) Update(ctx context.Context, id, userID string, patch *bookmarks.Patch) error {
	updatedAt := patch.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	sets := []string{"updated_at = $1"}
	args := []any{updatedAt}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.URL != nil {
		add("url", *patch.URL)
	}
	if patch.Children != nil {
		add("children", patch.Children)
	}
	if patch.ParentSet {
		add("parent_id", patch.ParentID)
	}

	args = append(args, id, userID)
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s
		WHERE id = $%d AND user_id = $%d
	`, r.tables.Bookmarks, strings.Join(sets, ", "), len(args)-1, len(args))

	return r.execOne(ctx, id, query, args...)
}

// AppendChild pushes childID onto the folder's children array.
func (r *PostgresBookmarkRepository) AppendChild(ctx context.Context, folderID, childID, userID string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET children = array_append(children, $1), updated_at = $2
		WHERE id = $3 AND user_id = $4
	`, r.tables.Bookmarks)

	return r.execOne(ctx, folderID, query, childID, time.Now().UTC(), folderID, userID)
}

// RemoveChild removes every occurrence of childID from the folder's children.
func (r *PostgresBookmarkRepository) RemoveChild(ctx context.Context, folderID, childID, userID string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET children = array_remove(children, $1), updated_at = $2
		WHERE id = $3 AND user_id = $4
	`, r.tables.Bookmarks)

	return r.execOne(ctx, folderID, query, childID, time.Now().UTC(), folderID, userID)
}

// Delete removes a single bookmark.
func (r *PostgresBookmarkRepository) Delete(ctx context.Context, id, userID string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1 AND user_id = $2
	`, r.tables.Bookmarks)

	return r.execOne(ctx, id, query, id, userID)
}

// DeleteMany removes the listed bookmarks and reports how many existed.
func (r *PostgresBookmarkRepository) DeleteMany(ctx context.Context, ids []string, userID string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = ANY($1) AND user_id = $2
	`, r.tables.Bookmarks)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, ids, userID)
	if err != nil {
		return 0, fmt.Errorf("delete bookmarks: %w", err)
	}
	return result.RowsAffected(), nil
}

// execOne runs a single-row statement and maps zero affected rows to not found.
func (r *PostgresBookmarkRepository) execOne(ctx context.Context, id, query string, args ...any) error {
	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("write bookmark %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("bookmark %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func scanBookmark(row pgx.Row) (*bookmarks.Bookmark, error) {
	var b bookmarks.Bookmark
	err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.Title,
		&b.URL,
		&b.IsFolder,
		&b.Children,
		&b.ParentID,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(b.Children) == 0 {
		b.Children = nil
	}
	return &b, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
