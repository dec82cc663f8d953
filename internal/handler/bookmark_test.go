package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	models "treemark/internal/domain/models/bookmarks"
	"treemark/internal/handler"
	"treemark/internal/httputil"
	"treemark/internal/repository/memory"
	service "treemark/internal/service/bookmarks"
)

const testUser = "user-1"

func newServer(t *testing.T) http.Handler {
	t.Helper()
	store := memory.NewStore()
	repo := memory.NewBookmarkRepository(store)
	tx := memory.NewTransactionManager(store)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := handler.NewBookmarkHandler(
		service.NewTreeService(repo, tx, nil, logger),
		service.NewBookmarkService(repo, tx, nil, logger),
		logger,
	)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handler.Health)
	h.RegisterRoutes(mux)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, httputil.WithUserID(r, testUser))
	})
}

func do(t *testing.T, srv http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

type created struct {
	Message  string          `json:"message"`
	Bookmark models.Bookmark `json:"bookmark"`
}

func create(t *testing.T, srv http.Handler, body map[string]any) models.Bookmark {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/api", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp created
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Bookmark created", resp.Message)
	return resp.Bookmark
}

func getTree(t *testing.T, srv http.Handler, target string) models.Forest {
	t.Helper()
	rec := do(t, srv, http.MethodGet, target, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Bookmarks models.Forest `json:"bookmarks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Bookmarks
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	msg, _ := body["error"].(string)
	return msg
}

func TestHealth(t *testing.T) {
	rec := do(t, newServer(t), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGetTree_Empty(t *testing.T) {
	rec := do(t, newServer(t), http.MethodGet, "/api", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"bookmarks":[]}`, rec.Body.String())
}

func TestCreateAndRead(t *testing.T) {
	srv := newServer(t)

	dev := create(t, srv, map[string]any{"title": "Development", "isFolder": true})
	fe := create(t, srv, map[string]any{"title": "Frontend", "isFolder": true, "parentId": dev.ID})
	react := create(t, srv, map[string]any{"title": "React Documentation", "url": "https://react.dev", "parentId": fe.ID})

	assert.NotEmpty(t, react.ID)
	assert.Equal(t, testUser, react.UserID)
	require.NotNil(t, react.ParentID)
	assert.Equal(t, fe.ID, *react.ParentID)

	forest := getTree(t, srv, "/api")
	require.Len(t, forest, 1)
	root := forest[0].(*models.Folder)
	assert.Equal(t, "Development", root.Title)
	require.Len(t, root.Children, 1)
	inner := root.Children[0].(*models.Folder)
	require.Len(t, inner.Children, 1)
	leaf := inner.Children[0].(*models.Leaf)
	assert.Equal(t, "https://react.dev", leaf.URL)
}

func TestGetBookmark(t *testing.T) {
	srv := newServer(t)
	dev := create(t, srv, map[string]any{"title": "Development", "isFolder": true})
	react := create(t, srv, map[string]any{"title": "React", "url": "https://react.dev", "parentId": dev.ID})

	rec := do(t, srv, http.MethodGet, "/api/"+react.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got models.Bookmark
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, react.ID, got.ID)
	assert.Equal(t, "https://react.dev", got.URL)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, dev.ID, *got.ParentID)

	rec = do(t, srv, http.MethodGet, "/api/"+dev.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []string{react.ID}, got.Children)

	rec = do(t, srv, http.MethodGet, "/api/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// literal routes still win over the id pattern
	rec = do(t, srv, http.MethodGet, "/api/consistency", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMove_RejectsRootPosition(t *testing.T) {
	srv := newServer(t)
	a := create(t, srv, map[string]any{"title": "A", "isFolder": true})
	x := create(t, srv, map[string]any{"title": "X", "url": "https://x.test", "parentId": a.ID})

	rec := do(t, srv, http.MethodPost, "/api/move", map[string]any{"id": x.ID, "parentId": nil, "position": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorMessage(t, rec), "position")
}

func TestCreate_Errors(t *testing.T) {
	srv := newServer(t)
	leaf := create(t, srv, map[string]any{"title": "Go", "url": "https://go.dev"})

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"missing title", map[string]any{"url": "https://x.test"}, http.StatusBadRequest},
		{"leaf without url", map[string]any{"title": "X"}, http.StatusBadRequest},
		{"unknown parent", map[string]any{"title": "X", "url": "https://x.test", "parentId": "missing"}, http.StatusNotFound},
		{"leaf parent", map[string]any{"title": "X", "url": "https://x.test", "parentId": leaf.ID}, http.StatusBadRequest},
		{"not json", "{", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
			assert.NotEmpty(t, errorMessage(t, rec))
		})
	}
}

func TestUpdate(t *testing.T) {
	srv := newServer(t)
	dev := create(t, srv, map[string]any{"title": "Development", "isFolder": true})
	react := create(t, srv, map[string]any{"title": "React", "url": "https://react.dev", "parentId": dev.ID})

	rec := do(t, srv, http.MethodPut, "/api", map[string]any{"id": react.ID, "title": "React Docs"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp created
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Bookmark updated", resp.Message)
	assert.Equal(t, "React Docs", resp.Bookmark.Title)
	assert.Equal(t, "https://react.dev", resp.Bookmark.URL)

	rec = do(t, srv, http.MethodPut, "/api", map[string]any{"id": "missing", "title": "X"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// parentId null moves to the root
	rec = do(t, srv, http.MethodPut, "/api", map[string]any{"id": react.ID, "parentId": nil})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, getTree(t, srv, "/api"), 2)
}

func TestDelete(t *testing.T) {
	srv := newServer(t)
	dev := create(t, srv, map[string]any{"title": "Development", "isFolder": true})
	fe := create(t, srv, map[string]any{"title": "Frontend", "isFolder": true, "parentId": dev.ID})
	create(t, srv, map[string]any{"title": "React", "url": "https://react.dev", "parentId": fe.ID})
	keep := create(t, srv, map[string]any{"title": "Keep", "url": "https://keep.test"})

	rec := do(t, srv, http.MethodDelete, "/api", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Bookmark ID is required", errorMessage(t, rec))

	rec = do(t, srv, http.MethodDelete, "/api?id=missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodDelete, "/api?id="+dev.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"message":"Bookmark deleted","deleted":3}`, rec.Body.String())

	forest := getTree(t, srv, "/api")
	require.Len(t, forest, 1)
	assert.Equal(t, keep.ID, forest[0].NodeID())

	rec = do(t, srv, http.MethodGet, "/api/consistency", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var report models.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.True(t, report.Consistent())
	assert.Equal(t, 1, report.Checked)
}

func TestMove(t *testing.T) {
	srv := newServer(t)
	a := create(t, srv, map[string]any{"title": "A", "isFolder": true})
	b := create(t, srv, map[string]any{"title": "B", "isFolder": true, "parentId": a.ID})
	x := create(t, srv, map[string]any{"title": "X", "url": "https://x.test", "parentId": a.ID})

	rec := do(t, srv, http.MethodPost, "/api/move", map[string]any{"id": x.ID, "parentId": b.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodPost, "/api/move", map[string]any{"id": a.ID, "parentId": b.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	forest := getTree(t, srv, "/api")
	require.Len(t, forest, 1)
	fa := forest[0].(*models.Folder)
	require.Len(t, fa.Children, 1)
	fb := fa.Children[0].(*models.Folder)
	require.Len(t, fb.Children, 1)
	assert.Equal(t, x.ID, fb.Children[0].NodeID())
}

func TestSearch(t *testing.T) {
	srv := newServer(t)
	dev := create(t, srv, map[string]any{"title": "Development", "isFolder": true})
	create(t, srv, map[string]any{"title": "React", "url": "https://react.dev", "parentId": dev.ID})
	create(t, srv, map[string]any{"title": "Go", "url": "https://go.dev", "parentId": dev.ID})

	forest := getTree(t, srv, "/api?q=react")
	require.Len(t, forest, 1)
	assert.Equal(t, 2, models.Count(forest))
}

func TestRepair(t *testing.T) {
	srv := newServer(t)
	create(t, srv, map[string]any{"title": "Development", "isFolder": true})

	rec := do(t, srv, http.MethodPost, "/api/consistency/repair", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var report models.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.True(t, report.Consistent())
	assert.Zero(t, report.Repaired)
}
