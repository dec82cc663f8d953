package handler

import (
	"log/slog"
	"net/http"

	models "treemark/internal/domain/models/bookmarks"
	bookmarkSvc "treemark/internal/domain/services/bookmarks"
	"treemark/internal/httputil"
)

// BookmarkHandler serves the bookmark tree REST API.
type BookmarkHandler struct {
	treeService     bookmarkSvc.TreeService
	bookmarkService bookmarkSvc.BookmarkService
	logger          *slog.Logger
}

// NewBookmarkHandler creates a new bookmark handler
func NewBookmarkHandler(
	treeService bookmarkSvc.TreeService,
	bookmarkService bookmarkSvc.BookmarkService,
	logger *slog.Logger,
) *BookmarkHandler {
	return &BookmarkHandler{
		treeService:     treeService,
		bookmarkService: bookmarkService,
		logger:          logger,
	}
}

// RegisterRoutes mounts the API on mux.
func (h *BookmarkHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api", h.GetTree)
	mux.HandleFunc("GET /api/{id}", h.GetBookmark)
	mux.HandleFunc("POST /api", h.CreateBookmark)
	mux.HandleFunc("PUT /api", h.UpdateBookmark)
	mux.HandleFunc("DELETE /api", h.DeleteBookmark)
	mux.HandleFunc("POST /api/move", h.MoveBookmark)
	mux.HandleFunc("GET /api/consistency", h.CheckConsistency)
	mux.HandleFunc("POST /api/consistency/repair", h.RepairConsistency)
}

type treeResponse struct {
	Bookmarks []models.Node `json:"bookmarks"`
}

type bookmarkResponse struct {
	Message  string           `json:"message"`
	Bookmark *models.Bookmark `json:"bookmark"`
}

// updateBookmarkDTO is the wire form of a partial update.
type updateBookmarkDTO struct {
	ID       string                  `json:"id"`
	Title    *string                 `json:"title"`
	URL      *string                 `json:"url"`
	ParentID httputil.OptionalString `json:"parentId"`
	Children []string                `json:"children"`
}

type deleteResponse struct {
	Message string `json:"message"`
	Deleted int    `json:"deleted"`
}

// GetTree returns the owner's nested forest
// GET /api?q=<query>
func (h *BookmarkHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var (
		forest []models.Node
		err    error
	)
	if q := httputil.QueryParam(r, "q"); q != "" {
		forest, err = h.treeService.Search(r.Context(), userID, q)
	} else {
		forest, err = h.treeService.GetTree(r.Context(), userID)
	}
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	if forest == nil {
		forest = []models.Node{}
	}

	httputil.RespondJSON(w, http.StatusOK, treeResponse{Bookmarks: forest})
}

// GetBookmark returns one flat record
// GET /api/{id}
func (h *BookmarkHandler) GetBookmark(w http.ResponseWriter, r *http.Request) {
	bookmark, err := h.bookmarkService.GetBookmark(r.Context(), httputil.GetUserID(r), r.PathValue("id"))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, bookmark)
}

// CreateBookmark inserts a bookmark or folder
// POST /api
func (h *BookmarkHandler) CreateBookmark(w http.ResponseWriter, r *http.Request) {
	var req bookmarkSvc.CreateBookmarkRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	req.UserID = httputil.GetUserID(r)

	bookmark, err := h.bookmarkService.CreateBookmark(r.Context(), &req)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, bookmarkResponse{
		Message:  "Bookmark created",
		Bookmark: bookmark,
	})
}

// UpdateBookmark applies a partial update
// PUT /api
func (h *BookmarkHandler) UpdateBookmark(w http.ResponseWriter, r *http.Request) {
	var dto updateBookmarkDTO
	if err := httputil.ParseJSON(w, r, &dto); err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	req := bookmarkSvc.UpdateBookmarkRequest{
		UserID:   httputil.GetUserID(r),
		ID:       dto.ID,
		Title:    dto.Title,
		URL:      dto.URL,
		ParentID: bookmarkSvc.OptionalParent{Present: dto.ParentID.Present, Value: dto.ParentID.Value},
		Children: dto.Children,
	}

	bookmark, err := h.bookmarkService.UpdateBookmark(r.Context(), &req)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, bookmarkResponse{
		Message:  "Bookmark updated",
		Bookmark: bookmark,
	})
}

// DeleteBookmark removes an entry and its subtree
// DELETE /api?id=<id>
func (h *BookmarkHandler) DeleteBookmark(w http.ResponseWriter, r *http.Request) {
	id := httputil.QueryParam(r, "id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Bookmark ID is required")
		return
	}

	deleted, err := h.bookmarkService.DeleteBookmark(r.Context(), httputil.GetUserID(r), id)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, deleteResponse{
		Message: "Bookmark deleted",
		Deleted: deleted,
	})
}

// MoveBookmark relinks an entry under another folder or the root
// POST /api/move
func (h *BookmarkHandler) MoveBookmark(w http.ResponseWriter, r *http.Request) {
	var req bookmarkSvc.MoveBookmarkRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	req.UserID = httputil.GetUserID(r)

	bookmark, err := h.bookmarkService.MoveBookmark(r.Context(), &req)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, bookmarkResponse{
		Message:  "Bookmark moved",
		Bookmark: bookmark,
	})
}

// CheckConsistency reports parent/child disagreements
// GET /api/consistency
func (h *BookmarkHandler) CheckConsistency(w http.ResponseWriter, r *http.Request) {
	report, err := h.treeService.Check(r.Context(), httputil.GetUserID(r))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, report)
}

// RepairConsistency fixes parent/child disagreements
// POST /api/consistency/repair
func (h *BookmarkHandler) RepairConsistency(w http.ResponseWriter, r *http.Request) {
	report, err := h.treeService.Repair(r.Context(), httputil.GetUserID(r))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, report)
}
