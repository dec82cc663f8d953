package httputil

import (
	"context"
	"net/http"

	"treemark/internal/domain/models"
)

type contextKey string

const userIDKey contextKey = "userID"

// WithUserID scopes the request to the bookmark owner userID.
func WithUserID(r *http.Request, userID string) *http.Request {
	ctx := context.WithValue(r.Context(), userIDKey, userID)
	return r.WithContext(ctx)
}

// GetUserID retrieves userID from context, returns empty string if not found
func GetUserID(r *http.Request) string {
	return UserIDFromContext(r.Context())
}

// UserIDFromContext is GetUserID for code that only holds a context.
func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}

// WithClaims scopes the request to the subject of verified JWT claims.
func WithClaims(r *http.Request, claims *models.AuthClaims) *http.Request {
	return WithUserID(r, claims.GetUserID())
}
