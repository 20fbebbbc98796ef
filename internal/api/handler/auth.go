package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/quizify/quizify-server/internal/api/respond"
)

type ctxKey int

const userIDKey ctxKey = iota

// RequireUser extracts the authenticated user ID set by the upstream auth
// proxy and rejects requests without one. Authentication itself happens
// upstream; this service only consumes the resolved identity.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(r.Header.Get("X-User-ID"))
		if err != nil || id <= 0 {
			respond.WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Missing or invalid X-User-ID header")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userID returns the authenticated user ID stored by RequireUser.
func userID(r *http.Request) int {
	id, _ := r.Context().Value(userIDKey).(int)
	return id
}
