// Package middleware provides HTTP middleware for the broker.
package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/switchboard-hq/switchboard/internal/logger"
)

const headerRequestID = "X-Request-ID"

// RequestID is HTTP middleware that extracts X-Request-ID from the request
// header or generates a new one. The ID is stored in the context and set
// on the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = generateID()
		}

		ctx := logger.WithRequestID(r.Context(), id)
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// generateID returns a 32-char hex ID, the same uuid-derived form the task
// board uses for generated task IDs.
func generateID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
