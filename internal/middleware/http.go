// Package middleware holds the cross-cutting HTTP concerns: request ids,
// CORS for the reader UI and no-store caching headers.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// unexported, collision-proof context key
type requestIDContextKeyType struct{}

var requestIDKey = requestIDContextKeyType{}

// RequestIDFromContext returns the id assigned by RequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// RequestID tags every request with an id, reusing a well-formed one sent
// by the client so logs can be correlated across hops.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CORS allows the reader UI at origin to call the API with credentials.
// An empty origin disables CORS headers entirely.
func CORS(origin string) func(http.Handler) http.Handler {
	methods := strings.Join([]string{
		http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions,
	}, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin == "" || r.Header.Get("Origin") != origin {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)
			h.Set("Access-Control-Expose-Headers", RequestIDHeader)
			h.Add("Vary", "Origin")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NoStore forbids caching of any response. Session content must not
// outlive the session in browser or proxy caches.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
