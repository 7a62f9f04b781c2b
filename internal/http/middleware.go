package http

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

type contextKey string

const (
	registerIDKey contextKey = "register_id"
	requestIDKey  contextKey = "request_id"
)

// RegisterMiddleware resolves which register (till) the request is
// for. A single-device install never sends the header and gets the
// default.
func RegisterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		registerID := r.Header.Get("X-Register-ID")
		if registerID == "" {
			registerID = "register-1"
		}

		ctx := context.WithValue(r.Context(), registerIDKey, registerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = fmt.Sprintf("req-%d", time.Now().UnixNano())
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func registerIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(registerIDKey).(string); ok {
		return id
	}
	return "register-1"
}
