package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// reqIDKey is the context key under which the request id is stored.
type reqIDKey struct{}

// RequestIDHeader is the response header carrying the generated request id.
const RequestIDHeader = "X-Request-Id"

// NewReqID creates a middleware that assigns each request a UUID, used to
// correlate log lines for that request. The id is echoed back on the
// response and attached to the request context.
func NewReqID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := uuid.NewString()

			w.Header().Set(RequestIDHeader, id)

			ctx := context.WithValue(r.Context(), reqIDKey{}, id)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ReqID returns the request id stored in ctx, or "" if none was set.
func ReqID(ctx context.Context) string {
	id, _ := ctx.Value(reqIDKey{}).(string)
	return id
}
