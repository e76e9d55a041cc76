// Package middleware provides HTTP handler decorators for the API server.
package middleware

import "net/http"

// Use wraps handlerFunc with the given middlewares, applied in the order
// listed so the first middleware is outermost.
func Use(handlerFunc http.HandlerFunc, mw ...func(http.Handler) http.Handler) http.Handler {
	var h http.Handler = handlerFunc

	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}

	return h
}
