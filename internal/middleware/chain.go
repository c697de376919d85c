package middleware

import "net/http"

// Chain wraps h so the middlewares run in the order given, first one
// outermost:
//
//	handler := Chain(mux,
//	    RequestLogging, // runs first
//	    NonceMiddleware,
//	    metrics.Monitor, // runs last, sees the matched pattern
//	)
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
