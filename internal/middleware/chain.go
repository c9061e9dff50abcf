// Package middleware provides the http.Handler chain composition used
// by internal/server. GuardianBridge forwards client credentials
// verbatim (no authentication of its own) and has no telemetry-blocking
// concern, so only the recover and logging middleware are wired into the
// chains here.
package middleware

import (
	"log/slog"
	"net/http"
)

// Middleware represents a middleware function
type Middleware func(http.Handler) http.Handler

// Chain represents a middleware chain
type Chain struct {
	middlewares []Middleware
}

// New creates a new middleware chain
func New(middlewares ...Middleware) Chain {
	return Chain{middlewares: middlewares}
}

// Then adds more middleware to the chain
func (c Chain) Then(middlewares ...Middleware) Chain {
	return Chain{middlewares: append(c.middlewares, middlewares...)}
}

// Handler applies all middleware in the chain to the given handler
func (c Chain) Handler(handler http.Handler) http.Handler {
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		handler = c.middlewares[i](handler)
	}

	return handler
}

// MiddlewareSet contains all configured middleware for easy composition
type MiddlewareSet struct {
	Recover Middleware
	Logging Middleware
}

// NewMiddlewareSet creates a complete set of middleware with proper dependencies
func NewMiddlewareSet(logger *slog.Logger) MiddlewareSet {
	return MiddlewareSet{
		Recover: NewRecoverMiddleware(logger),
		Logging: NewLoggingMiddleware(logger),
	}
}

// DefaultChain returns the standard middleware chain for proxied requests
func (ms MiddlewareSet) DefaultChain() Chain {
	return New(
		ms.Recover, // contain panics first
		ms.Logging, // log requests second
	)
}

// HealthChain returns the middleware chain for health endpoints
func (ms MiddlewareSet) HealthChain() Chain {
	return New(
		ms.Recover,
		ms.Logging,
	)
}
