// Package middleware provides HTTP middleware for bearer authentication and
// per-client admission control.
//
// AuthMiddleware resolves "Authorization: Bearer <token>" into the stored
// user and attaches an *auth.AuthContext to the request:
//
//	authMW := middleware.NewAuthMiddleware(authService, metrics)
//	router.Handle("/api/auth/me", authMW.Handler(meHandler))
//
// HandlerWhen authenticates only the requests a predicate selects, leaving
// the rest anonymous.
//
// RateLimitMiddleware admits requests per client key (see ClientKey) through
// a ratelimit.Limiter and answers 429 with Retry-After once the window's
// threshold is reached:
//
//	rl := middleware.NewRateLimitMiddleware(limiter, metrics)
//	router.Handle("/api/auth/register", rl.Handler(registerHandler))
package middleware
