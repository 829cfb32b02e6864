// Package middleware provides the HTTP middleware that guards warden's
// protected routes.
//
// # Authorization Gate
//
// AuthMiddleware reads the first Authorization header value, takes its second
// whitespace separated field as the bearer token and verifies it:
//
//	gate := middleware.NewAuthMiddleware(tokenManager, logger, metrics)
//	router.Use(gate.Handler)
//
// No token yields 401 {"message":"Unauthorized"}; a token that fails
// verification yields 403 {"message":"Forbidden"}. A verified identity is
// attached to the request context and read back with GetIdentity. If the
// client goes away while the token is being verified, nothing is written.
//
// RequireClaim narrows a route further to identities with a given claim.
//
// # Rate Limiting
//
// RateLimitMiddleware shares a fixed window budget across instances through
// Redis, keyed by token subject when the gate ran first and by client IP
// otherwise:
//
//	limiter := middleware.NewRateLimiter(redisClient, middleware.RateLimitConfig{
//		RequestsPerWindow: settings.RateLimit.Requests,
//		WindowDuration:    settings.RateLimit.Window,
//	}, "")
//	router.Use(middleware.NewRateLimitMiddleware(limiter, logger).Handler)
//
// Redis errors let requests through.
package middleware
