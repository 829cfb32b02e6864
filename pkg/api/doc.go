// Package api assembles warden's public HTTP surface.
//
// Routes:
//
//	GET /health/live    liveness probe
//	GET /health/ready   readiness probe (redis, mongodb)
//	GET /api/v1/me      claims of the presented bearer token
//
// Everything under /api/v1 sits behind the authorization gate and, when
// configured, the shared rate limiter. Every request passes through panic
// recovery, request ID assignment, access logging, CORS and the request
// timeout, in that order, and is traced when a service name is set.
package api
