// Package httputil provides HTTP utilities shared by the warden servers.
//
// # Response Helpers
//
// Every error body has the same shape, {"message": "..."}:
//
//	httputil.WriteUnauthorized(w)           // 401 {"message":"Unauthorized"}
//	httputil.WriteForbidden(w)              // 403 {"message":"Forbidden"}
//	httputil.WriteErrorMessage(w, 404, "")  // message defaults to the status text
//	httputil.WriteSuccess(w, data)
//
// # Request Inspection
//
//	token := httputil.BearerToken(r)   // second field of the first Authorization value
//	ip := httputil.ClientIP(r)
//
// # Middleware
//
//	handler := httputil.Chain(
//		httputil.RecoveryMiddleware(logger),
//		httputil.RequestIDMiddleware(logger),
//		httputil.LoggingMiddleware(logger),
//		httputil.CORSMiddleware(settings.Server.AllowOrigins),
//		httputil.TimeoutMiddleware(settings.Server.RequestTimeout),
//	)(router)
//
// Middleware listed first runs outermost.
package httputil
