package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/platinummonkey/warden/pkg/auth"
	"github.com/platinummonkey/warden/pkg/contextkeys"
	"github.com/platinummonkey/warden/pkg/httputil"
	"github.com/platinummonkey/warden/pkg/observability"
)

// TokenVerifier verifies a bearer token and returns the decoded identity.
// *auth.TokenManager satisfies it.
type TokenVerifier interface {
	ValidateToken(ctx context.Context, token string) (*auth.Identity, error)
}

// AuthMiddleware is the authorization gate placed in front of protected
// routes. It is stateless and safe for concurrent use.
type AuthMiddleware struct {
	verifier TokenVerifier
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewAuthMiddleware creates the authorization gate. logger and metrics may be nil.
func NewAuthMiddleware(verifier TokenVerifier, logger *observability.Logger, metrics *observability.Metrics) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		logger:   logger,
		metrics:  metrics,
	}
}

// Handler wraps an HTTP handler with bearer token authorization.
//
// A request without a candidate token gets 401 {"message":"Unauthorized"}; a
// token that fails verification gets 403 {"message":"Forbidden"}. On success
// the decoded identity is attached to the request context and next is called.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token := httputil.BearerToken(r)
		if token == "" {
			m.reject(ctx, w, auth.ErrMissingCredential, 0)
			return
		}

		start := time.Now()
		identity, err := m.verifier.ValidateToken(ctx, token)
		elapsed := time.Since(start)

		// The client is gone; drop the result without writing anything
		if ctx.Err() != nil {
			m.metrics.RecordAuthDecision(observability.AuthOutcomeCancelled, elapsed)
			return
		}

		if err != nil {
			m.reject(ctx, w, err, elapsed)
			return
		}

		m.metrics.RecordAuthDecision(observability.AuthOutcomeAuthorized, elapsed)

		ctx = contextkeys.WithAuth(ctx, identity)
		if sub := identity.Subject(); sub != "" {
			ctx = contextkeys.WithUserID(ctx, sub)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// reject writes the 401 or 403 response matching err. Anything other than a
// missing credential is treated as a verification failure.
func (m *AuthMiddleware) reject(ctx context.Context, w http.ResponseWriter, err error, elapsed time.Duration) {
	if errors.Is(err, auth.ErrMissingCredential) {
		m.metrics.RecordAuthDecision(observability.AuthOutcomeUnauthorized, elapsed)
		m.debug(ctx, err, "request rejected: no bearer token")
		httputil.WriteUnauthorized(w)
		return
	}

	m.metrics.RecordAuthDecision(observability.AuthOutcomeForbidden, elapsed)
	m.debug(ctx, err, "request rejected: bearer token failed verification")
	httputil.WriteForbidden(w)
}

func (m *AuthMiddleware) debug(ctx context.Context, err error, message string) {
	if m.logger == nil {
		return
	}
	logger := m.logger
	if requestID := contextkeys.GetRequestID(ctx); requestID != "" {
		logger = logger.WithField("request_id", requestID)
	}
	logger.WithError(err).Debug(message)
}

// GetIdentity extracts the identity attached by the gate, or nil
func GetIdentity(r *http.Request) *auth.Identity {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return nil
	}
	return identity
}

// RequireClaim creates middleware that only admits identities whose string
// claim key equals value. It must run behind AuthMiddleware.
func RequireClaim(key, value string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := GetIdentity(r)
			if identity == nil {
				httputil.WriteUnauthorized(w)
				return
			}

			got, ok := identity.Claims[key].(string)
			if !ok || got != value {
				httputil.WriteForbidden(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
