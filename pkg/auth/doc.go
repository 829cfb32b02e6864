// Package auth issues and verifies the bearer tokens accepted by warden.
//
// Tokens are HMAC-signed JWTs carrying an arbitrary claims payload. Nothing is
// stored server side: a token is valid when its signature matches the shared
// secret and its time-based claims ("exp", "nbf", "iat") hold against the
// manager's clock. A token without "exp" never expires.
//
// # Issuing
//
//	tm, err := auth.NewTokenManager(settings.Auth.Secret, settings.Auth.Expiration, settings.Auth.Algorithm)
//	token, err := tm.CreateToken(map[string]interface{}{"sub": "u1"})
//
// # Verifying
//
//	identity, err := tm.ValidateToken(ctx, token)
//	if errors.Is(err, auth.ErrInvalidCredential) {
//		// 403
//	}
//
// Only the configured algorithm is accepted, so a token signed with "none" or
// with another HMAC size is rejected even when the secret matches.
//
// The authorization gate in pkg/middleware attaches the returned *Identity to
// the request context; handlers read it back with IdentityFromContext.
package auth
