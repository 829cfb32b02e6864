package auth

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/platinummonkey/warden/pkg/contextkeys"
)

var (
	// ErrMissingCredential means the request carried no bearer token
	ErrMissingCredential = errors.New("missing bearer credential")
	// ErrInvalidCredential means a bearer token was present but failed verification
	ErrInvalidCredential = errors.New("invalid bearer credential")
)

// Identity is the decoded claims payload of a verified token. It lives for
// the duration of a single request.
type Identity struct {
	Claims jwt.MapClaims `json:"claims"`
}

// Subject returns the "sub" claim, or "" when absent or not a string
func (i *Identity) Subject() string {
	if i == nil {
		return ""
	}
	sub, _ := i.Claims["sub"].(string)
	return sub
}

// Claim returns a single claim value
func (i *Identity) Claim(key string) (interface{}, bool) {
	if i == nil {
		return nil, false
	}
	v, ok := i.Claims[key]
	return v, ok
}

// IdentityFromContext retrieves the identity attached by the authorization gate
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(contextkeys.AuthKey).(*Identity)
	return identity, ok && identity != nil
}
