package auth

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"github.com/platinummonkey/warden/pkg/contextkeys"
)

func TestIdentity_Subject(t *testing.T) {
	tests := []struct {
		name     string
		identity *Identity
		want     string
	}{
		{name: "string subject", identity: &Identity{Claims: jwt.MapClaims{"sub": "u1"}}, want: "u1"},
		{name: "numeric subject", identity: &Identity{Claims: jwt.MapClaims{"sub": float64(7)}}, want: ""},
		{name: "no subject", identity: &Identity{Claims: jwt.MapClaims{}}, want: ""},
		{name: "nil identity", identity: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.identity.Subject())
		})
	}
}

func TestIdentity_Claim(t *testing.T) {
	identity := &Identity{Claims: jwt.MapClaims{"role": "admin"}}

	v, ok := identity.Claim("role")
	assert.True(t, ok)
	assert.Equal(t, "admin", v)

	_, ok = identity.Claim("missing")
	assert.False(t, ok)
}

func TestIdentityFromContext(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)

	identity := &Identity{Claims: jwt.MapClaims{"sub": "u1"}}
	ctx := contextkeys.WithAuth(context.Background(), identity)

	got, ok := IdentityFromContext(ctx)
	assert.True(t, ok)
	assert.Same(t, identity, got)

	_, ok = IdentityFromContext(contextkeys.WithAuth(context.Background(), "not an identity"))
	assert.False(t, ok)
}
