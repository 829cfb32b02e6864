package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock shared by issuing and validating
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestManager(t *testing.T, secret string, clock *fakeClock) *TokenManager {
	t.Helper()
	tm, err := NewTokenManager(secret, time.Hour, "HS256", WithClock(clock.Now))
	require.NoError(t, err)
	return tm
}

func signWith(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestNewTokenManager(t *testing.T) {
	tests := []struct {
		name      string
		secret    string
		algorithm string
		wantAlg   string
		wantErr   bool
	}{
		{name: "default algorithm", secret: "s1", algorithm: "", wantAlg: "HS256"},
		{name: "HS384", secret: "s1", algorithm: "HS384", wantAlg: "HS384"},
		{name: "HS512", secret: "s1", algorithm: "HS512", wantAlg: "HS512"},
		{name: "empty secret", secret: "", algorithm: "HS256", wantErr: true},
		{name: "asymmetric algorithm", secret: "s1", algorithm: "RS256", wantErr: true},
		{name: "none", secret: "s1", algorithm: "none", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm, err := NewTokenManager(tt.secret, time.Hour, tt.algorithm)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, tm)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAlg, tm.Algorithm())
		})
	}
}

func TestTokenManager_CreateToken(t *testing.T) {
	clock := newFakeClock()
	tm := newTestManager(t, "s1", clock)

	t.Run("stamps iat and exp", func(t *testing.T) {
		token, err := tm.CreateToken(map[string]interface{}{"sub": "u1"})
		require.NoError(t, err)
		assert.Len(t, strings.Split(token, "."), 3)

		identity, err := tm.ValidateToken(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "u1", identity.Subject())
		assert.Equal(t, float64(clock.Now().Unix()), identity.Claims["iat"])
		assert.Equal(t, float64(clock.Now().Add(time.Hour).Unix()), identity.Claims["exp"])
	})

	t.Run("keeps caller expiration", func(t *testing.T) {
		exp := clock.Now().Add(5 * time.Minute).Unix()
		token, err := tm.CreateToken(map[string]interface{}{"sub": "u1", "exp": exp})
		require.NoError(t, err)

		identity, err := tm.ValidateToken(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, float64(exp), identity.Claims["exp"])
	})

	t.Run("does not mutate input", func(t *testing.T) {
		claims := map[string]interface{}{"sub": "u1"}
		_, err := tm.CreateToken(claims)
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{"sub": "u1"}, claims)
	})
}

func TestTokenManager_ValidateToken_DecodedClaimsMatchSigned(t *testing.T) {
	clock := newFakeClock()
	tm := newTestManager(t, "s1", clock)

	claims := jwt.MapClaims{
		"sub":   "u1",
		"role":  "admin",
		"teams": []interface{}{"core", "infra"},
		"exp":   float64(clock.Now().Add(time.Hour).Unix()),
	}
	token := signWith(t, jwt.SigningMethodHS256, []byte("s1"), claims)

	identity, err := tm.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, claims, identity.Claims)
}

func TestTokenManager_ValidateToken_Rejections(t *testing.T) {
	clock := newFakeClock()
	tm := newTestManager(t, "s1", clock)
	future := float64(clock.Now().Add(time.Hour).Unix())

	valid := signWith(t, jwt.SigningMethodHS256, []byte("s1"), jwt.MapClaims{"sub": "u1", "exp": future})
	parts := strings.Split(valid, ".")

	noneToken := signWith(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.MapClaims{"sub": "u1", "exp": future})

	tests := []struct {
		name  string
		token string
	}{
		{
			name:  "different secret",
			token: signWith(t, jwt.SigningMethodHS256, []byte("s2"), jwt.MapClaims{"sub": "u1", "exp": future}),
		},
		{
			name:  "expired",
			token: signWith(t, jwt.SigningMethodHS256, []byte("s1"), jwt.MapClaims{"sub": "u1", "exp": float64(clock.Now().Add(-time.Minute).Unix())}),
		},
		{
			name:  "not yet valid",
			token: signWith(t, jwt.SigningMethodHS256, []byte("s1"), jwt.MapClaims{"sub": "u1", "nbf": future}),
		},
		{
			name:  "issued in the future",
			token: signWith(t, jwt.SigningMethodHS256, []byte("s1"), jwt.MapClaims{"sub": "u1", "iat": future}),
		},
		{
			name:  "different HMAC algorithm",
			token: signWith(t, jwt.SigningMethodHS512, []byte("s1"), jwt.MapClaims{"sub": "u1", "exp": future}),
		},
		{
			name:  "unsigned",
			token: noneToken,
		},
		{
			name:  "tampered payload",
			token: parts[0] + "." + signWithPayloadOnly(t, jwt.MapClaims{"sub": "root", "exp": future}) + "." + parts[2],
		},
		{
			name:  "garbage",
			token: "not-a-token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity, err := tm.ValidateToken(context.Background(), tt.token)
			assert.Nil(t, identity)
			assert.ErrorIs(t, err, ErrInvalidCredential)
		})
	}
}

// signWithPayloadOnly returns the encoded claims segment of a token signed
// with an unrelated key
func signWithPayloadOnly(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	return strings.Split(signWith(t, jwt.SigningMethodHS256, []byte("other"), claims), ".")[1]
}

func TestTokenManager_ValidateToken_WithoutExpiration(t *testing.T) {
	tm := newTestManager(t, "s1", newFakeClock())
	token := signWith(t, jwt.SigningMethodHS256, []byte("s1"), jwt.MapClaims{"sub": "u1"})

	identity, err := tm.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u1", identity.Subject())
}

func TestTokenManager_ValidateToken_Empty(t *testing.T) {
	tm := newTestManager(t, "s1", newFakeClock())

	_, err := tm.ValidateToken(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.False(t, errors.Is(err, ErrInvalidCredential))
}

func TestTokenManager_ValidateToken_CancelledContext(t *testing.T) {
	tm := newTestManager(t, "s1", newFakeClock())
	token, err := tm.CreateToken(map[string]interface{}{"sub": "u1"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = tm.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTokenManager_ExpiresAfterLifetime(t *testing.T) {
	clock := newFakeClock()
	tm := newTestManager(t, "s1", clock)

	token, err := tm.CreateToken(map[string]interface{}{"sub": "u1"})
	require.NoError(t, err)

	_, err = tm.ValidateToken(context.Background(), token)
	require.NoError(t, err)

	clock.Advance(time.Hour + time.Second)

	_, err = tm.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidCredential)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}
