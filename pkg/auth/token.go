package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAlgorithm is used when no signing algorithm is configured
const DefaultAlgorithm = "HS256"

var signingMethods = map[string]*jwt.SigningMethodHMAC{
	"HS256": jwt.SigningMethodHS256,
	"HS384": jwt.SigningMethodHS384,
	"HS512": jwt.SigningMethodHS512,
}

// TokenManager signs and verifies HMAC bearer tokens with a shared secret.
// It is read-only after construction and safe for concurrent use.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	method *jwt.SigningMethodHMAC
	now    func() time.Time
}

// Option configures a TokenManager
type Option func(*TokenManager)

// WithClock overrides the clock used for issuing and validating tokens
func WithClock(now func() time.Time) Option {
	return func(tm *TokenManager) {
		tm.now = now
	}
}

// NewTokenManager creates a token manager. An empty algorithm selects HS256.
func NewTokenManager(secret string, ttl time.Duration, algorithm string, opts ...Option) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("signing secret is required")
	}
	if algorithm == "" {
		algorithm = DefaultAlgorithm
	}
	method, ok := signingMethods[algorithm]
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}

	tm := &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		method: method,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm, nil
}

// Algorithm returns the name of the signing algorithm
func (tm *TokenManager) Algorithm() string {
	return tm.method.Alg()
}

// CreateToken signs claims. "iat" is stamped with the current time and "exp"
// with now plus the configured lifetime, unless the caller already set them.
func (tm *TokenManager) CreateToken(claims map[string]interface{}) (string, error) {
	now := tm.now()

	mapClaims := make(jwt.MapClaims, len(claims)+2)
	for k, v := range claims {
		mapClaims[k] = v
	}
	if _, ok := mapClaims["iat"]; !ok {
		mapClaims["iat"] = now.Unix()
	}
	if _, ok := mapClaims["exp"]; !ok && tm.ttl > 0 {
		mapClaims["exp"] = now.Add(tm.ttl).Unix()
	}

	signed, err := jwt.NewWithClaims(tm.method, mapClaims).SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies the signature and the time-based claims of token and
// returns the decoded identity. Every failure wraps ErrInvalidCredential; an
// empty token yields ErrMissingCredential.
func (tm *TokenManager) ValidateToken(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrMissingCredential
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, tm.keyFunc,
		jwt.WithValidMethods([]string{tm.method.Alg()}),
		jwt.WithTimeFunc(tm.now),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidCredential
	}

	return &Identity{Claims: claims}, nil
}

func (tm *TokenManager) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
	}
	return tm.secret, nil
}
