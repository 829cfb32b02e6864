package contextkeys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))

	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", GetRequestID(ctx))
}

func TestUserID(t *testing.T) {
	assert.Empty(t, GetUserID(context.Background()))

	ctx := WithUserID(context.Background(), "u1")
	assert.Equal(t, "u1", GetUserID(ctx))
	assert.Empty(t, GetRequestID(ctx))
}

func TestWithAuth(t *testing.T) {
	ctx := WithAuth(context.Background(), 42)
	assert.Equal(t, 42, ctx.Value(AuthKey))
	assert.Nil(t, ctx.Value(UserIDKey))
}
